package rvolution

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"rvolution/internal/logger"
)

// DefaultTimeout bounds every device request when no per-device timeout is
// configured. R_volution HTTP servers are slow but answer well within this.
const DefaultTimeout = 10 * time.Second

// Client talks to a single R_volution device over its HTTP API.
type Client struct {
	httpClient *http.Client
	baseURL    string
	family     Family
	logger     zerolog.Logger
}

// NewClient creates a client for a device at address (host or host:port,
// default port 80) of the given family. timeout <= 0 selects DefaultTimeout.
func NewClient(address string, family Family, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	return &Client{
		httpClient: &http.Client{
			Timeout: timeout,
		},
		baseURL: "http://" + address,
		family:  family,
		logger: logger.Component("device_client").With().
			Str("address", address).
			Logger(),
	}
}

// Family returns the device family this client was built for.
func (c *Client) Family() Family {
	return c.family
}

// BaseURL returns the device base URL, including any custom port.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// TestConnection checks basic reachability by requesting the device root.
func (c *Client) TestConnection(ctx context.Context) bool {
	resp, err := c.get(ctx, "/")
	if err != nil {
		c.logger.Debug().
			Str("base_url", c.baseURL).
			Err(err).
			Msg("Connection test failed")
		return false
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	return resp.StatusCode == http.StatusOK
}

// FetchInfo retrieves model and firmware details from /device/info. Used at
// setup to confirm reachability and name the device.
func (c *Client) FetchInfo(ctx context.Context) (*DeviceInfo, error) {
	resp, err := c.get(ctx, "/device/info")
	if err != nil {
		return nil, c.transportError("info request", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: info endpoint returned status %d", ErrMalformedResponse, resp.StatusCode)
	}

	var info DeviceInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}

	c.logger.Debug().
		Str("base_url", c.baseURL).
		Str("model", info.ModelName).
		Str("firmware", info.FirmwareVersion).
		Msg("Retrieved device info")

	return &info, nil
}

// statusPayload mirrors the /device/status JSON. Older Player firmware uses
// "playback"/"mute" where newer builds use "state"/"muted"; both are read.
type statusPayload struct {
	State    *string  `json:"state"`
	Playback *string  `json:"playback"`
	Title    *string  `json:"title"`
	Position *float64 `json:"position"`
	Duration *float64 `json:"duration"`
	Volume   *float64 `json:"volume"`
	Muted    *bool    `json:"muted"`
	Mute     *bool    `json:"mute"`
}

// FetchStatus polls /device/status and normalizes the response. A device
// whose firmware omits the status API yields ErrUnsupported; callers treat
// that as "no status available", not as a connection failure.
func (c *Client) FetchStatus(ctx context.Context) (*StatusSnapshot, error) {
	resp, err := c.get(ctx, "/device/status")
	if err != nil {
		return nil, c.transportError("status request", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound, http.StatusNotImplemented:
		return nil, fmt.Errorf("%w: status endpoint returned %d", ErrUnsupported, resp.StatusCode)
	default:
		return nil, fmt.Errorf("%w: status endpoint returned status %d", ErrMalformedResponse, resp.StatusCode)
	}

	var payload statusPayload
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}

	return normalizeStatus(&payload), nil
}

// SendCommand issues a single IR code through /cgi-bin/do. Fire-and-forget:
// a 200 acknowledges receipt, not command effect.
func (c *Client) SendCommand(ctx context.Context, code IRCode) error {
	query := url.Values{}
	query.Set("cmd", "ir_code")
	query.Set("ir_code", string(code))

	resp, err := c.get(ctx, "/cgi-bin/do?"+query.Encode())
	if err != nil {
		return c.transportError("command request", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		c.logger.Warn().
			Str("base_url", c.baseURL).
			Str("ir_code", string(code)).
			Int("status", resp.StatusCode).
			Msg("Device rejected IR command")
		return fmt.Errorf("%w: status %d: %s", ErrRejected, resp.StatusCode, strings.TrimSpace(string(body)))
	}

	c.logger.Debug().
		Str("base_url", c.baseURL).
		Str("ir_code", string(code)).
		Msg("IR command sent")

	return nil
}

// Send resolves a logical command name against the family catalog and sends
// the resulting IR code.
func (c *Client) Send(ctx context.Context, command string) error {
	code, err := Resolve(c.family, command)
	if err != nil {
		return err
	}
	return c.SendCommand(ctx, code)
}

func (c *Client) get(ctx context.Context, path string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	return c.httpClient.Do(req)
}

// transportError classifies a transport-level failure into the taxonomy.
func (c *Client) transportError(op string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %s: %v", ErrTimeout, op, err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return fmt.Errorf("%w: %s: %v", ErrTimeout, op, err)
	}
	return fmt.Errorf("%w: %s: %v", ErrUnreachable, op, err)
}

func normalizeStatus(payload *statusPayload) *StatusSnapshot {
	snapshot := &StatusSnapshot{State: PlaybackUnknown}

	state := payload.State
	if state == nil {
		state = payload.Playback
	}
	if state != nil {
		switch strings.ToLower(*state) {
		case "playing", "play":
			snapshot.State = PlaybackPlaying
		case "paused", "pause":
			snapshot.State = PlaybackPaused
		case "stopped", "stop":
			snapshot.State = PlaybackStopped
		}
	}

	if payload.Title != nil && *payload.Title != "" {
		snapshot.Title = payload.Title
	}
	if payload.Position != nil && *payload.Position >= 0 {
		position := int(*payload.Position)
		snapshot.PositionSeconds = &position
	}
	if payload.Duration != nil && *payload.Duration > 0 {
		duration := int(*payload.Duration)
		snapshot.DurationSeconds = &duration
	}
	if payload.Volume != nil {
		volume := int(*payload.Volume)
		snapshot.Volume = &volume
	}

	muted := payload.Muted
	if muted == nil {
		muted = payload.Mute
	}
	snapshot.Muted = muted

	return snapshot
}
