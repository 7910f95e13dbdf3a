package hub

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"rvolution/internal/logger"
	"rvolution/internal/rvolution"
)

// maxPollBackoff caps the delay between polls of a failing device.
const maxPollBackoff = 60 * time.Second

// stopGracePeriod bounds how long Stop waits for an in-flight poll.
const stopGracePeriod = 5 * time.Second

// StatusUpdate is published to entity consumers after every poll cycle.
// Snapshot is nil whenever the device reported nothing; consumers must not
// substitute zero values.
type StatusUpdate struct {
	DeviceID        string
	State           rvolution.ConnectionState
	Reason          string // populated when State is StateError
	Snapshot        *rvolution.StatusSnapshot
	StatusSupported bool
}

// StatusSink receives status updates. Implementations must not block.
type StatusSink func(StatusUpdate)

// Poller polls one device's status endpoint on a fixed interval, tracking
// connection state and backing off while the device is failing. Pollers are
// independent: a stalled device never delays the others.
type Poller struct {
	device   DeviceConfig
	client   *rvolution.Client
	interval time.Duration
	sink     StatusSink
	logger   zerolog.Logger

	cancel context.CancelFunc
	done   chan struct{}

	mu              sync.RWMutex
	connState       rvolution.ConnectionState
	statusSupported bool
}

// NewPoller creates a poller for one registered device.
func NewPoller(device DeviceConfig, client *rvolution.Client, interval time.Duration, sink StatusSink) *Poller {
	return &Poller{
		device:          device,
		client:          client,
		interval:        interval,
		sink:            sink,
		connState:       rvolution.StateDisconnected,
		statusSupported: true,
		logger: logger.Component("poller").With().
			Str("device_id", device.ID).
			Logger(),
	}
}

// Start launches the polling loop. The first poll happens immediately.
func (p *Poller) Start(ctx context.Context) {
	pollCtx, cancel := context.WithCancel(ctx)
	p.cancel = cancel
	p.done = make(chan struct{})

	go p.run(pollCtx)
}

// Stop cancels the polling loop and waits for any in-flight request, up to
// a bounded grace period.
func (p *Poller) Stop() {
	if p.cancel == nil {
		return
	}
	p.cancel()

	select {
	case <-p.done:
	case <-time.After(stopGracePeriod):
		p.logger.Warn().Msg("Poller did not stop within grace period, abandoning")
	}
}

// ConnectionState returns the device's current connection state.
func (p *Poller) ConnectionState() rvolution.ConnectionState {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.connState
}

// StatusSupported reports whether the device implements the status API.
// Flips to false after the first Unsupported result and stays false.
func (p *Poller) StatusSupported() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.statusSupported
}

func (p *Poller) run(ctx context.Context) {
	defer close(p.done)

	p.logger.Info().
		Dur("interval", p.interval).
		Msg("Starting status poller")

	failures := 0
	timer := time.NewTimer(0) // fire immediately
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			p.logger.Info().Msg("Status poller stopped")
			return
		case <-timer.C:
		}

		if p.poll(ctx) {
			failures = 0
		} else {
			failures++
		}

		timer.Reset(p.nextDelay(failures))
	}
}

// nextDelay returns the poll interval, doubled per consecutive failure up
// to maxPollBackoff.
func (p *Poller) nextDelay(failures int) time.Duration {
	if failures == 0 {
		return p.interval
	}
	delay := p.interval
	for i := 0; i < failures && delay < maxPollBackoff; i++ {
		delay *= 2
	}
	if delay > maxPollBackoff {
		delay = maxPollBackoff
	}
	return delay
}

// poll runs one cycle and reports whether the device was reachable.
func (p *Poller) poll(ctx context.Context) bool {
	if !p.supportsStatus() {
		// Control-only device: a reachability check is all we can do.
		if p.client.TestConnection(ctx) {
			p.publish(rvolution.StateConnected, "", nil)
			return true
		}
		p.publish(rvolution.StateDisconnected, "", nil)
		return false
	}

	snapshot, err := p.client.FetchStatus(ctx)
	switch {
	case err == nil:
		p.publish(rvolution.StateConnected, "", snapshot)
		return true

	case errors.Is(err, rvolution.ErrUnsupported):
		// Expected on firmware without the status API. The device is
		// reachable; degrade to control-only mode without alarming.
		p.mu.Lock()
		p.statusSupported = false
		p.mu.Unlock()
		p.logger.Info().Msg("Device has no status API, degrading to control-only polling")
		p.publish(rvolution.StateConnected, "", nil)
		return true

	case errors.Is(err, rvolution.ErrTimeout), errors.Is(err, rvolution.ErrUnreachable):
		p.logger.Debug().Err(err).Msg("Device poll failed")
		p.publish(rvolution.StateDisconnected, "", nil)
		return false

	default:
		p.logger.Warn().Err(err).Msg("Device poll returned unusable response")
		p.publish(rvolution.StateError, err.Error(), nil)
		return false
	}
}

func (p *Poller) supportsStatus() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.statusSupported
}

func (p *Poller) publish(state rvolution.ConnectionState, reason string, snapshot *rvolution.StatusSnapshot) {
	p.mu.Lock()
	previous := p.connState
	p.connState = state
	supported := p.statusSupported
	p.mu.Unlock()

	if previous != state {
		p.logger.Info().
			Str("from", string(previous)).
			Str("to", string(state)).
			Msg("Connection state changed")
	}

	if p.sink != nil {
		p.sink(StatusUpdate{
			DeviceID:        p.device.ID,
			State:           state,
			Reason:          reason,
			Snapshot:        snapshot,
			StatusSupported: supported,
		})
	}
}
