package entity

import (
	"context"
	"errors"
	"sync"

	"github.com/rs/zerolog"

	"rvolution/internal/logger"
	"rvolution/internal/rvolution"
)

// Media player attribute keys.
const (
	AttrState         = "state"
	AttrMediaTitle    = "media_title"
	AttrMediaPosition = "media_position"
	AttrMediaDuration = "media_duration"
	AttrVolume        = "volume"
	AttrMuted         = "muted"
	AttrStatusSupport = "status_support"
)

// Media player command ids accepted from the framework.
const (
	CmdOn         = "on"
	CmdOff        = "off"
	CmdToggle     = "toggle"
	CmdPlayPause  = "play_pause"
	CmdStop       = "stop"
	CmdNext       = "next"
	CmdPrevious   = "previous"
	CmdVolumeUp   = "volume_up"
	CmdVolumeDown = "volume_down"
	CmdMuteToggle = "mute_toggle"
	CmdMute       = "mute"
	CmdUnmute     = "unmute"
)

// mediaPlayerCommands maps framework command ids to catalog command names.
var mediaPlayerCommands = map[string]string{
	CmdOn:         "Power On",
	CmdOff:        "Power Off",
	CmdToggle:     "Power Toggle",
	CmdPlayPause:  "Play/Pause",
	CmdStop:       "Stop",
	CmdNext:       "Next",
	CmdPrevious:   "Previous",
	CmdVolumeUp:   "Volume Up",
	CmdVolumeDown: "Volume Down",
	CmdMuteToggle: "Mute",
	CmdMute:       "Mute",
	CmdUnmute:     "Mute",
}

// MediaPlayer is the media-player-shaped entity for one device.
type MediaPlayer struct {
	id     string
	client *rvolution.Client
	logger zerolog.Logger

	mu       sync.RWMutex
	name     string
	listener AttributeListener
	attrs    map[string]any
}

func mediaPlayerName(deviceName string, family rvolution.Family) string {
	suffix := "Amlogic Player"
	if family == rvolution.FamilyPlayer {
		suffix = "R_volution Player"
	}
	return deviceName + " (" + suffix + ")"
}

// NewMediaPlayer creates the media player entity for a configured device.
func NewMediaPlayer(deviceID, deviceName string, client *rvolution.Client) *MediaPlayer {
	return &MediaPlayer{
		id:     "mp_" + deviceID,
		name:   mediaPlayerName(deviceName, client.Family()),
		client: client,
		attrs: map[string]any{
			AttrState:         StateUnknown,
			AttrMuted:         false,
			AttrMediaTitle:    "",
			AttrStatusSupport: true,
		},
		logger: logger.Component("media_player").With().
			Str("entity_id", "mp_"+deviceID).
			Logger(),
	}
}

func (m *MediaPlayer) ID() string { return m.id }

func (m *MediaPlayer) Name() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.name
}

// SetName updates the display name after a device rename.
func (m *MediaPlayer) SetName(deviceName string) {
	m.mu.Lock()
	m.name = mediaPlayerName(deviceName, m.client.Family())
	m.mu.Unlock()
}

// SetListener registers the attribute-change listener. Safe to call
// while the entity is receiving updates.
func (m *MediaPlayer) SetListener(listener AttributeListener) {
	m.mu.Lock()
	m.listener = listener
	m.mu.Unlock()
}

// Attributes returns a copy of the current attribute map.
func (m *MediaPlayer) Attributes() map[string]any {
	m.mu.RLock()
	defer m.mu.RUnlock()

	attrs := make(map[string]any, len(m.attrs))
	for k, v := range m.attrs {
		attrs[k] = v
	}
	return attrs
}

// HandleCommand maps a framework command onto an IR catalog lookup plus a
// device call. Command sends are fire-and-forget; no device confirmation
// is awaited beyond HTTP receipt.
func (m *MediaPlayer) HandleCommand(ctx context.Context, cmdID string, params map[string]any) StatusCode {
	m.logger.Debug().Str("cmd_id", cmdID).Msg("Media player received command")

	command, ok := mediaPlayerCommands[cmdID]
	if !ok {
		m.logger.Warn().Str("cmd_id", cmdID).Msg("Unknown media player command")
		return StatusNotImplemented
	}

	if err := m.client.Send(ctx, command); err != nil {
		return m.commandFailure(cmdID, err)
	}

	// Optimistic attribute updates for commands whose effect we know.
	switch cmdID {
	case CmdOn:
		m.updateAttributes(map[string]any{AttrState: StateOn})
	case CmdOff:
		m.updateAttributes(map[string]any{AttrState: StateOff})
	case CmdToggle:
		next := StateOn
		if state, _ := m.attribute(AttrState).(string); state == StateOn {
			next = StateOff
		}
		m.updateAttributes(map[string]any{AttrState: next})
	case CmdStop:
		m.updateAttributes(map[string]any{AttrState: StateOn})
	case CmdMute, CmdMuteToggle:
		m.updateAttributes(map[string]any{AttrMuted: true})
	case CmdUnmute:
		m.updateAttributes(map[string]any{AttrMuted: false})
	}

	return StatusOK
}

// ApplyStatus folds a poll result into the attribute map. A nil snapshot
// carries no media fields; only state-related attributes change.
func (m *MediaPlayer) ApplyStatus(state rvolution.ConnectionState, snapshot *rvolution.StatusSnapshot, statusSupported bool) {
	changed := map[string]any{AttrStatusSupport: statusSupported}

	if state != rvolution.StateConnected {
		changed[AttrState] = StateUnavailable
		m.updateAttributes(changed)
		return
	}

	if snapshot == nil {
		changed[AttrState] = StateOn
		m.updateAttributes(changed)
		return
	}

	switch snapshot.State {
	case rvolution.PlaybackPlaying:
		changed[AttrState] = StatePlaying
	case rvolution.PlaybackPaused:
		changed[AttrState] = StatePaused
	case rvolution.PlaybackStopped:
		changed[AttrState] = StateOn
	default:
		changed[AttrState] = StateOn
	}

	// Absent fields mean the device did not report them; leave the
	// previous attribute untouched rather than writing zeros.
	if snapshot.Title != nil {
		changed[AttrMediaTitle] = *snapshot.Title
	}
	if snapshot.PositionSeconds != nil {
		changed[AttrMediaPosition] = *snapshot.PositionSeconds
	}
	if snapshot.DurationSeconds != nil {
		changed[AttrMediaDuration] = *snapshot.DurationSeconds
	}
	if snapshot.Volume != nil {
		changed[AttrVolume] = *snapshot.Volume
	}
	if snapshot.Muted != nil {
		changed[AttrMuted] = *snapshot.Muted
	}

	m.updateAttributes(changed)
}

func (m *MediaPlayer) commandFailure(cmdID string, err error) StatusCode {
	switch {
	case errors.Is(err, rvolution.ErrUnknownCommand):
		m.logger.Warn().Str("cmd_id", cmdID).Err(err).Msg("Command not in family catalog")
		return StatusBadRequest
	case errors.Is(err, rvolution.ErrTimeout), errors.Is(err, rvolution.ErrUnreachable):
		m.logger.Error().Str("cmd_id", cmdID).Err(err).Msg("Device unreachable for command")
		m.updateAttributes(map[string]any{AttrState: StateUnavailable})
		return StatusServiceUnavailable
	default:
		m.logger.Error().Str("cmd_id", cmdID).Err(err).Msg("Command failed")
		return StatusServerError
	}
}

func (m *MediaPlayer) attribute(key string) any {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.attrs[key]
}

func (m *MediaPlayer) updateAttributes(changed map[string]any) {
	m.mu.Lock()
	for k, v := range changed {
		m.attrs[k] = v
	}
	listener := m.listener
	m.mu.Unlock()

	if listener != nil {
		listener(m.id, changed)
	}
}
