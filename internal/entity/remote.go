package entity

import (
	"context"
	"errors"
	"sync"

	"github.com/rs/zerolog"

	"rvolution/internal/logger"
	"rvolution/internal/rvolution"
)

// CmdSend carries an arbitrary logical command name in params["command"].
const CmdSend = "send_cmd"

// Remote is the remote-control-shaped entity for one device. It exposes
// the family's full command set minus the discrete power commands, which
// the framework surfaces through on/off instead.
type Remote struct {
	id       string
	client   *rvolution.Client
	commands []string
	logger   zerolog.Logger

	mu       sync.RWMutex
	name     string
	listener AttributeListener
	attrs    map[string]any
}

func remoteName(deviceName string, family rvolution.Family) string {
	suffix := "Amlogic Remote"
	if family == rvolution.FamilyPlayer {
		suffix = "R_volution Remote"
	}
	return deviceName + " (" + suffix + ")"
}

// NewRemote creates the remote entity for a configured device.
func NewRemote(deviceID, deviceName string, client *rvolution.Client) *Remote {
	var commands []string
	for _, name := range rvolution.Commands(client.Family()) {
		if name == "Power On" || name == "Power Off" {
			continue
		}
		commands = append(commands, name)
	}

	return &Remote{
		id:       "remote_" + deviceID,
		name:     remoteName(deviceName, client.Family()),
		client:   client,
		commands: commands,
		attrs: map[string]any{
			AttrState: StateUnknown,
		},
		logger: logger.Component("remote").With().
			Str("entity_id", "remote_"+deviceID).
			Logger(),
	}
}

func (r *Remote) ID() string { return r.id }

func (r *Remote) Name() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.name
}

// SetName updates the display name after a device rename.
func (r *Remote) SetName(deviceName string) {
	r.mu.Lock()
	r.name = remoteName(deviceName, r.client.Family())
	r.mu.Unlock()
}

// SetListener registers the attribute-change listener. Safe to call
// while the entity is receiving updates.
func (r *Remote) SetListener(listener AttributeListener) {
	r.mu.Lock()
	r.listener = listener
	r.mu.Unlock()
}

// SimpleCommands returns the ordered logical commands this remote exports,
// already filtered to the device family so the UI never offers a button
// the family cannot resolve.
func (r *Remote) SimpleCommands() []string {
	out := make([]string, len(r.commands))
	copy(out, r.commands)
	return out
}

// Attributes returns a copy of the current attribute map.
func (r *Remote) Attributes() map[string]any {
	r.mu.RLock()
	defer r.mu.RUnlock()

	attrs := make(map[string]any, len(r.attrs))
	for k, v := range r.attrs {
		attrs[k] = v
	}
	return attrs
}

// HandleCommand handles on/off/toggle, send_cmd with a command parameter,
// and bare logical command names.
func (r *Remote) HandleCommand(ctx context.Context, cmdID string, params map[string]any) StatusCode {
	r.logger.Debug().Str("cmd_id", cmdID).Msg("Remote received command")

	var command string
	switch cmdID {
	case CmdOn:
		command = "Power On"
	case CmdOff:
		command = "Power Off"
	case CmdToggle:
		command = "Power Toggle"
	case CmdSend:
		name, ok := params["command"].(string)
		if !ok || name == "" {
			r.logger.Warn().Msg("send_cmd missing command parameter")
			return StatusBadRequest
		}
		command = name
	default:
		if !rvolution.Supports(r.client.Family(), cmdID) {
			r.logger.Warn().Str("cmd_id", cmdID).Msg("Unknown remote command")
			return StatusNotImplemented
		}
		command = cmdID
	}

	if err := r.client.Send(ctx, command); err != nil {
		switch {
		case errors.Is(err, rvolution.ErrUnknownCommand):
			return StatusBadRequest
		case errors.Is(err, rvolution.ErrTimeout), errors.Is(err, rvolution.ErrUnreachable):
			r.updateAttributes(map[string]any{AttrState: StateUnavailable})
			return StatusServiceUnavailable
		default:
			return StatusServerError
		}
	}

	switch cmdID {
	case CmdOn:
		r.updateAttributes(map[string]any{AttrState: StateOn})
	case CmdOff:
		r.updateAttributes(map[string]any{AttrState: StateOff})
	case CmdToggle:
		next := StateOn
		if state, _ := r.attribute(AttrState).(string); state == StateOn {
			next = StateOff
		}
		r.updateAttributes(map[string]any{AttrState: next})
	}

	return StatusOK
}

// ApplyStatus reflects device reachability into the remote's state.
func (r *Remote) ApplyStatus(state rvolution.ConnectionState, _ *rvolution.StatusSnapshot, _ bool) {
	if state == rvolution.StateConnected {
		r.updateAttributes(map[string]any{AttrState: StateOn})
	} else {
		r.updateAttributes(map[string]any{AttrState: StateUnavailable})
	}
}

func (r *Remote) attribute(key string) any {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.attrs[key]
}

func (r *Remote) updateAttributes(changed map[string]any) {
	r.mu.Lock()
	for k, v := range changed {
		r.attrs[k] = v
	}
	listener := r.listener
	r.mu.Unlock()

	if listener != nil {
		listener(r.id, changed)
	}
}
