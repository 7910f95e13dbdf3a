// Package entity exposes the framework-facing surfaces for a configured
// device: a media-player entity and a remote entity. The hosting remote
// polls entity attributes and forwards command invocations into them.
package entity

import "context"

// StatusCode is the result of a command invocation, using the status-code
// vocabulary of the integration API.
type StatusCode int

const (
	StatusOK                 StatusCode = 200
	StatusBadRequest         StatusCode = 400
	StatusNotFound           StatusCode = 404
	StatusServerError        StatusCode = 500
	StatusNotImplemented     StatusCode = 501
	StatusServiceUnavailable StatusCode = 503
)

// State values surfaced through the "state" attribute.
const (
	StateOn          = "ON"
	StateOff         = "OFF"
	StatePlaying     = "PLAYING"
	StatePaused      = "PAUSED"
	StateUnknown     = "UNKNOWN"
	StateUnavailable = "UNAVAILABLE"
)

// Entity is implemented by both entity kinds.
type Entity interface {
	// ID is the stable entity identifier (stable across restarts).
	ID() string

	// Name is the display name shown on the remote.
	Name() string

	// Attributes returns a copy of the current attribute map.
	Attributes() map[string]any

	// HandleCommand executes a framework command invocation.
	HandleCommand(ctx context.Context, cmdID string, params map[string]any) StatusCode
}

// AttributeListener is notified with the changed attributes whenever an
// entity updates. Wired by the integration server to push events.
type AttributeListener func(entityID string, changed map[string]any)
