package rvolution

import "errors"

// Failure kinds for device communication. Callers branch with errors.Is;
// every error returned by Client wraps exactly one of these.
var (
	// ErrUnreachable: no usable network response (refused, reset, no route).
	ErrUnreachable = errors.New("device unreachable")

	// ErrTimeout: the device did not answer within the configured timeout.
	ErrTimeout = errors.New("device timeout")

	// ErrMalformedResponse: the device answered with an unexpected payload.
	ErrMalformedResponse = errors.New("malformed device response")

	// ErrUnsupported: the endpoint is not implemented by this firmware.
	// Expected on devices without the status API; not a connection failure.
	ErrUnsupported = errors.New("endpoint not supported by device")

	// ErrRejected: the device responded but refused the command.
	ErrRejected = errors.New("command rejected by device")

	// ErrUnknownCommand: the logical name is not in the family's catalog.
	ErrUnknownCommand = errors.New("unknown command")
)
