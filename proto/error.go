package proto

import (
	"errors"
	"fmt"
)

// DeviceError is returned when a microphone, camera or speaker cannot be
// acquired. It is fatal to call setup.
type DeviceError struct {
	Device string
	cause  error
}

func (e *DeviceError) Unwrap() error {
	return e.cause
}

func (e *DeviceError) Error() string {
	return fmt.Sprintf("device %s: %s", e.Device, e.cause)
}

func NewDeviceError(device string, cause error) *DeviceError {
	return &DeviceError{Device: device, cause: cause}
}

// TransportError is returned when an established model or peer connection
// fails. The call ends; there is no reconnect.
type TransportError struct {
	Op    string
	cause error
}

func (e *TransportError) Unwrap() error {
	return e.cause
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("transport %s: %s", e.Op, e.cause)
}

func NewTransportError(op string, cause error) *TransportError {
	return &TransportError{Op: op, cause: cause}
}

// ProtocolViolation describes a malformed or out-of-order signaling message.
// Receivers log and ignore it.
type ProtocolViolation struct {
	Event  string
	Reason string
}

func (e *ProtocolViolation) Error() string {
	return fmt.Sprintf("protocol violation [event=%s]: %s", e.Event, e.Reason)
}

func NewProtocolViolation(event string, format string, args ...any) *ProtocolViolation {
	return &ProtocolViolation{Event: event, Reason: fmt.Sprintf(format, args...)}
}

// ToolDispatchError is produced when a tool call cannot be executed, either
// because its arguments are invalid or the tool is unknown.
type ToolDispatchError struct {
	Tool  string
	cause error
}

func (e *ToolDispatchError) Unwrap() error {
	return e.cause
}

func (e *ToolDispatchError) Error() string {
	return fmt.Sprintf("tool %s: %s", e.Tool, e.cause)
}

func NewToolDispatchError(tool string, cause error) *ToolDispatchError {
	return &ToolDispatchError{Tool: tool, cause: cause}
}

// IsDeviceError reports whether err or any error it wraps is a DeviceError.
func IsDeviceError(err error) bool {
	var de *DeviceError
	return errors.As(err, &de)
}

// IsTransportError reports whether err or any error it wraps is a TransportError.
func IsTransportError(err error) bool {
	var te *TransportError
	return errors.As(err, &te)
}

// ToToolDispatchError converts any error into a ToolDispatchError for tool.
func ToToolDispatchError(tool string, err error) *ToolDispatchError {
	var tde *ToolDispatchError
	if errors.As(err, &tde) {
		return tde
	}
	return NewToolDispatchError(tool, err)
}
