package domain

import (
	"errors"
	"fmt"
)

var (
	ErrUnknownCharacteristic = errors.New("unknown characteristic")
	ErrReadOnly              = errors.New("characteristic is read only")
	ErrPropertyUnavailable   = errors.New("property not reported by device")
	ErrUnexpectedResponse    = errors.New("air purifier responded with fail message")
)

// ConfigurationError is fatal at startup.
type ConfigurationError struct {
	Field  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("config %s: %s", e.Field, e.Reason)
}

// DiscoveryError reports one failed connection attempt. The session keeps
// retrying after it.
type DiscoveryError struct {
	Address string
	Attempt int
	Err     error
}

func (e *DiscoveryError) Error() string {
	return fmt.Sprintf("failed to discover air purifier at %s (attempt %d): %v", e.Address, e.Attempt, e.Err)
}

func (e *DiscoveryError) Unwrap() error {
	return e.Err
}

// ProtocolMismatchError means the device at the address is not an air purifier.
type ProtocolMismatchError struct {
	Address  string
	Model    string
	Expected string
}

func (e *ProtocolMismatchError) Error() string {
	return fmt.Sprintf("device discovered at %s (%s) does not match %s", e.Address, e.Model, e.Expected)
}

// DeviceCallError wraps a failed command or read on a bound device.
type DeviceCallError struct {
	Op  string
	Err error
}

func (e *DeviceCallError) Error() string {
	return fmt.Sprintf("error %s: %v", e.Op, e.Err)
}

func (e *DeviceCallError) Unwrap() error {
	return e.Err
}

// ValidationError rejects a hub value outside the characteristic domain.
type ValidationError struct {
	Characteristic string
	Value          any
	Reason         string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid value %v for %s: %s", e.Value, e.Characteristic, e.Reason)
}
