package devices

import (
	"errors"
	"fmt"
)

var (
	ErrConnectionLost    = errors.New("devices: connection lost")
	ErrTimeout           = errors.New("devices: operation timed out")
	ErrDeviceBusy        = errors.New("devices: device is busy")
	ErrUnsupportedDevice = errors.New("devices: unsupported device")
)

// NotFoundError reports a path that does not appear in the live
// device list (or, on Close, was never opened).
type NotFoundError struct {
	Path string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("devices: device %q not found", e.Path)
}

// OpenFailedError wraps a backend failure while opening a device.
type OpenFailedError struct {
	Path string
	Err  error
}

func (e *OpenFailedError) Error() string {
	return fmt.Sprintf("devices: cannot open %q: %v", e.Path, e.Err)
}

func (e *OpenFailedError) Unwrap() error {
	return e.Err
}
