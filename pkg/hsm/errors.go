package hsm

import (
	"errors"
	"fmt"
)

var (
	ErrPinLocked            = errors.New("hsm: pin is permanently blocked")
	ErrSoPinInvalid         = errors.New("hsm: security condition not satisfied (so-pin)")
	ErrSoPinLocked          = errors.New("hsm: so-pin is permanently blocked")
	ErrPinFormatInvalid     = errors.New("hsm: pin must be 6-16 characters")
	ErrSoPinFormatInvalid   = errors.New("hsm: so-pin must be exactly 16 hex characters")
	ErrDkekNotInitialized   = errors.New("hsm: dkek is not initialized")
	ErrDeviceNotInitialized = errors.New("hsm: device is not initialized")
	ErrNoDeviceSelected     = errors.New("hsm: no device selected")
	ErrNotSupported         = errors.New("hsm: not supported")
	ErrTimeout              = errors.New("hsm: operation timed out")
	ErrEmptyCertificate     = errors.New("hsm: certificate data must not be empty")
	ErrEmptyDkekShare       = errors.New("hsm: dkek share data must not be empty")
	ErrEmptyDkekPassword    = errors.New("hsm: dkek password must not be empty")
	ErrEmptyWrappedKey      = errors.New("hsm: wrapped key data must not be empty")
)

// PinInvalidError reports a failed PIN verification together with the
// retry counter extracted from the 63 Cx status word.
type PinInvalidError struct {
	Retries uint8
}

func (e *PinInvalidError) Error() string {
	return fmt.Sprintf("hsm: pin invalid, %d retries remaining", e.Retries)
}

// KeyNotFoundError reports a missing key or file object.
type KeyNotFoundError struct {
	ID uint8
}

func (e *KeyNotFoundError) Error() string {
	return fmt.Sprintf("hsm: key 0x%02X not found", e.ID)
}

// CertificateNotFoundError reports an export of a non-existent
// certificate id.
type CertificateNotFoundError struct {
	ID uint8
}

func (e *CertificateNotFoundError) Error() string {
	return fmt.Sprintf("hsm: certificate 0x%02X not found", e.ID)
}

// StatusError carries an unrecognized status word verbatim.
type StatusError struct {
	SW1 byte
	SW2 byte
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("hsm: unexpected status word %02X %02X", e.SW1, e.SW2)
}

// CommunicationError wraps a transport-level failure with context.
type CommunicationError struct {
	Message string
	Err     error
}

func (e *CommunicationError) Error() string {
	if e.Err != nil {
		return "hsm: " + e.Message + ": " + e.Err.Error()
	}
	return "hsm: " + e.Message
}

func (e *CommunicationError) Unwrap() error {
	return e.Err
}
