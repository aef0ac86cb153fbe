package ctap

import (
	"errors"
	"fmt"
)

var (
	ErrEmptyResponse    = errors.New("ctap: empty response")
	ErrPinLocked        = errors.New("ctap: pin is permanently blocked")
	ErrPinLengthInvalid = errors.New("ctap: pin length invalid")
)

// CTAP status codes this layer maps to specific error kinds.
const (
	StatusPinInvalid       = 0x31
	StatusPinBlocked       = 0x32
	StatusPinLengthInvalid = 0x33
	StatusPinAuthInvalid   = 0x36
)

// CTAPError carries an authenticator status code with no more
// specific mapping.
type CTAPError struct {
	Code byte
}

func (e *CTAPError) Error() string {
	return fmt.Sprintf("ctap: authenticator returned status 0x%02X", e.Code)
}

// PinInvalidError reports a rejected PIN. The retry count is only
// known when the failing operation also fetched it; zero means
// unknown.
type PinInvalidError struct {
	Retries uint8
}

func (e *PinInvalidError) Error() string {
	return fmt.Sprintf("ctap: pin invalid, %d retries remaining", e.Retries)
}

// EncodingError wraps a CBOR marshalling failure.
type EncodingError struct {
	Err error
}

func (e *EncodingError) Error() string {
	return "ctap: cannot encode request: " + e.Err.Error()
}

func (e *EncodingError) Unwrap() error {
	return e.Err
}

// DecodingError wraps a malformed response, including structurally
// invalid CBOR after a success status.
type DecodingError struct {
	Err error
}

func (e *DecodingError) Error() string {
	return "ctap: cannot decode response: " + e.Err.Error()
}

func (e *DecodingError) Unwrap() error {
	return e.Err
}

// StatusToError maps a non-zero CTAP status byte onto the error
// taxonomy.
func StatusToError(code byte) error {
	switch code {
	case StatusPinInvalid, StatusPinAuthInvalid:
		return &PinInvalidError{}
	case StatusPinBlocked:
		return ErrPinLocked
	case StatusPinLengthInvalid:
		return ErrPinLengthInvalid
	default:
		return &CTAPError{Code: code}
	}
}
