package fido

import (
	"errors"
	"fmt"
)

var (
	ErrNotImplemented    = errors.New("fido: CTAPHID transport not implemented")
	ErrNoDeviceSelected  = errors.New("fido: no device selected")
	ErrNotSupported      = errors.New("fido: not supported")
	ErrTimeout           = errors.New("fido: operation timed out")
	ErrPinLengthInvalid  = errors.New("fido: pin must be 4-63 bytes")
	ErrEmptyCredentialID = errors.New("fido: credential id must not be empty")
	ErrEmptyOATHSecret   = errors.New("fido: oath secret must not be empty")
	ErrEmptyOATHAccount  = errors.New("fido: oath account must not be empty")
	ErrInvalidOATHDigits = errors.New("fido: oath digits must be 6 or 8")
	ErrBackupWordCount   = errors.New("fido: exactly 24 recovery words required")
	ErrBlankBackupWord   = errors.New("fido: recovery words must not be blank")
)

// CommunicationError wraps a transport failure with context.
type CommunicationError struct {
	Message string
	Err     error
}

func (e *CommunicationError) Error() string {
	if e.Err != nil {
		return "fido: " + e.Message + ": " + e.Err.Error()
	}
	return "fido: " + e.Message
}

func (e *CommunicationError) Unwrap() error {
	return e.Err
}

// UnexpectedResponseError reports a success envelope whose payload
// does not match the expected response shape.
type UnexpectedResponseError struct {
	Command string
}

func (e *UnexpectedResponseError) Error() string {
	return fmt.Sprintf("fido: unexpected response format for %s", e.Command)
}
