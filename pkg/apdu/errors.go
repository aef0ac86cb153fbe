package apdu

import "fmt"

// IncompleteResponseError reports a response too short to carry a
// status word.
type IncompleteResponseError struct {
	Length int
}

func (e *IncompleteResponseError) Error() string {
	return fmt.Sprintf("apdu: response too short (%d bytes)", e.Length)
}

// TransmitError wraps a transport failure during an exchange,
// including failures of intermediate GET RESPONSE rounds.
type TransmitError struct {
	Err error
}

func (e *TransmitError) Error() string {
	return fmt.Sprintf("apdu: transmit failed: %v", e.Err)
}

func (e *TransmitError) Unwrap() error {
	return e.Err
}
