package fido

// Transport carries one framed CTAP request to the device at the
// given HID path and returns the raw response envelope. A full
// implementation owns the CTAPHID transaction layer (channel
// allocation, initialization and continuation packets).
type Transport interface {
	Exchange(path string, request []byte) ([]byte, error)
}

// UnimplementedTransport is the placeholder used until the CTAPHID
// transaction layer lands. Every exchange fails with a communication
// error wrapping ErrNotImplemented, so validated inputs never read as
// device success.
type UnimplementedTransport struct{}

func (UnimplementedTransport) Exchange(path string, _ []byte) ([]byte, error) {
	return nil, &CommunicationError{
		Message: "cannot reach device " + path,
		Err:     ErrNotImplemented,
	}
}
