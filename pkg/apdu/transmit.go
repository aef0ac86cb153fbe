package apdu

import "slices"

const (
	swMoreData  = 0x61
	insGetReply = 0xC0
)

// Transmitter is the minimal card transport an exchange needs. It is
// satisfied by *scard.Card.
type Transmitter interface {
	Transmit(cmd []byte) ([]byte, error)
}

// Transmit sends an encoded command and drives the GET RESPONSE loop:
// while the card answers 61 XX, the pending XX bytes are fetched and
// appended to the accumulated payload. The final status word is the
// one of the last round.
func Transmit(t Transmitter, request []byte) (Response, error) {
	raw, err := t.Transmit(request)
	if err != nil {
		return Response{}, &TransmitError{Err: err}
	}

	resp, err := Decode(raw)
	if err != nil {
		return Response{}, err
	}

	data := resp.Data
	for resp.SW1 == swMoreData {
		raw, err = t.Transmit([]byte{0x00, insGetReply, 0x00, 0x00, resp.SW2})
		if err != nil {
			return Response{}, &TransmitError{Err: err}
		}
		if resp, err = Decode(raw); err != nil {
			return Response{}, err
		}
		data = slices.Concat(data, resp.Data)
	}

	resp.Data = data
	return resp, nil
}
