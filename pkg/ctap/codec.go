// Package ctap implements the CTAP2 command framing: a command byte
// followed by an optional CBOR parameter block, and the status-byte +
// CBOR response envelope.
package ctap

import (
	"github.com/fxamacker/cbor/v2"

	"github.com/pico-keys/go-pico/pkg/options"
)

// Codec frames CTAP commands and parses response envelopes. Encoding
// follows the CTAP2 canonical CBOR rules.
type Codec struct {
	encMode cbor.EncMode
}

func NewCodec(opts ...options.Option) *Codec {
	oo := options.NewOptions(opts...)

	return &Codec{
		encMode: oo.EncMode,
	}
}

// EncodeCommand serializes a command byte plus an optional parameter
// struct. A nil params value yields the bare command byte; sub-command
// carrying requests always produce a non-empty CBOR block.
func (c *Codec) EncodeCommand(cmd Command, params any) ([]byte, error) {
	buf := []byte{byte(cmd)}
	if params == nil {
		return buf, nil
	}

	b, err := c.encMode.Marshal(params)
	if err != nil {
		return nil, &EncodingError{Err: err}
	}
	return append(buf, b...), nil
}

// Response is a parsed CTAP response envelope. Payload holds the raw
// CBOR bytes following the status byte, already checked for
// structural validity; callers unmarshal it into the response type
// matching their request.
type Response struct {
	Payload []byte
}

// DecodeResponse splits a raw CTAP reply into status and payload. An
// empty reply is a decode error; a non-zero status maps through
// StatusToError; any bytes after a success status must be well-formed
// CBOR even when the caller does not need them.
func (c *Codec) DecodeResponse(data []byte) (Response, error) {
	if len(data) == 0 {
		return Response{}, &DecodingError{Err: ErrEmptyResponse}
	}

	if status := data[0]; status != 0x00 {
		return Response{}, StatusToError(status)
	}

	if len(data) == 1 {
		return Response{}, nil
	}

	payload := data[1:]
	var wellFormed cbor.RawMessage
	if err := cbor.Unmarshal(payload, &wellFormed); err != nil {
		return Response{}, &DecodingError{Err: err}
	}
	return Response{Payload: payload}, nil
}
