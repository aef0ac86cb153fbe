// Package apdu implements the ISO 7816-4 command/response APDU codec,
// including the extended-length framing used by smart cards with large
// data transfers.
package apdu

import (
	"encoding/binary"

	"github.com/samber/mo"
)

// Command is a single ISO 7816-4 command APDU. Le carries the expected
// response length; an absent Le means no response data is requested
// (case 1/3), while Le values of 256 and above select the wire
// sentinels defined by the standard.
type Command struct {
	CLA  byte
	INS  byte
	P1   byte
	P2   byte
	Data []byte
	Le   mo.Option[int]
}

// NewCommand builds a header-only command (case 1).
func NewCommand(cla, ins, p1, p2 byte) Command {
	return Command{CLA: cla, INS: ins, P1: p1, P2: p2}
}

// WithData returns a copy of the command carrying the given payload.
func (c Command) WithData(data []byte) Command {
	c.Data = data
	return c
}

// WithLe returns a copy of the command expecting le response bytes.
func (c Command) WithLe(le int) Command {
	c.Le = mo.Some(le)
	return c
}

func (c Command) needsExtended() bool {
	return len(c.Data) > 255 || c.Le.OrElse(0) > 256
}

// Encode serializes the command, choosing between short and extended
// framing. Short Le of 256 is encoded as 0x00 per the standard;
// extended Le of 65536 likewise wraps to 0x0000.
func (c Command) Encode() []byte {
	out := []byte{c.CLA, c.INS, c.P1, c.P2}

	if !c.needsExtended() {
		if len(c.Data) > 0 {
			out = append(out, byte(len(c.Data)))
			out = append(out, c.Data...)
		}
		if le, ok := c.Le.Get(); ok {
			out = append(out, byte(le)) // 256 -> 0x00
		}
		return out
	}

	out = append(out, 0x00) // extended-length marker
	if len(c.Data) > 0 {
		out = binary.BigEndian.AppendUint16(out, uint16(len(c.Data)))
		out = append(out, c.Data...)
	}
	if le, ok := c.Le.Get(); ok {
		out = binary.BigEndian.AppendUint16(out, uint16(le)) // 65536 -> 0x0000
	}
	return out
}

// Response is a parsed response APDU.
type Response struct {
	Data []byte
	SW1  byte
	SW2  byte
}

// SW returns the status word as a single 16-bit value.
func (r Response) SW() uint16 {
	return uint16(r.SW1)<<8 | uint16(r.SW2)
}

// Decode splits a raw response into payload and status word. Responses
// shorter than the two status bytes are rejected.
func Decode(raw []byte) (Response, error) {
	if len(raw) < 2 {
		return Response{}, &IncompleteResponseError{Length: len(raw)}
	}
	return Response{
		Data: raw[:len(raw)-2],
		SW1:  raw[len(raw)-2],
		SW2:  raw[len(raw)-1],
	}, nil
}
