package devices

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/ebfe/scard"
)

// atrMarker is the "THSM" tag a Pico-HSM card carries in the
// historical bytes of its ATR.
var atrMarker = []byte{0x54, 0x48, 0x53, 0x4D}

// pcscBackend discovers Pico-HSM tokens over PC/SC card readers.
type pcscBackend struct{}

func (pcscBackend) scan() ([]Descriptor, error) {
	ctx, err := scard.EstablishContext()
	if err != nil {
		return nil, err
	}
	defer ctx.Release()

	readers, err := ctx.ListReaders()
	if err != nil {
		if errors.Is(err, scard.ErrNoReadersAvailable) {
			return nil, nil
		}
		return nil, err
	}

	var found []Descriptor
	for _, reader := range readers {
		// Readers that refuse a shared connection are transient
		// states (in use elsewhere, stale entries), not errors.
		card, err := ctx.Connect(reader, scard.ShareShared, scard.ProtocolAny)
		if err != nil {
			continue
		}

		status, err := card.Status()
		_ = card.Disconnect(scard.LeaveCard)
		if err != nil {
			continue
		}
		if !hasHSMMarker(status.Atr) {
			continue
		}

		found = append(found, Descriptor{
			Type:            HsmToken,
			FirmwareVersion: atrVersion(status.Atr),
			Path:            reader,
		})
	}
	return found, nil
}

func hasHSMMarker(atr []byte) bool {
	return bytes.Contains(atr, atrMarker)
}

// atrVersion reads major/minor from fixed ATR offsets. The serial
// number is not carried in the ATR at all and stays empty.
func atrVersion(atr []byte) string {
	if len(atr) >= 23 {
		major, minor := atr[20], atr[21]
		if major > 0 {
			return fmt.Sprintf("%d.%d", major, minor)
		}
	}
	return "unknown"
}
