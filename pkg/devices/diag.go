package devices

import (
	"errors"
	"fmt"

	"github.com/ebfe/scard"
	"github.com/sstallion/go-hid"
)

// DebugListHID dumps every HID device visible to the host, one line
// per device, without any identity filtering.
func DebugListHID() ([]string, error) {
	var lines []string

	err := hid.Enumerate(hid.VendorIDAny, hid.ProductIDAny, func(info *hid.DeviceInfo) error {
		lines = append(lines, fmt.Sprintf("%04X:%04X %q %q serial=%q release=%04X path=%s",
			info.VendorID, info.ProductID, info.MfrStr, info.ProductStr,
			info.SerialNbr, info.ReleaseNbr, info.Path))
		return nil
	})
	if err != nil {
		return nil, err
	}
	return lines, nil
}

// DebugListReaders dumps every PC/SC reader name and, where a shared
// connection succeeds, the card's ATR.
func DebugListReaders() ([]string, error) {
	ctx, err := scard.EstablishContext()
	if err != nil {
		return nil, err
	}
	defer ctx.Release()

	readers, err := ctx.ListReaders()
	if err != nil {
		if errors.Is(err, scard.ErrNoReadersAvailable) {
			return []string{"no readers available"}, nil
		}
		return nil, err
	}

	var lines []string
	for _, reader := range readers {
		card, err := ctx.Connect(reader, scard.ShareShared, scard.ProtocolAny)
		if err != nil {
			lines = append(lines, fmt.Sprintf("%s: connect failed: %v", reader, err))
			continue
		}

		status, err := card.Status()
		_ = card.Disconnect(scard.LeaveCard)
		if err != nil {
			lines = append(lines, fmt.Sprintf("%s: status failed: %v", reader, err))
			continue
		}
		lines = append(lines, fmt.Sprintf("%s: ATR=%X", reader, status.Atr))
	}
	return lines, nil
}
