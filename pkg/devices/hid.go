package devices

import (
	"fmt"

	"github.com/sstallion/go-hid"
)

// Known vendor/product identities of Pico-FIDO tokens: the default
// firmware identity and the Nitrokey-compatible one.
var fidoIdentities = []struct {
	vid uint16
	pid uint16
}{
	{0x2E8A, 0x10FE},
	{0x20A0, 0x42B2},
}

// hidBackend discovers Pico-FIDO tokens over USB HID.
type hidBackend struct{}

func (hidBackend) scan() ([]Descriptor, error) {
	var found []Descriptor

	err := hid.Enumerate(hid.VendorIDAny, hid.ProductIDAny, func(info *hid.DeviceInfo) error {
		if !isFidoIdentity(info.VendorID, info.ProductID) {
			return nil
		}
		found = append(found, Descriptor{
			Type:            FidoToken,
			Serial:          info.SerialNbr,
			FirmwareVersion: releaseVersion(info.ReleaseNbr),
			Path:            info.Path,
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return found, nil
}

func isFidoIdentity(vid, pid uint16) bool {
	for _, id := range fidoIdentities {
		if id.vid == vid && id.pid == pid {
			return true
		}
	}
	return false
}

// releaseVersion derives a firmware version from the HID release
// number (BCD major in the high byte, minor in the low byte).
func releaseVersion(release uint16) string {
	if release == 0 {
		return "unknown"
	}
	return fmt.Sprintf("%d.%d", release>>8, release&0xFF)
}
