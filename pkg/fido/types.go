package fido

import (
	"github.com/google/uuid"
	"github.com/samber/mo"
)

// DeviceInfo is the authenticator metadata reported by GetInfo.
type DeviceInfo struct {
	Versions        []string
	Extensions      []string
	AAGUID          uuid.UUID
	FirmwareVersion string
	SerialNumber    string
	PinSet          bool
	PinRetries      uint8
	Options         map[string]bool
}

// Credential is one discoverable credential resident on the
// authenticator.
type Credential struct {
	ID          []byte
	RPID        string
	UserName    string
	DisplayName string
}

// OATHType selects the one-time-password algorithm family.
type OATHType string

const (
	OATHTypeTOTP OATHType = "totp"
	OATHTypeHOTP OATHType = "hotp"
)

// OATHCredential is one stored OATH slot.
type OATHCredential struct {
	ID      string
	Issuer  string
	Account string
	Type    OATHType
	Digits  uint8
}

// OATHCredentialParams describes a new OATH credential.
type OATHCredentialParams struct {
	Secret  []byte
	Issuer  string
	Account string
	Type    OATHType
	Digits  uint8
	Period  mo.Option[uint32]
	Counter mo.Option[uint32]
}

// LEDConfig carries optional LED settings; absent fields are left
// untouched on the device.
type LEDConfig struct {
	GPIO       mo.Option[uint8]
	Brightness mo.Option[uint8]
}
