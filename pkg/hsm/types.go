package hsm

import "github.com/samber/mo"

// KeyType names the algorithm family of a token-resident key.
type KeyType string

const (
	KeyTypeRSA KeyType = "rsa"
	KeyTypeEC  KeyType = "ec"
	KeyTypeAES KeyType = "aes"
)

// ObjectType selects the file-identifier namespace an object lives in.
type ObjectType int

const (
	ObjectPrivateKey ObjectType = iota
	ObjectPublicKey
	ObjectSecretKey
	ObjectCertificate
)

// File-identifier prefix bytes per SC-HSM namespace.
const (
	fidPrivateKey = 0xCC
	fidPublicKey  = 0xC4
	fidSecretKey  = 0xCD
	fidEECert     = 0xCE
	fidCACert     = 0xCA
)

func (t ObjectType) fidPrefix() byte {
	switch t {
	case ObjectPrivateKey:
		return fidPrivateKey
	case ObjectPublicKey:
		return fidPublicKey
	case ObjectSecretKey:
		return fidSecretKey
	default:
		return fidEECert
	}
}

// KeyInfo is a transient snapshot of a token-resident key. Enumeration
// only yields the (prefix, id) pair, so type details of listed keys
// are limited to what the namespace prefix implies.
type KeyInfo struct {
	KeyRef uint8
	ID     uint8
	Label  string
	Type   KeyType
	Curve  string
	Size   uint16
	Usage  []string
}

// CertInfo describes a certificate object by its one-byte id.
type CertInfo struct {
	ID    uint8
	Label string
	KeyID mo.Option[uint8]
}

// DkekStatus reports DKEK share custody after an import.
type DkekStatus struct {
	TotalShares     uint8
	ImportedShares  uint8
	RemainingShares uint8
	KeyCheckValue   []byte
}

// Options are the token's dynamic option flags.
type Options struct {
	PressToConfirm  bool
	KeyUsageCounter bool
}

// OptionType selects one dynamic option flag.
type OptionType int

const (
	OptionPressToConfirm OptionType = iota
	OptionKeyUsageCounter
)

// DeviceInfo is the metadata snapshot assembled by GetDeviceInfo.
// Memory counters are zero when the token does not answer the
// statistics query. The serial number is not retrievable over this
// surface and stays empty.
type DeviceInfo struct {
	FirmwareVersion string
	SerialNumber    string
	FreeMemory      uint64
	UsedMemory      uint64
	TotalMemory     uint64
	FileCount       uint32
}

// LEDConfig carries optional physical LED settings; absent fields are
// left untouched on the token.
type LEDConfig struct {
	GPIO       mo.Option[uint8]
	Brightness mo.Option[uint8]
}
