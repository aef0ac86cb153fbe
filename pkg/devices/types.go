package devices

// Type classifies a discovered token by the protocol it speaks.
type Type string

const (
	FidoToken Type = "fido"
	HsmToken  Type = "hsm"
)

// Descriptor identifies one discovered device. Path is the
// transport-specific address (HID device path or PC/SC reader name)
// and is the unique key for comparison and lookup. Descriptors are
// produced fresh on every scan and never mutated.
type Descriptor struct {
	Type            Type
	Serial          string
	FirmwareVersion string
	Path            string
}
