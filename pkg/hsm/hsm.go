// Package hsm implements the SC-HSM command layer for Pico-HSM
// tokens: PIN lifecycle, key and certificate management, DKEK backup
// and device configuration, composed from APDU exchanges over PC/SC.
package hsm

import (
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/samber/lo"

	"github.com/pico-keys/go-pico/pkg/apdu"
	"github.com/pico-keys/go-pico/pkg/options"
)

// aid is the SC-HSM application identifier selected before every
// operation.
var aid = []byte{0xE8, 0x2B, 0x06, 0x01, 0x04, 0x01, 0x81, 0xC3, 0x1F, 0x02, 0x01}

const (
	insSelect        = 0xA4
	insVerify        = 0x20
	insChangeRefData = 0x24
	insResetRetry    = 0x2C
	insGenKeyPair    = 0x46
	insGenSecretKey  = 0x48
	insInitialize    = 0x50
	insKeyDomain     = 0x52
	insEnumerate     = 0x58
	insExtras        = 0x64
	insWrapKey       = 0x72
	insUnwrapKey     = 0x74
	insReadBinary    = 0xB0
	insUpdateEF      = 0xD7
	insDeleteFile    = 0xE4
)

const (
	refUserPin = 0x81
	refSoPin   = 0x88
)

// EXTRAS (INS 0x64) sub-commands, selected by P1.
const (
	extrasMemory   = 0x05
	extrasDynOps   = 0x06
	extrasDateTime = 0x0A
	extrasPhy      = 0x1B
)

// PHY sub-targets, selected by P2.
const (
	phyLEDGPIO       = 0x01
	phyLEDBrightness = 0x02
)

// Dynamic option bits.
const (
	optPressToConfirm  = 0x01
	optKeyUsageCounter = 0x02
)

// Algorithm tags for key generation.
const (
	algRSA = 0x30
	algEC  = 0x31
	algAES = 0x32
)

// INITIALIZE TLV tags.
const (
	tagUserPin    = 0x81
	tagSoPin      = 0x82
	tagDkekShares = 0x92
)

var ecCurveBits = map[string]uint16{
	"secp256r1":       256,
	"brainpoolP256r1": 256,
	"secp384r1":       384,
	"secp521r1":       521,
}

// Module drives a single Pico-HSM token addressed by a PC/SC reader
// name. Every logical operation opens its own connection and selects
// the applet first, so concurrent operations never share a session.
type Module struct {
	logger    *slog.Logger
	connector Connector

	mu         sync.Mutex
	devicePath string
}

func NewModule(connector Connector, opts ...options.Option) *Module {
	oo := options.NewOptions(opts...)

	return &Module{
		logger:    oo.Logger,
		connector: connector,
	}
}

// SetDevicePath binds subsequent operations to the given reader name.
func (m *Module) SetDevicePath(path string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.devicePath = path
}

func (m *Module) currentPath() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.devicePath
}

// ValidatePIN checks the user PIN format (6-16 characters).
func ValidatePIN(pin string) error {
	if len(pin) < 6 || len(pin) > 16 {
		return ErrPinFormatInvalid
	}
	return nil
}

// ValidateSOPIN checks the SO-PIN format (exactly 16 hex characters,
// case-insensitive).
func ValidateSOPIN(soPin string) error {
	if len(soPin) != 16 {
		return ErrSoPinFormatInvalid
	}
	if _, err := hex.DecodeString(soPin); err != nil {
		return ErrSoPinFormatInvalid
	}
	return nil
}

func decodeSoPin(soPin string) ([]byte, error) {
	b, err := hex.DecodeString(soPin)
	if err != nil {
		return nil, ErrSoPinFormatInvalid
	}
	return b, nil
}

func (m *Module) connect() (Card, error) {
	path := m.currentPath()
	if path == "" {
		return nil, ErrNoDeviceSelected
	}
	return m.connector.Connect(path)
}

// exchange transmits one command on an open connection and maps the
// resulting status word.
func (m *Module) exchange(card Card, cmd apdu.Command) ([]byte, error) {
	raw := cmd.Encode()
	m.logger.Debug("APDU request", "hex", hex.EncodeToString(raw))

	resp, err := apdu.Transmit(card, raw)
	if err != nil {
		return nil, &CommunicationError{Message: "APDU exchange failed", Err: err}
	}
	m.logger.Debug("APDU response",
		"hex", hex.EncodeToString(resp.Data),
		"sw1", resp.SW1,
		"sw2", resp.SW2,
	)

	if err := StatusToError(resp.SW1, resp.SW2); err != nil {
		return nil, err
	}
	return resp.Data, nil
}

func (m *Module) selectApplet(card Card) ([]byte, error) {
	cmd := apdu.NewCommand(0x00, insSelect, 0x04, 0x00).WithData(aid)
	return m.exchange(card, cmd)
}

// execute runs one command against a fresh connection: connect,
// SELECT the applet, transmit, release.
func (m *Module) execute(cmd apdu.Command) ([]byte, error) {
	card, err := m.connect()
	if err != nil {
		return nil, err
	}
	defer card.Close()

	if _, err := m.selectApplet(card); err != nil {
		return nil, err
	}
	return m.exchange(card, cmd)
}

// Initialize wipes and provisions the token with a user PIN, an
// SO-PIN and the number of DKEK shares to expect.
func (m *Module) Initialize(pin, soPin string, dkekShares uint8) error {
	if err := ValidatePIN(pin); err != nil {
		return err
	}
	if err := ValidateSOPIN(soPin); err != nil {
		return err
	}
	soPinBytes, err := decodeSoPin(soPin)
	if err != nil {
		return err
	}

	data := []byte{tagUserPin, byte(len(pin))}
	data = append(data, pin...)
	data = append(data, tagSoPin, byte(len(soPinBytes)))
	data = append(data, soPinBytes...)
	data = append(data, tagDkekShares, 0x01, dkekShares)

	_, err = m.execute(apdu.NewCommand(0x80, insInitialize, 0x00, 0x00).WithData(data))
	return err
}

// VerifyPIN checks the user PIN against the token.
func (m *Module) VerifyPIN(pin string) error {
	if err := ValidatePIN(pin); err != nil {
		return err
	}

	_, err := m.execute(apdu.NewCommand(0x00, insVerify, 0x00, refUserPin).WithData([]byte(pin)))
	return err
}

// ChangePIN replaces the user PIN, authenticating with the old one.
func (m *Module) ChangePIN(oldPin, newPin string) error {
	if err := ValidatePIN(oldPin); err != nil {
		return err
	}
	if err := ValidatePIN(newPin); err != nil {
		return err
	}

	data := slices.Concat([]byte(oldPin), []byte{0x00}, []byte(newPin))
	_, err := m.execute(apdu.NewCommand(0x00, insChangeRefData, 0x00, refUserPin).WithData(data))
	return err
}

// ChangeSOPIN replaces the SO-PIN, authenticating with the old one.
func (m *Module) ChangeSOPIN(oldSoPin, newSoPin string) error {
	if err := ValidateSOPIN(oldSoPin); err != nil {
		return err
	}
	if err := ValidateSOPIN(newSoPin); err != nil {
		return err
	}
	oldBytes, err := decodeSoPin(oldSoPin)
	if err != nil {
		return err
	}
	newBytes, err := decodeSoPin(newSoPin)
	if err != nil {
		return err
	}

	data := slices.Concat(oldBytes, []byte{0x00}, newBytes)
	_, err = m.execute(apdu.NewCommand(0x00, insChangeRefData, 0x00, refSoPin).WithData(data))
	return err
}

// UnblockPIN resets the user PIN retry counter and sets a new PIN,
// authenticating with the SO-PIN.
func (m *Module) UnblockPIN(soPin, newPin string) error {
	if err := ValidateSOPIN(soPin); err != nil {
		return err
	}
	if err := ValidatePIN(newPin); err != nil {
		return err
	}
	soBytes, err := decodeSoPin(soPin)
	if err != nil {
		return err
	}

	data := slices.Concat(soBytes, []byte{0x00}, []byte(newPin))
	_, err = m.execute(apdu.NewCommand(0x00, insResetRetry, 0x00, refUserPin).WithData(data))
	return err
}

func (m *Module) enumerateObjects() ([]byte, error) {
	return m.execute(apdu.NewCommand(0x80, insEnumerate, 0x00, 0x00).WithLe(256))
}

// ListKeys enumerates token-resident key objects. Enumeration yields
// only (namespace prefix, id) pairs, so type details are limited to
// what the prefix implies.
func (m *Module) ListKeys(pin string) ([]KeyInfo, error) {
	if err := ValidatePIN(pin); err != nil {
		return nil, err
	}
	if err := m.VerifyPIN(pin); err != nil {
		return nil, err
	}

	data, err := m.enumerateObjects()
	if err != nil {
		return nil, err
	}

	var keys []KeyInfo
	for _, pair := range lo.Chunk(data, 2) {
		if len(pair) < 2 {
			break
		}
		prefix, id := pair[0], pair[1]
		if prefix != fidPrivateKey && prefix != fidPublicKey && prefix != fidSecretKey {
			continue
		}

		keyType := KeyTypeEC
		curve := "unknown"
		if prefix == fidSecretKey {
			keyType = KeyTypeAES
			curve = ""
		}
		keys = append(keys, KeyInfo{
			KeyRef: id,
			ID:     id,
			Label:  fmt.Sprintf("Key-%d", id),
			Type:   keyType,
			Curve:  curve,
		})
	}
	return keys, nil
}

// GenerateRSAKey generates an RSA key pair of 1024, 2048, 3072 or
// 4096 bits.
func (m *Module) GenerateRSAKey(pin string, bits uint16, id uint8, label string) (KeyInfo, error) {
	if err := ValidatePIN(pin); err != nil {
		return KeyInfo{}, err
	}
	switch bits {
	case 1024, 2048, 3072, 4096:
	default:
		return KeyInfo{}, ErrNotSupported
	}
	if err := m.VerifyPIN(pin); err != nil {
		return KeyInfo{}, err
	}

	data := []byte{algRSA}
	data = binary.BigEndian.AppendUint16(data, bits)
	data = append(data, label...)

	if _, err := m.execute(apdu.NewCommand(0x00, insGenKeyPair, id, 0x00).WithData(data)); err != nil {
		return KeyInfo{}, err
	}

	return KeyInfo{
		KeyRef: id,
		ID:     id,
		Label:  label,
		Type:   KeyTypeRSA,
		Size:   bits,
		Usage:  []string{"sign", "decrypt"},
	}, nil
}

// GenerateECKey generates an EC key pair on one of the supported
// named curves.
func (m *Module) GenerateECKey(pin, curve string, id uint8, label string) (KeyInfo, error) {
	if err := ValidatePIN(pin); err != nil {
		return KeyInfo{}, err
	}
	bits, ok := ecCurveBits[curve]
	if !ok {
		return KeyInfo{}, ErrNotSupported
	}
	if err := m.VerifyPIN(pin); err != nil {
		return KeyInfo{}, err
	}

	data := []byte{algEC}
	data = append(data, curve...)
	data = append(data, 0x00)
	data = append(data, label...)

	if _, err := m.execute(apdu.NewCommand(0x00, insGenKeyPair, id, 0x00).WithData(data)); err != nil {
		return KeyInfo{}, err
	}

	return KeyInfo{
		KeyRef: id,
		ID:     id,
		Label:  label,
		Type:   KeyTypeEC,
		Curve:  curve,
		Size:   bits,
		Usage:  []string{"sign", "derive"},
	}, nil
}

// GenerateAESKey generates a secret key of 128, 192 or 256 bits.
func (m *Module) GenerateAESKey(pin string, bits uint16, id uint8) (KeyInfo, error) {
	if err := ValidatePIN(pin); err != nil {
		return KeyInfo{}, err
	}
	switch bits {
	case 128, 192, 256:
	default:
		return KeyInfo{}, ErrNotSupported
	}
	if err := m.VerifyPIN(pin); err != nil {
		return KeyInfo{}, err
	}

	data := []byte{algAES}
	data = binary.BigEndian.AppendUint16(data, bits)

	if _, err := m.execute(apdu.NewCommand(0x00, insGenSecretKey, id, 0x00).WithData(data)); err != nil {
		return KeyInfo{}, err
	}

	return KeyInfo{
		KeyRef: id,
		ID:     id,
		Type:   KeyTypeAES,
		Size:   bits,
		Usage:  []string{"encrypt", "decrypt"},
	}, nil
}

// DeleteKey removes a key or certificate object addressed by its
// namespace and id.
func (m *Module) DeleteKey(pin string, id uint8, objectType ObjectType) error {
	if err := ValidatePIN(pin); err != nil {
		return err
	}
	if err := m.VerifyPIN(pin); err != nil {
		return err
	}

	_, err := m.execute(apdu.NewCommand(0x00, insDeleteFile, objectType.fidPrefix(), id))
	return err
}

// ListCertificates enumerates certificate objects (EE and CA
// namespaces).
func (m *Module) ListCertificates(pin string) ([]CertInfo, error) {
	if err := ValidatePIN(pin); err != nil {
		return nil, err
	}
	if err := m.VerifyPIN(pin); err != nil {
		return nil, err
	}

	data, err := m.enumerateObjects()
	if err != nil {
		return nil, err
	}

	var certs []CertInfo
	for _, pair := range lo.Chunk(data, 2) {
		if len(pair) < 2 {
			break
		}
		prefix, id := pair[0], pair[1]
		if prefix != fidEECert && prefix != fidCACert {
			continue
		}
		certs = append(certs, CertInfo{
			ID:    id,
			Label: fmt.Sprintf("Certificate-%d", id),
		})
	}
	return certs, nil
}

// ImportCertificate writes certificate data into the EE certificate
// EF for the given id.
func (m *Module) ImportCertificate(pin string, id uint8, certData []byte) error {
	if err := ValidatePIN(pin); err != nil {
		return err
	}
	if len(certData) == 0 {
		return ErrEmptyCertificate
	}
	if err := m.VerifyPIN(pin); err != nil {
		return err
	}

	_, err := m.execute(apdu.NewCommand(0x00, insUpdateEF, fidEECert, id).WithData(certData))
	return err
}

// ExportCertificate reads the EE certificate EF for the given id.
func (m *Module) ExportCertificate(id uint8) ([]byte, error) {
	data, err := m.execute(apdu.NewCommand(0x00, insReadBinary, fidEECert, id).WithLe(256))
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, &CertificateNotFoundError{ID: id}
	}
	return data, nil
}

// CreateDKEKShare exports a password-protected DKEK share blob.
func (m *Module) CreateDKEKShare(password string) ([]byte, error) {
	if password == "" {
		return nil, ErrEmptyDkekPassword
	}

	return m.execute(apdu.NewCommand(0x80, insKeyDomain, 0x00, 0x92).
		WithData([]byte(password)).
		WithLe(256))
}

// ImportDKEKShare feeds one share of a previously exported DKEK back
// into the token.
func (m *Module) ImportDKEKShare(shareData []byte, password string) (DkekStatus, error) {
	if len(shareData) == 0 {
		return DkekStatus{}, ErrEmptyDkekShare
	}
	if password == "" {
		return DkekStatus{}, ErrEmptyDkekPassword
	}

	data := slices.Concat(shareData, []byte{0x00}, []byte(password))
	if _, err := m.execute(apdu.NewCommand(0x80, insKeyDomain, 0x00, 0x93).
		WithData(data).
		WithLe(256)); err != nil {
		return DkekStatus{}, err
	}
	return DkekStatus{}, nil
}

// WrapKey exports a key wrapped under the DKEK.
func (m *Module) WrapKey(pin string, keyRef uint8) ([]byte, error) {
	if err := ValidatePIN(pin); err != nil {
		return nil, err
	}
	if err := m.VerifyPIN(pin); err != nil {
		return nil, err
	}

	return m.execute(apdu.NewCommand(0x80, insWrapKey, keyRef, 0x92).WithLe(256))
}

// UnwrapKey imports a DKEK-wrapped key blob into the given key slot.
func (m *Module) UnwrapKey(pin string, keyRef uint8, wrapped []byte) error {
	if err := ValidatePIN(pin); err != nil {
		return err
	}
	if len(wrapped) == 0 {
		return ErrEmptyWrappedKey
	}
	if err := m.VerifyPIN(pin); err != nil {
		return err
	}

	_, err := m.execute(apdu.NewCommand(0x80, insUnwrapKey, keyRef, 0x93).WithData(wrapped))
	return err
}

// GetOptions reads the token's dynamic option flags.
func (m *Module) GetOptions() (Options, error) {
	data, err := m.execute(apdu.NewCommand(0x80, insExtras, extrasDynOps, 0x00).WithLe(256))
	if err != nil {
		return Options{}, err
	}

	var opts uint16
	if len(data) >= 2 {
		opts = binary.BigEndian.Uint16(data)
	}
	return Options{
		PressToConfirm:  opts&optPressToConfirm != 0,
		KeyUsageCounter: opts&optKeyUsageCounter != 0,
	}, nil
}

// SetOption flips one dynamic option flag, preserving the others.
func (m *Module) SetOption(option OptionType, enabled bool) error {
	current, err := m.GetOptions()
	if err != nil {
		return err
	}

	var opts byte
	if current.PressToConfirm {
		opts |= optPressToConfirm
	}
	if current.KeyUsageCounter {
		opts |= optKeyUsageCounter
	}

	var bit byte
	switch option {
	case OptionPressToConfirm:
		bit = optPressToConfirm
	case OptionKeyUsageCounter:
		bit = optKeyUsageCounter
	}
	if enabled {
		opts |= bit
	} else {
		opts &^= bit
	}

	_, err = m.execute(apdu.NewCommand(0x80, insExtras, extrasDynOps, 0x00).WithData([]byte{opts}))
	return err
}

// SetDateTime syncs the host clock to the token RTC. The payload is
// year(2, BE) + month + day + weekday(Sunday=0) + hour + min + sec.
func (m *Module) SetDateTime() error {
	now := time.Now()

	data := binary.BigEndian.AppendUint16(nil, uint16(now.Year()))
	data = append(data,
		byte(now.Month()),
		byte(now.Day()),
		byte(now.Weekday()),
		byte(now.Hour()),
		byte(now.Minute()),
		byte(now.Second()),
	)

	_, err := m.execute(apdu.NewCommand(0x80, insExtras, extrasDateTime, 0x00).WithData(data))
	return err
}

// GetDeviceInfo assembles firmware version and memory statistics. The
// version comes from the SELECT FCI when present, falling back to an
// INITIALIZE metadata query; statistics failures degrade to zeros
// instead of failing the whole call.
func (m *Module) GetDeviceInfo() (DeviceInfo, error) {
	card, err := m.connect()
	if err != nil {
		return DeviceInfo{}, err
	}
	selectData, err := m.selectApplet(card)
	card.Close()
	if err != nil {
		return DeviceInfo{}, err
	}

	version, _ := parseVersionFromSelect(selectData)
	if version == "unknown" {
		// INITIALIZE with no data answers heap(4) + 0x00 + major + minor.
		if data, err := m.execute(apdu.NewCommand(0x80, insInitialize, 0x00, 0x00).WithLe(256)); err == nil && len(data) >= 7 {
			version = fmt.Sprintf("%d.%d", data[5], data[6])
		}
	}

	info := DeviceInfo{FirmwareVersion: version}
	if mem, err := m.execute(apdu.NewCommand(0x80, insExtras, extrasMemory, 0x00).WithLe(256)); err == nil && len(mem) >= 16 {
		info.FreeMemory = uint64(binary.BigEndian.Uint32(mem[0:4]))
		info.UsedMemory = uint64(binary.BigEndian.Uint32(mem[4:8]))
		info.TotalMemory = uint64(binary.BigEndian.Uint32(mem[8:12]))
		info.FileCount = binary.BigEndian.Uint32(mem[12:16])
	}
	return info, nil
}

// EnableSecureLock is not supported: the secure lock requires an ECDH
// session establishment flow this layer does not implement.
func (m *Module) EnableSecureLock() error {
	return ErrNotSupported
}

// DisableSecureLock is not supported, see EnableSecureLock.
func (m *Module) DisableSecureLock() error {
	return ErrNotSupported
}

// SetLEDConfig writes the physical LED settings that are present in
// the config.
func (m *Module) SetLEDConfig(config LEDConfig) error {
	if gpio, ok := config.GPIO.Get(); ok {
		if _, err := m.execute(apdu.NewCommand(0x80, insExtras, extrasPhy, phyLEDGPIO).
			WithData([]byte{gpio})); err != nil {
			return err
		}
	}
	if brightness, ok := config.Brightness.Get(); ok {
		if _, err := m.execute(apdu.NewCommand(0x80, insExtras, extrasPhy, phyLEDBrightness).
			WithData([]byte{brightness})); err != nil {
			return err
		}
	}
	return nil
}

// parseVersionFromSelect scans FCI data for the proprietary tag 0x85
// whose payload is options(2, BE) + 0xFF + major + minor.
func parseVersionFromSelect(data []byte) (string, uint16) {
	for i := 0; i+1 < len(data); i++ {
		if data[i] != 0x85 {
			continue
		}
		length := int(data[i+1])
		if length >= 5 && i+2+length <= len(data) {
			payload := data[i+2 : i+2+length]
			opts := binary.BigEndian.Uint16(payload[0:2])
			return fmt.Sprintf("%d.%d", payload[3], payload[4]), opts
		}
	}
	return "unknown", 0
}
