package ctap

import (
	"github.com/google/uuid"
	"github.com/ldclabs/cose/key"
)

// Command is a CTAP2 command byte.
type Command byte

const (
	AuthenticatorMakeCredential       Command = 0x01
	AuthenticatorGetAssertion         Command = 0x02
	AuthenticatorGetInfo              Command = 0x04
	AuthenticatorClientPIN            Command = 0x06
	AuthenticatorReset                Command = 0x07
	AuthenticatorCredentialManagement Command = 0x0a
	AuthenticatorSelection            Command = 0x0b
	AuthenticatorConfig               Command = 0x0d
)

type ClientPINSubCommand byte

const (
	ClientPINSubCommandGetPINRetries ClientPINSubCommand = iota + 1
	ClientPINSubCommandGetKeyAgreement
	ClientPINSubCommandSetPIN
	ClientPINSubCommandChangePIN
	ClientPINSubCommandGetPinToken
)

type CredentialManagementSubCommand byte

const (
	CredentialManagementSubCommandGetCredsMetadata CredentialManagementSubCommand = iota + 1
	CredentialManagementSubCommandEnumerateRPsBegin
	CredentialManagementSubCommandEnumerateRPsGetNextRP
	CredentialManagementSubCommandEnumerateCredentialsBegin
	CredentialManagementSubCommandEnumerateCredentialsGetNextCredential
	CredentialManagementSubCommandDeleteCredential
)

type ConfigSubCommand byte

const (
	ConfigSubCommandEnableEnterpriseAttestation ConfigSubCommand = iota + 1
	ConfigSubCommandToggleAlwaysUv
	ConfigSubCommandSetMinPINLength
)

type ClientPINRequest struct {
	PinUvAuthProtocol uint                `cbor:"1,keyasint,omitzero"`
	SubCommand        ClientPINSubCommand `cbor:"2,keyasint"`
	KeyAgreement      key.Key             `cbor:"3,keyasint,omitzero"`
	PinUvAuthParam    []byte              `cbor:"4,keyasint,omitempty"`
	NewPinEnc         []byte              `cbor:"5,keyasint,omitempty"`
	PinHashEnc        []byte              `cbor:"6,keyasint,omitempty"`
}

type ClientPINResponse struct {
	KeyAgreement    key.Key `cbor:"1,keyasint"`
	PinUvAuthToken  []byte  `cbor:"2,keyasint"`
	PinRetries      uint    `cbor:"3,keyasint"`
	PowerCycleState bool    `cbor:"4,keyasint"`
	UvRetries       uint    `cbor:"5,keyasint"`
}

type CredentialManagementRequest struct {
	SubCommand        CredentialManagementSubCommand        `cbor:"1,keyasint"`
	SubCommandParams  *CredentialManagementSubCommandParams `cbor:"2,keyasint,omitempty"`
	PinUvAuthProtocol uint                                  `cbor:"3,keyasint,omitzero"`
	PinUvAuthParam    []byte                                `cbor:"4,keyasint,omitempty"`
}

type CredentialManagementSubCommandParams struct {
	RPIDHash     []byte `cbor:"1,keyasint,omitempty"`
	CredentialID []byte `cbor:"2,keyasint,omitempty"`
}

type CredentialManagementResponse struct {
	ExistingResidentCredentialsCount     uint   `cbor:"1,keyasint"`
	MaxPossibleRemainingCredentialsCount uint   `cbor:"2,keyasint"`
	RP                                   any    `cbor:"3,keyasint"`
	RPIDHash                             []byte `cbor:"4,keyasint"`
	TotalRPs                             uint   `cbor:"5,keyasint"`
	User                                 any    `cbor:"6,keyasint"`
	CredentialID                         []byte `cbor:"7,keyasint"`
	TotalCredentials                     uint   `cbor:"9,keyasint"`
}

type ConfigRequest struct {
	SubCommand        ConfigSubCommand        `cbor:"1,keyasint"`
	SubCommandParams  *ConfigSubCommandParams `cbor:"2,keyasint,omitempty"`
	PinUvAuthProtocol uint                    `cbor:"3,keyasint,omitzero"`
	PinUvAuthParam    []byte                  `cbor:"4,keyasint,omitempty"`
}

type ConfigSubCommandParams struct {
	NewMinPINLength uint `cbor:"1,keyasint,omitempty"`
}

type GetInfoResponse struct {
	Versions           []string        `cbor:"1,keyasint"`
	Extensions         []string        `cbor:"2,keyasint"`
	AAGUID             uuid.UUID       `cbor:"3,keyasint"`
	Options            map[string]bool `cbor:"4,keyasint"`
	MaxMsgSize         uint            `cbor:"5,keyasint"`
	PinUvAuthProtocols []uint          `cbor:"6,keyasint"`
	MinPinLength       uint            `cbor:"13,keyasint"`
	FirmwareVersion    uint            `cbor:"14,keyasint"`
}
