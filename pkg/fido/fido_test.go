package fido

import (
	"strings"
	"testing"

	"github.com/fxamacker/cbor/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pico-keys/go-pico/pkg/ctap"
)

// fakeTransport records requests and answers them from a script.
type fakeTransport struct {
	requests  [][]byte
	responses [][]byte
}

func (t *fakeTransport) Exchange(_ string, request []byte) ([]byte, error) {
	t.requests = append(t.requests, append([]byte(nil), request...))
	if len(t.responses) > 0 {
		resp := t.responses[0]
		t.responses = t.responses[1:]
		return resp, nil
	}
	return []byte{0x00}, nil
}

func newTestModule(transport Transport) *Module {
	m := NewModule(transport)
	m.SetDevicePath("hid-path-0")
	return m
}

func TestValidatePIN_Boundaries(t *testing.T) {
	assert.ErrorIs(t, ValidatePIN("abc"), ErrPinLengthInvalid)
	assert.NoError(t, ValidatePIN("abcd"))
	assert.NoError(t, ValidatePIN(strings.Repeat("a", 63)))
	assert.ErrorIs(t, ValidatePIN(strings.Repeat("a", 64)), ErrPinLengthInvalid)
	assert.ErrorIs(t, ValidatePIN(""), ErrPinLengthInvalid)
}

func TestValidatePIN_MeasuresBytes(t *testing.T) {
	// 4 CJK characters encode to 12 bytes
	assert.NoError(t, ValidatePIN("你好世界"))
	// 1 CJK character is 3 bytes, below the minimum
	assert.ErrorIs(t, ValidatePIN("你"), ErrPinLengthInvalid)
	// 21 CJK characters encode to 63 bytes
	assert.NoError(t, ValidatePIN(strings.Repeat("你", 21)))
	// 22 CJK characters encode to 66 bytes
	assert.ErrorIs(t, ValidatePIN(strings.Repeat("你", 22)), ErrPinLengthInvalid)
}

func TestUnimplementedTransport(t *testing.T) {
	m := newTestModule(UnimplementedTransport{})

	err := m.SetPIN("1234")
	var commErr *CommunicationError
	require.ErrorAs(t, err, &commErr)
	assert.ErrorIs(t, err, ErrNotImplemented)
}

func TestValidationPrecedesTransport(t *testing.T) {
	transport := &fakeTransport{}
	m := newTestModule(transport)

	assert.ErrorIs(t, m.SetPIN("ab"), ErrPinLengthInvalid)
	assert.ErrorIs(t, m.ChangePIN("old_pin", "ab"), ErrPinLengthInvalid)
	assert.ErrorIs(t, m.DeleteCredential("1234", nil), ErrEmptyCredentialID)
	assert.ErrorIs(t, m.SetMinPINLength("ab", 6), ErrPinLengthInvalid)
	assert.ErrorIs(t, m.SetMinPINLength("1234", 3), ErrPinLengthInvalid)
	assert.ErrorIs(t, m.SetMinPINLength("1234", 64), ErrPinLengthInvalid)
	assert.Empty(t, transport.requests)
}

func TestNoDeviceSelected(t *testing.T) {
	m := NewModule(&fakeTransport{})

	assert.ErrorIs(t, m.ResetDevice(), ErrNoDeviceSelected)
}

func TestGetPINRetries(t *testing.T) {
	payload, err := cbor.Marshal(ctap.ClientPINResponse{PinRetries: 7})
	require.NoError(t, err)

	transport := &fakeTransport{responses: [][]byte{append([]byte{0x00}, payload...)}}
	m := newTestModule(transport)

	retries, err := m.GetPINRetries()
	require.NoError(t, err)
	assert.Equal(t, uint8(7), retries)

	require.Len(t, transport.requests, 1)
	assert.Equal(t, byte(0x06), transport.requests[0][0])
	assert.Greater(t, len(transport.requests[0]), 1)
}

func TestGetPINRetries_ErrorStatus(t *testing.T) {
	transport := &fakeTransport{responses: [][]byte{{0x31}}}
	m := newTestModule(transport)

	_, err := m.GetPINRetries()
	var pinErr *ctap.PinInvalidError
	assert.ErrorAs(t, err, &pinErr)
}

func TestSetPIN_Success(t *testing.T) {
	transport := &fakeTransport{responses: [][]byte{{0x00}}}
	m := newTestModule(transport)

	require.NoError(t, m.SetPIN("1234"))
	require.Len(t, transport.requests, 1)
	assert.Equal(t, byte(0x06), transport.requests[0][0])
}

func TestDeleteCredential_CommandShape(t *testing.T) {
	transport := &fakeTransport{}
	m := newTestModule(transport)

	require.NoError(t, m.DeleteCredential("1234", []byte{0xAA, 0xBB}))
	require.Len(t, transport.requests, 1)
	assert.Equal(t, byte(0x0a), transport.requests[0][0])
}

func TestGetInfo(t *testing.T) {
	payload, err := cbor.Marshal(map[int]any{
		1: []string{"FIDO_2_1"},
		4: map[string]bool{"clientPin": true, "rk": true},
	})
	require.NoError(t, err)

	transport := &fakeTransport{responses: [][]byte{append([]byte{0x00}, payload...)}}
	m := newTestModule(transport)

	info, err := m.GetInfo()
	require.NoError(t, err)
	assert.Equal(t, []string{"FIDO_2_1"}, info.Versions)
	assert.True(t, info.PinSet)

	require.Len(t, transport.requests, 1)
	assert.Equal(t, []byte{0x04}, transport.requests[0])
}

func TestResetDevice_CommandShape(t *testing.T) {
	transport := &fakeTransport{}
	m := newTestModule(transport)

	require.NoError(t, m.ResetDevice())
	require.Len(t, transport.requests, 1)
	assert.Equal(t, []byte{0x07}, transport.requests[0])
}

func TestOATH_Validation(t *testing.T) {
	transport := &fakeTransport{}
	m := newTestModule(transport)

	err := m.AddOATHCredential(OATHCredentialParams{
		Account: "user@example.com", Type: OATHTypeTOTP, Digits: 6,
	})
	assert.ErrorIs(t, err, ErrEmptyOATHSecret)

	err = m.AddOATHCredential(OATHCredentialParams{
		Secret: []byte{1, 2, 3}, Type: OATHTypeTOTP, Digits: 6,
	})
	assert.ErrorIs(t, err, ErrEmptyOATHAccount)

	err = m.AddOATHCredential(OATHCredentialParams{
		Secret: []byte{1, 2, 3}, Account: "user@example.com", Type: OATHTypeTOTP, Digits: 7,
	})
	assert.ErrorIs(t, err, ErrInvalidOATHDigits)

	_, err = m.CalculateOATH("")
	assert.ErrorIs(t, err, ErrEmptyCredentialID)

	assert.ErrorIs(t, m.DeleteOATHCredential(""), ErrEmptyCredentialID)
	assert.Empty(t, transport.requests)
}

func TestAddOATHCredential_UsesSelectionEnvelope(t *testing.T) {
	transport := &fakeTransport{}
	m := newTestModule(transport)

	require.NoError(t, m.AddOATHCredential(OATHCredentialParams{
		Secret:  []byte{1, 2, 3},
		Issuer:  "Example",
		Account: "user@example.com",
		Type:    OATHTypeTOTP,
		Digits:  6,
	}))
	require.Len(t, transport.requests, 1)
	assert.Equal(t, []byte{0x0b}, transport.requests[0])
}

func TestRestoreFromWords_Validation(t *testing.T) {
	transport := &fakeTransport{}
	m := newTestModule(transport)

	words := make([]string, 24)
	for i := range words {
		words[i] = "word"
	}

	assert.ErrorIs(t, m.RestoreFromWords("ab", words), ErrPinLengthInvalid)
	assert.ErrorIs(t, m.RestoreFromWords("1234", words[:12]), ErrBackupWordCount)

	words[5] = "   "
	assert.ErrorIs(t, m.RestoreFromWords("1234", words), ErrBlankBackupWord)
	assert.Empty(t, transport.requests)

	words[5] = "word"
	require.NoError(t, m.RestoreFromWords("1234", words))
	assert.Len(t, transport.requests, 1)
}

func TestGetBackupWords_ValidatesPIN(t *testing.T) {
	transport := &fakeTransport{}
	m := newTestModule(transport)

	_, err := m.GetBackupWords("ab")
	assert.ErrorIs(t, err, ErrPinLengthInvalid)
	assert.Empty(t, transport.requests)
}
