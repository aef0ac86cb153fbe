package apdu

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCommand_Encode_Case1(t *testing.T) {
	cmd := NewCommand(0x00, 0xA4, 0x04, 0x00)
	assert.Equal(t, []byte{0x00, 0xA4, 0x04, 0x00}, cmd.Encode())
}

func TestCommand_Encode_Case2Short(t *testing.T) {
	cmd := NewCommand(0x00, 0xB0, 0x00, 0x00).WithLe(255)
	assert.Equal(t, []byte{0x00, 0xB0, 0x00, 0x00, 0xFF}, cmd.Encode())
}

func TestCommand_Encode_Case2Le256(t *testing.T) {
	// le=256 fits short framing with the 0x00 sentinel
	cmd := NewCommand(0x00, 0xB0, 0x00, 0x00).WithLe(256)
	assert.Equal(t, []byte{0x00, 0xB0, 0x00, 0x00, 0x00}, cmd.Encode())
}

func TestCommand_Encode_Case3Short(t *testing.T) {
	cmd := NewCommand(0x00, 0x20, 0x00, 0x81).WithData([]byte{0x31, 0x32, 0x33, 0x34, 0x35, 0x36})
	assert.Equal(t, []byte{0x00, 0x20, 0x00, 0x81, 0x06, 0x31, 0x32, 0x33, 0x34, 0x35, 0x36}, cmd.Encode())
}

func TestCommand_Encode_Case4Short(t *testing.T) {
	cmd := NewCommand(0x00, 0xA4, 0x04, 0x00).WithData([]byte{0xE8, 0x2B}).WithLe(0)
	assert.Equal(t, []byte{0x00, 0xA4, 0x04, 0x00, 0x02, 0xE8, 0x2B, 0x00}, cmd.Encode())
}

func TestCommand_Encode_EmptyDataMeansNoData(t *testing.T) {
	cmd := NewCommand(0x00, 0x58, 0x00, 0x00).WithData([]byte{}).WithLe(0)
	assert.Equal(t, []byte{0x00, 0x58, 0x00, 0x00, 0x00}, cmd.Encode())
}

func TestCommand_Encode_ExtendedByData(t *testing.T) {
	data := bytes.Repeat([]byte{0xAB}, 256)
	cmd := NewCommand(0x80, 0xD7, 0xCC, 0x01).WithData(data)

	enc := cmd.Encode()
	require.Len(t, enc, 4+1+2+256)
	assert.Equal(t, []byte{0x80, 0xD7, 0xCC, 0x01, 0x00, 0x01, 0x00}, enc[:7])
	assert.Equal(t, data, enc[7:])
}

func TestCommand_Encode_ExtendedByLe(t *testing.T) {
	cmd := NewCommand(0x00, 0xB0, 0x00, 0x00).WithLe(500)
	assert.Equal(t, []byte{0x00, 0xB0, 0x00, 0x00, 0x00, 0x01, 0xF4}, cmd.Encode())
}

func TestCommand_Encode_ExtendedCase4(t *testing.T) {
	data := bytes.Repeat([]byte{0x11}, 300)
	cmd := NewCommand(0x80, 0x74, 0x01, 0x93).WithData(data).WithLe(65536)

	enc := cmd.Encode()
	require.Len(t, enc, 4+1+2+300+2)
	assert.Equal(t, []byte{0x80, 0x74, 0x01, 0x93, 0x00, 0x01, 0x2C}, enc[:7])
	// le=65536 wraps to 0x0000
	assert.Equal(t, []byte{0x00, 0x00}, enc[len(enc)-2:])
}

func TestCommand_Encode_Grid(t *testing.T) {
	dataSizes := []int{0, 1, 255, 256, 300}
	leValues := []int{-1, 0, 255, 256, 500} // -1 means absent

	for _, ds := range dataSizes {
		for _, le := range leValues {
			cmd := NewCommand(0x00, 0x46, 0xCC, 0x01)
			if ds > 0 {
				cmd = cmd.WithData(bytes.Repeat([]byte{0x42}, ds))
			}
			if le >= 0 {
				cmd = cmd.WithLe(le)
			}

			enc := cmd.Encode()
			extended := ds > 255 || le > 256

			if !extended {
				want := 4
				if ds > 0 {
					want += 1 + ds
				}
				if le >= 0 {
					want++
				}
				require.Len(t, enc, want, "short data=%d le=%d", ds, le)
				if ds > 0 {
					assert.Equal(t, byte(ds), enc[4])
				}
				continue
			}

			want := 5
			if ds > 0 {
				want += 2 + ds
			}
			if le >= 0 {
				want += 2
			}
			require.Len(t, enc, want, "extended data=%d le=%d", ds, le)
			assert.Equal(t, byte(0x00), enc[4])
			if ds > 0 {
				assert.Equal(t, uint16(ds), binary.BigEndian.Uint16(enc[5:7]))
			}
			if le >= 0 {
				assert.Equal(t, uint16(le), binary.BigEndian.Uint16(enc[len(enc)-2:]))
			}
		}
	}
}

func TestDecode(t *testing.T) {
	resp, err := Decode([]byte{0x01, 0x02, 0x90, 0x00})
	require.NoError(t, err)
	assert.Equal(t, []byte{0x01, 0x02}, resp.Data)
	assert.Equal(t, uint16(0x9000), resp.SW())
}

func TestDecode_StatusOnly(t *testing.T) {
	resp, err := Decode([]byte{0x63, 0xC2})
	require.NoError(t, err)
	assert.Empty(t, resp.Data)
	assert.Equal(t, byte(0x63), resp.SW1)
	assert.Equal(t, byte(0xC2), resp.SW2)
}

func TestDecode_TooShort(t *testing.T) {
	_, err := Decode([]byte{0x90})
	var incompleteErr *IncompleteResponseError
	require.ErrorAs(t, err, &incompleteErr)
	assert.Equal(t, 1, incompleteErr.Length)
}
