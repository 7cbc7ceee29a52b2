package addr

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestEncodeBoundaries(t *testing.T) {
	assert.Equal(t, []byte{0x00}, Encode(0))
	assert.Equal(t, []byte{0xfe}, Encode(254))
	assert.Equal(t, []byte{0xff, 0xff, 0x00}, Encode(255))
	assert.Equal(t, []byte{0xff, 0xff, 0xff}, Encode(65535))
}

func TestDecodeRoundTrip(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		var v = rapid.Uint16().Draw(t, "v")
		enc := Encode(v)
		got, n, err := Decode(enc)
		require.NoError(t, err)
		assert.Equal(t, v, got)
		assert.Equal(t, len(enc), n)
	})
}

func TestDecodeShort(t *testing.T) {
	_, _, err := Decode(nil)
	assert.Error(t, err)
	_, _, err = Decode([]byte{0xff, 0x01})
	assert.Error(t, err)
}

func TestLBARoundTrip(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		var levels = rapid.SliceOfN(rapid.Uint16Range(0, LBALevelMax), 1, LBAMaxLevels).Draw(t, "levels")
		enc, err := EncodeLBA(levels)
		require.NoError(t, err)

		got, n, err := DecodeLBA(enc)
		require.NoError(t, err)
		assert.Equal(t, levels, got)
		assert.Equal(t, len(enc), n)
	})
}

func TestLBAMask(t *testing.T) {
	enc, err := EncodeLBA([]uint16{0, 7, 300})
	require.NoError(t, err)
	// Three levels present: mask 0b111, then 0, 7, and the extended
	// form of 300.
	assert.Equal(t, []byte{0x07, 0x00, 0x07, 0xff, 0x2c, 0x01}, enc)
}

func TestLBARejects(t *testing.T) {
	_, err := EncodeLBA(nil)
	assert.Error(t, err)
	_, err = EncodeLBA(make([]uint16, 8))
	assert.Error(t, err)
	_, err = EncodeLBA([]uint16{1000})
	assert.Error(t, err)
}

func TestLAAEncoding(t *testing.T) {
	enc, err := EncodeLAA("N7:0")
	require.NoError(t, err)
	assert.Equal(t, []byte{0x00, '$', 'N', '7', ':', '0', 0x00}, enc)
}

func TestLAARejects(t *testing.T) {
	_, err := EncodeLAA("")
	assert.Error(t, err)
	_, err = EncodeLAA("0123456789ABCDEF") // sixteen characters
	assert.Error(t, err)
}

func TestPLCAddrVariants(t *testing.T) {
	bin, err := EncodePLC(PLCBinary{Levels: []uint16{0, 7, 2}})
	require.NoError(t, err)
	assert.Equal(t, []byte{0x07, 0x00, 0x07, 0x02}, bin)

	ascii, err := EncodePLC(PLCASCII("N7:0"))
	require.NoError(t, err)
	assert.Equal(t, []byte{0x00, '$', 'N', '7', ':', '0', 0x00}, ascii)

	_, err = EncodePLC(nil)
	assert.Error(t, err)
}
