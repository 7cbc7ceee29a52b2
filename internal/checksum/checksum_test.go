package checksum

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"pgregory.net/rapid"
)

func TestBCCIsTwosComplementOfSum(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		var in = rapid.SliceOf(rapid.Byte()).Draw(t, "in")

		c := NewBCC()
		var sum byte
		for _, b := range in {
			c.Update(b)
			sum += b
		}

		want := byte(-int(sum))
		got := c.Finalize()
		assert.Equal(t, 1, len(got))
		assert.Equal(t, want, got[0])
		assert.Equal(t, byte(0), sum+got[0], "payload sum plus BCC must wrap to zero")
		assert.True(t, c.Verify([]byte{want}))
		assert.False(t, c.Verify([]byte{want + 1}))
	})
}

func TestCRC16KnownVector(t *testing.T) {
	// CRC over the application bytes plus the trailing ETX, the way the
	// DF1 framer computes it.
	app := []byte{0x05, 0x00, 0x06, 0x00, 0x42, 0x42, 0x42}
	c := NewCRC16()
	for _, b := range app {
		c.Update(b)
	}
	c.Update(0x03)
	assert.Equal(t, []byte{0x04, 0x94}, c.Finalize(), "little-endian 0x9404")
	assert.True(t, c.Verify([]byte{0x04, 0x94}))
	assert.False(t, c.Verify([]byte{0x94, 0x04}))
}

func TestCRC16CheckValue(t *testing.T) {
	// The standard check value for this polynomial: CRC("123456789")
	// is 0xBB3D.
	c := NewCRC16()
	for _, b := range []byte("123456789") {
		c.Update(b)
	}
	assert.Equal(t, []byte{0x3d, 0xbb}, c.Finalize())
}

func TestSizes(t *testing.T) {
	assert.Equal(t, 1, NewBCC().Size())
	assert.Equal(t, 2, NewCRC16().Size())
}

func TestVerifyRejectsWrongLength(t *testing.T) {
	assert.False(t, NewBCC().Verify([]byte{0, 0}))
	assert.False(t, NewCRC16().Verify([]byte{0}))
}
