// Package addr implements the PCCC address encoders: the generic
// one/three-byte address element, and the PLC logical binary and
// logical ASCII addresses built from it.
package addr

import (
	"errors"
	"fmt"

	"github.com/jvalenzuela/df1d/internal/letoh"
)

// ErrOverflow is returned when an encoded address would not fit the
// caller's destination.
var ErrOverflow = errors.New("pccc/addr: destination buffer overflow")

// Encode appends the one- or three-byte encoded form of v. Values 0-254
// take one byte; 255-65535 are prefixed with 0xff and carried as a
// little-endian 16-bit word.
func Encode(v uint16) []byte {
	if v <= 254 {
		return []byte{byte(v)}
	}
	b := make([]byte, 3)
	b[0] = 0xff
	letoh.PutU16(b[1:3], v)
	return b
}

// Decode reads a one- or three-byte encoded address from the front of
// src, returning the value and the number of bytes consumed.
func Decode(src []byte) (v uint16, n int, err error) {
	if len(src) < 1 {
		return 0, 0, fmt.Errorf("pccc/addr: %w", ErrOverflow)
	}
	if src[0] != 0xff {
		return uint16(src[0]), 1, nil
	}
	if len(src) < 3 {
		return 0, 0, fmt.Errorf("pccc/addr: %w", ErrOverflow)
	}
	return letoh.U16(src[1:3]), 3, nil
}

// LBAMaxLevels is the maximum number of address levels a logical binary
// address may carry.
const LBAMaxLevels = 7

// LBALevelMax is the maximum value of a single logical binary address
// level.
const LBALevelMax = 999

// EncodeLBA encodes a PLC logical binary address: a bitmask byte
// indicating which of up to 7 levels are present, followed by each
// present level's address-encoded value. levels[0] is the least
// significant (innermost) level.
func EncodeLBA(levels []uint16) ([]byte, error) {
	if len(levels) == 0 {
		return nil, errors.New("pccc/addr: number of address levels must be non-zero")
	}
	if len(levels) > LBAMaxLevels {
		return nil, errors.New("pccc/addr: number of address levels cannot be greater than seven")
	}
	var mask byte
	for i, l := range levels {
		if l > LBALevelMax {
			return nil, fmt.Errorf("pccc/addr: level value %d exceeds %d", l, LBALevelMax)
		}
		mask |= 1 << uint(i)
	}
	out := []byte{mask}
	for _, l := range levels {
		out = append(out, Encode(l)...)
	}
	return out, nil
}

// DecodeLBA is the inverse of EncodeLBA: it reads the mask byte and each
// present level's encoded value, returning the levels in the same
// least-significant-first order EncodeLBA expects.
func DecodeLBA(src []byte) (levels []uint16, n int, err error) {
	if len(src) < 1 {
		return nil, 0, fmt.Errorf("pccc/addr: %w", ErrOverflow)
	}
	mask := src[0]
	n = 1
	for i := 0; i < 8; i++ {
		if mask&(1<<uint(i)) == 0 {
			continue
		}
		v, used, err := Decode(src[n:])
		if err != nil {
			return nil, 0, err
		}
		for len(levels) <= i {
			levels = append(levels, 0)
		}
		levels[i] = v
		n += used
	}
	return levels, n, nil
}

// LAAMaxLen is the maximum length of a PLC logical ASCII address,
// excluding the terminating NUL.
const LAAMaxLen = 15

// EncodeLAA encodes a PLC logical ASCII address: NUL, '$', the address
// text, then a terminating NUL.
func EncodeLAA(s string) ([]byte, error) {
	if len(s) == 0 {
		return nil, errors.New("pccc/addr: PLC logical ASCII address cannot be empty")
	}
	if len(s) > LAAMaxLen {
		return nil, errors.New("pccc/addr: PLC logical ASCII address too long")
	}
	out := make([]byte, 0, len(s)+3)
	out = append(out, 0, '$')
	out = append(out, s...)
	out = append(out, 0)
	return out, nil
}
