package data

import (
	"errors"
	"fmt"

	"github.com/jvalenzuela/df1d/internal/buf"
)

// tdMax bounds the type and size values of a type/data parameter: both
// must fit in seven bytes.
const tdMax = 1<<56 - 1

// ErrTDRange is returned when a type or size value exceeds the seven
// byte limit of a type/data parameter.
var ErrTDRange = errors.New("data: type/data parameter value exceeds seven bytes")

// EncodeTD appends a type/data parameter to dst. Values below eight are
// packed directly into the flag byte's nibbles; larger values set the
// extended bit and follow the flag as little-endian byte sequences whose
// lengths occupy the nibbles instead.
func EncodeTD(dst *buf.Buf, typ, size uint64) error {
	if typ > tdMax {
		return fmt.Errorf("%w: type %#x", ErrTDRange, typ)
	}
	if size > tdMax {
		return fmt.Errorf("%w: size %#x", ErrTDRange, size)
	}
	var flag byte
	var ext []byte
	if typ < 8 {
		flag = byte(typ) << 4
	} else {
		n, b := tdBytes(typ)
		flag = 0x80 | byte(n)<<4
		ext = append(ext, b...)
	}
	if size < 8 {
		flag |= byte(size)
	} else {
		n, b := tdBytes(size)
		flag |= 0x08 | byte(n)
		ext = append(ext, b...)
	}
	if err := dst.AppendByte(flag); err != nil {
		return err
	}
	return dst.AppendBlob(ext)
}

// DecodeTD reads a type/data parameter from src's read cursor,
// returning the type and size values.
func DecodeTD(src *buf.Buf) (typ, size uint64, err error) {
	flag, err := src.GetByte()
	if err != nil {
		return 0, 0, ErrShort
	}
	if flag&0x80 != 0 {
		typ, err = tdValue(src, int(flag&0x70)>>4)
		if err != nil {
			return 0, 0, err
		}
	} else {
		typ = uint64(flag&0x70) >> 4
	}
	if flag&0x08 != 0 {
		size, err = tdValue(src, int(flag&0x07))
		if err != nil {
			return 0, 0, err
		}
	} else {
		size = uint64(flag & 0x07)
	}
	return typ, size, nil
}

// tdBytes returns x as a little-endian byte sequence with no trailing
// zeros, along with its length.
func tdBytes(x uint64) (int, []byte) {
	var b []byte
	for ; x != 0; x >>= 8 {
		b = append(b, byte(x))
	}
	return len(b), b
}

func tdValue(src *buf.Buf, n int) (uint64, error) {
	var x uint64
	for i := 0; i < n; i++ {
		b, err := src.GetByte()
		if err != nil {
			return 0, ErrShort
		}
		x |= uint64(b) << (8 * i)
	}
	return x, nil
}
