// Package data implements the PCCC data-table codecs: the controller
// file types, the per-type element encoders and decoders used by the
// protected typed logical read/write commands, and the type/size
// parameter encoding used by structured transfers.
package data

import (
	"errors"
	"fmt"
	"math"

	"github.com/jvalenzuela/df1d/internal/buf"
)

// FileType identifies the kind of data-table file being transferred.
type FileType int

const (
	FTStat FileType = iota
	FTBin
	FTTimer
	FTCount
	FTCtl
	FTInt
	FTFloat
	FTOut
	FTIn
	FTStr
	FTASC
	FTBCD
)

// Wire sizes per element. These are the number of bytes a single element
// occupies in a message, not the size of the host representation.
const (
	SizeInt   = 2
	SizeBin   = 2
	SizeStat  = 2
	SizeFloat = 4
	SizeTimer = 6
	SizeCount = 6
	SizeCtl   = 6
	SizeStr   = 84
)

func (ft FileType) String() string {
	switch ft {
	case FTStat:
		return "status"
	case FTBin:
		return "binary"
	case FTTimer:
		return "timer"
	case FTCount:
		return "counter"
	case FTCtl:
		return "control"
	case FTInt:
		return "integer"
	case FTFloat:
		return "float"
	case FTOut:
		return "output"
	case FTIn:
		return "input"
	case FTStr:
		return "string"
	case FTASC:
		return "ascii"
	case FTBCD:
		return "bcd"
	default:
		return fmt.Sprintf("FileType(%d)", int(ft))
	}
}

// WireSize returns the number of bytes one element of this type occupies
// in a message, or zero if the type cannot be transferred by the typed
// logical commands.
func (ft FileType) WireSize() int {
	switch ft {
	case FTInt:
		return SizeInt
	case FTBin:
		return SizeBin
	case FTStat:
		return SizeStat
	case FTFloat:
		return SizeFloat
	case FTTimer:
		return SizeTimer
	case FTCount:
		return SizeCount
	case FTCtl:
		return SizeCtl
	case FTStr:
		return SizeStr
	}
	return 0
}

// TypeByte returns the on-wire file-type byte for this type as used by
// the protected typed logical commands, or zero if unsupported.
func (ft FileType) TypeByte() byte {
	switch ft {
	case FTStat:
		return 0x84
	case FTBin:
		return 0x85
	case FTTimer:
		return 0x86
	case FTCount:
		return 0x87
	case FTCtl:
		return 0x88
	case FTInt:
		return 0x89
	case FTFloat:
		return 0x8a
	case FTStr:
		return 0x8d
	}
	return 0
}

// FileTypeFromByte maps an on-wire file-type byte back to a FileType,
// covering the full SLC file-info table.
func FileTypeFromByte(b byte) (FileType, bool) {
	switch b {
	case 0x82:
		return FTOut, true
	case 0x83:
		return FTIn, true
	case 0x84:
		return FTStat, true
	case 0x85:
		return FTBin, true
	case 0x86:
		return FTTimer, true
	case 0x87:
		return FTCount, true
	case 0x88:
		return FTCtl, true
	case 0x89:
		return FTInt, true
	case 0x8a:
		return FTFloat, true
	case 0x8d:
		return FTStr, true
	case 0x8e:
		return FTASC, true
	case 0x8f:
		return FTBCD, true
	}
	return 0, false
}

// TimeBase selects a timer's tick period.
type TimeBase int

const (
	TB1   TimeBase = iota // seconds
	TB100                 // 1/100 seconds
)

// Timer is a 'T' file element.
type Timer struct {
	Pre  int16
	Acc  int16
	Base TimeBase
	EN   bool // enabled
	TT   bool // timing
	DN   bool // done
}

// Counter is a 'C' file element.
type Counter struct {
	Pre int16
	Acc int16
	CU  bool // count up enable
	CD  bool // count down enable
	DN  bool // done
	OV  bool // count up overflow
	UN  bool // count down underflow
	UA  bool // update accumulator
}

// Control is an 'R' file element.
type Control struct {
	Pos int16
	Len int16
	EN  bool // enable
	EU  bool // enable unload
	DN  bool // done
	EM  bool // empty
	ER  bool // error
	UL  bool
	IN  bool // inhibit
	FD  bool // found
}

// StrMaxLen is the maximum number of characters a string element holds.
const StrMaxLen = 82

// String is an 'ST' file element. Len is carried on the wire separately
// from the text; on write, Text beyond Len characters is never sent, and
// on read the decoded Text is truncated to the received Len.
type String struct {
	Len  int
	Text string
}

// Bit positions for the boolean members of structured element types.
const (
	bitTmrEN = 0x8000
	bitTmrTT = 0x4000
	bitTmrDN = 0x2000
	bitTmrTB = 0x0200

	bitCntCU = 0x8000
	bitCntCD = 0x4000
	bitCntDN = 0x2000
	bitCntOV = 0x1000
	bitCntUN = 0x0800
	bitCntUA = 0x0400

	bitCtlEN = 0x8000
	bitCtlEU = 0x4000
	bitCtlDN = 0x2000
	bitCtlEM = 0x1000
	bitCtlER = 0x0800
	bitCtlUL = 0x0400
	bitCtlIN = 0x0200
	bitCtlFD = 0x0100
)

var (
	// ErrType is returned when the supplied element slice does not
	// match the stated file type.
	ErrType = errors.New("data: element type does not match file type")
	// ErrShort is returned when a reply ends before the expected
	// element data could be decoded.
	ErrShort = errors.New("data: unexpected end of buffer")
)

// ElemCount validates that elems is the slice type matching ft and
// returns its length.
func ElemCount(ft FileType, elems any) (int, error) {
	switch ft {
	case FTInt:
		if v, ok := elems.([]int16); ok {
			return len(v), nil
		}
	case FTBin, FTStat:
		if v, ok := elems.([]uint16); ok {
			return len(v), nil
		}
	case FTTimer:
		if v, ok := elems.([]Timer); ok {
			return len(v), nil
		}
	case FTCount:
		if v, ok := elems.([]Counter); ok {
			return len(v), nil
		}
	case FTCtl:
		if v, ok := elems.([]Control); ok {
			return len(v), nil
		}
	case FTFloat:
		if v, ok := elems.([]float32); ok {
			return len(v), nil
		}
	case FTStr:
		if v, ok := elems.([]String); ok {
			return len(v), nil
		}
	default:
		return 0, fmt.Errorf("data: file type %v not transferable", ft)
	}
	return 0, fmt.Errorf("%w: want %v elements, got %T", ErrType, ft, elems)
}

// EncodeArray appends every element of elems to dst in link byte order.
// elems must be the slice type matching ft (see ElemCount).
func EncodeArray(dst *buf.Buf, ft FileType, elems any) error {
	switch ft {
	case FTInt:
		for _, v := range elems.([]int16) {
			if err := dst.AppendU16LE(uint16(v)); err != nil {
				return err
			}
		}
	case FTBin, FTStat:
		for _, v := range elems.([]uint16) {
			if err := dst.AppendU16LE(v); err != nil {
				return err
			}
		}
	case FTTimer:
		s := elems.([]Timer)
		for i := range s {
			if err := encTimer(dst, &s[i]); err != nil {
				return err
			}
		}
	case FTCount:
		s := elems.([]Counter)
		for i := range s {
			if err := encCounter(dst, &s[i]); err != nil {
				return err
			}
		}
	case FTCtl:
		s := elems.([]Control)
		for i := range s {
			if err := encControl(dst, &s[i]); err != nil {
				return err
			}
		}
	case FTFloat:
		for _, v := range elems.([]float32) {
			if err := dst.AppendU32LE(math.Float32bits(v)); err != nil {
				return err
			}
		}
	case FTStr:
		s := elems.([]String)
		for i := range s {
			if err := encString(dst, &s[i]); err != nil {
				return err
			}
		}
	default:
		return fmt.Errorf("data: file type %v not transferable", ft)
	}
	return nil
}

// DecodeArray reads len-of-slice elements from src's read cursor into
// elems, the inverse of EncodeArray.
func DecodeArray(src *buf.Buf, ft FileType, elems any) error {
	switch ft {
	case FTInt:
		s := elems.([]int16)
		for i := range s {
			v, err := src.GetU16LE()
			if err != nil {
				return ErrShort
			}
			s[i] = int16(v)
		}
	case FTBin, FTStat:
		s := elems.([]uint16)
		for i := range s {
			v, err := src.GetU16LE()
			if err != nil {
				return ErrShort
			}
			s[i] = v
		}
	case FTTimer:
		s := elems.([]Timer)
		for i := range s {
			if err := decTimer(src, &s[i]); err != nil {
				return err
			}
		}
	case FTCount:
		s := elems.([]Counter)
		for i := range s {
			if err := decCounter(src, &s[i]); err != nil {
				return err
			}
		}
	case FTCtl:
		s := elems.([]Control)
		for i := range s {
			if err := decControl(src, &s[i]); err != nil {
				return err
			}
		}
	case FTFloat:
		s := elems.([]float32)
		for i := range s {
			v, err := src.GetU32LE()
			if err != nil {
				return ErrShort
			}
			s[i] = math.Float32frombits(v)
		}
	case FTStr:
		s := elems.([]String)
		for i := range s {
			if err := decString(src, &s[i]); err != nil {
				return err
			}
		}
	default:
		return fmt.Errorf("data: file type %v not transferable", ft)
	}
	return nil
}

func encTimer(dst *buf.Buf, t *Timer) error {
	var bits uint16
	if t.EN {
		bits |= bitTmrEN
	}
	if t.TT {
		bits |= bitTmrTT
	}
	if t.DN {
		bits |= bitTmrDN
	}
	if t.Base == TB1 {
		bits |= bitTmrTB
	}
	if err := dst.AppendU16LE(bits); err != nil {
		return err
	}
	if err := dst.AppendU16LE(uint16(t.Pre)); err != nil {
		return err
	}
	return dst.AppendU16LE(uint16(t.Acc))
}

func decTimer(src *buf.Buf, t *Timer) error {
	bits, err := src.GetU16LE()
	if err != nil {
		return ErrShort
	}
	t.EN = bits&bitTmrEN != 0
	t.TT = bits&bitTmrTT != 0
	t.DN = bits&bitTmrDN != 0
	if bits&bitTmrTB != 0 {
		t.Base = TB1
	} else {
		t.Base = TB100
	}
	pre, err := src.GetU16LE()
	if err != nil {
		return ErrShort
	}
	t.Pre = int16(pre)
	acc, err := src.GetU16LE()
	if err != nil {
		return ErrShort
	}
	t.Acc = int16(acc)
	return nil
}

func encCounter(dst *buf.Buf, c *Counter) error {
	var bits uint16
	if c.CU {
		bits |= bitCntCU
	}
	if c.CD {
		bits |= bitCntCD
	}
	if c.DN {
		bits |= bitCntDN
	}
	if c.OV {
		bits |= bitCntOV
	}
	if c.UN {
		bits |= bitCntUN
	}
	if c.UA {
		bits |= bitCntUA
	}
	if err := dst.AppendU16LE(bits); err != nil {
		return err
	}
	if err := dst.AppendU16LE(uint16(c.Pre)); err != nil {
		return err
	}
	return dst.AppendU16LE(uint16(c.Acc))
}

func decCounter(src *buf.Buf, c *Counter) error {
	bits, err := src.GetU16LE()
	if err != nil {
		return ErrShort
	}
	c.CU = bits&bitCntCU != 0
	c.CD = bits&bitCntCD != 0
	c.DN = bits&bitCntDN != 0
	c.OV = bits&bitCntOV != 0
	c.UN = bits&bitCntUN != 0
	c.UA = bits&bitCntUA != 0
	pre, err := src.GetU16LE()
	if err != nil {
		return ErrShort
	}
	c.Pre = int16(pre)
	acc, err := src.GetU16LE()
	if err != nil {
		return ErrShort
	}
	c.Acc = int16(acc)
	return nil
}

func encControl(dst *buf.Buf, c *Control) error {
	var bits uint16
	if c.EN {
		bits |= bitCtlEN
	}
	if c.EU {
		bits |= bitCtlEU
	}
	if c.DN {
		bits |= bitCtlDN
	}
	if c.EM {
		bits |= bitCtlEM
	}
	if c.ER {
		bits |= bitCtlER
	}
	if c.UL {
		bits |= bitCtlUL
	}
	if c.IN {
		bits |= bitCtlIN
	}
	if c.FD {
		bits |= bitCtlFD
	}
	if err := dst.AppendU16LE(bits); err != nil {
		return err
	}
	if err := dst.AppendU16LE(uint16(c.Len)); err != nil {
		return err
	}
	return dst.AppendU16LE(uint16(c.Pos))
}

func decControl(src *buf.Buf, c *Control) error {
	bits, err := src.GetU16LE()
	if err != nil {
		return ErrShort
	}
	c.EN = bits&bitCtlEN != 0
	c.EU = bits&bitCtlEU != 0
	c.DN = bits&bitCtlDN != 0
	c.EM = bits&bitCtlEM != 0
	c.ER = bits&bitCtlER != 0
	c.UL = bits&bitCtlUL != 0
	c.IN = bits&bitCtlIN != 0
	c.FD = bits&bitCtlFD != 0
	l, err := src.GetU16LE()
	if err != nil {
		return ErrShort
	}
	c.Len = int16(l)
	pos, err := src.GetU16LE()
	if err != nil {
		return ErrShort
	}
	c.Pos = int16(pos)
	return nil
}

// encString writes a string element: a sixteen bit length word, then the
// text with each character pair swapped, padded with zeros to the fixed
// 82-byte text area. An odd-length string's final word carries a zero in
// its first byte and the last character in its second.
func encString(dst *buf.Buf, s *String) error {
	if s.Len > StrMaxLen {
		return fmt.Errorf("data: string element length %d exceeds %d", s.Len, StrMaxLen)
	}
	if s.Len > len(s.Text) {
		return fmt.Errorf("data: string element length %d exceeds text length %d", s.Len, len(s.Text))
	}
	if err := dst.AppendU16LE(uint16(s.Len)); err != nil {
		return err
	}
	n := 0
	for i := 0; i < s.Len; i += 2 {
		if i+1 < s.Len {
			if err := dst.AppendByte(s.Text[i+1]); err != nil {
				return err
			}
			if err := dst.AppendByte(s.Text[i]); err != nil {
				return err
			}
		} else {
			// Final word of an odd-length string.
			if err := dst.AppendByte(0); err != nil {
				return err
			}
			if err := dst.AppendByte(s.Text[i]); err != nil {
				return err
			}
		}
		n += 2
	}
	for ; n < StrMaxLen; n++ {
		if err := dst.AppendByte(0); err != nil {
			return err
		}
	}
	return nil
}

func decString(src *buf.Buf, s *String) error {
	l, err := src.GetU16LE()
	if err != nil {
		return ErrShort
	}
	s.Len = int(l)
	if s.Len > StrMaxLen {
		s.Len = StrMaxLen
	}
	var wire [StrMaxLen]byte
	for i := range wire {
		b, err := src.GetByte()
		if err != nil {
			return ErrShort
		}
		wire[i] = b
	}
	// Undo the per-word swap: each pair arrives most significant
	// character first.
	var txt [StrMaxLen]byte
	for i := 0; i < StrMaxLen; i += 2 {
		txt[i] = wire[i+1]
		txt[i+1] = wire[i]
	}
	s.Text = string(txt[:s.Len])
	return nil
}
