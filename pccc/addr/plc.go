package addr

import "errors"

// PLCAddr is a PLC logical address in either of its two notations.
// PLCBinary carries the numeric address levels directly; PLCASCII
// carries the '$'-prefixed text form used when programming PLCs (the
// prefix is supplied by the encoder, callers omit it).
type PLCAddr interface {
	// Encode returns the address's on-wire form.
	Encode() ([]byte, error)
}

// PLCBinary is a PLC logical binary address: up to seven levels, each
// 0-999, innermost level first.
//
// PLC-3 processors use up to six levels (data table area, context,
// section, file, structure, word); PLC-5 up to four (section, file,
// element, sub-element); PLC-5/250 up to seven.
type PLCBinary struct {
	Levels []uint16
}

// Encode returns the mask byte followed by each level's one- or
// three-byte encoded value.
func (a PLCBinary) Encode() ([]byte, error) {
	return EncodeLBA(a.Levels)
}

// PLCASCII is a PLC logical ASCII (symbolic) address, e.g. "N7:0",
// without the '$' prefix.
type PLCASCII string

// Encode returns the NUL '$' prefix, the address text, and the
// terminating NUL.
func (a PLCASCII) Encode() ([]byte, error) {
	return EncodeLAA(string(a))
}

var errNoAddr = errors.New("pccc/addr: nil PLC address")

// EncodePLC encodes a PLC logical address of either notation.
func EncodePLC(a PLCAddr) ([]byte, error) {
	if a == nil {
		return nil, errNoAddr
	}
	return a.Encode()
}
