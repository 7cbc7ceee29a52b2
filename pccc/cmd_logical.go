package pccc

import (
	"fmt"

	"github.com/jvalenzuela/df1d/pccc/addr"
	"github.com/jvalenzuela/df1d/pccc/data"
)

// Mode is a processor operating mode. Each mode change command supports
// its own subset.
type Mode int

const (
	ModeProg Mode = iota
	ModeRun
	ModeTestCont   // continuous scan test
	ModeTestSingle // single scan test
	ModeTestDebug  // single step test
	ModeRemTest
	ModeRemRun
)

// SLCFileInfo describes a SLC data file: its size, element count, and
// file type. Filled in by ReadSLCFileInfo.
type SLCFileInfo struct {
	Bytes    int
	Elements int
	Type     data.FileType
}

// ptlMaxBytes caps the data transferred by one protected typed logical
// command.
const ptlMaxBytes = 236

// ptlInit assembles the common body of a protected typed logical
// read/write: byte count, file, file type, element, and (for the
// three-field functions) sub-element. elems is the typed element slice
// being read into or written from; its length fixes the transfer size.
func (c *Conn) ptlInit(notify NotifyFunc, dnode byte, elems any, fnc byte, ft data.FileType, file, element, subElement uint16) (*message, error) {
	if subElement != 0 {
		return nil, fmt.Errorf("%w: nonzero subelement values not supported", ErrParam)
	}
	n, err := data.ElemCount(ft, elems)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrParam, err)
	}
	if n == 0 {
		return nil, fmt.Errorf("%w: number of elements must be non-zero", ErrParam)
	}
	perElem := ft.WireSize()
	if perElem == 0 {
		return nil, fmt.Errorf("%w: file type %v not supported", ErrParam, ft)
	}
	bytes := perElem * n
	if bytes > ptlMaxBytes {
		return nil, fmt.Errorf("%w: too many elements, data type allows %d max", ErrParam, ptlMaxBytes/perElem)
	}
	// Write functions don't use a reply handler.
	var reply replyFunc
	if fnc == 0xa1 || fnc == 0xa2 {
		reply = replyProtectedTypedLogicalRead
	}
	m, err := c.cmdInit(notify, reply, dnode, elems, 0x0f, fnc)
	if err != nil {
		return nil, err
	}
	overflow := m.buf.AppendByte(byte(bytes)) != nil ||
		m.buf.AppendBlob(addr.Encode(file)) != nil ||
		m.buf.AppendByte(ft.TypeByte()) != nil ||
		m.buf.AppendBlob(addr.Encode(element)) != nil
	// Only the three-address-field functions carry the sub-element.
	if fnc == 0xa2 || fnc == 0xaa || fnc == 0xab {
		overflow = overflow || m.buf.AppendBlob(addr.Encode(subElement)) != nil
	}
	if overflow {
		m.flush()
		return nil, ErrOverflow
	}
	m.elements = n
	m.bytes = bytes
	m.fileType = ft
	return m, nil
}

// ProtectedTypedLogicalRead2AddressFields reads data-table elements
// from a SLC 500 processor addressed by file and element. elems must be
// the slice type matching ft ([]int16 for FTInt, []data.Timer for
// FTTimer, and so on); the reply is decoded into it.
func (c *Conn) ProtectedTypedLogicalRead2AddressFields(notify NotifyFunc, dnode byte, elems any, ft data.FileType, file, element uint16) error {
	m, err := c.ptlInit(notify, dnode, elems, 0xa1, ft, file, element, 0)
	if err != nil {
		return err
	}
	return c.cmdSend(m)
}

// ProtectedTypedLogicalRead3AddressFields is the three-address-field
// form of the typed logical read, carrying a sub-element field.
// Non-zero sub-elements are not currently supported.
func (c *Conn) ProtectedTypedLogicalRead3AddressFields(notify NotifyFunc, dnode byte, elems any, ft data.FileType, file, element, subElement uint16) error {
	m, err := c.ptlInit(notify, dnode, elems, 0xa2, ft, file, element, subElement)
	if err != nil {
		return err
	}
	return c.cmdSend(m)
}

// ProtectedTypedLogicalWrite2AddressFields writes data-table elements
// to a SLC 500 processor addressed by file and element.
func (c *Conn) ProtectedTypedLogicalWrite2AddressFields(notify NotifyFunc, dnode byte, elems any, ft data.FileType, file, element uint16) error {
	m, err := c.ptlInit(notify, dnode, elems, 0xa9, ft, file, element, 0)
	if err != nil {
		return err
	}
	if err := data.EncodeArray(m.buf, ft, elems); err != nil {
		m.flush()
		return fmt.Errorf("%w: %v", ErrOverflow, err)
	}
	return c.cmdSend(m)
}

// ProtectedTypedLogicalWrite3AddressFields is the three-address-field
// form of the typed logical write.
func (c *Conn) ProtectedTypedLogicalWrite3AddressFields(notify NotifyFunc, dnode byte, elems any, ft data.FileType, file, element, subElement uint16) error {
	m, err := c.ptlInit(notify, dnode, elems, 0xaa, ft, file, element, subElement)
	if err != nil {
		return err
	}
	if err := data.EncodeArray(m.buf, ft, elems); err != nil {
		m.flush()
		return fmt.Errorf("%w: %v", ErrOverflow, err)
	}
	return c.cmdSend(m)
}

// ProtectedTypedLogicalWriteWithMask writes bit data through a mask:
// only bit positions set in mask are modified in the destination. The
// mask applies to every element. Only the word-sized file types are
// supported.
func (c *Conn) ProtectedTypedLogicalWriteWithMask(notify NotifyFunc, dnode byte, elems any, mask uint16, ft data.FileType, file, element, subElement uint16) error {
	switch ft {
	case data.FTInt, data.FTBin, data.FTStat:
	default:
		return fmt.Errorf("%w: file type %v not supported", ErrParam, ft)
	}
	m, err := c.ptlInit(notify, dnode, elems, 0xab, ft, file, element, subElement)
	if err != nil {
		return err
	}
	if err := m.buf.AppendU16LE(mask); err != nil {
		m.flush()
		return ErrOverflow
	}
	if err := data.EncodeArray(m.buf, ft, elems); err != nil {
		m.flush()
		return fmt.Errorf("%w: %v", ErrOverflow, err)
	}
	return c.cmdSend(m)
}

// rmwMaxBytes caps the encoded size of a ReadModifyWrite command's
// address/mask sets.
const rmwMaxBytes = 243

// ReadModifyWrite sets or resets bits in words of PLC data table
// memory. Set i is the address addrs[i] with AND mask and[i] and OR
// mask or[i]: the PLC copies the word, resets the bits cleared in the
// AND mask, sets the bits set in the OR mask, and writes it back. The
// controller may modify a word between the copy and the write back, so
// this is safest on words the controller only reads.
func (c *Conn) ReadModifyWrite(notify NotifyFunc, dnode byte, addrs []addr.PLCAddr, and, or []uint16) error {
	if len(addrs) == 0 {
		return fmt.Errorf("%w: number of sets must be non-zero", ErrParam)
	}
	if len(and) != len(addrs) || len(or) != len(addrs) {
		return fmt.Errorf("%w: address and mask set lengths differ", ErrParam)
	}
	m, err := c.cmdInit(notify, nil, dnode, nil, 0x0f, 0x26)
	if err != nil {
		return err
	}
	for i := range addrs {
		enc, err := addr.EncodePLC(addrs[i])
		if err != nil {
			m.flush()
			return fmt.Errorf("%w: %v", ErrParam, err)
		}
		if m.buf.AppendBlob(enc) != nil ||
			m.buf.AppendU16LE(and[i]) != nil ||
			m.buf.AppendU16LE(or[i]) != nil {
			m.flush()
			return ErrOverflow
		}
		if m.buf.Len()-7 > rmwMaxBytes {
			m.flush()
			return fmt.Errorf("%w: number of sets exceeded maximum command size", ErrParam)
		}
	}
	return c.cmdSend(m)
}

// BitWrite modifies specified bits in a single word. Bits set in set
// are set in the target word; bits set in reset are cleared. The two
// masks must not overlap.
func (c *Conn) BitWrite(notify NotifyFunc, dnode byte, a addr.PLCAddr, set, reset uint16) error {
	if a == nil {
		return fmt.Errorf("%w: address cannot be nil", ErrParam)
	}
	if set&reset != 0 {
		return fmt.Errorf("%w: bits must be mutually exclusive in masks", ErrParam)
	}
	m, err := c.cmdInit(notify, nil, dnode, nil, 0x0f, 0x02)
	if err != nil {
		return err
	}
	enc, err := addr.EncodePLC(a)
	if err != nil {
		m.flush()
		return fmt.Errorf("%w: %v", ErrParam, err)
	}
	if m.buf.AppendBlob(enc) != nil ||
		m.buf.AppendU16LE(set) != nil ||
		m.buf.AppendU16LE(reset) != nil {
		m.flush()
		return ErrOverflow
	}
	return c.cmdSend(m)
}

// ReadSLCFileInfo determines a SLC data file's type and size, storing
// the result through fi.
func (c *Conn) ReadSLCFileInfo(notify NotifyFunc, dnode byte, fi *SLCFileInfo, fileNum uint8) error {
	if fi == nil {
		return fmt.Errorf("%w: destination pointer cannot be nil", ErrParam)
	}
	m, err := c.cmdInit(notify, replyReadSLCFileInfo, dnode, fi, 0x0f, 0x94)
	if err != nil {
		return err
	}
	// Mask, major file type (0x80 for data table files), file number.
	if m.buf.AppendByte(0x06) != nil ||
		m.buf.AppendByte(0x80) != nil ||
		m.buf.AppendByte(fileNum) != nil {
		m.flush()
		return ErrOverflow
	}
	return c.cmdSend(m)
}

// DisableForces disables the I/O forcing function. Forcing data is
// ignored but remains intact.
func (c *Conn) DisableForces(notify NotifyFunc, dnode byte) error {
	m, err := c.cmdInit(notify, nil, dnode, nil, 0x0f, 0x41)
	if err != nil {
		return err
	}
	return c.cmdSend(m)
}

// ChangeModeMicroLogix1000 changes the mode of a MicroLogix processor.
// Supported modes are ModeProg and ModeRun.
func (c *Conn) ChangeModeMicroLogix1000(notify NotifyFunc, dnode byte, mode Mode) error {
	var val byte
	switch mode {
	case ModeProg:
		val = 0x01
	case ModeRun:
		val = 0x02
	default:
		return fmt.Errorf("%w: command does not support selected processor mode", ErrParam)
	}
	return c.changeMode(notify, dnode, 0x3a, val)
}

// ChangeModeSLC500 changes the mode of a SLC processor. For SLC 5/03
// and 5/04 processors this only works with the keyswitch in the REM
// position. Supported modes are ModeProg, ModeRun, ModeTestCont,
// ModeTestSingle, and ModeTestDebug.
func (c *Conn) ChangeModeSLC500(notify NotifyFunc, dnode byte, mode Mode) error {
	var val byte
	switch mode {
	case ModeProg:
		val = 0x01
	case ModeRun:
		val = 0x06
	case ModeTestCont:
		val = 0x07
	case ModeTestSingle:
		val = 0x08
	case ModeTestDebug:
		val = 0x09
	default:
		return fmt.Errorf("%w: command does not support selected processor mode", ErrParam)
	}
	return c.changeMode(notify, dnode, 0x80, val)
}

// SetCPUMode sets a PLC processor's operating mode at the next I/O
// scan; the processor must be in Remote mode. Supported modes are
// ModeProg, ModeRemTest, and ModeRemRun.
func (c *Conn) SetCPUMode(notify NotifyFunc, dnode byte, mode Mode) error {
	var val byte
	switch mode {
	case ModeProg:
		val = 0x00
	case ModeRemTest:
		val = 0x01
	case ModeRemRun:
		val = 0x02
	default:
		return fmt.Errorf("%w: command does not support selected processor mode", ErrParam)
	}
	return c.changeMode(notify, dnode, 0x3a, val)
}

func (c *Conn) changeMode(notify NotifyFunc, dnode, fnc, val byte) error {
	m, err := c.cmdInit(notify, nil, dnode, nil, 0x0f, fnc)
	if err != nil {
		return err
	}
	if err := m.buf.AppendByte(val); err != nil {
		m.flush()
		return ErrOverflow
	}
	return c.cmdSend(m)
}
