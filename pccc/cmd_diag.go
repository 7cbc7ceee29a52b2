package pccc

import "fmt"

// echoMax is the most data an Echo command can carry. Interface modules
// accept up to 243 bytes; SLC 5/03 and 5/04 processors top out at 236.
const echoMax = 243

// Echo transmits data to a node which sends the same bytes back,
// checking the integrity of the communication link. The reply is
// compared against the original data; any difference is an error.
func (c *Conn) Echo(notify NotifyFunc, dnode byte, data []byte) error {
	if len(data) == 0 {
		return fmt.Errorf("%w: number of bytes must not be zero", ErrParam)
	}
	if len(data) > echoMax {
		return fmt.Errorf("%w: number of bytes too large", ErrParam)
	}
	m, err := c.cmdInit(notify, replyEcho, dnode, data, 0x06, 0x00)
	if err != nil {
		return err
	}
	if err := m.buf.AppendBlob(data); err != nil {
		m.flush()
		return ErrOverflow
	}
	m.bytes = len(data)
	return c.cmdSend(m)
}

// SetVariables sets an interface module's ACK timeout, maximum NAKs,
// and maximum ENQs in one command.
func (c *Conn) SetVariables(notify NotifyFunc, dnode byte, cycles, naks, enqs uint8) error {
	m, err := c.cmdInit(notify, nil, dnode, nil, 0x06, 0x02)
	if err != nil {
		return err
	}
	if m.buf.AppendByte(cycles) != nil ||
		m.buf.AppendByte(naks) != nil ||
		m.buf.AppendByte(enqs) != nil {
		m.flush()
		return ErrOverflow
	}
	return c.cmdSend(m)
}

// SetTimeout sets the maximum time an interface module waits for an
// acknowledgement to a message transmission, in cycles of the module's
// internal clock.
func (c *Conn) SetTimeout(notify NotifyFunc, dnode byte, cycles uint8) error {
	m, err := c.cmdInit(notify, nil, dnode, nil, 0x06, 0x04)
	if err != nil {
		return err
	}
	if err := m.buf.AppendByte(cycles); err != nil {
		m.flush()
		return ErrOverflow
	}
	return c.cmdSend(m)
}

// SetNAKs sets the maximum NAKs an interface module accepts per message
// transmission.
func (c *Conn) SetNAKs(notify NotifyFunc, dnode byte, naks uint8) error {
	m, err := c.cmdInit(notify, nil, dnode, nil, 0x06, 0x05)
	if err != nil {
		return err
	}
	if err := m.buf.AppendByte(naks); err != nil {
		m.flush()
		return ErrOverflow
	}
	return c.cmdSend(m)
}

// SetENQs sets the maximum ENQs an interface module issues per message
// transmission.
func (c *Conn) SetENQs(notify NotifyFunc, dnode byte, enqs uint8) error {
	m, err := c.cmdInit(notify, nil, dnode, nil, 0x06, 0x06)
	if err != nil {
		return err
	}
	if err := m.buf.AppendByte(enqs); err != nil {
		m.flush()
		return ErrOverflow
	}
	return c.cmdSend(m)
}

// ReadLinkParam reads the DH485 "maximum solicit address" parameter,
// the highest node address a DH485 node tries to solicit onto the link.
// The value is stored through p when the reply arrives.
func (c *Conn) ReadLinkParam(notify NotifyFunc, dnode byte, p *uint8) error {
	if p == nil {
		return fmt.Errorf("%w: destination pointer cannot be nil", ErrParam)
	}
	m, err := c.cmdInit(notify, replyReadLinkParam, dnode, p, 0x06, 0x09)
	if err != nil {
		return err
	}
	if m.buf.AppendU16LE(0) != nil || // address
		m.buf.AppendByte(1) != nil { // size
		m.flush()
		return ErrOverflow
	}
	return c.cmdSend(m)
}

// SetLinkParam sets the DH485 maximum solicit address.
func (c *Conn) SetLinkParam(notify NotifyFunc, dnode byte, max uint8) error {
	m, err := c.cmdInit(notify, nil, dnode, nil, 0x06, 0x0a)
	if err != nil {
		return err
	}
	if m.buf.AppendU16LE(0) != nil || // address
		m.buf.AppendByte(1) != nil || // size
		m.buf.AppendByte(max) != nil {
		m.flush()
		return ErrOverflow
	}
	return c.cmdSend(m)
}
