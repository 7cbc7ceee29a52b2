package pccc

import (
	"fmt"
	"time"
)

// Command codes carrying no FNC byte after the TNS.
func cmdHasFNC(cmd byte) bool {
	switch cmd {
	case 0x00, 0x01, 0x02, 0x04, 0x05, 0x08:
		return false
	}
	return true
}

// cmdInit claims a message slot and assembles the common command
// prefix: DST | SRC | CMD | STS=0 | TNS | optional FNC. Every command
// function builds on this before appending its own payload.
func (c *Conn) cmdInit(notify NotifyFunc, reply replyFunc, dnode byte, udata any, cmd, fnc byte) (*message, error) {
	if !c.connected {
		return nil, fmt.Errorf("%w: not connected", ErrLink)
	}
	m := c.getFree()
	if m == nil {
		return nil, ErrNoBuf
	}
	m.isCmd = true
	m.udata = udata
	m.notify = notify
	m.reply = reply
	m.fileType = 0
	m.bytes = 0
	m.elements = 0
	m.tns = c.tns
	c.tns++
	overflow := m.buf.AppendByte(dnode) != nil ||
		m.buf.AppendByte(c.srcAddr) != nil ||
		m.buf.AppendByte(cmd) != nil ||
		m.buf.AppendByte(0) != nil || // STS
		m.buf.AppendU16LE(m.tns) != nil
	if cmdHasFNC(cmd) {
		overflow = overflow || m.buf.AppendByte(fnc) != nil
	}
	if overflow {
		m.flush()
		return nil, ErrOverflow
	}
	return m, nil
}

// cmdSend transmits an assembled command. A nil notify selects
// one-at-a-time operation; otherwise the command is queued and the
// application pumps the connection itself.
func (c *Conn) cmdSend(m *message) error {
	if m.notify == nil {
		return c.sendOAAT(m)
	}
	return c.sendNext()
}

// sendOAAT sends a command one-at-a-time: write it, wait for the link
// layer's acknowledgement and the reply, acknowledge the reply, and
// parse it. The reply timeout only runs once the command message has
// been acknowledged and no inbound message is mid-reception.
func (c *Conn) sendOAAT(m *message) error {
	c.cur = c.index(m)
	if err := c.msgSend(); err != nil {
		m.flush()
		return err
	}
	if err := c.Write(); err != nil {
		return err
	}
	defer c.nc.SetReadDeadline(time.Time{})
	for {
		if m.state&msgAckRcvd != 0 && c.readMode == readIdle {
			_ = c.nc.SetReadDeadline(time.Now().Add(c.timeout))
		} else {
			_ = c.nc.SetReadDeadline(time.Time{})
		}
		if err := c.Read(); err != nil {
			if isTimeout(err) {
				m.flush()
				return ErrTimeout
			}
			return err
		}
		// A NAK from the link layer flushed the message: it could not
		// be delivered.
		if m.state == msgUnused {
			return ErrNoDeliver
		}
		if m.state&msgReplyRcvd != 0 {
			// parseMsg queued the ACK for the reply; it must reach the
			// link layer before the result is surfaced.
			if err := c.Write(); err != nil {
				return err
			}
			break
		}
	}
	m.flush()
	raw := c.msgIn.Bytes()
	if err := stsCheck(raw); err != nil {
		return fmt.Errorf("%w: %v", ErrReply, err)
	}
	if m.reply != nil {
		_ = c.msgIn.SetIndex(replyHeaderLen)
		if err := m.reply(c.msgIn, m); err != nil {
			return fmt.Errorf("%w: %v", ErrReply, err)
		}
	}
	return nil
}
