package pccc

import (
	"time"

	"github.com/jvalenzuela/df1d/internal/buf"
	"github.com/jvalenzuela/df1d/internal/letoh"
	"github.com/jvalenzuela/df1d/pccc/data"
)

// Message lifecycle states. A command accumulates TX, ACK_RCVD and
// REPLY_RCVD independently; it is complete only once all three have
// occurred, in whatever order the link delivers them.
const (
	msgUnused    = 0
	msgPend      = 1 << 0 // pending transmission to the link layer
	msgTX        = 1 << 1 // written, awaiting the link layer's ACK/NAK
	msgAckRcvd   = 1 << 2 // link layer acknowledged the transmission
	msgReplyRcvd = 1 << 3 // reply received from the remote node
	msgCmdDone   = msgTX | msgAckRcvd | msgReplyRcvd
)

// replyFunc parses a command's reply. The buffer cursor is positioned on
// the first data byte, past DST|SRC|CMD|STS|TNS. A non-nil return is
// surfaced to the caller wrapped in ErrReply.
type replyFunc func(rply *buf.Buf, cmd *message) error

// message is one slot of the connection's pool: the wire-level command
// bytes plus everything needed to match and parse its reply.
type message struct {
	state int
	buf   *buf.Buf
	isCmd bool

	tns      uint16
	fileType data.FileType
	bytes    int // wire bytes of data transferred
	elements int
	expires  time.Time // zero until the link layer ACKs a notify-mode command
	udata    any
	notify   NotifyFunc
	reply    replyFunc
	result   error
}

// flush clears a message and marks its slot unused. The descriptive
// fields are left for the in-flight completion paths to read; they are
// overwritten when the slot is next acquired.
func (m *message) flush() {
	m.state = msgUnused
	m.expires = time.Time{}
	m.buf.Empty()
}

// getFree claims the next unused pool slot, or nil if all are occupied.
func (c *Conn) getFree() *message {
	for _, m := range c.msgs {
		if m.state == msgUnused {
			m.state = msgPend
			m.buf.Empty()
			m.expires = time.Time{}
			m.result = nil
			return m
		}
	}
	return nil
}

// index returns m's position in the pool.
func (c *Conn) index(m *message) int {
	for i, t := range c.msgs {
		if t == m {
			return i
		}
	}
	return 0
}

// findCmd locates the outstanding command whose transaction number
// matches a received reply.
func (c *Conn) findCmd(tns uint16) *message {
	for _, m := range c.msgs {
		if m.state != msgUnused && m.isCmd && m.tns == tns {
			return m
		}
	}
	return nil
}

// msgSend copies the current message to the socket output buffer,
// prefixed with SOH and the length byte.
func (c *Conn) msgSend() error {
	m := c.msgs[c.cur]
	if m.buf.Len() > 0xff {
		return ErrOverflow
	}
	if c.sockOut.AppendByte(symSOH) != nil ||
		c.sockOut.AppendByte(byte(m.buf.Len())) != nil ||
		c.sockOut.AppendBuf(m.buf) != nil {
		return ErrOverflow
	}
	m.state = msgTX
	return nil
}

// sendNext advances the round-robin cursor to the next message pending
// transmission and sends it. A message already mid-transmission keeps
// the link until its ACK/NAK arrives.
func (c *Conn) sendNext() error {
	if c.msgs[c.cur].state == msgTX {
		return nil
	}
	for i := 0; i < len(c.msgs); i++ {
		c.cur = (c.cur + 1) % len(c.msgs)
		if c.msgs[c.cur].state == msgPend {
			return c.msgSend()
		}
	}
	return nil
}

// abortAll flushes every outstanding message, firing each notify
// callback with the given result.
func (c *Conn) abortAll(result error) {
	for _, m := range c.msgs {
		if m.state == msgUnused {
			continue
		}
		notify, udata := m.notify, m.udata
		m.flush()
		if notify != nil {
			notify(c, result, udata)
		}
	}
}

// Accessors over a complete received message: DST | SRC | CMD | STS |
// TNS(LE) | data...

// replyHeaderLen is the number of bytes preceding a reply's data.
const replyHeaderLen = 6

func msgIsReply(raw []byte) bool { return raw[2]&0x40 != 0 }

// msgCmd strips the reply bit, recovering the originating CMD value.
func msgCmd(raw []byte) byte { return raw[2] & 0x3f }

func msgSrc(raw []byte) byte { return raw[1] }

func msgSTS(raw []byte) byte { return raw[3] }

func msgTNS(raw []byte) uint16 { return letoh.U16(raw[4:6]) }
