// Package pccc is the client side of the DF1 link layer service: it
// connects to the daemon's TCP socket, registers a node address, and
// issues Allen Bradley PCCC commands to controllers reachable over the
// serial link.
//
// Commands operate in one of two modes, selected by the notify argument
// every command function takes. A nil notify runs the command
// one-at-a-time: the call blocks until the reply has been received and
// parsed, and the outcome is the return value. A non-nil notify queues
// the command and returns immediately; the application pumps Read,
// Write, and Tick itself (WriteReady and NetConn support readiness
// polling) and the callback fires exactly once with the outcome.
package pccc

import (
	"errors"
	"fmt"
	"net"
	"os"
	"time"

	"github.com/jvalenzuela/df1d/internal/buf"
)

// NotifyFunc is called when a non-blocking command completes. result is
// nil on success or wraps one of the package's sentinel errors; udata
// is the value supplied to the command function.
type NotifyFunc func(c *Conn, result error, udata any)

// NameLen is the maximum length of the client name registered with the
// link layer service.
const NameLen = 16

// bufSize is the capacity of the connection's internal buffers.
const bufSize = 300

// Client-socket framing bytes, shared with the DF1 symbol values.
const (
	symSOH = 0x01
	symACK = 0x06
	symNAK = 0x15
)

type readMode int

const (
	readIdle readMode = iota
	readMsgLen
	readMsg
)

// Conn is one connection to a link layer service. It is not safe for
// concurrent use; in non-blocking operation, Read, Write, Tick, and the
// command functions must all be called from a single goroutine.
type Conn struct {
	nc      net.Conn
	srcAddr byte
	timeout time.Duration

	sockIn  *buf.Buf // bytes received from the link layer
	sockOut *buf.Buf // bytes pending transmission to the link layer
	msgIn   *buf.Buf // assembled message being received

	readMode  readMode
	msgInLen  int
	msgs      []*message
	cur       int // round-robin transmission cursor
	tns       uint16
	connected bool
}

// New allocates a connection that will register as srcAddr. timeout
// bounds the wait for a reply to a command, measured from the link
// layer's acknowledgement of the command message. msgs sizes the
// message pool; one-at-a-time operation needs only one slot, while
// non-blocking operation needs a slot per outstanding command.
func New(srcAddr byte, timeout time.Duration, msgs int) (*Conn, error) {
	if timeout <= 0 {
		return nil, fmt.Errorf("%w: timeout must be positive", ErrParam)
	}
	if msgs <= 0 {
		return nil, fmt.Errorf("%w: message pool size must be non-zero", ErrParam)
	}
	c := &Conn{
		srcAddr: srcAddr,
		timeout: timeout,
		sockIn:  buf.New(bufSize),
		sockOut: buf.New(bufSize),
		msgIn:   buf.New(bufSize),
	}
	for i := 0; i < msgs; i++ {
		c.msgs = append(c.msgs, &message{buf: buf.New(bufSize)})
	}
	// Randomize the starting transaction number; don't start at zero.
	c.tns = uint16(time.Now().UnixNano() ^ int64(os.Getpid()))
	if c.tns == 0 {
		c.tns = 42
	}
	return c, nil
}

// Connect dials the link layer service at address ("host:port") and
// registers under name. Registration failure (an address collision) is
// not reported here: the service simply closes the TCP connection,
// which surfaces as ErrLink on the next read or write.
func (c *Conn) Connect(address, name string) error {
	if c.connected {
		return fmt.Errorf("%w: already connected", ErrLink)
	}
	nc, err := net.Dial("tcp", address)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrLink, err)
	}
	if err := c.Attach(nc, name); err != nil {
		nc.Close()
		return err
	}
	return nil
}

// Attach registers over an already established connection to the link
// layer service. Connect uses it after dialing; tests may supply a
// pipe.
func (c *Conn) Attach(nc net.Conn, name string) error {
	if c.connected {
		return fmt.Errorf("%w: already connected", ErrLink)
	}
	if len(name) == 0 {
		return fmt.Errorf("%w: client name cannot be empty", ErrParam)
	}
	if len(name) > NameLen {
		return fmt.Errorf("%w: client name too long, %d characters max", ErrParam, NameLen)
	}
	c.nc = nc
	c.connected = true
	_ = c.sockOut.AppendByte(c.srcAddr)
	_ = c.sockOut.AppendByte(byte(len(name)))
	_ = c.sockOut.AppendStr(name)
	if err := c.Write(); err != nil {
		c.connected = false
		c.nc = nil
		return err
	}
	return nil
}

// NetConn exposes the underlying connection so non-blocking callers can
// poll it for readiness alongside their other descriptors.
func (c *Conn) NetConn() net.Conn { return c.nc }

// Read consumes whatever bytes the link layer has sent, advancing the
// receive state machine and dispatching any completed messages. In
// non-blocking operation the application calls this when the socket is
// readable; one-at-a-time commands call it internally.
func (c *Conn) Read() error {
	if !c.connected {
		return fmt.Errorf("%w: not connected", ErrLink)
	}
	n, err := c.sockIn.ReadFrom(c.nc)
	if err != nil {
		return fmt.Errorf("%w: read: %w", ErrLink, err)
	}
	if n == 0 {
		return fmt.Errorf("%w: remote end closed connection", ErrLink)
	}
	c.parseLink()
	return nil
}

// WriteReady reports whether data is pending transmission to the link
// layer service.
func (c *Conn) WriteReady() bool {
	return c.connected && c.sockOut.WriteReady()
}

// Write flushes pending bytes to the link layer socket.
func (c *Conn) Write() error {
	if !c.connected {
		return fmt.Errorf("%w: not connected", ErrLink)
	}
	if !c.sockOut.WriteReady() {
		return nil
	}
	if _, err := c.sockOut.WriteTo(c.nc); err != nil {
		return fmt.Errorf("%w: write: %w", ErrLink, err)
	}
	return nil
}

// Tick expires outstanding commands awaiting a reply. It is only needed
// in non-blocking operation and should be called at least once per
// second; each expired command's notify callback fires with ErrTimeout.
func (c *Conn) Tick() {
	if !c.connected {
		return
	}
	now := time.Now()
	for _, m := range c.msgs {
		if !m.isCmd || m.expires.IsZero() || now.Before(m.expires) {
			continue
		}
		notify, udata := m.notify, m.udata
		m.flush()
		if notify != nil {
			notify(c, ErrTimeout, udata)
		}
	}
}

// Close shuts the connection down. Every outstanding command is aborted
// with its notify callback fired carrying ErrLink.
func (c *Conn) Close() error {
	if !c.connected {
		return nil
	}
	c.connected = false
	c.abortAll(fmt.Errorf("%w: connection closed", ErrLink))
	c.sockIn.Empty()
	c.sockOut.Empty()
	c.msgIn.Empty()
	c.readMode = readIdle
	c.cur = 0
	return c.nc.Close()
}

// parseLink runs the read-mode state machine over the bytes just
// received: SOH starts an inbound message, ACK and NAK resolve the
// current transmission, anything else outside a message is ignored.
func (c *Conn) parseLink() {
	for {
		b, err := c.sockIn.GetByte()
		if err != nil {
			return
		}
		switch c.readMode {
		case readIdle:
			switch b {
			case symSOH:
				c.msgIn.Empty()
				c.readMode = readMsgLen
			case symACK:
				c.rcvAck()
			case symNAK:
				c.rcvNak()
			}
		case readMsgLen:
			c.msgInLen = int(b)
			c.readMode = readMsg
			if c.msgInLen == 0 {
				c.readMode = readIdle
			}
		case readMsg:
			_ = c.msgIn.AppendByte(b)
			if c.msgIn.Len() == c.msgInLen {
				c.readMode = readIdle
				c.parseMsg()
			}
		}
	}
}

// parseMsg dispatches a complete message received from the link layer.
// Bit six of the CMD byte distinguishes replies from commands; replies
// are matched to their command by transaction number and acknowledged
// back to the service.
func (c *Conn) parseMsg() {
	raw := c.msgIn.Bytes()
	if len(raw) < replyHeaderLen {
		return
	}
	if !msgIsReply(raw) {
		// Incoming commands addressed to this node are not supported.
		return
	}
	msg := c.findCmd(msgTNS(raw))
	_ = c.sockOut.AppendByte(symACK)
	if msg == nil {
		return
	}
	msg.state |= msgReplyRcvd
	if msg.notify == nil {
		// One-at-a-time: the initiating call parses the reply itself.
		return
	}
	var result error
	if err := stsCheck(raw); err != nil {
		result = fmt.Errorf("%w: %v", ErrReply, err)
	} else if msg.reply != nil {
		_ = c.msgIn.SetIndex(replyHeaderLen)
		if err := msg.reply(c.msgIn, msg); err != nil {
			result = fmt.Errorf("%w: %v", ErrReply, err)
		}
	}
	msg.result = result
	if msg.state == msgCmdDone {
		notify, udata := msg.notify, msg.udata
		msg.flush()
		notify(c, result, udata)
	}
	// Otherwise the link layer's ACK for the command message is still
	// outstanding; rcvAck completes the command when it arrives.
}

// rcvAck handles the link layer acknowledging the transmission of the
// current message.
func (c *Conn) rcvAck() {
	cur := c.msgs[c.cur]
	cur.state |= msgAckRcvd
	if cur.isCmd {
		// Non-blocking commands start their reply timeout once the
		// command has actually been delivered.
		if cur.notify != nil {
			cur.expires = time.Now().Add(c.timeout + time.Second)
		}
		// The reply may have arrived before this ACK.
		if cur.state == msgCmdDone {
			notify, result, udata := cur.notify, cur.result, cur.udata
			cur.flush()
			if notify != nil {
				notify(c, result, udata)
			}
		}
	} else {
		cur.flush()
	}
	_ = c.sendNext()
}

// rcvNak handles the link layer reporting that the current message
// could not be delivered.
func (c *Conn) rcvNak() {
	cur := c.msgs[c.cur]
	notify, udata, isCmd := cur.notify, cur.udata, cur.isCmd
	cur.flush()
	if isCmd && notify != nil {
		notify(c, ErrNoDeliver, udata)
	}
	_ = c.sendNext()
}

// isTimeout reports whether err stems from a read deadline expiring.
func isTimeout(err error) bool {
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}
