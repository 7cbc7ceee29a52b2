package df1

import (
	"github.com/jvalenzuela/df1d/internal/buf"
	"github.com/jvalenzuela/df1d/internal/checksum"
)

// RxState is the receiver's state machine.
type RxState int

const (
	RxIdle RxState = iota
	RxApp
	RxCS1
	RxCS2
	RxPend
)

// Receiver owns the inbound message state machine: the checksum
// accumulator, the duplicate-detection fingerprint, and the
// pending-client-acknowledgement slot.
type Receiver struct {
	conn *Connection

	state RxState
	app   *buf.Buf
	chk   checksum.Checksum
	cs    [2]byte // checksum bytes accumulated in CS1/CS2
	csLen int

	fingerprint     [4]byte
	haveFingerprint bool

	lastWasAck bool
	overflow   bool
	prevDLE    bool
	forcedNak  bool // set when an unexpected post-DLE byte was seen

	started bool // first application byte has arrived
	ticks   int

	client *Client // non-nil iff state == RxPend
}

// NewReceiver returns an idle receiver bound to conn.
func NewReceiver(conn *Connection) *Receiver {
	return &Receiver{conn: conn, app: buf.New(AppBufCap)}
}

// receiving reports whether the receiver is actively mid-message, used
// by the transmitter to decide whether to pause its ACK-wait timer.
func (rx *Receiver) receiving() bool {
	return rx.state == RxApp || rx.state == RxCS1 || rx.state == RxCS2
}

// Activate starts a new reception after the connection has detected an
// outer DLE STX. It is a no-op if a message is already in flight
// (receive direction invariant: at most one outstanding per connection).
func (rx *Receiver) Activate() {
	if rx.state != RxIdle {
		rx.conn.logProtocolError("DLE STX while receiver busy in state %v", rx.state)
		return
	}
	rx.app.Empty()
	if rx.conn.UseCRC {
		rx.chk = checksum.NewCRC16()
	} else {
		rx.chk = checksum.NewBCC()
	}
	rx.csLen = 0
	rx.overflow = false
	rx.forcedNak = false
	rx.prevDLE = false
	rx.started = false
	rx.ticks = 0
	rx.state = RxApp
}

// FeedApp processes one raw byte while in the APP state.
func (rx *Receiver) FeedApp(b byte) {
	if rx.prevDLE {
		rx.prevDLE = false
		switch b {
		case ETX:
			if rx.conn.UseCRC {
				rx.chk.Update(ETX)
			}
			rx.state = RxCS1
		case ACK:
			rx.conn.EmbedRsp = true
			rx.conn.Tx.Ack()
		case NAK:
			rx.conn.EmbedRsp = true
			rx.conn.Tx.Nak()
		case DLE:
			rx.appendApp(DLE)
			rx.chk.Update(DLE)
		default:
			rx.forcedNak = true
		}
		return
	}
	if b == DLE {
		rx.prevDLE = true
		return
	}
	rx.appendApp(b)
	rx.chk.Update(b)
}

func (rx *Receiver) appendApp(b byte) {
	if !rx.started {
		rx.started = true
		rx.ticks = 0
	}
	if err := rx.app.AppendByte(b); err != nil {
		rx.overflow = true
	}
}

// FeedCS processes one raw checksum byte in CS1 or CS2.
func (rx *Receiver) FeedCS(b byte) {
	switch rx.state {
	case RxCS1:
		rx.cs[0] = b
		rx.csLen = 1
		if rx.conn.UseCRC {
			rx.state = RxCS2
			return
		}
		rx.accept()
	case RxCS2:
		rx.cs[1] = b
		rx.csLen = 2
		rx.accept()
	}
}

// accept runs the acceptance rules once a complete frame (application
// bytes plus checksum) has been assembled.
func (rx *Receiver) accept() {
	defer func() {
		rx.started = false
		rx.ticks = 0
	}()

	if rx.forcedNak {
		rx.forcedNak = false
		rx.sendNak()
		return
	}

	// Overflow is checked ahead of the four itemized acceptance rules:
	// an overflowed frame is garbage regardless of what its truncated
	// checksum happens to match.
	if rx.overflow {
		rx.conn.Counters.Overflows++
		rx.sendNak()
		return
	}

	app := rx.app.Bytes()
	if len(app) < 6 {
		rx.conn.Counters.Runts++
		rx.sendNak()
		return
	}

	if !rx.chk.Verify(rx.cs[:rx.csLen]) {
		rx.conn.Counters.BadCS++
		rx.sendNak()
		return
	}

	if rx.conn.RxDupDetect && rx.isDuplicate(app) {
		// The fingerprint is refreshed even on a duplicate hit, so an
		// A, A, A sequence dedupes every repeat, not just the first.
		rx.updateFingerprint(app)
		rx.conn.Counters.Dups++
		rx.sendAck()
		return
	}
	rx.updateFingerprint(app)

	client := rx.conn.Clients.ByAddr(app[0])
	if client == nil {
		rx.conn.Counters.UnknownDst++
		rx.sendAck()
		return
	}

	payload := make([]byte, len(app))
	copy(payload, app)
	_ = client.SockOut.AppendByte(SOH)
	_ = client.SockOut.AppendByte(byte(len(payload)))
	_ = client.SockOut.AppendBlob(payload)
	client.Counters.MsgRX++
	rx.conn.Counters.MsgRX++
	rx.client = client
	rx.state = RxPend
}

func (rx *Receiver) isDuplicate(app []byte) bool {
	return rx.haveFingerprint &&
		app[1] == rx.fingerprint[0] && app[2] == rx.fingerprint[1] &&
		app[4] == rx.fingerprint[2] && app[5] == rx.fingerprint[3]
}

func (rx *Receiver) updateFingerprint(app []byte) {
	rx.fingerprint = [4]byte{app[1], app[2], app[4], app[5]}
	rx.haveFingerprint = true
}

// IsAwaiting reports whether the receiver is holding a delivered message
// awaiting c's own ACK/NAK decision.
func (rx *Receiver) IsAwaiting(c *Client) bool {
	return rx.state == RxPend && rx.client == c
}

// ClientAck is the client socket's acknowledgement of a message this
// receiver delivered to it.
func (rx *Receiver) ClientAck(c *Client) {
	if rx.state != RxPend || rx.client != c {
		return
	}
	rx.sendAck()
}

// ClientNak is the client socket's rejection of a delivered message.
func (rx *Receiver) ClientNak(c *Client) {
	if rx.state != RxPend || rx.client != c {
		return
	}
	rx.sendNak()
}

func (rx *Receiver) sendAck() {
	_ = rx.conn.TTYOut.AppendByte(DLE)
	_ = rx.conn.TTYOut.AppendByte(ACK)
	rx.conn.Counters.AcksOut++
	rx.finish(true)
}

func (rx *Receiver) sendNak() {
	_ = rx.conn.TTYOut.AppendByte(DLE)
	_ = rx.conn.TTYOut.AppendByte(NAK)
	rx.conn.Counters.NaksOut++
	rx.finish(false)
}

func (rx *Receiver) finish(ack bool) {
	rx.lastWasAck = ack
	rx.client = nil
	rx.state = RxIdle
	rx.prevDLE = false
}

// PeerENQ handles an outer DLE ENQ observed while the receiver is not
// mid-message.
func (rx *Receiver) PeerENQ() {
	rx.conn.Counters.EnqsIn++
	if rx.state == RxPend {
		rx.conn.logInfo("peer ENQ while awaiting client ack on %s; closing out", rx.client.Name)
		c := rx.client
		rx.sendAck()
		if c != nil {
			c.Counters.RxTimeouts++
		}
		return
	}
	_ = rx.conn.TTYOut.AppendByte(DLE)
	if rx.lastWasAck {
		_ = rx.conn.TTYOut.AppendByte(ACK)
	} else {
		_ = rx.conn.TTYOut.AppendByte(NAK)
	}
}

// Tick advances the receive timeout, counted only from the first
// application byte of an in-progress message. Idle channels, and
// channels waiting on a client's own ACK/NAK, never time out here.
func (rx *Receiver) Tick() {
	if !rx.started {
		return
	}
	rx.ticks++
	if rx.ticks <= RxTimeoutTicks {
		return
	}
	rx.conn.Counters.RxTimeouts++
	rx.lastWasAck = false
	rx.state = RxIdle
	rx.started = false
	rx.ticks = 0
	rx.app.Empty()
}

// ClientClosed drops the receiver's back-reference if c was the client
// awaiting an ACK/NAK decision; the in-flight acceptance is abandoned
// silently.
func (rx *Receiver) ClientClosed(c *Client) {
	if rx.client == c {
		rx.client = nil
		rx.state = RxIdle
	}
}
