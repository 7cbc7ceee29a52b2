package df1

// TxState is the transmitter's retry state machine.
type TxState int

const (
	TxIdle TxState = iota
	TxPendMsgTx
	TxPendResp
)

// Transmitter owns the outgoing-message retry state machine: NAK/ENQ
// retry counters and the ACK-wait timer. It shares the connection's
// outbound TTY buffer with the receiver; append order on that buffer is
// what determines wire order.
type Transmitter struct {
	conn *Connection

	state  TxState
	nakCnt int
	enqCnt int
	eticks int // elapsed ticks waiting for a response
	tticks int // ack_timeout_ms / tick_period_ms

	msg    []byte  // the full encoded wire frame, retained for retransmit
	client *Client // originating client; nil if it disconnected mid-flight
}

// NewTransmitter returns an idle transmitter bound to conn.
func NewTransmitter(conn *Connection) *Transmitter {
	tticks := conn.AckTimeoutTicks
	if tticks <= 0 {
		tticks = 1
	}
	return &Transmitter{conn: conn, state: TxIdle, tticks: tticks}
}

// Idle reports whether the transmitter can accept a new message.
func (tx *Transmitter) Idle() bool { return tx.state == TxIdle }

// Submit assembles c's pending application bytes into a wire frame and
// begins transmitting it. The caller (the arbitrator) must only call
// this when Idle returns true. A full TTY output buffer fails the
// message immediately.
func (tx *Transmitter) Submit(c *Client, app []byte) {
	tx.msg = EncodeFrame(app, tx.conn.UseCRC)
	tx.client = c
	tx.nakCnt = 0
	tx.enqCnt = 0
	tx.eticks = 0
	tx.conn.Counters.MsgTX++
	tx.sendMsg()
}

// sendMsg copies the retained frame into the connection's outbound TTY
// buffer, for both the initial transmission and NAK-driven retransmits.
func (tx *Transmitter) sendMsg() {
	tx.state = TxPendMsgTx
	if err := tx.conn.TTYOut.AppendBlob(tx.msg); err != nil {
		tx.conn.logProtocolError("message dropped, TTY output buffer full")
		tx.fail()
	}
}

// DataSent is the TTY writer's notification that the outbound buffer has
// fully drained. It only acts while a message or ENQ retry is mid-send;
// other drains (receiver ACK/NAK, e.g.) leave the transmitter untouched.
func (tx *Transmitter) DataSent() {
	if tx.state == TxPendMsgTx {
		tx.state = TxPendResp
		tx.eticks = 0
	}
}

// Ack handles an ACK received from the peer, embedded or standalone. It
// is only meaningful in PEND_RESP; any other state is a protocol error,
// and the receiver's "last response was ACK" memory is cleared so a
// subsequent peer ENQ draws a NAK.
func (tx *Transmitter) Ack() {
	if tx.state != TxPendResp {
		tx.conn.logProtocolError("unexpected ACK in transmitter state %v", tx.state)
		tx.conn.Rx.lastWasAck = false
		return
	}
	tx.succeed()
}

// Nak handles a NAK received from the peer. Only meaningful in
// PEND_RESP; retransmits the same frame until tx_max_nak is exhausted,
// then fails the message.
func (tx *Transmitter) Nak() {
	if tx.state != TxPendResp {
		tx.conn.logProtocolError("unexpected NAK in transmitter state %v", tx.state)
		tx.conn.Rx.lastWasAck = false
		return
	}
	tx.conn.Counters.NaksIn++
	tx.nakCnt++
	if tx.nakCnt < tx.conn.TxMaxNak {
		tx.sendMsg()
		return
	}
	tx.fail()
}

// Tick advances the ACK-wait timer. The timer is paused while the
// receiver is actively mid-message and embedded responses have never
// been observed on this connection, on the theory that a peer mid-send
// may yet follow with the response.
func (tx *Transmitter) Tick() {
	if tx.state != TxPendResp {
		return
	}
	if tx.conn.Rx.receiving() && !tx.conn.EmbedRsp {
		return
	}
	tx.eticks++
	if tx.eticks <= tx.tticks {
		return
	}
	tx.conn.Counters.RespTimeouts++
	tx.enqCnt++
	tx.conn.Counters.EnqsOut++
	if tx.enqCnt >= tx.conn.TxMaxEnq {
		tx.fail()
		return
	}
	tx.state = TxPendMsgTx
	tx.eticks = 0
	_ = tx.conn.TTYOut.AppendByte(DLE)
	_ = tx.conn.TTYOut.AppendByte(ENQ)
}

// succeed completes the in-flight message successfully: resets retry
// state, notifies the client, and asks the arbitrator for more work.
func (tx *Transmitter) succeed() {
	tx.reset()
	if tx.client != nil {
		_ = tx.client.SockOut.AppendByte(MsgACK)
		tx.client.State = StateIdle
		tx.client.Counters.TXSuccess++
	}
	tx.conn.Counters.TXSuccess++
	tx.client = nil
	tx.conn.serviceArbitrator()
}

// fail abandons the in-flight message after retry exhaustion.
func (tx *Transmitter) fail() {
	tx.reset()
	if tx.client != nil {
		_ = tx.client.SockOut.AppendByte(MsgNAK)
		tx.client.State = StateIdle
		tx.client.Counters.TXFail++
	}
	tx.conn.Counters.TXFail++
	tx.client = nil
	tx.conn.serviceArbitrator()
}

// reset returns the transmitter to IDLE and clears the retry counters.
// Submit also zeroes the counters when it starts a new message.
func (tx *Transmitter) reset() {
	tx.state = TxIdle
	tx.nakCnt = 0
	tx.enqCnt = 0
	tx.eticks = 0
	tx.msg = nil
}

// ClientClosed nulls the back-reference to c if c is the transmitter's
// current client, leaving the in-flight transmission to complete or
// fail without a client to notify.
func (tx *Transmitter) ClientClosed(c *Client) {
	if tx.client == c {
		tx.client = nil
	}
}
