// Package df1 implements the DF1 link-layer engine: the byte framer,
// the receiver and transmitter state machines, the client registry and
// round-robin arbitrator, and the Connection that wires them together
// over one serial line.
package df1

import (
	"github.com/jvalenzuela/df1d/internal/buf"
)

// Logger is the minimal structured-logging surface the engine needs.
// cmd/df1d supplies an implementation backed by internal/dwlog; tests
// may supply a no-op.
type Logger interface {
	Debugf(format string, args ...any)
	Infof(format string, args ...any)
	Warnf(format string, args ...any)
	Errorf(format string, args ...any)
}

// Duplex is the configured duplex mode. All three values currently drive
// identical full-duplex behavior; the field
// is retained so a future half-duplex master/slave implementation has
// somewhere to branch from.
type Duplex int

const (
	DuplexFull Duplex = iota
	DuplexMaster
	DuplexSlave
)

// Config is the pre-validated, per-connection configuration the core
// takes as an opaque input. Constructing one is the
// job of an external collaborator (internal/dfcfg); the engine never
// parses XML or YAML itself.
type Config struct {
	Name         string
	UseCRC       bool
	Duplex       Duplex
	AckTimeoutMS int
	TxMaxNak     int
	TxMaxEnq     int
	RxDupDetect  bool
}

// Connection binds one serial channel to one set of TCP clients,
// routing events between the framer, transmitter, receiver, and
// clients.
type Connection struct {
	Name        string
	UseCRC      bool
	Duplex      Duplex
	TxMaxNak    int
	TxMaxEnq    int
	RxDupDetect bool

	// AckTimeoutTicks is the transmitter's response-wait budget,
	// ack_timeout_ms converted at the fixed 10ms tick period.
	AckTimeoutTicks int

	TTYIn  *buf.Buf
	TTYOut *buf.Buf

	readSym  bool // last raw TTY byte, outside a message, was DLE
	EmbedRsp bool // an embedded response has ever been observed

	Tx       *Transmitter
	Rx       *Receiver
	Clients  *Registry
	Counters Counters

	Log Logger
}

// New constructs a Connection from cfg. AckTimeoutMS is converted to
// ticks at the fixed 10ms tick period.
func New(cfg Config, log Logger) *Connection {
	c := &Connection{
		Name:        cfg.Name,
		UseCRC:      cfg.UseCRC,
		Duplex:      cfg.Duplex,
		TxMaxNak:    cfg.TxMaxNak,
		TxMaxEnq:    cfg.TxMaxEnq,
		RxDupDetect: cfg.RxDupDetect,
		TTYIn:       buf.New(TTYBufCap),
		TTYOut:      buf.New(TTYBufCap),
		Clients:     NewRegistry(),
		Log:         log,
	}
	c.AckTimeoutTicks = cfg.AckTimeoutMS / TickPeriodMS
	c.Tx = NewTransmitter(c)
	c.Rx = NewReceiver(c)
	return c
}

// Feed processes one raw byte arriving from the serial line. Framing
// bytes (DLE + STX/ACK/NAK/ENQ) are recognized at the connection
// level while the receiver is idle or pending, and any other byte after
// an outer DLE is logged as a protocol error; once a message is
// activated, bytes flow directly into the receiver's APP/CS1/CS2
// states.
func (c *Connection) Feed(b byte) {
	switch c.Rx.state {
	case RxApp:
		c.Rx.FeedApp(b)
		return
	case RxCS1, RxCS2:
		c.Rx.FeedCS(b)
		return
	}

	// RxIdle or RxPend: recognize outer DLE-prefixed control sequences.
	if c.readSym {
		c.readSym = false
		switch b {
		case STX:
			c.Rx.Activate()
		case ENQ:
			c.Rx.PeerENQ()
		case ACK:
			c.Tx.Ack()
		case NAK:
			c.Tx.Nak()
		default:
			c.logProtocolError("unexpected byte 0x%02x after DLE", b)
		}
		return
	}
	if b == DLE {
		c.readSym = true
		return
	}
	c.logProtocolError("spurious byte 0x%02x outside a message", b)
}

// FeedAll processes a block of bytes just read from the serial line.
func (c *Connection) FeedAll(data []byte) {
	for _, b := range data {
		c.Feed(b)
	}
}

// Tick drives all of this connection's timers. It must be called once
// per tick period regardless of I/O activity.
func (c *Connection) Tick() {
	c.Tx.Tick()
	c.Rx.Tick()
}

// DataSent notifies the connection that its outbound TTY buffer has
// fully drained, the event the transmitter uses to move from
// PEND_MSG_TX to PEND_RESP.
func (c *Connection) DataSent() {
	c.Tx.DataSent()
}

// serviceArbitrator asks the client registry for the next ready
// outbound message and, if one exists, hands it to the transmitter. It
// is a no-op if the transmitter is already busy or no client has a
// message ready.
func (c *Connection) serviceArbitrator() {
	if !c.Tx.Idle() {
		return
	}
	client := c.Clients.Next()
	if client == nil {
		return
	}
	app := append([]byte(nil), client.pendingOutbound()...)
	client.DF1TX.Empty()
	c.Tx.Submit(client, app)
}

// QueueOutbound is called once a client's socket FSM has assembled a
// complete application message (state MSG_READY). It attempts to hand
// the message straight to the arbitrator if the transmitter is free.
func (c *Connection) QueueOutbound(client *Client) {
	c.serviceArbitrator()
}

// RegisterClient attempts to add client under addr. On collision the
// caller must drop the client.
func (c *Connection) RegisterClient(client *Client, addr byte) bool {
	return c.Clients.Register(client, addr)
}

// CloseClient removes client from the registry and clears any
// transmitter/receiver back-references to it.
func (c *Connection) CloseClient(client *Client) {
	c.Clients.Remove(client)
	c.Tx.ClientClosed(client)
	c.Rx.ClientClosed(client)
}

func (c *Connection) logProtocolError(format string, args ...any) {
	if c.Log == nil {
		return
	}
	c.Log.Warnf("conn %s: "+format, append([]any{c.Name}, args...)...)
}

func (c *Connection) logInfo(format string, args ...any) {
	if c.Log == nil {
		return
	}
	c.Log.Infof("conn %s: "+format, append([]any{c.Name}, args...)...)
}
