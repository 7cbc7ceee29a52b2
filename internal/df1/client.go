package df1

import "github.com/jvalenzuela/df1d/internal/buf"

// ClientState is the client socket's lifecycle state.
type ClientState int

const (
	// StateConnected is the instant after accept, before any bytes have
	// arrived.
	StateConnected ClientState = iota
	// StateRegLen is waiting for the one-byte name length.
	StateRegLen
	// StateRegName is waiting for name_len bytes of the client's name.
	StateRegName
	// StateIdle is registered, with no outbound message in progress.
	StateIdle
	// StateMsgLen is waiting for the one-byte length of an outbound
	// application message.
	StateMsgLen
	// StateMsg is accumulating the outbound application payload.
	StateMsg
	// StateMsgReady is a complete outbound message waiting for the
	// arbitrator to pick it.
	StateMsgReady
	// StateMsgPend is an outbound message handed to the transmitter,
	// awaiting the peer's ACK/NAK.
	StateMsgPend
)

func (s ClientState) String() string {
	switch s {
	case StateConnected:
		return "CONNECTED"
	case StateRegLen:
		return "REG_LEN"
	case StateRegName:
		return "REG_NAME"
	case StateIdle:
		return "IDLE"
	case StateMsgLen:
		return "MSG_LEN"
	case StateMsg:
		return "MSG"
	case StateMsgReady:
		return "MSG_READY"
	case StateMsgPend:
		return "MSG_PEND"
	default:
		return "UNKNOWN"
	}
}

// isRegistered reports whether the client has completed registration,
// i.e. holds a stable addr and may be addressed by the receiver.
func (s ClientState) isRegistered() bool {
	return s == StateIdle || s == StateMsgLen || s == StateMsg ||
		s == StateMsgReady || s == StateMsgPend
}

// canQueueOutbound reports whether the client may begin assembling a new
// outbound message. A client already in MSG_READY or MSG_PEND has one
// outstanding and must wait.
func (s ClientState) canQueueOutbound() bool {
	return s == StateIdle
}

// Client is one TCP peer speaking the daemon's client-socket protocol,
// addressed on the DF1 link by a single byte.
type Client struct {
	Name  string
	Addr  byte
	State ClientState

	// DF1TX is the application message being assembled from the socket,
	// destined for the serial link once complete.
	DF1TX *buf.Buf
	// SockOut is bytes queued to be written to the client's socket:
	// inbound DF1 deliveries and ACK/NAK completions.
	SockOut *buf.Buf
	// SockIn is the not-yet-parsed bytes read from the client's socket.
	SockIn *buf.Buf

	Counters ClientCounters

	regNameLen int
	nameBuf    []byte
	msgLen     int
}

// ClientCounters are the per-client diagnostic counts.
type ClientCounters struct {
	MsgRX      uint64
	MsgTX      uint64
	TXSuccess  uint64
	TXFail     uint64
	RxTimeouts uint64
}

// NewClient returns a freshly accepted, unregistered client.
func NewClient() *Client {
	return &Client{
		State:   StateConnected,
		DF1TX:   buf.New(ClientBufCap),
		SockOut: buf.New(ClientBufCap),
		SockIn:  buf.New(ClientBufCap),
	}
}

// pendingOutbound returns the complete application payload assembled
// from the client's socket, ready to be DF1-framed.
func (c *Client) pendingOutbound() []byte {
	return c.DF1TX.Bytes()
}
