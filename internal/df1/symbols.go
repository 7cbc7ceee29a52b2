package df1

// Single-byte DF1 control symbols.
const (
	DLE = 0x10
	STX = 0x02
	ETX = 0x03
	ENQ = 0x05
	ACK = 0x06
	NAK = 0x15
)

// Client-socket framing bytes. SOH starts an outbound application
// message; ACK/NAK double as the response codes, sharing the DF1 link
// layer's own symbol values.
const (
	SOH    = 0x01
	MsgACK = ACK
	MsgNAK = NAK
)

// NameMax bounds client and connection identifiers.
const NameMax = 16

// Fixed buffer capacities.
const (
	TTYBufCap    = 512
	ClientBufCap = 512
	AppBufCap    = 512
	TxBufCap     = 512
)

// RxTimeoutTicks is the fixed receiver timeout: 5,000,000us / 10,000us
// per tick + 1. It does not derive from the configured ack_timeout_ms.
const RxTimeoutTicks = 501

// TickPeriodMS is the cadence all connection timers are driven at.
const TickPeriodMS = 10
