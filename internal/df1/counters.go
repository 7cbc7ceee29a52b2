package df1

// Counters holds the sixteen named diagnostic counters a Connection
// accumulates over its lifetime. They are
// exported as plain fields rather than behind accessors since nothing
// else in the process mutates them outside the single-threaded core.
type Counters struct {
	MsgRX        uint64 // application messages delivered to a client
	MsgTX        uint64 // application messages handed to the transmitter
	TXSuccess    uint64 // transmissions acknowledged by the peer
	TXFail       uint64 // transmissions abandoned after retry exhaustion
	NaksIn       uint64 // NAKs received from the peer while transmitting
	NaksOut      uint64 // NAKs sent to the peer on receive
	AcksOut      uint64 // ACKs sent to the peer on receive
	EnqsOut      uint64 // ENQ attempts, one per response timeout (the failing one sends none)
	EnqsIn       uint64 // peer ENQs observed outside a message
	Runts        uint64 // frames shorter than 6 application bytes
	BadCS        uint64 // frames with a checksum mismatch
	Dups         uint64 // frames classified as duplicates
	UnknownDst   uint64 // frames addressed to no registered client
	RespTimeouts uint64 // transmitter ACK-wait timeouts
	RxTimeouts   uint64 // receiver in-progress-message timeouts
	Overflows    uint64 // application buffer overflows
}
