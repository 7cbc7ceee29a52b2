package df1

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// feedClient runs a byte sequence through a client's socket FSM,
// failing the test on any protocol violation.
func feedClient(t *testing.T, conn *Connection, cl *Client, data []byte) {
	t.Helper()
	for _, b := range data {
		require.NoError(t, cl.FeedSocket(conn, b))
	}
}

// drainTTY empties the connection's outbound TTY buffer, returning its
// contents and signalling the transmitter that the write completed.
func drainTTY(conn *Connection) []byte {
	out := append([]byte(nil), conn.TTYOut.Bytes()...)
	conn.TTYOut.Empty()
	conn.DataSent()
	return out
}

func TestOutboundRoundTripCRC(t *testing.T) {
	conn := newTestConn(t, true)
	cl := addTestClient(t, conn, 5)

	feedClient(t, conn, cl, []byte{0x01, 0x07, 0x05, 0x00, 0x06, 0x00, 0x42, 0x42, 0x42})
	assert.Equal(t, StateMsgPend, cl.State)

	wire := drainTTY(conn)
	want := []byte{
		0x10, 0x02,
		0x05, 0x00, 0x06, 0x00, 0x42, 0x42, 0x42,
		0x10, 0x03,
		0x04, 0x94,
	}
	assert.Equal(t, want, wire)

	conn.FeedAll([]byte{0x10, 0x06})
	assert.Equal(t, []byte{0x06}, cl.SockOut.Bytes())
	assert.Equal(t, StateIdle, cl.State)
	assert.Equal(t, uint64(1), conn.Counters.TXSuccess)
	assert.True(t, conn.Tx.Idle())
}

func TestInboundDeliveryAndClientAck(t *testing.T) {
	conn := newTestConn(t, true)
	cl := addTestClient(t, conn, 5)

	conn.FeedAll([]byte{
		0x10, 0x02,
		0x05, 0x00, 0x06, 0x00, 0x42, 0x42, 0x42,
		0x10, 0x03,
		0x04, 0x94,
	})
	assert.Equal(t, RxPend, conn.Rx.state)
	assert.Equal(t, []byte{0x01, 0x07, 0x05, 0x00, 0x06, 0x00, 0x42, 0x42, 0x42}, cl.SockOut.Bytes())
	assert.Equal(t, uint64(1), conn.Counters.MsgRX)

	// No response goes to the peer until the client acknowledges.
	assert.Equal(t, 0, conn.TTYOut.Len())
	require.NoError(t, cl.FeedSocket(conn, MsgACK))
	assert.Equal(t, []byte{0x10, 0x06}, conn.TTYOut.Bytes())
	assert.Equal(t, RxIdle, conn.Rx.state)
	assert.Equal(t, uint64(1), conn.Counters.AcksOut)
}

func TestInboundDLEUnstuffing(t *testing.T) {
	conn := newTestConn(t, false)
	cl := addTestClient(t, conn, 0x10)

	// Payload 10 11 22 33 44 55: the leading 0x10 arrives stuffed.
	app := []byte{0x10, 0x11, 0x22, 0x33, 0x44, 0x55}
	conn.FeedAll(EncodeFrame(app, false))

	out := cl.SockOut.Bytes()
	require.NotEmpty(t, out)
	assert.Equal(t, app, out[2:])
}

func TestNakThenSuccessRetransmits(t *testing.T) {
	conn := newTestConn(t, true) // TxMaxNak = 2
	cl := addTestClient(t, conn, 5)

	feedClient(t, conn, cl, []byte{0x01, 0x03, 0xaa, 0xbb, 0xcc})
	first := drainTTY(conn)

	conn.FeedAll([]byte{0x10, 0x15})
	retrans := drainTTY(conn)
	assert.Equal(t, first, retrans, "NAK must retransmit the identical frame")

	conn.FeedAll([]byte{0x10, 0x06})
	assert.Equal(t, []byte{0x06}, cl.SockOut.Bytes())
	assert.Equal(t, uint64(1), conn.Counters.NaksIn)
	assert.Equal(t, uint64(1), conn.Counters.TXSuccess)
}

func TestNakLimitFailsMessage(t *testing.T) {
	conn := newTestConn(t, true) // TxMaxNak = 2
	cl := addTestClient(t, conn, 5)

	feedClient(t, conn, cl, []byte{0x01, 0x03, 0xaa, 0xbb, 0xcc})
	drainTTY(conn)

	conn.FeedAll([]byte{0x10, 0x15})
	drainTTY(conn)
	conn.FeedAll([]byte{0x10, 0x15})

	assert.Equal(t, []byte{0x15}, cl.SockOut.Bytes())
	assert.Equal(t, StateIdle, cl.State)
	assert.Equal(t, uint64(1), conn.Counters.TXFail)
	assert.True(t, conn.Tx.Idle())
}

func TestEnqRetryThenFailure(t *testing.T) {
	// 200ms ACK timeout at the 10ms tick is 20 ticks; TxMaxEnq = 2.
	conn := newTestConn(t, true)
	cl := addTestClient(t, conn, 5)

	feedClient(t, conn, cl, []byte{0x01, 0x03, 0xaa, 0xbb, 0xcc})
	drainTTY(conn)

	// First timeout: a DLE ENQ goes out and the timer restarts.
	for i := 0; i < 21; i++ {
		conn.Tick()
	}
	assert.Equal(t, []byte{0x10, 0x05}, conn.TTYOut.Bytes())
	assert.Equal(t, uint64(1), conn.Counters.EnqsOut)
	assert.Equal(t, uint64(1), conn.Counters.RespTimeouts)
	drainTTY(conn)

	// Second timeout: the message is failed.
	for i := 0; i < 21; i++ {
		conn.Tick()
	}
	assert.Equal(t, []byte{0x15}, cl.SockOut.Bytes())
	assert.Equal(t, uint64(2), conn.Counters.EnqsOut)
	assert.Equal(t, uint64(2), conn.Counters.RespTimeouts)
	assert.Equal(t, uint64(1), conn.Counters.TXFail)
	assert.True(t, conn.Tx.Idle())
}

func TestDuplicateDetection(t *testing.T) {
	conn := New(Config{
		Name:         "test",
		UseCRC:       true,
		AckTimeoutMS: 200,
		TxMaxNak:     2,
		TxMaxEnq:     2,
		RxDupDetect:  true,
	}, nil)
	cl := addTestClient(t, conn, 0x07)

	frame := []byte{
		0x10, 0x02,
		0x07, 0x11, 0x22, 0x33, 0x44, 0x55,
		0x10, 0x03,
		0xbd, 0x86,
	}

	conn.FeedAll(frame)
	assert.Equal(t, uint64(1), conn.Counters.MsgRX)
	cl.SockOut.Empty()
	require.NoError(t, cl.FeedSocket(conn, MsgACK))
	conn.TTYOut.Empty()

	// Identical frame again: silently ACKed, never delivered.
	conn.FeedAll(frame)
	assert.Equal(t, uint64(1), conn.Counters.MsgRX)
	assert.Equal(t, uint64(1), conn.Counters.Dups)
	assert.Equal(t, 0, cl.SockOut.Len())
	assert.Equal(t, []byte{0x10, 0x06}, conn.TTYOut.Bytes())
	conn.TTYOut.Empty()

	// A third repeat is still deduped: the fingerprint refreshes on
	// every hit.
	conn.FeedAll(frame)
	assert.Equal(t, uint64(2), conn.Counters.Dups)
	assert.Equal(t, 0, cl.SockOut.Len())
}

func TestDuplicateFingerprintIgnoresOtherOffsets(t *testing.T) {
	conn := New(Config{
		Name:         "test",
		UseCRC:       true,
		AckTimeoutMS: 200,
		TxMaxNak:     2,
		TxMaxEnq:     2,
		RxDupDetect:  true,
	}, nil)
	cl := addTestClient(t, conn, 0x07)

	conn.FeedAll([]byte{
		0x10, 0x02,
		0x07, 0x11, 0x22, 0x33, 0x44, 0x55,
		0x10, 0x03,
		0xbd, 0x86,
	})
	require.NoError(t, cl.FeedSocket(conn, MsgACK))
	cl.SockOut.Empty()

	// Same bytes at offsets 1,2,4,5 but a different byte at offset 3:
	// still a duplicate.
	conn.FeedAll([]byte{
		0x10, 0x02,
		0x07, 0x11, 0x22, 0x99, 0x44, 0x55,
		0x10, 0x03,
		0x9c, 0x5e,
	})
	assert.Equal(t, uint64(1), conn.Counters.Dups)
	assert.Equal(t, 0, cl.SockOut.Len())
}

func TestRuntIsNakedBeforeDuplicateDetection(t *testing.T) {
	conn := New(Config{
		Name:         "test",
		AckTimeoutMS: 200,
		TxMaxNak:     2,
		TxMaxEnq:     2,
		RxDupDetect:  true,
	}, nil)
	cl := addTestClient(t, conn, 0x10)

	// A full-length message first, so a fingerprint (11 22 44 55) is
	// stored.
	conn.FeedAll(EncodeFrame([]byte{0x10, 0x11, 0x22, 0x33, 0x44, 0x55}, false))
	require.NoError(t, cl.FeedSocket(conn, MsgACK))
	conn.TTYOut.Empty()

	// Five application bytes: one short of a valid message.
	app := []byte{0x10, 0x11, 0x22, 0x33, 0x44}
	conn.FeedAll(EncodeFrame(app, false))
	assert.Equal(t, uint64(1), conn.Counters.Runts)
	assert.Equal(t, uint64(0), conn.Counters.Dups)
	assert.Equal(t, []byte{0x10, 0x15}, conn.TTYOut.Bytes())
}

func TestBadChecksumNaks(t *testing.T) {
	conn := newTestConn(t, true)
	addTestClient(t, conn, 5)

	frame := EncodeFrame([]byte{0x05, 0x00, 0x06, 0x00, 0x42, 0x42, 0x42}, true)
	frame[len(frame)-1] ^= 0xff
	conn.FeedAll(frame)
	assert.Equal(t, uint64(1), conn.Counters.BadCS)
	assert.Equal(t, []byte{0x10, 0x15}, conn.TTYOut.Bytes())
}

func TestUnknownDestinationAcked(t *testing.T) {
	conn := newTestConn(t, true)

	conn.FeedAll(EncodeFrame([]byte{0x09, 0x11, 0x22, 0x33, 0x44, 0x55}, true))
	assert.Equal(t, uint64(1), conn.Counters.UnknownDst)
	assert.Equal(t, []byte{0x10, 0x06}, conn.TTYOut.Bytes())
	assert.Equal(t, RxIdle, conn.Rx.state)
}

func TestPeerEnqRepeatsLastResponse(t *testing.T) {
	conn := newTestConn(t, true)
	cl := addTestClient(t, conn, 5)

	// Before anything has been accepted the last response is NAK.
	conn.FeedAll([]byte{0x10, 0x05})
	assert.Equal(t, []byte{0x10, 0x15}, conn.TTYOut.Bytes())
	conn.TTYOut.Empty()

	conn.FeedAll(EncodeFrame([]byte{0x05, 0x11, 0x22, 0x33, 0x44, 0x55}, true))
	require.NoError(t, cl.FeedSocket(conn, MsgACK))
	conn.TTYOut.Empty()

	conn.FeedAll([]byte{0x10, 0x05})
	assert.Equal(t, []byte{0x10, 0x06}, conn.TTYOut.Bytes())
}

func TestPeerEnqWhileClientAckPending(t *testing.T) {
	conn := newTestConn(t, true)
	cl := addTestClient(t, conn, 5)

	conn.FeedAll(EncodeFrame([]byte{0x05, 0x11, 0x22, 0x33, 0x44, 0x55}, true))
	assert.Equal(t, RxPend, conn.Rx.state)

	// The peer's transmitter timed out waiting on our slow client;
	// close the message out with an ACK.
	conn.FeedAll([]byte{0x10, 0x05})
	assert.Equal(t, []byte{0x10, 0x06}, conn.TTYOut.Bytes())
	assert.Equal(t, RxIdle, conn.Rx.state)
	assert.Equal(t, uint64(1), cl.Counters.RxTimeouts)
}

func TestReceiverTimeout(t *testing.T) {
	conn := newTestConn(t, true)

	// Idle channels never time out.
	for i := 0; i < RxTimeoutTicks*2; i++ {
		conn.Tick()
	}
	assert.Equal(t, uint64(0), conn.Counters.RxTimeouts)

	// A stalled mid-message reception does, measured from the first
	// application byte.
	conn.FeedAll([]byte{0x10, 0x02, 0x07})
	for i := 0; i < RxTimeoutTicks; i++ {
		conn.Tick()
	}
	assert.Equal(t, RxApp, conn.Rx.state)
	conn.Tick()
	assert.Equal(t, RxIdle, conn.Rx.state)
	assert.Equal(t, uint64(1), conn.Counters.RxTimeouts)
	assert.False(t, conn.Rx.lastWasAck)
}

func TestEmbeddedResponseResolvesTransmitter(t *testing.T) {
	conn := newTestConn(t, true)
	cl := addTestClient(t, conn, 0x07)
	sender := addTestClient(t, conn, 0x08)

	feedClient(t, conn, sender, []byte{0x01, 0x03, 0xaa, 0xbb, 0xcc})
	drainTTY(conn)

	// The peer opens a message of its own and embeds the ACK for our
	// transmission inside it.
	conn.FeedAll([]byte{0x10, 0x02, 0x07, 0x11, 0x22})
	conn.FeedAll([]byte{0x10, 0x06})
	assert.True(t, conn.EmbedRsp)
	assert.Equal(t, uint64(1), conn.Counters.TXSuccess)
	assert.Equal(t, []byte{0x06}, sender.SockOut.Bytes())

	// The peer's message still completes normally afterwards.
	conn.FeedAll([]byte{0x33, 0x44, 0x55, 0x10, 0x03, 0xbd, 0x86})
	assert.Equal(t, RxPend, conn.Rx.state)
	assert.Equal(t, []byte{0x01, 0x06, 0x07, 0x11, 0x22, 0x33, 0x44, 0x55}, cl.SockOut.Bytes())
}

func TestTransmitTimerPausedWhileReceiving(t *testing.T) {
	conn := newTestConn(t, true)
	addTestClient(t, conn, 0x07)
	sender := addTestClient(t, conn, 0x08)

	feedClient(t, conn, sender, []byte{0x01, 0x03, 0xaa, 0xbb, 0xcc})
	drainTTY(conn)

	// Peer is mid-message and no embedded response has ever been seen:
	// the ACK timer must not advance.
	conn.FeedAll([]byte{0x10, 0x02, 0x07, 0x11})
	for i := 0; i < 100; i++ {
		conn.Tick()
	}
	assert.Equal(t, uint64(0), conn.Counters.EnqsOut)

	// Once embedded responses have been observed the timer runs even
	// during reception.
	conn.EmbedRsp = true
	for i := 0; i < 21; i++ {
		conn.Tick()
	}
	assert.Equal(t, uint64(1), conn.Counters.EnqsOut)
}

func TestRoundRobinArbitration(t *testing.T) {
	conn := newTestConn(t, true)
	a := addTestClient(t, conn, 1)
	b := addTestClient(t, conn, 2)

	feedClient(t, conn, a, []byte{0x01, 0x03, 0x0a, 0x0a, 0x0a})
	assert.Equal(t, StateMsgPend, a.State)

	// B queues while the transmitter is busy with A's message.
	feedClient(t, conn, b, []byte{0x01, 0x03, 0x0b, 0x0b, 0x0b})
	assert.Equal(t, StateMsgReady, b.State)

	drainTTY(conn)
	conn.FeedAll([]byte{0x10, 0x06})

	// A's completion hands the link straight to B.
	assert.Equal(t, StateMsgPend, b.State)
	wire := drainTTY(conn)
	assert.Equal(t, EncodeFrame([]byte{0x0b, 0x0b, 0x0b}, true), wire)
}

func TestClientCloseMidFlightDetachesTransmitter(t *testing.T) {
	conn := newTestConn(t, true)
	cl := addTestClient(t, conn, 5)

	feedClient(t, conn, cl, []byte{0x01, 0x03, 0xaa, 0xbb, 0xcc})
	drainTTY(conn)

	conn.CloseClient(cl)
	cl.SockOut.Empty()

	// The in-flight transmission completes with nobody to notify.
	conn.FeedAll([]byte{0x10, 0x06})
	assert.Equal(t, 0, cl.SockOut.Len())
	assert.Equal(t, uint64(1), conn.Counters.TXSuccess)
	assert.True(t, conn.Tx.Idle())
}
