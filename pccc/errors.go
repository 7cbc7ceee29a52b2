package pccc

import "errors"

// Sentinel errors returned by the connection and command functions.
// Command results wrap these with additional descriptive text; classify
// with errors.Is.
var (
	// ErrLink indicates an error with the connection to the link layer
	// service: dial/read/write failures, EOF, or use before Connect.
	ErrLink = errors.New("pccc: link layer service connection error")
	// ErrParam indicates an invalid parameter to a command function.
	ErrParam = errors.New("pccc: invalid parameter")
	// ErrOverflow indicates an internal buffer overflowed while
	// assembling a command.
	ErrOverflow = errors.New("pccc: buffer overflow")
	// ErrNoBuf indicates no message buffers were available.
	ErrNoBuf = errors.New("pccc: no message buffers available")
	// ErrNoDeliver indicates the link layer service could not deliver
	// the command.
	ErrNoDeliver = errors.New("pccc: link layer service could not deliver command")
	// ErrTimeout indicates the command timed out awaiting a reply.
	ErrTimeout = errors.New("pccc: timed out awaiting a reply")
	// ErrReply indicates the received reply contained an error, either
	// a non-zero STS or a payload the reply parser rejected.
	ErrReply = errors.New("pccc: reply contained an error")
)
