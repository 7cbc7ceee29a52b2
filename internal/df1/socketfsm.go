package df1

import "errors"

// Client-socket protocol violations. All of them are fatal
// to the client: the caller must close the socket and release the
// client's resources.
var (
	ErrBadRegistration       = errors.New("df1: invalid registration name length")
	ErrRegistrationCollision = errors.New("df1: addr already registered")
	ErrSecondSOH             = errors.New("df1: second SOH before prior outbound message completed")
	ErrUnexpectedByte        = errors.New("df1: unexpected byte from client")
)

// FeedSocket processes one raw byte read from the client's TCP socket,
// advancing its registration/message state machine. A
// non-nil error is always a protocol violation; the caller must close
// the client (CloseClient) in response.
func (c *Client) FeedSocket(conn *Connection, b byte) error {
	switch c.State {
	case StateConnected:
		c.Addr = b
		c.State = StateRegLen

	case StateRegLen:
		if b == 0 || int(b) > NameMax {
			return ErrBadRegistration
		}
		c.regNameLen = int(b)
		c.nameBuf = c.nameBuf[:0]
		c.State = StateRegName

	case StateRegName:
		c.nameBuf = append(c.nameBuf, b)
		if len(c.nameBuf) < c.regNameLen {
			return nil
		}
		c.Name = string(c.nameBuf)
		if !conn.RegisterClient(c, c.Addr) {
			return ErrRegistrationCollision
		}

	case StateIdle:
		switch b {
		case SOH:
			c.State = StateMsgLen
		case MsgACK:
			conn.Rx.ClientAck(c)
		case MsgNAK:
			conn.Rx.ClientNak(c)
		default:
			if conn.Rx.IsAwaiting(c) {
				return ErrUnexpectedByte
			}
		}

	case StateMsgLen:
		c.msgLen = int(b)
		c.DF1TX.Empty()
		c.State = StateMsg
		if c.msgLen == 0 {
			c.State = StateMsgReady
			conn.QueueOutbound(c)
		}

	case StateMsg:
		_ = c.DF1TX.AppendByte(b)
		if c.DF1TX.Len() >= c.msgLen {
			c.State = StateMsgReady
			conn.QueueOutbound(c)
		}

	case StateMsgReady, StateMsgPend:
		switch b {
		case SOH:
			// Only one outstanding outbound message at a time.
			return ErrSecondSOH
		case MsgACK:
			conn.Rx.ClientAck(c)
		case MsgNAK:
			conn.Rx.ClientNak(c)
		default:
			return ErrUnexpectedByte
		}

	default:
		return ErrUnexpectedByte
	}
	return nil
}
