package df1

import (
	"context"
	"errors"
	"io"
	"net"
	"syscall"
	"time"

	"golang.org/x/sys/unix"
)

// ttyChannel is the byte-oriented duplex channel the engine drives the
// serial line through. *term.Term and a pseudo-terminal both satisfy it.
type ttyChannel interface {
	io.Reader
	io.Writer
	Close() error
}

// Engine owns one Connection, its serial channel, and the TCP listener
// accepting clients for it. All mutation of the Connection happens on
// the single goroutine running Run, fed by an event channel; ticks are
// posted into the same channel rather than polled from a signal flag.
type Engine struct {
	Conn     *Connection
	tty      ttyChannel
	listener net.Listener

	events chan event
	done   chan struct{}

	clientConns map[*Client]net.Conn
}

type event interface{}

type evTTYData struct{ data []byte }
type evTTYErr struct{ err error }
type evClientAccepted struct{ conn net.Conn }
type evClientData struct {
	client *Client
	data   []byte
}
type evClientErr struct {
	client *Client
	err    error
}
type evTick struct{}

// NewEngine wires a Connection to its serial channel and client
// listener. listenAddr is a "host:port" string; SO_REUSEADDR is set on
// the listener socket so restarts can rebind immediately.
func NewEngine(conn *Connection, tty ttyChannel, listenAddr string) (*Engine, error) {
	lc := net.ListenConfig{
		Control: func(network, address string, raw syscall.RawConn) error {
			return raw.Control(func(fd uintptr) {
				_ = unix.SetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_REUSEADDR, 1)
			})
		},
	}
	ln, err := lc.Listen(context.Background(), "tcp", listenAddr)
	if err != nil {
		return nil, err
	}
	return &Engine{
		Conn:        conn,
		tty:         tty,
		listener:    ln,
		events:      make(chan event, 64),
		done:        make(chan struct{}),
		clientConns: make(map[*Client]net.Conn),
	}, nil
}

// Run drives the engine until Stop is called or the serial channel
// fails unrecoverably. It is the single consumer of all engine state;
// every other goroutine only posts events.
func (e *Engine) Run() error {
	go e.acceptLoop()
	go e.ttyReadLoop()

	ticker := time.NewTicker(TickPeriodMS * time.Millisecond)
	defer ticker.Stop()
	go func() {
		for {
			select {
			case <-ticker.C:
				select {
				case e.events <- evTick{}:
				case <-e.done:
					return
				}
			case <-e.done:
				return
			}
		}
	}()

	for {
		select {
		case ev := <-e.events:
			if stop := e.dispatch(ev); stop != nil {
				return stop
			}
		case <-e.done:
			return nil
		}
	}
}

// Stop shuts the engine down: the listener, the serial channel, and
// every client connection.
func (e *Engine) Stop() {
	close(e.done)
	_ = e.listener.Close()
	_ = e.tty.Close()
	for _, nc := range e.clientConns {
		_ = nc.Close()
	}
}

func (e *Engine) dispatch(ev event) error {
	switch v := ev.(type) {
	case evTTYData:
		e.Conn.FeedAll(v.data)
		e.flushTTYOut()
		for c := range e.clientConns {
			e.flushClientOut(c)
		}
	case evTTYErr:
		e.Conn.Log.Errorf("conn %s: serial I/O error: %v", e.Conn.Name, v.err)
		return v.err
	case evClientAccepted:
		c := NewClient()
		e.clientConns[c] = v.conn
		go e.clientReadLoop(c, v.conn)
	case evClientData:
		e.handleClientData(v.client, v.data)
		e.flushClientOut(v.client)
		e.flushTTYOut()
	case evClientErr:
		e.closeClient(v.client)
	case evTick:
		e.Conn.Tick()
		e.flushTTYOut()
		for c := range e.clientConns {
			e.flushClientOut(c)
		}
	}
	return nil
}

func (e *Engine) handleClientData(c *Client, data []byte) {
	for _, b := range data {
		if err := c.FeedSocket(e.Conn, b); err != nil {
			e.Conn.Log.Warnf("conn %s: client %s: %v", e.Conn.Name, c.Name, err)
			e.closeClient(c)
			return
		}
	}
}

func (e *Engine) closeClient(c *Client) {
	e.Conn.CloseClient(c)
	if nc, ok := e.clientConns[c]; ok {
		_ = nc.Close()
		delete(e.clientConns, c)
	}
}

func (e *Engine) flushTTYOut() {
	if !e.Conn.TTYOut.WriteReady() {
		return
	}
	_, err := e.Conn.TTYOut.WriteTo(e.tty)
	if err != nil {
		e.Conn.Log.Errorf("conn %s: serial write error: %v", e.Conn.Name, err)
		return
	}
	if !e.Conn.TTYOut.WriteReady() {
		e.Conn.DataSent()
	}
}

func (e *Engine) flushClientOut(c *Client) {
	nc, ok := e.clientConns[c]
	if !ok || !c.SockOut.WriteReady() {
		return
	}
	if _, err := c.SockOut.WriteTo(nc); err != nil {
		e.Conn.Log.Warnf("conn %s: client %s write error: %v", e.Conn.Name, c.Name, err)
		e.closeClient(c)
	}
}

func (e *Engine) acceptLoop() {
	for {
		nc, err := e.listener.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return
			}
			continue
		}
		select {
		case e.events <- evClientAccepted{conn: nc}:
		case <-e.done:
			_ = nc.Close()
			return
		}
	}
}

func (e *Engine) clientReadLoop(c *Client, nc net.Conn) {
	buf := make([]byte, ClientBufCap)
	for {
		n, err := nc.Read(buf)
		if n > 0 {
			chunk := append([]byte(nil), buf[:n]...)
			select {
			case e.events <- evClientData{client: c, data: chunk}:
			case <-e.done:
				return
			}
		}
		if err != nil {
			select {
			case e.events <- evClientErr{client: c, err: err}:
			case <-e.done:
			}
			return
		}
	}
}

func (e *Engine) ttyReadLoop() {
	buf := make([]byte, TTYBufCap)
	for {
		n, err := e.tty.Read(buf)
		if n > 0 {
			chunk := append([]byte(nil), buf[:n]...)
			select {
			case e.events <- evTTYData{data: chunk}:
			case <-e.done:
				return
			}
		}
		if err != nil {
			select {
			case e.events <- evTTYErr{err: err}:
			case <-e.done:
			}
			return
		}
	}
}
