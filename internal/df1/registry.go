package df1

// Registry is the per-connection table of registered clients, keyed by
// their one-byte DF1 node address, plus the round-robin cursor the
// arbitrator uses to pick the next ready transmission. The table is an
// indexed slice with swap-remove; the cursor is re-checked after
// removals.
type Registry struct {
	clients []*Client
	lastIdx int // index serviced last by Next; -1 before the first pick
}

// NewRegistry returns an empty client table.
func NewRegistry() *Registry {
	return &Registry{lastIdx: -1}
}

// Register adds c to the table under the given address, unless another
// registered client already holds that address, in which case it
// returns false and c must be dropped.
func (r *Registry) Register(c *Client, addr byte) bool {
	for _, existing := range r.clients {
		if existing.State.isRegistered() && existing.Addr == addr {
			return false
		}
	}
	c.Addr = addr
	c.State = StateIdle
	r.clients = append(r.clients, c)
	return true
}

// Remove drops c from the table (disconnect, protocol violation, or
// connection teardown). It is a no-op if c is not present.
func (r *Registry) Remove(c *Client) {
	for i, existing := range r.clients {
		if existing == c {
			last := len(r.clients) - 1
			r.clients[i] = r.clients[last]
			r.clients[last] = nil
			r.clients = r.clients[:last]
			if r.lastIdx >= len(r.clients) {
				r.lastIdx = -1
			}
			return
		}
	}
}

// ByAddr returns the registered client at addr, or nil.
func (r *Registry) ByAddr(addr byte) *Client {
	for _, c := range r.clients {
		if c.State.isRegistered() && c.Addr == addr {
			return c
		}
	}
	return nil
}

// All returns the live client slice. Callers must not retain it across a
// Register/Remove call.
func (r *Registry) All() []*Client {
	return r.clients
}

// Next picks the next client in MSG_READY state, starting just after the
// client serviced by the previous call (round-robin), and advances it to
// MSG_PEND. The caller copies the client's outbound
// payload and clears DF1TX. It returns nil if no client currently has a
// message ready.
func (r *Registry) Next() *Client {
	n := len(r.clients)
	if n == 0 {
		return nil
	}
	start := r.lastIdx + 1
	for i := 0; i < n; i++ {
		idx := (start + i) % n
		c := r.clients[idx]
		if c.State == StateMsgReady {
			c.State = StateMsgPend
			r.lastIdx = idx
			return c
		}
	}
	return nil
}
