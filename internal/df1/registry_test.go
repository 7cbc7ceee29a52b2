package df1

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistryUniqueAddr(t *testing.T) {
	r := NewRegistry()
	a := NewClient()
	require.True(t, r.Register(a, 3))

	b := NewClient()
	assert.False(t, r.Register(b, 3))

	// The address frees up once its holder is removed.
	r.Remove(a)
	assert.True(t, r.Register(b, 3))
}

func TestRegistryNextRoundRobin(t *testing.T) {
	r := NewRegistry()
	clients := make([]*Client, 3)
	for i := range clients {
		clients[i] = NewClient()
		require.True(t, r.Register(clients[i], byte(i)))
	}

	assert.Nil(t, r.Next(), "no client has a message ready")

	for _, c := range clients {
		c.State = StateMsgReady
	}
	first := r.Next()
	second := r.Next()
	third := r.Next()
	assert.NotNil(t, first)
	assert.NotNil(t, second)
	assert.NotNil(t, third)
	assert.NotSame(t, first, second)
	assert.NotSame(t, second, third)
	assert.NotSame(t, first, third)
	assert.Equal(t, StateMsgPend, first.State)

	// Service order wraps around once everyone has been picked.
	assert.Nil(t, r.Next())
	first.State = StateMsgReady
	assert.Same(t, first, r.Next())
}

func TestRegistryRemoveSwap(t *testing.T) {
	r := NewRegistry()
	a, b, c := NewClient(), NewClient(), NewClient()
	require.True(t, r.Register(a, 1))
	require.True(t, r.Register(b, 2))
	require.True(t, r.Register(c, 3))

	r.Remove(b)
	assert.Len(t, r.All(), 2)
	assert.Nil(t, r.ByAddr(2))
	assert.Same(t, a, r.ByAddr(1))
	assert.Same(t, c, r.ByAddr(3))

	// Removing an absent client is a no-op.
	r.Remove(b)
	assert.Len(t, r.All(), 2)
}
