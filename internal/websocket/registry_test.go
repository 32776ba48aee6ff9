package websocket

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRegistry_RegisterIdempotent(t *testing.T) {
	r := NewRegistry()

	r.Register("u1", "e1")
	r.Register("u1", "e1")

	socketID, ok := r.Lookup("u1")
	require.True(t, ok)
	require.Equal(t, "e1", socketID)
}

func TestRegistry_LastConnectWins(t *testing.T) {
	r := NewRegistry()

	r.Register("u1", "e1")
	r.Register("u1", "e2")

	socketID, ok := r.Lookup("u1")
	require.True(t, ok)
	require.Equal(t, "e2", socketID)
}

func TestRegistry_StaleUnregisterDoesNotEvict(t *testing.T) {
	r := NewRegistry()

	r.Register("u1", "e1")
	r.Register("u1", "e2")
	r.Unregister("u1", "e1")

	socketID, ok := r.Lookup("u1")
	require.True(t, ok)
	require.Equal(t, "e2", socketID)
}

func TestRegistry_Unregister(t *testing.T) {
	r := NewRegistry()

	r.Register("u1", "e1")
	r.Unregister("u1", "e1")

	_, ok := r.Lookup("u1")
	require.False(t, ok)

	// Unregistering an absent user is a no-op.
	r.Unregister("u2", "e9")
}

func TestRegistry_Concurrent(t *testing.T) {
	r := NewRegistry()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			user := fmt.Sprintf("u%d", i%5)
			socket := fmt.Sprintf("e%d", i)
			r.Register(user, socket)
			r.Lookup(user)
			r.Unregister(user, socket)
		}(i)
	}
	wg.Wait()
}
