package websocket

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/rkany/pigeon/pkg/types"
)

type fakeEndpoint struct {
	frames  [][]byte
	writeFn func(data []byte) error
}

func (f *fakeEndpoint) WriteMessage(messageType int, data []byte) error {
	if f.writeFn != nil {
		return f.writeFn(data)
	}
	f.frames = append(f.frames, data)
	return nil
}

func (f *fakeEndpoint) SetWriteDeadline(t time.Time) error { return nil }

func newTestHub() *Hub {
	return NewHub(nil)
}

func TestDeliver_PushesToRegisteredEndpoint(t *testing.T) {
	h := newTestHub()
	ep := &fakeEndpoint{}
	h.attach("bob", "e1", ep)

	msg := types.Message{
		ID:       "m1",
		Sender:   types.UserRef{ID: "alice", FirstName: "Alice"},
		Receiver: types.UserRef{ID: "bob"},
		Text:     "hello",
	}
	h.Deliver("bob", msg)

	require.Len(t, ep.frames, 1)

	var event types.Event
	require.NoError(t, json.Unmarshal(ep.frames[0], &event))
	require.Equal(t, types.EventNewMessage, event.Type)

	var delivered types.Message
	require.NoError(t, json.Unmarshal(event.Data, &delivered))
	require.Equal(t, "m1", delivered.ID)
	require.Equal(t, "hello", delivered.Text)
	require.Equal(t, "alice", delivered.Sender.ID)
	require.Equal(t, "Alice", delivered.Sender.FirstName)
	require.Equal(t, "bob", delivered.Receiver.ID)
}

func TestDeliver_OfflineRecipientIsNoop(t *testing.T) {
	h := newTestHub()
	ep := &fakeEndpoint{}
	h.attach("bob", "e1", ep)

	h.Deliver("carol", types.Message{ID: "m1", Text: "anyone there"})

	require.Empty(t, ep.frames)
}

func TestDeliver_WriteFailureDoesNotPanic(t *testing.T) {
	h := newTestHub()
	ep := &fakeEndpoint{writeFn: func([]byte) error { return errors.New("broken pipe") }}
	h.attach("bob", "e1", ep)

	// Must swallow the transport error; persistence already succeeded.
	h.Deliver("bob", types.Message{ID: "m1", Text: "hello"})
}

func TestDeliver_RacedDisconnectIsNoop(t *testing.T) {
	h := newTestHub()
	ep := &fakeEndpoint{}
	h.attach("bob", "e1", ep)

	// Simulate the connection map losing the socket while the registry still
	// points at it.
	h.mu.Lock()
	delete(h.clients, "e1")
	h.mu.Unlock()

	h.Deliver("bob", types.Message{ID: "m1", Text: "hello"})
	require.Empty(t, ep.frames)
}

func TestDetach_GuardsNewerConnection(t *testing.T) {
	h := newTestHub()
	old := &fakeEndpoint{}
	h.attach("bob", "e1", old)

	// Bob reconnects before the stale endpoint's teardown runs.
	fresh := &fakeEndpoint{}
	h.attach("bob", "e2", fresh)
	h.detach("bob", "e1")

	h.Deliver("bob", types.Message{ID: "m1", Text: "hello"})

	require.Empty(t, old.frames)
	require.Len(t, fresh.frames, 1)
}
