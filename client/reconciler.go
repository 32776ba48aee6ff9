// Package client holds the client-side pieces of the chat: a live event
// socket and the reconciler that merges pushed messages into the locally
// held conversation view.
package client

import (
	"sync"

	"github.com/rkany/pigeon/pkg/types"
)

// Stream delivers live new-message events. Subscribe registers a handler and
// returns a cancel function that removes it; implementations must not invoke
// the handler synchronously from inside Subscribe.
type Stream interface {
	SubscribeNewMessages(handler func(types.Message)) (cancel func())
}

// Reconciler owns the conversation view for the currently selected
// counterpart. It applies live events one at a time under a single lock, so
// an arriving event and a conversation switch are strictly ordered.
//
// At most one live subscription is active; selecting a new conversation (or
// closing) cancels the previous one first, so an event meant for an earlier
// conversation can never leak into a newer view.
type Reconciler struct {
	selfID string
	stream Stream

	mu       sync.Mutex
	selected string // counterpart user id, "" when no conversation is open
	view     []types.Message
	seen     map[string]struct{}
	cancel   func()
}

// NewReconciler creates a reconciler for the given local user over a live
// stream. No conversation is selected initially.
func NewReconciler(selfID string, stream Stream) *Reconciler {
	return &Reconciler{
		selfID: selfID,
		stream: stream,
		seen:   make(map[string]struct{}),
	}
}

// SelectConversation switches the view to a new counterpart: the previous
// live subscription is cancelled, the view is reset empty pending a history
// load, and a fresh subscription is installed.
func (r *Reconciler) SelectConversation(counterpartID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.dropSubscriptionLocked()
	r.selected = counterpartID
	r.view = nil
	r.seen = make(map[string]struct{})

	if counterpartID == "" {
		return
	}
	r.cancel = r.stream.SubscribeNewMessages(r.onLiveMessage)
}

// LoadHistory replaces the view with a fetched conversation history. Live
// events that raced the fetch re-apply through the dedup rule afterwards.
func (r *Reconciler) LoadHistory(messages []types.Message) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.view = nil
	r.seen = make(map[string]struct{})
	for _, msg := range messages {
		r.appendLocked(msg)
	}
}

// AppendLocal applies the sender's own optimistic post. The same dedup rule
// as live events applies, so a later server echo is a no-op.
func (r *Reconciler) AppendLocal(msg types.Message) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.applyLocked(msg)
}

// Selected returns the current counterpart id, or "" when no conversation is
// open.
func (r *Reconciler) Selected() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.selected
}

// Messages returns a snapshot of the current view in arrival order.
func (r *Reconciler) Messages() []types.Message {
	r.mu.Lock()
	defer r.mu.Unlock()

	snapshot := make([]types.Message, len(r.view))
	copy(snapshot, r.view)
	return snapshot
}

// Close cancels the live subscription and clears the view. Forgetting this
// on teardown would leave a listener appending into a dead view.
func (r *Reconciler) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.dropSubscriptionLocked()
	r.selected = ""
	r.view = nil
	r.seen = make(map[string]struct{})
}

func (r *Reconciler) onLiveMessage(msg types.Message) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.applyLocked(msg)
}

// applyLocked filters and appends one message. The payload may carry the
// sender or receiver as a raw id or an expanded object; UserRef already
// normalized both into one form, so only the ids are compared here.
func (r *Reconciler) applyLocked(msg types.Message) {
	if r.selected == "" {
		return
	}
	// Scope: the message must belong to the open conversation.
	if msg.Sender.ID != r.selected && msg.Receiver.ID != r.selected {
		return
	}
	r.appendLocked(msg)
}

func (r *Reconciler) appendLocked(msg types.Message) {
	if _, dup := r.seen[msg.ID]; dup {
		return
	}
	r.seen[msg.ID] = struct{}{}
	r.view = append(r.view, msg)
}

func (r *Reconciler) dropSubscriptionLocked() {
	if r.cancel != nil {
		r.cancel()
		r.cancel = nil
	}
}
