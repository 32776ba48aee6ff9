package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/rkany/pigeon/internal/crypto"
	"github.com/rkany/pigeon/internal/database"
	"github.com/rkany/pigeon/pkg/types"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()

	db, err := database.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	key := make([]byte, crypto.MessageKeySize)
	for i := range key {
		key[i] = byte(i)
	}
	cipher, err := crypto.NewMessageCipher(key)
	require.NoError(t, err)

	return New(db.DB, cipher)
}

func createTestUser(t *testing.T, s *Store, email, first, last string) types.User {
	t.Helper()
	user, err := s.CreateUser(context.Background(), email, first, last, "bcrypt-hash")
	require.NoError(t, err)
	return user
}

func TestCreateUser_DuplicateEmail(t *testing.T) {
	s := newTestStore(t)

	createTestUser(t, s, "alice@example.com", "Alice", "A")
	_, err := s.CreateUser(context.Background(), "alice@example.com", "Other", "O", "hash")
	require.ErrorIs(t, err, ErrEmailTaken)
}

func TestUserByEmail(t *testing.T) {
	s := newTestStore(t)
	created := createTestUser(t, s, "alice@example.com", "Alice", "A")

	user, hash, err := s.UserByEmail(context.Background(), "alice@example.com")
	require.NoError(t, err)
	require.Equal(t, created.ID, user.ID)
	require.Equal(t, "bcrypt-hash", hash)

	_, _, err = s.UserByEmail(context.Background(), "nobody@example.com")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestCounterparts_ExcludesSelf(t *testing.T) {
	s := newTestStore(t)
	alice := createTestUser(t, s, "alice@example.com", "Alice", "A")
	bob := createTestUser(t, s, "bob@example.com", "Bob", "B")

	users, err := s.Counterparts(context.Background(), alice.ID)
	require.NoError(t, err)
	require.Len(t, users, 1)
	require.Equal(t, bob.ID, users[0].ID)
}

func TestSaveMessage_EncryptsAtRest(t *testing.T) {
	s := newTestStore(t)
	alice := createTestUser(t, s, "alice@example.com", "Alice", "A")
	bob := createTestUser(t, s, "bob@example.com", "Bob", "B")

	msg, err := s.SaveMessage(context.Background(), alice.ID, bob.ID, "hello", "")
	require.NoError(t, err)
	require.Equal(t, "hello", msg.Text)
	require.Equal(t, alice.ID, msg.Sender.ID)
	require.Equal(t, "Alice", msg.Sender.FirstName)
	require.Equal(t, bob.ID, msg.Receiver.ID)
	require.NotEmpty(t, msg.ID)
	require.NotZero(t, msg.CreatedAt)

	// The row itself must hold ciphertext, never the plaintext.
	var stored string
	err = s.db.QueryRow("SELECT text FROM messages WHERE id = ?", msg.ID).Scan(&stored)
	require.NoError(t, err)
	require.NotEqual(t, "hello", stored)
	require.NotContains(t, stored, "hello")
}

func TestSaveMessage_ImageOnly(t *testing.T) {
	s := newTestStore(t)
	alice := createTestUser(t, s, "alice@example.com", "Alice", "A")
	bob := createTestUser(t, s, "bob@example.com", "Bob", "B")

	msg, err := s.SaveMessage(context.Background(), alice.ID, bob.ID, "", "/uploads/pic.png")
	require.NoError(t, err)
	require.Empty(t, msg.Text)
	require.Equal(t, "/uploads/pic.png", msg.Image)

	var stored string
	err = s.db.QueryRow("SELECT text FROM messages WHERE id = ?", msg.ID).Scan(&stored)
	require.NoError(t, err)
	require.Empty(t, stored)
}

func TestSaveMessage_Empty(t *testing.T) {
	s := newTestStore(t)
	alice := createTestUser(t, s, "alice@example.com", "Alice", "A")
	bob := createTestUser(t, s, "bob@example.com", "Bob", "B")

	_, err := s.SaveMessage(context.Background(), alice.ID, bob.ID, "", "")
	require.ErrorIs(t, err, ErrEmptyMessage)
}

func TestConversation_BothDirectionsOrdered(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	alice := createTestUser(t, s, "alice@example.com", "Alice", "A")
	bob := createTestUser(t, s, "bob@example.com", "Bob", "B")
	carol := createTestUser(t, s, "carol@example.com", "Carol", "C")

	first, err := s.SaveMessage(ctx, alice.ID, bob.ID, "hi bob", "")
	require.NoError(t, err)
	second, err := s.SaveMessage(ctx, bob.ID, alice.ID, "hi alice", "")
	require.NoError(t, err)
	// Unrelated conversation must not leak in.
	_, err = s.SaveMessage(ctx, alice.ID, carol.ID, "hi carol", "")
	require.NoError(t, err)

	for _, pair := range [][2]string{{alice.ID, bob.ID}, {bob.ID, alice.ID}} {
		msgs, err := s.Conversation(ctx, pair[0], pair[1])
		require.NoError(t, err)
		require.Len(t, msgs, 2)
		require.Equal(t, first.ID, msgs[0].ID)
		require.Equal(t, second.ID, msgs[1].ID)
		require.Equal(t, "hi bob", msgs[0].Text)
		require.Equal(t, "hi alice", msgs[1].Text)
		require.Equal(t, "Alice", msgs[0].Sender.FirstName)
	}
}

func TestConversation_UndecryptableRecordIsMarkedNotFatal(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	alice := createTestUser(t, s, "alice@example.com", "Alice", "A")
	bob := createTestUser(t, s, "bob@example.com", "Bob", "B")

	corrupt, err := s.SaveMessage(ctx, alice.ID, bob.ID, "will be corrupted", "")
	require.NoError(t, err)
	intact, err := s.SaveMessage(ctx, alice.ID, bob.ID, "still fine", "")
	require.NoError(t, err)

	_, err = s.db.Exec("UPDATE messages SET text = 'not:an:envelope' WHERE id = ?", corrupt.ID)
	require.NoError(t, err)

	msgs, err := s.Conversation(ctx, alice.ID, bob.ID)
	require.NoError(t, err)
	require.Len(t, msgs, 2)

	require.True(t, msgs[0].Undecryptable)
	require.Empty(t, msgs[0].Text)
	require.False(t, msgs[1].Undecryptable)
	require.Equal(t, "still fine", msgs[1].Text)
	require.Equal(t, intact.ID, msgs[1].ID)
}
