package store

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/rkany/pigeon/pkg/logger"
	"github.com/rkany/pigeon/pkg/types"
)

// SaveMessage encrypts the text body, persists the record and returns it with
// the plaintext restored so callers can use it without a second read. The
// sender reference is expanded with profile fields, the receiver stays a raw
// identifier.
func (s *Store) SaveMessage(ctx context.Context, senderID, receiverID, text, imageURL string) (types.Message, error) {
	if text == "" && imageURL == "" {
		return types.Message{}, ErrEmptyMessage
	}

	envelope, err := s.cipher.Encrypt(text)
	if err != nil {
		return types.Message{}, fmt.Errorf("encrypt message: %w", err)
	}

	msg := types.Message{
		ID:        uuid.NewString(),
		Receiver:  types.UserRef{ID: receiverID},
		Text:      text,
		Image:     imageURL,
		CreatedAt: time.Now().UnixMilli(),
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO messages (id, sender_id, receiver_id, text, image_url, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		msg.ID, senderID, receiverID, envelope, imageURL, msg.CreatedAt)
	if err != nil {
		return types.Message{}, fmt.Errorf("insert message: %w", err)
	}

	msg.Sender = s.senderRef(ctx, senderID)
	return msg, nil
}

// Conversation returns every message exchanged between the two users, in
// store order (created_at ascending, insertion order as tiebreaker), each
// decrypted.
//
// A record whose envelope no longer decrypts is returned with empty text and
// Undecryptable set instead of failing the whole fetch; one corrupt row must
// not hide the rest of the conversation.
func (s *Store) Conversation(ctx context.Context, userA, userB string) ([]types.Message, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT m.id, m.sender_id, m.receiver_id, m.text, m.image_url, m.created_at,
		        u.first_name, u.last_name, u.avatar_url
		 FROM messages m
		 JOIN users u ON u.id = m.sender_id
		 WHERE (m.sender_id = ? AND m.receiver_id = ?)
		    OR (m.sender_id = ? AND m.receiver_id = ?)
		 ORDER BY m.created_at ASC, m.rowid ASC`,
		userA, userB, userB, userA)
	if err != nil {
		return nil, fmt.Errorf("query conversation: %w", err)
	}
	defer rows.Close()

	messages := make([]types.Message, 0)
	for rows.Next() {
		var msg types.Message
		var envelope string
		if err := rows.Scan(&msg.ID, &msg.Sender.ID, &msg.Receiver.ID, &envelope,
			&msg.Image, &msg.CreatedAt,
			&msg.Sender.FirstName, &msg.Sender.LastName, &msg.Sender.AvatarURL); err != nil {
			return nil, fmt.Errorf("scan message row: %w", err)
		}

		text, err := s.cipher.Decrypt(envelope)
		if err != nil {
			logger.Warnf("Undecryptable message %s: %v", msg.ID, err)
			msg.Undecryptable = true
		} else {
			msg.Text = text
		}

		messages = append(messages, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate conversation: %w", err)
	}

	return messages, nil
}

// senderRef loads the sender's profile fields for payload expansion. Falls
// back to a raw reference when the profile read fails; the message itself is
// already durable at that point.
func (s *Store) senderRef(ctx context.Context, senderID string) types.UserRef {
	user, err := s.UserByID(ctx, senderID)
	if err != nil {
		logger.Warnf("Failed to expand sender %s: %v", senderID, err)
		return types.UserRef{ID: senderID}
	}
	return types.UserRef{
		ID:        user.ID,
		FirstName: user.FirstName,
		LastName:  user.LastName,
		AvatarURL: user.AvatarURL,
	}
}
