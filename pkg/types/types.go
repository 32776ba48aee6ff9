package types

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Common response types

type ErrorResponse struct {
	Error string `json:"error"`
}

type SuccessResponse struct {
	Success bool `json:"success"`
}

// Live event names pushed over the websocket endpoint.
const (
	EventNewMessage = "newMessage"
)

// Event is the frame exchanged over the live endpoint.
type Event struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// UserRef identifies a user inside a wire payload. Server emissions may carry
// either a raw identifier string or an expanded object with profile fields;
// UserRef decodes both into one canonical form.
type UserRef struct {
	ID        string `json:"id"`
	FirstName string `json:"firstName,omitempty"`
	LastName  string `json:"lastName,omitempty"`
	AvatarURL string `json:"avatarUrl,omitempty"`
}

// Expanded reports whether the reference carries profile fields beyond the id.
func (r UserRef) Expanded() bool {
	return r.FirstName != "" || r.LastName != "" || r.AvatarURL != ""
}

// MarshalJSON emits a raw identifier string for bare references and an object
// for expanded ones, matching what clients receive from the server.
func (r UserRef) MarshalJSON() ([]byte, error) {
	if !r.Expanded() {
		return json.Marshal(r.ID)
	}
	type alias UserRef
	return json.Marshal(alias(r))
}

// UnmarshalJSON accepts either form.
func (r *UserRef) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		*r = UserRef{}
		return nil
	}
	if trimmed[0] == '"' {
		var id string
		if err := json.Unmarshal(trimmed, &id); err != nil {
			return fmt.Errorf("decode user ref: %w", err)
		}
		*r = UserRef{ID: id}
		return nil
	}
	type alias UserRef
	var decoded alias
	if err := json.Unmarshal(trimmed, &decoded); err != nil {
		return fmt.Errorf("decode user ref: %w", err)
	}
	*r = UserRef(decoded)
	return nil
}

// Message is the decrypted wire representation of a persisted message. Text
// is plaintext everywhere except at rest, where the store keeps only the
// cipher envelope.
type Message struct {
	ID            string  `json:"id"`
	Sender        UserRef `json:"senderId"`
	Receiver      UserRef `json:"receiverId"`
	Text          string  `json:"text,omitempty"`
	Image         string  `json:"image,omitempty"`
	CreatedAt     int64   `json:"createdAt"`
	Undecryptable bool    `json:"undecryptable,omitempty"`
}

// User is the sanitized profile projection returned to clients. It never
// carries the password hash.
type User struct {
	ID        string `json:"id"`
	Email     string `json:"email"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	AvatarURL string `json:"avatarUrl,omitempty"`
	CreatedAt int64  `json:"createdAt"`
}

// Auth types

type SignupRequest struct {
	Email     string `json:"email" binding:"required"`
	FirstName string `json:"firstName" binding:"required"`
	LastName  string `json:"lastName" binding:"required"`
	Password  string `json:"password" binding:"required"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type AuthResponse struct {
	Token string `json:"token"`
	User  User   `json:"user"`
}

// Message API types

type SendMessageRequest struct {
	Text  string `json:"text"`
	Image string `json:"image"` // inline data URL, uploaded before persisting
}

type UpdateProfileRequest struct {
	Avatar string `json:"avatar" binding:"required"` // inline data URL
}
