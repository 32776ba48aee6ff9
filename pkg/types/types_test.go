package types

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestUserRef_DecodesRawID(t *testing.T) {
	var ref UserRef
	require.NoError(t, json.Unmarshal([]byte(`"user-1"`), &ref))
	require.Equal(t, "user-1", ref.ID)
	require.False(t, ref.Expanded())
}

func TestUserRef_DecodesExpandedObject(t *testing.T) {
	var ref UserRef
	raw := `{"id": "user-1", "firstName": "Ada", "lastName": "L", "avatarUrl": "/uploads/a.png"}`
	require.NoError(t, json.Unmarshal([]byte(raw), &ref))
	require.Equal(t, "user-1", ref.ID)
	require.Equal(t, "Ada", ref.FirstName)
	require.True(t, ref.Expanded())
}

func TestUserRef_MarshalMatchesShape(t *testing.T) {
	bare, err := json.Marshal(UserRef{ID: "user-1"})
	require.NoError(t, err)
	require.JSONEq(t, `"user-1"`, string(bare))

	expanded, err := json.Marshal(UserRef{ID: "user-1", FirstName: "Ada"})
	require.NoError(t, err)
	require.JSONEq(t, `{"id": "user-1", "firstName": "Ada"}`, string(expanded))
}

func TestMessage_MixedRefShapes(t *testing.T) {
	raw := `{
		"id": "m1",
		"senderId": {"id": "a", "firstName": "Ada"},
		"receiverId": "b",
		"text": "hi",
		"createdAt": 42
	}`
	var msg Message
	require.NoError(t, json.Unmarshal([]byte(raw), &msg))
	require.Equal(t, "a", msg.Sender.ID)
	require.Equal(t, "b", msg.Receiver.ID)
	require.Equal(t, int64(42), msg.CreatedAt)
}
