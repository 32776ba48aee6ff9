package crypto

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestJWTManager_RoundTrip(t *testing.T) {
	m, err := NewJWTManager("test-master-secret")
	require.NoError(t, err)

	token, err := m.CreateToken("user-1")
	require.NoError(t, err)

	claims, err := m.VerifyToken(token)
	require.NoError(t, err)
	require.Equal(t, "user-1", claims.UserID)
	require.Equal(t, "user-1", claims.Subject)
}

func TestJWTManager_RejectsForeignToken(t *testing.T) {
	m1, err := NewJWTManager("secret-one")
	require.NoError(t, err)
	m2, err := NewJWTManager("secret-two")
	require.NoError(t, err)

	token, err := m1.CreateToken("user-1")
	require.NoError(t, err)

	_, err = m2.VerifyToken(token)
	require.Error(t, err)
}

func TestNewJWTManager_EmptySecret(t *testing.T) {
	_, err := NewJWTManager("")
	require.Error(t, err)
}
