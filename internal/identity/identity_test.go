package identity

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedStore(t *testing.T) *Store {
	t.Helper()
	hash, err := HashPassword("hunter2")
	require.NoError(t, err)
	return NewStore([]Credential{
		{Username: "alice", DisplayName: "Alice Example", PasswordHash: hash},
		{Username: "bob", PasswordHash: hash},
	})
}

func TestLogin(t *testing.T) {
	s := seedStore(t)

	t.Run("valid credentials issue a token", func(t *testing.T) {
		token, err := s.Login("alice", "hunter2")
		require.NoError(t, err)
		assert.NotEmpty(t, token)
	})

	t.Run("tokens are unique per session", func(t *testing.T) {
		t1, err := s.Login("alice", "hunter2")
		require.NoError(t, err)
		t2, err := s.Login("alice", "hunter2")
		require.NoError(t, err)
		assert.NotEqual(t, t1, t2)
	})

	t.Run("wrong password", func(t *testing.T) {
		_, err := s.Login("alice", "wrong")
		assert.ErrorIs(t, err, ErrUnauthenticated)
	})

	t.Run("unknown user", func(t *testing.T) {
		_, err := s.Login("mallory", "hunter2")
		assert.ErrorIs(t, err, ErrUnauthenticated)
	})
}

func TestResolve(t *testing.T) {
	s := seedStore(t)

	t.Run("token resolves to identity", func(t *testing.T) {
		token, err := s.Login("alice", "hunter2")
		require.NoError(t, err)

		id, err := s.Resolve(token)
		require.NoError(t, err)
		assert.Equal(t, "alice", id.ID)
		assert.Equal(t, "Alice Example", id.DisplayName)
	})

	t.Run("display name defaults to username", func(t *testing.T) {
		token, err := s.Login("bob", "hunter2")
		require.NoError(t, err)

		id, err := s.Resolve(token)
		require.NoError(t, err)
		assert.Equal(t, "bob", id.DisplayName)
	})

	t.Run("empty token", func(t *testing.T) {
		_, err := s.Resolve("")
		assert.ErrorIs(t, err, ErrUnauthenticated)
	})

	t.Run("unknown token", func(t *testing.T) {
		_, err := s.Resolve("not-a-real-token")
		assert.ErrorIs(t, err, ErrUnauthenticated)
	})
}
