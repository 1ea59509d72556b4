package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUser_SetPasswordLifecycle(t *testing.T) {
	u := &User{Password: "old-digest"}
	assert.False(t, u.PasswordChanged())

	u.SetPassword("s3cret")
	assert.True(t, u.PasswordChanged())
	assert.Equal(t, "s3cret", u.PendingPassword())
	assert.Equal(t, "old-digest", u.Password)

	u.ApplyPasswordHash("new-digest")
	assert.False(t, u.PasswordChanged())
	assert.Empty(t, u.PendingPassword())
	assert.Equal(t, "new-digest", u.Password)
}

func TestUser_PublicOmitsSecrets(t *testing.T) {
	u := &User{
		ID:           "id-1",
		Username:     "alice",
		Email:        "alice@example.com",
		FullName:     "Alice",
		Avatar:       "http://media/a.png",
		Password:     "digest",
		RefreshToken: "refresh",
	}

	b, err := json.Marshal(u.Public())
	require.NoError(t, err)

	var m map[string]any
	require.NoError(t, json.Unmarshal(b, &m))

	assert.Equal(t, "id-1", m["_id"])
	assert.Equal(t, "alice", m["username"])
	assert.NotContains(t, m, "password")
	assert.NotContains(t, m, "refreshToken")
	assert.NotContains(t, string(b), "digest")
}
