package identity

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIdentity_HasRole(t *testing.T) {
	ident := Identity{SubjectID: "subject-1", Roles: []string{RoleAdmin, "custom"}}

	assert.True(t, ident.HasRole(RoleAdmin))
	assert.True(t, ident.HasRole("custom"))
	assert.False(t, ident.HasRole(RoleAuditor))
	assert.False(t, Identity{}.HasRole(RoleAdmin))
}

func TestIdentity_IsPrivileged(t *testing.T) {
	assert.True(t, Identity{Roles: []string{RoleAdmin}}.IsPrivileged())
	assert.True(t, Identity{Roles: []string{RoleAuditor}}.IsPrivileged())
	assert.True(t, Identity{Roles: []string{"other", RoleAuditor}}.IsPrivileged())
	assert.False(t, Identity{Roles: []string{"other"}}.IsPrivileged())
	assert.False(t, Identity{}.IsPrivileged())
}

func TestIdentityContext(t *testing.T) {
	t.Run("RoundTrip", func(t *testing.T) {
		ident := Identity{SubjectID: "subject-1", Roles: []string{RoleAuditor}}
		ctx := WithIdentity(context.Background(), ident)

		got, ok := GetIdentity(ctx)

		require.True(t, ok)
		assert.Equal(t, ident, got)
	})

	t.Run("MissingIdentity", func(t *testing.T) {
		_, ok := GetIdentity(context.Background())

		assert.False(t, ok)
	})
}
