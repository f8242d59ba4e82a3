package permission

import (
	"testing"

	"cinema/internal/acl"
	"cinema/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnforcer_DefaultPolicies(t *testing.T) {
	e, err := NewMemoryEnforcer()
	require.NoError(t, err)
	require.NoError(t, e.Seed(DefaultPolicies))

	admin := []acl.Role{acl.RoleAdmin}
	user := []acl.Role{acl.RoleUser}

	assert.True(t, e.Allow(admin, ObjMovies, ActWrite))
	assert.True(t, e.Allow(admin, ObjAudit, ActRead))
	assert.True(t, e.Allow(user, ObjMovies, ActRead))
	assert.True(t, e.Allow(user, ObjTickets, ActWrite))
	assert.False(t, e.Allow(user, ObjMovies, ActWrite))
	assert.False(t, e.Allow(user, ObjAudit, ActRead))
	assert.True(t, e.Allow(admin, ObjUsers, ActWrite))
	assert.False(t, e.Allow(user, ObjUsers, ActRead))
	assert.False(t, e.Allow(user, ObjUsers, ActWrite))
	assert.False(t, e.Allow(nil, ObjMovies, ActRead))
	assert.True(t, e.Allow([]acl.Role{acl.RoleUser, acl.RoleAdmin}, ObjAudit, ActRead), "roles are additive")
}

func TestEnforcer_SeedIsIdempotent(t *testing.T) {
	e, err := NewMemoryEnforcer()
	require.NoError(t, err)

	require.NoError(t, e.Seed(DefaultPolicies))
	require.NoError(t, e.Seed(DefaultPolicies))
	assert.True(t, e.Allow([]acl.Role{acl.RoleUser}, ObjProfile, ActRead))
}

func TestEnforcer_PersistsThroughGorm(t *testing.T) {
	db := testutil.NewDB(t)

	e, err := NewEnforcer(db)
	require.NoError(t, err)
	require.NoError(t, e.Seed(DefaultPolicies))

	reloaded, err := NewEnforcer(db)
	require.NoError(t, err)
	assert.True(t, reloaded.Allow([]acl.Role{acl.RoleAdmin}, ObjMovies, ActWrite))
	assert.False(t, reloaded.Allow([]acl.Role{acl.RoleUser}, ObjMovies, ActWrite))
}
