package acl

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type ownedThing struct {
	owner    uint
	hasOwner bool
}

func (o ownedThing) OwnerID() (uint, bool) { return o.owner, o.hasOwner }

type plainThing struct{}

func TestEvaluate_RoleRule(t *testing.T) {
	tests := []struct {
		name  string
		rule  Rule
		actor Actor
		want  bool
	}{
		{"matching role", RoleRule(RoleAdmin), Actor{ID: 1, Roles: []Role{RoleAdmin}}, true},
		{"one of several", RoleRule(RoleUser, RoleAdmin), Actor{ID: 1, Roles: []Role{RoleUser}}, true},
		{"missing role", RoleRule(RoleAdmin), Actor{ID: 1, Roles: []Role{RoleUser}}, false},
		{"no roles", RoleRule(RoleUser), Actor{ID: 1}, false},
		{"empty rule", RoleRule(), Actor{ID: 1, Roles: []Role{RoleUser}}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Evaluate(tt.rule, tt.actor, nil)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestEvaluate_OwnershipRule(t *testing.T) {
	actor := Actor{ID: 7, Roles: []Role{RoleUser}}

	t.Run("owner matches", func(t *testing.T) {
		got, err := Evaluate(OwnershipRule(), actor, ownedThing{owner: 7, hasOwner: true})
		require.NoError(t, err)
		assert.True(t, got)
	})

	t.Run("different owner", func(t *testing.T) {
		got, err := Evaluate(OwnershipRule(), actor, ownedThing{owner: 8, hasOwner: true})
		require.NoError(t, err)
		assert.False(t, got)
	})

	t.Run("unowned resource", func(t *testing.T) {
		got, err := Evaluate(OwnershipRule(), Actor{ID: 0}, ownedThing{})
		require.NoError(t, err)
		assert.False(t, got)
	})

	t.Run("resource without owner relation", func(t *testing.T) {
		got, err := Evaluate(OwnershipRule(), actor, plainThing{})
		require.NoError(t, err)
		assert.False(t, got)
	})

	t.Run("no resource is a configuration error", func(t *testing.T) {
		_, err := Evaluate(OwnershipRule(), actor, nil)
		assert.ErrorIs(t, err, ErrConfiguration)
	})
}

func TestEvaluate_Composite(t *testing.T) {
	user := Actor{ID: 3, Roles: []Role{RoleUser}}
	mine := ownedThing{owner: 3, hasOwner: true}
	theirs := ownedThing{owner: 4, hasOwner: true}

	t.Run("all requires every rule", func(t *testing.T) {
		rule := All(RoleRule(RoleUser), OwnershipRule())

		got, err := Evaluate(rule, user, mine)
		require.NoError(t, err)
		assert.True(t, got)

		got, err = Evaluate(rule, user, theirs)
		require.NoError(t, err)
		assert.False(t, got)
	})

	t.Run("all fails fast before ownership", func(t *testing.T) {
		// the ownership rule would error on a nil resource if it were reached
		got, err := Evaluate(All(RoleRule(RoleAdmin), OwnershipRule()), user, nil)
		require.NoError(t, err)
		assert.False(t, got)
	})

	t.Run("any succeeds fast", func(t *testing.T) {
		got, err := Evaluate(Any(RoleRule(RoleUser), OwnershipRule()), user, nil)
		require.NoError(t, err)
		assert.True(t, got)
	})

	t.Run("any falls through to ownership", func(t *testing.T) {
		got, err := Evaluate(Any(RoleRule(RoleAdmin), OwnershipRule()), user, theirs)
		require.NoError(t, err)
		assert.False(t, got)
	})

	t.Run("empty composites deny", func(t *testing.T) {
		got, err := Evaluate(All(), user, mine)
		require.NoError(t, err)
		assert.False(t, got)

		got, err = Evaluate(Any(), user, mine)
		require.NoError(t, err)
		assert.False(t, got)
	})

	t.Run("zero rule is a configuration error", func(t *testing.T) {
		_, err := Evaluate(Rule{}, user, mine)
		assert.ErrorIs(t, err, ErrConfiguration)
	})
}

func TestRule_NeedsResource(t *testing.T) {
	assert.False(t, RoleRule(RoleAdmin).NeedsResource())
	assert.True(t, OwnershipRule().NeedsResource())
	assert.True(t, Any(RoleRule(RoleAdmin), All(RoleRule(RoleUser), OwnershipRule())).NeedsResource())
	assert.False(t, All(RoleRule(RoleAdmin), RoleRule(RoleUser)).NeedsResource())
}
