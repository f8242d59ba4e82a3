package acl

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type doc struct {
	ID    uint
	Owner uint
}

func (d doc) OwnerID() (uint, bool) { return d.Owner, d.Owner != 0 }

func TestRegistry_FailsClosed(t *testing.T) {
	reg := NewRegistry()
	admin := Actor{ID: 1, Roles: []Role{RoleAdmin}}

	assert.False(t, reg.CanDo(admin, "doc", ActionList), "unknown resource type")

	reg.MustRegister("doc", NewPolicy().Allow(ActionList, RoleRule(RoleAdmin)))
	assert.True(t, reg.CanDo(admin, "doc", ActionList))
	assert.False(t, reg.CanDo(admin, "doc", ActionDelete, doc{ID: 1}), "unbound action")
}

func TestRegistry_RejectsOwnershipOnResourcelessActions(t *testing.T) {
	for _, action := range []Action{ActionList, ActionCreate} {
		t.Run(string(action), func(t *testing.T) {
			err := NewRegistry().Register("doc", NewPolicy().
				Allow(action, Any(RoleRule(RoleAdmin), OwnershipRule())))
			assert.ErrorIs(t, err, ErrConfiguration)
		})
	}

	assert.Panics(t, func() {
		NewRegistry().MustRegister("doc", NewPolicy().Allow(ActionList, OwnershipRule()))
	})
	assert.Error(t, NewRegistry().Register("doc", nil))
}

func TestRegistry_ResourceActions(t *testing.T) {
	reg := NewRegistry().MustRegister("doc", NewPolicy().
		Allow(ActionRead, RoleRule(RoleAdmin)).
		Allow(ActionRead, OwnershipRule()).
		Allow(ActionDelete, All(RoleRule(RoleUser), OwnershipRule())))

	owner := Actor{ID: 5, Roles: []Role{RoleUser}}
	stranger := Actor{ID: 6, Roles: []Role{RoleUser}}
	admin := Actor{ID: 9, Roles: []Role{RoleAdmin}}

	assert.True(t, reg.CanDo(owner, "doc", ActionRead, doc{ID: 1, Owner: 5}))
	assert.False(t, reg.CanDo(stranger, "doc", ActionRead, doc{ID: 1, Owner: 5}))
	assert.True(t, reg.CanDo(admin, "doc", ActionRead, doc{ID: 1, Owner: 5}), "rules for one action are alternatives")

	t.Run("resource actions need a resource", func(t *testing.T) {
		assert.False(t, reg.CanDo(admin, "doc", ActionRead))
		assert.False(t, reg.CanDo(admin, "doc", ActionRead, nil))
		assert.False(t, reg.CanDo(admin, "doc", ActionRead, []doc{}))
	})
}

func TestRegistry_BulkIsAllOrNothing(t *testing.T) {
	reg := NewRegistry().MustRegister("doc", NewPolicy().
		Allow(ActionDelete, All(RoleRule(RoleUser), OwnershipRule())))
	actor := Actor{ID: 5, Roles: []Role{RoleUser}}

	mine := []doc{{ID: 1, Owner: 5}, {ID: 2, Owner: 5}}
	mixed := []doc{{ID: 1, Owner: 5}, {ID: 3, Owner: 6}}

	assert.True(t, reg.CanDo(actor, "doc", ActionDelete, mine))
	assert.False(t, reg.CanDo(actor, "doc", ActionDelete, mixed))
	assert.False(t, reg.CanDo(actor, "doc", ActionDelete, mine[0], mixed[1]), "variadic members are AND-ed too")

	ptrs := []*doc{{ID: 1, Owner: 5}, {ID: 2, Owner: 5}}
	assert.True(t, reg.CanDo(actor, "doc", ActionDelete, ptrs))

	t.Run("untyped slices", func(t *testing.T) {
		assert.True(t, reg.CanDo(actor, "doc", ActionDelete, []any{doc{ID: 1, Owner: 5}, &doc{ID: 2, Owner: 5}}))
		assert.False(t, reg.CanDo(actor, "doc", ActionDelete, []any{doc{ID: 1, Owner: 5}, doc{ID: 3, Owner: 6}}))
		assert.False(t, reg.CanDo(actor, "doc", ActionDelete, []any{doc{ID: 1, Owner: 5}, nil}))
	})

	t.Run("nil pointers deny", func(t *testing.T) {
		var missing *doc
		assert.NotPanics(t, func() {
			assert.False(t, reg.CanDo(actor, "doc", ActionDelete, missing))
			assert.False(t, reg.CanDo(actor, "doc", ActionDelete, []*doc{{ID: 1, Owner: 5}, nil}))
			assert.False(t, reg.CanDo(actor, "doc", ActionDelete, []any{missing}))
		})
	})
}

func TestDefaultRegistry(t *testing.T) {
	reg := DefaultRegistry()
	require.NotNil(t, reg)

	admin := Actor{ID: 1, Roles: []Role{RoleAdmin}}
	user := Actor{ID: 2, Roles: []Role{RoleUser}}
	nobody := Actor{ID: 3}

	assert.True(t, reg.CanDo(admin, ResourceMovie, ActionCreate))
	assert.False(t, reg.CanDo(user, ResourceMovie, ActionCreate))
	assert.True(t, reg.CanDo(user, ResourceMovie, ActionList))
	assert.False(t, reg.CanDo(nobody, ResourceMovie, ActionList))
	assert.False(t, reg.CanDo(user, ResourceMovie, ActionDelete, doc{ID: 1}))

	assert.True(t, reg.CanDo(user, ResourceTicket, ActionRead, doc{ID: 1, Owner: 2}))
	assert.False(t, reg.CanDo(admin, ResourceTicket, ActionRead, doc{ID: 1, Owner: 2}))
	assert.False(t, reg.CanDo(user, ResourceTicket, ActionUpdate, doc{ID: 1, Owner: 2}))
}
