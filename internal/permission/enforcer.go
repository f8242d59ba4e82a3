// Package permission gates HTTP routes with casbin. It answers the coarse
// question "may this role touch this route resource"; per-entity decisions
// stay with the acl registry.
package permission

import (
	"fmt"
	"log/slog"
	"sync"

	"cinema/internal/acl"

	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"
	gormadapter "github.com/casbin/gorm-adapter/v3"
	"gorm.io/gorm"
)

// Route resources and verbs known to the gate
const (
	ObjMovies   = "movies"
	ObjSessions = "sessions"
	ObjTickets  = "tickets"
	ObjProfile  = "profile"
	ObjAudit    = "audit"
	ObjUsers    = "users"

	ActRead  = "read"
	ActWrite = "write"
)

const modelText = `
[request_definition]
r = sub, obj, act

[policy_definition]
p = sub, obj, act

[policy_effect]
e = some(where (p.eft == allow))

[matchers]
m = r.sub == p.sub && r.obj == p.obj && r.act == p.act
`

// DefaultPolicies is the route table seeded on startup
var DefaultPolicies = [][]string{
	{string(acl.RoleAdmin), ObjMovies, ActRead},
	{string(acl.RoleAdmin), ObjMovies, ActWrite},
	{string(acl.RoleAdmin), ObjSessions, ActRead},
	{string(acl.RoleAdmin), ObjTickets, ActRead},
	{string(acl.RoleAdmin), ObjTickets, ActWrite},
	{string(acl.RoleAdmin), ObjProfile, ActRead},
	{string(acl.RoleAdmin), ObjAudit, ActRead},
	{string(acl.RoleAdmin), ObjUsers, ActRead},
	{string(acl.RoleAdmin), ObjUsers, ActWrite},

	{string(acl.RoleUser), ObjMovies, ActRead},
	{string(acl.RoleUser), ObjSessions, ActRead},
	{string(acl.RoleUser), ObjTickets, ActRead},
	{string(acl.RoleUser), ObjTickets, ActWrite},
	{string(acl.RoleUser), ObjProfile, ActRead},
}

type Enforcer struct {
	enforcer *casbin.Enforcer
	mu       sync.RWMutex
}

// NewEnforcer returns an enforcer whose policies are stored in the casbin_rule table
func NewEnforcer(db *gorm.DB) (*Enforcer, error) {
	adapter, err := gormadapter.NewAdapterByDB(db)
	if err != nil {
		return nil, fmt.Errorf("failed to create casbin adapter: %w", err)
	}

	m, err := model.NewModelFromString(modelText)
	if err != nil {
		return nil, fmt.Errorf("failed to parse casbin model: %w", err)
	}

	enforcer, err := casbin.NewEnforcer(m, adapter)
	if err != nil {
		return nil, fmt.Errorf("failed to create casbin enforcer: %w", err)
	}

	if err := enforcer.LoadPolicy(); err != nil {
		return nil, fmt.Errorf("failed to load policy: %w", err)
	}

	return &Enforcer{enforcer: enforcer}, nil
}

// NewMemoryEnforcer returns an enforcer without persistence
func NewMemoryEnforcer() (*Enforcer, error) {
	m, err := model.NewModelFromString(modelText)
	if err != nil {
		return nil, fmt.Errorf("failed to parse casbin model: %w", err)
	}

	enforcer, err := casbin.NewEnforcer(m)
	if err != nil {
		return nil, fmt.Errorf("failed to create casbin enforcer: %w", err)
	}
	return &Enforcer{enforcer: enforcer}, nil
}

// Seed adds the given policies. Existing policies are left untouched.
func (e *Enforcer) Seed(policies [][]string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	added := 0
	for _, policy := range policies {
		ok, err := e.enforcer.AddPolicy(policy)
		if err != nil {
			return fmt.Errorf("failed to add policy %v: %w", policy, err)
		}
		if ok {
			added++
		}
	}

	if added > 0 {
		slog.Info("route permissions seeded", "added", added)
	}
	return nil
}

// Allow reports whether any of roles may perform act on obj
func (e *Enforcer) Allow(roles []acl.Role, obj, act string) bool {
	e.mu.RLock()
	defer e.mu.RUnlock()

	for _, role := range roles {
		allowed, err := e.enforcer.Enforce(string(role), obj, act)
		if err != nil {
			slog.Error("permission check failed", "error", err, "role", role, "resource", obj, "action", act)
			return false
		}
		if allowed {
			return true
		}
	}
	return false
}
