package acl

import (
	"errors"
	"fmt"
)

// ErrConfiguration is returned when a rule is applied where it cannot be evaluated,
// e.g. an ownership rule bound to an action that carries no resource.
var ErrConfiguration = errors.New("acl: rule misconfigured")

// Role is an additive capability tag carried by an Actor
type Role string

const (
	RoleAdmin Role = "ADMIN"
	RoleUser  Role = "USER"
)

// Valid reports whether r is one of the known roles
func (r Role) Valid() bool {
	return r == RoleAdmin || r == RoleUser
}

// Action is an operation requested against a resource type
type Action string

const (
	ActionCreate Action = "create"
	ActionRead   Action = "read"
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
	ActionList   Action = "list"
)

// WithoutResource reports whether the action is authorized on type and role only.
func (a Action) WithoutResource() bool {
	return a == ActionList || a == ActionCreate
}

// Actor identifies the caller for an authorization decision
type Actor struct {
	ID    uint
	Roles []Role
}

// HasAnyRole reports whether the actor carries at least one of roles
func (a Actor) HasAnyRole(roles ...Role) bool {
	for _, have := range a.Roles {
		for _, want := range roles {
			if have == want {
				return true
			}
		}
	}
	return false
}

// Owned is implemented by resources that expose an owner relation.
// The bool result is false when the resource currently has no owner.
type Owned interface {
	OwnerID() (uint, bool)
}

type ruleKind int

const (
	kindRole ruleKind = iota + 1
	kindOwnership
	kindAll
	kindAny
)

// Rule is a declarative predicate over (actor, resource).
// Build rules with RoleRule, OwnershipRule, All and Any.
type Rule struct {
	kind  ruleKind
	roles []Role
	rules []Rule
}

// RoleRule matches actors that carry at least one of roles
func RoleRule(roles ...Role) Rule {
	return Rule{kind: kindRole, roles: roles}
}

// OwnershipRule matches when the resource's owner is the actor
func OwnershipRule() Rule {
	return Rule{kind: kindOwnership}
}

// All matches when every sub-rule matches
func All(rules ...Rule) Rule {
	return Rule{kind: kindAll, rules: rules}
}

// Any matches when at least one sub-rule matches
func Any(rules ...Rule) Rule {
	return Rule{kind: kindAny, rules: rules}
}

// NeedsResource reports whether evaluation can reach an ownership check.
func (r Rule) NeedsResource() bool {
	if r.kind == kindOwnership {
		return true
	}
	for _, sub := range r.rules {
		if sub.NeedsResource() {
			return true
		}
	}
	return false
}

func (r Rule) String() string {
	switch r.kind {
	case kindRole:
		return fmt.Sprintf("role%v", r.roles)
	case kindOwnership:
		return "owner"
	case kindAll:
		return fmt.Sprintf("all%v", r.rules)
	case kindAny:
		return fmt.Sprintf("any%v", r.rules)
	}
	return "invalid"
}

// Evaluate decides rule for actor against resource. resource is nil for
// list-style actions. The only error is ErrConfiguration.
func Evaluate(rule Rule, actor Actor, resource any) (bool, error) {
	switch rule.kind {
	case kindRole:
		return actor.HasAnyRole(rule.roles...), nil

	case kindOwnership:
		if resource == nil {
			return false, fmt.Errorf("%w: ownership rule evaluated without a resource", ErrConfiguration)
		}
		owned, ok := resource.(Owned)
		if !ok {
			return false, nil
		}
		ownerID, ok := owned.OwnerID()
		return ok && ownerID == actor.ID, nil

	case kindAll:
		if len(rule.rules) == 0 {
			return false, nil
		}
		for _, sub := range rule.rules {
			allowed, err := Evaluate(sub, actor, resource)
			if err != nil || !allowed {
				return false, err
			}
		}
		return true, nil

	case kindAny:
		for _, sub := range rule.rules {
			allowed, err := Evaluate(sub, actor, resource)
			if err != nil {
				return false, err
			}
			if allowed {
				return true, nil
			}
		}
		return false, nil
	}

	return false, fmt.Errorf("%w: unknown rule kind %d", ErrConfiguration, rule.kind)
}
