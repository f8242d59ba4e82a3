package acl

import (
	"fmt"
	"log/slog"
	"reflect"
	"sync"
)

// Policy binds actions of one resource type to rules. Rules bound to the same
// action are alternatives: any matching rule grants the action.
type Policy struct {
	rules map[Action][]Rule
	err   error
}

func NewPolicy() *Policy {
	return &Policy{rules: make(map[Action][]Rule)}
}

// Allow binds rule to action. A rule that needs a resource bound to a list or
// create action is recorded as a configuration error and surfaces on Register.
func (p *Policy) Allow(action Action, rule Rule) *Policy {
	if action.WithoutResource() && rule.NeedsResource() {
		if p.err == nil {
			p.err = fmt.Errorf("%w: %s bound to %q, which carries no resource", ErrConfiguration, rule, action)
		}
		return p
	}
	p.rules[action] = append(p.rules[action], rule)
	return p
}

// Registry maps resource types to policies. Unconfigured lookups deny.
type Registry struct {
	mu       sync.RWMutex
	policies map[string]*Policy
}

func NewRegistry() *Registry {
	return &Registry{policies: make(map[string]*Policy)}
}

// Register installs the policy for resourceType
func (r *Registry) Register(resourceType string, policy *Policy) error {
	if policy == nil {
		return fmt.Errorf("%w: nil policy for %q", ErrConfiguration, resourceType)
	}
	if policy.err != nil {
		return fmt.Errorf("policy %q: %w", resourceType, policy.err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.policies[resourceType] = policy
	return nil
}

// MustRegister is Register for startup wiring; it panics on a misconfigured policy.
func (r *Registry) MustRegister(resourceType string, policy *Policy) *Registry {
	if err := r.Register(resourceType, policy); err != nil {
		panic(err)
	}
	return r
}

// CanDo decides whether actor may perform action on resources of resourceType.
//
// List and create are decided without a resource and ignore resources. Every
// other action needs at least one resource; a collection is granted only when
// each member is.
func (r *Registry) CanDo(actor Actor, resourceType string, action Action, resources ...any) bool {
	r.mu.RLock()
	policy, ok := r.policies[resourceType]
	r.mu.RUnlock()
	if !ok {
		return false
	}

	rules := policy.rules[action]
	if len(rules) == 0 {
		return false
	}

	if action.WithoutResource() {
		return r.anyRule(rules, actor, resourceType, action, nil)
	}

	resources = flatten(resources)
	if len(resources) == 0 {
		return false
	}
	for _, res := range resources {
		if res == nil || !r.anyRule(rules, actor, resourceType, action, res) {
			return false
		}
	}
	return true
}

func (r *Registry) anyRule(rules []Rule, actor Actor, resourceType string, action Action, resource any) bool {
	for _, rule := range rules {
		allowed, err := Evaluate(rule, actor, resource)
		if err != nil {
			slog.Error("authorization rule failed to evaluate",
				"resource_type", resourceType, "action", action, "rule", rule.String(), "error", err)
			return false
		}
		if allowed {
			return true
		}
	}
	return false
}

// flatten expands slice arguments so callers can pass either items or a slice
// of items. Nil pointers and nil interfaces come out as nil.
func flatten(resources []any) []any {
	out := make([]any, 0, len(resources))
	for _, res := range resources {
		v := reflect.ValueOf(res)
		if v.Kind() != reflect.Slice {
			out = append(out, resourceOf(v))
			continue
		}
		for i := 0; i < v.Len(); i++ {
			out = append(out, resourceOf(v.Index(i)))
		}
	}
	return out
}

func resourceOf(v reflect.Value) any {
	for v.Kind() == reflect.Interface {
		if v.IsNil() {
			return nil
		}
		v = v.Elem()
	}
	switch {
	case !v.IsValid():
		return nil
	case v.Kind() == reflect.Pointer:
		if v.IsNil() {
			return nil
		}
	case v.CanAddr():
		v = v.Addr()
	}
	return v.Interface()
}
