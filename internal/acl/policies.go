package acl

// Resource type names known to the default registry
const (
	ResourceMovie   = "movie"
	ResourceSession = "session"
	ResourceTicket  = "ticket"
)

// DefaultRegistry returns the policies the application runs with.
func DefaultRegistry() *Registry {
	anyone := RoleRule(RoleUser, RoleAdmin)
	admin := RoleRule(RoleAdmin)

	return NewRegistry().
		MustRegister(ResourceMovie, NewPolicy().
			Allow(ActionList, anyone).
			Allow(ActionRead, anyone).
			Allow(ActionCreate, admin).
			Allow(ActionUpdate, admin).
			Allow(ActionDelete, admin)).
		MustRegister(ResourceSession, NewPolicy().
			Allow(ActionList, anyone).
			Allow(ActionRead, anyone)).
		MustRegister(ResourceTicket, NewPolicy().
			Allow(ActionList, anyone).
			Allow(ActionRead, All(anyone, OwnershipRule())))
}
