package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"cinema/internal/acl"
	"cinema/internal/auth"
	"cinema/internal/model"
	"cinema/internal/repository"
	"cinema/internal/testutil"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type recordedEvent struct {
	name string
	data map[string]interface{}
}

type fakeBroadcaster struct {
	mu     sync.Mutex
	events []recordedEvent
}

func (f *fakeBroadcaster) Broadcast(event string, data map[string]interface{}) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, recordedEvent{name: event, data: data})
}

type fixture struct {
	db        *gorm.DB
	users     repository.UserRepository
	movieRepo repository.MovieRepository
	tickets   repository.TicketRepository
	auditRepo repository.AuditRepository
	txManager repository.TransactionManager

	audit     AuditService
	allocator *Allocator
	redeemer  *Redeemer
	movies    MovieService
	booking   BookingService
	userSvc   UserService
	hub       *fakeBroadcaster
}

func newFixture(t *testing.T) *fixture {
	return newFixtureWithPolicies(t, acl.DefaultRegistry())
}

func newFixtureWithPolicies(t *testing.T, policies *acl.Registry) *fixture {
	t.Helper()
	db := testutil.NewDB(t)

	f := &fixture{
		db:        db,
		users:     repository.NewUserRepository(db),
		movieRepo: repository.NewMovieRepository(db),
		tickets:   repository.NewTicketRepository(db),
		auditRepo: repository.NewAuditRepository(db),
		txManager: repository.NewTransactionManager(db),
		hub:       &fakeBroadcaster{},
	}
	f.audit = NewAuditService(f.auditRepo)
	f.allocator = NewAllocator(f.tickets, f.txManager, 3)
	f.redeemer = NewRedeemer(f.tickets, f.txManager)
	f.movies = NewMovieService(f.movieRepo, f.tickets, policies, f.audit, f.txManager)
	f.booking = NewBookingService(f.users, f.tickets, f.movieRepo, f.allocator, f.redeemer, policies, f.audit, f.hub)
	f.userSvc = NewUserService(f.users, auth.NewTokenIssuer("test-secret", time.Hour), f.audit)
	return f
}

// actor stores a user with roles and returns the matching actor
func (f *fixture) actor(t *testing.T, username string, roles ...acl.Role) acl.Actor {
	t.Helper()
	names := make([]string, len(roles))
	for i, r := range roles {
		names[i] = string(r)
	}
	u := &model.User{Username: username, Password: "x", Age: 30, Roles: names}
	require.NoError(t, f.users.Create(context.Background(), u))
	return acl.Actor{ID: u.ID, Roles: roles}
}

// createMovie creates a movie through the service with one session per capacity
func (f *fixture) createMovie(t *testing.T, admin acl.Actor, name string, capacities ...int) MovieResponse {
	t.Helper()
	req := CreateMovieRequest{Name: name, Description: name + " description", MinAge: 12}
	for i, c := range capacities {
		req.Sessions = append(req.Sessions, CreateSessionRequest{
			RoomNumber:       i + 1,
			TotalTicketCount: c,
			Date:             time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC),
			TimeSlot:         model.TimeSlot3,
			TicketPrice:      decimal.RequireFromString("7.50"),
		})
	}
	res, err := f.movies.CreateMovies(context.Background(), admin, CreateMoviesRequest{Movies: []CreateMovieRequest{req}})
	require.NoError(t, err)
	require.Len(t, res, 1)
	return res[0]
}
