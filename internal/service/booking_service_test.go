package service

import (
	"context"
	"testing"

	"cinema/internal/acl"
	"cinema/internal/model"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBookingService_Scenario(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	admin := f.actor(t, "admin", acl.RoleAdmin)
	u1 := f.actor(t, "u1", acl.RoleUser)
	u2 := f.actor(t, "u2", acl.RoleUser)
	movie := f.createMovie(t, admin, "The Thing", 3)
	sessionID := movie.Sessions[0].ID

	first, err := f.booking.BuyTickets(ctx, u1, BuyTicketsRequest{MovieSessionID: sessionID, Amount: 2})
	require.NoError(t, err)
	require.Len(t, first.TicketIDs, 2)
	assert.Equal(t, "The Thing", first.Movie.Name)
	assert.Equal(t, sessionID, first.Session.SessionID)
	assert.True(t, decimal.RequireFromString("15").Equal(first.TotalPrice))

	_, err = f.booking.BuyTickets(ctx, u2, BuyTicketsRequest{MovieSessionID: sessionID, Amount: 2})
	require.ErrorIs(t, err, ErrInsufficientInventory)

	avail, err := f.booking.GetAvailability(ctx, u2, sessionID)
	require.NoError(t, err)
	assert.EqualValues(t, 1, avail.Available)
	assert.EqualValues(t, 2, avail.Sold)
	assert.EqualValues(t, 3, avail.Total)

	second, err := f.booking.BuyTickets(ctx, u2, BuyTicketsRequest{MovieSessionID: sessionID, Amount: 1})
	require.NoError(t, err)
	require.Len(t, second.TicketIDs, 1)

	ok, err := f.booking.WatchMovie(ctx, u1, WatchMovieRequest{TicketID: first.TicketIDs[0]})
	require.NoError(t, err)
	assert.True(t, ok)

	_, err = f.booking.WatchMovie(ctx, u1, WatchMovieRequest{TicketID: first.TicketIDs[0]})
	assert.ErrorIs(t, err, ErrNotRedeemable)

	_, err = f.booking.WatchMovie(ctx, u2, WatchMovieRequest{TicketID: first.TicketIDs[1]})
	assert.ErrorIs(t, err, ErrNotRedeemable)

	// ownership never moves
	for _, id := range first.TicketIDs {
		tk, err := f.tickets.FindByID(ctx, id)
		require.NoError(t, err)
		owner, _ := tk.OwnerID()
		assert.Equal(t, u1.ID, owner)
	}

	history, err := f.booking.ListWatched(ctx, u1, 10, 0)
	require.NoError(t, err)
	assert.EqualValues(t, 1, history.Total)
	require.Len(t, history.Movies, 1)
	assert.Equal(t, first.TicketIDs[0], history.Movies[0].TicketID)
	assert.Equal(t, "The Thing", history.Movies[0].Name)

	history, err = f.booking.ListWatched(ctx, u2, 10, 0)
	require.NoError(t, err)
	assert.Zero(t, history.Total)
	assert.Empty(t, history.Movies)
}

func TestBookingService_BuyTicketsRequiresAccount(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	admin := f.actor(t, "admin", acl.RoleAdmin)
	movie := f.createMovie(t, admin, "Solaris", 5)
	req := BuyTicketsRequest{MovieSessionID: movie.Sessions[0].ID, Amount: 1}

	_, err := f.booking.BuyTickets(ctx, acl.Actor{ID: admin.ID}, req)
	assert.ErrorIs(t, err, ErrUnauthenticated, "no role")

	_, err = f.booking.BuyTickets(ctx, acl.Actor{ID: 9999, Roles: []acl.Role{acl.RoleUser}}, req)
	assert.ErrorIs(t, err, ErrUnauthenticated, "unknown user")

	disabled := f.actor(t, "disabled", acl.RoleUser)
	require.NoError(t, f.db.Model(&model.User{}).Where("id = ?", disabled.ID).Update("is_account_disabled", true).Error)
	_, err = f.booking.BuyTickets(ctx, disabled, req)
	assert.ErrorIs(t, err, ErrUnauthenticated, "disabled account")

	_, err = f.booking.BuyTickets(ctx, admin, req)
	assert.NoError(t, err, "admins may buy too")
}

func TestBookingService_DisabledAccountCannotRedeemOrList(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	admin := f.actor(t, "admin", acl.RoleAdmin)
	viewer := f.actor(t, "viewer", acl.RoleUser)
	movie := f.createMovie(t, admin, "Solaris", 2)

	bought, err := f.booking.BuyTickets(ctx, viewer, BuyTicketsRequest{MovieSessionID: movie.Sessions[0].ID, Amount: 1})
	require.NoError(t, err)

	setDisabled := func(v bool) {
		require.NoError(t, f.db.Model(&model.User{}).Where("id = ?", viewer.ID).Update("is_account_disabled", v).Error)
	}

	setDisabled(true)
	_, err = f.booking.WatchMovie(ctx, viewer, WatchMovieRequest{TicketID: bought.TicketIDs[0]})
	assert.ErrorIs(t, err, ErrUnauthenticated)
	_, err = f.booking.ListWatched(ctx, viewer, 10, 0)
	assert.ErrorIs(t, err, ErrUnauthenticated)

	setDisabled(false)
	ok, err := f.booking.WatchMovie(ctx, viewer, WatchMovieRequest{TicketID: bought.TicketIDs[0]})
	require.NoError(t, err)
	assert.True(t, ok, "the ticket was left unused")

	history, err := f.booking.ListWatched(ctx, viewer, 10, 0)
	require.NoError(t, err)
	assert.EqualValues(t, 1, history.Total)
	assert.Len(t, history.Movies, 1)
}

func TestBookingService_BuyTicketsBroadcastsAndAudits(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	admin := f.actor(t, "admin", acl.RoleAdmin)
	buyer := f.actor(t, "buyer", acl.RoleUser)
	movie := f.createMovie(t, admin, "Brazil", 4)
	sessionID := movie.Sessions[0].ID

	_, err := f.booking.BuyTickets(ctx, buyer, BuyTicketsRequest{MovieSessionID: sessionID, Amount: 3})
	require.NoError(t, err)

	require.Len(t, f.hub.events, 1)
	assert.Equal(t, "TICKETS_SOLD", f.hub.events[0].name)
	assert.EqualValues(t, sessionID, f.hub.events[0].data["session_id"])
	assert.EqualValues(t, 1, f.hub.events[0].data["available"])

	logs, _, err := f.auditRepo.List(ctx, 10, 0)
	require.NoError(t, err)
	var actions []string
	for _, l := range logs {
		actions = append(actions, l.Action)
	}
	assert.Contains(t, actions, model.ActionBuyTickets)
	assert.Contains(t, actions, model.ActionCreateMovie)
}

func TestBookingService_AvailabilityNotFound(t *testing.T) {
	f := newFixture(t)
	user := f.actor(t, "user", acl.RoleUser)

	_, err := f.booking.GetAvailability(context.Background(), user, 31337)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = f.booking.GetAvailability(context.Background(), acl.Actor{ID: user.ID}, 31337)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestBookingService_WatchMovieDeniedByPolicy(t *testing.T) {
	// a registry without ticket read rules denies even the rightful owner
	policies := acl.NewRegistry().
		MustRegister(acl.ResourceMovie, acl.NewPolicy().Allow(acl.ActionCreate, acl.RoleRule(acl.RoleAdmin))).
		MustRegister(acl.ResourceTicket, acl.NewPolicy().Allow(acl.ActionList, acl.RoleRule(acl.RoleUser)))
	f := newFixtureWithPolicies(t, policies)
	ctx := context.Background()
	admin := f.actor(t, "admin", acl.RoleAdmin)
	buyer := f.actor(t, "buyer", acl.RoleUser)
	movie := f.createMovie(t, admin, "Fargo", 1)

	res, err := f.booking.BuyTickets(ctx, buyer, BuyTicketsRequest{MovieSessionID: movie.Sessions[0].ID, Amount: 1})
	require.NoError(t, err)

	_, err = f.booking.WatchMovie(ctx, buyer, WatchMovieRequest{TicketID: res.TicketIDs[0]})
	assert.ErrorIs(t, err, ErrUnauthorized)

	tk, err := f.tickets.FindByID(ctx, res.TicketIDs[0])
	require.NoError(t, err)
	assert.False(t, tk.IsUsed, "denied redemption is rolled back")
}
