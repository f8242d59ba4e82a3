package repository

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"cinema/internal/model"
	"cinema/internal/testutil"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func seedUser(t *testing.T, db *gorm.DB, username string) *model.User {
	t.Helper()
	u := &model.User{Username: username, Password: "x", Age: 20, Roles: []string{"USER"}}
	require.NoError(t, db.Create(u).Error)
	return u
}

// seedMovie creates one movie with a session per capacity entry
func seedMovie(t *testing.T, db *gorm.DB, name string, capacities ...int) *model.Movie {
	t.Helper()
	m := model.Movie{Name: name, Description: name + " description"}
	for i, c := range capacities {
		m.Sessions = append(m.Sessions, model.Session{
			RoomNumber:  i + 1,
			Date:        time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
			TimeSlot:    model.TimeSlot1,
			TicketPrice: decimal.NewFromInt(10),
			Tickets:     model.NewTicketPool(c),
		})
	}
	movies := []model.Movie{m}
	require.NoError(t, NewMovieRepository(db).Create(context.Background(), movies))
	return &movies[0]
}

func TestTicketRepository_ClaimIsGuarded(t *testing.T) {
	db := testutil.NewDB(t)
	ctx := context.Background()
	repo := NewTicketRepository(db)

	alice := seedUser(t, db, "alice")
	bob := seedUser(t, db, "bob")
	movie := seedMovie(t, db, "Heat", 3)
	sessionID := movie.Sessions[0].ID

	free, err := repo.FindAvailable(ctx, sessionID, 2)
	require.NoError(t, err)
	require.Len(t, free, 2)
	assert.Less(t, free[0].ID, free[1].ID, "lowest ids first")

	n, err := repo.Claim(ctx, []uint{free[0].ID, free[1].ID}, alice.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)

	n, err = repo.Claim(ctx, []uint{free[0].ID}, bob.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 0, n, "owned tickets are never reassigned")

	ticket, err := repo.FindByID(ctx, free[0].ID)
	require.NoError(t, err)
	owner, ok := ticket.OwnerID()
	assert.True(t, ok)
	assert.Equal(t, alice.ID, owner)
	require.NotNil(t, ticket.Session)
	require.NotNil(t, ticket.Session.Movie)
	assert.Equal(t, "Heat", ticket.Session.Movie.Name)

	free, err = repo.FindAvailable(ctx, sessionID, 5)
	require.NoError(t, err)
	assert.Len(t, free, 1)
}

func TestTicketRepository_MarkUsed(t *testing.T) {
	db := testutil.NewDB(t)
	ctx := context.Background()
	repo := NewTicketRepository(db)

	alice := seedUser(t, db, "alice")
	bob := seedUser(t, db, "bob")
	movie := seedMovie(t, db, "Alien", 2)

	free, err := repo.FindAvailable(ctx, movie.Sessions[0].ID, 2)
	require.NoError(t, err)
	_, err = repo.Claim(ctx, []uint{free[0].ID}, alice.ID)
	require.NoError(t, err)

	n, err := repo.MarkUsed(ctx, free[0].ID, bob.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 0, n, "not the owner")

	n, err = repo.MarkUsed(ctx, free[1].ID, alice.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 0, n, "unowned ticket")

	n, err = repo.MarkUsed(ctx, free[0].ID, alice.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	n, err = repo.MarkUsed(ctx, free[0].ID, alice.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 0, n, "already used")

	used, total, err := repo.ListUsedByUser(ctx, alice.ID, 10, 0)
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	require.Len(t, used, 1)
	assert.Equal(t, "Alien", used[0].Session.Movie.Name)
}

func TestTicketRepository_PoolStats(t *testing.T) {
	db := testutil.NewDB(t)
	ctx := context.Background()
	repo := NewTicketRepository(db)

	alice := seedUser(t, db, "alice")
	movie := seedMovie(t, db, "Ran", 4, 2)
	first, second := movie.Sessions[0].ID, movie.Sessions[1].ID

	free, err := repo.FindAvailable(ctx, first, 3)
	require.NoError(t, err)
	_, err = repo.Claim(ctx, []uint{free[0].ID, free[1].ID, free[2].ID}, alice.ID)
	require.NoError(t, err)

	stats, err := repo.PoolStats(ctx, first, second, 9999)
	require.NoError(t, err)

	assert.Equal(t, PoolStats{SessionID: first, Total: 4, Available: 1}, stats[first])
	assert.EqualValues(t, 3, stats[first].Sold())
	assert.Equal(t, PoolStats{SessionID: second, Total: 2, Available: 2}, stats[second])
	assert.Equal(t, PoolStats{SessionID: 9999}, stats[9999])
}

func TestTicketRepository_LockSession(t *testing.T) {
	db := testutil.NewDB(t)
	repo := NewTicketRepository(db)
	tx := NewTransactionManager(db)
	movie := seedMovie(t, db, "Ikiru", 1)

	err := tx.RunInTx(context.Background(), func(txCtx context.Context) error {
		session, err := repo.LockSession(txCtx, movie.Sessions[0].ID)
		require.NoError(t, err)
		assert.Equal(t, movie.ID, session.MovieID)

		_, err = repo.LockSession(txCtx, 424242)
		assert.True(t, IsNotFound(err))
		return nil
	})
	require.NoError(t, err)
}

func TestMovieRepository_DeleteCascades(t *testing.T) {
	db := testutil.NewDB(t)
	ctx := context.Background()
	movies := NewMovieRepository(db)

	keep := seedMovie(t, db, "Keep", 2)
	gone := seedMovie(t, db, "Gone", 3, 1)

	require.NoError(t, movies.Delete(ctx, []uint{gone.ID}))

	_, err := movies.FindByID(ctx, gone.ID)
	assert.True(t, IsNotFound(err))

	var sessions, tickets int64
	require.NoError(t, db.Model(&model.Session{}).Where("movie_id = ?", gone.ID).Count(&sessions).Error)
	require.NoError(t, db.Model(&model.Ticket{}).Where("session_id IN ?", []uint{gone.Sessions[0].ID, gone.Sessions[1].ID}).Count(&tickets).Error)
	assert.Zero(t, sessions)
	assert.Zero(t, tickets)

	kept, err := movies.FindByID(ctx, keep.ID)
	require.NoError(t, err)
	require.Len(t, kept.Sessions, 1)

	stats, err := NewTicketRepository(db).PoolStats(ctx, keep.Sessions[0].ID)
	require.NoError(t, err)
	assert.EqualValues(t, 2, stats[keep.Sessions[0].ID].Total)
}

func TestMovieRepository_UpdateSessionKeepsPool(t *testing.T) {
	db := testutil.NewDB(t)
	ctx := context.Background()
	movies := NewMovieRepository(db)

	movie := seedMovie(t, db, "Stalker", 2)
	session := movie.Sessions[0]
	session.RoomNumber = 7
	session.TimeSlot = model.TimeSlot4
	session.TicketPrice = decimal.RequireFromString("12.50")
	session.Tickets = nil
	require.NoError(t, movies.UpdateSession(ctx, &session))

	got, err := movies.FindSessionByID(ctx, session.ID)
	require.NoError(t, err)
	assert.Equal(t, 7, got.RoomNumber)
	assert.Equal(t, model.TimeSlot4, got.TimeSlot)
	assert.True(t, decimal.RequireFromString("12.50").Equal(got.TicketPrice))
	require.NotNil(t, got.Movie)

	stats, err := NewTicketRepository(db).PoolStats(ctx, session.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 2, stats[session.ID].Total)
}

func TestTransactionManager_RollsBack(t *testing.T) {
	db := testutil.NewDB(t)
	tx := NewTransactionManager(db)
	users := NewUserRepository(db)

	err := tx.RunInTx(context.Background(), func(txCtx context.Context) error {
		require.NoError(t, users.Create(txCtx, &model.User{Username: "temp", Password: "x", Age: 1, Roles: []string{"USER"}}))
		return gorm.ErrInvalidTransaction
	})
	require.ErrorIs(t, err, gorm.ErrInvalidTransaction)

	_, err = users.GetByUsername(context.Background(), "temp")
	assert.True(t, IsNotFound(err))

	taken, err := users.UsernameTaken(context.Background(), "temp")
	require.NoError(t, err)
	assert.False(t, taken)
}

func TestIsUniqueViolation(t *testing.T) {
	db := testutil.NewDB(t)
	users := NewUserRepository(db)

	seedUser(t, db, "dup")
	err := users.Create(context.Background(), &model.User{Username: "dup", Password: "x", Age: 1, Roles: []string{"USER"}})
	require.Error(t, err)
	assert.True(t, IsUniqueViolation(err))
	assert.False(t, IsRetryable(err))

	taken, err := users.UsernameTaken(context.Background(), "dup")
	require.NoError(t, err)
	assert.True(t, taken)
}

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"serialization failure", &pgconn.PgError{Code: pgerrcode.SerializationFailure}, true},
		{"wrapped deadlock", fmt.Errorf("claim: %w", &pgconn.PgError{Code: pgerrcode.DeadlockDetected}), true},
		{"lock not available", &pgconn.PgError{Code: pgerrcode.LockNotAvailable}, true},
		{"unique violation", &pgconn.PgError{Code: pgerrcode.UniqueViolation}, false},
		{"non postgres error", errors.New("database is locked"), false},
		{"nil", nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsRetryable(tt.err))
		})
	}
}

func TestTicketRepository_ListUsedByUserSkipsOrphans(t *testing.T) {
	db := testutil.NewDB(t)
	ctx := context.Background()
	repo := NewTicketRepository(db)

	alice := seedUser(t, db, "alice")
	movie := seedMovie(t, db, "Solaris", 1, 1)
	kept, dropped := movie.Sessions[0].ID, movie.Sessions[1].ID

	for _, sessionID := range []uint{kept, dropped} {
		available, err := repo.FindAvailable(ctx, sessionID, 1)
		require.NoError(t, err)
		require.Len(t, available, 1)
		_, err = repo.Claim(ctx, []uint{available[0].ID}, alice.ID)
		require.NoError(t, err)
		_, err = repo.MarkUsed(ctx, available[0].ID, alice.ID)
		require.NoError(t, err)
	}

	require.NoError(t, db.Exec("PRAGMA foreign_keys = OFF").Error)
	require.NoError(t, db.Exec("DELETE FROM sessions WHERE id = ?", dropped).Error)

	used, total, err := repo.ListUsedByUser(ctx, alice.ID, 10, 0)
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	require.Len(t, used, 1)
	assert.Equal(t, kept, used[0].SessionID)
}
