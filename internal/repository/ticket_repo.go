package repository

import (
	"context"

	"cinema/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// PoolStats summarizes a session's ticket pool
type PoolStats struct {
	SessionID uint  `json:"session_id"`
	Total     int64 `json:"total"`
	Available int64 `json:"available"`
}

// Sold is the number of tickets that have an owner
func (p PoolStats) Sold() int64 {
	return p.Total - p.Available
}

// TicketRepository is the ticket store used by allocation and redemption.
// Mutating methods are meant to run inside TransactionManager.RunInTx.
type TicketRepository interface {
	LockSession(ctx context.Context, sessionID uint) (*model.Session, error)
	FindAvailable(ctx context.Context, sessionID uint, limit int) ([]model.Ticket, error)
	Claim(ctx context.Context, ticketIDs []uint, userID uint) (int64, error)
	MarkUsed(ctx context.Context, ticketID, userID uint) (int64, error)
	FindByID(ctx context.Context, id uint) (*model.Ticket, error)
	FindByIDs(ctx context.Context, ids []uint) ([]model.Ticket, error)
	ListUsedByUser(ctx context.Context, userID uint, limit, offset int) ([]model.Ticket, int64, error)
	PoolStats(ctx context.Context, sessionIDs ...uint) (map[uint]PoolStats, error)
}

type ticketRepository struct {
	db *gorm.DB
}

func NewTicketRepository(db *gorm.DB) TicketRepository {
	return &ticketRepository{db: db}
}

// LockSession loads the session row and, on postgres, holds a row lock on it
// until the surrounding transaction ends. SQLite serializes writers instead.
func (r *ticketRepository) LockSession(ctx context.Context, sessionID uint) (*model.Session, error) {
	db := GetDB(ctx, r.db)
	if db.Dialector.Name() == "postgres" {
		db = db.Clauses(clause.Locking{Strength: "UPDATE"})
	}

	var session model.Session
	if err := db.Where("id = ?", sessionID).First(&session).Error; err != nil {
		return nil, err
	}
	return &session, nil
}

func (r *ticketRepository) FindAvailable(ctx context.Context, sessionID uint, limit int) ([]model.Ticket, error) {
	var tickets []model.Ticket
	err := GetDB(ctx, r.db).
		Where("session_id = ? AND user_id IS NULL", sessionID).
		Order("id ASC").
		Limit(limit).
		Find(&tickets).Error
	return tickets, err
}

// Claim sets the owner of the given tickets, skipping any that already have
// one. The affected row count tells the caller whether every ticket was won.
func (r *ticketRepository) Claim(ctx context.Context, ticketIDs []uint, userID uint) (int64, error) {
	res := GetDB(ctx, r.db).Model(&model.Ticket{}).
		Where("id IN ? AND user_id IS NULL", ticketIDs).
		Update("user_id", userID)
	return res.RowsAffected, res.Error
}

// MarkUsed flips is_used for an owned, unused ticket. Zero rows affected means
// the ticket does not exist, belongs to someone else or was already used.
func (r *ticketRepository) MarkUsed(ctx context.Context, ticketID, userID uint) (int64, error) {
	res := GetDB(ctx, r.db).Model(&model.Ticket{}).
		Where("id = ? AND user_id = ? AND is_used = ?", ticketID, userID, false).
		Update("is_used", true)
	return res.RowsAffected, res.Error
}

func (r *ticketRepository) FindByID(ctx context.Context, id uint) (*model.Ticket, error) {
	var ticket model.Ticket
	if err := GetDB(ctx, r.db).Preload("Session.Movie").First(&ticket, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &ticket, nil
}

func (r *ticketRepository) FindByIDs(ctx context.Context, ids []uint) ([]model.Ticket, error) {
	var tickets []model.Ticket
	err := GetDB(ctx, r.db).Preload("Session.Movie").
		Where("id IN ?", ids).
		Order("id ASC").
		Find(&tickets).Error
	return tickets, err
}

func (r *ticketRepository) ListUsedByUser(ctx context.Context, userID uint, limit, offset int) ([]model.Ticket, int64, error) {
	var tickets []model.Ticket
	var total int64

	// the joins keep tickets whose session or movie is gone out of both the
	// page and the total
	used := func() *gorm.DB {
		return GetDB(ctx, r.db).Model(&model.Ticket{}).
			Joins("JOIN sessions ON sessions.id = tickets.session_id").
			Joins("JOIN movies ON movies.id = sessions.movie_id").
			Where("tickets.user_id = ? AND tickets.is_used = ?", userID, true)
	}
	if err := used().Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if err := used().Select("tickets.*").Preload("Session.Movie").Order("tickets.id ASC").Offset(offset).Limit(limit).Find(&tickets).Error; err != nil {
		return nil, 0, err
	}
	return tickets, total, nil
}

func (r *ticketRepository) PoolStats(ctx context.Context, sessionIDs ...uint) (map[uint]PoolStats, error) {
	stats := make(map[uint]PoolStats, len(sessionIDs))
	if len(sessionIDs) == 0 {
		return stats, nil
	}

	var rows []PoolStats
	err := GetDB(ctx, r.db).Model(&model.Ticket{}).
		Select("session_id, COUNT(*) AS total, SUM(CASE WHEN user_id IS NULL THEN 1 ELSE 0 END) AS available").
		Where("session_id IN ?", sessionIDs).
		Group("session_id").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	for _, id := range sessionIDs {
		stats[id] = PoolStats{SessionID: id}
	}
	for _, row := range rows {
		stats[row.SessionID] = row
	}
	return stats, nil
}
