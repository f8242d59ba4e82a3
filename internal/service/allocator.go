package service

import (
	"context"
	"errors"
	"fmt"

	"cinema/internal/logger"
	"cinema/internal/model"
	"cinema/internal/repository"
)

// errClaimConflict means another transaction claimed a candidate ticket first
var errClaimConflict = errors.New("ticket claimed concurrently")

// Allocator binds unowned tickets of a session to a buyer, all or nothing.
type Allocator struct {
	tickets    repository.TicketRepository
	txManager  repository.TransactionManager
	maxRetries int
}

func NewAllocator(tickets repository.TicketRepository, txManager repository.TransactionManager, maxRetries int) *Allocator {
	if maxRetries < 1 {
		maxRetries = 1
	}
	return &Allocator{tickets: tickets, txManager: txManager, maxRetries: maxRetries}
}

// Allocate claims count tickets of sessionID for buyerID in ascending id order.
// Each attempt locks the session, reads its free tickets and claims them with
// a guarded update in one transaction; lost races are retried up to maxRetries.
// Returned tickets carry their session and movie.
func (a *Allocator) Allocate(ctx context.Context, sessionID, buyerID uint, count int) ([]model.Ticket, error) {
	if count <= 0 {
		return nil, fmt.Errorf("%w: ticket amount must be positive", ErrValidation)
	}

	log := logger.WithComponent(ctx, "allocator")
	var lastErr error
	for attempt := 1; attempt <= a.maxRetries; attempt++ {
		tickets, err := a.tryAllocate(ctx, sessionID, buyerID, count)
		if err == nil {
			return tickets, nil
		}
		if !errors.Is(err, errClaimConflict) && !repository.IsRetryable(err) {
			return nil, err
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		log.Warn("ticket allocation conflict", "session_id", sessionID, "attempt", attempt, "error", err)
		lastErr = err
	}

	return nil, fmt.Errorf("%w: session %d: %v", ErrConflict, sessionID, lastErr)
}

func (a *Allocator) tryAllocate(ctx context.Context, sessionID, buyerID uint, count int) ([]model.Ticket, error) {
	var claimed []model.Ticket

	err := a.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if _, err := a.tickets.LockSession(txCtx, sessionID); err != nil {
			if repository.IsNotFound(err) {
				return fmt.Errorf("%w: session %d", ErrNotFound, sessionID)
			}
			return fmt.Errorf("failed to lock session: %w", err)
		}

		candidates, err := a.tickets.FindAvailable(txCtx, sessionID, count)
		if err != nil {
			return fmt.Errorf("failed to load available tickets: %w", err)
		}
		if len(candidates) < count {
			return fmt.Errorf("%w: requested %d, %d remaining", ErrInsufficientInventory, count, len(candidates))
		}

		ids := make([]uint, len(candidates))
		for i, t := range candidates {
			ids[i] = t.ID
		}

		n, err := a.tickets.Claim(txCtx, ids, buyerID)
		if err != nil {
			return fmt.Errorf("failed to claim tickets: %w", err)
		}
		if n != int64(count) {
			return errClaimConflict
		}

		claimed, err = a.tickets.FindByIDs(txCtx, ids)
		if err != nil {
			return fmt.Errorf("failed to reload claimed tickets: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return claimed, nil
}
