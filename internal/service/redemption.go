package service

import (
	"context"
	"fmt"

	"cinema/internal/model"
	"cinema/internal/repository"
)

// Redeemer marks owned tickets as used, once.
type Redeemer struct {
	tickets   repository.TicketRepository
	txManager repository.TransactionManager
}

func NewRedeemer(tickets repository.TicketRepository, txManager repository.TransactionManager) *Redeemer {
	return &Redeemer{tickets: tickets, txManager: txManager}
}

// Redeem flips ticketID to used if ownerID owns it and it is unused. The
// check and the write are one guarded update, so of two racing calls exactly
// one wins and the other gets ErrNotRedeemable. Each check runs against the
// reloaded ticket in the same transaction; an error from it undoes the
// redemption.
func (r *Redeemer) Redeem(ctx context.Context, ownerID, ticketID uint, checks ...func(*model.Ticket) error) (*model.Ticket, error) {
	var ticket *model.Ticket

	err := r.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		n, err := r.tickets.MarkUsed(txCtx, ticketID, ownerID)
		if err != nil {
			return fmt.Errorf("failed to redeem ticket: %w", err)
		}
		if n == 0 {
			return ErrNotRedeemable
		}

		ticket, err = r.tickets.FindByID(txCtx, ticketID)
		if err != nil {
			return fmt.Errorf("failed to reload ticket: %w", err)
		}
		for _, check := range checks {
			if err := check(ticket); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return ticket, nil
}
