package service

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"cinema/internal/acl"
	"cinema/internal/logger"
	"cinema/internal/model"
	"cinema/internal/repository"

	"github.com/shopspring/decimal"
)

// DTOs
type BuyTicketsRequest struct {
	MovieSessionID uint `json:"movie_session_id" binding:"required"`
	Amount         int  `json:"amount" binding:"required,gt=0"`
}

type WatchMovieRequest struct {
	TicketID uint `json:"ticket_id" binding:"required"`
}

type SessionSummary struct {
	SessionID   uint            `json:"session_id"`
	RoomNumber  int             `json:"room_number"`
	Date        time.Time       `json:"date"`
	TimeSlot    model.TimeSlot  `json:"time_slot"`
	TicketPrice decimal.Decimal `json:"ticket_price"`
}

type MovieSummary struct {
	ID          uint   `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	MinAge      int    `json:"min_age"`
}

type BuyTicketsResponse struct {
	TicketIDs  []uint          `json:"ticket_ids"`
	Session    SessionSummary  `json:"session"`
	Movie      MovieSummary    `json:"movie"`
	TotalPrice decimal.Decimal `json:"total_price"`
}

type WatchedMovie struct {
	TicketID uint `json:"ticket_id"`
	MovieSummary
	RoomNumber int            `json:"room_number"`
	Date       time.Time      `json:"date"`
	TimeSlot   model.TimeSlot `json:"time_slot"`
}

type WatchedMoviesResponse struct {
	Movies []WatchedMovie `json:"movies"`
	Total  int64          `json:"total"`
}

type AvailabilityResponse struct {
	SessionID uint  `json:"session_id"`
	Total     int64 `json:"total"`
	Sold      int64 `json:"sold"`
	Available int64 `json:"available"`
}

// Broadcaster pushes events to connected realtime clients
type Broadcaster interface {
	Broadcast(event string, data map[string]interface{})
}

// BookingService sells and redeems tickets on behalf of an authenticated actor.
type BookingService interface {
	BuyTickets(ctx context.Context, actor acl.Actor, req BuyTicketsRequest) (*BuyTicketsResponse, error)
	WatchMovie(ctx context.Context, actor acl.Actor, req WatchMovieRequest) (bool, error)
	ListWatched(ctx context.Context, actor acl.Actor, limit, offset int) (*WatchedMoviesResponse, error)
	GetAvailability(ctx context.Context, actor acl.Actor, sessionID uint) (*AvailabilityResponse, error)
}

type bookingService struct {
	users     repository.UserRepository
	tickets   repository.TicketRepository
	movies    repository.MovieRepository
	allocator *Allocator
	redeemer  *Redeemer
	policies  *acl.Registry
	audit     AuditService
	hub       Broadcaster
}

func NewBookingService(
	users repository.UserRepository,
	tickets repository.TicketRepository,
	movies repository.MovieRepository,
	allocator *Allocator,
	redeemer *Redeemer,
	policies *acl.Registry,
	audit AuditService,
	hub Broadcaster,
) BookingService {
	return &bookingService{
		users:     users,
		tickets:   tickets,
		movies:    movies,
		allocator: allocator,
		redeemer:  redeemer,
		policies:  policies,
		audit:     audit,
		hub:       hub,
	}
}

func (s *bookingService) BuyTickets(ctx context.Context, actor acl.Actor, req BuyTicketsRequest) (*BuyTicketsResponse, error) {
	log := logger.WithComponent(ctx, "booking")
	log.Info("buyTickets was called", "session_id", req.MovieSessionID, "amount", req.Amount)

	user, err := s.activeUser(ctx, actor)
	if err != nil {
		return nil, err
	}

	tickets, err := s.allocator.Allocate(ctx, req.MovieSessionID, user.ID, req.Amount)
	if err != nil {
		return nil, err
	}

	res := toBuyTicketsResponse(tickets)
	uid := user.ID
	if err := s.audit.Record(ctx, &uid, model.ActionBuyTickets, strconv.FormatUint(uint64(req.MovieSessionID), 10), res.Movie.Name, res); err != nil {
		log.Error("failed to write audit log", "error", err)
	}
	s.publishAvailability(ctx, req.MovieSessionID)

	return res, nil
}

// WatchMovie redeems the ticket. Ticket ownership is re-checked through the
// policy registry before the redemption commits.
func (s *bookingService) WatchMovie(ctx context.Context, actor acl.Actor, req WatchMovieRequest) (bool, error) {
	log := logger.WithComponent(ctx, "booking")
	log.Info("watchMovie was called", "ticket_id", req.TicketID)

	if _, err := s.activeUser(ctx, actor); err != nil {
		return false, err
	}

	ticket, err := s.redeemer.Redeem(ctx, actor.ID, req.TicketID, func(t *model.Ticket) error {
		if !s.policies.CanDo(actor, acl.ResourceTicket, acl.ActionRead, t) {
			return ErrUnauthorized
		}
		return nil
	})
	if err != nil {
		return false, err
	}

	uid := actor.ID
	movieName := ""
	if ticket.Session != nil && ticket.Session.Movie != nil {
		movieName = ticket.Session.Movie.Name
	}
	if err := s.audit.Record(ctx, &uid, model.ActionRedeemTicket, strconv.FormatUint(uint64(ticket.ID), 10), movieName, map[string]interface{}{
		"ticket_id":  ticket.ID,
		"session_id": ticket.SessionID,
	}); err != nil {
		log.Error("failed to write audit log", "error", err)
	}

	return true, nil
}

func (s *bookingService) ListWatched(ctx context.Context, actor acl.Actor, limit, offset int) (*WatchedMoviesResponse, error) {
	logger.WithComponent(ctx, "booking").Info("getWatchedMovies was called", "limit", limit, "offset", offset)

	if !s.policies.CanDo(actor, acl.ResourceTicket, acl.ActionList) {
		return nil, ErrUnauthorized
	}
	if _, err := s.activeUser(ctx, actor); err != nil {
		return nil, err
	}

	tickets, total, err := s.tickets.ListUsedByUser(ctx, actor.ID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to load watched movies: %w", err)
	}

	res := &WatchedMoviesResponse{Movies: make([]WatchedMovie, 0, len(tickets)), Total: total}
	for _, t := range tickets {
		res.Movies = append(res.Movies, WatchedMovie{
			TicketID:     t.ID,
			MovieSummary: toMovieSummary(t.Session.Movie),
			RoomNumber:   t.Session.RoomNumber,
			Date:         t.Session.Date,
			TimeSlot:     t.Session.TimeSlot,
		})
	}
	return res, nil
}

// activeUser loads the actor's account. Unknown and disabled accounts cannot
// buy, redeem or list tickets.
func (s *bookingService) activeUser(ctx context.Context, actor acl.Actor) (*model.User, error) {
	if !actor.HasAnyRole(acl.RoleUser, acl.RoleAdmin) {
		return nil, ErrUnauthenticated
	}
	user, err := s.users.GetByID(ctx, actor.ID)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, ErrUnauthenticated
		}
		return nil, fmt.Errorf("failed to load account: %w", err)
	}
	if user.IsAccountDisabled {
		return nil, fmt.Errorf("%w: account is disabled", ErrUnauthenticated)
	}
	return user, nil
}

// GetAvailability counts the session's pool from the ticket rows on every call.
func (s *bookingService) GetAvailability(ctx context.Context, actor acl.Actor, sessionID uint) (*AvailabilityResponse, error) {
	session, err := s.movies.FindSessionByID(ctx, sessionID)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, fmt.Errorf("%w: session %d", ErrNotFound, sessionID)
		}
		return nil, fmt.Errorf("failed to load session: %w", err)
	}
	if !s.policies.CanDo(actor, acl.ResourceSession, acl.ActionRead, session) {
		return nil, ErrUnauthorized
	}

	stats, err := s.tickets.PoolStats(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to count tickets: %w", err)
	}
	st := stats[sessionID]
	return &AvailabilityResponse{
		SessionID: sessionID,
		Total:     st.Total,
		Sold:      st.Sold(),
		Available: st.Available,
	}, nil
}

func (s *bookingService) publishAvailability(ctx context.Context, sessionID uint) {
	if s.hub == nil {
		return
	}
	stats, err := s.tickets.PoolStats(ctx, sessionID)
	if err != nil {
		logger.FromContext(ctx).Warn("failed to count tickets for broadcast", "session_id", sessionID, "error", err)
		return
	}
	st := stats[sessionID]
	s.hub.Broadcast("TICKETS_SOLD", map[string]interface{}{
		"session_id": sessionID,
		"total":      st.Total,
		"available":  st.Available,
	})
}

func toMovieSummary(m *model.Movie) MovieSummary {
	return MovieSummary{
		ID:          m.ID,
		Name:        m.Name,
		Description: m.Description,
		MinAge:      m.MinAge,
	}
}

// toBuyTicketsResponse shapes a non-empty batch from one session into a receipt
func toBuyTicketsResponse(tickets []model.Ticket) *BuyTicketsResponse {
	res := &BuyTicketsResponse{TicketIDs: make([]uint, 0, len(tickets))}
	for _, t := range tickets {
		res.TicketIDs = append(res.TicketIDs, t.ID)
	}
	if len(tickets) == 0 || tickets[0].Session == nil {
		return res
	}

	session := tickets[0].Session
	res.Session = SessionSummary{
		SessionID:   session.ID,
		RoomNumber:  session.RoomNumber,
		Date:        session.Date,
		TimeSlot:    session.TimeSlot,
		TicketPrice: session.TicketPrice,
	}
	res.TotalPrice = session.TicketPrice.Mul(decimal.NewFromInt(int64(len(tickets))))
	if session.Movie != nil {
		res.Movie = toMovieSummary(session.Movie)
	}
	return res
}
