package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"cinema/internal/acl"
	"cinema/internal/logger"
	"cinema/internal/model"
	"cinema/internal/repository"

	"github.com/shopspring/decimal"
)

// DTOs
type CreateSessionRequest struct {
	RoomNumber       int             `json:"room_number" binding:"required,gt=0"`
	TotalTicketCount int             `json:"total_ticket_count" binding:"required,gt=0,lte=1000"`
	Date             time.Time       `json:"date" binding:"required"`
	TimeSlot         model.TimeSlot  `json:"time_slot" binding:"required,oneof=SLOT_1 SLOT_2 SLOT_3 SLOT_4 SLOT_5 SLOT_6"`
	TicketPrice      decimal.Decimal `json:"ticket_price"`
}

type CreateMovieRequest struct {
	Name        string                 `json:"name" binding:"required"`
	Description string                 `json:"description" binding:"required"`
	MinAge      int                    `json:"min_age" binding:"gte=0"`
	Sessions    []CreateSessionRequest `json:"sessions" binding:"required,min=1,dive"`
}

type CreateMoviesRequest struct {
	Movies []CreateMovieRequest `json:"movies" binding:"required,min=1,dive"`
}

type UpdateSessionRequest struct {
	ID          uint             `json:"id" binding:"required"`
	RoomNumber  int              `json:"room_number" binding:"required,gt=0"`
	Date        time.Time        `json:"date" binding:"required"`
	TimeSlot    model.TimeSlot   `json:"time_slot" binding:"required,oneof=SLOT_1 SLOT_2 SLOT_3 SLOT_4 SLOT_5 SLOT_6"`
	TicketPrice *decimal.Decimal `json:"ticket_price"`
}

type UpdateMovieRequest struct {
	Name        string                 `json:"name" binding:"required"`
	Description string                 `json:"description" binding:"required"`
	MinAge      int                    `json:"min_age" binding:"gte=0"`
	Sessions    []UpdateSessionRequest `json:"sessions" binding:"dive"`
}

type SessionResponse struct {
	ID                   uint            `json:"id"`
	RoomNumber           int             `json:"room_number"`
	Date                 time.Time       `json:"date"`
	TimeSlot             model.TimeSlot  `json:"time_slot"`
	TicketPrice          decimal.Decimal `json:"ticket_price"`
	TotalTicketCount     int64           `json:"total_ticket_count"`
	AvailableTicketCount int64           `json:"available_ticket_count"`
}

type MovieResponse struct {
	ID          uint              `json:"id"`
	Name        string            `json:"name"`
	Description string            `json:"description"`
	MinAge      int               `json:"min_age"`
	CreatedByID *uint             `json:"created_by_id"`
	Sessions    []SessionResponse `json:"sessions"`
	CreatedAt   time.Time         `json:"created_at"`
	UpdatedAt   time.Time         `json:"updated_at"`
}

// MovieService manages the catalog. Every operation is gated by the policy registry.
type MovieService interface {
	CreateMovies(ctx context.Context, actor acl.Actor, req CreateMoviesRequest) ([]MovieResponse, error)
	ListMovies(ctx context.Context, actor acl.Actor, limit, offset int) ([]MovieResponse, int64, error)
	GetMovie(ctx context.Context, actor acl.Actor, id uint) (*MovieResponse, error)
	UpdateMovie(ctx context.Context, actor acl.Actor, id uint, req UpdateMovieRequest) (*MovieResponse, error)
	DeleteMovies(ctx context.Context, actor acl.Actor, ids []uint) error
}

type movieService struct {
	movies    repository.MovieRepository
	tickets   repository.TicketRepository
	policies  *acl.Registry
	audit     AuditService
	txManager repository.TransactionManager
}

func NewMovieService(
	movies repository.MovieRepository,
	tickets repository.TicketRepository,
	policies *acl.Registry,
	audit AuditService,
	txManager repository.TransactionManager,
) MovieService {
	return &movieService{
		movies:    movies,
		tickets:   tickets,
		policies:  policies,
		audit:     audit,
		txManager: txManager,
	}
}

// CreateMovies stores the movies with their sessions, each session with one
// unowned ticket per seat, in a single transaction.
func (s *movieService) CreateMovies(ctx context.Context, actor acl.Actor, req CreateMoviesRequest) ([]MovieResponse, error) {
	logger.WithComponent(ctx, "movies").Info("createMovies was called", "count", len(req.Movies))

	if !s.policies.CanDo(actor, acl.ResourceMovie, acl.ActionCreate) {
		return nil, ErrUnauthorized
	}

	creator := actor.ID
	movies := make([]model.Movie, 0, len(req.Movies))
	for _, m := range req.Movies {
		movie := model.Movie{
			Name:        strings.TrimSpace(m.Name),
			Description: m.Description,
			MinAge:      m.MinAge,
			CreatedByID: &creator,
		}
		for _, sess := range m.Sessions {
			if sess.TotalTicketCount <= 0 {
				return nil, fmt.Errorf("%w: session capacity must be positive", ErrValidation)
			}
			movie.Sessions = append(movie.Sessions, model.Session{
				RoomNumber:  sess.RoomNumber,
				Date:        sess.Date,
				TimeSlot:    sess.TimeSlot,
				TicketPrice: sess.TicketPrice,
				Tickets:     model.NewTicketPool(sess.TotalTicketCount),
			})
		}
		movies = append(movies, movie)
	}

	err := s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.movies.Create(txCtx, movies); err != nil {
			return fmt.Errorf("failed to create movies: %w", err)
		}
		for i := range movies {
			if err := s.audit.Record(txCtx, &creator, model.ActionCreateMovie, strconv.FormatUint(uint64(movies[i].ID), 10), movies[i].Name, req.Movies[i]); err != nil {
				return fmt.Errorf("failed to write audit log: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return s.toResponses(ctx, movies)
}

func (s *movieService) ListMovies(ctx context.Context, actor acl.Actor, limit, offset int) ([]MovieResponse, int64, error) {
	logger.WithComponent(ctx, "movies").Info("getMovies was called", "limit", limit, "offset", offset)

	if !s.policies.CanDo(actor, acl.ResourceMovie, acl.ActionList) {
		return nil, 0, ErrUnauthorized
	}

	movies, total, err := s.movies.List(ctx, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list movies: %w", err)
	}

	res, err := s.toResponses(ctx, movies)
	if err != nil {
		return nil, 0, err
	}
	return res, total, nil
}

func (s *movieService) GetMovie(ctx context.Context, actor acl.Actor, id uint) (*MovieResponse, error) {
	logger.WithComponent(ctx, "movies").Info("getMovieById was called", "movie_id", id)

	movie, err := s.findMovie(ctx, id)
	if err != nil {
		return nil, err
	}
	if !s.policies.CanDo(actor, acl.ResourceMovie, acl.ActionRead, movie) {
		return nil, ErrUnauthorized
	}

	res, err := s.toResponses(ctx, []model.Movie{*movie})
	if err != nil {
		return nil, err
	}
	return &res[0], nil
}

// UpdateMovie rewrites the movie's fields and the schedule of the listed
// sessions. Session capacity is fixed at creation and cannot change here.
func (s *movieService) UpdateMovie(ctx context.Context, actor acl.Actor, id uint, req UpdateMovieRequest) (*MovieResponse, error) {
	logger.WithComponent(ctx, "movies").Info("updateMovie was called", "movie_id", id)

	movie, err := s.findMovie(ctx, id)
	if err != nil {
		return nil, err
	}
	if !s.policies.CanDo(actor, acl.ResourceMovie, acl.ActionUpdate, movie) {
		return nil, ErrUnauthorized
	}

	sessions := make(map[uint]*model.Session, len(movie.Sessions))
	for i := range movie.Sessions {
		sessions[movie.Sessions[i].ID] = &movie.Sessions[i]
	}
	for _, upd := range req.Sessions {
		sess, ok := sessions[upd.ID]
		if !ok {
			return nil, fmt.Errorf("%w: session %d of movie %d", ErrNotFound, upd.ID, id)
		}
		sess.RoomNumber = upd.RoomNumber
		sess.Date = upd.Date
		sess.TimeSlot = upd.TimeSlot
		if upd.TicketPrice != nil {
			sess.TicketPrice = *upd.TicketPrice
		}
	}

	movie.Name = strings.TrimSpace(req.Name)
	movie.Description = req.Description
	movie.MinAge = req.MinAge

	uid := actor.ID
	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.movies.Update(txCtx, movie); err != nil {
			return fmt.Errorf("failed to update movie: %w", err)
		}
		for _, upd := range req.Sessions {
			if err := s.movies.UpdateSession(txCtx, sessions[upd.ID]); err != nil {
				return fmt.Errorf("failed to update session %d: %w", upd.ID, err)
			}
		}
		if err := s.audit.Record(txCtx, &uid, model.ActionUpdateMovie, strconv.FormatUint(uint64(movie.ID), 10), movie.Name, req); err != nil {
			return fmt.Errorf("failed to write audit log: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return s.GetMovie(ctx, actor, id)
}

// DeleteMovies deletes every listed movie or none: all ids must exist and the
// actor must be allowed to delete each of them.
func (s *movieService) DeleteMovies(ctx context.Context, actor acl.Actor, ids []uint) error {
	logger.WithComponent(ctx, "movies").Info("deleteMovies was called", "ids", ids)

	ids = uniqueIDs(ids)
	if len(ids) == 0 {
		return fmt.Errorf("%w: no movie ids given", ErrValidation)
	}

	movies, err := s.movies.FindByIDs(ctx, ids)
	if err != nil {
		return fmt.Errorf("failed to load movies: %w", err)
	}
	if len(movies) != len(ids) {
		return fmt.Errorf("%w: %d of %d movies exist", ErrNotFound, len(movies), len(ids))
	}

	if !s.policies.CanDo(actor, acl.ResourceMovie, acl.ActionDelete, movies) {
		return ErrUnauthorized
	}

	uid := actor.ID
	return s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.movies.Delete(txCtx, ids); err != nil {
			return fmt.Errorf("failed to delete movies: %w", err)
		}
		for _, m := range movies {
			if err := s.audit.Record(txCtx, &uid, model.ActionDeleteMovie, strconv.FormatUint(uint64(m.ID), 10), m.Name, map[string]bool{"deleted": true}); err != nil {
				return fmt.Errorf("failed to write audit log: %w", err)
			}
		}
		return nil
	})
}

func (s *movieService) findMovie(ctx context.Context, id uint) (*model.Movie, error) {
	movie, err := s.movies.FindByID(ctx, id)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, fmt.Errorf("%w: movie %d", ErrNotFound, id)
		}
		return nil, fmt.Errorf("database error: %w", err)
	}
	return movie, nil
}

func (s *movieService) toResponses(ctx context.Context, movies []model.Movie) ([]MovieResponse, error) {
	var sessionIDs []uint
	for _, m := range movies {
		for _, sess := range m.Sessions {
			sessionIDs = append(sessionIDs, sess.ID)
		}
	}
	stats, err := s.tickets.PoolStats(ctx, sessionIDs...)
	if err != nil {
		return nil, fmt.Errorf("failed to count tickets: %w", err)
	}

	res := make([]MovieResponse, 0, len(movies))
	for _, m := range movies {
		out := MovieResponse{
			ID:          m.ID,
			Name:        m.Name,
			Description: m.Description,
			MinAge:      m.MinAge,
			CreatedByID: m.CreatedByID,
			Sessions:    make([]SessionResponse, 0, len(m.Sessions)),
			CreatedAt:   m.CreatedAt,
			UpdatedAt:   m.UpdatedAt,
		}
		for _, sess := range m.Sessions {
			st := stats[sess.ID]
			out.Sessions = append(out.Sessions, SessionResponse{
				ID:                   sess.ID,
				RoomNumber:           sess.RoomNumber,
				Date:                 sess.Date,
				TimeSlot:             sess.TimeSlot,
				TicketPrice:          sess.TicketPrice,
				TotalTicketCount:     st.Total,
				AvailableTicketCount: st.Available,
			})
		}
		res = append(res, out)
	}
	return res, nil
}

func uniqueIDs(ids []uint) []uint {
	seen := make(map[uint]struct{}, len(ids))
	out := make([]uint, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
