package repository

import (
	"context"

	"cinema/internal/model"

	"gorm.io/gorm"
)

// MovieRepository stores movies together with their sessions and ticket pools
type MovieRepository interface {
	Create(ctx context.Context, movies []model.Movie) error
	FindByID(ctx context.Context, id uint) (*model.Movie, error)
	FindByIDs(ctx context.Context, ids []uint) ([]model.Movie, error)
	List(ctx context.Context, limit, offset int) ([]model.Movie, int64, error)
	Update(ctx context.Context, movie *model.Movie) error
	UpdateSession(ctx context.Context, session *model.Session) error
	Delete(ctx context.Context, ids []uint) error
	FindSessionByID(ctx context.Context, id uint) (*model.Session, error)
}

type movieRepository struct {
	db *gorm.DB
}

func NewMovieRepository(db *gorm.DB) MovieRepository {
	return &movieRepository{db: db}
}

// Create inserts movies, their sessions and every session's tickets.
func (r *movieRepository) Create(ctx context.Context, movies []model.Movie) error {
	if len(movies) == 0 {
		return nil
	}
	return GetDB(ctx, r.db).Create(&movies).Error
}

func (r *movieRepository) FindByID(ctx context.Context, id uint) (*model.Movie, error) {
	var movie model.Movie
	err := GetDB(ctx, r.db).
		Preload("Sessions", func(db *gorm.DB) *gorm.DB { return db.Order("id ASC") }).
		First(&movie, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &movie, nil
}

func (r *movieRepository) FindByIDs(ctx context.Context, ids []uint) ([]model.Movie, error) {
	var movies []model.Movie
	err := GetDB(ctx, r.db).
		Preload("Sessions", func(db *gorm.DB) *gorm.DB { return db.Order("id ASC") }).
		Where("id IN ?", ids).
		Order("id ASC").
		Find(&movies).Error
	return movies, err
}

func (r *movieRepository) List(ctx context.Context, limit, offset int) ([]model.Movie, int64, error) {
	var movies []model.Movie
	var total int64

	if err := GetDB(ctx, r.db).Model(&model.Movie{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := GetDB(ctx, r.db).
		Preload("Sessions", func(db *gorm.DB) *gorm.DB { return db.Order("id ASC") }).
		Order("id ASC").
		Offset(offset).
		Limit(limit).
		Find(&movies).Error
	if err != nil {
		return nil, 0, err
	}
	return movies, total, nil
}

// Update writes the movie's own columns; sessions are updated one by one with UpdateSession.
func (r *movieRepository) Update(ctx context.Context, movie *model.Movie) error {
	return GetDB(ctx, r.db).Model(movie).
		Select("name", "description", "min_age").
		Updates(movie).Error
}

// UpdateSession writes the schedule columns of a session. The ticket pool is never touched.
func (r *movieRepository) UpdateSession(ctx context.Context, session *model.Session) error {
	return GetDB(ctx, r.db).Model(session).
		Select("room_number", "date", "time_slot", "ticket_price").
		Updates(session).Error
}

// Delete removes movies and cascades to their sessions and tickets explicitly,
// so the result does not depend on the driver enforcing foreign keys.
func (r *movieRepository) Delete(ctx context.Context, ids []uint) error {
	db := GetDB(ctx, r.db)
	sessionIDs := db.Model(&model.Session{}).Select("id").Where("movie_id IN ?", ids)

	if err := db.Where("session_id IN (?)", sessionIDs).Delete(&model.Ticket{}).Error; err != nil {
		return err
	}
	if err := db.Where("movie_id IN ?", ids).Delete(&model.Session{}).Error; err != nil {
		return err
	}
	return db.Where("id IN ?", ids).Delete(&model.Movie{}).Error
}

func (r *movieRepository) FindSessionByID(ctx context.Context, id uint) (*model.Session, error) {
	var session model.Session
	if err := GetDB(ctx, r.db).Preload("Movie").First(&session, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &session, nil
}
