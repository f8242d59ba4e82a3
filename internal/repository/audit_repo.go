package repository

import (
	"context"

	"cinema/internal/model"

	"gorm.io/gorm"
)

type AuditRepository interface {
	Log(ctx context.Context, entry *model.AuditLog) error
	LogException(ctx context.Context, entry *model.ExceptionLog) error
	List(ctx context.Context, limit, offset int) ([]model.AuditLog, int64, error)
	ListExceptions(ctx context.Context, limit, offset int) ([]model.ExceptionLog, int64, error)
}

type auditRepository struct {
	db *gorm.DB
}

func NewAuditRepository(db *gorm.DB) AuditRepository {
	return &auditRepository{db: db}
}

func (r *auditRepository) Log(ctx context.Context, entry *model.AuditLog) error {
	return GetDB(ctx, r.db).Create(entry).Error
}

// LogException always writes outside any caller transaction so the record
// survives the rollback of the failed operation.
func (r *auditRepository) LogException(ctx context.Context, entry *model.ExceptionLog) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

func (r *auditRepository) List(ctx context.Context, limit, offset int) ([]model.AuditLog, int64, error) {
	var logs []model.AuditLog
	var total int64

	db := GetDB(ctx, r.db)
	if err := db.Model(&model.AuditLog{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if err := db.Preload("User").Order("created_at desc, id desc").Offset(offset).Limit(limit).Find(&logs).Error; err != nil {
		return nil, 0, err
	}

	return logs, total, nil
}

func (r *auditRepository) ListExceptions(ctx context.Context, limit, offset int) ([]model.ExceptionLog, int64, error) {
	var logs []model.ExceptionLog
	var total int64

	db := GetDB(ctx, r.db)
	if err := db.Model(&model.ExceptionLog{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if err := db.Order("created_at desc, id desc").Offset(offset).Limit(limit).Find(&logs).Error; err != nil {
		return nil, 0, err
	}

	return logs, total, nil
}
