package service

import (
	"context"
	"encoding/json"

	"cinema/internal/auth"
	"cinema/internal/logger"
	"cinema/internal/model"
	"cinema/internal/repository"
)

type AuditLogResponse struct {
	ID         uint   `json:"id"`
	RequestID  string `json:"request_id"`
	UserID     *uint  `json:"user_id"`
	Username   string `json:"username"`
	Action     string `json:"action"`
	EntityID   string `json:"entity_id"`
	EntityName string `json:"entity_name"`
	Details    string `json:"details"`
	CreatedAt  string `json:"created_at"`
}

type AuditService interface {
	Record(ctx context.Context, userID *uint, action, entityID, entityName string, details any) error
	RecordException(ctx context.Context, message string)
	GetAuditLogs(ctx context.Context, limit, offset int) ([]AuditLogResponse, int64, error)
	GetExceptionLogs(ctx context.Context, limit, offset int) ([]model.ExceptionLog, int64, error)
}

type auditService struct {
	repo repository.AuditRepository
}

// NewAuditService creates a new AuditService instance
func NewAuditService(repo repository.AuditRepository) AuditService {
	return &auditService{repo: repo}
}

// Record writes an audit entry tagged with the request id from ctx. Inside
// RunInTx the entry commits or rolls back with the audited change.
func (s *auditService) Record(ctx context.Context, userID *uint, action, entityID, entityName string, details any) error {
	payload, err := json.Marshal(details)
	if err != nil {
		return err
	}
	return s.repo.Log(ctx, &model.AuditLog{
		RequestID:  logger.RequestID(ctx),
		UserID:     userID,
		Action:     action,
		EntityID:   entityID,
		EntityName: entityName,
		Details:    payload,
	})
}

// RecordException stores an internal failure tagged with the request id and
// the authenticated actor found in ctx. It never fails the caller.
func (s *auditService) RecordException(ctx context.Context, message string) {
	entry := &model.ExceptionLog{
		RequestID: logger.RequestID(ctx),
		Message:   message,
	}
	if actor, ok := auth.ActorFromContext(ctx); ok {
		entry.UserID = &actor.ID
	}
	if err := s.repo.LogException(ctx, entry); err != nil {
		logger.FromContext(ctx).Error("failed to store exception log", "error", err)
	}
}

// GetAuditLogs returns audit entries newest first with their users loaded
func (s *auditService) GetAuditLogs(ctx context.Context, limit, offset int) ([]AuditLogResponse, int64, error) {
	logs, total, err := s.repo.List(ctx, limit, offset)
	if err != nil {
		return nil, 0, err
	}

	res := make([]AuditLogResponse, 0, len(logs))
	for _, l := range logs {
		username := "System"
		if l.User != nil {
			username = l.User.Username
		}

		res = append(res, AuditLogResponse{
			ID:         l.ID,
			RequestID:  l.RequestID,
			UserID:     l.UserID,
			Username:   username,
			Action:     l.Action,
			EntityID:   l.EntityID,
			EntityName: l.EntityName,
			Details:    string(l.Details),
			CreatedAt:  l.CreatedAt.Format("2006-01-02 15:04:05"),
		})
	}

	return res, total, nil
}

// GetExceptionLogs returns recorded internal failures newest first
func (s *auditService) GetExceptionLogs(ctx context.Context, limit, offset int) ([]model.ExceptionLog, int64, error) {
	return s.repo.ListExceptions(ctx, limit, offset)
}
