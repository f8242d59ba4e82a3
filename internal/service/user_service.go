package service

import (
	"cinema/internal/acl"
	"cinema/internal/auth"
	"cinema/internal/logger"
	"cinema/internal/model"
	"cinema/internal/repository"
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/datatypes"
)

// DTOs for Request validation
type RegisterRequest struct {
	Username string `json:"username" binding:"required,alphanum,max=200"`
	Password string `json:"password" binding:"required,min=6"`
	Age      int    `json:"age" binding:"required,gt=0"`
}

type CreateUserRequest struct {
	Username          string   `json:"username" binding:"required,alphanum,max=200"`
	Password          string   `json:"password" binding:"required,min=6"`
	Age               int      `json:"age" binding:"required,gt=0"`
	Roles             []string `json:"roles" binding:"required,min=1"`
	IsAccountDisabled bool     `json:"is_account_disabled"`
}

// UpdateUserRequest changes only the fields that are present
type UpdateUserRequest struct {
	Password          *string  `json:"password" binding:"omitempty,min=6"`
	Age               *int     `json:"age" binding:"omitempty,gt=0"`
	Roles             []string `json:"roles" binding:"omitempty,min=1"`
	IsAccountDisabled *bool    `json:"is_account_disabled"`
}

type LoginUserRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type TokenResponse struct {
	Token     string `json:"token"`
	ExpiresAt string `json:"expires_at"`
}

// DTO for returning User without exposing sensitive data (e.g. password)
type UserResponse struct {
	ID                uint     `json:"id"`
	Username          string   `json:"username"`
	Age               int      `json:"age"`
	Roles             []string `json:"roles"`
	IsAccountDisabled bool     `json:"is_account_disabled"`
	CreatedAt         string   `json:"created_at"`
	UpdatedAt         string   `json:"updated_at"`
}

// UserService defines the interface for business logic related to User
type UserService interface {
	Register(ctx context.Context, req RegisterRequest) (*UserResponse, error)
	CreateUser(ctx context.Context, req CreateUserRequest) (*UserResponse, error)
	Login(ctx context.Context, req LoginUserRequest) (*TokenResponse, error)
	GetUserByID(ctx context.Context, id uint) (*UserResponse, error)
	ListUsers(ctx context.Context, limit, offset int) ([]UserResponse, int64, error)
	UpdateUser(ctx context.Context, actor acl.Actor, id uint, req UpdateUserRequest) (*UserResponse, error)
	EnsureAdmin(ctx context.Context, username, password string) (bool, error)
}

type userService struct {
	repo   repository.UserRepository
	tokens *auth.TokenIssuer
	audit  AuditService
}

// NewUserService returns a new instance of UserService
func NewUserService(repo repository.UserRepository, tokens *auth.TokenIssuer, audit AuditService) UserService {
	return &userService{repo: repo, tokens: tokens, audit: audit}
}

// Helper: parse model to standard json API response
func mapToResponse(user *model.User) *UserResponse {
	return &UserResponse{
		ID:                user.ID,
		Username:          user.Username,
		Age:               user.Age,
		Roles:             []string(user.Roles),
		IsAccountDisabled: user.IsAccountDisabled,
		CreatedAt:         user.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
		UpdatedAt:         user.UpdatedAt.Format("2006-01-02T15:04:05Z07:00"),
	}
}

// Register creates a regular USER account. Roles cannot be chosen here.
func (s *userService) Register(ctx context.Context, req RegisterRequest) (*UserResponse, error) {
	return s.CreateUser(ctx, CreateUserRequest{
		Username: req.Username,
		Password: req.Password,
		Age:      req.Age,
		Roles:    []string{string(acl.RoleUser)},
	})
}

func (s *userService) CreateUser(ctx context.Context, req CreateUserRequest) (*UserResponse, error) {
	if err := validateRoles(req.Roles); err != nil {
		return nil, err
	}

	req.Username = strings.TrimSpace(req.Username)
	taken, err := s.repo.UsernameTaken(ctx, req.Username)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, fmt.Errorf("%w: username %q", ErrDuplicate, req.Username)
	}

	// Hash password automatically
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, errors.New("failed to hash password")
	}

	user := &model.User{
		Username:          req.Username,
		Password:          string(hashedPassword),
		Age:               req.Age,
		Roles:             req.Roles,
		IsAccountDisabled: req.IsAccountDisabled,
	}

	if err := s.repo.Create(ctx, user); err != nil {
		if repository.IsUniqueViolation(err) {
			return nil, fmt.Errorf("%w: username %q", ErrDuplicate, req.Username)
		}
		return nil, err
	}

	if err := s.audit.Record(ctx, &user.ID, model.ActionRegisterUser, strconv.FormatUint(uint64(user.ID), 10), user.Username, map[string]interface{}{
		"roles": req.Roles,
	}); err != nil {
		logger.FromContext(ctx).Error("failed to write audit log", "error", err)
	}

	return mapToResponse(user), nil
}

func (s *userService) Login(ctx context.Context, req LoginUserRequest) (*TokenResponse, error) {
	user, err := s.repo.GetByUsername(ctx, req.Username)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid username or password", ErrUnauthenticated)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
		return nil, fmt.Errorf("%w: invalid username or password", ErrUnauthenticated)
	}
	if user.IsAccountDisabled {
		return nil, fmt.Errorf("%w: account is disabled", ErrUnauthenticated)
	}

	token, expiresAt, err := s.tokens.Issue(user.ID, user.Username, user.Roles)
	if err != nil {
		return nil, err
	}

	return &TokenResponse{Token: token, ExpiresAt: expiresAt.Format("2006-01-02T15:04:05Z07:00")}, nil
}

func (s *userService) GetUserByID(ctx context.Context, id uint) (*UserResponse, error) {
	user, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, fmt.Errorf("%w: user %d", ErrNotFound, id)
		}
		return nil, err
	}
	return mapToResponse(user), nil
}

func (s *userService) ListUsers(ctx context.Context, limit, offset int) ([]UserResponse, int64, error) {
	users, total, err := s.repo.List(ctx, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list users: %w", err)
	}

	res := make([]UserResponse, 0, len(users))
	for i := range users {
		res = append(res, *mapToResponse(&users[i]))
	}
	return res, total, nil
}

// UpdateUser applies req to the account id. An admin cannot disable their own
// account or drop their own ADMIN role.
func (s *userService) UpdateUser(ctx context.Context, actor acl.Actor, id uint, req UpdateUserRequest) (*UserResponse, error) {
	changes := make(map[string]interface{})
	if req.Password != nil {
		hashed, err := bcrypt.GenerateFromPassword([]byte(*req.Password), bcrypt.DefaultCost)
		if err != nil {
			return nil, errors.New("failed to hash password")
		}
		changes["password"] = string(hashed)
	}
	if req.Age != nil {
		changes["age"] = *req.Age
	}
	if req.Roles != nil {
		if len(req.Roles) == 0 {
			return nil, fmt.Errorf("%w: an account needs at least one role", ErrValidation)
		}
		if err := validateRoles(req.Roles); err != nil {
			return nil, err
		}
		if id == actor.ID && !containsRole(req.Roles, acl.RoleAdmin) && actor.HasAnyRole(acl.RoleAdmin) {
			return nil, fmt.Errorf("%w: cannot remove your own ADMIN role", ErrValidation)
		}
		changes["roles"] = datatypes.JSONSlice[string](req.Roles)
	}
	if req.IsAccountDisabled != nil {
		if id == actor.ID && *req.IsAccountDisabled {
			return nil, fmt.Errorf("%w: cannot disable your own account", ErrValidation)
		}
		changes["is_account_disabled"] = *req.IsAccountDisabled
	}
	if len(changes) == 0 {
		return nil, fmt.Errorf("%w: nothing to update", ErrValidation)
	}

	if err := s.repo.Update(ctx, id, changes); err != nil {
		if repository.IsNotFound(err) {
			return nil, fmt.Errorf("%w: user %d", ErrNotFound, id)
		}
		return nil, fmt.Errorf("failed to update user: %w", err)
	}

	user, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to reload user: %w", err)
	}

	fields := make([]string, 0, len(changes))
	for k := range changes {
		fields = append(fields, k)
	}
	sort.Strings(fields)
	uid := actor.ID
	if err := s.audit.Record(ctx, &uid, model.ActionUpdateUser, strconv.FormatUint(uint64(id), 10), user.Username, map[string]interface{}{
		"fields": fields,
	}); err != nil {
		logger.FromContext(ctx).Error("failed to write audit log", "error", err)
	}

	return mapToResponse(user), nil
}

func validateRoles(roles []string) error {
	for _, r := range roles {
		if !acl.Role(r).Valid() {
			return fmt.Errorf("%w: invalid role %q: must be ADMIN or USER", ErrValidation, r)
		}
	}
	return nil
}

func containsRole(roles []string, role acl.Role) bool {
	for _, r := range roles {
		if acl.Role(r) == role {
			return true
		}
	}
	return false
}

// EnsureAdmin creates the default ADMIN account unless username is taken.
// The bool result reports whether an account was created.
func (s *userService) EnsureAdmin(ctx context.Context, username, password string) (bool, error) {
	existing, err := s.repo.GetByUsername(ctx, username)
	if err == nil {
		if !existing.HasRole(string(acl.RoleAdmin)) {
			logger.FromContext(ctx).Warn("default admin username belongs to a non-admin account", "username", username, "user_id", existing.ID)
		}
		return false, nil
	}
	if !repository.IsNotFound(err) {
		return false, err
	}

	user, err := s.CreateUser(ctx, CreateUserRequest{
		Username: username,
		Password: password,
		Age:      30,
		Roles:    []string{string(acl.RoleAdmin)},
	})
	if err != nil {
		return false, err
	}

	if err := s.audit.Record(ctx, nil, model.ActionBootstrapUser, strconv.FormatUint(uint64(user.ID), 10), user.Username, nil); err != nil {
		logger.FromContext(ctx).Error("failed to write audit log", "error", err)
	}
	return true, nil
}
