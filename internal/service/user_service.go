package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/wisma-sentral/wisma-admin-api/internal/models"
	appErrors "github.com/wisma-sentral/wisma-admin-api/pkg/errors"
)

type userRepository interface {
	List(ctx context.Context, filter models.UserFilter) ([]models.User, int, error)
	FindByID(ctx context.Context, id string) (*models.User, error)
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	Create(ctx context.Context, user *models.User) error
	UpdateStatus(ctx context.Context, id string, status models.UserStatus) error
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

// UserService handles registration and the admin approval workflow.
type UserService struct {
	repo      userRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewUserService creates an instance of UserService.
func NewUserService(repo userRepository, validate *validator.Validate, logger *zap.Logger) *UserService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &UserService{repo: repo, validator: validate, logger: logger}
}

// Register creates a member account in PENDING state. The account cannot
// log in until an admin approves it.
func (s *UserService) Register(ctx context.Context, req models.RegisterRequest) (*models.User, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid registration payload")
	}

	if _, err := s.repo.FindByEmail(ctx, strings.ToLower(req.Email)); err == nil {
		return nil, appErrors.Clone(appErrors.ErrConflict, "email already registered")
	} else if !errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check email uniqueness")
	}

	passwordHash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to hash password")
	}

	user := &models.User{
		ID:           uuid.NewString(),
		Email:        strings.ToLower(req.Email),
		PasswordHash: string(passwordHash),
		FullName:     req.FullName,
		Role:         models.RoleMember,
		Status:       models.UserStatusPending,
	}

	if err := s.repo.Create(ctx, user); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create user")
	}

	if err := s.repo.CreateAuditLog(ctx, &models.AuditLog{
		UserID:     &user.ID,
		Action:     models.AuditActionRegister,
		Resource:   "user",
		ResourceID: &user.ID,
		NewValues:  mustJSON(map[string]string{"status": string(user.Status)}),
	}); err != nil {
		s.logger.Warn("failed to record registration audit log", zap.Error(err))
	}

	s.logger.Info("member registered", zap.String("user_id", user.ID), zap.String("email", user.Email))
	return user, nil
}

// Approve activates a pending account.
func (s *UserService) Approve(ctx context.Context, userID, actorID string) (*models.User, error) {
	return s.decide(ctx, userID, actorID, models.UserStatusActive, models.AuditActionUserApprove)
}

// Reject marks a pending account as rejected.
func (s *UserService) Reject(ctx context.Context, userID, actorID string) (*models.User, error) {
	return s.decide(ctx, userID, actorID, models.UserStatusRejected, models.AuditActionUserReject)
}

func (s *UserService) decide(ctx context.Context, userID, actorID string, status models.UserStatus, action string) (*models.User, error) {
	user, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "user not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load user")
	}

	if user.Status != models.UserStatusPending {
		return nil, appErrors.Clone(appErrors.ErrConflict, "account has already been decided")
	}

	if err := s.repo.UpdateStatus(ctx, userID, status); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update user status")
	}

	oldStatus := user.Status
	user.Status = status

	if err := s.repo.CreateAuditLog(ctx, &models.AuditLog{
		UserID:     &actorID,
		Action:     action,
		Resource:   "user",
		ResourceID: &userID,
		OldValues:  mustJSON(map[string]string{"status": string(oldStatus)}),
		NewValues:  mustJSON(map[string]string{"status": string(status)}),
	}); err != nil {
		s.logger.Warn("failed to record approval audit log", zap.Error(err))
	}

	s.logger.Info("membership decided",
		zap.String("user_id", userID),
		zap.String("actor_id", actorID),
		zap.String("status", string(status)))
	return user, nil
}

// List returns paginated users and pagination metadata.
func (s *UserService) List(ctx context.Context, filter models.UserFilter) ([]models.User, *models.Pagination, error) {
	users, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list users")
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	pageSize := filter.PageSize
	if pageSize <= 0 {
		pageSize = 20
	}

	pagination := &models.Pagination{
		Page:       page,
		PageSize:   pageSize,
		TotalCount: total,
	}

	return users, pagination, nil
}

// Get returns a user by ID.
func (s *UserService) Get(ctx context.Context, id string) (*models.User, error) {
	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "user not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load user")
	}
	return user, nil
}

func mustJSON(v interface{}) []byte {
	b, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	return b
}
