package service

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk/internal/domain"
	"github.com/spec-kit/helpdesk/internal/events"
	"github.com/spec-kit/helpdesk/internal/repository"
	apperrors "github.com/spec-kit/helpdesk/pkg/util/errorutil"
)

// UserService backs administrator account management.
type UserService struct {
	users      repository.UserRepository
	dispatcher events.Dispatcher
	logger     *zap.Logger
}

// UserDependencies bundles collaborators for the user service.
type UserDependencies struct {
	UserRepo   repository.UserRepository
	Dispatcher events.Dispatcher
	Logger     *zap.Logger
}

// UserPatch is a partial account update. Nil fields are left unchanged.
type UserPatch struct {
	Role     *string
	IsActive *bool
}

// NewUserService constructs the service.
func NewUserService(deps UserDependencies) *UserService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UserService{users: deps.UserRepo, dispatcher: deps.Dispatcher, logger: logger}
}

// ListUsers returns every account, newest first.
func (s *UserService) ListUsers(ctx context.Context) ([]domain.User, error) {
	users, err := s.users.List(ctx)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	return users, nil
}

// FindByEmail looks an account up by email.
func (s *UserService) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return nil, userLookupError(err)
	}
	return user, nil
}

// UpdateUser applies an administrator's patch to the target account.
// Administrators cannot demote or deactivate themselves.
func (s *UserService) UpdateUser(ctx context.Context, actor *domain.User, userID string, patch UserPatch) (*domain.User, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, apperrors.NewValidationError("userId is required", nil)
	}
	if patch.Role == nil && patch.IsActive == nil {
		return nil, apperrors.NewValidationError("nothing to update", nil)
	}

	var role domain.Role
	if patch.Role != nil {
		role = domain.Role(strings.ToUpper(strings.TrimSpace(*patch.Role)))
		if !role.Valid() {
			return nil, apperrors.NewValidationError("invalid role", map[string]any{"role": *patch.Role})
		}
	}

	if _, err := uuid.Parse(userID); err != nil {
		return nil, apperrors.NewNotFound("user", map[string]any{"userId": userID})
	}
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, userLookupError(err)
	}

	if actor != nil && actor.ID == user.ID {
		if patch.Role != nil && role != domain.RoleAdmin {
			return nil, apperrors.NewConflict("administrators cannot change their own role", nil)
		}
		if patch.IsActive != nil && !*patch.IsActive {
			return nil, apperrors.NewConflict("administrators cannot deactivate themselves", nil)
		}
	}

	oldRole := user.Role
	wasActive := user.IsActive
	if patch.Role != nil {
		user.Role = role
	}
	if patch.IsActive != nil {
		user.IsActive = *patch.IsActive
	}
	if err := s.users.Update(ctx, user); err != nil {
		return nil, userLookupError(err)
	}

	actorID := ""
	if actor != nil {
		actorID = actor.ID
	}
	s.logger.Info("user updated",
		zap.String("user_id", user.ID),
		zap.String("actor_id", actorID),
		zap.String("role", string(user.Role)),
		zap.Bool("is_active", user.IsActive))

	if !wasActive && user.IsActive {
		publishEvent(ctx, s.dispatcher, s.logger, events.Event{
			Type:      events.EventUserApproved,
			SubjectID: user.ID,
			ActorID:   actorID,
		})
	}
	if oldRole != user.Role {
		publishEvent(ctx, s.dispatcher, s.logger, events.Event{
			Type:      events.EventUserRoleChanged,
			SubjectID: user.ID,
			ActorID:   actorID,
			Payload:   events.UserRoleChangedPayload{OldRole: oldRole, NewRole: user.Role},
		})
	}
	return user, nil
}

func userLookupError(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return apperrors.NewNotFound("user", nil)
	}
	return apperrors.MapError(err)
}
