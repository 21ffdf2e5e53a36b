package service

import (
	"context"
	"errors"
	"net/mail"
	"strings"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk/internal/auth"
	"github.com/spec-kit/helpdesk/internal/config"
	"github.com/spec-kit/helpdesk/internal/domain"
	"github.com/spec-kit/helpdesk/internal/events"
	"github.com/spec-kit/helpdesk/internal/repository"
	apperrors "github.com/spec-kit/helpdesk/pkg/util/errorutil"
)

// ErrInvalidCredentials hides whether the email or the password was wrong.
var ErrInvalidCredentials = apperrors.NewUnauthorized("Invalid email or password")

// AuthService coordinates registration and login flows.
type AuthService struct {
	users       repository.UserRepository
	tokens      *auth.TokenManager
	revocations auth.RevocationStore
	dispatcher  events.Dispatcher
	logger      *zap.Logger
	bcryptCost  int
	minPassword int
}

// AuthDependencies encapsulates collaborators for the auth service.
type AuthDependencies struct {
	UserRepo    repository.UserRepository
	Tokens      *auth.TokenManager
	Revocations auth.RevocationStore
	Dispatcher  events.Dispatcher
	Logger      *zap.Logger
}

// RegisterInput is the self-service signup payload.
type RegisterInput struct {
	Name     string
	Email    string
	Password string
}

// NewAuthService builds the service.
func NewAuthService(cfg config.AuthConfig, deps AuthDependencies) *AuthService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	minPassword := cfg.PasswordMinLength
	if minPassword <= 0 {
		minPassword = 8
	}
	return &AuthService{
		users:       deps.UserRepo,
		tokens:      deps.Tokens,
		revocations: deps.Revocations,
		dispatcher:  deps.Dispatcher,
		logger:      logger,
		bcryptCost:  cfg.BcryptCost,
		minPassword: minPassword,
	}
}

// RegisterUser creates a USER account that waits for administrator approval.
// No session is issued.
func (s *AuthService) RegisterUser(ctx context.Context, input RegisterInput) (*domain.User, error) {
	email, err := normalizeEmail(input.Email)
	if err != nil {
		return nil, err
	}
	if input.Password == "" {
		return nil, apperrors.NewValidationError("Email and password are required", nil)
	}
	if len(input.Password) < s.minPassword {
		return nil, apperrors.NewValidationError("Password is too short", map[string]any{"min_length": s.minPassword})
	}

	hash, err := auth.HashPassword(input.Password, s.bcryptCost)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	user := &domain.User{
		Name:         strings.TrimSpace(input.Name),
		Email:        email,
		PasswordHash: hash,
		Role:         domain.RoleUser,
		IsActive:     false,
	}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, apperrors.NewConflict("User already exists", map[string]any{"email": email})
		}
		return nil, apperrors.NewInternalError(err)
	}

	s.logger.Info("user registered", zap.String("user_id", user.ID))
	publishEvent(ctx, s.dispatcher, s.logger, events.Event{
		Type:      events.EventUserRegistered,
		SubjectID: user.ID,
		ActorID:   user.ID,
		Payload:   events.UserRegisteredPayload{Email: user.Email},
	})
	return user, nil
}

// Login verifies credentials and issues a session. The password is checked
// first; a correct password on an unapproved USER account yields
// auth.ErrPendingApproval and no session.
func (s *AuthService) Login(ctx context.Context, email, password string) (*domain.User, *domain.Session, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return nil, nil, apperrors.NewValidationError("Email and password are required", nil)
	}

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil, ErrInvalidCredentials
		}
		return nil, nil, apperrors.NewInternalError(err)
	}
	if err := auth.ComparePassword(user.PasswordHash, password); err != nil {
		return nil, nil, ErrInvalidCredentials
	}
	if user.PendingApproval() {
		return nil, nil, auth.ErrPendingApproval
	}

	session, err := s.tokens.GenerateToken(user)
	if err != nil {
		return nil, nil, apperrors.NewInternalError(err)
	}
	return user, session, nil
}

// Logout revokes the session until it would have expired anyway.
func (s *AuthService) Logout(ctx context.Context, claims *auth.Claims) error {
	if claims == nil || claims.ID == "" || s.revocations == nil {
		return nil
	}
	if claims.ExpiresAt == nil {
		return nil
	}
	if err := s.revocations.Revoke(ctx, claims.ID, claims.ExpiresAt.Time); err != nil {
		return apperrors.NewInternalError(err)
	}
	return nil
}

// EnsureAdmin creates an active ADMIN account, or promotes and activates an
// existing account with the same email. It reports whether a row was created.
// The password of an existing account is left unchanged.
func (s *AuthService) EnsureAdmin(ctx context.Context, email, password, name string) (*domain.User, bool, error) {
	email, err := normalizeEmail(email)
	if err != nil {
		return nil, false, err
	}

	existing, err := s.users.GetByEmail(ctx, email)
	switch {
	case err == nil:
		if existing.Role == domain.RoleAdmin && existing.IsActive {
			return existing, false, nil
		}
		existing.Role = domain.RoleAdmin
		existing.IsActive = true
		if err := s.users.Update(ctx, existing); err != nil {
			return nil, false, apperrors.NewInternalError(err)
		}
		return existing, false, nil
	case !errors.Is(err, pgx.ErrNoRows):
		return nil, false, apperrors.NewInternalError(err)
	}

	if len(password) < s.minPassword {
		return nil, false, apperrors.NewValidationError("Password is too short", map[string]any{"min_length": s.minPassword})
	}
	hash, err := auth.HashPassword(password, s.bcryptCost)
	if err != nil {
		return nil, false, apperrors.NewInternalError(err)
	}
	user := &domain.User{
		Name:         strings.TrimSpace(name),
		Email:        email,
		PasswordHash: hash,
		Role:         domain.RoleAdmin,
		IsActive:     true,
	}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, false, apperrors.NewConflict("User already exists", map[string]any{"email": email})
		}
		return nil, false, apperrors.NewInternalError(err)
	}
	return user, true, nil
}

func normalizeEmail(raw string) (string, error) {
	email := strings.ToLower(strings.TrimSpace(raw))
	if email == "" {
		return "", apperrors.NewValidationError("Email and password are required", nil)
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "", apperrors.NewValidationError("invalid email address", map[string]any{"email": raw})
	}
	return email, nil
}
