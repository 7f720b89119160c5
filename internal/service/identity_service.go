package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/alexedwards/argon2id"
	"github.com/campusops/attendance-portal/internal/domain"
	"github.com/campusops/attendance-portal/internal/repo/postgres"
	"github.com/campusops/attendance-portal/internal/repo/redisstore"
	"github.com/campusops/attendance-portal/pkg/auth"
	"github.com/campusops/attendance-portal/pkg/config"
	"github.com/campusops/attendance-portal/pkg/events"
	"github.com/campusops/attendance-portal/pkg/logger"
)

// ErrInvalidCredentials is deliberately generic: it covers unknown email,
// wrong role and wrong password alike so the response never reveals which
// part failed.
var ErrInvalidCredentials = errors.New("invalid credentials")

type IdentityService interface {
	Register(ctx context.Context, req *domain.RegisterRequest) (*domain.SessionResponse, error)
	Authenticate(ctx context.Context, req *domain.LoginRequest) (*domain.SessionResponse, error)
	CurrentSession(ctx context.Context, claims *auth.Claims) (*domain.User, error)
	EndSession(ctx context.Context, tokenID string) error
}

type identityService struct {
	users    postgres.UserRepo
	sessions redisstore.SessionStore
	bus      events.Publisher
	cfg      *config.Config
}

func NewIdentityService(users postgres.UserRepo, sessions redisstore.SessionStore, bus events.Publisher, cfg *config.Config) IdentityService {
	return &identityService{
		users:    users,
		sessions: sessions,
		bus:      bus,
		cfg:      cfg,
	}
}

func (s *identityService) Register(ctx context.Context, req *domain.RegisterRequest) (*domain.SessionResponse, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))
	role, ok := domain.ParseRole(req.Role)
	if !ok {
		return nil, fmt.Errorf("%w: unknown role %q", domain.ErrInvalidInput, req.Role)
	}

	hash, err := argon2id.CreateHash(req.Password, argon2id.DefaultParams)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user, err := s.users.Create(ctx, strings.TrimSpace(req.Name), email, hash, role, req.Identifier, req.Details)
	if err != nil {
		if errors.Is(err, domain.ErrConflict) {
			return nil, fmt.Errorf("%w: email already registered", domain.ErrConflict)
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	if err := s.bus.Publish(ctx, events.UserRegistered, events.UserRegisteredEvent{
		UserID: user.ID,
		Email:  user.Email,
		Role:   string(user.Role),
	}); err != nil {
		logger.ErrorContext(ctx, "Failed to publish user registered event", "error", err, "user_id", user.ID)
	}

	// Signup establishes an active session for the new user.
	return s.openSession(ctx, user)
}

func (s *identityService) Authenticate(ctx context.Context, req *domain.LoginRequest) (*domain.SessionResponse, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))
	role, ok := domain.ParseRole(req.Role)
	if !ok {
		return nil, ErrInvalidCredentials
	}

	user, err := s.users.FindByEmailAndRole(ctx, email, role)
	if err != nil {
		return nil, fmt.Errorf("failed to look up user: %w", err)
	}
	if user == nil {
		return nil, ErrInvalidCredentials
	}

	valid, err := argon2id.ComparePasswordAndHash(req.Password, user.PasswordHash)
	if err != nil {
		return nil, fmt.Errorf("failed to verify password: %w", err)
	}
	if !valid {
		return nil, ErrInvalidCredentials
	}

	return s.openSession(ctx, user)
}

func (s *identityService) openSession(ctx context.Context, user *domain.User) (*domain.SessionResponse, error) {
	token, tokenID, err := auth.NewSessionToken(user.ID, user.Email, string(user.Role), s.cfg.Auth.JWTSecret, s.cfg.Auth.SessionTTL)
	if err != nil {
		return nil, fmt.Errorf("failed to create session token: %w", err)
	}

	if err := s.sessions.Put(ctx, tokenID, user.ID, s.cfg.Auth.SessionTTL); err != nil {
		return nil, fmt.Errorf("failed to store session: %w", err)
	}

	return &domain.SessionResponse{
		Token:     token,
		ExpiresIn: int64(s.cfg.Auth.SessionTTL.Seconds()),
		User:      *user,
	}, nil
}

// CurrentSession resolves the acting user for a parsed token, rejecting
// tokens whose session slot was cleared by EndSession.
func (s *identityService) CurrentSession(ctx context.Context, claims *auth.Claims) (*domain.User, error) {
	userID, err := s.sessions.Get(ctx, claims.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to read session: %w", err)
	}
	if userID == "" || userID != claims.Sub {
		return nil, ErrInvalidCredentials
	}

	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load user: %w", err)
	}
	if user == nil {
		return nil, ErrInvalidCredentials
	}
	return user, nil
}

func (s *identityService) EndSession(ctx context.Context, tokenID string) error {
	return s.sessions.Delete(ctx, tokenID)
}
