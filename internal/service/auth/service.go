package auth

import (
	"context"
	"errors"
	"strings"
	"time"

	"log/slog"

	"github.com/datascout/datascout/internal/domain"
	"github.com/datascout/datascout/internal/repository"
	"github.com/datascout/datascout/pkg/config"
	"github.com/datascout/datascout/pkg/crypto"
	jwtpkg "github.com/datascout/datascout/pkg/jwt"
)

var (
	// ErrEmailTaken indicates the signup email is already registered.
	ErrEmailTaken = errors.New("auth: email already registered")
	// ErrInvalidCredentials indicates a failed login attempt.
	ErrInvalidCredentials = errors.New("auth: incorrect credentials")
	// ErrUnauthenticated indicates a bearer token that could not be
	// resolved to a user, for any reason.
	ErrUnauthenticated = errors.New("auth: could not validate credentials")
	// ErrMissingFields indicates a signup payload with empty fields.
	ErrMissingFields = errors.New("auth: name, email and password are required")
)

// Service handles signup, login and bearer-token resolution.
type Service struct {
	users  repository.UserRepository
	logger *slog.Logger
	cfg    config.APIConfig
}

// New constructs a Service.
func New(users repository.UserRepository, logger *slog.Logger, cfg config.APIConfig) Service {
	return Service{users: users, logger: logger, cfg: cfg}
}

// Signup registers a new user. The plaintext password is hashed
// immediately and never stored or logged.
func (s Service) Signup(ctx context.Context, name, email, password string) (*domain.User, error) {
	name = strings.TrimSpace(name)
	email = strings.TrimSpace(email)
	if name == "" || email == "" || password == "" {
		return nil, ErrMissingFields
	}
	hash, err := crypto.HashPassword(password)
	if err != nil {
		return nil, err
	}
	user := &domain.User{
		Name:         name,
		Email:        email,
		PasswordHash: hash,
		CreatedAt:    time.Now().UTC(),
	}
	if err := s.users.CreateUser(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, ErrEmailTaken
		}
		return nil, err
	}
	s.logger.Info("user registered", "user_id", user.ID)
	return user, nil
}

// Login authenticates a user and returns a signed access token. Unknown
// email and wrong password fail identically.
func (s Service) Login(ctx context.Context, email, password string) (string, error) {
	user, err := s.users.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return "", ErrInvalidCredentials
		}
		return "", err
	}
	if !crypto.VerifyPassword(user.PasswordHash, password) {
		return "", ErrInvalidCredentials
	}
	token, err := jwtpkg.GenerateToken(user.ID, s.cfg.JWTSecret, s.cfg.AccessTokenTTL)
	if err != nil {
		return "", err
	}
	s.logger.Info("user logged in", "user_id", user.ID)
	return token, nil
}

// Authorize resolves a bearer token to its user. Malformed tokens and
// unknown subjects both yield ErrUnauthenticated so callers cannot tell
// the failure modes apart.
func (s Service) Authorize(ctx context.Context, token string) (*domain.User, error) {
	trimmed := strings.TrimSpace(token)
	if trimmed == "" {
		return nil, ErrUnauthenticated
	}
	userID, err := jwtpkg.ParseToken(trimmed, s.cfg.JWTSecret)
	if err != nil {
		return nil, ErrUnauthenticated
	}
	user, err := s.users.GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrUnauthenticated
		}
		return nil, err
	}
	return user, nil
}
