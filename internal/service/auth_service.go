package service

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"arts/api/internal/config"
	"arts/api/internal/models"
	"arts/api/internal/repository"
	"arts/api/internal/security"
	"arts/api/internal/session"
)

// Error messages are part of the login contract and surfaced verbatim to
// the client.
var (
	ErrUserNotFound    = errors.New("User not found")
	ErrInvalidPassword = errors.New("Invalid password")
)

// UserDirectory resolves login names to directory entries. Lookup is
// case-insensitive on username.
type UserDirectory interface {
	FindByUsername(ctx context.Context, username string) (models.User, error)
}

type AuthService struct {
	directory UserDirectory
	sessions  *session.Manager
	cfg       *config.AppConfig
	log       zerolog.Logger
}

func NewAuthService(directory UserDirectory, sessions *session.Manager, cfg *config.AppConfig, log zerolog.Logger) *AuthService {
	return &AuthService{
		directory: directory,
		sessions:  sessions,
		cfg:       cfg,
		log:       log,
	}
}

type LoginResult struct {
	Principal models.Principal
	SessionID string
	Token     string
	Remaining time.Duration
}

// Login validates credentials against the directory and establishes a
// session. The returned principal carries no password material.
func (s *AuthService) Login(ctx context.Context, username, password string) (LoginResult, error) {
	user, err := s.directory.FindByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return LoginResult{}, ErrUserNotFound
		}
		return LoginResult{}, err
	}

	ok, err := security.VerifyPassword(password, user.PasswordHash)
	if err != nil || !ok {
		return LoginResult{}, ErrInvalidPassword
	}

	principal := user.Principal()
	entry, err := s.sessions.Create(ctx, principal)
	if err != nil {
		return LoginResult{}, err
	}

	token, err := security.GenerateAccessToken(
		s.cfg.Security.JWTSecret,
		principal.ID,
		entry.ID,
		string(principal.Role),
		s.cfg.Security.JWTTTL,
	)
	if err != nil {
		s.sessions.Destroy(ctx, entry.ID)
		return LoginResult{}, err
	}

	s.log.Info().Str("username", principal.Username).Str("role", string(principal.Role)).Msg("login")

	return LoginResult{
		Principal: principal,
		SessionID: entry.ID,
		Token:     token,
		Remaining: s.sessions.Remaining(entry.ID),
	}, nil
}

func (s *AuthService) Logout(ctx context.Context, sessionID string) {
	s.sessions.Destroy(ctx, sessionID)
}
