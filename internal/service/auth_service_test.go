package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"arts/api/internal/config"
	"arts/api/internal/models"
	"arts/api/internal/repository"
	"arts/api/internal/security"
	"arts/api/internal/session"
)

type fakeDirectory struct {
	users map[string]models.User
}

func (d fakeDirectory) FindByUsername(_ context.Context, username string) (models.User, error) {
	user, ok := d.users[strings.ToLower(strings.TrimSpace(username))]
	if !ok {
		return models.User{}, repository.ErrUserNotFound
	}
	return user, nil
}

func testAuthService(t *testing.T) (*AuthService, *session.Manager) {
	t.Helper()

	hash, err := security.HashPassword("Welcome@123")
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}

	directory := fakeDirectory{users: map[string]models.User{
		"dr.aravind": {
			ID:           "user-1",
			Username:     "dr.aravind",
			FullName:     "Dr. Aravind Srinivasan",
			Role:         models.UserRoleOphthalmologist,
			Email:        "dr.aravind@aravind.org",
			PasswordHash: hash,
		},
	}}

	cfg := &config.AppConfig{
		Security: config.SecurityConfig{
			JWTSecret: "test-secret",
			JWTTTL:    time.Hour,
		},
		Session: config.SessionConfig{Timeout: 30 * time.Minute},
	}

	sessions := session.NewManager(cfg.Session.Timeout, nil, zerolog.Nop())
	return NewAuthService(directory, sessions, cfg, zerolog.Nop()), sessions
}

func TestLoginCaseInsensitiveUsername(t *testing.T) {
	svc, _ := testAuthService(t)

	result, err := svc.Login(context.Background(), "DR.ARAVIND", "Welcome@123")
	if err != nil {
		t.Fatalf("login: %v", err)
	}

	if result.Principal.Role != models.UserRoleOphthalmologist {
		t.Errorf("role = %s, want ophthalmologist", result.Principal.Role)
	}
	if result.Token == "" || result.SessionID == "" {
		t.Error("expected token and session id")
	}
	if result.Remaining <= 29*time.Minute || result.Remaining > 30*time.Minute {
		t.Errorf("remaining = %v, want just under 30m", result.Remaining)
	}
}

func TestLoginStripsPasswordMaterial(t *testing.T) {
	svc, _ := testAuthService(t)

	result, err := svc.Login(context.Background(), "dr.aravind", "Welcome@123")
	if err != nil {
		t.Fatalf("login: %v", err)
	}

	// Principal has no password field at all; make sure the token does
	// not smuggle one either.
	claims, err := security.ParseAccessToken(result.Token, "test-secret")
	if err != nil {
		t.Fatalf("parse token: %v", err)
	}
	if claims.UserID != "user-1" || claims.Role != "ophthalmologist" {
		t.Errorf("claims = %+v", claims)
	}
}

func TestLoginUnknownUser(t *testing.T) {
	svc, _ := testAuthService(t)

	_, err := svc.Login(context.Background(), "nobody", "whatever")
	if err != ErrUserNotFound {
		t.Errorf("err = %v, want ErrUserNotFound", err)
	}
	if err != nil && err.Error() != "User not found" {
		t.Errorf("error message = %q", err.Error())
	}
}

func TestLoginWrongPassword(t *testing.T) {
	svc, _ := testAuthService(t)

	_, err := svc.Login(context.Background(), "dr.aravind", "wrong")
	if err != ErrInvalidPassword {
		t.Errorf("err = %v, want ErrInvalidPassword", err)
	}
	if err != nil && err.Error() != "Invalid password" {
		t.Errorf("error message = %q", err.Error())
	}
}

func TestLogoutDestroysSession(t *testing.T) {
	svc, sessions := testAuthService(t)

	result, err := svc.Login(context.Background(), "dr.aravind", "Welcome@123")
	if err != nil {
		t.Fatalf("login: %v", err)
	}

	svc.Logout(context.Background(), result.SessionID)
	if _, err := sessions.Validate(result.SessionID); err != session.ErrSessionNotFound {
		t.Errorf("validate after logout = %v, want ErrSessionNotFound", err)
	}
}
