package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/goalcast/core/pkg/database"
	"github.com/goalcast/core/pkg/logger"
)

// Session is handed to a manager after login.
type Session struct {
	Token     string           `json:"token"`
	ExpiresAt time.Time        `json:"expires_at"`
	Manager   database.Manager `json:"manager"`
}

// AuthService handles dashboard logins backed by manager_sessions.
type AuthService struct {
	store  AuthStore
	ttl    time.Duration
	logger *logger.Logger
	now    func() time.Time
}

func NewAuthService(store AuthStore, sessionTTL time.Duration) *AuthService {
	if sessionTTL <= 0 {
		sessionTTL = 24 * time.Hour
	}
	return &AuthService{
		store:  store,
		ttl:    sessionTTL,
		logger: logger.New("auth-service"),
		now:    time.Now,
	}
}

// EnsureAdmin creates or refreshes the bootstrap admin account. It does
// nothing when either credential is empty.
func (s *AuthService) EnsureAdmin(ctx context.Context, email, password string) error {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return nil
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash admin password: %w", err)
	}
	m, err := s.store.UpsertManager(ctx, database.CreateManagerParams{
		Email:        email,
		Name:         "Admin",
		PasswordHash: string(hash),
		Role:         "admin",
	})
	if err != nil {
		return fmt.Errorf("failed to upsert admin: %w", err)
	}
	s.logger.Info().Str("action", "admin_ensured").Int32("manager_id", m.ID).Msg("Admin account ready")
	return nil
}

// Login checks credentials and opens a session.
func (s *AuthService) Login(ctx context.Context, email, password string) (*Session, error) {
	m, err := s.store.GetManagerByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if errors.Is(err, database.ErrNotFound) {
		return nil, ErrUnauthorized
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load manager: %w", err)
	}
	if !m.IsActive {
		return nil, ErrUnauthorized
	}
	if bcrypt.CompareHashAndPassword([]byte(m.PasswordHash), []byte(password)) != nil {
		s.logger.Warn().Str("action", "login_failed").Int32("manager_id", m.ID).Msg("Invalid password")
		return nil, ErrUnauthorized
	}

	now := s.now()
	sess, err := s.store.CreateSession(ctx, uuid.NewString(), m.ID, now.Add(s.ttl))
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}
	if err := s.store.TouchManagerLogin(ctx, m.ID, now); err != nil {
		s.logger.Warn().Err(err).Int32("manager_id", m.ID).Msg("Failed to record login time")
	}
	m.LastLoginAt = &now
	return &Session{Token: sess.Token, ExpiresAt: sess.ExpiresAt, Manager: m}, nil
}

// Authenticate resolves a session token to its manager.
func (s *AuthService) Authenticate(ctx context.Context, token string) (database.Manager, error) {
	if token == "" {
		return database.Manager{}, ErrUnauthorized
	}
	m, err := s.store.GetSessionManager(ctx, token, s.now())
	if errors.Is(err, database.ErrNotFound) {
		return database.Manager{}, ErrUnauthorized
	}
	if err != nil {
		return database.Manager{}, fmt.Errorf("failed to resolve session: %w", err)
	}
	if !m.IsActive {
		return database.Manager{}, ErrUnauthorized
	}
	return m, nil
}

func (s *AuthService) Logout(ctx context.Context, token string) error {
	err := s.store.DeleteSession(ctx, token)
	if err != nil && !errors.Is(err, database.ErrNotFound) {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

// CleanupSessions drops expired sessions.
func (s *AuthService) CleanupSessions(ctx context.Context) (int64, error) {
	n, err := s.store.DeleteExpiredSessions(ctx, s.now())
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired sessions: %w", err)
	}
	return n, nil
}
