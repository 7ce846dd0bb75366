// Package session holds the signed-in user between commands and the recent
// search terms of this device.
package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/spigell/skillmatch/internal/market"
)

// MaxRecentSearches bounds the recent search list.
const MaxRecentSearches = 5

// ErrNotAuthenticated is returned by accessors of a session nobody started.
var ErrNotAuthenticated = errors.New("not signed in")

type User struct {
	ID    string      `json:"id"`
	Email string      `json:"email"`
	Role  market.Role `json:"role"`
}

// Auth is the persisted sign-in state.
type Auth struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token,omitempty"`
	User         User   `json:"user"`
}

// Store persists auth state and recent searches.
type Store interface {
	LoadAuth(ctx context.Context) (*Auth, error)
	SaveAuth(ctx context.Context, auth *Auth) error
	ClearAuth(ctx context.Context) error

	RecentSearches(ctx context.Context) ([]string, error)
	// PushSearch records term as the most recent search and returns the updated list.
	PushSearch(ctx context.Context, term string, limit int) ([]string, error)
}

// Session is populated by Start at sign in and cleared by End at sign out.
type Session struct {
	store  Store
	logger *zap.Logger

	mu   sync.RWMutex
	auth *Auth
}

// Open restores the persisted sign-in state, if any.
func Open(ctx context.Context, store Store, logger *zap.Logger) (*Session, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	auth, err := store.LoadAuth(ctx)
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}

	return &Session{store: store, logger: logger, auth: auth}, nil
}

func (s *Session) Start(ctx context.Context, auth Auth) error {
	if strings.TrimSpace(auth.AccessToken) == "" || auth.User.ID == "" {
		return errors.New("session requires an access token and a user id")
	}

	if err := s.store.SaveAuth(ctx, &auth); err != nil {
		return fmt.Errorf("save session: %w", err)
	}

	s.mu.Lock()
	s.auth = &auth
	s.mu.Unlock()

	s.logger.Debug("session started", zap.String("user_id", auth.User.ID), zap.String("role", string(auth.User.Role)))
	return nil
}

// End signs out. Recent searches belong to the device and are kept.
func (s *Session) End(ctx context.Context) error {
	if err := s.store.ClearAuth(ctx); err != nil {
		return fmt.Errorf("clear session: %w", err)
	}

	s.mu.Lock()
	s.auth = nil
	s.mu.Unlock()

	return nil
}

func (s *Session) current() (*Auth, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.auth == nil || s.auth.AccessToken == "" {
		return nil, ErrNotAuthenticated
	}
	return s.auth, nil
}

func (s *Session) IsAuthenticated() bool {
	_, err := s.current()
	return err == nil
}

func (s *Session) UserID() (string, error) {
	auth, err := s.current()
	if err != nil {
		return "", err
	}
	return auth.User.ID, nil
}

func (s *Session) Role() (market.Role, error) {
	auth, err := s.current()
	if err != nil {
		return "", err
	}
	return auth.User.Role, nil
}

func (s *Session) User() (User, error) {
	auth, err := s.current()
	if err != nil {
		return User{}, err
	}
	return auth.User, nil
}

// Token returns the access token or an empty string when signed out.
func (s *Session) Token() string {
	auth, err := s.current()
	if err != nil {
		return ""
	}
	return auth.AccessToken
}

// RequireRole fails unless the signed-in user has role.
func (s *Session) RequireRole(role market.Role) (string, error) {
	auth, err := s.current()
	if err != nil {
		return "", err
	}
	if auth.User.Role != role {
		return "", fmt.Errorf("this action requires a %s account", role)
	}
	return auth.User.ID, nil
}

// AddRecentSearch records a non-blank term, most recent first.
func (s *Session) AddRecentSearch(ctx context.Context, term string) ([]string, error) {
	term = strings.TrimSpace(term)
	if term == "" {
		return s.RecentSearches(ctx)
	}
	return s.store.PushSearch(ctx, term, MaxRecentSearches)
}

func (s *Session) RecentSearches(ctx context.Context) ([]string, error) {
	return s.store.RecentSearches(ctx)
}

// pushRecent puts term in front of list, dropping case-insensitive duplicates, bounded by limit.
func pushRecent(list []string, term string, limit int) []string {
	if limit <= 0 {
		limit = MaxRecentSearches
	}
	out := make([]string, 0, limit)
	out = append(out, term)
	for _, v := range list {
		if len(out) >= limit {
			break
		}
		if strings.EqualFold(v, term) {
			continue
		}
		out = append(out, v)
	}
	return out
}
