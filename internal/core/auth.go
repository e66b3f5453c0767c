package core

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/valter-silva-au/pm-console/pkg/models"
)

// Session is either Anonymous or Authenticated.
type Session interface {
	isSession()
}

// Anonymous is the session state before login or after logout.
type Anonymous struct{}

// Authenticated is a logged in session.
type Authenticated struct {
	Token     string
	UserID    string
	Role      models.Role
	Username  string
	ExpiresAt time.Time // zero when unknown
}

func (Anonymous) isSession()     {}
func (Authenticated) isSession() {}

// Expired reports whether the session has a known expiry before now.
func (a Authenticated) Expired(now time.Time) bool {
	return !a.ExpiresAt.IsZero() && !now.Before(a.ExpiresAt)
}

// AuthService owns the console session: it logs in against the backend,
// persists the token/role/userId triple and answers role queries.
type AuthService interface {
	Login(ctx context.Context, username, password string) (Authenticated, error)
	Logout() error
	Me(ctx context.Context) (*models.Me, error)
	Current() Session
	IsLoggedIn() bool
	Role() models.Role
	UserID() string
	Token() string
	HasAnyRole(roles ...models.Role) bool
}

type authService struct {
	api   AuthAPI
	store SessionStore
	now   func() time.Time

	mu      sync.RWMutex
	session Session
}

// NewAuthService creates an AuthService and restores any persisted session.
// An unreadable or expired stored session is treated as anonymous.
func NewAuthService(api AuthAPI, store SessionStore) AuthService {
	return newAuthService(api, store, time.Now)
}

func newAuthService(api AuthAPI, store SessionStore, now func() time.Time) *authService {
	s := &authService{api: api, store: store, now: now, session: Anonymous{}}
	s.restore()
	return s
}

func (s *authService) restore() {
	if s.store == nil {
		return
	}
	vals, err := s.store.Load()
	if err != nil || vals.Token == "" {
		return
	}
	role, _ := models.ParseRole(vals.Role)
	a := Authenticated{
		Token:     vals.Token,
		UserID:    vals.UserID,
		Role:      role,
		ExpiresAt: tokenExpiry(vals.Token),
	}
	if a.Expired(s.now()) {
		return
	}
	s.session = a
}

// Login posts the credentials and persists the returned session.
func (s *authService) Login(ctx context.Context, username, password string) (Authenticated, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return Authenticated{}, validationf("Username and password are required")
	}

	resp, err := s.api.Login(ctx, models.LoginRequest{Username: username, Password: password})
	if err != nil {
		return Authenticated{}, fmt.Errorf("logging in: %w", err)
	}
	if resp == nil || resp.Token == "" {
		return Authenticated{}, fmt.Errorf("logging in: backend returned no token")
	}

	role, _ := models.ParseRole(resp.Role)
	a := Authenticated{
		Token:    resp.Token,
		UserID:   resp.UserID,
		Role:     role,
		Username: username,
	}
	if resp.ExpiresAtUTC != "" {
		if t, err := time.Parse(time.RFC3339, resp.ExpiresAtUTC); err == nil {
			a.ExpiresAt = t
		}
	}
	if a.ExpiresAt.IsZero() {
		a.ExpiresAt = tokenExpiry(resp.Token)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.store != nil {
		if err := s.store.Save(SessionValues{Token: a.Token, Role: resp.Role, UserID: a.UserID}); err != nil {
			return Authenticated{}, fmt.Errorf("saving session: %w", err)
		}
	}
	s.session = a
	return a, nil
}

// Logout clears the persisted triple and resets to Anonymous.
func (s *authService) Logout() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.session = Anonymous{}
	if s.store == nil {
		return nil
	}
	if err := s.store.Clear(); err != nil {
		return fmt.Errorf("clearing session: %w", err)
	}
	return nil
}

// Me fetches the backend's view of the session and fills in the username.
func (s *authService) Me(ctx context.Context) (*models.Me, error) {
	if !s.IsLoggedIn() {
		return nil, ErrNotLoggedIn
	}
	me, err := s.api.Me(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetching current user: %w", err)
	}
	s.mu.Lock()
	if a, ok := s.session.(Authenticated); ok && me != nil {
		a.Username = me.Username
		s.session = a
	}
	s.mu.Unlock()
	return me, nil
}

func (s *authService) Current() Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if a, ok := s.session.(Authenticated); ok && a.Expired(s.now()) {
		return Anonymous{}
	}
	return s.session
}

func (s *authService) authenticated() (Authenticated, bool) {
	a, ok := s.Current().(Authenticated)
	return a, ok
}

func (s *authService) IsLoggedIn() bool {
	_, ok := s.authenticated()
	return ok
}

func (s *authService) Role() models.Role {
	a, _ := s.authenticated()
	return a.Role
}

func (s *authService) UserID() string {
	a, _ := s.authenticated()
	return a.UserID
}

func (s *authService) Token() string {
	a, _ := s.authenticated()
	return a.Token
}

// HasAnyRole reports whether the session role is one of roles. It is false
// when logged out.
func (s *authService) HasAnyRole(roles ...models.Role) bool {
	a, ok := s.authenticated()
	if !ok {
		return false
	}
	for _, r := range roles {
		if r == a.Role {
			return true
		}
	}
	return false
}

// tokenExpiry reads the exp claim without verifying the signature; the
// backend remains the authority on token validity.
func tokenExpiry(token string) time.Time {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return time.Time{}
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}
	}
	return exp.Time
}
