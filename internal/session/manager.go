// Package session holds the authenticated identity of the current user,
// persists it across restarts, and guards navigation by role.
package session

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/nhle/airwatch/internal/model"
	"github.com/nhle/airwatch/internal/store"
	"github.com/nhle/airwatch/internal/validate"
)

// ErrPasswordMismatch is returned by Register when the confirmation does
// not match the password. No request is sent in that case.
var ErrPasswordMismatch = errors.New("passwords do not match")

// ErrIncompleteSession is returned when the backend's login reply lacks a
// required field.
var ErrIncompleteSession = errors.New("login response is missing session fields")

// KV is the subset of the local store used to persist session fields.
type KV interface {
	GetValue(ctx context.Context, key string) (string, bool, error)
	SetValue(ctx context.Context, key, value string) error
	DeleteValue(ctx context.Context, keys ...string) error
}

// TokenVault holds the bearer token outside the database.
type TokenVault interface {
	Token() (string, error)
	SetToken(token string) error
	DeleteToken() error
}

// Authenticator performs the backend's login and registration calls.
type Authenticator interface {
	Login(ctx context.Context, creds model.Credentials) (model.LoginResponse, error)
	Register(ctx context.Context, reg model.Registration) (string, error)
}

// Manager is the single holder of the current session. It is safe for
// concurrent use.
type Manager struct {
	kv    KV
	vault TokenVault
	auth  Authenticator
	now   func() time.Time

	mu        sync.RWMutex
	current   model.Session
	listeners []func(model.Session)
}

// NewManager creates an unauthenticated Manager. Call Restore to load a
// persisted session.
func NewManager(kv KV, vault TokenVault, auth Authenticator) *Manager {
	return &Manager{
		kv:    kv,
		vault: vault,
		auth:  auth,
		now:   time.Now,
	}
}

// Current returns a copy of the current session.
func (m *Manager) Current() model.Session {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current
}

// Token returns the current bearer token, or "" when signed out.
func (m *Manager) Token() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current.Token
}

// Authenticated reports whether a complete session is held.
func (m *Manager) Authenticated() bool {
	return m.Current().Valid()
}

// Authorize applies the route guard to the current session.
func (m *Manager) Authorize(route Route) Decision {
	return Authorize(m.Current(), route)
}

// OnChange registers fn to be called after every login, logout and
// restore. fn runs on the caller's goroutine, outside the lock.
func (m *Manager) OnChange(fn func(model.Session)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listeners = append(m.listeners, fn)
}

func (m *Manager) set(s model.Session) {
	m.mu.Lock()
	m.current = s
	listeners := append([]func(model.Session){}, m.listeners...)
	m.mu.Unlock()

	for _, fn := range listeners {
		fn(s)
	}
}

// Restore loads the persisted session. A session missing any required
// field, or whose token is a JWT that has expired, leaves the manager
// unauthenticated; that is not an error.
func (m *Manager) Restore(ctx context.Context) error {
	var s model.Session
	fields := map[string]*string{
		store.KeyUserID: &s.UserID,
		store.KeyEmail:  &s.Email,
		store.KeyName:   &s.DisplayName,
	}
	for key, dst := range fields {
		v, _, err := m.kv.GetValue(ctx, key)
		if err != nil {
			return fmt.Errorf("restoring session: %w", err)
		}
		*dst = v
	}
	role, _, err := m.kv.GetValue(ctx, store.KeyRole)
	if err != nil {
		return fmt.Errorf("restoring session: %w", err)
	}
	s.Role = model.Role(role)

	token, err := m.vault.Token()
	if err != nil {
		log.Printf("session: reading token: %v", err)
		token = ""
	}
	if tokenExpired(token, m.now()) {
		log.Printf("session: stored token for %s has expired", s.Email)
		if err := m.Logout(ctx); err != nil {
			log.Printf("session: purging expired session: %v", err)
		}
		return nil
	}
	s.Token = token

	if !s.Valid() {
		m.set(model.Session{})
		return nil
	}
	m.set(s)
	return nil
}

// Login authenticates against the backend and persists the session.
func (m *Manager) Login(ctx context.Context, email, password string) (model.Session, error) {
	creds := model.Credentials{Email: strings.TrimSpace(email), Password: password}
	if err := validate.Struct(creds); err != nil {
		return model.Session{}, err
	}

	resp, err := m.auth.Login(ctx, creds)
	if err != nil {
		return model.Session{}, fmt.Errorf("signing in: %w", err)
	}

	s := resp.Session()
	if !s.Valid() {
		return model.Session{}, ErrIncompleteSession
	}
	if err := m.persist(ctx, s); err != nil {
		return model.Session{}, err
	}

	m.set(s)
	return s, nil
}

// Register creates an account. The caller signs in separately.
func (m *Manager) Register(ctx context.Context, reg model.Registration) (string, error) {
	if reg.Password != reg.ConfirmPassword {
		return "", ErrPasswordMismatch
	}
	if err := validate.Struct(reg); err != nil {
		return "", err
	}
	msg, err := m.auth.Register(ctx, reg)
	if err != nil {
		return "", fmt.Errorf("registering: %w", err)
	}
	return msg, nil
}

// Logout forgets the session locally. Persisted fields and the token are
// removed even if one of the deletions fails.
func (m *Manager) Logout(ctx context.Context) error {
	errKV := m.kv.DeleteValue(ctx, store.SessionKeys...)
	errVault := m.vault.DeleteToken()
	m.set(model.Session{})
	return errors.Join(errKV, errVault)
}

// SetDisplayName updates the persisted display name after a profile edit.
func (m *Manager) SetDisplayName(ctx context.Context, name string) error {
	s := m.Current()
	if !s.Valid() {
		return nil
	}
	if err := m.kv.SetValue(ctx, store.KeyName, name); err != nil {
		return err
	}
	s.DisplayName = name
	m.set(s)
	return nil
}

func (m *Manager) persist(ctx context.Context, s model.Session) error {
	values := []struct{ key, value string }{
		{store.KeyUserID, s.UserID},
		{store.KeyEmail, s.Email},
		{store.KeyRole, string(s.Role)},
		{store.KeyName, s.DisplayName},
	}
	for _, kv := range values {
		if err := m.kv.SetValue(ctx, kv.key, kv.value); err != nil {
			return fmt.Errorf("saving session: %w", err)
		}
	}
	if err := m.vault.SetToken(s.Token); err != nil {
		return fmt.Errorf("saving session token: %w", err)
	}
	return nil
}

// tokenExpired reports whether token is a JWT whose exp claim is before
// now. Tokens that are not JWTs never expire client-side; the backend
// still has the final word.
func tokenExpired(token string, now time.Time) bool {
	if token == "" {
		return false
	}
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return false
	}
	return exp.Before(now)
}
