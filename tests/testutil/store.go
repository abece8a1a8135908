// Package testutil builds the local services shared by package tests.
package testutil

import (
	"testing"

	"github.com/99designs/keyring"

	"github.com/nhle/airwatch/internal/credential"
	"github.com/nhle/airwatch/internal/session"
	"github.com/nhle/airwatch/internal/store"
)

// NewTestStore opens an in-memory SQLiteStore with the session and
// notification tables migrated. It is closed when the test completes.
func NewTestStore(t *testing.T) *store.SQLiteStore {
	t.Helper()

	s, err := store.NewSQLiteStore(":memory:")
	if err != nil {
		t.Fatalf("creating test store: %v", err)
	}
	t.Cleanup(func() {
		if err := s.Close(); err != nil {
			t.Errorf("closing test store: %v", err)
		}
	})
	return s
}

// NewTestVault returns a Vault backed by an in-memory keyring.
func NewTestVault() *credential.Vault {
	return credential.NewVault(keyring.NewArrayKeyring(nil))
}

// NewTestSessions returns an unauthenticated session manager persisting to
// kv and an in-memory keyring. auth may be nil for tests that never sign in.
func NewTestSessions(kv session.KV, auth session.Authenticator) *session.Manager {
	return session.NewManager(kv, NewTestVault(), auth)
}
