package store

import (
	"context"

	"github.com/nhle/airwatch/internal/model"
)

// Keys under which the session fields are persisted. The bearer token is
// kept in the OS keyring, not here.
const (
	KeyUserID = "id"
	KeyEmail  = "email"
	KeyRole   = "role"
	KeyName   = "name"
)

// SessionKeys lists every key written for a session.
var SessionKeys = []string{KeyUserID, KeyEmail, KeyRole, KeyName}

// Store defines the local persistence interface: a small key-value table
// for the session and a mirror of the notification list.
type Store interface {
	// === Key-value ===

	GetValue(ctx context.Context, key string) (string, bool, error)
	SetValue(ctx context.Context, key, value string) error
	DeleteValue(ctx context.Context, keys ...string) error
	ClearValues(ctx context.Context) error

	// === Notifications ===

	ReplaceNotifications(ctx context.Context, list []model.Notification) error
	LoadNotifications(ctx context.Context) ([]model.Notification, error)
	ClearNotifications(ctx context.Context) error
}
