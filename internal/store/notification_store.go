package store

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/nhle/airwatch/internal/model"
)

// ReplaceNotifications atomically replaces the stored list with list,
// preserving its order. Records without an ID are assigned one.
func (s *SQLiteStore) ReplaceNotifications(ctx context.Context, list []model.Notification) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM notifications"); err != nil {
		return fmt.Errorf("clearing notifications: %w", err)
	}

	const query = `
		INSERT INTO notifications (
			id, remote_id, type, message, timestamp, read,
			priority, location, value, unit, position
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	stmt, err := tx.PreparexContext(ctx, query)
	if err != nil {
		return fmt.Errorf("preparing insert statement: %w", err)
	}
	defer stmt.Close()

	for i, n := range list {
		if n.ID == "" {
			n.ID = uuid.New().String()
		}
		_, err = stmt.ExecContext(ctx,
			n.ID, n.RemoteID, string(n.Type), n.Message, n.Timestamp.UTC(), boolToInt(n.Read),
			string(n.Priority), n.Location, n.Value, n.Unit, i,
		)
		if err != nil {
			return fmt.Errorf("inserting notification %s: %w", n.ID, err)
		}
	}

	return tx.Commit()
}

// LoadNotifications returns the stored list, newest first.
func (s *SQLiteStore) LoadNotifications(ctx context.Context) ([]model.Notification, error) {
	rows, err := s.db.QueryxContext(ctx, `
		SELECT id, remote_id, type, message, timestamp, read,
		       priority, location, value, unit
		FROM notifications ORDER BY position`)
	if err != nil {
		return nil, fmt.Errorf("querying notifications: %w", err)
	}
	defer rows.Close()

	var list []model.Notification
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, n)
	}

	return list, rows.Err()
}

// ClearNotifications removes every stored notification.
func (s *SQLiteStore) ClearNotifications(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM notifications"); err != nil {
		return fmt.Errorf("clearing notifications: %w", err)
	}
	return nil
}

// scanNotification scans a notification row from a sqlx.Rows result set.
func scanNotification(rows *sqlx.Rows) (model.Notification, error) {
	var (
		n         model.Notification
		typ       string
		priority  string
		readInt   int
		timestamp time.Time
	)

	err := rows.Scan(
		&n.ID, &n.RemoteID, &typ, &n.Message, &timestamp, &readInt,
		&priority, &n.Location, &n.Value, &n.Unit,
	)
	if err != nil {
		return model.Notification{}, fmt.Errorf("scanning notification row: %w", err)
	}

	n.Type = model.NotificationType(typ)
	n.Priority = model.Priority(priority)
	n.Read = readInt != 0
	n.Timestamp = timestamp.Local()

	return n, nil
}
