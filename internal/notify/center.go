// Package notify keeps the process-wide list of alerts, newest first,
// mirrored to local storage on every change.
package notify

import (
	"context"
	"fmt"
	"log"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/nhle/airwatch/internal/model"
)

// Store persists the notification list.
type Store interface {
	ReplaceNotifications(ctx context.Context, list []model.Notification) error
	LoadNotifications(ctx context.Context) ([]model.Notification, error)
	ClearNotifications(ctx context.Context) error
}

// Center is the single owner of the notification list. Views read
// snapshots through List and mutate only through its methods.
type Center struct {
	store Store
	now   func() time.Time

	// writeMu orders mutations together with their store writes, so the
	// stored list is always the one produced by the latest mutation.
	writeMu sync.Mutex

	mu   sync.RWMutex
	list []model.Notification
}

// NewCenter creates an empty Center. Call Load to restore the persisted
// list.
func NewCenter(store Store) *Center {
	return &Center{store: store, now: time.Now}
}

// Load replaces the in-memory list with the persisted one.
func (c *Center) Load(ctx context.Context) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	list, err := c.store.LoadNotifications(ctx)
	if err != nil {
		return fmt.Errorf("loading notifications: %w", err)
	}
	c.mu.Lock()
	c.list = list
	c.mu.Unlock()
	return nil
}

// Add prepends n as unread and persists the list. The stored record is
// returned with its local ID and derived fields filled in.
func (c *Center) Add(ctx context.Context, n model.Notification) (model.Notification, error) {
	n = n.Normalize()
	n.ID = uuid.NewString()
	n.Read = false
	if n.Timestamp.IsZero() {
		n.Timestamp = c.now()
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	c.mu.Lock()
	c.list = slices.Insert(c.list, 0, n)
	snapshot := slices.Clone(c.list)
	c.mu.Unlock()

	return n, c.persist(ctx, snapshot)
}

// Clear empties the list.
func (c *Center) Clear(ctx context.Context) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	c.mu.Lock()
	c.list = nil
	c.mu.Unlock()

	if err := c.store.ClearNotifications(ctx); err != nil {
		log.Printf("notify: clearing stored notifications: %v", err)
		return fmt.Errorf("clearing notifications: %w", err)
	}
	return nil
}

// MarkAllRead flags every notification as read.
func (c *Center) MarkAllRead(ctx context.Context) error {
	return c.update(ctx, func(n *model.Notification) bool {
		if n.Read {
			return false
		}
		n.Read = true
		return true
	})
}

// MarkRead flags the notifications with the given local IDs as read.
func (c *Center) MarkRead(ctx context.Context, ids ...string) error {
	return c.update(ctx, func(n *model.Notification) bool {
		if n.Read || !slices.Contains(ids, n.ID) {
			return false
		}
		n.Read = true
		return true
	})
}

func (c *Center) update(ctx context.Context, fn func(n *model.Notification) bool) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	c.mu.Lock()
	changed := false
	for i := range c.list {
		if fn(&c.list[i]) {
			changed = true
		}
	}
	snapshot := slices.Clone(c.list)
	c.mu.Unlock()

	if !changed {
		return nil
	}
	return c.persist(ctx, snapshot)
}

// Merge folds the backend's notification history into the list. Records
// already present, matched by backend ID or else by type, message and
// timestamp, are skipped. It returns how many records were added.
func (c *Center) Merge(ctx context.Context, remote []model.Notification) (int, error) {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	c.mu.Lock()
	added := 0
	for _, r := range remote {
		r = r.Normalize()
		if i := c.indexOf(r); i >= 0 {
			if c.list[i].RemoteID == 0 && r.RemoteID != 0 {
				c.list[i].RemoteID = r.RemoteID
			}
			continue
		}
		r.ID = uuid.NewString()
		c.list = append(c.list, r)
		added++
	}
	slices.SortStableFunc(c.list, func(a, b model.Notification) int {
		return b.Timestamp.Compare(a.Timestamp)
	})
	snapshot := slices.Clone(c.list)
	c.mu.Unlock()

	if added == 0 {
		return 0, nil
	}
	return added, c.persist(ctx, snapshot)
}

// indexOf must be called with c.mu held.
func (c *Center) indexOf(r model.Notification) int {
	for i, n := range c.list {
		if r.RemoteID != 0 && n.RemoteID == r.RemoteID {
			return i
		}
		if n.Type == r.Type && n.Message == r.Message &&
			n.Timestamp.Truncate(time.Second).Equal(r.Timestamp.Truncate(time.Second)) {
			return i
		}
	}
	return -1
}

// List returns a snapshot of the list, newest first.
func (c *Center) List() []model.Notification {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return slices.Clone(c.list)
}

// Len returns the number of notifications.
func (c *Center) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.list)
}

// UnreadCount returns how many notifications are unread.
func (c *Center) UnreadCount() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	count := 0
	for _, n := range c.list {
		if !n.Read {
			count++
		}
	}
	return count
}

// HasUnread reports whether any notification is unread.
func (c *Center) HasUnread() bool {
	return c.UnreadCount() > 0
}

// Stats summarizes the whole list as of now.
func (c *Center) Stats() Stats {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return ComputeStats(c.list, c.now())
}

// persist must be called with c.writeMu held.
func (c *Center) persist(ctx context.Context, list []model.Notification) error {
	if err := c.store.ReplaceNotifications(ctx, list); err != nil {
		log.Printf("notify: saving %d notifications: %v", len(list), err)
		return fmt.Errorf("saving notifications: %w", err)
	}
	return nil
}
