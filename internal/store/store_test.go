package store_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/airwatch/internal/model"
	"github.com/nhle/airwatch/internal/store"
	"github.com/nhle/airwatch/tests/testutil"
)

func TestKeyValueRoundTrip(t *testing.T) {
	s := testutil.NewTestStore(t)
	ctx := context.Background()

	_, ok, err := s.GetValue(ctx, store.KeyEmail)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.SetValue(ctx, store.KeyEmail, "a@b.com"))
	require.NoError(t, s.SetValue(ctx, store.KeyEmail, "c@d.com"))

	v, ok, err := s.GetValue(ctx, store.KeyEmail)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "c@d.com", v)
}

func TestDeleteValue(t *testing.T) {
	s := testutil.NewTestStore(t)
	ctx := context.Background()

	for _, k := range store.SessionKeys {
		require.NoError(t, s.SetValue(ctx, k, "x"))
	}
	require.NoError(t, s.SetValue(ctx, "theme", "dark"))

	require.NoError(t, s.DeleteValue(ctx, store.SessionKeys...))

	for _, k := range store.SessionKeys {
		_, ok, err := s.GetValue(ctx, k)
		require.NoError(t, err)
		assert.False(t, ok, k)
	}
	v, ok, err := s.GetValue(ctx, "theme")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "dark", v)

	require.NoError(t, s.ClearValues(ctx))
	_, ok, err = s.GetValue(ctx, "theme")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestNotificationsKeepOrder(t *testing.T) {
	s := testutil.NewTestStore(t)
	ctx := context.Background()
	now := time.Now().Truncate(time.Second)

	list := []model.Notification{
		{ID: "b", Type: model.NotificationCO, Message: "CO high", Timestamp: now, Priority: model.PriorityCritical, Value: 12.5, Unit: "ppm"},
		{ID: "a", RemoteID: 4, Type: model.NotificationPM10, Message: "PM10 high", Timestamp: now.Add(-time.Hour), Read: true, Priority: model.PriorityMedium},
		{Type: model.NotificationSensor, Message: "sensor offline", Timestamp: now.Add(-2 * time.Hour)},
	}
	require.NoError(t, s.ReplaceNotifications(ctx, list))

	got, err := s.LoadNotifications(ctx)
	require.NoError(t, err)
	require.Len(t, got, 3)

	assert.Equal(t, "b", got[0].ID)
	assert.Equal(t, "a", got[1].ID)
	assert.NotEmpty(t, got[2].ID)
	assert.Equal(t, int64(4), got[1].RemoteID)
	assert.True(t, got[1].Read)
	assert.False(t, got[0].Read)
	assert.Equal(t, model.PriorityCritical, got[0].Priority)
	assert.Equal(t, 12.5, got[0].Value)
	assert.Equal(t, "ppm", got[0].Unit)
	assert.True(t, now.Equal(got[0].Timestamp), "timestamp %v != %v", got[0].Timestamp, now)
}

func TestReplaceNotificationsOverwrites(t *testing.T) {
	s := testutil.NewTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.ReplaceNotifications(ctx, []model.Notification{
		{ID: "1", Type: model.NotificationO3, Message: "one", Timestamp: time.Now()},
		{ID: "2", Type: model.NotificationO3, Message: "two", Timestamp: time.Now()},
	}))
	require.NoError(t, s.ReplaceNotifications(ctx, []model.Notification{
		{ID: "3", Type: model.NotificationO3, Message: "three", Timestamp: time.Now()},
	}))

	got, err := s.LoadNotifications(ctx)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "three", got[0].Message)
}

func TestClearNotifications(t *testing.T) {
	s := testutil.NewTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.ReplaceNotifications(ctx, []model.Notification{
		{ID: "1", Type: model.NotificationNO2, Message: "no2", Timestamp: time.Now()},
	}))
	require.NoError(t, s.ClearNotifications(ctx))

	got, err := s.LoadNotifications(ctx)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestReopenKeepsData(t *testing.T) {
	path := t.TempDir() + "/nested/airwatch.db"
	ctx := context.Background()

	s, err := store.NewSQLiteStore(path)
	require.NoError(t, err)
	require.NoError(t, s.SetValue(ctx, store.KeyRole, string(model.RoleAdmin)))
	require.NoError(t, s.Close())

	s, err = store.NewSQLiteStore(path)
	require.NoError(t, err)
	defer s.Close()

	v, ok, err := s.GetValue(ctx, store.KeyRole)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "ROLE_ADMIN", v)
}
