package alerts

import (
	"context"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/airwatch/internal/keys"
	"github.com/nhle/airwatch/internal/model"
	"github.com/nhle/airwatch/internal/notify"
	"github.com/nhle/airwatch/internal/ui"
	"github.com/nhle/airwatch/tests/testutil"
)

func newTestPage(t *testing.T) (Model, *notify.Center) {
	t.Helper()
	center := notify.NewCenter(testutil.NewTestStore(t))
	now := time.Now()
	for _, n := range []model.Notification{
		{Type: model.NotificationPollution, Message: "AQI 180 at the quarry", Timestamp: now.Add(-3 * time.Hour)},
		{Type: model.NotificationCO, Message: "CO 14 ppm", Location: "Workshop B", Timestamp: now.Add(-2 * time.Hour)},
		{Type: model.NotificationPM25, Message: "PM2.5 at 60", Timestamp: now.Add(-time.Hour)},
	} {
		_, err := center.Add(context.Background(), n)
		require.NoError(t, err)
	}

	m := New(&ui.Env{Notices: center, Keys: keys.DefaultKeyMap()}, 120, 40)
	return m, center
}

func press(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func TestListsNewestFirst(t *testing.T) {
	m, _ := newTestPage(t)

	require.Len(t, m.Visible(), 3)
	assert.Equal(t, "PM2.5 at 60", m.Visible()[0].Message)
}

func TestTypeFilterCycles(t *testing.T) {
	m, _ := newTestPage(t)

	m, _ = m.Update(press("t"))
	assert.Equal(t, model.NotificationPollution, m.Filter().Type)
	require.Len(t, m.Visible(), 1)
	assert.Equal(t, "AQI 180 at the quarry", m.Visible()[0].Message)

	m, _ = m.Update(press("0"))
	assert.False(t, m.Filter().Active())
	assert.Len(t, m.Visible(), 3)
}

func TestPriorityFilter(t *testing.T) {
	m, _ := newTestPage(t)

	m, _ = m.Update(press("p"))
	assert.Equal(t, model.PriorityLow, m.Filter().Priority)
	assert.Empty(t, m.Visible())

	m, _ = m.Update(press("p"))
	m, _ = m.Update(press("p"))
	m, _ = m.Update(press("p"))
	assert.Equal(t, model.PriorityCritical, m.Filter().Priority)
	require.Len(t, m.Visible(), 1)
	assert.Equal(t, model.NotificationCO, m.Visible()[0].Type)
}

func TestSearchFiltersAsYouType(t *testing.T) {
	m, _ := newTestPage(t)

	m, _ = m.Update(press("/"))
	assert.True(t, m.Capturing())
	m, _ = m.Update(press("workshop"))
	require.Len(t, m.Visible(), 1)
	assert.Equal(t, "CO 14 ppm", m.Visible()[0].Message)

	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	assert.False(t, m.Capturing())
	assert.Equal(t, "workshop", m.Filter().Search)

	// esc clears an active filter before leaving the page.
	m, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEsc})
	assert.Nil(t, cmd)
	assert.Len(t, m.Visible(), 3)

	_, cmd = m.Update(tea.KeyMsg{Type: tea.KeyEsc})
	require.NotNil(t, cmd)
	assert.IsType(t, ui.NavigateMsg{}, cmd())
}

func TestSelectMarksRead(t *testing.T) {
	m, center := newTestPage(t)
	require.Equal(t, 3, center.UnreadCount())

	m, _ = m.Update(press("j"))
	m, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	require.NotNil(t, cmd)
	m, _ = m.Update(cmd())

	assert.Equal(t, 2, center.UnreadCount())
	assert.True(t, m.Visible()[1].Read)

	m, _ = m.Update(press("u"))
	assert.Len(t, m.Visible(), 2)
}

func TestClearAsksForConfirmation(t *testing.T) {
	m, center := newTestPage(t)

	m, cmd := m.Update(press(m.env.Keys.Clear.Keys()[0]))
	assert.NotNil(t, cmd)
	assert.True(t, m.Capturing())
	assert.Equal(t, 3, center.Len())

	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyEsc})
	assert.Equal(t, 3, center.Len())
}
