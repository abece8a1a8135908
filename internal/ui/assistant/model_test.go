package assistant

import (
	"errors"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/airwatch/internal/keys"
	"github.com/nhle/airwatch/internal/model"
	"github.com/nhle/airwatch/internal/ui"
	"github.com/nhle/airwatch/tests/testutil"
)

type recorder struct {
	destination string
	payload     any
}

func (r *recorder) Publish(destination string, v any) error {
	r.destination = destination
	r.payload = v
	return nil
}

func newTestPage(t *testing.T) Model {
	t.Helper()
	sessions := testutil.NewTestSessions(testutil.NewTestStore(t), nil)
	return New(&ui.Env{Session: sessions, Keys: keys.DefaultKeyMap()}, 100, 40)
}

func TestAskPublishesQuestion(t *testing.T) {
	pub := &recorder{}
	m := newTestPage(t)
	m.env.Realtime = pub

	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("i")})
	require.True(t, m.Capturing())

	m.input.SetValue("Is it safe to work outside?")
	m, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	require.NotNil(t, cmd)
	assert.True(t, m.waiting)
	require.Len(t, m.Messages(), 1)
	assert.Equal(t, model.AssistantRoleUser, m.Messages()[0].Role)

	m, _ = m.Update(cmd())
	assert.True(t, m.waiting)
	assert.Equal(t, SendDestination, pub.destination)
	q := pub.payload.(model.AssistantMessage)
	assert.Equal(t, "Is it safe to work outside?", q.Content)

	// Enter is ignored while a reply is pending.
	m.input.SetValue("hello?")
	_, cmd = m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	assert.Nil(t, cmd)
}

func TestRepliesEndWaiting(t *testing.T) {
	m := newTestPage(t)
	m.waiting = true

	m, _ = m.Update(ReplyMsg{Message: model.AssistantMessage{Role: model.AssistantRoleSystem, Content: "Context: AQI 42"}})
	assert.True(t, m.waiting)

	m, _ = m.Update(ReplyMsg{Message: model.AssistantMessage{Content: "Conditions are good."}})
	assert.False(t, m.waiting)
	require.Len(t, m.Messages(), 2)
	assert.Equal(t, model.AssistantRoleAssistant, m.Messages()[1].Role)

	m, _ = m.Update(ReplyMsg{})
	assert.Len(t, m.Messages(), 2)
}

func TestHTTPAnswerAndFailure(t *testing.T) {
	m := newTestPage(t)
	m.waiting = true

	m, _ = m.Update(answerMsg{reply: "Wear a mask near the crusher."})
	assert.False(t, m.waiting)
	require.Len(t, m.Messages(), 1)

	m.waiting = true
	m, _ = m.Update(answerMsg{err: errors.New("backend down")})
	assert.False(t, m.waiting)
	assert.EqualError(t, m.err, "backend down")
}

func TestHistoryDoesNotOverwriteConversation(t *testing.T) {
	m := newTestPage(t)
	m, _ = m.Update(historyMsg{messages: []model.AssistantMessage{{Role: "user", Content: "old"}}})
	require.Len(t, m.Messages(), 1)

	m, _ = m.Update(historyMsg{messages: []model.AssistantMessage{{Role: "user", Content: "other"}}})
	assert.Equal(t, "old", m.Messages()[0].Content)
}
