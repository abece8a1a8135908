package chat

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/airwatch/internal/api"
	"github.com/nhle/airwatch/internal/keys"
	"github.com/nhle/airwatch/internal/model"
	"github.com/nhle/airwatch/internal/ui"
)

type published struct {
	destination string
	payload     any
}

type fakePublisher struct {
	sent []published
	err  error
}

func (f *fakePublisher) Publish(destination string, v any) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, published{destination, v})
	return nil
}

func newTestModel() Model {
	return New(&ui.Env{Keys: keys.DefaultKeyMap()}, 120, 40)
}

func withGroups(t *testing.T, m Model, groups ...model.ChatGroup) Model {
	t.Helper()
	m, cmd := m.Update(groupsMsg{groups: groups})
	require.NotNil(t, cmd)
	return m
}

func TestGroupsBecomePeers(t *testing.T) {
	m := withGroups(t, newTestModel(),
		model.ChatGroup{ID: 1, Name: "Ops", Site: "Safi", Members: []model.ChatUser{{ID: 4}, {ID: 5}}},
		model.ChatGroup{ID: 2, Name: "Lab"},
	)

	require.Len(t, m.peers, 2)
	assert.Equal(t, "g:1", m.peers[0].peer.Key())
	assert.Equal(t, "Safi · 2 members", m.peers[0].detail)
	assert.Equal(t, "0 members", m.peers[1].detail)
}

func TestSearchResultsFollowGroups(t *testing.T) {
	m := withGroups(t, newTestModel(), model.ChatGroup{ID: 1, Name: "Ops"})
	m, _ = m.Update(usersMsg{users: []model.ChatUser{
		{ID: 0, Email: "me@site.ma"},
		{ID: 7, FirstName: "Yassine", Role: model.RoleRef{Name: model.RoleEngineer}},
	}})

	require.Len(t, m.peers, 2)
	assert.Equal(t, "u:7", m.peers[1].peer.Key())
	assert.Equal(t, "Engineer", m.peers[1].detail)
	assert.Equal(t, "1 users found", m.info)
}

func TestReceiveCountsUnreadForClosedConversation(t *testing.T) {
	m := withGroups(t, newTestModel(), model.ChatGroup{ID: 1, Name: "Ops"})

	m, cmd := m.Update(IncomingMsg{Message: model.ChatMessage{
		Sender:  &model.ChatUser{ID: 9, FirstName: "Hind"},
		Group:   &model.ChatGroup{ID: 1, Name: "Ops"},
		Content: "pumps restarted",
	}})
	assert.Nil(t, cmd)
	assert.Equal(t, int64(1), m.Unread(model.ChatPeer{ID: 1, IsGroup: true}))
	assert.Len(t, m.peers, 1)

	m, _ = m.Update(IncomingMsg{Message: model.ChatMessage{
		Sender:    &model.ChatUser{ID: 9, FirstName: "Hind"},
		Recipient: &model.ChatUser{ID: 0},
		Content:   "call me",
	}})
	require.Len(t, m.peers, 2)
	assert.Equal(t, "Hind", m.peers[1].peer.Name)
	assert.Equal(t, int64(1), m.Unread(model.ChatPeer{ID: 9}))
}

func TestOpenConversationReceivesAndMarksRead(t *testing.T) {
	m := withGroups(t, newTestModel(), model.ChatGroup{ID: 1, Name: "Ops"})
	m.unread["g:1"] = 3

	m, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	require.NotNil(t, cmd)
	peer, ok := m.Active()
	require.True(t, ok)
	assert.Equal(t, "Ops", peer.Name)
	assert.True(t, m.Capturing())
	assert.Zero(t, m.Unread(peer))

	m, cmd = m.Update(IncomingMsg{Message: model.ChatMessage{
		Sender:  &model.ChatUser{ID: 9},
		Group:   &model.ChatGroup{ID: 1},
		Content: "hello",
	}})
	assert.NotNil(t, cmd)
	require.Len(t, m.messages, 1)
	assert.Zero(t, m.Unread(peer))

	// A conversation reply for another peer is ignored.
	m, _ = m.Update(conversationMsg{peer: model.ChatPeer{ID: 2, IsGroup: true}})
	assert.Len(t, m.messages, 1)
}

func TestSendPublishesOverRealtime(t *testing.T) {
	pub := &fakePublisher{}
	m := withGroups(t, newTestModel(), model.ChatGroup{ID: 3, Name: "Night shift"})
	m.env.Realtime = pub
	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyEnter})

	m.input.SetValue("  sensor 4 offline ")
	m, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	require.NotNil(t, cmd)
	assert.Empty(t, m.input.Value())

	msg := cmd()
	sent, ok := msg.(sentMsg)
	require.True(t, ok)
	assert.NoError(t, sent.err)
	assert.Nil(t, sent.message)

	require.Len(t, pub.sent, 1)
	assert.Equal(t, SendDestination, pub.sent[0].destination)
	out := pub.sent[0].payload.(model.OutgoingChat)
	assert.Equal(t, "sensor 4 offline", out.Content)
	require.NotNil(t, out.GroupID)
	assert.Equal(t, int64(3), *out.GroupID)
	assert.Nil(t, out.RecipientID)
}

func TestSentFallbackAppendsMessage(t *testing.T) {
	m := withGroups(t, newTestModel(), model.ChatGroup{ID: 3, Name: "Night shift"})
	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	peer, _ := m.Active()

	m, cmd := m.Update(sentMsg{peer: peer, message: &model.ChatMessage{Content: "via http"}})
	assert.Nil(t, cmd)
	require.Len(t, m.messages, 1)

	m, _ = m.Update(sentMsg{peer: peer, err: errors.New("boom")})
	assert.EqualError(t, m.err, "boom")
	assert.Len(t, m.messages, 1)
}

func TestEscClosesConversationBeforeLeaving(t *testing.T) {
	m := withGroups(t, newTestModel(), model.ChatGroup{ID: 1, Name: "Ops"})
	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyEnter})

	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyEsc})
	assert.False(t, m.Capturing())
	_, ok := m.Active()
	assert.True(t, ok)

	m, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEsc})
	assert.Nil(t, cmd)
	_, ok = m.Active()
	assert.False(t, ok)

	_, cmd = m.Update(tea.KeyMsg{Type: tea.KeyEsc})
	require.NotNil(t, cmd)
	assert.IsType(t, ui.NavigateMsg{}, cmd())
}

func TestGroupRequest(t *testing.T) {
	b := &formBindings{name: "  ", city: "Safi"}
	_, err := b.groupRequest()
	assert.Error(t, err)

	b = &formBindings{name: " Maintenance ", department: " Ops ", site: "Jorf Lasfar", members: []int64{4, 5}}
	req, err := b.groupRequest()
	require.NoError(t, err)
	assert.Equal(t, model.GroupRequest{
		Name:       "Maintenance",
		Department: "Ops",
		Site:       "Jorf Lasfar",
		UserIDs:    []int64{4, 5},
	}, req)
}

func TestMarkReadReportsRejectedSession(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	t.Cleanup(srv.Close)

	env := &ui.Env{
		API:  api.NewClient(srv.URL, time.Second, api.TokenFunc(func() string { return "expired" })),
		Keys: keys.DefaultKeyMap(),
	}
	m := New(env, 120, 40)

	msg := m.markRead(model.ChatPeer{ID: 1, IsGroup: true})()
	f, ok := msg.(ui.Failure)
	require.True(t, ok)
	assert.True(t, api.IsAuthError(f.Failure()))

	m, _ = m.Update(msg)
	assert.Equal(t, "Could not mark conversation read", m.info)
}
