package app

import (
	"context"
	"log"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/nhle/airwatch/internal/model"
	"github.com/nhle/airwatch/internal/realtime"
	"github.com/nhle/airwatch/internal/refresh"
	"github.com/nhle/airwatch/internal/session"
	"github.com/nhle/airwatch/internal/ui"
	"github.com/nhle/airwatch/internal/ui/assistant"
	"github.com/nhle/airwatch/internal/ui/chat"
)

// inboundMsg is a realtime payload; gen identifies the connection it
// arrived on so traffic from a previous session is ignored.
type inboundMsg struct {
	gen int
	realtime.Message
}

type connStateMsg struct {
	gen   int
	state realtime.State
	err   error
}

type alertAddedMsg struct {
	notice model.Notification
	err    error
}

type prefsFailedMsg struct {
	err error
}

func (m prefsFailedMsg) Failure() error { return m.err }

// topicSet holds the expanded destinations of the current session.
type topicSet struct {
	alerts    string
	chat      string
	assistant string
}

// newPoller registers the dashboard feeds. The notification feed merges
// the backend's list into the local center and reports how many alerts
// were new.
func newPoller(env *ui.Env) *refresh.Poller {
	interval := time.Minute
	if env.Config != nil {
		interval = env.Config.Display.RefreshInterval()
	}

	p := refresh.New()
	p.Register(refresh.FeedWeather, interval, func(ctx context.Context) (any, error) {
		return env.API.CurrentWeather(ctx)
	})
	p.Register(refresh.FeedAirQuality, interval, func(ctx context.Context) (any, error) {
		return env.API.LiveAirQuality(ctx)
	})
	p.Register(refresh.FeedNotifications, interval, func(ctx context.Context) (any, error) {
		list, err := env.API.Notifications(ctx)
		if err != nil {
			return nil, err
		}
		return env.Notices.Merge(ctx, list)
	})
	return p
}

func waitInbox(ch <-chan tea.Msg) tea.Cmd {
	return func() tea.Msg {
		return <-ch
	}
}

// post hands msg to the UI without blocking the connection's reader.
func post(ch chan<- tea.Msg, msg tea.Msg) {
	select {
	case ch <- msg:
	default:
		log.Printf("realtime inbox full, dropping %T", msg)
	}
}

// startSession resets the pages, loads the preferences, connects the
// realtime channel and starts the poller.
func (m *Model) startSession() tea.Cmd {
	m.dashboard.Reset()
	m.air.Reset()
	m.chat.Reset()
	m.assistant.Reset()
	m.env.Prefs = model.DefaultPreferences()

	env := m.env
	cmds := []tea.Cmd{func() tea.Msg {
		prefs, err := env.API.Preferences(env.Context())
		if err != nil {
			return prefsFailedMsg{err: err}
		}
		return ui.PrefsChangedMsg{Prefs: prefs}
	}}

	m.connect(m.env.Session.Current())

	start := m.poller.Start()
	if !m.listening {
		m.listening = true
		cmds = append(cmds, start)
	}
	return tea.Batch(cmds...)
}

// connect opens the realtime channel for s.
func (m *Model) connect(s model.Session) {
	cfg := m.env.Config
	if cfg == nil {
		return
	}
	endpoint, err := cfg.RealtimeEndpoint()
	if err != nil {
		log.Printf("realtime disabled: %v", err)
		return
	}

	expand := func(template string) string {
		if list := realtime.ExpandTopics([]string{template}, s.UserID); len(list) > 0 {
			return list[0]
		}
		return ""
	}
	m.topics = topicSet{
		alerts:    expand(cfg.Realtime.Topics.Alerts),
		chat:      expand(cfg.Realtime.Topics.Chat),
		assistant: expand(cfg.Realtime.Topics.Assistant),
	}
	expanded := realtime.ExpandTopics([]string{
		cfg.Realtime.Topics.Alerts,
		cfg.Realtime.Topics.Chat,
		cfg.Realtime.Topics.Assistant,
	}, s.UserID)

	m.rtGen++
	gen, inbox := m.rtGen, m.inbox
	rt := realtime.New(realtime.Options{
		Endpoint:  endpoint,
		Transport: cfg.Realtime.Transport,
		Topics:    expanded,
		Policy:    realtime.PolicyFor(cfg.Realtime.Reconnect, cfg.Realtime.ReconnectDelay(), cfg.Realtime.MaxAttempts),
		OnState: func(state realtime.State, err error) {
			post(inbox, connStateMsg{gen: gen, state: state, err: err})
		},
	}, func(msg realtime.Message) {
		post(inbox, inboundMsg{gen: gen, Message: msg})
	})
	if err := rt.Start(s.Token); err != nil {
		log.Printf("starting realtime: %v", err)
	}
	m.rt = rt
	m.rtState = rt.State()
	m.env.Realtime = rt
}

// reconnect restarts a channel that gave up.
func (m *Model) reconnect() {
	if m.rt == nil {
		m.connect(m.env.Session.Current())
		return
	}
	if err := m.rt.Start(m.env.Session.Current().Token); err != nil {
		log.Printf("reconnecting: %v", err)
	}
}

// endSession stops the per-session services.
func (m *Model) endSession() {
	m.poller.Stop()
	if m.rt != nil {
		m.rt.Stop()
		m.rt = nil
	}
	m.rtGen++
	m.env.Realtime = nil
	m.toast = ""
}

// logout ends the session and returns to the login page with notice.
func (m *Model) logout(notice string) tea.Cmd {
	m.endSession()
	if err := m.env.Session.Logout(m.env.Context()); err != nil {
		log.Printf("clearing session: %v", err)
	}
	m.dashboard.Reset()
	m.air.Reset()
	m.chat.Reset()
	m.assistant.Reset()
	m.overlay = OverlayNone
	m.route = session.RouteLogin
	return m.auth.Open(session.RouteLogin, notice)
}

// expire handles a token the backend no longer accepts.
func (m *Model) expire() tea.Cmd {
	return m.logout("Session expired. Please sign in again.")
}

// dispatch routes a realtime payload by destination.
func (m *Model) dispatch(msg inboundMsg) tea.Cmd {
	if msg.gen != m.rtGen || !m.env.Session.Authenticated() {
		return nil
	}

	switch msg.Destination {
	case m.topics.alerts:
		var n model.Notification
		if err := msg.Decode(&n); err != nil {
			log.Printf("decoding alert: %v", err)
			return nil
		}
		env := m.env
		return func() tea.Msg {
			stored, err := env.Notices.Add(env.Context(), n)
			return alertAddedMsg{notice: stored, err: err}
		}

	case m.topics.chat:
		var cm model.ChatMessage
		if err := msg.Decode(&cm); err != nil {
			log.Printf("decoding chat message: %v", err)
			return nil
		}
		var cmd tea.Cmd
		m.chat, cmd = m.chat.Update(chat.IncomingMsg{Message: cm})
		return cmd

	case m.topics.assistant:
		var am model.AssistantMessage
		if err := msg.Decode(&am); err != nil {
			log.Printf("decoding assistant message: %v", err)
			return nil
		}
		var cmd tea.Cmd
		m.assistant, cmd = m.assistant.Update(assistant.ReplyMsg{Message: am})
		return cmd
	}

	log.Printf("realtime message on unexpected destination %s", msg.Destination)
	return nil
}
