package app

import (
	"fmt"
	"log"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/nhle/airwatch/internal/api"
	"github.com/nhle/airwatch/internal/realtime"
	"github.com/nhle/airwatch/internal/refresh"
	"github.com/nhle/airwatch/internal/session"
	"github.com/nhle/airwatch/internal/theme"
	"github.com/nhle/airwatch/internal/ui"
	"github.com/nhle/airwatch/internal/ui/airquality"
	"github.com/nhle/airwatch/internal/ui/alerts"
	"github.com/nhle/airwatch/internal/ui/assistant"
	"github.com/nhle/airwatch/internal/ui/auth"
	"github.com/nhle/airwatch/internal/ui/chat"
	"github.com/nhle/airwatch/internal/ui/command"
	"github.com/nhle/airwatch/internal/ui/dashboard"
	"github.com/nhle/airwatch/internal/ui/employees"
	helpview "github.com/nhle/airwatch/internal/ui/help"
	"github.com/nhle/airwatch/internal/ui/preferences"
	"github.com/nhle/airwatch/internal/ui/weather"
	"github.com/nhle/airwatch/internal/ui/workspace"
)

// toastDuration is how long a new-alert toast stays on screen.
const toastDuration = 5 * time.Second

// Overlay is drawn over the current page.
type Overlay int

const (
	OverlayNone Overlay = iota
	OverlayHelp
	OverlayCommand
)

// bootMsg starts the restored session, if any, once the program runs.
type bootMsg struct{}

type toastExpiredMsg struct {
	id int
}

// Model is the root Bubble Tea model. It owns the route, the session
// services and every page.
type Model struct {
	env     *ui.Env
	layout  ui.Layout
	ready   bool
	route   session.Route
	overlay Overlay

	poller    *refresh.Poller
	listening bool
	rt        *realtime.Manager
	rtGen     int
	rtState   realtime.State
	topics    topicSet
	inbox     chan tea.Msg

	toast   string
	toastID int

	auth        auth.Model
	dashboard   dashboard.Model
	weather     weather.Model
	air         airquality.Model
	alerts      alerts.Model
	employees   employees.Model
	preferences preferences.Model
	chat        chat.Model
	assistant   assistant.Model
	workspace   workspace.Model
	helpView    helpview.Model
	commandView command.Model
}

// New creates the root model around env. The poller's feeds are
// registered here and started on every sign-in.
func New(env *ui.Env) Model {
	w, h := 80, 24
	return Model{
		env:         env,
		route:       session.RouteLogin,
		poller:      newPoller(env),
		inbox:       make(chan tea.Msg, 64),
		auth:        auth.New(env, w, h),
		dashboard:   dashboard.New(env, w, h),
		weather:     weather.New(env, w, h),
		air:         airquality.New(env, w, h),
		alerts:      alerts.New(env, w, h),
		employees:   employees.New(env, w, h),
		preferences: preferences.New(env, w, h),
		chat:        chat.New(env, w, h),
		assistant:   assistant.New(env, w, h),
		workspace:   workspace.New(env, w, h),
		helpView:    helpview.New(env.Keys, w, h),
		commandView: command.New(w, h),
	}
}

// Init waits for realtime traffic and boots the session.
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		waitInbox(m.inbox),
		func() tea.Msg { return bootMsg{} },
	)
}

// Route returns the page being shown.
func (m Model) Route() session.Route {
	return m.route
}

// Overlay returns the overlay being shown.
func (m Model) Overlay() Overlay {
	return m.overlay
}

// Toast returns the transient notification text.
func (m Model) Toast() string {
	return m.toast
}

// Shutdown stops the background services. Call it after the program exits.
func (m Model) Shutdown() {
	m.poller.Stop()
	if m.rt != nil {
		m.rt.Stop()
	}
}

// Update handles messages and dispatches to the active page.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if f, ok := msg.(ui.Failure); ok && api.IsAuthError(f.Failure()) && m.env.Session.Authenticated() {
		log.Printf("session rejected by backend: %v", f.Failure())
		cmd := m.expire()
		return m, cmd
	}

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.layout = ui.NewLayout(msg.Width, msg.Height)
		m.ready = true
		m.resize()
		return m.updateActive(msg)

	case bootMsg:
		if m.env.Session.Authenticated() {
			cmd := m.startSession()
			open := m.open(session.RouteDashboard)
			return m, tea.Batch(cmd, open)
		}
		cmd := m.open(session.RouteLogin)
		return m, cmd

	case auth.LoggedInMsg:
		log.Printf("signed in as %s (%s)", msg.Session.Email, msg.Session.Role)
		cmd := m.startSession()
		open := m.open(session.Home(msg.Session))
		return m, tea.Batch(cmd, open)

	case ui.NavigateMsg:
		cmd := m.open(msg.Route)
		return m, cmd

	case ui.RefreshMsg:
		m.poller.RefreshAll()
		return m, nil

	case ui.PrefsChangedMsg:
		m.env.Prefs = msg.Prefs
		return m, nil

	case ui.NoticesChangedMsg:
		cmd := m.broadcastNotices()
		return m, cmd

	case refresh.ResultMsg:
		return m.handleResult(msg)

	case inboundMsg:
		cmd := m.dispatch(msg)
		return m, tea.Batch(cmd, waitInbox(m.inbox))

	case connStateMsg:
		if msg.gen == m.rtGen {
			m.rtState = msg.state
			if msg.err != nil {
				log.Printf("realtime %s: %v", msg.state, msg.err)
			}
		}
		return m, waitInbox(m.inbox)

	case alertAddedMsg:
		if msg.err != nil {
			log.Printf("storing realtime alert: %v", msg.err)
		}
		var toast tea.Cmd
		if m.env.Prefs.NotificationsEnabled {
			toast = m.showToast(fmt.Sprintf("%s · %s", msg.notice.Type.Label(), msg.notice.Message))
		}
		notices := m.broadcastNotices()
		return m, tea.Batch(toast, notices)

	case toastExpiredMsg:
		if msg.id == m.toastID {
			m.toast = ""
		}
		return m, nil

	case command.CommandMsg:
		m.overlay = OverlayNone
		m.commandView.Blur()
		cmd := m.executeCommand(string(msg))
		return m, cmd

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			m.Shutdown()
			return m, tea.Quit
		}
		if handled, cmd := m.handleOverlayKey(msg); handled {
			return m, cmd
		}
		if !m.capturing() {
			if handled, cmd := m.handleGlobalKey(msg); handled {
				return m, cmd
			}
		}
	}

	if m.overlay == OverlayCommand {
		var cmd tea.Cmd
		m.commandView, cmd = m.commandView.Update(msg)
		return m, cmd
	}
	return m.updateActive(msg)
}

// handleOverlayKey routes keys while help or the command palette is open.
func (m *Model) handleOverlayKey(msg tea.KeyMsg) (bool, tea.Cmd) {
	switch m.overlay {
	case OverlayHelp:
		if msg.String() == "esc" || key.Matches(msg, m.env.Keys.Help) || key.Matches(msg, m.env.Keys.Quit) {
			m.overlay = OverlayNone
		}
		return true, nil
	case OverlayCommand:
		if msg.String() == "esc" {
			m.overlay = OverlayNone
			m.commandView.Blur()
			return true, nil
		}
		var cmd tea.Cmd
		m.commandView, cmd = m.commandView.Update(msg)
		return true, cmd
	}
	return false, nil
}

// handleGlobalKey handles keys that work on every page without a focused
// input.
func (m *Model) handleGlobalKey(msg tea.KeyMsg) (bool, tea.Cmd) {
	k := m.env.Keys
	switch {
	case key.Matches(msg, k.Quit):
		m.Shutdown()
		return true, tea.Quit
	case key.Matches(msg, k.Help):
		m.overlay = OverlayHelp
		return true, nil
	case key.Matches(msg, k.Command):
		m.overlay = OverlayCommand
		return true, m.commandView.Focus()
	}

	if !m.env.Session.Authenticated() {
		return false, nil
	}

	routes := []struct {
		binding key.Binding
		route   session.Route
	}{
		{k.GoDashboard, session.RouteDashboard},
		{k.GoWeather, session.RouteWeather},
		{k.GoAirQuality, session.RouteAirQuality},
		{k.GoAlerts, session.RouteAlerts},
		{k.GoEmployees, session.RouteEmployees},
		{k.GoPreferences, session.RoutePreferences},
		{k.GoChat, session.RouteChat},
		{k.GoAssistant, session.RouteAssistant},
		{k.GoWorkspace, session.Workspace(m.env.Session.Current())},
	}
	for _, r := range routes {
		if key.Matches(msg, r.binding) {
			return true, m.open(r.route)
		}
	}
	if key.Matches(msg, k.Logout) {
		return true, m.logout("Signed out")
	}
	return false, nil
}

// capturing reports whether the active page owns every key press.
func (m Model) capturing() bool {
	switch m.route {
	case session.RouteLogin, session.RouteRegister:
		return m.auth.Capturing()
	case session.RouteWeather:
		return m.weather.Capturing()
	case session.RouteAlerts:
		return m.alerts.Capturing()
	case session.RouteEmployees:
		return m.employees.Capturing()
	case session.RoutePreferences:
		return m.preferences.Capturing()
	case session.RouteChat:
		return m.chat.Capturing()
	case session.RouteAssistant:
		return m.assistant.Capturing()
	}
	return false
}

// open runs the route guard and switches to the resulting page.
func (m *Model) open(route session.Route) tea.Cmd {
	switch m.env.Session.Authorize(route) {
	case session.RedirectLogin:
		route = session.RouteLogin
	case session.RedirectUnauthorized:
		log.Printf("route %s refused for role %s", route, m.env.Session.Current().Role)
		route = session.RouteUnauthorized
	}
	if (route == session.RouteLogin || route == session.RouteRegister) && m.env.Session.Authenticated() {
		route = session.RouteDashboard
	}

	m.overlay = OverlayNone
	m.route = route

	switch route {
	case session.RouteLogin, session.RouteRegister:
		return m.auth.Open(route, "")
	case session.RouteWeather:
		return m.weather.Init()
	case session.RouteAirQuality:
		return m.air.Init()
	case session.RouteAlerts:
		var cmd tea.Cmd
		m.alerts, cmd = m.alerts.Update(ui.NoticesChangedMsg{})
		return cmd
	case session.RouteEmployees:
		return m.employees.Init()
	case session.RoutePreferences:
		return m.preferences.Init()
	case session.RouteChat:
		return m.chat.Init()
	case session.RouteAssistant:
		return tea.Batch(m.assistant.Init(), m.assistant.Focus())
	case session.RouteAdmin, session.RouteEngineering, session.RouteUnauthorized:
		return m.workspace.Open(route)
	}
	return nil
}

// updateActive dispatches msg to the page being shown.
func (m Model) updateActive(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch m.route {
	case session.RouteLogin, session.RouteRegister:
		m.auth, cmd = m.auth.Update(msg)
	case session.RouteDashboard:
		m.dashboard, cmd = m.dashboard.Update(msg)
	case session.RouteWeather:
		m.weather, cmd = m.weather.Update(msg)
	case session.RouteAirQuality:
		m.air, cmd = m.air.Update(msg)
	case session.RouteAlerts:
		m.alerts, cmd = m.alerts.Update(msg)
	case session.RouteEmployees:
		m.employees, cmd = m.employees.Update(msg)
	case session.RoutePreferences:
		m.preferences, cmd = m.preferences.Update(msg)
	case session.RouteChat:
		m.chat, cmd = m.chat.Update(msg)
	case session.RouteAssistant:
		m.assistant, cmd = m.assistant.Update(msg)
	case session.RouteAdmin, session.RouteEngineering, session.RouteUnauthorized:
		m.workspace, cmd = m.workspace.Update(msg)
	}
	return m, cmd
}

// handleResult hands poller output to the pages that show it.
func (m Model) handleResult(msg refresh.ResultMsg) (tea.Model, tea.Cmd) {
	wait := m.poller.WaitForNextResult()
	if !m.env.Session.Authenticated() {
		return m, wait
	}
	if msg.Unauthorized {
		expire := m.expire()
		return m, tea.Batch(wait, expire)
	}
	if msg.Err != nil {
		log.Printf("refreshing %s: %v", msg.Feed, msg.Err)
	}

	switch msg.Feed {
	case refresh.FeedNotifications:
		added, _ := msg.Data.(int)
		if added == 0 {
			return m, wait
		}
		var toast tea.Cmd
		if m.env.Prefs.NotificationsEnabled {
			toast = m.showToast(fmt.Sprintf("%d new alerts", added))
		}
		notices := m.broadcastNotices()
		return m, tea.Batch(wait, toast, notices)

	default:
		var dashCmd, airCmd tea.Cmd
		m.dashboard, dashCmd = m.dashboard.Update(msg)
		m.air, airCmd = m.air.Update(msg)
		return m, tea.Batch(wait, dashCmd, airCmd)
	}
}

// broadcastNotices tells every page that lists alerts to re-read them.
func (m *Model) broadcastNotices() tea.Cmd {
	var dashCmd, alertsCmd tea.Cmd
	m.dashboard, dashCmd = m.dashboard.Update(ui.NoticesChangedMsg{})
	m.alerts, alertsCmd = m.alerts.Update(ui.NoticesChangedMsg{})
	return tea.Batch(dashCmd, alertsCmd)
}

func (m *Model) showToast(text string) tea.Cmd {
	m.toastID++
	m.toast = text
	id := m.toastID
	return tea.Tick(toastDuration, func(time.Time) tea.Msg {
		return toastExpiredMsg{id: id}
	})
}

func (m *Model) resize() {
	w, h := m.layout.ContentWidth(), m.layout.ContentHeight()
	m.auth.SetSize(w, h)
	m.dashboard.SetSize(w, h)
	m.weather.SetSize(w, h)
	m.air.SetSize(w, h)
	m.alerts.SetSize(w, h)
	m.employees.SetSize(w, h)
	m.preferences.SetSize(w, h)
	m.chat.SetSize(w, h)
	m.assistant.SetSize(w, h)
	m.workspace.SetSize(w, h)
	m.helpView.SetSize(w, h)
	m.commandView.SetSize(w, h)
}

// executeCommand runs a command palette entry.
func (m *Model) executeCommand(cmd string) tea.Cmd {
	routes := map[string]session.Route{
		"dashboard":   session.RouteDashboard,
		"weather":     session.RouteWeather,
		"air":         session.RouteAirQuality,
		"alerts":      session.RouteAlerts,
		"employees":   session.RouteEmployees,
		"preferences": session.RoutePreferences,
		"chat":        session.RouteChat,
		"assistant":   session.RouteAssistant,
		"workspace":   session.Workspace(m.env.Session.Current()),
	}
	if route, ok := routes[cmd]; ok {
		return m.open(route)
	}

	env := m.env
	switch cmd {
	case "refresh":
		m.poller.RefreshAll()
	case "reconnect":
		m.reconnect()
	case "read all":
		return func() tea.Msg {
			if err := env.Notices.MarkAllRead(env.Context()); err != nil {
				log.Printf("marking alerts read: %v", err)
			}
			return ui.NoticesChangedMsg{}
		}
	case "clear alerts":
		return func() tea.Msg {
			if err := env.Notices.Clear(env.Context()); err != nil {
				log.Printf("clearing alerts: %v", err)
			}
			return ui.NoticesChangedMsg{}
		}
	case "logout":
		if m.env.Session.Authenticated() {
			return m.logout("Signed out")
		}
	case "quit", "q":
		m.Shutdown()
		return tea.Quit
	}
	return nil
}

// View renders the frame around the active page.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}
	header := m.layout.RenderHeader(m.headerTitle(), m.connectionStatus())
	toast := m.layout.RenderToast(m.toast)
	status := m.layout.RenderStatusBar(m.keyHints())
	return m.layout.RenderWithFrame(header, toast, m.renderContent(), status)
}

func (m Model) headerTitle() string {
	title := "AirWatch"
	if !m.env.Session.Authenticated() {
		return title
	}
	s := m.env.Session.Current()
	title += " · " + s.Name() + " (" + s.Role.Label() + ")"
	if n := m.env.Notices.UnreadCount(); n > 0 {
		title += fmt.Sprintf(" [%d unread]", n)
	}
	return title
}

// connectionStatus describes the realtime channel and the poller.
func (m Model) connectionStatus() string {
	if !m.env.Session.Authenticated() {
		return ""
	}
	var status string
	switch {
	case m.rt == nil:
		status = theme.DimmedStyle.Render("○ offline")
	case m.rtState == realtime.Connected:
		status = theme.SuccessStyle.Render("● live")
	case m.rtState == realtime.Connecting, m.rtState == realtime.Disconnected:
		status = theme.DimmedStyle.Render("◌ reconnecting")
	case m.rtState == realtime.Failed:
		status = theme.ErrorStyle.Render("× offline, :reconnect")
	default:
		status = theme.DimmedStyle.Render("○ " + m.rtState.String())
	}
	for _, s := range m.poller.Statuses() {
		if s.State == refresh.FeedRunning {
			return "refreshing · " + status
		}
	}
	return status
}

func (m Model) renderContent() string {
	switch m.overlay {
	case OverlayHelp:
		return m.helpView.View()
	case OverlayCommand:
		return m.commandView.View()
	}

	switch m.route {
	case session.RouteLogin, session.RouteRegister:
		return m.auth.View()
	case session.RouteDashboard:
		return m.dashboard.View()
	case session.RouteWeather:
		return m.weather.View()
	case session.RouteAirQuality:
		return m.air.View()
	case session.RouteAlerts:
		return m.alerts.View()
	case session.RouteEmployees:
		return m.employees.View()
	case session.RoutePreferences:
		return m.preferences.View()
	case session.RouteChat:
		return m.chat.View()
	case session.RouteAssistant:
		return m.assistant.View()
	default:
		return m.workspace.View()
	}
}

func (m Model) keyHints() string {
	switch m.overlay {
	case OverlayHelp:
		return "? close help | esc back"
	case OverlayCommand:
		return "enter execute | tab complete | esc close"
	}

	var hints string
	switch m.route {
	case session.RouteLogin, session.RouteRegister:
		return m.auth.KeyHints()
	case session.RouteDashboard:
		hints = m.dashboard.KeyHints()
	case session.RouteWeather:
		hints = m.weather.KeyHints()
	case session.RouteAirQuality:
		hints = m.air.KeyHints()
	case session.RouteAlerts:
		hints = m.alerts.KeyHints()
	case session.RouteEmployees:
		hints = m.employees.KeyHints()
	case session.RoutePreferences:
		hints = m.preferences.KeyHints()
	case session.RouteChat:
		hints = m.chat.KeyHints()
	case session.RouteAssistant:
		hints = m.assistant.KeyHints()
	default:
		hints = m.workspace.KeyHints()
	}
	if m.capturing() {
		return hints
	}
	return hints + " | ? help | : command | q quit"
}
