// Package workspace renders the role-specific spaces and the page shown
// when a route is not allowed for the current role.
package workspace

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/airwatch/internal/api"
	"github.com/nhle/airwatch/internal/model"
	"github.com/nhle/airwatch/internal/session"
	"github.com/nhle/airwatch/internal/theme"
	"github.com/nhle/airwatch/internal/ui"
)

type employeesMsg struct {
	list []model.Employee
	err  error
}

func (m employeesMsg) Failure() error { return m.err }

// Model is the workspace page. Route selects which space is shown.
type Model struct {
	env    *ui.Env
	route  session.Route
	counts map[model.Role]int
	total  int
	err    error
	width  int
	height int
}

// New creates the workspace page.
func New(env *ui.Env, width, height int) Model {
	return Model{env: env, route: session.RouteUnauthorized, width: width, height: height}
}

// Open shows route and returns the command loading its data.
func (m *Model) Open(route session.Route) tea.Cmd {
	m.route = route
	m.err = nil
	if route != session.RouteAdmin {
		return nil
	}
	env := m.env
	return func() tea.Msg {
		list, err := env.API.Employees(env.Context())
		return employeesMsg{list: list, err: err}
	}
}

// Route returns the space being shown.
func (m Model) Route() session.Route {
	return m.route
}

// Capturing is always false.
func (m Model) Capturing() bool { return false }

// Update handles messages.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case employeesMsg:
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.counts = model.CountByRole(msg.list)
		m.total = len(msg.list)
		return m, nil

	case tea.KeyMsg:
		keys := m.env.Keys
		switch {
		case key.Matches(msg, keys.Back), key.Matches(msg, keys.Select) && m.route == session.RouteUnauthorized:
			return m, ui.Navigate(session.RouteDashboard)
		case key.Matches(msg, keys.Refresh):
			cmd := m.Open(m.route)
			return m, cmd
		case msg.String() == "e" && m.route == session.RouteAdmin:
			return m, ui.Navigate(session.RouteEmployees)
		}
	}
	return m, nil
}

// View renders the page.
func (m Model) View() string {
	var body string
	switch m.route {
	case session.RouteAdmin:
		body = m.adminView()
	case session.RouteEngineering:
		body = m.engineeringView()
	default:
		body = lipgloss.JoinVertical(lipgloss.Left,
			theme.ErrorStyle.Render("Access denied"),
			"",
			"Your role does not allow access to this page.",
			theme.DimmedStyle.Render("Press enter to return to the dashboard."),
		)
		return ui.Panel(m.width, m.height, lipgloss.Place(
			max(m.width-6, 0), max(m.height-6, 0), lipgloss.Center, lipgloss.Center, body))
	}
	return ui.Panel(m.width, m.height, body)
}

func (m Model) adminView() string {
	parts := []string{ui.Title("Admin space", "Manage users, alerts and system configuration")}
	if m.err != nil {
		if api.IsForbidden(m.err) {
			parts = append(parts, theme.ErrorStyle.Render("The backend refused the user list for this account."))
		} else {
			parts = append(parts, ui.Banner(m.err, ""))
		}
	}

	var cards []string
	cards = append(cards, card("Users", fmt.Sprintf("%d", m.total)))
	for _, r := range model.Roles {
		cards = append(cards, card(r.Label()+"s", theme.RoleStyle(r).Render(fmt.Sprintf("%d", m.counts[r]))))
	}
	stats := m.env.Notices.Stats()
	cards = append(cards,
		card("Alerts", fmt.Sprintf("%d", stats.Total)),
		card("Critical", theme.ErrorStyle.Render(fmt.Sprintf("%d", stats.Critical))),
	)

	parts = append(parts, "", lipgloss.JoinHorizontal(lipgloss.Top, cards...), "",
		theme.HelpStyle.Render("e manage employees · N alerts · P preferences"))
	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

func (m Model) engineeringView() string {
	s := m.env.Session.Current()
	title := s.Role.Label() + " space"
	stats := m.env.Notices.Stats()
	prefs := m.env.Prefs

	lines := []string{
		ui.Title(title, "Welcome, "+s.Name()),
		"",
		fmt.Sprintf("%d alerts today, %d unread", stats.Today, stats.Unread),
		fmt.Sprintf("Alerting above AQI %.0f · PM2.5 %.0f · PM10 %.0f", prefs.ThresholdAQI, prefs.ThresholdPM25, prefs.ThresholdPM10),
		"",
		theme.HelpStyle.Render(strings.Join([]string{
			"W weather", "A air quality", "N alerts", "C team chat", "I assistant",
		}, " · ")),
	}
	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

func card(label, value string) string {
	return theme.CardStyle.Width(16).Render(lipgloss.JoinVertical(lipgloss.Left,
		theme.DimmedStyle.Render(label),
		theme.TitleStyle.Render(value),
	))
}

// KeyHints returns the status bar hints.
func (m Model) KeyHints() string {
	switch m.route {
	case session.RouteAdmin:
		return "e employees | r reload | esc back"
	case session.RouteEngineering:
		return "esc back"
	}
	return "enter dashboard"
}

// SetSize updates dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
}
