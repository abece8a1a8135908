// Package dashboard renders the landing page: current weather, current
// air quality and the most recent alerts.
package dashboard

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/airwatch/internal/model"
	"github.com/nhle/airwatch/internal/notify"
	"github.com/nhle/airwatch/internal/refresh"
	"github.com/nhle/airwatch/internal/session"
	"github.com/nhle/airwatch/internal/theme"
	"github.com/nhle/airwatch/internal/ui"
)

// recentAlerts is how many alerts the dashboard lists.
const recentAlerts = 5

type locationMsg struct {
	name string
	err  error
}

// Model is the dashboard page.
type Model struct {
	env *ui.Env

	weather    *model.CurrentWeather
	weatherErr error
	air        *model.AirQuality
	airErr     error
	location   string
	updated    time.Time

	width  int
	height int
}

// New creates the dashboard page.
func New(env *ui.Env, width, height int) Model {
	return Model{env: env, width: width, height: height}
}

// Reset forgets the data of the previous session.
func (m *Model) Reset() {
	*m = New(m.env, m.width, m.height)
}

// Update handles messages.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case refresh.ResultMsg:
		return m.handleResult(msg)

	case locationMsg:
		if msg.err == nil {
			m.location = msg.name
		}
		return m, nil

	case tea.KeyMsg:
		keys := m.env.Keys
		switch {
		case key.Matches(msg, keys.Refresh):
			return m, ui.Refresh
		case key.Matches(msg, keys.Select):
			return m, ui.Navigate(session.RouteAlerts)
		}
	}
	return m, nil
}

func (m Model) handleResult(msg refresh.ResultMsg) (Model, tea.Cmd) {
	switch msg.Feed {
	case refresh.FeedWeather:
		m.weatherErr = msg.Err
		if w, ok := msg.Data.(model.CurrentWeather); ok {
			m.weather = &w
			m.updated = time.Now()
		}

	case refresh.FeedAirQuality:
		m.airErr = msg.Err
		if a, ok := msg.Data.(model.AirQuality); ok {
			m.air = &a
			m.updated = time.Now()
			return m, m.resolveLocation(a)
		}
	}
	return m, nil
}

// resolveLocation names the station of the reading. Readings without
// coordinates fall back to the weather provider's city.
func (m Model) resolveLocation(a model.AirQuality) tea.Cmd {
	lat, lon := a.Latitude, a.Longitude
	if lat == 0 && lon == 0 && m.weather != nil {
		lat, lon = m.weather.Coord.Lat, m.weather.Coord.Lon
	}
	if (lat == 0 && lon == 0) || m.env.Geocoder == nil {
		return nil
	}
	env := m.env
	return func() tea.Msg {
		name, err := env.Geocoder.Reverse(env.Context(), lat, lon)
		return locationMsg{name: name, err: err}
	}
}

// View renders the page.
func (m Model) View() string {
	s := m.env.Session.Current()
	greeting := ui.Title("Welcome, "+s.Name(), "") + theme.RoleStyle(s.Role).Render(s.Role.Label())

	cardWidth := max((m.width-10)/2, 30)
	cards := lipgloss.JoinHorizontal(lipgloss.Top,
		theme.CardStyle.Width(cardWidth).Render(m.weatherCard()),
		"  ",
		theme.CardStyle.Width(cardWidth).Render(m.airCard()),
	)

	parts := []string{greeting, "", cards, "", m.alertsSection()}
	if !m.updated.IsZero() {
		parts = append(parts, "", theme.DimmedStyle.Render("Updated "+m.updated.Format("15:04:05")))
	}
	return ui.Panel(m.width, m.height, lipgloss.JoinVertical(lipgloss.Left, parts...))
}

func (m Model) weatherCard() string {
	title := theme.TitleStyle.Render("Weather")
	if m.weather == nil {
		return title + "\n" + m.placeholder(m.weatherErr)
	}

	w := m.weather
	unit := m.env.Prefs.TemperatureUnit
	lines := []string{
		title,
		fmt.Sprintf("%s  %s", lipgloss.NewStyle().Bold(true).Render(ui.Temp(w.Main.Temp, unit)), w.Description()),
		fmt.Sprintf("Feels like %s", ui.Temp(w.Main.FeelsLike, unit)),
		fmt.Sprintf("Humidity %d%%  Wind %.1f m/s", w.Main.Humidity, w.Wind.Speed),
	}
	if w.Name != "" {
		lines = append(lines, theme.DimmedStyle.Render(w.Name))
	}
	if m.weatherErr != nil {
		lines = append(lines, ui.Banner(m.weatherErr, ""))
	}
	return strings.Join(lines, "\n")
}

func (m Model) airCard() string {
	title := theme.TitleStyle.Render("Air quality")
	if m.air == nil {
		return title + "\n" + m.placeholder(m.airErr)
	}

	a := m.air
	cat := a.Category()
	lines := []string{
		title,
		theme.AQIStyle(cat).Render(fmt.Sprintf("AQI %.0f  %s", a.AQI, cat)),
		fmt.Sprintf("PM2.5 %.1f  PM10 %.1f  NO₂ %.1f", a.PM25, a.PM10, a.NO2),
		fmt.Sprintf("O₃ %.1f  CO %.2f ppm", a.O3, a.CO),
	}
	if m.location != "" {
		lines = append(lines, theme.DimmedStyle.Render(m.location))
	}
	if exceeded := a.Exceeded(m.env.Prefs); len(exceeded) > 0 {
		labels := make([]string, len(exceeded))
		for i, t := range exceeded {
			labels[i] = t.Label()
		}
		lines = append(lines, theme.ErrorStyle.Render("Above your thresholds: "+strings.Join(labels, ", ")))
	}
	if m.airErr != nil {
		lines = append(lines, ui.Banner(m.airErr, ""))
	}
	return strings.Join(lines, "\n")
}

func (m Model) placeholder(err error) string {
	if err != nil {
		return ui.Banner(err, "")
	}
	return theme.DimmedStyle.Render("Loading...")
}

func (m Model) alertsSection() string {
	stats := m.env.Notices.Stats()
	title := ui.Title("Recent alerts", fmt.Sprintf("%d today, %d unread", stats.Today, stats.Unread))

	latest := notify.Latest(m.env.Notices.List(), recentAlerts)
	if len(latest) == 0 {
		return title + "\n" + theme.HelpStyle.Render("No alerts yet.")
	}

	lines := []string{title}
	for _, n := range latest {
		marker := "  "
		if !n.Read {
			marker = "● "
		}
		lines = append(lines, fmt.Sprintf("%s%s %s  %s",
			marker,
			theme.PriorityStyle(n.Priority).Render(fmt.Sprintf("%-8s", n.Priority)),
			theme.DimmedStyle.Render(n.Timestamp.Format("Jan 02 15:04")),
			n.Message,
		))
	}
	return strings.Join(lines, "\n")
}

// KeyHints returns the status bar hints.
func (m Model) KeyHints() string {
	return "r refresh | enter all alerts | W weather | A air | N alerts | ? help | q quit"
}

// SetSize updates dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
}
