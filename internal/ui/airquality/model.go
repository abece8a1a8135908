// Package airquality shows the live pollutant reading, how it compares
// to the user's thresholds and the reading history.
package airquality

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"golang.org/x/sync/errgroup"

	"github.com/nhle/airwatch/internal/model"
	"github.com/nhle/airwatch/internal/refresh"
	"github.com/nhle/airwatch/internal/session"
	"github.com/nhle/airwatch/internal/theme"
	"github.com/nhle/airwatch/internal/ui"
)

type loadedMsg struct {
	live    model.AirQuality
	history []model.AirQuality
	err     error
}

func (m loadedMsg) Failure() error { return m.err }

type locationMsg struct {
	name string
}

// Model is the air quality page.
type Model struct {
	env      *ui.Env
	live     *model.AirQuality
	history  []model.AirQuality
	location string
	table    table.Model
	loading  bool
	err      error
	width    int
	height   int
}

// New creates the air quality page.
func New(env *ui.Env, width, height int) Model {
	t := table.New(
		table.WithColumns([]table.Column{
			{Title: "Time", Width: 13},
			{Title: "AQI", Width: 5},
			{Title: "Band", Width: 14},
			{Title: "PM2.5", Width: 7},
			{Title: "PM10", Width: 7},
			{Title: "NO₂", Width: 7},
			{Title: "O₃", Width: 7},
			{Title: "CO", Width: 6},
		}),
		table.WithFocused(true),
	)
	m := Model{env: env, table: t, width: width, height: height}
	m.SetSize(width, height)
	return m
}

// Reset forgets the data of the previous session.
func (m *Model) Reset() {
	*m = New(m.env, m.width, m.height)
}

// Init loads the live reading and the history together.
func (m Model) Init() tea.Cmd {
	env := m.env
	return func() tea.Msg {
		var out loadedMsg
		g, ctx := errgroup.WithContext(env.Context())
		g.Go(func() error {
			live, err := env.API.LiveAirQuality(ctx)
			out.live = live
			return err
		})
		g.Go(func() error {
			history, err := env.API.AirQualityHistory(ctx)
			out.history = history
			return err
		})
		out.err = g.Wait()
		return out
	}
}

// Update handles messages.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case loadedMsg:
		m.loading = false
		m.err = msg.err
		if msg.err != nil {
			return m, nil
		}
		m.live = &msg.live
		m.history = msg.history
		m.refreshTable()
		return m, m.resolveLocation()

	case refresh.ResultMsg:
		if msg.Feed != refresh.FeedAirQuality {
			return m, nil
		}
		if a, ok := msg.Data.(model.AirQuality); ok {
			m.live = &a
			return m, m.resolveLocation()
		}
		return m, nil

	case locationMsg:
		m.location = msg.name
		return m, nil

	case tea.KeyMsg:
		keys := m.env.Keys
		switch {
		case key.Matches(msg, keys.Refresh):
			m.loading = true
			return m, m.Init()
		case key.Matches(msg, keys.Back):
			return m, ui.Navigate(session.RouteDashboard)
		}
	}

	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)
	return m, cmd
}

func (m Model) resolveLocation() tea.Cmd {
	if m.live == nil || m.env.Geocoder == nil || (m.live.Latitude == 0 && m.live.Longitude == 0) {
		return nil
	}
	env := m.env
	lat, lon := m.live.Latitude, m.live.Longitude
	return func() tea.Msg {
		name, err := env.Geocoder.Reverse(env.Context(), lat, lon)
		if err != nil {
			return nil
		}
		return locationMsg{name: name}
	}
}

func (m *Model) refreshTable() {
	rows := make([]table.Row, 0, len(m.history))
	for i := len(m.history) - 1; i >= 0; i-- {
		a := m.history[i]
		rows = append(rows, table.Row{
			a.Timestamp.Format("Jan 02 15:04"),
			fmt.Sprintf("%.0f", a.AQI),
			a.Category().String(),
			fmt.Sprintf("%.1f", a.PM25),
			fmt.Sprintf("%.1f", a.PM10),
			fmt.Sprintf("%.1f", a.NO2),
			fmt.Sprintf("%.1f", a.O3),
			fmt.Sprintf("%.2f", a.CO),
		})
	}
	m.table.SetRows(rows)
}

// View renders the page.
func (m Model) View() string {
	parts := []string{ui.Title("Air quality", m.location)}
	if m.err != nil {
		parts = append(parts, ui.Banner(m.err, ""), "")
	}
	if m.loading || (m.live == nil && m.err == nil) {
		parts = append(parts, theme.DimmedStyle.Render("Loading..."))
	}
	if m.live != nil {
		parts = append(parts, m.renderLive(), "")
	}
	if len(m.history) > 0 {
		values := make([]float64, len(m.history))
		for i, a := range m.history {
			values[i] = a.AQI
		}
		parts = append(parts,
			theme.TitleStyle.Render("AQI trend"),
			Sparkline(values, max(m.width-8, 10)),
			"",
			m.table.View(),
		)
	}
	return ui.Panel(m.width, m.height, lipgloss.JoinVertical(lipgloss.Left, parts...))
}

func (m Model) renderLive() string {
	a := m.live
	cat := a.Category()
	prefs := m.env.Prefs

	lines := []string{
		theme.AQIStyle(cat).Render(fmt.Sprintf("AQI %.0f  %s", a.AQI, cat)),
		theme.DimmedStyle.Render("Measured " + a.Timestamp.Format("Jan 02 15:04")),
		"",
	}
	rows := []struct {
		label     string
		value     float64
		threshold float64
		unit      string
	}{
		{"PM2.5", a.PM25, prefs.ThresholdPM25, "µg/m³"},
		{"PM10", a.PM10, prefs.ThresholdPM10, "µg/m³"},
		{"NO₂", a.NO2, prefs.ThresholdNO2, "µg/m³"},
		{"O₃", a.O3, prefs.ThresholdO3, "µg/m³"},
		{"CO", a.CO, prefs.ThresholdCO, "ppm"},
	}
	for _, r := range rows {
		style := theme.SuccessStyle
		if r.threshold > 0 && r.value > r.threshold {
			style = theme.ErrorStyle
		}
		lines = append(lines, fmt.Sprintf("%-6s %s %s",
			r.label,
			style.Render(fmt.Sprintf("%8.2f", r.value)),
			theme.DimmedStyle.Render(fmt.Sprintf("%s (limit %.0f)", r.unit, r.threshold)),
		))
	}
	return strings.Join(lines, "\n")
}

// KeyHints returns the status bar hints.
func (m Model) KeyHints() string {
	return "j/k scroll history | r reload | esc back"
}

// SetSize updates dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.table.SetWidth(max(width-6, 20))
	m.table.SetHeight(max(height-20, 4))
}
