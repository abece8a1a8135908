// Package preferences edits the alert thresholds, the profile, the
// password and the local client settings.
package preferences

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/airwatch/internal/model"
	"github.com/nhle/airwatch/internal/session"
	"github.com/nhle/airwatch/internal/theme"
	"github.com/nhle/airwatch/internal/ui"
)

type section int

const (
	sectionAlerts section = iota
	sectionProfile
	sectionPassword
	sectionLocal
)

var sections = []struct {
	title string
	desc  string
}{
	{"Alert preferences", "Temperature unit, notifications and pollutant thresholds"},
	{"Profile", "First and last name"},
	{"Password", "Change your password"},
	{"Local settings", "Refresh interval and realtime connection, used from the next login"},
}

type loadedMsg struct {
	prefs model.Preferences
	me    model.Employee
	err   error
}

func (m loadedMsg) Failure() error { return m.err }

type savedMsg struct {
	info  string
	prefs *model.Preferences
	err   error
}

func (m savedMsg) Failure() error { return m.err }

// Model is the preferences page.
type Model struct {
	env    *ui.Env
	cursor int
	me     *model.Employee

	form     *huh.Form
	editing  section
	alerts   *alertBindings
	profile  *profileBindings
	password *passwordBindings
	local    *localBindings

	saving bool
	err    error
	info   string
	width  int
	height int
}

// New creates the preferences page.
func New(env *ui.Env, width, height int) Model {
	return Model{env: env, width: width, height: height}
}

// Init loads the stored preferences and the profile.
func (m Model) Init() tea.Cmd {
	env := m.env
	return func() tea.Msg {
		ctx := env.Context()
		prefs, err := env.API.Preferences(ctx)
		if err != nil {
			return loadedMsg{err: err}
		}
		me, err := env.API.Me(ctx)
		return loadedMsg{prefs: prefs, me: me, err: err}
	}
}

// Capturing reports whether a form has focus.
func (m Model) Capturing() bool {
	return m.form != nil
}

// Update handles messages.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case loadedMsg:
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.me = &msg.me
		return m, func() tea.Msg { return ui.PrefsChangedMsg{Prefs: msg.prefs} }

	case savedMsg:
		m.saving = false
		m.err = msg.err
		m.info = msg.info
		if msg.err == nil && msg.prefs != nil {
			prefs := *msg.prefs
			return m, func() tea.Msg { return ui.PrefsChangedMsg{Prefs: prefs} }
		}
		return m, nil
	}

	if m.form != nil {
		return m.updateForm(msg)
	}

	if msg, ok := msg.(tea.KeyMsg); ok {
		keys := m.env.Keys
		switch {
		case key.Matches(msg, keys.Down):
			m.cursor = min(m.cursor+1, len(sections)-1)
		case key.Matches(msg, keys.Up):
			m.cursor = max(m.cursor-1, 0)
		case key.Matches(msg, keys.Select), key.Matches(msg, keys.Edit):
			return m.open(section(m.cursor))
		case key.Matches(msg, keys.Refresh):
			return m, m.Init()
		case key.Matches(msg, keys.Back):
			return m, ui.Navigate(session.RouteDashboard)
		}
	}
	return m, nil
}

func (m Model) open(s section) (Model, tea.Cmd) {
	m.err, m.info = nil, ""
	m.editing = s
	width := ui.FormWidth(m.width)

	switch s {
	case sectionAlerts:
		m.alerts = newAlertBindings(m.env.Prefs)
		b := m.alerts
		m.form = huh.NewForm(
			huh.NewGroup(
				huh.NewSelect[model.TemperatureUnit]().
					Title("Temperature unit").
					Options(
						huh.NewOption("Celsius", model.Celsius),
						huh.NewOption("Fahrenheit", model.Fahrenheit),
					).
					Value(&b.unit),
				huh.NewConfirm().
					Title("Alert notifications").
					Affirmative("Enabled").
					Negative("Disabled").
					Value(&b.enabled),
			),
			huh.NewGroup(
				huh.NewInput().Title("AQI threshold").Value(&b.aqi).Validate(validLimit),
				huh.NewInput().Title("PM2.5 threshold (µg/m³)").Value(&b.pm25).Validate(validLimit),
				huh.NewInput().Title("PM10 threshold (µg/m³)").Value(&b.pm10).Validate(validLimit),
				huh.NewInput().Title("NO₂ threshold (µg/m³)").Value(&b.no2).Validate(validLimit),
				huh.NewInput().Title("O₃ threshold (µg/m³)").Value(&b.o3).Validate(validLimit),
				huh.NewInput().Title("CO threshold (ppm)").Value(&b.co).Validate(validLimit),
			),
		)

	case sectionProfile:
		m.profile = &profileBindings{}
		if m.me != nil {
			m.profile.firstName = m.me.FirstName
			m.profile.lastName = m.me.LastName
		}
		b := m.profile
		m.form = huh.NewForm(
			huh.NewGroup(
				huh.NewInput().Title("First name").Value(&b.firstName),
				huh.NewInput().Title("Last name").Value(&b.lastName),
			),
		)

	case sectionPassword:
		m.password = &passwordBindings{}
		b := m.password
		m.form = huh.NewForm(
			huh.NewGroup(
				huh.NewInput().Title("Current password").EchoMode(huh.EchoModePassword).Value(&b.current),
				huh.NewInput().Title("New password").Description("At least 6 characters").
					EchoMode(huh.EchoModePassword).Value(&b.next),
				huh.NewInput().Title("Confirm new password").EchoMode(huh.EchoModePassword).Value(&b.confirm),
			),
		)

	case sectionLocal:
		m.local = newLocalBindings(m.env.Config)
		b := m.local
		m.form = huh.NewForm(
			huh.NewGroup(
				huh.NewInput().Title("Refresh interval (seconds)").Value(&b.refreshSec).Validate(validSeconds),
				huh.NewSelect[string]().
					Title("Reconnect policy").
					Options(
						huh.NewOption("Fixed delay", model.ReconnectFixed),
						huh.NewOption("Exponential backoff", model.ReconnectExponential),
					).
					Value(&b.reconnect),
				huh.NewSelect[string]().
					Title("Realtime transport").
					Options(
						huh.NewOption("SockJS", model.TransportSockJS),
						huh.NewOption("Plain WebSocket", model.TransportWebSocket),
					).
					Value(&b.transport),
			),
		)
	}

	m.form = m.form.WithWidth(width).WithShowHelp(true)
	return m, m.form.Init()
}

func (m Model) updateForm(msg tea.Msg) (Model, tea.Cmd) {
	mdl, cmd := m.form.Update(msg)
	if f, ok := mdl.(*huh.Form); ok {
		m.form = f
	}
	switch m.form.State {
	case huh.StateCompleted:
		m.form = nil
		return m.save()
	case huh.StateAborted:
		m.form = nil
		return m, nil
	}
	return m, cmd
}

func (m Model) save() (Model, tea.Cmd) {
	env := m.env
	switch m.editing {
	case sectionAlerts:
		prefs, err := m.alerts.preferences()
		if err != nil {
			m.err = err
			return m, nil
		}
		m.saving = true
		return m, func() tea.Msg {
			msg, err := env.API.UpdatePreferences(env.Context(), prefs)
			if err != nil {
				return savedMsg{err: err}
			}
			return savedMsg{info: orDefault(msg, "Preferences saved"), prefs: &prefs}
		}

	case sectionProfile:
		update, err := m.profile.update()
		if err != nil {
			m.err = err
			return m, nil
		}
		if m.me != nil {
			m.me.FirstName = update.FirstName
			m.me.LastName = update.LastName
		}
		m.saving = true
		return m, func() tea.Msg {
			ctx := env.Context()
			msg, err := env.API.UpdateProfile(ctx, update)
			if err != nil {
				return savedMsg{err: err}
			}
			name := strings.TrimSpace(update.FirstName + " " + update.LastName)
			if err := env.Session.SetDisplayName(ctx, name); err != nil {
				return savedMsg{err: err}
			}
			return savedMsg{info: orDefault(msg, "Profile updated")}
		}

	case sectionPassword:
		change, err := m.password.change()
		if err != nil {
			m.err = err
			return m, nil
		}
		m.saving = true
		return m, func() tea.Msg {
			msg, err := env.API.ChangePassword(env.Context(), change)
			if err != nil {
				return savedMsg{err: err}
			}
			return savedMsg{info: orDefault(msg, "Password changed")}
		}

	case sectionLocal:
		if err := m.local.apply(env.Config); err != nil {
			m.err = err
			return m, nil
		}
		if err := model.SaveConfig(env.ConfigPath, env.Config); err != nil {
			m.err = err
			return m, nil
		}
		m.info = "Settings saved. They apply from the next login."
	}
	return m, nil
}

func orDefault(s, fallback string) string {
	if strings.TrimSpace(s) == "" {
		return fallback
	}
	return s
}

// View renders the page.
func (m Model) View() string {
	if m.form != nil {
		return ui.Panel(m.width, m.height, lipgloss.JoinVertical(lipgloss.Left,
			theme.TitleStyle.Render(sections[m.editing].title),
			"",
			m.form.View(),
		))
	}

	subtitle := ""
	if m.me != nil {
		subtitle = fmt.Sprintf("%s · %s", m.me.Email, m.me.Role.Name.Label())
	}
	parts := []string{ui.Title("Preferences", subtitle)}
	if banner := ui.Banner(m.err, m.info); banner != "" {
		parts = append(parts, banner)
	}
	if m.saving {
		parts = append(parts, theme.DimmedStyle.Render("Saving..."))
	}
	parts = append(parts, "")

	for i, s := range sections {
		text := s.title + "\n" + theme.DimmedStyle.Render(s.desc)
		if i == m.cursor {
			parts = append(parts, theme.SelectedItemStyle.Render(text))
		} else {
			parts = append(parts, theme.ListItemStyle.Render(text))
		}
	}
	parts = append(parts, "", m.renderSummary())
	return ui.Panel(m.width, m.height, lipgloss.JoinVertical(lipgloss.Left, parts...))
}

func (m Model) renderSummary() string {
	p := m.env.Prefs
	notifications := "off"
	if p.NotificationsEnabled {
		notifications = "on"
	}
	cfg := m.env.Config
	lines := []string{
		theme.TitleStyle.Render("Current settings"),
		fmt.Sprintf("Unit %s · notifications %s", strings.ToLower(string(p.TemperatureUnit)), notifications),
		fmt.Sprintf("AQI %.0f · PM2.5 %.0f · PM10 %.0f · NO₂ %.0f · O₃ %.0f · CO %.0f",
			p.ThresholdAQI, p.ThresholdPM25, p.ThresholdPM10, p.ThresholdNO2, p.ThresholdO3, p.ThresholdCO),
	}
	if cfg != nil {
		lines = append(lines, theme.DimmedStyle.Render(fmt.Sprintf("Refresh every %ds · %s reconnect · %s",
			cfg.Display.RefreshIntervalSec, cfg.Realtime.Reconnect, cfg.Realtime.Transport)))
	}
	return strings.Join(lines, "\n")
}

// KeyHints returns the status bar hints.
func (m Model) KeyHints() string {
	if m.form != nil {
		return "tab next field | enter confirm | esc cancel"
	}
	return "j/k move | enter edit | r reload | esc back"
}

// SetSize updates dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
}
