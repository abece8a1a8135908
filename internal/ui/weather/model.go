// Package weather shows live and stored weather observations, the
// forecast, the forecast-versus-observation comparison and history.
package weather

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/airwatch/internal/model"
	"github.com/nhle/airwatch/internal/session"
	"github.com/nhle/airwatch/internal/theme"
	"github.com/nhle/airwatch/internal/ui"
)

type tab int

const (
	tabCurrent tab = iota
	tabForecast
	tabCompare
	tabHistory
)

var tabNames = []string{"Current", "Forecast", "Comparison", "History"}

// historyWindows are the spans the history tab cycles through.
var historyWindows = []time.Duration{24 * time.Hour, 7 * 24 * time.Hour, 30 * 24 * time.Hour}

type mode int

const (
	modeView mode = iota
	modeLocation
	modeConfirmCleanup
)

type formBindings struct {
	site    string
	confirm bool
}

// loadedMsg carries the data for one tab. stored records which source
// was asked for so late answers for the other source are ignored.
type loadedMsg struct {
	tab    tab
	stored bool
	data   any
	err    error
}

func (m loadedMsg) Failure() error { return m.err }

type actionMsg struct {
	info string
	err  error
}

func (m actionMsg) Failure() error { return m.err }

// Model is the weather page.
type Model struct {
	env  *ui.Env
	mode mode
	tab  tab

	// stored selects the backend's persisted records instead of live
	// provider data.
	stored bool
	window int

	current    *model.CurrentWeather
	record     *model.WeatherRecord
	forecast   []model.ForecastEntry
	records    []model.WeatherRecord
	comparison *model.WeatherComparison
	history    []model.WeatherRecord

	table   table.Model
	form    *huh.Form
	fb      *formBindings
	loading bool
	err     error
	info    string
	width   int
	height  int
}

// New creates the weather page.
func New(env *ui.Env, width, height int) Model {
	t := table.New(table.WithFocused(true))
	t.SetStyles(tableStyles())
	m := Model{
		env:    env,
		window: 1,
		table:  t,
		fb:     &formBindings{},
		width:  width,
		height: height,
	}
	m.SetSize(width, height)
	return m
}

func tableStyles() table.Styles {
	s := table.DefaultStyles()
	s.Header = s.Header.Bold(true).Foreground(theme.ColorBlue).
		BorderStyle(lipgloss.NormalBorder()).BorderBottom(true).BorderForeground(theme.ColorBorder)
	s.Selected = s.Selected.Foreground(theme.ColorWhite).Background(theme.ColorSubtle).Bold(false)
	return s
}

// Init loads the active tab.
func (m Model) Init() tea.Cmd {
	return m.load()
}

// Capturing reports whether a form owns the keyboard.
func (m Model) Capturing() bool {
	return m.mode != modeView
}

// Update handles messages.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case loadedMsg:
		if msg.tab != m.tab || msg.stored != m.stored {
			return m, nil
		}
		m.loading = false
		m.err = msg.err
		if msg.err == nil {
			m.apply(msg)
		}
		return m, nil

	case actionMsg:
		m.mode = modeView
		m.err = msg.err
		m.info = msg.info
		if msg.err != nil {
			return m, nil
		}
		cmd := m.load()
		return m, tea.Batch(cmd, ui.Refresh)

	case ui.PrefsChangedMsg:
		m.refreshTable()
		return m, nil

	case tea.KeyMsg:
		switch m.mode {
		case modeLocation:
			return m.updateForm(msg)
		case modeConfirmCleanup:
			return m.updateConfirm(msg)
		}
		return m.handleKey(msg)
	}

	switch m.mode {
	case modeLocation:
		return m.updateForm(msg)
	case modeConfirmCleanup:
		return m.updateConfirm(msg)
	}
	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)
	return m, cmd
}

func (m Model) handleKey(msg tea.KeyMsg) (Model, tea.Cmd) {
	keys := m.env.Keys
	switch {
	case key.Matches(msg, keys.Tab):
		m.tab = (m.tab + 1) % tab(len(tabNames))
		m.info = ""
		cmd := m.load()
		return m, cmd

	case msg.String() == "shift+tab":
		m.tab = (m.tab + tab(len(tabNames)) - 1) % tab(len(tabNames))
		m.info = ""
		cmd := m.load()
		return m, cmd

	case msg.String() == "s" && m.tab != tabHistory:
		m.stored = !m.stored
		cmd := m.load()
		return m, cmd

	case msg.String() == "h" && m.tab == tabHistory:
		m.window = (m.window + 1) % len(historyWindows)
		cmd := m.load()
		return m, cmd

	case key.Matches(msg, keys.Refresh):
		cmd := m.load()
		return m, cmd

	case msg.String() == "l":
		m.fb.site = ""
		m.form = m.buildLocationForm()
		m.mode = modeLocation
		return m, m.form.Init()

	case key.Matches(msg, keys.Clear):
		m.fb.confirm = false
		m.form = m.buildConfirmForm()
		m.mode = modeConfirmCleanup
		return m, m.form.Init()

	case msg.String() == "x" && m.tab == tabHistory:
		records := m.history
		return m, func() tea.Msg {
			name, err := exportFile(records, time.Now())
			if err != nil {
				return actionMsg{err: err}
			}
			return actionMsg{info: "Exported to " + name}
		}

	case key.Matches(msg, keys.Back):
		return m, ui.Navigate(session.RouteDashboard)
	}

	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)
	return m, cmd
}

func (m Model) buildLocationForm() *huh.Form {
	opts := make([]huh.Option[string], len(model.Sites))
	for i, s := range model.Sites {
		opts[i] = huh.NewOption(s.Name, s.Name)
	}
	return huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Measurement site").
				Description("Weather and air quality follow the selected site.").
				Options(opts...).
				Value(&m.fb.site),
		),
	).WithWidth(ui.FormWidth(m.width)).WithHeight(ui.FormHeight(m.height))
}

func (m Model) buildConfirmForm() *huh.Form {
	return huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title("Delete old weather records?").
				Description("The backend removes stored observations and forecasts past their retention.").
				Affirmative("Yes, clean up").
				Negative("Cancel").
				Value(&m.fb.confirm),
		),
	).WithWidth(ui.FormWidth(m.width))
}

func (m Model) updateForm(msg tea.Msg) (Model, tea.Cmd) {
	mdl, cmd := m.form.Update(msg)
	if f, ok := mdl.(*huh.Form); ok {
		m.form = f
	}
	switch m.form.State {
	case huh.StateCompleted:
		site, ok := findSite(m.fb.site)
		if !ok {
			m.mode = modeView
			return m, nil
		}
		env := m.env
		return m, func() tea.Msg {
			if err := env.API.UpdateLocation(env.Context(), site.Latitude, site.Longitude); err != nil {
				return actionMsg{err: err}
			}
			return actionMsg{info: "Location set to " + site.Name}
		}
	case huh.StateAborted:
		m.mode = modeView
		return m, nil
	}
	return m, cmd
}

func findSite(name string) (model.Site, bool) {
	for _, s := range model.Sites {
		if s.Name == name {
			return s, true
		}
	}
	return model.Site{}, false
}

func (m Model) updateConfirm(msg tea.Msg) (Model, tea.Cmd) {
	mdl, cmd := m.form.Update(msg)
	if f, ok := mdl.(*huh.Form); ok {
		m.form = f
	}
	switch m.form.State {
	case huh.StateCompleted:
		if !m.fb.confirm {
			m.mode = modeView
			return m, nil
		}
		env := m.env
		return m, func() tea.Msg {
			text, err := env.API.CleanupWeather(env.Context())
			if err == nil && text == "" {
				text = "Old weather records removed"
			}
			return actionMsg{info: text, err: err}
		}
	case huh.StateAborted:
		m.mode = modeView
		return m, nil
	}
	return m, cmd
}

// load fetches the active tab from the selected source.
func (m *Model) load() tea.Cmd {
	m.loading = true
	env := m.env
	t, stored := m.tab, m.stored
	window := historyWindows[m.window]

	return func() tea.Msg {
		ctx := env.Context()
		out := loadedMsg{tab: t, stored: stored}
		switch {
		case t == tabCurrent && stored:
			out.data, out.err = env.API.StoredCurrentWeather(ctx)
		case t == tabCurrent:
			out.data, out.err = env.API.CurrentWeather(ctx)
		case t == tabForecast && stored:
			out.data, out.err = env.API.StoredForecasts(ctx)
		case t == tabForecast:
			out.data, out.err = env.API.Forecast(ctx)
		case t == tabCompare && stored:
			out.data, out.err = env.API.CompareStoredWeather(ctx)
		case t == tabCompare:
			out.data, out.err = env.API.CompareWeather(ctx)
		case t == tabHistory:
			to := time.Now()
			out.data, out.err = env.API.WeatherHistory(ctx, to.Add(-window), to)
		}
		return out
	}
}

func (m *Model) apply(msg loadedMsg) {
	switch data := msg.data.(type) {
	case model.CurrentWeather:
		m.current = &data
	case model.WeatherRecord:
		m.record = &data
	case model.Forecast:
		m.forecast = data.Daily()
	case []model.WeatherRecord:
		if msg.tab == tabHistory {
			m.history = data
		} else {
			m.records = data
		}
	case model.WeatherComparison:
		m.comparison = &data
	}
	m.refreshTable()
}

// refreshTable rebuilds the table for tabs that show one.
func (m *Model) refreshTable() {
	unit := m.env.Prefs.TemperatureUnit
	var cols []table.Column
	var rows []table.Row

	switch {
	case m.tab == tabForecast && !m.stored:
		cols = []table.Column{{Title: "Day", Width: 12}, {Title: "Temp", Width: 9}, {Title: "Min/Max", Width: 16}, {Title: "Rain", Width: 6}, {Title: "Conditions", Width: 24}}
		for _, e := range m.forecast {
			rows = append(rows, table.Row{
				e.At().Format("Mon Jan 02"),
				ui.Temp(e.Main.Temp, unit),
				ui.Temp(e.Main.TempMin, unit) + " / " + ui.Temp(e.Main.TempMax, unit),
				fmt.Sprintf("%.0f%%", e.Pop*100),
				e.Description(),
			})
		}
	case m.tab == tabForecast:
		cols = []table.Column{{Title: "For", Width: 17}, {Title: "Temp", Width: 9}, {Title: "Humidity", Width: 9}, {Title: "Wind", Width: 9}, {Title: "Conditions", Width: 24}}
		for _, r := range m.records {
			rows = append(rows, table.Row{
				r.ForecastAt.Format("Jan 02 15:04"),
				ui.Temp(r.Temperature, unit),
				fmt.Sprintf("%d%%", r.Humidity),
				fmt.Sprintf("%.1f m/s", r.WindSpeed),
				r.Description,
			})
		}
	case m.tab == tabHistory:
		cols = []table.Column{{Title: "Recorded", Width: 17}, {Title: "Kind", Width: 10}, {Title: "Temp", Width: 9}, {Title: "Humidity", Width: 9}, {Title: "Pressure", Width: 9}, {Title: "Conditions", Width: 22}}
		for _, r := range m.history {
			rows = append(rows, table.Row{
				r.CreatedAt.Format("Jan 02 15:04"),
				string(r.Kind),
				ui.Temp(r.Temperature, unit),
				fmt.Sprintf("%d%%", r.Humidity),
				fmt.Sprintf("%.0f hPa", r.Pressure),
				r.Description,
			})
		}
	default:
		return
	}

	m.table.SetRows(nil)
	m.table.SetColumns(cols)
	m.table.SetRows(rows)
	m.table.GotoTop()
}

// View renders the page.
func (m Model) View() string {
	if m.mode != modeView && m.form != nil {
		return ui.Panel(m.width, m.height, m.form.View())
	}

	source := "live"
	if m.stored {
		source = "stored"
	}
	if m.tab == tabHistory {
		source = "last " + windowLabel(historyWindows[m.window])
	}

	parts := []string{ui.Title("Weather", source), m.renderTabs(), ""}
	if banner := ui.Banner(m.err, m.info); banner != "" {
		parts = append(parts, banner, "")
	}
	if m.loading {
		parts = append(parts, theme.DimmedStyle.Render("Loading..."))
	}
	parts = append(parts, m.renderBody())
	return ui.Panel(m.width, m.height, lipgloss.JoinVertical(lipgloss.Left, parts...))
}

func windowLabel(d time.Duration) string {
	days := int(d.Hours() / 24)
	if days <= 1 {
		return "24 hours"
	}
	return fmt.Sprintf("%d days", days)
}

func (m Model) renderTabs() string {
	labels := make([]string, len(tabNames))
	for i, name := range tabNames {
		if tab(i) == m.tab {
			labels[i] = theme.SelectedItemStyle.Render(name)
		} else {
			labels[i] = theme.ListItemStyle.Foreground(theme.ColorGray).Render(name)
		}
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, labels...)
}

func (m Model) renderBody() string {
	unit := m.env.Prefs.TemperatureUnit
	switch m.tab {
	case tabCurrent:
		if m.stored {
			return renderRecord(m.record, unit)
		}
		return renderCurrent(m.current, unit)
	case tabCompare:
		return renderComparison(m.comparison, unit)
	default:
		if len(m.table.Rows()) == 0 {
			return theme.HelpStyle.Render("No data for this view.")
		}
		return m.table.View()
	}
}

func renderCurrent(w *model.CurrentWeather, unit model.TemperatureUnit) string {
	if w == nil {
		return ""
	}
	lines := []string{
		lipgloss.NewStyle().Bold(true).Render(fmt.Sprintf("%s, %s", w.Name, w.Sys.Country)),
		fmt.Sprintf("%s  %s", ui.Temp(w.Main.Temp, unit), w.Description()),
		fmt.Sprintf("Feels like %s  (min %s, max %s)", ui.Temp(w.Main.FeelsLike, unit), ui.Temp(w.Main.TempMin, unit), ui.Temp(w.Main.TempMax, unit)),
		fmt.Sprintf("Humidity %d%%  Pressure %.0f hPa", w.Main.Humidity, w.Main.Pressure),
		fmt.Sprintf("Wind %.1f m/s from %d°  Visibility %.1f km", w.Wind.Speed, w.Wind.Deg, float64(w.Visibility)/1000),
	}
	if w.Sys.Sunrise != 0 {
		lines = append(lines, fmt.Sprintf("Sunrise %s  Sunset %s",
			time.Unix(w.Sys.Sunrise, 0).Format("15:04"), time.Unix(w.Sys.Sunset, 0).Format("15:04")))
	}
	if at := w.ObservedAt(); !at.IsZero() {
		lines = append(lines, theme.DimmedStyle.Render("Observed "+at.Format("Jan 02 15:04")))
	}
	return strings.Join(lines, "\n")
}

func renderRecord(r *model.WeatherRecord, unit model.TemperatureUnit) string {
	if r == nil {
		return ""
	}
	return strings.Join([]string{
		lipgloss.NewStyle().Bold(true).Render(fmt.Sprintf("%s, %s", r.City, r.Country)),
		fmt.Sprintf("%s  %s", ui.Temp(r.Temperature, unit), r.Description),
		fmt.Sprintf("Feels like %s", ui.Temp(r.FeelsLike, unit)),
		fmt.Sprintf("Humidity %d%%  Pressure %.0f hPa", r.Humidity, r.Pressure),
		fmt.Sprintf("Wind %.1f m/s from %d°", r.WindSpeed, r.WindDirection),
		theme.DimmedStyle.Render("Stored " + r.CreatedAt.Format("Jan 02 15:04")),
	}, "\n")
}

func renderComparison(c *model.WeatherComparison, unit model.TemperatureUnit) string {
	if c == nil {
		return ""
	}
	diff := unit.Convert(c.Difference) - unit.Convert(0)
	style := theme.SuccessStyle
	if diff > 2 || diff < -2 {
		style = theme.ErrorStyle
	}
	return strings.Join([]string{
		lipgloss.NewStyle().Bold(true).Render(c.City),
		fmt.Sprintf("Observed  %s  at %s", ui.Temp(c.Current, unit), c.CurrentDate.Format("Jan 02 15:04")),
		fmt.Sprintf("Forecast  %s  for %s", ui.Temp(c.Forecast, unit), c.ForecastDate.Format("Jan 02 15:04")),
		style.Render(fmt.Sprintf("Difference %+.1f%s", diff, unit.Symbol())),
	}, "\n")
}

// KeyHints returns the status bar hints.
func (m Model) KeyHints() string {
	if m.mode != modeView {
		return "enter confirm | esc cancel"
	}
	if m.tab == tabHistory {
		return "tab next view | h change range | x export csv | l location | X cleanup | r reload | esc back"
	}
	return "tab next view | s live/stored | l location | X cleanup | r reload | esc back"
}

// SetSize updates dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.table.SetWidth(max(width-6, 20))
	m.table.SetHeight(max(height-10, 5))
}
