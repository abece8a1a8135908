// Package alerts lists received notifications with search, filters and
// read tracking.
package alerts

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"github.com/nhle/airwatch/internal/model"
	"github.com/nhle/airwatch/internal/notify"
	"github.com/nhle/airwatch/internal/session"
	"github.com/nhle/airwatch/internal/theme"
	"github.com/nhle/airwatch/internal/ui"
)

type mode int

const (
	modeList mode = iota
	modeSearch
	modeConfirmClear
)

type opMsg struct {
	info string
	err  error
}

func (m opMsg) Failure() error { return m.err }

// Model is the alerts page.
type Model struct {
	env     *ui.Env
	mode    mode
	filter  notify.Filter
	visible []model.Notification
	cursor  int
	offset  int
	search  textinput.Model
	confirm *huh.Form
	clear   *bool
	now     func() time.Time
	err     error
	info    string
	width   int
	height  int
}

// New creates the alerts page.
func New(env *ui.Env, width, height int) Model {
	ti := textinput.New()
	ti.Placeholder = "search message, type or site"
	ti.Prompt = "/ "
	ti.CharLimit = 100

	m := Model{
		env:    env,
		search: ti,
		clear:  new(bool),
		now:    time.Now,
		width:  width,
		height: height,
	}
	m.apply()
	return m
}

// Init refreshes the visible list.
func (m Model) Init() tea.Cmd {
	return nil
}

// Capturing reports whether the search input or a dialog has focus.
func (m Model) Capturing() bool {
	return m.mode != modeList
}

// Filter returns the active filter.
func (m Model) Filter() notify.Filter {
	return m.filter
}

// Visible returns the alerts that pass the filter, newest first.
func (m Model) Visible() []model.Notification {
	return m.visible
}

// apply re-filters the center's list and keeps the cursor in range.
func (m *Model) apply() {
	m.visible = m.filter.Apply(m.env.Notices.List(), m.now())
	if m.cursor >= len(m.visible) {
		m.cursor = max(len(m.visible)-1, 0)
	}
	m.scroll()
}

// Update handles messages.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case ui.NoticesChangedMsg:
		m.apply()
		return m, nil

	case opMsg:
		m.mode = modeList
		m.err = msg.err
		m.info = msg.info
		m.apply()
		return m, nil

	case tea.KeyMsg:
		switch m.mode {
		case modeSearch:
			return m.updateSearch(msg)
		case modeConfirmClear:
			return m.updateConfirm(msg)
		}
		return m.handleListKey(msg)
	}

	if m.mode == modeConfirmClear {
		return m.updateConfirm(msg)
	}
	if m.mode == modeSearch {
		var cmd tea.Cmd
		m.search, cmd = m.search.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m Model) handleListKey(msg tea.KeyMsg) (Model, tea.Cmd) {
	keys := m.env.Keys
	switch {
	case key.Matches(msg, keys.Down):
		if m.cursor < len(m.visible)-1 {
			m.cursor++
			m.scroll()
		}
		return m, nil

	case key.Matches(msg, keys.Up):
		if m.cursor > 0 {
			m.cursor--
			m.scroll()
		}
		return m, nil

	case key.Matches(msg, keys.Search):
		m.mode = modeSearch
		m.search.SetValue(m.filter.Search)
		cmd := m.search.Focus()
		return m, cmd

	case msg.String() == "t":
		m.filter.Type = cycle(append([]model.NotificationType{""}, model.NotificationTypes...), m.filter.Type)
		m.apply()
		return m, nil

	case msg.String() == "p":
		m.filter.Priority = cycle(append([]model.Priority{""}, model.Priorities...), m.filter.Priority)
		m.apply()
		return m, nil

	case msg.String() == "g":
		m.filter.Range = cycle(notify.DateRanges, m.filter.Range)
		m.apply()
		return m, nil

	case msg.String() == "u":
		m.filter.Read = cycle(notify.ReadStatuses, m.filter.Read)
		m.apply()
		return m, nil

	case msg.String() == "0":
		m.filter = notify.Filter{}
		m.search.Reset()
		m.apply()
		return m, nil

	case key.Matches(msg, keys.Toggle), key.Matches(msg, keys.Select):
		if len(m.visible) == 0 || m.visible[m.cursor].Read {
			return m, nil
		}
		return m, m.markRead(m.visible[m.cursor].ID)

	case key.Matches(msg, keys.ReadAll):
		env := m.env
		return m, func() tea.Msg {
			return opMsg{err: env.Notices.MarkAllRead(env.Context())}
		}

	case key.Matches(msg, keys.Clear):
		if m.env.Notices.Len() == 0 {
			return m, nil
		}
		*m.clear = false
		m.confirm = huh.NewForm(
			huh.NewGroup(
				huh.NewConfirm().
					Title(fmt.Sprintf("Delete all %d alerts?", m.env.Notices.Len())).
					Description("They are removed from this device. The backend keeps its own history.").
					Affirmative("Yes, clear").
					Negative("Cancel").
					Value(m.clear),
			),
		).WithWidth(ui.FormWidth(m.width))
		m.mode = modeConfirmClear
		return m, m.confirm.Init()

	case key.Matches(msg, keys.Refresh):
		return m, ui.Refresh

	case key.Matches(msg, keys.Back):
		if m.filter.Active() {
			m.filter = notify.Filter{}
			m.search.Reset()
			m.apply()
			return m, nil
		}
		return m, ui.Navigate(session.RouteDashboard)
	}
	return m, nil
}

func cycle[T comparable](values []T, current T) T {
	i := slices.Index(values, current)
	return values[(i+1)%len(values)]
}

func (m Model) markRead(id string) tea.Cmd {
	env := m.env
	return func() tea.Msg {
		return opMsg{err: env.Notices.MarkRead(env.Context(), id)}
	}
}

func (m Model) updateSearch(msg tea.KeyMsg) (Model, tea.Cmd) {
	switch msg.String() {
	case "enter":
		m.mode = modeList
		m.search.Blur()
		return m, nil
	case "esc":
		m.mode = modeList
		m.search.Blur()
		m.search.SetValue("")
		m.filter.Search = ""
		m.apply()
		return m, nil
	}

	var cmd tea.Cmd
	m.search, cmd = m.search.Update(msg)
	m.filter.Search = m.search.Value()
	m.apply()
	return m, cmd
}

func (m Model) updateConfirm(msg tea.Msg) (Model, tea.Cmd) {
	mdl, cmd := m.confirm.Update(msg)
	if f, ok := mdl.(*huh.Form); ok {
		m.confirm = f
	}
	switch m.confirm.State {
	case huh.StateCompleted:
		if !*m.clear {
			m.mode = modeList
			return m, nil
		}
		env := m.env
		return m, func() tea.Msg {
			if err := env.Notices.Clear(env.Context()); err != nil {
				return opMsg{err: err}
			}
			return opMsg{info: "All alerts cleared"}
		}
	case huh.StateAborted:
		m.mode = modeList
		return m, nil
	}
	return m, cmd
}

// listHeight is the number of alert rows that fit.
func (m Model) listHeight() int {
	return max((m.height-12)/3, 3)
}

func (m *Model) scroll() {
	h := m.listHeight()
	if m.cursor < m.offset {
		m.offset = m.cursor
	}
	if m.cursor >= m.offset+h {
		m.offset = m.cursor - h + 1
	}
}

// View renders the page.
func (m Model) View() string {
	if m.mode == modeConfirmClear && m.confirm != nil {
		return ui.Panel(m.width, m.height, m.confirm.View())
	}

	stats := m.env.Notices.Stats()
	parts := []string{
		ui.Title("Alerts", fmt.Sprintf("%d total · %d unread · %d critical · %d today",
			stats.Total, stats.Unread, stats.Critical, stats.Today)),
		m.renderFilters(),
	}
	if m.mode == modeSearch {
		parts = append(parts, m.search.View())
	}
	if banner := ui.Banner(m.err, m.info); banner != "" {
		parts = append(parts, banner)
	}
	parts = append(parts, "", m.renderList())
	return ui.Panel(m.width, m.height, lipgloss.JoinVertical(lipgloss.Left, parts...))
}

func (m Model) renderFilters() string {
	typ := "all types"
	if m.filter.Type != "" {
		typ = m.filter.Type.Label()
	}
	prio := "all priorities"
	if m.filter.Priority != "" {
		prio = string(m.filter.Priority)
	}
	chips := []string{typ, prio, m.filter.Range.String(), m.filter.Read.String()}
	if m.filter.Search != "" {
		chips = append(chips, fmt.Sprintf("%q", m.filter.Search))
	}
	return theme.DimmedStyle.Render("Showing " + strings.Join(chips, " · "))
}

func (m Model) renderList() string {
	if len(m.visible) == 0 {
		if m.filter.Active() {
			return theme.HelpStyle.Render("No alerts match the filters. Press 0 to reset them.")
		}
		return theme.HelpStyle.Render("No alerts yet. New alerts appear here as they arrive.")
	}

	end := min(m.offset+m.listHeight(), len(m.visible))
	var rows []string
	for i := m.offset; i < end; i++ {
		rows = append(rows, m.renderItem(m.visible[i], i == m.cursor))
	}
	if end < len(m.visible) || m.offset > 0 {
		rows = append(rows, theme.DimmedStyle.Render(fmt.Sprintf("%d-%d of %d", m.offset+1, end, len(m.visible))))
	}
	return strings.Join(rows, "\n")
}

func (m Model) renderItem(n model.Notification, selected bool) string {
	marker := "  "
	if !n.Read {
		marker = "● "
	}
	head := fmt.Sprintf("%s%s  %s",
		marker,
		theme.PriorityStyle(n.Priority).Render(strings.ToUpper(string(n.Priority))),
		n.Type.Label(),
	)
	meta := []string{n.Location, humanize.Time(n.Timestamp)}
	if n.Value != 0 {
		meta = append(meta, fmt.Sprintf("%.1f %s", n.Value, n.Unit))
	}
	body := n.Message + "\n" + theme.DimmedStyle.Render(strings.Join(meta, " · "))

	text := head + "\n" + lipgloss.NewStyle().PaddingLeft(2).Render(body)
	if selected {
		return theme.SelectedItemStyle.Render(text)
	}
	return theme.ListItemStyle.Render(text)
}

// KeyHints returns the status bar hints.
func (m Model) KeyHints() string {
	switch m.mode {
	case modeSearch:
		return "type to filter | enter keep | esc clear search"
	case modeConfirmClear:
		return "enter confirm | esc cancel"
	}
	return "/ search | t type | p priority | g date | u read | 0 reset | space read | m read all | X clear | esc back"
}

// SetSize updates dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.search.Width = max(width-10, 10)
	m.scroll()
}
