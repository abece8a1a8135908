// Package employees is the admin page for managing user accounts.
package employees

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/airwatch/internal/api"
	"github.com/nhle/airwatch/internal/model"
	"github.com/nhle/airwatch/internal/session"
	"github.com/nhle/airwatch/internal/theme"
	"github.com/nhle/airwatch/internal/ui"
	"github.com/nhle/airwatch/internal/validate"
)

type mode int

const (
	modeList mode = iota
	modeSearch
	modeForm
	modeConfirmDelete
)

// formBindings holds form values on the heap so huh's Value pointers
// stay valid across model copies.
type formBindings struct {
	firstName string
	lastName  string
	email     string
	password  string
	role      model.Role
	latitude  string
	longitude string
	confirm   bool
}

type loadedMsg struct {
	list []model.Employee
	err  error
}

func (m loadedMsg) Failure() error { return m.err }

type savedMsg struct {
	info string
	err  error
}

func (m savedMsg) Failure() error { return m.err }

// Model is the employees page.
type Model struct {
	env       *ui.Env
	mode      mode
	all       []model.Employee
	visible   []model.Employee
	role      model.Role
	search    textinput.Model
	table     table.Model
	form      *huh.Form
	fb        *formBindings
	editingID int64
	loading   bool
	forbidden bool
	err       error
	info      string
	width     int
	height    int
}

// New creates the employees page.
func New(env *ui.Env, width, height int) Model {
	ti := textinput.New()
	ti.Placeholder = "name or email"
	ti.Prompt = "/ "

	t := table.New(
		table.WithColumns([]table.Column{
			{Title: "ID", Width: 5},
			{Title: "Name", Width: 24},
			{Title: "Email", Width: 30},
			{Title: "Role", Width: 12},
			{Title: "Location", Width: 18},
		}),
		table.WithFocused(true),
	)

	m := Model{
		env:    env,
		search: ti,
		table:  t,
		fb:     &formBindings{},
		width:  width,
		height: height,
	}
	m.SetSize(width, height)
	return m
}

// Init loads the account list.
func (m Model) Init() tea.Cmd {
	env := m.env
	return func() tea.Msg {
		list, err := env.API.Employees(env.Context())
		return loadedMsg{list: list, err: err}
	}
}

// Capturing reports whether an input or form has focus.
func (m Model) Capturing() bool {
	return m.mode != modeList
}

// Update handles messages.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case loadedMsg:
		m.loading = false
		m.forbidden = api.IsForbidden(msg.err)
		m.err = msg.err
		if msg.err == nil {
			m.all = msg.list
			m.apply()
		}
		return m, nil

	case savedMsg:
		m.mode = modeList
		m.err = msg.err
		m.info = msg.info
		if msg.err != nil {
			return m, nil
		}
		return m, m.Init()

	case tea.KeyMsg:
		switch m.mode {
		case modeSearch:
			return m.updateSearch(msg)
		case modeForm:
			return m.updateForm(msg)
		case modeConfirmDelete:
			return m.updateConfirm(msg)
		}
		return m.handleListKey(msg)
	}

	switch m.mode {
	case modeForm:
		return m.updateForm(msg)
	case modeConfirmDelete:
		return m.updateConfirm(msg)
	}
	return m, nil
}

// apply filters the list by search text and role.
func (m *Model) apply() {
	q := strings.ToLower(strings.TrimSpace(m.search.Value()))
	m.visible = nil
	for _, e := range m.all {
		if m.role != "" && e.Role.Name != m.role {
			continue
		}
		if q != "" &&
			!strings.Contains(strings.ToLower(e.FullName()), q) &&
			!strings.Contains(strings.ToLower(e.Email), q) {
			continue
		}
		m.visible = append(m.visible, e)
	}

	rows := make([]table.Row, len(m.visible))
	for i, e := range m.visible {
		loc := ""
		if e.Latitude != 0 || e.Longitude != 0 {
			loc = fmt.Sprintf("%.3f, %.3f", e.Latitude, e.Longitude)
		}
		rows[i] = table.Row{e.IDString(), e.FullName(), e.Email, e.Role.Name.Label(), loc}
	}
	m.table.SetRows(rows)
	if m.table.Cursor() >= len(rows) {
		m.table.SetCursor(max(len(rows)-1, 0))
	}
}

func (m Model) selected() (model.Employee, bool) {
	i := m.table.Cursor()
	if i < 0 || i >= len(m.visible) {
		return model.Employee{}, false
	}
	return m.visible[i], true
}

func (m Model) handleListKey(msg tea.KeyMsg) (Model, tea.Cmd) {
	keys := m.env.Keys
	switch {
	case key.Matches(msg, keys.Back):
		if m.role != "" || m.search.Value() != "" {
			m.role = ""
			m.search.Reset()
			m.apply()
			return m, nil
		}
		return m, ui.Navigate(session.RouteDashboard)

	case m.forbidden:
		return m, nil

	case key.Matches(msg, keys.Search):
		m.mode = modeSearch
		cmd := m.search.Focus()
		return m, cmd

	case msg.String() == "f":
		m.role = nextRole(m.role)
		m.apply()
		return m, nil

	case key.Matches(msg, keys.Refresh):
		m.loading = true
		return m, m.Init()

	case key.Matches(msg, keys.New):
		*m.fb = formBindings{role: model.RoleTechnician}
		m.editingID = 0
		m.form = m.buildForm(true)
		m.mode = modeForm
		return m, m.form.Init()

	case key.Matches(msg, keys.Edit):
		e, ok := m.selected()
		if !ok {
			return m, nil
		}
		*m.fb = formBindings{
			firstName: e.FirstName,
			lastName:  e.LastName,
			email:     e.Email,
			role:      e.Role.Name,
			latitude:  formatCoord(e.Latitude),
			longitude: formatCoord(e.Longitude),
		}
		m.editingID = e.ID
		m.form = m.buildForm(false)
		m.mode = modeForm
		return m, m.form.Init()

	case key.Matches(msg, keys.Delete):
		e, ok := m.selected()
		if !ok {
			return m, nil
		}
		m.fb.confirm = false
		m.editingID = e.ID
		m.form = huh.NewForm(
			huh.NewGroup(
				huh.NewConfirm().
					Title(fmt.Sprintf("Delete %s?", e.FullName())).
					Description(e.Email + " will no longer be able to sign in.").
					Affirmative("Yes, delete").
					Negative("Cancel").
					Value(&m.fb.confirm),
			),
		).WithWidth(ui.FormWidth(m.width))
		m.mode = modeConfirmDelete
		return m, m.form.Init()
	}

	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)
	return m, cmd
}

func nextRole(r model.Role) model.Role {
	options := append([]model.Role{""}, model.Roles...)
	for i, o := range options {
		if o == r {
			return options[(i+1)%len(options)]
		}
	}
	return ""
}

func formatCoord(v float64) string {
	if v == 0 {
		return ""
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
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
		m.search.Reset()
		m.apply()
		return m, nil
	}
	var cmd tea.Cmd
	m.search, cmd = m.search.Update(msg)
	m.apply()
	return m, cmd
}

func (m Model) buildForm(isNew bool) *huh.Form {
	roles := make([]huh.Option[model.Role], len(model.Roles))
	for i, r := range model.Roles {
		roles[i] = huh.NewOption(r.Label(), r)
	}

	password := huh.NewInput().
		Title("Password").
		EchoMode(huh.EchoModePassword).
		Value(&m.fb.password)
	if isNew {
		password = password.Validate(func(s string) error {
			if len(s) < 6 {
				return errors.New("at least 6 characters")
			}
			return nil
		})
	} else {
		password = password.Description("Leave empty to keep the current password")
	}

	title := "New employee"
	if !isNew {
		title = "Edit employee"
	}

	return huh.NewForm(
		huh.NewGroup(
			huh.NewInput().Title("First name").Value(&m.fb.firstName),
			huh.NewInput().Title("Last name").Value(&m.fb.lastName),
			huh.NewInput().Title("Email").Value(&m.fb.email),
			password,
			huh.NewSelect[model.Role]().Title("Role").Options(roles...).Value(&m.fb.role),
		).Title(title),
		huh.NewGroup(
			huh.NewInput().Title("Latitude").Placeholder("optional").Value(&m.fb.latitude),
			huh.NewInput().Title("Longitude").Placeholder("optional").Value(&m.fb.longitude),
		).Title("Location"),
	).WithWidth(ui.FormWidth(m.width)).WithHeight(ui.FormHeight(m.height))
}

// input converts the form values into a request body.
func (fb *formBindings) input() (model.EmployeeInput, error) {
	in := model.EmployeeInput{
		FirstName: strings.TrimSpace(fb.firstName),
		LastName:  strings.TrimSpace(fb.lastName),
		Email:     strings.TrimSpace(fb.email),
		Password:  fb.password,
		Role:      fb.role,
	}
	var err error
	if in.Latitude, err = parseCoord(fb.latitude); err != nil {
		return in, fmt.Errorf("latitude: %w", err)
	}
	if in.Longitude, err = parseCoord(fb.longitude); err != nil {
		return in, fmt.Errorf("longitude: %w", err)
	}
	return in, validate.Struct(in)
}

func parseCoord(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}
	return strconv.ParseFloat(s, 64)
}

func (m Model) updateForm(msg tea.Msg) (Model, tea.Cmd) {
	mdl, cmd := m.form.Update(msg)
	if f, ok := mdl.(*huh.Form); ok {
		m.form = f
	}
	switch m.form.State {
	case huh.StateCompleted:
		in, err := m.fb.input()
		if err != nil {
			m.mode = modeList
			m.err = err
			return m, nil
		}
		env, id := m.env, m.editingID
		return m, func() tea.Msg {
			if id == 0 {
				e, err := env.API.CreateEmployee(env.Context(), in)
				if err != nil {
					return savedMsg{err: err}
				}
				return savedMsg{info: "Created " + e.FullName()}
			}
			text, err := env.API.UpdateEmployee(env.Context(), id, in)
			if err == nil && text == "" {
				text = "Employee updated"
			}
			return savedMsg{info: text, err: err}
		}
	case huh.StateAborted:
		m.mode = modeList
		return m, nil
	}
	return m, cmd
}

func (m Model) updateConfirm(msg tea.Msg) (Model, tea.Cmd) {
	mdl, cmd := m.form.Update(msg)
	if f, ok := mdl.(*huh.Form); ok {
		m.form = f
	}
	switch m.form.State {
	case huh.StateCompleted:
		if !m.fb.confirm {
			m.mode = modeList
			return m, nil
		}
		env, id := m.env, m.editingID
		return m, func() tea.Msg {
			text, err := env.API.DeleteEmployee(env.Context(), id)
			if err == nil && text == "" {
				text = "Employee deleted"
			}
			return savedMsg{info: text, err: err}
		}
	case huh.StateAborted:
		m.mode = modeList
		return m, nil
	}
	return m, cmd
}

// View renders the page.
func (m Model) View() string {
	if (m.mode == modeForm || m.mode == modeConfirmDelete) && m.form != nil {
		return ui.Panel(m.width, m.height, m.form.View())
	}

	if m.forbidden {
		return ui.Panel(m.width, m.height, lipgloss.JoinVertical(lipgloss.Left,
			ui.Title("Employees", ""),
			theme.ErrorStyle.Render("Only administrators can manage employees."),
		))
	}

	filter := "all roles"
	if m.role != "" {
		filter = m.role.Label()
	}
	parts := []string{ui.Title("Employees", fmt.Sprintf("%d shown · %s", len(m.visible), filter))}
	if m.mode == modeSearch || m.search.Value() != "" {
		parts = append(parts, m.search.View())
	}
	if banner := ui.Banner(m.err, m.info); banner != "" {
		parts = append(parts, banner)
	}
	if m.loading {
		parts = append(parts, theme.DimmedStyle.Render("Loading..."))
	}
	parts = append(parts, "", m.table.View())
	return ui.Panel(m.width, m.height, lipgloss.JoinVertical(lipgloss.Left, parts...))
}

// KeyHints returns the status bar hints.
func (m Model) KeyHints() string {
	switch m.mode {
	case modeSearch:
		return "type to filter | enter keep | esc clear"
	case modeForm, modeConfirmDelete:
		return "tab next field | enter confirm | esc cancel"
	}
	return "n new | e edit | d delete | / search | f role filter | r reload | esc back"
}

// SetSize updates dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.search.Width = max(width-10, 10)
	m.table.SetWidth(max(width-6, 20))
	m.table.SetHeight(max(height-10, 4))
}
