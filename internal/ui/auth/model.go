// Package auth implements the sign-in and account creation forms.
package auth

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/airwatch/internal/api"
	"github.com/nhle/airwatch/internal/model"
	"github.com/nhle/airwatch/internal/session"
	"github.com/nhle/airwatch/internal/theme"
	"github.com/nhle/airwatch/internal/ui"
)

// LoggedInMsg is emitted after a successful sign-in.
type LoggedInMsg struct {
	Session model.Session
}

type mode int

const (
	modeLogin mode = iota
	modeRegister
)

// formBindings keeps huh's Value pointers valid across model copies.
type formBindings struct {
	email     string
	password  string
	confirm   string
	firstName string
	lastName  string
	latitude  string
	longitude string
}

type loginResultMsg struct {
	session model.Session
	err     error
}

type registerResultMsg struct {
	message string
	err     error
}

// Model is the authentication page.
type Model struct {
	env    *ui.Env
	mode   mode
	form   *huh.Form
	fb     *formBindings
	busy   bool
	err    error
	info   string
	width  int
	height int
}

// New creates the authentication page.
func New(env *ui.Env, width, height int) Model {
	return Model{
		env:    env,
		fb:     &formBindings{},
		width:  width,
		height: height,
	}
}

// Open resets the page to the form for route and returns its init command.
// A notice, such as "Session expired", is shown above the form.
func (m *Model) Open(route session.Route, notice string) tea.Cmd {
	m.mode = modeLogin
	if route == session.RouteRegister {
		m.mode = modeRegister
	}
	m.busy = false
	m.err = nil
	m.info = notice
	m.fb.password = ""
	m.fb.confirm = ""
	m.form = m.buildForm()
	return m.form.Init()
}

// Capturing reports whether key presses belong to the form.
func (m Model) Capturing() bool {
	return true
}

// Update handles messages.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case loginResultMsg:
		m.busy = false
		if msg.err != nil {
			m.err = loginError(msg.err)
			m.fb.password = ""
			m.form = m.buildForm()
			return m, m.form.Init()
		}
		return m, func() tea.Msg { return LoggedInMsg{Session: msg.session} }

	case registerResultMsg:
		m.busy = false
		if msg.err != nil {
			m.err = msg.err
			m.form = m.buildForm()
			return m, m.form.Init()
		}
		m.info = msg.message
		if m.info == "" {
			m.info = "Account created, you can sign in now"
		}
		m.err = nil
		m.mode = modeLogin
		m.fb.password = ""
		m.fb.confirm = ""
		m.form = m.buildForm()
		return m, m.form.Init()

	case tea.KeyMsg:
		if msg.String() == "ctrl+n" && !m.busy {
			if m.mode == modeLogin {
				m.mode = modeRegister
			} else {
				m.mode = modeLogin
			}
			m.err = nil
			m.info = ""
			m.form = m.buildForm()
			return m, m.form.Init()
		}
	}

	if m.form == nil || m.busy {
		return m, nil
	}

	mdl, cmd := m.form.Update(msg)
	if f, ok := mdl.(*huh.Form); ok {
		m.form = f
	}
	switch m.form.State {
	case huh.StateCompleted:
		m.busy = true
		m.err = nil
		if m.mode == modeRegister {
			return m, m.register()
		}
		return m, m.login()
	case huh.StateAborted:
		m.form = m.buildForm()
		return m, m.form.Init()
	}
	return m, cmd
}

func loginError(err error) error {
	if api.IsAuthError(err) {
		return errors.New("Invalid email or password")
	}
	if errors.Is(err, session.ErrIncompleteSession) {
		return errors.New("The server returned an incomplete session, please try again")
	}
	return err
}

func (m Model) buildForm() *huh.Form {
	var form *huh.Form
	if m.mode == modeRegister {
		form = huh.NewForm(
			huh.NewGroup(
				huh.NewInput().Title("First name").Value(&m.fb.firstName).Validate(required("first name")),
				huh.NewInput().Title("Last name").Value(&m.fb.lastName).Validate(required("last name")),
				huh.NewInput().Title("Email").Value(&m.fb.email).Validate(required("email")),
				huh.NewInput().Title("Password").EchoMode(huh.EchoModePassword).Value(&m.fb.password).Validate(required("password")),
				huh.NewInput().Title("Confirm password").EchoMode(huh.EchoModePassword).Value(&m.fb.confirm),
			),
			huh.NewGroup(
				huh.NewInput().Title("Latitude").Placeholder("optional, e.g. 32.2994").Value(&m.fb.latitude).Validate(optionalFloat),
				huh.NewInput().Title("Longitude").Placeholder("optional, e.g. -9.2372").Value(&m.fb.longitude).Validate(optionalFloat),
			).Title("Location").Description("Used to pick the nearest measurement station."),
		)
	} else {
		form = huh.NewForm(
			huh.NewGroup(
				huh.NewInput().Title("Email").Value(&m.fb.email).Validate(required("email")),
				huh.NewInput().Title("Password").EchoMode(huh.EchoModePassword).Value(&m.fb.password).Validate(required("password")),
			),
		)
	}
	return form.WithWidth(min(ui.FormWidth(m.width), 60)).WithShowHelp(false)
}

func required(field string) func(string) error {
	return func(s string) error {
		if strings.TrimSpace(s) == "" {
			return fmt.Errorf("%s is required", field)
		}
		return nil
	}
}

func optionalFloat(s string) error {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	if _, err := strconv.ParseFloat(strings.TrimSpace(s), 64); err != nil {
		return errors.New("must be a number")
	}
	return nil
}

func parseOptionalFloat(s string) float64 {
	v, _ := strconv.ParseFloat(strings.TrimSpace(s), 64)
	return v
}

func (m Model) login() tea.Cmd {
	env := m.env
	email, password := m.fb.email, m.fb.password
	return func() tea.Msg {
		s, err := env.Session.Login(env.Context(), email, password)
		return loginResultMsg{session: s, err: err}
	}
}

func (m Model) register() tea.Cmd {
	env := m.env
	reg := model.Registration{
		Email:           strings.TrimSpace(m.fb.email),
		Password:        m.fb.password,
		ConfirmPassword: m.fb.confirm,
		FirstName:       strings.TrimSpace(m.fb.firstName),
		LastName:        strings.TrimSpace(m.fb.lastName),
		Latitude:        parseOptionalFloat(m.fb.latitude),
		Longitude:       parseOptionalFloat(m.fb.longitude),
	}
	return func() tea.Msg {
		msg, err := env.Session.Register(env.Context(), reg)
		return registerResultMsg{message: msg, err: err}
	}
}

// View renders the page.
func (m Model) View() string {
	title := "Sign in"
	hint := "ctrl+n create an account"
	if m.mode == modeRegister {
		title = "Create an account"
		hint = "ctrl+n back to sign in"
	}

	parts := []string{ui.Title("AirWatch", title)}
	if banner := ui.Banner(m.err, m.info); banner != "" {
		parts = append(parts, banner, "")
	}
	if m.busy {
		parts = append(parts, theme.DimmedStyle.Render("Please wait..."))
	} else if m.form != nil {
		parts = append(parts, m.form.View())
	}
	parts = append(parts, "", theme.HelpStyle.Render(hint))

	box := theme.PanelStyle.Render(lipgloss.JoinVertical(lipgloss.Left, parts...))
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, box)
}

// KeyHints returns the status bar hints.
func (m Model) KeyHints() string {
	return "tab next field | enter submit | ctrl+n switch form | ctrl+c quit"
}

// SetSize updates dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	if m.form != nil {
		m.form = m.form.WithWidth(min(ui.FormWidth(width), 60))
	}
}
