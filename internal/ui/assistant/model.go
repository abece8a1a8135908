// Package assistant is the conversational helper page. Questions go out
// over the realtime channel and replies come back on the assistant topic;
// without a connection the HTTP endpoint answers instead.
package assistant

import (
	"strings"

	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/airwatch/internal/model"
	"github.com/nhle/airwatch/internal/session"
	"github.com/nhle/airwatch/internal/theme"
	"github.com/nhle/airwatch/internal/ui"
)

// SendDestination is the broker destination questions are published to.
const SendDestination = "/app/chat"

// ReplyMsg carries a message pushed on the assistant topic.
type ReplyMsg struct {
	Message model.AssistantMessage
}

type historyMsg struct {
	messages []model.AssistantMessage
	err      error
}

func (m historyMsg) Failure() error { return m.err }

// answerMsg is the result of a send. reply is set when the HTTP
// fallback answered directly.
type answerMsg struct {
	reply string
	err   error
}

func (m answerMsg) Failure() error { return m.err }

// Model is the assistant page.
type Model struct {
	env      *ui.Env
	input    textarea.Model
	viewport viewport.Model
	messages []model.AssistantMessage
	waiting  bool
	err      error
	width    int
	height   int
}

// New creates the assistant page.
func New(env *ui.Env, width, height int) Model {
	ta := textarea.New()
	ta.Placeholder = "Ask about the weather, air quality or safety..."
	ta.Prompt = "> "
	ta.ShowLineNumbers = false
	ta.SetHeight(3)
	ta.CharLimit = 2000

	m := Model{
		env:      env,
		input:    ta,
		viewport: viewport.New(width, height),
		width:    width,
		height:   height,
	}
	m.SetSize(width, height)
	return m
}

// Reset clears the conversation of the previous session.
func (m *Model) Reset() {
	*m = New(m.env, m.width, m.height)
}

// Init loads the stored conversation and focuses the input.
func (m Model) Init() tea.Cmd {
	env := m.env
	return tea.Batch(textarea.Blink, func() tea.Msg {
		list, err := env.API.AssistantHistory(env.Context())
		return historyMsg{messages: list, err: err}
	})
}

// Focus gives keyboard focus to the input.
func (m *Model) Focus() tea.Cmd {
	return m.input.Focus()
}

// Capturing reports whether the input has focus.
func (m Model) Capturing() bool {
	return m.input.Focused()
}

// Messages returns the conversation.
func (m Model) Messages() []model.AssistantMessage {
	return m.messages
}

// Update handles messages.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case historyMsg:
		m.err = msg.err
		if msg.err == nil && len(m.messages) == 0 {
			m.messages = msg.messages
			m.refreshViewport()
		}
		return m, nil

	case ReplyMsg:
		if msg.Message.Content == "" {
			return m, nil
		}
		if msg.Message.Role == "" {
			msg.Message.Role = model.AssistantRoleAssistant
		}
		m.messages = append(m.messages, msg.Message)
		if msg.Message.Role == model.AssistantRoleAssistant {
			m.waiting = false
		}
		m.refreshViewport()
		return m, nil

	case answerMsg:
		m.err = msg.err
		if msg.err != nil {
			m.waiting = false
		} else if msg.reply != "" {
			m.waiting = false
			m.messages = append(m.messages, model.AssistantMessage{
				Role:    model.AssistantRoleAssistant,
				Content: msg.reply,
			})
		}
		m.refreshViewport()
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	var cmds []tea.Cmd
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	cmds = append(cmds, cmd)
	m.viewport, cmd = m.viewport.Update(msg)
	cmds = append(cmds, cmd)
	return m, tea.Batch(cmds...)
}

func (m Model) handleKey(msg tea.KeyMsg) (Model, tea.Cmd) {
	if !m.input.Focused() {
		switch msg.String() {
		case "esc":
			return m, ui.Navigate(session.RouteDashboard)
		case "i", "enter":
			cmd := m.input.Focus()
			return m, cmd
		case "pgup", "pgdown", "up", "down", "j", "k":
			var cmd tea.Cmd
			m.viewport, cmd = m.viewport.Update(msg)
			return m, cmd
		}
		return m, nil
	}

	switch msg.String() {
	case "esc":
		m.input.Blur()
		return m, nil

	case "pgup", "pgdown":
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return m, cmd

	case "enter":
		if m.waiting {
			return m, nil
		}
		text := strings.TrimSpace(m.input.Value())
		if text == "" {
			return m, nil
		}
		m.input.Reset()
		m.err = nil
		m.messages = append(m.messages, model.AssistantMessage{
			Role:    model.AssistantRoleUser,
			Content: text,
			Sender:  m.env.Session.Current().Email,
		})
		m.waiting = true
		m.refreshViewport()
		return m, m.ask(text)
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// ask publishes the question, or asks over HTTP when the realtime
// channel is down.
func (m Model) ask(text string) tea.Cmd {
	env, pub := m.env, m.env.Realtime
	question := model.AssistantMessage{
		Role:    model.AssistantRoleUser,
		Content: text,
		Sender:  env.Session.Current().Email,
	}
	return func() tea.Msg {
		if pub != nil {
			if err := pub.Publish(SendDestination, question); err == nil {
				return answerMsg{}
			}
		}
		reply, err := env.API.AskAssistant(env.Context(), text)
		return answerMsg{reply: reply, err: err}
	}
}

func (m *Model) refreshViewport() {
	m.viewport.SetContent(m.renderConversation())
	m.viewport.GotoBottom()
}

func (m Model) renderConversation() string {
	if len(m.messages) == 0 && !m.waiting {
		return theme.HelpStyle.Render("Ask about current conditions, pollutant levels " +
			"or what precautions to take on site.")
	}

	roleStyle := lipgloss.NewStyle().Bold(true)
	userStyle := roleStyle.Foreground(theme.ColorBlue)
	assistantStyle := roleStyle.Foreground(theme.ColorGreen)
	contentStyle := lipgloss.NewStyle().Foreground(theme.ColorWhite).Width(max(m.viewport.Width-2, 10))

	var sections []string
	for _, msg := range m.messages {
		switch msg.Role {
		case model.AssistantRoleUser:
			sections = append(sections, userStyle.Render("You:"), contentStyle.Render(msg.Content))
		case model.AssistantRoleSystem:
			sections = append(sections, theme.DimmedStyle.Width(max(m.viewport.Width-2, 10)).Render(msg.Content))
		default:
			sections = append(sections, assistantStyle.Render("Assistant:"), contentStyle.Render(msg.Content))
		}
		sections = append(sections, "")
	}
	if m.waiting {
		sections = append(sections, theme.DimmedStyle.Italic(true).Render("..."))
	}
	return strings.Join(sections, "\n")
}

// View renders the page.
func (m Model) View() string {
	sep := lipgloss.NewStyle().Foreground(theme.ColorSubtle).
		Render(strings.Repeat("─", max(min(m.width-8, 100), 10)))

	parts := []string{ui.Title("Assistant", "Environmental and safety questions")}
	if m.err != nil {
		parts = append(parts, ui.Banner(m.err, ""))
	}
	parts = append(parts, m.viewport.View(), sep, m.input.View())
	return ui.Panel(m.width, m.height, lipgloss.JoinVertical(lipgloss.Left, parts...))
}

// KeyHints returns the status bar hints.
func (m Model) KeyHints() string {
	if m.input.Focused() {
		return "enter send | pgup/pgdown scroll | esc leave input"
	}
	return "i type | j/k scroll | esc back"
}

// SetSize updates dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.input.SetWidth(max(width-8, 10))
	m.viewport.Width = max(width-8, 10)
	m.viewport.Height = max(height-14, 4)
	m.refreshViewport()
}
