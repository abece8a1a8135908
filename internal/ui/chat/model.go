// Package chat is the team messaging page: group channels, private
// conversations found through user search, and group management.
package chat

import (
	"fmt"
	"log"
	"slices"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/airwatch/internal/model"
	"github.com/nhle/airwatch/internal/session"
	"github.com/nhle/airwatch/internal/theme"
	"github.com/nhle/airwatch/internal/ui"
	"github.com/nhle/airwatch/internal/validate"
)

// SendDestination is the broker destination chat messages are published to.
const SendDestination = "/app/chat.send"

const peerListWidth = 30

type mode int

const (
	modePeers mode = iota
	modeSearch
	modeCompose
	modeNewGroup
	modeAddMember
)

// IncomingMsg carries a chat message pushed over the realtime channel.
type IncomingMsg struct {
	Message model.ChatMessage
}

type groupsMsg struct {
	groups []model.ChatGroup
	err    error
}

func (m groupsMsg) Failure() error { return m.err }

type unreadMsg struct {
	counts map[string]int64
}

type usersMsg struct {
	users []model.ChatUser
	err   error
}

func (m usersMsg) Failure() error { return m.err }

type conversationMsg struct {
	peer     model.ChatPeer
	messages []model.ChatMessage
	err      error
}

func (m conversationMsg) Failure() error { return m.err }

// sentMsg reports a send. message is set when the HTTP fallback was used.
type sentMsg struct {
	peer    model.ChatPeer
	message *model.ChatMessage
	err     error
}

func (m sentMsg) Failure() error { return m.err }

type markedReadMsg struct {
	peer model.ChatPeer
	err  error
}

func (m markedReadMsg) Failure() error { return m.err }

type groupSavedMsg struct {
	group model.ChatGroup
	info  string
	err   error
}

func (m groupSavedMsg) Failure() error { return m.err }

type formBindings struct {
	name       string
	department string
	city       string
	site       string
	members    []int64
	member     int64
}

type peerItem struct {
	peer   model.ChatPeer
	detail string
}

// Model is the chat page.
type Model struct {
	env  *ui.Env
	mode mode

	groups []model.ChatGroup
	users  []model.ChatUser
	peers  []peerItem
	unread map[string]int64
	cursor int

	active   *model.ChatPeer
	messages []model.ChatMessage

	search   textinput.Model
	input    textinput.Model
	viewport viewport.Model
	form     *huh.Form
	fb       *formBindings

	err    error
	info   string
	width  int
	height int
}

// New creates the chat page.
func New(env *ui.Env, width, height int) Model {
	search := textinput.New()
	search.Placeholder = "name or email"
	search.Prompt = "/ "
	search.CharLimit = 80

	input := textinput.New()
	input.Placeholder = "Write a message"
	input.Prompt = "> "
	input.CharLimit = 2000

	m := Model{
		env:      env,
		unread:   make(map[string]int64),
		search:   search,
		input:    input,
		viewport: viewport.New(width, height),
		fb:       &formBindings{},
		width:    width,
		height:   height,
	}
	m.SetSize(width, height)
	return m
}

// Reset forgets the conversations of the previous session.
func (m *Model) Reset() {
	*m = New(m.env, m.width, m.height)
}

// Init loads the user's groups.
func (m Model) Init() tea.Cmd {
	env := m.env
	return func() tea.Msg {
		groups, err := env.API.Groups(env.Context())
		return groupsMsg{groups: groups, err: err}
	}
}

// Capturing reports whether an input or a form has focus.
func (m Model) Capturing() bool {
	return m.mode != modePeers
}

// Active returns the open conversation, if any.
func (m Model) Active() (model.ChatPeer, bool) {
	if m.active == nil {
		return model.ChatPeer{}, false
	}
	return *m.active, true
}

// Unread returns the unread count for peer.
func (m Model) Unread(peer model.ChatPeer) int64 {
	return m.unread[peer.Key()]
}

func (m Model) me() int64 {
	if m.env.Session == nil {
		return 0
	}
	id, _ := strconv.ParseInt(m.env.Session.Current().UserID, 10, 64)
	return id
}

// Update handles messages.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case groupsMsg:
		m.err = msg.err
		if msg.err != nil {
			return m, nil
		}
		m.groups = msg.groups
		m.rebuildPeers()
		return m, m.loadUnread()

	case unreadMsg:
		for k, n := range msg.counts {
			m.unread[k] = n
		}
		return m, nil

	case usersMsg:
		m.err = msg.err
		if msg.err != nil {
			return m, nil
		}
		me := m.me()
		m.users = slices.DeleteFunc(msg.users, func(u model.ChatUser) bool { return u.ID == me })
		m.rebuildPeers()
		if len(m.users) == 0 {
			m.info = "No users found"
		} else {
			m.info = fmt.Sprintf("%d users found", len(m.users))
		}
		return m, nil

	case conversationMsg:
		if m.active == nil || m.active.Key() != msg.peer.Key() {
			return m, nil
		}
		m.err = msg.err
		m.messages = msg.messages
		m.refreshViewport()
		return m, nil

	case sentMsg:
		m.err = msg.err
		if msg.err != nil || m.active == nil || m.active.Key() != msg.peer.Key() {
			return m, nil
		}
		if msg.message != nil {
			m.messages = append(m.messages, *msg.message)
			m.refreshViewport()
			return m, nil
		}
		return m, m.loadConversation(msg.peer)

	case IncomingMsg:
		return m.receive(msg.Message)

	case markedReadMsg:
		if msg.err != nil {
			m.info = "Could not mark conversation read"
		}
		return m, nil

	case groupSavedMsg:
		m.mode = modePeers
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
		case modeCompose:
			return m.updateCompose(msg)
		case modeNewGroup, modeAddMember:
			return m.updateForm(msg)
		}
		return m.handlePeerKey(msg)
	}

	switch m.mode {
	case modeNewGroup, modeAddMember:
		return m.updateForm(msg)
	case modeCompose:
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		return m, cmd
	case modeSearch:
		var cmd tea.Cmd
		m.search, cmd = m.search.Update(msg)
		return m, cmd
	}
	return m, nil
}

// receive places an incoming message in the open conversation or counts
// it as unread.
func (m Model) receive(msg model.ChatMessage) (Model, tea.Cmd) {
	peer, ok := m.peerOf(msg)
	if !ok {
		return m, nil
	}
	if !slices.ContainsFunc(m.peers, func(p peerItem) bool { return p.peer.Key() == peer.Key() }) {
		m.peers = append(m.peers, peerItem{peer: peer, detail: "private"})
	}
	if m.active != nil && msg.Involves(*m.active) {
		m.messages = append(m.messages, msg)
		m.refreshViewport()
		if msg.Sender != nil && msg.Sender.ID != m.me() {
			return m, m.markRead(*m.active)
		}
		return m, nil
	}
	m.unread[peer.Key()]++
	return m, nil
}

// peerOf returns the conversation msg belongs to from this user's side.
func (m Model) peerOf(msg model.ChatMessage) (model.ChatPeer, bool) {
	if msg.Group != nil {
		return model.ChatPeer{ID: msg.Group.ID, Name: msg.Group.Name, IsGroup: true}, true
	}
	other := msg.Sender
	if other != nil && other.ID == m.me() {
		other = msg.Recipient
	}
	if other == nil {
		return model.ChatPeer{}, false
	}
	return model.ChatPeer{ID: other.ID, Name: other.Name()}, true
}

func (m *Model) rebuildPeers() {
	m.peers = m.peers[:0:0]
	for _, g := range m.groups {
		detail := fmt.Sprintf("%d members", len(g.Members))
		if g.Site != "" {
			detail = g.Site + " · " + detail
		}
		m.peers = append(m.peers, peerItem{
			peer:   model.ChatPeer{ID: g.ID, Name: g.Name, IsGroup: true},
			detail: detail,
		})
	}
	for _, u := range m.users {
		m.peers = append(m.peers, peerItem{
			peer:   model.ChatPeer{ID: u.ID, Name: u.Name()},
			detail: u.Role.Name.Label(),
		})
	}
	if m.cursor >= len(m.peers) {
		m.cursor = max(len(m.peers)-1, 0)
	}
}

func (m Model) loadUnread() tea.Cmd {
	env := m.env
	peers := make([]model.ChatPeer, len(m.peers))
	for i, p := range m.peers {
		peers[i] = p.peer
	}
	return func() tea.Msg {
		counts := make(map[string]int64, len(peers))
		for _, p := range peers {
			n, err := env.API.UnreadCount(env.Context(), p)
			if err != nil {
				continue
			}
			counts[p.Key()] = n
		}
		return unreadMsg{counts: counts}
	}
}

func (m Model) loadConversation(peer model.ChatPeer) tea.Cmd {
	env := m.env
	return func() tea.Msg {
		list, err := env.API.Conversation(env.Context(), peer)
		return conversationMsg{peer: peer, messages: list, err: err}
	}
}

func (m Model) markRead(peer model.ChatPeer) tea.Cmd {
	env := m.env
	return func() tea.Msg {
		err := env.API.MarkRead(env.Context(), peer)
		if err != nil {
			log.Printf("chat: marking %s read: %v", peer.Key(), err)
		}
		return markedReadMsg{peer: peer, err: err}
	}
}

func (m Model) handlePeerKey(msg tea.KeyMsg) (Model, tea.Cmd) {
	keys := m.env.Keys
	switch {
	case key.Matches(msg, keys.Down):
		m.cursor = min(m.cursor+1, max(len(m.peers)-1, 0))
	case key.Matches(msg, keys.Up):
		m.cursor = max(m.cursor-1, 0)

	case key.Matches(msg, keys.Select):
		if len(m.peers) == 0 {
			return m, nil
		}
		return m.open(m.peers[m.cursor].peer)

	case key.Matches(msg, keys.Search):
		m.mode = modeSearch
		m.search.SetValue("")
		cmd := m.search.Focus()
		return m, cmd

	case key.Matches(msg, keys.New):
		return m.openGroupForm()

	case msg.String() == "a":
		if len(m.peers) == 0 || !m.peers[m.cursor].peer.IsGroup {
			return m, nil
		}
		if len(m.users) == 0 {
			m.info = "Search for a user first with /"
			return m, nil
		}
		return m.openMemberForm(m.peers[m.cursor].peer)

	case key.Matches(msg, keys.Refresh):
		return m, m.Init()

	case key.Matches(msg, keys.Back):
		if m.active != nil {
			m.active = nil
			m.messages = nil
			return m, nil
		}
		return m, ui.Navigate(session.RouteDashboard)
	}
	return m, nil
}

func (m Model) open(peer model.ChatPeer) (Model, tea.Cmd) {
	m.active = &peer
	m.messages = nil
	m.err, m.info = nil, ""
	m.refreshViewport()
	m.mode = modeCompose
	delete(m.unread, peer.Key())
	focus := m.input.Focus()
	return m, tea.Batch(m.loadConversation(peer), m.markRead(peer), focus)
}

func (m Model) updateSearch(msg tea.KeyMsg) (Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.mode = modePeers
		m.search.Blur()
		return m, nil
	case "enter":
		m.mode = modePeers
		m.search.Blur()
		q := strings.TrimSpace(m.search.Value())
		if q == "" {
			m.users = nil
			m.rebuildPeers()
			return m, nil
		}
		env := m.env
		return m, func() tea.Msg {
			users, err := env.API.SearchUsers(env.Context(), q)
			return usersMsg{users: users, err: err}
		}
	}
	var cmd tea.Cmd
	m.search, cmd = m.search.Update(msg)
	return m, cmd
}

func (m Model) updateCompose(msg tea.KeyMsg) (Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.mode = modePeers
		m.input.Blur()
		return m, nil
	case "pgup", "pgdown":
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return m, cmd
	case "enter":
		text := strings.TrimSpace(m.input.Value())
		if text == "" || m.active == nil {
			return m, nil
		}
		m.input.Reset()
		return m, m.send(*m.active, text)
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// send publishes over the realtime channel and falls back to HTTP when
// it is unavailable.
func (m Model) send(peer model.ChatPeer, text string) tea.Cmd {
	env, pub := m.env, m.env.Realtime
	return func() tea.Msg {
		if pub != nil {
			if err := pub.Publish(SendDestination, model.NewOutgoingChat(peer, text)); err == nil {
				return sentMsg{peer: peer}
			}
		}
		sent, err := env.API.SendMessage(env.Context(), peer, text)
		if err != nil {
			return sentMsg{peer: peer, err: err}
		}
		return sentMsg{peer: peer, message: &sent}
	}
}

func (m Model) openGroupForm() (Model, tea.Cmd) {
	*m.fb = formBindings{}
	siteOpts := []huh.Option[string]{huh.NewOption("None", "")}
	for _, s := range model.Sites {
		siteOpts = append(siteOpts, huh.NewOption(s.Name, s.Name))
	}

	fields := []huh.Field{
		huh.NewInput().Title("Group name").Value(&m.fb.name).Validate(requiredText),
		huh.NewInput().Title("Department").Value(&m.fb.department),
		huh.NewInput().Title("City").Value(&m.fb.city),
		huh.NewSelect[string]().Title("Site").Options(siteOpts...).Value(&m.fb.site),
	}
	if len(m.users) > 0 {
		opts := make([]huh.Option[int64], len(m.users))
		for i, u := range m.users {
			opts[i] = huh.NewOption(u.Name(), u.ID)
		}
		fields = append(fields, huh.NewMultiSelect[int64]().
			Title("Members").
			Description("From the last user search").
			Options(opts...).
			Value(&m.fb.members))
	}

	m.form = huh.NewForm(huh.NewGroup(fields...)).WithWidth(ui.FormWidth(m.width))
	m.mode = modeNewGroup
	return m, m.form.Init()
}

func (m Model) openMemberForm(group model.ChatPeer) (Model, tea.Cmd) {
	*m.fb = formBindings{}
	opts := make([]huh.Option[int64], len(m.users))
	for i, u := range m.users {
		opts[i] = huh.NewOption(fmt.Sprintf("%s <%s>", u.Name(), u.Email), u.ID)
	}
	m.fb.name = group.Name
	m.fb.member = m.users[0].ID
	m.form = huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[int64]().
				Title("Add to " + group.Name).
				Options(opts...).
				Value(&m.fb.member),
		),
	).WithWidth(ui.FormWidth(m.width))
	m.mode = modeAddMember
	return m, m.form.Init()
}

func requiredText(s string) error {
	if strings.TrimSpace(s) == "" {
		return fmt.Errorf("required")
	}
	return nil
}

// groupRequest builds the create-group body from the form.
func (b *formBindings) groupRequest() (model.GroupRequest, error) {
	req := model.GroupRequest{
		Name:       strings.TrimSpace(b.name),
		Department: strings.TrimSpace(b.department),
		City:       strings.TrimSpace(b.city),
		Site:       b.site,
		UserIDs:    b.members,
	}
	return req, validate.Struct(req)
}

func (m Model) updateForm(msg tea.Msg) (Model, tea.Cmd) {
	mdl, cmd := m.form.Update(msg)
	if f, ok := mdl.(*huh.Form); ok {
		m.form = f
	}
	switch m.form.State {
	case huh.StateCompleted:
		return m.submitForm()
	case huh.StateAborted:
		m.mode = modePeers
		return m, nil
	}
	return m, cmd
}

func (m Model) submitForm() (Model, tea.Cmd) {
	env := m.env
	if m.mode == modeAddMember {
		groupID := m.peers[m.cursor].peer.ID
		userID := m.fb.member
		return m, func() tea.Msg {
			g, err := env.API.AddGroupMember(env.Context(), groupID, userID)
			if err != nil {
				return groupSavedMsg{err: err}
			}
			return groupSavedMsg{group: g, info: "Member added to " + g.Name}
		}
	}

	req, err := m.fb.groupRequest()
	if err != nil {
		m.mode = modePeers
		m.err = err
		return m, nil
	}
	return m, func() tea.Msg {
		g, err := env.API.CreateGroup(env.Context(), req)
		if err != nil {
			return groupSavedMsg{err: err}
		}
		return groupSavedMsg{group: g, info: "Group " + g.Name + " created"}
	}
}

func (m *Model) refreshViewport() {
	m.viewport.SetContent(m.renderTranscript())
	m.viewport.GotoBottom()
}

func (m Model) renderTranscript() string {
	if m.active == nil {
		return theme.HelpStyle.Render("Select a group or search for a colleague with /.")
	}
	if len(m.messages) == 0 {
		return theme.HelpStyle.Render("No messages yet. Say hello.")
	}

	me := m.me()
	nameStyle := lipgloss.NewStyle().Bold(true)
	var lines []string
	for _, msg := range m.messages {
		name := nameStyle.Foreground(theme.ColorGreen).Render(msg.SenderName())
		if msg.Sender != nil && msg.Sender.ID == me {
			name = nameStyle.Foreground(theme.ColorBlue).Render("You")
		}
		stamp := ""
		if !msg.Timestamp.IsZero() {
			stamp = theme.DimmedStyle.Render(" " + msg.Timestamp.Local().Format("Jan 02 15:04"))
		}
		lines = append(lines, name+stamp, lipgloss.NewStyle().Width(m.viewport.Width).Render(msg.Content), "")
	}
	return strings.Join(lines, "\n")
}

// View renders the page.
func (m Model) View() string {
	if m.mode == modeNewGroup || m.mode == modeAddMember {
		title := "New group"
		if m.mode == modeAddMember {
			title = "Add member"
		}
		return ui.Panel(m.width, m.height, lipgloss.JoinVertical(lipgloss.Left,
			theme.TitleStyle.Render(title), "", m.form.View()))
	}

	title := "Chat"
	if m.active != nil {
		title = "Chat · " + m.active.Name
	}
	header := []string{ui.Title(title, "")}
	if banner := ui.Banner(m.err, m.info); banner != "" {
		header = append(header, banner)
	}

	right := lipgloss.JoinVertical(lipgloss.Left, m.viewport.View(), "", m.input.View())
	body := lipgloss.JoinHorizontal(lipgloss.Top, m.renderPeers(), "  ", right)
	return ui.Panel(m.width, m.height, lipgloss.JoinVertical(lipgloss.Left,
		lipgloss.JoinVertical(lipgloss.Left, header...), body))
}

func (m Model) renderPeers() string {
	var rows []string
	if m.mode == modeSearch {
		rows = append(rows, m.search.View(), "")
	}
	if len(m.peers) == 0 {
		rows = append(rows, theme.HelpStyle.Render("No groups yet.\nn creates one."))
	}
	style := lipgloss.NewStyle().Width(peerListWidth)
	for i, p := range m.peers {
		name := p.peer.Name
		if p.peer.IsGroup {
			name = "# " + name
		} else {
			name = "@ " + name
		}
		if n := m.unread[p.peer.Key()]; n > 0 {
			name += theme.ErrorStyle.Render(fmt.Sprintf(" (%d)", n))
		}
		text := name + "\n" + theme.DimmedStyle.Render(p.detail)
		if i == m.cursor {
			rows = append(rows, theme.SelectedItemStyle.Render(text))
		} else {
			rows = append(rows, theme.ListItemStyle.Render(text))
		}
	}
	return style.Render(strings.Join(rows, "\n"))
}

// KeyHints returns the status bar hints.
func (m Model) KeyHints() string {
	switch m.mode {
	case modeSearch:
		return "enter search | esc cancel"
	case modeCompose:
		return "enter send | pgup/pgdown scroll | esc conversations"
	case modeNewGroup, modeAddMember:
		return "tab next field | enter confirm | esc cancel"
	}
	return "j/k move | enter open | / find user | n new group | a add member | r reload | esc back"
}

// SetSize updates dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	right := max(width-peerListWidth-10, 20)
	m.viewport.Width = right
	m.viewport.Height = max(height-10, 4)
	m.input.Width = max(right-4, 10)
	m.search.Width = peerListWidth - 4
	m.refreshViewport()
}
