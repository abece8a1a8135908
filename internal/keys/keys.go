package keys

import "github.com/charmbracelet/bubbles/key"

// KeyMap defines the global keybindings for the application.
type KeyMap struct {
	// Navigation
	Down key.Binding
	Up   key.Binding
	Tab  key.Binding

	// Selection
	Select key.Binding

	// Back / Quit
	Back key.Binding
	Quit key.Binding

	// Search
	Search key.Binding

	// Command palette
	Command key.Binding

	// Help toggle
	Help key.Binding

	// Manual refresh
	Refresh key.Binding

	// Page shortcuts
	GoDashboard   key.Binding
	GoWeather     key.Binding
	GoAirQuality  key.Binding
	GoAlerts      key.Binding
	GoEmployees   key.Binding
	GoPreferences key.Binding
	GoChat        key.Binding
	GoAssistant   key.Binding
	GoWorkspace   key.Binding
	Logout        key.Binding

	// Item actions
	New     key.Binding
	Edit    key.Binding
	Delete  key.Binding
	Toggle  key.Binding
	ReadAll key.Binding
	Clear   key.Binding
}

// DefaultKeyMap returns the default set of keybindings.
func DefaultKeyMap() *KeyMap {
	return &KeyMap{
		Down: key.NewBinding(
			key.WithKeys("j", "down"),
			key.WithHelp("j/↓", "down"),
		),
		Up: key.NewBinding(
			key.WithKeys("k", "up"),
			key.WithHelp("k/↑", "up"),
		),
		Tab: key.NewBinding(
			key.WithKeys("tab"),
			key.WithHelp("tab", "switch pane"),
		),
		Select: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "open / send"),
		),
		Back: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("esc", "back"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q"),
			key.WithHelp("q", "quit"),
		),
		Search: key.NewBinding(
			key.WithKeys("/"),
			key.WithHelp("/", "search"),
		),
		Command: key.NewBinding(
			key.WithKeys(":"),
			key.WithHelp(":", "command palette"),
		),
		Help: key.NewBinding(
			key.WithKeys("?"),
			key.WithHelp("?", "toggle help"),
		),
		Refresh: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "refresh"),
		),
		GoDashboard: key.NewBinding(
			key.WithKeys("D"),
			key.WithHelp("D", "dashboard"),
		),
		GoWeather: key.NewBinding(
			key.WithKeys("W"),
			key.WithHelp("W", "weather"),
		),
		GoAirQuality: key.NewBinding(
			key.WithKeys("A"),
			key.WithHelp("A", "air quality"),
		),
		GoAlerts: key.NewBinding(
			key.WithKeys("N"),
			key.WithHelp("N", "alerts"),
		),
		GoEmployees: key.NewBinding(
			key.WithKeys("E"),
			key.WithHelp("E", "employees"),
		),
		GoPreferences: key.NewBinding(
			key.WithKeys("P"),
			key.WithHelp("P", "preferences"),
		),
		GoChat: key.NewBinding(
			key.WithKeys("C"),
			key.WithHelp("C", "team chat"),
		),
		GoAssistant: key.NewBinding(
			key.WithKeys("I"),
			key.WithHelp("I", "assistant"),
		),
		GoWorkspace: key.NewBinding(
			key.WithKeys("M"),
			key.WithHelp("M", "my workspace"),
		),
		Logout: key.NewBinding(
			key.WithKeys("L"),
			key.WithHelp("L", "log out"),
		),
		New: key.NewBinding(
			key.WithKeys("n"),
			key.WithHelp("n", "new"),
		),
		Edit: key.NewBinding(
			key.WithKeys("e"),
			key.WithHelp("e", "edit"),
		),
		Delete: key.NewBinding(
			key.WithKeys("d"),
			key.WithHelp("d", "delete"),
		),
		Toggle: key.NewBinding(
			key.WithKeys(" "),
			key.WithHelp("space", "mark read"),
		),
		ReadAll: key.NewBinding(
			key.WithKeys("m"),
			key.WithHelp("m", "mark all read"),
		),
		Clear: key.NewBinding(
			key.WithKeys("X"),
			key.WithHelp("X", "clear"),
		),
	}
}

// ShortHelp returns the most essential keybindings for the compact help view.
func (k *KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{
		k.Up, k.Down, k.Select, k.Back,
		k.Quit, k.Help, k.Command,
	}
}

// FullHelp returns all keybindings grouped by category for the expanded
// help view.
func (k *KeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down, k.Tab, k.Select, k.Back, k.Quit},
		{k.Search, k.Command, k.Help, k.Refresh, k.Logout},
		{k.GoDashboard, k.GoWeather, k.GoAirQuality, k.GoAlerts, k.GoWorkspace},
		{k.GoEmployees, k.GoPreferences, k.GoChat, k.GoAssistant},
		{k.New, k.Edit, k.Delete, k.Toggle, k.ReadAll, k.Clear},
	}
}
