// Package ui holds the pieces shared by every page: the layout, the
// dependencies pages call into and the messages they exchange with the
// root model.
package ui

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/airwatch/internal/api"
	"github.com/nhle/airwatch/internal/geocode"
	"github.com/nhle/airwatch/internal/keys"
	"github.com/nhle/airwatch/internal/model"
	"github.com/nhle/airwatch/internal/notify"
	"github.com/nhle/airwatch/internal/session"
	"github.com/nhle/airwatch/internal/theme"
)

// Publisher sends a payload to a broker destination.
type Publisher interface {
	Publish(destination string, v any) error
}

// Env carries the services pages call into. The root model owns it and
// swaps Realtime on login and logout.
type Env struct {
	Ctx      context.Context
	API      *api.Client
	Session  *session.Manager
	Notices  *notify.Center
	Geocoder *geocode.Resolver
	Keys     *keys.KeyMap

	// Config is the loaded configuration, saved back to ConfigPath by the
	// preferences page.
	Config     *model.AppConfig
	ConfigPath string

	// Realtime is nil while logged out or before the first connection.
	Realtime Publisher

	// Prefs are the current user's alert preferences.
	Prefs model.Preferences
}

// Context returns the application context, never nil.
func (e *Env) Context() context.Context {
	if e.Ctx == nil {
		return context.Background()
	}
	return e.Ctx
}

// NavigateMsg asks the root model to open a route.
type NavigateMsg struct {
	Route session.Route
}

// Navigate returns a command emitting NavigateMsg.
func Navigate(r session.Route) tea.Cmd {
	return func() tea.Msg { return NavigateMsg{Route: r} }
}

// Failure is implemented by result messages that may carry a backend
// error. The root model inspects it to end expired sessions.
type Failure interface {
	Failure() error
}

// PrefsChangedMsg is emitted after preferences were loaded or saved.
type PrefsChangedMsg struct {
	Prefs model.Preferences
}

// NoticesChangedMsg tells pages that the notification list changed.
type NoticesChangedMsg struct{}

// RefreshMsg asks the root model to re-fetch the background feeds now.
type RefreshMsg struct{}

// Refresh returns a command emitting RefreshMsg.
func Refresh() tea.Msg { return RefreshMsg{} }

// Banner renders an error line, or the info line when err is nil.
func Banner(err error, info string) string {
	if err != nil {
		return theme.ErrorStyle.Render(api.UserMessage(err))
	}
	if info != "" {
		return theme.SuccessStyle.Render(info)
	}
	return ""
}

// Title renders a page title with an optional subtitle.
func Title(title, subtitle string) string {
	if subtitle == "" {
		return theme.TitleStyle.Render(title)
	}
	return theme.TitleStyle.Render(title) + "  " + theme.DimmedStyle.Render(subtitle)
}

// Panel pads page content to the given size.
func Panel(width, height int, content string) string {
	return lipgloss.NewStyle().Padding(1, 2).Width(width).Height(height).Render(content)
}

// FormWidth clamps a form width to a readable range.
func FormWidth(width int) int {
	return min(max(width-4, 40), 100)
}

// FormHeight keeps a form at least ten rows tall.
func FormHeight(height int) int {
	return max(height-4, 10)
}

// Temp formats a Celsius temperature in the user's unit.
func Temp(celsius float64, unit model.TemperatureUnit) string {
	return fmt.Sprintf("%.1f%s", unit.Convert(celsius), unit.Symbol())
}
