package workspace

import (
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/airwatch/internal/keys"
	"github.com/nhle/airwatch/internal/model"
	"github.com/nhle/airwatch/internal/session"
	"github.com/nhle/airwatch/internal/ui"
)

func navigation(t *testing.T, cmd tea.Cmd) session.Route {
	t.Helper()
	require.NotNil(t, cmd)
	msg, ok := cmd().(ui.NavigateMsg)
	require.True(t, ok)
	return msg.Route
}

func TestAdminSpaceCountsRoles(t *testing.T) {
	m := New(&ui.Env{Keys: keys.DefaultKeyMap()}, 100, 30)
	require.NotNil(t, m.Open(session.RouteAdmin))

	m, _ = m.Update(employeesMsg{list: []model.Employee{
		{Role: model.RoleRef{Name: model.RoleEngineer}},
		{Role: model.RoleRef{Name: model.RoleTechnician}},
		{Role: model.RoleRef{Name: model.RoleTechnician}},
	}})
	assert.Equal(t, 3, m.total)
	assert.Equal(t, 2, m.counts[model.RoleTechnician])

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("e")})
	assert.Equal(t, session.RouteEmployees, navigation(t, cmd))
}

func TestEngineeringSpaceLoadsNothing(t *testing.T) {
	m := New(&ui.Env{Keys: keys.DefaultKeyMap()}, 100, 30)
	assert.Nil(t, m.Open(session.RouteEngineering))
	assert.Equal(t, session.RouteEngineering, m.Route())

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("e")})
	assert.Nil(t, cmd)
}

func TestUnauthorizedReturnsToDashboard(t *testing.T) {
	m := New(&ui.Env{Keys: keys.DefaultKeyMap()}, 100, 30)
	m.Open(session.RouteUnauthorized)

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	assert.Equal(t, session.RouteDashboard, navigation(t, cmd))
	assert.Contains(t, m.View(), "Access denied")
}
