package session

import "github.com/nhle/airwatch/internal/model"

// Route names a navigable view.
type Route string

const (
	RouteLogin        Route = "login"
	RouteRegister     Route = "register"
	RouteDashboard    Route = "dashboard"
	RouteWeather      Route = "weather"
	RouteAirQuality   Route = "air-quality"
	RouteAlerts       Route = "alerts"
	RoutePreferences  Route = "preferences"
	RouteEmployees    Route = "employees"
	RouteChat         Route = "chat"
	RouteAssistant    Route = "assistant"
	RouteAdmin        Route = "admin"
	RouteEngineering  Route = "engineering"
	RouteUnauthorized Route = "unauthorized"
)

// Decision is the outcome of a route guard check.
type Decision int

const (
	Allowed Decision = iota
	RedirectLogin
	RedirectUnauthorized
)

func (d Decision) String() string {
	switch d {
	case Allowed:
		return "allowed"
	case RedirectLogin:
		return "redirect-login"
	case RedirectUnauthorized:
		return "redirect-unauthorized"
	default:
		return "unknown"
	}
}

type routeRule struct {
	public bool
	roles  []model.Role // empty: any authenticated user
}

var routeTable = map[Route]routeRule{
	RouteLogin:        {public: true},
	RouteRegister:     {public: true},
	RouteUnauthorized: {public: true},
	RouteDashboard:    {},
	RouteWeather:      {},
	RouteAirQuality:   {},
	RouteAlerts:       {},
	RoutePreferences:  {},
	RouteEmployees:    {},
	RouteChat:         {},
	RouteAssistant:    {},
	RouteAdmin:        {roles: []model.Role{model.RoleAdmin}},
	RouteEngineering:  {roles: []model.Role{model.RoleEngineer, model.RoleTechnician}},
}

// Authorize decides whether s may open route. Unknown routes require an
// authenticated session.
func Authorize(s model.Session, route Route) Decision {
	rule := routeTable[route]
	if rule.public {
		return Allowed
	}
	if !s.Valid() {
		return RedirectLogin
	}
	if len(rule.roles) > 0 && !s.HasRole(rule.roles...) {
		return RedirectUnauthorized
	}
	return Allowed
}

// Home returns the landing route for s.
func Home(s model.Session) Route {
	if !s.Valid() {
		return RouteLogin
	}
	return RouteDashboard
}

// Workspace returns the role-specific space for s.
func Workspace(s model.Session) Route {
	if s.HasRole(model.RoleAdmin) {
		return RouteAdmin
	}
	return RouteEngineering
}
