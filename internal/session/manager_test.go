package session_test

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/airwatch/internal/credential"
	"github.com/nhle/airwatch/internal/model"
	"github.com/nhle/airwatch/internal/session"
	"github.com/nhle/airwatch/internal/store"
	"github.com/nhle/airwatch/tests/testutil"
)

type fakeAuth struct {
	resp       model.LoginResponse
	err        error
	logins     int
	registered []model.Registration
}

func (f *fakeAuth) Login(_ context.Context, _ model.Credentials) (model.LoginResponse, error) {
	f.logins++
	return f.resp, f.err
}

func (f *fakeAuth) Register(_ context.Context, reg model.Registration) (string, error) {
	f.registered = append(f.registered, reg)
	return "Utilisateur enregistré avec succès", nil
}

type fixture struct {
	kv    *store.SQLiteStore
	vault *credential.Vault
	auth  *fakeAuth
	mgr   *session.Manager
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		kv:    testutil.NewTestStore(t),
		vault: testutil.NewTestVault(),
		auth:  &fakeAuth{},
	}
	f.mgr = session.NewManager(f.kv, f.vault, f.auth)
	return f
}

func (f *fixture) seed(t *testing.T, fields map[string]string, token string) {
	t.Helper()
	ctx := context.Background()
	for k, v := range fields {
		require.NoError(t, f.kv.SetValue(ctx, k, v))
	}
	if token != "" {
		require.NoError(t, f.vault.SetToken(token))
	}
}

func adminFields() map[string]string {
	return map[string]string{
		store.KeyUserID: "1",
		store.KeyEmail:  "admin@ocp.ma",
		store.KeyRole:   string(model.RoleAdmin),
		store.KeyName:   "Admin User",
	}
}

func TestRestoreCompleteSession(t *testing.T) {
	f := newFixture(t)
	f.seed(t, adminFields(), "abc123")

	require.NoError(t, f.mgr.Restore(context.Background()))

	assert.True(t, f.mgr.Authenticated())
	s := f.mgr.Current()
	assert.Equal(t, "1", s.UserID)
	assert.Equal(t, "Admin User", s.Name())
	assert.Equal(t, "abc123", f.mgr.Token())
	assert.Equal(t, session.Allowed, f.mgr.Authorize(session.RouteAdmin))
}

func TestRestoreMissingField(t *testing.T) {
	for _, missing := range []string{store.KeyUserID, store.KeyEmail, store.KeyRole} {
		t.Run(missing, func(t *testing.T) {
			f := newFixture(t)
			fields := adminFields()
			delete(fields, missing)
			f.seed(t, fields, "abc123")

			require.NoError(t, f.mgr.Restore(context.Background()))
			assert.False(t, f.mgr.Authenticated())
			assert.Equal(t, session.RedirectLogin, f.mgr.Authorize(session.RouteDashboard))
		})
	}

	t.Run("token", func(t *testing.T) {
		f := newFixture(t)
		f.seed(t, adminFields(), "")
		require.NoError(t, f.mgr.Restore(context.Background()))
		assert.False(t, f.mgr.Authenticated())
	})
}

func TestRestoreExpiredJWTPurges(t *testing.T) {
	f := newFixture(t)
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "admin@ocp.ma",
		"exp": time.Now().Add(-time.Hour).Unix(),
	}).SignedString([]byte("test-secret"))
	require.NoError(t, err)
	f.seed(t, adminFields(), token)

	require.NoError(t, f.mgr.Restore(context.Background()))
	assert.False(t, f.mgr.Authenticated())

	_, ok, err := f.kv.GetValue(context.Background(), store.KeyEmail)
	require.NoError(t, err)
	assert.False(t, ok)
	tok, err := f.vault.Token()
	require.NoError(t, err)
	assert.Empty(t, tok)
}

func TestRestoreValidJWT(t *testing.T) {
	f := newFixture(t)
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"exp": time.Now().Add(time.Hour).Unix(),
	}).SignedString([]byte("test-secret"))
	require.NoError(t, err)
	f.seed(t, adminFields(), token)

	require.NoError(t, f.mgr.Restore(context.Background()))
	assert.True(t, f.mgr.Authenticated())
}

func TestLoginPersistsAndNotifies(t *testing.T) {
	f := newFixture(t)
	f.auth.resp = model.LoginResponse{
		Token: "abc123",
		Email: "tech@ocp.ma",
		Role:  model.RoleTechnician,
		Name:  "Tom Tech",
		ID:    "42",
	}

	var seen []model.Session
	f.mgr.OnChange(func(s model.Session) { seen = append(seen, s) })

	s, err := f.mgr.Login(context.Background(), " tech@ocp.ma ", "secret")
	require.NoError(t, err)
	assert.Equal(t, "42", s.UserID)
	require.Len(t, seen, 1)
	assert.Equal(t, model.RoleTechnician, seen[0].Role)

	assert.Equal(t, session.RedirectUnauthorized, f.mgr.Authorize(session.RouteAdmin))
	assert.Equal(t, session.Allowed, f.mgr.Authorize(session.RouteEngineering))

	// A fresh manager over the same storage restores the same session.
	again := session.NewManager(f.kv, f.vault, f.auth)
	require.NoError(t, again.Restore(context.Background()))
	assert.Equal(t, s, again.Current())
}

func TestLoginRejectsIncompleteResponse(t *testing.T) {
	f := newFixture(t)
	f.auth.resp = model.LoginResponse{Token: "abc123", Email: "a@b.com"}

	_, err := f.mgr.Login(context.Background(), "a@b.com", "secret")
	assert.ErrorIs(t, err, session.ErrIncompleteSession)
	assert.False(t, f.mgr.Authenticated())
}

func TestLoginValidatesBeforeRequest(t *testing.T) {
	f := newFixture(t)
	_, err := f.mgr.Login(context.Background(), "not-an-email", "secret")
	require.Error(t, err)
	assert.Zero(t, f.auth.logins)
}

func TestRegisterPasswordMismatch(t *testing.T) {
	f := newFixture(t)
	_, err := f.mgr.Register(context.Background(), model.Registration{
		Email:           "new@ocp.ma",
		Password:        "secret1",
		ConfirmPassword: "secret2",
		FirstName:       "New",
		LastName:        "User",
	})
	assert.ErrorIs(t, err, session.ErrPasswordMismatch)
	assert.Empty(t, f.auth.registered)
}

func TestRegisterSendsRequest(t *testing.T) {
	f := newFixture(t)
	msg, err := f.mgr.Register(context.Background(), model.Registration{
		Email:           "new@ocp.ma",
		Password:        "secret1",
		ConfirmPassword: "secret1",
		FirstName:       "New",
		LastName:        "User",
		Latitude:        32.3,
		Longitude:       -9.2,
	})
	require.NoError(t, err)
	assert.NotEmpty(t, msg)
	require.Len(t, f.auth.registered, 1)
	assert.False(t, f.mgr.Authenticated())
}

func TestLogoutClearsEverything(t *testing.T) {
	f := newFixture(t)
	f.seed(t, adminFields(), "abc123")
	ctx := context.Background()
	require.NoError(t, f.mgr.Restore(ctx))

	require.NoError(t, f.mgr.Logout(ctx))
	assert.False(t, f.mgr.Authenticated())
	assert.Empty(t, f.mgr.Token())

	for _, k := range store.SessionKeys {
		_, ok, err := f.kv.GetValue(ctx, k)
		require.NoError(t, err)
		assert.False(t, ok, k)
	}
}

func TestSetDisplayName(t *testing.T) {
	f := newFixture(t)
	f.seed(t, adminFields(), "abc123")
	ctx := context.Background()
	require.NoError(t, f.mgr.Restore(ctx))

	require.NoError(t, f.mgr.SetDisplayName(ctx, "Ada Admin"))
	assert.Equal(t, "Ada Admin", f.mgr.Current().Name())

	v, _, err := f.kv.GetValue(ctx, store.KeyName)
	require.NoError(t, err)
	assert.Equal(t, "Ada Admin", v)
}

func TestAuthorizeTable(t *testing.T) {
	admin := model.Session{UserID: "1", Email: "a@b", Role: model.RoleAdmin, Token: "t"}
	engineer := model.Session{UserID: "2", Email: "e@b", Role: model.RoleEngineer, Token: "t"}
	anon := model.Session{}

	cases := []struct {
		s     model.Session
		route session.Route
		want  session.Decision
	}{
		{anon, session.RouteLogin, session.Allowed},
		{anon, session.RouteRegister, session.Allowed},
		{anon, session.RouteDashboard, session.RedirectLogin},
		{anon, session.RouteAdmin, session.RedirectLogin},
		{admin, session.RouteAdmin, session.Allowed},
		{admin, session.RouteEngineering, session.RedirectUnauthorized},
		{engineer, session.RouteAdmin, session.RedirectUnauthorized},
		{engineer, session.RouteEngineering, session.Allowed},
		{engineer, session.RouteChat, session.Allowed},
		{engineer, session.Route("nowhere"), session.Allowed},
		{anon, session.Route("nowhere"), session.RedirectLogin},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, session.Authorize(tc.s, tc.route), "%s on %s", tc.s.Role, tc.route)
	}
}

func TestHomeAndWorkspace(t *testing.T) {
	admin := model.Session{UserID: "1", Email: "a@b", Role: model.RoleAdmin, Token: "t"}
	tech := model.Session{UserID: "3", Email: "t@b", Role: model.RoleTechnician, Token: "t"}

	assert.Equal(t, session.RouteLogin, session.Home(model.Session{}))
	assert.Equal(t, session.RouteDashboard, session.Home(tech))
	assert.Equal(t, session.RouteAdmin, session.Workspace(admin))
	assert.Equal(t, session.RouteEngineering, session.Workspace(tech))
	assert.Equal(t, session.Allowed, session.Authorize(tech, session.Workspace(tech)))
}
