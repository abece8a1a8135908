package api

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/airwatch/internal/model"
)

func newTestClient(t *testing.T, handler http.HandlerFunc, token string) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(srv.URL, 5*time.Second, TokenFunc(func() string { return token }))
}

func TestLoginSendsCredentialsWithoutToken(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/auth/login", r.URL.Path)
		assert.Empty(t, r.Header.Get("Authorization"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var creds model.Credentials
		require.NoError(t, json.NewDecoder(r.Body).Decode(&creds))
		assert.Equal(t, "a@b.com", creds.Email)

		w.Write([]byte(`{"token":"abc123","email":"a@b.com","role":"ROLE_ADMIN","name":"Ada Lovelace","id":7}`))
	}, "")

	resp, err := c.Login(context.Background(), model.Credentials{Email: "a@b.com", Password: "secret"})
	require.NoError(t, err)

	s := resp.Session()
	assert.Equal(t, "7", s.UserID)
	assert.Equal(t, "abc123", s.Token)
	assert.Equal(t, model.RoleAdmin, s.Role)
	assert.True(t, s.Valid())
}

func TestBearerTokenAttached(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		w.Write([]byte(`{"uniteTemperature":"FAHRENHEIT","notificationsActives":false,"seuilAqi":80}`))
	}, "tok")

	prefs, err := c.Preferences(context.Background())
	require.NoError(t, err)
	assert.Equal(t, model.Fahrenheit, prefs.TemperatureUnit)
	assert.False(t, prefs.NotificationsEnabled)
	assert.Equal(t, 80.0, prefs.ThresholdAQI)
	// Fields the backend omitted keep their defaults.
	assert.Equal(t, 25.0, prefs.ThresholdPM25)
}

func TestErrorTaxonomy(t *testing.T) {
	status := http.StatusUnauthorized
	body := ""
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(status)
		w.Write([]byte(body))
	}, "tok")
	ctx := context.Background()

	_, err := c.Me(ctx)
	assert.True(t, IsAuthError(err))

	status = http.StatusForbidden
	_, err = c.Employees(ctx)
	assert.True(t, IsForbidden(err))
	assert.False(t, IsAuthError(err))

	status, body = http.StatusBadRequest, "Mot de passe actuel incorrect !"
	_, err = c.ChangePassword(ctx, model.PasswordChange{CurrentPassword: "x", NewPassword: "yyyyyy"})
	var statusErr *StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, 400, statusErr.StatusCode)
	assert.Equal(t, "Mot de passe actuel incorrect !", UserMessage(err))

	status, body = http.StatusNotFound, `{"error":"Not Found","status":404}`
	_, err = c.StoredCurrentWeather(ctx)
	assert.True(t, IsNotFound(err))
	assert.Equal(t, "Not Found", UserMessage(err))
}

func TestRetriesOnTooManyRequests(t *testing.T) {
	calls := 0
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			w.Header().Set("Retry-After", "0")
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.Write([]byte(`{"pm25":12.5,"pm10":20,"no2":5,"o3":60,"co":0.4,"aqi":57}`))
	}, "tok")

	aq, err := c.LiveAirQuality(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
	assert.Equal(t, 57.0, aq.AQI)
	assert.Equal(t, model.AQIModerate, aq.Category())
}

func TestSendMessageUsesPlainText(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/messages/group/3", r.URL.Path)
		assert.Contains(t, r.Header.Get("Content-Type"), "text/plain")
		data, _ := io.ReadAll(r.Body)
		assert.Equal(t, "hello team", string(data))
		w.Write([]byte(`{"id":11,"content":"hello team","sender":{"id":7,"firstName":"Ada"},"group":{"id":3,"name":"Ops"},"timestamp":"2024-05-01T10:15:30.123"}`))
	}, "tok")

	msg, err := c.SendMessage(context.Background(), model.ChatPeer{ID: 3, IsGroup: true}, "hello team")
	require.NoError(t, err)
	assert.Equal(t, int64(11), msg.ID)
	assert.Equal(t, "Ada", msg.SenderName())
	assert.Equal(t, 2024, msg.Timestamp.Year())
	assert.True(t, msg.Involves(model.ChatPeer{ID: 3, IsGroup: true}))
}

func TestUnreadCountQuery(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/chatt/messages/private/unread-count", r.URL.Path)
		assert.Equal(t, "9", r.URL.Query().Get("userId"))
		w.Write([]byte(`4`))
	}, "tok")

	n, err := c.UnreadCount(context.Background(), model.ChatPeer{ID: 9})
	require.NoError(t, err)
	assert.Equal(t, int64(4), n)
}

func TestNotificationsNormalized(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[{"id":1,"type":"co","message":"CO high","timestamp":"2024-05-01T10:15:30"},
			{"id":2,"type":"capteur","message":"sensor","timestamp":"2024-05-01T09:00:00"}]`))
	}, "tok")

	list, err := c.Notifications(context.Background())
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, int64(1), list[0].RemoteID)
	assert.Equal(t, model.PriorityCritical, list[0].Priority)
	assert.Equal(t, model.PriorityLow, list[1].Priority)
	assert.Equal(t, model.DefaultLocation, list[0].Location)
	assert.Equal(t, 10, list[0].Timestamp.Hour())
}

func TestWeatherHistoryParams(t *testing.T) {
	from := time.Date(2024, 5, 1, 0, 0, 0, 0, time.Local)
	to := from.Add(48 * time.Hour)
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "2024-05-01T00:00:00", r.URL.Query().Get("dateDebut"))
		assert.Equal(t, "2024-05-03T00:00:00", r.URL.Query().Get("dateFin"))
		w.Write([]byte(`[{"id":1,"temperature":21.5,"ville":"Safi","typeMeteo":"ACTUELLE","dateCreation":"2024-05-01T12:00:00"}]`))
	}, "tok")

	list, err := c.WeatherHistory(context.Background(), from, to)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "Safi", list[0].City)
	assert.Equal(t, model.WeatherCurrent, list[0].Kind)
	assert.True(t, list[0].ForecastAt.IsZero())
}

func TestCleanupWeatherMessage(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodDelete, r.Method)
		w.Write([]byte(`{"message":"done"}`))
	}, "tok")

	msg, err := c.CleanupWeather(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "done", msg)
}

func TestCreateEmployeeNestsRole(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, map[string]any{"name": "ROLE_TECHNICIEN"}, body["role"])
		assert.Equal(t, "t@x.com", body["email"])
		w.Write([]byte(`{"id":5,"email":"t@x.com","firstName":"Tom","lastName":"Tech","role":{"name":"ROLE_TECHNICIEN"}}`))
	}, "tok")

	e, err := c.CreateEmployee(context.Background(), model.EmployeeInput{
		Email: "t@x.com", FirstName: "Tom", LastName: "Tech", Password: "secret1", Role: model.RoleTechnician,
	})
	require.NoError(t, err)
	assert.Equal(t, "Tom Tech", e.FullName())
	assert.Equal(t, model.RoleTechnician, e.Role.Name)
}

func TestContextCancelled(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{}`))
	}, "tok")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := c.CurrentWeather(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRetryAfterDuration(t *testing.T) {
	b := newRetryBackOff()
	missing := &http.Response{Header: http.Header{}}

	assert.Equal(t, time.Second, retryAfterDuration(missing, b))
	assert.Equal(t, 2*time.Second, retryAfterDuration(missing, b))

	explicit := &http.Response{Header: http.Header{"Retry-After": []string{"7"}}}
	assert.Equal(t, 7*time.Second, retryAfterDuration(explicit, b))

	for range 10 {
		retryAfterDuration(missing, b)
	}
	assert.Equal(t, 30*time.Second, retryAfterDuration(missing, b))
}
