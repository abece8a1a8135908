package preferences

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/airwatch/internal/model"
	"github.com/nhle/airwatch/internal/session"
)

func TestAlertBindingsRoundTrip(t *testing.T) {
	prefs := model.DefaultPreferences()
	prefs.TemperatureUnit = model.Fahrenheit
	prefs.ThresholdCO = 9.5

	b := newAlertBindings(prefs)
	assert.Equal(t, "9.5", b.co)
	assert.Equal(t, "100", b.aqi)

	got, err := b.preferences()
	require.NoError(t, err)
	assert.Equal(t, prefs, got)
}

func TestAlertBindingsRejectBadLimit(t *testing.T) {
	tests := []struct {
		name  string
		value string
	}{
		{"empty", ""},
		{"text", "high"},
		{"zero", "0"},
		{"negative", "-4"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := newAlertBindings(model.DefaultPreferences())
			b.pm10 = tt.value

			_, err := b.preferences()
			require.Error(t, err)
			assert.Contains(t, err.Error(), "PM10 threshold")
		})
	}
}

func TestAlertBindingsTrimSpaces(t *testing.T) {
	b := newAlertBindings(model.DefaultPreferences())
	b.aqi = " 80 "

	got, err := b.preferences()
	require.NoError(t, err)
	assert.InDelta(t, 80.0, got.ThresholdAQI, 0.001)
}

func TestProfileBindings(t *testing.T) {
	b := &profileBindings{firstName: "  ", lastName: ""}
	_, err := b.update()
	assert.Error(t, err)

	b = &profileBindings{firstName: " Salma ", lastName: "Idrissi"}
	u, err := b.update()
	require.NoError(t, err)
	assert.Equal(t, "Salma", u.FirstName)
	assert.Equal(t, "Idrissi", u.LastName)
}

func TestPasswordBindings(t *testing.T) {
	b := &passwordBindings{current: "old-secret", next: "new-secret", confirm: "new-secrte"}
	_, err := b.change()
	assert.ErrorIs(t, err, session.ErrPasswordMismatch)

	b.confirm = "new-secret"
	c, err := b.change()
	require.NoError(t, err)
	assert.Equal(t, "new-secret", c.NewPassword)

	short := &passwordBindings{current: "old-secret", next: "abc", confirm: "abc"}
	_, err = short.change()
	assert.Error(t, err)

	missing := &passwordBindings{next: "new-secret", confirm: "new-secret"}
	_, err = missing.change()
	assert.Error(t, err)
}

func TestLocalBindingsApply(t *testing.T) {
	cfg := &model.AppConfig{}
	cfg.Display.RefreshIntervalSec = 60
	cfg.Realtime.Reconnect = model.ReconnectFixed
	cfg.Realtime.Transport = model.TransportSockJS

	b := newLocalBindings(cfg)
	assert.Equal(t, "60", b.refreshSec)

	b.refreshSec = "3"
	assert.Error(t, b.apply(cfg))
	assert.Equal(t, 60, cfg.Display.RefreshIntervalSec)

	b.refreshSec = "30"
	b.reconnect = model.ReconnectExponential
	b.transport = model.TransportWebSocket
	require.NoError(t, b.apply(cfg))
	assert.Equal(t, 30, cfg.Display.RefreshIntervalSec)
	assert.Equal(t, model.ReconnectExponential, cfg.Realtime.Reconnect)
	assert.Equal(t, model.TransportWebSocket, cfg.Realtime.Transport)
}
