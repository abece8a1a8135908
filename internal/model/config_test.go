package model_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/airwatch/internal/model"
)

func TestLoadConfigMissingFileUsesDefaults(t *testing.T) {
	cfg, err := model.LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "http://localhost:8080", cfg.API.BaseURL)
	assert.Equal(t, 30*time.Second, cfg.API.Timeout())
	assert.Equal(t, model.TransportSockJS, cfg.Realtime.Transport)
	assert.Equal(t, model.ReconnectFixed, cfg.Realtime.Reconnect)
	assert.Equal(t, 5*time.Second, cfg.Realtime.ReconnectDelay())
	assert.Equal(t, 5, cfg.Realtime.MaxAttempts)
	assert.Equal(t, "/topic/alert/{userId}", cfg.Realtime.Topics.Alerts)
	assert.Equal(t, time.Minute, cfg.Display.RefreshInterval())
	assert.NotEmpty(t, cfg.Storage.DBPath)
}

func TestLoadConfigFileAndEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
api:
  base_url: https://air.example.com/
  timeout_sec: 10
realtime:
  reconnect: exponential
  max_attempts: 0
display:
  refresh_interval_sec: 15
`), 0o600))
	t.Setenv("AIRWATCH_REALTIME_TRANSPORT", "websocket")

	cfg, err := model.LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "https://air.example.com", cfg.API.BaseURL)
	assert.Equal(t, 10*time.Second, cfg.API.Timeout())
	assert.Equal(t, model.ReconnectExponential, cfg.Realtime.Reconnect)
	assert.Equal(t, 5, cfg.Realtime.MaxAttempts)
	assert.Equal(t, model.TransportWebSocket, cfg.Realtime.Transport)
	assert.Equal(t, 15*time.Second, cfg.Display.RefreshInterval())
}

func TestLoadConfigRejectsBrokenYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("api: [unclosed"), 0o600))

	_, err := model.LoadConfig(path)
	assert.Error(t, err)
}

func TestRealtimeEndpoint(t *testing.T) {
	tests := []struct {
		name    string
		base    string
		url     string
		want    string
		wantErr bool
	}{
		{name: "derived http", base: "http://localhost:8080", want: "ws://localhost:8080/ws"},
		{name: "derived https", base: "https://air.example.com", want: "wss://air.example.com/ws"},
		{name: "explicit", base: "http://localhost:8080", url: "wss://broker.example.com/stomp", want: "wss://broker.example.com/stomp"},
		{name: "bad scheme", base: "http://localhost:8080", url: "ftp://broker", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &model.AppConfig{}
			cfg.API.BaseURL = tt.base
			cfg.Realtime.URL = tt.url

			got, err := cfg.RealtimeEndpoint()
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSaveConfigRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	cfg, err := model.LoadConfig(path)
	require.NoError(t, err)

	cfg.Display.RefreshIntervalSec = 120
	cfg.Realtime.Reconnect = model.ReconnectExponential
	require.NoError(t, model.SaveConfig(path, cfg))

	loaded, err := model.LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 120, loaded.Display.RefreshIntervalSec)
	assert.Equal(t, model.ReconnectExponential, loaded.Realtime.Reconnect)
	assert.Equal(t, cfg.API.BaseURL, loaded.API.BaseURL)
}
