package preferences

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/nhle/airwatch/internal/model"
	"github.com/nhle/airwatch/internal/session"
	"github.com/nhle/airwatch/internal/validate"
)

// alertBindings mirrors model.Preferences with text fields for huh inputs.
type alertBindings struct {
	unit    model.TemperatureUnit
	enabled bool
	aqi     string
	pm25    string
	pm10    string
	no2     string
	o3      string
	co      string
}

func newAlertBindings(p model.Preferences) *alertBindings {
	return &alertBindings{
		unit:    p.TemperatureUnit,
		enabled: p.NotificationsEnabled,
		aqi:     formatLimit(p.ThresholdAQI),
		pm25:    formatLimit(p.ThresholdPM25),
		pm10:    formatLimit(p.ThresholdPM10),
		no2:     formatLimit(p.ThresholdNO2),
		o3:      formatLimit(p.ThresholdO3),
		co:      formatLimit(p.ThresholdCO),
	}
}

func formatLimit(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// validLimit accepts a positive number.
func validLimit(s string) error {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return errors.New("must be a number")
	}
	if v <= 0 {
		return errors.New("must be greater than zero")
	}
	return nil
}

// preferences converts the bindings back, reporting the first bad field.
func (b *alertBindings) preferences() (model.Preferences, error) {
	p := model.Preferences{
		TemperatureUnit:      b.unit,
		NotificationsEnabled: b.enabled,
	}
	fields := []struct {
		name string
		text string
		dst  *float64
	}{
		{"AQI", b.aqi, &p.ThresholdAQI},
		{"PM2.5", b.pm25, &p.ThresholdPM25},
		{"PM10", b.pm10, &p.ThresholdPM10},
		{"NO2", b.no2, &p.ThresholdNO2},
		{"O3", b.o3, &p.ThresholdO3},
		{"CO", b.co, &p.ThresholdCO},
	}
	for _, f := range fields {
		if err := validLimit(f.text); err != nil {
			return model.Preferences{}, fmt.Errorf("%s threshold %w", f.name, err)
		}
		*f.dst, _ = strconv.ParseFloat(strings.TrimSpace(f.text), 64)
	}
	return p, nil
}

type profileBindings struct {
	firstName string
	lastName  string
}

func (b *profileBindings) update() (model.ProfileUpdate, error) {
	u := model.ProfileUpdate{
		FirstName: strings.TrimSpace(b.firstName),
		LastName:  strings.TrimSpace(b.lastName),
	}
	if u.FirstName == "" && u.LastName == "" {
		return u, errors.New("enter a first or last name")
	}
	return u, validate.Struct(u)
}

type passwordBindings struct {
	current string
	next    string
	confirm string
}

// change checks the confirmation before anything is sent.
func (b *passwordBindings) change() (model.PasswordChange, error) {
	c := model.PasswordChange{
		CurrentPassword: b.current,
		NewPassword:     b.next,
		ConfirmPassword: b.confirm,
	}
	if c.NewPassword != c.ConfirmPassword {
		return c, session.ErrPasswordMismatch
	}
	return c, validate.Struct(c)
}

// localBindings edits the settings stored in the config file.
type localBindings struct {
	refreshSec string
	reconnect  string
	transport  string
}

func newLocalBindings(cfg *model.AppConfig) *localBindings {
	return &localBindings{
		refreshSec: strconv.Itoa(cfg.Display.RefreshIntervalSec),
		reconnect:  cfg.Realtime.Reconnect,
		transport:  cfg.Realtime.Transport,
	}
}

func validSeconds(s string) error {
	v, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || v < 5 {
		return errors.New("must be a whole number of seconds, at least 5")
	}
	return nil
}

func (b *localBindings) apply(cfg *model.AppConfig) error {
	if err := validSeconds(b.refreshSec); err != nil {
		return fmt.Errorf("refresh interval %w", err)
	}
	cfg.Display.RefreshIntervalSec, _ = strconv.Atoi(strings.TrimSpace(b.refreshSec))
	cfg.Realtime.Reconnect = b.reconnect
	cfg.Realtime.Transport = b.transport
	return nil
}
