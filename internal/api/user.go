package api

import (
	"context"

	"github.com/nhle/airwatch/internal/model"
)

// Me returns the signed-in user's profile.
func (c *Client) Me(ctx context.Context) (model.Employee, error) {
	var me model.Employee
	if err := c.Get(ctx, "/user/me", nil, &me); err != nil {
		return model.Employee{}, err
	}
	return me, nil
}

// Preferences returns the user's alert settings.
func (c *Client) Preferences(ctx context.Context) (model.Preferences, error) {
	prefs := model.DefaultPreferences()
	if err := c.Get(ctx, "/user/preferences", nil, &prefs); err != nil {
		return model.Preferences{}, err
	}
	return prefs, nil
}

// UpdatePreferences saves the user's alert settings.
func (c *Client) UpdatePreferences(ctx context.Context, prefs model.Preferences) (string, error) {
	var msg string
	err := c.Put(ctx, "/user/preferences", prefs, &msg)
	return msg, err
}

// UpdateProfile changes the user's name and, optionally, password.
func (c *Client) UpdateProfile(ctx context.Context, update model.ProfileUpdate) (string, error) {
	var msg string
	err := c.Put(ctx, "/user/update-info", update, &msg)
	return msg, err
}

// ChangePassword replaces the user's password.
func (c *Client) ChangePassword(ctx context.Context, change model.PasswordChange) (string, error) {
	var msg string
	err := c.Put(ctx, "/user/password", change, &msg)
	return msg, err
}

// UpdateLocation moves the user's monitoring location.
func (c *Client) UpdateLocation(ctx context.Context, lat, lon float64) error {
	body := map[string]float64{"latitude": lat, "longitude": lon}
	return c.Put(ctx, "/user/update-location", body, nil)
}
