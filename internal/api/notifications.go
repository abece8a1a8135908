package api

import (
	"context"

	"github.com/nhle/airwatch/internal/model"
)

// Notifications returns the alert history the backend recorded for the user.
func (c *Client) Notifications(ctx context.Context) ([]model.Notification, error) {
	var list []model.Notification
	if err := c.Get(ctx, "/api/notifications", nil, &list); err != nil {
		return nil, err
	}
	for i := range list {
		list[i] = list[i].Normalize()
	}
	return list, nil
}
