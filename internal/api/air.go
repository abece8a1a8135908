package api

import (
	"context"

	"github.com/nhle/airwatch/internal/model"
)

// LiveAirQuality fetches a fresh reading. The backend also stores it.
func (c *Client) LiveAirQuality(ctx context.Context) (model.AirQuality, error) {
	var aq model.AirQuality
	if err := c.Get(ctx, "/api/air/live", nil, &aq); err != nil {
		return model.AirQuality{}, err
	}
	return aq, nil
}

// AirQualityHistory returns the readings stored for the user.
func (c *Client) AirQualityHistory(ctx context.Context) ([]model.AirQuality, error) {
	var list []model.AirQuality
	if err := c.Get(ctx, "/api/air/history", nil, &list); err != nil {
		return nil, err
	}
	return list, nil
}
