package api

import (
	"context"
	"net/url"
	"time"

	"github.com/nhle/airwatch/internal/model"
)

// backendDateTime is the zone-less ISO layout the backend expects in
// query parameters.
const backendDateTime = "2006-01-02T15:04:05"

// CurrentWeather fetches the live observation at the user's location.
func (c *Client) CurrentWeather(ctx context.Context) (model.CurrentWeather, error) {
	var w model.CurrentWeather
	if err := c.Get(ctx, "/meteo/actuelle", nil, &w); err != nil {
		return model.CurrentWeather{}, err
	}
	return w, nil
}

// Forecast fetches the live five-day forecast.
func (c *Client) Forecast(ctx context.Context) (model.Forecast, error) {
	var f model.Forecast
	if err := c.Get(ctx, "/meteo/prevision", nil, &f); err != nil {
		return model.Forecast{}, err
	}
	return f, nil
}

// CompareWeather compares live conditions with the first forecast slot.
func (c *Client) CompareWeather(ctx context.Context) (model.WeatherComparison, error) {
	var cmp model.WeatherComparison
	if err := c.Get(ctx, "/meteo/comparaison", nil, &cmp); err != nil {
		return model.WeatherComparison{}, err
	}
	return cmp, nil
}

// StoredCurrentWeather returns the latest observation saved by the backend.
func (c *Client) StoredCurrentWeather(ctx context.Context) (model.WeatherRecord, error) {
	var r model.WeatherRecord
	if err := c.Get(ctx, "/meteo/actuelle/db", nil, &r); err != nil {
		return model.WeatherRecord{}, err
	}
	return r, nil
}

// StoredForecasts returns the forecasts saved by the backend.
func (c *Client) StoredForecasts(ctx context.Context) ([]model.WeatherRecord, error) {
	var list []model.WeatherRecord
	if err := c.Get(ctx, "/meteo/previsions/db", nil, &list); err != nil {
		return nil, err
	}
	return list, nil
}

// CompareStoredWeather is CompareWeather over the saved records.
func (c *Client) CompareStoredWeather(ctx context.Context) (model.WeatherComparison, error) {
	var cmp model.WeatherComparison
	if err := c.Get(ctx, "/meteo/comparaison/db", nil, &cmp); err != nil {
		return model.WeatherComparison{}, err
	}
	return cmp, nil
}

// WeatherHistory returns the saved records between from and to.
func (c *Client) WeatherHistory(ctx context.Context, from, to time.Time) ([]model.WeatherRecord, error) {
	q := url.Values{}
	q.Set("dateDebut", from.Format(backendDateTime))
	q.Set("dateFin", to.Format(backendDateTime))

	var list []model.WeatherRecord
	if err := c.Get(ctx, "/meteo/historique", q, &list); err != nil {
		return nil, err
	}
	return list, nil
}

// CleanupWeather asks the backend to purge old weather records.
func (c *Client) CleanupWeather(ctx context.Context) (string, error) {
	var resp struct {
		Message string `json:"message"`
	}
	if err := c.Delete(ctx, "/meteo/nettoyer", &resp); err != nil {
		return "", err
	}
	return resp.Message, nil
}
