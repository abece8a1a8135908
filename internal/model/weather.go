package model

import "time"

// WeatherCondition is one entry of the provider's "weather" array.
type WeatherCondition struct {
	Main        string `json:"main"`
	Description string `json:"description"`
	Icon        string `json:"icon"`
}

// WeatherMain holds the provider's core measurements.
type WeatherMain struct {
	Temp      float64 `json:"temp"`
	FeelsLike float64 `json:"feels_like"`
	TempMin   float64 `json:"temp_min"`
	TempMax   float64 `json:"temp_max"`
	Pressure  float64 `json:"pressure"`
	Humidity  int     `json:"humidity"`
}

// Wind holds speed (m/s) and direction (degrees).
type Wind struct {
	Speed float64 `json:"speed"`
	Deg   int     `json:"deg"`
}

// Coord is a latitude/longitude pair.
type Coord struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// CurrentWeather is the live observation returned by GET /meteo/actuelle.
// The backend forwards the weather provider's payload unchanged.
type CurrentWeather struct {
	Name       string             `json:"name"`
	Coord      Coord              `json:"coord"`
	Main       WeatherMain        `json:"main"`
	Conditions []WeatherCondition `json:"weather"`
	Wind       Wind               `json:"wind"`
	Visibility int                `json:"visibility"`
	Dt         int64              `json:"dt"`
	Sys        struct {
		Country string `json:"country"`
		Sunrise int64  `json:"sunrise"`
		Sunset  int64  `json:"sunset"`
	} `json:"sys"`
}

// Description returns the first condition's description, if any.
func (w CurrentWeather) Description() string {
	if len(w.Conditions) == 0 {
		return ""
	}
	return w.Conditions[0].Description
}

// ObservedAt returns the observation time.
func (w CurrentWeather) ObservedAt() time.Time {
	if w.Dt == 0 {
		return time.Time{}
	}
	return time.Unix(w.Dt, 0)
}

// ForecastEntry is one three-hourly forecast slot.
type ForecastEntry struct {
	Dt         int64              `json:"dt"`
	DtText     string             `json:"dt_txt"`
	Main       WeatherMain        `json:"main"`
	Conditions []WeatherCondition `json:"weather"`
	Wind       Wind               `json:"wind"`
	Pop        float64            `json:"pop"`
}

// At returns the forecast slot's time.
func (f ForecastEntry) At() time.Time {
	return time.Unix(f.Dt, 0)
}

// Description returns the first condition's description, if any.
func (f ForecastEntry) Description() string {
	if len(f.Conditions) == 0 {
		return ""
	}
	return f.Conditions[0].Description
}

// Forecast is the five-day forecast returned by GET /meteo/prevision.
type Forecast struct {
	City struct {
		Name    string `json:"name"`
		Country string `json:"country"`
	} `json:"city"`
	List []ForecastEntry `json:"list"`
}

// Daily collapses the three-hourly slots to one entry per calendar day,
// keeping the slot closest to midday.
func (f Forecast) Daily() []ForecastEntry {
	var days []ForecastEntry
	index := make(map[string]int)
	for _, e := range f.List {
		at := e.At()
		key := at.Format("2006-01-02")
		i, ok := index[key]
		if !ok {
			index[key] = len(days)
			days = append(days, e)
			continue
		}
		if middayDistance(at) < middayDistance(days[i].At()) {
			days[i] = e
		}
	}
	return days
}

func middayDistance(t time.Time) int {
	d := t.Hour() - 12
	if d < 0 {
		return -d
	}
	return d
}

// WeatherKind distinguishes stored observations from stored forecasts.
type WeatherKind string

const (
	WeatherCurrent  WeatherKind = "ACTUELLE"
	WeatherForecast WeatherKind = "PREVISION"
)

// WeatherRecord is a weather row persisted by the backend, returned by the
// /meteo/*/db and /meteo/historique endpoints.
type WeatherRecord struct {
	ID            int64       `json:"id"`
	Temperature   float64     `json:"temperature"`
	FeelsLike     float64     `json:"temperatureRessentie"`
	Humidity      int         `json:"humidite"`
	Pressure      float64     `json:"pression"`
	Description   string      `json:"description"`
	Icon          string      `json:"icone"`
	WindSpeed     float64     `json:"vitesseVent"`
	WindDirection int         `json:"directionVent"`
	Latitude      float64     `json:"latitude"`
	Longitude     float64     `json:"longitude"`
	City          string      `json:"ville"`
	Country       string      `json:"pays"`
	CreatedAt     LocalTime   `json:"dateCreation"`
	Kind          WeatherKind `json:"typeMeteo"`
	ForecastAt    LocalTime   `json:"datePrevision"`
}

// WeatherComparison compares the live observation with the first forecast.
type WeatherComparison struct {
	Current      float64   `json:"temp_actuelle"`
	Forecast     float64   `json:"temp_prev"`
	Difference   float64   `json:"difference"`
	City         string    `json:"ville"`
	CurrentDate  LocalTime `json:"date_actuelle"`
	ForecastDate LocalTime `json:"date_prevision"`
}

// TemperatureUnit is the user's preferred unit.
type TemperatureUnit string

const (
	Celsius    TemperatureUnit = "CELSIUS"
	Fahrenheit TemperatureUnit = "FAHRENHEIT"
)

// Convert converts a Celsius value into the unit.
func (u TemperatureUnit) Convert(celsius float64) float64 {
	if u == Fahrenheit {
		return celsius*9/5 + 32
	}
	return celsius
}

// Symbol returns the unit's display suffix.
func (u TemperatureUnit) Symbol() string {
	if u == Fahrenheit {
		return "°F"
	}
	return "°C"
}

// Site is a measurement station the user can pick as their location.
type Site struct {
	Name      string
	Latitude  float64
	Longitude float64
}

// Sites lists the stations offered by the location picker.
var Sites = []Site{
	{Name: "Khouribga", Latitude: 32.8822, Longitude: -6.9063},
	{Name: "Youssoufia", Latitude: 32.2504, Longitude: -8.5298},
	{Name: "Safi", Latitude: 32.2979, Longitude: -9.2360},
	{Name: "Jorf Lasfar", Latitude: 33.1462, Longitude: -8.6169},
}
