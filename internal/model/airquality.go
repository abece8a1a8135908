package model

// AirQuality is a pollutant reading. PM2.5, PM10, NO2 and O3 are in µg/m³,
// CO in ppm.
type AirQuality struct {
	ID        int64     `json:"id,omitempty"`
	PM25      float64   `json:"pm25"`
	PM10      float64   `json:"pm10"`
	NO2       float64   `json:"no2"`
	O3        float64   `json:"o3"`
	CO        float64   `json:"co"`
	AQI       float64   `json:"aqi"`
	Timestamp LocalTime `json:"timestamp"`
	Latitude  float64   `json:"latitude,omitempty"`
	Longitude float64   `json:"longitude,omitempty"`
}

// AQICategory is the US EPA band an AQI value falls into.
type AQICategory int

const (
	AQIGood AQICategory = iota
	AQIModerate
	AQISensitive
	AQIUnhealthy
	AQIVeryUnhealthy
	AQIHazardous
)

// Category returns the band for the reading's AQI.
func (a AirQuality) Category() AQICategory {
	return CategoryForAQI(a.AQI)
}

// CategoryForAQI maps an AQI value to its band.
func CategoryForAQI(aqi float64) AQICategory {
	switch {
	case aqi <= 50:
		return AQIGood
	case aqi <= 100:
		return AQIModerate
	case aqi <= 150:
		return AQISensitive
	case aqi <= 200:
		return AQIUnhealthy
	case aqi <= 300:
		return AQIVeryUnhealthy
	default:
		return AQIHazardous
	}
}

// String returns the band's label.
func (c AQICategory) String() string {
	switch c {
	case AQIGood:
		return "Good"
	case AQIModerate:
		return "Moderate"
	case AQISensitive:
		return "Unhealthy for sensitive groups"
	case AQIUnhealthy:
		return "Unhealthy"
	case AQIVeryUnhealthy:
		return "Very unhealthy"
	default:
		return "Hazardous"
	}
}

// Exceeded lists the pollutants in the reading that are above the user's
// thresholds, as alert types.
func (a AirQuality) Exceeded(p Preferences) []NotificationType {
	var out []NotificationType
	if a.AQI > p.ThresholdAQI {
		out = append(out, NotificationPollution)
	}
	if a.PM25 > p.ThresholdPM25 {
		out = append(out, NotificationPM25)
	}
	if a.PM10 > p.ThresholdPM10 {
		out = append(out, NotificationPM10)
	}
	if a.NO2 > p.ThresholdNO2 {
		out = append(out, NotificationNO2)
	}
	if a.O3 > p.ThresholdO3 {
		out = append(out, NotificationO3)
	}
	if a.CO > p.ThresholdCO {
		out = append(out, NotificationCO)
	}
	return out
}
