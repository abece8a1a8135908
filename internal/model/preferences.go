package model

// Preferences are the per-user alert settings stored by the backend.
type Preferences struct {
	TemperatureUnit      TemperatureUnit `json:"uniteTemperature"`
	NotificationsEnabled bool            `json:"notificationsActives"`
	ThresholdAQI         float64         `json:"seuilAqi"`
	ThresholdPM10        float64         `json:"seuilPm10"`
	ThresholdPM25        float64         `json:"seuilPm25"`
	ThresholdNO2         float64         `json:"seuilNo2"`
	ThresholdO3          float64         `json:"seuilO3"`
	ThresholdCO          float64         `json:"seuilCo"`
}

// DefaultPreferences mirrors the backend's initial values (WHO / EU limits).
func DefaultPreferences() Preferences {
	return Preferences{
		TemperatureUnit:      Celsius,
		NotificationsEnabled: true,
		ThresholdAQI:         100,
		ThresholdPM10:        50,
		ThresholdPM25:        25,
		ThresholdNO2:         200,
		ThresholdO3:          180,
		ThresholdCO:          10,
	}
}

// ProfileUpdate is the body of PUT /user/update-info. Empty fields are
// left unchanged by the backend; a new password requires the current one.
type ProfileUpdate struct {
	FirstName       string `json:"firstName,omitempty"`
	LastName        string `json:"lastName,omitempty"`
	CurrentPassword string `json:"currentPassword,omitempty"`
	NewPassword     string `json:"newPassword,omitempty" validate:"omitempty,min=6"`
	ConfirmPassword string `json:"-" validate:"eqfield=NewPassword"`
}

// PasswordChange is the body of PUT /user/password.
type PasswordChange struct {
	CurrentPassword string `json:"currentPassword" validate:"required"`
	NewPassword     string `json:"newPassword" validate:"required,min=6"`
	ConfirmPassword string `json:"-" validate:"eqfield=NewPassword"`
}
