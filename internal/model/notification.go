package model

import (
	"encoding/json"
	"time"
)

// NotificationType identifies what triggered an alert.
type NotificationType string

const (
	NotificationPollution NotificationType = "pollution"
	NotificationPM25      NotificationType = "pm25"
	NotificationPM10      NotificationType = "pm10"
	NotificationNO2       NotificationType = "no2"
	NotificationO3        NotificationType = "o3"
	NotificationCO        NotificationType = "co"
	NotificationSensor    NotificationType = "capteur"
	NotificationSystem    NotificationType = "systeme"
)

// NotificationTypes lists the known alert types in display order.
var NotificationTypes = []NotificationType{
	NotificationPollution,
	NotificationPM25,
	NotificationPM10,
	NotificationNO2,
	NotificationO3,
	NotificationCO,
	NotificationSensor,
	NotificationSystem,
}

// Label returns the human-readable name of the alert type.
func (t NotificationType) Label() string {
	switch t {
	case NotificationPollution:
		return "General pollution"
	case NotificationPM25:
		return "Particles PM2.5"
	case NotificationPM10:
		return "Particles PM10"
	case NotificationNO2:
		return "Nitrogen dioxide"
	case NotificationO3:
		return "Ozone"
	case NotificationCO:
		return "Carbon monoxide"
	case NotificationSensor:
		return "Sensor"
	case NotificationSystem:
		return "System"
	default:
		return string(t)
	}
}

// Priority ranks how urgent an alert is.
type Priority string

const (
	PriorityLow      Priority = "low"
	PriorityMedium   Priority = "medium"
	PriorityHigh     Priority = "high"
	PriorityCritical Priority = "critical"
)

// Priorities lists priorities from least to most urgent.
var Priorities = []Priority{PriorityLow, PriorityMedium, PriorityHigh, PriorityCritical}

// PriorityForType derives a priority when the backend does not send one.
func PriorityForType(t NotificationType) Priority {
	switch t {
	case NotificationSystem, NotificationCO:
		return PriorityCritical
	case NotificationPollution, NotificationNO2:
		return PriorityHigh
	case NotificationPM25, NotificationPM10, NotificationO3:
		return PriorityMedium
	case NotificationSensor:
		return PriorityLow
	default:
		return PriorityMedium
	}
}

// DefaultLocation is shown for alerts that carry no station name.
const DefaultLocation = "Main station"

// Notification is an alert received over the real-time channel or loaded
// from the backend's notification history.
type Notification struct {
	// ID is the local identifier of the record.
	ID string `json:"-" db:"id"`

	// RemoteID is the backend's identifier, zero for alerts that only
	// arrived over the real-time channel.
	RemoteID int64 `json:"id,omitempty" db:"remote_id"`

	// Type is the alert category.
	Type NotificationType `json:"type" db:"type"`

	// Message is the human-readable alert text.
	Message string `json:"message" db:"message"`

	// Timestamp is when the backend raised the alert.
	Timestamp time.Time `json:"timestamp" db:"timestamp"`

	// Read indicates whether the user has seen this alert.
	Read bool `json:"isRead,omitempty" db:"read"`

	// Priority is sent by the backend or derived from Type.
	Priority Priority `json:"priority,omitempty" db:"priority"`

	Location string  `json:"location,omitempty" db:"location"`
	Value    float64 `json:"value,omitempty" db:"value"`
	Unit     string  `json:"unit,omitempty" db:"unit"`
}

// Normalize fills in the fields the backend may omit.
func (n Notification) Normalize() Notification {
	if n.Priority == "" {
		n.Priority = PriorityForType(n.Type)
	}
	if n.Location == "" {
		n.Location = DefaultLocation
	}
	return n
}

// UnmarshalJSON accepts the backend's zone-less timestamps as well as RFC 3339.
func (n *Notification) UnmarshalJSON(data []byte) error {
	type alias Notification
	aux := struct {
		*alias
		Timestamp LocalTime `json:"timestamp"`
	}{alias: (*alias)(n)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	n.Timestamp = aux.Timestamp.Time
	return nil
}
