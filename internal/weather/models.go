package weather

import (
	"time"
)

// Unit is the unit system requested from the provider.
type Unit string

const (
	UnitMetric   Unit = "metric"
	UnitImperial Unit = "imperial"
)

// Valid reports whether u is one of the supported unit systems.
func (u Unit) Valid() bool {
	return u == UnitMetric || u == UnitImperial
}

// Toggle returns the other unit system.
func (u Unit) Toggle() Unit {
	if u == UnitImperial {
		return UnitMetric
	}
	return UnitImperial
}

// TemperatureLabel is the suffix shown next to a temperature value.
func (u Unit) TemperatureLabel() string {
	if u == UnitImperial {
		return "°F"
	}
	return "°C"
}

// WindLabel is the suffix shown next to a wind speed value.
func (u Unit) WindLabel() string {
	if u == UnitImperial {
		return "mph"
	}
	return "m/s"
}

// Location is a resolved place. DisplayName and CountryCode are empty for
// raw geolocation fixes.
type Location struct {
	Latitude    float64 `json:"latitude"`
	Longitude   float64 `json:"longitude"`
	DisplayName string  `json:"displayName,omitempty"`
	CountryCode string  `json:"countryCode,omitempty"`
}

// Key returns a canonical string key for logging and metrics labels.
func (l Location) Key() string {
	if l.DisplayName != "" {
		return l.DisplayName + ":" + l.CountryCode
	}
	return "coords"
}

// Snapshot is a flat read of one current-conditions response.
// Temperatures are kept unrounded; rounding happens at display time.
type Snapshot struct {
	Temperature          float64 `json:"temperature"`
	FeelsLike            float64 `json:"feelsLike"`
	Humidity             float64 `json:"humidity"`
	WindSpeed            float64 `json:"windSpeed"`
	Pressure             float64 `json:"pressure"`
	ConditionMain        string  `json:"conditionMain"`
	ConditionDescription string  `json:"conditionDescription"`
	IconID               string  `json:"iconId"`
	SunriseUnix          int64   `json:"sunriseUnix"`
	SunsetUnix           int64   `json:"sunsetUnix"`
	TimezoneOffset       int     `json:"timezoneOffsetSeconds"`
	ObservedAtUnix       int64   `json:"observedAtUnix"`
	Units                Unit    `json:"units"`

	// Provider naming of the observation point.
	PlaceName   string `json:"placeName,omitempty"`
	CountryCode string `json:"countryCode,omitempty"`
}

// IsDay reports whether t falls strictly between sunrise and sunset.
func (s Snapshot) IsDay(t time.Time) bool {
	u := t.Unix()
	return u > s.SunriseUnix && u < s.SunsetUnix
}

// ObservedAt returns the observation time in UTC.
func (s Snapshot) ObservedAt() time.Time {
	return time.Unix(s.ObservedAtUnix, 0).UTC()
}

// HourlyEntry is one slot of the hourly strip.
type HourlyEntry struct {
	TimeUnix          int64   `json:"timeUnix"`
	Temperature       float64 `json:"temperature"`
	PrecipProbability float64 `json:"precipProbability"`
	IconID            string  `json:"iconId"`
}

// DailyEntry is one day of the daily strip.
type DailyEntry struct {
	TimeUnix          int64   `json:"timeUnix"`
	Min               float64 `json:"min"`
	Max               float64 `json:"max"`
	PrecipProbability float64 `json:"precipProbability"`
	IconID            string  `json:"iconId"`
}

// Forecast holds the hourly and daily strips of a forecast response.
// Entries are ordered by time ascending.
type Forecast struct {
	TimezoneOffset int           `json:"timezoneOffsetSeconds"`
	Hourly         []HourlyEntry `json:"hourly"`
	Daily          []DailyEntry  `json:"daily"`
}
