package view

import (
	"fmt"
	"html/template"
	"math"
	"time"

	"github.com/i474232898/weather-dashboard/internal/effects"
	"github.com/i474232898/weather-dashboard/internal/prefs"
	"github.com/i474232898/weather-dashboard/internal/weather"
	"github.com/i474232898/weather-dashboard/internal/weather/providers"
)

// Placeholders shown when no data could be fetched.
const (
	PlaceholderValue       = "--"
	PlaceholderDescription = "⚠"
)

// Status lines.
const (
	StatusInitializing  = "Initializing..."
	StatusLocating      = "Requesting location..."
	StatusLoading       = "Loading weather..."
	StatusLookingUp     = "Looking up city..."
	StatusEmptyQuery    = "Please enter a city name."
	StatusFetchFailed   = "Failed to load weather. Check API key or network."
	StatusMissingKey    = "Missing API key. Add one in settings."
	StatusCityNotFound  = "City not found"
	StatusSettingsSaved = "Settings saved."

	updatedStatusPrefix = "Updated: "
)

const (
	localDateTimeLayout = "Mon, Jan 2 15:04"
	clockLayout         = "15:04"
	dayCardLayout       = "Mon, Jan 2"
	mainIconSize        = "@4x"
)

// HourCard is one entry of the hourly strip.
type HourCard struct {
	Time   string `json:"time"`
	Temp   string `json:"temp"`
	Icon   string `json:"icon"`
	Precip string `json:"precip"`
}

// DayCard is one entry of the daily strip.
type DayCard struct {
	Date   string `json:"date"`
	Max    string `json:"max"`
	Min    string `json:"min"`
	Icon   string `json:"icon"`
	Precip string `json:"precip"`
}

// EffectNode is a materialized effects node ready for the template.
type EffectNode struct {
	Class string       `json:"class"`
	Style template.CSS `json:"style"`
}

// Display holds every field written into the dashboard.
type Display struct {
	Place       string `json:"place"`
	PlaceShort  string `json:"placeShort"`
	LocalTime   string `json:"localTime"`
	Temperature string `json:"temperature"`
	FeelsLike   string `json:"feelsLike"`
	Description string `json:"description"`
	Icon        string `json:"icon"`
	Humidity    string `json:"humidity"`
	Wind        string `json:"wind"`
	Pressure    string `json:"pressure"`
	Sunrise     string `json:"sunrise"`
	Sunset      string `json:"sunset"`

	UnitLabel        string `json:"unitLabel"`
	UnitToggleLabel  string `json:"unitToggleLabel"`
	Theme            string `json:"theme"`
	ThemeToggleLabel string `json:"themeToggleLabel"`
	ForecastMode     string `json:"forecastMode"`
	Animations       bool   `json:"animations"`
	HasAPIKey        bool   `json:"hasApiKey"`

	Background     template.CSS `json:"background"`
	EffectKind     string       `json:"effectKind,omitempty"`
	EffectIcon     string       `json:"effectIcon,omitempty"`
	EffectGradient template.CSS `json:"effectGradient,omitempty"`
	EffectNodes    []EffectNode `json:"effectNodes"`
	Hourly         []HourCard   `json:"hourly"`
	Daily          []DayCard    `json:"daily"`
	Status         string       `json:"status"`
	StatusError    bool         `json:"statusError"`
}

func newDisplay() Display {
	d := Display{
		EffectNodes: []EffectNode{},
		Hourly:      []HourCard{},
		Daily:       []DayCard{},
	}
	d.applyPlaceholders()
	d.Place = "—"
	d.PlaceShort = "—"
	return d
}

func (d *Display) applyPlaceholders() {
	d.Temperature = PlaceholderValue
	d.FeelsLike = PlaceholderValue
	d.Description = PlaceholderDescription
}

func (d *Display) setStatus(msg string, isError bool) {
	d.Status = msg
	d.StatusError = isError
}

// applyPreferences writes the unit and theme dependent labels.
func (d *Display) applyPreferences(p prefs.Preferences) {
	d.UnitLabel = p.Unit.TemperatureLabel()
	if p.Unit == weather.UnitImperial {
		d.UnitToggleLabel = "°F / °C"
	} else {
		d.UnitToggleLabel = "°C / °F"
	}
	d.Theme = string(p.Theme)
	if p.Theme == prefs.ThemeDark {
		d.ThemeToggleLabel = "Dark"
	} else {
		d.ThemeToggleLabel = "Light"
	}
	d.ForecastMode = string(p.ForecastMode)
	d.Animations = p.Animations.Enabled()
	d.HasAPIKey = p.APIKey != ""
}

// applySnapshot writes every current-conditions field from s.
func (d *Display) applySnapshot(s weather.Snapshot, name, country string, now time.Time) {
	switch {
	case name != "" && country != "":
		d.Place = name + ", " + country
		d.PlaceShort = name
	case name != "":
		d.Place = name
		d.PlaceShort = name
	default:
		d.Place = utcOffsetLabel(s.TimezoneOffset)
		d.PlaceShort = d.Place
	}

	d.LocalTime = localTime(now.Unix(), s.TimezoneOffset, localDateTimeLayout)
	d.Temperature = formatTemp(s.Temperature)
	d.FeelsLike = formatTemp(s.FeelsLike) + s.Units.TemperatureLabel()
	d.Description = s.ConditionDescription
	d.Icon = providers.IconURL(s.IconID, mainIconSize)
	d.Humidity = fmt.Sprintf("%.0f%%", s.Humidity)
	d.Wind = fmt.Sprintf("%s %s", trimFloat(s.WindSpeed), s.Units.WindLabel())
	d.Pressure = fmt.Sprintf("%.0f hPa", s.Pressure)
	d.Sunrise = localTime(s.SunriseUnix, s.TimezoneOffset, clockLayout)
	d.Sunset = localTime(s.SunsetUnix, s.TimezoneOffset, clockLayout)
	d.Background = template.CSS(effects.Background(weather.ToCelsius(s.Temperature, s.Units), s.IsDay(now)))
}

func (d *Display) applyForecast(f weather.Forecast) {
	d.Hourly = make([]HourCard, 0, len(f.Hourly))
	for _, h := range f.Hourly {
		d.Hourly = append(d.Hourly, HourCard{
			Time:   localTime(h.TimeUnix, f.TimezoneOffset, clockLayout),
			Temp:   formatTemp(h.Temperature) + "°",
			Icon:   providers.IconURL(h.IconID, ""),
			Precip: fmt.Sprintf("%d%% rain", percent(h.PrecipProbability)),
		})
	}
	d.Daily = make([]DayCard, 0, len(f.Daily))
	for _, day := range f.Daily {
		d.Daily = append(d.Daily, DayCard{
			Date:   localTime(day.TimeUnix, f.TimezoneOffset, dayCardLayout),
			Max:    formatTemp(day.Max) + "°",
			Min:    formatTemp(day.Min) + "°",
			Icon:   providers.IconURL(day.IconID, ""),
			Precip: fmt.Sprintf("%d%% chance", percent(day.PrecipProbability)),
		})
	}
}

func (d *Display) applyEffects(b *effects.Bundle, nodes []effects.Node) {
	if b == nil {
		d.EffectKind = ""
		d.EffectIcon = ""
		d.EffectGradient = ""
		d.EffectNodes = []EffectNode{}
		return
	}
	d.EffectKind = string(b.Kind)
	d.EffectIcon = b.Icon
	d.EffectGradient = template.CSS(b.Gradient)
	d.EffectNodes = make([]EffectNode, 0, len(nodes))
	for _, n := range nodes {
		d.EffectNodes = append(d.EffectNodes, EffectNode{Class: n.Class, Style: template.CSS(n.Style)})
	}
}

// clone returns a deep copy safe to hand out of the updater lock.
func (d Display) clone() Display {
	d.EffectNodes = cloneSlice(d.EffectNodes)
	d.Hourly = cloneSlice(d.Hourly)
	d.Daily = cloneSlice(d.Daily)
	return d
}

// cloneSlice copies s, keeping an empty result non-nil so JSON renders [].
func cloneSlice[T any](s []T) []T {
	out := make([]T, len(s))
	copy(out, s)
	return out
}

func formatTemp(v float64) string {
	return fmt.Sprintf("%d", weather.Round(v))
}

func percent(p float64) int {
	return int(math.Round(p * 100))
}

func trimFloat(v float64) string {
	return fmt.Sprintf("%g", math.Round(v*10)/10)
}

// localTime formats a unix timestamp shifted by a UTC offset in seconds.
func localTime(unix int64, offset int, layout string) string {
	return time.Unix(unix+int64(offset), 0).UTC().Format(layout)
}

func utcOffsetLabel(offset int) string {
	sign := "+"
	if offset < 0 {
		sign = "-"
		offset = -offset
	}
	return fmt.Sprintf("UTC%s%02d:%02d", sign, offset/3600, offset%3600/60)
}
