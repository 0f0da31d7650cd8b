package prefs

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/i474232898/weather-dashboard/internal/store"
	"github.com/i474232898/weather-dashboard/internal/weather"
)

// Persisted keys.
const (
	KeyUnit       = "pw_unit"
	KeyTheme      = "pw_theme"
	KeyAnimations = "pw_animations"
	KeyForecast   = "pw_forecast"
	KeyAPIKey     = "pw_api_key"
	KeyLastCity   = "pw_last_city"
)

type Theme string

const (
	ThemeLight Theme = "light"
	ThemeDark  Theme = "dark"
)

func (t Theme) Valid() bool { return t == ThemeLight || t == ThemeDark }

func (t Theme) Toggle() Theme {
	if t == ThemeDark {
		return ThemeLight
	}
	return ThemeDark
}

type Toggle string

const (
	On  Toggle = "on"
	Off Toggle = "off"
)

func (t Toggle) Valid() bool { return t == On || t == Off }

func (t Toggle) Enabled() bool { return t != Off }

type ForecastMode string

const (
	ForecastHourly ForecastMode = "hourly"
	ForecastDaily  ForecastMode = "daily"
)

func (m ForecastMode) Valid() bool { return m == ForecastHourly || m == ForecastDaily }

// Preferences is the full set of persisted dashboard flags.
type Preferences struct {
	Unit         weather.Unit `json:"unit"`
	Theme        Theme        `json:"theme"`
	Animations   Toggle       `json:"animations"`
	ForecastMode ForecastMode `json:"forecast"`
	APIKey       string       `json:"-"`
	LastCity     string       `json:"lastCity,omitempty"`
}

// Defaults returns the preferences used when nothing is persisted.
func Defaults() Preferences {
	return Preferences{
		Unit:         weather.UnitMetric,
		Theme:        ThemeLight,
		Animations:   On,
		ForecastMode: ForecastHourly,
	}
}

// Store reads and writes Preferences over a key/value store.
type Store struct {
	kv       store.Store
	defaults Preferences
	logger   zerolog.Logger
}

// New creates a preference store. Zero-valued fields of defaults fall back to Defaults().
func New(kv store.Store, defaults Preferences, logger zerolog.Logger) *Store {
	base := Defaults()
	if defaults.Unit.Valid() {
		base.Unit = defaults.Unit
	}
	if defaults.Theme.Valid() {
		base.Theme = defaults.Theme
	}
	if defaults.Animations.Valid() {
		base.Animations = defaults.Animations
	}
	if defaults.ForecastMode.Valid() {
		base.ForecastMode = defaults.ForecastMode
	}
	base.APIKey = defaults.APIKey
	return &Store{kv: kv, defaults: base, logger: logger}
}

// Load reads every preference. Absent keys and values outside their enum
// yield the default; only backend failures are returned.
func (s *Store) Load(ctx context.Context) (Preferences, error) {
	p := s.defaults

	read := func(key string) (string, bool, error) {
		v, err := s.kv.Get(ctx, key)
		if errors.Is(err, store.ErrNotFound) {
			return "", false, nil
		}
		if err != nil {
			return "", false, fmt.Errorf("load %s: %w", key, err)
		}
		return v, true, nil
	}

	if v, ok, err := read(KeyUnit); err != nil {
		return s.defaults, err
	} else if ok && weather.Unit(v).Valid() {
		p.Unit = weather.Unit(v)
	} else if ok {
		s.logger.Warn().Str("key", KeyUnit).Str("value", v).Msg("ignoring invalid stored preference")
	}

	if v, ok, err := read(KeyTheme); err != nil {
		return s.defaults, err
	} else if ok && Theme(v).Valid() {
		p.Theme = Theme(v)
	}

	if v, ok, err := read(KeyAnimations); err != nil {
		return s.defaults, err
	} else if ok && Toggle(v).Valid() {
		p.Animations = Toggle(v)
	}

	if v, ok, err := read(KeyForecast); err != nil {
		return s.defaults, err
	} else if ok && ForecastMode(v).Valid() {
		p.ForecastMode = ForecastMode(v)
	}

	if v, ok, err := read(KeyAPIKey); err != nil {
		return s.defaults, err
	} else if ok && strings.TrimSpace(v) != "" {
		p.APIKey = strings.TrimSpace(v)
	}

	if v, ok, err := read(KeyLastCity); err != nil {
		return s.defaults, err
	} else if ok {
		p.LastCity = strings.TrimSpace(v)
	}

	return p, nil
}

func (s *Store) SetUnit(ctx context.Context, u weather.Unit) error {
	if !u.Valid() {
		return fmt.Errorf("invalid unit %q", u)
	}
	return s.kv.Set(ctx, KeyUnit, string(u))
}

func (s *Store) SetTheme(ctx context.Context, t Theme) error {
	if !t.Valid() {
		return fmt.Errorf("invalid theme %q", t)
	}
	return s.kv.Set(ctx, KeyTheme, string(t))
}

func (s *Store) SetAnimations(ctx context.Context, t Toggle) error {
	if !t.Valid() {
		return fmt.Errorf("invalid animations value %q", t)
	}
	return s.kv.Set(ctx, KeyAnimations, string(t))
}

func (s *Store) SetForecastMode(ctx context.Context, m ForecastMode) error {
	if !m.Valid() {
		return fmt.Errorf("invalid forecast mode %q", m)
	}
	return s.kv.Set(ctx, KeyForecast, string(m))
}

func (s *Store) SetAPIKey(ctx context.Context, key string) error {
	return s.kv.Set(ctx, KeyAPIKey, strings.TrimSpace(key))
}

func (s *Store) SetLastCity(ctx context.Context, city string) error {
	return s.kv.Set(ctx, KeyLastCity, strings.TrimSpace(city))
}
