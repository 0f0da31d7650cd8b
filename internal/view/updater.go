package view

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/i474232898/weather-dashboard/internal/common"
	"github.com/i474232898/weather-dashboard/internal/effects"
	"github.com/i474232898/weather-dashboard/internal/location"
	"github.com/i474232898/weather-dashboard/internal/prefs"
	"github.com/i474232898/weather-dashboard/internal/weather"
)

// DefaultCity is used when no city is persisted and geolocation fails.
const DefaultCity = "Johannesburg"

// Refresh outcomes reported to the Observer.
const (
	OutcomeOK    = "ok"
	OutcomeError = "error"
	OutcomeStale = "stale"
)

// Locator resolves where to fetch weather for.
type Locator interface {
	Locate(ctx context.Context) (weather.Location, error)
	ByCity(ctx context.Context, name string) (weather.Location, error)
}

// PreferenceStore persists dashboard preferences.
type PreferenceStore interface {
	Load(ctx context.Context) (prefs.Preferences, error)
	SetUnit(ctx context.Context, u weather.Unit) error
	SetTheme(ctx context.Context, t prefs.Theme) error
	SetAnimations(ctx context.Context, t prefs.Toggle) error
	SetForecastMode(ctx context.Context, m prefs.ForecastMode) error
	SetAPIKey(ctx context.Context, key string) error
	SetLastCity(ctx context.Context, city string) error
}

// Observer receives the outcome of every fetch-and-render cycle.
type Observer interface {
	ObserveRefresh(outcome string, d time.Duration)
}

// Options configures an Updater.
type Options struct {
	DefaultCity     string
	ForecastEnabled bool
	EffectsEnabled  bool
	Selector        *effects.Selector
	Observer        Observer
}

// Settings is a partial preference update; zero fields are left unchanged.
type Settings struct {
	Unit         weather.Unit
	Theme        prefs.Theme
	ForecastMode prefs.ForecastMode
	Animations   prefs.Toggle
	APIKey       string
}

type place struct {
	loc     weather.Location
	name    string
	country string
}

// Updater owns the dashboard state and every flow that changes it.
type Updater struct {
	client   weather.Client
	locator  Locator
	store    PreferenceStore
	selector *effects.Selector
	layer    *effects.Layer
	observer Observer
	logger   zerolog.Logger
	now      func() time.Time

	defaultCity     string
	forecastEnabled bool
	effectsEnabled  bool

	seq      atomic.Uint64
	inflight atomic.Int32

	// settingsMu serializes preference changes; it is taken before mu.
	settingsMu sync.Mutex

	mu      sync.Mutex
	prefs   prefs.Preferences
	place   *place
	bundle  *effects.Bundle
	display Display
}

func NewUpdater(
	client weather.Client,
	locator Locator,
	store PreferenceStore,
	opts Options,
	logger zerolog.Logger,
) *Updater {
	city := strings.TrimSpace(opts.DefaultCity)
	if city == "" {
		city = DefaultCity
	}
	selector := opts.Selector
	if selector == nil {
		selector = effects.NewSelector(nil)
	}

	u := &Updater{
		client:          client,
		locator:         locator,
		store:           store,
		selector:        selector,
		layer:           effects.NewLayer(),
		observer:        opts.Observer,
		logger:          logger,
		now:             time.Now,
		defaultCity:     city,
		forecastEnabled: opts.ForecastEnabled,
		effectsEnabled:  opts.EffectsEnabled,
		prefs:           prefs.Defaults(),
		display:         newDisplay(),
	}
	u.display.applyPreferences(u.prefs)
	return u
}

// Init applies persisted preferences and loads the first location: the
// persisted city, then geolocation, then the default city.
func (u *Updater) Init(ctx context.Context) error {
	p, err := u.store.Load(ctx)
	if err != nil {
		u.logger.Warn().Ctx(ctx).Err(err).Msg("could not load preferences, using defaults")
	}
	if p.APIKey != "" {
		u.setCredential(p.APIKey)
	}

	u.mu.Lock()
	u.prefs = p
	u.display.applyPreferences(p)
	u.display.setStatus(StatusInitializing, false)
	u.mu.Unlock()

	if p.LastCity != "" {
		err := u.search(ctx, p.LastCity, false)
		if err == nil || !weather.IsNotFound(err) {
			return err
		}
		u.logger.Info().Ctx(ctx).Str("city", p.LastCity).Msg("persisted city no longer resolves")
	}

	id, done := u.begin()
	defer done()

	u.setStatus(id, StatusLocating, false)
	loc, err := u.locator.Locate(ctx)
	if err != nil {
		u.logger.Info().
			Ctx(ctx).
			Err(err).
			Str("city", u.defaultCity).
			Msg("geolocation failed, falling back to default city")
		return u.search(ctx, u.defaultCity, false)
	}

	return u.load(ctx, id, place{loc: loc})
}

// Search resolves city and renders its weather, remembering it on success.
func (u *Updater) Search(ctx context.Context, city string) error {
	return u.search(ctx, city, true)
}

func (u *Updater) search(ctx context.Context, city string, remember bool) error {
	city = strings.TrimSpace(city)
	if city == "" {
		u.mu.Lock()
		u.display.setStatus(StatusEmptyQuery, true)
		u.mu.Unlock()
		return location.ErrEmptyQuery
	}

	id, done := u.begin()
	defer done()

	u.setStatus(id, StatusLookingUp, false)
	loc, err := u.locator.ByCity(ctx, city)
	if err != nil {
		u.logger.Warn().Ctx(ctx).Err(err).Str("city", city).Msg("city lookup failed")
		u.fail(id, err)
		return err
	}

	if remember {
		if err := u.store.SetLastCity(ctx, city); err != nil {
			u.logger.Error().Ctx(ctx).Err(err).Msg("could not persist last city")
		}
		u.mu.Lock()
		u.prefs.LastCity = city
		u.mu.Unlock()
	}

	return u.load(ctx, id, place{loc: loc, name: loc.DisplayName, country: loc.CountryCode})
}

// Refresh re-fetches the known location. It is a no-op before the first
// successful load.
func (u *Updater) Refresh(ctx context.Context) error {
	u.mu.Lock()
	if u.place == nil {
		u.mu.Unlock()
		return nil
	}
	p := *u.place
	id, done := u.beginLocked()
	u.mu.Unlock()

	defer done()
	return u.load(ctx, id, p)
}

// RefreshIfIdle refreshes only when no other flow is in progress. It
// reports whether a refresh ran.
func (u *Updater) RefreshIfIdle(ctx context.Context) (bool, error) {
	u.mu.Lock()
	if u.place == nil || !u.inflight.CompareAndSwap(0, 1) {
		u.mu.Unlock()
		return false, nil
	}
	p := *u.place
	id := u.seq.Add(1)
	u.mu.Unlock()

	defer u.inflight.Add(-1)
	return true, u.load(ctx, id, p)
}

// ToggleUnit flips the unit system and re-fetches the known location.
func (u *Updater) ToggleUnit(ctx context.Context) error {
	return u.updateSettings(ctx, func(current prefs.Preferences) Settings {
		return Settings{Unit: current.Unit.Toggle()}
	})
}

// ToggleTheme flips the theme and re-fetches the known location.
func (u *Updater) ToggleTheme(ctx context.Context) error {
	u.settingsMu.Lock()
	u.mu.Lock()
	next := u.prefs.Theme.Toggle()
	u.prefs.Theme = next
	u.display.applyPreferences(u.prefs)
	u.mu.Unlock()

	if err := u.store.SetTheme(ctx, next); err != nil {
		u.logger.Error().Ctx(ctx).Err(err).Msg("could not persist theme")
	}

	u.mu.Lock()
	if u.place == nil {
		u.mu.Unlock()
		u.settingsMu.Unlock()
		return nil
	}
	p := *u.place
	id, done := u.beginLocked()
	u.mu.Unlock()
	u.settingsMu.Unlock()

	defer done()
	return u.load(ctx, id, p)
}

// ApplySettings persists every non-zero field of s. A unit or API key
// change re-fetches the known location exactly once.
func (u *Updater) ApplySettings(ctx context.Context, s Settings) error {
	return u.updateSettings(ctx, func(prefs.Preferences) Settings { return s })
}

// updateSettings derives the change from the current preferences and
// persists it. Changes are serialized so concurrent toggles never collapse.
func (u *Updater) updateSettings(ctx context.Context, change func(prefs.Preferences) Settings) error {
	u.settingsMu.Lock()
	u.mu.Lock()
	current := u.prefs
	u.mu.Unlock()
	s := change(current)

	refetch := false
	var errs []error

	if s.Unit != "" && s.Unit != current.Unit {
		if err := u.store.SetUnit(ctx, s.Unit); err != nil {
			errs = append(errs, err)
		} else {
			current.Unit = s.Unit
			refetch = true
		}
	}
	if s.Theme != "" && s.Theme != current.Theme {
		if err := u.store.SetTheme(ctx, s.Theme); err != nil {
			errs = append(errs, err)
		} else {
			current.Theme = s.Theme
		}
	}
	if s.ForecastMode != "" && s.ForecastMode != current.ForecastMode {
		if err := u.store.SetForecastMode(ctx, s.ForecastMode); err != nil {
			errs = append(errs, err)
		} else {
			current.ForecastMode = s.ForecastMode
		}
	}
	if s.Animations != "" && s.Animations != current.Animations {
		if err := u.store.SetAnimations(ctx, s.Animations); err != nil {
			errs = append(errs, err)
		} else {
			current.Animations = s.Animations
		}
	}
	if key := strings.TrimSpace(s.APIKey); key != "" && key != current.APIKey {
		if err := u.store.SetAPIKey(ctx, key); err != nil {
			u.logger.Error().Ctx(ctx).Err(err).Msg("could not persist api key")
		}
		u.setCredential(key)
		current.APIKey = key
		refetch = true
	}

	u.mu.Lock()
	// LastCity is owned by the search flow.
	u.prefs.Unit = current.Unit
	u.prefs.Theme = current.Theme
	u.prefs.ForecastMode = current.ForecastMode
	u.prefs.Animations = current.Animations
	u.prefs.APIKey = current.APIKey
	u.display.applyPreferences(u.prefs)
	u.syncEffects()

	err := errors.Join(errs...)
	if err != nil || !refetch || u.place == nil {
		if !refetch || u.place == nil {
			u.display.setStatus(StatusSettingsSaved, false)
		}
		u.mu.Unlock()
		u.settingsMu.Unlock()
		if err != nil {
			u.logger.Error().Ctx(ctx).Err(err).Msg("could not persist settings")
		}
		return err
	}
	p := *u.place
	id, done := u.beginLocked()
	u.mu.Unlock()
	u.settingsMu.Unlock()

	defer done()
	return u.load(ctx, id, p)
}

// Preferences returns the active preferences.
func (u *Updater) Preferences() prefs.Preferences {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.prefs
}

// Display returns a copy of the current display.
func (u *Updater) Display() Display {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.display.clone()
}

// begin starts a flow and returns its request id. Ids are taken under u.mu
// so a flow that reads state and takes its id together is ordered against
// every other flow.
func (u *Updater) begin() (uint64, func()) {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.beginLocked()
}

func (u *Updater) beginLocked() (uint64, func()) {
	u.inflight.Add(1)
	return u.seq.Add(1), func() { u.inflight.Add(-1) }
}

func (u *Updater) setCredential(key string) {
	if setter, ok := u.client.(weather.CredentialSetter); ok {
		setter.SetAPIKey(key)
	}
}

// setStatus writes a status line unless a newer flow has started.
func (u *Updater) setStatus(id uint64, msg string, isError bool) {
	u.mu.Lock()
	defer u.mu.Unlock()
	if id == u.seq.Load() {
		u.display.setStatus(msg, isError)
	}
}

// fail reports err for flow id. A city miss only changes the status line.
func (u *Updater) fail(id uint64, err error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	if id != u.seq.Load() {
		return
	}
	if !weather.IsNotFound(err) {
		u.display.applyPlaceholders()
	}
	u.display.setStatus(statusForError(err), true)
}

// load fetches p and renders it unless a newer flow started meanwhile.
func (u *Updater) load(ctx context.Context, id uint64, p place) error {
	u.mu.Lock()
	unit := u.prefs.Unit
	if id == u.seq.Load() {
		u.display.setStatus(StatusLoading, false)
	}
	u.mu.Unlock()

	start := time.Now()
	snap, err := u.client.Current(ctx, p.loc.Latitude, p.loc.Longitude, unit)

	var fc weather.Forecast
	if err == nil && u.forecastEnabled {
		var fcErr error
		fc, fcErr = u.client.Forecast(ctx, p.loc.Latitude, p.loc.Longitude, unit)
		if fcErr != nil {
			u.logger.Warn().Ctx(ctx).Err(fcErr).Str("location", p.loc.Key()).Msg("forecast fetch failed")
			fc = weather.Forecast{}
		}
	}

	u.mu.Lock()
	defer u.mu.Unlock()

	if id != u.seq.Load() {
		u.logger.Debug().
			Ctx(ctx).
			Uint64("request_id", id).
			Uint64("latest_id", u.seq.Load()).
			Msg("discarding stale response")
		u.observe(OutcomeStale, start)
		return nil
	}

	if err != nil {
		u.logger.Error().Ctx(ctx).Err(err).Str("location", p.loc.Key()).Msg("weather fetch failed")
		u.display.applyPlaceholders()
		u.display.setStatus(statusForError(err), true)
		u.observe(OutcomeError, start)
		return err
	}

	if p.name == "" {
		p.country = snap.CountryCode
	}
	p.name = common.FirstNonEmpty(p.name, snap.PlaceName)
	u.place = &p
	u.render(snap, fc, p)
	u.observe(OutcomeOK, start)
	return nil
}

// render writes every display field for snap. Caller holds u.mu.
func (u *Updater) render(snap weather.Snapshot, fc weather.Forecast, p place) {
	now := u.now()
	u.display.applySnapshot(snap, p.name, p.country, now)
	if u.forecastEnabled {
		u.display.applyForecast(fc)
	} else {
		u.display.Hourly, u.display.Daily = []HourCard{}, []DayCard{}
	}

	isDay := snap.IsDay(now)
	kind := effects.Classify(snap.ConditionMain)
	if u.bundle == nil || u.bundle.Kind != kind || u.bundle.IsDay != isDay {
		b := u.selector.Select(snap.ConditionMain, isDay)
		u.bundle = &b
	}
	u.syncEffects()

	u.display.setStatus(updatedStatusPrefix+localTime(now.Unix(), snap.TimezoneOffset, localDateTimeLayout), false)
}

// syncEffects draws or clears the effects layer per the animations flag.
// Caller holds u.mu.
func (u *Updater) syncEffects() {
	if !u.effectsEnabled || !u.prefs.Animations.Enabled() || u.bundle == nil {
		u.layer.Clear()
		u.display.applyEffects(nil, nil)
		return
	}
	u.layer.Render(*u.bundle)
	u.display.applyEffects(u.bundle, u.layer.Nodes())
}

func (u *Updater) observe(outcome string, start time.Time) {
	if u.observer != nil {
		u.observer.ObserveRefresh(outcome, time.Since(start))
	}
}

func statusForError(err error) string {
	switch {
	case weather.IsNotFound(err):
		return StatusCityNotFound
	case errors.Is(err, weather.ErrMissingCredential):
		return StatusMissingKey
	case errors.Is(err, location.ErrEmptyQuery):
		return StatusEmptyQuery
	default:
		return StatusFetchFailed
	}
}
