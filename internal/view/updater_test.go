package view

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/i474232898/weather-dashboard/internal/effects"
	"github.com/i474232898/weather-dashboard/internal/location"
	"github.com/i474232898/weather-dashboard/internal/prefs"
	"github.com/i474232898/weather-dashboard/internal/store"
	"github.com/i474232898/weather-dashboard/internal/weather"
)

var fixedNow = time.Unix(1700000000, 0)

type fakeClient struct {
	mu            sync.Mutex
	cities        map[string]weather.Location
	condition     string
	currentErr    error
	currentCalls  int
	forecastCalls int
	units         []weather.Unit
	apiKey        string

	// gates holds a channel per latitude; Current blocks on it when present.
	gates   map[float64]chan struct{}
	entered chan float64
}

func newFakeClient() *fakeClient {
	return &fakeClient{
		cities: map[string]weather.Location{
			"Johannesburg": {Latitude: -26.2, Longitude: 28.04, DisplayName: "Johannesburg", CountryCode: "ZA"},
			"Lviv":         {Latitude: 49.84, Longitude: 24.03, DisplayName: "Lviv", CountryCode: "UA"},
			"Slowtown":     {Latitude: 1, Longitude: 1, DisplayName: "Slowtown", CountryCode: "AA"},
			"Fasttown":     {Latitude: 2, Longitude: 2, DisplayName: "Fasttown", CountryCode: "BB"},
		},
		condition: "Rain",
		gates:     map[float64]chan struct{}{},
	}
}

func (c *fakeClient) ResolveCity(_ context.Context, city string) (weather.Location, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	loc, ok := c.cities[city]
	if !ok {
		return weather.Location{}, &weather.NotFoundError{Query: city, Message: "city not found"}
	}
	return loc, nil
}

func (c *fakeClient) Current(_ context.Context, lat, _ float64, unit weather.Unit) (weather.Snapshot, error) {
	c.mu.Lock()
	c.currentCalls++
	c.units = append(c.units, unit)
	gate := c.gates[lat]
	entered := c.entered
	err := c.currentErr
	condition := c.condition
	c.mu.Unlock()

	if gate != nil {
		if entered != nil {
			entered <- lat
		}
		<-gate
	}
	if err != nil {
		return weather.Snapshot{}, err
	}

	temp := 21.4
	if unit == weather.UnitImperial {
		temp = weather.CelsiusToFahrenheit(temp)
	}
	return weather.Snapshot{
		Temperature:          temp,
		FeelsLike:            temp - 1,
		Humidity:             64,
		WindSpeed:            3.4,
		Pressure:             1012,
		ConditionMain:        condition,
		ConditionDescription: "light " + condition,
		IconID:               "10d",
		SunriseUnix:          fixedNow.Unix() - 3600,
		SunsetUnix:           fixedNow.Unix() + 3600,
		TimezoneOffset:       7200,
		ObservedAtUnix:       fixedNow.Unix(),
		Units:                unit,
		PlaceName:            "Geo Place",
		CountryCode:          "GP",
	}, nil
}

func (c *fakeClient) Forecast(_ context.Context, _, _ float64, _ weather.Unit) (weather.Forecast, error) {
	c.mu.Lock()
	c.forecastCalls++
	c.mu.Unlock()
	return weather.Forecast{
		TimezoneOffset: 7200,
		Hourly:         []weather.HourlyEntry{{TimeUnix: fixedNow.Unix(), Temperature: 20.6, PrecipProbability: 0.4, IconID: "10d"}},
		Daily:          []weather.DailyEntry{{TimeUnix: fixedNow.Unix() + 86400, Min: 11, Max: 22, PrecipProbability: 0.1, IconID: "01d"}},
	}, nil
}

func (c *fakeClient) SetAPIKey(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.apiKey = key
}

func (c *fakeClient) calls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.currentCalls
}

type recordingObserver struct {
	mu       sync.Mutex
	outcomes []string
}

func (o *recordingObserver) ObserveRefresh(outcome string, _ time.Duration) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.outcomes = append(o.outcomes, outcome)
}

type harness struct {
	updater  *Updater
	client   *fakeClient
	prefs    *prefs.Store
	observer *recordingObserver
}

func newHarness(t *testing.T, geo location.Geolocator) *harness {
	t.Helper()
	client := newFakeClient()
	ps := prefs.New(store.NewMemoryStore(), prefs.Preferences{}, zerolog.Nop())
	resolver := location.NewResolver(geo, client, zerolog.Nop())
	obs := &recordingObserver{}

	u := NewUpdater(client, resolver, ps, Options{
		ForecastEnabled: true,
		EffectsEnabled:  true,
		Observer:        obs,
	}, zerolog.Nop())
	u.now = func() time.Time { return fixedNow }

	return &harness{updater: u, client: client, prefs: ps, observer: obs}
}

func TestToggleUnit_FetchesOnceWithKnownLocation(t *testing.T) {
	h := newHarness(t, location.DisabledGeolocator{})
	ctx := context.Background()

	require.NoError(t, h.updater.Search(ctx, "Lviv"))
	require.Equal(t, 1, h.client.calls())

	require.NoError(t, h.updater.ToggleUnit(ctx))
	assert.Equal(t, 2, h.client.calls())
	assert.Equal(t, weather.UnitImperial, h.client.units[1])

	d := h.updater.Display()
	assert.Equal(t, "°F", d.UnitLabel)
	assert.Equal(t, "71", d.Temperature)

	stored, err := h.prefs.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, weather.UnitImperial, stored.Unit)
}

func TestToggleUnit_NoFetchWithoutLocation(t *testing.T) {
	h := newHarness(t, location.DisabledGeolocator{})

	require.NoError(t, h.updater.ToggleUnit(context.Background()))
	assert.Zero(t, h.client.calls())
	assert.Equal(t, "°F", h.updater.Display().UnitLabel)
	assert.Equal(t, "°F / °C", h.updater.Display().UnitToggleLabel)
}

func TestToggleTheme(t *testing.T) {
	h := newHarness(t, location.DisabledGeolocator{})
	ctx := context.Background()

	require.NoError(t, h.updater.ToggleTheme(ctx))
	assert.Zero(t, h.client.calls())
	assert.Equal(t, "dark", h.updater.Display().Theme)
	assert.Equal(t, "Dark", h.updater.Display().ThemeToggleLabel)

	require.NoError(t, h.updater.Search(ctx, "Lviv"))
	require.NoError(t, h.updater.ToggleTheme(ctx))
	assert.Equal(t, 2, h.client.calls())
	assert.Equal(t, "light", h.updater.Display().Theme)

	stored, err := h.prefs.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, prefs.ThemeLight, stored.Theme)
}

func TestInit_GeolocationDeniedFallsBackToDefaultCity(t *testing.T) {
	h := newHarness(t, location.DisabledGeolocator{})

	require.NoError(t, h.updater.Init(context.Background()))

	d := h.updater.Display()
	assert.Equal(t, "Johannesburg, ZA", d.Place)
	assert.Equal(t, "21", d.Temperature)
	assert.False(t, d.StatusError)
	assert.Contains(t, d.Status, "Updated: ")
	assert.Empty(t, h.updater.Preferences().LastCity)
}

func TestInit_UsesPersistedCity(t *testing.T) {
	h := newHarness(t, location.StaticGeolocator{Latitude: 9, Longitude: 9})
	ctx := context.Background()
	require.NoError(t, h.prefs.SetLastCity(ctx, "Lviv"))

	require.NoError(t, h.updater.Init(ctx))
	assert.Equal(t, "Lviv, UA", h.updater.Display().Place)
	assert.Equal(t, 1, h.client.calls())
}

func TestInit_GeolocationNamesPlaceFromResponse(t *testing.T) {
	h := newHarness(t, location.StaticGeolocator{Latitude: 9, Longitude: 9})

	require.NoError(t, h.updater.Init(context.Background()))
	assert.Equal(t, "Geo Place, GP", h.updater.Display().Place)
}

func TestInit_AppliesPersistedCredential(t *testing.T) {
	h := newHarness(t, location.DisabledGeolocator{})
	ctx := context.Background()
	require.NoError(t, h.prefs.SetAPIKey(ctx, "stored-key"))

	require.NoError(t, h.updater.Init(ctx))
	assert.Equal(t, "stored-key", h.client.apiKey)
	assert.True(t, h.updater.Display().HasAPIKey)
}

func TestSearch_NotFoundOnlyChangesStatus(t *testing.T) {
	h := newHarness(t, location.DisabledGeolocator{})
	ctx := context.Background()
	require.NoError(t, h.updater.Search(ctx, "Lviv"))
	before := h.updater.Display()

	err := h.updater.Search(ctx, "Nowhereville")
	require.Error(t, err)
	assert.True(t, weather.IsNotFound(err))

	after := h.updater.Display()
	assert.NotEmpty(t, after.Status)
	assert.True(t, after.StatusError)

	after.Status, after.StatusError = before.Status, before.StatusError
	assert.Equal(t, before, after)
	assert.Equal(t, "Lviv", h.updater.Preferences().LastCity)
}

func TestSearch_Empty(t *testing.T) {
	h := newHarness(t, location.DisabledGeolocator{})

	err := h.updater.Search(context.Background(), "   ")
	assert.ErrorIs(t, err, location.ErrEmptyQuery)
	assert.Equal(t, StatusEmptyQuery, h.updater.Display().Status)
	assert.True(t, h.updater.Display().StatusError)
	assert.Zero(t, h.client.calls())
}

func TestSearch_PersistsLastCity(t *testing.T) {
	h := newHarness(t, location.DisabledGeolocator{})
	ctx := context.Background()

	require.NoError(t, h.updater.Search(ctx, " Lviv "))
	stored, err := h.prefs.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Lviv", stored.LastCity)
}

func TestFetchFailure_ShowsPlaceholders(t *testing.T) {
	h := newHarness(t, location.DisabledGeolocator{})
	ctx := context.Background()
	require.NoError(t, h.updater.Search(ctx, "Lviv"))

	h.client.currentErr = &weather.NetworkError{Status: 500, Body: "boom"}
	err := h.updater.Refresh(ctx)
	require.Error(t, err)

	d := h.updater.Display()
	assert.Equal(t, PlaceholderValue, d.Temperature)
	assert.Equal(t, PlaceholderDescription, d.Description)
	assert.Equal(t, StatusFetchFailed, d.Status)
	assert.True(t, d.StatusError)
	assert.Equal(t, "Lviv, UA", d.Place)
	assert.Contains(t, h.observer.outcomes, OutcomeError)
}

func TestMissingCredential_DegradesToPlaceholders(t *testing.T) {
	h := newHarness(t, location.DisabledGeolocator{})
	h.client.currentErr = weather.ErrMissingCredential

	err := h.updater.Init(context.Background())
	assert.ErrorIs(t, err, weather.ErrMissingCredential)

	d := h.updater.Display()
	assert.Equal(t, StatusMissingKey, d.Status)
	assert.Equal(t, PlaceholderValue, d.Temperature)
}

func TestStaleResponseIsDiscarded(t *testing.T) {
	h := newHarness(t, location.DisabledGeolocator{})
	ctx := context.Background()

	gate := make(chan struct{})
	h.client.gates[1] = gate
	h.client.entered = make(chan float64, 1)

	var slowErr error
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		slowErr = h.updater.Search(ctx, "Slowtown")
	}()

	<-h.client.entered
	require.NoError(t, h.updater.Search(ctx, "Fasttown"))
	close(gate)
	wg.Wait()

	require.NoError(t, slowErr)
	assert.Equal(t, "Fasttown, BB", h.updater.Display().Place)
	assert.Contains(t, h.observer.outcomes, OutcomeStale)

	// The known location follows the newest request too.
	require.NoError(t, h.updater.Refresh(ctx))
	assert.Equal(t, "Fasttown, BB", h.updater.Display().Place)
}

func TestRefresh_NoLocationIsNoop(t *testing.T) {
	h := newHarness(t, location.DisabledGeolocator{})

	require.NoError(t, h.updater.Refresh(context.Background()))
	ran, err := h.updater.RefreshIfIdle(context.Background())
	require.NoError(t, err)
	assert.False(t, ran)
	assert.Zero(t, h.client.calls())
}

func TestRefreshIfIdle_SkipsWhileSearchInFlight(t *testing.T) {
	h := newHarness(t, location.DisabledGeolocator{})
	ctx := context.Background()
	require.NoError(t, h.updater.Search(ctx, "Lviv"))

	gate := make(chan struct{})
	h.client.gates[1] = gate
	h.client.entered = make(chan float64, 1)

	var searchErr error
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		searchErr = h.updater.Search(ctx, "Slowtown")
	}()

	<-h.client.entered
	ran, err := h.updater.RefreshIfIdle(ctx)
	require.NoError(t, err)
	assert.False(t, ran)
	assert.Equal(t, 2, h.client.calls())

	close(gate)
	wg.Wait()
	require.NoError(t, searchErr)
	assert.Equal(t, "Slowtown, AA", h.updater.Display().Place)
}

func TestRefreshIfIdle_SearchStartedDuringRefreshWins(t *testing.T) {
	h := newHarness(t, location.DisabledGeolocator{})
	ctx := context.Background()
	require.NoError(t, h.updater.Search(ctx, "Slowtown"))

	gate := make(chan struct{})
	h.client.mu.Lock()
	h.client.gates[1] = gate
	h.client.entered = make(chan float64, 1)
	h.client.mu.Unlock()

	var ran bool
	var refreshErr error
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		ran, refreshErr = h.updater.RefreshIfIdle(ctx)
	}()

	<-h.client.entered
	require.NoError(t, h.updater.Search(ctx, "Fasttown"))
	close(gate)
	wg.Wait()

	require.NoError(t, refreshErr)
	assert.True(t, ran)
	assert.Equal(t, "Fasttown, BB", h.updater.Display().Place)
	assert.Contains(t, h.observer.outcomes, OutcomeStale)

	stored, err := h.prefs.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Fasttown", stored.LastCity)

	// The next scheduled refresh targets the searched city.
	ran, err = h.updater.RefreshIfIdle(ctx)
	require.NoError(t, err)
	assert.True(t, ran)
	assert.Equal(t, "Fasttown, BB", h.updater.Display().Place)
}

func TestToggleUnit_ConcurrentTogglesAllApply(t *testing.T) {
	h := newHarness(t, location.DisabledGeolocator{})
	ctx := context.Background()

	const toggles = 8
	var wg sync.WaitGroup
	for i := 0; i < toggles; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, h.updater.ToggleUnit(ctx))
		}()
	}
	wg.Wait()

	assert.Equal(t, weather.UnitMetric, h.updater.Preferences().Unit)
	stored, err := h.prefs.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, weather.UnitMetric, stored.Unit)

	require.NoError(t, h.updater.ToggleUnit(ctx))
	assert.Equal(t, weather.UnitImperial, h.updater.Preferences().Unit)
}

func TestApplySettings_KeepsLastCity(t *testing.T) {
	h := newHarness(t, location.DisabledGeolocator{})
	ctx := context.Background()
	require.NoError(t, h.updater.Search(ctx, "Lviv"))

	require.NoError(t, h.updater.ApplySettings(ctx, Settings{Theme: prefs.ThemeDark}))
	assert.Equal(t, "Lviv", h.updater.Preferences().LastCity)
}

func TestDisplay_JSONKeepsEmptyLists(t *testing.T) {
	client := newFakeClient()
	ps := prefs.New(store.NewMemoryStore(), prefs.Preferences{}, zerolog.Nop())
	u := NewUpdater(client, location.NewResolver(location.DisabledGeolocator{}, client, zerolog.Nop()), ps, Options{
		ForecastEnabled: false,
		EffectsEnabled:  true,
	}, zerolog.Nop())
	u.now = func() time.Time { return fixedNow }
	ctx := context.Background()

	assertEmptyLists := func(t *testing.T, d Display) {
		t.Helper()
		raw, err := json.Marshal(d)
		require.NoError(t, err)
		assert.Contains(t, string(raw), `"effectNodes":[]`)
		assert.Contains(t, string(raw), `"hourly":[]`)
		assert.Contains(t, string(raw), `"daily":[]`)
		assert.NotContains(t, string(raw), "null")
	}

	assertEmptyLists(t, u.Display())

	require.NoError(t, u.Search(ctx, "Lviv"))
	require.NoError(t, u.ApplySettings(ctx, Settings{Animations: prefs.Off}))
	assertEmptyLists(t, u.Display())
}

func TestRender_FillsForecastAndEffects(t *testing.T) {
	h := newHarness(t, location.DisabledGeolocator{})
	require.NoError(t, h.updater.Search(context.Background(), "Lviv"))

	d := h.updater.Display()
	assert.Equal(t, "Lviv", d.PlaceShort)
	assert.Equal(t, "20°C", d.FeelsLike)
	assert.Equal(t, "64%", d.Humidity)
	assert.Equal(t, "3.4 m/s", d.Wind)
	assert.Equal(t, "1012 hPa", d.Pressure)
	assert.Equal(t, "23:13", d.Sunrise)
	assert.Equal(t, "https://openweathermap.org/img/wn/10d@4x.png", d.Icon)
	require.Len(t, d.Hourly, 1)
	assert.Equal(t, "21°", d.Hourly[0].Temp)
	assert.Equal(t, "40% rain", d.Hourly[0].Precip)
	require.Len(t, d.Daily, 1)
	assert.Equal(t, "22° / 11°", d.Daily[0].Max+" / "+d.Daily[0].Min)

	assert.Equal(t, string(effects.KindRain), d.EffectKind)
	assert.Len(t, d.EffectNodes, h.updater.layer.Len())
	assert.Equal(t, effects.ColorMild, string(d.Background))
}

func TestRender_RepeatedRefreshDoesNotGrowEffects(t *testing.T) {
	h := newHarness(t, location.DisabledGeolocator{})
	ctx := context.Background()
	require.NoError(t, h.updater.Search(ctx, "Lviv"))
	want := h.updater.layer.Len()
	require.NotZero(t, want)

	for i := 0; i < 5; i++ {
		require.NoError(t, h.updater.Refresh(ctx))
		assert.Equal(t, want, h.updater.layer.Len())
	}
}

func TestRender_Idempotent(t *testing.T) {
	require.NoError(t, LoadTemplates())
	h := newHarness(t, location.DisabledGeolocator{})
	ctx := context.Background()
	require.NoError(t, h.updater.Search(ctx, "Lviv"))

	var first, second bytes.Buffer
	require.NoError(t, h.updater.Render(&first))
	require.NoError(t, h.updater.Refresh(ctx))
	require.NoError(t, h.updater.Render(&second))

	assert.Equal(t, first.String(), second.String())
	assert.Contains(t, first.String(), "Lviv, UA")
	assert.Contains(t, first.String(), `class="rain-drop"`)
}

func TestApplySettings_AnimationsToggle(t *testing.T) {
	h := newHarness(t, location.DisabledGeolocator{})
	ctx := context.Background()
	require.NoError(t, h.updater.Search(ctx, "Lviv"))
	want := len(h.updater.Display().EffectNodes)
	require.NotZero(t, want)

	require.NoError(t, h.updater.ApplySettings(ctx, Settings{Animations: prefs.Off}))
	assert.Empty(t, h.updater.Display().EffectNodes)
	assert.Zero(t, h.updater.layer.Len())
	assert.Equal(t, 1, h.client.calls())

	require.NoError(t, h.updater.ApplySettings(ctx, Settings{Animations: prefs.On}))
	assert.Len(t, h.updater.Display().EffectNodes, want)
}

func TestApplySettings_APIKeySwapsCredentialAndRefetches(t *testing.T) {
	h := newHarness(t, location.DisabledGeolocator{})
	ctx := context.Background()
	require.NoError(t, h.updater.Search(ctx, "Lviv"))

	require.NoError(t, h.updater.ApplySettings(ctx, Settings{APIKey: " new-key ", Unit: weather.UnitImperial}))
	assert.Equal(t, "new-key", h.client.apiKey)
	assert.Equal(t, 2, h.client.calls())

	stored, err := h.prefs.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, "new-key", stored.APIKey)
	assert.Equal(t, weather.UnitImperial, stored.Unit)
}

func TestApplySettings_ThemeAndForecastOnly(t *testing.T) {
	h := newHarness(t, location.DisabledGeolocator{})
	ctx := context.Background()
	require.NoError(t, h.updater.Search(ctx, "Lviv"))

	require.NoError(t, h.updater.ApplySettings(ctx, Settings{Theme: prefs.ThemeDark, ForecastMode: prefs.ForecastDaily}))
	assert.Equal(t, 1, h.client.calls())

	d := h.updater.Display()
	assert.Equal(t, "dark", d.Theme)
	assert.Equal(t, "daily", d.ForecastMode)
	assert.Equal(t, StatusSettingsSaved, d.Status)
}

func TestStatusForError(t *testing.T) {
	assert.Equal(t, StatusCityNotFound, statusForError(&weather.NotFoundError{Query: "x"}))
	assert.Equal(t, StatusMissingKey, statusForError(weather.ErrMissingCredential))
	assert.Equal(t, StatusEmptyQuery, statusForError(location.ErrEmptyQuery))
	assert.Equal(t, StatusFetchFailed, statusForError(errors.New("dial tcp: timeout")))
}
