package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/sony/gobreaker"

	"github.com/i474232898/weather-dashboard/internal/weather"
)

const (
	// DefaultOpenWeatherURL is the fixed base endpoint of the provider.
	DefaultOpenWeatherURL = "https://api.openweathermap.org/data/2.5"

	forecastExclude = "minutely,alerts"
	hourlyLimit     = 24
	dailyLimit      = 5
)

// OpenWeatherOptions configures an OpenWeatherProvider.
type OpenWeatherOptions struct {
	BaseURL string
	APIKey  string
	// Absolute requests Kelvin readings and converts them locally.
	Absolute bool
	Breaker  BreakerConfig
	Observer RequestObserver
}

// OpenWeatherProvider implements weather.Client for OpenWeatherMap.
type OpenWeatherProvider struct {
	name     string
	baseURL  string
	absolute bool
	client   HTTPDoer
	circuit  *gobreaker.CircuitBreaker
	observer RequestObserver
	logger   zerolog.Logger

	mu     sync.RWMutex
	apiKey string
}

func NewOpenWeatherProvider(client HTTPDoer, opts OpenWeatherOptions, logger zerolog.Logger) *OpenWeatherProvider {
	base := strings.TrimRight(opts.BaseURL, "/")
	if base == "" {
		base = DefaultOpenWeatherURL
	}

	return &OpenWeatherProvider{
		name:     "openweathermap",
		baseURL:  base,
		absolute: opts.Absolute,
		client:   client,
		circuit:  newBreaker("openweather", opts.Breaker),
		observer: opts.Observer,
		logger:   logger,
		apiKey:   opts.APIKey,
	}
}

func (p *OpenWeatherProvider) Name() string {
	return p.name
}

// SetAPIKey replaces the credential used for subsequent requests.
func (p *OpenWeatherProvider) SetAPIKey(key string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.apiKey = strings.TrimSpace(key)
}

func (p *OpenWeatherProvider) key() string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.apiKey
}

// ResolveCity resolves a city name into coordinates via the current-conditions endpoint.
func (p *OpenWeatherProvider) ResolveCity(ctx context.Context, city string) (weather.Location, error) {
	values := url.Values{}
	values.Set("q", city)

	resp, err := p.call(ctx, "resolve_city", "weather", values)
	if err != nil {
		return weather.Location{}, err
	}
	if !resp.ok() {
		p.logger.Warn().
			Ctx(ctx).
			Str("city", city).
			Int("status", resp.status).
			Msg("city lookup returned non-success status")
		return weather.Location{}, &weather.NotFoundError{Query: city, Message: providerMessage(resp)}
	}

	var payload struct {
		Coord struct {
			Lat float64 `json:"lat"`
			Lon float64 `json:"lon"`
		} `json:"coord"`
		Name string `json:"name"`
		Sys  struct {
			Country string `json:"country"`
		} `json:"sys"`
	}
	if err := json.Unmarshal(resp.body, &payload); err != nil {
		return weather.Location{}, fmt.Errorf("decode city lookup: %w", err)
	}

	return weather.Location{
		Latitude:    payload.Coord.Lat,
		Longitude:   payload.Coord.Lon,
		DisplayName: payload.Name,
		CountryCode: payload.Sys.Country,
	}, nil
}

// Current fetches current conditions for a coordinate pair.
func (p *OpenWeatherProvider) Current(ctx context.Context, lat, lon float64, unit weather.Unit) (weather.Snapshot, error) {
	unit = normalizeUnit(unit)
	values := p.coordValues(lat, lon, unit)

	resp, err := p.call(ctx, "current", "weather", values)
	if err != nil {
		return weather.Snapshot{}, err
	}
	if !resp.ok() {
		return weather.Snapshot{}, &weather.NetworkError{Status: resp.status, Body: string(resp.body)}
	}

	var payload struct {
		Dt   int64 `json:"dt"`
		Name string `json:"name"`
		Main struct {
			Temp      float64 `json:"temp"`
			FeelsLike float64 `json:"feels_like"`
			Humidity  float64 `json:"humidity"`
			Pressure  float64 `json:"pressure"`
		} `json:"main"`
		Wind struct {
			Speed float64 `json:"speed"`
		} `json:"wind"`
		Weather []struct {
			Main        string `json:"main"`
			Description string `json:"description"`
			Icon        string `json:"icon"`
		} `json:"weather"`
		Sys struct {
			Country string `json:"country"`
			Sunrise int64  `json:"sunrise"`
			Sunset  int64  `json:"sunset"`
		} `json:"sys"`
		Timezone int `json:"timezone"`
	}
	if err := json.Unmarshal(resp.body, &payload); err != nil {
		return weather.Snapshot{}, fmt.Errorf("decode current conditions: %w", err)
	}

	snap := weather.Snapshot{
		Temperature:    p.temperature(payload.Main.Temp, unit),
		FeelsLike:      p.temperature(payload.Main.FeelsLike, unit),
		Humidity:       payload.Main.Humidity,
		WindSpeed:      p.wind(payload.Wind.Speed, unit),
		Pressure:       payload.Main.Pressure,
		SunriseUnix:    payload.Sys.Sunrise,
		SunsetUnix:     payload.Sys.Sunset,
		TimezoneOffset: payload.Timezone,
		ObservedAtUnix: payload.Dt,
		Units:          unit,
		PlaceName:      payload.Name,
		CountryCode:    payload.Sys.Country,
	}
	if len(payload.Weather) > 0 {
		snap.ConditionMain = payload.Weather[0].Main
		snap.ConditionDescription = payload.Weather[0].Description
		snap.IconID = payload.Weather[0].Icon
	}
	if snap.ObservedAtUnix == 0 {
		snap.ObservedAtUnix = time.Now().Unix()
	}

	return snap, nil
}

// Forecast fetches the next 24 hours and the next 5 days (today excluded).
func (p *OpenWeatherProvider) Forecast(ctx context.Context, lat, lon float64, unit weather.Unit) (weather.Forecast, error) {
	unit = normalizeUnit(unit)
	values := p.coordValues(lat, lon, unit)
	values.Set("exclude", forecastExclude)

	resp, err := p.call(ctx, "forecast", "onecall", values)
	if err != nil {
		return weather.Forecast{}, err
	}
	if !resp.ok() {
		return weather.Forecast{}, &weather.NetworkError{Status: resp.status, Body: string(resp.body)}
	}

	type condition struct {
		Icon string `json:"icon"`
	}
	var payload struct {
		TimezoneOffset int `json:"timezone_offset"`
		Hourly         []struct {
			Dt      int64       `json:"dt"`
			Temp    float64     `json:"temp"`
			Pop     float64     `json:"pop"`
			Weather []condition `json:"weather"`
		} `json:"hourly"`
		Daily []struct {
			Dt   int64 `json:"dt"`
			Temp struct {
				Min float64 `json:"min"`
				Max float64 `json:"max"`
			} `json:"temp"`
			Pop     float64     `json:"pop"`
			Weather []condition `json:"weather"`
		} `json:"daily"`
	}
	if err := json.Unmarshal(resp.body, &payload); err != nil {
		return weather.Forecast{}, fmt.Errorf("decode forecast: %w", err)
	}

	icon := func(items []condition) string {
		if len(items) == 0 {
			return "01d"
		}
		return items[0].Icon
	}

	out := weather.Forecast{TimezoneOffset: payload.TimezoneOffset}
	for i, h := range payload.Hourly {
		if i >= hourlyLimit {
			break
		}
		out.Hourly = append(out.Hourly, weather.HourlyEntry{
			TimeUnix:          h.Dt,
			Temperature:       p.temperature(h.Temp, unit),
			PrecipProbability: h.Pop,
			IconID:            icon(h.Weather),
		})
	}
	for i, d := range payload.Daily {
		if i == 0 {
			continue
		}
		if len(out.Daily) >= dailyLimit {
			break
		}
		out.Daily = append(out.Daily, weather.DailyEntry{
			TimeUnix:          d.Dt,
			Min:               p.temperature(d.Temp.Min, unit),
			Max:               p.temperature(d.Temp.Max, unit),
			PrecipProbability: d.Pop,
			IconID:            icon(d.Weather),
		})
	}

	return out, nil
}

func (p *OpenWeatherProvider) coordValues(lat, lon float64, unit weather.Unit) url.Values {
	values := url.Values{}
	values.Set("lat", strconv.FormatFloat(lat, 'f', -1, 64))
	values.Set("lon", strconv.FormatFloat(lon, 'f', -1, 64))
	if !p.absolute {
		values.Set("units", string(unit))
	}
	return values
}

func (p *OpenWeatherProvider) temperature(v float64, unit weather.Unit) float64 {
	if p.absolute {
		return weather.FromKelvin(v, unit)
	}
	return v
}

func (p *OpenWeatherProvider) wind(v float64, unit weather.Unit) float64 {
	if p.absolute {
		return weather.WindFromMetric(v, unit)
	}
	return v
}

// call performs one GET against {base}/{path} with the api key attached.
func (p *OpenWeatherProvider) call(ctx context.Context, op, path string, values url.Values) (response, error) {
	apiKey := p.key()
	if apiKey == "" {
		return response{}, weather.ErrMissingCredential
	}
	values.Set("appid", apiKey)

	buildRequest := func() (*http.Request, error) {
		u := fmt.Sprintf("%s/%s?%s", p.baseURL, path, values.Encode())
		return http.NewRequest(http.MethodGet, u, nil)
	}

	start := time.Now()
	resp, err := doRequest(ctx, p.client, p.circuit, buildRequest)
	duration := time.Since(start)

	outcome := "ok"
	switch {
	case err != nil:
		outcome = "error"
		p.logger.Error().
			Ctx(ctx).
			Err(err).
			Str("operation", op).
			Dur("duration_ms", duration).
			Msg("provider request failed")
	case !resp.ok():
		outcome = strconv.Itoa(resp.status)
		p.logger.Debug().
			Ctx(ctx).
			Str("operation", op).
			Int("status", resp.status).
			Dur("duration_ms", duration).
			Msg("provider returned non-success status")
	default:
		p.logger.Debug().
			Ctx(ctx).
			Str("operation", op).
			Dur("duration_ms", duration).
			Msg("provider request succeeded")
	}
	if p.observer != nil {
		p.observer.ObserveProviderRequest(op, outcome, duration)
	}

	return resp, err
}

func normalizeUnit(u weather.Unit) weather.Unit {
	if u.Valid() {
		return u
	}
	return weather.UnitMetric
}

// providerMessage extracts the provider's "message" field, falling back to the status text.
func providerMessage(r response) string {
	var body struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(r.body, &body); err == nil && body.Message != "" {
		return body.Message
	}
	return http.StatusText(r.status)
}

// IconURL returns the provider asset for an icon id; size is "" or e.g. "@4x".
func IconURL(iconID, size string) string {
	if iconID == "" {
		return ""
	}
	return fmt.Sprintf("https://openweathermap.org/img/wn/%s%s.png", iconID, size)
}
