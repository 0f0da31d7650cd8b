package config

import (
	"fmt"
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"

	"github.com/i474232898/weather-dashboard/internal/weather"
)

// Geolocation modes.
const (
	GeoIP       = "ip"
	GeoStatic   = "static"
	GeoDisabled = "disabled"
)

// Store drivers.
const (
	StoreMemory = "memory"
	StoreSQLite = "sqlite"
	StoreRedis  = "redis"
)

type OpenWeather struct {
	APIKey   string `envconfig:"OPENWEATHER_API_KEY"`
	URL      string `envconfig:"OPENWEATHER_URL" default:"https://api.openweathermap.org/data/2.5"`
	Absolute bool   `envconfig:"OPENWEATHER_ABSOLUTE" default:"false"`
}

type Breaker struct {
	Interval            time.Duration `envconfig:"BREAKER_INTERVAL" default:"30s"`
	Timeout             time.Duration `envconfig:"BREAKER_TIMEOUT" default:"10s"`
	ConsecutiveFailures uint32        `envconfig:"BREAKER_REPEAT_NUM" default:"5"`
}

type Geolocation struct {
	Mode string  `envconfig:"GEOLOCATION_MODE" default:"ip"`
	URL  string  `envconfig:"GEOLOCATION_URL" default:"http://ip-api.com/json"`
	Lat  float64 `envconfig:"HOME_LAT"`
	Lon  float64 `envconfig:"HOME_LON"`
}

type Store struct {
	Driver     string `envconfig:"STORE_DRIVER" default:"sqlite"`
	SQLitePath string `envconfig:"SQLITE_PATH" default:"./data/preferences.db"`
	RedisAddr  string `envconfig:"REDIS_ADDR" default:"localhost:6379"`
	RedisDB    int    `envconfig:"REDIS_DB" default:"0"`
}

type AppConfig struct {
	OpenWeather OpenWeather
	Breaker     Breaker
	Geolocation Geolocation
	Store       Store

	Port        string        `envconfig:"PORT" default:"8080"`
	HTTPTimeout time.Duration `envconfig:"HTTP_TIMEOUT" default:"10s"`

	DefaultCity     string       `envconfig:"DEFAULT_CITY" default:"Johannesburg"`
	DefaultUnit     weather.Unit `envconfig:"DEFAULT_UNIT" default:"metric"`
	ForecastEnabled bool         `envconfig:"FORECAST_ENABLED" default:"true"`
	EffectsEnabled  bool         `envconfig:"EFFECTS_ENABLED" default:"true"`

	// RefreshInterval controls how often the known location is re-fetched.
	RefreshInterval time.Duration `envconfig:"REFRESH_INTERVAL" default:"15m"`

	LogLevel     string `envconfig:"LOG_LEVEL" default:"debug"`
	LogsPath     string `envconfig:"LOGS_PATH" default:"./log/weather-dashboard.log"`
	HTTPLogsPath string `envconfig:"HTTP_LOGS_PATH" default:"./log/weather-dashboard-http.log"`
}

// Load reads configuration from .env and the environment with sensible defaults.
func Load() (*AppConfig, error) {
	if err := godotenv.Load(); err != nil {
		log.Printf("INFO: No .env file found or error loading it: %v", err)
	}

	cfg := &AppConfig{}
	if err := envconfig.Process("", cfg); err != nil {
		return nil, fmt.Errorf("process env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the enum and range fields envconfig cannot express.
func (c *AppConfig) Validate() error {
	if !c.DefaultUnit.Valid() {
		return fmt.Errorf("invalid DEFAULT_UNIT %q: want metric or imperial", c.DefaultUnit)
	}
	switch c.Geolocation.Mode {
	case GeoIP, GeoStatic, GeoDisabled:
	default:
		return fmt.Errorf("invalid GEOLOCATION_MODE %q: want ip, static or disabled", c.Geolocation.Mode)
	}
	if c.Geolocation.Mode == GeoStatic {
		if c.Geolocation.Lat < -90 || c.Geolocation.Lat > 90 || c.Geolocation.Lon < -180 || c.Geolocation.Lon > 180 {
			return fmt.Errorf("HOME_LAT/HOME_LON out of range: %v,%v", c.Geolocation.Lat, c.Geolocation.Lon)
		}
	}
	switch c.Store.Driver {
	case StoreMemory, StoreSQLite, StoreRedis:
	default:
		return fmt.Errorf("invalid STORE_DRIVER %q: want memory, sqlite or redis", c.Store.Driver)
	}
	if c.RefreshInterval < time.Minute {
		return fmt.Errorf("REFRESH_INTERVAL must be at least 1m, got %s", c.RefreshInterval)
	}
	return nil
}
