package weather

import (
	"context"
)

// Client abstracts the weather provider used by the dashboard.
type Client interface {
	// ResolveCity looks up a free-text city name. It fails with *NotFoundError
	// when the provider has no match.
	ResolveCity(ctx context.Context, city string) (Location, error)
	// Current fetches current conditions for a coordinate pair.
	Current(ctx context.Context, lat, lon float64, unit Unit) (Snapshot, error)
	// Forecast fetches the hourly and daily strips for a coordinate pair.
	Forecast(ctx context.Context, lat, lon float64, unit Unit) (Forecast, error)
}

// CredentialSetter is implemented by clients whose API key can be replaced
// at runtime from the settings form.
type CredentialSetter interface {
	SetAPIKey(key string)
}
