package location

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/i474232898/weather-dashboard/internal/weather"
)

var (
	// ErrPermissionDenied is returned when geolocation is disabled.
	ErrPermissionDenied = errors.New("geolocation permission denied")
	// ErrUnavailable is returned when no position can be determined.
	ErrUnavailable = errors.New("geolocation unavailable")
	// ErrEmptyQuery is returned for blank city searches.
	ErrEmptyQuery = errors.New("empty city query")
)

// DefaultIPLookupURL is the IP geolocation endpoint used by IPGeolocator.
const DefaultIPLookupURL = "http://ip-api.com/json"

// Fix is a device position with the time it was taken.
type Fix struct {
	Latitude  float64
	Longitude float64
	TakenAt   time.Time
}

// Geolocator produces the current position.
type Geolocator interface {
	Position(ctx context.Context) (Fix, error)
}

// HTTPDoer is the subset of *http.Client used for lookups.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// IPGeolocator approximates the position from the public IP address.
type IPGeolocator struct {
	client HTTPDoer
	url    string
	now    func() time.Time
}

func NewIPGeolocator(client HTTPDoer, url string) *IPGeolocator {
	if url == "" {
		url = DefaultIPLookupURL
	}
	return &IPGeolocator{client: client, url: url, now: time.Now}
}

func (g *IPGeolocator) Position(ctx context.Context) (Fix, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.url, nil)
	if err != nil {
		return Fix{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	resp, err := g.client.Do(req)
	if err != nil {
		return Fix{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return Fix{}, fmt.Errorf("%w: lookup status %d", ErrUnavailable, resp.StatusCode)
	}

	var payload struct {
		Status  string  `json:"status"`
		Message string  `json:"message"`
		Lat     float64 `json:"lat"`
		Lon     float64 `json:"lon"`
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, 64<<10)).Decode(&payload); err != nil {
		return Fix{}, fmt.Errorf("%w: decode lookup: %v", ErrUnavailable, err)
	}
	if payload.Status == "fail" {
		return Fix{}, fmt.Errorf("%w: %s", ErrUnavailable, payload.Message)
	}

	return Fix{Latitude: payload.Lat, Longitude: payload.Lon, TakenAt: g.now()}, nil
}

// StaticGeolocator always reports the configured coordinates.
type StaticGeolocator struct {
	Latitude  float64
	Longitude float64
}

func (g StaticGeolocator) Position(context.Context) (Fix, error) {
	return Fix{Latitude: g.Latitude, Longitude: g.Longitude, TakenAt: time.Now()}, nil
}

// DisabledGeolocator denies every request.
type DisabledGeolocator struct{}

func (DisabledGeolocator) Position(context.Context) (Fix, error) {
	return Fix{}, ErrPermissionDenied
}

func (f Fix) location() weather.Location {
	return weather.Location{Latitude: f.Latitude, Longitude: f.Longitude}
}
