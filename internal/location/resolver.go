package location

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/i474232898/weather-dashboard/internal/weather"
)

const (
	// DefaultTimeout bounds a single geolocation attempt.
	DefaultTimeout = 8 * time.Second
	// DefaultMaxAge is how old a cached fix may be and still be reused.
	DefaultMaxAge = 10 * time.Minute
)

// CityResolver is the part of weather.Client used for city search.
type CityResolver interface {
	ResolveCity(ctx context.Context, city string) (weather.Location, error)
}

// Resolver turns geolocation or a city name into coordinates.
type Resolver struct {
	geo     Geolocator
	cities  CityResolver
	timeout time.Duration
	maxAge  time.Duration
	now     func() time.Time
	logger  zerolog.Logger

	mu     sync.Mutex
	cached *Fix
}

// NewResolver creates a Resolver. A nil geolocator behaves as unavailable.
func NewResolver(geo Geolocator, cities CityResolver, logger zerolog.Logger) *Resolver {
	return &Resolver{
		geo:     geo,
		cities:  cities,
		timeout: DefaultTimeout,
		maxAge:  DefaultMaxAge,
		now:     time.Now,
		logger:  logger,
	}
}

// Locate returns the device position, reusing a recent fix when one exists.
func (r *Resolver) Locate(ctx context.Context) (weather.Location, error) {
	if r.geo == nil {
		return weather.Location{}, ErrUnavailable
	}

	r.mu.Lock()
	if r.cached != nil && r.now().Sub(r.cached.TakenAt) <= r.maxAge {
		fix := *r.cached
		r.mu.Unlock()
		r.logger.Debug().Ctx(ctx).Time("taken_at", fix.TakenAt).Msg("using cached position")
		return fix.location(), nil
	}
	r.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	type result struct {
		fix Fix
		err error
	}
	done := make(chan result, 1)
	go func() {
		fix, err := r.geo.Position(ctx)
		done <- result{fix: fix, err: err}
	}()

	var res result
	select {
	case res = <-done:
	case <-ctx.Done():
		res.err = fmt.Errorf("%w: %v", ErrUnavailable, ctx.Err())
	}

	if res.err != nil {
		if !errors.Is(res.err, ErrPermissionDenied) && !errors.Is(res.err, ErrUnavailable) {
			res.err = fmt.Errorf("%w: %v", ErrUnavailable, res.err)
		}
		r.logger.Warn().Ctx(ctx).Err(res.err).Msg("geolocation failed")
		return weather.Location{}, res.err
	}

	if res.fix.TakenAt.IsZero() {
		res.fix.TakenAt = r.now()
	}
	r.mu.Lock()
	r.cached = &res.fix
	r.mu.Unlock()

	return res.fix.location(), nil
}

// ByCity resolves a free-text city name.
func (r *Resolver) ByCity(ctx context.Context, name string) (weather.Location, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return weather.Location{}, ErrEmptyQuery
	}
	loc, err := r.cities.ResolveCity(ctx, name)
	if err != nil {
		return weather.Location{}, err
	}
	if loc.DisplayName == "" {
		loc.DisplayName = name
	}
	return loc, nil
}
