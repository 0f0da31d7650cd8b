package providers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sony/gobreaker"

	"github.com/i474232898/weather-dashboard/internal/weather"
)

// HTTPDoer is the subset of *http.Client used by providers.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// BreakerConfig controls when the provider circuit opens.
type BreakerConfig struct {
	Interval            time.Duration
	Timeout             time.Duration
	ConsecutiveFailures uint32
}

// RequestObserver receives the outcome of every provider call.
type RequestObserver interface {
	ObserveProviderRequest(operation, outcome string, d time.Duration)
}

// maxBodyBytes bounds how much of a response body is read.
const maxBodyBytes = 1 << 20

var (
	errCircuitOpen  = errors.New("circuit breaker open")
	errNoHTTPClient = errors.New("http client not configured")
)

// response is a fully read provider response.
type response struct {
	status int
	body   []byte
}

func (r response) ok() bool {
	return r.status >= 200 && r.status < 300
}

// serverError marks a 5xx response so the breaker counts it as a failure.
type serverError struct {
	resp response
}

func (e *serverError) Error() string {
	return fmt.Sprintf("server error: status %d", e.resp.status)
}

func newBreaker(name string, cfg BreakerConfig) *gobreaker.CircuitBreaker {
	failures := cfg.ConsecutiveFailures
	if failures == 0 {
		failures = 5
	}
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= failures
		},
	})
}

// doRequest executes a single attempt through the circuit breaker and reads
// the body. Transport failures and 5xx responses count against the breaker;
// 4xx responses are returned to the caller for classification.
func doRequest(
	ctx context.Context,
	client HTTPDoer,
	cb *gobreaker.CircuitBreaker,
	buildRequest func() (*http.Request, error),
) (response, error) {
	if client == nil {
		return response{}, &weather.NetworkError{Err: errNoHTTPClient}
	}

	req, err := buildRequest()
	if err != nil {
		return response{}, err
	}
	req = req.WithContext(ctx)

	result, err := cb.Execute(func() (interface{}, error) {
		resp, execErr := client.Do(req)
		if execErr != nil {
			return nil, execErr
		}
		defer func() { _ = resp.Body.Close() }()

		body, readErr := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
		if readErr != nil {
			return nil, readErr
		}

		r := response{status: resp.StatusCode, body: body}
		if resp.StatusCode >= 500 {
			return nil, &serverError{resp: r}
		}
		return r, nil
	})
	if err != nil {
		var se *serverError
		if errors.As(err, &se) {
			return se.resp, nil
		}
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return response{}, &weather.NetworkError{Err: fmt.Errorf("%w: %v", errCircuitOpen, err)}
		}
		return response{}, &weather.NetworkError{Err: err}
	}

	r, ok := result.(response)
	if !ok {
		return response{}, fmt.Errorf("unexpected result type from circuit breaker")
	}
	return r, nil
}
