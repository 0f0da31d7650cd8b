package weather

import (
	"errors"
	"fmt"
)

// ErrMissingCredential is returned when no provider API key is configured.
var ErrMissingCredential = errors.New("weather api key is not configured")

// NotFoundError is returned when a city lookup has no match.
type NotFoundError struct {
	Query   string
	Message string
}

func (e *NotFoundError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("city %q not found", e.Query)
	}
	return fmt.Sprintf("city %q not found: %s", e.Query, e.Message)
}

// NetworkError is returned for non-success statuses and transport failures.
// Status is zero when the request never produced a response.
type NetworkError struct {
	Status int
	Body   string
	Err    error
}

func (e *NetworkError) Error() string {
	if e.Status == 0 {
		return fmt.Sprintf("weather request failed: %v", e.Err)
	}
	return fmt.Sprintf("weather fetch failed: status %d: %s", e.Status, e.Body)
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

// IsNotFound reports whether err is, or wraps, a *NotFoundError.
func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}

// IsNetwork reports whether err is, or wraps, a *NetworkError.
func IsNetwork(err error) bool {
	var ne *NetworkError
	return errors.As(err, &ne)
}
