package transport

import (
	"bytes"
	"io"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"
)

// snippetLimit bounds how much of a response body is logged.
const snippetLimit = 512

// RoundTripper logs every outbound request with the api key redacted.
type RoundTripper struct {
	Logger *zap.Logger
	Proxy  http.RoundTripper
}

func NewRoundTripper(logger *zap.Logger) *RoundTripper {
	return &RoundTripper{
		Logger: logger,
		Proxy:  http.DefaultTransport,
	}
}

func (l *RoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	start := time.Now()
	resp, err := l.Proxy.RoundTrip(req)
	duration := time.Since(start)

	target := redact(req.URL)
	if err != nil {
		l.Logger.Error("HTTP request failed",
			zap.String("method", req.Method),
			zap.String("url", target),
			zap.Duration("duration", duration),
			zap.Error(err),
		)
		return nil, err
	}

	snippet, err := io.ReadAll(io.LimitReader(resp.Body, snippetLimit))
	if err != nil {
		_ = resp.Body.Close()
		l.Logger.Error("Failed to read response body",
			zap.String("method", req.Method),
			zap.String("url", target),
			zap.Duration("duration", duration),
			zap.Error(err),
		)
		return nil, err
	}
	// Only the snippet is buffered; the rest streams from the original body.
	resp.Body = readCloser{
		Reader: io.MultiReader(bytes.NewReader(snippet), resp.Body),
		Closer: resp.Body,
	}

	l.Logger.Info("HTTP request completed",
		zap.String("method", req.Method),
		zap.String("url", target),
		zap.ByteString("body_snipped", snippet),
		zap.Int("status_code", resp.StatusCode),
		zap.Duration("duration", duration),
	)

	return resp, nil
}

type readCloser struct {
	io.Reader
	io.Closer
}

func redact(u *url.URL) string {
	q := u.Query()
	if q.Has("appid") {
		q.Set("appid", "REDACTED")
	}
	c := *u
	c.RawQuery = q.Encode()
	return c.String()
}
