package providers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	"github.com/i474232898/smart-city-dashboard/internal/dashboard"
)

// BackoffConfig controls exponential backoff behaviour.
type BackoffConfig struct {
	MaxRetries      int
	InitialInterval time.Duration
	MaxInterval     time.Duration
}

// HTTPClientConfig bundles HTTP client and resilience settings.
type HTTPClientConfig struct {
	Client  *http.Client
	Backoff BackoffConfig
	Limiter *rate.Limiter
}

// Options are the shared adapter settings.
type Options struct {
	Client *http.Client
	// MaxRetries is 0 by default: a failed call is reported, not repeated.
	MaxRetries int
	// RatePerSecond <= 0 disables rate limiting.
	RatePerSecond float64
	Burst         int
}

func (o Options) httpConfig() HTTPClientConfig {
	cfg := HTTPClientConfig{
		Client: o.Client,
		Backoff: BackoffConfig{
			MaxRetries:      o.MaxRetries,
			InitialInterval: 500 * time.Millisecond,
			MaxInterval:     5 * time.Second,
		},
	}
	if cfg.Client == nil {
		cfg.Client = &http.Client{Timeout: 10 * time.Second}
	}
	if o.RatePerSecond > 0 {
		burst := o.Burst
		if burst <= 0 {
			burst = 1
		}
		cfg.Limiter = rate.NewLimiter(rate.Limit(o.RatePerSecond), burst)
	}
	return cfg
}

func newCircuit(name string) *gobreaker.CircuitBreaker {
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:         name,
		MaxRequests:  5,
		Interval:     1 * time.Minute,
		Timeout:      2 * time.Minute,
		IsSuccessful: countsAsHealthy,
	})
}

// countsAsHealthy keeps abandoned calls out of the breaker's failure counts.
// A superseded pass cancels its context; that says nothing about the vendor.
func countsAsHealthy(err error) bool {
	return err == nil || errors.Is(err, errAbandoned) || errors.Is(err, context.Canceled)
}

var (
	errRateLimited   = errors.New("rate limited")
	errServerError   = errors.New("server error")
	errCircuitOpen   = errors.New("circuit breaker open")
	errNoHTTPClient  = errors.New("http client not configured")
	errInvalidConfig = errors.New("invalid backoff configuration")
	errAbandoned     = errors.New("request abandoned")
)

// doRequestWithResilience executes the HTTP request with rate limiting, a
// circuit breaker and optional exponential backoff. Client errors (4xx other
// than 429) are returned as responses so callers can read vendor error bodies;
// they do not count against the breaker.
func doRequestWithResilience(
	ctx context.Context,
	cfg HTTPClientConfig,
	cb *gobreaker.CircuitBreaker,
	buildRequest func() (*http.Request, error),
) (*http.Response, error) {
	if cfg.Client == nil {
		return nil, errNoHTTPClient
	}
	if cfg.Backoff.MaxRetries < 0 || cfg.Backoff.InitialInterval <= 0 {
		return nil, errInvalidConfig
	}

	var attempt int
	var lastErr error

	for {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		if cfg.Limiter != nil {
			if err := cfg.Limiter.Wait(ctx); err != nil {
				return nil, fmt.Errorf("%w: wait canceled: %v", errRateLimited, err)
			}
		}

		req, err := buildRequest()
		if err != nil {
			return nil, err
		}

		// Ensure the request obeys context cancellation.
		req = req.WithContext(ctx)

		result, err := cb.Execute(func() (interface{}, error) {
			resp, execErr := cfg.Client.Do(req)
			if execErr != nil {
				if ctxErr := ctx.Err(); ctxErr != nil {
					return nil, fmt.Errorf("%w: %w", errAbandoned, ctxErr)
				}
				return nil, execErr
			}

			// Handle rate limiting and server errors explicitly.
			if resp.StatusCode == http.StatusTooManyRequests {
				resp.Body.Close()
				return nil, errRateLimited
			}
			if resp.StatusCode >= 500 {
				resp.Body.Close()
				return nil, fmt.Errorf("%w: %d", errServerError, resp.StatusCode)
			}

			return resp, nil
		})

		if err == nil {
			resp, ok := result.(*http.Response)
			if !ok {
				return nil, fmt.Errorf("unexpected result type from circuit breaker")
			}
			return resp, nil
		}

		// If circuit is open, propagate immediately.
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, fmt.Errorf("%w: %v", errCircuitOpen, err)
		}

		lastErr = err
		if attempt >= cfg.Backoff.MaxRetries {
			return nil, lastErr
		}

		// Backoff with exponential delay.
		delay := cfg.Backoff.InitialInterval * time.Duration(math.Pow(2, float64(attempt)))
		if delay > cfg.Backoff.MaxInterval && cfg.Backoff.MaxInterval > 0 {
			delay = cfg.Backoff.MaxInterval
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
			// continue to next attempt
		}

		attempt++
	}
}

// classify converts a transport-level error into a FetchError.
func classify(provider string, err error) error {
	switch {
	case errors.Is(err, errCircuitOpen):
		return dashboard.NewFetchError(provider, dashboard.FetchCircuitOpen, "provider temporarily disabled", err)
	case errors.Is(err, errRateLimited):
		return dashboard.NewFetchError(provider, dashboard.FetchRateLimited, "rate limited", err)
	case errors.Is(err, errServerError):
		return dashboard.NewFetchError(provider, dashboard.FetchStatus, "server error", err)
	default:
		return dashboard.NewFetchError(provider, dashboard.FetchNetwork, "request failed", err)
	}
}

// statusError reads a small part of a non-2xx body for the error message.
func statusError(provider string, resp *http.Response) error {
	b, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
	kind := dashboard.FetchStatus
	if resp.StatusCode == http.StatusNotFound {
		kind = dashboard.FetchNotFound
	}
	return dashboard.NewFetchError(provider, kind,
		fmt.Sprintf("status %d body: %s", resp.StatusCode, strings.TrimSpace(string(b))), nil)
}

func isSuccess(resp *http.Response) bool {
	return resp.StatusCode >= 200 && resp.StatusCode < 300
}

// decodeJSON decodes the body into v; failures are shape mismatches.
func decodeJSON(provider string, resp *http.Response, v any) error {
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return dashboard.ShapeMismatch(provider, "decode response", err)
	}
	return nil
}

// flexibleInt decodes a JSON number or a numeric string (OpenWeather "cod").
type flexibleInt int

func (f *flexibleInt) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "" || s == "null" {
		*f = 0
		return nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return fmt.Errorf("not an integer: %s", s)
	}
	*f = flexibleInt(n)
	return nil
}

func requireKey(provider, key string) error {
	if key == "" {
		return dashboard.NewFetchError(provider, dashboard.FetchConfig, "api key is not configured", nil)
	}
	return nil
}

func unixOrZero(sec int64) time.Time {
	if sec == 0 {
		return time.Time{}
	}
	return time.Unix(sec, 0).UTC()
}

func coordValues(c dashboard.Coordinates) (string, string) {
	return strconv.FormatFloat(c.Lat, 'f', -1, 64), strconv.FormatFloat(c.Lon, 'f', -1, 64)
}
