package providers

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/kelvins/geocoder"
	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	"github.com/i474232898/smart-city-dashboard/internal/dashboard"
)

// GoogleGeocoderProvider implements dashboard.PlaceProvider on top of the
// Google Geocoding API via kelvins/geocoder.
type GoogleGeocoderProvider struct {
	name    string
	limiter *rate.Limiter
	circuit *gobreaker.CircuitBreaker

	forward func(geocoder.Address) (geocoder.Location, error)
	reverse func(geocoder.Location) ([]geocoder.Address, error)
}

// NewGoogleGeocoderProvider sets the package-level key used by kelvins/geocoder.
func NewGoogleGeocoderProvider(opts Options, apiKey string) *GoogleGeocoderProvider {
	geocoder.ApiKey = apiKey
	return &GoogleGeocoderProvider{
		name:    "google-geocoder",
		limiter: opts.httpConfig().Limiter,
		circuit: newCircuit("google-geocoder"),
		forward: geocoder.Geocoding,
		reverse: geocoder.GeocodingReverse,
	}
}

func (p *GoogleGeocoderProvider) Name() string {
	return p.name
}

// Reverse resolves the formatted address of a coordinate pair.
func (p *GoogleGeocoderProvider) Reverse(ctx context.Context, coords dashboard.Coordinates) (dashboard.Place, error) {
	var addrs []geocoder.Address
	err := p.call(ctx, func() error {
		var err error
		addrs, err = p.reverse(geocoder.Location{Latitude: coords.Lat, Longitude: coords.Lon})
		return err
	})
	if err != nil {
		return dashboard.Place{}, err
	}
	if len(addrs) == 0 {
		return dashboard.Place{}, dashboard.NewFetchError(p.name, dashboard.FetchNotFound, "no address for coordinates", nil)
	}

	addr := addrs[0]
	return dashboard.Place{
		Name:             addr.City,
		FormattedAddress: strings.TrimSpace(addr.FormattedAddress),
		Coordinates:      coords,
	}, nil
}

// Lookup resolves a city name to coordinates.
func (p *GoogleGeocoderProvider) Lookup(ctx context.Context, city string) (dashboard.Place, error) {
	var loc geocoder.Location
	err := p.call(ctx, func() error {
		var err error
		loc, err = p.forward(geocoder.Address{City: city})
		return err
	})
	if err != nil {
		return dashboard.Place{}, err
	}

	coords := dashboard.Coordinates{Lat: loc.Latitude, Lon: loc.Longitude}
	if err := coords.Validate(); err != nil {
		return dashboard.Place{}, dashboard.ShapeMismatch(p.name, "geocoder returned invalid coordinates", err)
	}
	return dashboard.Place{Name: city, Coordinates: coords}, nil
}

// call runs a blocking geocoder request behind the limiter and breaker and
// abandons it when ctx is done.
func (p *GoogleGeocoderProvider) call(ctx context.Context, fn func() error) error {
	ctx, cancel := withDefaultTimeout(ctx)
	defer cancel()

	if p.limiter != nil {
		if err := p.limiter.Wait(ctx); err != nil {
			return classify(p.name, fmt.Errorf("%w: wait canceled: %v", errRateLimited, err))
		}
	}

	done := make(chan error, 1)
	go func() {
		_, err := p.circuit.Execute(func() (interface{}, error) {
			return nil, fn()
		})
		done <- err
	}()

	select {
	case <-ctx.Done():
		return classify(p.name, ctx.Err())
	case err := <-done:
		if err == nil {
			return nil
		}
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return classify(p.name, fmt.Errorf("%w: %v", errCircuitOpen, err))
		}
		return dashboard.NewFetchError(p.name, dashboard.FetchStatus, "geocoding failed", err)
	}
}

// geocodeTimeout bounds a single geocoder call when the caller has no deadline.
const geocodeTimeout = 10 * time.Second

func withDefaultTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if _, ok := ctx.Deadline(); ok {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, geocodeTimeout)
}
