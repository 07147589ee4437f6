package dashboard

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// WeatherProvider fetches the current weather for a city name.
type WeatherProvider interface {
	Name() string
	Fetch(ctx context.Context, city string) (WeatherSnapshot, error)
}

// AirQualityProvider fetches air quality around a coordinate pair.
type AirQualityProvider interface {
	Name() string
	Fetch(ctx context.Context, coords Coordinates) (AirQualitySnapshot, error)
}

// EnergyProvider estimates the carbon footprint of a monthly consumption.
type EnergyProvider interface {
	Name() string
	Estimate(ctx context.Context, req EnergyRequest) (EnergyEstimate, error)
}

// PlaceProvider resolves place details in both directions.
type PlaceProvider interface {
	Name() string
	Reverse(ctx context.Context, coords Coordinates) (Place, error)
	Lookup(ctx context.Context, city string) (Place, error)
}

// AstronomyProvider looks up the moon phase for a day and place.
type AstronomyProvider interface {
	Name() string
	MoonPhase(ctx context.Context, coords Coordinates, day time.Time) (MoonPhase, error)
}

// ForecastProvider returns hourly forecast points, ordered by time.
type ForecastProvider interface {
	Name() string
	Forecast(ctx context.Context, coords Coordinates) ([]ForecastPoint, error)
}

// Providers bundles the adapters used by one Service. Only Weather is
// required; a nil optional adapter records a config failure for its kind.
type Providers struct {
	Weather    WeatherProvider
	AirQuality AirQualityProvider
	Energy     EnergyProvider
	Place      PlaceProvider
	Astronomy  AstronomyProvider
	Forecast   ForecastProvider
}

// NormalizeCity trims the name and keeps the first comma-separated segment,
// so "Paris, France" becomes "Paris".
func NormalizeCity(name string) (string, error) {
	name = strings.TrimSpace(name)
	if i := strings.Index(name, ","); i >= 0 {
		name = strings.TrimSpace(name[:i])
	}
	if name == "" {
		return "", fmt.Errorf("%w: city name must not be empty", ErrInvalidInput)
	}
	return name, nil
}

// Validate checks that both values are finite and in range.
func (c Coordinates) Validate() error {
	if math.IsNaN(c.Lat) || math.IsInf(c.Lat, 0) || math.IsNaN(c.Lon) || math.IsInf(c.Lon, 0) {
		return fmt.Errorf("%w: coordinates must be finite", ErrInvalidInput)
	}
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	return nil
}

// Validate checks the selection name and coordinates.
func (p PlaceSelection) Validate() error {
	if strings.TrimSpace(p.Name) == "" {
		return fmt.Errorf("%w: place name must not be empty", ErrInvalidInput)
	}
	return Coordinates{Lat: p.Lat, Lon: p.Lon}.Validate()
}
