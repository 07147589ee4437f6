package providers

import (
	"fmt"
	"log"
	"net/http"

	"github.com/i474232898/smart-city-dashboard/internal/config"
	"github.com/i474232898/smart-city-dashboard/internal/dashboard"
)

// FromConfig builds the adapter set selected by configuration. Optional
// adapters whose credential is missing are left nil; the service then records
// a config failure for their kind.
func FromConfig(cfg *config.AppConfig, client *http.Client) (dashboard.Providers, error) {
	opts := Options{
		Client:        client,
		MaxRetries:    cfg.ProviderMaxRetries,
		RatePerSecond: cfg.ProviderRateLimit,
		Burst:         cfg.ProviderRateBurst,
	}

	var ps dashboard.Providers

	switch cfg.WeatherProvider {
	case "openweather":
		ps.Weather = NewOpenWeatherProvider(opts, cfg.OpenWeatherAPIKey)
	case "weatherapi":
		ps.Weather = NewWeatherAPIProvider(opts, cfg.WeatherAPIKey)
	default:
		return dashboard.Providers{}, fmt.Errorf("unknown weather provider %q", cfg.WeatherProvider)
	}

	switch cfg.AirQualityProvider {
	case "openweather":
		ps.AirQuality = NewOpenWeatherAirProvider(opts, cfg.OpenWeatherAPIKey)
	case "waqi":
		ps.AirQuality = NewWAQIProvider(opts, cfg.WAQIToken)
	default:
		return dashboard.Providers{}, fmt.Errorf("unknown air quality provider %q", cfg.AirQualityProvider)
	}

	if cfg.ClimatiqAPIKey != "" {
		ps.Energy = NewClimatiqProvider(opts, cfg.ClimatiqAPIKey)
	} else {
		log.Println("INFO: CLIMATIQ_API_KEY not set; energy estimates disabled")
	}

	if cfg.GoogleMapsAPIKey != "" {
		ps.Place = NewGoogleGeocoderProvider(opts, cfg.GoogleMapsAPIKey)
	} else {
		log.Println("INFO: GOOGLE_MAPS_API_KEY not set; place details disabled")
	}

	if cfg.AstronomyEnabled {
		ps.Astronomy = NewUSNOProvider(opts)
	}
	if cfg.ForecastEnabled {
		ps.Forecast = NewOpenMeteoProvider(opts)
	}

	return ps, nil
}
