package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type AppConfig struct {
	Port        string
	DefaultCity string

	// HTTPTimeout bounds every outbound provider request.
	HTTPTimeout time.Duration
	// PassTimeout bounds one whole orchestration pass.
	PassTimeout time.Duration
	// RefreshInterval controls the periodic refresh; <= 0 disables it.
	RefreshInterval time.Duration

	// StoreMaxHistory is the number of recent cities remembered (0 = unlimited).
	StoreMaxHistory int

	WeatherProvider    string
	AirQualityProvider string

	OpenWeatherAPIKey string
	WeatherAPIKey     string
	WAQIToken         string
	ClimatiqAPIKey    string
	GoogleMapsAPIKey  string

	AssumedMonthlyKwh float64

	ProviderMaxRetries int
	ProviderRateLimit  float64
	ProviderRateBurst  int

	AstronomyEnabled bool
	ForecastEnabled  bool
}

// fileConfig is the optional YAML overlay. Environment variables win over it.
type fileConfig struct {
	Port               string   `yaml:"port"`
	DefaultCity        string   `yaml:"default_city"`
	HTTPTimeout        string   `yaml:"http_timeout"`
	PassTimeout        string   `yaml:"pass_timeout"`
	RefreshInterval    string   `yaml:"refresh_interval"`
	StoreMaxHistory    *int     `yaml:"store_max_history"`
	WeatherProvider    string   `yaml:"weather_provider"`
	AirQualityProvider string   `yaml:"air_quality_provider"`
	AssumedMonthlyKwh  *float64 `yaml:"assumed_monthly_kwh"`
	ProviderMaxRetries *int     `yaml:"provider_max_retries"`
	ProviderRateLimit  *float64 `yaml:"provider_rate_limit"`
	ProviderRateBurst  *int     `yaml:"provider_rate_burst"`
	AstronomyEnabled   *bool    `yaml:"astronomy_enabled"`
	ForecastEnabled    *bool    `yaml:"forecast_enabled"`
}

// Defaults returns the configuration used when nothing is set.
func Defaults() *AppConfig {
	return &AppConfig{
		Port:               "8080",
		DefaultCity:        "Delhi",
		HTTPTimeout:        10 * time.Second,
		PassTimeout:        30 * time.Second,
		RefreshInterval:    15 * time.Minute,
		StoreMaxHistory:    10,
		WeatherProvider:    "openweather",
		AirQualityProvider: "openweather",
		AssumedMonthlyKwh:  50000,
		ProviderMaxRetries: 0,
		ProviderRateLimit:  1,
		ProviderRateBurst:  5,
		AstronomyEnabled:   true,
		ForecastEnabled:    true,
	}
}

// Load reads configuration from .env, the optional YAML file named by
// DASHBOARD_CONFIG and the environment, in that order of precedence (lowest first).
func Load() (*AppConfig, error) {
	if err := godotenv.Load(); err != nil {
		log.Printf("INFO: No .env file found or error loading it: %v", err)
	}
	cfg := Defaults()

	if path := os.Getenv("DASHBOARD_CONFIG"); path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (cfg *AppConfig) loadFile(path string) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	var fc fileConfig
	if err := yaml.Unmarshal(b, &fc); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}

	setString(&cfg.Port, fc.Port)
	setString(&cfg.DefaultCity, fc.DefaultCity)
	setString(&cfg.WeatherProvider, fc.WeatherProvider)
	setString(&cfg.AirQualityProvider, fc.AirQualityProvider)

	durations := []struct {
		name string
		raw  string
		dst  *time.Duration
	}{
		{"http_timeout", fc.HTTPTimeout, &cfg.HTTPTimeout},
		{"pass_timeout", fc.PassTimeout, &cfg.PassTimeout},
		{"refresh_interval", fc.RefreshInterval, &cfg.RefreshInterval},
	}
	for _, d := range durations {
		if d.raw == "" {
			continue
		}
		v, err := time.ParseDuration(d.raw)
		if err != nil {
			return fmt.Errorf("invalid %s in %s: %w", d.name, path, err)
		}
		*d.dst = v
	}

	if fc.StoreMaxHistory != nil {
		cfg.StoreMaxHistory = *fc.StoreMaxHistory
	}
	if fc.AssumedMonthlyKwh != nil {
		cfg.AssumedMonthlyKwh = *fc.AssumedMonthlyKwh
	}
	if fc.ProviderMaxRetries != nil {
		cfg.ProviderMaxRetries = *fc.ProviderMaxRetries
	}
	if fc.ProviderRateLimit != nil {
		cfg.ProviderRateLimit = *fc.ProviderRateLimit
	}
	if fc.ProviderRateBurst != nil {
		cfg.ProviderRateBurst = *fc.ProviderRateBurst
	}
	if fc.AstronomyEnabled != nil {
		cfg.AstronomyEnabled = *fc.AstronomyEnabled
	}
	if fc.ForecastEnabled != nil {
		cfg.ForecastEnabled = *fc.ForecastEnabled
	}
	return nil
}

func (cfg *AppConfig) applyEnv() error {
	cfg.Port = getenvDefault("PORT", cfg.Port)
	cfg.DefaultCity = getenvDefault("DEFAULT_CITY", cfg.DefaultCity)
	cfg.WeatherProvider = strings.ToLower(getenvDefault("WEATHER_PROVIDER", cfg.WeatherProvider))
	cfg.AirQualityProvider = strings.ToLower(getenvDefault("AIR_QUALITY_PROVIDER", cfg.AirQualityProvider))

	// Credentials are only ever injected.
	cfg.OpenWeatherAPIKey = os.Getenv("OPENWEATHER_API_KEY")
	cfg.WeatherAPIKey = os.Getenv("WEATHERAPI_API_KEY")
	cfg.WAQIToken = os.Getenv("WAQI_TOKEN")
	cfg.ClimatiqAPIKey = os.Getenv("CLIMATIQ_API_KEY")
	cfg.GoogleMapsAPIKey = os.Getenv("GOOGLE_MAPS_API_KEY")

	var err error
	if cfg.HTTPTimeout, err = getenvDuration("HTTP_TIMEOUT", cfg.HTTPTimeout); err != nil {
		return err
	}
	if cfg.PassTimeout, err = getenvDuration("PASS_TIMEOUT", cfg.PassTimeout); err != nil {
		return err
	}
	if cfg.RefreshInterval, err = getenvDuration("REFRESH_INTERVAL", cfg.RefreshInterval); err != nil {
		return err
	}

	cfg.StoreMaxHistory = getenvInt("STORE_MAX_HISTORY", cfg.StoreMaxHistory)
	cfg.AssumedMonthlyKwh = getenvFloat("ASSUMED_MONTHLY_KWH", cfg.AssumedMonthlyKwh)
	cfg.ProviderMaxRetries = getenvInt("PROVIDER_MAX_RETRIES", cfg.ProviderMaxRetries)
	cfg.ProviderRateLimit = getenvFloat("PROVIDER_RATE_LIMIT", cfg.ProviderRateLimit)
	cfg.ProviderRateBurst = getenvInt("PROVIDER_RATE_BURST", cfg.ProviderRateBurst)
	cfg.AstronomyEnabled = getenvBool("ASTRONOMY_ENABLED", cfg.AstronomyEnabled)
	cfg.ForecastEnabled = getenvBool("FORECAST_ENABLED", cfg.ForecastEnabled)
	return nil
}

// Validate rejects values the rest of the program cannot work with.
func (cfg *AppConfig) Validate() error {
	switch cfg.WeatherProvider {
	case "openweather", "weatherapi":
	default:
		return fmt.Errorf("invalid WEATHER_PROVIDER %q: want openweather or weatherapi", cfg.WeatherProvider)
	}
	switch cfg.AirQualityProvider {
	case "openweather", "waqi":
	default:
		return fmt.Errorf("invalid AIR_QUALITY_PROVIDER %q: want openweather or waqi", cfg.AirQualityProvider)
	}
	if strings.TrimSpace(cfg.DefaultCity) == "" {
		return fmt.Errorf("DEFAULT_CITY must not be empty")
	}
	if cfg.HTTPTimeout <= 0 {
		return fmt.Errorf("HTTP_TIMEOUT must be positive, got %s", cfg.HTTPTimeout)
	}
	if cfg.PassTimeout <= 0 {
		return fmt.Errorf("PASS_TIMEOUT must be positive, got %s", cfg.PassTimeout)
	}
	if cfg.AssumedMonthlyKwh <= 0 {
		return fmt.Errorf("ASSUMED_MONTHLY_KWH must be positive, got %v", cfg.AssumedMonthlyKwh)
	}
	if cfg.ProviderMaxRetries < 0 {
		return fmt.Errorf("PROVIDER_MAX_RETRIES must not be negative")
	}
	return nil
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		n, err := strconv.Atoi(v)
		if err == nil {
			return n
		}
	}
	return def
}

func getenvFloat(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err == nil {
			return f
		}
	}
	return def
}

func getenvBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		b, err := strconv.ParseBool(v)
		if err == nil {
			return b
		}
	}
	return def
}

func getenvDuration(key string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}
