package providers

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/sony/gobreaker"

	"github.com/i474232898/smart-city-dashboard/internal/dashboard"
)

const openWeatherBaseURL = "https://api.openweathermap.org/data/2.5"

// OpenWeatherProvider implements dashboard.WeatherProvider for OpenWeatherMap.
type OpenWeatherProvider struct {
	name    string
	apiKey  string
	baseURL string
	httpCfg HTTPClientConfig
	circuit *gobreaker.CircuitBreaker
}

func NewOpenWeatherProvider(opts Options, apiKey string) *OpenWeatherProvider {
	return &OpenWeatherProvider{
		name:    "openweathermap",
		apiKey:  apiKey,
		baseURL: openWeatherBaseURL,
		httpCfg: opts.httpConfig(),
		circuit: newCircuit("openweather"),
	}
}

func (p *OpenWeatherProvider) Name() string {
	return p.name
}

type openWeatherPayload struct {
	Cod     flexibleInt `json:"cod"`
	Message string      `json:"message"`
	Name    string      `json:"name"`
	Dt      int64       `json:"dt"`
	Coord   *struct {
		Lat float64 `json:"lat"`
		Lon float64 `json:"lon"`
	} `json:"coord"`
	Weather []struct {
		Description string `json:"description"`
	} `json:"weather"`
	Main *struct {
		Temp      float64 `json:"temp"`
		FeelsLike float64 `json:"feels_like"`
		TempMin   float64 `json:"temp_min"`
		TempMax   float64 `json:"temp_max"`
		Pressure  float64 `json:"pressure"`
		Humidity  float64 `json:"humidity"`
	} `json:"main"`
	Visibility float64 `json:"visibility"`
	Wind       struct {
		Speed float64  `json:"speed"`
		Deg   *float64 `json:"deg"`
	} `json:"wind"`
	Clouds struct {
		All *float64 `json:"all"`
	} `json:"clouds"`
	Sys struct {
		Country string `json:"country"`
		Sunrise int64  `json:"sunrise"`
		Sunset  int64  `json:"sunset"`
	} `json:"sys"`
	Timezone int `json:"timezone"`
}

func (p *OpenWeatherProvider) Fetch(ctx context.Context, city string) (dashboard.WeatherSnapshot, error) {
	if err := requireKey(p.name, p.apiKey); err != nil {
		return dashboard.WeatherSnapshot{}, err
	}

	buildRequest := func() (*http.Request, error) {
		values := url.Values{}
		values.Set("q", city)
		values.Set("appid", p.apiKey)
		values.Set("units", "metric")

		u := fmt.Sprintf("%s/weather?%s", p.baseURL, values.Encode())
		return http.NewRequest(http.MethodGet, u, nil)
	}

	resp, err := doRequestWithResilience(ctx, p.httpCfg, p.circuit, buildRequest)
	if err != nil {
		return dashboard.WeatherSnapshot{}, classify(p.name, err)
	}
	defer resp.Body.Close()

	if !isSuccess(resp) && resp.StatusCode != http.StatusNotFound {
		return dashboard.WeatherSnapshot{}, statusError(p.name, resp)
	}

	var payload openWeatherPayload
	if err := decodeJSON(p.name, resp, &payload); err != nil {
		return dashboard.WeatherSnapshot{}, err
	}

	// The body status is authoritative; a 404 body carries cod "404".
	switch {
	case payload.Cod == http.StatusNotFound:
		return dashboard.WeatherSnapshot{}, dashboard.NewFetchError(p.name, dashboard.FetchNotFound, payload.Message, nil)
	case payload.Cod != http.StatusOK:
		return dashboard.WeatherSnapshot{}, dashboard.NewFetchError(p.name, dashboard.FetchStatus,
			fmt.Sprintf("cod %d: %s", payload.Cod, payload.Message), nil)
	}

	if payload.Main == nil || payload.Coord == nil {
		return dashboard.WeatherSnapshot{}, dashboard.ShapeMismatch(p.name, "missing main or coord block", nil)
	}

	desc := ""
	if len(payload.Weather) > 0 {
		desc = payload.Weather[0].Description
	}

	return dashboard.WeatherSnapshot{
		Provider:     p.name,
		City:         payload.Name,
		TempC:        payload.Main.Temp,
		FeelsLikeC:   payload.Main.FeelsLike,
		TempMinC:     payload.Main.TempMin,
		TempMaxC:     payload.Main.TempMax,
		Description:  desc,
		WindSpeedMS:  payload.Wind.Speed,
		WindDeg:      payload.Wind.Deg,
		HumidityPct:  payload.Main.Humidity,
		VisibilityKm: payload.Visibility / 1000,
		PressureHpa:  payload.Main.Pressure,
		CloudsPct:    payload.Clouds.All,
		Sunrise:      unixOrZero(payload.Sys.Sunrise),
		Sunset:       unixOrZero(payload.Sys.Sunset),
		ObservedAt:   unixOrZero(payload.Dt),
		Coordinates: dashboard.Coordinates{
			Lat: payload.Coord.Lat,
			Lon: payload.Coord.Lon,
		},
		TimezoneOffsetSec: payload.Timezone,
		CountryCode:       strings.ToUpper(payload.Sys.Country),
	}, nil
}

// OpenWeatherAirProvider implements dashboard.AirQualityProvider for the
// OpenWeatherMap air pollution endpoint, which reports a qualitative 1-5 index.
type OpenWeatherAirProvider struct {
	name    string
	apiKey  string
	baseURL string
	httpCfg HTTPClientConfig
	circuit *gobreaker.CircuitBreaker
}

func NewOpenWeatherAirProvider(opts Options, apiKey string) *OpenWeatherAirProvider {
	return &OpenWeatherAirProvider{
		name:    "openweathermap-air",
		apiKey:  apiKey,
		baseURL: openWeatherBaseURL,
		httpCfg: opts.httpConfig(),
		circuit: newCircuit("openweather-air"),
	}
}

func (p *OpenWeatherAirProvider) Name() string {
	return p.name
}

func (p *OpenWeatherAirProvider) Fetch(ctx context.Context, coords dashboard.Coordinates) (dashboard.AirQualitySnapshot, error) {
	if err := requireKey(p.name, p.apiKey); err != nil {
		return dashboard.AirQualitySnapshot{}, err
	}

	buildRequest := func() (*http.Request, error) {
		lat, lon := coordValues(coords)
		values := url.Values{}
		values.Set("lat", lat)
		values.Set("lon", lon)
		values.Set("appid", p.apiKey)

		u := fmt.Sprintf("%s/air_pollution?%s", p.baseURL, values.Encode())
		return http.NewRequest(http.MethodGet, u, nil)
	}

	resp, err := doRequestWithResilience(ctx, p.httpCfg, p.circuit, buildRequest)
	if err != nil {
		return dashboard.AirQualitySnapshot{}, classify(p.name, err)
	}
	defer resp.Body.Close()

	if !isSuccess(resp) {
		return dashboard.AirQualitySnapshot{}, statusError(p.name, resp)
	}

	var payload struct {
		List []struct {
			Main struct {
				AQI int `json:"aqi"`
			} `json:"main"`
			Components map[string]float64 `json:"components"`
		} `json:"list"`
	}
	if err := decodeJSON(p.name, resp, &payload); err != nil {
		return dashboard.AirQualitySnapshot{}, err
	}

	if len(payload.List) == 0 {
		return dashboard.AirQualitySnapshot{}, dashboard.ShapeMismatch(p.name, "no air quality data available", nil)
	}

	entry := payload.List[0]
	level, err := dashboard.QualitativeToScale(entry.Main.AQI)
	if err != nil {
		return dashboard.AirQualitySnapshot{}, dashboard.ShapeMismatch(p.name, "unexpected aqi level", err)
	}

	pollutants := make(map[dashboard.PollutantCode]float64, len(entry.Components))
	for code, v := range entry.Components {
		pollutants[dashboard.PollutantCode(strings.ToLower(code))] = v
	}

	return dashboard.AirQualitySnapshot{
		Provider:     p.name,
		OverallIndex: level.Index,
		Label:        level.Label,
		Pollutants:   pollutants,
	}, nil
}
