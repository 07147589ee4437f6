package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sony/gobreaker"

	"github.com/i474232898/smart-city-dashboard/internal/common"
	"github.com/i474232898/smart-city-dashboard/internal/dashboard"
)

// weatherAPINoLocation is the vendor error code for an unknown query.
const weatherAPINoLocation = 1006

// WeatherAPIProvider implements dashboard.WeatherProvider for WeatherAPI.com.
type WeatherAPIProvider struct {
	name    string
	apiKey  string
	baseURL string
	httpCfg HTTPClientConfig
	circuit *gobreaker.CircuitBreaker
}

func NewWeatherAPIProvider(opts Options, apiKey string) *WeatherAPIProvider {
	return &WeatherAPIProvider{
		name:    "weatherapi",
		apiKey:  apiKey,
		baseURL: "https://api.weatherapi.com/v1",
		httpCfg: opts.httpConfig(),
		circuit: newCircuit("weatherapi"),
	}
}

func (p *WeatherAPIProvider) Name() string {
	return p.name
}

func (p *WeatherAPIProvider) Fetch(ctx context.Context, city string) (dashboard.WeatherSnapshot, error) {
	if err := requireKey(p.name, p.apiKey); err != nil {
		return dashboard.WeatherSnapshot{}, err
	}

	buildRequest := func() (*http.Request, error) {
		values := url.Values{}
		values.Set("key", p.apiKey)
		values.Set("q", city)

		u := fmt.Sprintf("%s/current.json?%s", p.baseURL, values.Encode())
		return http.NewRequest(http.MethodGet, u, nil)
	}

	resp, err := doRequestWithResilience(ctx, p.httpCfg, p.circuit, buildRequest)
	if err != nil {
		return dashboard.WeatherSnapshot{}, classify(p.name, err)
	}
	defer resp.Body.Close()

	if !isSuccess(resp) {
		return dashboard.WeatherSnapshot{}, p.vendorError(resp)
	}

	var payload struct {
		Location *struct {
			Name    string  `json:"name"`
			Country string  `json:"country"`
			Lat     float64 `json:"lat"`
			Lon     float64 `json:"lon"`
			TzID    string  `json:"tz_id"`
		} `json:"location"`
		Current *struct {
			LastUpdatedEpoch int64    `json:"last_updated_epoch"`
			TempC            float64  `json:"temp_c"`
			FeelsLikeC       float64  `json:"feelslike_c"`
			WindKph          float64  `json:"wind_kph"`
			WindDegree       *float64 `json:"wind_degree"`
			PressureMb       float64  `json:"pressure_mb"`
			Humidity         float64  `json:"humidity"`
			Cloud            *float64 `json:"cloud"`
			VisKm            float64  `json:"vis_km"`
			Condition        struct {
				Text string `json:"text"`
			} `json:"condition"`
		} `json:"current"`
	}
	if err := decodeJSON(p.name, resp, &payload); err != nil {
		return dashboard.WeatherSnapshot{}, err
	}
	if payload.Location == nil || payload.Current == nil {
		return dashboard.WeatherSnapshot{}, dashboard.ShapeMismatch(p.name, "missing location or current block", nil)
	}

	observed := unixOrZero(payload.Current.LastUpdatedEpoch)

	// WeatherAPI reports temperature extremes only in the forecast endpoint.
	return dashboard.WeatherSnapshot{
		Provider:     p.name,
		City:         payload.Location.Name,
		TempC:        payload.Current.TempC,
		FeelsLikeC:   payload.Current.FeelsLikeC,
		TempMinC:     payload.Current.TempC,
		TempMaxC:     payload.Current.TempC,
		Description:  strings.ToLower(payload.Current.Condition.Text),
		WindSpeedMS:  payload.Current.WindKph / 3.6,
		WindDeg:      payload.Current.WindDegree,
		HumidityPct:  payload.Current.Humidity,
		VisibilityKm: payload.Current.VisKm,
		PressureHpa:  payload.Current.PressureMb,
		CloudsPct:    payload.Current.Cloud,
		ObservedAt:   observed,
		Coordinates: dashboard.Coordinates{
			Lat: payload.Location.Lat,
			Lon: payload.Location.Lon,
		},
		TimezoneOffsetSec: zoneOffset(payload.Location.TzID, observed),
		CountryCode:       countryCode(payload.Location.Country),
	}, nil
}

// vendorError maps a WeatherAPI error body to a FetchError.
func (p *WeatherAPIProvider) vendorError(resp *http.Response) error {
	b, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))

	var body struct {
		Error struct {
			Code    int    `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(b, &body); err != nil {
		return dashboard.NewFetchError(p.name, dashboard.FetchStatus,
			fmt.Sprintf("status %d body: %s", resp.StatusCode, strings.TrimSpace(string(b))), nil)
	}

	msg := strings.ToLower(body.Error.Message)
	if body.Error.Code == weatherAPINoLocation || common.HasAny(msg, "no matching location", "not found") {
		return dashboard.NewFetchError(p.name, dashboard.FetchNotFound, body.Error.Message, nil)
	}
	return dashboard.NewFetchError(p.name, dashboard.FetchStatus,
		fmt.Sprintf("status %d code %d: %s", resp.StatusCode, body.Error.Code, body.Error.Message), nil)
}

// countryCode keeps the vendor country only when it already is a 2-letter code.
func countryCode(country string) string {
	country = strings.TrimSpace(country)
	if len(country) != 2 {
		return ""
	}
	return strings.ToUpper(country)
}

func zoneOffset(tzID string, at time.Time) int {
	if tzID == "" {
		return 0
	}
	loc, err := time.LoadLocation(tzID)
	if err != nil {
		return 0
	}
	if at.IsZero() {
		at = time.Now()
	}
	_, offset := at.In(loc).Zone()
	return offset
}
