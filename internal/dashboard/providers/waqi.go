package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"net/url"
	"strings"

	"github.com/sony/gobreaker"

	"github.com/i474232898/smart-city-dashboard/internal/dashboard"
)

// waqiPollutants are the iaqi keys that carry pollutant readings. The same
// block also reports station weather (t, h, p, w, wg, dew).
var waqiPollutants = map[string]bool{
	"pm25": true,
	"pm10": true,
	"o3":   true,
	"no2":  true,
	"so2":  true,
	"co":   true,
}

// WAQIProvider implements dashboard.AirQualityProvider for the World Air
// Quality Index (aqicn.org) feed, which reports a raw numeric AQI.
type WAQIProvider struct {
	name    string
	token   string
	baseURL string
	httpCfg HTTPClientConfig
	circuit *gobreaker.CircuitBreaker
}

func NewWAQIProvider(opts Options, token string) *WAQIProvider {
	return &WAQIProvider{
		name:    "waqi",
		token:   token,
		baseURL: "https://api.waqi.info",
		httpCfg: opts.httpConfig(),
		circuit: newCircuit("waqi"),
	}
}

func (p *WAQIProvider) Name() string {
	return p.name
}

func (p *WAQIProvider) Fetch(ctx context.Context, coords dashboard.Coordinates) (dashboard.AirQualitySnapshot, error) {
	if err := requireKey(p.name, p.token); err != nil {
		return dashboard.AirQualitySnapshot{}, err
	}

	buildRequest := func() (*http.Request, error) {
		lat, lon := coordValues(coords)
		values := url.Values{}
		values.Set("token", p.token)

		u := fmt.Sprintf("%s/feed/geo:%s;%s/?%s", p.baseURL, lat, lon, values.Encode())
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
		Status string          `json:"status"`
		Data   json.RawMessage `json:"data"`
	}
	if err := decodeJSON(p.name, resp, &payload); err != nil {
		return dashboard.AirQualitySnapshot{}, err
	}

	if payload.Status != "ok" {
		// On error the vendor puts a message string in data.
		var msg string
		_ = json.Unmarshal(payload.Data, &msg)
		return dashboard.AirQualitySnapshot{}, dashboard.NewFetchError(p.name, dashboard.FetchStatus,
			fmt.Sprintf("status %q: %s", payload.Status, msg), nil)
	}

	var data struct {
		AQI  json.RawMessage `json:"aqi"`
		IAQI map[string]struct {
			V float64 `json:"v"`
		} `json:"iaqi"`
	}
	if err := json.Unmarshal(payload.Data, &data); err != nil {
		return dashboard.AirQualitySnapshot{}, dashboard.ShapeMismatch(p.name, "decode data block", err)
	}

	var aqi float64
	if err := json.Unmarshal(data.AQI, &aqi); err != nil {
		// Stations without a current reading report "-".
		return dashboard.AirQualitySnapshot{}, dashboard.ShapeMismatch(p.name,
			fmt.Sprintf("aqi is not numeric: %s", strings.TrimSpace(string(data.AQI))), err)
	}

	pollutants := make(map[dashboard.PollutantCode]float64, len(data.IAQI))
	for code, v := range data.IAQI {
		code = strings.ToLower(code)
		if !waqiPollutants[code] {
			continue
		}
		pollutants[dashboard.PollutantCode(code)] = v.V
	}

	return dashboard.AirQualitySnapshot{
		Provider:     p.name,
		OverallIndex: int(math.Round(aqi)),
		Label:        dashboard.ThresholdLabel(aqi),
		Pollutants:   pollutants,
	}, nil
}
