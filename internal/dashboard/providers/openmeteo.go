package providers

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/sony/gobreaker"

	"github.com/i474232898/smart-city-dashboard/internal/dashboard"
)

const openMeteoTimeLayout = "2006-01-02T15:04"

// OpenMeteoProvider implements dashboard.ForecastProvider for Open-Meteo.
type OpenMeteoProvider struct {
	name    string
	baseURL string
	days    int
	httpCfg HTTPClientConfig
	circuit *gobreaker.CircuitBreaker
}

func NewOpenMeteoProvider(opts Options) *OpenMeteoProvider {
	return &OpenMeteoProvider{
		name:    "openmeteo",
		baseURL: "https://api.open-meteo.com/v1/forecast",
		days:    7,
		httpCfg: opts.httpConfig(),
		circuit: newCircuit("openmeteo"),
	}
}

func (p *OpenMeteoProvider) Name() string {
	return p.name
}

// Forecast returns hourly temperature and humidity, times in UTC.
func (p *OpenMeteoProvider) Forecast(ctx context.Context, coords dashboard.Coordinates) ([]dashboard.ForecastPoint, error) {
	buildRequest := func() (*http.Request, error) {
		lat, lon := coordValues(coords)
		values := url.Values{}
		values.Set("latitude", lat)
		values.Set("longitude", lon)
		values.Set("hourly", "temperature_2m,relative_humidity_2m")
		values.Set("forecast_days", fmt.Sprint(p.days))
		values.Set("timezone", "GMT")

		u := fmt.Sprintf("%s?%s", p.baseURL, values.Encode())
		return http.NewRequest(http.MethodGet, u, nil)
	}

	resp, err := doRequestWithResilience(ctx, p.httpCfg, p.circuit, buildRequest)
	if err != nil {
		return nil, classify(p.name, err)
	}
	defer resp.Body.Close()

	if !isSuccess(resp) {
		return nil, statusError(p.name, resp)
	}

	var payload struct {
		Hourly struct {
			Time        []string  `json:"time"`
			Temperature []*float64 `json:"temperature_2m"`
			Humidity    []*float64 `json:"relative_humidity_2m"`
		} `json:"hourly"`
	}
	if err := decodeJSON(p.name, resp, &payload); err != nil {
		return nil, err
	}

	h := payload.Hourly
	if len(h.Time) == 0 {
		return nil, dashboard.ShapeMismatch(p.name, "no hourly data", nil)
	}
	if len(h.Temperature) != len(h.Time) || len(h.Humidity) != len(h.Time) {
		return nil, dashboard.ShapeMismatch(p.name,
			fmt.Sprintf("hourly arrays differ in length: time=%d temperature=%d humidity=%d",
				len(h.Time), len(h.Temperature), len(h.Humidity)), nil)
	}

	points := make([]dashboard.ForecastPoint, 0, len(h.Time))
	for i, raw := range h.Time {
		ts, err := time.Parse(openMeteoTimeLayout, raw)
		if err != nil {
			return nil, dashboard.ShapeMismatch(p.name, "bad hourly time", err)
		}
		// Hours the model has no value for come back as null.
		if h.Temperature[i] == nil || h.Humidity[i] == nil {
			continue
		}
		points = append(points, dashboard.ForecastPoint{
			Time:        ts.UTC(),
			TempC:       *h.Temperature[i],
			HumidityPct: *h.Humidity[i],
		})
	}
	if len(points) == 0 {
		return nil, dashboard.ShapeMismatch(p.name, "hourly values are all null", nil)
	}
	return points, nil
}
