package providers

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sony/gobreaker"

	"github.com/i474232898/smart-city-dashboard/internal/dashboard"
)

// USNOProvider implements dashboard.AstronomyProvider using the US Naval
// Observatory one-day rise/set/transit API. It needs no credential.
type USNOProvider struct {
	name    string
	baseURL string
	httpCfg HTTPClientConfig
	circuit *gobreaker.CircuitBreaker
}

func NewUSNOProvider(opts Options) *USNOProvider {
	return &USNOProvider{
		name:    "usno",
		baseURL: "https://aa.usno.navy.mil/api",
		httpCfg: opts.httpConfig(),
		circuit: newCircuit("usno"),
	}
}

func (p *USNOProvider) Name() string {
	return p.name
}

func (p *USNOProvider) MoonPhase(ctx context.Context, coords dashboard.Coordinates, day time.Time) (dashboard.MoonPhase, error) {
	buildRequest := func() (*http.Request, error) {
		lat, lon := coordValues(coords)
		values := url.Values{}
		values.Set("date", day.Format("2006-01-02"))
		values.Set("coords", lat+","+lon)

		u := fmt.Sprintf("%s/rstt/oneday?%s", p.baseURL, values.Encode())
		return http.NewRequest(http.MethodGet, u, nil)
	}

	resp, err := doRequestWithResilience(ctx, p.httpCfg, p.circuit, buildRequest)
	if err != nil {
		return dashboard.MoonPhase{}, classify(p.name, err)
	}
	defer resp.Body.Close()

	if !isSuccess(resp) {
		return dashboard.MoonPhase{}, statusError(p.name, resp)
	}

	var payload struct {
		Error      string `json:"error"`
		Properties struct {
			Data struct {
				CurPhase     string `json:"curphase"`
				ClosestPhase struct {
					Phase string `json:"phase"`
				} `json:"closestphase"`
			} `json:"data"`
		} `json:"properties"`
	}
	if err := decodeJSON(p.name, resp, &payload); err != nil {
		return dashboard.MoonPhase{}, err
	}
	if payload.Error != "" {
		return dashboard.MoonPhase{}, dashboard.NewFetchError(p.name, dashboard.FetchStatus, payload.Error, nil)
	}

	phase := strings.TrimSpace(payload.Properties.Data.CurPhase)
	if phase == "" {
		phase = strings.TrimSpace(payload.Properties.Data.ClosestPhase.Phase)
	}
	if phase == "" {
		return dashboard.MoonPhase{}, dashboard.ShapeMismatch(p.name, "response has no moon phase", nil)
	}

	return dashboard.MoonPhase{Phase: phase}, nil
}
