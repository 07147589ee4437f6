package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/sony/gobreaker"

	"github.com/i474232898/smart-city-dashboard/internal/dashboard"
)

// ClimatiqProvider implements dashboard.EnergyProvider for the Climatiq
// electricity estimate endpoint.
type ClimatiqProvider struct {
	name    string
	apiKey  string
	baseURL string
	httpCfg HTTPClientConfig
	circuit *gobreaker.CircuitBreaker
}

func NewClimatiqProvider(opts Options, apiKey string) *ClimatiqProvider {
	return &ClimatiqProvider{
		name:    "climatiq",
		apiKey:  apiKey,
		baseURL: "https://api.climatiq.io",
		httpCfg: opts.httpConfig(),
		circuit: newCircuit("climatiq"),
	}
}

func (p *ClimatiqProvider) Name() string {
	return p.name
}

type climatiqAmount struct {
	Energy     float64 `json:"energy"`
	EnergyUnit string  `json:"energy_unit"`
}

type climatiqRequest struct {
	Year      int            `json:"year"`
	Region    string         `json:"region"`
	SourceSet string         `json:"source_set"`
	Amount    climatiqAmount `json:"amount"`
}

func (p *ClimatiqProvider) Estimate(ctx context.Context, req dashboard.EnergyRequest) (dashboard.EnergyEstimate, error) {
	if err := requireKey(p.name, p.apiKey); err != nil {
		return dashboard.EnergyEstimate{}, err
	}

	region := req.Region
	if region == "" {
		region = dashboard.GlobalRegion
	}

	body, err := json.Marshal(climatiqRequest{
		Year:      req.Year,
		Region:    region,
		SourceSet: "core",
		Amount: climatiqAmount{
			Energy:     req.MonthlyKwh,
			EnergyUnit: "kWh",
		},
	})
	if err != nil {
		return dashboard.EnergyEstimate{}, fmt.Errorf("encode climatiq request: %w", err)
	}

	buildRequest := func() (*http.Request, error) {
		r, err := http.NewRequest(http.MethodPost, p.baseURL+"/energy/v1.2/electricity", bytes.NewReader(body))
		if err != nil {
			return nil, err
		}
		r.Header.Set("Authorization", "Bearer "+p.apiKey)
		r.Header.Set("Content-Type", "application/json")
		return r, nil
	}

	resp, err := doRequestWithResilience(ctx, p.httpCfg, p.circuit, buildRequest)
	if err != nil {
		return dashboard.EnergyEstimate{}, classify(p.name, err)
	}
	defer resp.Body.Close()

	if !isSuccess(resp) {
		return dashboard.EnergyEstimate{}, statusError(p.name, resp)
	}

	var payload struct {
		CO2e     *float64 `json:"co2e"`
		CO2eUnit string   `json:"co2e_unit"`
	}
	if err := decodeJSON(p.name, resp, &payload); err != nil {
		return dashboard.EnergyEstimate{}, err
	}
	if payload.CO2e == nil {
		return dashboard.EnergyEstimate{}, dashboard.ShapeMismatch(p.name, "response has no co2e", nil)
	}

	unit := payload.CO2eUnit
	if unit == "" {
		unit = "kg"
	}

	return dashboard.EnergyEstimate{
		Provider:          p.name,
		CO2e:              *payload.CO2e,
		CO2eUnit:          unit,
		AssumedMonthlyKwh: req.MonthlyKwh,
		Region:            region,
	}, nil
}
