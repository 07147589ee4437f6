package dashboard

import (
	"time"
)

// GlobalRegion is the energy region used when the weather result carries no country code.
const GlobalRegion = "GLOBAL"

// DefaultMonthlyKwh is the assumed monthly consumption of a medium city.
const DefaultMonthlyKwh = 50000

// Coordinates is a latitude/longitude pair in decimal degrees.
type Coordinates struct {
	Lat float64 `json:"lat" validate:"min=-90,max=90"`
	Lon float64 `json:"lon" validate:"min=-180,max=180"`
}

// WeatherSnapshot is the normalized current weather for a city.
// It is produced wholesale by one provider call and never merged.
type WeatherSnapshot struct {
	Provider    string  `json:"provider"`
	City        string  `json:"city"`
	TempC       float64 `json:"tempC"`
	FeelsLikeC  float64 `json:"feelsLikeC"`
	TempMinC    float64 `json:"tempMinC"`
	TempMaxC    float64 `json:"tempMaxC"`
	Description string  `json:"description"`
	WindSpeedMS float64 `json:"windSpeedMs"`
	// WindDeg is nil when the vendor does not report a direction.
	WindDeg      *float64 `json:"windDeg,omitempty"`
	HumidityPct  float64  `json:"humidityPct"`
	VisibilityKm float64  `json:"visibilityKm"`
	PressureHpa  float64  `json:"pressureHpa"`
	CloudsPct    *float64 `json:"cloudsPct,omitempty"`

	Sunrise    time.Time `json:"sunrise"`
	Sunset     time.Time `json:"sunset"`
	ObservedAt time.Time `json:"observedAt"`

	Coordinates       Coordinates `json:"coordinates"`
	TimezoneOffsetSec int         `json:"timezoneOffsetSec"`
	CountryCode       string      `json:"countryCode"`
}

// Location returns a fixed zone for the city's UTC offset.
func (w WeatherSnapshot) Location() *time.Location {
	return time.FixedZone("", w.TimezoneOffsetSec)
}

// Region returns the energy region derived from the country code.
func (w WeatherSnapshot) Region() string {
	if w.CountryCode == "" {
		return GlobalRegion
	}
	return w.CountryCode
}

// Pollutant codes as reported by the vendors (lower case).
type PollutantCode string

// AirQualitySnapshot is the normalized air quality around a coordinate pair.
type AirQualitySnapshot struct {
	Provider string `json:"provider"`
	// OverallIndex is on the 0-500 scale regardless of vendor.
	OverallIndex int `json:"overallIndex"`
	// Label is the vendor-level category (e.g. "Fair" for qualitative vendors).
	Label      string                    `json:"label"`
	Pollutants map[PollutantCode]float64 `json:"pollutants"`
}

// EnergyRequest is the input of a carbon estimate.
type EnergyRequest struct {
	Region     string
	MonthlyKwh float64
	Year       int
}

// EnergyEstimate is the carbon footprint of the assumed consumption.
type EnergyEstimate struct {
	Provider          string  `json:"provider"`
	CO2e              float64 `json:"co2e"`
	CO2eUnit          string  `json:"co2eUnit"`
	AssumedMonthlyKwh float64 `json:"assumedMonthlyKwh"`
	Region            string  `json:"region"`
}

// Place holds geocoding details for the selected city.
type Place struct {
	Name             string      `json:"name"`
	FormattedAddress string      `json:"formattedAddress"`
	Coordinates      Coordinates `json:"coordinates"`
}

// PlaceSelection is what a place autocomplete emits.
type PlaceSelection struct {
	Name string  `json:"name" validate:"required"`
	Lat  float64 `json:"lat" validate:"min=-90,max=90"`
	Lon  float64 `json:"lon" validate:"min=-180,max=180"`
}

// MoonPhase is the astronomy lookup result.
type MoonPhase struct {
	Phase string `json:"phase"`
}

// ForecastPoint is one hourly forecast value.
type ForecastPoint struct {
	Time        time.Time `json:"time"`
	TempC       float64   `json:"tempC"`
	HumidityPct float64   `json:"humidityPct"`
}

// ChartSeries is one labelled numeric series.
type ChartSeries struct {
	Name   string    `json:"name"`
	Labels []string  `json:"labels"`
	Values []float64 `json:"values"`
}

// ChartMode is the two-state chart display mode.
type ChartMode string

const (
	ChartHourly ChartMode = "hourly"
	ChartWeekly ChartMode = "weekly"
)

// Next cycles hourly -> weekly -> hourly.
func (m ChartMode) Next() ChartMode {
	if m == ChartWeekly {
		return ChartHourly
	}
	return ChartWeekly
}

// Kind identifies one family of snapshot held by the store.
type Kind string

const (
	KindWeather    Kind = "weather"
	KindAirQuality Kind = "airQuality"
	KindEnergy     Kind = "energy"
	KindPlace      Kind = "place"
	KindMoonPhase  Kind = "moonPhase"
	KindForecast   Kind = "forecast"
)

// Kinds lists every snapshot kind in display order.
var Kinds = []Kind{KindWeather, KindAirQuality, KindEnergy, KindPlace, KindMoonPhase, KindForecast}

// View is an immutable copy of the store contents handed to the projector.
// A nil snapshot with a nil error means the kind has not been fetched yet.
type View struct {
	City      string    `json:"city"`
	ChartMode ChartMode `json:"chartMode"`

	Weather    *WeatherSnapshot    `json:"weather"`
	AirQuality *AirQualitySnapshot `json:"airQuality"`
	Energy     *EnergyEstimate     `json:"energy"`
	Place      *Place              `json:"place"`
	MoonPhase  *MoonPhase          `json:"moonPhase"`
	Forecast   []ForecastPoint     `json:"forecast"`

	Errors map[Kind]error `json:"-"`
}

// Err returns the recorded failure for a kind, if any.
func (v View) Err(k Kind) error {
	if v.Errors == nil {
		return nil
	}
	return v.Errors[k]
}
