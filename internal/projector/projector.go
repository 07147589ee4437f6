// Package projector maps the City Query Store view onto display slots.
// Project is pure: identical views produce identical projections.
package projector

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/i474232898/smart-city-dashboard/internal/dashboard"
)

// pollutantInfo names known pollutant codes. Order is display order.
var pollutantInfo = []struct {
	Code dashboard.PollutantCode
	Name string
}{
	{"co", "Carbon Monoxide (CO)"},
	{"no", "Nitrogen Monoxide (NO)"},
	{"no2", "Nitrogen Dioxide (NO2)"},
	{"o3", "Ozone (O3)"},
	{"so2", "Sulphur Dioxide (SO2)"},
	{"pm2_5", "PM2.5"},
	{"pm25", "PM2.5"},
	{"pm10", "PM10"},
	{"nh3", "Ammonia (NH3)"},
}

const concentrationUnit = "μg/m³"

var (
	defaultMap = dashboard.MapView{Lat: 20, Lon: 0, Zoom: 2}
	cityZoom   = 12
)

// Project builds every slot update for a view.
func Project(v dashboard.View) dashboard.Projection {
	b := &builder{}

	b.set(dashboard.SlotSelectedCity, v.City, "")
	b.weather(v)
	b.location(v)
	b.airQuality(v)
	b.energy(v)
	b.place(v)
	b.moonPhase(v)
	b.set(dashboard.SlotChartMode, string(v.ChartMode), "")

	return dashboard.Projection{
		Slots:         b.slots,
		WeatherRows:   weatherRows(v.Weather),
		PollutantRows: pollutantRows(v.AirQuality),
		Map:           mapView(v),
		Charts:        charts(v),
		JSONDump:      jsonDump(v),
	}
}

type builder struct {
	slots []dashboard.SlotUpdate
}

func (b *builder) set(s dashboard.Slot, text, class string) {
	b.slots = append(b.slots, dashboard.SlotUpdate{Slot: s, Text: text, Class: class})
}

func (b *builder) weather(v dashboard.View) {
	w := v.Weather
	if w == nil {
		desc := Placeholder
		if err := v.Err(dashboard.KindWeather); err != nil {
			desc = FailedToLoad
			if dashboard.FetchKindOf(err) == dashboard.FetchNotFound {
				desc = CityNotFound
			}
		}
		for _, s := range []dashboard.Slot{
			dashboard.SlotTemperature, dashboard.SlotFeelsLike,
		} {
			b.set(s, Placeholder, "")
		}
		b.set(dashboard.SlotWeatherDesc, desc, "")
		for _, s := range []dashboard.Slot{
			dashboard.SlotWindSpeed, dashboard.SlotHumidity, dashboard.SlotVisibility,
			dashboard.SlotPressure, dashboard.SlotSunrise, dashboard.SlotSunset,
			dashboard.SlotLastUpdate,
		} {
			b.set(s, Placeholder, "")
		}
		return
	}

	loc := w.Location()
	b.set(dashboard.SlotTemperature, formatInt(w.TempC), "")
	b.set(dashboard.SlotFeelsLike, formatInt(w.FeelsLikeC), "")
	b.set(dashboard.SlotWeatherDesc, strings.ToUpper(w.Description), "")
	b.set(dashboard.SlotWindSpeed, fmt.Sprintf("%.1f km/h", w.WindSpeedMS*mpsToKph), "")
	b.set(dashboard.SlotHumidity, formatInt(w.HumidityPct)+"%", "")
	b.set(dashboard.SlotVisibility, fmt.Sprintf("%.1f km", w.VisibilityKm), "")
	b.set(dashboard.SlotPressure, formatInt(w.PressureHpa)+" hPa", "")
	b.set(dashboard.SlotSunrise, formatClock(w.Sunrise, loc), "")
	b.set(dashboard.SlotSunset, formatClock(w.Sunset, loc), "")
	b.set(dashboard.SlotLastUpdate, formatClock(w.ObservedAt, loc), "")
}

// location fills the map-related text slots from weather, else from the place.
func (b *builder) location(v dashboard.View) {
	switch {
	case v.Weather != nil:
		w := v.Weather
		b.set(dashboard.SlotMapCity, w.City, "")
		b.set(dashboard.SlotCoordinates, formatCoordinates(w.Coordinates.Lat, w.Coordinates.Lon), "")
		b.set(dashboard.SlotTimezone, formatTimezone(w.TimezoneOffsetSec), "")
	case v.Place != nil:
		p := v.Place
		b.set(dashboard.SlotMapCity, p.Name, "")
		b.set(dashboard.SlotCoordinates, formatCoordinates(p.Coordinates.Lat, p.Coordinates.Lon), "")
		b.set(dashboard.SlotTimezone, Placeholder, "")
	default:
		b.set(dashboard.SlotMapCity, Placeholder, "")
		b.set(dashboard.SlotCoordinates, Placeholder, "")
		b.set(dashboard.SlotTimezone, Placeholder, "")
	}
}

func (b *builder) airQuality(v dashboard.View) {
	aq := v.AirQuality
	if aq == nil {
		status := Placeholder
		if v.Err(dashboard.KindAirQuality) != nil {
			status = FailedToLoad
		}
		b.set(dashboard.SlotAQIValue, Placeholder, "")
		b.set(dashboard.SlotAQIStatus, status, "")
		b.set(dashboard.SlotAQIAdvice, Placeholder, "")
		return
	}

	bucket := dashboard.Bucket(float64(aq.OverallIndex))
	label := aq.Label
	if label == "" {
		label = dashboard.ThresholdLabel(float64(aq.OverallIndex))
	}
	b.set(dashboard.SlotAQIValue, fmt.Sprintf("%d", aq.OverallIndex), string(bucket))
	b.set(dashboard.SlotAQIStatus, label, string(bucket))
	b.set(dashboard.SlotAQIAdvice, dashboard.Advice(label), "")
}

func (b *builder) energy(v dashboard.View) {
	e := v.Energy
	if e == nil {
		status, info := Placeholder, Placeholder
		if v.Err(dashboard.KindEnergy) != nil {
			status = DataUnavailable
			info = "Energy consumption data not available"
		}
		b.set(dashboard.SlotCarbonFootprint, Placeholder, "")
		b.set(dashboard.SlotCarbonStatus, status, "")
		b.set(dashboard.SlotEnergyInfo, info, "")
		return
	}

	unit := e.CO2eUnit
	if unit == "" {
		unit = "kg"
	}
	if unit == "kg" && e.CO2e >= 1000 {
		tons := e.CO2e / 1000
		b.set(dashboard.SlotCarbonFootprint, fmt.Sprintf("%.2f", tons), "")
		b.set(dashboard.SlotCarbonStatus, fmt.Sprintf("CO₂e: %.2f kg (~%.2f tons)", e.CO2e, tons), "")
	} else {
		b.set(dashboard.SlotCarbonFootprint, fmt.Sprintf("%.2f", e.CO2e), "")
		b.set(dashboard.SlotCarbonStatus, "CO₂e equivalent", "")
	}
	b.set(dashboard.SlotEnergyInfo,
		fmt.Sprintf("%s kWh/month ≈ %.2f %s CO₂e", formatGrouped(e.AssumedMonthlyKwh), e.CO2e, unit), "")
}

// place fills the population slot; the city name stands in for missing details.
func (b *builder) place(v dashboard.View) {
	text := v.City
	if p := v.Place; p != nil {
		switch {
		case p.FormattedAddress != "":
			text = p.FormattedAddress
		case p.Name != "":
			text = p.Name
		}
	}
	if text == "" {
		text = Placeholder
	}
	b.set(dashboard.SlotPopulation, text, "")
}

func (b *builder) moonPhase(v dashboard.View) {
	switch {
	case v.MoonPhase != nil && v.MoonPhase.Phase != "":
		b.set(dashboard.SlotMoonPhase, v.MoonPhase.Phase, "")
	case v.MoonPhase != nil || v.Err(dashboard.KindMoonPhase) != nil:
		b.set(dashboard.SlotMoonPhase, DataUnavailable, "")
	default:
		b.set(dashboard.SlotMoonPhase, Placeholder, "")
	}
}

func weatherRows(w *dashboard.WeatherSnapshot) []dashboard.TableRow {
	if w == nil {
		return nil
	}
	optional := func(f *float64) string {
		if f == nil {
			return NotAvailable
		}
		return formatRaw(*f)
	}
	return []dashboard.TableRow{
		{Label: "Temperature", Value: formatInt(w.TempC), Unit: "°C"},
		{Label: "Feels Like", Value: formatInt(w.FeelsLikeC), Unit: "°C"},
		{Label: "Min Temperature", Value: formatInt(w.TempMinC), Unit: "°C"},
		{Label: "Max Temperature", Value: formatInt(w.TempMaxC), Unit: "°C"},
		{Label: "Humidity", Value: formatRaw(w.HumidityPct), Unit: "%"},
		{Label: "Pressure", Value: formatRaw(w.PressureHpa), Unit: "hPa"},
		{Label: "Wind Speed", Value: formatRaw(w.WindSpeedMS), Unit: "m/s"},
		{Label: "Wind Direction", Value: optional(w.WindDeg), Unit: "degrees"},
		{Label: "Visibility", Value: fmt.Sprintf("%.1f", w.VisibilityKm), Unit: "km"},
		{Label: "Cloudiness", Value: optional(w.CloudsPct), Unit: "%"},
	}
}

// orderedPollutants returns codes in display order: known codes first, then
// unknown codes alphabetically.
func orderedPollutants(m map[dashboard.PollutantCode]float64) []dashboard.PollutantCode {
	var (
		out  []dashboard.PollutantCode
		seen = make(map[dashboard.PollutantCode]bool, len(m))
	)
	for _, info := range pollutantInfo {
		if _, ok := m[info.Code]; ok {
			out = append(out, info.Code)
			seen[info.Code] = true
		}
	}
	var rest []string
	for code := range m {
		if !seen[code] {
			rest = append(rest, string(code))
		}
	}
	sort.Strings(rest)
	for _, code := range rest {
		out = append(out, dashboard.PollutantCode(code))
	}
	return out
}

func pollutantName(code dashboard.PollutantCode) string {
	for _, info := range pollutantInfo {
		if info.Code == code {
			return info.Name
		}
	}
	return strings.ToUpper(string(code))
}

func pollutantRows(aq *dashboard.AirQualitySnapshot) []dashboard.TableRow {
	if aq == nil || len(aq.Pollutants) == 0 {
		return []dashboard.TableRow{{Label: "No air quality data available"}}
	}
	var rows []dashboard.TableRow
	for _, code := range orderedPollutants(aq.Pollutants) {
		c := aq.Pollutants[code]
		rows = append(rows, dashboard.TableRow{
			Label:  pollutantName(code),
			Value:  fmt.Sprintf("%.2f %s", c, concentrationUnit),
			Status: dashboard.ThresholdLabel(c),
		})
	}
	return rows
}

func mapView(v dashboard.View) dashboard.MapView {
	switch {
	case v.Weather != nil:
		c := v.Weather.Coordinates
		return dashboard.MapView{Lat: c.Lat, Lon: c.Lon, Zoom: cityZoom, Label: v.Weather.City, Marker: true}
	case v.Place != nil:
		c := v.Place.Coordinates
		return dashboard.MapView{Lat: c.Lat, Lon: c.Lon, Zoom: cityZoom, Label: v.Place.Name, Marker: true}
	default:
		return defaultMap
	}
}

func charts(v dashboard.View) []dashboard.Chart {
	loc := time.UTC
	if v.Weather != nil {
		loc = v.Weather.Location()
	}
	temperature := dashboard.Chart{
		ID:     "temperatureChart",
		Series: dashboard.TemperatureSeries(v.Forecast, v.ChartMode, loc),
	}

	pollutants := dashboard.Chart{ID: "pollutantChart"}
	if v.AirQuality != nil && len(v.AirQuality.Pollutants) > 0 {
		s := dashboard.ChartSeries{Name: "concentration"}
		for _, code := range orderedPollutants(v.AirQuality.Pollutants) {
			s.Labels = append(s.Labels, strings.ToUpper(string(code)))
			s.Values = append(s.Values, v.AirQuality.Pollutants[code])
		}
		pollutants.Series = []dashboard.ChartSeries{s}
	}
	return []dashboard.Chart{temperature, pollutants}
}

func jsonDump(v dashboard.View) string {
	all := struct {
		Weather    *dashboard.WeatherSnapshot    `json:"weather"`
		AirQuality *dashboard.AirQualitySnapshot `json:"airQuality"`
		Energy     *dashboard.EnergyEstimate     `json:"energy"`
	}{v.Weather, v.AirQuality, v.Energy}

	out, err := json.MarshalIndent(all, "", "  ")
	if err != nil {
		return "{}"
	}
	return string(out)
}
