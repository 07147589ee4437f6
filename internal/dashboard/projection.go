package dashboard

// Slot names a unit of the display surface.
type Slot string

const (
	SlotSelectedCity    Slot = "selectedCity"
	SlotTemperature     Slot = "temperature"
	SlotFeelsLike       Slot = "feelsLike"
	SlotWeatherDesc     Slot = "weatherDesc"
	SlotWindSpeed       Slot = "windSpeed"
	SlotHumidity        Slot = "humidity"
	SlotVisibility      Slot = "visibility"
	SlotPressure        Slot = "pressure"
	SlotSunrise         Slot = "sunrise"
	SlotSunset          Slot = "sunset"
	SlotLastUpdate      Slot = "lastUpdate"
	SlotMapCity         Slot = "mapCity"
	SlotCoordinates     Slot = "coordinates"
	SlotTimezone        Slot = "timezone"
	SlotAQIValue        Slot = "aqiValue"
	SlotAQIStatus       Slot = "aqiStatus"
	SlotAQIAdvice       Slot = "aqiAdvice"
	SlotCarbonFootprint Slot = "carbonFootprint"
	SlotCarbonStatus    Slot = "carbonStatus"
	SlotEnergyInfo      Slot = "energyInfo"
	SlotPopulation      Slot = "population"
	SlotMoonPhase       Slot = "moonPhase"
	SlotChartMode       Slot = "chartMode"
)

// SlotUpdate is the text (and optional CSS class) written to one slot.
type SlotUpdate struct {
	Slot  Slot   `json:"slot"`
	Text  string `json:"text"`
	Class string `json:"class,omitempty"`
}

// TableRow is one row of a raw data table.
type TableRow struct {
	Label string `json:"label"`
	Value string `json:"value"`
	Unit  string `json:"unit,omitempty"`
	// Status is set on pollutant rows.
	Status string `json:"status,omitempty"`
}

// MapView is the center/marker handed to the map sink.
type MapView struct {
	Lat   float64 `json:"lat"`
	Lon   float64 `json:"lon"`
	Zoom  int     `json:"zoom"`
	Label string  `json:"label,omitempty"`
	// Marker is false for the default world view.
	Marker bool `json:"marker"`
}

// Chart is one chart container and its series.
type Chart struct {
	ID     string        `json:"id"`
	Series []ChartSeries `json:"series"`
}

// Projection is the declarative set of display updates for one pass.
type Projection struct {
	Slots         []SlotUpdate `json:"slots"`
	WeatherRows   []TableRow   `json:"weatherRows"`
	PollutantRows []TableRow   `json:"pollutantRows"`
	Map           MapView      `json:"map"`
	Charts        []Chart      `json:"charts"`
	JSONDump      string       `json:"jsonDump"`
}

// Text returns the text of a slot, or "" if it is not present.
func (p Projection) Text(s Slot) string {
	if u, ok := p.Lookup(s); ok {
		return u.Text
	}
	return ""
}

// Lookup returns the update for a slot.
func (p Projection) Lookup(s Slot) (SlotUpdate, bool) {
	for _, u := range p.Slots {
		if u.Slot == s {
			return u, true
		}
	}
	return SlotUpdate{}, false
}
