package dashboard

// Token is the generation of an orchestration pass. Writes carrying a token
// older than the store's current generation are discarded.
type Token uint64

// ProjectFunc turns a settled view into display updates.
type ProjectFunc func(View) Projection

// Store is the contract of the City Query Store.
type Store interface {
	SetCity(name string) error
	City() string

	// BeginPass selects city and opens a new generation in one step.
	BeginPass(city string) Token
	Current(t Token) bool

	SetLatestWeather(t Token, w WeatherSnapshot) bool
	SetLatestAirQuality(t Token, aq AirQualitySnapshot) bool
	SetLatestEnergy(t Token, e EnergyEstimate) bool
	SetLatestPlace(t Token, p Place) bool
	SetLatestMoonPhase(t Token, m MoonPhase) bool
	SetLatestForecast(t Token, points []ForecastPoint) bool
	SetFailure(t Token, k Kind, err error) bool

	// Settle projects the current view under the store lock and records the
	// result, provided t is still the current generation.
	Settle(t Token, project ProjectFunc) (Projection, bool)
	// Reproject re-runs project over the current view regardless of generation.
	Reproject(project ProjectFunc) Projection
	Projection() (Projection, bool)

	View() View
	ChartMode() ChartMode
	ToggleChartMode() ChartMode
	Recent() []string
}
