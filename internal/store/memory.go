package store

import (
	"sync"

	"github.com/i474232898/smart-city-dashboard/internal/dashboard"
)

// outcome is the latest result of one kind: a value or a failure.
type outcome struct {
	weather    *dashboard.WeatherSnapshot
	airQuality *dashboard.AirQualitySnapshot
	energy     *dashboard.EnergyEstimate
	place      *dashboard.Place
	moonPhase  *dashboard.MoonPhase
	forecast   []dashboard.ForecastPoint

	errs map[dashboard.Kind]error
}

// MemoryStore is a concurrency-safe in-memory City Query Store.
// Nothing survives a restart.
type MemoryStore struct {
	mu sync.RWMutex

	defaultCity string
	city        string

	generation dashboard.Token
	latest     outcome
	chartMode  dashboard.ChartMode

	projection *dashboard.Projection

	// recent searches, newest last
	recent     []string
	maxHistory int
}

// NewMemoryStore creates a new MemoryStore. If maxHistory is <= 0, the recent
// search list is unlimited.
func NewMemoryStore(defaultCity string, maxHistory int) *MemoryStore {
	return &MemoryStore{
		defaultCity: defaultCity,
		chartMode:   dashboard.ChartHourly,
		maxHistory:  maxHistory,
		latest:      outcome{errs: make(map[dashboard.Kind]error)},
	}
}

// SetCity replaces the selected city. Empty names are rejected.
func (s *MemoryStore) SetCity(name string) error {
	name, err := dashboard.NormalizeCity(name)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.city = name
	return nil
}

// City returns the selected city or the configured default.
func (s *MemoryStore) City() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.city == "" {
		return s.defaultCity
	}
	return s.city
}

// BeginPass opens a new generation for city, makes it the selected city and
// resets every kind to pending. The city and the generation change together so
// the live generation always belongs to the selected city.
func (s *MemoryStore) BeginPass(city string) dashboard.Token {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.generation++
	s.city = city
	s.latest = outcome{errs: make(map[dashboard.Kind]error)}
	s.remember(city)
	return s.generation
}

// remember moves city to the end of the recent list and enforces retention.
func (s *MemoryStore) remember(city string) {
	for i, c := range s.recent {
		if c == city {
			s.recent = append(s.recent[:i], s.recent[i+1:]...)
			break
		}
	}
	s.recent = append(s.recent, city)

	if s.maxHistory > 0 && len(s.recent) > s.maxHistory {
		over := len(s.recent) - s.maxHistory
		s.recent = s.recent[over:]
	}
}

// Current reports whether t is the live generation.
func (s *MemoryStore) Current(t dashboard.Token) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return t == s.generation
}

// apply runs fn under the write lock when t is current.
func (s *MemoryStore) apply(t dashboard.Token, k dashboard.Kind, fn func(o *outcome)) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t != s.generation {
		return false
	}
	fn(&s.latest)
	delete(s.latest.errs, k)
	return true
}

func (s *MemoryStore) SetLatestWeather(t dashboard.Token, w dashboard.WeatherSnapshot) bool {
	return s.apply(t, dashboard.KindWeather, func(o *outcome) { o.weather = &w })
}

func (s *MemoryStore) SetLatestAirQuality(t dashboard.Token, aq dashboard.AirQualitySnapshot) bool {
	return s.apply(t, dashboard.KindAirQuality, func(o *outcome) { o.airQuality = &aq })
}

func (s *MemoryStore) SetLatestEnergy(t dashboard.Token, e dashboard.EnergyEstimate) bool {
	return s.apply(t, dashboard.KindEnergy, func(o *outcome) { o.energy = &e })
}

func (s *MemoryStore) SetLatestPlace(t dashboard.Token, p dashboard.Place) bool {
	return s.apply(t, dashboard.KindPlace, func(o *outcome) { o.place = &p })
}

func (s *MemoryStore) SetLatestMoonPhase(t dashboard.Token, m dashboard.MoonPhase) bool {
	return s.apply(t, dashboard.KindMoonPhase, func(o *outcome) { o.moonPhase = &m })
}

func (s *MemoryStore) SetLatestForecast(t dashboard.Token, points []dashboard.ForecastPoint) bool {
	cp := append([]dashboard.ForecastPoint(nil), points...)
	return s.apply(t, dashboard.KindForecast, func(o *outcome) { o.forecast = cp })
}

// SetFailure records err for kind k and clears that kind's snapshot.
func (s *MemoryStore) SetFailure(t dashboard.Token, k dashboard.Kind, err error) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t != s.generation {
		return false
	}

	switch k {
	case dashboard.KindWeather:
		s.latest.weather = nil
	case dashboard.KindAirQuality:
		s.latest.airQuality = nil
	case dashboard.KindEnergy:
		s.latest.energy = nil
	case dashboard.KindPlace:
		s.latest.place = nil
	case dashboard.KindMoonPhase:
		s.latest.moonPhase = nil
	case dashboard.KindForecast:
		s.latest.forecast = nil
	}
	s.latest.errs[k] = err
	return true
}

// Settle projects and records the view if t is still current.
func (s *MemoryStore) Settle(t dashboard.Token, project dashboard.ProjectFunc) (dashboard.Projection, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t != s.generation {
		return dashboard.Projection{}, false
	}
	p := project(s.viewLocked())
	s.projection = &p
	return p, true
}

// Reproject projects the current view and records it.
func (s *MemoryStore) Reproject(project dashboard.ProjectFunc) dashboard.Projection {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := project(s.viewLocked())
	s.projection = &p
	return p
}

// Projection returns the last recorded projection.
func (s *MemoryStore) Projection() (dashboard.Projection, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.projection == nil {
		return dashboard.Projection{}, false
	}
	return *s.projection, true
}

// View returns a copy of the current state.
func (s *MemoryStore) View() dashboard.View {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.viewLocked()
}

func (s *MemoryStore) viewLocked() dashboard.View {
	city := s.city
	if city == "" {
		city = s.defaultCity
	}

	v := dashboard.View{
		City:      city,
		ChartMode: s.chartMode,
		Forecast:  append([]dashboard.ForecastPoint(nil), s.latest.forecast...),
		Errors:    make(map[dashboard.Kind]error, len(s.latest.errs)),
	}
	if s.latest.weather != nil {
		w := *s.latest.weather
		v.Weather = &w
	}
	if s.latest.airQuality != nil {
		aq := *s.latest.airQuality
		aq.Pollutants = make(map[dashboard.PollutantCode]float64, len(s.latest.airQuality.Pollutants))
		for code, c := range s.latest.airQuality.Pollutants {
			aq.Pollutants[code] = c
		}
		v.AirQuality = &aq
	}
	if s.latest.energy != nil {
		e := *s.latest.energy
		v.Energy = &e
	}
	if s.latest.place != nil {
		p := *s.latest.place
		v.Place = &p
	}
	if s.latest.moonPhase != nil {
		m := *s.latest.moonPhase
		v.MoonPhase = &m
	}
	for k, err := range s.latest.errs {
		v.Errors[k] = err
	}
	return v
}

// ChartMode returns the chart display mode.
func (s *MemoryStore) ChartMode() dashboard.ChartMode {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.chartMode
}

// ToggleChartMode cycles hourly/weekly and returns the new mode.
func (s *MemoryStore) ToggleChartMode() dashboard.ChartMode {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.chartMode = s.chartMode.Next()
	return s.chartMode
}

// Recent returns recently searched cities, newest first.
func (s *MemoryStore) Recent() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]string, 0, len(s.recent))
	for i := len(s.recent) - 1; i >= 0; i-- {
		out = append(out, s.recent[i])
	}
	return out
}

var _ dashboard.Store = (*MemoryStore)(nil)
