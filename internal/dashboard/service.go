package dashboard

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Pass is the outcome of one orchestration pass.
type Pass struct {
	ID         string     `json:"id"`
	Token      Token      `json:"generation"`
	City       string     `json:"city"`
	Projection Projection `json:"projection"`
}

// Service sequences the provider adapters for one city and hands the
// settled state to the projector.
type Service struct {
	store     Store
	providers Providers
	project   ProjectFunc

	monthlyKwh  float64
	passTimeout time.Duration
	now         func() time.Time

	mu         sync.Mutex
	cancelPrev context.CancelFunc
}

// Option configures a Service.
type Option func(*Service)

// WithClock overrides time.Now (energy year, moon phase day).
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithPassTimeout bounds a whole pass. Zero disables the deadline.
func WithPassTimeout(d time.Duration) Option {
	return func(s *Service) { s.passTimeout = d }
}

// WithMonthlyKwh sets the assumed monthly consumption sent to the energy adapter.
func WithMonthlyKwh(kwh float64) Option {
	return func(s *Service) {
		if kwh > 0 {
			s.monthlyKwh = kwh
		}
	}
}

// NewService creates a new Service.
func NewService(store Store, providers Providers, project ProjectFunc, opts ...Option) *Service {
	s := &Service{
		store:       store,
		providers:   providers,
		project:     project,
		monthlyKwh:  DefaultMonthlyKwh,
		passTimeout: 30 * time.Second,
		now:         time.Now,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Run executes one orchestration pass for a city name.
func (s *Service) Run(ctx context.Context, city string) (Pass, error) {
	name, err := NormalizeCity(city)
	if err != nil {
		return Pass{}, err
	}
	return s.run(ctx, name, nil)
}

// RunSelection executes a pass for a place picked from autocomplete. The
// selection coordinates stand in for the map when weather cannot be fetched.
func (s *Service) RunSelection(ctx context.Context, sel PlaceSelection) (Pass, error) {
	if err := sel.Validate(); err != nil {
		return Pass{}, err
	}
	name, err := NormalizeCity(sel.Name)
	if err != nil {
		return Pass{}, err
	}
	coords := Coordinates{Lat: sel.Lat, Lon: sel.Lon}
	return s.run(ctx, name, &coords)
}

// Refresh re-runs the pass for the currently selected city.
func (s *Service) Refresh(ctx context.Context) (Pass, error) {
	return s.Run(ctx, s.store.City())
}

// Current returns the last settled projection, projecting the view if no
// pass has settled yet.
func (s *Service) Current() Projection {
	if p, ok := s.store.Projection(); ok {
		return p
	}
	return s.store.Reproject(s.project)
}

// ToggleChartMode flips hourly/weekly and re-projects the current state.
func (s *Service) ToggleChartMode() (ChartMode, Projection) {
	mode := s.store.ToggleChartMode()
	return mode, s.store.Reproject(s.project)
}

// Recent lists recently searched cities, newest first.
func (s *Service) Recent() []string {
	return s.store.Recent()
}

// begin cancels the previous pass and opens a new generation.
func (s *Service) begin(ctx context.Context, city string) (context.Context, context.CancelFunc, Token) {
	var (
		passCtx context.Context
		cancel  context.CancelFunc
	)
	if s.passTimeout > 0 {
		passCtx, cancel = context.WithTimeout(ctx, s.passTimeout)
	} else {
		passCtx, cancel = context.WithCancel(ctx)
	}

	// The new generation must exist before the old pass wakes up, so that
	// its settle sees a stale token.
	s.mu.Lock()
	token := s.store.BeginPass(city)
	if s.cancelPrev != nil {
		s.cancelPrev()
	}
	s.cancelPrev = cancel
	s.mu.Unlock()

	return passCtx, cancel, token
}

func (s *Service) run(ctx context.Context, city string, hint *Coordinates) (Pass, error) {
	passCtx, cancel, token := s.begin(ctx, city)
	defer cancel()

	id := uuid.NewString()
	log.Printf("INFO: pass %s (generation %d) started for %s", id, token, city)

	var wg sync.WaitGroup

	w, err := s.fetchWeather(passCtx, city)
	if err != nil {
		log.Printf("provider weather fetch failed for %s: %v", city, err)
		s.store.SetFailure(token, KindWeather, err)
		for _, k := range []Kind{KindAirQuality, KindEnergy, KindMoonPhase, KindForecast} {
			s.store.SetFailure(token, k, ErrMissingCoordinates)
		}

		wg.Add(1)
		go func() {
			defer wg.Done()
			s.lookupPlace(passCtx, token, city, hint)
		}()
	} else {
		s.store.SetLatestWeather(token, w)
		coords := w.Coordinates

		tasks := []func(){
			func() { s.fetchAirQuality(passCtx, token, coords) },
			func() { s.fetchEnergy(passCtx, token, w.Region()) },
			func() { s.lookupPlace(passCtx, token, city, &coords) },
			func() { s.fetchMoonPhase(passCtx, token, coords, w.Location()) },
			func() { s.fetchForecast(passCtx, token, coords) },
		}
		for _, task := range tasks {
			task := task
			wg.Add(1)
			go func() {
				defer wg.Done()
				task()
			}()
		}
	}

	wg.Wait()

	proj, ok := s.store.Settle(token, s.project)
	if !ok {
		log.Printf("INFO: pass %s (generation %d) for %s superseded; results discarded", id, token, city)
		return Pass{}, ErrSuperseded
	}
	log.Printf("INFO: pass %s (generation %d) settled for %s", id, token, city)

	return Pass{ID: id, Token: token, City: city, Projection: proj}, nil
}

func (s *Service) fetchWeather(ctx context.Context, city string) (WeatherSnapshot, error) {
	if s.providers.Weather == nil {
		return WeatherSnapshot{}, NewFetchError("weather", FetchConfig, "no weather provider configured", nil)
	}
	return s.providers.Weather.Fetch(ctx, city)
}

func (s *Service) fetchAirQuality(ctx context.Context, token Token, coords Coordinates) {
	if s.providers.AirQuality == nil {
		s.store.SetFailure(token, KindAirQuality, NewFetchError("airQuality", FetchConfig, "no air quality provider configured", nil))
		return
	}
	aq, err := s.providers.AirQuality.Fetch(ctx, coords)
	if err != nil {
		s.fail(token, KindAirQuality, s.providers.AirQuality.Name(), err)
		return
	}
	s.store.SetLatestAirQuality(token, aq)
}

func (s *Service) fetchEnergy(ctx context.Context, token Token, region string) {
	if s.providers.Energy == nil {
		s.store.SetFailure(token, KindEnergy, NewFetchError("energy", FetchConfig, "no energy provider configured", nil))
		return
	}
	req := EnergyRequest{
		Region:     region,
		MonthlyKwh: s.monthlyKwh,
		Year:       s.now().Year(),
	}
	e, err := s.providers.Energy.Estimate(ctx, req)
	if err != nil {
		s.fail(token, KindEnergy, s.providers.Energy.Name(), err)
		return
	}
	s.store.SetLatestEnergy(token, e)
}

// lookupPlace resolves place details. With coordinates it reverse-geocodes;
// without, it looks the city up by name.
func (s *Service) lookupPlace(ctx context.Context, token Token, city string, coords *Coordinates) {
	if s.providers.Place == nil {
		if coords != nil {
			s.store.SetLatestPlace(token, Place{Name: city, Coordinates: *coords})
			return
		}
		s.store.SetFailure(token, KindPlace, NewFetchError("place", FetchConfig, "no place provider configured", nil))
		return
	}

	var (
		p   Place
		err error
	)
	if coords != nil {
		p, err = s.providers.Place.Reverse(ctx, *coords)
	} else {
		p, err = s.providers.Place.Lookup(ctx, city)
	}
	if err != nil {
		if coords != nil {
			log.Printf("provider %s lookup failed for %s: %v", s.providers.Place.Name(), city, err)
			s.store.SetLatestPlace(token, Place{Name: city, Coordinates: *coords})
			return
		}
		s.fail(token, KindPlace, s.providers.Place.Name(), err)
		return
	}
	if p.Name == "" {
		p.Name = city
	}
	s.store.SetLatestPlace(token, p)
}

func (s *Service) fetchMoonPhase(ctx context.Context, token Token, coords Coordinates, loc *time.Location) {
	if s.providers.Astronomy == nil {
		s.store.SetFailure(token, KindMoonPhase, NewFetchError("astronomy", FetchConfig, "no astronomy provider configured", nil))
		return
	}
	m, err := s.providers.Astronomy.MoonPhase(ctx, coords, s.now().In(loc))
	if err != nil {
		s.fail(token, KindMoonPhase, s.providers.Astronomy.Name(), err)
		return
	}
	s.store.SetLatestMoonPhase(token, m)
}

func (s *Service) fetchForecast(ctx context.Context, token Token, coords Coordinates) {
	if s.providers.Forecast == nil {
		s.store.SetFailure(token, KindForecast, NewFetchError("forecast", FetchConfig, "no forecast provider configured", nil))
		return
	}
	points, err := s.providers.Forecast.Forecast(ctx, coords)
	if err != nil {
		s.fail(token, KindForecast, s.providers.Forecast.Name(), err)
		return
	}
	s.store.SetLatestForecast(token, upcoming(points, s.now()))
}

// upcoming drops points before the current hour. Vendors start the hourly
// series at local midnight, so the chart would otherwise lead with the past.
func upcoming(points []ForecastPoint, now time.Time) []ForecastPoint {
	cutoff := now.Truncate(time.Hour)
	for i, p := range points {
		if !p.Time.Before(cutoff) {
			return points[i:]
		}
	}
	return nil
}

func (s *Service) fail(token Token, k Kind, provider string, err error) {
	log.Printf("provider %s fetch failed (%s): %v", provider, k, err)
	if !s.store.SetFailure(token, k, err) {
		log.Printf("DEBUG: dropped stale %s failure for generation %d", k, token)
	}
}

// String is used in log lines.
func (p Pass) String() string {
	return fmt.Sprintf("pass %s (generation %d) for %s", p.ID, p.Token, p.City)
}
