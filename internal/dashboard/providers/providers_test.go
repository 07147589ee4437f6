package providers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/kelvins/geocoder"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/i474232898/smart-city-dashboard/internal/dashboard"
)

func testOptions() Options {
	return Options{Client: &http.Client{Timeout: 2 * time.Second}}
}

func serve(t *testing.T, status int, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = io.WriteString(w, body)
	}))
	t.Cleanup(srv.Close)
	return srv
}

const openWeatherDelhi = `{
  "coord": {"lon": 77.2167, "lat": 28.6667},
  "weather": [{"id": 721, "main": "Haze", "description": "haze"}],
  "main": {"temp": 24.6, "feels_like": 27.2, "temp_min": 23.1, "temp_max": 25.9, "pressure": 1012, "humidity": 65},
  "visibility": 3000,
  "wind": {"speed": 2.57, "deg": 270},
  "clouds": {"all": 20},
  "dt": 1709274600,
  "sys": {"country": "IN", "sunrise": 1709254742, "sunset": 1709296710},
  "timezone": 19800,
  "name": "Delhi",
  "cod": 200
}`

func TestOpenWeatherFetch(t *testing.T) {
	var gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.RawQuery
		assert.Equal(t, "/weather", r.URL.Path)
		_, _ = io.WriteString(w, openWeatherDelhi)
	}))
	defer srv.Close()

	p := NewOpenWeatherProvider(testOptions(), "k")
	p.baseURL = srv.URL

	w, err := p.Fetch(context.Background(), "Delhi")
	require.NoError(t, err)

	assert.Contains(t, gotQuery, "q=Delhi")
	assert.Contains(t, gotQuery, "units=metric")
	assert.Equal(t, "Delhi", w.City)
	assert.Equal(t, 24.6, w.TempC)
	assert.Equal(t, 65.0, w.HumidityPct)
	assert.Equal(t, 3.0, w.VisibilityKm)
	assert.Equal(t, "haze", w.Description)
	assert.Equal(t, "IN", w.CountryCode)
	assert.Equal(t, 19800, w.TimezoneOffsetSec)
	assert.Equal(t, dashboard.Coordinates{Lat: 28.6667, Lon: 77.2167}, w.Coordinates)
	require.NotNil(t, w.WindDeg)
	assert.Equal(t, 270.0, *w.WindDeg)
	assert.Equal(t, int64(1709274600), w.ObservedAt.Unix())
}

func TestOpenWeatherNotFound(t *testing.T) {
	srv := serve(t, http.StatusNotFound, `{"cod":"404","message":"city not found"}`)

	p := NewOpenWeatherProvider(testOptions(), "k")
	p.baseURL = srv.URL

	_, err := p.Fetch(context.Background(), "Atlantis")
	require.Error(t, err)
	assert.Equal(t, dashboard.FetchNotFound, dashboard.FetchKindOf(err))
}

func TestOpenWeatherBodyStatusMismatch(t *testing.T) {
	srv := serve(t, http.StatusOK, `{"cod":"401","message":"invalid key"}`)

	p := NewOpenWeatherProvider(testOptions(), "k")
	p.baseURL = srv.URL

	_, err := p.Fetch(context.Background(), "Delhi")
	assert.Equal(t, dashboard.FetchStatus, dashboard.FetchKindOf(err))
}

func TestOpenWeatherShapeMismatch(t *testing.T) {
	srv := serve(t, http.StatusOK, `{"cod":200,"name":"Delhi"}`)

	p := NewOpenWeatherProvider(testOptions(), "k")
	p.baseURL = srv.URL

	_, err := p.Fetch(context.Background(), "Delhi")
	assert.Equal(t, dashboard.FetchShape, dashboard.FetchKindOf(err))
}

func TestOpenWeatherMissingKey(t *testing.T) {
	p := NewOpenWeatherProvider(testOptions(), "")
	_, err := p.Fetch(context.Background(), "Delhi")
	assert.Equal(t, dashboard.FetchConfig, dashboard.FetchKindOf(err))
}

func TestServerErrorIsNotRetriedByDefault(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	p := NewOpenWeatherProvider(testOptions(), "k")
	p.baseURL = srv.URL

	_, err := p.Fetch(context.Background(), "Delhi")
	assert.Equal(t, dashboard.FetchStatus, dashboard.FetchKindOf(err))
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestAbandonedCallsDoNotOpenCircuit(t *testing.T) {
	var healthy atomic.Bool
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !healthy.Load() {
			select {
			case <-r.Context().Done():
			case <-release:
			}
			return
		}
		_, _ = io.WriteString(w, openWeatherDelhi)
	}))
	defer srv.Close()
	defer close(release)

	p := NewOpenWeatherProvider(testOptions(), "k")
	p.baseURL = srv.URL

	for i := 0; i < 8; i++ {
		var (
			ctx    context.Context
			cancel context.CancelFunc
		)
		if i%2 == 0 {
			ctx, cancel = context.WithTimeout(context.Background(), 20*time.Millisecond)
		} else {
			ctx, cancel = context.WithCancel(context.Background())
			time.AfterFunc(20*time.Millisecond, cancel)
		}
		_, err := p.Fetch(ctx, "Delhi")
		cancel()
		require.Error(t, err)
		assert.NotEqual(t, dashboard.FetchCircuitOpen, dashboard.FetchKindOf(err))
	}

	healthy.Store(true)
	w, err := p.Fetch(context.Background(), "Delhi")
	require.NoError(t, err)
	assert.Equal(t, "Delhi", w.City)
}

func TestServerErrorsOpenCircuit(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	p := NewOpenWeatherProvider(testOptions(), "k")
	p.baseURL = srv.URL

	for i := 0; i < 6; i++ {
		_, err := p.Fetch(context.Background(), "Delhi")
		assert.Equal(t, dashboard.FetchStatus, dashboard.FetchKindOf(err))
	}

	_, err := p.Fetch(context.Background(), "Delhi")
	assert.Equal(t, dashboard.FetchCircuitOpen, dashboard.FetchKindOf(err))
	assert.Equal(t, int32(6), atomic.LoadInt32(&calls))
}

func TestCountsAsHealthy(t *testing.T) {
	assert.True(t, countsAsHealthy(nil))
	assert.True(t, countsAsHealthy(fmt.Errorf("%w: %w", errAbandoned, context.DeadlineExceeded)))
	assert.True(t, countsAsHealthy(context.Canceled))
	assert.False(t, countsAsHealthy(errServerError))
	assert.False(t, countsAsHealthy(errors.New("connection refused")))
}

func TestTooManyRequestsIsRateLimited(t *testing.T) {
	srv := serve(t, http.StatusTooManyRequests, `{}`)

	p := NewOpenWeatherAirProvider(testOptions(), "k")
	p.baseURL = srv.URL

	_, err := p.Fetch(context.Background(), dashboard.Coordinates{Lat: 1, Lon: 2})
	assert.Equal(t, dashboard.FetchRateLimited, dashboard.FetchKindOf(err))
}

func TestOpenWeatherAirFetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/air_pollution", r.URL.Path)
		assert.Equal(t, "28.61", r.URL.Query().Get("lat"))
		_, _ = io.WriteString(w, `{"list":[{"main":{"aqi":3},"components":{"co":240.33,"pm2_5":45,"PM10":130.5}}]}`)
	}))
	defer srv.Close()

	p := NewOpenWeatherAirProvider(testOptions(), "k")
	p.baseURL = srv.URL

	aq, err := p.Fetch(context.Background(), dashboard.Coordinates{Lat: 28.61, Lon: 77.21})
	require.NoError(t, err)
	assert.Equal(t, 100, aq.OverallIndex)
	assert.Equal(t, "Moderate", aq.Label)
	assert.Equal(t, 130.5, aq.Pollutants["pm10"])
	assert.Len(t, aq.Pollutants, 3)
}

func TestOpenWeatherAirEmptyAndOutOfRange(t *testing.T) {
	for _, body := range []string{`{"list":[]}`, `{"list":[{"main":{"aqi":9},"components":{}}]}`} {
		srv := serve(t, http.StatusOK, body)
		p := NewOpenWeatherAirProvider(testOptions(), "k")
		p.baseURL = srv.URL

		_, err := p.Fetch(context.Background(), dashboard.Coordinates{})
		assert.Equal(t, dashboard.FetchShape, dashboard.FetchKindOf(err), body)
	}
}

func TestWeatherAPIFetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/current.json", r.URL.Path)
		_, _ = io.WriteString(w, `{
		  "location": {"name": "Paris", "country": "France", "lat": 48.87, "lon": 2.33, "tz_id": "UTC"},
		  "current": {"last_updated_epoch": 1709274600, "temp_c": 8.2, "feelslike_c": 6.1, "wind_kph": 18,
		    "wind_degree": 200, "pressure_mb": 1020, "humidity": 81, "cloud": 75, "vis_km": 10,
		    "condition": {"text": "Partly cloudy"}}
		}`)
	}))
	defer srv.Close()

	p := NewWeatherAPIProvider(testOptions(), "k")
	p.baseURL = srv.URL

	w, err := p.Fetch(context.Background(), "Paris")
	require.NoError(t, err)
	assert.Equal(t, "Paris", w.City)
	assert.InDelta(t, 5.0, w.WindSpeedMS, 1e-9)
	assert.Equal(t, "partly cloudy", w.Description)
	assert.Equal(t, 10.0, w.VisibilityKm)
	assert.Equal(t, "", w.CountryCode)
	assert.Equal(t, dashboard.GlobalRegion, w.Region())
	assert.Equal(t, 0, w.TimezoneOffsetSec)
}

func TestWeatherAPINoMatchingLocation(t *testing.T) {
	srv := serve(t, http.StatusBadRequest, `{"error":{"code":1006,"message":"No matching location found."}}`)

	p := NewWeatherAPIProvider(testOptions(), "k")
	p.baseURL = srv.URL

	_, err := p.Fetch(context.Background(), "Atlantis")
	assert.Equal(t, dashboard.FetchNotFound, dashboard.FetchKindOf(err))
}

func TestCountryCode(t *testing.T) {
	assert.Equal(t, "US", countryCode("us"))
	assert.Equal(t, "", countryCode("United States of America"))
}

func TestZoneOffset(t *testing.T) {
	at := time.Date(2024, 7, 1, 12, 0, 0, 0, time.UTC)
	assert.Equal(t, 19800, zoneOffset("Asia/Kolkata", at))
	assert.Equal(t, 7200, zoneOffset("Europe/Paris", at))
	assert.Equal(t, 0, zoneOffset("Not/AZone", at))
	assert.Equal(t, 0, zoneOffset("", at))
}

func TestWAQIFetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/feed/geo:28.61;77.21/", r.URL.Path)
		assert.Equal(t, "tok", r.URL.Query().Get("token"))
		_, _ = io.WriteString(w, `{"status":"ok","data":{"aqi":153,"iaqi":{
		  "pm25":{"v":153},"no2":{"v":12.4},"t":{"v":24.5},"h":{"v":61},"p":{"v":1012},"w":{"v":2.1},"wg":{"v":5.3},"dew":{"v":14}}}}`)
	}))
	defer srv.Close()

	p := NewWAQIProvider(testOptions(), "tok")
	p.baseURL = srv.URL

	aq, err := p.Fetch(context.Background(), dashboard.Coordinates{Lat: 28.61, Lon: 77.21})
	require.NoError(t, err)
	assert.Equal(t, 153, aq.OverallIndex)
	assert.Equal(t, "Unhealthy", aq.Label)
	assert.Equal(t, 12.4, aq.Pollutants["no2"])
	assert.Len(t, aq.Pollutants, 2)
	for _, code := range []dashboard.PollutantCode{"t", "h", "p", "w", "wg", "dew"} {
		assert.NotContains(t, aq.Pollutants, code)
	}
}

func TestWAQIErrors(t *testing.T) {
	cases := map[string]dashboard.FetchErrorKind{
		`{"status":"ok","data":{"aqi":"-","iaqi":{}}}`: dashboard.FetchShape,
		`{"status":"error","data":"Invalid key"}`:      dashboard.FetchStatus,
		`{"status":"ok","data":"not an object"}`:       dashboard.FetchShape,
		`not json`:                                     dashboard.FetchShape,
	}
	for body, want := range cases {
		srv := serve(t, http.StatusOK, body)
		p := NewWAQIProvider(testOptions(), "tok")
		p.baseURL = srv.URL

		_, err := p.Fetch(context.Background(), dashboard.Coordinates{})
		assert.Equal(t, want, dashboard.FetchKindOf(err), body)
	}
}

func TestClimatiqEstimate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/energy/v1.2/electricity", r.URL.Path)
		assert.Equal(t, "Bearer key", r.Header.Get("Authorization"))

		var req climatiqRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "IN", req.Region)
		assert.Equal(t, 2024, req.Year)
		assert.Equal(t, "core", req.SourceSet)
		assert.Equal(t, climatiqAmount{Energy: 50000, EnergyUnit: "kWh"}, req.Amount)

		_, _ = io.WriteString(w, `{"co2e": 35450.5, "co2e_unit": "kg"}`)
	}))
	defer srv.Close()

	p := NewClimatiqProvider(testOptions(), "key")
	p.baseURL = srv.URL

	e, err := p.Estimate(context.Background(), dashboard.EnergyRequest{Region: "IN", MonthlyKwh: 50000, Year: 2024})
	require.NoError(t, err)
	assert.Equal(t, 35450.5, e.CO2e)
	assert.Equal(t, "kg", e.CO2eUnit)
	assert.Equal(t, 50000.0, e.AssumedMonthlyKwh)
}

func TestClimatiqMissingCO2e(t *testing.T) {
	srv := serve(t, http.StatusOK, `{"co2e_unit": "kg"}`)

	p := NewClimatiqProvider(testOptions(), "key")
	p.baseURL = srv.URL

	_, err := p.Estimate(context.Background(), dashboard.EnergyRequest{MonthlyKwh: 1})
	assert.Equal(t, dashboard.FetchShape, dashboard.FetchKindOf(err))
}

func TestUSNOMoonPhase(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/rstt/oneday", r.URL.Path)
		assert.Equal(t, "2024-03-01", r.URL.Query().Get("date"))
		assert.Equal(t, "28.61,77.21", r.URL.Query().Get("coords"))
		_, _ = io.WriteString(w, `{"properties":{"data":{"curphase":"Waning Gibbous"}}}`)
	}))
	defer srv.Close()

	p := NewUSNOProvider(testOptions())
	p.baseURL = srv.URL

	m, err := p.MoonPhase(context.Background(), dashboard.Coordinates{Lat: 28.61, Lon: 77.21}, time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, "Waning Gibbous", m.Phase)
}

func TestUSNOMissingPhase(t *testing.T) {
	srv := serve(t, http.StatusOK, `{"properties":{"data":{}}}`)

	p := NewUSNOProvider(testOptions())
	p.baseURL = srv.URL

	_, err := p.MoonPhase(context.Background(), dashboard.Coordinates{}, time.Now())
	assert.Equal(t, dashboard.FetchShape, dashboard.FetchKindOf(err))
}

func TestOpenMeteoForecast(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "temperature_2m,relative_humidity_2m", q.Get("hourly"))
		assert.Equal(t, "7", q.Get("forecast_days"))
		_, _ = io.WriteString(w, `{"hourly":{"time":["2024-03-01T00:00","2024-03-01T01:00"],
		  "temperature_2m":[20.1,19.5],"relative_humidity_2m":[60,62]}}`)
	}))
	defer srv.Close()

	p := NewOpenMeteoProvider(testOptions())
	p.baseURL = srv.URL

	points, err := p.Forecast(context.Background(), dashboard.Coordinates{Lat: 1, Lon: 2})
	require.NoError(t, err)
	require.Len(t, points, 2)
	assert.Equal(t, time.Date(2024, 3, 1, 1, 0, 0, 0, time.UTC), points[1].Time)
	assert.Equal(t, 62.0, points[1].HumidityPct)
}

func TestOpenMeteoSkipsNullHours(t *testing.T) {
	srv := serve(t, http.StatusOK, `{"hourly":{"time":["2024-03-01T00:00","2024-03-01T01:00","2024-03-01T02:00"],
	  "temperature_2m":[20.1,null,18.0],"relative_humidity_2m":[60,61,null]}}`)

	p := NewOpenMeteoProvider(testOptions())
	p.baseURL = srv.URL

	points, err := p.Forecast(context.Background(), dashboard.Coordinates{})
	require.NoError(t, err)
	require.Len(t, points, 1)
	assert.Equal(t, 20.1, points[0].TempC)

	srv = serve(t, http.StatusOK, `{"hourly":{"time":["2024-03-01T00:00"],"temperature_2m":[null],"relative_humidity_2m":[null]}}`)
	p.baseURL = srv.URL
	_, err = p.Forecast(context.Background(), dashboard.Coordinates{})
	assert.Equal(t, dashboard.FetchShape, dashboard.FetchKindOf(err))
}

func TestOpenMeteoLengthMismatch(t *testing.T) {
	srv := serve(t, http.StatusOK, `{"hourly":{"time":["2024-03-01T00:00"],"temperature_2m":[],"relative_humidity_2m":[1]}}`)

	p := NewOpenMeteoProvider(testOptions())
	p.baseURL = srv.URL

	_, err := p.Forecast(context.Background(), dashboard.Coordinates{})
	assert.Equal(t, dashboard.FetchShape, dashboard.FetchKindOf(err))
}

func TestGeocoderReverseAndLookup(t *testing.T) {
	p := NewGoogleGeocoderProvider(testOptions(), "key")
	p.reverse = func(loc geocoder.Location) ([]geocoder.Address, error) {
		assert.Equal(t, 28.61, loc.Latitude)
		return []geocoder.Address{{City: "New Delhi", FormattedAddress: "New Delhi, Delhi, India"}}, nil
	}
	p.forward = func(addr geocoder.Address) (geocoder.Location, error) {
		assert.Equal(t, "Paris", addr.City)
		return geocoder.Location{Latitude: 48.85, Longitude: 2.35}, nil
	}

	place, err := p.Reverse(context.Background(), dashboard.Coordinates{Lat: 28.61, Lon: 77.21})
	require.NoError(t, err)
	assert.Equal(t, "New Delhi, Delhi, India", place.FormattedAddress)
	assert.Equal(t, "New Delhi", place.Name)

	place, err = p.Lookup(context.Background(), "Paris")
	require.NoError(t, err)
	assert.Equal(t, dashboard.Coordinates{Lat: 48.85, Lon: 2.35}, place.Coordinates)
}

func TestGeocoderFailures(t *testing.T) {
	p := NewGoogleGeocoderProvider(testOptions(), "key")
	p.reverse = func(geocoder.Location) ([]geocoder.Address, error) { return nil, nil }
	p.forward = func(geocoder.Address) (geocoder.Location, error) {
		return geocoder.Location{}, errors.New("ZERO_RESULTS")
	}

	_, err := p.Reverse(context.Background(), dashboard.Coordinates{})
	assert.Equal(t, dashboard.FetchNotFound, dashboard.FetchKindOf(err))

	_, err = p.Lookup(context.Background(), "Atlantis")
	assert.Equal(t, dashboard.FetchStatus, dashboard.FetchKindOf(err))
}

func TestGeocoderHonoursContext(t *testing.T) {
	release := make(chan struct{})
	defer close(release)

	p := NewGoogleGeocoderProvider(testOptions(), "key")
	p.forward = func(geocoder.Address) (geocoder.Location, error) {
		<-release
		return geocoder.Location{}, nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := p.Lookup(ctx, "Paris")
	assert.Equal(t, dashboard.FetchNetwork, dashboard.FetchKindOf(err))
}

func TestRateLimiterHonoursContext(t *testing.T) {
	srv := serve(t, http.StatusOK, openWeatherDelhi)

	opts := testOptions()
	opts.RatePerSecond = 0.001
	opts.Burst = 1
	p := NewOpenWeatherProvider(opts, "k")
	p.baseURL = srv.URL

	_, err := p.Fetch(context.Background(), "Delhi")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err = p.Fetch(ctx, "Delhi")
	assert.Equal(t, dashboard.FetchRateLimited, dashboard.FetchKindOf(err))
}

func TestFlexibleInt(t *testing.T) {
	var v struct {
		A flexibleInt `json:"a"`
		B flexibleInt `json:"b"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"a":200,"b":"404"}`), &v))
	assert.Equal(t, flexibleInt(200), v.A)
	assert.Equal(t, flexibleInt(404), v.B)

	assert.Error(t, json.NewDecoder(strings.NewReader(`{"a":"abc"}`)).Decode(&v))
}
