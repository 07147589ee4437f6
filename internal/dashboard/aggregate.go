package dashboard

import (
	"time"
)

// HourlyWindow is the number of forecast points shown in hourly mode.
const HourlyWindow = 24

// DailyAverage is the mean of the forecast points falling on one local day.
type DailyAverage struct {
	Day         time.Time
	TempC       float64
	HumidityPct float64
}

// AggregateDaily groups hourly points by local calendar day in loc and
// averages temperature and humidity. Days are returned in ascending order.
func AggregateDaily(points []ForecastPoint, loc *time.Location) []DailyAverage {
	if len(points) == 0 {
		return nil
	}
	if loc == nil {
		loc = time.UTC
	}

	type bucket struct {
		day         time.Time
		sumTemp     float64
		sumHumidity float64
		n           int
	}

	var (
		order   []string
		buckets = make(map[string]*bucket)
	)

	for _, p := range points {
		ts := p.Time.In(loc)
		k := ts.Format("2006-01-02")
		b, ok := buckets[k]
		if !ok {
			b = &bucket{day: time.Date(ts.Year(), ts.Month(), ts.Day(), 0, 0, 0, 0, loc)}
			buckets[k] = b
			order = append(order, k)
		}
		b.sumTemp += p.TempC
		b.sumHumidity += p.HumidityPct
		b.n++
	}

	out := make([]DailyAverage, 0, len(order))
	for _, k := range order {
		b := buckets[k]
		n := float64(b.n)
		out = append(out, DailyAverage{
			Day:         b.day,
			TempC:       b.sumTemp / n,
			HumidityPct: b.sumHumidity / n,
		})
	}
	// Points arrive time-ordered from providers, but keep the guarantee local.
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && out[j].Day.Before(out[j-1].Day); j-- {
			out[j], out[j-1] = out[j-1], out[j]
		}
	}
	return out
}

// TemperatureSeries builds the temperature and humidity series for a chart mode.
// Hourly mode takes the first HourlyWindow points; weekly mode averages per day.
func TemperatureSeries(points []ForecastPoint, mode ChartMode, loc *time.Location) []ChartSeries {
	if len(points) == 0 {
		return nil
	}
	if loc == nil {
		loc = time.UTC
	}

	temp := ChartSeries{Name: "temperature"}
	humidity := ChartSeries{Name: "humidity"}

	if mode == ChartWeekly {
		for _, d := range AggregateDaily(points, loc) {
			label := d.Day.Format("Mon 02")
			temp.Labels = append(temp.Labels, label)
			temp.Values = append(temp.Values, round2(d.TempC))
			humidity.Labels = append(humidity.Labels, label)
			humidity.Values = append(humidity.Values, round2(d.HumidityPct))
		}
		return []ChartSeries{temp, humidity}
	}

	n := len(points)
	if n > HourlyWindow {
		n = HourlyWindow
	}
	for _, p := range points[:n] {
		label := p.Time.In(loc).Format("15:04")
		temp.Labels = append(temp.Labels, label)
		temp.Values = append(temp.Values, p.TempC)
		humidity.Labels = append(humidity.Labels, label)
		humidity.Values = append(humidity.Values, p.HumidityPct)
	}
	return []ChartSeries{temp, humidity}
}

func round2(f float64) float64 {
	if f < 0 {
		return -float64(int64(-f*100+0.5)) / 100
	}
	return float64(int64(f*100+0.5)) / 100
}
