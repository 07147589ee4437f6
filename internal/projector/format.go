package projector

import (
	"fmt"
	"math"
	"strconv"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

const (
	// Placeholder fills a slot whose value is missing.
	Placeholder = "--"
	// NotAvailable fills table cells the vendor did not report.
	NotAvailable = "N/A"

	FailedToLoad    = "Failed to load"
	CityNotFound    = "City not found"
	DataUnavailable = "Data unavailable"

	clockLayout = "03:04 PM"
	mpsToKph    = 3.6
)

var printer = message.NewPrinter(language.English)

// formatInt rounds to the nearest integer, halves away from zero.
func formatInt(f float64) string {
	return strconv.FormatInt(int64(math.Round(f)), 10)
}

func formatRaw(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

func formatClock(t time.Time, loc *time.Location) string {
	if t.IsZero() {
		return Placeholder
	}
	return t.In(loc).Format(clockLayout)
}

// formatTimezone renders an offset as "UTC +5.5", "UTC -4.0" or "UTC 0.0".
func formatTimezone(offsetSec int) string {
	hours := float64(offsetSec) / 3600
	sign := ""
	if hours > 0 {
		sign = "+"
	}
	return fmt.Sprintf("UTC %s%.1f", sign, hours)
}

func formatCoordinates(lat, lon float64) string {
	return fmt.Sprintf("%.2f, %.2f", lat, lon)
}

// formatGrouped renders an amount with thousands separators, e.g. 50,000.
func formatGrouped(f float64) string {
	return printer.Sprintf("%d", int64(math.Round(f)))
}
