package dashboard

import "fmt"

// AQIBucket is the display class of an AQI value on the 0-500 scale.
type AQIBucket string

const (
	BucketGood      AQIBucket = "good"
	BucketModerate  AQIBucket = "moderate"
	BucketUnhealthy AQIBucket = "unhealthy"
)

// Bucket classifies an index: [0,50] good, (50,100] moderate, above 100 unhealthy.
func Bucket(index float64) AQIBucket {
	switch {
	case index <= 50:
		return BucketGood
	case index <= 100:
		return BucketModerate
	default:
		return BucketUnhealthy
	}
}

// ThresholdLabel is the label for raw concentrations and raw AQI numbers.
func ThresholdLabel(value float64) string {
	switch Bucket(value) {
	case BucketGood:
		return "Good"
	case BucketModerate:
		return "Moderate"
	default:
		return "Unhealthy"
	}
}

// QualitativeLevel is one row of the 1-5 vendor index table.
type QualitativeLevel struct {
	Index  int
	Label  string
	Advice string
}

var qualitativeTable = map[int]QualitativeLevel{
	1: {Index: 25, Label: "Good", Advice: "Air quality is excellent"},
	2: {Index: 60, Label: "Fair", Advice: "Air quality is acceptable"},
	3: {Index: 100, Label: "Moderate", Advice: "May affect sensitive people"},
	4: {Index: 150, Label: "Poor", Advice: "Health effects for everyone"},
	5: {Index: 250, Label: "Very Poor", Advice: "Serious health effects"},
}

// QualitativeToScale maps a vendor 1-5 index to the approximate 0-500 scale.
func QualitativeToScale(level int) (QualitativeLevel, error) {
	q, ok := qualitativeTable[level]
	if !ok {
		return QualitativeLevel{}, fmt.Errorf("qualitative index %d outside 1-5", level)
	}
	return q, nil
}

// Advice returns the explanatory sentence for a label.
func Advice(label string) string {
	for _, q := range qualitativeTable {
		if q.Label == label {
			return q.Advice
		}
	}
	switch label {
	case "Unhealthy":
		return "May cause health issues"
	default:
		return ""
	}
}
