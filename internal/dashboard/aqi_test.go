package dashboard

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBucketBoundaries(t *testing.T) {
	cases := []struct {
		index float64
		want  AQIBucket
	}{
		{0, BucketGood},
		{50, BucketGood},
		{50.01, BucketModerate},
		{100, BucketModerate},
		{101, BucketUnhealthy},
		{500, BucketUnhealthy},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, Bucket(tc.index), "index %v", tc.index)
	}
}

func TestBucketIsMonotonic(t *testing.T) {
	rank := map[AQIBucket]int{BucketGood: 0, BucketModerate: 1, BucketUnhealthy: 2}
	prev := rank[Bucket(0)]
	for i := 1; i <= 500; i++ {
		cur := rank[Bucket(float64(i))]
		require.GreaterOrEqual(t, cur, prev, "bucket went down at %d", i)
		prev = cur
	}
}

func TestQualitativeToScale(t *testing.T) {
	want := map[int]struct {
		index int
		label string
	}{
		1: {25, "Good"},
		2: {60, "Fair"},
		3: {100, "Moderate"},
		4: {150, "Poor"},
		5: {250, "Very Poor"},
	}
	for level, w := range want {
		q, err := QualitativeToScale(level)
		require.NoError(t, err)
		assert.Equal(t, w.index, q.Index)
		assert.Equal(t, w.label, q.Label)
		assert.NotEmpty(t, q.Advice)
	}

	_, err := QualitativeToScale(0)
	assert.Error(t, err)
	_, err = QualitativeToScale(6)
	assert.Error(t, err)
}

func TestThresholdLabelAndAdvice(t *testing.T) {
	assert.Equal(t, "Good", ThresholdLabel(12))
	assert.Equal(t, "Moderate", ThresholdLabel(75))
	assert.Equal(t, "Unhealthy", ThresholdLabel(180))

	assert.Equal(t, "May affect sensitive people", Advice("Moderate"))
	assert.Equal(t, "May cause health issues", Advice("Unhealthy"))
	assert.Equal(t, "", Advice("unknown"))
}
