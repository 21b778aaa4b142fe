package stats

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCompute_Empty(t *testing.T) {
	s := Compute(nil)
	assert.Equal(t, Summary{}, s)
}

func TestCompute_SingleSample(t *testing.T) {
	s := Compute([]float64{12.5})
	assert.Equal(t, 12.5, s.Min)
	assert.Equal(t, 12.5, s.Max)
	assert.Equal(t, 12.5, s.Avg)
	assert.Equal(t, 0.0, s.StdDev)
}

func TestCompute_MinMaxAvg(t *testing.T) {
	s := Compute([]float64{10, 20, 30})
	assert.Equal(t, 10.0, s.Min)
	assert.Equal(t, 30.0, s.Max)
	assert.Equal(t, 20.0, s.Avg)
	assert.InDelta(t, 10.0, s.StdDev, 0.001)
}

func TestCompute_StdDevNeverNaN(t *testing.T) {
	for n := 0; n < 5; n++ {
		samples := make([]float64, n)
		s := Compute(samples)
		assert.False(t, math.IsNaN(s.StdDev), "n=%d", n)
	}
}

func TestLossPercent(t *testing.T) {
	assert.Equal(t, 0.0, LossPercent(10, 10))
	assert.Equal(t, 100.0, LossPercent(10, 0))
	assert.Equal(t, 50.0, LossPercent(10, 5))
	assert.Equal(t, 0.0, LossPercent(0, 0))
}
