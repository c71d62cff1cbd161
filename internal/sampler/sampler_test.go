package sampler

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// TestRandom_ValuesWithinRanges draws many samples and checks every field bound.
func TestRandom_ValuesWithinRanges(t *testing.T) {
	t.Parallel()

	s := NewRandom(42)

	for range 1000 {
		sample := s.Sample()
		require.True(t, BatteryVoltageRange.Contains(sample.BatteryVoltage), sample.BatteryVoltage)
		require.True(t, ResponseTimeRange.Contains(sample.ResponseTime), sample.ResponseTime)
		require.True(t, AmbientTemperatureRange.Contains(sample.AmbientTemperature), sample.AmbientTemperature)
		require.True(t, HumidityRange.Contains(sample.Humidity), sample.Humidity)
	}
}

// TestRandom_DeterministicForSeed verifies equal seeds give equal sequences.
func TestRandom_DeterministicForSeed(t *testing.T) {
	t.Parallel()

	fixed := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	clock := func() time.Time { return fixed }

	a := NewRandom(7, WithClock(clock))
	b := NewRandom(7, WithClock(clock))
	c := NewRandom(8, WithClock(clock))

	for range 10 {
		require.Equal(t, a.Sample(), b.Sample())
	}

	require.NotEqual(t, a.Sample(), c.Sample())
}

// TestRandom_UsesClock checks the capture timestamp comes from the injected clock.
func TestRandom_UsesClock(t *testing.T) {
	t.Parallel()

	fixed := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	s := NewRandom(1, WithClock(func() time.Time { return fixed }))

	require.Equal(t, fixed, s.Sample().CapturedAt)
}

// TestRange_ScaleStaysBelowMax keeps the largest draw inside the half-open range.
func TestRange_ScaleStaysBelowMax(t *testing.T) {
	t.Parallel()

	largest := math.Nextafter(1, 0)

	for _, r := range []Range{BatteryVoltageRange, ResponseTimeRange, AmbientTemperatureRange, HumidityRange} {
		require.InDelta(t, r.Min, r.scale(0), 0)

		v := r.scale(largest)
		require.True(t, r.Contains(v), "range %v gave %v", r, v)
		require.Less(t, v, r.Max)
	}
}
