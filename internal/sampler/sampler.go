package sampler

import (
	"math"
	"math/rand/v2"
	"time"

	"github.com/oshokin/edge-telemetry/internal/domain/telemetry"
)

// Sampler produces one telemetry sample per call and never fails.
type Sampler interface {
	Sample() telemetry.Sample
}

// Range is a half-open interval [Min, Max).
type Range struct {
	Min float64
	Max float64
}

// Draw returns a value from the range using the provided generator.
func (r Range) Draw(rng *rand.Rand) float64 {
	return r.scale(rng.Float64())
}

// scale maps f in [0, 1) onto the range. Rounding can land exactly on Max,
// which is pulled back to the largest value below it.
func (r Range) scale(f float64) float64 {
	v := r.Min + f*(r.Max-r.Min)
	if v >= r.Max {
		return math.Nextafter(r.Max, r.Min)
	}

	return v
}

// Contains reports whether v lies in [Min, Max).
func (r Range) Contains(v float64) bool {
	return v >= r.Min && v < r.Max
}

var (
	// BatteryVoltageRange bounds the simulated battery voltage, volts.
	BatteryVoltageRange = Range{Min: 20, Max: 40}
	// ResponseTimeRange bounds the simulated response time, seconds.
	ResponseTimeRange = Range{Min: 2, Max: 6}
	// AmbientTemperatureRange bounds the simulated ambient temperature, Celsius.
	AmbientTemperatureRange = Range{Min: 10, Max: 30}
	// HumidityRange bounds the simulated relative humidity, percent.
	HumidityRange = Range{Min: 5, Max: 80}
)

// Random generates synthetic readings. It is not safe for concurrent use;
// the publish loop is its only caller.
type Random struct {
	// rng is the component-local generator.
	rng *rand.Rand
	// now returns the capture timestamp.
	now func() time.Time
}

// Option configures a Random sampler.
type Option func(*Random)

// WithClock overrides the timestamp source.
func WithClock(now func() time.Time) Option {
	return func(r *Random) {
		if now != nil {
			r.now = now
		}
	}
}

// NewRandom returns a sampler whose generator is seeded with seed.
func NewRandom(seed uint64, opts ...Option) *Random {
	r := &Random{
		rng: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
		now: time.Now,
	}

	for _, opt := range opts {
		opt(r)
	}

	return r
}

// Sample draws a fresh set of readings.
func (r *Random) Sample() telemetry.Sample {
	return telemetry.Sample{
		BatteryVoltage:     BatteryVoltageRange.Draw(r.rng),
		ResponseTime:       ResponseTimeRange.Draw(r.rng),
		AmbientTemperature: AmbientTemperatureRange.Draw(r.rng),
		Humidity:           HumidityRange.Draw(r.rng),
		CapturedAt:         r.now().UTC(),
	}
}
