package telemetry

import "time"

// Sample is one set of readings taken during a tick.
type Sample struct {
	// BatteryVoltage is the machine battery voltage in volts.
	BatteryVoltage float64
	// ResponseTime is the machine response time in seconds.
	ResponseTime float64
	// AmbientTemperature is the surrounding temperature in Celsius.
	AmbientTemperature float64
	// Humidity is the relative humidity in percent.
	Humidity float64
	// CapturedAt is when the readings were taken.
	CapturedAt time.Time
}

// ClassificationResult holds the scores extracted from a prediction response.
// A nil field means the tag was not present in the response.
type ClassificationResult struct {
	HappyProbability *float64 `json:"happyProbability,omitempty"`
	SadProbability   *float64 `json:"sadProbability,omitempty"`
}

// IsEmpty reports whether no score was extracted.
func (r *ClassificationResult) IsEmpty() bool {
	return r == nil || (r.HappyProbability == nil && r.SadProbability == nil)
}

// Clone returns a deep copy of the result.
func (r *ClassificationResult) Clone() *ClassificationResult {
	if r == nil {
		return nil
	}

	return &ClassificationResult{
		HappyProbability: cloneFloat(r.HappyProbability),
		SadProbability:   cloneFloat(r.SadProbability),
	}
}

func cloneFloat(v *float64) *float64 {
	if v == nil {
		return nil
	}

	c := *v

	return &c
}
