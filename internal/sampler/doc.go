// Package sampler produces the per-tick telemetry readings.
//
// Random is a stand-in for a real sensor driver: it draws every field from a
// fixed half-open range using a generator seeded once at construction.
package sampler
