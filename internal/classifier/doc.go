// Package classifier submits captured images to the remote prediction
// endpoint and extracts the happy and sad probabilities from its response.
//
// Failures are reported as telemetry.ErrTransport or telemetry.ErrParse so
// callers can degrade to "no classification" for the tick.
package classifier
