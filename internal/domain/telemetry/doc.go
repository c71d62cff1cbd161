// Package telemetry contains the core domain types of the edge module.
//
// It defines Sample (one tick of machine and ambient readings),
// ClassificationResult (optional image scores) and OutboundMessage (what is
// published on the channel), together with Merge and the error taxonomy
// shared by the other packages.
package telemetry
