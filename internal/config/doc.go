// Package config defines the settings of the edge telemetry module and
// provides helpers to load, validate and save them in YAML format.
//
// The connection string and CA certificate path can also come from the
// environment variables the edge runtime injects into module containers.
package config
