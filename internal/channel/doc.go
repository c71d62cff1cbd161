// Package channel opens the persistent, authenticated publish channel to the
// cloud ingestion endpoint.
//
// The channel speaks MQTT over TLS (or over secure WebSocket) using the
// Eclipse Paho client. The device identity and shared credential come from a
// connection string; the password is a shared access signature regenerated
// on every (re)connect.
package channel
