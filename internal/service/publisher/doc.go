// Package publisher runs the edge module: it bootstraps trust, opens the
// channel and drives the sample, classify, merge, publish, wait cycle until
// the cancellation signal fires.
//
// Ticks are strictly sequential. Classification and publish failures are
// logged and counted but never stop the loop.
package publisher
