// Package logger wraps zap for the edge module:
//   - a global sugared logger writing console lines to stdout,
//   - context helpers (ToContext/FromContext/WithName/WithKV),
//   - level parsing for the --log-level flag and the settings file,
//   - leveled helpers (Info, InfoKV, WarnKV, ...) that take a context.
//
// Components receive a context and log through it, so every line carries
// the component name and any fields attached upstream.
package logger
