// Package shutdown provides the process-wide cancellation signal and the
// controller that fires it on SIGTERM (runtime unload) or SIGINT (interrupt).
package shutdown
