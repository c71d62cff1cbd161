package telemetry

import "errors"

var (
	// ErrConfig marks a missing or invalid startup input. Fatal before the loop starts.
	ErrConfig = errors.New("configuration error")
	// ErrTrustStore marks a failure to install the trusted certificate authority.
	ErrTrustStore = errors.New("trust store error")
	// ErrChannelOpen marks a failure to open the secure publish channel.
	ErrChannelOpen = errors.New("channel open error")
	// ErrTransport marks a network-level failure of the classification call.
	ErrTransport = errors.New("classification transport error")
	// ErrParse marks a classification response that cannot be interpreted.
	ErrParse = errors.New("classification parse error")
	// ErrPublish marks a failed channel write for a single tick.
	ErrPublish = errors.New("publish error")
)

// IsFatal reports whether err belongs to the bootstrap phase and must stop the process.
func IsFatal(err error) bool {
	return errors.Is(err, ErrConfig) ||
		errors.Is(err, ErrTrustStore) ||
		errors.Is(err, ErrChannelOpen)
}
