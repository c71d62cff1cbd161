package publisher

// State is a phase of the publish loop.
type State int32

const (
	// StateBootstrapping installs trust and opens the channel.
	StateBootstrapping State = iota
	// StateChannelOpen means the channel is ready and no tick has run yet.
	StateChannelOpen
	// StateRunning repeats ticks until the signal fires.
	StateRunning
	// StateDraining finishes the tick in flight and closes the channel.
	StateDraining
	// StateStopped is terminal.
	StateStopped
)

// allStates lists every state name, in order.
//
//nolint:gochecknoglobals // Fixed label set for the state gauge.
var allStates = []string{
	StateBootstrapping.String(),
	StateChannelOpen.String(),
	StateRunning.String(),
	StateDraining.String(),
	StateStopped.String(),
}

// String returns the lower-case state name.
func (s State) String() string {
	switch s {
	case StateBootstrapping:
		return "bootstrapping"
	case StateChannelOpen:
		return "channel_open"
	case StateRunning:
		return "running"
	case StateDraining:
		return "draining"
	case StateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}
