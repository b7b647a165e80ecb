package publisher

// State is the delivery loop's position in its state machine.
type State int32

const (
	// StateIdle means no delivery is running.
	StateIdle State = iota
	// StateConnecting means a broker connection is being dialed.
	StateConnecting
	// StateDraining means buffered items are being published.
	StateDraining
	// StateBackoff means the loop is waiting before the next attempt.
	StateBackoff
	// StateClosed means the loop stopped after a shutdown request.
	StateClosed
)

// String returns the state name as used in log output.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateConnecting:
		return "connecting"
	case StateDraining:
		return "draining"
	case StateBackoff:
		return "backoff"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}
