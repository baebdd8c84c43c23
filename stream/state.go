package stream

// State is the lifecycle of a Conn.  It only moves forward:
// StateConnecting → StateConnected → StateDisconnected.
type State int32

const (
	StateConnecting State = iota
	StateConnected
	StateDisconnected
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateDisconnected:
		return "disconnected"
	default:
		return "unknown"
	}
}

// LoopState is the lifecycle of a Conn's receive loop.
type LoopState int32

const (
	LoopIdle     LoopState = iota // not started yet
	LoopRunning                   // reading and delivering
	LoopStopping                  // cancellation requested or read failed
	LoopStopped                   // transport released, no further reads
)

func (s LoopState) String() string {
	switch s {
	case LoopIdle:
		return "idle"
	case LoopRunning:
		return "running"
	case LoopStopping:
		return "stopping"
	case LoopStopped:
		return "stopped"
	default:
		return "unknown"
	}
}
