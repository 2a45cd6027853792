package daemon

// State is the orchestrator's view of who serves the game traffic.
type State int

const (
	// StateIdle means the proxy owns the server IP and answers in the
	// host's stead.
	StateIdle State = iota
	// StateWaking means a wake-on-LAN packet has been sent and the proxy
	// has stepped aside while the host boots.
	StateWaking
	// StateHostOnline means the real host is reachable and serves its own
	// traffic.
	StateHostOnline
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateWaking:
		return "waking"
	case StateHostOnline:
		return "host_online"
	default:
		return "unknown"
	}
}
