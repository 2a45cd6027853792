package events

import "time"

// WakeSource identifies which protocol listener raised a wake request.
type WakeSource string

const (
	SourceMinecraftJoin     WakeSource = "minecraft_join"
	SourceSatisfactoryQuery WakeSource = "satisfactory_query"
)

// WakeRequested indicates a client tried to reach the sleeping game server.
//
// Raised by the Minecraft shim only for a genuine login attempt (status polls
// never wake anything) and by the Satisfactory trigger for any datagram on a
// configured port. Consumed exactly once by the orchestrator; duplicates that
// arrive while a wake is already in flight are coalesced there.
type WakeRequested struct {
	ID         string
	Source     WakeSource
	ClientAddr string
	At         time.Time
}

// Liveness describes the monitor's belief about the real host.
type Liveness string

const (
	LivenessUnknown Liveness = "unknown"
	LivenessDown    Liveness = "down"
	LivenessUp      Liveness = "up"
)

// LivenessChanged is emitted by the reachability monitor on actual
// transitions only, never on every poll.
type LivenessChanged struct {
	From     Liveness
	To       Liveness
	Failures int
	At       time.Time
}

// ConfigChanged signals that the configuration document was written, created
// or removed. The daemon reacts with a full restart of the core, never a hot
// reload.
type ConfigChanged struct {
	Path string
	At   time.Time
}
