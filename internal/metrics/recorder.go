package metrics

import "time"

// Recorder defines observability hooks for the wake orchestrator and its
// collaborators. Implementations may forward to Prometheus, OpenTelemetry,
// etc. All methods must be safe for nil receivers when using the NoopRecorder
// (allowing optional injection).
type Recorder interface {
	IncWakeEvent(source string)
	IncWakeCoalesced(source string)
	IncStateTransition(from, to string)
	SetState(state string)
	ObserveProbeDuration(d time.Duration, success bool)
	IncProbeResult(success bool)
	SetHostUp(up bool)
	IncWOLTransmission()
	IncOwnershipChange(op string, success bool)
}

// NoopRecorder is a Recorder that does nothing (default when metrics not configured).
type NoopRecorder struct{}

func (NoopRecorder) IncWakeEvent(string)                       {}
func (NoopRecorder) IncWakeCoalesced(string)                   {}
func (NoopRecorder) IncStateTransition(string, string)         {}
func (NoopRecorder) SetState(string)                           {}
func (NoopRecorder) ObserveProbeDuration(time.Duration, bool)  {}
func (NoopRecorder) IncProbeResult(bool)                       {}
func (NoopRecorder) SetHostUp(bool)                            {}
func (NoopRecorder) IncWOLTransmission()                       {}
func (NoopRecorder) IncOwnershipChange(string, bool)           {}
