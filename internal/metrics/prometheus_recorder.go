package metrics

import (
	"sync"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
)

// PrometheusRecorder implements Recorder using Prometheus metrics.
type PrometheusRecorder struct {
	once            sync.Once
	wakeEvents      *prom.CounterVec
	wakeCoalesced   *prom.CounterVec
	transitions     *prom.CounterVec
	currentState    *prom.GaugeVec
	probeDuration   *prom.HistogramVec
	probeResults    *prom.CounterVec
	hostUp          prom.Gauge
	wolSent         prom.Counter
	ownershipOps    *prom.CounterVec
}

// NewPrometheusRecorder constructs and registers Prometheus metrics (idempotent).
func NewPrometheusRecorder(reg *prom.Registry) *PrometheusRecorder {
	if reg == nil {
		reg = prom.NewRegistry()
	}
	pr := &PrometheusRecorder{}
	pr.once.Do(func() {
		pr.wakeEvents = prom.NewCounterVec(prom.CounterOpts{
			Namespace: "wolproxy",
			Name:      "wake_events_total",
			Help:      "Wake requests raised by the protocol listeners",
		}, []string{"source"})
		pr.wakeCoalesced = prom.NewCounterVec(prom.CounterOpts{
			Namespace: "wolproxy",
			Name:      "wake_events_coalesced_total",
			Help:      "Wake requests ignored because a wake was already in flight",
		}, []string{"source"})
		pr.transitions = prom.NewCounterVec(prom.CounterOpts{
			Namespace: "wolproxy",
			Name:      "state_transitions_total",
			Help:      "Orchestrator state transitions",
		}, []string{"from", "to"})
		pr.currentState = prom.NewGaugeVec(prom.GaugeOpts{
			Namespace: "wolproxy",
			Name:      "state",
			Help:      "Current orchestrator state (1 for the active state)",
		}, []string{"state"})
		pr.probeDuration = prom.NewHistogramVec(prom.HistogramOpts{
			Namespace: "wolproxy",
			Name:      "probe_duration_seconds",
			Help:      "Duration of reachability probes",
			Buckets:   prom.DefBuckets,
		}, []string{"result"})
		pr.probeResults = prom.NewCounterVec(prom.CounterOpts{
			Namespace: "wolproxy",
			Name:      "probe_results_total",
			Help:      "Reachability probe results",
		}, []string{"result"})
		pr.hostUp = prom.NewGauge(prom.GaugeOpts{
			Namespace: "wolproxy",
			Name:      "host_up",
			Help:      "Whether the real host is currently believed reachable",
		})
		pr.wolSent = prom.NewCounter(prom.CounterOpts{
			Namespace: "wolproxy",
			Name:      "wol_transmissions_total",
			Help:      "Wake-on-LAN magic packet transmissions",
		})
		pr.ownershipOps = prom.NewCounterVec(prom.CounterOpts{
			Namespace: "wolproxy",
			Name:      "ownership_operations_total",
			Help:      "IP claim/release operations by outcome",
		}, []string{"op", "result"})
		reg.MustRegister(pr.wakeEvents, pr.wakeCoalesced, pr.transitions, pr.currentState,
			pr.probeDuration, pr.probeResults, pr.hostUp, pr.wolSent, pr.ownershipOps)
	})
	return pr
}

func resultLabel(success bool) string {
	if success {
		return "success"
	}
	return "failed"
}

func (p *PrometheusRecorder) IncWakeEvent(source string) {
	if p == nil || p.wakeEvents == nil {
		return
	}
	p.wakeEvents.WithLabelValues(source).Inc()
}

func (p *PrometheusRecorder) IncWakeCoalesced(source string) {
	if p == nil || p.wakeCoalesced == nil {
		return
	}
	p.wakeCoalesced.WithLabelValues(source).Inc()
}

func (p *PrometheusRecorder) IncStateTransition(from, to string) {
	if p == nil || p.transitions == nil {
		return
	}
	p.transitions.WithLabelValues(from, to).Inc()
}

// SetState marks exactly one state gauge as active.
func (p *PrometheusRecorder) SetState(state string) {
	if p == nil || p.currentState == nil {
		return
	}
	for _, s := range []string{"idle", "waking", "host_online"} {
		v := 0.0
		if s == state {
			v = 1.0
		}
		p.currentState.WithLabelValues(s).Set(v)
	}
}

func (p *PrometheusRecorder) ObserveProbeDuration(d time.Duration, success bool) {
	if p == nil || p.probeDuration == nil {
		return
	}
	p.probeDuration.WithLabelValues(resultLabel(success)).Observe(d.Seconds())
}

func (p *PrometheusRecorder) IncProbeResult(success bool) {
	if p == nil || p.probeResults == nil {
		return
	}
	p.probeResults.WithLabelValues(resultLabel(success)).Inc()
}

func (p *PrometheusRecorder) SetHostUp(up bool) {
	if p == nil || p.hostUp == nil {
		return
	}
	if up {
		p.hostUp.Set(1)
	} else {
		p.hostUp.Set(0)
	}
}

func (p *PrometheusRecorder) IncWOLTransmission() {
	if p == nil || p.wolSent == nil {
		return
	}
	p.wolSent.Inc()
}

func (p *PrometheusRecorder) IncOwnershipChange(op string, success bool) {
	if p == nil || p.ownershipOps == nil {
		return
	}
	p.ownershipOps.WithLabelValues(op, resultLabel(success)).Inc()
}
