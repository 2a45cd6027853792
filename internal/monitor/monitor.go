package monitor

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/go-co-op/gocron/v2"

	"git.home.luguber.info/inful/wolproxy/internal/events"
	"git.home.luguber.info/inful/wolproxy/internal/logfields"
	"git.home.luguber.info/inful/wolproxy/internal/metrics"
)

// Monitor polls the real host on a fixed interval and publishes
// LivenessChanged events on transitions only.
//
// Threshold policy: while the orchestrator believes the host is online, a
// Down report requires ping_fail_threshold consecutive failures to ride out
// flapping. In every other state a single failure suffices, which reclaims
// the IP faster for a host already believed offline.
type Monitor struct {
	prober    Prober
	interval  time.Duration
	threshold int
	// hostOnline reports whether the orchestrator is in the HostOnline state.
	hostOnline func() bool
	bus        *events.Bus
	recorder   metrics.Recorder

	scheduler gocron.Scheduler

	mu       sync.Mutex
	liveness events.Liveness
	failures int
}

// Config assembles a Monitor.
type Config struct {
	Prober     Prober
	Interval   time.Duration
	Threshold  int
	HostOnline func() bool
	Bus        *events.Bus
	Recorder   metrics.Recorder
}

// New validates the config and builds a monitor in the Unknown state.
func New(cfg Config) (*Monitor, error) {
	if cfg.Prober == nil {
		return nil, fmt.Errorf("monitor: prober is required")
	}
	if cfg.Interval <= 0 {
		return nil, fmt.Errorf("monitor: interval must be positive")
	}
	if cfg.Threshold < 1 {
		return nil, fmt.Errorf("monitor: threshold must be at least 1")
	}
	if cfg.HostOnline == nil {
		return nil, fmt.Errorf("monitor: hostOnline supplier is required")
	}
	if cfg.Bus == nil {
		return nil, fmt.Errorf("monitor: event bus is required")
	}
	rec := cfg.Recorder
	if rec == nil {
		rec = metrics.NoopRecorder{}
	}
	return &Monitor{
		prober:     cfg.Prober,
		interval:   cfg.Interval,
		threshold:  cfg.Threshold,
		hostOnline: cfg.HostOnline,
		bus:        cfg.Bus,
		recorder:   rec,
		liveness:   events.LivenessUnknown,
	}, nil
}

// Start schedules the polling job. The first check runs immediately so the
// orchestrator learns the truth at startup instead of waiting an interval.
func (m *Monitor) Start(ctx context.Context) error {
	s, err := gocron.NewScheduler()
	if err != nil {
		return fmt.Errorf("monitor: create scheduler: %w", err)
	}
	_, err = s.NewJob(
		gocron.DurationJob(m.interval),
		gocron.NewTask(func() { m.CheckOnce(ctx) }),
		gocron.WithName("reachability-check"),
		gocron.WithStartAt(gocron.WithStartImmediately()),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		return fmt.Errorf("monitor: schedule reachability check: %w", err)
	}
	m.scheduler = s
	s.Start()
	slog.Info("Reachability monitor started", slog.Duration("interval", m.interval), slog.Int("threshold", m.threshold))
	return nil
}

// Stop shuts the polling job down.
func (m *Monitor) Stop() error {
	if m.scheduler == nil {
		return nil
	}
	return m.scheduler.Shutdown()
}

// Liveness returns the current belief about the host.
func (m *Monitor) Liveness() events.Liveness {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.liveness
}

// CheckOnce performs a single bounded probe and publishes a transition if the
// belief changed. Exposed for the `check` CLI command and tests.
func (m *Monitor) CheckOnce(ctx context.Context) events.Liveness {
	probeCtx, cancel := context.WithTimeout(ctx, probeTimeout)
	start := time.Now()
	err := m.prober.Probe(probeCtx)
	cancel()

	elapsed := time.Since(start)
	m.recorder.ObserveProbeDuration(elapsed, err == nil)
	m.recorder.IncProbeResult(err == nil)

	m.mu.Lock()
	prev := m.liveness
	var next events.Liveness
	var failures int

	if err == nil {
		m.failures = 0
		m.liveness = events.LivenessUp
		next = events.LivenessUp
	} else {
		m.failures++
		failures = m.failures

		effective := 1
		if m.hostOnline() {
			effective = m.threshold
		}
		if m.failures >= effective {
			m.liveness = events.LivenessDown
			next = events.LivenessDown
		} else {
			// Below threshold: belief unchanged.
			next = prev
		}
	}
	m.mu.Unlock()

	if err != nil {
		slog.Debug("Reachability probe failed", logfields.Failures(failures), logfields.Error(err))
	}

	if next != prev {
		m.recorder.SetHostUp(next == events.LivenessUp)
		evt := events.LivenessChanged{From: prev, To: next, Failures: failures, At: time.Now()}
		if pubErr := m.bus.Publish(ctx, evt); pubErr != nil {
			slog.Warn("Failed to publish liveness transition", logfields.Error(pubErr))
		} else {
			slog.Info("Host liveness changed",
				slog.String("from", string(prev)),
				slog.String("to", string(next)),
				logfields.Failures(failures))
		}
	}
	return next
}
