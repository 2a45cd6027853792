package daemon

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	perrors "git.home.luguber.info/inful/wolproxy/internal/errors"
	"git.home.luguber.info/inful/wolproxy/internal/events"
	"git.home.luguber.info/inful/wolproxy/internal/logfields"
	"git.home.luguber.info/inful/wolproxy/internal/metrics"
	"git.home.luguber.info/inful/wolproxy/internal/netconf"
)

// ErrConfigChanged signals that the configuration file was rewritten and the
// daemon should be torn down and rebuilt from the new document.
var ErrConfigChanged = errors.New("configuration changed")

// Waker sends a wake-on-LAN magic packet to the configured host.
type Waker interface {
	Wake(ctx context.Context, mac string) error
}

// Listeners is the bundle of standby sockets the orchestrator opens while it
// owns the server IP.
type Listeners interface {
	Start(ctx context.Context) error
	Stop()
}

// Orchestrator serializes wake triggers and liveness verdicts into a single
// state machine. All ownership decisions happen on one goroutine, so the
// network configurator is never raced.
type Orchestrator struct {
	mac       string
	bus       *events.Bus
	netconf   netconf.Configurator
	waker     Waker
	listeners Listeners
	recorder  metrics.Recorder
	logger    *slog.Logger

	state    atomic.Int32
	starting atomic.Bool

	releaseTimeout time.Duration

	stopOnce sync.Once
}

// OrchestratorConfig carries the collaborators the state machine drives.
type OrchestratorConfig struct {
	MAC       string
	Bus       *events.Bus
	Netconf   netconf.Configurator
	Waker     Waker
	Listeners Listeners
	Recorder  metrics.Recorder
	Logger    *slog.Logger
}

// NewOrchestrator builds an orchestrator. The state machine does not act
// until Run is called.
func NewOrchestrator(cfg OrchestratorConfig) (*Orchestrator, error) {
	if cfg.Bus == nil || cfg.Netconf == nil || cfg.Waker == nil || cfg.Listeners == nil {
		return nil, perrors.New(perrors.CategoryDaemon, perrors.SeverityFatal, "orchestrator requires bus, netconf, waker and listeners")
	}
	if cfg.MAC == "" {
		return nil, perrors.New(perrors.CategoryDaemon, perrors.SeverityFatal, "orchestrator requires a target MAC")
	}
	if cfg.Recorder == nil {
		cfg.Recorder = metrics.NoopRecorder{}
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	o := &Orchestrator{
		mac:            cfg.MAC,
		bus:            cfg.Bus,
		netconf:        cfg.Netconf,
		waker:          cfg.Waker,
		listeners:      cfg.Listeners,
		recorder:       cfg.Recorder,
		logger:         cfg.Logger.With("component", "orchestrator"),
		releaseTimeout: 5 * time.Second,
	}
	o.state.Store(int32(StateIdle))
	return o, nil
}

// State returns the current orchestrator state.
func (o *Orchestrator) State() State {
	return State(o.state.Load())
}

// HostOnline reports whether the real host currently serves its traffic.
// Safe to call from other goroutines; the monitor uses it to choose its
// failure threshold.
func (o *Orchestrator) HostOnline() bool {
	return o.State() == StateHostOnline
}

// MOTD returns the status line the standby Minecraft responder should show.
func (o *Orchestrator) MOTD(idle, starting string) string {
	if o.starting.Load() {
		return starting
	}
	return idle
}

// Run consumes wake requests, liveness verdicts and config-change notices
// until ctx is cancelled. It returns ErrConfigChanged when the configuration
// file was rewritten, a fatal error when the standby sockets cannot be
// bound, and nil on orderly shutdown.
//
// Run starts without claiming the server IP. Whether the proxy should step
// in is decided by the first liveness verdict, so a restart while the host
// is awake never steals its address.
func (o *Orchestrator) Run(ctx context.Context) error {
	wakeCh, unsubWake := events.Subscribe[events.WakeRequested](o.bus, 16)
	defer unsubWake()
	liveCh, unsubLive := events.Subscribe[events.LivenessChanged](o.bus, 4)
	defer unsubLive()
	cfgCh, unsubCfg := events.Subscribe[events.ConfigChanged](o.bus, 1)
	defer unsubCfg()

	o.logger.Info("orchestrator started", logfields.State(o.State().String()), logfields.MAC(o.mac))

	defer o.shutdown()

	for {
		select {
		case <-ctx.Done():
			return nil
		case evt, ok := <-wakeCh:
			if !ok {
				return nil
			}
			o.handleWake(ctx, evt)
		case evt, ok := <-liveCh:
			if !ok {
				return nil
			}
			if err := o.handleLiveness(ctx, evt); err != nil {
				return err
			}
		case evt, ok := <-cfgCh:
			if !ok {
				return nil
			}
			o.logger.Info("configuration changed, restarting", slog.String("path", evt.Path))
			return ErrConfigChanged
		}
	}
}

func (o *Orchestrator) handleWake(ctx context.Context, evt events.WakeRequested) {
	state := o.State()
	if state != StateIdle {
		o.recorder.IncWakeCoalesced(string(evt.Source))
		o.logger.Debug("wake request coalesced",
			logfields.State(state.String()),
			logfields.Source(string(evt.Source)),
			logfields.EventID(evt.ID))
		return
	}

	o.logger.Info("wake requested",
		logfields.Source(string(evt.Source)),
		logfields.ClientAddr(evt.ClientAddr),
		logfields.EventID(evt.ID))
	o.recorder.IncWakeEvent(string(evt.Source))
	o.starting.Store(true)

	if err := o.waker.Wake(ctx, o.mac); err != nil {
		// Some broadcast domains may still have carried the packet, so
		// the handoff proceeds and the monitor decides the outcome.
		o.logger.Error("wake-on-lan transmission failed", logfields.Error(err))
	} else {
		o.recorder.IncWOLTransmission()
	}

	if err := o.netconf.Release(ctx); err != nil {
		o.logger.Error("failed to release server address", logfields.Error(err))
		o.recorder.IncOwnershipChange("release", false)
	} else {
		o.recorder.IncOwnershipChange("release", true)
	}
	o.listeners.Stop()

	o.transition(StateWaking)
}

func (o *Orchestrator) handleLiveness(ctx context.Context, evt events.LivenessChanged) error {
	state := o.State()
	switch evt.To {
	case events.LivenessUp:
		switch state {
		case StateIdle:
			// The host came back without us waking it. Get out of its way.
			o.logger.Info("host reachable, standing down")
			o.listeners.Stop()
			if err := o.netconf.Release(ctx); err != nil {
				o.logger.Error("failed to release server address", logfields.Error(err))
				o.recorder.IncOwnershipChange("release", false)
			} else {
				o.recorder.IncOwnershipChange("release", true)
			}
			o.starting.Store(false)
			o.transition(StateHostOnline)
		case StateWaking:
			o.logger.Info("host is up")
			o.starting.Store(false)
			o.transition(StateHostOnline)
		}
	case events.LivenessDown:
		switch state {
		case StateHostOnline:
			o.logger.Info("host unreachable, taking over",
				logfields.Failures(evt.Failures))
			return o.takeOver(ctx)
		case StateIdle:
			// First verdict after startup, or a retry after a failed
			// takeover. Make sure we actually hold the address.
			return o.takeOver(ctx)
		case StateWaking:
			// Hosts flap while booting. The wake already happened, so
			// keep waiting for the monitor to see it come up.
			o.logger.Debug("host still down while waking")
		}
	}
	return nil
}

// takeOver claims the server IP and opens the standby sockets. A claim
// failure is logged and retried on the next liveness transition; a bind
// failure is fatal because the proxy cannot do its job without its ports.
func (o *Orchestrator) takeOver(ctx context.Context) error {
	if err := o.netconf.Claim(ctx); err != nil {
		o.logger.Error("failed to claim server address", logfields.Error(err))
		o.recorder.IncOwnershipChange("claim", false)
		o.transition(StateIdle)
		return nil
	}
	o.recorder.IncOwnershipChange("claim", true)

	if err := o.listeners.Start(ctx); err != nil {
		return perrors.Wrap(err, perrors.CategoryListener, perrors.SeverityFatal, "failed to open standby sockets")
	}
	o.starting.Store(false)
	o.transition(StateIdle)
	return nil
}

func (o *Orchestrator) transition(to State) {
	from := o.State()
	if from == to {
		return
	}
	o.state.Store(int32(to))
	o.recorder.IncStateTransition(from.String(), to.String())
	o.recorder.SetState(to.String())
	o.logger.Info("state transition",
		logfields.PrevState(from.String()),
		logfields.State(to.String()))
}

// shutdown closes the standby sockets and hands the address back so a
// restart never finds a stale claim.
func (o *Orchestrator) shutdown() {
	o.stopOnce.Do(func() {
		o.listeners.Stop()
		if !o.netconf.Owned() {
			return
		}
		ctx, cancel := context.WithTimeout(context.Background(), o.releaseTimeout)
		defer cancel()
		if err := o.netconf.Release(ctx); err != nil {
			o.logger.Error("failed to release server address on shutdown", logfields.Error(err))
		}
	})
}
