// Package daemon wires the standby proxy together: the event bus, the
// reachability monitor, the protocol listeners, the network configurator and
// the wake orchestrator that drives them.
package daemon

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"

	"git.home.luguber.info/inful/wolproxy/internal/config"
	"git.home.luguber.info/inful/wolproxy/internal/events"
	"git.home.luguber.info/inful/wolproxy/internal/listener"
	"git.home.luguber.info/inful/wolproxy/internal/logfields"
	"git.home.luguber.info/inful/wolproxy/internal/metrics"
	"git.home.luguber.info/inful/wolproxy/internal/monitor"
	"git.home.luguber.info/inful/wolproxy/internal/netconf"
	"git.home.luguber.info/inful/wolproxy/internal/wol"
)

// Daemon owns one fully wired proxy core built from a single configuration
// document. When the document changes, Run returns ErrConfigChanged and the
// caller builds a fresh Daemon from the new document.
type Daemon struct {
	cfg    *config.Config
	logger *slog.Logger

	bus       *events.Bus
	orch      *Orchestrator
	monitor   *monitor.Monitor
	watcher   *ConfigWatcher
	listeners *listener.Set
	recorder  metrics.Recorder

	metricsSrv *http.Server
}

// Options tweak daemon construction, mainly for tests.
type Options struct {
	Logger *slog.Logger
	// Waker overrides the wake-on-LAN transmitter.
	Waker Waker
	// Netconf overrides the iproute2-backed address configurator.
	Netconf netconf.Configurator
	// Prober overrides the ICMP/TCP reachability prober.
	Prober monitor.Prober
	// ConfigPath enables the file watcher when non-empty.
	ConfigPath string
}

// New wires a daemon from a validated configuration.
func New(cfg *config.Config, opts Options) (*Daemon, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	bus := events.NewBus()

	var recorder metrics.Recorder = metrics.NoopRecorder{}
	var metricsSrv *http.Server
	if cfg.MetricsAddr != "" {
		reg := prom.NewRegistry()
		recorder = metrics.NewPrometheusRecorder(reg)
		mux := http.NewServeMux()
		mux.Handle("/metrics", metrics.HTTPHandler(reg))
		metricsSrv = &http.Server{
			Addr:              cfg.MetricsAddr,
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		}
	}

	nc := opts.Netconf
	if nc == nil {
		ncOpts := []netconf.Option{}
		if cfg.Interface != "" {
			ncOpts = append(ncOpts, netconf.WithInterface(cfg.Interface))
		}
		nc = netconf.NewIPRoute2(cfg.GameServerIP, cfg.NetCIDR, ncOpts...)
	}

	waker := opts.Waker
	if waker == nil {
		waker = wol.NewTransmitter(cfg.TargetIP(), cfg.NetCIDR)
	}

	// The listener set asks the orchestrator for the current MOTD, and the
	// orchestrator owns the listener set. Close over the variable to break
	// the construction cycle; the MOTD is only read after Run has started.
	var orch *Orchestrator
	set := listener.NewSet(cfg, bus, func() string {
		return orch.MOTD(cfg.MCMOTDIdle, cfg.MCMOTDStarting)
	})

	var err error
	orch, err = NewOrchestrator(OrchestratorConfig{
		MAC:       cfg.GameServerMAC,
		Bus:       bus,
		Netconf:   nc,
		Waker:     waker,
		Listeners: set,
		Recorder:  recorder,
		Logger:    logger,
	})
	if err != nil {
		return nil, err
	}

	prober := opts.Prober
	if prober == nil {
		prober = monitor.NewFallbackProber(cfg.TargetIP(), cfg.MCPort)
	}
	mon, err := monitor.New(monitor.Config{
		Prober:     prober,
		Interval:   cfg.PingInterval(),
		Threshold:  cfg.PingFailThreshold,
		HostOnline: orch.HostOnline,
		Bus:        bus,
		Recorder:   recorder,
	})
	if err != nil {
		return nil, err
	}

	var watcher *ConfigWatcher
	if opts.ConfigPath != "" {
		watcher, err = NewConfigWatcher(opts.ConfigPath, bus)
		if err != nil {
			return nil, err
		}
	}

	return &Daemon{
		cfg:        cfg,
		logger:     logger,
		bus:        bus,
		orch:       orch,
		monitor:    mon,
		watcher:    watcher,
		listeners:  set,
		recorder:   recorder,
		metricsSrv: metricsSrv,
	}, nil
}

// Listeners exposes the standby listener set, e.g. to report bound ports.
func (d *Daemon) Listeners() *listener.Set {
	return d.listeners
}

// Bus exposes the daemon's event bus, mainly for tests.
func (d *Daemon) Bus() *events.Bus {
	return d.bus
}

// State reports the orchestrator's current state.
func (d *Daemon) State() State {
	return d.orch.State()
}

// Run starts the monitor, the optional watcher and the metrics endpoint,
// then blocks in the orchestrator loop until ctx is cancelled or the
// configuration changes.
func (d *Daemon) Run(ctx context.Context) error {
	d.logger.Info("daemon starting",
		logfields.TargetIP(d.cfg.GameServerIP),
		logfields.MAC(d.cfg.GameServerMAC))

	if d.metricsSrv != nil {
		go func() {
			if err := d.metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				d.logger.Error("metrics endpoint failed", logfields.Error(err))
			}
		}()
	}

	if d.watcher != nil {
		if err := d.watcher.Start(ctx); err != nil {
			return err
		}
	}

	if err := d.monitor.Start(ctx); err != nil {
		return err
	}

	err := d.orch.Run(ctx)

	if stopErr := d.monitor.Stop(); stopErr != nil {
		d.logger.Error("failed to stop monitor", logfields.Error(stopErr))
	}
	if d.watcher != nil {
		d.watcher.Stop()
	}
	if d.metricsSrv != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		if shutErr := d.metricsSrv.Shutdown(shutdownCtx); shutErr != nil {
			d.logger.Error("failed to stop metrics endpoint", logfields.Error(shutErr))
		}
	}
	d.bus.Close()

	d.logger.Info("daemon stopped")
	return err
}
