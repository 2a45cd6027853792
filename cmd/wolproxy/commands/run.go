package commands

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"git.home.luguber.info/inful/wolproxy/internal/config"
	"git.home.luguber.info/inful/wolproxy/internal/daemon"
	"git.home.luguber.info/inful/wolproxy/internal/logfields"
)

// RunCmd implements the 'run' command: the long-running standby proxy.
type RunCmd struct {
	Foreground bool `help:"Log human-readable text to stderr (default; kept for service files)" default:"true"`
}

func (r *RunCmd) Run(_ *Global, root *CLI) error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	for {
		// Block until a valid configuration document exists. A fresh
		// install may start the service before the wizard has written one.
		cfg, err := config.Wait(ctx, root.Config)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}

		if !root.Verbose {
			logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
				Level: cfg.LogLevelValue(),
			}))
			slog.SetDefault(logger)
		}

		d, err := daemon.New(cfg, daemon.Options{
			Logger:     slog.Default(),
			ConfigPath: root.Config,
		})
		if err != nil {
			return err
		}

		err = d.Run(ctx)
		switch {
		case errors.Is(err, daemon.ErrConfigChanged):
			slog.Info("Reloading configuration", slog.String("path", root.Config))
			continue
		case err != nil:
			slog.Error("Daemon exited with error", logfields.Error(err))
			return err
		default:
			return nil
		}
	}
}
