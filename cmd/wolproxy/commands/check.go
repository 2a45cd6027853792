package commands

import (
	"context"
	"fmt"
	"time"

	perrors "git.home.luguber.info/inful/wolproxy/internal/errors"
	"git.home.luguber.info/inful/wolproxy/internal/monitor"
)

// CheckCmd runs a single reachability probe against the configured host.
type CheckCmd struct {
	Timeout time.Duration `help:"Probe deadline" default:"3s"`
}

func (c *CheckCmd) Run(_ *Global, root *CLI) error {
	cfg, err := loadConfig(root)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), c.Timeout)
	defer cancel()

	prober := monitor.NewFallbackProber(cfg.TargetIP(), cfg.MCPort)
	start := time.Now()
	if err := prober.Probe(ctx); err != nil {
		fmt.Printf("%s is DOWN (%v)\n", cfg.GameServerIP, err)
		return perrors.Wrap(err, perrors.CategoryNetwork, perrors.SeverityError, "host unreachable")
	}

	fmt.Printf("%s is UP (%s)\n", cfg.GameServerIP, time.Since(start).Round(time.Millisecond))
	return nil
}
