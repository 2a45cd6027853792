package commands

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"git.home.luguber.info/inful/wolproxy/internal/logfields"
	"git.home.luguber.info/inful/wolproxy/internal/wol"
)

// WakeCmd sends one wake-on-LAN packet to the configured host and exits.
// Useful for testing the broadcast path without running the daemon.
type WakeCmd struct {
	MAC     string        `help:"Override the target MAC address" placeholder:"aa:bb:cc:dd:ee:ff"`
	Timeout time.Duration `help:"Transmission deadline" default:"5s"`
}

func (w *WakeCmd) Run(_ *Global, root *CLI) error {
	cfg, err := loadConfig(root)
	if err != nil {
		return err
	}

	mac := cfg.GameServerMAC
	if w.MAC != "" {
		mac = w.MAC
	}

	ctx, cancel := context.WithTimeout(context.Background(), w.Timeout)
	defer cancel()

	tx := wol.NewTransmitter(cfg.TargetIP(), cfg.NetCIDR)
	if err := tx.Wake(ctx, mac); err != nil {
		return err
	}

	slog.Info("Wake-on-LAN packet sent", logfields.MAC(mac), logfields.TargetIP(cfg.GameServerIP))
	fmt.Printf("Sent magic packet to %s\n", mac)
	return nil
}
