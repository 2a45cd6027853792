package listener

import (
	"context"
	"net"
	"strconv"

	"git.home.luguber.info/inful/wolproxy/internal/config"
	"git.home.luguber.info/inful/wolproxy/internal/events"
)

// Set bundles the Minecraft shim and the Satisfactory trigger so the
// orchestrator can start and stop them as one unit on state transitions.
type Set struct {
	mc *Minecraft
	sf *Satisfactory
}

// NewSet wires both listeners from the server record. The motd func lets the
// shim report "starting" text during the brief window between a wake trigger
// and the listeners stopping.
func NewSet(cfg *config.Config, bus *events.Bus, motd func() string) *Set {
	mcAddr := net.JoinHostPort(cfg.GameServerIP, strconv.Itoa(cfg.MCPort))
	return &Set{
		mc: NewMinecraft(MinecraftConfig{
			Addr:             mcAddr,
			VersionLabel:     cfg.MCVersionLabel,
			MOTD:             motd,
			DisconnectReason: cfg.MCMOTDStarting,
		}, bus),
		sf: NewSatisfactory(cfg.GameServerIP, cfg.SatisfactoryPorts, bus),
	}
}

// Start brings up both listeners; on any bind failure everything started so
// far is torn down again so Start is all-or-nothing.
func (s *Set) Start(ctx context.Context) error {
	if err := s.mc.Start(ctx); err != nil {
		return err
	}
	if err := s.sf.Start(ctx); err != nil {
		s.mc.Stop()
		return err
	}
	return nil
}

// Stop tears both listeners down. Stopping an already stopped set is a no-op.
func (s *Set) Stop() {
	s.mc.Stop()
	s.sf.Stop()
}

// MinecraftAddr returns the bound TCP address, empty when stopped.
func (s *Set) MinecraftAddr() string {
	return s.mc.Addr()
}

// SatisfactoryAddrs returns the bound UDP addresses, empty when stopped.
func (s *Set) SatisfactoryAddrs() []string {
	return s.sf.Addrs()
}
