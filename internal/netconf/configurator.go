package netconf

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	perrors "git.home.luguber.info/inful/wolproxy/internal/errors"
	"git.home.luguber.info/inful/wolproxy/internal/logfields"
	"git.home.luguber.info/inful/wolproxy/internal/retry"
)

// Configurator is the narrow network-configuration port the orchestrator
// drives. Claim and Release are idempotent: the orchestrator may call either
// from multiple transition paths during flapping.
type Configurator interface {
	Claim(ctx context.Context) error
	Release(ctx context.Context) error
	Owned() bool
}

// IPRoute2 implements Configurator with the ip(8) and arping(8) tools.
type IPRoute2 struct {
	targetIP string
	prefix   int // 0 = detect from interface

	runner   Runner
	announce retry.Policy

	mu    sync.Mutex
	iface string
	owned bool
}

// Option configures an IPRoute2 configurator.
type Option func(*IPRoute2)

// WithRunner substitutes the command runner (tests use a recording fake).
func WithRunner(r Runner) Option {
	return func(c *IPRoute2) { c.runner = r }
}

// WithInterface pins the interface instead of auto-detecting it.
func WithInterface(name string) Option {
	return func(c *IPRoute2) { c.iface = name }
}

// WithAnnouncePolicy overrides the gratuitous ARP repeat spacing.
func WithAnnouncePolicy(p retry.Policy) Option {
	return func(c *IPRoute2) { c.announce = p }
}

// NewIPRoute2 builds a configurator for the target address. On restart the
// daemon always assumes it does not own the address; truth is re-derived via
// the monitor's first check.
func NewIPRoute2(targetIP string, prefix int, opts ...Option) *IPRoute2 {
	c := &IPRoute2{
		targetIP: targetIP,
		prefix:   prefix,
		runner:   ExecRunner{},
		announce: retry.AnnouncePolicy(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Owned reports whether this process believes it currently holds the address.
func (c *IPRoute2) Owned() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.owned
}

// Claim adds the target address as a secondary address on the outbound
// interface and announces it via gratuitous ARP. Claiming twice is a no-op;
// an address that already exists counts as success.
func (c *IPRoute2) Claim(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.owned {
		return nil
	}

	iface, prefix, err := c.resolveLocked(ctx)
	if err != nil {
		return err
	}

	cidr := fmt.Sprintf("%s/%d", c.targetIP, prefix)
	_, stderr, err := c.runner.Run(ctx, "ip", "addr", "add", cidr, "dev", iface)
	if err != nil && !strings.Contains(stderr, "File exists") {
		// Interface may have changed since detection; force re-resolution
		// on the next attempt.
		c.iface = ""
		return perrors.AddressOpFailed("add", cidr, iface, fmt.Errorf("%s: %w", strings.TrimSpace(stderr), err))
	}

	c.gratuitousARPLocked(ctx, iface)

	c.owned = true
	slog.Info("Claimed server address",
		logfields.TargetIP(c.targetIP),
		logfields.Interface(iface),
		slog.Int("prefix", prefix))
	return nil
}

// Release removes the secondary address. Releasing when already unclaimed is
// a no-op; an address that is already absent counts as success.
func (c *IPRoute2) Release(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.owned {
		return nil
	}

	iface, prefix, err := c.resolveLocked(ctx)
	if err != nil {
		return err
	}

	cidr := fmt.Sprintf("%s/%d", c.targetIP, prefix)
	_, stderr, err := c.runner.Run(ctx, "ip", "addr", "del", cidr, "dev", iface)
	if err != nil && !releaseTolerable(stderr) {
		c.iface = ""
		return perrors.AddressOpFailed("del", cidr, iface, fmt.Errorf("%s: %w", strings.TrimSpace(stderr), err))
	}

	c.owned = false
	slog.Info("Released server address",
		logfields.TargetIP(c.targetIP),
		logfields.Interface(iface))
	return nil
}

// releaseTolerable reports whether an `ip addr del` failure means the address
// was already gone, which release treats as success.
func releaseTolerable(stderr string) bool {
	return strings.Contains(stderr, "Cannot assign requested address") ||
		strings.Contains(stderr, "Cannot find device")
}

// resolveLocked returns the interface and prefix, detecting and caching them
// when unknown. Callers hold c.mu.
func (c *IPRoute2) resolveLocked(ctx context.Context) (string, int, error) {
	if c.iface == "" {
		iface, err := detectInterface(ctx, c.runner, c.targetIP)
		if err != nil {
			return "", 0, err
		}
		c.iface = iface
		slog.Debug("Detected outbound interface", logfields.Interface(iface), logfields.TargetIP(c.targetIP))
	}
	if c.prefix == 0 {
		prefix, err := detectPrefix(ctx, c.runner, c.iface)
		if err != nil {
			return "", 0, perrors.InterfaceNotFound(c.targetIP, err)
		}
		c.prefix = prefix
	}
	return c.iface, c.prefix, nil
}

// gratuitousARPLocked announces the new address several times with short
// spacing to overcome stale switch and neighbor caches. arping failures are
// transient network errors: logged, never fatal.
func (c *IPRoute2) gratuitousARPLocked(ctx context.Context, iface string) {
	attempts := c.announce.MaxRetries + 1
	for i := range attempts {
		if _, stderr, err := c.runner.Run(ctx, "arping", "-U", "-I", iface, "-c", "1", c.targetIP); err != nil {
			slog.Warn("Gratuitous ARP announcement failed",
				logfields.Interface(iface),
				logfields.TargetIP(c.targetIP),
				slog.String("stderr", strings.TrimSpace(stderr)),
				logfields.Error(err))
		}
		if i < attempts-1 {
			select {
			case <-time.After(c.announce.Delay(i + 1)):
			case <-ctx.Done():
				return
			}
		}
	}
}
