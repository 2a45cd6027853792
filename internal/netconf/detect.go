package netconf

import (
	"context"
	"fmt"
	"regexp"
	"strconv"

	perrors "git.home.luguber.info/inful/wolproxy/internal/errors"
)

var (
	devRe    = regexp.MustCompile(`dev\s+(\S+)`)
	prefixRe = regexp.MustCompile(`inet\s+\S+/(\d+)`)
)

// detectInterface resolves the outbound interface for the target address via
// the kernel's routing decision. The result is cached by the caller and
// re-resolved on failure, since a network change may move the route.
func detectInterface(ctx context.Context, r Runner, targetIP string) (string, error) {
	out, stderr, err := r.Run(ctx, "ip", "route", "get", targetIP)
	if err != nil {
		return "", perrors.InterfaceNotFound(targetIP, fmt.Errorf("ip route get: %s: %w", stderr, err))
	}
	m := devRe.FindStringSubmatch(out)
	if m == nil {
		return "", perrors.InterfaceNotFound(targetIP, fmt.Errorf("no device in route output %q", out))
	}
	return m[1], nil
}

// detectPrefix reads the prefix length of the interface's primary IPv4
// address, used when the configuration document leaves net_cidr at 0.
func detectPrefix(ctx context.Context, r Runner, iface string) (int, error) {
	out, stderr, err := r.Run(ctx, "ip", "-o", "-f", "inet", "addr", "show", "dev", iface)
	if err != nil {
		return 0, fmt.Errorf("ip addr show %s: %s: %w", iface, stderr, err)
	}
	m := prefixRe.FindStringSubmatch(out)
	if m == nil {
		return 0, fmt.Errorf("no IPv4 prefix on %s in %q", iface, out)
	}
	prefix, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, fmt.Errorf("parse prefix %q: %w", m[1], err)
	}
	return prefix, nil
}
