package wol

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"

	perrors "git.home.luguber.info/inful/wolproxy/internal/errors"
	"git.home.luguber.info/inful/wolproxy/internal/logfields"
)

// Transmitter fans a magic packet out to every plausible broadcast address.
// Delivery is fire and forget: the caller confirms the host's arrival through
// the reachability monitor, never through this component.
type Transmitter struct {
	targetIP net.IP
	prefix   int

	// broadcasts enumerates candidate broadcast addresses; injectable for tests.
	broadcasts func() []net.IP
	// send delivers one datagram; injectable for tests.
	send func(ctx context.Context, payload []byte, addr *net.UDPAddr) error
}

// NewTransmitter builds a transmitter for the given target address and prefix
// length. The prefix is used to derive the target subnet's limited broadcast.
func NewTransmitter(targetIP net.IP, prefix int) *Transmitter {
	t := &Transmitter{
		targetIP: targetIP,
		prefix:   prefix,
	}
	t.broadcasts = t.systemBroadcasts
	t.send = sendUDP
	return t
}

// Wake builds the magic packet for mac and sends it to every enumerated
// broadcast address on each WOL port. Individual send failures are collected
// and returned; callers log them and move on.
func (t *Transmitter) Wake(ctx context.Context, mac string) error {
	pkt, err := BuildMagicPacket(mac)
	if err != nil {
		return err
	}

	var errs []error
	for _, bcast := range t.allBroadcasts() {
		for _, port := range Ports {
			addr := &net.UDPAddr{IP: bcast, Port: port}
			if sendErr := t.send(ctx, pkt, addr); sendErr != nil {
				errs = append(errs, perrors.WakeSendFailed(addr.String(), sendErr))
				continue
			}
			slog.Debug("Magic packet sent",
				logfields.MAC(mac),
				logfields.Broadcast(bcast.String()),
				logfields.Port(port))
		}
	}
	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	slog.Info("Wake-on-LAN transmission complete", logfields.MAC(mac))
	return nil
}

// allBroadcasts merges interface broadcasts, the target subnet's limited
// broadcast and the global broadcast, de-duplicated in insertion order.
func (t *Transmitter) allBroadcasts() []net.IP {
	candidates := t.broadcasts()
	if b := SubnetBroadcast(t.targetIP, t.prefix); b != nil {
		candidates = append(candidates, b)
	}
	candidates = append(candidates, net.IPv4bcast)

	seen := make(map[string]struct{}, len(candidates))
	out := make([]net.IP, 0, len(candidates))
	for _, ip := range candidates {
		if ip == nil {
			continue
		}
		key := ip.String()
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, ip)
	}
	return out
}

// systemBroadcasts derives one broadcast address per configured IPv4
// interface address. Enumeration failures fall through to the global
// broadcast, so they are logged at debug level only.
func (t *Transmitter) systemBroadcasts() []net.IP {
	ifaces, err := net.Interfaces()
	if err != nil {
		slog.Debug("Failed to enumerate interfaces for broadcast fan-out", "error", err)
		return nil
	}

	var out []net.IP
	for _, iface := range ifaces {
		if iface.Flags&net.FlagUp == 0 || iface.Flags&net.FlagLoopback != 0 {
			continue
		}
		addrs, err := iface.Addrs()
		if err != nil {
			continue
		}
		for _, addr := range addrs {
			ipnet, ok := addr.(*net.IPNet)
			if !ok {
				continue
			}
			ones, _ := ipnet.Mask.Size()
			if b := SubnetBroadcast(ipnet.IP, ones); b != nil {
				out = append(out, b)
			}
		}
	}
	return out
}

// SubnetBroadcast computes the directed broadcast of an IPv4 subnet. Returns
// nil for non-IPv4 input or degenerate prefixes.
func SubnetBroadcast(ip net.IP, prefix int) net.IP {
	v4 := ip.To4()
	if v4 == nil || prefix <= 0 || prefix > 32 {
		return nil
	}
	mask := net.CIDRMask(prefix, 32)
	bcast := make(net.IP, 4)
	for i := range bcast {
		bcast[i] = v4[i]&mask[i] | ^mask[i]
	}
	return bcast
}

func sendUDP(ctx context.Context, payload []byte, addr *net.UDPAddr) error {
	conn, err := net.DialUDP("udp4", nil, addr)
	if err != nil {
		return fmt.Errorf("dial %s: %w", addr, err)
	}
	defer conn.Close()

	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetWriteDeadline(deadline)
	}

	if _, err := conn.Write(payload); err != nil {
		return fmt.Errorf("send to %s: %w", addr, err)
	}
	return nil
}
