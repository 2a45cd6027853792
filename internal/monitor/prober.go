// Package monitor watches the real host's reachability. It always probes the
// host's own address, never the possibly-taken-over service address, so it
// detects transitions from both the sleeping and the running side.
package monitor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os"
	"strconv"
	"sync"
	"syscall"
	"time"

	"golang.org/x/net/icmp"
	"golang.org/x/net/ipv4"
)

// probeTimeout bounds a single reachability check so a stalled network path
// cannot starve the rest of the system.
const probeTimeout = 1500 * time.Millisecond

// Prober performs one bounded reachability check. A nil return means the
// host answered.
type Prober interface {
	Probe(ctx context.Context) error
}

// ICMPProber sends an unprivileged ICMP echo (datagram socket; requires
// net.ipv4.ping_group_range to include the daemon's group).
type ICMPProber struct {
	target net.IP

	mu  sync.Mutex
	seq int
}

func NewICMPProber(target net.IP) *ICMPProber {
	return &ICMPProber{target: target}
}

func (p *ICMPProber) Probe(ctx context.Context) error {
	conn, err := icmp.ListenPacket("udp4", "0.0.0.0")
	if err != nil {
		return fmt.Errorf("icmp listen: %w", err)
	}
	defer conn.Close()

	deadline := time.Now().Add(probeTimeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	if err := conn.SetDeadline(deadline); err != nil {
		return fmt.Errorf("icmp deadline: %w", err)
	}

	p.mu.Lock()
	p.seq++
	seq := p.seq
	p.mu.Unlock()

	msg := icmp.Message{
		Type: ipv4.ICMPTypeEcho,
		Body: &icmp.Echo{
			ID:   os.Getpid() & 0xFFFF,
			Seq:  seq,
			Data: []byte("wolproxy reachability probe"),
		},
	}
	wire, err := msg.Marshal(nil)
	if err != nil {
		return fmt.Errorf("icmp marshal: %w", err)
	}

	if _, err := conn.WriteTo(wire, &net.UDPAddr{IP: p.target}); err != nil {
		return fmt.Errorf("icmp send: %w", err)
	}

	buf := make([]byte, 1500)
	for {
		n, peer, err := conn.ReadFrom(buf)
		if err != nil {
			return fmt.Errorf("icmp receive: %w", err)
		}
		reply, err := icmp.ParseMessage(ipv4.ICMPTypeEchoReply.Protocol(), buf[:n])
		if err != nil {
			continue
		}
		if reply.Type != ipv4.ICMPTypeEchoReply {
			continue
		}
		if echo, ok := reply.Body.(*icmp.Echo); !ok || echo.Seq != seq {
			continue
		}
		if udp, ok := peer.(*net.UDPAddr); ok && !udp.IP.Equal(p.target) {
			continue
		}
		return nil
	}
}

// TCPProber dials the configured game port. A refused connection still
// proves the host is up: its kernel answered.
type TCPProber struct {
	addr string
}

func NewTCPProber(target net.IP, port int) *TCPProber {
	return &TCPProber{addr: net.JoinHostPort(target.String(), strconv.Itoa(port))}
}

func (p *TCPProber) Probe(ctx context.Context) error {
	d := net.Dialer{Timeout: probeTimeout}
	conn, err := d.DialContext(ctx, "tcp", p.addr)
	if err != nil {
		if errors.Is(err, syscall.ECONNREFUSED) {
			return nil
		}
		return fmt.Errorf("tcp probe %s: %w", p.addr, err)
	}
	_ = conn.Close()
	return nil
}

// FallbackProber prefers ICMP and switches permanently to the TCP prober
// once ICMP proves unusable (typically a socket-permission failure on hosts
// without ping_group_range configured).
type FallbackProber struct {
	icmp *ICMPProber
	tcp  *TCPProber

	mu        sync.Mutex
	useICMP   bool
	announced bool
}

func NewFallbackProber(target net.IP, tcpPort int) *FallbackProber {
	return &FallbackProber{
		icmp:    NewICMPProber(target),
		tcp:     NewTCPProber(target, tcpPort),
		useICMP: true,
	}
}

func (p *FallbackProber) Probe(ctx context.Context) error {
	p.mu.Lock()
	useICMP := p.useICMP
	p.mu.Unlock()

	if useICMP {
		err := p.icmp.Probe(ctx)
		if err == nil {
			return nil
		}
		if !isSocketUnavailable(err) {
			return err
		}
		p.mu.Lock()
		p.useICMP = false
		if !p.announced {
			p.announced = true
			slog.Info("ICMP sockets unavailable, falling back to TCP reachability probes", "error", err)
		}
		p.mu.Unlock()
	}
	return p.tcp.Probe(ctx)
}

// isSocketUnavailable classifies errors that mean ICMP will never work in
// this environment, as opposed to an ordinary probe timeout.
func isSocketUnavailable(err error) bool {
	return errors.Is(err, syscall.EPERM) ||
		errors.Is(err, syscall.EACCES) ||
		errors.Is(err, syscall.EPROTONOSUPPORT) ||
		errors.Is(err, syscall.EAFNOSUPPORT)
}
