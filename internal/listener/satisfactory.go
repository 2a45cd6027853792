package listener

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/google/uuid"

	perrors "git.home.luguber.info/inful/wolproxy/internal/errors"
	"git.home.luguber.info/inful/wolproxy/internal/events"
	"git.home.luguber.info/inful/wolproxy/internal/logfields"
)

// Satisfactory raises a wake request for any datagram on a configured port.
// Deliberately zero protocol parsing: a server-browser query existing at all
// is the wake signal, in contrast with the Minecraft shim where only a
// genuine join counts.
type Satisfactory struct {
	bindIP string
	ports  []int
	bus    *events.Bus

	mu     sync.Mutex
	conns  []net.PacketConn
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewSatisfactory builds the trigger for the given bind IP and UDP ports.
func NewSatisfactory(bindIP string, ports []int, bus *events.Bus) *Satisfactory {
	return &Satisfactory{bindIP: bindIP, ports: ports, bus: bus}
}

// Start binds every configured port. Any bind failure closes the ports bound
// so far and is fatal at startup.
func (s *Satisfactory) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.conns) > 0 {
		return nil
	}

	// Own cancelation scope: Stop cancels it so a read loop blocked in a
	// bus publish lets go instead of wedging wg.Wait.
	ctx, cancel := context.WithCancel(ctx)

	var lc net.ListenConfig
	for _, port := range s.ports {
		addr := net.JoinHostPort(s.bindIP, fmt.Sprint(port))
		conn, err := lc.ListenPacket(ctx, "udp", addr)
		if err != nil {
			cancel()
			for _, c := range s.conns {
				_ = c.Close()
			}
			s.conns = nil
			return perrors.BindFailed("udp", addr, err)
		}
		s.conns = append(s.conns, conn)

		s.wg.Add(1)
		go s.readLoop(ctx, conn)

		slog.Info("Satisfactory trigger listening", slog.String("addr", conn.LocalAddr().String()))
	}
	s.cancel = cancel
	return nil
}

// Stop closes all ports and waits for the read loops.
func (s *Satisfactory) Stop() {
	s.mu.Lock()
	conns := s.conns
	cancel := s.cancel
	s.conns = nil
	s.cancel = nil
	s.mu.Unlock()

	if len(conns) == 0 {
		return
	}
	if cancel != nil {
		cancel()
	}
	for _, c := range conns {
		_ = c.Close()
	}
	s.wg.Wait()
	slog.Info("Satisfactory trigger stopped")
}

// Addrs returns the bound addresses. Useful with port 0 in tests.
func (s *Satisfactory) Addrs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.conns))
	for _, c := range s.conns {
		out = append(out, c.LocalAddr().String())
	}
	return out
}

func (s *Satisfactory) readLoop(ctx context.Context, conn net.PacketConn) {
	defer s.wg.Done()
	buf := make([]byte, 2048)
	for {
		_, from, err := conn.ReadFrom(buf)
		if err != nil {
			// Closed socket ends the loop.
			return
		}

		evt := events.WakeRequested{
			ID:         uuid.NewString(),
			Source:     events.SourceSatisfactoryQuery,
			ClientAddr: from.String(),
			At:         time.Now(),
		}
		if err := s.bus.Publish(ctx, evt); err != nil {
			slog.Warn("Failed to publish query wake request", logfields.ClientAddr(from.String()), logfields.Error(err))
			continue
		}
		slog.Info("Satisfactory query received",
			logfields.ClientAddr(from.String()),
			logfields.Port(conn.LocalAddr().(*net.UDPAddr).Port),
			logfields.EventID(evt.ID))
	}
}
