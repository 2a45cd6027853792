// Package listener implements the protocol listener set: the Minecraft TCP
// shim and the Satisfactory-style UDP trigger. Both surface wake requests on
// the event bus and are only running while the daemon holds the server IP.
package listener

import (
	"bufio"
	"context"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/google/uuid"

	perrors "git.home.luguber.info/inful/wolproxy/internal/errors"
	"git.home.luguber.info/inful/wolproxy/internal/events"
	"git.home.luguber.info/inful/wolproxy/internal/logfields"
	"git.home.luguber.info/inful/wolproxy/internal/mcproto"
)

// clientTimeout bounds each connection's reads and writes so a slow or
// malicious client cannot pin a handler goroutine.
const clientTimeout = 5 * time.Second

// MinecraftConfig carries the shim's display strings.
type MinecraftConfig struct {
	Addr         string
	VersionLabel string
	// MOTD supplies the current status text (idle vs starting).
	MOTD func() string
	// DisconnectReason is sent to a joining player before the wake.
	DisconnectReason string
}

// Minecraft answers server-list pings with a synthetic status document and
// converts genuine login attempts into wake requests. Status polling alone
// never wakes the host.
type Minecraft struct {
	cfg MinecraftConfig
	bus *events.Bus

	mu     sync.Mutex
	ln     net.Listener
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewMinecraft builds the shim; Start binds the port.
func NewMinecraft(cfg MinecraftConfig, bus *events.Bus) *Minecraft {
	return &Minecraft{cfg: cfg, bus: bus}
}

// Start binds the TCP port and begins accepting. A bind failure is a fatal
// listener error: without its port the shim cannot fulfil its purpose.
func (m *Minecraft) Start(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ln != nil {
		return nil
	}

	// Own cancelation scope: Stop cancels it so a handler blocked in a bus
	// publish lets go instead of wedging wg.Wait.
	ctx, cancel := context.WithCancel(ctx)

	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", m.cfg.Addr)
	if err != nil {
		cancel()
		return perrors.BindFailed("tcp", m.cfg.Addr, err)
	}
	m.ln = ln
	m.cancel = cancel

	m.wg.Add(1)
	go m.acceptLoop(ctx, ln)

	slog.Info("Minecraft shim listening", slog.String("addr", ln.Addr().String()))
	return nil
}

// Stop closes the listener and waits for in-flight handlers.
func (m *Minecraft) Stop() {
	m.mu.Lock()
	ln := m.ln
	cancel := m.cancel
	m.ln = nil
	m.cancel = nil
	m.mu.Unlock()

	if ln == nil {
		return
	}
	if cancel != nil {
		cancel()
	}
	_ = ln.Close()
	m.wg.Wait()
	slog.Info("Minecraft shim stopped")
}

// Addr returns the bound address, or "" when stopped. Useful with port 0.
func (m *Minecraft) Addr() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ln == nil {
		return ""
	}
	return m.ln.Addr().String()
}

func (m *Minecraft) acceptLoop(ctx context.Context, ln net.Listener) {
	defer m.wg.Done()
	for {
		conn, err := ln.Accept()
		if err != nil {
			// Closed listener ends the loop; anything else is a transient
			// accept failure on a live socket.
			select {
			case <-ctx.Done():
			default:
				slog.Debug("Minecraft accept ended", logfields.Error(err))
			}
			return
		}
		m.wg.Add(1)
		go func() {
			defer m.wg.Done()
			m.handle(ctx, conn)
		}()
	}
}

// handle serves one client. Malformed input is dropped without raising an
// event and without disturbing other connections.
func (m *Minecraft) handle(ctx context.Context, conn net.Conn) {
	defer conn.Close()
	_ = conn.SetDeadline(time.Now().Add(clientTimeout))

	r := bufio.NewReader(conn)

	frame, err := mcproto.ReadFrame(r)
	if err != nil {
		return
	}
	hs, err := mcproto.DecodeHandshake(frame)
	if err != nil {
		slog.Debug("Dropping malformed handshake", logfields.ClientAddr(conn.RemoteAddr().String()), logfields.Error(err))
		return
	}

	switch hs.NextState {
	case mcproto.NextStateStatus:
		m.serveStatus(r, conn, hs.ProtocolVersion)
	case mcproto.NextStateLogin:
		m.serveLogin(ctx, r, conn)
	default:
		// Unknown next state: close without a reply.
	}
}

func (m *Minecraft) serveStatus(r *bufio.Reader, conn net.Conn, clientProtocol int32) {
	// The empty status request follows the handshake.
	if frame, err := mcproto.ReadFrame(r); err != nil || !mcproto.IsStatusRequest(frame) {
		return
	}

	resp := mcproto.NewStatusResponse(m.cfg.MOTD(), m.cfg.VersionLabel, clientProtocol)
	if err := mcproto.WriteStatusResponse(conn, resp); err != nil {
		return
	}

	// Optional ping/pong round trip for the client's latency display.
	if frame, err := mcproto.ReadFrame(r); err == nil && mcproto.IsPing(frame) {
		_ = mcproto.WritePong(conn, frame)
	}
}

func (m *Minecraft) serveLogin(ctx context.Context, r *bufio.Reader, conn net.Conn) {
	// Login start follows; its contents are irrelevant, the attempt itself
	// is the signal. A read failure here still counts: the handshake already
	// declared login intent.
	_, _ = mcproto.ReadFrame(r)

	_ = mcproto.WriteDisconnect(conn, m.cfg.DisconnectReason)

	clientAddr := conn.RemoteAddr().String()
	evt := events.WakeRequested{
		ID:         uuid.NewString(),
		Source:     events.SourceMinecraftJoin,
		ClientAddr: clientAddr,
		At:         time.Now(),
	}
	if err := m.bus.Publish(ctx, evt); err != nil {
		slog.Warn("Failed to publish join wake request", logfields.ClientAddr(clientAddr), logfields.Error(err))
		return
	}
	slog.Info("Minecraft join attempt",
		logfields.ClientAddr(clientAddr),
		logfields.EventID(evt.ID))
}
