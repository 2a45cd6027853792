package listener

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	perrors "git.home.luguber.info/inful/wolproxy/internal/errors"
	"git.home.luguber.info/inful/wolproxy/internal/events"
	"git.home.luguber.info/inful/wolproxy/internal/mcproto"
)

func startShim(t *testing.T, motd string) (*Minecraft, <-chan events.WakeRequested) {
	t.Helper()
	bus := events.NewBus()
	t.Cleanup(bus.Close)

	wakeCh, unsub := events.Subscribe[events.WakeRequested](bus, 8)
	t.Cleanup(unsub)

	m := NewMinecraft(MinecraftConfig{
		Addr:             "127.0.0.1:0",
		VersionLabel:     "Offline",
		MOTD:             func() string { return motd },
		DisconnectReason: "Starting...",
	}, bus)
	require.NoError(t, m.Start(context.Background()))
	t.Cleanup(m.Stop)

	return m, wakeCh
}

func writeHandshake(t *testing.T, conn net.Conn, nextState int32) {
	t.Helper()
	payload := mcproto.AppendVarInt(nil, 0x00) // handshake id
	payload = mcproto.AppendVarInt(payload, 767)
	payload = mcproto.AppendString(payload, "192.168.1.50")
	payload = append(payload, 0x63, 0xDD) // port 25565
	payload = mcproto.AppendVarInt(payload, nextState)
	require.NoError(t, mcproto.WriteFrame(conn, payload))
}

func expectNoWake(t *testing.T, ch <-chan events.WakeRequested) {
	t.Helper()
	select {
	case evt := <-ch:
		t.Fatalf("unexpected wake event: %+v", evt)
	case <-time.After(100 * time.Millisecond):
	}
}

func expectWake(t *testing.T, ch <-chan events.WakeRequested, source events.WakeSource) events.WakeRequested {
	t.Helper()
	select {
	case evt := <-ch:
		require.Equal(t, source, evt.Source)
		require.NotEmpty(t, evt.ID)
		require.NotEmpty(t, evt.ClientAddr)
		return evt
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for wake event")
		return events.WakeRequested{}
	}
}

func TestStatusRequestNeverWakes(t *testing.T) {
	m, wakeCh := startShim(t, "Join to start Server")

	conn, err := net.Dial("tcp", m.Addr())
	require.NoError(t, err)
	defer conn.Close()

	writeHandshake(t, conn, mcproto.NextStateStatus)
	require.NoError(t, mcproto.WriteFrame(conn, []byte{0x00})) // status request

	r := bufio.NewReader(conn)
	frame, err := mcproto.ReadFrame(r)
	require.NoError(t, err)

	br := bytes.NewReader(frame)
	id, err := mcproto.ReadVarInt(br)
	require.NoError(t, err)
	require.EqualValues(t, 0x00, id)

	doc, err := mcproto.ReadString(br)
	require.NoError(t, err)

	var resp mcproto.StatusResponse
	require.NoError(t, json.Unmarshal([]byte(doc), &resp))
	assert.Equal(t, "Join to start Server", resp.Description.Text)
	assert.EqualValues(t, 767, resp.Version.Protocol)
	assert.Zero(t, resp.Players.Online)

	expectNoWake(t, wakeCh)
}

func TestStatusPingIsEchoed(t *testing.T) {
	m, wakeCh := startShim(t, "idle")

	conn, err := net.Dial("tcp", m.Addr())
	require.NoError(t, err)
	defer conn.Close()

	writeHandshake(t, conn, mcproto.NextStateStatus)
	require.NoError(t, mcproto.WriteFrame(conn, []byte{0x00}))

	r := bufio.NewReader(conn)
	_, err = mcproto.ReadFrame(r) // status response
	require.NoError(t, err)

	ping := append([]byte{0x01}, []byte{1, 2, 3, 4, 5, 6, 7, 8}...)
	require.NoError(t, mcproto.WriteFrame(conn, ping))

	pong, err := mcproto.ReadFrame(r)
	require.NoError(t, err)
	assert.Equal(t, ping, pong)

	expectNoWake(t, wakeCh)
}

func TestLoginAttemptWakesAndDisconnects(t *testing.T) {
	m, wakeCh := startShim(t, "idle")

	conn, err := net.Dial("tcp", m.Addr())
	require.NoError(t, err)
	defer conn.Close()

	writeHandshake(t, conn, mcproto.NextStateLogin)
	// Login start with a username-ish payload.
	loginStart := mcproto.AppendVarInt(nil, 0x00)
	loginStart = mcproto.AppendString(loginStart, "steve")
	require.NoError(t, mcproto.WriteFrame(conn, loginStart))

	r := bufio.NewReader(conn)
	frame, err := mcproto.ReadFrame(r)
	require.NoError(t, err)

	br := bytes.NewReader(frame)
	_, err = mcproto.ReadVarInt(br)
	require.NoError(t, err)
	doc, err := mcproto.ReadString(br)
	require.NoError(t, err)

	var chat mcproto.ChatText
	require.NoError(t, json.Unmarshal([]byte(doc), &chat))
	assert.Equal(t, "Starting...", chat.Text)

	expectWake(t, wakeCh, events.SourceMinecraftJoin)
	expectNoWake(t, wakeCh) // exactly one event per attempt
}

func TestMalformedInputIsDroppedSilently(t *testing.T) {
	m, wakeCh := startShim(t, "idle")

	conn, err := net.Dial("tcp", m.Addr())
	require.NoError(t, err)
	defer conn.Close()

	_, err = conn.Write([]byte{0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF})
	require.NoError(t, err)

	// The shim must close the connection without an event and keep serving.
	expectNoWake(t, wakeCh)

	conn2, err := net.Dial("tcp", m.Addr())
	require.NoError(t, err)
	defer conn2.Close()
	writeHandshake(t, conn2, mcproto.NextStateLogin)
	require.NoError(t, mcproto.WriteFrame(conn2, mcproto.AppendVarInt(nil, 0x00)))
	expectWake(t, wakeCh, events.SourceMinecraftJoin)
}

func TestMinecraftBindFailureIsFatalListenerError(t *testing.T) {
	bus := events.NewBus()
	defer bus.Close()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	m := NewMinecraft(MinecraftConfig{Addr: ln.Addr().String(), MOTD: func() string { return "" }}, bus)
	err = m.Start(context.Background())
	require.Error(t, err)
	assert.True(t, perrors.IsCategory(err, perrors.CategoryListener))
	assert.True(t, perrors.IsFatal(err))
}

func TestMinecraftStartStopIdempotent(t *testing.T) {
	m, _ := startShim(t, "idle")
	require.NoError(t, m.Start(context.Background())) // second start is a no-op
	m.Stop()
	m.Stop() // second stop is a no-op
}

// Same shutdown contract as the UDP trigger: a login handler blocked in a
// bus publish must not wedge Stop.
func TestMinecraftStopUnblocksPendingPublish(t *testing.T) {
	bus := events.NewBus()
	t.Cleanup(bus.Close)

	_, unsub := events.Subscribe[events.WakeRequested](bus, 0)
	t.Cleanup(unsub)

	m := NewMinecraft(MinecraftConfig{
		Addr:             "127.0.0.1:0",
		VersionLabel:     "Offline",
		MOTD:             func() string { return "idle" },
		DisconnectReason: "Starting...",
	}, bus)
	require.NoError(t, m.Start(context.Background()))

	conn, err := net.Dial("tcp", m.Addr())
	require.NoError(t, err)
	defer conn.Close()
	writeHandshake(t, conn, mcproto.NextStateLogin)
	require.NoError(t, mcproto.WriteFrame(conn, mcproto.AppendVarInt(nil, 0x00)))

	// Give the handler time to enter the blocking publish.
	time.Sleep(50 * time.Millisecond)

	done := make(chan struct{})
	go func() {
		m.Stop()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Stop wedged behind a blocked publish")
	}
}
