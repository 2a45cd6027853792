package wol

import (
	"bytes"
	"context"
	"errors"
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	perrors "git.home.luguber.info/inful/wolproxy/internal/errors"
)

func TestBuildMagicPacketLayout(t *testing.T) {
	pkt, err := BuildMagicPacket("AA:BB:CC:DD:EE:FF")
	require.NoError(t, err)
	require.Len(t, pkt, MagicPacketSize)

	assert.Equal(t, bytes.Repeat([]byte{0xFF}, 6), pkt[:6])

	mac := []byte{0xAA, 0xBB, 0xCC, 0xDD, 0xEE, 0xFF}
	for i := range 16 {
		start := 6 + i*6
		assert.Equal(t, mac, pkt[start:start+6], "repetition %d", i)
	}
}

func TestBuildMagicPacketRejectsBadMAC(t *testing.T) {
	for _, mac := range []string{"", "nonsense", "AA:BB:CC:DD:EE", "01:23:45:67:89:ab:cd:ef"} {
		_, err := BuildMagicPacket(mac)
		require.Error(t, err, "mac %q", mac)
		assert.True(t, perrors.IsCategory(err, perrors.CategoryWOL))
	}
}

func TestSubnetBroadcast(t *testing.T) {
	cases := []struct {
		ip     string
		prefix int
		want   string
	}{
		{"192.168.1.50", 24, "192.168.1.255"},
		{"10.1.2.3", 16, "10.1.255.255"},
		{"172.16.5.9", 28, "172.16.5.15"},
	}
	for _, tc := range cases {
		got := SubnetBroadcast(net.ParseIP(tc.ip), tc.prefix)
		require.NotNil(t, got, "%s/%d", tc.ip, tc.prefix)
		assert.Equal(t, tc.want, got.String())
	}

	assert.Nil(t, SubnetBroadcast(net.ParseIP("fe80::1"), 64))
	assert.Nil(t, SubnetBroadcast(net.ParseIP("192.168.1.1"), 0))
	assert.Nil(t, SubnetBroadcast(net.ParseIP("192.168.1.1"), 40))
}

// capture records every datagram a transmitter would have sent.
type capture struct {
	payloads []([]byte)
	addrs    []*net.UDPAddr
	fail     bool
}

func (c *capture) send(_ context.Context, payload []byte, addr *net.UDPAddr) error {
	if c.fail {
		return errors.New("sendto: network is unreachable")
	}
	c.payloads = append(c.payloads, payload)
	c.addrs = append(c.addrs, addr)
	return nil
}

func newTestTransmitter(c *capture, broadcasts ...net.IP) *Transmitter {
	tx := NewTransmitter(net.ParseIP("192.168.1.50"), 24)
	tx.broadcasts = func() []net.IP { return broadcasts }
	tx.send = c.send
	return tx
}

func TestWakeFansOutToAllBroadcastsAndPorts(t *testing.T) {
	c := &capture{}
	tx := newTestTransmitter(c, net.ParseIP("192.168.0.255"))

	require.NoError(t, tx.Wake(context.Background(), "AA:BB:CC:DD:EE:FF"))

	// Targets: iface broadcast, target subnet broadcast, global broadcast;
	// each on ports 9 and 7.
	require.Len(t, c.addrs, 3*len(Ports))

	seen := map[string]int{}
	for _, addr := range c.addrs {
		seen[addr.IP.String()]++
	}
	assert.Equal(t, 2, seen["192.168.0.255"])
	assert.Equal(t, 2, seen["192.168.1.255"])
	assert.Equal(t, 2, seen["255.255.255.255"])

	want, _ := BuildMagicPacket("AA:BB:CC:DD:EE:FF")
	for _, p := range c.payloads {
		assert.Equal(t, want, p)
	}
}

func TestWakeDeduplicatesBroadcasts(t *testing.T) {
	c := &capture{}
	// Interface broadcast matches the target subnet broadcast.
	tx := newTestTransmitter(c, net.ParseIP("192.168.1.255"), net.ParseIP("192.168.1.255"))

	require.NoError(t, tx.Wake(context.Background(), "AA:BB:CC:DD:EE:FF"))
	require.Len(t, c.addrs, 2*len(Ports)) // subnet + global only
}

func TestWakeCollectsSendErrors(t *testing.T) {
	c := &capture{fail: true}
	tx := newTestTransmitter(c)

	err := tx.Wake(context.Background(), "AA:BB:CC:DD:EE:FF")
	require.Error(t, err)
	assert.True(t, perrors.IsCategory(err, perrors.CategoryWOL))
	assert.True(t, perrors.IsRetryable(err))
}

func TestWakeInvalidMACFailsFast(t *testing.T) {
	c := &capture{}
	tx := newTestTransmitter(c)

	require.Error(t, tx.Wake(context.Background(), "bogus"))
	assert.Empty(t, c.addrs)
}
