package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	perrors "git.home.luguber.info/inful/wolproxy/internal/errors"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

const minimalConfig = `
game_server_ip: 192.168.1.50
game_server_mac: "AA:BB:CC:DD:EE:FF"
net_cidr: 24
`

func TestLoadMinimalAppliesDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, minimalConfig))
	require.NoError(t, err)

	assert.Equal(t, "192.168.1.50", cfg.GameServerIP)
	assert.Equal(t, DefaultMCPort, cfg.MCPort)
	assert.Equal(t, DefaultMOTDIdle, cfg.MCMOTDIdle)
	assert.Equal(t, DefaultMOTDStarting, cfg.MCMOTDStarting)
	assert.Equal(t, DefaultVersionLabel, cfg.MCVersionLabel)
	assert.Equal(t, DefaultSatisfactoryPorts(), cfg.SatisfactoryPorts)
	assert.Equal(t, DefaultPingIntervalSec, cfg.PingIntervalSec)
	assert.Equal(t, DefaultPingFailThreshold, cfg.PingFailThreshold)
	assert.Equal(t, 3*time.Second, cfg.PingInterval())
}

func TestLoadFullDocument(t *testing.T) {
	cfg, err := Load(writeConfig(t, `
game_server_ip: 10.0.0.20
game_server_mac: "00:11:22:33:44:55"
net_cidr: 16
mc_port: 25566
mc_motd_idle: "Sleeping - join to wake"
mc_motd_starting: "Booting, hold on"
mc_version_label: "Paper 1.21"
satisfactory_ports: [15777]
ping_interval_sec: 5
ping_fail_threshold: 4
metrics_addr: ":9090"
log_level: debug
`))
	require.NoError(t, err)

	assert.Equal(t, 25566, cfg.MCPort)
	assert.Equal(t, []int{15777}, cfg.SatisfactoryPorts)
	assert.Equal(t, 5*time.Second, cfg.PingInterval())
	assert.Equal(t, ":9090", cfg.MetricsAddr)

	mac, err := cfg.TargetMAC()
	require.NoError(t, err)
	assert.Len(t, mac, 6)
	require.NotNil(t, cfg.TargetIP())
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
	assert.True(t, perrors.IsCategory(err, perrors.CategoryConfig))
}

func TestLoadExpandsEnvironment(t *testing.T) {
	t.Setenv("WOLPROXY_TEST_IP", "192.168.7.7")
	cfg, err := Load(writeConfig(t, `
game_server_ip: ${WOLPROXY_TEST_IP}
game_server_mac: "AA:BB:CC:DD:EE:FF"
`))
	require.NoError(t, err)
	assert.Equal(t, "192.168.7.7", cfg.GameServerIP)
}

func TestValidateRejections(t *testing.T) {
	base := func() *Config {
		cfg := &Config{
			GameServerIP:  "192.168.1.50",
			GameServerMAC: "AA:BB:CC:DD:EE:FF",
			NetCIDR:       24,
		}
		ApplyDefaults(cfg)
		return cfg
	}

	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"missing ip", func(c *Config) { c.GameServerIP = "" }},
		{"ipv6 target", func(c *Config) { c.GameServerIP = "fe80::1" }},
		{"bad mac", func(c *Config) { c.GameServerMAC = "not-a-mac" }},
		{"cidr too large", func(c *Config) { c.NetCIDR = 33 }},
		{"mc port out of range", func(c *Config) { c.MCPort = 70000 }},
		{"bad satisfactory port", func(c *Config) { c.SatisfactoryPorts = []int{0} }},
		{"no trigger ports", func(c *Config) { c.SatisfactoryPorts = []int{} }},
		{"interval too small", func(c *Config) { c.PingIntervalSec = 0 }},
		{"threshold too small", func(c *Config) { c.PingFailThreshold = 0 }},
		{"unknown log level", func(c *Config) { c.LogLevel = "loud" }},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := base()
			tc.mutate(cfg)
			err := Validate(cfg)
			require.Error(t, err)
		})
	}
}

func TestWaitReturnsWhenDocumentAppears(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	done := make(chan struct{})
	var cfg *Config
	var waitErr error
	go func() {
		cfg, waitErr = Wait(ctx, path)
		close(done)
	}()

	time.Sleep(100 * time.Millisecond)
	require.NoError(t, os.WriteFile(path, []byte(minimalConfig), 0o644))

	select {
	case <-done:
	case <-time.After(4 * time.Second):
		t.Fatal("Wait did not return after document appeared")
	}
	require.NoError(t, waitErr)
	require.NotNil(t, cfg)
	assert.Equal(t, "192.168.1.50", cfg.GameServerIP)
}

func TestWaitHonorsCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	path := filepath.Join(t.TempDir(), "config.yaml")

	done := make(chan error, 1)
	go func() {
		_, err := Wait(ctx, path)
		done <- err
	}()

	cancel()
	select {
	case err := <-done:
		require.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("Wait did not honor cancellation")
	}
}

func TestLogLevelValue(t *testing.T) {
	for level, want := range map[string]string{
		"debug": "DEBUG", "info": "INFO", "warn": "WARN", "error": "ERROR", "": "INFO",
	} {
		cfg := &Config{LogLevel: level}
		assert.Equal(t, want, cfg.LogLevelValue().String(), "level %q", level)
	}
}
