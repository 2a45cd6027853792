package config

import (
	"net"
	"time"
)

// DefaultPath is where the first-run setup wizard writes the configuration
// document. The daemon idles until the document exists.
const DefaultPath = "/etc/wolproxy/config.yaml"

// Config is the per-run server record. It is loaded once at startup and
// treated as read-only by the core; a change to the document triggers a full
// restart, never a hot reload.
type Config struct {
	// Identity of the real game server.
	GameServerIP  string `yaml:"game_server_ip"`
	GameServerMAC string `yaml:"game_server_mac"`

	// Prefix length for the claimed secondary address. 0 means auto-detect
	// from the outbound interface.
	NetCIDR int `yaml:"net_cidr"`

	// Optional fixed interface name. Empty means auto-detect via the route
	// to the target address; re-resolved on failure.
	Interface string `yaml:"interface,omitempty"`

	// Minecraft shim.
	MCPort         int    `yaml:"mc_port"`
	MCMOTDIdle     string `yaml:"mc_motd_idle"`
	MCMOTDStarting string `yaml:"mc_motd_starting"`
	MCVersionLabel string `yaml:"mc_version_label"`

	// Satisfactory-style UDP trigger ports.
	SatisfactoryPorts []int `yaml:"satisfactory_ports"`

	// Reachability monitor.
	PingIntervalSec   int `yaml:"ping_interval_sec"`
	PingFailThreshold int `yaml:"ping_fail_threshold"`

	// Optional Prometheus exposition address (e.g. ":9090"). Empty disables
	// the metrics endpoint.
	MetricsAddr string `yaml:"metrics_addr,omitempty"`

	// Log level: debug|info|warn|error. Empty means info.
	LogLevel string `yaml:"log_level,omitempty"`
}

// PingInterval returns the polling interval as a duration.
func (c *Config) PingInterval() time.Duration {
	return time.Duration(c.PingIntervalSec) * time.Second
}

// TargetIP returns the parsed server address. Validate guarantees this
// succeeds after a successful Load.
func (c *Config) TargetIP() net.IP {
	return net.ParseIP(c.GameServerIP)
}

// TargetMAC returns the parsed hardware address.
func (c *Config) TargetMAC() (net.HardwareAddr, error) {
	return net.ParseMAC(c.GameServerMAC)
}
