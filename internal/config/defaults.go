package config

// Defaults match what the setup wizard writes for an untouched install.
const (
	DefaultMCPort            = 25565
	DefaultMOTDIdle          = "Join to start Server"
	DefaultMOTDStarting      = "Starting..."
	DefaultVersionLabel      = "Offline"
	DefaultPingIntervalSec   = 3
	DefaultPingFailThreshold = 10
)

// DefaultSatisfactoryPorts covers the game port, the query port and the
// beacon port of a stock Satisfactory dedicated server.
func DefaultSatisfactoryPorts() []int {
	return []int{15000, 15777, 7777}
}

// ApplyDefaults fills unset fields in place. Explicit zero values that are
// never valid (ports, intervals) are treated as unset.
func ApplyDefaults(cfg *Config) {
	if cfg.MCPort == 0 {
		cfg.MCPort = DefaultMCPort
	}
	if cfg.MCMOTDIdle == "" {
		cfg.MCMOTDIdle = DefaultMOTDIdle
	}
	if cfg.MCMOTDStarting == "" {
		cfg.MCMOTDStarting = DefaultMOTDStarting
	}
	if cfg.MCVersionLabel == "" {
		cfg.MCVersionLabel = DefaultVersionLabel
	}
	if cfg.SatisfactoryPorts == nil {
		cfg.SatisfactoryPorts = DefaultSatisfactoryPorts()
	}
	if cfg.PingIntervalSec == 0 {
		cfg.PingIntervalSec = DefaultPingIntervalSec
	}
	if cfg.PingFailThreshold == 0 {
		cfg.PingFailThreshold = DefaultPingFailThreshold
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
}
