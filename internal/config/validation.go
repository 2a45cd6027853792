package config

import (
	"fmt"
	"net"

	"git.home.luguber.info/inful/wolproxy/internal/errors"
)

// Validate checks the complete configuration document. All failures are
// classified CategoryValidation and fatal: the daemon cannot impersonate a
// host it cannot describe.
func Validate(cfg *Config) error {
	if cfg.GameServerIP == "" {
		return errors.ConfigRequired("game_server_ip")
	}
	ip := net.ParseIP(cfg.GameServerIP)
	if ip == nil || ip.To4() == nil {
		return errors.ValidationFailed("game_server_ip", "not a valid IPv4 address")
	}

	if cfg.GameServerMAC == "" {
		return errors.ConfigRequired("game_server_mac")
	}
	if _, err := net.ParseMAC(cfg.GameServerMAC); err != nil {
		return errors.ValidationFailed("game_server_mac", err.Error())
	}

	if cfg.NetCIDR < 0 || cfg.NetCIDR > 32 {
		return errors.ValidationFailed("net_cidr", "prefix length must be within 0-32")
	}

	if err := validatePort("mc_port", cfg.MCPort); err != nil {
		return err
	}
	for _, p := range cfg.SatisfactoryPorts {
		if err := validatePort("satisfactory_ports", p); err != nil {
			return err
		}
	}
	if len(cfg.SatisfactoryPorts) == 0 {
		return errors.ValidationFailed("satisfactory_ports", "at least one UDP trigger port required")
	}

	if cfg.PingIntervalSec < 1 {
		return errors.ValidationFailed("ping_interval_sec", "must be at least 1")
	}
	if cfg.PingFailThreshold < 1 {
		return errors.ValidationFailed("ping_fail_threshold", "must be at least 1")
	}

	switch cfg.LogLevel {
	case "", "debug", "info", "warn", "error":
	default:
		return errors.ValidationFailed("log_level", "must be one of debug, info, warn, error")
	}

	return nil
}

func validatePort(field string, port int) error {
	if port < 1 || port > 65535 {
		return errors.ValidationFailed(field, fmt.Sprintf("port %d out of range 1-65535", port))
	}
	return nil
}
