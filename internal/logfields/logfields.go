package logfields

import "log/slog"

// Canonical log field name constants to avoid drift across packages.
const (
	KeyState      = "state"
	KeyPrevState  = "prev_state"
	KeySource     = "source"
	KeyClientAddr = "client_addr"
	KeyEventID    = "event_id"
	KeyInterface  = "interface"
	KeyTargetIP   = "target_ip"
	KeyMAC        = "mac"
	KeyPort       = "port"
	KeyBroadcast  = "broadcast"
	KeyFailures   = "consecutive_failures"
	KeyDurationMS = "duration_ms"
	KeyError      = "error"
)

// Simple helpers returning slog.Attr. Keeping each granular means callers can compose.
func State(s string) slog.Attr        { return slog.String(KeyState, s) }
func PrevState(s string) slog.Attr    { return slog.String(KeyPrevState, s) }
func Source(s string) slog.Attr       { return slog.String(KeySource, s) }
func ClientAddr(a string) slog.Attr   { return slog.String(KeyClientAddr, a) }
func EventID(id string) slog.Attr     { return slog.String(KeyEventID, id) }
func Interface(name string) slog.Attr { return slog.String(KeyInterface, name) }
func TargetIP(ip string) slog.Attr    { return slog.String(KeyTargetIP, ip) }
func MAC(mac string) slog.Attr        { return slog.String(KeyMAC, mac) }
func Port(p int) slog.Attr            { return slog.Int(KeyPort, p) }
func Broadcast(b string) slog.Attr    { return slog.String(KeyBroadcast, b) }
func Failures(n int) slog.Attr        { return slog.Int(KeyFailures, n) }
func DurationMS(ms float64) slog.Attr { return slog.Float64(KeyDurationMS, ms) }
func Error(err error) slog.Attr {
	if err == nil {
		return slog.String(KeyError, "")
	}
	return slog.String(KeyError, err.Error())
}
