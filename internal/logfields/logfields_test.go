package logfields

import (
	"log/slog"
	"testing"
)

// TestHelperKeyNames verifies string-based helper key/value stability.
func TestHelperKeyNames(t *testing.T) {
	cases := []struct {
		name    string
		attrKey string
		attrVal string
		attr    slog.Attr
	}{
		{"State", KeyState, "idle", State("idle")},
		{"PrevState", KeyPrevState, "waking", PrevState("waking")},
		{"Source", KeySource, "minecraft_join", Source("minecraft_join")},
		{"ClientAddr", KeyClientAddr, "10.0.0.2:51234", ClientAddr("10.0.0.2:51234")},
		{"EventID", KeyEventID, "ev1", EventID("ev1")},
		{"Interface", KeyInterface, "eth0", Interface("eth0")},
		{"TargetIP", KeyTargetIP, "192.168.1.50", TargetIP("192.168.1.50")},
		{"MAC", KeyMAC, "aa:bb:cc:dd:ee:ff", MAC("aa:bb:cc:dd:ee:ff")},
		{"Broadcast", KeyBroadcast, "192.168.1.255", Broadcast("192.168.1.255")},
	}

	for _, tc := range cases {
		if tc.attr.Key != tc.attrKey {
			// Key drift would break log ingestion schemas.
			t.Fatalf("%s: expected key %s, got %s", tc.name, tc.attrKey, tc.attr.Key)
		}
		if got := tc.attr.Value.String(); got != tc.attrVal {
			t.Fatalf("%s: expected value %s, got %v", tc.name, tc.attrVal, got)
		}
	}
}

// TestNumericHelpers verifies keys for numeric & float helpers.
func TestNumericHelpers(t *testing.T) {
	if v := Port(25565); v.Key != KeyPort {
		t.Fatalf("Port key mismatch: %s", v.Key)
	}
	if v := Failures(3); v.Key != KeyFailures {
		t.Fatalf("Failures key mismatch: %s", v.Key)
	}
	if v := DurationMS(12.5); v.Key != KeyDurationMS {
		t.Fatalf("DurationMS key mismatch: %s", v.Key)
	}
}

// TestErrorHelper ensures Error() handles nil and non-nil errors predictably.
func TestErrorHelper(t *testing.T) {
	attr := Error(nil)
	if attr.Key != KeyError {
		t.Fatalf("Error key mismatch: %s", attr.Key)
	}
	if attr.Value.String() != "" {
		t.Fatalf("Expected empty error string, got %s", attr.Value.String())
	}
	attr = Error(errTest{})
	if attr.Value.String() != "err-test" {
		t.Fatalf("Expected 'err-test', got %s", attr.Value.String())
	}
}

type errTest struct{}

func (e errTest) Error() string { return "err-test" }
