package identity

import "testing"

func TestHashKnownVector(t *testing.T) {
	got := Hash("i9-7980XE", "RTX 3080 Ti", RAMName, "LAN")
	if len(got) != 8 {
		t.Fatalf("expected 8 hex chars, got %q (%d chars)", got, len(got))
	}
	for _, r := range got {
		if !((r >= '0' && r <= '9') || (r >= 'A' && r <= 'F')) {
			t.Fatalf("hash %q contains non-uppercase-hex character %q", got, r)
		}
	}
	if want := "B995F971"; got != want {
		t.Fatalf("expected CRC32 of %q to be %s, got %s", "i9-7980XE|RTX 3080 Ti|RAM|LAN", want, got)
	}
}

func TestHashDeterministic(t *testing.T) {
	a := Hash("AMD Ryzen 9", "RX 7900", RAMName, "WLAN")
	b := Hash("AMD Ryzen 9", "RX 7900", RAMName, "WLAN")
	if a != b {
		t.Fatalf("hash not deterministic: %q != %q", a, b)
	}
}

func TestHashSensitiveToEveryField(t *testing.T) {
	base := Hash("CPU", "GPU", RAMName, "LAN")
	variants := []string{
		Hash("cpu", "GPU", RAMName, "LAN"),
		Hash("CPU", "gpu", RAMName, "LAN"),
		Hash("CPU", "GPU", RAMName, "WLAN"),
	}
	for i, v := range variants {
		if v == base {
			t.Errorf("variant %d unexpectedly matched base hash %q", i, base)
		}
	}
}

func TestNewPopulatesFixedRAMName(t *testing.T) {
	id := New("CPU", "GPU", NetLAN)
	if id.RAMName != RAMName {
		t.Fatalf("expected RAM name %q, got %q", RAMName, id.RAMName)
	}
	if id.IdentityHash != Hash("CPU", "GPU", RAMName, "LAN") {
		t.Fatalf("identity hash mismatch")
	}
}
