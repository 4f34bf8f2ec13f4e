package main

import "testing"

func TestLocalIdentity_DeterministicGivenOverrides(t *testing.T) {
	gpuNameOverride = "Test GPU"
	a := localIdentity()
	b := localIdentity()
	if a.IdentityHash != b.IdentityHash {
		t.Fatalf("expected identical identity hash across calls with the same overrides, got %s vs %s", a.IdentityHash, b.IdentityHash)
	}
	if a.GPUName != "Test GPU" {
		t.Fatalf("expected GPU name override to apply, got %q", a.GPUName)
	}
}
