package serialport

import "testing"

func TestClassify_SkipTakesPriorityOverPrefer(t *testing.T) {
	c := classify("/dev/ttyACM0", "JTAG CP210x Debug Probe")
	if !c.Skip {
		t.Fatalf("expected skip for JTAG description")
	}
	if c.Prefer {
		t.Fatalf("skip entries must not also be marked prefer")
	}
}

func TestClassify_PreferKeywords(t *testing.T) {
	for _, desc := range []string{"Silicon Labs CP2102", "CH340 USB Serial", "FTDI FT232R"} {
		c := classify("/dev/ttyUSB0", desc)
		if c.Skip {
			t.Fatalf("%q unexpectedly marked skip", desc)
		}
		if !c.Prefer {
			t.Fatalf("%q expected to be preferred", desc)
		}
	}
}

func TestClassify_CaseInsensitive(t *testing.T) {
	c := classify("/dev/ttyUSB0", "jlink debugger")
	if !c.Skip {
		t.Fatalf("expected case-insensitive skip match")
	}
}

func TestSortCandidates_Ordering(t *testing.T) {
	candidates := []Candidate{
		{Name: "/dev/ttyUSB0", Skip: true},
		{Name: "/dev/ttyUSB2"},
		{Name: "/dev/ttyUSB3", Prefer: true},
		{Name: "/dev/ttyUSB1"},
	}
	sortCandidates(candidates)

	want := []string{"/dev/ttyUSB3", "/dev/ttyUSB2", "/dev/ttyUSB1", "/dev/ttyUSB0"}
	for i, name := range want {
		if candidates[i].Name != name {
			t.Fatalf("position %d: want %s, got %s", i, name, candidates[i].Name)
		}
	}
}

func TestEnumerateWith_EmptyOnEnumerationFailure(t *testing.T) {
	got := enumerateWith(func() []string { panic("os denied enumeration") }, describePort)
	if len(got) != 0 {
		t.Fatalf("expected empty slice on enumeration failure, got %v", got)
	}
}

func TestEnumerateWith_PreservesSkippedForDiagnostics(t *testing.T) {
	got := enumerateWith(
		func() []string { return []string{"/dev/ttyACM0"} },
		func(string) string { return "JTAG Debug Probe" },
	)
	if len(got) != 1 || !got[0].Skip {
		t.Fatalf("expected one skipped diagnostic entry, got %+v", got)
	}
}
