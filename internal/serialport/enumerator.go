package serialport

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Candidate is one serial port surfaced by Enumerate, per spec.md §4.1.
type Candidate struct {
	Name        string
	Description string
	Skip        bool
	Prefer      bool
}

var skipKeywords = []string{"JTAG", "Debug", "Debugger", "JLink", "ST-Link"}

var preferKeywords = []string{
	"USB Serial", "USB-SERIAL", "CP210", "CH340", "CH341", "FTDI", "Silicon Labs",
}

// describeFunc looks up a human-readable description for a port name.
// Overridable in tests; the default consults /sys/class/tty and, best
// effort, a USB VID/PID table (see usbid.go).
type describeFunc func(portName string) string

// Enumerate produces the ordered candidate list of spec.md §4.1: OS serial
// ports paired with descriptions, skip/prefer hints applied, then sorted
// non-skipped-preferred-first, name-descending within each group, skipped
// entries last (kept for diagnostics, never dropped).
//
// Enumeration failures never escape to the caller: they surface as an
// empty slice.
func Enumerate() []Candidate {
	return enumerateWith(listTTYNames, describePort)
}

func enumerateWith(list func() []string, describe describeFunc) []Candidate {
	names := safeList(list)
	candidates := make([]Candidate, 0, len(names))
	for _, name := range names {
		desc := describe(name)
		candidates = append(candidates, classify(name, desc))
	}
	sortCandidates(candidates)
	return candidates
}

func safeList(list func() []string) []string {
	defer func() { recover() }() //nolint:errcheck // enumeration must never panic out to the caller
	if list == nil {
		return nil
	}
	return list()
}

func classify(name, desc string) Candidate {
	lower := strings.ToLower(desc)
	c := Candidate{Name: name, Description: desc}
	for _, kw := range skipKeywords {
		if strings.Contains(lower, strings.ToLower(kw)) {
			c.Skip = true
			break
		}
	}
	if !c.Skip {
		for _, kw := range preferKeywords {
			if strings.Contains(lower, strings.ToLower(kw)) {
				c.Prefer = true
				break
			}
		}
	}
	return c
}

// sortCandidates orders non-skipped before skipped, preferred before
// others within the non-skipped group, then by name descending (favoring
// newly-attached, higher-numbered USB adapters), per spec.md §4.1.
func sortCandidates(candidates []Candidate) {
	sort.SliceStable(candidates, func(i, j int) bool {
		a, b := candidates[i], candidates[j]
		if a.Skip != b.Skip {
			return !a.Skip
		}
		if a.Prefer != b.Prefer {
			return a.Prefer
		}
		return a.Name > b.Name
	})
}

// listTTYNames enumerates the /dev/ttyUSB*, /dev/ttyACM* and /dev/ttyS*
// device nodes, the way a Linux host actually discovers serial ports - there is
// no portable syscall for "give me every serial port", so this walks the
// conventional device directory the same way the teacher's own
// detectASIC walked /dev/bitmain-asic.
func listTTYNames() []string {
	entries, err := os.ReadDir("/dev")
	if err != nil {
		return nil
	}
	var names []string
	for _, e := range entries {
		name := e.Name()
		if strings.HasPrefix(name, "ttyUSB") || strings.HasPrefix(name, "ttyACM") || strings.HasPrefix(name, "ttyS") {
			names = append(names, filepath.Join("/dev", name))
		}
	}
	return names
}

// describePort returns a human-readable description for name, by reading
// the matching /sys/class/tty/<dev>/device/.. product strings where
// present, enriched by usbDescribe (usbid.go) when the sysfs path yields
// nothing useful.
func describePort(name string) string {
	base := filepath.Base(name)
	sysPath := filepath.Join("/sys/class/tty", base, "device")

	// Plain concatenation, not filepath.Join: Join would clean "device/.."
	// away lexically instead of letting the kernel resolve the symlink.
	if product, err := os.ReadFile(sysPath + "/../product"); err == nil {
		if desc := strings.TrimSpace(string(product)); desc != "" {
			return desc
		}
	}
	if manufacturer, err := os.ReadFile(sysPath + "/../manufacturer"); err == nil {
		if desc := strings.TrimSpace(string(manufacturer)); desc != "" {
			return desc
		}
	}
	if desc := usbDescribe(); desc != "" {
		return desc
	}
	return ""
}
