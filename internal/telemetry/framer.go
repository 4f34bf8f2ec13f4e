package telemetry

import (
	"fmt"
	"strings"
	"time"
)

// SampleInterval is the fixed telemetry cadence from spec.md §4.4.
const SampleInterval = 1000 * time.Millisecond

// pauseCheckInterval bounds how long the framer sleeps between re-checking
// the pause signal, matching spec.md §5's <=100ms cancellation latency.
const pauseCheckInterval = 100 * time.Millisecond

// Writer is the link's write path: one atomic write of a complete line.
// Framer never calls Write with a partial line and never buffers across
// calls.
type Writer interface {
	// WriteLine writes line (already newline-terminated) as a single
	// atomic frame and flushes it before returning.
	WriteLine(line string) error
}

// Gate reports whether the framer may transmit right now. The coordinator
// (C7) implements this: while an upload holds exclusive link access, Gate
// returns false and the framer must not write.
type Gate interface {
	// Paused reports whether telemetry transmission is currently
	// suppressed (upload in progress or link not yet streaming).
	Paused() bool
}

// Framer formats Snapshots to the canonical wire line and paces their
// transmission at SampleInterval, cooperatively yielding to the Gate.
type Framer struct {
	sampler *Sampler
	writer  Writer
	gate    Gate
}

func NewFramer(sampler *Sampler, writer Writer, gate Gate) *Framer {
	return &Framer{sampler: sampler, writer: writer, gate: gate}
}

// Run drives the sample-format-send-wait loop until ctx-like cancel fires
// or a write fails. It returns nil on cooperative cancellation and a
// non-nil error if the write path failed (the caller, C2, ends the
// session on a write failure rather than letting the framer queue).
func (f *Framer) Run(cancel <-chan struct{}) error {
	for {
		select {
		case <-cancel:
			return nil
		default:
		}

		for f.gate.Paused() {
			select {
			case <-cancel:
				return nil
			case <-time.After(pauseCheckInterval):
			}
		}

		snap := f.sampler.Sample()
		line := FormatLine(snap)
		if err := f.writer.WriteLine(line); err != nil {
			return err
		}

		select {
		case <-cancel:
			return nil
		case <-time.After(SampleInterval):
		}
	}
}

// FormatLine renders a Snapshot to the exact wire format of spec.md §4.4:
//
//	CPU:<int>,CPUT:<f1>,GPU:<int>,GPUT:<f1>,VRAM:<f1>/<f1>,RAM:<f1>/<f1>,
//	NET:<LAN|WLAN>,SPEED:<int> Mbps,DOWN:<f1>,UP:<f1>\n
//
// Negative sentinels round-trip unchanged: spec.md leaves negative-load
// formatting device-defined, so they render as plain signed decimal/fixed
// point text exactly like any other value (Open Question 1, DESIGN.md).
func FormatLine(s Snapshot) string {
	var b strings.Builder
	fmt.Fprintf(&b, "CPU:%d,", int(s.CPULoad))
	fmt.Fprintf(&b, "CPUT:%s,", formatF1(s.CPUTemp))
	fmt.Fprintf(&b, "GPU:%d,", int(s.GPULoad))
	fmt.Fprintf(&b, "GPUT:%s,", formatF1(s.GPUTemp))
	fmt.Fprintf(&b, "VRAM:%s/%s,", formatF1(s.GPUVRAMUsedGB), formatF1(s.GPUVRAMTotalGB))
	fmt.Fprintf(&b, "RAM:%s/%s,", formatF1(s.RAMUsedGB), formatF1(s.RAMTotalGB))
	fmt.Fprintf(&b, "NET:%s,", s.NetKind)
	fmt.Fprintf(&b, "SPEED:%d Mbps,", s.NetLinkMbps)
	fmt.Fprintf(&b, "DOWN:%s,", formatF1(s.NetDownMbps))
	fmt.Fprintf(&b, "UP:%s\n", formatF1(s.NetUpMbps))
	return b.String()
}

// formatF1 renders a value with exactly one fractional digit and a dot
// separator, locale-invariant.
func formatF1(v float64) string {
	return fmt.Sprintf("%.1f", v)
}
