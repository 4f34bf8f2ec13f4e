package telemetry

import (
	"sort"
	"strings"
	"sync"
	"time"

	gopsutilcpu "github.com/shirou/gopsutil/v3/cpu"
	gopsutilmem "github.com/shirou/gopsutil/v3/mem"
	gopsutilnet "github.com/shirou/gopsutil/v3/net"

	"github.com/dragoncraft87/scarab-host/internal/identity"
)

// CPULoadSource tags which collaborator produced the CPU load reading,
// per spec.md §9's "sensor polymorphism" redesign note.
type CPULoadSource int

const (
	CPULoadNative CPULoadSource = iota
	CPULoadOsCounter
)

// GPUSource tags which collaborator produced GPU metrics.
type GPUSource int

const (
	GPUSourceVendor GPUSource = iota
	GPUSourceGeneric
	GPUSourceNone
)

// RAMSource tags which collaborator produced RAM metrics.
type RAMSource int

const (
	RAMSourceHardware RAMSource = iota
	RAMSourceOs
)

// TempSensor is one named temperature reading from a hardware-monitor
// collaborator's sensor tree.
type TempSensor struct {
	Name   string
	ValueC float64
}

// HardwareMonitor is the narrow interface the sampler expects from a
// collaborator such as LibreHardwareMonitor: a small set of named sensor
// reads rather than the visitor/dynamic-dispatch tree the original source
// used. It is an external collaborator (spec.md §1); scarab-host never
// implements it, only consumes it.
type HardwareMonitor interface {
	CPUTotalLoadPercent() (float64, bool)
	CPUTempSensors() []TempSensor
	MotherboardTempSensors() []TempSensor

	GenericGPULoadPercent() (float64, bool)
	GenericGPUTempSensors() []TempSensor
	GenericGPUMemoryUsedMiB() (float64, bool)
	GenericGPUMemoryTotalMiB() (float64, bool)

	MemoryUsedGB() (float64, bool)
	MemoryAvailableGB() (float64, bool)
}

// VendorGPUMonitor is the narrow interface for a vendor-specific GPU info
// collaborator (e.g. NVML). Preferred over HardwareMonitor's generic GPU
// node when present.
type VendorGPUMonitor interface {
	LoadPercent() (float64, bool)
	TempC() (float64, bool)
	VRAMUsedKiB() (float64, bool)
	VRAMTotalKiB() (float64, bool)
}

// cpuPriorityKeywords is the ordered keyword list from spec.md §4.3 used to
// pick a single CPU temperature out of a sensor tree.
var cpuPriorityKeywords = []string{"Package", "Core Max", "Core Average", "Tctl"}

var motherboardCPUKeywords = []string{"CPU", "Socket"}

// Sampler produces one Snapshot per call to Sample, consulting whichever
// collaborators it was constructed with and falling back to OS counters via
// gopsutil when a dedicated collaborator is absent or returns nothing.
type Sampler struct {
	hw        HardwareMonitor
	vendorGPU VendorGPUMonitor

	// Degraded-mode sources, overridable in tests.
	osCPUPercent func() (float64, bool)
	osMemory     func() (usedGB, totalGB float64, ok bool)
	netSamples   func() ([]netIfaceSample, error)

	// prevNet/prevNetAt hold the previous tick's chosen-interface counters,
	// so throughput is derived from the real elapsed wall time between two
	// Sample calls instead of a sleep inside Sample itself. Guarded by
	// netMu since Sample is called concurrently from the framer, the TUI
	// and the debug HTTP server.
	netMu     sync.Mutex
	prevNet   *netIfaceSample
	prevNetAt time.Time
}

// NewSampler builds a Sampler. hw and vendorGPU may be nil, meaning no
// dedicated collaborator of that kind is available; the sampler then relies
// entirely on OS-counter fallbacks for the metrics that collaborator would
// have covered.
func NewSampler(hw HardwareMonitor, vendorGPU VendorGPUMonitor) *Sampler {
	return &Sampler{
		hw:           hw,
		vendorGPU:    vendorGPU,
		osCPUPercent: osCPUPercentGopsutil,
		osMemory:     osMemoryGopsutil,
		netSamples:   realNetSamples,
	}
}

// Sample reads once from each collaborator and returns a new Snapshot.
// It never panics and never fabricates a value: unreadable metrics surface
// as the Unavailable sentinel.
func (s *Sampler) Sample() Snapshot {
	snap := Snapshot{
		CPUTemp: Unavailable,
		GPUTemp: Unavailable,
	}

	snap.CPULoad, _ = s.sampleCPULoad()
	snap.CPUTemp = s.sampleCPUTemp()

	gpuLoad, gpuTemp, vramUsed, vramTotal := s.sampleGPU()
	snap.GPULoad = gpuLoad
	snap.GPUTemp = gpuTemp
	snap.GPUVRAMUsedGB = vramUsed
	snap.GPUVRAMTotalGB = vramTotal

	snap.RAMUsedGB, snap.RAMTotalGB = s.sampleRAM()

	down, up, kind, link := s.sampleNetwork()
	snap.NetDownMbps = down
	snap.NetUpMbps = up
	snap.NetKind = kind
	snap.NetLinkMbps = link

	return snap
}

func (s *Sampler) sampleCPULoad() (float64, CPULoadSource) {
	if s.hw != nil {
		if v, ok := s.hw.CPUTotalLoadPercent(); ok {
			return v, CPULoadNative
		}
	}
	if s.osCPUPercent != nil {
		if v, ok := s.osCPUPercent(); ok {
			return v, CPULoadOsCounter
		}
	}
	return Unavailable, CPULoadOsCounter
}

func (s *Sampler) sampleCPUTemp() float64 {
	if s.hw == nil {
		return Unavailable
	}
	if v, ok := pickByKeywordPriority(s.hw.CPUTempSensors(), cpuPriorityKeywords); ok {
		return v
	}
	if v, ok := pickByKeywordPriority(s.hw.MotherboardTempSensors(), motherboardCPUKeywords); ok {
		return v
	}
	return Unavailable
}

// pickByKeywordPriority scans sensors for the first keyword (in priority
// order) that appears in any sensor's name, case-sensitively per spec.md's
// literal keyword list, and returns that sensor's value.
func pickByKeywordPriority(sensors []TempSensor, keywords []string) (float64, bool) {
	for _, kw := range keywords {
		for _, sensor := range sensors {
			if strings.Contains(sensor.Name, kw) && sensor.ValueC > 0 {
				return sensor.ValueC, true
			}
		}
	}
	return 0, false
}

func (s *Sampler) sampleGPU() (load, temp, vramUsedGB, vramTotalGB float64) {
	load = Unavailable
	temp = Unavailable
	vramUsedGB = Unavailable
	vramTotalGB = Unavailable
	if s.vendorGPU != nil {
		l, lok := s.vendorGPU.LoadPercent()
		t, tok := s.vendorGPU.TempC()
		vu, vuok := s.vendorGPU.VRAMUsedKiB()
		vt, vtok := s.vendorGPU.VRAMTotalKiB()
		if lok || tok || vuok || vtok {
			if lok {
				load = l
			}
			if tok {
				temp = t
			}
			if vuok {
				vramUsedGB = vu / (1024 * 1024)
			}
			if vtok {
				vramTotalGB = vt / (1024 * 1024)
			}
			return
		}
	}
	if s.hw != nil {
		if l, ok := s.hw.GenericGPULoadPercent(); ok {
			load = l
		}
		if v, ok := pickByKeywordPriority(s.hw.GenericGPUTempSensors(), []string{"GPU Core"}); ok {
			temp = v
		}
		if used, ok := s.hw.GenericGPUMemoryUsedMiB(); ok {
			vramUsedGB = used / 1024
		}
		if total, ok := s.hw.GenericGPUMemoryTotalMiB(); ok {
			vramTotalGB = total / 1024
		}
	}
	return
}

func (s *Sampler) sampleRAM() (usedGB, totalGB float64) {
	if s.hw != nil {
		used, usedOK := s.hw.MemoryUsedGB()
		avail, availOK := s.hw.MemoryAvailableGB()
		if usedOK && availOK {
			return used, used + avail
		}
	}
	if s.osMemory != nil {
		if used, total, ok := s.osMemory(); ok {
			return used, total
		}
	}
	return Unavailable, Unavailable
}

type netIfaceSample struct {
	Name         string
	IsWireless   bool
	LinkSpeedMbs int
	BytesRecv    uint64
	BytesSent    uint64
}

// sampleNetwork picks the best non-loopback interface that has an address,
// preferring Ethernet over wireless, and derives MiB/s throughput by
// diffing this tick's byte counters against the previous tick's, over the
// real elapsed wall time between the two - never blocking Sample itself to
// manufacture a fixed interval.
func (s *Sampler) sampleNetwork() (downMbps, upMbps float64, kind identity.NetKind, linkMbps int) {
	kind = identity.NetLAN
	if s.netSamples == nil {
		downMbps, upMbps = Unavailable, Unavailable
		return
	}
	samples, err := s.netSamples()
	if err != nil || len(samples) == 0 {
		downMbps, upMbps = Unavailable, Unavailable
		return
	}
	chosen := chooseInterface(samples)
	if chosen == nil {
		downMbps, upMbps = Unavailable, Unavailable
		return
	}
	if chosen.IsWireless {
		kind = identity.NetWLAN
	}
	linkMbps = chosen.LinkSpeedMbs / 1000000
	if linkMbps == 0 && chosen.LinkSpeedMbs > 0 {
		linkMbps = chosen.LinkSpeedMbs
	}

	now := time.Now()
	s.netMu.Lock()
	prev, prevAt := s.prevNet, s.prevNetAt
	s.prevNet, s.prevNetAt = chosen, now
	s.netMu.Unlock()

	if prev == nil || prev.Name != chosen.Name {
		downMbps, upMbps = Unavailable, Unavailable
		return
	}
	elapsed := now.Sub(prevAt).Seconds()
	if elapsed <= 0 {
		downMbps, upMbps = Unavailable, Unavailable
		return
	}
	downMbps = bytesPerSecToMiB(chosen.BytesRecv, prev.BytesRecv, elapsed)
	upMbps = bytesPerSecToMiB(chosen.BytesSent, prev.BytesSent, elapsed)
	return
}

func bytesPerSecToMiB(after, before uint64, elapsedSeconds float64) float64 {
	if after < before {
		return 0
	}
	return float64(after-before) / (1024 * 1024) / elapsedSeconds
}

// chooseInterface prefers a non-loopback, non-wireless interface; falls
// back to the first wireless one. Deterministic ordering by name so the
// choice is stable across calls with the same interface set.
func chooseInterface(ifaces []netIfaceSample) *netIfaceSample {
	sorted := make([]netIfaceSample, len(ifaces))
	copy(sorted, ifaces)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Name < sorted[j].Name })

	for i := range sorted {
		if !sorted[i].IsWireless {
			return &sorted[i]
		}
	}
	if len(sorted) > 0 {
		return &sorted[0]
	}
	return nil
}

func osCPUPercentGopsutil() (float64, bool) {
	percents, err := gopsutilcpu.Percent(0, false)
	if err != nil || len(percents) == 0 {
		return 0, false
	}
	return percents[0], true
}

func osMemoryGopsutil() (usedGB, totalGB float64, ok bool) {
	info, err := gopsutilmem.VirtualMemory()
	if err != nil {
		return 0, 0, false
	}
	const gib = 1024 * 1024 * 1024
	return float64(info.Used) / gib, float64(info.Total) / gib, true
}

func realNetSamples() ([]netIfaceSample, error) {
	counters, err := gopsutilnet.IOCounters(true)
	if err != nil {
		return nil, err
	}
	ifaces, err := gopsutilnet.Interfaces()
	if err != nil {
		return nil, err
	}
	byName := make(map[string]gopsutilnet.InterfaceStat, len(ifaces))
	for _, iface := range ifaces {
		byName[iface.Name] = iface
	}

	var out []netIfaceSample
	for _, c := range counters {
		if strings.Contains(strings.ToLower(c.Name), "lo") && c.BytesRecv == 0 && c.BytesSent == 0 {
			continue
		}
		iface, known := byName[c.Name]
		if known {
			isLoopback := false
			for _, f := range iface.Flags {
				if f == "loopback" {
					isLoopback = true
				}
			}
			if isLoopback || len(iface.Addrs) == 0 {
				continue
			}
		}
		out = append(out, netIfaceSample{
			Name:       c.Name,
			IsWireless: isWirelessName(c.Name),
			BytesRecv:  c.BytesRecv,
			BytesSent:  c.BytesSent,
		})
	}
	return out, nil
}

func isWirelessName(name string) bool {
	lower := strings.ToLower(name)
	for _, prefix := range []string{"wl", "wlan", "wifi", "ath", "ra"} {
		if strings.HasPrefix(lower, prefix) {
			return true
		}
	}
	return false
}
