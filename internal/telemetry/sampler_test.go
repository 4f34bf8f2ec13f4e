package telemetry

import (
	"testing"
	"time"

	"github.com/dragoncraft87/scarab-host/internal/identity"
)

type fakeHardwareMonitor struct {
	cpuLoad      float64
	cpuLoadOK    bool
	cpuTemps     []TempSensor
	boardTemps   []TempSensor
	gpuLoad      float64
	gpuLoadOK    bool
	gpuTemps     []TempSensor
	gpuMemUsed   float64
	gpuMemUsedOK bool
	gpuMemTotal  float64
	gpuMemTotOK  bool
	ramUsed      float64
	ramUsedOK    bool
	ramAvail     float64
	ramAvailOK   bool
}

func (f *fakeHardwareMonitor) CPUTotalLoadPercent() (float64, bool)  { return f.cpuLoad, f.cpuLoadOK }
func (f *fakeHardwareMonitor) CPUTempSensors() []TempSensor          { return f.cpuTemps }
func (f *fakeHardwareMonitor) MotherboardTempSensors() []TempSensor  { return f.boardTemps }
func (f *fakeHardwareMonitor) GenericGPULoadPercent() (float64, bool) {
	return f.gpuLoad, f.gpuLoadOK
}
func (f *fakeHardwareMonitor) GenericGPUTempSensors() []TempSensor { return f.gpuTemps }
func (f *fakeHardwareMonitor) GenericGPUMemoryUsedMiB() (float64, bool) {
	return f.gpuMemUsed, f.gpuMemUsedOK
}
func (f *fakeHardwareMonitor) GenericGPUMemoryTotalMiB() (float64, bool) {
	return f.gpuMemTotal, f.gpuMemTotOK
}
func (f *fakeHardwareMonitor) MemoryUsedGB() (float64, bool)      { return f.ramUsed, f.ramUsedOK }
func (f *fakeHardwareMonitor) MemoryAvailableGB() (float64, bool) { return f.ramAvail, f.ramAvailOK }

func TestPickByKeywordPriority_RespectsOrder(t *testing.T) {
	sensors := []TempSensor{
		{Name: "Core Average", ValueC: 40},
		{Name: "CPU Package", ValueC: 55},
	}
	v, ok := pickByKeywordPriority(sensors, cpuPriorityKeywords)
	if !ok || v != 55 {
		t.Fatalf("expected Package (55) to win over Core Average (40), got %v ok=%v", v, ok)
	}
}

func TestPickByKeywordPriority_SkipsNonPositive(t *testing.T) {
	sensors := []TempSensor{
		{Name: "CPU Package", ValueC: 0},
		{Name: "Core Max", ValueC: 48},
	}
	v, ok := pickByKeywordPriority(sensors, cpuPriorityKeywords)
	if !ok || v != 48 {
		t.Fatalf("expected fallback to Core Max (48), got %v ok=%v", v, ok)
	}
}

func TestPickByKeywordPriority_NoMatch(t *testing.T) {
	_, ok := pickByKeywordPriority([]TempSensor{{Name: "Fan1", ValueC: 10}}, cpuPriorityKeywords)
	if ok {
		t.Fatalf("expected no match")
	}
}

func TestSampleCPUTemp_FallsBackToMotherboard(t *testing.T) {
	hw := &fakeHardwareMonitor{
		boardTemps: []TempSensor{{Name: "CPU Socket", ValueC: 45}},
	}
	s := NewSampler(hw, nil)
	if got := s.sampleCPUTemp(); got != 45 {
		t.Fatalf("expected motherboard fallback 45, got %v", got)
	}
}

func TestSampleCPUTemp_UnavailableSentinel(t *testing.T) {
	s := NewSampler(nil, nil)
	if got := s.sampleCPUTemp(); got != Unavailable {
		t.Fatalf("expected Unavailable with no collaborator, got %v", got)
	}
}

func TestChooseInterface_PrefersEthernetOverWireless(t *testing.T) {
	ifaces := []netIfaceSample{
		{Name: "wlan0", IsWireless: true},
		{Name: "eth0", IsWireless: false},
	}
	chosen := chooseInterface(ifaces)
	if chosen == nil || chosen.Name != "eth0" {
		t.Fatalf("expected eth0 to be chosen, got %+v", chosen)
	}
}

func TestChooseInterface_FallsBackToWireless(t *testing.T) {
	ifaces := []netIfaceSample{{Name: "wlan0", IsWireless: true}}
	chosen := chooseInterface(ifaces)
	if chosen == nil || chosen.Name != "wlan0" {
		t.Fatalf("expected wlan0 fallback, got %+v", chosen)
	}
}

func TestSampleCPULoad_DegradesToOsCounter(t *testing.T) {
	s := NewSampler(nil, nil)
	s.osCPUPercent = func() (float64, bool) { return 73.2, true }
	v, src := s.sampleCPULoad()
	if v != 73.2 || src != CPULoadOsCounter {
		t.Fatalf("expected OS counter fallback 73.2, got %v src=%v", v, src)
	}
}

func TestSampleCPULoad_PrefersNative(t *testing.T) {
	hw := &fakeHardwareMonitor{cpuLoad: 12, cpuLoadOK: true}
	s := NewSampler(hw, nil)
	s.osCPUPercent = func() (float64, bool) { return 99, true }
	v, src := s.sampleCPULoad()
	if v != 12 || src != CPULoadNative {
		t.Fatalf("expected native reading to win, got %v src=%v", v, src)
	}
}

func TestSampleGPU_UnavailableSentinelsWithNoCollaborator(t *testing.T) {
	s := NewSampler(nil, nil)
	load, temp, vramUsed, vramTotal := s.sampleGPU()
	if load != Unavailable || temp != Unavailable || vramUsed != Unavailable || vramTotal != Unavailable {
		t.Fatalf("expected all-Unavailable GPU reading with no collaborator, got load=%v temp=%v vramUsed=%v vramTotal=%v",
			load, temp, vramUsed, vramTotal)
	}
}

func TestSampleGPU_PartialVendorReadingLeavesRestUnavailable(t *testing.T) {
	s := NewSampler(nil, &fakeVendorGPU{load: 42, loadOK: true})
	load, temp, vramUsed, vramTotal := s.sampleGPU()
	if load != 42 {
		t.Fatalf("expected load 42, got %v", load)
	}
	if temp != Unavailable || vramUsed != Unavailable || vramTotal != Unavailable {
		t.Fatalf("expected unread vendor fields to stay Unavailable, got temp=%v vramUsed=%v vramTotal=%v",
			temp, vramUsed, vramTotal)
	}
}

type fakeVendorGPU struct {
	load      float64
	loadOK    bool
	temp      float64
	tempOK    bool
	vramUsed  float64
	vramOK    bool
	vramTotal float64
	totOK     bool
}

func (f *fakeVendorGPU) LoadPercent() (float64, bool)  { return f.load, f.loadOK }
func (f *fakeVendorGPU) TempC() (float64, bool)        { return f.temp, f.tempOK }
func (f *fakeVendorGPU) VRAMUsedKiB() (float64, bool)  { return f.vramUsed, f.vramOK }
func (f *fakeVendorGPU) VRAMTotalKiB() (float64, bool) { return f.vramTotal, f.totOK }

func TestSampleNetwork_FirstTickIsUnavailable(t *testing.T) {
	s := NewSampler(nil, nil)
	s.netSamples = func() ([]netIfaceSample, error) {
		return []netIfaceSample{{Name: "eth0", BytesRecv: 1000, BytesSent: 500}}, nil
	}
	down, up, _, _ := s.sampleNetwork()
	if down != Unavailable || up != Unavailable {
		t.Fatalf("expected Unavailable on the first tick (no prior counters), got down=%v up=%v", down, up)
	}
}

func TestBytesPerSecToMiB_DividesByElapsedSeconds(t *testing.T) {
	// 1 MiB over 2 seconds is 0.5 MiB/s, not 1 MiB/s - the fixed-1s-sleep
	// version this replaces would have silently assumed elapsed == 1.
	got := bytesPerSecToMiB(1024*1024, 0, 2.0)
	if got != 0.5 {
		t.Fatalf("expected 0.5 MiB/s over 2s, got %v", got)
	}
}

func TestSampleNetwork_SecondTickDiffsAgainstFirst(t *testing.T) {
	s := NewSampler(nil, nil)
	recv, sent := uint64(1000), uint64(500)
	s.netSamples = func() ([]netIfaceSample, error) {
		return []netIfaceSample{{Name: "eth0", BytesRecv: recv, BytesSent: sent}}, nil
	}

	s.sampleNetwork() // primes prevNet without sleeping

	recv += 1024 * 1024
	sent += 512 * 1024
	s.prevNetAt = s.prevNetAt.Add(-1 * time.Second) // simulate a 1s-old baseline without Sample blocking for it

	down, up, _, _ := s.sampleNetwork()
	if down <= 0 || down > 1.1 {
		t.Fatalf("expected roughly 1 MiB/s down, got %v", down)
	}
	if up <= 0 || up > 0.6 {
		t.Fatalf("expected roughly 0.5 MiB/s up, got %v", up)
	}
}

func TestSampleNetwork_InterfaceChangeResetsBaseline(t *testing.T) {
	s := NewSampler(nil, nil)
	s.netSamples = func() ([]netIfaceSample, error) {
		return []netIfaceSample{{Name: "eth0", BytesRecv: 1000, BytesSent: 1000}}, nil
	}
	s.sampleNetwork()

	s.netSamples = func() ([]netIfaceSample, error) {
		return []netIfaceSample{{Name: "wlan0", IsWireless: true, BytesRecv: 2000, BytesSent: 2000}}, nil
	}
	down, up, kind, _ := s.sampleNetwork()
	if down != Unavailable || up != Unavailable {
		t.Fatalf("expected Unavailable when the chosen interface changes, got down=%v up=%v", down, up)
	}
	if kind != identity.NetWLAN {
		t.Fatalf("expected WLAN kind for the new interface, got %v", kind)
	}
}
