// Package telemetry samples and frames the host's CPU/GPU/RAM/network
// telemetry, per spec.md §3-§4.
package telemetry

import "github.com/dragoncraft87/scarab-host/internal/identity"

// Unavailable is the negative sentinel used throughout a Snapshot for a
// metric that could not be read. Formatters must round-trip it unchanged.
const Unavailable = -1

// Snapshot is an immutable telemetry sample. It lives exactly one sampling
// tick: the sampler produces it, the framer consumes it, neither mutates it.
type Snapshot struct {
	CPULoad float64 // percent, 0..100
	CPUTemp float64 // °C, Unavailable if unreadable

	GPULoad        float64
	GPUTemp        float64
	GPUVRAMUsedGB  float64
	GPUVRAMTotalGB float64

	RAMUsedGB  float64
	RAMTotalGB float64

	NetDownMbps float64
	NetUpMbps   float64
	NetKind     identity.NetKind
	NetLinkMbps int
}
