// Package identity computes and holds the hardware identity that the link
// manager synchronizes with the embedded device.
package identity

import (
	"fmt"
	"hash/crc32"
)

// NetKind is the local network interface class reported alongside identity
// and telemetry.
type NetKind string

const (
	NetLAN  NetKind = "LAN"
	NetWLAN NetKind = "WLAN"
)

// RAMName is constant per spec.md §3: the host never distinguishes RAM
// modules by vendor, only the fixed label "RAM".
const RAMName = "RAM"

// Identity is immutable for the lifetime of the process.
type Identity struct {
	CPUName      string
	GPUName      string
	RAMName      string
	NetKind      NetKind
	IdentityHash string
}

// New computes the identity hash per spec.md §3: CRC32 (IEEE polynomial,
// reflected, init 0xFFFFFFFF, final XOR 0xFFFFFFFF) of
// "cpu_name|gpu_name|ram_name|net_kind", rendered as 8 uppercase hex digits.
func New(cpuName, gpuName string, netKind NetKind) Identity {
	return Identity{
		CPUName:      cpuName,
		GPUName:      gpuName,
		RAMName:      RAMName,
		NetKind:      netKind,
		IdentityHash: Hash(cpuName, gpuName, RAMName, string(netKind)),
	}
}

// Hash computes the 8-uppercase-hex-digit CRC32 identity hash of the
// pipe-joined hardware name fields. Exposed standalone so the link manager
// can compare it against a remote hash without constructing an Identity.
func Hash(cpuName, gpuName, ramName, netKind string) string {
	s := fmt.Sprintf("%s|%s|%s|%s", cpuName, gpuName, ramName, netKind)
	sum := crc32.ChecksumIEEE([]byte(s))
	return fmt.Sprintf("%08X", sum)
}

// LegacyHash is the hash reported by a device that predates identity sync:
// the handshake's |H: suffix is simply absent.
const LegacyHash = "00000000"
