package main

import (
	"strings"

	gopsutilcpu "github.com/shirou/gopsutil/v3/cpu"

	"github.com/dragoncraft87/scarab-host/internal/identity"
)

// gpuNameOverride and netKindOverride stand in for values no collaborator
// in the retrieval pack can supply: there is no vendor GPU binding
// (NVML/ROCm) and no reliable "is this link wireless" signal without a
// dedicated network collaborator. --gpu-name sets gpuNameOverride;
// netKindOverride has no flag and stays LAN.
var (
	gpuNameOverride = "Unknown GPU"
	netKindOverride = identity.NetLAN
)

// localIdentity builds this host's Identity from gopsutil's CPU info, the
// only hardware fact the OS-counter fallback path can read without a
// dedicated hardware-monitor collaborator (spec.md §1).
func localIdentity() identity.Identity {
	cpuName := "Unknown CPU"
	if infos, err := gopsutilcpu.Info(); err == nil && len(infos) > 0 {
		if name := strings.TrimSpace(infos[0].ModelName); name != "" {
			cpuName = name
		}
	}
	return identity.New(cpuName, gpuNameOverride, netKindOverride)
}
