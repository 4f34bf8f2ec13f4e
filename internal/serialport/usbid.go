package serialport

import (
	"github.com/google/gousb"
)

// usbDescribe is the supplemental enumerator feature from SPEC_FULL.md's
// DOMAIN STACK section: when sysfs yields no usable description for a
// candidate, fall back to scanning the connected USB device tree for a
// known vendor ID. It does not correlate the match back to a specific tty
// node - gousb exposes bus/device addresses, not the kernel tty binding -
// so this only ever fires as a last resort when nothing else identified
// the port, and only ever contributes a generic chip-family hint. This is
// strictly best-effort: gousb requires libusb, which is routinely absent
// in CI and containers, and that must never make Enumerate fail or return
// fewer candidates than the literal spec.md §4.1 algorithm would.
func usbDescribe() (desc string) {
	defer func() {
		if recover() != nil {
			desc = ""
		}
	}()

	ctx := gousb.NewContext()
	defer ctx.Close()

	var found string
	_, err := ctx.OpenDevices(func(d *gousb.DeviceDesc) bool {
		if found != "" {
			return false
		}
		if name, ok := knownChipNames[d.Vendor]; ok {
			found = name
		}
		return false
	})
	if err != nil {
		return ""
	}
	return found
}

// knownChipNames maps a handful of common USB-to-UART bridge vendor IDs to
// the chip family name spec.md §4.1's prefer-keyword list recognizes, so a
// bare VID/PID match still lands in the "prefer" bucket even when the OS
// reported no textual description at all.
var knownChipNames = map[gousb.ID]string{
	0x10C4: "Silicon Labs CP210x USB Serial",
	0x1A86: "CH340 USB Serial",
	0x0403: "FTDI USB Serial",
}
