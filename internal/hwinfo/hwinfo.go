// Package hwinfo detects AES hardware acceleration, ported from the
// gateway's internal/crypto/hardware.go. Pipeline throughput depends on
// AES-NI/ARMv8 crypto extensions being used by crypto/aes under the
// hood; this package only reports whether that is happening so
// cmd/fragvaultctl and cmd/server can log it once at startup instead of
// per fragment.
package hwinfo

import (
	"runtime"

	"golang.org/x/sys/cpu"
)

// HasAESHardwareSupport reports whether the current CPU exposes AES
// hardware acceleration that Go's crypto/aes will use automatically.
func HasAESHardwareSupport() bool {
	switch runtime.GOARCH {
	case "amd64", "386":
		return cpu.X86.HasAES
	case "arm64":
		return cpu.ARM64.HasAES
	case "s390x":
		return cpu.S390X.HasAES
	default:
		return false
	}
}

// Info summarizes the host's relevant crypto acceleration support, for a
// one-time startup log line.
type Info struct {
	AESHardwareSupport bool
	Architecture       string
	GoVersion          string
	NumCPU             int
}

// Describe returns an Info snapshot of the current process's host.
func Describe() Info {
	return Info{
		AESHardwareSupport: HasAESHardwareSupport(),
		Architecture:       runtime.GOARCH,
		GoVersion:          runtime.Version(),
		NumCPU:             runtime.NumCPU(),
	}
}
