// Package sizer holds pure functions that adapt fragment size,
// concurrency, replication default, and I/O batch size to the payload
// size, so the pipeline stays tractable across five orders of magnitude
// of payload size.
package sizer

import "runtime"

const (
	kib = 1024
	mib = 1024 * kib
)

// FragmentSize returns S(N): the fragment size chosen for a payload of n
// bytes.
func FragmentSize(n int64) int {
	switch {
	case n <= 100*kib:
		return int(n) // single fragment; avoids split overhead
	case n <= 1*mib:
		return 50 * kib
	case n <= 10*mib:
		return 100 * kib
	default:
		return 200 * kib
	}
}

// Concurrency returns C(N): the concurrency cap for a payload of n bytes.
// cpu defaults to runtime.NumCPU when 0 is passed, letting tests pin a
// deterministic CPU count.
func Concurrency(n int64, cpu int) int {
	if cpu <= 0 {
		cpu = runtime.NumCPU()
	}
	base := min(50, cpu*2)

	switch {
	case n <= 100*kib:
		return max(5, base/4)
	case n <= 10*mib:
		return base
	default:
		return min(300, base*3)
	}
}

// DefaultReplication returns the replication factor policy: 3 for
// payloads over 10 MiB, otherwise 2. The core pipeline accepts the
// replication factor as an explicit parameter; this is the default a
// caller may apply instead of choosing one itself.
func DefaultReplication(n int64) int {
	if n > 10*mib {
		return 3
	}
	return 2
}

// BatchSize returns the I/O submission wave size for a given fragment
// count. Both Producer and Consumer compute it identically, so the
// logic lives here once instead of being duplicated in each.
func BatchSize(fragmentCount int) int {
	switch {
	case fragmentCount > 1000:
		return 50
	case fragmentCount > 500:
		return 25
	default:
		return 10
	}
}

// FragmentCount returns ceil(n / s) for a payload of n bytes given
// fragment size s, with a floor of one fragment even for an empty
// payload.
func FragmentCount(n int64, s int) int {
	if n == 0 {
		return 1
	}
	if s <= 0 {
		s = 1
	}
	f := n / int64(s)
	if n%int64(s) != 0 {
		f++
	}
	if f == 0 {
		f = 1
	}
	return int(f)
}
