package sizer

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFragmentSizeBoundaries(t *testing.T) {
	require.Equal(t, 1, FragmentSize(1))
	require.Equal(t, 100*kib, FragmentSize(100*kib))
	require.Equal(t, 50*kib, FragmentSize(100*kib+1))
	require.Equal(t, 50*kib, FragmentSize(1*mib))
	require.Equal(t, 100*kib, FragmentSize(1*mib+1))
	require.Equal(t, 100*kib, FragmentSize(10*mib))
	require.Equal(t, 200*kib, FragmentSize(10*mib+1))
}

func TestConcurrencyBounds(t *testing.T) {
	require.Equal(t, 5, Concurrency(1*kib, 1))     // max(5, base/4) floors at 5
	require.Equal(t, 16, Concurrency(1*mib, 8))    // base = min(50, 16) = 16
	require.Equal(t, 150, Concurrency(20*mib, 50)) // base=min(50,100)=50, min(300,base*3)=150
}

func TestConcurrencyLargePayloadCap(t *testing.T) {
	// base = min(50, cpu*2); for cpu=100 base=50, large payload => min(300, 150)=150
	require.Equal(t, 150, Concurrency(20*mib, 100))
}

func TestDefaultReplication(t *testing.T) {
	require.Equal(t, 2, DefaultReplication(1*mib))
	require.Equal(t, 2, DefaultReplication(10*mib))
	require.Equal(t, 3, DefaultReplication(10*mib+1))
}

func TestBatchSize(t *testing.T) {
	require.Equal(t, 10, BatchSize(500))
	require.Equal(t, 25, BatchSize(501))
	require.Equal(t, 25, BatchSize(1000))
	require.Equal(t, 50, BatchSize(1001))
}

// TestFragmentCountMatchesSizer checks that payloads at or under 100KiB
// always fit in a single fragment, and larger payloads split into
// ceil(n / FragmentSize(n)) fragments.
func TestFragmentCountMatchesSizer(t *testing.T) {
	require.Equal(t, 1, FragmentCount(100*kib, FragmentSize(100*kib)))

	n := int64(1 * mib)
	s := FragmentSize(n)
	require.Equal(t, 50*kib, s)
	require.Equal(t, 21, FragmentCount(n, s)) // 1MiB / 50KiB = 20.48 -> 21

	require.Equal(t, 1, FragmentCount(0, 1))
}
