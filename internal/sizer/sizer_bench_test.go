package sizer

import "testing"

func BenchmarkFragmentSize(b *testing.B) {
	sizes := []int64{1024, 500 * kib, 5 * mib, 50 * mib}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		for _, n := range sizes {
			FragmentSize(n)
		}
	}
}

func BenchmarkFragmentCount(b *testing.B) {
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		FragmentCount(50*mib, 200*kib)
	}
}

func BenchmarkConcurrency(b *testing.B) {
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		Concurrency(5*mib, 8)
	}
}
