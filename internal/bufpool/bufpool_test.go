package bufpool

import "testing"

func TestGet12ReturnsZeroedTwelveBytes(t *testing.T) {
	p := New()
	buf := p.Get12()
	if len(buf) != 12 {
		t.Fatalf("len = %d, want 12", len(buf))
	}
	for _, b := range buf {
		if b != 0 {
			t.Fatalf("expected zeroed buffer, got %v", buf)
		}
	}
	buf[0] = 0xAA
	p.Put12(buf)

	buf2 := p.Get12()
	for _, b := range buf2 {
		if b != 0 {
			t.Fatalf("expected buffer to be zeroed on return, got %v", buf2)
		}
	}
}

func TestGet32RoundTrip(t *testing.T) {
	p := New()
	buf := p.Get32()
	if len(buf) != 32 {
		t.Fatalf("len = %d, want 32", len(buf))
	}
	p.Put32(buf)
}

func TestGet64KSizedExactly(t *testing.T) {
	p := New()
	buf := p.Get64K(4096)
	if len(buf) != 4096 {
		t.Fatalf("len = %d, want 4096", len(buf))
	}
	p.Put64K(buf)
}

func TestGet64KOversizedFallsBackToFreshAllocation(t *testing.T) {
	p := New()
	buf := p.Get64K(200 * 1024)
	if len(buf) != 200*1024 {
		t.Fatalf("len = %d, want 204800", len(buf))
	}
}

func TestPutIgnoresMismatchedCapacity(t *testing.T) {
	p := New()
	p.Put12(make([]byte, 10))
	p.Put32(make([]byte, 16))
	p.Put64K(make([]byte, 1024))
}

func TestMetricsTrackHitsAndMisses(t *testing.T) {
	p := New()
	p.Get32()
	buf := p.Get32()
	p.Put32(buf)
	p.Get32()

	m := p.Metrics()
	if m.Hits32 == 0 && m.Misses32 == 0 {
		t.Fatalf("expected non-zero pool activity, got %+v", m)
	}
}
