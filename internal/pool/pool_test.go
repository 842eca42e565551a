package pool

import "testing"

func TestAcquireReleaseInvariant(t *testing.T) {
	const cap = 4
	p := New(cap)

	var got []int
	for i := 0; i < cap; i++ {
		idx, ok := p.Acquire()
		if !ok {
			t.Fatalf("acquire %d: expected ok", i)
		}
		got = append(got, idx)
	}

	if _, ok := p.Acquire(); ok {
		t.Fatal("acquire beyond capacity should fail")
	}
	if p.InUse() != cap {
		t.Fatalf("InUse() = %d, want %d", p.InUse(), cap)
	}

	p.Release(got[0])
	if p.InUse() != cap-1 {
		t.Fatalf("InUse() after release = %d, want %d", p.InUse(), cap-1)
	}

	idx, ok := p.Acquire()
	if !ok || idx != got[0] {
		t.Fatalf("expected released slot %d to be reused, got %d ok=%v", got[0], idx, ok)
	}
}

func TestReleaseIsIdempotent(t *testing.T) {
	p := New(2)
	idx, _ := p.Acquire()
	p.Release(idx)
	p.Release(idx) // must not corrupt the free-list by double-linking idx
	a, _ := p.Acquire()
	b, ok := p.Acquire()
	if !ok {
		t.Fatal("expected a second slot to remain acquirable")
	}
	if a == b {
		t.Fatalf("double release corrupted free-list: acquired same slot twice (%d)", a)
	}
}

func TestNoAllocationAboveCapacity(t *testing.T) {
	p := New(1)
	if p.Capacity() != 1 {
		t.Fatalf("Capacity() = %d, want 1", p.Capacity())
	}
	idx, ok := p.Acquire()
	if !ok || idx != 0 {
		t.Fatalf("first acquire: idx=%d ok=%v", idx, ok)
	}
	if _, ok := p.Acquire(); ok {
		t.Fatal("second acquire on capacity-1 pool should fail")
	}
}
