package deque

import "testing"

func TestFIFOOrder(t *testing.T) {
	var d Deque[int]

	for i := 0; i < 100; i++ {
		d.PushBack(i)
	}
	if d.Len() != 100 {
		t.Fatalf("len: got %d, want 100", d.Len())
	}
	for i := 0; i < 100; i++ {
		if v := d.PopFront(); v != i {
			t.Fatalf("popfront: got %d, want %d", v, i)
		}
	}
	if d.Len() != 0 {
		t.Fatalf("len after drain: got %d, want 0", d.Len())
	}
}

func TestInterleavedGrowth(t *testing.T) {
	var d Deque[int]
	next := 0
	expect := 0

	// Interleave pushes and pops so the ring wraps repeatedly
	for round := 0; round < 50; round++ {
		for i := 0; i < 7; i++ {
			d.PushBack(next)
			next++
		}
		for i := 0; i < 5; i++ {
			if v := d.PopFront(); v != expect {
				t.Fatalf("popfront: got %d, want %d", v, expect)
			}
			expect++
		}
	}
	for d.Len() > 0 {
		if v := d.PopFront(); v != expect {
			t.Fatalf("drain: got %d, want %d", v, expect)
		}
		expect++
	}
	if expect != next {
		t.Fatalf("conservation: popped %d values, pushed %d", expect, next)
	}
}

func TestClearRetainsCapacity(t *testing.T) {
	var d Deque[int]
	for i := 0; i < 33; i++ {
		d.PushBack(i)
	}
	capBefore := len(d.buf)
	d.Clear()
	if d.Len() != 0 {
		t.Fatalf("len after clear: got %d, want 0", d.Len())
	}
	if len(d.buf) != capBefore {
		t.Fatalf("capacity after clear: got %d, want %d", len(d.buf), capBefore)
	}
	d.PushBack(7)
	if v := d.PopFront(); v != 7 {
		t.Fatalf("popfront after clear: got %d, want 7", v)
	}
}

func TestEmptyPopPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("popfront: expected panic on empty deque")
		}
	}()
	var d Deque[int]
	d.PopFront()
}
