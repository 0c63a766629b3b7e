package arena

import (
	"testing"
	"unsafe"
)

func TestAllocGrows(t *testing.T) {
	a := New(16)
	b1 := a.Alloc(8)
	b2 := a.Alloc(16) // exceeds remaining capacity of the first 16-byte block
	if len(b1) != 8 || len(b2) != 16 {
		t.Fatalf("unexpected lengths: %d %d", len(b1), len(b2))
	}
	if a.Used() != 24 {
		t.Fatalf("expected 24 bytes used, got %d", a.Used())
	}
}

func TestResetReclaims(t *testing.T) {
	a := New(16)
	a.Alloc(8)
	a.Alloc(32)
	a.Reset()
	if a.Used() != 0 {
		t.Fatalf("expected 0 bytes used after reset, got %d", a.Used())
	}
	b := a.Alloc(4)
	if len(b) != 4 {
		t.Fatalf("expected fresh alloc to succeed after reset")
	}
}

func TestAllocZeroed(t *testing.T) {
	a := New(16)
	b := a.Alloc(4)
	for i, v := range b {
		b[i] = 0xFF
		_ = v
	}
	a.Reset()
	b2 := a.Alloc(4)
	for _, v := range b2 {
		if v != 0 {
			t.Fatalf("expected zeroed allocation, got %x", v)
		}
	}
}

func TestAllocZeroSize(t *testing.T) {
	a := New(16)
	if got := a.Alloc(0); got != nil {
		t.Fatalf("expected nil for zero-size alloc, got %v", got)
	}
}

func TestAllocTReturnsRequestedLength(t *testing.T) {
	a := New(256)
	vals := AllocT[uint64](a, 5)
	if len(vals) != 5 {
		t.Fatalf("expected 5 elements, got %d", len(vals))
	}
	for i, v := range vals {
		if v != 0 {
			t.Fatalf("element %d not zeroed: %d", i, v)
		}
	}
}

func TestAllocTStaysAlignedAcrossMixedAllocs(t *testing.T) {
	a := New(256)
	a.Alloc(3) // misaligns the bump cursor for any multi-byte type
	vals := AllocT[uint64](a, 4)
	if len(vals) != 4 {
		t.Fatalf("expected 4 elements, got %d", len(vals))
	}
	addr := uintptr(unsafe.Pointer(&vals[0]))
	if addr%unsafe.Alignof(vals[0]) != 0 {
		t.Fatalf("AllocT returned a misaligned slice: addr=%x", addr)
	}
	vals[0] = 0xdeadbeef
	if vals[0] != 0xdeadbeef {
		t.Fatalf("unexpected value after write: %x", vals[0])
	}
}

func TestAllocTResetReclaims(t *testing.T) {
	a := New(256)
	AllocT[uint64](a, 10)
	a.Reset()
	if a.Used() != 0 {
		t.Fatalf("expected 0 bytes used after reset, got %d", a.Used())
	}
}
