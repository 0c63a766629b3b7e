package headless

import (
	"encoding/binary"
	"testing"
)

func TestEncodeBMPHeaderSize(t *testing.T) {
	out := encodeBMP(2, 2, make([]byte, 2*2*4))
	if len(out) != bmpHeaderSize+2*2*4 {
		t.Fatalf("expected header+pixels length, got %d", len(out))
	}
	if out[0] != 'B' || out[1] != 'M' {
		t.Fatalf("expected BM magic, got %q", out[:2])
	}
	if got := binary.LittleEndian.Uint32(out[10:]); got != bmpHeaderSize {
		t.Fatalf("expected pixel data offset %d, got %d", bmpHeaderSize, got)
	}
}

func TestEncodeBMPTopDownHeightIsNegative(t *testing.T) {
	out := encodeBMP(4, 3, make([]byte, 4*3*4))
	h := int32(binary.LittleEndian.Uint32(out[22:]))
	if h != -3 {
		t.Fatalf("expected height field -3 for top-down order, got %d", h)
	}
}

func TestEncodeBMPPreservesPixelBytes(t *testing.T) {
	px := []byte{1, 2, 3, 4, 5, 6, 7, 8}
	out := encodeBMP(2, 1, px)
	got := out[bmpHeaderSize:]
	for i, b := range px {
		if got[i] != b {
			t.Fatalf("pixel byte %d: got %d want %d", i, got[i], b)
		}
	}
}
