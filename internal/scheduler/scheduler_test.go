package scheduler

import (
	"math"
	"testing"

	"github.com/johnpgr/vkengine/internal/recorder"
)

func TestQuadCommandByteLayout(t *testing.T) {
	buf := make([]byte, 32)
	q := recorder.QuadCommand{Rect: [4]float32{1, 2, 3, 4}, Color: [4]float32{0.1, 0.2, 0.3, 1}}
	for i, f := range q.Rect {
		putF32(buf[i*4:], f)
	}
	for i, f := range q.Color {
		putF32(buf[16+i*4:], f)
	}
	for i, want := range append(append([]float32{}, q.Rect[:]...), q.Color[:]...) {
		off := i * 4
		got := math.Float32frombits(uint32(buf[off]) | uint32(buf[off+1])<<8 | uint32(buf[off+2])<<16 | uint32(buf[off+3])<<24)
		if got != want {
			t.Fatalf("index %d: got %f want %f", i, got, want)
		}
	}
}

func TestMaxQuadsClamp(t *testing.T) {
	n := MaxQuads + 100
	if n > MaxQuads {
		n = MaxQuads
	}
	if n != MaxQuads {
		t.Fatalf("expected clamp to %d, got %d", MaxQuads, n)
	}
}
