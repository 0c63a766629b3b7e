package recorder

import (
	"math"
	"testing"

	lin "github.com/xlab/linmath"

	"github.com/johnpgr/vkengine/internal/pipeline"
)

func TestWriteMat4ColumnMajorLayout(t *testing.T) {
	var m lin.Mat4x4
	m.Identity()
	buf := make([]byte, 64)
	writeMat4(buf, m)
	for col := 0; col < 4; col++ {
		for row := 0; row < 4; row++ {
			want := float32(0)
			if row == col {
				want = 1
			}
			off := (col*4 + row) * 4
			got := math.Float32frombits(uint32(buf[off]) | uint32(buf[off+1])<<8 | uint32(buf[off+2])<<16 | uint32(buf[off+3])<<24)
			if got != want {
				t.Fatalf("col=%d row=%d: got %f want %f", col, row, got, want)
			}
		}
	}
}

func TestWriteMat4ThenVec4FitsPushConstantSize(t *testing.T) {
	buf := make([]byte, pipeline.MeshPushConstantSize)
	var m lin.Mat4x4
	m.Identity()
	writeMat4(buf, m)
	writeVec4(buf[64:], [4]float32{1, 0.5, 0.25, 1})
	if len(buf) != 80 {
		t.Fatalf("expected 80-byte buffer, got %d", len(buf))
	}
}
