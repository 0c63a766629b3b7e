package pipeline

import "testing"

func TestMeshPushConstantSizeMatchesSpec(t *testing.T) {
	if MeshPushConstantSize != 80 {
		t.Fatalf("expected 80-byte push constant (mat4 + vec4), got %d", MeshPushConstantSize)
	}
}

func TestSliceUint32LittleEndian(t *testing.T) {
	data := []byte{0x01, 0x00, 0x00, 0x00, 0xff, 0xff, 0xff, 0xff}
	got := sliceUint32(data)
	if len(got) != 2 || got[0] != 1 || got[1] != 0xffffffff {
		t.Fatalf("unexpected conversion: %v", got)
	}
}
