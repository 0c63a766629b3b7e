package recorder

import (
	"math"
	"unsafe"

	lin "github.com/xlab/linmath"
)

// writeMat4 writes a column-major mat4 (16 floats, 64 bytes) into dst.
func writeMat4(dst []byte, m lin.Mat4x4) {
	n := 0
	for col := 0; col < 4; col++ {
		for row := 0; row < 4; row++ {
			putF32(dst[n:], m[col][row])
			n += 4
		}
	}
}

func writeVec4(dst []byte, v [4]float32) {
	for i, f := range v {
		putF32(dst[i*4:], f)
	}
}

func putF32(b []byte, f float32) {
	bits := math.Float32bits(f)
	b[0] = byte(bits)
	b[1] = byte(bits >> 8)
	b[2] = byte(bits >> 16)
	b[3] = byte(bits >> 24)
}

func unsafeBytes(b []byte) unsafe.Pointer {
	if len(b) == 0 {
		return nil
	}
	return unsafe.Pointer(&b[0])
}
