package mesh

import "math"

func f32bits(f float32) uint32 {
	return math.Float32bits(f)
}

// unitCubeBytes builds the built-in unit cube (slot 0) as raw
// interleaved (pos:vec3, normal:vec3, color:vec4) vertex bytes plus a
// uint32 index buffer, 24 vertices (4 per face, flat-shaded) and 36
// indices (6 per face).
func unitCubeBytes() (vtx, idx []byte) {
	type v struct {
		p, n [3]float32
	}
	const c = 0.5
	faces := []struct {
		normal [3]float32
		verts  [4][3]float32
	}{
		{[3]float32{0, 0, 1}, [4][3]float32{{-c, -c, c}, {c, -c, c}, {c, c, c}, {-c, c, c}}},
		{[3]float32{0, 0, -1}, [4][3]float32{{c, -c, -c}, {-c, -c, -c}, {-c, c, -c}, {c, c, -c}}},
		{[3]float32{0, 1, 0}, [4][3]float32{{-c, c, c}, {c, c, c}, {c, c, -c}, {-c, c, -c}}},
		{[3]float32{0, -1, 0}, [4][3]float32{{-c, -c, -c}, {c, -c, -c}, {c, -c, c}, {-c, -c, c}}},
		{[3]float32{1, 0, 0}, [4][3]float32{{c, -c, c}, {c, -c, -c}, {c, c, -c}, {c, c, c}}},
		{[3]float32{-1, 0, 0}, [4][3]float32{{-c, -c, -c}, {-c, -c, c}, {-c, c, c}, {-c, c, -c}}},
	}

	verts := make([]v, 0, 24)
	var indices []uint32
	for _, f := range faces {
		base := uint32(len(verts))
		for _, p := range f.verts {
			verts = append(verts, v{p: p, n: f.normal})
		}
		indices = append(indices,
			base, base+1, base+2,
			base, base+2, base+3,
		)
	}

	vtx = make([]byte, len(verts)*40)
	for i, vv := range verts {
		o := i * 40
		putF32(vtx[o:], vv.p[0])
		putF32(vtx[o+4:], vv.p[1])
		putF32(vtx[o+8:], vv.p[2])
		putF32(vtx[o+12:], vv.n[0])
		putF32(vtx[o+16:], vv.n[1])
		putF32(vtx[o+20:], vv.n[2])
		putF32(vtx[o+24:], 1)
		putF32(vtx[o+28:], 1)
		putF32(vtx[o+32:], 1)
		putF32(vtx[o+36:], 1)
	}

	idx = make([]byte, len(indices)*4)
	for i, n := range indices {
		putU32(idx[i*4:], n)
	}
	return vtx, idx
}
