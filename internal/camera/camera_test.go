package camera

import (
	"math"
	"testing"
)

func TestDefaultCameraMatchesSpecExample(t *testing.T) {
	c := Default()
	if c.Eye[0] != 0 || c.Eye[1] != 3 || c.Eye[2] != 6 {
		t.Fatalf("unexpected default eye: %v", c.Eye)
	}
	if c.Target[0] != 0 || c.Target[1] != 0 || c.Target[2] != 0 {
		t.Fatalf("unexpected default target: %v", c.Target)
	}
}

func TestSetEyeTargetOverwritesBothVectors(t *testing.T) {
	c := Default()
	c.SetEyeTarget(1, 2, 3, 4, 5, 6)
	if c.Eye[0] != 1 || c.Eye[1] != 2 || c.Eye[2] != 3 {
		t.Fatalf("unexpected eye: %v", c.Eye)
	}
	if c.Target[0] != 4 || c.Target[1] != 5 || c.Target[2] != 6 {
		t.Fatalf("unexpected target: %v", c.Target)
	}
}

func TestProjectionDepthRemapAndYFlip(t *testing.T) {
	proj := Projection(1280, 720)
	// GL perspective has [1][1] > 0 and [2][2] = -(f+n)/(f-n), just below
	// -1, before correction; after the flip [1][1] must be negative (Y-down clip).
	if proj[1][1] >= 0 {
		t.Fatalf("expected Y-flip to make [1][1] negative, got %f", proj[1][1])
	}
	// Depth range [0,1]: a point on the near plane (z = -near, w = near)
	// must get clip depth 0; the GL form would give -near (NDC -1).
	zNear := proj[2][2]*-0.1 + proj[3][2]
	if math.Abs(float64(zNear)) > 1e-5 {
		t.Fatalf("expected near-plane clip depth 0 after depth remap, got %f", zNear)
	}
}
