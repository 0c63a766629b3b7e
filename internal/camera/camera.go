// Package camera builds the view and Vulkan-corrected projection
// matrices from an eye/target pair, grounded on
// vulkan-go-asche/math.go's VulkanProjectionMat (GL-to-Vulkan clip-space
// fixup: Y-flip, depth remap to [0,1]) composed with linmath's
// LookAt/Perspective.
package camera

import lin "github.com/xlab/linmath"

// Camera holds the eye/target pair the module sets via set_camera; up
// is fixed at +Y.
type Camera struct {
	Eye, Target lin.Vec3
}

// Default is a conventional starting view: eye=(0,3,6), target origin.
func Default() Camera {
	return Camera{
		Eye:    lin.Vec3{0, 3, 6},
		Target: lin.Vec3{0, 0, 0},
	}
}

// SetEyeTarget overwrites both vectors in one call (set_camera's shape).
func (c *Camera) SetEyeTarget(ex, ey, ez, tx, ty, tz float32) {
	c.Eye = lin.Vec3{ex, ey, ez}
	c.Target = lin.Vec3{tx, ty, tz}
}

// View returns a right-handed look-at matrix from Eye to Target with
// up = +Y.
func (c *Camera) View() lin.Mat4x4 {
	var m lin.Mat4x4
	up := lin.Vec3{0, 1, 0}
	m.LookAt(&c.Eye, &c.Target, &up)
	return m
}

// Projection returns the Vulkan-corrected symmetric perspective
// projection for the given framebuffer extent: vertical FoV 45°, near
// 0.1, far 100.0, Y-flipped and depth-remapped to [0,1] — the same
// fixup as vulkan-go-asche/math.go's VulkanProjectionMat.
func Projection(width, height uint32) lin.Mat4x4 {
	aspect := float32(width) / float32(height)
	var proj lin.Mat4x4
	proj.Perspective(lin.DegreesToRadians(45.0), aspect, 0.1, 100.0)
	proj[1][1] *= -1
	proj[2][2] = 0.5 * (proj[2][2] - 1)
	proj[3][2] = 0.5 * proj[3][2]
	return proj
}
