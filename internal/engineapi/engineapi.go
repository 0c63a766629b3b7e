// Package engineapi builds the callback table handed to the game
// module. Grounded on vulkan-go-asche/application.go's
// Application interface — a fixed set of methods the engine calls into
// user code through — but inverted: here the module calls *into* the
// engine, so the table is a struct of closures rather than a Go
// interface the module implements, matching a C ABI call boundary.
package engineapi

import (
	vk "github.com/vulkan-go/vulkan"
	lin "github.com/xlab/linmath"
	"go.uber.org/zap"

	"github.com/go-gl/glfw/v3.3/glfw"

	"github.com/johnpgr/vkengine/internal/camera"
	"github.com/johnpgr/vkengine/internal/mesh"
	"github.com/johnpgr/vkengine/internal/modhost"
	"github.com/johnpgr/vkengine/internal/recorder"
)

// ABIVersion is part of the table; it
// is the same constant modhost checks a loaded module's
// get_api_version() against.
const ABIVersion = modhost.ABIVersion

// FrameState is the accumulator the callbacks append to and the
// scheduler drains once per iteration. Owned by the engine glue, which
// calls Reset between frames.
type FrameState struct {
	Clear  recorder.ClearColor
	Quads  []recorder.QuadCommand
	Meshes []recorder.MeshCommand
	dt     float32
}

// Reset clears the accumulated draw commands for the next frame. Clear
// color persists across frames until overwritten (
// set_clear_color "overwrites", draw_quad/draw_mesh "append").
func (s *FrameState) Reset() {
	s.Quads = s.Quads[:0]
	s.Meshes = s.Meshes[:0]
}

// SetDT records the frame delta the engine glue measured this
// iteration, clamped to never go negative (get_dt
// contract) — guards against a backwards system clock.
func (s *FrameState) SetDT(dt float32) {
	if dt < 0 {
		dt = 0
	}
	s.dt = dt
}

// Deps bundles everything the callbacks need to reach GPU/window state
// they don't own: the mesh table (for load_mesh's buffer upload), the
// camera (for set_camera), and the window (for is_key_down).
type Deps struct {
	Device    vk.Device
	MemProps  vk.PhysicalDeviceMemoryProperties
	Pool      vk.CommandPool
	Queue     vk.Queue
	MeshTable *mesh.Table
	Camera    *camera.Camera
	Window    *glfw.Window
	Log       *zap.Logger
}

// Table is the function-pointer struct exposed to the loaded module.
type Table struct {
	Version uint32

	SetClearColor func(r, g, b, a float32)
	DrawQuad      func(x, y, w, h, r, g, b, a float32)
	SetCamera     func(ex, ey, ez, tx, ty, tz float32)
	LoadMesh      func(path string) uint32
	DrawMesh      func(handle uint32, model lin.Mat4x4, r, g, b, a float32)
	DrawCube      func(model lin.Mat4x4, r, g, b, a float32)
	Log           func(msg string)
	GetDT         func() float32
	IsKeyDown     func(key glfw.Key) bool
}

// New builds the callback table bound to state and deps. host gates
// load_mesh to the module's load() call.
func New(state *FrameState, deps Deps, host *modhost.Host) *Table {
	t := &Table{Version: ABIVersion}

	t.SetClearColor = func(r, g, b, a float32) {
		state.Clear = recorder.ClearColor{r, g, b, a}
	}

	t.DrawQuad = func(x, y, w, h, r, g, b, a float32) {
		state.Quads = append(state.Quads, recorder.QuadCommand{
			Rect:  [4]float32{x, y, w, h},
			Color: [4]float32{r, g, b, a},
		})
	}

	t.SetCamera = func(ex, ey, ez, tx, ty, tz float32) {
		deps.Camera.SetEyeTarget(ex, ey, ez, tx, ty, tz)
	}

	t.LoadMesh = func(path string) uint32 {
		if !host.AllowMeshLoad() {
			deps.Log.Warn("load_mesh called outside load, returning cube handle", zap.String("path", path))
			return mesh.CubeSlot
		}
		handle, err := deps.MeshTable.Load(deps.Device, deps.MemProps, deps.Pool, deps.Queue, path)
		if err != nil {
			deps.Log.Warn("load_mesh failed, returning cube handle", zap.String("path", path), zap.Error(err))
		}
		return handle
	}

	t.DrawMesh = func(handle uint32, model lin.Mat4x4, r, g, b, a float32) {
		state.Meshes = append(state.Meshes, recorder.MeshCommand{
			Handle: handle,
			Model:  model,
			Tint:   [4]float32{r, g, b, a},
		})
	}

	t.DrawCube = func(model lin.Mat4x4, r, g, b, a float32) {
		t.DrawMesh(mesh.CubeSlot, model, r, g, b, a)
	}

	t.Log = func(msg string) {
		deps.Log.Info(msg, zap.String("source", "module"))
	}

	t.GetDT = func() float32 {
		return state.dt
	}

	t.IsKeyDown = func(key glfw.Key) bool {
		if deps.Window == nil {
			return false
		}
		return deps.Window.GetKey(key) == glfw.Press
	}

	return t
}
