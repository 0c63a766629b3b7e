// Command examplegame is a reference game module built with
// -buildmode=plugin: it exports the six lifecycle symbols the engine's
// module host resolves, and demonstrates the callback table a real
// module drives the engine through. There is no teacher precedent for
// a dynamically loaded module (vulkan-go-asche links its Application in
// at compile time), so this is new: a small spinning-mesh demo (the
// built-in cube when the prop asset fails to load) plus a couple of
// quads. It calls every entry in the table except DrawCube and IsKeyDown.
package main

import (
	"unsafe"

	lin "github.com/xlab/linmath"

	"github.com/johnpgr/vkengine/internal/engineapi"
)

// state is the module's persistent data, carved out of the buffer the
// engine allocates to GetMemorySize's size and handed back on every
// lifecycle call. A real module might store far more; this one only
// needs an elapsed-time accumulator and the mesh handle load_mesh
// returned.
type state struct {
	elapsed    float64
	meshHandle uint32
}

func stateAt(mem unsafe.Pointer) *state {
	return (*state)(mem)
}

// GetAPIVersion reports the ABI version this module was built against.
func GetAPIVersion() uint32 {
	return engineapi.ABIVersion
}

// GetMemorySize reports how large a persistent state buffer the host
// should allocate and hand back on every subsequent call.
func GetMemorySize() int {
	return int(unsafe.Sizeof(state{}))
}

// Load runs once, on the module's first load. It sets a clear color and
// the starting camera, and loads the prop mesh — load_mesh only ever
// succeeds inside this call, so the handle is cached in state, which
// survives reloads, for every Update afterward.
func Load(api unsafe.Pointer, mem unsafe.Pointer, size int) {
	t := (*engineapi.Table)(api)
	s := stateAt(mem)
	*s = state{}

	t.SetClearColor(0.05, 0.05, 0.08, 1.0)
	t.SetCamera(0, 3, 6, 0, 0, 0)
	s.meshHandle = t.LoadMesh("assets/prop.glb")
	t.Log("examplegame: loaded")
}

// Update runs once per frame: advances the animation clock by get_dt and
// draws a spinning mesh plus a couple of static quads.
func Update(api unsafe.Pointer, mem unsafe.Pointer, size int) {
	t := (*engineapi.Table)(api)
	s := stateAt(mem)

	s.elapsed += float64(t.GetDT())

	var model lin.Mat4x4
	model.Identity()
	model.Rotate(&model, 0, 1, 0, float32(s.elapsed))
	t.DrawMesh(s.meshHandle, model, 0.8, 0.6, 0.2, 1.0)

	t.DrawQuad(-0.9, -0.9, 0.2, 0.2, 1, 0, 0, 1)
	t.DrawQuad(0.7, -0.9, 0.2, 0.2, 0, 1, 0, 1)
}

// Unload runs on a clean shutdown or just before a reload replaces this
// module's code.
func Unload(api unsafe.Pointer, mem unsafe.Pointer, size int) {
	t := (*engineapi.Table)(api)
	t.Log("examplegame: unloaded")
}

// Reload runs once, immediately after a hot-reloaded module's code
// replaces the previous version; mem still holds whatever state the
// replaced module left behind, so the animation keeps going from where
// it left off. load_mesh is not honored here, so the mesh handle Load
// cached in state is kept.
func Reload(api unsafe.Pointer, mem unsafe.Pointer, size int) {
	t := (*engineapi.Table)(api)
	t.Log("examplegame: reloaded")
}
