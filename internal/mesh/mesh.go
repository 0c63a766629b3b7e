// Package mesh holds the append-only mesh-slot table and the built-in
// unit cube that occupies slot 0. dieselvk has no mesh abstraction to
// draw from, so the slot table is written fresh in the style of its
// other fixed-capacity core tables (CoreShader's maps, CorePipeline's
// maps) but as a plain array since capacity is fixed and small.
package mesh

import (
	vk "github.com/vulkan-go/vulkan"

	"github.com/johnpgr/vkengine/internal/gpubuf"
	"github.com/johnpgr/vkengine/internal/mesh/meshio"
	"github.com/johnpgr/vkengine/internal/verr"
)

// SlotCap is MESH_SLOT_CAP: the fixed capacity of the mesh table.
const SlotCap = 64

// CubeSlot is the reserved index for the built-in unit cube, always
// loaded after init.
const CubeSlot = 0

// Slot is one entry in the table. A zero-value Slot (Loaded == false)
// is skipped during recording.
type Slot struct {
	Vertex      *gpubuf.Buffer
	Index       *gpubuf.Buffer
	IndexCount  uint32
	VertexCount uint32
	Loaded      bool
}

// Table is the append-only mesh table. Slot allocation happens only
// during module load (engine-side gating lives in internal/modhost);
// there is no free path.
type Table struct {
	slots    [SlotCap]Slot
	nextSlot int
}

// NewTable builds the table with the unit cube pre-loaded into slot 0.
func NewTable(device vk.Device, memProps vk.PhysicalDeviceMemoryProperties, pool vk.CommandPool, queue vk.Queue) (*Table, error) {
	t := &Table{nextSlot: 1}
	vtxData, idxData := unitCubeBytes()

	vbuf, err := gpubuf.NewDeviceLocal(device, memProps, pool, queue, vtxData, vk.BufferUsageVertexBufferBit)
	if err != nil {
		return nil, verr.New(verr.GpuAllocFailure, err)
	}
	ibuf, err := gpubuf.NewDeviceLocal(device, memProps, pool, queue, idxData, vk.BufferUsageIndexBufferBit)
	if err != nil {
		return nil, verr.New(verr.GpuAllocFailure, err)
	}

	t.slots[CubeSlot] = Slot{
		Vertex:      vbuf,
		Index:       ibuf,
		IndexCount:  uint32(len(idxData) / 4),
		VertexCount: uint32(len(vtxData) / 40),
		Loaded:      true,
	}
	return t, nil
}

// Get returns the slot at handle, or the cube slot if handle is out of
// range or unloaded — callers fall back to the cube rather than drawing nothing.
func (t *Table) Get(handle uint32) Slot {
	if int(handle) >= SlotCap || !t.slots[handle].Loaded {
		return t.slots[CubeSlot]
	}
	return t.slots[handle]
}

// Valid reports whether handle currently names a loaded slot, without
// falling back — the recorder uses this to decide whether to emit any
// GPU work at all for a given MeshCommand.
func (t *Table) Valid(handle uint32) bool {
	return int(handle) < SlotCap && t.slots[handle].Loaded
}

// Load decodes a glTF file and appends it as a new slot, returning its
// handle. On table exhaustion (the 64th call, since slot 0 holds the
// cube) or decode failure it
// returns the cube handle; the caller is
// responsible for logging.
func (t *Table) Load(device vk.Device, memProps vk.PhysicalDeviceMemoryProperties, pool vk.CommandPool, queue vk.Queue, path string) (uint32, error) {
	if t.nextSlot >= SlotCap {
		return CubeSlot, verr.New(verr.MeshLoadFailure, errTableFull)
	}

	decoded, err := meshio.Load(path)
	if err != nil {
		return CubeSlot, verr.New(verr.MeshLoadFailure, err)
	}

	vtxData := make([]byte, len(decoded.Vertices)*40)
	for i, v := range decoded.Vertices {
		o := i * 40
		putF32(vtxData[o:], v.Position[0])
		putF32(vtxData[o+4:], v.Position[1])
		putF32(vtxData[o+8:], v.Position[2])
		putF32(vtxData[o+12:], v.Normal[0])
		putF32(vtxData[o+16:], v.Normal[1])
		putF32(vtxData[o+20:], v.Normal[2])
		putF32(vtxData[o+24:], v.Color[0])
		putF32(vtxData[o+28:], v.Color[1])
		putF32(vtxData[o+32:], v.Color[2])
		putF32(vtxData[o+36:], v.Color[3])
	}
	idxData := make([]byte, len(decoded.Indices)*4)
	for i, idx := range decoded.Indices {
		putU32(idxData[i*4:], idx)
	}

	vbuf, err := gpubuf.NewDeviceLocal(device, memProps, pool, queue, vtxData, vk.BufferUsageVertexBufferBit)
	if err != nil {
		return CubeSlot, verr.New(verr.GpuAllocFailure, err)
	}
	ibuf, err := gpubuf.NewDeviceLocal(device, memProps, pool, queue, idxData, vk.BufferUsageIndexBufferBit)
	if err != nil {
		return CubeSlot, verr.New(verr.GpuAllocFailure, err)
	}

	handle := uint32(t.nextSlot)
	t.slots[handle] = Slot{
		Vertex:      vbuf,
		Index:       ibuf,
		IndexCount:  uint32(len(decoded.Indices)),
		VertexCount: uint32(len(decoded.Vertices)),
		Loaded:      true,
	}
	t.nextSlot++
	return handle, nil
}

// Destroy releases every loaded slot's GPU buffers.
func (t *Table) Destroy() {
	for i := range t.slots {
		if !t.slots[i].Loaded {
			continue
		}
		t.slots[i].Vertex.Destroy()
		t.slots[i].Index.Destroy()
		t.slots[i].Loaded = false
	}
}

var errTableFull = tableFullError{}

type tableFullError struct{}

func (tableFullError) Error() string { return "mesh slot table is full" }

func putF32(b []byte, f float32) {
	bits := f32bits(f)
	b[0] = byte(bits)
	b[1] = byte(bits >> 8)
	b[2] = byte(bits >> 16)
	b[3] = byte(bits >> 24)
}

func putU32(b []byte, v uint32) {
	b[0] = byte(v)
	b[1] = byte(v >> 8)
	b[2] = byte(v >> 16)
	b[3] = byte(v >> 24)
}
