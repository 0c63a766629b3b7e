package engineapi

import (
	"testing"

	"github.com/stretchr/testify/assert"
	lin "github.com/xlab/linmath"
	"go.uber.org/zap"

	"github.com/johnpgr/vkengine/internal/camera"
	"github.com/johnpgr/vkengine/internal/mesh"
	"github.com/johnpgr/vkengine/internal/recorder"
)

// newTestTable builds a Table with a nil *modhost.Host: safe here since
// none of these tests call LoadMesh, the only closure that dereferences
// it.
func newTestTable(t *testing.T) (*Table, *FrameState) {
	t.Helper()
	state := &FrameState{}
	cam := camera.Default()
	tbl := New(state, Deps{Camera: &cam, Log: zap.NewNop()}, nil)
	return tbl, state
}

func TestSetClearColorOverwrites(t *testing.T) {
	tbl, state := newTestTable(t)
	tbl.SetClearColor(1, 0, 0, 1)
	tbl.SetClearColor(0, 1, 0, 1)
	assert.Equal(t, recorder.ClearColor{0, 1, 0, 1}, state.Clear)
}

func TestDrawQuadAppends(t *testing.T) {
	tbl, state := newTestTable(t)
	tbl.DrawQuad(1, 2, 3, 4, 1, 1, 1, 1)
	tbl.DrawQuad(5, 6, 7, 8, 0, 0, 0, 1)
	assert.Len(t, state.Quads, 2)
	assert.Equal(t, [4]float32{1, 2, 3, 4}, state.Quads[0].Rect)
}

func TestDrawCubeIsDrawMeshAtCubeSlot(t *testing.T) {
	tbl, state := newTestTable(t)
	var model lin.Mat4x4
	model.Identity()
	tbl.DrawCube(model, 1, 1, 1, 1)
	assert.Len(t, state.Meshes, 1)
	assert.Equal(t, uint32(mesh.CubeSlot), state.Meshes[0].Handle)
}

func TestGetDTNeverNegative(t *testing.T) {
	_, state := newTestTable(t)
	state.SetDT(-5)
	assert.Zero(t, state.dt)
}

func TestIsKeyDownNilWindowReturnsFalse(t *testing.T) {
	tbl, _ := newTestTable(t)
	assert.False(t, tbl.IsKeyDown(0))
}

func TestFrameStateResetClearsAccumulators(t *testing.T) {
	tbl, state := newTestTable(t)
	tbl.DrawQuad(0, 0, 1, 1, 1, 1, 1, 1)
	state.Reset()
	assert.Empty(t, state.Quads)
}

