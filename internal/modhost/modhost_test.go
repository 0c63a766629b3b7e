package modhost

import (
	"os"
	"path/filepath"
	"testing"

	"go.uber.org/zap"

	"github.com/johnpgr/vkengine/internal/arena"
)

func TestWriteSidecarUsesFreshNameEachCall(t *testing.T) {
	dir := t.TempDir()
	h := &Host{log: zap.NewNop(), sourcePath: filepath.Join(dir, "libgame.so"), sidecarDir: dir}

	p1, err := h.writeSidecar([]byte("v1"))
	if err != nil {
		t.Fatalf("writeSidecar: %v", err)
	}
	p2, err := h.writeSidecar([]byte("v2"))
	if err != nil {
		t.Fatalf("writeSidecar: %v", err)
	}
	if p1 == p2 {
		t.Fatalf("expected distinct sidecar paths, got %q twice", p1)
	}
	b1, _ := os.ReadFile(p1)
	b2, _ := os.ReadFile(p2)
	if string(b1) != "v1" || string(b2) != "v2" {
		t.Fatalf("sidecar contents mismatch: %q %q", b1, b2)
	}
}

func TestAllowMeshLoadDefaultsFalse(t *testing.T) {
	h := &Host{log: zap.NewNop(), appArena: arena.New(0), frameArena: arena.New(0)}
	if h.AllowMeshLoad() {
		t.Fatal("expected allow_mesh_load to default false outside load")
	}
}

func TestMemPtrNilWhenUnallocated(t *testing.T) {
	h := &Host{log: zap.NewNop()}
	ptr, size := h.MemPtr()
	if ptr != nil || size != 0 {
		t.Fatalf("expected nil/0 before any module memory allocated, got %v/%d", ptr, size)
	}
}
