package modhost

import (
	"fmt"
	"os"
	"path/filepath"
)

// writeSidecar copies data to a fresh path under sidecarDir and returns
// it. A fresh name on every call (the "sidecar path") matters for
// two reasons: it releases the OS lock on the source so a build tool can
// overwrite it while the engine runs, and it dodges plugin.Open's
// internal cache, which is keyed by the resolved path — reusing one
// sidecar name would silently hand back the previous module on reload.
func (h *Host) writeSidecar(data []byte) (string, error) {
	if h.sidecarDir == "" {
		h.sidecarDir = filepath.Dir(h.sourcePath)
	}
	if err := os.MkdirAll(h.sidecarDir, 0o755); err != nil {
		return "", fmt.Errorf("create sidecar dir: %w", err)
	}
	h.nextLoadID++
	name := fmt.Sprintf(".loaded-%d%s", h.nextLoadID, filepath.Ext(h.sourcePath))
	path := filepath.Join(h.sidecarDir, name)
	if err := os.WriteFile(path, data, 0o755); err != nil {
		return "", fmt.Errorf("write sidecar: %w", err)
	}
	return path, nil
}
