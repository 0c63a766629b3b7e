package engine

import (
	"unsafe"

	"github.com/johnpgr/vkengine/internal/engineapi"
)

// apiPointer gives the module's opaque api* argument (the host/module
// ABI) a concrete value: a pointer to the closure table itself. A loaded
// module casts this straight back to *engineapi.Table and calls through
// it — the indirection through unsafe.Pointer exists so modhost's
// Load/Update/Unload/Reload signatures stay plugin-ABI-shaped (a bare
// pointer + size) instead of importing engineapi themselves.
func apiPointer(t *engineapi.Table) unsafe.Pointer {
	return unsafe.Pointer(t)
}
