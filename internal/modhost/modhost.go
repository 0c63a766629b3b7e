// Package modhost loads the reloadable game module and drives its
// lifecycle. There is no teacher precedent: vulkan-go-asche's
// CoreRenderInstance runs a single compiled-in Application and never
// loads code at runtime. The load/reload mechanism is built on the
// standard library's plugin package; fsnotify wakes the hot-reload
// poll instead of a busy loop.
package modhost

import (
	"fmt"
	"os"
	"plugin"
	"time"
	"unsafe"

	"go.uber.org/zap"

	"github.com/johnpgr/vkengine/internal/arena"
	"github.com/johnpgr/vkengine/internal/verr"
)

// ABIVersion is the engine's module ABI constant. A loaded module's
// get_api_version() must echo this value exactly or the load is rejected.
const ABIVersion uint32 = 1

// Required exported symbol names, resolved by Go's plugin.Lookup.
const (
	symGetAPIVersion = "GetAPIVersion"
	symGetMemorySize = "GetMemorySize"
	symLoad          = "Load"
	symUpdate        = "Update"
	symUnload        = "Unload"
	symReload        = "Reload"
)

type apiVersionFn func() uint32
type memSizeFn func() int
type lifecycleFn func(api unsafe.Pointer, mem unsafe.Pointer, size int)

// symbols bundles the six resolved lifecycle entry points.
type symbols struct {
	apiVersion apiVersionFn
	memSize    memSizeFn
	load       lifecycleFn
	update     lifecycleFn
	unload     lifecycleFn
	reload     lifecycleFn
}

// Host owns the loaded module's state, watches its source file for
// changes, and gates load_mesh to the load() call per the
// mesh_load-gating rule.
type Host struct {
	log        *zap.Logger
	appArena   *arena.Arena
	frameArena *arena.Arena
	sourcePath string
	sidecarDir string

	sym     symbols
	mem     []byte
	loaded  bool
	modTime time.Time

	allowMeshLoad bool

	watcher    *fsnotifyWatcher
	nextLoadID int
}

// New constructs a Host bound to sourcePath (the well-known game-module
// path, e.g. libgame.so) without performing an initial load. appArena
// backs the persistent module state buffer; frameArena backs the
// transient read of the module's bytes during each load/reload.
func New(log *zap.Logger, appArena, frameArena *arena.Arena, sourcePath, sidecarDir string) *Host {
	return &Host{
		log:        log,
		appArena:   appArena,
		frameArena: frameArena,
		sourcePath: sourcePath,
		sidecarDir: sidecarDir,
	}
}

// Loaded reports whether a module is currently resident.
func (h *Host) Loaded() bool { return h.loaded }

// MemPtr returns the module's state buffer pointer/size, for passing
// into lifecycle calls from outside the Host (engine glue drives the
// lifecycle through Update and the other Host methods, but api tables
// may want it too).
func (h *Host) MemPtr() (unsafe.Pointer, int) {
	if len(h.mem) == 0 {
		return nil, 0
	}
	return unsafe.Pointer(&h.mem[0]), len(h.mem)
}

// Open performs the initial load (the "Load" step), fatal on
// failure (ModuleLoadFailure at initial load is fatal).
func (h *Host) Open(api unsafe.Pointer) error {
	sym, mtime, err := h.loadOnce()
	if err != nil {
		return verr.New(verr.ModuleLoadFailure, err)
	}
	h.sym = sym
	h.modTime = mtime

	size := sym.memSize()
	h.mem = h.appArena.Alloc(size)

	h.allowMeshLoad = true
	sym.load(api, h.memPtrUnsafe(), len(h.mem))
	h.allowMeshLoad = false

	h.loaded = true
	w, err := newFsnotifyWatcher(h.sourcePath)
	if err != nil {
		h.log.Warn("module hot-reload watch unavailable, falling back to mtime poll only", zap.Error(err))
	}
	h.watcher = w
	return nil
}

// AllowMeshLoad reports whether load_mesh should be honored right now
// (only true for the duration of the load() call).
func (h *Host) AllowMeshLoad() bool { return h.allowMeshLoad }

// Update calls the module's per-frame update.
func (h *Host) Update(api unsafe.Pointer) {
	if !h.loaded {
		return
	}
	h.sym.update(api, h.memPtrUnsafe(), len(h.mem))
}

// PollReload checks the source file's mtime and, on change, runs
// waitIdle, the old module's unload(), a fresh sidecar load, and
// reload() (on the new module, or on the previous one when the new
// module reports a different memory size). The previous plugin stays
// mapped: Go plugins cannot be unloaded. waitIdle is called only if a
// change is actually detected. With a watcher running, nothing is
// stat'ed until it reports an event; without one, each call costs one
// stat syscall.
func (h *Host) PollReload(api unsafe.Pointer, waitIdle func()) {
	if h.watcher != nil {
		select {
		case <-h.watcher.changed:
		default:
			return
		}
	}
	info, err := os.Stat(h.sourcePath)
	if err != nil {
		return
	}
	if !info.ModTime().After(h.modTime) {
		return
	}

	waitIdle()

	if h.loaded {
		h.sym.unload(api, h.memPtrUnsafe(), len(h.mem))
		h.loaded = false
	}

	newSym, mtime, err := h.loadOnce()
	if err != nil {
		h.log.Warn("hot reload failed, module remains unloaded", zap.Error(err))
		return
	}

	newSize := newSym.memSize()
	if newSize != len(h.mem) {
		h.log.Warn("module memory size changed across reload, keeping previous buffer",
			zap.Int("old_size", len(h.mem)), zap.Int("new_size", newSize))
	} else {
		h.sym = newSym
	}
	h.modTime = mtime
	h.loaded = true

	h.sym.reload(api, h.memPtrUnsafe(), len(h.mem))
}

// Close calls unload() for a clean shutdown (engine teardown, not a
// hot-reload transition).
func (h *Host) Close(api unsafe.Pointer) {
	if !h.loaded {
		return
	}
	h.sym.unload(api, h.memPtrUnsafe(), len(h.mem))
	h.loaded = false
	if h.watcher != nil {
		h.watcher.Close()
	}
}

func (h *Host) memPtrUnsafe() unsafe.Pointer {
	if len(h.mem) == 0 {
		return nil
	}
	return unsafe.Pointer(&h.mem[0])
}

// loadOnce performs the sidecar-copy load and symbol resolution
// without touching any engine state.
func (h *Host) loadOnce() (symbols, time.Time, error) {
	info, err := os.Stat(h.sourcePath)
	if err != nil {
		return symbols{}, time.Time{}, fmt.Errorf("stat module source: %w", err)
	}
	raw, err := os.ReadFile(h.sourcePath)
	if err != nil {
		return symbols{}, time.Time{}, fmt.Errorf("read module source: %w", err)
	}
	data := h.frameArena.Alloc(len(raw))
	copy(data, raw)

	sidecar, err := h.writeSidecar(data)
	if err != nil {
		return symbols{}, time.Time{}, err
	}

	p, err := plugin.Open(sidecar)
	if err != nil {
		return symbols{}, time.Time{}, fmt.Errorf("open module plugin: %w", err)
	}

	sym, err := resolveSymbols(p)
	if err != nil {
		return symbols{}, time.Time{}, err
	}
	if v := sym.apiVersion(); v != ABIVersion {
		return symbols{}, time.Time{}, fmt.Errorf("module ABI version %d does not match engine ABI %d", v, ABIVersion)
	}
	return sym, info.ModTime(), nil
}

func resolveSymbols(p *plugin.Plugin) (symbols, error) {
	var sym symbols
	lookup := func(name string, out *interface{}) error {
		s, err := p.Lookup(name)
		if err != nil {
			return fmt.Errorf("resolve symbol %q: %w", name, err)
		}
		*out = s
		return nil
	}

	var raw interface{}
	if err := lookup(symGetAPIVersion, &raw); err != nil {
		return sym, err
	}
	fn, ok := raw.(func() uint32)
	if !ok {
		return sym, fmt.Errorf("symbol %q has wrong signature", symGetAPIVersion)
	}
	sym.apiVersion = fn

	if err := lookup(symGetMemorySize, &raw); err != nil {
		return sym, err
	}
	msFn, ok := raw.(func() int)
	if !ok {
		return sym, fmt.Errorf("symbol %q has wrong signature", symGetMemorySize)
	}
	sym.memSize = msFn

	for name, dst := range map[string]*lifecycleFn{
		symLoad:   &sym.load,
		symUpdate: &sym.update,
		symUnload: &sym.unload,
		symReload: &sym.reload,
	} {
		if err := lookup(name, &raw); err != nil {
			return sym, err
		}
		lf, ok := raw.(func(unsafe.Pointer, unsafe.Pointer, int))
		if !ok {
			return sym, fmt.Errorf("symbol %q has wrong signature", name)
		}
		*dst = lf
	}
	return sym, nil
}
