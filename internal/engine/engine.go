// Package engine composes the Vulkan context, swapchain, pipelines,
// mesh table, module host, and frame scheduler into the bring-up/run/
// teardown sequence for the whole process. Grounded on
// vulkan-go-asche/instance.go's Init/release (ordered bring-up, reverse
// teardown with null-guarded destroys) and platform.go's NewPlatform
// (window + instance + surface bring-up before device selection).
package engine

import (
	"fmt"
	"path/filepath"

	"github.com/go-gl/glfw/v3.3/glfw"
	vk "github.com/vulkan-go/vulkan"
	"go.uber.org/zap"

	"github.com/johnpgr/vkengine/internal/arena"
	"github.com/johnpgr/vkengine/internal/camera"
	"github.com/johnpgr/vkengine/internal/config"
	"github.com/johnpgr/vkengine/internal/engineapi"
	"github.com/johnpgr/vkengine/internal/gpubuf"
	"github.com/johnpgr/vkengine/internal/headless"
	"github.com/johnpgr/vkengine/internal/lanes"
	"github.com/johnpgr/vkengine/internal/mesh"
	"github.com/johnpgr/vkengine/internal/modhost"
	"github.com/johnpgr/vkengine/internal/pipeline"
	"github.com/johnpgr/vkengine/internal/scheduler"
	"github.com/johnpgr/vkengine/internal/swapchain"
	"github.com/johnpgr/vkengine/internal/verr"
	"github.com/johnpgr/vkengine/internal/vkctx"
)

// shaderPaths names the four SPIR-V binaries shipped alongside the
// engine binary, loaded once at startup.
var shaderPaths = pipeline.ShaderPaths{
	QuadVert: "shaders/quad.vert.spv",
	QuadFrag: "shaders/quad.frag.spv",
	MeshVert: "shaders/mesh.vert.spv",
	MeshFrag: "shaders/mesh.frag.spv",
}

// Engine owns every component's top-level handle and drives bring-up,
// the run loop (windowed or headless), and reverse teardown.
type Engine struct {
	cfg config.Config
	log *zap.Logger

	scopes *arena.Scopes
	window *glfw.Window
	ctx    *vkctx.Context
	sc     *swapchain.Swapchain

	uploadPool vk.CommandPool

	desc      *pipeline.Descriptors
	pipelines *pipeline.Pipelines
	meshTable *mesh.Table
	cam       camera.Camera

	frames   [scheduler.MaxFramesInFlight]*scheduler.FrameSlot
	perImage []*scheduler.PerImage
	sched    *scheduler.Scheduler

	host  *modhost.Host
	api   *engineapi.Table
	state *engineapi.FrameState

	lanes *lanes.Runtime

	headlessExp *headless.Exporter
}

// New performs the full bring-up sequence: window/surface, Vulkan
// context, swapchain, upload command pool, mesh table, frame slots,
// descriptors/pipelines, per-image semaphores, scheduler, module host,
// and (headless only) the exporter. Any failure here is returned as
// InitFailure, fatal to the caller.
func New(cfg config.Config, log *zap.Logger) (eng *Engine, err error) {
	defer func() {
		if err != nil && !verr.Is(err, verr.InitFailure) {
			err = verr.New(verr.InitFailure, err)
		}
	}()
	defer verr.Recover(verr.InitFailure, &err)

	e := &Engine{cfg: cfg, log: log, scopes: arena.NewScopes(), cam: camera.Default()}

	if err := glfw.Init(); err != nil {
		return nil, verr.New(verr.InitFailure, err)
	}
	glfw.WindowHint(glfw.ClientAPI, glfw.NoAPI)
	glfw.WindowHint(glfw.Resizable, glfw.True)
	if cfg.Headless {
		glfw.WindowHint(glfw.Visible, glfw.False)
	} else {
		glfw.WindowHint(glfw.Visible, glfw.True)
	}
	win, err := glfw.CreateWindow(cfg.Width, cfg.Height, "vkengine", nil, nil)
	if err != nil {
		glfw.Terminate()
		return nil, verr.New(verr.InitFailure, err)
	}
	e.window = win

	vk.SetGetInstanceProcAddr(glfw.GetVulkanGetInstanceProcAddress())
	if err := vk.Init(); err != nil {
		e.Destroy()
		return nil, verr.New(verr.InitFailure, err)
	}

	ctx, err := vkctx.New(vkctx.Options{
		AppName:    "vkengine",
		Validation: cfg.Validation,
		MakeSurface: func(instance vk.Instance) (vk.Surface, error) {
			ptr, serr := win.CreateWindowSurface(instance, nil)
			if serr != nil {
				return vk.NullSurface, serr
			}
			return vk.SurfaceFromPointer(ptr), nil
		},
	}, log)
	if err != nil {
		e.Destroy()
		return nil, err
	}
	e.ctx = ctx

	sc, err := swapchain.New(ctx.Device, ctx.GPU, ctx.Surface, win, ctx.MemoryProperties, ctx.Sharing, ctx.GraphicsFamily, ctx.PresentFamily, e.scopes.Swapchain, log)
	if err != nil {
		e.Destroy()
		return nil, err
	}
	e.sc = sc

	var pool vk.CommandPool
	ret := vk.CreateCommandPool(ctx.Device, &vk.CommandPoolCreateInfo{
		SType:            vk.StructureTypeCommandPoolCreateInfo,
		Flags:            vk.CommandPoolCreateFlags(vk.CommandPoolCreateResetCommandBufferBit),
		QueueFamilyIndex: ctx.GraphicsFamily,
	}, nil, &pool)
	if ret != vk.Success {
		e.Destroy()
		return nil, verr.New(verr.InitFailure, fmt.Errorf("vkCreateCommandPool(upload): %d", ret))
	}
	e.uploadPool = pool

	meshTable, err := mesh.NewTable(ctx.Device, ctx.MemoryProperties, pool, ctx.GraphicsQueue)
	if err != nil {
		e.Destroy()
		return nil, err
	}
	e.meshTable = meshTable

	if err := e.buildFrameSlots(); err != nil {
		e.Destroy()
		return nil, err
	}

	const ssboSize = scheduler.MaxQuads * 32
	ssbos := make([]vk.Buffer, scheduler.MaxFramesInFlight)
	for i, f := range e.frames {
		ssbos[i] = f.SSBO.Handle
	}
	desc, err := pipeline.NewDescriptors(ctx.Device, ssbos, ssboSize)
	if err != nil {
		e.Destroy()
		return nil, err
	}
	e.desc = desc
	for i := range e.frames {
		e.frames[i].DescSet = desc.Sets[i]
	}

	pls, err := pipeline.New(ctx.Device, desc.Layout, shaderPaths, sc.Format, swapchain.DepthFormat)
	if err != nil {
		e.Destroy()
		return nil, err
	}
	e.pipelines = pls

	e.perImage = make([]*scheduler.PerImage, len(sc.Images))
	for i := range e.perImage {
		var sem vk.Semaphore
		vk.CreateSemaphore(ctx.Device, &vk.SemaphoreCreateInfo{SType: vk.StructureTypeSemaphoreCreateInfo}, nil, &sem)
		e.perImage[i] = &scheduler.PerImage{RenderFinished: sem}
	}

	e.sched = scheduler.New(scheduler.Deps{
		Device:    ctx.Device,
		Queue:     ctx.GraphicsQueue,
		Swapchain: sc,
		Pipelines: pls,
		MeshTable: meshTable,
		MemProps:  ctx.MemoryProperties,
		Log:       log,
	}, e.frames, e.perImage)

	sidecarDir := filepath.Join(filepath.Dir(cfg.ModulePath), ".sidecar")
	e.host = modhost.New(log, e.scopes.App, e.scopes.Frame, cfg.ModulePath, sidecarDir)
	e.state = &engineapi.FrameState{}
	e.api = engineapi.New(e.state, engineapi.Deps{
		Device:    ctx.Device,
		MemProps:  ctx.MemoryProperties,
		Pool:      pool,
		Queue:     ctx.GraphicsQueue,
		MeshTable: meshTable,
		Camera:    &e.cam,
		Window:    win,
		Log:       log,
	}, e.host)

	if err := e.host.Open(apiPointer(e.api)); err != nil {
		e.Destroy()
		return nil, err
	}

	if cfg.Headless {
		exp, err := headless.New(headless.Deps{
			Device:    ctx.Device,
			Queue:     ctx.GraphicsQueue,
			Swapchain: sc,
			Log:       log,
		}, ctx.MemoryProperties)
		if err != nil {
			e.Destroy()
			return nil, err
		}
		e.headlessExp = exp
	} else {
		e.lanes = lanes.New(lanes.Count)
	}

	return e, nil
}

// buildFrameSlots allocates the per-frame command pool/buffer, fence,
// image-available semaphore, and mapped SSBO for each of
// scheduler.MaxFramesInFlight frame slots.
func (e *Engine) buildFrameSlots() error {
	const ssboSize = scheduler.MaxQuads * 32
	for i := range e.frames {
		var pool vk.CommandPool
		ret := vk.CreateCommandPool(e.ctx.Device, &vk.CommandPoolCreateInfo{
			SType:            vk.StructureTypeCommandPoolCreateInfo,
			Flags:            vk.CommandPoolCreateFlags(vk.CommandPoolCreateResetCommandBufferBit),
			QueueFamilyIndex: e.ctx.GraphicsFamily,
		}, nil, &pool)
		if ret != vk.Success {
			return verr.New(verr.InitFailure, fmt.Errorf("vkCreateCommandPool(frame %d): %d", i, ret))
		}

		cmds := make([]vk.CommandBuffer, 1)
		ret = vk.AllocateCommandBuffers(e.ctx.Device, &vk.CommandBufferAllocateInfo{
			SType:              vk.StructureTypeCommandBufferAllocateInfo,
			CommandPool:        pool,
			Level:              vk.CommandBufferLevelPrimary,
			CommandBufferCount: 1,
		}, cmds)
		if ret != vk.Success {
			return verr.New(verr.InitFailure, fmt.Errorf("vkAllocateCommandBuffers(frame %d): %d", i, ret))
		}

		var fence vk.Fence
		vk.CreateFence(e.ctx.Device, &vk.FenceCreateInfo{
			SType: vk.StructureTypeFenceCreateInfo,
			Flags: vk.FenceCreateFlags(vk.FenceCreateSignaledBit),
		}, nil, &fence)

		var imageAvailable vk.Semaphore
		vk.CreateSemaphore(e.ctx.Device, &vk.SemaphoreCreateInfo{SType: vk.StructureTypeSemaphoreCreateInfo}, nil, &imageAvailable)

		ssbo, err := gpubuf.NewMapped(e.ctx.Device, e.ctx.MemoryProperties, ssboSize, vk.BufferUsageStorageBufferBit)
		if err != nil {
			return err
		}

		e.frames[i] = &scheduler.FrameSlot{
			Pool: pool, Cmd: cmds[0],
			ImageAvailable: imageAvailable, Fence: fence,
			SSBO: ssbo,
		}
	}
	return nil
}

// Destroy tears everything down after a device wait, honoring ZII
// (every destroy checks its own zero value). The order is the reverse of
// bring-up with two exceptions: the module host is closed before the
// headless exporter is destroyed, and the frame slots are released
// before the pipelines and descriptors.
func (e *Engine) Destroy() {
	if e.ctx != nil && e.ctx.Device != nil {
		vk.DeviceWaitIdle(e.ctx.Device)
	}

	if e.host != nil {
		e.host.Close(apiPointer(e.api))
	}
	if e.headlessExp != nil {
		e.headlessExp.Destroy()
	}
	for _, pi := range e.perImage {
		if pi != nil && pi.RenderFinished != vk.NullSemaphore {
			vk.DestroySemaphore(e.ctx.Device, pi.RenderFinished, nil)
		}
	}
	for _, f := range e.frames {
		if f == nil {
			continue
		}
		if f.SSBO != nil {
			f.SSBO.Destroy()
		}
		if f.Fence != vk.NullFence {
			vk.DestroyFence(e.ctx.Device, f.Fence, nil)
		}
		if f.ImageAvailable != vk.NullSemaphore {
			vk.DestroySemaphore(e.ctx.Device, f.ImageAvailable, nil)
		}
		if f.Pool != vk.NullHandle {
			vk.DestroyCommandPool(e.ctx.Device, f.Pool, nil)
		}
	}
	if e.pipelines != nil {
		e.pipelines.Destroy()
	}
	if e.desc != nil {
		e.desc.Destroy()
	}
	if e.meshTable != nil {
		e.meshTable.Destroy()
	}
	if e.uploadPool != vk.NullHandle && e.ctx != nil {
		vk.DestroyCommandPool(e.ctx.Device, e.uploadPool, nil)
	}
	if e.sc != nil {
		e.sc.Destroy()
	}
	if e.ctx != nil {
		e.ctx.Destroy()
	}
	if e.window != nil {
		e.window.Destroy()
		e.window = nil
	}
	glfw.Terminate()
}
