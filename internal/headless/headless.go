// Package headless implements the frame-capture branch selected by
// --headless: no lanes, no hot reload, no input, one BMP
// file per frame. vulkan-go-asche has no export path at all, so this
// is grounded directly on the capture requirements, but reuses the
// recorder package for the visible draw and follows vulkan-go-asche's
// staged-upload style (gpubuf.go) in reverse for the image-to-buffer
// readback.
package headless

import (
	"fmt"
	"os"
	"path/filepath"

	vk "github.com/vulkan-go/vulkan"
	lin "github.com/xlab/linmath"
	"go.uber.org/zap"

	"github.com/johnpgr/vkengine/internal/gpubuf"
	"github.com/johnpgr/vkengine/internal/recorder"
	"github.com/johnpgr/vkengine/internal/swapchain"
	"github.com/johnpgr/vkengine/internal/verr"
)

// SimulatedDT is the fixed per-frame delta handed to the module in
// headless mode (a fixed simulated dt = 1/60).
const SimulatedDT float32 = 1.0 / 60.0

// Deps bundles the long-lived handles the exporter draws through; it
// does not own the swapchain or pipelines.
type Deps struct {
	Device    vk.Device
	Queue     vk.Queue
	Swapchain *swapchain.Swapchain
	Log       *zap.Logger
}

// Exporter owns the two command buffers, fence, semaphores, and staging
// buffer used to capture and read back one frame at a time.
type Exporter struct {
	deps    Deps
	pool    vk.CommandPool
	drawCmd vk.CommandBuffer
	copyCmd vk.CommandBuffer
	fence   vk.Fence
	acquire vk.Semaphore
	present vk.Semaphore
	staging *gpubuf.Buffer
	width   int
	height  int
}

// New allocates the exporter's fixed-size resources, sized for the
// swapchain's current extent. Fails if the swapchain's chosen surface
// format never probed TRANSFER_SRC support.
func New(deps Deps, memProps vk.PhysicalDeviceMemoryProperties) (*Exporter, error) {
	if !deps.Swapchain.TransferSrc {
		return nil, verr.New(verr.InitFailure, fmt.Errorf("swapchain format does not support TRANSFER_SRC; headless export unavailable"))
	}

	var pool vk.CommandPool
	ret := vk.CreateCommandPool(deps.Device, &vk.CommandPoolCreateInfo{
		SType: vk.StructureTypeCommandPoolCreateInfo,
		Flags: vk.CommandPoolCreateFlags(vk.CommandPoolCreateResetCommandBufferBit),
	}, nil, &pool)
	if ret != vk.Success {
		return nil, verr.New(verr.InitFailure, fmt.Errorf("vkCreateCommandPool: %d", ret))
	}

	cmds := make([]vk.CommandBuffer, 2)
	ret = vk.AllocateCommandBuffers(deps.Device, &vk.CommandBufferAllocateInfo{
		SType:              vk.StructureTypeCommandBufferAllocateInfo,
		CommandPool:        pool,
		Level:              vk.CommandBufferLevelPrimary,
		CommandBufferCount: 2,
	}, cmds)
	if ret != vk.Success {
		vk.DestroyCommandPool(deps.Device, pool, nil)
		return nil, verr.New(verr.InitFailure, fmt.Errorf("vkAllocateCommandBuffers: %d", ret))
	}

	var fence vk.Fence
	vk.CreateFence(deps.Device, &vk.FenceCreateInfo{SType: vk.StructureTypeFenceCreateInfo}, nil, &fence)
	var acquireSem, presentSem vk.Semaphore
	vk.CreateSemaphore(deps.Device, &vk.SemaphoreCreateInfo{SType: vk.StructureTypeSemaphoreCreateInfo}, nil, &acquireSem)
	vk.CreateSemaphore(deps.Device, &vk.SemaphoreCreateInfo{SType: vk.StructureTypeSemaphoreCreateInfo}, nil, &presentSem)

	width := int(deps.Swapchain.Extent.Width)
	height := int(deps.Swapchain.Extent.Height)
	staging, err := gpubuf.NewMapped(deps.Device, memProps, vk.DeviceSize(width*height*4), vk.BufferUsageTransferDstBit)
	if err != nil {
		return nil, err
	}

	return &Exporter{
		deps: deps, pool: pool,
		drawCmd: cmds[0], copyCmd: cmds[1],
		fence: fence, acquire: acquireSem, present: presentSem,
		staging: staging, width: width, height: height,
	}, nil
}

// Destroy releases every resource Exporter owns. Safe to call once.
func (e *Exporter) Destroy() {
	if e.staging != nil {
		e.staging.Destroy()
	}
	if e.fence != vk.NullFence {
		vk.DestroyFence(e.deps.Device, e.fence, nil)
	}
	if e.acquire != vk.NullSemaphore {
		vk.DestroySemaphore(e.deps.Device, e.acquire, nil)
	}
	if e.present != vk.NullSemaphore {
		vk.DestroySemaphore(e.deps.Device, e.present, nil)
	}
	if e.pool != vk.NullHandle {
		vk.DestroyCommandPool(e.deps.Device, e.pool, nil)
	}
}

// Capture draws one frame via the normal recorder path, copies the
// resolved color image into the staging buffer, and writes
// frame_XXXX.bmp under outputDir.
func (e *Exporter) Capture(index int, outputDir string, in recorder.Input, view, proj lin.Mat4x4) error {
	sc := e.deps.Swapchain

	var imageIndex uint32
	ret := vk.AcquireNextImage(e.deps.Device, sc.Handle, vk.MaxUint64, e.acquire, vk.NullFence, &imageIndex)
	if ret != vk.Success && ret != vk.Suboptimal {
		return verr.New(verr.SwapchainRecreateNeeded, fmt.Errorf("vkAcquireNextImage: %d", ret))
	}

	if ret := vk.ResetCommandPool(e.deps.Device, e.pool, 0); ret != vk.Success {
		return verr.New(verr.RecordFailure, fmt.Errorf("vkResetCommandPool: %d", ret))
	}

	in.Cmd = e.drawCmd
	in.Image = sc.Images[imageIndex]
	in.ImageView = sc.Views[imageIndex]
	in.DepthImage = sc.Depth.Handle
	in.DepthView = sc.Depth.View
	in.Extent = sc.Extent
	in.View, in.Proj = view, proj
	if err := recorder.Record(in); err != nil {
		return err
	}

	if err := e.recordCopy(sc.Images[imageIndex]); err != nil {
		return err
	}

	waitStage := vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit)
	ret = vk.QueueSubmit(e.deps.Queue, 1, []vk.SubmitInfo{{
		SType:                vk.StructureTypeSubmitInfo,
		WaitSemaphoreCount:   1,
		PWaitSemaphores:      []vk.Semaphore{e.acquire},
		PWaitDstStageMask:    []vk.PipelineStageFlags{waitStage},
		CommandBufferCount:   2,
		PCommandBuffers:      []vk.CommandBuffer{e.drawCmd, e.copyCmd},
		SignalSemaphoreCount: 1,
		PSignalSemaphores:    []vk.Semaphore{e.present},
	}}, e.fence)
	if ret != vk.Success {
		return verr.New(verr.RecordFailure, fmt.Errorf("vkQueueSubmit: %d", ret))
	}

	vk.WaitForFences(e.deps.Device, 1, []vk.Fence{e.fence}, vk.True, vk.MaxUint64)
	vk.ResetFences(e.deps.Device, 1, []vk.Fence{e.fence})

	pixels := make([]byte, e.width*e.height*4)
	e.staging.Read(pixels)

	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return verr.New(verr.InitFailure, fmt.Errorf("create output dir: %w", err))
	}
	path := filepath.Join(outputDir, fmt.Sprintf("frame_%04d.bmp", index))
	if err := os.WriteFile(path, encodeBMP(e.width, e.height, pixels), 0o644); err != nil {
		return verr.New(verr.InitFailure, fmt.Errorf("write bmp: %w", err))
	}

	ret = vk.QueuePresent(e.deps.Queue, &vk.PresentInfo{
		SType:              vk.StructureTypePresentInfo,
		WaitSemaphoreCount: 1,
		PWaitSemaphores:    []vk.Semaphore{e.present},
		SwapchainCount:     1,
		PSwapchains:        []vk.Swapchain{sc.Handle},
		PImageIndices:      []uint32{imageIndex},
	})
	if ret != vk.Success && ret != vk.Suboptimal && ret != vk.ErrorOutOfDate {
		return verr.New(verr.DeviceLost, fmt.Errorf("vkQueuePresent: %d", ret))
	}
	return nil
}

// recordCopy builds the second command buffer: PRESENT_SRC ->
// TRANSFER_SRC_OPTIMAL, copy into the staging buffer, TRANSFER_SRC_OPTIMAL
// -> PRESENT_SRC.
func (e *Exporter) recordCopy(image vk.Image) error {
	ret := vk.BeginCommandBuffer(e.copyCmd, &vk.CommandBufferBeginInfo{
		SType: vk.StructureTypeCommandBufferBeginInfo,
		Flags: vk.CommandBufferUsageFlags(vk.CommandBufferUsageOneTimeSubmitBit),
	})
	if ret != vk.Success {
		return verr.New(verr.RecordFailure, fmt.Errorf("vkBeginCommandBuffer(copy): %d", ret))
	}

	aspect := vk.ImageSubresourceRange{
		AspectMask: vk.ImageAspectFlags(vk.ImageAspectColorBit),
		LevelCount: 1, LayerCount: 1,
	}
	barrier(e.copyCmd, image, aspect,
		vk.ImageLayoutPresentSrc, vk.ImageLayoutTransferSrcOptimal,
		vk.PipelineStageFlags2(vk.PipelineStage2ColorAttachmentOutputBit), 0,
		vk.PipelineStageFlags2(vk.PipelineStage2TransferBit), vk.AccessFlags2(vk.Access2TransferReadBit),
	)

	vk.CmdCopyImageToBuffer(e.copyCmd, image, vk.ImageLayoutTransferSrcOptimal, e.staging.Handle, 1, []vk.BufferImageCopy{{
		ImageSubresource: vk.ImageSubresourceLayers{
			AspectMask: vk.ImageAspectFlags(vk.ImageAspectColorBit), LayerCount: 1,
		},
		ImageExtent: vk.Extent3D{Width: uint32(e.width), Height: uint32(e.height), Depth: 1},
	}})

	barrier(e.copyCmd, image, aspect,
		vk.ImageLayoutTransferSrcOptimal, vk.ImageLayoutPresentSrc,
		vk.PipelineStageFlags2(vk.PipelineStage2TransferBit), vk.AccessFlags2(vk.Access2TransferReadBit),
		vk.PipelineStageFlags2(vk.PipelineStage2BottomOfPipeBit), 0,
	)

	ret = vk.EndCommandBuffer(e.copyCmd)
	if ret != vk.Success {
		return verr.New(verr.RecordFailure, fmt.Errorf("vkEndCommandBuffer(copy): %d", ret))
	}
	return nil
}

func barrier(cmd vk.CommandBuffer, img vk.Image, subresource vk.ImageSubresourceRange,
	oldLayout, newLayout vk.ImageLayout,
	srcStage vk.PipelineStageFlags2, srcAccess vk.AccessFlags2,
	dstStage vk.PipelineStageFlags2, dstAccess vk.AccessFlags2) {

	b := vk.ImageMemoryBarrier2{
		SType:               vk.StructureTypeImageMemoryBarrier2,
		SrcStageMask:        srcStage,
		SrcAccessMask:       srcAccess,
		DstStageMask:        dstStage,
		DstAccessMask:       dstAccess,
		OldLayout:           oldLayout,
		NewLayout:           newLayout,
		SrcQueueFamilyIndex: vk.QueueFamilyIgnored,
		DstQueueFamilyIndex: vk.QueueFamilyIgnored,
		Image:               img,
		SubresourceRange:    subresource,
	}
	vk.CmdPipelineBarrier2(cmd, &vk.DependencyInfo{
		SType:                   vk.StructureTypeDependencyInfo,
		ImageMemoryBarrierCount: 1,
		PImageMemoryBarriers:    []vk.ImageMemoryBarrier2{b},
	})
}
