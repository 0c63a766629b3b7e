// Package scheduler drives the per-frame state machine:
// wait-fence, copy-upload, acquire, record, submit, present, advance,
// with recreation branches on OUT_OF_DATE/SUBOPTIMAL. Grounded on
// vulkan-go-asche/instance.go's Update/acquire_next_image/
// submit_pipeline/present_image, but deliberately reordered: the
// teacher resets the frame's fence inside acquire_next_image, before
// the command buffer is recorded or submitted. Spec §4.8 requires the
// fence reset to happen only after acquire and record succeed,
// immediately before submit, to avoid a deadlock where a failed
// acquire leaves the fence reset with nothing left to re-signal it.
package scheduler

import (
	"fmt"
	"math"

	vk "github.com/vulkan-go/vulkan"
	lin "github.com/xlab/linmath"
	"go.uber.org/zap"

	"github.com/johnpgr/vkengine/internal/gpubuf"
	"github.com/johnpgr/vkengine/internal/mesh"
	"github.com/johnpgr/vkengine/internal/pipeline"
	"github.com/johnpgr/vkengine/internal/recorder"
	"github.com/johnpgr/vkengine/internal/swapchain"
	"github.com/johnpgr/vkengine/internal/verr"
)

const MaxFramesInFlight = 2
const MaxQuads = 4096

// FrameSlot owns the per-frame-in-flight resources (spec's "Frame
// slot"): SSBO, descriptor set, command pool/buffer, image-available
// semaphore, fence.
type FrameSlot struct {
	Pool           vk.CommandPool
	Cmd            vk.CommandBuffer
	ImageAvailable vk.Semaphore
	Fence          vk.Fence
	SSBO           *gpubuf.Buffer
	DescSet        vk.DescriptorSet
}

// PerImage owns the resources indexed by acquired swapchain image:
// currently just the render-finished semaphore (forced
// per-image, not per-frame, since acquire order and frame order may
// disagree).
type PerImage struct {
	RenderFinished vk.Semaphore
}

// Deps bundles the long-lived handles the scheduler needs but does not
// own (device/queue/swapchain/pipelines), so callers can rebuild the
// swapchain and pipelines out-of-band on recreation.
type Deps struct {
	Device        vk.Device
	Queue         vk.Queue
	Swapchain     *swapchain.Swapchain
	Pipelines     *pipeline.Pipelines
	MeshTable     *mesh.Table
	MemProps      vk.PhysicalDeviceMemoryProperties
	Log           *zap.Logger
}

// FrameInput is what lane 0 hands the scheduler each iteration: the
// module-accumulated draw commands and the current camera matrices.
type FrameInput struct {
	Clear        recorder.ClearColor
	Quads        []recorder.QuadCommand
	MeshCommands []recorder.MeshCommand
	View, Proj   lin.Mat4x4
}

// Scheduler owns the frame slots and per-image semaphores and advances
// current_frame round-robin.
type Scheduler struct {
	deps         Deps
	frames       [MaxFramesInFlight]*FrameSlot
	perImage     []*PerImage
	currentFrame int
}

func New(deps Deps, frames [MaxFramesInFlight]*FrameSlot, perImage []*PerImage) *Scheduler {
	return &Scheduler{deps: deps, frames: frames, perImage: perImage}
}

// RunFrame executes one full state-machine iteration. A fence timeout
// returns nil having done no work. Errors of Kind DeviceLost and
// RecordFailure are fatal to the caller; other returned errors (a failed
// acquire, a failed recreation) are left to the caller to log.
func (s *Scheduler) RunFrame(input FrameInput) error {
	frame := s.frames[s.currentFrame]

	// WAIT_FENCE
	ret := vk.WaitForFences(s.deps.Device, 1, []vk.Fence{frame.Fence}, vk.True, vk.MaxUint64)
	if ret == vk.Timeout {
		return nil
	}
	if ret != vk.Success {
		return verr.New(verr.DeviceLost, fmt.Errorf("vkWaitForFences: %d", ret))
	}

	// COPY_UPLOAD
	n := len(input.Quads)
	if n > MaxQuads {
		n = MaxQuads
	}
	for i := 0; i < n; i++ {
		writeQuadCommand(frame.SSBO, i, input.Quads[i])
	}

	// ACQUIRE
	var imageIndex uint32
	ret = vk.AcquireNextImage(s.deps.Device, s.deps.Swapchain.Handle, vk.MaxUint64,
		frame.ImageAvailable, vk.NullFence, &imageIndex)
	acquireSuboptimal := ret == vk.Suboptimal
	if ret == vk.ErrorOutOfDate {
		return s.recreate()
	}
	if ret != vk.Success && !acquireSuboptimal {
		return verr.New(verr.SwapchainRecreateNeeded, fmt.Errorf("vkAcquireNextImage: %d", ret))
	}

	// RESET_CMD / RECORD
	ret = vk.ResetCommandPool(s.deps.Device, frame.Pool, 0)
	if ret != vk.Success {
		return verr.New(verr.RecordFailure, fmt.Errorf("vkResetCommandPool: %d", ret))
	}
	sc := s.deps.Swapchain
	if err := recorder.Record(recorder.Input{
		Cmd:          frame.Cmd,
		Image:        sc.Images[imageIndex],
		ImageView:    sc.Views[imageIndex],
		DepthImage:   sc.Depth.Handle,
		DepthView:    sc.Depth.View,
		Extent:       sc.Extent,
		Quad:         s.deps.Pipelines.Quad,
		Mesh:         s.deps.Pipelines.Mesh,
		MeshTable:    s.deps.MeshTable,
		DescSet:      frame.DescSet,
		Clear:        input.Clear,
		QuadCount:    n,
		MeshCommands: input.MeshCommands,
		View:         input.View,
		Proj:         input.Proj,
	}); err != nil {
		return err
	}

	// RESET_FENCE — only now, after acquire+record succeeded.
	vk.ResetFences(s.deps.Device, 1, []vk.Fence{frame.Fence})

	// SUBMIT
	waitStage := vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit)
	renderFinished := s.perImage[imageIndex].RenderFinished
	ret = vk.QueueSubmit(s.deps.Queue, 1, []vk.SubmitInfo{{
		SType:                vk.StructureTypeSubmitInfo,
		WaitSemaphoreCount:   1,
		PWaitSemaphores:      []vk.Semaphore{frame.ImageAvailable},
		PWaitDstStageMask:    []vk.PipelineStageFlags{waitStage},
		CommandBufferCount:   1,
		PCommandBuffers:      []vk.CommandBuffer{frame.Cmd},
		SignalSemaphoreCount: 1,
		PSignalSemaphores:    []vk.Semaphore{renderFinished},
	}}, frame.Fence)
	if ret != vk.Success {
		return verr.New(verr.RecordFailure, fmt.Errorf("vkQueueSubmit: %d", ret))
	}

	// PRESENT
	ret = vk.QueuePresent(s.deps.Queue, &vk.PresentInfo{
		SType:              vk.StructureTypePresentInfo,
		WaitSemaphoreCount: 1,
		PWaitSemaphores:    []vk.Semaphore{renderFinished},
		SwapchainCount:     1,
		PSwapchains:        []vk.Swapchain{sc.Handle},
		PImageIndices:      []uint32{imageIndex},
	})
	if ret == vk.ErrorOutOfDate || ret == vk.Suboptimal || acquireSuboptimal {
		if err := s.recreate(); err != nil {
			return err
		}
	} else if ret != vk.Success {
		return verr.New(verr.DeviceLost, fmt.Errorf("vkQueuePresent: %d", ret))
	}

	// ADVANCE
	s.currentFrame = (s.currentFrame + 1) % MaxFramesInFlight
	return nil
}

// recreate rebuilds the swapchain, per-image semaphores, and both
// pipelines (format-dependent). Destroying and recreating the
// semaphores here (rather than in C5) keeps ownership of per-image
// sync primitives in the scheduler, since their count must track the
// new image count exactly.
func (s *Scheduler) recreate() error {
	for _, pi := range s.perImage {
		if pi.RenderFinished != vk.NullSemaphore {
			vk.DestroySemaphore(s.deps.Device, pi.RenderFinished, nil)
		}
	}

	if err := s.deps.Swapchain.Recreate(s.deps.MemProps); err != nil {
		return err
	}

	count := len(s.deps.Swapchain.Images)
	perImage := make([]*PerImage, count)
	for i := range perImage {
		var sem vk.Semaphore
		vk.CreateSemaphore(s.deps.Device, &vk.SemaphoreCreateInfo{SType: vk.StructureTypeSemaphoreCreateInfo}, nil, &sem)
		perImage[i] = &PerImage{RenderFinished: sem}
	}
	s.perImage = perImage

	if err := s.deps.Pipelines.Rebuild(s.deps.Swapchain.Format, swapchain.DepthFormat); err != nil {
		return err
	}
	s.deps.Log.Info("swapchain and pipelines rebuilt on recreate", zap.Int("image_count", count))
	return nil
}

func writeQuadCommand(ssbo *gpubuf.Buffer, index int, q recorder.QuadCommand) {
	const stride = 32
	buf := make([]byte, stride)
	for i, f := range q.Rect {
		putF32(buf[i*4:], f)
	}
	for i, f := range q.Color {
		putF32(buf[16+i*4:], f)
	}
	ssbo.WriteAt(index*stride, buf)
}

func putF32(b []byte, f float32) {
	bits := math.Float32bits(f)
	b[0] = byte(bits)
	b[1] = byte(bits >> 8)
	b[2] = byte(bits >> 16)
	b[3] = byte(bits >> 24)
}
