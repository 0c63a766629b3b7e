// Package recorder implements the per-frame command-buffer recording
// protocol: begin, synchronization2 barriers, dynamic
// rendering, quad draw, mesh draws, barrier, end. Grounded on
// vulkan-go-asche/instance.go's setup_command (ResetCommandBuffer,
// BeginCommandBuffer, viewport/scissor setup, bind-pipeline-then-draw
// shape), with the legacy CmdBeginRenderPass/Framebuffer model replaced
// by CmdBeginRendering and explicit image-memory barriers since the
// host has no render-pass or framebuffer objects.
package recorder

import (
	"fmt"

	vk "github.com/vulkan-go/vulkan"
	lin "github.com/xlab/linmath"

	"github.com/johnpgr/vkengine/internal/mesh"
	"github.com/johnpgr/vkengine/internal/pipeline"
	"github.com/johnpgr/vkengine/internal/verr"
)

// ClearColor is an RGBA clear value in [0,1], unconstrained per spec.
type ClearColor [4]float32

// QuadCommand mirrors the GPU-side layout written into the SSBO:
// rect=(x,y,w,h) in clip-space NDC, color=RGBA. 32 bytes.
type QuadCommand struct {
	Rect  [4]float32
	Color [4]float32
}

// MeshCommand is a mesh handle, its model matrix, and an RGBA tint.
type MeshCommand struct {
	Handle uint32
	Model  lin.Mat4x4
	Tint   [4]float32
}

// Input bundles everything the recorder needs for one frame; built by
// the scheduler from frame-slot and swapchain state.
type Input struct {
	Cmd          vk.CommandBuffer
	Image        vk.Image
	ImageView    vk.ImageView
	DepthImage   vk.Image
	DepthView    vk.ImageView
	Extent       vk.Extent2D
	Quad         pipeline.Set
	Mesh         pipeline.Set
	MeshTable    *mesh.Table
	DescSet      vk.DescriptorSet
	Clear        ClearColor
	QuadCount    int
	MeshCommands []MeshCommand
	View, Proj   lin.Mat4x4
}

// Record runs the full per-frame recording protocol.
func Record(in Input) (err error) {
	defer verr.Recover(verr.RecordFailure, &err)

	ret := vk.ResetCommandBuffer(in.Cmd, vk.CommandBufferResetFlags(vk.CommandBufferResetReleaseResourcesBit))
	if ret != vk.Success {
		return verr.New(verr.RecordFailure, fmt.Errorf("vkResetCommandBuffer: %d", ret))
	}
	ret = vk.BeginCommandBuffer(in.Cmd, &vk.CommandBufferBeginInfo{
		SType: vk.StructureTypeCommandBufferBeginInfo,
		Flags: vk.CommandBufferUsageFlags(vk.CommandBufferUsageOneTimeSubmitBit),
	})
	if ret != vk.Success {
		return verr.New(verr.RecordFailure, fmt.Errorf("vkBeginCommandBuffer: %d", ret))
	}

	colorAspect := vk.ImageSubresourceRange{
		AspectMask: vk.ImageAspectFlags(vk.ImageAspectColorBit),
		LevelCount: 1, LayerCount: 1,
	}
	depthAspect := vk.ImageSubresourceRange{
		AspectMask: vk.ImageAspectFlags(vk.ImageAspectDepthBit),
		LevelCount: 1, LayerCount: 1,
	}

	imageBarrier(in.Cmd,
		in.Image, colorAspect,
		vk.ImageLayoutUndefined, vk.ImageLayoutColorAttachmentOptimal,
		vk.PipelineStageFlags2(vk.PipelineStage2TopOfPipeBit), 0,
		vk.PipelineStageFlags2(vk.PipelineStage2ColorAttachmentOutputBit),
		vk.AccessFlags2(vk.Access2ColorAttachmentWriteBit),
	)
	imageBarrier(in.Cmd,
		in.DepthImage, depthAspect,
		vk.ImageLayoutUndefined, vk.ImageLayoutDepthStencilAttachmentOptimal,
		vk.PipelineStageFlags2(vk.PipelineStage2TopOfPipeBit), 0,
		vk.PipelineStageFlags2(vk.PipelineStage2EarlyFragmentTestsBit),
		vk.AccessFlags2(vk.Access2DepthStencilAttachmentWriteBit),
	)

	colorAttachment := vk.RenderingAttachmentInfo{
		SType:       vk.StructureTypeRenderingAttachmentInfo,
		ImageView:   in.ImageView,
		ImageLayout: vk.ImageLayoutColorAttachmentOptimal,
		LoadOp:      vk.AttachmentLoadOpClear,
		StoreOp:     vk.AttachmentStoreOpStore,
		ClearValue:  vk.NewClearValue(in.Clear[:]),
	}
	depthAttachment := vk.RenderingAttachmentInfo{
		SType:       vk.StructureTypeRenderingAttachmentInfo,
		ImageView:   in.DepthView,
		ImageLayout: vk.ImageLayoutDepthStencilAttachmentOptimal,
		LoadOp:      vk.AttachmentLoadOpClear,
		StoreOp:     vk.AttachmentStoreOpDontCare,
		ClearValue:  vk.NewClearDepthStencil(1.0, 0),
	}

	vk.CmdBeginRendering(in.Cmd, &vk.RenderingInfo{
		SType:                vk.StructureTypeRenderingInfo,
		RenderArea:           vk.Rect2D{Extent: in.Extent},
		LayerCount:           1,
		ColorAttachmentCount: 1,
		PColorAttachments:    []vk.RenderingAttachmentInfo{colorAttachment},
		PDepthAttachment:     &depthAttachment,
	})

	viewport := vk.Viewport{
		Width: float32(in.Extent.Width), Height: float32(in.Extent.Height),
		MinDepth: 0, MaxDepth: 1,
	}
	scissor := vk.Rect2D{Extent: in.Extent}
	vk.CmdSetViewport(in.Cmd, 0, 1, []vk.Viewport{viewport})
	vk.CmdSetScissor(in.Cmd, 0, 1, []vk.Rect2D{scissor})

	if in.QuadCount > 0 {
		vk.CmdBindPipeline(in.Cmd, vk.PipelineBindPointGraphics, in.Quad.Pipeline)
		vk.CmdBindDescriptorSets(in.Cmd, vk.PipelineBindPointGraphics, in.Quad.Layout,
			0, 1, []vk.DescriptorSet{in.DescSet}, 0, nil)
		vk.CmdDraw(in.Cmd, 6, uint32(in.QuadCount), 0, 0)
	}

	if len(in.MeshCommands) > 0 {
		vk.CmdBindPipeline(in.Cmd, vk.PipelineBindPointGraphics, in.Mesh.Pipeline)
		boundSlot := -1
		for _, mc := range in.MeshCommands {
			if !in.MeshTable.Valid(mc.Handle) {
				continue
			}
			slot := in.MeshTable.Get(mc.Handle)
			if int(mc.Handle) != boundSlot {
				offsets := []vk.DeviceSize{0}
				vk.CmdBindVertexBuffers(in.Cmd, 0, 1, []vk.Buffer{slot.Vertex.Handle}, offsets)
				vk.CmdBindIndexBuffer(in.Cmd, slot.Index.Handle, 0, vk.IndexTypeUint32)
				boundSlot = int(mc.Handle)
			}

			var mvp lin.Mat4x4
			mvp.Mult(&in.Proj, &in.View)
			mvp.Mult(&mvp, &mc.Model)

			pushData := make([]byte, pipeline.MeshPushConstantSize)
			writeMat4(pushData, mvp)
			writeVec4(pushData[64:], mc.Tint)
			vk.CmdPushConstants(in.Cmd, in.Mesh.Layout,
				vk.ShaderStageFlags(vk.ShaderStageVertexBit)|vk.ShaderStageFlags(vk.ShaderStageFragmentBit),
				0, pipeline.MeshPushConstantSize, unsafeBytes(pushData))

			vk.CmdDrawIndexed(in.Cmd, slot.IndexCount, 1, 0, 0, 0)
		}
	}

	vk.CmdEndRendering(in.Cmd)

	imageBarrier(in.Cmd,
		in.Image, colorAspect,
		vk.ImageLayoutColorAttachmentOptimal, vk.ImageLayoutPresentSrc,
		vk.PipelineStageFlags2(vk.PipelineStage2ColorAttachmentOutputBit),
		vk.AccessFlags2(vk.Access2ColorAttachmentWriteBit),
		vk.PipelineStageFlags2(vk.PipelineStage2BottomOfPipeBit), 0,
	)

	ret = vk.EndCommandBuffer(in.Cmd)
	if ret != vk.Success {
		return verr.New(verr.RecordFailure, fmt.Errorf("vkEndCommandBuffer: %d", ret))
	}
	return nil
}

func imageBarrier(cmd vk.CommandBuffer, img vk.Image, subresource vk.ImageSubresourceRange,
	oldLayout, newLayout vk.ImageLayout,
	srcStage vk.PipelineStageFlags2, srcAccess vk.AccessFlags2,
	dstStage vk.PipelineStageFlags2, dstAccess vk.AccessFlags2) {

	barrier := vk.ImageMemoryBarrier2{
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
		PImageMemoryBarriers:    []vk.ImageMemoryBarrier2{barrier},
	})
}
