// Package gpubuf implements mapped and device-local buffer creation plus
// staged upload and depth-image creation, grounded on
// vulkan-go-asche/extensions.go's FindRequiredMemoryType/CreateBuffer.
package gpubuf

import (
	"fmt"
	"unsafe"

	vk "github.com/vulkan-go/vulkan"

	"github.com/johnpgr/vkengine/internal/verr"
)

// Buffer is an owned Vulkan buffer plus its backing memory.
type Buffer struct {
	device vk.Device
	Handle vk.Buffer
	Memory vk.DeviceMemory
	Size   vk.DeviceSize
	mapped unsafe.Pointer // non-nil for persistently-mapped buffers
}

// Destroy releases the buffer's memory and handle. Safe to call once.
func (b *Buffer) Destroy() {
	if b.device == nil {
		return
	}
	if b.mapped != nil {
		vk.UnmapMemory(b.device, b.Memory)
		b.mapped = nil
	}
	vk.FreeMemory(b.device, b.Memory, nil)
	vk.DestroyBuffer(b.device, b.Handle, nil)
	b.device = nil
}

// Write copies data into a persistently-mapped buffer. On a buffer that
// is not mapped (one not returned by NewMapped) it does nothing.
func (b *Buffer) Write(data []byte) {
	if b.mapped == nil || len(data) == 0 {
		return
	}
	n := vk.Memcopy(b.mapped, data)
	_ = n // best-effort, mirrors vulkan-go-asche's warn-rather-than-fail policy
}

// WriteAt copies data into a persistently-mapped buffer at a byte
// offset, used for the per-quad writes into a frame's SSBO. On a buffer
// that is not mapped it does nothing.
func (b *Buffer) WriteAt(offset int, data []byte) {
	if b.mapped == nil || len(data) == 0 {
		return
	}
	n := vk.Memcopy(unsafe.Pointer(uintptr(b.mapped)+uintptr(offset)), data)
	_ = n
}

// Read copies out of a persistently-mapped buffer into dst, the inverse
// of Write — used by the headless exporter to pull pixel data back off
// a staging buffer after CmdCopyImageToBuffer.
func (b *Buffer) Read(dst []byte) {
	if b.mapped == nil || len(dst) == 0 {
		return
	}
	src := unsafe.Slice((*byte)(b.mapped), len(dst))
	copy(dst, src)
}

// FindMemoryType walks memoryTypeBits ("first type whose bit
// is in memoryTypeBits and whose property flags match exactly") and
// returns its index.
func FindMemoryType(props vk.PhysicalDeviceMemoryProperties, typeBits uint32, want vk.MemoryPropertyFlagBits) (uint32, bool) {
	for i := uint32(0); i < vk.MaxMemoryTypes; i++ {
		if typeBits&(1<<i) == 0 {
			continue
		}
		props.MemoryTypes[i].Deref()
		if vk.MemoryPropertyFlagBits(props.MemoryTypes[i].PropertyFlags) == want {
			return i, true
		}
	}
	return 0, false
}

// NewMapped creates a host-visible + host-coherent buffer, mapped for its
// entire lifetime, used for SSBOs and staging buffers.
func NewMapped(device vk.Device, memProps vk.PhysicalDeviceMemoryProperties, size vk.DeviceSize, usage vk.BufferUsageFlagBits) (*Buffer, error) {
	var handle vk.Buffer
	ret := vk.CreateBuffer(device, &vk.BufferCreateInfo{
		SType: vk.StructureTypeBufferCreateInfo,
		Usage: vk.BufferUsageFlags(usage),
		Size:  size,
	}, nil, &handle)
	if ret != vk.Success {
		return nil, verr.New(verr.GpuAllocFailure, fmt.Errorf("vkCreateBuffer: %d", ret))
	}

	var reqs vk.MemoryRequirements
	vk.GetBufferMemoryRequirements(device, handle, &reqs)
	reqs.Deref()

	memType, ok := FindMemoryType(memProps, reqs.MemoryTypeBits,
		vk.MemoryPropertyHostVisibleBit|vk.MemoryPropertyHostCoherentBit)
	if !ok {
		vk.DestroyBuffer(device, handle, nil)
		return nil, verr.New(verr.GpuAllocFailure, fmt.Errorf("no host-visible+coherent memory type"))
	}

	var mem vk.DeviceMemory
	ret = vk.AllocateMemory(device, &vk.MemoryAllocateInfo{
		SType:           vk.StructureTypeMemoryAllocateInfo,
		AllocationSize:  reqs.Size,
		MemoryTypeIndex: memType,
	}, nil, &mem)
	if ret != vk.Success {
		vk.DestroyBuffer(device, handle, nil)
		return nil, verr.New(verr.GpuAllocFailure, fmt.Errorf("vkAllocateMemory: %d", ret))
	}
	vk.BindBufferMemory(device, handle, mem, 0)

	var ptr unsafe.Pointer
	ret = vk.MapMemory(device, mem, 0, size, 0, &ptr)
	if ret != vk.Success {
		vk.FreeMemory(device, mem, nil)
		vk.DestroyBuffer(device, handle, nil)
		return nil, verr.New(verr.GpuAllocFailure, fmt.Errorf("vkMapMemory: %d", ret))
	}

	return &Buffer{device: device, Handle: handle, Memory: mem, Size: size, mapped: ptr}, nil
}

// NewDeviceLocal allocates a device-local buffer with usage|TRANSFER_DST
// and populates it via a staged upload: a temporary host-visible staging
// buffer is mapped, filled, copied via a one-time command buffer on the
// graphics queue, then waited on and freed.
func NewDeviceLocal(device vk.Device, memProps vk.PhysicalDeviceMemoryProperties,
	pool vk.CommandPool, queue vk.Queue, data []byte, usage vk.BufferUsageFlagBits) (*Buffer, error) {

	size := vk.DeviceSize(len(data))
	staging, err := NewMapped(device, memProps, size, vk.BufferUsageTransferSrcBit)
	if err != nil {
		return nil, err
	}
	defer staging.Destroy()
	staging.Write(data)

	var handle vk.Buffer
	ret := vk.CreateBuffer(device, &vk.BufferCreateInfo{
		SType: vk.StructureTypeBufferCreateInfo,
		Usage: vk.BufferUsageFlags(usage) | vk.BufferUsageFlags(vk.BufferUsageTransferDstBit),
		Size:  size,
	}, nil, &handle)
	if ret != vk.Success {
		return nil, verr.New(verr.GpuAllocFailure, fmt.Errorf("vkCreateBuffer: %d", ret))
	}

	var reqs vk.MemoryRequirements
	vk.GetBufferMemoryRequirements(device, handle, &reqs)
	reqs.Deref()
	memType, ok := FindMemoryType(memProps, reqs.MemoryTypeBits, vk.MemoryPropertyDeviceLocalBit)
	if !ok {
		vk.DestroyBuffer(device, handle, nil)
		return nil, verr.New(verr.GpuAllocFailure, fmt.Errorf("no device-local memory type"))
	}

	var mem vk.DeviceMemory
	ret = vk.AllocateMemory(device, &vk.MemoryAllocateInfo{
		SType:           vk.StructureTypeMemoryAllocateInfo,
		AllocationSize:  reqs.Size,
		MemoryTypeIndex: memType,
	}, nil, &mem)
	if ret != vk.Success {
		vk.DestroyBuffer(device, handle, nil)
		return nil, verr.New(verr.GpuAllocFailure, fmt.Errorf("vkAllocateMemory: %d", ret))
	}
	vk.BindBufferMemory(device, handle, mem, 0)

	cmdBufs := make([]vk.CommandBuffer, 1)
	ret = vk.AllocateCommandBuffers(device, &vk.CommandBufferAllocateInfo{
		SType:              vk.StructureTypeCommandBufferAllocateInfo,
		CommandPool:        pool,
		Level:              vk.CommandBufferLevelPrimary,
		CommandBufferCount: 1,
	}, cmdBufs)
	cmd := cmdBufs[0]
	if ret != vk.Success {
		vk.FreeMemory(device, mem, nil)
		vk.DestroyBuffer(device, handle, nil)
		return nil, verr.New(verr.GpuAllocFailure, fmt.Errorf("vkAllocateCommandBuffers: %d", ret))
	}

	vk.BeginCommandBuffer(cmd, &vk.CommandBufferBeginInfo{
		SType: vk.StructureTypeCommandBufferBeginInfo,
		Flags: vk.CommandBufferUsageFlags(vk.CommandBufferUsageOneTimeSubmitBit),
	})
	vk.CmdCopyBuffer(cmd, staging.Handle, handle, 1, []vk.BufferCopy{{
		SrcOffset: 0, DstOffset: 0, Size: size,
	}})
	vk.EndCommandBuffer(cmd)

	ret = vk.QueueSubmit(queue, 1, []vk.SubmitInfo{{
		SType:              vk.StructureTypeSubmitInfo,
		CommandBufferCount: 1,
		PCommandBuffers:    []vk.CommandBuffer{cmd},
	}}, vk.NullFence)
	if ret != vk.Success {
		vk.FreeCommandBuffers(device, pool, 1, []vk.CommandBuffer{cmd})
		vk.FreeMemory(device, mem, nil)
		vk.DestroyBuffer(device, handle, nil)
		return nil, verr.New(verr.GpuAllocFailure, fmt.Errorf("vkQueueSubmit: %d", ret))
	}
	vk.QueueWaitIdle(queue)
	vk.FreeCommandBuffers(device, pool, 1, []vk.CommandBuffer{cmd})

	return &Buffer{device: device, Handle: handle, Memory: mem, Size: size}, nil
}

// Image is an owned Vulkan image, its view, and its backing memory.
type Image struct {
	device vk.Device
	Handle vk.Image
	View   vk.ImageView
	Memory vk.DeviceMemory
	Format vk.Format
}

func (img *Image) Destroy() {
	if img.device == nil {
		return
	}
	if img.View != vk.NullImageView {
		vk.DestroyImageView(img.device, img.View, nil)
	}
	vk.FreeMemory(img.device, img.Memory, nil)
	vk.DestroyImage(img.device, img.Handle, nil)
	img.device = nil
}

// NewDepthImage creates the shared depth attachment: D32_SFLOAT, optimal
// tiling, device-local, DEPTH_STENCIL_ATTACHMENT usage, with a matching
// depth-aspect view.
func NewDepthImage(device vk.Device, memProps vk.PhysicalDeviceMemoryProperties, width, height uint32) (*Image, error) {
	const format = vk.FormatD32Sfloat

	var handle vk.Image
	ret := vk.CreateImage(device, &vk.ImageCreateInfo{
		SType:     vk.StructureTypeImageCreateInfo,
		ImageType: vk.ImageType2d,
		Format:    format,
		Extent:    vk.Extent3D{Width: width, Height: height, Depth: 1},
		MipLevels: 1, ArrayLayers: 1,
		Samples: vk.SampleCount1Bit,
		Tiling:  vk.ImageTilingOptimal,
		Usage:   vk.ImageUsageFlags(vk.ImageUsageDepthStencilAttachmentBit),
		Sharing: vk.SharingModeExclusive,
		Layout:  vk.ImageLayoutUndefined,
	}, nil, &handle)
	if ret != vk.Success {
		return nil, verr.New(verr.GpuAllocFailure, fmt.Errorf("vkCreateImage(depth): %d", ret))
	}

	var reqs vk.MemoryRequirements
	vk.GetImageMemoryRequirements(device, handle, &reqs)
	reqs.Deref()
	memType, ok := FindMemoryType(memProps, reqs.MemoryTypeBits, vk.MemoryPropertyDeviceLocalBit)
	if !ok {
		vk.DestroyImage(device, handle, nil)
		return nil, verr.New(verr.GpuAllocFailure, fmt.Errorf("no device-local memory type for depth image"))
	}

	var mem vk.DeviceMemory
	ret = vk.AllocateMemory(device, &vk.MemoryAllocateInfo{
		SType: vk.StructureTypeMemoryAllocateInfo, AllocationSize: reqs.Size, MemoryTypeIndex: memType,
	}, nil, &mem)
	if ret != vk.Success {
		vk.DestroyImage(device, handle, nil)
		return nil, verr.New(verr.GpuAllocFailure, fmt.Errorf("vkAllocateMemory(depth): %d", ret))
	}
	vk.BindImageMemory(device, handle, mem, 0)

	var view vk.ImageView
	ret = vk.CreateImageView(device, &vk.ImageViewCreateInfo{
		SType:    vk.StructureTypeImageViewCreateInfo,
		Image:    handle,
		ViewType: vk.ImageViewType2d,
		Format:   format,
		SubresourceRange: vk.ImageSubresourceRange{
			AspectMask: vk.ImageAspectFlags(vk.ImageAspectDepthBit),
			LevelCount: 1, LayerCount: 1,
		},
	}, nil, &view)
	if ret != vk.Success {
		vk.FreeMemory(device, mem, nil)
		vk.DestroyImage(device, handle, nil)
		return nil, verr.New(verr.GpuAllocFailure, fmt.Errorf("vkCreateImageView(depth): %d", ret))
	}

	return &Image{device: device, Handle: handle, View: view, Memory: mem, Format: format}, nil
}
