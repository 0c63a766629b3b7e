// Package swapchain implements surface format/extent/present-mode
// negotiation, image+view and depth-attachment creation, and recreation
// grounded on vulkan-go-asche/swapchain.go's NewCoreSwapchain
// and CreateFrameImageView/CreateFrameBuffer, extended with MAILBOX
// preference, a format-preference order, and the zero-framebuffer
// WaitEvents block vulkan-go-asche's resize() omits.
package swapchain

import (
	"fmt"

	"github.com/go-gl/glfw/v3.3/glfw"
	vk "github.com/vulkan-go/vulkan"
	"go.uber.org/zap"

	"github.com/johnpgr/vkengine/internal/arena"
	"github.com/johnpgr/vkengine/internal/gpubuf"
	"github.com/johnpgr/vkengine/internal/verr"
	"github.com/johnpgr/vkengine/internal/vkctx"
)

const DepthFormat = vk.FormatD32Sfloat

// formatPreference is the ordered list: SRGB first, then UNORM. When
// neither is offered, chooseFormat takes the first format the surface
// reports; no further format-support query is made.
var formatPreference = []vk.SurfaceFormat{
	{Format: vk.FormatB8g8r8a8Srgb, ColorSpace: vk.ColorSpaceSrgbNonlinear},
	{Format: vk.FormatB8g8r8a8Unorm, ColorSpace: vk.ColorSpaceSrgbNonlinear},
}

// Swapchain owns the handle, images/views, and the shared depth
// attachment. Consumers (recorder, scheduler) hold no references that
// outlive a Recreate call — they re-fetch from this struct each frame.
type Swapchain struct {
	device  vk.Device
	gpu     vk.PhysicalDevice
	surface vk.Surface
	window  *glfw.Window

	sharing        vkctx.SharingMode
	graphicsFamily uint32
	presentFamily  uint32

	// arena backs the Images/Views mirror slices. Reset on every
	// recreation, so it never accumulates stale generations.
	arena *arena.Arena

	Handle      vk.Swapchain
	Format      vk.Format
	Extent      vk.Extent2D
	Images      []vk.Image
	Views       []vk.ImageView
	Depth       *gpubuf.Image
	TransferSrc bool // true when the swapchain also supports TRANSFER_SRC (headless exporter)

	log *zap.Logger
}

// New creates the swapchain for the first time (oldSwapchain = null).
// sharing/graphicsFamily/presentFamily come straight from the Context
// that selected the queue families: CONCURRENT across both families
// when they differ, EXCLUSIVE otherwise.
func New(device vk.Device, gpu vk.PhysicalDevice, surface vk.Surface, window *glfw.Window, memProps vk.PhysicalDeviceMemoryProperties, sharing vkctx.SharingMode, graphicsFamily, presentFamily uint32, swapArena *arena.Arena, log *zap.Logger) (*Swapchain, error) {
	sc := &Swapchain{
		device:         device,
		gpu:            gpu,
		surface:        surface,
		window:         window,
		sharing:        sharing,
		graphicsFamily: graphicsFamily,
		presentFamily:  presentFamily,
		arena:          swapArena,
		log:            log,
	}
	if err := sc.build(vk.NullSwapchain, memProps); err != nil {
		return nil, err
	}
	return sc, nil
}

// Recreate waits for the device to go idle, blocks on a zero-sized
// framebuffer (a resize-storm supplement),
// destroys the old images/views/depth (but chains OldSwapchain so
// presentation isn't interrupted), and rebuilds.
func (sc *Swapchain) Recreate(memProps vk.PhysicalDeviceMemoryProperties) error {
	vk.DeviceWaitIdle(sc.device)

	for {
		w, h := sc.window.GetFramebufferSize()
		if w > 0 && h > 0 {
			break
		}
		if sc.window.ShouldClose() {
			return verr.New(verr.SwapchainRecreateNeeded, fmt.Errorf("window closing during zero-framebuffer wait"))
		}
		glfw.WaitEvents()
	}

	old := sc.Handle
	sc.destroyImagesAndViews()
	sc.arena.Reset()
	if err := sc.build(old, memProps); err != nil {
		return err
	}
	if old != vk.NullSwapchain {
		vk.DestroySwapchain(sc.device, old, nil)
	}
	return nil
}

func (sc *Swapchain) build(old vk.Swapchain, memProps vk.PhysicalDeviceMemoryProperties) (err error) {
	defer verr.Recover(verr.InitFailure, &err)

	var caps vk.SurfaceCapabilities
	vk.GetPhysicalDeviceSurfaceCapabilities(sc.gpu, sc.surface, &caps)
	caps.Deref()
	caps.CurrentExtent.Deref()

	extent := caps.CurrentExtent
	if extent.Width == vk.MaxUint32 {
		w, h := sc.window.GetFramebufferSize()
		extent = vk.Extent2D{Width: uint32(w), Height: uint32(h)}
	}
	sc.Extent = extent

	format, ferr := sc.chooseFormat()
	if ferr != nil {
		return verr.New(verr.InitFailure, ferr)
	}
	sc.Format = format.Format

	presentMode := sc.choosePresentMode()

	minImages := caps.MinImageCount + 1
	if caps.MaxImageCount > 0 && minImages > caps.MaxImageCount {
		minImages = caps.MaxImageCount
	}

	usage := vk.ImageUsageFlags(vk.ImageUsageColorAttachmentBit)
	sc.TransferSrc = sc.probeTransferSrc(format.Format)
	if sc.TransferSrc {
		usage |= vk.ImageUsageFlags(vk.ImageUsageTransferSrcBit)
	}

	preTransform := caps.CurrentTransform
	if vk.SurfaceTransformFlagBits(caps.SupportedTransforms)&vk.SurfaceTransformIdentityBit != 0 {
		preTransform = vk.SurfaceTransformIdentityBit
	}

	createInfo := vk.SwapchainCreateInfo{
		SType:            vk.StructureTypeSwapchainCreateInfo,
		Surface:          sc.surface,
		MinImageCount:    minImages,
		ImageFormat:      format.Format,
		ImageColorSpace:  format.ColorSpace,
		ImageExtent:      extent,
		ImageArrayLayers: 1,
		ImageUsage:       usage,
		ImageSharingMode: vk.SharingModeExclusive,
		PreTransform:     preTransform,
		CompositeAlpha:   vk.CompositeAlphaOpaqueBit,
		PresentMode:      presentMode,
		Clipped:          vk.True,
		OldSwapchain:     old,
	}
	if sc.sharing == vkctx.Concurrent {
		createInfo.ImageSharingMode = vk.SharingModeConcurrent
		createInfo.QueueFamilyIndexCount = 2
		createInfo.PQueueFamilyIndices = []uint32{sc.graphicsFamily, sc.presentFamily}
	}

	var handle vk.Swapchain
	ret := vk.CreateSwapchain(sc.device, &createInfo, nil, &handle)
	if ret != vk.Success {
		return verr.New(verr.InitFailure, fmt.Errorf("vkCreateSwapchain: %d", ret))
	}
	sc.Handle = handle

	var count uint32
	vk.GetSwapchainImages(sc.device, handle, &count, nil)
	images := arena.AllocT[vk.Image](sc.arena, int(count))
	vk.GetSwapchainImages(sc.device, handle, &count, images)
	sc.Images = images

	views := arena.AllocT[vk.ImageView](sc.arena, int(count))
	for i, img := range images {
		var view vk.ImageView
		ret := vk.CreateImageView(sc.device, &vk.ImageViewCreateInfo{
			SType:    vk.StructureTypeImageViewCreateInfo,
			Image:    img,
			ViewType: vk.ImageViewType2d,
			Format:   format.Format,
			Components: vk.ComponentMapping{
				R: vk.ComponentSwizzleIdentity, G: vk.ComponentSwizzleIdentity,
				B: vk.ComponentSwizzleIdentity, A: vk.ComponentSwizzleIdentity,
			},
			SubresourceRange: vk.ImageSubresourceRange{
				AspectMask: vk.ImageAspectFlags(vk.ImageAspectColorBit),
				LevelCount: 1, LayerCount: 1,
			},
		}, nil, &view)
		if ret != vk.Success {
			return verr.New(verr.InitFailure, fmt.Errorf("vkCreateImageView: %d", ret))
		}
		views[i] = view
	}
	sc.Views = views

	depth, derr := gpubuf.NewDepthImage(sc.device, memProps, extent.Width, extent.Height)
	if derr != nil {
		return derr
	}
	sc.Depth = depth

	sc.log.Info("swapchain (re)built",
		zap.Uint32("width", extent.Width), zap.Uint32("height", extent.Height),
		zap.Uint32("image_count", count), zap.Bool("mailbox", presentMode == vk.PresentModeMailbox))
	return nil
}

func (sc *Swapchain) destroyImagesAndViews() {
	for _, v := range sc.Views {
		vk.DestroyImageView(sc.device, v, nil)
	}
	sc.Views = nil
	sc.Images = nil
	if sc.Depth != nil {
		sc.Depth.Destroy()
		sc.Depth = nil
	}
}

// Destroy releases everything, including the swapchain handle itself.
func (sc *Swapchain) Destroy() {
	sc.destroyImagesAndViews()
	if sc.Handle != vk.NullSwapchain {
		vk.DestroySwapchain(sc.device, sc.Handle, nil)
		sc.Handle = vk.NullSwapchain
	}
}

func (sc *Swapchain) chooseFormat() (vk.SurfaceFormat, error) {
	var count uint32
	vk.GetPhysicalDeviceSurfaceFormats(sc.gpu, sc.surface, &count, nil)
	formats := make([]vk.SurfaceFormat, count)
	vk.GetPhysicalDeviceSurfaceFormats(sc.gpu, sc.surface, &count, formats)
	for i := range formats {
		formats[i].Deref()
	}

	for _, want := range formatPreference {
		for _, f := range formats {
			if f.Format == want.Format && f.ColorSpace == want.ColorSpace {
				return f, nil
			}
		}
	}
	if len(formats) > 0 {
		return formats[0], nil
	}
	return vk.SurfaceFormat{}, fmt.Errorf("no surface formats available")
}

func (sc *Swapchain) choosePresentMode() vk.PresentMode {
	var count uint32
	vk.GetPhysicalDeviceSurfacePresentModes(sc.gpu, sc.surface, &count, nil)
	modes := make([]vk.PresentMode, count)
	vk.GetPhysicalDeviceSurfacePresentModes(sc.gpu, sc.surface, &count, modes)
	for _, m := range modes {
		if m == vk.PresentModeMailbox {
			return vk.PresentModeMailbox
		}
	}
	return vk.PresentModeFifo
}

func (sc *Swapchain) probeTransferSrc(format vk.Format) bool {
	var props vk.FormatProperties
	vk.GetPhysicalDeviceFormatProperties(sc.gpu, format, &props)
	props.Deref()
	return props.OptimalTilingFeatures&vk.FormatFeatureFlags(vk.FormatFeatureTransferSrcBit) != 0
}
