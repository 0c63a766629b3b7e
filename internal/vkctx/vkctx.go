// Package vkctx brings up the Vulkan instance, physical device, logical
// device and queues, grounded on vulkan-go-asche/platform.go's
// NewPlatform and core.go/extensions.go's extension-negotiation helpers.
package vkctx

import (
	"fmt"

	vk "github.com/vulkan-go/vulkan"
	"go.uber.org/zap"

	"github.com/johnpgr/vkengine/internal/verr"
)

// SharingMode describes how the graphics and present queue families
// relate: if they differ, the swapchain must be created
// CONCURRENT across both; otherwise EXCLUSIVE.
type SharingMode int

const (
	Exclusive SharingMode = iota
	Concurrent
)

// Context owns the instance/device/queue bring-up. All fields are valid
// between a successful New and Destroy; Destroy resets the handles it
// destroys (device, surface, debug callback, instance) to their zero
// value (ZII).
type Context struct {
	log *zap.Logger

	Instance vk.Instance
	Surface  vk.Surface

	GPU              vk.PhysicalDevice
	GPUProperties    vk.PhysicalDeviceProperties
	MemoryProperties vk.PhysicalDeviceMemoryProperties

	Device vk.Device

	GraphicsFamily uint32
	PresentFamily  uint32
	GraphicsQueue  vk.Queue
	PresentQueue   vk.Queue
	Sharing        SharingMode

	debugCallback vk.DebugReportCallback
	validation    bool
}

// Options configures New.
type Options struct {
	AppName            string
	Validation         bool
	MakeSurface        func(instance vk.Instance) (vk.Surface, error)
	RequiredDeviceExts []string
}

// requiredDeviceExtensions is the extension set the engine always needs,
// plus the optional ones enabled only if the device supports them.
var (
	requiredDeviceExtensions = []string{"VK_KHR_swapchain"}
	optionalDeviceExtensions = []string{
		"VK_KHR_portability_subset",
		"VK_KHR_dynamic_rendering",
		"VK_KHR_synchronization2",
	}
)

// New performs the full bring-up sequence: instance
// (with optional validation layers and debug callback), physical-device
// selection, queue-family search, logical device creation, and queue
// retrieval.
func New(opts Options, log *zap.Logger) (ctx *Context, err error) {
	defer verr.Recover(verr.InitFailure, &err)

	c := &Context{log: log, validation: opts.Validation}

	var layers []string
	if opts.Validation {
		available, lerr := enumerateValidationLayers()
		if lerr != nil {
			return nil, verr.New(verr.InitFailure, lerr)
		}
		layers = intersect(available, []string{"VK_LAYER_KHRONOS_validation"})
		if len(layers) == 0 {
			log.Warn("validation requested but VK_LAYER_KHRONOS_validation unavailable")
		}
	}

	instExts, err := enumerateInstanceExtensions()
	if err != nil {
		return nil, verr.New(verr.InitFailure, err)
	}

	var instance vk.Instance
	ret := vk.CreateInstance(&vk.InstanceCreateInfo{
		SType: vk.StructureTypeInstanceCreateInfo,
		PApplicationInfo: &vk.ApplicationInfo{
			SType:            vk.StructureTypeApplicationInfo,
			ApiVersion:       vk.MakeVersion(1, 3, 0),
			PApplicationName: opts.AppName + "\x00",
			PEngineName:      "vkengine\x00",
		},
		EnabledExtensionCount:   uint32(len(instExts)),
		PpEnabledExtensionNames: instExts,
		EnabledLayerCount:       uint32(len(layers)),
		PpEnabledLayerNames:     layers,
	}, nil, &instance)
	if ret != vk.Success {
		return nil, verr.New(verr.InitFailure, fmt.Errorf("vkCreateInstance: %d", ret))
	}
	c.Instance = instance
	vk.InitInstance(instance)

	if opts.Validation && len(layers) > 0 {
		ret := vk.CreateDebugReportCallback(instance, &vk.DebugReportCallbackCreateInfo{
			SType:       vk.StructureTypeDebugReportCallbackCreateInfo,
			Flags:       vk.DebugReportFlags(vk.DebugReportErrorBit | vk.DebugReportWarningBit),
			PfnCallback: c.debugCallbackFunc,
		}, nil, &c.debugCallback)
		if ret != vk.Success {
			log.Warn("failed to install debug report callback", zap.Int32("result", int32(ret)))
		}
	}

	if opts.MakeSurface != nil {
		surf, serr := opts.MakeSurface(instance)
		if serr != nil {
			return nil, verr.New(verr.InitFailure, serr)
		}
		c.Surface = surf
	}

	var gpuCount uint32
	vk.EnumeratePhysicalDevices(instance, &gpuCount, nil)
	if gpuCount == 0 {
		return nil, verr.New(verr.InitFailure, fmt.Errorf("no Vulkan-capable GPU found"))
	}
	gpus := make([]vk.PhysicalDevice, gpuCount)
	vk.EnumeratePhysicalDevices(instance, &gpuCount, gpus)
	c.GPU = selectGPU(gpus) // multi-GPU load balancing not supported

	vk.GetPhysicalDeviceProperties(c.GPU, &c.GPUProperties)
	c.GPUProperties.Deref()
	vk.GetPhysicalDeviceMemoryProperties(c.GPU, &c.MemoryProperties)
	c.MemoryProperties.Deref()

	deviceExts, err := negotiateDeviceExtensions(c.GPU, opts.RequiredDeviceExts)
	if err != nil {
		return nil, verr.New(verr.InitFailure, err)
	}

	if err := c.selectQueueFamilies(); err != nil {
		return nil, verr.New(verr.InitFailure, err)
	}

	queueInfos := []vk.DeviceQueueCreateInfo{{
		SType:            vk.StructureTypeDeviceQueueCreateInfo,
		QueueFamilyIndex: c.GraphicsFamily,
		QueueCount:       1,
		PQueuePriorities: []float32{1.0},
	}}
	if c.Sharing == Concurrent {
		queueInfos = append(queueInfos, vk.DeviceQueueCreateInfo{
			SType:            vk.StructureTypeDeviceQueueCreateInfo,
			QueueFamilyIndex: c.PresentFamily,
			QueueCount:       1,
			PQueuePriorities: []float32{1.0},
		})
	}

	dynRendering := vk.PhysicalDeviceDynamicRenderingFeatures{
		SType:            vk.StructureTypePhysicalDeviceDynamicRenderingFeatures,
		DynamicRendering: vk.True,
	}
	sync2 := vk.PhysicalDeviceSynchronization2Features{
		SType:             vk.StructureTypePhysicalDeviceSynchronization2Features,
		PNext:             unsafePointer(&dynRendering),
		Synchronization2:  vk.True,
	}

	var device vk.Device
	ret = vk.CreateDevice(c.GPU, &vk.DeviceCreateInfo{
		SType:                   vk.StructureTypeDeviceCreateInfo,
		PNext:                   unsafePointer(&sync2),
		QueueCreateInfoCount:    uint32(len(queueInfos)),
		PQueueCreateInfos:       queueInfos,
		EnabledExtensionCount:   uint32(len(deviceExts)),
		PpEnabledExtensionNames: deviceExts,
	}, nil, &device)
	if ret != vk.Success {
		return nil, verr.New(verr.InitFailure, fmt.Errorf("vkCreateDevice: %d", ret))
	}
	c.Device = device

	var gq vk.Queue
	vk.GetDeviceQueue(device, c.GraphicsFamily, 0, &gq)
	c.GraphicsQueue = gq
	if c.Sharing == Concurrent {
		var pq vk.Queue
		vk.GetDeviceQueue(device, c.PresentFamily, 0, &pq)
		c.PresentQueue = pq
	} else {
		c.PresentQueue = gq
	}

	log.Info("vulkan context ready",
		zap.String("gpu", vk.ToString(c.GPUProperties.DeviceName[:])),
		zap.Uint32("graphics_family", c.GraphicsFamily),
		zap.Uint32("present_family", c.PresentFamily),
		zap.Bool("concurrent", c.Sharing == Concurrent))
	return c, nil
}

// selectGPU prefers the first discrete GPU in the enumeration, falling
// back to gpus[0] (an integrated GPU, or whatever order the driver
// reports) when none is discrete.
func selectGPU(gpus []vk.PhysicalDevice) vk.PhysicalDevice {
	for _, gpu := range gpus {
		var props vk.PhysicalDeviceProperties
		vk.GetPhysicalDeviceProperties(gpu, &props)
		props.Deref()
		if props.DeviceType == vk.PhysicalDeviceTypeDiscreteGpu {
			return gpu
		}
	}
	return gpus[0]
}

// selectQueueFamilies runs the search: first family with
// GRAPHICS for graphics, first family with present support for present.
func (c *Context) selectQueueFamilies() error {
	var count uint32
	vk.GetPhysicalDeviceQueueFamilyProperties(c.GPU, &count, nil)
	families := make([]vk.QueueFamilyProperties, count)
	vk.GetPhysicalDeviceQueueFamilyProperties(c.GPU, &count, families)

	graphicsFound, presentFound := false, false
	for i := uint32(0); i < count; i++ {
		families[i].Deref()
		if !graphicsFound && families[i].QueueFlags&vk.QueueFlags(vk.QueueGraphicsBit) != 0 {
			c.GraphicsFamily = i
			graphicsFound = true
		}
		if c.Surface != vk.NullSurface {
			var supported vk.Bool32
			vk.GetPhysicalDeviceSurfaceSupport(c.GPU, i, c.Surface, &supported)
			if !presentFound && supported.B() {
				c.PresentFamily = i
				presentFound = true
			}
		}
	}
	if !graphicsFound {
		return fmt.Errorf("no queue family with VK_QUEUE_GRAPHICS_BIT")
	}
	if c.Surface == vk.NullSurface {
		c.PresentFamily = c.GraphicsFamily
		c.Sharing = Exclusive
		return nil
	}
	if !presentFound {
		return fmt.Errorf("no queue family with present support")
	}
	if c.PresentFamily != c.GraphicsFamily {
		c.Sharing = Concurrent
	} else {
		c.Sharing = Exclusive
	}
	return nil
}

// Destroy tears down every handle this Context owns, in reverse creation
// order, honoring ZII (each destroy checks its own zero value).
func (c *Context) Destroy() {
	if c.Device != nil {
		vk.DeviceWaitIdle(c.Device)
		vk.DestroyDevice(c.Device, nil)
		c.Device = nil
	}
	if c.Surface != vk.NullSurface {
		vk.DestroySurface(c.Instance, c.Surface, nil)
		c.Surface = vk.NullSurface
	}
	if c.debugCallback != vk.NullDebugReportCallback {
		vk.DestroyDebugReportCallback(c.Instance, c.debugCallback, nil)
		c.debugCallback = vk.NullDebugReportCallback
	}
	if c.Instance != nil {
		vk.DestroyInstance(c.Instance, nil)
		c.Instance = nil
	}
}
