package vkctx

import (
	"fmt"
	"unsafe"

	vk "github.com/vulkan-go/vulkan"
	"go.uber.org/zap"
)

func newVkError(call string, ret vk.Result) error {
	return fmt.Errorf("%s: vkresult %d", call, ret)
}

func unsafePointer(p interface{}) unsafe.Pointer {
	switch v := p.(type) {
	case *vk.PhysicalDeviceDynamicRenderingFeatures:
		return unsafe.Pointer(v)
	case *vk.PhysicalDeviceSynchronization2Features:
		return unsafe.Pointer(v)
	default:
		return nil
	}
}

// debugCallbackFunc routes Vulkan validation messages into the engine's
// structured logger, generalizing asche/platform.go's dbgCallbackFunc
// (which switched over the flag bits into leveled log.Printf calls).
func (c *Context) debugCallbackFunc(flags vk.DebugReportFlags, objectType vk.DebugReportObjectType,
	object uint64, location uint, messageCode int32, pLayerPrefix string,
	pMessage string, pUserData unsafe.Pointer) vk.Bool32 {

	fields := []zap.Field{
		zap.String("layer", pLayerPrefix),
		zap.Int32("code", messageCode),
	}
	switch {
	case flags&vk.DebugReportFlags(vk.DebugReportErrorBit) != 0:
		c.log.Error(pMessage, fields...)
	case flags&vk.DebugReportFlags(vk.DebugReportWarningBit) != 0:
		c.log.Warn(pMessage, fields...)
	case flags&vk.DebugReportFlags(vk.DebugReportPerformanceWarningBit) != 0:
		c.log.Warn(pMessage, fields...)
	default:
		c.log.Debug(pMessage, fields...)
	}
	return vk.Bool32(vk.False)
}
