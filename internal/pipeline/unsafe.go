package pipeline

import (
	"unsafe"

	vk "github.com/vulkan-go/vulkan"
)

func unsafePtr(p *vk.PipelineRenderingCreateInfo) unsafe.Pointer {
	return unsafe.Pointer(p)
}
