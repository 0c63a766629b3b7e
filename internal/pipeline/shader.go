// Package pipeline builds the quad and mesh graphics pipelines, their
// shared descriptor set layout/pool, and the pipeline layouts carrying
// the mesh push-constant range. Grounded on vulkan-go-asche/pipeline.go
// (PipelineBuilder/BuildPipeline) and shader.go (LoadShaderModule),
// with the RenderPass-object field replaced by PipelineRenderingCreateInfo
// since the host has no render-pass/framebuffer objects under dynamic
// rendering.
package pipeline

import (
	"fmt"
	"os"

	vk "github.com/vulkan-go/vulkan"

	"github.com/johnpgr/vkengine/internal/verr"
)

// LoadShaderModule reads a SPIR-V binary from path and creates a shader
// module from it. SPIR-V words are little-endian uint32s; os.ReadFile
// gives us the raw bytes, which sliceUint32 decodes into a new []uint32.
func LoadShaderModule(device vk.Device, path string) (vk.ShaderModule, error) {
	code, err := os.ReadFile(path)
	if err != nil {
		return vk.NullShaderModule, verr.New(verr.InitFailure, fmt.Errorf("read shader %s: %w", path, err))
	}
	if len(code)%4 != 0 {
		return vk.NullShaderModule, verr.New(verr.InitFailure, fmt.Errorf("shader %s: size %d not a multiple of 4", path, len(code)))
	}

	var module vk.ShaderModule
	ret := vk.CreateShaderModule(device, &vk.ShaderModuleCreateInfo{
		SType:    vk.StructureTypeShaderModuleCreateInfo,
		CodeSize: uint(len(code)),
		PCode:    sliceUint32(code),
	}, nil, &module)
	if ret != vk.Success {
		return vk.NullShaderModule, verr.New(verr.InitFailure, fmt.Errorf("vkCreateShaderModule(%s): %d", path, ret))
	}
	return module, nil
}

func sliceUint32(data []byte) []uint32 {
	const wordSize = 4
	out := make([]uint32, len(data)/wordSize)
	for i := range out {
		o := i * wordSize
		out[i] = uint32(data[o]) | uint32(data[o+1])<<8 | uint32(data[o+2])<<16 | uint32(data[o+3])<<24
	}
	return out
}
