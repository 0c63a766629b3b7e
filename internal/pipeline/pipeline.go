package pipeline

import (
	"fmt"

	vk "github.com/vulkan-go/vulkan"

	"github.com/johnpgr/vkengine/internal/verr"
)

// MeshPushConstantSize is the mat4 MVP plus vec4 tint pushed per mesh
// draw: 16 floats + 4 floats, 4 bytes each.
const MeshPushConstantSize = (16 + 4) * 4

// Set is a pair of pipeline+layout handles for one draw path, built
// against a given color/depth format (swapchain-format-dependent, so
// both sets are rebuilt on every swapchain recreation).
type Set struct {
	device   vk.Device
	Pipeline vk.Pipeline
	Layout   vk.PipelineLayout
}

func (s *Set) Destroy() {
	if s.Pipeline != vk.NullPipeline {
		vk.DestroyPipeline(s.device, s.Pipeline, nil)
	}
	if s.Layout != vk.NullPipelineLayout {
		vk.DestroyPipelineLayout(s.device, s.Layout, nil)
	}
}

// Pipelines owns both graphics pipelines and their layouts. Built once
// at init and rebuilt (via Rebuild) whenever the swapchain format
// changes — the swapchain's recreation path calls this after it rebuilds.
type Pipelines struct {
	device      vk.Device
	vertShaderQuad, fragShaderQuad vk.ShaderModule
	vertShaderMesh, fragShaderMesh vk.ShaderModule
	descLayout  vk.DescriptorSetLayout

	Quad Set
	Mesh Set
}

// ShaderPaths names the four SPIR-V binaries the two pipelines load.
type ShaderPaths struct {
	QuadVert, QuadFrag string
	MeshVert, MeshFrag string
}

// New loads all four shader modules once and builds both pipelines
// against the given color/depth formats.
func New(device vk.Device, descLayout vk.DescriptorSetLayout, paths ShaderPaths, colorFormat, depthFormat vk.Format) (*Pipelines, error) {
	qv, err := LoadShaderModule(device, paths.QuadVert)
	if err != nil {
		return nil, err
	}
	qf, err := LoadShaderModule(device, paths.QuadFrag)
	if err != nil {
		return nil, err
	}
	mv, err := LoadShaderModule(device, paths.MeshVert)
	if err != nil {
		return nil, err
	}
	mf, err := LoadShaderModule(device, paths.MeshFrag)
	if err != nil {
		return nil, err
	}

	p := &Pipelines{
		device:         device,
		vertShaderQuad: qv, fragShaderQuad: qf,
		vertShaderMesh: mv, fragShaderMesh: mf,
		descLayout: descLayout,
	}
	if err := p.Rebuild(colorFormat, depthFormat); err != nil {
		return nil, err
	}
	return p, nil
}

// Rebuild destroys the previous pipeline+layout pair (if any) and
// recreates both against the new color/depth format. Shader modules
// are format-independent and are kept across rebuilds.
func (p *Pipelines) Rebuild(colorFormat, depthFormat vk.Format) error {
	p.Quad.Destroy()
	p.Mesh.Destroy()

	quad, err := buildQuadPipeline(p.device, p.descLayout, p.vertShaderQuad, p.fragShaderQuad, colorFormat)
	if err != nil {
		return err
	}
	p.Quad = *quad

	mesh, err := buildMeshPipeline(p.device, p.vertShaderMesh, p.fragShaderMesh, colorFormat, depthFormat)
	if err != nil {
		return err
	}
	p.Mesh = *mesh

	return nil
}

func (p *Pipelines) Destroy() {
	p.Quad.Destroy()
	p.Mesh.Destroy()
	for _, m := range []vk.ShaderModule{p.vertShaderQuad, p.fragShaderQuad, p.vertShaderMesh, p.fragShaderMesh} {
		if m != vk.NullShaderModule {
			vk.DestroyShaderModule(p.device, m, nil)
		}
	}
}

func shaderStages(vert, frag vk.ShaderModule) []vk.PipelineShaderStageCreateInfo {
	return []vk.PipelineShaderStageCreateInfo{
		{
			SType:  vk.StructureTypePipelineShaderStageCreateInfo,
			Stage:  vk.ShaderStageFlagBits(vk.ShaderStageVertexBit),
			Module: vert,
			PName:  "main\x00",
		},
		{
			SType:  vk.StructureTypePipelineShaderStageCreateInfo,
			Stage:  vk.ShaderStageFlagBits(vk.ShaderStageFragmentBit),
			Module: frag,
			PName:  "main\x00",
		},
	}
}

func dynamicViewportScissor() (vk.PipelineViewportStateCreateInfo, vk.PipelineDynamicStateCreateInfo) {
	viewport := vk.PipelineViewportStateCreateInfo{
		SType:         vk.StructureTypePipelineViewportStateCreateInfo,
		ViewportCount: 1,
		ScissorCount:  1,
	}
	dynamic := vk.PipelineDynamicStateCreateInfo{
		SType:             vk.StructureTypePipelineDynamicStateCreateInfo,
		DynamicStateCount: 2,
		PDynamicStates: []vk.DynamicState{
			vk.DynamicStateViewport,
			vk.DynamicStateScissor,
		},
	}
	return viewport, dynamic
}

func noBlend() vk.PipelineColorBlendStateCreateInfo {
	return vk.PipelineColorBlendStateCreateInfo{
		SType:           vk.StructureTypePipelineColorBlendStateCreateInfo,
		LogicOpEnable:   vk.False,
		LogicOp:         vk.LogicOpCopy,
		AttachmentCount: 1,
		PAttachments: []vk.PipelineColorBlendAttachmentState{{
			BlendEnable: vk.False,
			ColorWriteMask: vk.ColorComponentFlags(vk.ColorComponentRBit) |
				vk.ColorComponentFlags(vk.ColorComponentGBit) |
				vk.ColorComponentFlags(vk.ColorComponentBBit) |
				vk.ColorComponentFlags(vk.ColorComponentABit),
		}},
	}
}

func multisampleNone() vk.PipelineMultisampleStateCreateInfo {
	return vk.PipelineMultisampleStateCreateInfo{
		SType:                vk.StructureTypePipelineMultisampleStateCreateInfo,
		RasterizationSamples: vk.SampleCount1Bit,
		MinSampleShading:     1.0,
	}
}

// buildQuadPipeline builds the bindless quad pipeline: no vertex
// input, CLOCKWISE front face, cull back, no depth test, no blend,
// color format only (no depth attachment in PipelineRenderingCreateInfo).
func buildQuadPipeline(device vk.Device, descLayout vk.DescriptorSetLayout, vert, frag vk.ShaderModule, colorFormat vk.Format) (*Set, error) {
	var layout vk.PipelineLayout
	ret := vk.CreatePipelineLayout(device, &vk.PipelineLayoutCreateInfo{
		SType:          vk.StructureTypePipelineLayoutCreateInfo,
		SetLayoutCount: 1,
		PSetLayouts:    []vk.DescriptorSetLayout{descLayout},
	}, nil, &layout)
	if ret != vk.Success {
		return nil, verr.New(verr.InitFailure, fmt.Errorf("vkCreatePipelineLayout(quad): %d", ret))
	}

	vertexInput := vk.PipelineVertexInputStateCreateInfo{
		SType: vk.StructureTypePipelineVertexInputStateCreateInfo,
	}
	assembly := vk.PipelineInputAssemblyStateCreateInfo{
		SType:    vk.StructureTypePipelineInputAssemblyStateCreateInfo,
		Topology: vk.PrimitiveTopologyTriangleList,
	}
	rasterizer := vk.PipelineRasterizationStateCreateInfo{
		SType:       vk.StructureTypePipelineRasterizationStateCreateInfo,
		PolygonMode: vk.PolygonModeFill,
		CullMode:    vk.CullModeFlags(vk.CullModeBackBit),
		FrontFace:   vk.FrontFaceClockwise,
		LineWidth:   1.0,
	}
	viewportState, dynamicState := dynamicViewportScissor()
	blend := noBlend()
	multisample := multisampleNone()

	rendering := vk.PipelineRenderingCreateInfo{
		SType:                vk.StructureTypePipelineRenderingCreateInfo,
		ColorAttachmentCount: 1,
		PColorAttachmentFormats: []vk.Format{colorFormat},
	}

	stages := shaderStages(vert, frag)
	info := vk.GraphicsPipelineCreateInfo{
		SType:               vk.StructureTypeGraphicsPipelineCreateInfo,
		PNext:                unsafePtr(&rendering),
		StageCount:           uint32(len(stages)),
		PStages:              stages,
		PVertexInputState:    &vertexInput,
		PInputAssemblyState:  &assembly,
		PViewportState:       &viewportState,
		PRasterizationState:  &rasterizer,
		PMultisampleState:    &multisample,
		PColorBlendState:     &blend,
		PDynamicState:        &dynamicState,
		Layout:               layout,
		BasePipelineHandle:   vk.NullPipeline,
		BasePipelineIndex:    -1,
	}

	pipelines := make([]vk.Pipeline, 1)
	ret = vk.CreateGraphicsPipelines(device, vk.NullPipelineCache, 1, []vk.GraphicsPipelineCreateInfo{info}, nil, pipelines)
	if ret != vk.Success {
		vk.DestroyPipelineLayout(device, layout, nil)
		return nil, verr.New(verr.InitFailure, fmt.Errorf("vkCreateGraphicsPipelines(quad): %d", ret))
	}

	return &Set{device: device, Pipeline: pipelines[0], Layout: layout}, nil
}

// buildMeshPipeline builds the mesh pipeline: 40-byte
// interleaved vertex input, COUNTER_CLOCKWISE front face, depth
// test+write, an 80-byte push-constant range visible to both stages,
// and a depth attachment format in PipelineRenderingCreateInfo.
func buildMeshPipeline(device vk.Device, vert, frag vk.ShaderModule, colorFormat, depthFormat vk.Format) (*Set, error) {
	var layout vk.PipelineLayout
	ret := vk.CreatePipelineLayout(device, &vk.PipelineLayoutCreateInfo{
		SType:                  vk.StructureTypePipelineLayoutCreateInfo,
		PushConstantRangeCount: 1,
		PPushConstantRanges: []vk.PushConstantRange{{
			StageFlags: vk.ShaderStageFlags(vk.ShaderStageVertexBit) | vk.ShaderStageFlags(vk.ShaderStageFragmentBit),
			Offset:     0,
			Size:       MeshPushConstantSize,
		}},
	}, nil, &layout)
	if ret != vk.Success {
		return nil, verr.New(verr.InitFailure, fmt.Errorf("vkCreatePipelineLayout(mesh): %d", ret))
	}

	const stride = 40
	vertexInput := vk.PipelineVertexInputStateCreateInfo{
		SType:                         vk.StructureTypePipelineVertexInputStateCreateInfo,
		VertexBindingDescriptionCount: 1,
		PVertexBindingDescriptions: []vk.VertexInputBindingDescription{{
			Binding:   0,
			Stride:    stride,
			InputRate: vk.VertexInputRateVertex,
		}},
		VertexAttributeDescriptionCount: 3,
		PVertexAttributeDescriptions: []vk.VertexInputAttributeDescription{
			{Location: 0, Binding: 0, Format: vk.FormatR32g32b32Sfloat, Offset: 0},
			{Location: 1, Binding: 0, Format: vk.FormatR32g32b32Sfloat, Offset: 12},
			{Location: 2, Binding: 0, Format: vk.FormatR32g32b32a32Sfloat, Offset: 24},
		},
	}
	assembly := vk.PipelineInputAssemblyStateCreateInfo{
		SType:    vk.StructureTypePipelineInputAssemblyStateCreateInfo,
		Topology: vk.PrimitiveTopologyTriangleList,
	}
	rasterizer := vk.PipelineRasterizationStateCreateInfo{
		SType:       vk.StructureTypePipelineRasterizationStateCreateInfo,
		PolygonMode: vk.PolygonModeFill,
		CullMode:    vk.CullModeFlags(vk.CullModeBackBit),
		FrontFace:   vk.FrontFaceCounterClockwise,
		LineWidth:   1.0,
	}
	viewportState, dynamicState := dynamicViewportScissor()
	blend := noBlend()
	multisample := multisampleNone()
	depthStencil := vk.PipelineDepthStencilStateCreateInfo{
		SType:            vk.StructureTypePipelineDepthStencilStateCreateInfo,
		DepthTestEnable:  vk.True,
		DepthWriteEnable: vk.True,
		DepthCompareOp:   vk.CompareOpLess,
	}

	rendering := vk.PipelineRenderingCreateInfo{
		SType:                vk.StructureTypePipelineRenderingCreateInfo,
		ColorAttachmentCount: 1,
		PColorAttachmentFormats: []vk.Format{colorFormat},
		DepthAttachmentFormat:   depthFormat,
	}

	stages := shaderStages(vert, frag)
	info := vk.GraphicsPipelineCreateInfo{
		SType:               vk.StructureTypeGraphicsPipelineCreateInfo,
		PNext:                unsafePtr(&rendering),
		StageCount:           uint32(len(stages)),
		PStages:              stages,
		PVertexInputState:    &vertexInput,
		PInputAssemblyState:  &assembly,
		PViewportState:       &viewportState,
		PRasterizationState:  &rasterizer,
		PMultisampleState:    &multisample,
		PDepthStencilState:   &depthStencil,
		PColorBlendState:     &blend,
		PDynamicState:        &dynamicState,
		Layout:               layout,
		BasePipelineHandle:   vk.NullPipeline,
		BasePipelineIndex:    -1,
	}

	pipelines := make([]vk.Pipeline, 1)
	ret = vk.CreateGraphicsPipelines(device, vk.NullPipelineCache, 1, []vk.GraphicsPipelineCreateInfo{info}, nil, pipelines)
	if ret != vk.Success {
		vk.DestroyPipelineLayout(device, layout, nil)
		return nil, verr.New(verr.InitFailure, fmt.Errorf("vkCreateGraphicsPipelines(mesh): %d", ret))
	}

	return &Set{device: device, Pipeline: pipelines[0], Layout: layout}, nil
}
