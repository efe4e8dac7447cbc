package vulkan

import (
	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/vkbinder/engine/core"
)

// GetOrCreatePipeline realizes the current pipeline key and reports whether
// the caller must record vkCmdBindPipeline. GetOrCreateDescriptors must have
// run first since it creates the shared pipeline layout.
//
// Pipeline creation failures are returned, matching core.ErrNativeCreation,
// and leave the key dirty so the next call retries.
func (b *VulkanBinder) GetOrCreatePipeline() (vk.Pipeline, bool, error) {
	if !b.dirtyPipeline && b.currentPipeline != nil {
		entry := b.currentPipeline
		entry.timestamp = b.clock.Now()
		if !entry.bound {
			core.LogFatal("binder %s: current pipeline entry is not marked bound", b.name)
		}
		b.pipelineMetrics.Hit()
		return entry.handle, false, nil
	}

	if b.pipelineLayout == nil {
		return nil, false, core.NewPreconditionError("GetOrCreatePipeline", core.ErrPipelineLayoutMissing)
	}

	if entry, ok := b.pipelines.Get(b.pipelineKey); ok {
		b.pipelineMetrics.Hit()
		b.makeCurrentPipeline(entry)
		return entry.handle, true, nil
	}
	b.pipelineMetrics.Miss()

	if b.pipelineKey.Shaders[0] == nil {
		return nil, false, core.NewPreconditionError("GetOrCreatePipeline", core.ErrMissingVertexShader)
	}

	handle, err := b.createPipeline(&b.pipelineKey)
	if err != nil {
		core.LogError("binder %s: %s", b.name, err)
		return nil, false, err
	}

	entry := &pipelineEntry{handle: handle}
	b.pipelines.Put(b.pipelineKey, entry)
	b.makeCurrentPipeline(entry)
	return handle, true, nil
}

func (b *VulkanBinder) makeCurrentPipeline(entry *pipelineEntry) {
	now := b.clock.Now()
	if prev := b.currentPipeline; prev != nil && prev != entry {
		prev.bound = false
		prev.timestamp = now
	}
	entry.bound = true
	entry.timestamp = now
	b.currentPipeline = entry
	b.dirtyPipeline = false
}

// pipelineCreateInfo assembles the full graphics pipeline description for key.
// Viewport and scissor are always dynamic. Without a fragment shader the
// pipeline has a single stage and no color blend attachments.
func pipelineCreateInfo(key *PipelineKey, layout vk.PipelineLayout) *vk.GraphicsPipelineCreateInfo {
	hasFragmentShader := key.Shaders[1] != nil
	raster := &key.Raster

	stages := []vk.PipelineShaderStageCreateInfo{{
		SType:  vk.StructureTypePipelineShaderStageCreateInfo,
		Stage:  vk.ShaderStageVertexBit,
		Module: key.Shaders[0],
		PName:  VulkanSafeString("main"),
	}}
	if hasFragmentShader {
		stages = append(stages, vk.PipelineShaderStageCreateInfo{
			SType:  vk.StructureTypePipelineShaderStageCreateInfo,
			Stage:  vk.ShaderStageFragmentBit,
			Module: key.Shaders[1],
			PName:  VulkanSafeString("main"),
		})
	}

	// Unused slots have a zero format or stride; the counts are not stored in the key.
	var attributes []vk.VertexInputAttributeDescription
	for _, a := range key.Vertex.Attributes {
		if a.Format == vk.FormatUndefined {
			continue
		}
		attributes = append(attributes, vk.VertexInputAttributeDescription{
			Location: a.Location,
			Binding:  a.Binding,
			Format:   a.Format,
			Offset:   a.Offset,
		})
	}
	var bindings []vk.VertexInputBindingDescription
	for _, vb := range key.Vertex.Buffers {
		if vb.Stride == 0 {
			continue
		}
		bindings = append(bindings, vk.VertexInputBindingDescription{
			Binding:   vb.Binding,
			Stride:    vb.Stride,
			InputRate: vk.VertexInputRateVertex,
		})
	}
	vertexInputInfo := vk.PipelineVertexInputStateCreateInfo{
		SType:                           vk.StructureTypePipelineVertexInputStateCreateInfo,
		VertexBindingDescriptionCount:   uint32(len(bindings)),
		PVertexBindingDescriptions:      bindings,
		VertexAttributeDescriptionCount: uint32(len(attributes)),
		PVertexAttributeDescriptions:    attributes,
	}

	inputAssembly := vk.PipelineInputAssemblyStateCreateInfo{
		SType:                  vk.StructureTypePipelineInputAssemblyStateCreateInfo,
		Topology:               key.Topology,
		PrimitiveRestartEnable: vk.False,
	}

	// Counts only, the actual rectangles come from vkCmdSetViewport/vkCmdSetScissor.
	viewportState := vk.PipelineViewportStateCreateInfo{
		SType:         vk.StructureTypePipelineViewportStateCreateInfo,
		ViewportCount: 1,
		ScissorCount:  1,
	}

	rasterizerCreateInfo := vk.PipelineRasterizationStateCreateInfo{
		SType:                   vk.StructureTypePipelineRasterizationStateCreateInfo,
		DepthClampEnable:        vk.False,
		RasterizerDiscardEnable: vkBool(raster.RasterizerDiscard),
		PolygonMode:             raster.PolygonMode,
		CullMode:                raster.CullMode,
		FrontFace:               raster.FrontFace,
		DepthBiasEnable:         vkBool(raster.DepthBiasEnable),
		DepthBiasConstantFactor: raster.DepthBiasConstantFactor,
		DepthBiasSlopeFactor:    raster.DepthBiasSlopeFactor,
		LineWidth:               1.0,
	}

	samples := raster.RasterizationSamples
	if samples == 0 {
		samples = vk.SampleCount1Bit
	}
	multisamplingCreateInfo := vk.PipelineMultisampleStateCreateInfo{
		SType:                vk.StructureTypePipelineMultisampleStateCreateInfo,
		RasterizationSamples: samples,
		SampleShadingEnable:  vk.False,
		MinSampleShading:     1.0,
	}

	depthStencil := vk.PipelineDepthStencilStateCreateInfo{
		SType:             vk.StructureTypePipelineDepthStencilStateCreateInfo,
		DepthTestEnable:   vkBool(raster.DepthTestEnable),
		DepthWriteEnable:  vkBool(raster.DepthWriteEnable),
		DepthCompareOp:    raster.DepthCompareOp,
		StencilTestEnable: vkBool(raster.StencilTestEnable),
	}

	var blendAttachments []vk.PipelineColorBlendAttachmentState
	if hasFragmentShader {
		targets := int(raster.ColorTargetCount)
		if targets == 0 {
			targets = 1
		}
		blendAttachments = make([]vk.PipelineColorBlendAttachmentState, targets)
		for i := range blendAttachments {
			blendAttachments[i] = vk.PipelineColorBlendAttachmentState{
				BlendEnable:         vkBool(raster.BlendEnable),
				SrcColorBlendFactor: raster.SrcColorBlendFactor,
				DstColorBlendFactor: raster.DstColorBlendFactor,
				ColorBlendOp:        raster.ColorBlendOp,
				SrcAlphaBlendFactor: raster.SrcAlphaBlendFactor,
				DstAlphaBlendFactor: raster.DstAlphaBlendFactor,
				AlphaBlendOp:        raster.AlphaBlendOp,
				ColorWriteMask:      raster.ColorWriteMask,
			}
		}
	}
	colorBlendStateCreateInfo := vk.PipelineColorBlendStateCreateInfo{
		SType:           vk.StructureTypePipelineColorBlendStateCreateInfo,
		LogicOpEnable:   vk.False,
		LogicOp:         vk.LogicOpCopy,
		AttachmentCount: uint32(len(blendAttachments)),
		PAttachments:    blendAttachments,
	}

	dynamicStates := []vk.DynamicState{
		vk.DynamicStateViewport,
		vk.DynamicStateScissor,
	}
	dynamicStateCreateInfo := vk.PipelineDynamicStateCreateInfo{
		SType:             vk.StructureTypePipelineDynamicStateCreateInfo,
		DynamicStateCount: uint32(len(dynamicStates)),
		PDynamicStates:    dynamicStates,
	}

	return &vk.GraphicsPipelineCreateInfo{
		SType:               vk.StructureTypeGraphicsPipelineCreateInfo,
		StageCount:          uint32(len(stages)),
		PStages:             stages,
		PVertexInputState:   &vertexInputInfo,
		PInputAssemblyState: &inputAssembly,
		PViewportState:      &viewportState,
		PRasterizationState: &rasterizerCreateInfo,
		PMultisampleState:   &multisamplingCreateInfo,
		PDepthStencilState:  &depthStencil,
		PColorBlendState:    &colorBlendStateCreateInfo,
		PDynamicState:       &dynamicStateCreateInfo,
		Layout:              layout,
		RenderPass:          key.RenderPass,
		Subpass:             0,
		BasePipelineHandle:  vk.NullPipeline,
		BasePipelineIndex:   -1,
	}
}

func (b *VulkanBinder) createPipeline(key *PipelineKey) (vk.Pipeline, error) {
	handle, err := b.device.CreateGraphicsPipeline(pipelineCreateInfo(key, b.pipelineLayout))
	if err != nil {
		return nil, err
	}
	core.LogDebug("binder %s: graphics pipeline created (%d cached)", b.name, b.pipelines.Len()+1)
	return handle, nil
}
