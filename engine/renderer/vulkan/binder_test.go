package vulkan

import (
	"math"
	"math/rand"
	"testing"
	"unsafe"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/vkbinder/engine/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestBinder(t *testing.T, config core.BinderConfig) (*VulkanBinder, *fakeDevice) {
	t.Helper()
	device := newFakeDevice()
	return NewVulkanBinder(device, config), device
}

func realizeDescriptors(t *testing.T, b *VulkanBinder) DescriptorBinding {
	t.Helper()
	binding, err := b.GetOrCreateDescriptors(WriteImmediate)
	require.NoError(t, err)
	return binding
}

func realizePipeline(t *testing.T, b *VulkanBinder) (vk.Pipeline, bool) {
	t.Helper()
	pipeline, rebind, err := b.GetOrCreatePipeline()
	require.NoError(t, err)
	require.NotNil(t, pipeline)
	return pipeline, rebind
}

func sameSets(a, b [VULKAN_BINDER_DESCRIPTOR_SET_COUNT]vk.DescriptorSet) bool {
	return a == b
}

func TestBindUniformBufferIsIdempotent(t *testing.T) {
	b, device := newTestBinder(t, core.BinderConfig{})
	buffer := newBuffer()

	b.BindUniformBuffer(0, buffer, 0, 256)
	first := realizeDescriptors(t, b)
	assert.True(t, first.Rebind)

	b.BindUniformBuffer(0, buffer, 0, 256)
	assert.False(t, b.dirtyDescriptor)

	second := realizeDescriptors(t, b)
	assert.False(t, second.Rebind)
	assert.True(t, sameSets(first.Sets, second.Sets))
	assert.Equal(t, 1, device.callCount("AllocateDescriptorSets"))
}

func TestBindOutOfRangeSlotIsIgnored(t *testing.T) {
	b, _ := newTestBinder(t, core.BinderConfig{})
	realizeDescriptors(t, b)

	b.BindUniformBuffer(VULKAN_BINDER_UBUFFER_BINDING_COUNT, newBuffer(), 0, 16)
	b.BindSampler(-1, SamplerBinding{Sampler: newSampler(), ImageView: newImageView()})
	assert.False(t, b.dirtyDescriptor)
	assert.Equal(t, DescriptorKey{}, b.descriptorKey)
}

func TestPipelineScenario(t *testing.T) {
	b, device := newTestBinder(t, core.BinderConfig{})
	vertex, fragmentB, fragmentC := newShaderModule(), newShaderModule(), newShaderModule()
	b.BindRenderPass(newRenderPass())
	realizeDescriptors(t, b)

	b.BindProgramBundle(ProgramBundle{Vertex: vertex, Fragment: fragmentB})
	h1, rebind := realizePipeline(t, b)
	assert.True(t, rebind)

	again, rebind := realizePipeline(t, b)
	assert.False(t, rebind)
	assert.Same(t, h1, again)

	b.BindProgramBundle(ProgramBundle{Vertex: vertex, Fragment: fragmentC})
	h2, rebind := realizePipeline(t, b)
	assert.True(t, rebind)
	assert.NotSame(t, h1, h2)

	b.BindProgramBundle(ProgramBundle{Vertex: vertex, Fragment: fragmentB})
	h3, rebind := realizePipeline(t, b)
	assert.True(t, rebind)
	assert.Same(t, h1, h3)

	assert.Equal(t, 2, device.callCount("CreateGraphicsPipeline"))
	assert.Equal(t, 2, b.Stats().Pipelines)
}

func TestNaNDepthBiasReusesPipeline(t *testing.T) {
	b, device := newTestBinder(t, core.BinderConfig{})
	b.BindRenderPass(newRenderPass())
	b.BindProgramBundle(ProgramBundle{Vertex: newShaderModule()})
	realizeDescriptors(t, b)

	state := DefaultRasterState()
	state.DepthBiasEnable = true
	state.DepthBiasSlopeFactor = float32(math.NaN())
	b.BindRasterState(state)
	first, rebind := realizePipeline(t, b)
	assert.True(t, rebind)

	b.BindRasterState(state)
	again, rebind := realizePipeline(t, b)
	assert.False(t, rebind)
	assert.Same(t, first, again)

	b.BindRasterState(DefaultRasterState())
	realizePipeline(t, b)
	b.BindRasterState(state)
	back, rebind := realizePipeline(t, b)
	assert.True(t, rebind)
	assert.Same(t, first, back)

	assert.Equal(t, 2, device.callCount("CreateGraphicsPipeline"))
	assert.Equal(t, 2, b.Stats().Pipelines)
}

func TestPipelineRequiresDescriptorsFirst(t *testing.T) {
	b, device := newTestBinder(t, core.BinderConfig{})
	b.BindProgramBundle(ProgramBundle{Vertex: newShaderModule()})

	_, _, err := b.GetOrCreatePipeline()
	assert.ErrorIs(t, err, core.ErrPrecondition)
	assert.ErrorIs(t, err, core.ErrPipelineLayoutMissing)
	assert.Zero(t, device.callCount("CreateGraphicsPipeline"))
}

func TestPipelineRequiresVertexShader(t *testing.T) {
	b, device := newTestBinder(t, core.BinderConfig{})
	realizeDescriptors(t, b)
	b.BindProgramBundle(ProgramBundle{Fragment: newShaderModule()})

	_, _, err := b.GetOrCreatePipeline()
	assert.ErrorIs(t, err, core.ErrPrecondition)
	assert.ErrorIs(t, err, core.ErrMissingVertexShader)
	assert.Zero(t, device.callCount("CreateGraphicsPipeline"))
}

func TestPipelineCreationFailureIsPropagated(t *testing.T) {
	b, device := newTestBinder(t, core.BinderConfig{})
	realizeDescriptors(t, b)
	b.BindProgramBundle(ProgramBundle{Vertex: newShaderModule(), Fragment: newShaderModule()})

	device.failPipeline = &core.NativeError{Call: "vkCreateGraphicsPipelines", Result: "VK_ERROR_OUT_OF_DEVICE_MEMORY"}
	pipeline, rebind, err := b.GetOrCreatePipeline()
	assert.ErrorIs(t, err, core.ErrNativeCreation)
	assert.Nil(t, pipeline)
	assert.False(t, rebind)
	assert.Zero(t, b.Stats().Pipelines)

	// The key is still dirty, so the next call retries.
	device.failPipeline = nil
	_, rebind = realizePipeline(t, b)
	assert.True(t, rebind)
	assert.Equal(t, 1, b.Stats().Pipelines)
}

func TestDepthOnlyPipelineHasNoFragmentStage(t *testing.T) {
	b, device := newTestBinder(t, core.BinderConfig{})
	realizeDescriptors(t, b)
	b.BindProgramBundle(ProgramBundle{Vertex: newShaderModule()})
	realizePipeline(t, b)

	require.Len(t, device.pipelineInfos, 1)
	info := device.pipelineInfos[0]
	assert.Equal(t, uint32(1), info.StageCount)
	assert.Equal(t, vk.ShaderStageVertexBit, info.PStages[0].Stage)
	assert.Zero(t, info.PColorBlendState.AttachmentCount)
	assert.Empty(t, info.PColorBlendState.PAttachments)
}

func TestPipelineCreateInfoFromKey(t *testing.T) {
	b, device := newTestBinder(t, core.BinderConfig{})
	renderpass := newRenderPass()
	realizeDescriptors(t, b)

	raster := DefaultRasterState()
	raster.ColorTargetCount = 2
	raster.BlendEnable = true
	raster.RasterizationSamples = 0

	var array VertexArray
	array.Attributes[0] = VertexAttribute{Location: 0, Binding: 0, Format: vk.FormatR32g32b32Sfloat, Offset: 0}
	array.Attributes[1] = VertexAttribute{Location: 1, Binding: 0, Format: vk.FormatR32g32Sfloat, Offset: 12}
	array.Attributes[4] = VertexAttribute{Location: 4, Binding: 1, Format: vk.FormatR8g8b8a8Unorm, Offset: 0}
	array.Buffers[0] = VertexBuffer{Binding: 0, Stride: 20}
	array.Buffers[1] = VertexBuffer{Binding: 1, Stride: 4}

	b.BindProgramBundle(ProgramBundle{Vertex: newShaderModule(), Fragment: newShaderModule()})
	b.BindRasterState(raster)
	b.BindRenderPass(renderpass)
	b.BindPrimitiveTopology(vk.PrimitiveTopologyLineList)
	b.BindVertexArray(array)
	realizePipeline(t, b)

	require.Len(t, device.pipelineInfos, 1)
	info := device.pipelineInfos[0]
	assert.Equal(t, uint32(2), info.StageCount)
	assert.Equal(t, uint32(3), info.PVertexInputState.VertexAttributeDescriptionCount)
	assert.Equal(t, uint32(2), info.PVertexInputState.VertexBindingDescriptionCount)
	assert.Equal(t, uint32(4), info.PVertexInputState.PVertexAttributeDescriptions[2].Location)
	assert.Equal(t, vk.PrimitiveTopologyLineList, info.PInputAssemblyState.Topology)
	assert.Equal(t, uint32(2), info.PColorBlendState.AttachmentCount)
	assert.Equal(t, vk.Bool32(vk.True), info.PColorBlendState.PAttachments[1].BlendEnable)
	assert.Equal(t, vk.SampleCount1Bit, info.PMultisampleState.RasterizationSamples)
	assert.Equal(t, uint32(2), info.PDynamicState.DynamicStateCount)
	assert.Equal(t, uint32(1), info.PViewportState.ViewportCount)
	assert.Same(t, renderpass, info.RenderPass)
	assert.Same(t, b.pipelineLayout, info.Layout)
	assert.Equal(t, int32(-1), info.BasePipelineIndex)
}

func TestDescriptorWritesSkipUnboundSlots(t *testing.T) {
	b, device := newTestBinder(t, core.BinderConfig{})
	buffer := newBuffer()
	sampler := SamplerBinding{Sampler: newSampler(), ImageView: newImageView(), ImageLayout: vk.ImageLayoutShaderReadOnlyOptimal}

	b.BindUniformBuffer(2, buffer, 64, 128)
	b.BindSampler(5, sampler)
	// A sampler without a view has nothing to write.
	b.BindSampler(6, SamplerBinding{Sampler: newSampler()})
	binding := realizeDescriptors(t, b)
	assert.True(t, binding.Writes.Applied)
	assert.Empty(t, binding.Writes.Pending)

	require.Len(t, device.writes, 1)
	writes := device.writes[0]
	require.Len(t, writes, 2)

	assert.Same(t, binding.Sets[0], writes[0].DstSet)
	assert.Equal(t, uint32(2), writes[0].DstBinding)
	assert.Equal(t, vk.DescriptorTypeUniformBuffer, writes[0].DescriptorType)
	assert.Equal(t, vk.DeviceSize(64), writes[0].PBufferInfo[0].Offset)
	assert.Equal(t, vk.DeviceSize(128), writes[0].PBufferInfo[0].Range)

	assert.Same(t, binding.Sets[1], writes[1].DstSet)
	assert.Equal(t, uint32(5), writes[1].DstBinding)
	assert.Equal(t, vk.DescriptorTypeCombinedImageSampler, writes[1].DescriptorType)
	assert.Same(t, sampler.ImageView, writes[1].PImageInfo[0].ImageView)
}

func TestDeferredDescriptorWritesAreHandedBack(t *testing.T) {
	b, device := newTestBinder(t, core.BinderConfig{})
	b.BindUniformBuffer(0, newBuffer(), 0, 64)

	binding, err := b.GetOrCreateDescriptors(WriteDeferred)
	require.NoError(t, err)
	assert.True(t, binding.Rebind)
	assert.False(t, binding.Writes.Applied)
	assert.Len(t, binding.Writes.Pending, 1)
	assert.Zero(t, device.callCount("UpdateDescriptorSets"))

	// A cache hit never has pending writes.
	b.ResetBindings()
	binding, err = b.GetOrCreateDescriptors(WriteDeferred)
	require.NoError(t, err)
	assert.True(t, binding.Rebind)
	assert.True(t, binding.Writes.Applied)
	assert.Empty(t, binding.Writes.Pending)
}

func TestEmptyDeferredWritesAreApplied(t *testing.T) {
	b, _ := newTestBinder(t, core.BinderConfig{})
	binding, err := b.GetOrCreateDescriptors(WriteDeferred)
	require.NoError(t, err)
	assert.True(t, binding.Writes.Applied)
	assert.Empty(t, binding.Writes.Pending)
}

func TestDescriptorLayoutsCreatedOnce(t *testing.T) {
	b, device := newTestBinder(t, core.BinderConfig{MaxDescriptorSets: 10})
	realizeDescriptors(t, b)
	b.BindUniformBuffer(0, newBuffer(), 0, 16)
	realizeDescriptors(t, b)

	assert.Equal(t, 2, device.callCount("CreateDescriptorSetLayout"))
	assert.Equal(t, 1, device.callCount("CreatePipelineLayout"))
	assert.Equal(t, 1, device.callCount("CreateDescriptorPool"))
	require.NotNil(t, device.poolInfo)
	assert.Equal(t, uint32(20), device.poolInfo.MaxSets)
	assert.Equal(t, vk.DescriptorPoolCreateFlags(vk.DescriptorPoolCreateFreeDescriptorSetBit), device.poolInfo.Flags)
}

func TestCacheReturnsSameHandleOnlyForEqualKeys(t *testing.T) {
	b, _ := newTestBinder(t, core.BinderConfig{MaxDescriptorSets: 4096})
	buffers := []vk.Buffer{nil, newBuffer(), newBuffer(), newBuffer()}
	views := []vk.ImageView{nil, newImageView(), newImageView()}
	sampler := newSampler()

	seen := make(map[DescriptorKey][VULKAN_BINDER_DESCRIPTOR_SET_COUNT]vk.DescriptorSet)
	owner := make(map[vk.DescriptorSet]DescriptorKey)
	rng := rand.New(rand.NewSource(7))
	for i := 0; i < 500; i++ {
		slot := rng.Intn(3)
		if rng.Intn(2) == 0 {
			b.BindUniformBuffer(slot, buffers[rng.Intn(len(buffers))], vk.DeviceSize(rng.Intn(2)*256), 256)
		} else {
			view := views[rng.Intn(len(views))]
			b.BindSampler(slot, SamplerBinding{Sampler: sampler, ImageView: view, ImageLayout: vk.ImageLayoutShaderReadOnlyOptimal})
		}
		binding := realizeDescriptors(t, b)

		key := b.descriptorKey
		if prev, ok := seen[key]; ok {
			require.True(t, sameSets(prev, binding.Sets), "equal keys must share descriptor sets")
		}
		seen[key] = binding.Sets
		if k, ok := owner[binding.Sets[0]]; ok {
			require.True(t, k == key, "distinct keys must not share descriptor sets")
		}
		owner[binding.Sets[0]] = key
	}
	assert.Equal(t, len(seen), b.Stats().DescriptorEntries)
}

func TestGCRespectsGracePeriod(t *testing.T) {
	b, device := newTestBinder(t, core.BinderConfig{GracePeriod: 2})

	// Let a few frames go by so the stamp is not zero.
	for i := 0; i < 4; i++ {
		b.GC()
	}
	b.BindUniformBuffer(0, newBuffer(), 0, 16)
	first := realizeDescriptors(t, b)
	b.BindUniformBuffer(0, newBuffer(), 0, 16)
	realizeDescriptors(t, b)

	// The first entry was last touched at frame 4.
	for frame := uint64(5); frame <= 6; frame++ {
		b.GC()
		require.Equal(t, frame, b.CurrentFrame())
		assert.True(t, device.isLive(unsafe.Pointer(first.Sets[0])), "destroyed at frame %d", frame)
	}
	b.GC()
	assert.False(t, device.isLive(unsafe.Pointer(first.Sets[0])))
	assert.Equal(t, 1, device.callCount("FreeDescriptorSets"))
	assert.Equal(t, 1, b.Stats().DescriptorEntries)
}

func TestGCIsNoOpDuringFirstGracePeriod(t *testing.T) {
	b, device := newTestBinder(t, core.BinderConfig{GracePeriod: 3})
	b.BindUniformBuffer(0, newBuffer(), 0, 16)
	realizeDescriptors(t, b)
	b.BindUniformBuffer(0, newBuffer(), 0, 16)
	realizeDescriptors(t, b)

	for i := 0; i < 3; i++ {
		b.GC()
	}
	assert.Zero(t, device.callCount("FreeDescriptorSets"))
	b.GC()
	assert.Equal(t, 1, device.callCount("FreeDescriptorSets"))
}

func TestGCNeverDestroysBoundEntries(t *testing.T) {
	b, device := newTestBinder(t, core.BinderConfig{GracePeriod: 2})
	b.BindUniformBuffer(0, newBuffer(), 0, 16)
	b.BindProgramBundle(ProgramBundle{Vertex: newShaderModule()})
	descriptors := realizeDescriptors(t, b)
	pipeline, _ := realizePipeline(t, b)

	for i := 0; i < 50; i++ {
		b.GC()
	}
	assert.True(t, device.isLive(unsafe.Pointer(pipeline)))
	assert.True(t, device.isLive(unsafe.Pointer(descriptors.Sets[0])))
	assert.Zero(t, device.callCount("DestroyPipeline"))

	// Still the current objects, so no rebind.
	again := realizeDescriptors(t, b)
	assert.False(t, again.Rebind)
	_, rebind := realizePipeline(t, b)
	assert.False(t, rebind)
}

func TestGCDestroysSupersededPipelines(t *testing.T) {
	b, device := newTestBinder(t, core.BinderConfig{GracePeriod: 2})
	vertex := newShaderModule()
	realizeDescriptors(t, b)
	b.BindProgramBundle(ProgramBundle{Vertex: vertex, Fragment: newShaderModule()})
	old, _ := realizePipeline(t, b)
	b.BindProgramBundle(ProgramBundle{Vertex: vertex, Fragment: newShaderModule()})
	current, _ := realizePipeline(t, b)

	for i := 0; i < 3; i++ {
		b.GC()
	}
	assert.False(t, device.isLive(unsafe.Pointer(old)))
	assert.True(t, device.isLive(unsafe.Pointer(current)))
	assert.Equal(t, uint64(1), b.Stats().Pipeline.Destroyed)
}

func TestUnbindUniformBufferEvictsEveryReference(t *testing.T) {
	b, device := newTestBinder(t, core.BinderConfig{GracePeriod: 2})
	buffer, other := newBuffer(), newBuffer()

	b.BindUniformBuffer(0, buffer, 0, 64)
	first := realizeDescriptors(t, b)
	b.BindUniformBuffer(0, other, 0, 64)
	b.BindUniformBuffer(3, buffer, 256, 64)
	second := realizeDescriptors(t, b)
	b.BindUniformBuffer(3, nil, 0, 0)
	third := realizeDescriptors(t, b)

	b.UnbindUniformBuffer(buffer)

	stats := b.Stats()
	assert.Equal(t, 1, stats.DescriptorEntries)
	assert.Equal(t, 2, stats.DescriptorGraveyard)
	b.descriptors.Range(func(k DescriptorKey, _ *descriptorEntry) bool {
		assert.False(t, k.referencesBuffer(buffer))
		return true
	})

	// The current key did not reference the buffer and stays clean.
	again := realizeDescriptors(t, b)
	assert.False(t, again.Rebind)
	assert.True(t, sameSets(third.Sets, again.Sets))

	// Buried sets wait out the grace period.
	assert.True(t, device.isLive(unsafe.Pointer(first.Sets[0])))
	for i := 0; i < 3; i++ {
		b.GC()
	}
	assert.False(t, device.isLive(unsafe.Pointer(first.Sets[0])))
	assert.False(t, device.isLive(unsafe.Pointer(second.Sets[0])))
	assert.True(t, device.isLive(unsafe.Pointer(third.Sets[0])))
	assert.Zero(t, b.Stats().DescriptorGraveyard)
	assert.Zero(t, device.doubleDestroys)
}

func TestUnbindCurrentBufferScrubsKey(t *testing.T) {
	b, _ := newTestBinder(t, core.BinderConfig{})
	buffer, other := newBuffer(), newBuffer()
	b.BindUniformBuffer(1, buffer, 0, 64)
	b.BindUniformBuffer(2, other, 0, 64)
	before := realizeDescriptors(t, b)

	b.UnbindUniformBuffer(buffer)
	assert.Nil(t, b.descriptorKey.UniformBuffers[1])
	assert.Zero(t, b.descriptorKey.UniformBufferSizes[1])
	assert.Same(t, other, b.descriptorKey.UniformBuffers[2])

	after := realizeDescriptors(t, b)
	assert.True(t, after.Rebind)
	assert.False(t, sameSets(before.Sets, after.Sets))
}

func TestUnbindImageView(t *testing.T) {
	b, _ := newTestBinder(t, core.BinderConfig{})
	view := newImageView()
	sampler := newSampler()
	b.BindSampler(0, SamplerBinding{Sampler: sampler, ImageView: view})
	realizeDescriptors(t, b)
	b.BindSampler(0, SamplerBinding{Sampler: sampler, ImageView: newImageView()})
	b.BindSampler(4, SamplerBinding{Sampler: sampler, ImageView: view})
	realizeDescriptors(t, b)

	b.UnbindImageView(view)
	assert.Zero(t, b.Stats().DescriptorEntries)
	assert.Equal(t, 2, b.Stats().DescriptorGraveyard)
	assert.Equal(t, SamplerBinding{}, b.descriptorKey.Samplers[4])
	assert.NotNil(t, b.descriptorKey.Samplers[0].ImageView)
	assert.True(t, b.dirtyDescriptor)
}

func TestUnbindNilHandleIsIgnored(t *testing.T) {
	b, _ := newTestBinder(t, core.BinderConfig{})
	realizeDescriptors(t, b)
	b.UnbindUniformBuffer(nil)
	b.UnbindImageView(nil)
	b.UnbindRenderPass(nil)
	b.UnbindShaderModule(nil)
	assert.Equal(t, 1, b.Stats().DescriptorEntries)
	assert.False(t, b.dirtyDescriptor)
}

func TestUnbindRenderPassRetiresPipelines(t *testing.T) {
	b, device := newTestBinder(t, core.BinderConfig{GracePeriod: 1})
	renderpass := newRenderPass()
	realizeDescriptors(t, b)
	b.BindProgramBundle(ProgramBundle{Vertex: newShaderModule()})
	b.BindRenderPass(renderpass)
	pipeline, _ := realizePipeline(t, b)

	b.UnbindRenderPass(renderpass)
	assert.Nil(t, b.pipelineKey.RenderPass)
	assert.Zero(t, b.Stats().Pipelines)
	assert.Equal(t, 1, b.Stats().PipelineGraveyard)

	_, rebind := realizePipeline(t, b)
	assert.True(t, rebind)

	b.GC()
	assert.True(t, device.isLive(unsafe.Pointer(pipeline)))
	b.GC()
	assert.False(t, device.isLive(unsafe.Pointer(pipeline)))
}

func TestUnbindShaderModuleRetiresPipelines(t *testing.T) {
	b, _ := newTestBinder(t, core.BinderConfig{})
	vertex, fragment := newShaderModule(), newShaderModule()
	realizeDescriptors(t, b)
	b.BindProgramBundle(ProgramBundle{Vertex: vertex, Fragment: fragment})
	realizePipeline(t, b)
	b.BindProgramBundle(ProgramBundle{Vertex: vertex})
	realizePipeline(t, b)

	b.UnbindShaderModule(fragment)
	assert.Equal(t, 1, b.Stats().Pipelines)
	assert.Equal(t, 1, b.Stats().PipelineGraveyard)
	assert.Same(t, vertex, b.pipelineKey.Shaders[0])

	b.UnbindShaderModule(vertex)
	assert.Zero(t, b.Stats().Pipelines)
	_, _, err := b.GetOrCreatePipeline()
	assert.ErrorIs(t, err, core.ErrMissingVertexShader)
}

func TestDescriptorPoolExhaustion(t *testing.T) {
	b, device := newTestBinder(t, core.BinderConfig{MaxDescriptorSets: 3})
	for i := 0; i < 3; i++ {
		b.BindUniformBuffer(0, newBuffer(), 0, 16)
		realizeDescriptors(t, b)
	}
	current := b.currentDescriptor

	b.BindUniformBuffer(0, newBuffer(), 0, 16)
	_, err := b.GetOrCreateDescriptors(WriteImmediate)
	assert.ErrorIs(t, err, core.ErrPrecondition)
	assert.ErrorIs(t, err, core.ErrDescriptorPoolExhausted)

	// Nothing was evicted to make room.
	assert.Equal(t, 3, b.Stats().DescriptorEntries)
	assert.Zero(t, device.callCount("FreeDescriptorSets"))
	assert.Equal(t, 3, device.callCount("AllocateDescriptorSets"))
	assert.Same(t, current, b.currentDescriptor)
}

func TestDescriptorPoolCountsBuriedSets(t *testing.T) {
	b, _ := newTestBinder(t, core.BinderConfig{MaxDescriptorSets: 2, GracePeriod: 1})
	buffer := newBuffer()
	b.BindUniformBuffer(0, buffer, 0, 16)
	realizeDescriptors(t, b)
	b.BindUniformBuffer(0, buffer, 16, 16)
	realizeDescriptors(t, b)

	b.UnbindUniformBuffer(buffer)
	assert.Equal(t, uint32(2), b.Stats().AllocatedDescriptorSets)

	b.BindUniformBuffer(0, newBuffer(), 0, 16)
	_, err := b.GetOrCreateDescriptors(WriteImmediate)
	assert.ErrorIs(t, err, core.ErrDescriptorPoolExhausted)

	b.GC()
	b.GC()
	assert.Zero(t, b.Stats().AllocatedDescriptorSets)
	realizeDescriptors(t, b)
}

func TestResetBindingsForcesRebind(t *testing.T) {
	b, device := newTestBinder(t, core.BinderConfig{})
	b.BindProgramBundle(ProgramBundle{Vertex: newShaderModule()})
	descriptors := realizeDescriptors(t, b)
	pipeline, _ := realizePipeline(t, b)

	b.ResetBindings()
	again := realizeDescriptors(t, b)
	assert.True(t, again.Rebind)
	assert.True(t, sameSets(descriptors.Sets, again.Sets))
	h, rebind := realizePipeline(t, b)
	assert.True(t, rebind)
	assert.Same(t, pipeline, h)
	assert.Equal(t, 1, device.callCount("CreateGraphicsPipeline"))
}

func TestDestroyCacheReleasesEverything(t *testing.T) {
	b, device := newTestBinder(t, core.BinderConfig{})
	vertex := newShaderModule()
	b.BindProgramBundle(ProgramBundle{Vertex: vertex})
	b.BindUniformBuffer(0, newBuffer(), 0, 16)
	realizeDescriptors(t, b)
	realizePipeline(t, b)
	b.BindProgramBundle(ProgramBundle{Vertex: vertex, Fragment: newShaderModule()})
	realizePipeline(t, b)
	b.UnbindShaderModule(vertex)

	b.DestroyCache()

	assert.Empty(t, device.live)
	assert.Zero(t, device.doubleDestroys)
	stats := b.Stats()
	assert.Zero(t, stats.Pipelines)
	assert.Zero(t, stats.DescriptorEntries)
	assert.Zero(t, stats.PipelineGraveyard)
	assert.Zero(t, stats.AllocatedDescriptorSets)

	// Usable again, the layouts come back lazily.
	b.BindProgramBundle(ProgramBundle{Vertex: newShaderModule()})
	binding := realizeDescriptors(t, b)
	assert.True(t, binding.Rebind)
	_, rebind := realizePipeline(t, b)
	assert.True(t, rebind)
	assert.Equal(t, 2, device.callCount("CreateDescriptorPool"))
}

func TestBinderStatsCountHitsAndMisses(t *testing.T) {
	b, _ := newTestBinder(t, core.BinderConfig{})
	realizeDescriptors(t, b)
	realizeDescriptors(t, b)
	b.ResetBindings()
	realizeDescriptors(t, b)

	stats := b.Stats()
	assert.Equal(t, uint64(1), stats.Descriptor.Misses)
	assert.Equal(t, uint64(2), stats.Descriptor.Hits)
	assert.NotEmpty(t, b.Name())
}

func TestSetGracePeriod(t *testing.T) {
	b, _ := newTestBinder(t, core.BinderConfig{GracePeriod: 2})
	assert.Equal(t, uint64(2), b.GracePeriod())

	b.SetGracePeriod(0)
	assert.Equal(t, uint64(2), b.GracePeriod())
	b.SetGracePeriod(4)
	assert.Equal(t, uint64(4), b.GracePeriod())
}
