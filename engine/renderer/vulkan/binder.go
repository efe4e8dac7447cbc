package vulkan

import (
	"sync/atomic"

	vk "github.com/goki/vulkan"
	"github.com/google/uuid"
	"github.com/spaghettifunk/vkbinder/engine/containers"
	"github.com/spaghettifunk/vkbinder/engine/core"
)

type pipelineEntry struct {
	handle    vk.Pipeline
	timestamp uint64
	bound     bool
}

type descriptorEntry struct {
	sets      [VULKAN_BINDER_DESCRIPTOR_SET_COUNT]vk.DescriptorSet
	timestamp uint64
	bound     bool
}

// BinderStats describes the binder's caches at one point in time.
type BinderStats struct {
	Frame                   uint64
	Pipelines               int
	DescriptorEntries       int
	PipelineGraveyard       int
	DescriptorGraveyard     int
	AllocatedDescriptorSets uint32
	Pipeline                core.CacheStats
	Descriptor              core.CacheStats
}

// VulkanBinder turns "bind this state" calls into cached pipelines and
// descriptor sets. Bind* calls only edit the current keys; the GetOrCreate*
// accessors realize a key into a native object, creating it on a cache miss,
// and report whether the caller has to issue a bind command.
//
// Objects stay alive while bound and for GracePeriod frames after they were
// last used, counted by GC calls. The binder is not safe for concurrent use:
// drive it from the thread that records the command buffer.
type VulkanBinder struct {
	name   string
	device Device
	config core.BinderConfig
	clock  *core.FrameClock
	// gracePeriod may be changed from another goroutine by SetGracePeriod.
	gracePeriod atomic.Uint64

	pipelineKey     PipelineKey
	descriptorKey   DescriptorKey
	dirtyPipeline   bool
	dirtyDescriptor bool

	currentPipeline   *pipelineEntry
	currentDescriptor *descriptorEntry
	// lastCommandBuffer is the command buffer CommitBindings last recorded into.
	lastCommandBuffer vk.CommandBuffer

	pipelines   *containers.HashMap[PipelineKey, *pipelineEntry]
	descriptors *containers.HashMap[DescriptorKey, *descriptorEntry]

	pipelineGraveyard   *graveyard[vk.Pipeline]
	descriptorGraveyard *graveyard[[VULKAN_BINDER_DESCRIPTOR_SET_COUNT]vk.DescriptorSet]

	descriptorSetLayouts [VULKAN_BINDER_DESCRIPTOR_SET_COUNT]vk.DescriptorSetLayout
	pipelineLayout       vk.PipelineLayout
	descriptorPool       vk.DescriptorPool
	// allocatedSets counts descriptor-set pairs taken from the pool, live or buried.
	allocatedSets uint32

	pipelineMetrics   core.CacheMetrics
	descriptorMetrics core.CacheMetrics
}

// NewVulkanBinder creates a binder. Zero config fields fall back to the defaults.
// Layouts and the descriptor pool are created on the first GetOrCreateDescriptors.
func NewVulkanBinder(device Device, config core.BinderConfig) *VulkanBinder {
	if config.GracePeriod == 0 {
		config.GracePeriod = core.DEFAULT_GRACE_PERIOD
	}
	if config.MaxDescriptorSets == 0 {
		config.MaxDescriptorSets = core.DEFAULT_MAX_DESCRIPTOR_SETS
	}
	b := &VulkanBinder{
		name:                uuid.New().String(),
		device:              device,
		config:              config,
		clock:               core.NewFrameClock(),
		dirtyPipeline:       true,
		dirtyDescriptor:     true,
		pipelines:           containers.NewHashMap[PipelineKey, *pipelineEntry](pipelineKeyPolicy{}),
		descriptors:         containers.NewHashMap[DescriptorKey, *descriptorEntry](descriptorKeyPolicy{}),
		pipelineGraveyard:   newGraveyard[vk.Pipeline](),
		descriptorGraveyard: newGraveyard[[VULKAN_BINDER_DESCRIPTOR_SET_COUNT]vk.DescriptorSet](),
	}
	b.gracePeriod.Store(config.GracePeriod)
	b.pipelineKey.Raster = DefaultRasterState()
	b.pipelineKey.Topology = vk.PrimitiveTopologyTriangleList
	core.LogDebug("binder %s created (grace period %d frames, %d descriptor sets)", b.name, config.GracePeriod, config.MaxDescriptorSets)
	return b
}

func (b *VulkanBinder) Name() string {
	return b.name
}

func (b *VulkanBinder) BindProgramBundle(bundle ProgramBundle) {
	shaders := [2]vk.ShaderModule{bundle.Vertex, bundle.Fragment}
	if b.pipelineKey.Shaders != shaders {
		b.pipelineKey.Shaders = shaders
		b.dirtyPipeline = true
	}
}

func (b *VulkanBinder) BindRasterState(state RasterState) {
	if !b.pipelineKey.Raster.equal(state) {
		b.pipelineKey.Raster = state
		b.dirtyPipeline = true
	}
}

func (b *VulkanBinder) BindRenderPass(renderpass vk.RenderPass) {
	if b.pipelineKey.RenderPass != renderpass {
		b.pipelineKey.RenderPass = renderpass
		b.dirtyPipeline = true
	}
}

func (b *VulkanBinder) BindPrimitiveTopology(topology vk.PrimitiveTopology) {
	if b.pipelineKey.Topology != topology {
		b.pipelineKey.Topology = topology
		b.dirtyPipeline = true
	}
}

func (b *VulkanBinder) BindVertexArray(array VertexArray) {
	if b.pipelineKey.Vertex != array {
		b.pipelineKey.Vertex = array
		b.dirtyPipeline = true
	}
}

// BindUniformBuffer sets slot index of descriptor set 0. Out of range slots are ignored.
func (b *VulkanBinder) BindUniformBuffer(index int, buffer vk.Buffer, offset, size vk.DeviceSize) {
	if index < 0 || index >= VULKAN_BINDER_UBUFFER_BINDING_COUNT {
		core.LogWarn("binder %s: uniform buffer binding %d out of range", b.name, index)
		return
	}
	k := &b.descriptorKey
	if k.UniformBuffers[index] != buffer || k.UniformBufferOffsets[index] != offset || k.UniformBufferSizes[index] != size {
		k.UniformBuffers[index] = buffer
		k.UniformBufferOffsets[index] = offset
		k.UniformBufferSizes[index] = size
		b.dirtyDescriptor = true
	}
}

// BindSampler sets slot index of descriptor set 1. Out of range slots are ignored.
func (b *VulkanBinder) BindSampler(index int, sampler SamplerBinding) {
	if index < 0 || index >= VULKAN_BINDER_SAMPLER_BINDING_COUNT {
		core.LogWarn("binder %s: sampler binding %d out of range", b.name, index)
		return
	}
	if b.descriptorKey.Samplers[index] != sampler {
		b.descriptorKey.Samplers[index] = sampler
		b.dirtyDescriptor = true
	}
}

// ResetBindings forces the next accessors to report a rebind. Call it when
// switching to another command buffer.
func (b *VulkanBinder) ResetBindings() {
	b.dirtyPipeline = true
	b.dirtyDescriptor = true
}

// UnbindUniformBuffer must be called before buffer is destroyed. It clears the
// slots holding buffer and retires every cached descriptor set that refers to
// it, in any slot and at any offset.
func (b *VulkanBinder) UnbindUniformBuffer(buffer vk.Buffer) {
	if buffer == nil {
		return
	}
	b.evictDescriptors(func(k *DescriptorKey) bool { return k.referencesBuffer(buffer) })

	k := &b.descriptorKey
	for i := range k.UniformBuffers {
		if k.UniformBuffers[i] == buffer {
			k.UniformBuffers[i] = nil
			k.UniformBufferOffsets[i] = 0
			k.UniformBufferSizes[i] = 0
			b.dirtyDescriptor = true
		}
	}
}

// UnbindImageView must be called before view is destroyed. Same contract as
// UnbindUniformBuffer, for sampler slots.
func (b *VulkanBinder) UnbindImageView(view vk.ImageView) {
	if view == nil {
		return
	}
	b.evictDescriptors(func(k *DescriptorKey) bool { return k.referencesImageView(view) })

	for i := range b.descriptorKey.Samplers {
		if b.descriptorKey.Samplers[i].ImageView == view {
			b.descriptorKey.Samplers[i] = SamplerBinding{}
			b.dirtyDescriptor = true
		}
	}
}

// UnbindRenderPass must be called before renderpass is destroyed. Pipelines
// created against it are retired so a recycled handle can never hit them.
func (b *VulkanBinder) UnbindRenderPass(renderpass vk.RenderPass) {
	if renderpass == nil {
		return
	}
	b.evictPipelines(func(k *PipelineKey) bool { return k.RenderPass == renderpass })
	if b.pipelineKey.RenderPass == renderpass {
		b.pipelineKey.RenderPass = nil
		b.dirtyPipeline = true
	}
}

// UnbindShaderModule must be called before module is destroyed.
func (b *VulkanBinder) UnbindShaderModule(module vk.ShaderModule) {
	if module == nil {
		return
	}
	b.evictPipelines(func(k *PipelineKey) bool { return k.Shaders[0] == module || k.Shaders[1] == module })
	for i := range b.pipelineKey.Shaders {
		if b.pipelineKey.Shaders[i] == module {
			b.pipelineKey.Shaders[i] = nil
			b.dirtyPipeline = true
		}
	}
}

func (b *VulkanBinder) evictDescriptors(match func(*DescriptorKey) bool) {
	now := b.clock.Now()
	evicted := b.descriptors.DeleteFunc(func(k DescriptorKey, _ *descriptorEntry) bool {
		return match(&k)
	})
	for _, entry := range evicted {
		if entry == b.currentDescriptor {
			b.currentDescriptor = nil
			b.dirtyDescriptor = true
		}
		b.descriptorGraveyard.bury(entry.sets, now)
		b.descriptorMetrics.Evict()
	}
}

func (b *VulkanBinder) evictPipelines(match func(*PipelineKey) bool) {
	now := b.clock.Now()
	evicted := b.pipelines.DeleteFunc(func(k PipelineKey, _ *pipelineEntry) bool {
		return match(&k)
	})
	for _, entry := range evicted {
		if entry == b.currentPipeline {
			b.currentPipeline = nil
			b.dirtyPipeline = true
		}
		b.pipelineGraveyard.bury(entry.handle, now)
		b.pipelineMetrics.Evict()
	}
}

// GC advances the frame counter and destroys what the GPU can no longer be
// using: unbound cache entries and graveyard entries idle for more than
// GracePeriod frames. Call it once per frame.
func (b *VulkanBinder) GC() {
	now := b.clock.Advance()
	grace := b.gracePeriod.Load()
	if now <= grace {
		return
	}

	expired := func(bound bool, timestamp uint64) bool {
		return !bound && core.Expired(timestamp, now, grace)
	}

	for _, entry := range b.pipelines.DeleteFunc(func(_ PipelineKey, e *pipelineEntry) bool {
		return expired(e.bound, e.timestamp)
	}) {
		b.destroyPipeline(entry.handle)
	}
	for _, entry := range b.descriptors.DeleteFunc(func(_ DescriptorKey, e *descriptorEntry) bool {
		return expired(e.bound, e.timestamp)
	}) {
		b.freeDescriptorSets(entry.sets)
	}

	b.pipelineGraveyard.sweep(now, grace, b.destroyPipeline)
	b.descriptorGraveyard.sweep(now, grace, b.freeDescriptorSets)
}

func (b *VulkanBinder) destroyPipeline(pipeline vk.Pipeline) {
	b.device.DestroyPipeline(pipeline)
	b.pipelineMetrics.Destroy()
}

func (b *VulkanBinder) freeDescriptorSets(sets [VULKAN_BINDER_DESCRIPTOR_SET_COUNT]vk.DescriptorSet) {
	b.device.FreeDescriptorSets(b.descriptorPool, sets[:])
	b.allocatedSets--
	b.descriptorMetrics.Destroy()
}

// DestroyCache destroys every object the binder created, bound or not, along
// with the layouts and the descriptor pool. The device must be idle. The
// binder stays usable and recreates what it needs lazily.
func (b *VulkanBinder) DestroyCache() {
	b.pipelines.Range(func(_ PipelineKey, e *pipelineEntry) bool {
		b.destroyPipeline(e.handle)
		return true
	})
	b.pipelines.Clear()
	b.pipelineGraveyard.drain(b.destroyPipeline)

	// Destroying the pool releases every set allocated from it.
	countDestroyed := func([VULKAN_BINDER_DESCRIPTOR_SET_COUNT]vk.DescriptorSet) { b.descriptorMetrics.Destroy() }
	b.descriptors.Range(func(_ DescriptorKey, e *descriptorEntry) bool {
		countDestroyed(e.sets)
		return true
	})
	b.descriptors.Clear()
	b.descriptorGraveyard.drain(countDestroyed)
	b.allocatedSets = 0

	if b.descriptorPool != nil {
		b.device.DestroyDescriptorPool(b.descriptorPool)
		b.descriptorPool = nil
	}
	if b.pipelineLayout != nil {
		b.device.DestroyPipelineLayout(b.pipelineLayout)
		b.pipelineLayout = nil
	}
	for i, layout := range b.descriptorSetLayouts {
		if layout != nil {
			b.device.DestroyDescriptorSetLayout(layout)
			b.descriptorSetLayouts[i] = nil
		}
	}

	b.currentPipeline = nil
	b.currentDescriptor = nil
	b.lastCommandBuffer = nil
	b.dirtyPipeline = true
	b.dirtyDescriptor = true
	core.LogDebug("binder %s cache destroyed", b.name)
}

// SetGracePeriod changes the grace period for the next GC. Objects already
// waiting are judged by the new value. Zero is ignored. Unlike the rest of the
// binder it may be called from any goroutine.
func (b *VulkanBinder) SetGracePeriod(frames uint64) {
	if frames == 0 {
		core.LogWarn("binder %s: grace period must be at least one frame", b.name)
		return
	}
	b.gracePeriod.Store(frames)
}

func (b *VulkanBinder) GracePeriod() uint64 {
	return b.gracePeriod.Load()
}

// CurrentFrame returns the frame counter advanced by GC.
func (b *VulkanBinder) CurrentFrame() uint64 {
	return b.clock.Now()
}

func (b *VulkanBinder) Stats() BinderStats {
	return BinderStats{
		Frame:                   b.clock.Now(),
		Pipelines:               b.pipelines.Len(),
		DescriptorEntries:       b.descriptors.Len(),
		PipelineGraveyard:       b.pipelineGraveyard.len(),
		DescriptorGraveyard:     b.descriptorGraveyard.len(),
		AllocatedDescriptorSets: b.allocatedSets,
		Pipeline:                b.pipelineMetrics.Snapshot(),
		Descriptor:              b.descriptorMetrics.Snapshot(),
	}
}
