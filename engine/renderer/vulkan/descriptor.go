package vulkan

import (
	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/vkbinder/engine/core"
)

// DescriptorWriteMode selects who issues the descriptor writes of a new set.
type DescriptorWriteMode int

const (
	// WriteImmediate updates new descriptor sets before returning.
	WriteImmediate DescriptorWriteMode = iota
	// WriteDeferred hands the writes back so the caller can batch them.
	// They must be applied before the sets are bound.
	WriteDeferred
)

// DescriptorWrites tells the caller whether descriptor writes are still pending.
// Applied is true when there was nothing to write or the binder already wrote it.
type DescriptorWrites struct {
	Applied bool
	Pending []vk.WriteDescriptorSet
}

// DescriptorBinding is the result of GetOrCreateDescriptors. The handles are
// borrowed: they stay valid until the next Bind*/GC cycle.
type DescriptorBinding struct {
	Sets   [VULKAN_BINDER_DESCRIPTOR_SET_COUNT]vk.DescriptorSet
	Layout vk.PipelineLayout
	// Rebind is true when the caller must record vkCmdBindDescriptorSets.
	Rebind bool
	Writes DescriptorWrites
}

// GetOrCreateDescriptors realizes the current descriptor key. The first call
// creates the descriptor set layouts, the pipeline layout and the pool.
//
// Running out of pool space is a programmer error: the returned error matches
// core.ErrPrecondition and core.ErrDescriptorPoolExhausted, and nothing in the
// cache is touched.
func (b *VulkanBinder) GetOrCreateDescriptors(mode DescriptorWriteMode) (DescriptorBinding, error) {
	if !b.dirtyDescriptor && b.currentDescriptor != nil {
		entry := b.currentDescriptor
		entry.timestamp = b.clock.Now()
		if !entry.bound {
			core.LogFatal("binder %s: current descriptor entry is not marked bound", b.name)
		}
		b.descriptorMetrics.Hit()
		return DescriptorBinding{
			Sets:   entry.sets,
			Layout: b.pipelineLayout,
			Writes: DescriptorWrites{Applied: true},
		}, nil
	}

	if err := b.ensureLayouts(); err != nil {
		return DescriptorBinding{}, err
	}

	if entry, ok := b.descriptors.Get(b.descriptorKey); ok {
		b.descriptorMetrics.Hit()
		b.makeCurrentDescriptor(entry)
		return DescriptorBinding{
			Sets:   entry.sets,
			Layout: b.pipelineLayout,
			Rebind: true,
			Writes: DescriptorWrites{Applied: true},
		}, nil
	}
	b.descriptorMetrics.Miss()

	if b.allocatedSets >= b.config.MaxDescriptorSets {
		core.LogError("binder %s: descriptor pool overflow (%d sets in use)", b.name, b.allocatedSets)
		return DescriptorBinding{}, core.NewPreconditionError("GetOrCreateDescriptors", core.ErrDescriptorPoolExhausted)
	}

	sets, err := b.device.AllocateDescriptorSets(&vk.DescriptorSetAllocateInfo{
		SType:              vk.StructureTypeDescriptorSetAllocateInfo,
		DescriptorPool:     b.descriptorPool,
		DescriptorSetCount: VULKAN_BINDER_DESCRIPTOR_SET_COUNT,
		PSetLayouts:        b.descriptorSetLayouts[:],
	})
	if err != nil {
		core.LogError("binder %s: descriptor set allocation failed: %s", b.name, err)
		return DescriptorBinding{}, err
	}
	entry := &descriptorEntry{}
	copy(entry.sets[:], sets)
	b.allocatedSets++

	writes := b.descriptorWrites(entry.sets)
	result := DescriptorWrites{Applied: true}
	switch mode {
	case WriteDeferred:
		result = DescriptorWrites{Applied: len(writes) == 0, Pending: writes}
	default:
		if len(writes) > 0 {
			b.device.UpdateDescriptorSets(writes)
		}
	}

	b.descriptors.Put(b.descriptorKey, entry)
	b.makeCurrentDescriptor(entry)

	return DescriptorBinding{
		Sets:   entry.sets,
		Layout: b.pipelineLayout,
		Rebind: true,
		Writes: result,
	}, nil
}

func (b *VulkanBinder) makeCurrentDescriptor(entry *descriptorEntry) {
	now := b.clock.Now()
	if prev := b.currentDescriptor; prev != nil && prev != entry {
		prev.bound = false
		prev.timestamp = now
	}
	entry.bound = true
	entry.timestamp = now
	b.currentDescriptor = entry
	b.dirtyDescriptor = false
}

// descriptorWrites describes the bound slots only; empty slots are skipped
// rather than written with null descriptors.
func (b *VulkanBinder) descriptorWrites(sets [VULKAN_BINDER_DESCRIPTOR_SET_COUNT]vk.DescriptorSet) []vk.WriteDescriptorSet {
	k := &b.descriptorKey
	var writes []vk.WriteDescriptorSet
	for i := 0; i < VULKAN_BINDER_UBUFFER_BINDING_COUNT; i++ {
		if k.UniformBuffers[i] == nil {
			continue
		}
		writes = append(writes, vk.WriteDescriptorSet{
			SType:           vk.StructureTypeWriteDescriptorSet,
			DstSet:          sets[0],
			DstBinding:      uint32(i),
			DescriptorCount: 1,
			DescriptorType:  vk.DescriptorTypeUniformBuffer,
			PBufferInfo: []vk.DescriptorBufferInfo{{
				Buffer: k.UniformBuffers[i],
				Offset: k.UniformBufferOffsets[i],
				Range:  k.UniformBufferSizes[i],
			}},
		})
	}
	for i := 0; i < VULKAN_BINDER_SAMPLER_BINDING_COUNT; i++ {
		s := k.Samplers[i]
		if !s.IsBound() {
			continue
		}
		writes = append(writes, vk.WriteDescriptorSet{
			SType:           vk.StructureTypeWriteDescriptorSet,
			DstSet:          sets[1],
			DstBinding:      uint32(i),
			DescriptorCount: 1,
			DescriptorType:  vk.DescriptorTypeCombinedImageSampler,
			PImageInfo: []vk.DescriptorImageInfo{{
				Sampler:     s.Sampler,
				ImageView:   s.ImageView,
				ImageLayout: s.ImageLayout,
			}},
		})
	}
	return writes
}

// ensureLayouts creates the two descriptor set layouts, the shared pipeline
// layout and the descriptor pool if they do not exist yet.
func (b *VulkanBinder) ensureLayouts() error {
	if b.pipelineLayout != nil && b.descriptorPool != nil {
		return nil
	}

	stages := vk.ShaderStageFlags(vk.ShaderStageVertexBit) | vk.ShaderStageFlags(vk.ShaderStageFragmentBit)
	layoutBindings := func(count int, descriptorType vk.DescriptorType) []vk.DescriptorSetLayoutBinding {
		bindings := make([]vk.DescriptorSetLayoutBinding, count)
		for i := range bindings {
			bindings[i] = vk.DescriptorSetLayoutBinding{
				Binding:         uint32(i),
				DescriptorType:  descriptorType,
				DescriptorCount: 1,
				StageFlags:      stages,
			}
		}
		return bindings
	}

	setBindings := [VULKAN_BINDER_DESCRIPTOR_SET_COUNT][]vk.DescriptorSetLayoutBinding{
		layoutBindings(VULKAN_BINDER_UBUFFER_BINDING_COUNT, vk.DescriptorTypeUniformBuffer),
		layoutBindings(VULKAN_BINDER_SAMPLER_BINDING_COUNT, vk.DescriptorTypeCombinedImageSampler),
	}
	for i, bindings := range setBindings {
		if b.descriptorSetLayouts[i] != nil {
			continue
		}
		layout, err := b.device.CreateDescriptorSetLayout(&vk.DescriptorSetLayoutCreateInfo{
			SType:        vk.StructureTypeDescriptorSetLayoutCreateInfo,
			BindingCount: uint32(len(bindings)),
			PBindings:    bindings,
		})
		if err != nil {
			core.LogError("binder %s: descriptor set layout %d: %s", b.name, i, err)
			return err
		}
		b.descriptorSetLayouts[i] = layout
	}

	if b.pipelineLayout == nil {
		layout, err := b.device.CreatePipelineLayout(&vk.PipelineLayoutCreateInfo{
			SType:          vk.StructureTypePipelineLayoutCreateInfo,
			SetLayoutCount: VULKAN_BINDER_DESCRIPTOR_SET_COUNT,
			PSetLayouts:    b.descriptorSetLayouts[:],
		})
		if err != nil {
			core.LogError("binder %s: pipeline layout: %s", b.name, err)
			return err
		}
		b.pipelineLayout = layout
	}

	if b.descriptorPool == nil {
		maxSets := b.config.MaxDescriptorSets
		poolSizes := []vk.DescriptorPoolSize{
			{Type: vk.DescriptorTypeUniformBuffer, DescriptorCount: maxSets * VULKAN_BINDER_UBUFFER_BINDING_COUNT},
			{Type: vk.DescriptorTypeCombinedImageSampler, DescriptorCount: maxSets * VULKAN_BINDER_SAMPLER_BINDING_COUNT},
		}
		pool, err := b.device.CreateDescriptorPool(&vk.DescriptorPoolCreateInfo{
			SType:         vk.StructureTypeDescriptorPoolCreateInfo,
			Flags:         vk.DescriptorPoolCreateFlags(vk.DescriptorPoolCreateFreeDescriptorSetBit),
			MaxSets:       maxSets * VULKAN_BINDER_DESCRIPTOR_SET_COUNT,
			PoolSizeCount: uint32(len(poolSizes)),
			PPoolSizes:    poolSizes,
		})
		if err != nil {
			core.LogError("binder %s: descriptor pool: %s", b.name, err)
			return err
		}
		b.descriptorPool = pool
	}
	return nil
}
