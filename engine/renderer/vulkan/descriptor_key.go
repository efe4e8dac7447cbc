package vulkan

import (
	"unsafe"

	vk "github.com/goki/vulkan"
)

// SamplerBinding is one combined image sampler slot.
type SamplerBinding struct {
	Sampler     vk.Sampler
	ImageView   vk.ImageView
	ImageLayout vk.ImageLayout
}

// IsBound reports whether the slot has something to write.
func (s SamplerBinding) IsBound() bool {
	return s.Sampler != nil && s.ImageView != nil
}

// DescriptorKey identifies a pair of descriptor sets: set 0 holds uniform
// buffers, set 1 holds combined image samplers. Unbound slots are zero.
type DescriptorKey struct {
	UniformBuffers       [VULKAN_BINDER_UBUFFER_BINDING_COUNT]vk.Buffer
	UniformBufferOffsets [VULKAN_BINDER_UBUFFER_BINDING_COUNT]vk.DeviceSize
	UniformBufferSizes   [VULKAN_BINDER_UBUFFER_BINDING_COUNT]vk.DeviceSize
	Samplers             [VULKAN_BINDER_SAMPLER_BINDING_COUNT]SamplerBinding
}

// referencesBuffer reports whether any slot points at buffer, whatever its range.
func (k *DescriptorKey) referencesBuffer(buffer vk.Buffer) bool {
	for _, b := range k.UniformBuffers {
		if b == buffer {
			return true
		}
	}
	return false
}

func (k *DescriptorKey) referencesImageView(view vk.ImageView) bool {
	for i := range k.Samplers {
		if k.Samplers[i].ImageView == view {
			return true
		}
	}
	return false
}

// descriptorKeyPolicy compares slot by slot rather than whole structs.
type descriptorKeyPolicy struct{}

func (descriptorKeyPolicy) Equal(a, b DescriptorKey) bool {
	for i := 0; i < VULKAN_BINDER_UBUFFER_BINDING_COUNT; i++ {
		if a.UniformBuffers[i] != b.UniformBuffers[i] ||
			a.UniformBufferOffsets[i] != b.UniformBufferOffsets[i] ||
			a.UniformBufferSizes[i] != b.UniformBufferSizes[i] {
			return false
		}
	}
	for i := 0; i < VULKAN_BINDER_SAMPLER_BINDING_COUNT; i++ {
		sa, sb := &a.Samplers[i], &b.Samplers[i]
		if sa.Sampler != sb.Sampler || sa.ImageView != sb.ImageView || sa.ImageLayout != sb.ImageLayout {
			return false
		}
	}
	return true
}

func (descriptorKeyPolicy) Hash(k DescriptorKey) uint64 {
	h := newKeyHasher()
	for i := 0; i < VULKAN_BINDER_UBUFFER_BINDING_COUNT; i++ {
		h.handle(unsafe.Pointer(k.UniformBuffers[i]))
		h.word(uint64(k.UniformBufferOffsets[i]))
		h.word(uint64(k.UniformBufferSizes[i]))
	}
	for i := 0; i < VULKAN_BINDER_SAMPLER_BINDING_COUNT; i++ {
		s := &k.Samplers[i]
		h.handle(unsafe.Pointer(s.Sampler))
		h.handle(unsafe.Pointer(s.ImageView))
		h.word(uint64(s.ImageLayout))
	}
	return h.sum
}
