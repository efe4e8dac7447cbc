package vulkan

import (
	"fmt"
	"unsafe"

	vk "github.com/goki/vulkan"
	"github.com/google/uuid"
	"github.com/spaghettifunk/vkbinder/engine/containers"
	"github.com/spaghettifunk/vkbinder/engine/core"
)

// FramebufferKey identifies a framebuffer by render pass, extent and the first
// AttachmentCount image views.
type FramebufferKey struct {
	RenderPass      vk.RenderPass
	Width, Height   uint32
	Layers          uint32
	Attachments     [VULKAN_MAX_FRAMEBUFFER_ATTACHMENTS]vk.ImageView
	AttachmentCount uint8
}

func (k *FramebufferKey) views() []vk.ImageView {
	n := int(k.AttachmentCount)
	if n > len(k.Attachments) {
		n = len(k.Attachments)
	}
	return k.Attachments[:n]
}

type framebufferKeyPolicy struct{}

func (framebufferKeyPolicy) Equal(a, b FramebufferKey) bool {
	if a.RenderPass != b.RenderPass || a.Width != b.Width || a.Height != b.Height ||
		a.Layers != b.Layers || a.AttachmentCount != b.AttachmentCount {
		return false
	}
	for i, view := range a.views() {
		if view != b.Attachments[i] {
			return false
		}
	}
	return true
}

func (framebufferKeyPolicy) Hash(k FramebufferKey) uint64 {
	h := newKeyHasher()
	h.handle(unsafe.Pointer(k.RenderPass))
	h.word(uint64(k.Width)<<32 | uint64(k.Height))
	h.word(uint64(k.Layers)<<8 | uint64(k.AttachmentCount))
	for _, view := range k.views() {
		h.handle(unsafe.Pointer(view))
	}
	return h.sum
}

// FramebufferCache owns framebuffers created from FramebufferKeys. It is safe
// for concurrent use. With capacity 0 GetOrCreate returns a framebuffer that
// has already been destroyed.
type FramebufferCache struct {
	name   string
	device Device
	cache  *containers.LRUCache[FramebufferKey, vk.Framebuffer]
}

func NewFramebufferCache(device Device, capacity int) *FramebufferCache {
	fc := &FramebufferCache{
		name:   uuid.New().String(),
		device: device,
	}
	fc.cache = containers.NewLRUCache[FramebufferKey, vk.Framebuffer](capacity, framebufferKeyPolicy{}, func(_ FramebufferKey, framebuffer vk.Framebuffer) {
		device.DestroyFramebuffer(framebuffer)
	})
	return fc
}

func (fc *FramebufferCache) GetOrCreate(key FramebufferKey) (vk.Framebuffer, error) {
	return fc.cache.GetOrCreate(key, fc.create)
}

func (fc *FramebufferCache) create(key FramebufferKey) (vk.Framebuffer, error) {
	if key.RenderPass == nil {
		return nil, core.NewPreconditionError("FramebufferCache.GetOrCreate", fmt.Errorf("framebuffer has no render pass"))
	}
	if int(key.AttachmentCount) > len(key.Attachments) {
		return nil, core.NewPreconditionError("FramebufferCache.GetOrCreate",
			fmt.Errorf("%d attachments exceed the maximum of %d", key.AttachmentCount, len(key.Attachments)))
	}

	layers := key.Layers
	if layers == 0 {
		layers = 1
	}
	attachments := make([]vk.ImageView, key.AttachmentCount)
	copy(attachments, key.views())

	framebufferCreateInfo := vk.FramebufferCreateInfo{
		SType:           vk.StructureTypeFramebufferCreateInfo,
		RenderPass:      key.RenderPass,
		AttachmentCount: uint32(len(attachments)),
		PAttachments:    attachments,
		Width:           key.Width,
		Height:          key.Height,
		Layers:          layers,
	}
	framebuffer, err := fc.device.CreateFramebuffer(&framebufferCreateInfo)
	if err != nil {
		core.LogError("framebuffer cache %s: %s", fc.name, err)
		return nil, err
	}
	core.LogDebug("framebuffer cache %s: framebuffer created (%dx%d, %d attachments)", fc.name, key.Width, key.Height, key.AttachmentCount)
	return framebuffer, nil
}

// Purge destroys every cached framebuffer that references view. Call it before
// destroying the view.
func (fc *FramebufferCache) Purge(view vk.ImageView) int {
	if view == nil {
		return 0
	}
	return fc.cache.RemoveIf(func(key FramebufferKey, _ vk.Framebuffer) bool {
		for _, v := range key.views() {
			if v == view {
				return true
			}
		}
		return false
	})
}

// PurgeRenderPass destroys every cached framebuffer created against renderpass.
func (fc *FramebufferCache) PurgeRenderPass(renderpass vk.RenderPass) int {
	if renderpass == nil {
		return 0
	}
	return fc.cache.RemoveIf(func(key FramebufferKey, _ vk.Framebuffer) bool {
		return key.RenderPass == renderpass
	})
}

func (fc *FramebufferCache) Clear() {
	fc.cache.Clear()
}

func (fc *FramebufferCache) Len() int {
	return fc.cache.Len()
}

func (fc *FramebufferCache) Stats() core.CacheStats {
	return fc.cache.Stats()
}
