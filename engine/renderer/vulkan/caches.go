package vulkan

import (
	"sync"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/vkbinder/engine/core"
)

// VulkanCaches groups the binder with the render pass and framebuffer caches
// built from one Config. Evicting a render pass retires the binder's pipelines
// for it, so RenderPasses is driven from the binder's thread here.
type VulkanCaches struct {
	Binder       *VulkanBinder
	RenderPasses *RenderPassCache
	Framebuffers *FramebufferCache

	mutex  sync.RWMutex
	config core.Config
}

func NewVulkanCaches(device Device, config core.Config) (*VulkanCaches, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if err := core.ApplyLogConfig(config.Log); err != nil {
		return nil, err
	}
	c := &VulkanCaches{
		Binder:       NewVulkanBinder(device, config.Binder),
		RenderPasses: NewRenderPassCache(device, config.Cache.RenderPassCapacity),
		Framebuffers: NewFramebufferCache(device, config.Cache.FramebufferCapacity),
		config:       config,
	}
	// pipelines and framebuffers built on an evicted render pass must not
	// outlive it in the caches
	c.RenderPasses.OnEvict(c.UnbindRenderPass)
	return c, nil
}

// ApplyConfig takes over the settings that can change at runtime: the log
// level and the grace period. Pool and cache sizes need a restart. It may be
// called from a core.ConfigWatcher callback while another goroutine drives the
// binder.
func (c *VulkanCaches) ApplyConfig(config core.Config) error {
	if err := config.Validate(); err != nil {
		return err
	}
	if err := core.ApplyLogConfig(config.Log); err != nil {
		return err
	}
	c.Binder.SetGracePeriod(config.Binder.GracePeriod)

	c.mutex.Lock()
	defer c.mutex.Unlock()

	if config.Binder.MaxDescriptorSets != c.config.Binder.MaxDescriptorSets || config.Cache != c.config.Cache {
		core.LogWarn("descriptor pool and cache sizes only change on restart")
	}
	c.config.Log = config.Log
	c.config.Binder.GracePeriod = config.Binder.GracePeriod
	return nil
}

func (c *VulkanCaches) Config() core.Config {
	c.mutex.RLock()
	defer c.mutex.RUnlock()
	return c.config
}

// UnbindImageView must be called before view is destroyed. It retires cached
// descriptor sets and framebuffers that reference it.
func (c *VulkanCaches) UnbindImageView(view vk.ImageView) {
	c.Binder.UnbindImageView(view)
	c.Framebuffers.Purge(view)
}

// UnbindRenderPass must be called before renderpass is destroyed. It retires
// pipelines and framebuffers created against it.
func (c *VulkanCaches) UnbindRenderPass(renderpass vk.RenderPass) {
	c.Binder.UnbindRenderPass(renderpass)
	c.Framebuffers.PurgeRenderPass(renderpass)
}

// Destroy releases every cached object. The device must be idle.
func (c *VulkanCaches) Destroy() {
	c.Framebuffers.Clear()
	c.Binder.DestroyCache()
	c.RenderPasses.Clear()
}
