package vulkan

import (
	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/vkbinder/engine/core"
)

// VulkanContext is the Device backed by a real logical device. The device,
// its instance and the allocator belong to the caller.
type VulkanContext struct {
	LogicalDevice vk.Device
	Allocator     *vk.AllocationCallbacks
}

func NewVulkanContext(device vk.Device, allocator *vk.AllocationCallbacks) *VulkanContext {
	return &VulkanContext{
		LogicalDevice: device,
		Allocator:     allocator,
	}
}

func (vc *VulkanContext) CreateDescriptorSetLayout(info *vk.DescriptorSetLayoutCreateInfo) (vk.DescriptorSetLayout, error) {
	var layout vk.DescriptorSetLayout
	err := lockPool.SafeCall(DescriptorManagement, func() error {
		if res := vk.CreateDescriptorSetLayout(vc.LogicalDevice, info, vc.Allocator, &layout); !VulkanResultIsSuccess(res) {
			return vulkanError("vkCreateDescriptorSetLayout", res)
		}
		return nil
	})
	return layout, err
}

func (vc *VulkanContext) DestroyDescriptorSetLayout(layout vk.DescriptorSetLayout) {
	_ = lockPool.SafeCall(DescriptorManagement, func() error {
		vk.DestroyDescriptorSetLayout(vc.LogicalDevice, layout, vc.Allocator)
		return nil
	})
}

func (vc *VulkanContext) CreatePipelineLayout(info *vk.PipelineLayoutCreateInfo) (vk.PipelineLayout, error) {
	var layout vk.PipelineLayout
	err := lockPool.SafeCall(PipelineManagement, func() error {
		if res := vk.CreatePipelineLayout(vc.LogicalDevice, info, vc.Allocator, &layout); !VulkanResultIsSuccess(res) {
			return vulkanError("vkCreatePipelineLayout", res)
		}
		return nil
	})
	return layout, err
}

func (vc *VulkanContext) DestroyPipelineLayout(layout vk.PipelineLayout) {
	_ = lockPool.SafeCall(PipelineManagement, func() error {
		vk.DestroyPipelineLayout(vc.LogicalDevice, layout, vc.Allocator)
		return nil
	})
}

func (vc *VulkanContext) CreateDescriptorPool(info *vk.DescriptorPoolCreateInfo) (vk.DescriptorPool, error) {
	var pool vk.DescriptorPool
	err := lockPool.SafeCall(DescriptorManagement, func() error {
		if res := vk.CreateDescriptorPool(vc.LogicalDevice, info, vc.Allocator, &pool); !VulkanResultIsSuccess(res) {
			return vulkanError("vkCreateDescriptorPool", res)
		}
		return nil
	})
	return pool, err
}

func (vc *VulkanContext) DestroyDescriptorPool(pool vk.DescriptorPool) {
	_ = lockPool.SafeCall(DescriptorManagement, func() error {
		vk.DestroyDescriptorPool(vc.LogicalDevice, pool, vc.Allocator)
		return nil
	})
}

func (vc *VulkanContext) AllocateDescriptorSets(info *vk.DescriptorSetAllocateInfo) ([]vk.DescriptorSet, error) {
	sets := make([]vk.DescriptorSet, info.DescriptorSetCount)
	err := lockPool.SafeCall(DescriptorManagement, func() error {
		if res := vk.AllocateDescriptorSets(vc.LogicalDevice, info, &sets[0]); !VulkanResultIsSuccess(res) {
			return vulkanError("vkAllocateDescriptorSets", res)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return sets, nil
}

func (vc *VulkanContext) FreeDescriptorSets(pool vk.DescriptorPool, sets []vk.DescriptorSet) {
	if len(sets) == 0 {
		return
	}
	_ = lockPool.SafeCall(DescriptorManagement, func() error {
		if res := vk.FreeDescriptorSets(vc.LogicalDevice, pool, uint32(len(sets)), &sets[0]); !VulkanResultIsSuccess(res) {
			core.LogWarn("vkFreeDescriptorSets failed with %s", VulkanResultString(res, true))
		}
		return nil
	})
}

func (vc *VulkanContext) UpdateDescriptorSets(writes []vk.WriteDescriptorSet) {
	if len(writes) == 0 {
		return
	}
	_ = lockPool.SafeCall(DescriptorManagement, func() error {
		vk.UpdateDescriptorSets(vc.LogicalDevice, uint32(len(writes)), writes, 0, nil)
		return nil
	})
}

func (vc *VulkanContext) CreateGraphicsPipeline(info *vk.GraphicsPipelineCreateInfo) (vk.Pipeline, error) {
	pPipelines := make([]vk.Pipeline, 1)
	err := lockPool.SafeCall(PipelineManagement, func() error {
		result := vk.CreateGraphicsPipelines(
			vc.LogicalDevice,
			vk.NullPipelineCache,
			1,
			[]vk.GraphicsPipelineCreateInfo{*info},
			vc.Allocator,
			pPipelines)
		if !VulkanResultIsSuccess(result) {
			return vulkanError("vkCreateGraphicsPipelines", result)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return pPipelines[0], nil
}

func (vc *VulkanContext) DestroyPipeline(pipeline vk.Pipeline) {
	_ = lockPool.SafeCall(PipelineManagement, func() error {
		vk.DestroyPipeline(vc.LogicalDevice, pipeline, vc.Allocator)
		return nil
	})
}

func (vc *VulkanContext) CreateRenderPass(info *vk.RenderPassCreateInfo) (vk.RenderPass, error) {
	var renderpass vk.RenderPass
	err := lockPool.SafeCall(RenderpassManagement, func() error {
		if res := vk.CreateRenderPass(vc.LogicalDevice, info, vc.Allocator, &renderpass); !VulkanResultIsSuccess(res) {
			return vulkanError("vkCreateRenderPass", res)
		}
		return nil
	})
	return renderpass, err
}

func (vc *VulkanContext) DestroyRenderPass(renderpass vk.RenderPass) {
	_ = lockPool.SafeCall(RenderpassManagement, func() error {
		vk.DestroyRenderPass(vc.LogicalDevice, renderpass, vc.Allocator)
		return nil
	})
}

func (vc *VulkanContext) CreateFramebuffer(info *vk.FramebufferCreateInfo) (vk.Framebuffer, error) {
	var framebuffer vk.Framebuffer
	err := lockPool.SafeCall(FramebufferManagement, func() error {
		if res := vk.CreateFramebuffer(vc.LogicalDevice, info, vc.Allocator, &framebuffer); !VulkanResultIsSuccess(res) {
			return vulkanError("vkCreateFramebuffer", res)
		}
		return nil
	})
	return framebuffer, err
}

func (vc *VulkanContext) DestroyFramebuffer(framebuffer vk.Framebuffer) {
	_ = lockPool.SafeCall(FramebufferManagement, func() error {
		vk.DestroyFramebuffer(vc.LogicalDevice, framebuffer, vc.Allocator)
		return nil
	})
}

func (vc *VulkanContext) BeginCommandBuffer(cmd vk.CommandBuffer, info *vk.CommandBufferBeginInfo) error {
	return lockPool.SafeCall(CommandBufferManagement, func() error {
		if res := vk.BeginCommandBuffer(cmd, info); !VulkanResultIsSuccess(res) {
			return vulkanError("vkBeginCommandBuffer", res)
		}
		return nil
	})
}

func (vc *VulkanContext) EndCommandBuffer(cmd vk.CommandBuffer) error {
	return lockPool.SafeCall(CommandBufferManagement, func() error {
		if res := vk.EndCommandBuffer(cmd); !VulkanResultIsSuccess(res) {
			return vulkanError("vkEndCommandBuffer", res)
		}
		return nil
	})
}

func (vc *VulkanContext) CmdBindPipeline(cmd vk.CommandBuffer, pipeline vk.Pipeline) {
	_ = lockPool.SafeCall(CommandBufferManagement, func() error {
		vk.CmdBindPipeline(cmd, vk.PipelineBindPointGraphics, pipeline)
		return nil
	})
}

func (vc *VulkanContext) CmdBindDescriptorSets(cmd vk.CommandBuffer, layout vk.PipelineLayout, sets []vk.DescriptorSet) {
	_ = lockPool.SafeCall(CommandBufferManagement, func() error {
		vk.CmdBindDescriptorSets(cmd, vk.PipelineBindPointGraphics, layout, 0, uint32(len(sets)), sets, 0, nil)
		return nil
	})
}
