package vulkan

/**
 * @brief Number of uniform buffer bindings in descriptor set 0.
 */
const VULKAN_BINDER_UBUFFER_BINDING_COUNT = 8

/**
 * @brief Number of combined image sampler bindings in descriptor set 1.
 */
const VULKAN_BINDER_SAMPLER_BINDING_COUNT = 16

/**
 * @brief Max number of vertex attributes and vertex buffer bindings per pipeline.
 */
const VULKAN_BINDER_MAX_VERTEX_ATTRIBUTES = 16

/**
 * @brief The binder always works with two descriptor sets: uniform buffers and samplers.
 */
const VULKAN_BINDER_DESCRIPTOR_SET_COUNT = 2

/**
 * @brief Max number of color attachments a cached render pass can describe.
 */
const VULKAN_MAX_COLOR_ATTACHMENTS = 8

/**
 * @brief Color attachments, their resolve targets and one depth attachment.
 */
const VULKAN_MAX_FRAMEBUFFER_ATTACHMENTS = 2*VULKAN_MAX_COLOR_ATTACHMENTS + 1
