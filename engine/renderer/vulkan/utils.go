package vulkan

import (
	"fmt"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/vkbinder/engine/core"
)

// From: https://www.khronos.org/registry/vulkan/specs/1.3-extensions/man/html/VkResult.html
var vulkanResultNames = map[vk.Result]string{
	vk.Success:                   "VK_SUCCESS",
	vk.NotReady:                  "VK_NOT_READY",
	vk.Timeout:                   "VK_TIMEOUT",
	vk.Incomplete:                "VK_INCOMPLETE",
	vk.ErrorOutOfHostMemory:      "VK_ERROR_OUT_OF_HOST_MEMORY",
	vk.ErrorOutOfDeviceMemory:    "VK_ERROR_OUT_OF_DEVICE_MEMORY",
	vk.ErrorInitializationFailed: "VK_ERROR_INITIALIZATION_FAILED",
	vk.ErrorDeviceLost:           "VK_ERROR_DEVICE_LOST",
	vk.ErrorTooManyObjects:       "VK_ERROR_TOO_MANY_OBJECTS",
	vk.ErrorFormatNotSupported:   "VK_ERROR_FORMAT_NOT_SUPPORTED",
	vk.ErrorFragmentedPool:       "VK_ERROR_FRAGMENTED_POOL",
	vk.ErrorOutOfPoolMemory:      "VK_ERROR_OUT_OF_POOL_MEMORY",
	vk.ErrorInvalidShaderNv:      "VK_ERROR_INVALID_SHADER_NV",
	vk.ErrorFragmentation:        "VK_ERROR_FRAGMENTATION",
	vk.PipelineCompileRequired:   "VK_PIPELINE_COMPILE_REQUIRED_EXT",
	vk.ErrorUnknown:              "VK_ERROR_UNKNOWN",
}

// Only the results the caches can run into get a long description.
var vulkanResultDescriptions = map[vk.Result]string{
	vk.ErrorOutOfHostMemory:    "A host memory allocation has failed.",
	vk.ErrorOutOfDeviceMemory:  "A device memory allocation has failed.",
	vk.ErrorDeviceLost:         "The logical or physical device has been lost.",
	vk.ErrorFragmentedPool:     "A pool allocation has failed due to fragmentation of the pool's memory.",
	vk.ErrorOutOfPoolMemory:    "A pool memory allocation has failed.",
	vk.ErrorInvalidShaderNv:    "One or more shaders failed to compile or link.",
	vk.PipelineCompileRequired: "A requested pipeline creation would have required compilation.",
}

func VulkanResultString(result vk.Result, getExtended bool) string {
	name, ok := vulkanResultNames[result]
	if !ok {
		name = fmt.Sprintf("VkResult(%d)", int32(result))
	}
	if !getExtended {
		return name
	}
	if desc, ok := vulkanResultDescriptions[result]; ok {
		return name + " " + desc
	}
	return name
}

// Negative results are errors, everything else is a (possibly partial) success.
func VulkanResultIsSuccess(result vk.Result) bool {
	return result >= 0
}

// vulkanError turns a failed result into an error that matches core.ErrNativeCreation.
func vulkanError(call string, result vk.Result) error {
	return &core.NativeError{Call: call, Result: VulkanResultString(result, true)}
}

var end = "\x00"
var endChar byte = '\x00'

func VulkanSafeString(s string) string {
	if len(s) == 0 {
		return end
	}
	if s[len(s)-1] != endChar {
		return s + end
	}
	return s
}

func vkBool(b bool) vk.Bool32 {
	if b {
		return vk.True
	}
	return vk.False
}
