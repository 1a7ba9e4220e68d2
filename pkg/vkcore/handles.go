package vkcore

/*
#include <vulkan/vulkan.h>
*/
import "C"

// Opaque handle wrappers. Each is a distinct Go type over the matching
// VkFoo C type so the compiler catches handle-kind mix-ups the way the
// teacher's pkg/vulkan/core.go does.
type (
	Instance       C.VkInstance
	PhysicalDevice C.VkPhysicalDevice
	Device         C.VkDevice
	Queue          C.VkQueue
	DeviceMemory   C.VkDeviceMemory
	Buffer         C.VkBuffer
	ShaderModule   C.VkShaderModule
	Pipeline       C.VkPipeline
	PipelineLayout C.VkPipelineLayout
	DescriptorSetLayout C.VkDescriptorSetLayout
	DescriptorSet  C.VkDescriptorSet
	CommandBuffer  C.VkCommandBuffer
	CommandPool    C.VkCommandPool
	Fence          C.VkFence
	Semaphore      C.VkSemaphore
)

// PhysicalDeviceSummary is the subset of vkGetPhysicalDeviceProperties/
// Features and queue-family data the engine needs to pick a device; it
// carries no memory properties.
type PhysicalDeviceSummary struct {
	Handle             PhysicalDevice
	Name               string
	ComputeQueueFamily uint32
	TransferQueueFamily uint32
	HasTransferQueue   bool
	ShaderInt8         bool
	ShaderInt16        bool
	ShaderInt64        bool
	ShaderFloat16      bool
	ShaderFloat64      bool
}
