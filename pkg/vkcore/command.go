package vkcore

/*
#include <vulkan/vulkan.h>
*/
import "C"
import "unsafe"

// CreateCommandPool makes a command pool for queueFamily, with the
// reset-command-buffer bit set so buffers allocated from it can be
// reset individually.
func CreateCommandPool(d Device, queueFamily uint32) (CommandPool, error) {
	createInfo := C.VkCommandPoolCreateInfo{
		sType:            C.VK_STRUCTURE_TYPE_COMMAND_POOL_CREATE_INFO,
		flags:            C.VK_COMMAND_POOL_CREATE_RESET_COMMAND_BUFFER_BIT,
		queueFamilyIndex: C.uint32_t(queueFamily),
	}
	var pool C.VkCommandPool
	result := Result(C.vkCreateCommandPool(C.VkDevice(d), &createInfo, nil, &pool))
	return CommandPool(pool), Check(result, "vkCreateCommandPool")
}

func DestroyCommandPool(d Device, p CommandPool) {
	C.vkDestroyCommandPool(C.VkDevice(d), C.VkCommandPool(p), nil)
}

// AllocateCommandBuffer allocates a single primary command buffer from
// pool.
func AllocateCommandBuffer(d Device, pool CommandPool) (CommandBuffer, error) {
	allocInfo := C.VkCommandBufferAllocateInfo{
		sType:              C.VK_STRUCTURE_TYPE_COMMAND_BUFFER_ALLOCATE_INFO,
		commandPool:        C.VkCommandPool(pool),
		level:              C.VK_COMMAND_BUFFER_LEVEL_PRIMARY,
		commandBufferCount: 1,
	}
	var cb C.VkCommandBuffer
	result := Result(C.vkAllocateCommandBuffers(C.VkDevice(d), &allocInfo, &cb))
	return CommandBuffer(cb), Check(result, "vkAllocateCommandBuffers")
}

// FreeCommandBuffer releases cb back to pool. Called by the progress
// worker once cb's submission has signaled, never by the dispatching
// goroutine itself.
func FreeCommandBuffer(d Device, pool CommandPool, cb CommandBuffer) {
	ccb := C.VkCommandBuffer(cb)
	C.vkFreeCommandBuffers(C.VkDevice(d), C.VkCommandPool(pool), 1, &ccb)
}

// CreateFence creates an unsignaled fence used to detect completion of
// one queue submission (waited on by internal/engine's progress worker).
func CreateFence(d Device) (Fence, error) {
	createInfo := C.VkFenceCreateInfo{sType: C.VK_STRUCTURE_TYPE_FENCE_CREATE_INFO}
	var fence C.VkFence
	result := Result(C.vkCreateFence(C.VkDevice(d), &createInfo, nil, &fence))
	return Fence(fence), Check(result, "vkCreateFence")
}

func DestroyFence(d Device, f Fence) {
	C.vkDestroyFence(C.VkDevice(d), C.VkFence(f), nil)
}

// WaitForFence blocks until f signals or the device is lost.
func WaitForFence(d Device, f Fence) error {
	cf := C.VkFence(f)
	result := Result(C.vkWaitForFences(C.VkDevice(d), 1, &cf, C.VK_TRUE, ^C.uint64_t(0)))
	return Check(result, "vkWaitForFences")
}

func ResetFence(d Device, f Fence) error {
	cf := C.VkFence(f)
	return Check(Result(C.vkResetFences(C.VkDevice(d), 1, &cf)), "vkResetFences")
}

// DispatchRecording is everything needed to record and submit one
// compute dispatch: the bound descriptor set, push constant bytes, and
// the workgroup counts.
type DispatchRecording struct {
	Pipeline       Pipeline
	PipelineLayout PipelineLayout
	DescriptorSet  DescriptorSet
	PushConsts     []byte
	Groups         [3]uint32
}

// RecordAndSubmit records a single dispatch into cb and submits it to
// queue, signalling fence on completion.
func RecordAndSubmit(cb CommandBuffer, queue Queue, fence Fence, rec DispatchRecording) error {
	beginInfo := C.VkCommandBufferBeginInfo{
		sType: C.VK_STRUCTURE_TYPE_COMMAND_BUFFER_BEGIN_INFO,
		flags: C.VK_COMMAND_BUFFER_USAGE_ONE_TIME_SUBMIT_BIT,
	}
	if err := Check(Result(C.vkBeginCommandBuffer(C.VkCommandBuffer(cb), &beginInfo)), "vkBeginCommandBuffer"); err != nil {
		return err
	}

	C.vkCmdBindPipeline(C.VkCommandBuffer(cb), C.VK_PIPELINE_BIND_POINT_COMPUTE, C.VkPipeline(rec.Pipeline))

	descSet := C.VkDescriptorSet(rec.DescriptorSet)
	C.vkCmdBindDescriptorSets(C.VkCommandBuffer(cb), C.VK_PIPELINE_BIND_POINT_COMPUTE,
		C.VkPipelineLayout(rec.PipelineLayout), 0, 1, &descSet, 0, nil)

	if len(rec.PushConsts) > 0 {
		C.vkCmdPushConstants(C.VkCommandBuffer(cb), C.VkPipelineLayout(rec.PipelineLayout),
			C.VK_SHADER_STAGE_COMPUTE_BIT, 0, C.uint32_t(len(rec.PushConsts)), unsafe.Pointer(&rec.PushConsts[0]))
	}

	C.vkCmdDispatch(C.VkCommandBuffer(cb), C.uint32_t(rec.Groups[0]), C.uint32_t(rec.Groups[1]), C.uint32_t(rec.Groups[2]))

	if err := Check(Result(C.vkEndCommandBuffer(C.VkCommandBuffer(cb))), "vkEndCommandBuffer"); err != nil {
		return err
	}

	ccb := C.VkCommandBuffer(cb)
	submitInfo := C.VkSubmitInfo{
		sType:              C.VK_STRUCTURE_TYPE_SUBMIT_INFO,
		commandBufferCount: 1,
		pCommandBuffers:    &ccb,
	}
	return Check(Result(C.vkQueueSubmit(C.VkQueue(queue), 1, &submitInfo, C.VkFence(fence))), "vkQueueSubmit")
}
