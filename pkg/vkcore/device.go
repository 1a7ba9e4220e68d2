package vkcore

/*
#include <vulkan/vulkan.h>
#include <string.h>

static VkDeviceQueueCreateInfo makeQueueCreateInfo(uint32_t family, float *priority) {
	VkDeviceQueueCreateInfo info;
	memset(&info, 0, sizeof(info));
	info.sType = VK_STRUCTURE_TYPE_DEVICE_QUEUE_CREATE_INFO;
	info.queueFamilyIndex = family;
	info.queueCount = 1;
	info.pQueuePriorities = priority;
	return info;
}
*/
import "C"
import "unsafe"

// CreateLogicalDevice creates a device exposing exactly the queues the
// engine needs: one compute queue, and a transfer queue when the
// physical device advertises a distinct transfer-only family.
func CreateLogicalDevice(pd PhysicalDeviceSummary) (Device, Queue, Queue, error) {
	priority := C.float(1.0)
	queueInfos := []C.VkDeviceQueueCreateInfo{C.makeQueueCreateInfo(C.uint32_t(pd.ComputeQueueFamily), &priority)}
	if pd.HasTransferQueue {
		queueInfos = append(queueInfos, C.makeQueueCreateInfo(C.uint32_t(pd.TransferQueueFamily), &priority))
	}

	var features C.VkPhysicalDeviceFeatures
	features.shaderInt16 = boolToVk(pd.ShaderInt16)
	features.shaderInt64 = boolToVk(pd.ShaderInt64)
	features.shaderFloat64 = boolToVk(pd.ShaderFloat64)

	createInfo := C.VkDeviceCreateInfo{
		sType:                C.VK_STRUCTURE_TYPE_DEVICE_CREATE_INFO,
		queueCreateInfoCount: C.uint32_t(len(queueInfos)),
		pQueueCreateInfos:    &queueInfos[0],
		pEnabledFeatures:     &features,
	}

	var device C.VkDevice
	result := Result(C.vkCreateDevice(C.VkPhysicalDevice(pd.Handle), &createInfo, nil, &device))
	if err := Check(result, "vkCreateDevice"); err != nil {
		return Device(device), Queue(nil), Queue(nil), err
	}

	var computeQueue, transferQueue C.VkQueue
	C.vkGetDeviceQueue(device, C.uint32_t(pd.ComputeQueueFamily), 0, &computeQueue)
	if pd.HasTransferQueue {
		C.vkGetDeviceQueue(device, C.uint32_t(pd.TransferQueueFamily), 0, &transferQueue)
	} else {
		transferQueue = computeQueue
	}

	return Device(device), Queue(computeQueue), Queue(transferQueue), nil
}

func boolToVk(b bool) C.VkBool32 {
	if b {
		return C.VK_TRUE
	}
	return C.VK_FALSE
}

// DestroyDevice releases a logical device created by CreateLogicalDevice.
func DestroyDevice(d Device) {
	C.vkDestroyDevice(C.VkDevice(d), nil)
}

// WaitIdle blocks until every queue on d has drained, the basis for the
// engine's deferred buffer release.
func WaitIdle(d Device) error {
	return Check(Result(C.vkDeviceWaitIdle(C.VkDevice(d))), "vkDeviceWaitIdle")
}

// AllocateMemory reserves a device memory object of size bytes from
// memoryTypeIndex. internal/engine allocates one such object per buffer;
// it does not sub-divide them.
func AllocateMemory(d Device, size uint64, memoryTypeIndex uint32) (DeviceMemory, error) {
	allocInfo := C.VkMemoryAllocateInfo{
		sType:           C.VK_STRUCTURE_TYPE_MEMORY_ALLOCATE_INFO,
		allocationSize:  C.VkDeviceSize(size),
		memoryTypeIndex: C.uint32_t(memoryTypeIndex),
	}
	var mem C.VkDeviceMemory
	result := Result(C.vkAllocateMemory(C.VkDevice(d), &allocInfo, nil, &mem))
	return DeviceMemory(mem), Check(result, "vkAllocateMemory")
}

// FreeMemory releases a device memory object. Callers must ensure no
// buffer still bound to it is in flight (internal/engine's deferred
// release discipline).
func FreeMemory(d Device, mem DeviceMemory) {
	C.vkFreeMemory(C.VkDevice(d), C.VkDeviceMemory(mem), nil)
}

// MapMemory returns a host-addressable window over [offset, offset+size)
// of mem. Only valid for host-visible memory types.
func MapMemory(d Device, mem DeviceMemory, offset, size uint64) (unsafe.Pointer, error) {
	var ptr unsafe.Pointer
	result := Result(C.vkMapMemory(C.VkDevice(d), C.VkDeviceMemory(mem), C.VkDeviceSize(offset), C.VkDeviceSize(size), 0, &ptr))
	return ptr, Check(result, "vkMapMemory")
}

// UnmapMemory ends a MapMemory window.
func UnmapMemory(d Device, mem DeviceMemory) {
	C.vkUnmapMemory(C.VkDevice(d), C.VkDeviceMemory(mem))
}

// CreateBuffer creates a storage-buffer-usage VkBuffer of the given
// byte length, bindable to any DeviceMemory of a compatible type.
func CreateBuffer(d Device, size uint64) (Buffer, error) {
	createInfo := C.VkBufferCreateInfo{
		sType: C.VK_STRUCTURE_TYPE_BUFFER_CREATE_INFO,
		size:  C.VkDeviceSize(size),
		usage: C.VK_BUFFER_USAGE_STORAGE_BUFFER_BIT | C.VK_BUFFER_USAGE_TRANSFER_SRC_BIT | C.VK_BUFFER_USAGE_TRANSFER_DST_BIT,
		sharingMode: C.VK_SHARING_MODE_EXCLUSIVE,
	}
	var buf C.VkBuffer
	result := Result(C.vkCreateBuffer(C.VkDevice(d), &createInfo, nil, &buf))
	return Buffer(buf), Check(result, "vkCreateBuffer")
}

// DestroyBuffer releases a VkBuffer. The caller frees its backing
// DeviceMemory separately once no other buffer aliases it.
func DestroyBuffer(d Device, buf Buffer) {
	C.vkDestroyBuffer(C.VkDevice(d), C.VkBuffer(buf), nil)
}

// BindBufferMemory binds buf to mem at the given offset.
func BindBufferMemory(d Device, buf Buffer, mem DeviceMemory, offset uint64) error {
	result := Result(C.vkBindBufferMemory(C.VkDevice(d), C.VkBuffer(buf), C.VkDeviceMemory(mem), C.VkDeviceSize(offset)))
	return Check(result, "vkBindBufferMemory")
}

// MemoryRequirementsFor returns the size/alignment/type-bits Vulkan
// requires for a buffer of size bytes, used by the allocator to pick a
// compatible memory type before calling AllocateMemory.
func MemoryRequirementsFor(d Device, buf Buffer) (size, alignment uint64, typeBits uint32) {
	var req C.VkMemoryRequirements
	C.vkGetBufferMemoryRequirements(C.VkDevice(d), C.VkBuffer(buf), &req)
	return uint64(req.size), uint64(req.alignment), uint32(req.memoryTypeBits)
}
