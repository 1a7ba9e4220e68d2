package vkcore

/*
#include <vulkan/vulkan.h>
#include <stdlib.h>
*/
import "C"
import "unsafe"

// CreateInstance creates a headless compute-only instance: no surface
// or presentation extensions, following the teacher's InstanceConfig
// shape (pkg/vk/instance.go) trimmed to what a compute runtime needs.
func CreateInstance(appName string) (Instance, error) {
	cAppName := C.CString(appName)
	defer C.free(unsafe.Pointer(cAppName))

	appInfo := C.VkApplicationInfo{
		sType:            C.VK_STRUCTURE_TYPE_APPLICATION_INFO,
		pApplicationName: cAppName,
		apiVersion:       C.VK_API_VERSION_1_2,
	}
	createInfo := C.VkInstanceCreateInfo{
		sType:            C.VK_STRUCTURE_TYPE_INSTANCE_CREATE_INFO,
		pApplicationInfo: &appInfo,
	}

	var instance C.VkInstance
	result := Result(C.vkCreateInstance(&createInfo, nil, &instance))
	if err := Check(result, "vkCreateInstance"); err != nil {
		return Instance(instance), err
	}
	return Instance(instance), nil
}

// DestroyInstance releases the instance and everything derived from it
// that the caller has not already destroyed.
func DestroyInstance(instance Instance) {
	C.vkDestroyInstance(C.VkInstance(instance), nil)
}

// EnumeratePhysicalDevices lists every physical device the instance can
// see, summarized enough for DeviceBuilder to pick one.
func EnumeratePhysicalDevices(instance Instance) ([]PhysicalDeviceSummary, error) {
	var count C.uint32_t
	result := Result(C.vkEnumeratePhysicalDevices(C.VkInstance(instance), &count, nil))
	if err := Check(result, "vkEnumeratePhysicalDevices"); err != nil {
		return nil, err
	}
	if count == 0 {
		return nil, nil
	}

	handles := make([]C.VkPhysicalDevice, count)
	result = Result(C.vkEnumeratePhysicalDevices(C.VkInstance(instance), &count, &handles[0]))
	if err := Check(result, "vkEnumeratePhysicalDevices"); err != nil {
		return nil, err
	}

	summaries := make([]PhysicalDeviceSummary, 0, len(handles))
	for _, h := range handles {
		summaries = append(summaries, summarizePhysicalDevice(PhysicalDevice(h)))
	}
	return summaries, nil
}

func summarizePhysicalDevice(pd PhysicalDevice) PhysicalDeviceSummary {
	var props C.VkPhysicalDeviceProperties
	C.vkGetPhysicalDeviceProperties(C.VkPhysicalDevice(pd), &props)

	var features C.VkPhysicalDeviceFeatures
	C.vkGetPhysicalDeviceFeatures(C.VkPhysicalDevice(pd), &features)

	computeFamily, transferFamily, hasTransfer := findQueueFamilies(pd)

	return PhysicalDeviceSummary{
		Handle:              pd,
		Name:                C.GoString(&props.deviceName[0]),
		ComputeQueueFamily:  computeFamily,
		TransferQueueFamily: transferFamily,
		HasTransferQueue:    hasTransfer,
		ShaderInt16:         features.shaderInt16 != 0,
		ShaderInt64:         features.shaderInt64 != 0,
		ShaderFloat64:       features.shaderFloat64 != 0,
	}
}

func findQueueFamilies(pd PhysicalDevice) (compute, transfer uint32, hasTransfer bool) {
	var count C.uint32_t
	C.vkGetPhysicalDeviceQueueFamilyProperties(C.VkPhysicalDevice(pd), &count, nil)
	if count == 0 {
		return 0, 0, false
	}
	families := make([]C.VkQueueFamilyProperties, count)
	C.vkGetPhysicalDeviceQueueFamilyProperties(C.VkPhysicalDevice(pd), &count, &families[0])

	computeFound := false
	for i, f := range families {
		if f.queueFlags&C.VK_QUEUE_COMPUTE_BIT != 0 && !computeFound {
			compute = uint32(i)
			computeFound = true
		}
		isTransferOnly := f.queueFlags&C.VK_QUEUE_TRANSFER_BIT != 0 && f.queueFlags&C.VK_QUEUE_COMPUTE_BIT == 0
		if isTransferOnly && !hasTransfer {
			transfer = uint32(i)
			hasTransfer = true
		}
	}
	return compute, transfer, hasTransfer
}
