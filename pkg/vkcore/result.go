// Package vkcore binds the slice of the low-level graphics/compute API
// the engine actually drives: instance/device creation, memory
// allocation, shader module and pipeline objects, and queue
// submission. It follows the teacher's cgo layering (one Go type per
// opaque handle, Result as a distinct named type with its own error
// text) rather than wrapping a pre-built Go Vulkan binding.
package vkcore

/*
#cgo windows CFLAGS: -IC:/VulkanSDK/1.4.321.0/Include
#cgo windows LDFLAGS: -LC:/VulkanSDK/1.4.321.0/Lib -lvulkan-1
#cgo linux CFLAGS: -I${VULKAN_SDK}/include
#cgo linux LDFLAGS: -L${VULKAN_SDK}/lib -lvulkan
#cgo darwin CFLAGS: -I${VULKAN_SDK}/include
#cgo darwin LDFLAGS: -L${VULKAN_SDK}/lib -lMoltenVK
#include <vulkan/vulkan.h>
*/
import "C"

import "fmt"

// Result mirrors VkResult. Negative values are errors; zero and
// positive values are successes with qualifiers (NotReady, Timeout,
// Incomplete).
type Result C.VkResult

const (
	Success                  = Result(C.VK_SUCCESS)
	NotReady                 = Result(C.VK_NOT_READY)
	Timeout                  = Result(C.VK_TIMEOUT)
	Incomplete               = Result(C.VK_INCOMPLETE)
	ErrorOutOfHostMemory     = Result(C.VK_ERROR_OUT_OF_HOST_MEMORY)
	ErrorOutOfDeviceMemory   = Result(C.VK_ERROR_OUT_OF_DEVICE_MEMORY)
	ErrorInitializationFailed = Result(C.VK_ERROR_INITIALIZATION_FAILED)
	ErrorDeviceLost          = Result(C.VK_ERROR_DEVICE_LOST)
	ErrorMemoryMapFailed     = Result(C.VK_ERROR_MEMORY_MAP_FAILED)
	ErrorExtensionNotPresent = Result(C.VK_ERROR_EXTENSION_NOT_PRESENT)
	ErrorFeatureNotPresent   = Result(C.VK_ERROR_FEATURE_NOT_PRESENT)
	ErrorIncompatibleDriver  = Result(C.VK_ERROR_INCOMPATIBLE_DRIVER)
	ErrorTooManyObjects      = Result(C.VK_ERROR_TOO_MANY_OBJECTS)
)

func (r Result) String() string {
	switch r {
	case Success:
		return "VK_SUCCESS"
	case NotReady:
		return "VK_NOT_READY"
	case Timeout:
		return "VK_TIMEOUT"
	case Incomplete:
		return "VK_INCOMPLETE"
	case ErrorOutOfHostMemory:
		return "VK_ERROR_OUT_OF_HOST_MEMORY"
	case ErrorOutOfDeviceMemory:
		return "VK_ERROR_OUT_OF_DEVICE_MEMORY"
	case ErrorInitializationFailed:
		return "VK_ERROR_INITIALIZATION_FAILED"
	case ErrorDeviceLost:
		return "VK_ERROR_DEVICE_LOST"
	case ErrorMemoryMapFailed:
		return "VK_ERROR_MEMORY_MAP_FAILED"
	case ErrorExtensionNotPresent:
		return "VK_ERROR_EXTENSION_NOT_PRESENT"
	case ErrorFeatureNotPresent:
		return "VK_ERROR_FEATURE_NOT_PRESENT"
	case ErrorIncompatibleDriver:
		return "VK_ERROR_INCOMPATIBLE_DRIVER"
	case ErrorTooManyObjects:
		return "VK_ERROR_TOO_MANY_OBJECTS"
	default:
		return fmt.Sprintf("VkResult(%d)", int32(r))
	}
}

func (r Result) Error() string { return r.String() }

// IsError reports whether r indicates failure (negative VkResult).
func (r Result) IsError() bool { return int32(r) < 0 }

// IsDeviceLost reports the one result code the engine's state machine
// treats as terminal rather than merely failing a single call.
func (r Result) IsDeviceLost() bool { return r == ErrorDeviceLost }

// Check converts a non-success Result into an error tagged with the
// operation that produced it, following the teacher's CheckResult
// helper (pkg/vk/errors.go).
func Check(r Result, operation string) error {
	if r == Success || r == NotReady || r == Timeout || r == Incomplete {
		return nil
	}
	return &Error{Result: r, Operation: operation}
}

// Error wraps a failing Result with the operation that produced it.
type Error struct {
	Result    Result
	Operation string
}

func (e *Error) Error() string {
	return fmt.Sprintf("vkcore: %s failed: %s", e.Operation, e.Result)
}

func (e *Error) Unwrap() error { return e.Result }
