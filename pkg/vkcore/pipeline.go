package vkcore

/*
#include <vulkan/vulkan.h>
#include <stdlib.h>
*/
import "C"
import "unsafe"

// BindingKind distinguishes a storage-buffer descriptor's access mode,
// mirroring artifact.SliceDesc.Mutable.
type BindingKind int

const (
	BindingReadOnly BindingKind = iota
	BindingReadWrite
)

// CreateShaderModule loads SPIR-V-like bytecode words into a shader
// module object.
func CreateShaderModule(d Device, bytecode []uint32) (ShaderModule, error) {
	if len(bytecode) == 0 {
		return ShaderModule(nil), Check(ErrorInitializationFailed, "vkCreateShaderModule: empty bytecode")
	}
	createInfo := C.VkShaderModuleCreateInfo{
		sType:    C.VK_STRUCTURE_TYPE_SHADER_MODULE_CREATE_INFO,
		codeSize: C.size_t(len(bytecode) * 4),
		pCode:    (*C.uint32_t)(unsafe.Pointer(&bytecode[0])),
	}
	var module C.VkShaderModule
	result := Result(C.vkCreateShaderModule(C.VkDevice(d), &createInfo, nil, &module))
	return ShaderModule(module), Check(result, "vkCreateShaderModule")
}

// DestroyShaderModule releases a shader module. Safe to call once the
// pipeline built from it exists; Vulkan does not require the module to
// outlive the pipeline.
func DestroyShaderModule(d Device, m ShaderModule) {
	C.vkDestroyShaderModule(C.VkDevice(d), C.VkShaderModule(m), nil)
}

// CreateStorageBufferSetLayout builds a descriptor set layout with one
// binding per bindingKinds entry, in order — the shape slice_descs
// dictates.
func CreateStorageBufferSetLayout(d Device, bindingKinds []BindingKind) (DescriptorSetLayout, error) {
	bindings := make([]C.VkDescriptorSetLayoutBinding, len(bindingKinds))
	for i := range bindingKinds {
		bindings[i] = C.VkDescriptorSetLayoutBinding{
			binding:         C.uint32_t(i),
			descriptorType:  C.VK_DESCRIPTOR_TYPE_STORAGE_BUFFER,
			descriptorCount: 1,
			stageFlags:      C.VK_SHADER_STAGE_COMPUTE_BIT,
		}
	}
	createInfo := C.VkDescriptorSetLayoutCreateInfo{
		sType:        C.VK_STRUCTURE_TYPE_DESCRIPTOR_SET_LAYOUT_CREATE_INFO,
		bindingCount: C.uint32_t(len(bindings)),
	}
	if len(bindings) > 0 {
		createInfo.pBindings = &bindings[0]
	}
	var layout C.VkDescriptorSetLayout
	result := Result(C.vkCreateDescriptorSetLayout(C.VkDevice(d), &createInfo, nil, &layout))
	return DescriptorSetLayout(layout), Check(result, "vkCreateDescriptorSetLayout")
}

func DestroyDescriptorSetLayout(d Device, l DescriptorSetLayout) {
	C.vkDestroyDescriptorSetLayout(C.VkDevice(d), C.VkDescriptorSetLayout(l), nil)
}

// CreatePipelineLayout builds a pipeline layout with one descriptor set
// (setLayout) and a single push-constant range of pushConstsRange bytes,
// the value an artifact's PushConstsRange computes.
func CreatePipelineLayout(d Device, setLayout DescriptorSetLayout, pushConstsRange uint32) (PipelineLayout, error) {
	cSetLayout := C.VkDescriptorSetLayout(setLayout)
	createInfo := C.VkPipelineLayoutCreateInfo{
		sType:          C.VK_STRUCTURE_TYPE_PIPELINE_LAYOUT_CREATE_INFO,
		setLayoutCount: 1,
		pSetLayouts:    &cSetLayout,
	}
	var pushRange C.VkPushConstantRange
	if pushConstsRange > 0 {
		pushRange = C.VkPushConstantRange{
			stageFlags: C.VK_SHADER_STAGE_COMPUTE_BIT,
			offset:     0,
			size:       C.uint32_t(pushConstsRange),
		}
		createInfo.pushConstantRangeCount = 1
		createInfo.pPushConstantRanges = &pushRange
	}
	var layout C.VkPipelineLayout
	result := Result(C.vkCreatePipelineLayout(C.VkDevice(d), &createInfo, nil, &layout))
	return PipelineLayout(layout), Check(result, "vkCreatePipelineLayout")
}

func DestroyPipelineLayout(d Device, l PipelineLayout) {
	C.vkDestroyPipelineLayout(C.VkDevice(d), C.VkPipelineLayout(l), nil)
}

// CreateComputePipeline builds a single compute pipeline from module's
// entry point "main", the one guarantees every artifact has.
func CreateComputePipeline(d Device, module ShaderModule, layout PipelineLayout) (Pipeline, error) {
	entry := C.CString("main")
	defer C.free(unsafe.Pointer(entry))

	createInfo := C.VkComputePipelineCreateInfo{
		sType: C.VK_STRUCTURE_TYPE_COMPUTE_PIPELINE_CREATE_INFO,
		stage: C.VkPipelineShaderStageCreateInfo{
			sType:  C.VK_STRUCTURE_TYPE_PIPELINE_SHADER_STAGE_CREATE_INFO,
			stage:  C.VK_SHADER_STAGE_COMPUTE_BIT,
			module: C.VkShaderModule(module),
			pName:  entry,
		},
		layout: C.VkPipelineLayout(layout),
	}
	var pipeline C.VkPipeline
	result := Result(C.vkCreateComputePipelines(C.VkDevice(d), nil, 1, &createInfo, nil, &pipeline))
	return Pipeline(pipeline), Check(result, "vkCreateComputePipelines")
}

func DestroyPipeline(d Device, p Pipeline) {
	C.vkDestroyPipeline(C.VkDevice(d), C.VkPipeline(p), nil)
}
