package hellovk

import (
	"unsafe"

	"github.com/pkg/errors"
	vk "github.com/vulkan-go/vulkan"
)

// VulkanDriver issues every Driver call against the system Vulkan loader.
// The loader must be initialised (vk.SetGetInstanceProcAddr + vk.Init) before
// the first call; display.Init does both.
type VulkanDriver struct{}

var _ Driver = VulkanDriver{}

// enumerateNames runs the two-call count/fill pattern and reads one name out
// of each returned record.
func enumerateNames[T any](op string, call func(count *uint32, list []T) vk.Result, name func(T) string) (names []string, err error) {
	defer checkErr(&err)

	var count uint32
	orPanic(checkResult(call(&count, nil), op))
	list := make([]T, count)
	orPanic(checkResult(call(&count, list), op))
	for _, item := range list[:count] {
		names = append(names, name(item))
	}
	return names, err
}

func layerName(layer vk.LayerProperties) string {
	layer.Deref()
	return vk.ToString(layer.LayerName[:])
}

func extensionName(ext vk.ExtensionProperties) string {
	ext.Deref()
	return vk.ToString(ext.ExtensionName[:])
}

// InstanceLayers gets a list of validation layers available on the platform.
func (VulkanDriver) InstanceLayers() ([]string, error) {
	return enumerateNames("vkEnumerateInstanceLayerProperties", func(count *uint32, list []vk.LayerProperties) vk.Result {
		return vk.EnumerateInstanceLayerProperties(count, list)
	}, layerName)
}

// InstanceExtensions gets a list of instance extensions available on the platform.
func (VulkanDriver) InstanceExtensions() ([]string, error) {
	return enumerateNames("vkEnumerateInstanceExtensionProperties", func(count *uint32, list []vk.ExtensionProperties) vk.Result {
		return vk.EnumerateInstanceExtensionProperties("", count, list)
	}, extensionName)
}

// DeviceExtensions gets a list of extensions available on the provided physical device.
func (VulkanDriver) DeviceExtensions(gpu vk.PhysicalDevice) ([]string, error) {
	return enumerateNames("vkEnumerateDeviceExtensionProperties", func(count *uint32, list []vk.ExtensionProperties) vk.Result {
		return vk.EnumerateDeviceExtensionProperties(gpu, "", count, list)
	}, extensionName)
}

// chainDebugInfo marshals debug into C memory for use as an instance PNext.
// The caller releases it with debug.Free once the instance call returns.
func chainDebugInfo(debug *vk.DebugReportCallbackCreateInfo) unsafe.Pointer {
	ref, _ := debug.PassRef()
	return unsafe.Pointer(ref)
}

// CreateInstance creates the instance. When debug is non-nil it is chained
// through PNext so messages raised while the instance itself is being created
// still reach the callback.
func (VulkanDriver) CreateInstance(info *vk.InstanceCreateInfo, debug *vk.DebugReportCallbackCreateInfo) (vk.Instance, error) {
	chained := *info
	if debug != nil {
		chained.PNext = chainDebugInfo(debug)
		defer debug.Free()
	}

	var instance vk.Instance
	if err := checkResult(vk.CreateInstance(&chained, nil, &instance), "vkCreateInstance"); err != nil {
		return nil, err
	}
	if err := vk.InitInstance(instance); err != nil {
		vk.DestroyInstance(instance, nil)
		return nil, errors.Wrap(err, "load instance functions")
	}
	return instance, nil
}

func (VulkanDriver) DestroyInstance(instance vk.Instance) {
	vk.DestroyInstance(instance, nil)
}

func (VulkanDriver) CreateDebugReportCallback(instance vk.Instance, info *vk.DebugReportCallbackCreateInfo) (vk.DebugReportCallback, error) {
	var callback vk.DebugReportCallback
	ret := vk.CreateDebugReportCallback(instance, info, nil, &callback)
	return callback, checkResult(ret, "vkCreateDebugReportCallbackEXT")
}

func (VulkanDriver) DestroyDebugReportCallback(instance vk.Instance, callback vk.DebugReportCallback) {
	vk.DestroyDebugReportCallback(instance, callback, nil)
}

func (VulkanDriver) DestroySurface(instance vk.Instance, surface vk.Surface) {
	vk.DestroySurface(instance, surface, nil)
}

func (VulkanDriver) PhysicalDevices(instance vk.Instance) ([]vk.PhysicalDevice, error) {
	var count uint32
	if err := checkResult(vk.EnumeratePhysicalDevices(instance, &count, nil), "vkEnumeratePhysicalDevices"); err != nil {
		return nil, err
	}
	if count == 0 {
		return nil, nil
	}
	gpus := make([]vk.PhysicalDevice, count)
	if err := checkResult(vk.EnumeratePhysicalDevices(instance, &count, gpus), "vkEnumeratePhysicalDevices"); err != nil {
		return nil, err
	}
	return gpus[:count], nil
}

func (VulkanDriver) PhysicalDeviceName(gpu vk.PhysicalDevice) string {
	var props vk.PhysicalDeviceProperties
	vk.GetPhysicalDeviceProperties(gpu, &props)
	props.Deref()
	return vk.ToString(props.DeviceName[:])
}

func (VulkanDriver) QueueFamilies(gpu vk.PhysicalDevice) []vk.QueueFamilyProperties {
	var count uint32
	vk.GetPhysicalDeviceQueueFamilyProperties(gpu, &count, nil)
	families := make([]vk.QueueFamilyProperties, count)
	vk.GetPhysicalDeviceQueueFamilyProperties(gpu, &count, families)
	for i := range families {
		families[i].Deref()
	}
	return families
}

func (VulkanDriver) SurfaceSupport(gpu vk.PhysicalDevice, family uint32, surface vk.Surface) (bool, error) {
	var supported vk.Bool32
	ret := vk.GetPhysicalDeviceSurfaceSupport(gpu, family, surface, &supported)
	if err := checkResult(ret, "vkGetPhysicalDeviceSurfaceSupportKHR"); err != nil {
		return false, err
	}
	return supported.B(), nil
}

func (VulkanDriver) SurfaceCapabilities(gpu vk.PhysicalDevice, surface vk.Surface) (vk.SurfaceCapabilities, error) {
	var caps vk.SurfaceCapabilities
	ret := vk.GetPhysicalDeviceSurfaceCapabilities(gpu, surface, &caps)
	if err := checkResult(ret, "vkGetPhysicalDeviceSurfaceCapabilitiesKHR"); err != nil {
		return caps, err
	}
	caps.Deref()
	caps.CurrentExtent.Deref()
	caps.MinImageExtent.Deref()
	caps.MaxImageExtent.Deref()
	return caps, nil
}

func (VulkanDriver) SurfaceFormats(gpu vk.PhysicalDevice, surface vk.Surface) ([]vk.SurfaceFormat, error) {
	var count uint32
	ret := vk.GetPhysicalDeviceSurfaceFormats(gpu, surface, &count, nil)
	if err := checkResult(ret, "vkGetPhysicalDeviceSurfaceFormatsKHR"); err != nil || count == 0 {
		return nil, err
	}
	formats := make([]vk.SurfaceFormat, count)
	ret = vk.GetPhysicalDeviceSurfaceFormats(gpu, surface, &count, formats)
	if err := checkResult(ret, "vkGetPhysicalDeviceSurfaceFormatsKHR"); err != nil {
		return nil, err
	}
	for i := range formats {
		formats[i].Deref()
	}
	return formats[:count], nil
}

func (VulkanDriver) SurfacePresentModes(gpu vk.PhysicalDevice, surface vk.Surface) ([]vk.PresentMode, error) {
	var count uint32
	ret := vk.GetPhysicalDeviceSurfacePresentModes(gpu, surface, &count, nil)
	if err := checkResult(ret, "vkGetPhysicalDeviceSurfacePresentModesKHR"); err != nil || count == 0 {
		return nil, err
	}
	modes := make([]vk.PresentMode, count)
	ret = vk.GetPhysicalDeviceSurfacePresentModes(gpu, surface, &count, modes)
	if err := checkResult(ret, "vkGetPhysicalDeviceSurfacePresentModesKHR"); err != nil {
		return nil, err
	}
	return modes[:count], nil
}

func (VulkanDriver) CreateDevice(gpu vk.PhysicalDevice, info *vk.DeviceCreateInfo) (vk.Device, error) {
	var device vk.Device
	ret := vk.CreateDevice(gpu, info, nil, &device)
	return device, checkResult(ret, "vkCreateDevice")
}

func (VulkanDriver) DestroyDevice(device vk.Device) {
	vk.DestroyDevice(device, nil)
}

func (VulkanDriver) DeviceQueue(device vk.Device, family, index uint32) vk.Queue {
	var queue vk.Queue
	vk.GetDeviceQueue(device, family, index, &queue)
	return queue
}

func (VulkanDriver) DeviceWaitIdle(device vk.Device) error {
	return checkResult(vk.DeviceWaitIdle(device), "vkDeviceWaitIdle")
}

func (VulkanDriver) CreateSwapchain(device vk.Device, info *vk.SwapchainCreateInfo) (vk.Swapchain, error) {
	var swapchain vk.Swapchain
	ret := vk.CreateSwapchain(device, info, nil, &swapchain)
	return swapchain, checkResult(ret, "vkCreateSwapchainKHR")
}

func (VulkanDriver) DestroySwapchain(device vk.Device, swapchain vk.Swapchain) {
	vk.DestroySwapchain(device, swapchain, nil)
}

func (VulkanDriver) SwapchainImages(device vk.Device, swapchain vk.Swapchain) ([]vk.Image, error) {
	var count uint32
	if err := checkResult(vk.GetSwapchainImages(device, swapchain, &count, nil), "vkGetSwapchainImagesKHR"); err != nil {
		return nil, err
	}
	images := make([]vk.Image, count)
	if err := checkResult(vk.GetSwapchainImages(device, swapchain, &count, images), "vkGetSwapchainImagesKHR"); err != nil {
		return nil, err
	}
	return images[:count], nil
}

func (VulkanDriver) CreateImageView(device vk.Device, info *vk.ImageViewCreateInfo) (vk.ImageView, error) {
	var view vk.ImageView
	ret := vk.CreateImageView(device, info, nil, &view)
	return view, checkResult(ret, "vkCreateImageView")
}

func (VulkanDriver) DestroyImageView(device vk.Device, view vk.ImageView) {
	vk.DestroyImageView(device, view, nil)
}

// CreateShaderModule hands the bytes to the driver untouched; Vulkan expects
// them as 32-bit words.
func (VulkanDriver) CreateShaderModule(device vk.Device, code []byte) (vk.ShaderModule, error) {
	var module vk.ShaderModule
	ret := vk.CreateShaderModule(device, &vk.ShaderModuleCreateInfo{
		SType:    vk.StructureTypeShaderModuleCreateInfo,
		CodeSize: uint(len(code)),
		PCode:    sliceUint32(code),
	}, nil, &module)
	if isError(ret) {
		return vk.NullShaderModule, checkResult(ret, "vkCreateShaderModule")
	}
	return module, nil
}

func (VulkanDriver) DestroyShaderModule(device vk.Device, module vk.ShaderModule) {
	vk.DestroyShaderModule(device, module, nil)
}

func (VulkanDriver) CreateRenderPass(device vk.Device, info *vk.RenderPassCreateInfo) (vk.RenderPass, error) {
	var pass vk.RenderPass
	ret := vk.CreateRenderPass(device, info, nil, &pass)
	return pass, checkResult(ret, "vkCreateRenderPass")
}

func (VulkanDriver) DestroyRenderPass(device vk.Device, pass vk.RenderPass) {
	vk.DestroyRenderPass(device, pass, nil)
}

func (VulkanDriver) CreatePipelineLayout(device vk.Device, info *vk.PipelineLayoutCreateInfo) (vk.PipelineLayout, error) {
	var layout vk.PipelineLayout
	ret := vk.CreatePipelineLayout(device, info, nil, &layout)
	return layout, checkResult(ret, "vkCreatePipelineLayout")
}

func (VulkanDriver) DestroyPipelineLayout(device vk.Device, layout vk.PipelineLayout) {
	vk.DestroyPipelineLayout(device, layout, nil)
}

func (VulkanDriver) CreateGraphicsPipeline(device vk.Device, info *vk.GraphicsPipelineCreateInfo) (vk.Pipeline, error) {
	var cache vk.PipelineCache
	pipelines := []vk.Pipeline{vk.NullPipeline}
	ret := vk.CreateGraphicsPipelines(device, cache, 1, []vk.GraphicsPipelineCreateInfo{*info}, nil, pipelines)
	return pipelines[0], checkResult(ret, "vkCreateGraphicsPipelines")
}

func (VulkanDriver) DestroyPipeline(device vk.Device, pipeline vk.Pipeline) {
	vk.DestroyPipeline(device, pipeline, nil)
}

func (VulkanDriver) CreateFramebuffer(device vk.Device, info *vk.FramebufferCreateInfo) (vk.Framebuffer, error) {
	var framebuffer vk.Framebuffer
	ret := vk.CreateFramebuffer(device, info, nil, &framebuffer)
	return framebuffer, checkResult(ret, "vkCreateFramebuffer")
}

func (VulkanDriver) DestroyFramebuffer(device vk.Device, framebuffer vk.Framebuffer) {
	vk.DestroyFramebuffer(device, framebuffer, nil)
}

func (VulkanDriver) CreateCommandPool(device vk.Device, info *vk.CommandPoolCreateInfo) (vk.CommandPool, error) {
	var pool vk.CommandPool
	ret := vk.CreateCommandPool(device, info, nil, &pool)
	return pool, checkResult(ret, "vkCreateCommandPool")
}

func (VulkanDriver) DestroyCommandPool(device vk.Device, pool vk.CommandPool) {
	vk.DestroyCommandPool(device, pool, nil)
}

func (VulkanDriver) AllocateCommandBuffer(device vk.Device, pool vk.CommandPool) (vk.CommandBuffer, error) {
	buffers := make([]vk.CommandBuffer, 1)
	ret := vk.AllocateCommandBuffers(device, &vk.CommandBufferAllocateInfo{
		SType:              vk.StructureTypeCommandBufferAllocateInfo,
		CommandPool:        pool,
		Level:              vk.CommandBufferLevelPrimary,
		CommandBufferCount: 1,
	}, buffers)
	return buffers[0], checkResult(ret, "vkAllocateCommandBuffers")
}

func (VulkanDriver) CreateSemaphore(device vk.Device) (vk.Semaphore, error) {
	var semaphore vk.Semaphore
	ret := vk.CreateSemaphore(device, &vk.SemaphoreCreateInfo{
		SType: vk.StructureTypeSemaphoreCreateInfo,
	}, nil, &semaphore)
	return semaphore, checkResult(ret, "vkCreateSemaphore")
}

func (VulkanDriver) DestroySemaphore(device vk.Device, semaphore vk.Semaphore) {
	vk.DestroySemaphore(device, semaphore, nil)
}

func (VulkanDriver) CreateFence(device vk.Device, signaled bool) (vk.Fence, error) {
	info := vk.FenceCreateInfo{
		SType: vk.StructureTypeFenceCreateInfo,
	}
	if signaled {
		info.Flags = vk.FenceCreateFlags(vk.FenceCreateSignaledBit)
	}
	var fence vk.Fence
	ret := vk.CreateFence(device, &info, nil, &fence)
	return fence, checkResult(ret, "vkCreateFence")
}

func (VulkanDriver) DestroyFence(device vk.Device, fence vk.Fence) {
	vk.DestroyFence(device, fence, nil)
}

func (VulkanDriver) WaitForFence(device vk.Device, fence vk.Fence, timeout uint64) error {
	ret := vk.WaitForFences(device, 1, []vk.Fence{fence}, vk.True, timeout)
	return checkResult(ret, "vkWaitForFences")
}

func (VulkanDriver) ResetFence(device vk.Device, fence vk.Fence) error {
	return checkResult(vk.ResetFences(device, 1, []vk.Fence{fence}), "vkResetFences")
}

func (VulkanDriver) AcquireNextImage(device vk.Device, swapchain vk.Swapchain, timeout uint64, semaphore vk.Semaphore) (uint32, vk.Result) {
	var index uint32
	ret := vk.AcquireNextImage(device, swapchain, timeout, semaphore, vk.NullFence, &index)
	return index, ret
}

func (VulkanDriver) ResetCommandBuffer(cmd vk.CommandBuffer) error {
	return checkResult(vk.ResetCommandBuffer(cmd, 0), "vkResetCommandBuffer")
}

func (VulkanDriver) BeginCommandBuffer(cmd vk.CommandBuffer) error {
	ret := vk.BeginCommandBuffer(cmd, &vk.CommandBufferBeginInfo{
		SType: vk.StructureTypeCommandBufferBeginInfo,
	})
	return checkResult(ret, "vkBeginCommandBuffer")
}

func (VulkanDriver) EndCommandBuffer(cmd vk.CommandBuffer) error {
	return checkResult(vk.EndCommandBuffer(cmd), "vkEndCommandBuffer")
}

func (VulkanDriver) CmdBeginRenderPass(cmd vk.CommandBuffer, info *vk.RenderPassBeginInfo) {
	vk.CmdBeginRenderPass(cmd, info, vk.SubpassContentsInline)
}

func (VulkanDriver) CmdEndRenderPass(cmd vk.CommandBuffer) {
	vk.CmdEndRenderPass(cmd)
}

func (VulkanDriver) CmdBindPipeline(cmd vk.CommandBuffer, pipeline vk.Pipeline) {
	vk.CmdBindPipeline(cmd, vk.PipelineBindPointGraphics, pipeline)
}

func (VulkanDriver) CmdSetViewport(cmd vk.CommandBuffer, viewport vk.Viewport) {
	vk.CmdSetViewport(cmd, 0, 1, []vk.Viewport{viewport})
}

func (VulkanDriver) CmdSetScissor(cmd vk.CommandBuffer, scissor vk.Rect2D) {
	vk.CmdSetScissor(cmd, 0, 1, []vk.Rect2D{scissor})
}

func (VulkanDriver) CmdDraw(cmd vk.CommandBuffer, vertexCount, instanceCount, firstVertex, firstInstance uint32) {
	vk.CmdDraw(cmd, vertexCount, instanceCount, firstVertex, firstInstance)
}

func (VulkanDriver) QueueSubmit(queue vk.Queue, submit vk.SubmitInfo, fence vk.Fence) error {
	return checkResult(vk.QueueSubmit(queue, 1, []vk.SubmitInfo{submit}, fence), "vkQueueSubmit")
}

func (VulkanDriver) QueuePresent(queue vk.Queue, info *vk.PresentInfo) vk.Result {
	return vk.QueuePresent(queue, info)
}
