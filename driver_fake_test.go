package hellovk

import (
	"fmt"
	"io"
	"testing/fstest"
	"unsafe"

	"github.com/pkg/errors"
	vk "github.com/vulkan-go/vulkan"
	"golang.org/x/exp/slog"
)

// Object kinds tracked by fakeDriver.
const (
	kindInstance       = "instance"
	kindDebugCallback  = "debugCallback"
	kindSurface        = "surface"
	kindDevice         = "device"
	kindSwapchain      = "swapchain"
	kindImageView      = "imageView"
	kindShaderModule   = "shaderModule"
	kindRenderPass     = "renderPass"
	kindPipelineLayout = "pipelineLayout"
	kindPipeline       = "pipeline"
	kindFramebuffer    = "framebuffer"
	kindCommandPool    = "commandPool"
	kindCommandBuffer  = "commandBuffer"
	kindSemaphore      = "semaphore"
	kindFence          = "fence"
)

var deviceChildren = []string{
	kindSwapchain, kindImageView, kindShaderModule, kindRenderPass, kindPipelineLayout,
	kindPipeline, kindFramebuffer, kindCommandPool, kindSemaphore, kindFence,
}

type fakeGPU struct {
	name         string
	families     []vk.QueueFamilyProperties
	present      []bool
	extensions   []string
	formats      []vk.SurfaceFormat
	presentModes []vk.PresentMode
}

// fakeDriver is a conformant software stand-in for the Vulkan driver. Object
// handles are nil except for physical devices, which need to be told apart.
// Destroying a parent while children are alive, waiting on a fence that can
// never signal and similar misuse are recorded as violations, the way the
// validation layers would report them.
type fakeDriver struct {
	layers             []string
	instanceExtensions []string
	gpus               []fakeGPU
	gpuTags            []byte
	caps               vk.SurfaceCapabilities
	imageCount         int

	fail          map[string]error
	acquireResult vk.Result
	acquireIndex  uint32
	presentResult vk.Result

	live       map[string]int
	calls      []string
	violations []string

	instanceInfo  *vk.InstanceCreateInfo
	debugChained  bool
	deviceInfo    *vk.DeviceCreateInfo
	swapchainInfo *vk.SwapchainCreateInfo
	pipelineInfo  *vk.GraphicsPipelineCreateInfo
	renderPass    *vk.RenderPassCreateInfo
	shaderCode    [][]byte
	queueRequests [][2]uint32

	fenceSignaled bool
	fenceWaits    int
	submits       []vk.SubmitInfo
	presents      int
	draws         int
	recording     bool
	idleWaits     int
}

func graphicsFamily() vk.QueueFamilyProperties {
	return vk.QueueFamilyProperties{QueueFlags: vk.QueueFlags(vk.QueueGraphicsBit), QueueCount: 1}
}

func computeFamily() vk.QueueFamilyProperties {
	return vk.QueueFamilyProperties{QueueFlags: vk.QueueFlags(vk.QueueComputeBit), QueueCount: 1}
}

func goodGPU(name string) fakeGPU {
	return fakeGPU{
		name:       name,
		families:   []vk.QueueFamilyProperties{graphicsFamily()},
		present:    []bool{true},
		extensions: []string{SwapchainExtension},
		formats: []vk.SurfaceFormat{
			{Format: vk.FormatR8g8b8a8Unorm, ColorSpace: vk.ColorSpaceSrgbNonlinear},
			{Format: vk.FormatB8g8r8a8Srgb, ColorSpace: vk.ColorSpaceSrgbNonlinear},
		},
		presentModes: []vk.PresentMode{vk.PresentModeFifo, vk.PresentModeMailbox},
	}
}

func newFakeDriver() *fakeDriver {
	return &fakeDriver{
		layers:             []string{ValidationLayer},
		instanceExtensions: []string{"VK_KHR_surface", "VK_KHR_xcb_surface", DebugExtension},
		gpus:               []fakeGPU{goodGPU("fake gpu")},
		caps: vk.SurfaceCapabilities{
			MinImageCount:    2,
			MaxImageCount:    4,
			CurrentExtent:    vk.Extent2D{Width: 800, Height: 600},
			MinImageExtent:   vk.Extent2D{Width: 1, Height: 1},
			MaxImageExtent:   vk.Extent2D{Width: 4096, Height: 4096},
			CurrentTransform: vk.SurfaceTransformIdentityBit,
		},
		imageCount:    3,
		fail:          make(map[string]error),
		acquireResult: vk.Success,
		presentResult: vk.Success,
		live:          make(map[string]int),
	}
}

var _ Driver = (*fakeDriver)(nil)

func (f *fakeDriver) violate(format string, args ...interface{}) {
	f.violations = append(f.violations, fmt.Sprintf(format, args...))
}

func (f *fakeDriver) create(kind string) error {
	if err := f.fail[kind]; err != nil {
		return err
	}
	f.live[kind]++
	f.calls = append(f.calls, "create "+kind)
	return nil
}

func (f *fakeDriver) destroy(kind string, children ...string) {
	for _, child := range children {
		if f.live[child] > 0 {
			f.violate("%s destroyed with %d live %s", kind, f.live[child], child)
		}
	}
	if f.live[kind] == 0 {
		f.violate("%s destroyed twice", kind)
		return
	}
	f.live[kind]--
	f.calls = append(f.calls, "destroy "+kind)
}

func (f *fakeDriver) totalLive() int {
	n := 0
	for _, count := range f.live {
		n += count
	}
	return n
}

func (f *fakeDriver) gpuHandle(i int) vk.PhysicalDevice {
	return vk.PhysicalDevice(unsafe.Pointer(&f.gpuTags[i]))
}

func (f *fakeDriver) gpu(handle vk.PhysicalDevice) *fakeGPU {
	for i := range f.gpus {
		if f.gpuHandle(i) == handle {
			return &f.gpus[i]
		}
	}
	f.violate("unknown physical device")
	return &fakeGPU{}
}

func (f *fakeDriver) InstanceLayers() ([]string, error) {
	if err := f.fail["enumerateLayers"]; err != nil {
		return nil, err
	}
	return f.layers, nil
}

func (f *fakeDriver) InstanceExtensions() ([]string, error) {
	if err := f.fail["enumerateInstanceExtensions"]; err != nil {
		return nil, err
	}
	return f.instanceExtensions, nil
}

func (f *fakeDriver) DeviceExtensions(gpu vk.PhysicalDevice) ([]string, error) {
	if err := f.fail["enumerateDeviceExtensions"]; err != nil {
		return nil, err
	}
	return f.gpu(gpu).extensions, nil
}

func (f *fakeDriver) CreateInstance(info *vk.InstanceCreateInfo, debug *vk.DebugReportCallbackCreateInfo) (vk.Instance, error) {
	if f.live[kindInstance] > 0 {
		f.violate("second instance created")
	}
	if err := f.create(kindInstance); err != nil {
		return nil, err
	}
	f.instanceInfo = info
	f.debugChained = debug != nil
	return nil, nil
}

func (f *fakeDriver) DestroyInstance(vk.Instance) {
	f.destroy(kindInstance, kindDebugCallback, kindSurface, kindDevice)
}

func (f *fakeDriver) CreateDebugReportCallback(_ vk.Instance, info *vk.DebugReportCallbackCreateInfo) (vk.DebugReportCallback, error) {
	if info.PfnCallback == nil {
		f.violate("debug callback without a function")
	}
	return vk.NullDebugReportCallback, f.create(kindDebugCallback)
}

func (f *fakeDriver) DestroyDebugReportCallback(vk.Instance, vk.DebugReportCallback) {
	f.destroy(kindDebugCallback)
}

func (f *fakeDriver) DestroySurface(vk.Instance, vk.Surface) {
	f.destroy(kindSurface, kindSwapchain)
}

func (f *fakeDriver) PhysicalDevices(vk.Instance) ([]vk.PhysicalDevice, error) {
	if err := f.fail["enumeratePhysicalDevices"]; err != nil {
		return nil, err
	}
	f.gpuTags = make([]byte, len(f.gpus))
	out := make([]vk.PhysicalDevice, len(f.gpus))
	for i := range f.gpus {
		out[i] = f.gpuHandle(i)
	}
	return out, nil
}

func (f *fakeDriver) PhysicalDeviceName(gpu vk.PhysicalDevice) string {
	return f.gpu(gpu).name
}

func (f *fakeDriver) QueueFamilies(gpu vk.PhysicalDevice) []vk.QueueFamilyProperties {
	return f.gpu(gpu).families
}

func (f *fakeDriver) SurfaceSupport(gpu vk.PhysicalDevice, family uint32, _ vk.Surface) (bool, error) {
	g := f.gpu(gpu)
	if f.live[kindSurface] == 0 {
		f.violate("present support queried without a surface")
	}
	f.queueRequests = append(f.queueRequests, [2]uint32{uint32(len(f.queueRequests)), family})
	return int(family) < len(g.present) && g.present[family], nil
}

func (f *fakeDriver) SurfaceCapabilities(vk.PhysicalDevice, vk.Surface) (vk.SurfaceCapabilities, error) {
	return f.caps, nil
}

func (f *fakeDriver) SurfaceFormats(gpu vk.PhysicalDevice, _ vk.Surface) ([]vk.SurfaceFormat, error) {
	return f.gpu(gpu).formats, nil
}

func (f *fakeDriver) SurfacePresentModes(gpu vk.PhysicalDevice, _ vk.Surface) ([]vk.PresentMode, error) {
	return f.gpu(gpu).presentModes, nil
}

func (f *fakeDriver) CreateDevice(_ vk.PhysicalDevice, info *vk.DeviceCreateInfo) (vk.Device, error) {
	seen := map[uint32]bool{}
	for _, q := range info.PQueueCreateInfos {
		if seen[q.QueueFamilyIndex] {
			f.violate("duplicate queue family %d in device create info", q.QueueFamilyIndex)
		}
		seen[q.QueueFamilyIndex] = true
	}
	if err := f.create(kindDevice); err != nil {
		return nil, err
	}
	f.deviceInfo = info
	return nil, nil
}

func (f *fakeDriver) DestroyDevice(vk.Device) {
	f.destroy(kindDevice, deviceChildren...)
}

func (f *fakeDriver) DeviceQueue(_ vk.Device, family, index uint32) vk.Queue {
	if f.live[kindDevice] == 0 {
		f.violate("queue %d/%d fetched without a device", family, index)
	}
	return nil
}

func (f *fakeDriver) DeviceWaitIdle(vk.Device) error {
	f.idleWaits++
	f.calls = append(f.calls, "wait idle")
	return nil
}

func (f *fakeDriver) CreateSwapchain(_ vk.Device, info *vk.SwapchainCreateInfo) (vk.Swapchain, error) {
	if err := f.create(kindSwapchain); err != nil {
		return vk.NullSwapchain, err
	}
	f.swapchainInfo = info
	return vk.NullSwapchain, nil
}

func (f *fakeDriver) DestroySwapchain(vk.Device, vk.Swapchain) {
	f.destroy(kindSwapchain, kindImageView)
}

func (f *fakeDriver) SwapchainImages(vk.Device, vk.Swapchain) ([]vk.Image, error) {
	return make([]vk.Image, f.imageCount), nil
}

func (f *fakeDriver) CreateImageView(vk.Device, *vk.ImageViewCreateInfo) (vk.ImageView, error) {
	return vk.NullImageView, f.create(kindImageView)
}

func (f *fakeDriver) DestroyImageView(vk.Device, vk.ImageView) {
	f.destroy(kindImageView, kindFramebuffer)
}

func (f *fakeDriver) CreateShaderModule(_ vk.Device, code []byte) (vk.ShaderModule, error) {
	if len(code)%4 != 0 {
		f.violate("shader code size %d is not a multiple of 4", len(code))
	}
	if err := f.create(kindShaderModule); err != nil {
		return vk.NullShaderModule, err
	}
	f.shaderCode = append(f.shaderCode, code)
	return vk.NullShaderModule, nil
}

func (f *fakeDriver) DestroyShaderModule(vk.Device, vk.ShaderModule) {
	f.destroy(kindShaderModule)
}

func (f *fakeDriver) CreateRenderPass(_ vk.Device, info *vk.RenderPassCreateInfo) (vk.RenderPass, error) {
	if err := f.create(kindRenderPass); err != nil {
		return vk.NullRenderPass, err
	}
	f.renderPass = info
	return vk.NullRenderPass, nil
}

func (f *fakeDriver) DestroyRenderPass(vk.Device, vk.RenderPass) {
	f.destroy(kindRenderPass)
}

func (f *fakeDriver) CreatePipelineLayout(vk.Device, *vk.PipelineLayoutCreateInfo) (vk.PipelineLayout, error) {
	return vk.NullPipelineLayout, f.create(kindPipelineLayout)
}

func (f *fakeDriver) DestroyPipelineLayout(vk.Device, vk.PipelineLayout) {
	f.destroy(kindPipelineLayout)
}

func (f *fakeDriver) CreateGraphicsPipeline(_ vk.Device, info *vk.GraphicsPipelineCreateInfo) (vk.Pipeline, error) {
	if f.live[kindShaderModule] < 2 {
		f.violate("pipeline created with %d live shader modules", f.live[kindShaderModule])
	}
	if err := f.create(kindPipeline); err != nil {
		return vk.NullPipeline, err
	}
	f.pipelineInfo = info
	return vk.NullPipeline, nil
}

func (f *fakeDriver) DestroyPipeline(vk.Device, vk.Pipeline) {
	f.destroy(kindPipeline)
}

func (f *fakeDriver) CreateFramebuffer(vk.Device, *vk.FramebufferCreateInfo) (vk.Framebuffer, error) {
	return vk.NullFramebuffer, f.create(kindFramebuffer)
}

func (f *fakeDriver) DestroyFramebuffer(vk.Device, vk.Framebuffer) {
	f.destroy(kindFramebuffer)
}

func (f *fakeDriver) CreateCommandPool(vk.Device, *vk.CommandPoolCreateInfo) (vk.CommandPool, error) {
	return vk.NullCommandPool, f.create(kindCommandPool)
}

func (f *fakeDriver) DestroyCommandPool(vk.Device, vk.CommandPool) {
	f.destroy(kindCommandPool)
	// Buffers are freed with their pool.
	f.live[kindCommandBuffer] = 0
}

func (f *fakeDriver) AllocateCommandBuffer(vk.Device, vk.CommandPool) (vk.CommandBuffer, error) {
	if f.live[kindCommandPool] == 0 {
		f.violate("command buffer allocated without a pool")
	}
	return nil, f.create(kindCommandBuffer)
}

func (f *fakeDriver) CreateSemaphore(vk.Device) (vk.Semaphore, error) {
	return vk.NullSemaphore, f.create(kindSemaphore)
}

func (f *fakeDriver) DestroySemaphore(vk.Device, vk.Semaphore) {
	f.destroy(kindSemaphore)
}

func (f *fakeDriver) CreateFence(_ vk.Device, signaled bool) (vk.Fence, error) {
	if err := f.create(kindFence); err != nil {
		return vk.NullFence, err
	}
	f.fenceSignaled = signaled
	return vk.NullFence, nil
}

func (f *fakeDriver) DestroyFence(vk.Device, vk.Fence) {
	f.destroy(kindFence)
}

// WaitForFence returns immediately when the fence is signaled. An unsignaled
// fence with nothing submitted would block forever on a real device.
func (f *fakeDriver) WaitForFence(_ vk.Device, _ vk.Fence, timeout uint64) error {
	f.fenceWaits++
	f.calls = append(f.calls, "wait fence")
	if !f.fenceSignaled {
		f.violate("wait on a fence that can never signal")
		return errors.New("fence wait timed out")
	}
	return nil
}

func (f *fakeDriver) ResetFence(vk.Device, vk.Fence) error {
	f.calls = append(f.calls, "reset fence")
	f.fenceSignaled = false
	return nil
}

func (f *fakeDriver) AcquireNextImage(vk.Device, vk.Swapchain, uint64, vk.Semaphore) (uint32, vk.Result) {
	f.calls = append(f.calls, "acquire")
	return f.acquireIndex, f.acquireResult
}

func (f *fakeDriver) ResetCommandBuffer(vk.CommandBuffer) error {
	if f.recording {
		f.violate("command buffer reset while recording")
	}
	return nil
}

func (f *fakeDriver) BeginCommandBuffer(vk.CommandBuffer) error {
	f.calls = append(f.calls, "begin")
	f.recording = true
	return nil
}

func (f *fakeDriver) EndCommandBuffer(vk.CommandBuffer) error {
	f.calls = append(f.calls, "end")
	f.recording = false
	return nil
}

func (f *fakeDriver) CmdBeginRenderPass(vk.CommandBuffer, *vk.RenderPassBeginInfo) {
	f.calls = append(f.calls, "begin pass")
}

func (f *fakeDriver) CmdEndRenderPass(vk.CommandBuffer) {
	f.calls = append(f.calls, "end pass")
}

func (f *fakeDriver) CmdBindPipeline(vk.CommandBuffer, vk.Pipeline) {
	f.calls = append(f.calls, "bind pipeline")
}

func (f *fakeDriver) CmdSetViewport(vk.CommandBuffer, vk.Viewport) {
	f.calls = append(f.calls, "set viewport")
}

func (f *fakeDriver) CmdSetScissor(vk.CommandBuffer, vk.Rect2D) {
	f.calls = append(f.calls, "set scissor")
}

func (f *fakeDriver) CmdDraw(_ vk.CommandBuffer, vertexCount, instanceCount, _, _ uint32) {
	if vertexCount != 3 || instanceCount != 1 {
		f.violate("draw %d vertices x %d instances", vertexCount, instanceCount)
	}
	f.draws++
	f.calls = append(f.calls, "draw")
}

// QueueSubmit completes the work at once and signals the fence.
func (f *fakeDriver) QueueSubmit(_ vk.Queue, submit vk.SubmitInfo, _ vk.Fence) error {
	if err := f.fail["submit"]; err != nil {
		return err
	}
	if f.recording {
		f.violate("submitted a command buffer that is still recording")
	}
	if f.fenceSignaled {
		f.violate("submitted with a fence that is already signaled")
	}
	f.submits = append(f.submits, submit)
	f.calls = append(f.calls, "submit")
	f.fenceSignaled = true
	return nil
}

func (f *fakeDriver) QueuePresent(vk.Queue, *vk.PresentInfo) vk.Result {
	f.presents++
	f.calls = append(f.calls, "present")
	return f.presentResult
}

type fakeWindow struct {
	driver     *fakeDriver
	extensions []string
	width      int
	height     int
	closeAfter int
	checks     int
	polls      int
	surfaceErr error
}

func newFakeWindow(driver *fakeDriver) *fakeWindow {
	return &fakeWindow{
		driver:     driver,
		extensions: []string{"VK_KHR_surface", "VK_KHR_xcb_surface"},
		width:      800,
		height:     600,
		closeAfter: 1,
	}
}

func (w *fakeWindow) RequiredInstanceExtensions() []string { return w.extensions }

func (w *fakeWindow) CreateSurface(vk.Instance) (vk.Surface, error) {
	if w.surfaceErr != nil {
		return vk.NullSurface, w.surfaceErr
	}
	if w.driver.live[kindInstance] == 0 {
		w.driver.violate("surface created without an instance")
	}
	return vk.NullSurface, w.driver.create(kindSurface)
}

// ShouldClose reports true once closeAfter frames have been polled.
func (w *fakeWindow) ShouldClose() bool {
	w.checks++
	return w.polls >= w.closeAfter
}

func (w *fakeWindow) FramebufferSize() (int, int) { return w.width, w.height }

func (w *fakeWindow) PollEvents() { w.polls++ }

// spirvStub is the SPIR-V magic number followed by a version word.
var spirvStub = []byte{0x03, 0x02, 0x23, 0x07, 0x00, 0x00, 0x01, 0x00}

func testShaders() ShaderSource {
	return FSShaderSource{FS: fstest.MapFS{
		"vert.spv": {Data: spirvStub},
		"frag.spv": {Data: spirvStub},
	}}
}

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.Debug = true
	cfg.MirrorDeviceLayers = true
	cfg.VertexShader = "vert.spv"
	cfg.FragmentShader = "frag.spv"
	return cfg
}

func testOptions() Options {
	return Options{
		Logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
		Sink:    NewTerminalSink(io.Discard),
		Shaders: testShaders(),
	}
}
