package hellovk

import (
	vk "github.com/vulkan-go/vulkan"
	"golang.org/x/exp/slog"
)

// DeviceContext holds the instance, the surface, the selected physical
// device and the logical device with its queues. Every other object is
// derived from it and must be destroyed first.
type DeviceContext struct {
	driver Driver
	cfg    Config
	log    *slog.Logger
	sink   DiagnosticSink

	instance      vk.Instance
	debugCallback vk.DebugReportCallback
	surface       vk.Surface
	gpu           vk.PhysicalDevice
	gpuName       string
	device        vk.Device
	deviceReady   bool
	queues        QueueFamilyIndices
	graphicsQueue vk.Queue
	presentQueue  vk.Queue

	release releaseStack
}

// NewDeviceContext runs the bring-up sequence in order: layer check, instance,
// debug callback, surface, physical device selection, logical device and queue
// retrieval. The first failing step aborts; whatever was already created is
// released before the error is returned.
func NewDeviceContext(driver Driver, window Window, cfg Config, opts Options) (ctx *DeviceContext, err error) {
	opts = opts.withDefaults()
	c := &DeviceContext{
		driver: driver,
		cfg:    cfg,
		log:    opts.Logger,
		sink:   opts.Sink,
	}
	defer func() {
		if err != nil {
			c.release.release()
		}
	}()

	if cfg.Debug {
		if err = c.checkLayers(); err != nil {
			return nil, err
		}
	}
	if err = c.createInstance(window); err != nil {
		return nil, err
	}
	if cfg.Debug {
		if err = c.attachDebugCallback(); err != nil {
			return nil, err
		}
	}
	if err = c.createSurface(window); err != nil {
		return nil, err
	}
	if err = c.pickPhysicalDevice(); err != nil {
		return nil, err
	}
	if err = c.createLogicalDevice(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *DeviceContext) Driver() Driver                    { return c.driver }
func (c *DeviceContext) Config() Config                    { return c.cfg }
func (c *DeviceContext) Instance() vk.Instance             { return c.instance }
func (c *DeviceContext) Surface() vk.Surface               { return c.surface }
func (c *DeviceContext) PhysicalDevice() vk.PhysicalDevice { return c.gpu }
func (c *DeviceContext) DeviceName() string                { return c.gpuName }
func (c *DeviceContext) Device() vk.Device                 { return c.device }
func (c *DeviceContext) QueueFamilies() QueueFamilyIndices { return c.queues }
func (c *DeviceContext) GraphicsQueue() vk.Queue           { return c.graphicsQueue }
func (c *DeviceContext) PresentQueue() vk.Queue            { return c.presentQueue }

// WaitIdle blocks until the device has finished all submitted work.
func (c *DeviceContext) WaitIdle() error {
	if !c.deviceReady {
		return nil
	}
	return c.driver.DeviceWaitIdle(c.device)
}

// Destroy releases the device, surface, debug callback and instance in reverse
// creation order. It does not wait for the device; derived objects must
// already be gone.
func (c *DeviceContext) Destroy() {
	c.release.release()
	c.deviceReady = false
	c.device = nil
	c.graphicsQueue = nil
	c.presentQueue = nil
	c.surface = vk.NullSurface
	c.debugCallback = vk.NullDebugReportCallback
	c.instance = nil
}
