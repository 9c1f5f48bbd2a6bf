package hellovk

import (
	"github.com/pkg/errors"
	vk "github.com/vulkan-go/vulkan"
)

// pickPhysicalDevice takes the first device, in enumeration order, that can
// draw and present to the surface with the required extensions. There is no
// ranking between eligible devices.
func (c *DeviceContext) pickPhysicalDevice() error {
	gpus, err := c.driver.PhysicalDevices(c.instance)
	if err != nil {
		return errors.Wrap(err, "enumerate physical devices")
	}
	if len(gpus) == 0 {
		return ErrNoPhysicalDevices
	}

	for _, gpu := range gpus {
		indices, ok, err := c.isDeviceSuitable(gpu)
		if err != nil {
			return err
		}
		if !ok {
			c.log.Debug("physical device rejected", "device", c.driver.PhysicalDeviceName(gpu))
			continue
		}
		c.gpu = gpu
		c.gpuName = c.driver.PhysicalDeviceName(gpu)
		c.queues = indices
		c.log.Info("physical device selected", "device", c.gpuName,
			"graphicsFamily", indices.Graphics, "presentFamily", indices.Present)
		return nil
	}
	return ErrNoSuitableDevice
}

func (c *DeviceContext) isDeviceSuitable(gpu vk.PhysicalDevice) (QueueFamilyIndices, bool, error) {
	indices, err := FindQueueFamilies(c.driver.QueueFamilies(gpu), func(family uint32) (bool, error) {
		return c.driver.SurfaceSupport(gpu, family, c.surface)
	})
	if err != nil {
		return indices, false, errors.Wrap(err, "query present support")
	}
	if !indices.IsComplete() {
		return indices, false, nil
	}

	extensionsSupported, err := c.prober().SupportsDeviceExtensions(gpu, c.cfg.DeviceExtensions)
	if err != nil || !extensionsSupported {
		return indices, false, err
	}

	support, err := QuerySurfaceSupport(c.driver, gpu, c.surface)
	if err != nil {
		return indices, false, err
	}
	return indices, support.Adequate(), nil
}

// createLogicalDevice requests one queue per distinct family and fetches the
// graphics and present queues, which may be the same handle.
func (c *DeviceContext) createLogicalDevice() error {
	extensions := append([]string(nil), c.cfg.DeviceExtensions...)
	// A portability device must have the subset extension enabled when it
	// exposes it.
	available, err := c.prober().DeviceExtensions(c.gpu)
	if err != nil {
		return err
	}
	if Supports(available, []string{PortabilitySubsetExtension}) && !Supports(extensions, []string{PortabilitySubsetExtension}) {
		extensions = append(extensions, PortabilitySubsetExtension)
	}

	queueInfos := c.queues.CreateInfos()
	info := vk.DeviceCreateInfo{
		SType:                   vk.StructureTypeDeviceCreateInfo,
		QueueCreateInfoCount:    uint32(len(queueInfos)),
		PQueueCreateInfos:       queueInfos,
		EnabledExtensionCount:   uint32(len(extensions)),
		PpEnabledExtensionNames: safeStrings(extensions),
	}
	// Device layers are ignored by current loaders; older ones still read them.
	if c.cfg.Debug && c.cfg.MirrorDeviceLayers {
		info.EnabledLayerCount = uint32(len(c.cfg.ValidationLayers))
		info.PpEnabledLayerNames = safeStrings(c.cfg.ValidationLayers)
	}

	device, err := c.driver.CreateDevice(c.gpu, &info)
	if err != nil {
		return errors.Wrap(err, "create logical device")
	}
	c.device = device
	c.deviceReady = true
	c.release.push(func() { c.driver.DestroyDevice(device) })

	c.graphicsQueue = c.driver.DeviceQueue(device, c.queues.Graphics, 0)
	c.presentQueue = c.driver.DeviceQueue(device, c.queues.Present, 0)
	c.log.Info("logical device created", "device", c.gpuName, "extensions", extensions)
	return nil
}
