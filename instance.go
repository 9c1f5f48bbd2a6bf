package hellovk

import (
	"github.com/pkg/errors"
	vk "github.com/vulkan-go/vulkan"
)

func (c *DeviceContext) prober() CapabilityProber {
	return CapabilityProber{Driver: c.driver, Logger: c.log}
}

// Fails when a requested validation layer is not installed
func (c *DeviceContext) checkLayers() error {
	ok, err := c.prober().SupportsLayers(c.cfg.ValidationLayers)
	if err != nil {
		return err
	}
	if !ok {
		return ErrLayersUnavailable
	}
	return nil
}

// requiredInstanceExtensions is what the window needs for presentation plus the
// debug report extension in debug configurations.
func (c *DeviceContext) requiredInstanceExtensions(window Window) []string {
	extensions := append([]string(nil), window.RequiredInstanceExtensions()...)
	if c.cfg.Debug {
		extensions = append(extensions, DebugExtension)
	}
	return extensions
}

func (c *DeviceContext) createInstance(window Window) error {
	extensions := c.requiredInstanceExtensions(window)
	if c.cfg.Debug {
		c.log.Info("required instance extensions", "extensions", extensions)
	}
	available, err := c.prober().InstanceExtensions()
	if err != nil {
		return err
	}
	if missing := Missing(available, extensions); len(missing) > 0 {
		return errors.Wrapf(ErrExtensionsUnavailable, "instance extensions %v", missing)
	}

	// Portability drivers (MoltenVK) are only enumerated when asked for.
	var flags vk.InstanceCreateFlags
	if Supports(available, []string{PortabilityEnumerationExtension}) {
		extensions = append(extensions, PortabilityEnumerationExtension)
		flags = instanceCreateEnumeratePortability
	}

	info := vk.InstanceCreateInfo{
		SType: vk.StructureTypeInstanceCreateInfo,
		PApplicationInfo: &vk.ApplicationInfo{
			SType:              vk.StructureTypeApplicationInfo,
			ApiVersion:         uint32(DefaultVulkanAPIVersion),
			ApplicationVersion: uint32(DefaultVulkanAppVersion),
			PApplicationName:   safeString(c.cfg.AppName),
			EngineVersion:      uint32(DefaultVulkanAppVersion),
			PEngineName:        "No Engine\x00",
		},
		EnabledExtensionCount:   uint32(len(extensions)),
		PpEnabledExtensionNames: safeStrings(extensions),
		Flags:                   flags,
	}

	// The same callback description rides along instance creation so
	// messages raised before the standalone callback exists are not lost.
	var debug *vk.DebugReportCallbackCreateInfo
	var layers []string
	if c.cfg.Debug {
		layers = c.cfg.ValidationLayers
		info.EnabledLayerCount = uint32(len(layers))
		info.PpEnabledLayerNames = safeStrings(layers)
		debug = debugReportCallback()
		c.release.push(registerSink(c.sink))
	}

	instance, err := c.driver.CreateInstance(&info, debug)
	if err != nil {
		return errors.Wrap(err, "create instance")
	}
	c.instance = instance
	c.release.push(func() { c.driver.DestroyInstance(instance) })
	c.log.Info("instance created", "extensions", extensions, "layers", layers)
	return nil
}

func (c *DeviceContext) attachDebugCallback() error {
	callback, err := c.driver.CreateDebugReportCallback(c.instance, debugReportCallback())
	if err != nil {
		return errors.Wrap(err, "set up debug callback")
	}
	c.debugCallback = callback
	instance := c.instance
	c.release.push(func() { c.driver.DestroyDebugReportCallback(instance, callback) })
	return nil
}

func (c *DeviceContext) createSurface(window Window) error {
	surface, err := window.CreateSurface(c.instance)
	if err != nil {
		return errors.Wrap(err, "create window surface")
	}
	c.surface = surface
	instance := c.instance
	c.release.push(func() { c.driver.DestroySurface(instance, surface) })
	return nil
}
