package hellovk

import (
	"github.com/pkg/errors"
	vk "github.com/vulkan-go/vulkan"
	"golang.org/x/exp/slog"
)

// Missing returns the entries of requested that are absent from available, in
// the order they were requested. Duplicate requests are reported once.
func Missing(available, requested []string) []string {
	have := make(map[string]struct{}, len(available))
	for _, name := range available {
		have[trimName(name)] = struct{}{}
	}
	var missing []string
	seen := make(map[string]struct{}, len(requested))
	for _, name := range requested {
		name = trimName(name)
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		if _, ok := have[name]; !ok {
			missing = append(missing, name)
		}
	}
	return missing
}

// Supports reports whether every requested name is present in available.
func Supports(available, requested []string) bool {
	return len(Missing(available, requested)) == 0
}

// CapabilityProber answers support queries against what the driver enumerates.
// A failed enumeration is an error; a missing name is only a false result.
type CapabilityProber struct {
	Driver Driver
	Logger *slog.Logger
}

func (p CapabilityProber) logger() *slog.Logger {
	if p.Logger == nil {
		return slog.Default()
	}
	return p.Logger
}

func (p CapabilityProber) InstanceLayers() ([]string, error) {
	names, err := p.Driver.InstanceLayers()
	return names, errors.Wrap(err, "enumerate instance layers")
}

func (p CapabilityProber) InstanceExtensions() ([]string, error) {
	names, err := p.Driver.InstanceExtensions()
	return names, errors.Wrap(err, "enumerate instance extensions")
}

func (p CapabilityProber) DeviceExtensions(gpu vk.PhysicalDevice) ([]string, error) {
	names, err := p.Driver.DeviceExtensions(gpu)
	return names, errors.Wrap(err, "enumerate device extensions")
}

// SupportsLayers checks the requested instance layers. Missing layers are
// logged by name.
func (p CapabilityProber) SupportsLayers(requested []string) (bool, error) {
	available, err := p.InstanceLayers()
	if err != nil {
		return false, err
	}
	if missing := Missing(available, requested); len(missing) > 0 {
		p.logger().Warn("instance layers unavailable", "missing", missing)
		return false, nil
	}
	return true, nil
}

// SupportsInstanceExtensions checks the requested instance extensions.
func (p CapabilityProber) SupportsInstanceExtensions(requested []string) (bool, error) {
	available, err := p.InstanceExtensions()
	if err != nil {
		return false, err
	}
	if missing := Missing(available, requested); len(missing) > 0 {
		p.logger().Warn("instance extensions unavailable", "missing", missing)
		return false, nil
	}
	return true, nil
}

func (p CapabilityProber) SupportsDeviceExtensions(gpu vk.PhysicalDevice, requested []string) (bool, error) {
	available, err := p.DeviceExtensions(gpu)
	if err != nil {
		return false, err
	}
	return Supports(available, requested), nil
}
