package hellovk

import (
	"os"
	"strconv"

	"github.com/pkg/errors"
	vk "github.com/vulkan-go/vulkan"
)

// BuildConfiguration selects the default for Config.Debug. Release binaries
// are linked with
//
//	-ldflags "-X github.com/andewx/hellovk.BuildConfiguration=release"
var BuildConfiguration = "debug"

const (
	ValidationLayer    = "VK_LAYER_KHRONOS_validation"
	SwapchainExtension = "VK_KHR_swapchain"
	DebugExtension     = "VK_EXT_debug_report"

	PortabilityEnumerationExtension = "VK_KHR_portability_enumeration"
	PortabilitySubsetExtension      = "VK_KHR_portability_subset"

	DefaultWidth          = 800
	DefaultHeight         = 600
	DefaultVertexShader   = "shaders/triangle.vert.wgsl"
	DefaultFragmentShader = "shaders/triangle.frag.wgsl"
)

// instanceCreateEnumeratePortability is VK_INSTANCE_CREATE_ENUMERATE_PORTABILITY_BIT_KHR,
// which the binding predates.
const instanceCreateEnumeratePortability = vk.InstanceCreateFlags(0x00000001)

// Environment overrides read by ConfigFromEnv.
const (
	EnvDebug          = "HELLOVK_DEBUG"
	EnvVertexShader   = "HELLOVK_VERTEX_SHADER"
	EnvFragmentShader = "HELLOVK_FRAGMENT_SHADER"
)

// Config is resolved once at startup and passed down explicitly.
type Config struct {
	AppName string
	Width   uint32
	Height  uint32

	// Debug enables the validation layers and the diagnostic callback.
	Debug            bool
	ValidationLayers []string
	DeviceExtensions []string
	// MirrorDeviceLayers also passes ValidationLayers at device creation, for
	// loaders that still read the per-device layer list.
	MirrorDeviceLayers bool

	VertexShader   string
	FragmentShader string

	// FenceTimeout bounds the per-frame fence wait in nanoseconds.
	// vk.MaxUint64 waits forever.
	FenceTimeout uint64
}

func DefaultConfig() Config {
	debug := BuildConfiguration != "release"
	return Config{
		AppName:            "Hello Triangle",
		Width:              DefaultWidth,
		Height:             DefaultHeight,
		Debug:              debug,
		ValidationLayers:   []string{ValidationLayer},
		DeviceExtensions:   []string{SwapchainExtension},
		MirrorDeviceLayers: debug,
		VertexShader:       DefaultVertexShader,
		FragmentShader:     DefaultFragmentShader,
		FenceTimeout:       vk.MaxUint64,
	}
}

// ConfigFromEnv applies environment overrides on top of base.
func ConfigFromEnv(base Config) (Config, error) {
	cfg := base
	if v, ok := os.LookupEnv(EnvDebug); ok {
		debug, err := strconv.ParseBool(v)
		if err != nil {
			return base, errors.Wrapf(err, "parse %s", EnvDebug)
		}
		cfg.Debug = debug
		cfg.MirrorDeviceLayers = debug
	}
	if v, ok := os.LookupEnv(EnvVertexShader); ok {
		cfg.VertexShader = v
	}
	if v, ok := os.LookupEnv(EnvFragmentShader); ok {
		cfg.FragmentShader = v
	}
	return cfg, cfg.Validate()
}

func (c Config) Validate() error {
	if c.Width == 0 || c.Height == 0 {
		return errors.Errorf("invalid window size %dx%d", c.Width, c.Height)
	}
	if c.VertexShader == "" || c.FragmentShader == "" {
		return errors.New("shader paths must not be empty")
	}
	if !Supports(c.DeviceExtensions, []string{SwapchainExtension}) {
		return errors.Errorf("device extensions must include %s", SwapchainExtension)
	}
	return nil
}

// Mode names the configuration the binary is running.
func (c Config) Mode() string {
	if c.Debug {
		return "debug"
	}
	return "release"
}
