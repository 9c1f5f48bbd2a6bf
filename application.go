package hellovk

import (
	vk "github.com/vulkan-go/vulkan"
	"golang.org/x/exp/slog"
)

// Window is the windowing collaborator. It is polled from the render loop
// thread only.
type Window interface {
	// RequiredInstanceExtensions lists the platform extensions needed to
	// create a presentable surface.
	RequiredInstanceExtensions() []string
	CreateSurface(instance vk.Instance) (vk.Surface, error)
	ShouldClose() bool
	// FramebufferSize is in pixels, which may differ from window coordinates.
	FramebufferSize() (width, height int)
	PollEvents()
}

// Options carries the optional collaborators. Zero values select the
// defaults: slog.Default, a TerminalSink on stdout and DefaultShaders.
//
// Sink is registered for as long as its DeviceContext lives. Debug reports
// carry no instance of origin here, so when several contexts are alive each
// registered sink receives the reports of all of them.
type Options struct {
	Logger  *slog.Logger
	Sink    DiagnosticSink
	Shaders ShaderSource
}

func (o Options) withDefaults() Options {
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	if o.Sink == nil {
		o.Sink = NewTerminalSink(nil)
	}
	if o.Shaders == nil {
		o.Shaders = DefaultShaders
	}
	return o
}

var (
	DefaultVulkanAppVersion = vk.MakeVersion(1, 0, 0)
	DefaultVulkanAPIVersion = vk.MakeVersion(1, 0, 0)
)
