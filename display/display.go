// Package display is the GLFW window behind the renderer. Every function must
// be called from the thread that called Init, normally the locked main thread.
package display

import (
	"github.com/go-gl/glfw/v3.3/glfw"
	"github.com/pkg/errors"
	vk "github.com/vulkan-go/vulkan"

	"github.com/andewx/hellovk"
)

// Init starts GLFW and points the Vulkan loader at GLFW's
// vkGetInstanceProcAddr.
func Init() error {
	if err := glfw.Init(); err != nil {
		return errors.Wrap(err, "init glfw")
	}
	if !glfw.VulkanSupported() {
		glfw.Terminate()
		return errors.New("glfw: vulkan loader not found")
	}
	vk.SetGetInstanceProcAddr(glfw.GetVulkanGetInstanceProcAddress())
	if err := vk.Init(); err != nil {
		glfw.Terminate()
		return errors.Wrap(err, "init vulkan loader")
	}
	return nil
}

func Terminate() {
	glfw.Terminate()
}

// Display is a fixed-size window with no client API context.
type Display struct {
	window *glfw.Window
}

var _ hellovk.Window = (*Display)(nil)

// New opens a non-resizable window of width x height pixels.
func New(width, height int, title string) (*Display, error) {
	glfw.WindowHint(glfw.ClientAPI, glfw.NoAPI)
	glfw.WindowHint(glfw.Resizable, glfw.False)
	window, err := glfw.CreateWindow(width, height, title, nil, nil)
	if err != nil {
		return nil, errors.Wrap(err, "create window")
	}
	return &Display{window: window}, nil
}

func (d *Display) RequiredInstanceExtensions() []string {
	return d.window.GetRequiredInstanceExtensions()
}

func (d *Display) CreateSurface(instance vk.Instance) (vk.Surface, error) {
	ptr, err := d.window.CreateWindowSurface(instance, nil)
	if err != nil {
		return vk.NullSurface, errors.Wrap(err, "create window surface")
	}
	return vk.SurfaceFromPointer(ptr), nil
}

func (d *Display) ShouldClose() bool {
	return d.window.ShouldClose()
}

// RequestClose marks the window for closing. GLFW allows it from any
// thread, so it is safe from a signal handler.
func (d *Display) RequestClose() {
	d.window.SetShouldClose(true)
}

func (d *Display) FramebufferSize() (int, int) {
	return d.window.GetFramebufferSize()
}

func (d *Display) PollEvents() {
	glfw.PollEvents()
}

func (d *Display) Destroy() {
	if d.window != nil {
		d.window.Destroy()
		d.window = nil
	}
}
