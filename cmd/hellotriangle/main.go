// Command hellotriangle opens a window and draws a single triangle with
// Vulkan until the window is closed.
package main

import (
	"fmt"
	"os"
	"runtime"

	"github.com/pkg/errors"
	"github.com/xlab/closer"
	"golang.org/x/exp/slog"

	"github.com/andewx/hellovk"
	"github.com/andewx/hellovk/display"
)

func init() {
	// GLFW and the presentation engine must be driven from the main thread.
	runtime.LockOSThread()
}

func main() {
	defer closer.Close()
	closer.Checked(run, true)
}

func run() error {
	cfg, err := hellovk.ConfigFromEnv(hellovk.DefaultConfig())
	if err != nil {
		return errors.Wrap(err, "configuration")
	}
	fmt.Printf("hellotriangle: running %s configuration\n", cfg.Mode())

	level := slog.LevelInfo
	if cfg.Debug {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	opts := hellovk.Options{Logger: logger}
	if cfg.VertexShader != hellovk.DefaultVertexShader || cfg.FragmentShader != hellovk.DefaultFragmentShader {
		opts.Shaders = hellovk.OSShaderSource{}
	}

	if err := display.Init(); err != nil {
		return err
	}
	var (
		window   *display.Display
		renderer *hellovk.Renderer
	)
	// Exit signals only ask the window to close; the loop notices on its next
	// iteration and the deferred finish tears down on this thread.
	stop := newShutdown()
	closer.Bind(stop.request)
	defer stop.finish(func() {
		if renderer != nil {
			renderer.Destroy()
		}
		if window != nil {
			window.Destroy()
		}
		display.Terminate()
	})

	if window, err = display.New(int(cfg.Width), int(cfg.Height), "Vulkan"); err != nil {
		return err
	}
	stop.attach(window)
	if renderer, err = hellovk.NewRenderer(hellovk.VulkanDriver{}, window, cfg, opts); err != nil {
		return err
	}
	return renderer.Run()
}
