package hellovk

import (
	"github.com/pkg/errors"
	"golang.org/x/exp/slog"
)

// Renderer is the application root. It owns every object of the triangle
// renderer and tears them down in reverse creation order:
//
//	DeviceContext -> Swapchain -> PipelineState -> FramebufferSet -> FrameSync
type Renderer struct {
	log    *slog.Logger
	window Window

	ctx       *DeviceContext
	swapchain *Swapchain
	pipeline  *PipelineState
	targets   *FramebufferSet
	sync      *FrameSync
	executor  *FrameExecutor

	release releaseStack
}

// NewRenderer validates cfg and builds the whole object graph. On failure
// every object created so far is destroyed before the error is returned.
func NewRenderer(driver Driver, window Window, cfg Config, opts Options) (renderer *Renderer, err error) {
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid configuration")
	}
	opts = opts.withDefaults()
	r := &Renderer{
		log:    opts.Logger,
		window: window,
	}
	defer func() {
		if err != nil {
			r.release.release()
		}
	}()

	if r.ctx, err = NewDeviceContext(driver, window, cfg, opts); err != nil {
		return nil, err
	}
	r.release.push(r.ctx.Destroy)

	if r.swapchain, err = NewSwapchain(r.ctx, window); err != nil {
		return nil, err
	}
	r.release.push(r.swapchain.Destroy)

	if r.pipeline, err = NewPipelineState(r.ctx, r.swapchain.Format.Format, opts.Shaders); err != nil {
		return nil, err
	}
	r.release.push(r.pipeline.Destroy)

	if r.targets, err = NewFramebufferSet(r.ctx, r.swapchain, r.pipeline); err != nil {
		return nil, err
	}
	r.release.push(r.targets.Destroy)

	if r.sync, err = NewFrameSync(r.ctx); err != nil {
		return nil, err
	}
	r.release.push(r.sync.Destroy)

	r.executor = NewFrameExecutor(r.ctx, r.swapchain, r.pipeline, r.targets, r.sync)
	r.log.Info("renderer ready", "mode", cfg.Mode(), "device", r.ctx.DeviceName())
	return r, nil
}

func (r *Renderer) Context() *DeviceContext       { return r.ctx }
func (r *Renderer) Swapchain() *Swapchain         { return r.swapchain }
func (r *Renderer) Pipeline() *PipelineState      { return r.pipeline }
func (r *Renderer) Framebuffers() *FramebufferSet { return r.targets }
func (r *Renderer) FrameSync() *FrameSync         { return r.sync }
func (r *Renderer) Executor() *FrameExecutor      { return r.executor }

// Run drives the frame loop until the window closes.
func (r *Renderer) Run() error {
	err := r.executor.Run(r.window)
	r.log.Info("render loop finished", "frames", r.executor.Frames())
	return err
}

// Destroy waits for the device to go idle and releases everything. It is safe
// to call more than once.
func (r *Renderer) Destroy() {
	if r.release.len() == 0 {
		return
	}
	if err := r.ctx.WaitIdle(); err != nil {
		r.log.Error("wait for device idle before teardown", "err", err)
	}
	r.release.release()
}
