package hellovk

import (
	"github.com/pkg/errors"
	vk "github.com/vulkan-go/vulkan"
	"golang.org/x/exp/slog"
)

// FrameExecutor records and submits one frame at a time. Each DrawFrame waits
// for the previous frame's fence, so at most one frame is in flight.
//
// Out-of-date and suboptimal swapchains are not recreated: a suboptimal
// acquire still renders, an out-of-date acquire stops the loop with an error,
// and present only warns.
type FrameExecutor struct {
	driver    Driver
	device    vk.Device
	log       *slog.Logger
	graphics  vk.Queue
	present   vk.Queue
	swapchain *Swapchain
	pipeline  *PipelineState
	targets   *FramebufferSet
	sync      *FrameSync

	frames     uint64
	warnedOnce map[vk.Result]bool
}

func NewFrameExecutor(ctx *DeviceContext, swapchain *Swapchain, pipeline *PipelineState,
	targets *FramebufferSet, sync *FrameSync) *FrameExecutor {

	return &FrameExecutor{
		driver:     ctx.driver,
		device:     ctx.device,
		log:        ctx.log,
		graphics:   ctx.graphicsQueue,
		present:    ctx.presentQueue,
		swapchain:  swapchain,
		pipeline:   pipeline,
		targets:    targets,
		sync:       sync,
		warnedOnce: make(map[vk.Result]bool),
	}
}

// Frames reports how many frames were fully submitted and presented.
func (e *FrameExecutor) Frames() uint64 {
	return e.frames
}

// DrawFrame runs wait fence, reset fence, acquire, record, submit and present.
func (e *FrameExecutor) DrawFrame() error {
	if err := e.sync.Wait(); err != nil {
		return err
	}
	if err := e.sync.Reset(); err != nil {
		return err
	}

	imageIndex, ret := e.driver.AcquireNextImage(e.device, e.swapchain.Handle, vk.MaxUint64, e.sync.ImageAvailable)
	switch ret {
	case vk.Success:
	case vk.Suboptimal:
		e.warnOnce(ret, "swapchain suboptimal on acquire")
	default:
		return checkResult(ret, "vkAcquireNextImageKHR")
	}

	if err := e.record(imageIndex); err != nil {
		return err
	}

	// Only colour output waits for the image; vertex work can start early.
	err := e.driver.QueueSubmit(e.graphics, vk.SubmitInfo{
		SType:              vk.StructureTypeSubmitInfo,
		WaitSemaphoreCount: 1,
		PWaitSemaphores:    []vk.Semaphore{e.sync.ImageAvailable},
		PWaitDstStageMask: []vk.PipelineStageFlags{
			vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit),
		},
		CommandBufferCount:   1,
		PCommandBuffers:      []vk.CommandBuffer{e.sync.CommandBuffer},
		SignalSemaphoreCount: 1,
		PSignalSemaphores:    []vk.Semaphore{e.sync.RenderFinished},
	}, e.sync.InFlight)
	if err != nil {
		return errors.Wrap(err, "submit draw command buffer")
	}
	e.sync.submitted()

	ret = e.driver.QueuePresent(e.present, &vk.PresentInfo{
		SType:              vk.StructureTypePresentInfo,
		WaitSemaphoreCount: 1,
		PWaitSemaphores:    []vk.Semaphore{e.sync.RenderFinished},
		SwapchainCount:     1,
		PSwapchains:        []vk.Swapchain{e.swapchain.Handle},
		PImageIndices:      []uint32{imageIndex},
	})
	switch ret {
	case vk.Success:
	case vk.Suboptimal, vk.ErrorOutOfDate:
		e.warnOnce(ret, "swapchain no longer matches the surface on present")
	default:
		return checkResult(ret, "vkQueuePresentKHR")
	}

	e.frames++
	return nil
}

func (e *FrameExecutor) record(imageIndex uint32) error {
	if int(imageIndex) >= len(e.targets.Framebuffers) {
		return errors.Errorf("acquired image %d out of range (%d framebuffers)", imageIndex, len(e.targets.Framebuffers))
	}
	cmd := e.sync.CommandBuffer
	if err := e.driver.ResetCommandBuffer(cmd); err != nil {
		return errors.Wrap(err, "reset command buffer")
	}
	if err := e.driver.BeginCommandBuffer(cmd); err != nil {
		return errors.Wrap(err, "begin command buffer")
	}

	clearValues := []vk.ClearValue{
		vk.NewClearValue([]float32{0, 0, 0, 1}),
	}
	e.driver.CmdBeginRenderPass(cmd, &vk.RenderPassBeginInfo{
		SType:           vk.StructureTypeRenderPassBeginInfo,
		RenderPass:      e.pipeline.RenderPass,
		Framebuffer:     e.targets.Framebuffers[imageIndex],
		RenderArea:      e.swapchain.Scissor(),
		ClearValueCount: uint32(len(clearValues)),
		PClearValues:    clearValues,
	})
	e.driver.CmdBindPipeline(cmd, e.pipeline.Pipeline)
	e.driver.CmdSetViewport(cmd, e.swapchain.Viewport())
	e.driver.CmdSetScissor(cmd, e.swapchain.Scissor())
	e.driver.CmdDraw(cmd, 3, 1, 0, 0)
	e.driver.CmdEndRenderPass(cmd)

	if err := e.driver.EndCommandBuffer(cmd); err != nil {
		return errors.Wrap(err, "record command buffer")
	}
	return nil
}

func (e *FrameExecutor) warnOnce(ret vk.Result, msg string) {
	if e.warnedOnce[ret] {
		return
	}
	e.warnedOnce[ret] = true
	e.log.Warn(msg, "result", int(ret))
}

// Run draws frames until the window asks to close, pumping window events once
// per iteration. It always waits for the device to go idle before returning.
func (e *FrameExecutor) Run(window Window) error {
	var err error
	for !window.ShouldClose() {
		window.PollEvents()
		if err = e.DrawFrame(); err != nil {
			break
		}
	}
	if idleErr := e.driver.DeviceWaitIdle(e.device); idleErr != nil && err == nil {
		err = errors.Wrap(idleErr, "wait for device idle")
	}
	return err
}
