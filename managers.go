package hellovk

import (
	"github.com/pkg/errors"
	vk "github.com/vulkan-go/vulkan"
)

// FrameSync owns the synchronization objects of the single in-flight frame:
// one command pool with one primary buffer, the image-available and
// render-finished semaphores, and the in-flight fence.
//
// The fence is created signaled so the first frame does not wait on work that
// was never submitted. FrameSync is not thread-safe; it belongs to the render
// loop thread.
type FrameSync struct {
	driver  Driver
	device  vk.Device
	timeout uint64

	Pool           vk.CommandPool
	CommandBuffer  vk.CommandBuffer
	ImageAvailable vk.Semaphore
	RenderFinished vk.Semaphore
	InFlight       vk.Fence

	// signalPending is false between a fence reset and the submission that
	// signals it again.
	signalPending bool
	release       releaseStack
}

func NewFrameSync(ctx *DeviceContext) (sync *FrameSync, err error) {
	s := &FrameSync{
		driver:  ctx.driver,
		device:  ctx.device,
		timeout: ctx.cfg.FenceTimeout,
	}
	defer func() {
		if err != nil {
			s.release.release()
		}
	}()

	if s.Pool, err = newCommandPool(s.driver, s.device, ctx.queues.Graphics); err != nil {
		return nil, err
	}
	pool := s.Pool
	s.release.push(func() { s.driver.DestroyCommandPool(s.device, pool) })

	// Freed together with the pool.
	if s.CommandBuffer, err = s.driver.AllocateCommandBuffer(s.device, s.Pool); err != nil {
		return nil, errors.Wrap(err, "allocate command buffer")
	}

	if s.ImageAvailable, err = s.driver.CreateSemaphore(s.device); err != nil {
		return nil, errors.Wrap(err, "create image-available semaphore")
	}
	imageAvailable := s.ImageAvailable
	s.release.push(func() { s.driver.DestroySemaphore(s.device, imageAvailable) })

	if s.RenderFinished, err = s.driver.CreateSemaphore(s.device); err != nil {
		return nil, errors.Wrap(err, "create render-finished semaphore")
	}
	renderFinished := s.RenderFinished
	s.release.push(func() { s.driver.DestroySemaphore(s.device, renderFinished) })

	if s.InFlight, err = s.driver.CreateFence(s.device, true); err != nil {
		return nil, errors.Wrap(err, "create in-flight fence")
	}
	fence := s.InFlight
	s.signalPending = true
	s.release.push(func() { s.driver.DestroyFence(s.device, fence) })

	return s, nil
}

// Wait blocks until the work guarded by the in-flight fence has finished. A
// fence that was reset but never resubmitted cannot signal, so it is not
// waited on.
func (s *FrameSync) Wait() error {
	if !s.signalPending {
		return nil
	}
	return errors.Wrap(s.driver.WaitForFence(s.device, s.InFlight, s.timeout), "wait for in-flight fence")
}

func (s *FrameSync) Reset() error {
	if err := s.driver.ResetFence(s.device, s.InFlight); err != nil {
		return errors.Wrap(err, "reset in-flight fence")
	}
	s.signalPending = false
	return nil
}

// submitted records that the fence was handed to a queue submission.
func (s *FrameSync) submitted() {
	s.signalPending = true
}

// Destroy waits for the last submission to retire before releasing the
// objects it references.
func (s *FrameSync) Destroy() {
	if s.release.len() == 0 {
		return
	}
	// A failed wait means the device is lost; release anyway.
	_ = s.Wait()
	s.release.release()
	s.CommandBuffer = nil
}
