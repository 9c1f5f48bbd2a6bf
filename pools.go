package hellovk

import (
	"github.com/pkg/errors"
	vk "github.com/vulkan-go/vulkan"
)

// releaseStack collects destructors as objects are created and runs them in
// reverse order. It is the only teardown path, so a half-built object graph
// unwinds exactly like a complete one.
type releaseStack struct {
	fns []func()
}

func (s *releaseStack) push(fn func()) {
	s.fns = append(s.fns, fn)
}

// release runs every pending destructor, newest first. Calling it again is a
// no-op.
func (s *releaseStack) release() {
	for i := len(s.fns) - 1; i >= 0; i-- {
		s.fns[i]()
	}
	s.fns = nil
}

func (s *releaseStack) len() int {
	return len(s.fns)
}

// Creates a command pool whose buffers may be reset individually, as the frame loop
// re-records its single buffer every iteration
func newCommandPool(driver Driver, device vk.Device, familyIndex uint32) (vk.CommandPool, error) {
	pool, err := driver.CreateCommandPool(device, &vk.CommandPoolCreateInfo{
		SType:            vk.StructureTypeCommandPoolCreateInfo,
		QueueFamilyIndex: familyIndex,
		Flags:            vk.CommandPoolCreateFlags(vk.CommandPoolCreateResetCommandBufferBit),
	})
	if err != nil {
		return vk.NullCommandPool, errors.Wrap(err, "create command pool")
	}
	return pool, nil
}
