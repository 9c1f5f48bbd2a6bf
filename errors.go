package hellovk

import (
	"fmt"

	"github.com/pkg/errors"
	vk "github.com/vulkan-go/vulkan"
)

// Fatal configuration conditions. Startup aborts on any of them.
var (
	ErrLayersUnavailable     = errors.New("validation layers requested, but not available")
	ErrExtensionsUnavailable = errors.New("required extensions not available")
	ErrNoPhysicalDevices     = errors.New("failed to find GPUs with Vulkan support")
	ErrNoSuitableDevice      = errors.New("failed to find a suitable GPU")
	ErrShaderUnavailable     = errors.New("shader asset not found or unreadable")
)

func isError(ret vk.Result) bool {
	return ret != vk.Success
}

// newError converts a failing result into an error carrying a stack trace.
// Success maps to nil.
func newError(ret vk.Result) error {
	if ret == vk.Success {
		return nil
	}
	if err := vk.Error(ret); err != nil {
		return errors.WithStack(err)
	}
	return errors.Errorf("vulkan error: result %d", ret)
}

// checkResult wraps a failing result with the name of the call that produced it.
func checkResult(ret vk.Result, op string) error {
	if err := newError(ret); err != nil {
		return errors.Wrap(err, op)
	}
	return nil
}

func orPanic(err error) {
	if err != nil {
		panic(err)
	}
}

func checkErr(err *error) {
	if v := recover(); v != nil {
		if e, ok := v.(error); ok {
			*err = e
			return
		}
		*err = fmt.Errorf("%+v", v)
	}
}
