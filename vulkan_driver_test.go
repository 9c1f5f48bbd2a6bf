package hellovk

import (
	"reflect"
	"strings"
	"testing"

	vk "github.com/vulkan-go/vulkan"
)

func TestChainDebugInfo(t *testing.T) {
	info := debugReportCallback()
	next := chainDebugInfo(info)
	defer info.Free()

	if next == nil {
		t.Fatal("debug create-info was not marshalled for PNext")
	}
	// sType leads every Vulkan create-info.
	if sType := *(*int32)(next); sType != int32(vk.StructureTypeDebugReportCallbackCreateInfo) {
		t.Fatalf("chained sType = %d, want %d", sType, vk.StructureTypeDebugReportCallbackCreateInfo)
	}
}

func TestEnumerateNames(t *testing.T) {
	available := []string{"VK_KHR_surface", "VK_KHR_xcb_surface", "VK_EXT_debug_report"}
	calls := 0
	call := func(count *uint32, list []string) vk.Result {
		calls++
		if list == nil {
			*count = uint32(len(available))
			return vk.Success
		}
		*count = uint32(copy(list, available))
		return vk.Success
	}

	names, err := enumerateNames("enumerate", call, func(s string) string { return s })
	if err != nil {
		t.Fatal(err)
	}
	if calls != 2 || !reflect.DeepEqual(names, available) {
		t.Fatalf("got %v after %d calls", names, calls)
	}
}

func TestEnumerateNamesFailure(t *testing.T) {
	call := func(count *uint32, list []string) vk.Result {
		return vk.ErrorInitializationFailed
	}

	names, err := enumerateNames("vkEnumerateInstanceLayerProperties", call, func(s string) string { return s })
	if err == nil || names != nil {
		t.Fatalf("got %v, %v; want an error", names, err)
	}
	if !strings.Contains(err.Error(), "vkEnumerateInstanceLayerProperties") {
		t.Fatalf("error %q does not name the failing call", err)
	}
}
