package hellovk

import (
	"reflect"
	"testing"
	"testing/quick"

	"github.com/pkg/errors"
)

func TestMissingKeepsRequestOrder(t *testing.T) {
	available := []string{"VK_KHR_surface\x00", "VK_KHR_xcb_surface"}
	requested := []string{"VK_EXT_debug_report", "VK_KHR_surface", "VK_KHR_wayland_surface", "VK_EXT_debug_report"}

	got := Missing(available, requested)
	want := []string{"VK_EXT_debug_report", "VK_KHR_wayland_surface"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("Missing() = %v, want %v", got, want)
	}
}

func TestSupportsEmptyRequest(t *testing.T) {
	if !Supports(nil, nil) {
		t.Fatal("an empty request is always supported")
	}
	if Supports(nil, []string{ValidationLayer}) {
		t.Fatal("nothing is supported by an empty list")
	}
}

func TestSupportsIsSubset(t *testing.T) {
	names := []string{"a", "b", "c", "d", "e", "f"}
	pick := func(mask uint8) []string {
		var out []string
		for i, name := range names {
			if mask&(1<<uint(i)) != 0 {
				out = append(out, name)
			}
		}
		return out
	}
	subset := func(availableMask, requestedMask uint8) bool {
		want := requestedMask&^availableMask&0x3f == 0
		return Supports(pick(availableMask), pick(requestedMask)) == want
	}
	if err := quick.Check(subset, nil); err != nil {
		t.Error(err)
	}
}

func TestProberReportsMissingLayer(t *testing.T) {
	driver := newFakeDriver()
	driver.layers = []string{"VK_LAYER_LUNARG_api_dump"}
	prober := CapabilityProber{Driver: driver, Logger: testOptions().Logger}

	ok, err := prober.SupportsLayers([]string{ValidationLayer})
	if err != nil {
		t.Fatal(err)
	}
	if ok {
		t.Fatal("validation layer reported as available")
	}
}

func TestProberWrapsEnumerationFailure(t *testing.T) {
	driver := newFakeDriver()
	cause := errors.New("loader missing")
	driver.fail["enumerateInstanceExtensions"] = cause
	prober := CapabilityProber{Driver: driver}

	_, err := prober.SupportsInstanceExtensions([]string{"VK_KHR_surface"})
	if !errors.Is(err, cause) {
		t.Fatalf("got %v, want wrapped %v", err, cause)
	}
}
