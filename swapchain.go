package hellovk

import (
	"github.com/pkg/errors"
	vk "github.com/vulkan-go/vulkan"
	"golang.org/x/exp/slog"
)

// SurfaceSupport is what a (physical device, surface) pair offers for
// presentation.
type SurfaceSupport struct {
	Capabilities vk.SurfaceCapabilities
	Formats      []vk.SurfaceFormat
	PresentModes []vk.PresentMode
}

// Adequate is false when the pair cannot back a swapchain at all.
func (s SurfaceSupport) Adequate() bool {
	return len(s.Formats) > 0 && len(s.PresentModes) > 0
}

func QuerySurfaceSupport(driver Driver, gpu vk.PhysicalDevice, surface vk.Surface) (SurfaceSupport, error) {
	var support SurfaceSupport
	var err error
	if support.Capabilities, err = driver.SurfaceCapabilities(gpu, surface); err != nil {
		return support, errors.Wrap(err, "query surface capabilities")
	}
	if support.Formats, err = driver.SurfaceFormats(gpu, surface); err != nil {
		return support, errors.Wrap(err, "query surface formats")
	}
	if support.PresentModes, err = driver.SurfacePresentModes(gpu, surface); err != nil {
		return support, errors.Wrap(err, "query present modes")
	}
	return support, nil
}

// ChooseSurfaceFormat prefers 8-bit BGRA in the sRGB non-linear colour space
// and otherwise takes the first format offered.
func ChooseSurfaceFormat(available []vk.SurfaceFormat) vk.SurfaceFormat {
	for _, format := range available {
		if format.Format == vk.FormatB8g8r8a8Srgb && format.ColorSpace == vk.ColorSpaceSrgbNonlinear {
			return format
		}
	}
	if len(available) == 0 {
		return vk.SurfaceFormat{}
	}
	return available[0]
}

// ChoosePresentMode prefers mailbox. FIFO is always available.
func ChoosePresentMode(available []vk.PresentMode) vk.PresentMode {
	for _, mode := range available {
		if mode == vk.PresentModeMailbox {
			return mode
		}
	}
	return vk.PresentModeFifo
}

// ChooseExtent uses the surface's current extent when it is defined. A width
// of MaxUint32 means the window manager lets the swapchain decide, in which
// case the framebuffer size is clamped into the supported range.
func ChooseExtent(caps vk.SurfaceCapabilities, framebufferWidth, framebufferHeight int) vk.Extent2D {
	if caps.CurrentExtent.Width != vk.MaxUint32 {
		return caps.CurrentExtent
	}
	return vk.Extent2D{
		Width:  clamp(nonNegative(framebufferWidth), caps.MinImageExtent.Width, caps.MaxImageExtent.Width),
		Height: clamp(nonNegative(framebufferHeight), caps.MinImageExtent.Height, caps.MaxImageExtent.Height),
	}
}

func nonNegative(v int) uint32 {
	if v < 0 {
		return 0
	}
	return uint32(v)
}

// ImageCount asks for one image more than the minimum so the application does
// not wait on the driver. A MaxImageCount of zero means there is no upper bound.
func ImageCount(caps vk.SurfaceCapabilities) uint32 {
	count := caps.MinImageCount + 1
	if caps.MaxImageCount > 0 && count > caps.MaxImageCount {
		count = caps.MaxImageCount
	}
	return count
}

// SharingMode shares swapchain images between the graphics and present
// families when they differ, which avoids explicit ownership transfers.
func SharingMode(indices QueueFamilyIndices) (vk.SharingMode, []uint32) {
	if indices.Separate() {
		return vk.SharingModeConcurrent, []uint32{indices.Graphics, indices.Present}
	}
	return vk.SharingModeExclusive, nil
}

// Swapchain is the ring of presentable images and one colour view per image.
type Swapchain struct {
	driver Driver
	device vk.Device

	Handle      vk.Swapchain
	Format      vk.SurfaceFormat
	PresentMode vk.PresentMode
	Extent      vk.Extent2D
	Images      []vk.Image
	Views       []vk.ImageView

	release releaseStack
}

// NewSwapchain re-queries the surface, builds the swapchain from the chosen
// parameters and creates the image views.
func NewSwapchain(ctx *DeviceContext, window Window) (sc *Swapchain, err error) {
	s := &Swapchain{
		driver: ctx.driver,
		device: ctx.device,
	}
	defer func() {
		if err != nil {
			s.release.release()
		}
	}()

	support, err := QuerySurfaceSupport(ctx.driver, ctx.gpu, ctx.surface)
	if err != nil {
		return nil, err
	}
	if !support.Adequate() {
		return nil, errors.New("surface offers no formats or present modes")
	}

	caps := support.Capabilities
	width, height := window.FramebufferSize()
	s.Format = ChooseSurfaceFormat(support.Formats)
	s.PresentMode = ChoosePresentMode(support.PresentModes)
	s.Extent = ChooseExtent(caps, width, height)
	sharing, families := SharingMode(ctx.queues)

	handle, err := ctx.driver.CreateSwapchain(ctx.device, &vk.SwapchainCreateInfo{
		SType:                 vk.StructureTypeSwapchainCreateInfo,
		Surface:               ctx.surface,
		MinImageCount:         ImageCount(caps),
		ImageFormat:           s.Format.Format,
		ImageColorSpace:       s.Format.ColorSpace,
		ImageExtent:           s.Extent,
		ImageArrayLayers:      1,
		ImageUsage:            vk.ImageUsageFlags(vk.ImageUsageColorAttachmentBit),
		ImageSharingMode:      sharing,
		QueueFamilyIndexCount: uint32(len(families)),
		PQueueFamilyIndices:   families,
		PreTransform:          caps.CurrentTransform,
		CompositeAlpha:        vk.CompositeAlphaOpaqueBit,
		PresentMode:           s.PresentMode,
		Clipped:               vk.True,
		OldSwapchain:          vk.NullSwapchain,
	})
	if err != nil {
		return nil, errors.Wrap(err, "create swapchain")
	}
	s.Handle = handle
	s.release.push(func() { s.driver.DestroySwapchain(s.device, handle) })

	// The driver may hand back more images than requested.
	if s.Images, err = ctx.driver.SwapchainImages(ctx.device, handle); err != nil {
		return nil, errors.Wrap(err, "get swapchain images")
	}
	if err = s.createImageViews(); err != nil {
		return nil, err
	}

	ctx.log.Info("swapchain created",
		slog.Int("format", int(s.Format.Format)),
		slog.Int("presentMode", int(s.PresentMode)),
		slog.Any("extent", [2]uint32{s.Extent.Width, s.Extent.Height}),
		slog.Int("images", len(s.Images)))
	return s, nil
}

func (s *Swapchain) createImageViews() error {
	s.Views = make([]vk.ImageView, 0, len(s.Images))
	for _, image := range s.Images {
		view, err := s.driver.CreateImageView(s.device, &vk.ImageViewCreateInfo{
			SType:    vk.StructureTypeImageViewCreateInfo,
			Image:    image,
			ViewType: vk.ImageViewType2d,
			Format:   s.Format.Format,
			Components: vk.ComponentMapping{
				R: vk.ComponentSwizzleIdentity,
				G: vk.ComponentSwizzleIdentity,
				B: vk.ComponentSwizzleIdentity,
				A: vk.ComponentSwizzleIdentity,
			},
			SubresourceRange: vk.ImageSubresourceRange{
				AspectMask:     vk.ImageAspectFlags(vk.ImageAspectColorBit),
				BaseMipLevel:   0,
				LevelCount:     1,
				BaseArrayLayer: 0,
				LayerCount:     1,
			},
		})
		if err != nil {
			return errors.Wrap(err, "create image view")
		}
		s.Views = append(s.Views, view)
		s.release.push(func() { s.driver.DestroyImageView(s.device, view) })
	}
	return nil
}

// Viewport covers the whole extent with the full depth range.
func (s *Swapchain) Viewport() vk.Viewport {
	return vk.Viewport{
		X:        0,
		Y:        0,
		Width:    float32(s.Extent.Width),
		Height:   float32(s.Extent.Height),
		MinDepth: 0,
		MaxDepth: 1,
	}
}

func (s *Swapchain) Scissor() vk.Rect2D {
	return vk.Rect2D{
		Offset: vk.Offset2D{X: 0, Y: 0},
		Extent: s.Extent,
	}
}

// Destroy releases the image views and then the swapchain. The images belong
// to the swapchain.
func (s *Swapchain) Destroy() {
	s.release.release()
	s.Views = nil
	s.Images = nil
	s.Handle = vk.NullSwapchain
}
