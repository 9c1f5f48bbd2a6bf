package hellovk

import (
	"github.com/pkg/errors"
	vk "github.com/vulkan-go/vulkan"
)

// PipelineBuilder holds the fixed-function state of the triangle pipeline.
// Viewport and scissor are dynamic so the pipeline survives extent changes.
type PipelineBuilder struct {
	shaderStages         []vk.PipelineShaderStageCreateInfo
	vertexInputInfo      vk.PipelineVertexInputStateCreateInfo
	inputAssembly        vk.PipelineInputAssemblyStateCreateInfo
	rasterizer           vk.PipelineRasterizationStateCreateInfo
	colorBlendAttachment vk.PipelineColorBlendAttachmentState
	multisampling        vk.PipelineMultisampleStateCreateInfo
	dynamicStates        []vk.DynamicState
}

// Default triangle pipeline: no vertex input, filled, back faces culled, no blending
func NewPipelineBuilder(vertex, fragment vk.ShaderModule, vertexEntry, fragmentEntry string) *PipelineBuilder {
	pb := PipelineBuilder{}

	pb.shaderStages = []vk.PipelineShaderStageCreateInfo{
		{
			SType:  vk.StructureTypePipelineShaderStageCreateInfo,
			Stage:  vk.ShaderStageVertexBit,
			Module: vertex,
			PName:  safeString(vertexEntry),
		},
		{
			SType:  vk.StructureTypePipelineShaderStageCreateInfo,
			Stage:  vk.ShaderStageFragmentBit,
			Module: fragment,
			PName:  safeString(fragmentEntry),
		},
	}

	//Geometry comes from the vertex index alone
	pb.vertexInputInfo = vk.PipelineVertexInputStateCreateInfo{
		SType:                           vk.StructureTypePipelineVertexInputStateCreateInfo,
		VertexBindingDescriptionCount:   0,
		VertexAttributeDescriptionCount: 0,
	}

	pb.inputAssembly = vk.PipelineInputAssemblyStateCreateInfo{
		SType:                  vk.StructureTypePipelineInputAssemblyStateCreateInfo,
		Topology:               vk.PrimitiveTopologyTriangleList,
		PrimitiveRestartEnable: vk.False,
	}

	pb.rasterizer = vk.PipelineRasterizationStateCreateInfo{
		SType:                   vk.StructureTypePipelineRasterizationStateCreateInfo,
		DepthClampEnable:        vk.False,
		RasterizerDiscardEnable: vk.False,
		PolygonMode:             vk.PolygonModeFill,
		CullMode:                vk.CullModeFlags(vk.CullModeBackBit),
		FrontFace:               vk.FrontFaceClockwise,
		DepthBiasEnable:         vk.False,
		LineWidth:               1.0,
	}

	pb.multisampling = vk.PipelineMultisampleStateCreateInfo{
		SType:                vk.StructureTypePipelineMultisampleStateCreateInfo,
		SampleShadingEnable:  vk.False,
		RasterizationSamples: vk.SampleCount1Bit,
		MinSampleShading:     1.0,
	}

	pb.colorBlendAttachment = vk.PipelineColorBlendAttachmentState{
		ColorWriteMask: vk.ColorComponentFlags(vk.ColorComponentRBit | vk.ColorComponentGBit |
			vk.ColorComponentBBit | vk.ColorComponentABit),
		BlendEnable: vk.False,
	}

	pb.dynamicStates = []vk.DynamicState{vk.DynamicStateViewport, vk.DynamicStateScissor}
	return &pb
}

// CreateInfo assembles the create-info for subpass 0 of pass.
func (p *PipelineBuilder) CreateInfo(pass vk.RenderPass, layout vk.PipelineLayout) vk.GraphicsPipelineCreateInfo {
	//Counts only, the values are set per frame
	viewportState := vk.PipelineViewportStateCreateInfo{
		SType:         vk.StructureTypePipelineViewportStateCreateInfo,
		ViewportCount: 1,
		ScissorCount:  1,
	}

	blendState := vk.PipelineColorBlendStateCreateInfo{
		SType:           vk.StructureTypePipelineColorBlendStateCreateInfo,
		LogicOpEnable:   vk.False,
		LogicOp:         vk.LogicOpCopy,
		AttachmentCount: 1,
		PAttachments:    []vk.PipelineColorBlendAttachmentState{p.colorBlendAttachment},
	}

	dynamicState := vk.PipelineDynamicStateCreateInfo{
		SType:             vk.StructureTypePipelineDynamicStateCreateInfo,
		DynamicStateCount: uint32(len(p.dynamicStates)),
		PDynamicStates:    p.dynamicStates,
	}

	return vk.GraphicsPipelineCreateInfo{
		SType:               vk.StructureTypeGraphicsPipelineCreateInfo,
		StageCount:          uint32(len(p.shaderStages)),
		PStages:             p.shaderStages,
		PVertexInputState:   &p.vertexInputInfo,
		PInputAssemblyState: &p.inputAssembly,
		PViewportState:      &viewportState,
		PRasterizationState: &p.rasterizer,
		PMultisampleState:   &p.multisampling,
		PColorBlendState:    &blendState,
		PDynamicState:       &dynamicState,
		Layout:              layout,
		RenderPass:          pass,
		Subpass:             0,
		BasePipelineIndex:   -1,
	}
}

// PipelineState is the render pass, the empty pipeline layout and the
// graphics pipeline built for one swapchain format.
type PipelineState struct {
	driver Driver
	device vk.Device

	RenderPass vk.RenderPass
	Layout     vk.PipelineLayout
	Pipeline   vk.Pipeline

	release releaseStack
}

// NewPipelineState loads both shader stages through shaders and builds the
// pipeline. The shader modules only live until the pipeline exists.
func NewPipelineState(ctx *DeviceContext, format vk.Format, shaders ShaderSource) (ps *PipelineState, err error) {
	p := &PipelineState{
		driver: ctx.driver,
		device: ctx.device,
	}
	defer func() {
		if err != nil {
			p.release.release()
		}
	}()

	if p.RenderPass, err = NewRenderPass(p.driver, p.device, format); err != nil {
		return nil, err
	}
	pass := p.RenderPass
	p.release.push(func() { p.driver.DestroyRenderPass(p.device, pass) })

	vertPath, fragPath := ctx.cfg.VertexShader, ctx.cfg.FragmentShader
	vertCode, err := shaders.Load(vertPath)
	if err != nil {
		return nil, err
	}
	fragCode, err := shaders.Load(fragPath)
	if err != nil {
		return nil, err
	}

	vertModule, err := p.driver.CreateShaderModule(p.device, vertCode)
	if err != nil {
		return nil, errors.Wrapf(err, "create shader module %s", vertPath)
	}
	defer p.driver.DestroyShaderModule(p.device, vertModule)
	fragModule, err := p.driver.CreateShaderModule(p.device, fragCode)
	if err != nil {
		return nil, errors.Wrapf(err, "create shader module %s", fragPath)
	}
	defer p.driver.DestroyShaderModule(p.device, fragModule)

	p.Layout, err = p.driver.CreatePipelineLayout(p.device, &vk.PipelineLayoutCreateInfo{
		SType: vk.StructureTypePipelineLayoutCreateInfo,
	})
	if err != nil {
		return nil, errors.Wrap(err, "create pipeline layout")
	}
	layout := p.Layout
	p.release.push(func() { p.driver.DestroyPipelineLayout(p.device, layout) })

	builder := NewPipelineBuilder(vertModule, fragModule,
		entryPoint(vertPath, vk.ShaderStageVertexBit),
		entryPoint(fragPath, vk.ShaderStageFragmentBit))
	info := builder.CreateInfo(p.RenderPass, p.Layout)
	if p.Pipeline, err = p.driver.CreateGraphicsPipeline(p.device, &info); err != nil {
		return nil, errors.Wrap(err, "create graphics pipeline")
	}
	pipeline := p.Pipeline
	p.release.push(func() { p.driver.DestroyPipeline(p.device, pipeline) })

	return p, nil
}

func (p *PipelineState) Destroy() {
	p.release.release()
	p.Pipeline = vk.NullPipeline
	p.Layout = vk.NullPipelineLayout
	p.RenderPass = vk.NullRenderPass
}

// FramebufferSet holds one framebuffer per swapchain image view. It has to be
// rebuilt with the swapchain or the render pass.
type FramebufferSet struct {
	driver Driver
	device vk.Device

	Framebuffers []vk.Framebuffer

	release releaseStack
}

func NewFramebufferSet(ctx *DeviceContext, swapchain *Swapchain, pipeline *PipelineState) (set *FramebufferSet, err error) {
	f := &FramebufferSet{
		driver:       ctx.driver,
		device:       ctx.device,
		Framebuffers: make([]vk.Framebuffer, 0, len(swapchain.Views)),
	}
	defer func() {
		if err != nil {
			f.release.release()
		}
	}()

	for _, view := range swapchain.Views {
		attachments := []vk.ImageView{view}
		framebuffer, err := f.driver.CreateFramebuffer(f.device, &vk.FramebufferCreateInfo{
			SType:           vk.StructureTypeFramebufferCreateInfo,
			RenderPass:      pipeline.RenderPass,
			AttachmentCount: uint32(len(attachments)),
			PAttachments:    attachments,
			Width:           swapchain.Extent.Width,
			Height:          swapchain.Extent.Height,
			Layers:          1,
		})
		if err != nil {
			return nil, errors.Wrap(err, "create framebuffer")
		}
		f.Framebuffers = append(f.Framebuffers, framebuffer)
		f.release.push(func() { f.driver.DestroyFramebuffer(f.device, framebuffer) })
	}
	return f, nil
}

func (f *FramebufferSet) Destroy() {
	f.release.release()
	f.Framebuffers = nil
}
