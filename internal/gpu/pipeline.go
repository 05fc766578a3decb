package gpu

import (
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
)

// instanceStride is the byte stride of one instance in the instance buffer.
const instanceStride = 156

// quadVertexStride is the byte stride of the unit quad vertices.
const quadVertexStride = 8

// uniformSize is the byte size of the uniform buffer:
// pan_zoom (mat3x3<f32>, three 16-byte columns) = 48 bytes +
// bg_color (vec4<f32>) = 16 bytes + atlas_size (f32) padded to 16 bytes.
const uniformSize = 80

// quadVertices are the two unit quads of an instance, as triangle lists.
// The second quad draws the wrapped part of a texture.
var quadVertices = [24]float32{
	0, 0, 1, 0, 1, 1, 0, 0, 1, 1, 0, 1,
	0, 0, 1, 0, 1, 1, 0, 0, 1, 1, 0, 1,
}

// elementPipelines holds the render pipelines of the screen and picking
// variants. Both share one bind group layout.
type elementPipelines struct {
	device hal.Device

	bindLayout hal.BindGroupLayout
	pipeLayout hal.PipelineLayout
	sampler    hal.Sampler

	screenShader  hal.ShaderModule
	pickingShader hal.ShaderModule
	screen        hal.RenderPipeline
	picking       hal.RenderPipeline
}

// createPipelines generates and compiles both shader variants and creates
// their pipelines.
func createPipelines(device hal.Device, variant gputypes.Backend, slots int, screenFormat gputypes.TextureFormat) (*elementPipelines, error) {
	p := &elementPipelines{device: device}
	if err := p.create(variant, slots, screenFormat); err != nil {
		p.destroy()
		return nil, err
	}
	return p, nil
}

func (p *elementPipelines) create(variant gputypes.Backend, slots int, screenFormat gputypes.TextureFormat) error {
	// Bind group layout:
	//   Binding 0: Uniforms (uniform buffer, vertex+fragment)
	//   Binding 1: Sampler (fragment)
	//   Binding 2..: atlas textures (texture_2d, fragment)
	entries := []gputypes.BindGroupLayoutEntry{
		{
			Binding:    0,
			Visibility: gputypes.ShaderStageVertex | gputypes.ShaderStageFragment,
			Buffer:     &gputypes.BufferBindingLayout{Type: gputypes.BufferBindingTypeUniform},
		},
		{
			Binding:    1,
			Visibility: gputypes.ShaderStageFragment,
			Sampler:    &gputypes.SamplerBindingLayout{Type: gputypes.SamplerBindingTypeFiltering},
		},
	}
	for i := range slots {
		entries = append(entries, gputypes.BindGroupLayoutEntry{
			Binding:    uint32(firstAtlasBinding + i),
			Visibility: gputypes.ShaderStageFragment,
			Texture: &gputypes.TextureBindingLayout{
				SampleType:    gputypes.TextureSampleTypeFloat,
				ViewDimension: gputypes.TextureViewDimension2D,
			},
		})
	}
	bindLayout, err := p.device.CreateBindGroupLayout(&hal.BindGroupLayoutDescriptor{
		Label:   "elements_bind_layout",
		Entries: entries,
	})
	if err != nil {
		return fmt.Errorf("create elements bind layout: %w", err)
	}
	p.bindLayout = bindLayout

	pipeLayout, err := p.device.CreatePipelineLayout(&hal.PipelineLayoutDescriptor{
		Label:            "elements_pipe_layout",
		BindGroupLayouts: []hal.BindGroupLayout{p.bindLayout},
	})
	if err != nil {
		return fmt.Errorf("create elements pipeline layout: %w", err)
	}
	p.pipeLayout = pipeLayout

	sampler, err := p.device.CreateSampler(&hal.SamplerDescriptor{
		Label:        "atlas_sampler",
		AddressModeU: gputypes.AddressModeClampToEdge,
		AddressModeV: gputypes.AddressModeClampToEdge,
		AddressModeW: gputypes.AddressModeClampToEdge,
		MagFilter:    gputypes.FilterModeLinear,
		MinFilter:    gputypes.FilterModeLinear,
		MipmapFilter: gputypes.FilterModeNearest,
	})
	if err != nil {
		return fmt.Errorf("create atlas sampler: %w", err)
	}
	p.sampler = sampler

	p.screenShader, err = p.shaderModule(variant, slots, VariantScreen)
	if err != nil {
		return err
	}
	p.pickingShader, err = p.shaderModule(variant, slots, VariantPicking)
	if err != nil {
		return err
	}

	premulBlend := gputypes.BlendStatePremultiplied()
	p.screen, err = p.renderPipeline("elements_screen_pipeline", p.screenShader, screenFormat, &premulBlend)
	if err != nil {
		return err
	}
	// Picking colors are written as is.
	p.picking, err = p.renderPipeline("elements_picking_pipeline", p.pickingShader, gputypes.TextureFormatRGBA8Unorm, nil)
	return err
}

func (p *elementPipelines) shaderModule(backend gputypes.Backend, slots int, variant ShaderVariant) (hal.ShaderModule, error) {
	wgsl, err := GenerateShader(slots, variant)
	if err != nil {
		return nil, err
	}
	src, err := shaderSource(wgsl, backend)
	if err != nil {
		return nil, fmt.Errorf("%s shader: %w", variant, err)
	}
	module, err := p.device.CreateShaderModule(&hal.ShaderModuleDescriptor{
		Label:  "elements_" + variant.String() + "_shader",
		Source: src,
	})
	if err != nil {
		return nil, fmt.Errorf("compile elements %s shader: %w", variant, err)
	}
	return module, nil
}

func (p *elementPipelines) renderPipeline(label string, shader hal.ShaderModule, format gputypes.TextureFormat, blend *gputypes.BlendState) (hal.RenderPipeline, error) {
	pipeline, err := p.device.CreateRenderPipeline(&hal.RenderPipelineDescriptor{
		Label:  label,
		Layout: p.pipeLayout,
		Vertex: hal.VertexState{
			Module:     shader,
			EntryPoint: "vs_main",
			Buffers:    elementVertexLayout(),
		},
		Fragment: &hal.FragmentState{
			Module:     shader,
			EntryPoint: "fs_main",
			Targets: []gputypes.ColorTargetState{
				{
					Format:    format,
					Blend:     blend,
					WriteMask: gputypes.ColorWriteMaskAll,
				},
			},
		},
		Primitive: gputypes.PrimitiveState{
			Topology: gputypes.PrimitiveTopologyTriangleList,
			CullMode: gputypes.CullModeNone,
		},
		Multisample: gputypes.MultisampleState{
			Count: 1,
			Mask:  0xFFFFFFFF,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", label, err)
	}
	return pipeline, nil
}

// destroy releases all pipeline resources in reverse creation order.
func (p *elementPipelines) destroy() {
	if p.picking != nil {
		p.device.DestroyRenderPipeline(p.picking)
		p.picking = nil
	}
	if p.screen != nil {
		p.device.DestroyRenderPipeline(p.screen)
		p.screen = nil
	}
	if p.pickingShader != nil {
		p.device.DestroyShaderModule(p.pickingShader)
		p.pickingShader = nil
	}
	if p.screenShader != nil {
		p.device.DestroyShaderModule(p.screenShader)
		p.screenShader = nil
	}
	if p.sampler != nil {
		p.device.DestroySampler(p.sampler)
		p.sampler = nil
	}
	if p.pipeLayout != nil {
		p.device.DestroyPipelineLayout(p.pipeLayout)
		p.pipeLayout = nil
	}
	if p.bindLayout != nil {
		p.device.DestroyBindGroupLayout(p.bindLayout)
		p.bindLayout = nil
	}
}

// elementVertexLayout returns the vertex buffer layouts of the element
// pipelines. Slot 0 holds the unit quads, slot 1 the instances in the
// layout of render.Instance.
func elementVertexLayout() []gputypes.VertexBufferLayout {
	return []gputypes.VertexBufferLayout{
		{
			ArrayStride: quadVertexStride,
			StepMode:    gputypes.VertexStepModeVertex,
			Attributes: []gputypes.VertexAttribute{
				{Format: gputypes.VertexFormatFloat32x2, Offset: 0, ShaderLocation: 0}, // position
			},
		},
		{
			ArrayStride: instanceStride,
			StepMode:    gputypes.VertexStepModeInstance,
			Attributes: []gputypes.VertexAttribute{
				{Format: gputypes.VertexFormatFloat32x4, Offset: 0, ShaderLocation: 1},    // index
				{Format: gputypes.VertexFormatSint32, Offset: 16, ShaderLocation: 2},      // vert_type
				{Format: gputypes.VertexFormatSint32, Offset: 20, ShaderLocation: 3},      // atlas_id
				{Format: gputypes.VertexFormatFloat32x4, Offset: 24, ShaderLocation: 4},   // tex1
				{Format: gputypes.VertexFormatFloat32x4, Offset: 40, ShaderLocation: 5},   // tex2
				{Format: gputypes.VertexFormatFloat32x4, Offset: 56, ShaderLocation: 6},   // scale_rot1
				{Format: gputypes.VertexFormatFloat32x2, Offset: 72, ShaderLocation: 7},   // translate1
				{Format: gputypes.VertexFormatFloat32x4, Offset: 80, ShaderLocation: 8},   // scale_rot2
				{Format: gputypes.VertexFormatFloat32x2, Offset: 96, ShaderLocation: 9},   // translate2
				{Format: gputypes.VertexFormatFloat32x4, Offset: 104, ShaderLocation: 10}, // point_ab
				{Format: gputypes.VertexFormatFloat32x4, Offset: 120, ShaderLocation: 11}, // point_cd
				{Format: gputypes.VertexFormatFloat32, Offset: 136, ShaderLocation: 12},   // line_width
				{Format: gputypes.VertexFormatFloat32x4, Offset: 140, ShaderLocation: 13}, // edge_color
			},
		},
	}
}
