package app

import (
	"fmt"
	"unsafe"

	"github.com/cogentcore/webgpu/wgpu"

	"github.com/emberline/ember/internal/shaders"
	"github.com/emberline/ember/internal/sim"
	"github.com/emberline/ember/internal/text"
)

// setupOverlay builds the glyph atlas texture and the text pipeline. A
// missing or unreadable font just disables the overlay.
func (a *App) setupOverlay() {
	if a.opts.FontPath == "" {
		return
	}

	renderer, err := text.NewRenderer(a.opts.FontPath, 16)
	if err != nil {
		a.log.Warnf("overlay disabled: %v", err)
		return
	}

	w := renderer.Atlas.Bounds().Dx()
	h := renderer.Atlas.Bounds().Dy()
	atlas, err := a.Device.CreateTexture(&wgpu.TextureDescriptor{
		Label:         "Text Atlas",
		Size:          wgpu.Extent3D{Width: uint32(w), Height: uint32(h), DepthOrArrayLayers: 1},
		Format:        wgpu.TextureFormatR8Unorm,
		Usage:         wgpu.TextureUsageTextureBinding | wgpu.TextureUsageCopyDst,
		Dimension:     wgpu.TextureDimension2D,
		MipLevelCount: 1,
		SampleCount:   1,
	})
	if err != nil {
		a.log.Warnf("overlay disabled: atlas texture: %v", err)
		return
	}
	a.Queue.WriteTexture(atlas.AsImageCopy(), renderer.Atlas.Pix, &wgpu.TextureDataLayout{
		Offset:       0,
		BytesPerRow:  uint32(w),
		RowsPerImage: uint32(h),
	}, &wgpu.Extent3D{Width: uint32(w), Height: uint32(h), DepthOrArrayLayers: 1})

	atlasView, err := atlas.CreateView(nil)
	if err != nil {
		a.log.Warnf("overlay disabled: atlas view: %v", err)
		atlas.Release()
		return
	}

	sampler, err := a.Device.CreateSampler(&wgpu.SamplerDescriptor{
		MinFilter:     wgpu.FilterModeLinear,
		MagFilter:     wgpu.FilterModeLinear,
		MaxAnisotropy: 1,
	})
	if err != nil {
		a.log.Warnf("overlay disabled: sampler: %v", err)
		atlasView.Release()
		atlas.Release()
		return
	}

	textModule, err := a.Device.CreateShaderModule(&wgpu.ShaderModuleDescriptor{
		Label:          "Text Shader",
		WGSLDescriptor: &wgpu.ShaderModuleWGSLDescriptor{Code: shaders.TextWGSL},
	})
	if err != nil {
		a.log.Warnf("overlay disabled: text shader: %v", err)
		sampler.Release()
		atlasView.Release()
		atlas.Release()
		return
	}

	pipeline, err := a.Device.CreateRenderPipeline(&wgpu.RenderPipelineDescriptor{
		Label: "Text Pipeline",
		Vertex: wgpu.VertexState{
			Module:     textModule,
			EntryPoint: "vs_main",
			Buffers: []wgpu.VertexBufferLayout{{
				ArrayStride: uint64(unsafe.Sizeof(text.Vertex{})),
				StepMode:    wgpu.VertexStepModeVertex,
				Attributes: []wgpu.VertexAttribute{
					{Format: wgpu.VertexFormatFloat32x2, Offset: 0, ShaderLocation: 0},
					{Format: wgpu.VertexFormatFloat32x2, Offset: 8, ShaderLocation: 1},
					{Format: wgpu.VertexFormatFloat32x4, Offset: 16, ShaderLocation: 2},
				},
			}},
		},
		Fragment: &wgpu.FragmentState{
			Module:     textModule,
			EntryPoint: "fs_main",
			Targets: []wgpu.ColorTargetState{{
				Format: a.Config.Format,
				Blend: &wgpu.BlendState{
					Color: wgpu.BlendComponent{
						SrcFactor: wgpu.BlendFactorSrcAlpha,
						DstFactor: wgpu.BlendFactorOneMinusSrcAlpha,
						Operation: wgpu.BlendOperationAdd,
					},
					Alpha: wgpu.BlendComponent{
						SrcFactor: wgpu.BlendFactorOne,
						DstFactor: wgpu.BlendFactorOne,
						Operation: wgpu.BlendOperationAdd,
					},
				},
				WriteMask: wgpu.ColorWriteMaskAll,
			}},
		},
		Primitive: wgpu.PrimitiveState{
			Topology: wgpu.PrimitiveTopologyTriangleList,
		},
		Multisample: wgpu.MultisampleState{
			Count: 1,
			Mask:  0xFFFFFFFF,
		},
	})
	if err != nil {
		a.log.Warnf("overlay disabled: text pipeline: %v", err)
		sampler.Release()
		atlasView.Release()
		atlas.Release()
		return
	}

	bg, err := a.Device.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Label:  "Text BG",
		Layout: pipeline.GetBindGroupLayout(0),
		Entries: []wgpu.BindGroupEntry{
			{Binding: 0, TextureView: atlasView},
			{Binding: 1, Sampler: sampler},
		},
	})
	if err != nil {
		a.log.Warnf("overlay disabled: text bind group: %v", err)
		pipeline.Release()
		sampler.Release()
		atlasView.Release()
		atlas.Release()
		return
	}

	a.overlayText = renderer
	a.textAtlas = atlas
	a.textAtlasView = atlasView
	a.textSampler = sampler
	a.textPipeline = pipeline
	a.textBG = bg
}

// updateOverlay rebuilds the overlay vertex buffer for this frame.
func (a *App) updateOverlay() {
	if a.overlayText == nil {
		return
	}

	items := []text.Item{{
		Text:     fmt.Sprintf("fps %.1f  particles %d  groups %d", a.fps, a.Store.Count(), sim.GroupCount(a.Store.Count())),
		Position: [2]float32{10, 10},
		Scale:    1,
		Color:    [4]float32{1, 1, 0, 1},
	}}
	if a.opts.Debug {
		items = append(items, text.Item{
			Text:     fmt.Sprintf("divergence %d\n%s", a.lastDivergence, a.Profiler.StatsString()),
			Position: [2]float32{10, 10 + a.overlayText.LineHeight(1)*1.5},
			Scale:    1,
			Color:    [4]float32{0.7, 0.9, 1, 1},
		})
	}

	vertices := a.overlayText.BuildVertices(items, a.Input.FramebufferW, a.Input.FramebufferH)
	a.textVertexCount = uint32(len(vertices))
	if len(vertices) == 0 {
		return
	}

	size := uint64(len(vertices)) * uint64(unsafe.Sizeof(text.Vertex{}))
	if a.textVertexBuf == nil || a.textVertexBuf.GetSize() < size {
		if a.textVertexBuf != nil {
			a.textVertexBuf.Release()
		}
		var err error
		a.textVertexBuf, err = a.Device.CreateBuffer(&wgpu.BufferDescriptor{
			Label: "Text VB",
			Size:  size,
			Usage: wgpu.BufferUsageVertex | wgpu.BufferUsageCopyDst,
		})
		if err != nil {
			a.log.Warnf("overlay vertex buffer: %v", err)
			a.textVertexCount = 0
			return
		}
	}
	a.Queue.WriteBuffer(a.textVertexBuf, 0, unsafe.Slice((*byte)(unsafe.Pointer(&vertices[0])), size))
}

func (a *App) releaseOverlay() {
	if a.textVertexBuf != nil {
		a.textVertexBuf.Release()
	}
	if a.textBG != nil {
		a.textBG.Release()
	}
	if a.textPipeline != nil {
		a.textPipeline.Release()
	}
	if a.textSampler != nil {
		a.textSampler.Release()
	}
	if a.textAtlasView != nil {
		a.textAtlasView.Release()
	}
	if a.textAtlas != nil {
		a.textAtlas.Release()
	}
}
