package app

import (
	"fmt"
	"math/rand"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/cogentcore/webgpu/wgpuglfw"
	"github.com/go-gl/glfw/v3.3/glfw"
	"github.com/go-gl/mathgl/mgl32"

	"github.com/emberline/ember/internal/gpu"
	"github.com/emberline/ember/internal/logging"
	"github.com/emberline/ember/internal/shaders"
	"github.com/emberline/ember/internal/sim"
	"github.com/emberline/ember/internal/text"
)

// How often the debug path stalls the pipeline for a full readback.
const debugReadInterval = 60

// Options are the process flags that change App behavior.
type Options struct {
	Debug         bool   // per-readback particle log, CPU mirror validation, overlay stats
	StrictShaders bool   // fail fast on compile/link errors instead of continuing
	Capture       bool   // write one snapshot CSV after the first debug readback
	FontPath      string // TTF for the overlay; empty or missing disables it
}

// App drives the frame loop: uniforms → compute dispatch → handoff copy →
// draw → present, with optional diagnostics after the submit.
type App struct {
	Window   *glfw.Window
	Instance *wgpu.Instance
	Adapter  *wgpu.Adapter
	Device   *wgpu.Device
	Queue    *wgpu.Queue
	Surface  *wgpu.Surface
	Config   *wgpu.SurfaceConfiguration

	ComputePipeline *wgpu.ComputePipeline
	RenderPipeline  *wgpu.RenderPipeline

	Store    *gpu.ParticleStore
	FrameUB  *gpu.UniformBlock
	ScreenUB *gpu.UniformBlock

	computeBG *wgpu.BindGroup
	screenBG  *wgpu.BindGroup

	Input    *InputState
	Profiler *Profiler

	// Overlay resources, nil when no font is available.
	overlayText     *text.Renderer
	textPipeline    *wgpu.RenderPipeline
	textBG          *wgpu.BindGroup
	textAtlas       *wgpu.Texture
	textAtlasView   *wgpu.TextureView
	textSampler     *wgpu.Sampler
	textVertexBuf   *wgpu.Buffer
	textVertexCount uint32

	log  logging.Logger
	opts Options

	mirror         []sim.Particle // CPU reference pool, debug mode only
	lastDivergence int
	captureDone    bool

	lastTime   float64
	frameIndex uint64

	fps       float64
	fpsFrames int
	fpsTime   float64
}

func NewApp(window *glfw.Window, log logging.Logger, opts Options) *App {
	if log == nil {
		log = logging.NewNopLogger()
	}
	return &App{
		Window:   window,
		Input:    &InputState{},
		Profiler: NewProfiler(),
		log:      log,
		opts:     opts,
	}
}

// Init brings up the device, builds both pipelines, and uploads the
// initial pool. Any error here is a setup failure: the caller aborts
// before the loop starts.
func (a *App) Init() error {
	a.Instance = wgpu.CreateInstance(nil)

	a.Surface = a.Instance.CreateSurface(wgpuglfw.GetSurfaceDescriptor(a.Window))

	adapter, err := a.Instance.RequestAdapter(&wgpu.RequestAdapterOptions{
		CompatibleSurface: a.Surface,
		PowerPreference:   wgpu.PowerPreferenceHighPerformance,
	})
	if err != nil {
		return fmt.Errorf("failed to request adapter: %w", err)
	}
	a.Adapter = adapter

	a.Device, err = adapter.RequestDevice(nil)
	if err != nil {
		return fmt.Errorf("failed to request device: %w", err)
	}
	a.Queue = a.Device.GetQueue()

	width, height := a.Window.GetFramebufferSize()
	a.Input.FramebufferW = width
	a.Input.FramebufferH = height

	caps := a.Surface.GetCapabilities(adapter)
	a.Config = &wgpu.SurfaceConfiguration{
		Usage:       wgpu.TextureUsageRenderAttachment,
		Format:      caps.Formats[0],
		Width:       uint32(width),
		Height:      uint32(height),
		PresentMode: wgpu.PresentModeFifo,
		AlphaMode:   caps.AlphaModes[0],
	}
	a.Surface.Configure(adapter, a.Device, a.Config)

	builder := gpu.NewBuilder(a.Device, a.log, a.opts.StrictShaders)

	// Update kernel
	csModule, err := builder.ShaderModule("Particle Update CS", gpu.StageCompute, shaders.ParticlesUpdateWGSL)
	if err != nil {
		return err
	}
	a.ComputePipeline, err = builder.ComputePipeline("Particle Update Pipeline", csModule, "main")
	if err != nil {
		return err
	}

	// Draw pass
	drawModule, err := builder.ShaderModule("Particle Draw VS/FS", gpu.StageVertex, shaders.ParticlesDrawWGSL)
	if err != nil {
		return err
	}
	a.RenderPipeline, err = builder.RenderPipeline("Particle Draw Pipeline", drawModule, &wgpu.RenderPipelineDescriptor{
		Vertex: wgpu.VertexState{
			Module:     drawModule,
			EntryPoint: "vs_main",
			Buffers: []wgpu.VertexBufferLayout{{
				ArrayStride: sim.ParticleStride,
				StepMode:    wgpu.VertexStepModeInstance,
				Attributes: []wgpu.VertexAttribute{
					{Format: wgpu.VertexFormatFloat32x2, Offset: 0, ShaderLocation: 0},
					{Format: wgpu.VertexFormatFloat32x4, Offset: 16, ShaderLocation: 1},
				},
			}},
		},
		Fragment: &wgpu.FragmentState{
			Module:     drawModule,
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
		return err
	}

	// Pool upload
	pool := sim.NewPool(a.Input.EmitterPosition(), rand.New(rand.NewSource(int64(glfw.GetTimerValue()))))
	a.Store = gpu.NewParticleStore(a.Device, a.Queue, a.log)
	if err := a.Store.Upload(pool); err != nil {
		return err
	}
	if a.opts.Debug {
		a.mirror = sim.Clone(pool)
	}

	// Uniform blocks
	a.FrameUB, err = gpu.NewUniformBlock(a.Device, a.Queue, a.log, "FrameUB", 16, map[string]int{
		"mousePos":  0,
		"deltaTime": 8,
	})
	if err != nil {
		return err
	}
	a.ScreenUB, err = gpu.NewUniformBlock(a.Device, a.Queue, a.log, "ScreenUB", 16, map[string]int{
		"screenSize": 0,
	})
	if err != nil {
		return err
	}
	a.ScreenUB.SetVec2("screenSize", mgl32.Vec2{float32(width), float32(height)})
	a.ScreenUB.Flush()

	if err := a.setupBindGroups(); err != nil {
		return err
	}

	a.setupOverlay()

	a.lastTime = glfw.GetTime()
	return nil
}

func (a *App) setupBindGroups() error {
	if a.ComputePipeline != nil {
		bg, err := a.Device.CreateBindGroup(&wgpu.BindGroupDescriptor{
			Label:  "Particle Update BG",
			Layout: a.ComputePipeline.GetBindGroupLayout(0),
			Entries: []wgpu.BindGroupEntry{
				{Binding: 0, Buffer: a.Store.SimBuffer(), Size: a.Store.Size()},
				{Binding: 1, Buffer: a.FrameUB.Buffer(), Size: 16},
			},
		})
		if err != nil {
			return fmt.Errorf("failed to create compute bind group: %w", err)
		}
		a.computeBG = bg
	}

	if a.RenderPipeline != nil {
		bg, err := a.Device.CreateBindGroup(&wgpu.BindGroupDescriptor{
			Label:  "Particle Draw BG",
			Layout: a.RenderPipeline.GetBindGroupLayout(0),
			Entries: []wgpu.BindGroupEntry{
				{Binding: 0, Buffer: a.ScreenUB.Buffer(), Size: 16},
			},
		})
		if err != nil {
			return fmt.Errorf("failed to create render bind group: %w", err)
		}
		a.screenBG = bg
	}
	return nil
}

func (a *App) Resize(w, h int) {
	if w <= 0 || h <= 0 {
		return
	}
	a.Input.FramebufferW = w
	a.Input.FramebufferH = h
	a.Config.Width = uint32(w)
	a.Config.Height = uint32(h)
	a.Surface.Configure(a.Adapter, a.Device, a.Config)
	a.ScreenUB.SetVec2("screenSize", mgl32.Vec2{float32(w), float32(h)})
}

// Frame runs one loop iteration. The caller has already polled events.
func (a *App) Frame() {
	now := glfw.GetTime()
	deltaTime := float32(now - a.lastTime)
	a.lastTime = now

	emitter := a.Input.EmitterPosition()

	a.Profiler.Begin("update")
	a.FrameUB.SetVec2("mousePos", emitter)
	a.FrameUB.SetFloat("deltaTime", deltaTime)
	a.FrameUB.Flush()
	a.ScreenUB.Flush()

	if a.opts.Debug {
		// Same uniforms as the dispatch below, so the mirror stays in
		// lockstep with the kernel.
		sim.Advance(a.mirror, emitter, deltaTime)
	}
	a.updateOverlay()
	a.Profiler.End("update")

	a.Profiler.Begin("encode")
	if err := a.renderFrame(); err != nil {
		a.log.Errorf("frame %d: %v", a.frameIndex, err)
	}
	a.Profiler.End("encode")

	if a.opts.Debug && a.frameIndex%debugReadInterval == 0 {
		a.debugInspect()
	}

	a.trackFPS(now)
	a.frameIndex++
}

func (a *App) renderFrame() error {
	nextTexture, err := a.Surface.GetCurrentTexture()
	if err != nil {
		return fmt.Errorf("failed to get surface texture: %w", err)
	}
	defer nextTexture.Release()

	view, err := nextTexture.CreateView(nil)
	if err != nil {
		return fmt.Errorf("failed to create surface view: %w", err)
	}
	defer view.Release()

	encoder, err := a.Device.CreateCommandEncoder(nil)
	if err != nil {
		return fmt.Errorf("failed to create command encoder: %w", err)
	}

	// Compute pass: one invocation per particle, bounds check in kernel.
	if a.ComputePipeline != nil && a.computeBG != nil {
		cPass := encoder.BeginComputePass(nil)
		cPass.SetPipeline(a.ComputePipeline)
		cPass.SetBindGroup(0, a.computeBG, nil)
		cPass.DispatchWorkgroups(sim.GroupCount(a.Store.Count()), 1, 1)
		if err := cPass.End(); err != nil {
			a.log.Errorf("compute pass end failed: %v", err)
		}
	}

	// Handoff: the draw below reads the copy destination, never the
	// buffer the kernel writes.
	a.Store.EncodeHandoff(encoder)

	rPass := encoder.BeginRenderPass(&wgpu.RenderPassDescriptor{
		ColorAttachments: []wgpu.RenderPassColorAttachment{{
			View:       view,
			LoadOp:     wgpu.LoadOpClear,
			StoreOp:    wgpu.StoreOpStore,
			ClearValue: wgpu.Color{R: 0, G: 0, B: 0, A: 1},
		}},
	})
	if a.RenderPipeline != nil && a.screenBG != nil {
		rPass.SetPipeline(a.RenderPipeline)
		rPass.SetBindGroup(0, a.screenBG, nil)
		rPass.SetVertexBuffer(0, a.Store.VertexBuffer(), 0, a.Store.Size())
		rPass.Draw(6, uint32(a.Store.Count()), 0, 0)
	}
	if a.textPipeline != nil && a.textVertexCount > 0 && a.textVertexBuf != nil {
		rPass.SetPipeline(a.textPipeline)
		rPass.SetBindGroup(0, a.textBG, nil)
		rPass.SetVertexBuffer(0, a.textVertexBuf, 0, a.textVertexBuf.GetSize())
		rPass.Draw(a.textVertexCount, 1, 0, 0)
	}
	if err := rPass.End(); err != nil {
		a.log.Errorf("render pass end failed: %v", err)
	}

	cmd, err := encoder.Finish(nil)
	if err != nil {
		return fmt.Errorf("failed to finish encoder: %w", err)
	}
	a.Queue.Submit(cmd)
	a.Surface.Present()
	return nil
}

// debugInspect stalls on a full readback, logs the head of the pool, and
// checks the GPU output against the CPU reference kernel. Runs after the
// submit so it never overlaps the dispatch it inspects.
func (a *App) debugInspect() {
	a.Profiler.Begin("readback")
	pool, err := a.Store.ReadBack()
	a.Profiler.End("readback")
	if err != nil {
		a.log.Warnf("debug readback failed: %v", err)
		return
	}

	for i := 0; i < 10 && i < len(pool); i++ {
		p := &pool[i]
		a.log.Debugf("particle %d: pos(%.3f, %.3f) vel(%.3f, %.3f) age %.3f life %.3f",
			i, p.Position[0], p.Position[1], p.Velocity[0], p.Velocity[1], p.Age, p.LifeTime)
	}

	bad := sim.Divergence(pool, a.mirror, 0.01)
	a.lastDivergence = len(bad)
	if len(bad) > 0 {
		a.log.Debugf("mirror divergence: %d particles (first index %d)", len(bad), bad[0])
	}

	if a.opts.Capture && !a.captureDone {
		path, err := gpu.WriteSnapshot("", pool)
		if err != nil {
			a.log.Warnf("snapshot capture failed: %v", err)
		} else {
			a.log.Infof("snapshot written to %s", path)
		}
		a.captureDone = true
	}
}

func (a *App) trackFPS(now float64) {
	if a.fpsTime == 0 {
		a.fpsTime = now
		return
	}
	a.fpsFrames++
	if now-a.fpsTime >= 1.0 {
		a.fps = float64(a.fpsFrames) / (now - a.fpsTime)
		a.fpsFrames = 0
		a.fpsTime = now
	}
}

// Release frees every device-side object. Called once on shutdown.
func (a *App) Release() {
	a.releaseOverlay()
	if a.computeBG != nil {
		a.computeBG.Release()
	}
	if a.screenBG != nil {
		a.screenBG.Release()
	}
	if a.FrameUB != nil {
		a.FrameUB.Release()
	}
	if a.ScreenUB != nil {
		a.ScreenUB.Release()
	}
	if a.Store != nil {
		a.Store.Release()
	}
	if a.RenderPipeline != nil {
		a.RenderPipeline.Release()
	}
	if a.ComputePipeline != nil {
		a.ComputePipeline.Release()
	}
	if a.Queue != nil {
		a.Queue.Release()
	}
	if a.Device != nil {
		a.Device.Release()
	}
	if a.Adapter != nil {
		a.Adapter.Release()
	}
	if a.Instance != nil {
		a.Instance.Release()
	}
}
