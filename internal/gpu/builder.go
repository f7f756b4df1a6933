package gpu

import (
	"github.com/cogentcore/webgpu/wgpu"

	"github.com/emberline/ember/internal/logging"
)

// Builder compiles WGSL and assembles pipelines with a configurable
// failure policy. Lenient (the default) reports diagnostics and continues
// with nil handles, matching the original best-effort behavior; Strict
// fails fast, since a silently broken pipeline renders nothing.
type Builder struct {
	Device *wgpu.Device
	Log    logging.Logger
	Strict bool
}

func NewBuilder(device *wgpu.Device, log logging.Logger, strict bool) *Builder {
	if log == nil {
		log = logging.NewNopLogger()
	}
	return &Builder{Device: device, Log: log, Strict: strict}
}

// ShaderModule compiles one WGSL source. In lenient mode a failed compile
// returns (nil, nil) after logging the diagnostic.
func (b *Builder) ShaderModule(label string, stage StageKind, source string) (*wgpu.ShaderModule, error) {
	mod, err := b.Device.CreateShaderModule(&wgpu.ShaderModuleDescriptor{
		Label:          label,
		WGSLDescriptor: &wgpu.ShaderModuleWGSLDescriptor{Code: source},
	})
	if err != nil {
		cerr := &CompileError{Stage: stage, Diag: err.Error()}
		if b.Strict {
			return nil, cerr
		}
		b.Log.Errorf("%s: continuing with nil module", cerr)
		return nil, nil
	}
	return mod, nil
}

// ComputePipeline builds a compute pipeline from an already-compiled
// module. A nil module short-circuits to a nil pipeline.
func (b *Builder) ComputePipeline(label string, module *wgpu.ShaderModule, entryPoint string) (*wgpu.ComputePipeline, error) {
	if module == nil {
		return nil, nil
	}
	pipeline, err := b.Device.CreateComputePipeline(&wgpu.ComputePipelineDescriptor{
		Label: label,
		Compute: wgpu.ProgrammableStageDescriptor{
			Module:     module,
			EntryPoint: entryPoint,
		},
	})
	if err != nil {
		lerr := &LinkError{Diag: err.Error()}
		if b.Strict {
			return nil, lerr
		}
		b.Log.Errorf("%s (%s): continuing with nil pipeline", lerr, label)
		return nil, nil
	}
	return pipeline, nil
}

// RenderPipeline builds a render pipeline from a compiled module holding
// both vertex and fragment entry points.
func (b *Builder) RenderPipeline(label string, module *wgpu.ShaderModule, desc *wgpu.RenderPipelineDescriptor) (*wgpu.RenderPipeline, error) {
	if module == nil {
		return nil, nil
	}
	desc.Label = label
	pipeline, err := b.Device.CreateRenderPipeline(desc)
	if err != nil {
		lerr := &LinkError{Diag: err.Error()}
		if b.Strict {
			return nil, lerr
		}
		b.Log.Errorf("%s (%s): continuing with nil pipeline", lerr, label)
		return nil, nil
	}
	return pipeline, nil
}
