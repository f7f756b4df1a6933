package gpu

import "fmt"

// StageKind identifies which shader stage a diagnostic belongs to.
type StageKind string

const (
	StageCompute  StageKind = "compute"
	StageVertex   StageKind = "vertex"
	StageFragment StageKind = "fragment"
)

// CompileError carries the device's diagnostic for a failed shader
// compilation. Non-fatal by default: the builder logs it and hands back a
// nil module, and passes with a nil pipeline are skipped.
type CompileError struct {
	Stage StageKind
	Diag  string
}

func (e *CompileError) Error() string {
	return fmt.Sprintf("%s shader compilation failed: %s", e.Stage, e.Diag)
}

// LinkError carries the diagnostic for a pipeline that failed to build
// from already-compiled modules.
type LinkError struct {
	Diag string
}

func (e *LinkError) Error() string {
	return fmt.Sprintf("pipeline link failed: %s", e.Diag)
}
