package app

import (
	"github.com/go-gl/mathgl/mgl32"
)

// InputState is filled by window callbacks and read once per frame by the
// driver. Explicit state instead of a package-level cursor variable.
type InputState struct {
	CursorX, CursorY float64

	FramebufferW int
	FramebufferH int
}

// EmitterPosition maps the raw cursor position into the symmetric [-1, 1]
// device space with the vertical axis flipped (origin bottom-left).
func (in *InputState) EmitterPosition() mgl32.Vec2 {
	if in.FramebufferW == 0 || in.FramebufferH == 0 {
		return mgl32.Vec2{}
	}
	x := float32(in.CursorX/float64(in.FramebufferW))*2.0 - 1.0
	y := 1.0 - float32(in.CursorY/float64(in.FramebufferH))*2.0
	return mgl32.Vec2{x, y}
}
