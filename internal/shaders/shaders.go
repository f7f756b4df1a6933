package shaders

import (
	_ "embed"
)

//go:embed particles_update.wgsl
var ParticlesUpdateWGSL string

//go:embed particles_draw.wgsl
var ParticlesDrawWGSL string

//go:embed text.wgsl
var TextWGSL string
