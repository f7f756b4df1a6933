package sim

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

const (
	// GroupSize matches @workgroup_size in particles_update.wgsl.
	GroupSize = 10

	// Respawn lifetimes are drawn from [LifeMin, LifeMax).
	LifeMin = 1.0
	LifeMax = 5.0
)

// GroupCount returns how many workgroups cover n particles, rounding up.
// The last group may be partially filled; the kernel bounds-checks.
func GroupCount(n int) uint32 {
	return uint32((n + GroupSize - 1) / GroupSize)
}

// pcg is the PCG output hash, identical to the u32 version in
// particles_update.wgsl. Both sides must agree bit for bit so the CPU
// mirror can validate GPU output.
func pcg(v uint32) uint32 {
	state := v*747796405 + 2891336453
	word := ((state >> ((state >> 28) + 4)) ^ state) * 277803737
	return (word >> 22) ^ word
}

// RespawnLifetime derives a new lifetime from the particle index and the
// frame's deltaTime uniform. Pure function of its arguments; mapped into
// [LifeMin, LifeMax) seconds. Only the top 24 hash bits are used: those
// convert to float32 exactly, so the WGSL version produces identical bits.
func RespawnLifetime(id uint32, deltaTime float32) float32 {
	h := pcg(id ^ math.Float32bits(deltaTime))
	unit := float32(h>>8) / (1 << 24) // [0, 1)
	return LifeMin + (LifeMax-LifeMin)*unit
}

// Advance runs one frame of the update kernel over the whole pool. This is
// the reference implementation of the WGSL compute shader: each step
// touches only its own record plus the two frame-global uniforms, so
// iteration order is irrelevant.
func Advance(pool []Particle, emitter mgl32.Vec2, deltaTime float32) {
	for i := range pool {
		p := &pool[i]

		p.Age += deltaTime
		p.Color[3] = p.Alpha()

		if p.Age >= p.LifeTime {
			p.Position = emitter
			p.Age = 0
			p.LifeTime = RespawnLifetime(uint32(i), deltaTime)
			p.Color[3] = 1
		} else {
			p.Position = p.Position.Add(p.Velocity.Mul(deltaTime))
		}
	}
}

// Divergence compares a GPU readback against the CPU mirror and returns
// the indices that differ beyond eps. Used by the debug validation path;
// small float drift between WGSL and Go math is expected, anything large
// means the kernel and the mirror disagree.
func Divergence(gpu, cpu []Particle, eps float32) []int {
	n := len(gpu)
	if len(cpu) < n {
		n = len(cpu)
	}
	var bad []int
	for i := 0; i < n; i++ {
		g, c := &gpu[i], &cpu[i]
		ok := nearlyEqual(g.Position[0], c.Position[0], eps) &&
			nearlyEqual(g.Position[1], c.Position[1], eps) &&
			nearlyEqual(g.Age, c.Age, eps) &&
			nearlyEqual(g.LifeTime, c.LifeTime, eps) &&
			nearlyEqual(g.Color[3], c.Color[3], eps)
		if !ok {
			bad = append(bad, i)
		}
	}
	return bad
}
