package sim

import (
	"math"
	"math/rand"
	"unsafe"

	"github.com/go-gl/mathgl/mgl32"
)

const (
	// PoolSize is fixed for the process lifetime. No per-particle
	// allocation ever happens after the initial upload.
	PoolSize = 1000

	// ParticleStride is the byte stride of one particle in GPU buffers.
	// The vec4 color forces 16-byte struct alignment in WGSL, so the
	// 40 bytes of payload pad out to 48.
	ParticleStride = 48
)

// Particle matches the WGSL layout in particles_update.wgsl:
// struct Particle { pos: vec2f; vel: vec2f; color: vec4f; age: f32; life: f32; }
type Particle struct {
	Position mgl32.Vec2
	Velocity mgl32.Vec2
	Color    mgl32.Vec4
	Age      float32
	LifeTime float32
	_        [2]float32
}

// Alpha is the current fade value, 1 - age/lifeTime. Deliberately
// unclamped: a dt spike can push it below zero for one frame.
func (p *Particle) Alpha() float32 {
	return 1 - p.Age/p.LifeTime
}

// NewPool builds the initial particle state. Velocities are random unit
// directions at a fixed speed and never change afterwards; the kernel's
// respawn path resets position/age/lifeTime only.
func NewPool(emitter mgl32.Vec2, rng *rand.Rand) []Particle {
	pool := make([]Particle, PoolSize)
	for i := range pool {
		dir := mgl32.Vec2{
			float32(rng.Float64()*2 - 1),
			float32(rng.Float64()*2 - 1),
		}
		if dir.Len() == 0 {
			dir = mgl32.Vec2{1, 0}
		}

		const speed = 0.205
		pool[i].Position = emitter
		pool[i].Velocity = dir.Normalize().Mul(speed)
		pool[i].Color = mgl32.Vec4{
			float32(rng.Float64()),
			float32(rng.Float64()),
			float32(rng.Float64()),
			1.0,
		}
		pool[i].Age = 0
		pool[i].LifeTime = 1.5 + float32(rng.Float64())*1.5 // [1.5, 3.0)
	}
	return pool
}

// Bytes reinterprets the pool as raw bytes for buffer upload.
func Bytes(pool []Particle) []byte {
	if len(pool) == 0 {
		return nil
	}
	return unsafe.Slice((*byte)(unsafe.Pointer(&pool[0])), len(pool)*int(unsafe.Sizeof(Particle{})))
}

// FromBytes decodes a buffer readback into particle records. The copy is
// deliberate: the source is a staging buffer mapping that gets unmapped.
func FromBytes(data []byte) []Particle {
	n := len(data) / ParticleStride
	if n == 0 {
		return nil
	}
	src := unsafe.Slice((*Particle)(unsafe.Pointer(&data[0])), n)
	out := make([]Particle, n)
	copy(out, src)
	return out
}

// Clone copies a pool, used for the CPU mirror in debug validation.
func Clone(pool []Particle) []Particle {
	out := make([]Particle, len(pool))
	copy(out, pool)
	return out
}

func nearlyEqual(a, b, eps float32) bool {
	return float32(math.Abs(float64(a-b))) <= eps
}
