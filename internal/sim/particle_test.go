package sim

import (
	"math/rand"
	"testing"
	"unsafe"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParticleLayoutMatchesShader(t *testing.T) {
	// The WGSL struct has 16-byte alignment from the vec4 color.
	assert.Equal(t, uintptr(ParticleStride), unsafe.Sizeof(Particle{}))

	var p Particle
	assert.Equal(t, uintptr(0), unsafe.Offsetof(p.Position))
	assert.Equal(t, uintptr(8), unsafe.Offsetof(p.Velocity))
	assert.Equal(t, uintptr(16), unsafe.Offsetof(p.Color))
	assert.Equal(t, uintptr(32), unsafe.Offsetof(p.Age))
	assert.Equal(t, uintptr(36), unsafe.Offsetof(p.LifeTime))
}

func TestNewPoolInvariants(t *testing.T) {
	emitter := mgl32.Vec2{0.25, -0.75}
	pool := NewPool(emitter, rand.New(rand.NewSource(42)))
	require.Len(t, pool, PoolSize)

	for i, p := range pool {
		assert.Equal(t, emitter, p.Position, "particle %d position", i)
		assert.Equal(t, float32(0), p.Age, "particle %d age", i)
		assert.Equal(t, float32(1), p.Color[3], "particle %d alpha", i)

		assert.GreaterOrEqual(t, p.LifeTime, float32(1.5), "particle %d lifetime", i)
		assert.Less(t, p.LifeTime, float32(3.0), "particle %d lifetime", i)

		assert.InDelta(t, 0.205, p.Velocity.Len(), 1e-4, "particle %d speed", i)

		for c := 0; c < 3; c++ {
			assert.GreaterOrEqual(t, p.Color[c], float32(0))
			assert.LessOrEqual(t, p.Color[c], float32(1))
		}
	}
}

func TestBytesRoundTrip(t *testing.T) {
	pool := NewPool(mgl32.Vec2{0.1, 0.2}, rand.New(rand.NewSource(7)))

	data := Bytes(pool)
	require.Len(t, data, PoolSize*ParticleStride)

	decoded := FromBytes(data)
	require.Len(t, decoded, PoolSize)
	assert.Equal(t, pool, decoded)
}

func TestBytesEmpty(t *testing.T) {
	assert.Nil(t, Bytes(nil))
	assert.Nil(t, FromBytes(nil))
}

func TestAlphaUnclamped(t *testing.T) {
	p := Particle{Age: 3.0, LifeTime: 2.0}
	// A dt spike can push age past lifeTime before the respawn check in
	// the next step; alpha goes negative rather than clamping.
	assert.Less(t, p.Alpha(), float32(0))
}
