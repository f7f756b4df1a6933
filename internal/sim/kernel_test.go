package sim

import (
	"math"
	"math/rand"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGroupCountCoverage(t *testing.T) {
	for _, n := range []int{1, 9, 10, 11, 99, 100, 999, 1000, 1001} {
		groups := int(GroupCount(n))
		assert.GreaterOrEqual(t, groups*GroupSize, n, "n=%d", n)
		assert.Less(t, (groups-1)*GroupSize, n, "n=%d", n)
	}
}

func TestRespawnLifetimeDeterministic(t *testing.T) {
	for _, dt := range []float32{0.016, 0.0167, 1.0 / 30} {
		for id := uint32(0); id < 100; id++ {
			a := RespawnLifetime(id, dt)
			b := RespawnLifetime(id, dt)
			assert.Equal(t, a, b, "id=%d dt=%v", id, dt)
		}
	}
}

func TestRespawnLifetimeRange(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	for i := 0; i < 10000; i++ {
		id := rng.Uint32() % PoolSize
		dt := rng.Float32() * 0.1
		life := RespawnLifetime(id, dt)
		assert.GreaterOrEqual(t, life, float32(LifeMin))
		assert.Less(t, life, float32(LifeMax))
	}
}

func TestRespawnLifetimeVaries(t *testing.T) {
	// Not a distribution test, just that the hash is not degenerate.
	seen := make(map[float32]bool)
	for id := uint32(0); id < 100; id++ {
		seen[RespawnLifetime(id, 0.016)] = true
	}
	assert.Greater(t, len(seen), 90)
}

func TestAdvanceFadeLaw(t *testing.T) {
	pool := []Particle{{
		Position: mgl32.Vec2{0.1, 0.1},
		Velocity: mgl32.Vec2{0.2, 0},
		Color:    mgl32.Vec4{1, 0, 0, 1},
		Age:      0.5,
		LifeTime: 2.0,
	}}
	Advance(pool, mgl32.Vec2{}, 0.016)

	p := pool[0]
	age := float32(0.5) + float32(0.016)
	assert.Equal(t, age, p.Age)
	assert.Equal(t, 1-age/float32(2.0), p.Color[3], "alpha must be exactly 1 - age/lifeTime")
	wantX := float32(0.1) + float32(0.2)*float32(0.016)
	assert.Equal(t, mgl32.Vec2{wantX, 0.1}, p.Position)
	assert.Equal(t, mgl32.Vec2{0.2, 0}, p.Velocity)
}

func TestAdvanceRespawnResets(t *testing.T) {
	emitter := mgl32.Vec2{0.5, -0.5}
	pool := []Particle{{
		Position: mgl32.Vec2{-0.9, 0.3},
		Velocity: mgl32.Vec2{0.1, 0.1},
		Color:    mgl32.Vec4{0.2, 0.4, 0.6, 0.01},
		Age:      1.99,
		LifeTime: 2.0,
	}}
	Advance(pool, emitter, 0.016)

	p := pool[0]
	assert.Equal(t, emitter, p.Position, "respawn lands exactly on the emitter")
	assert.Equal(t, float32(0), p.Age)
	assert.Equal(t, float32(1), p.Color[3])
	assert.Equal(t, RespawnLifetime(0, 0.016), p.LifeTime)
	assert.GreaterOrEqual(t, p.LifeTime, float32(LifeMin))
	assert.Less(t, p.LifeTime, float32(LifeMax))

	// Velocity survives respawn: particles keep their launch direction
	// for the life of the process.
	assert.Equal(t, mgl32.Vec2{0.1, 0.1}, p.Velocity)
}

func TestAdvanceRespawnBoundary(t *testing.T) {
	// 0.25 and 1.0 are exact in float32; age reaches lifeTime exactly on
	// the fourth step and must respawn on that step (>=, not >).
	pool := []Particle{{LifeTime: 1.0, Color: mgl32.Vec4{1, 1, 1, 1}}}
	for i := 0; i < 3; i++ {
		Advance(pool, mgl32.Vec2{}, 0.25)
		assert.Greater(t, pool[0].LifeTime, float32(0.99), "no respawn before the boundary")
		assert.Equal(t, float32(0.25*float64(i+1)), pool[0].Age)
	}
	Advance(pool, mgl32.Vec2{0.3, 0.7}, 0.25)
	assert.Equal(t, float32(0), pool[0].Age, "age == lifeTime respawns that step")
	assert.Equal(t, mgl32.Vec2{0.3, 0.7}, pool[0].Position)
}

func TestAdvanceAgeBounds(t *testing.T) {
	pool := NewPool(mgl32.Vec2{}, rand.New(rand.NewSource(11)))
	for step := 0; step < 500; step++ {
		Advance(pool, mgl32.Vec2{0.2, 0.2}, 0.016)
		for i, p := range pool {
			require.GreaterOrEqual(t, p.Age, float32(0), "step %d particle %d", step, i)
			require.LessOrEqual(t, p.Age, p.LifeTime, "step %d particle %d", step, i)
		}
	}
}

func TestAdvanceEndToEndRespawn(t *testing.T) {
	const dt = 0.016
	emitter := mgl32.Vec2{0.5, -0.5}

	pool := NewPool(mgl32.Vec2{}, rand.New(rand.NewSource(1)))
	deadline := make([]int, len(pool))
	for i, p := range pool {
		deadline[i] = int(math.Ceil(float64(p.LifeTime) / dt))
	}

	firstRespawn := make([]int, len(pool))
	for i := range firstRespawn {
		firstRespawn[i] = -1
	}

	maxSteps := 0
	for _, d := range deadline {
		if d > maxSteps {
			maxSteps = d
		}
	}
	maxSteps++ // accumulated float32 ages can cross the boundary one step late

	for step := 1; step <= maxSteps; step++ {
		before := make([]float32, len(pool))
		for i, p := range pool {
			before[i] = p.Age
		}
		Advance(pool, emitter, dt)
		for i, p := range pool {
			if firstRespawn[i] < 0 && p.Age < before[i] {
				firstRespawn[i] = step
				assert.Less(t, p.Age, float32(dt), "particle %d age after respawn", i)
				assert.Equal(t, emitter, p.Position, "particle %d respawn position", i)
			}
		}
	}

	for i := range pool {
		require.GreaterOrEqual(t, firstRespawn[i], 0, "particle %d never respawned", i)
		assert.LessOrEqual(t, firstRespawn[i], deadline[i]+1, "particle %d respawned too late", i)
	}
}

func TestDivergence(t *testing.T) {
	a := NewPool(mgl32.Vec2{}, rand.New(rand.NewSource(5)))
	b := Clone(a)
	assert.Empty(t, Divergence(a, b, 1e-6))

	b[3].Age += 0.5
	b[17].Position[0] += 1
	assert.Equal(t, []int{3, 17}, Divergence(a, b, 1e-6))

	// Within tolerance
	c := Clone(a)
	c[0].Age += 1e-4
	assert.Empty(t, Divergence(a, c, 0.01))
}
