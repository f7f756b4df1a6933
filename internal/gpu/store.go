package gpu

import (
	"fmt"

	"github.com/cogentcore/webgpu/wgpu"

	"github.com/emberline/ember/internal/logging"
	"github.com/emberline/ember/internal/sim"
)

// ParticleStore owns the particle pool on the device. Two buffers back
// it: the sim buffer, which the update kernel mutates in place, and the
// vertex buffer the draw pass reads. EncodeHandoff copies sim → vertex
// inside the frame's command stream; submission ordering guarantees the
// draw never observes a partially updated pool.
type ParticleStore struct {
	device *wgpu.Device
	queue  *wgpu.Queue
	log    logging.Logger

	simBuf    *wgpu.Buffer
	vertexBuf *wgpu.Buffer
	size      uint64
	count     int
}

func NewParticleStore(device *wgpu.Device, queue *wgpu.Queue, log logging.Logger) *ParticleStore {
	if log == nil {
		log = logging.NewNopLogger()
	}
	return &ParticleStore{device: device, queue: queue, log: log}
}

// Upload creates both buffers and seeds the sim buffer with the initial
// pool. The pool size is fixed from this point on.
func (s *ParticleStore) Upload(pool []sim.Particle) error {
	data := sim.Bytes(pool)

	simBuf, err := s.device.CreateBufferInit(&wgpu.BufferInitDescriptor{
		Label:    "ParticleSim",
		Contents: data,
		Usage:    wgpu.BufferUsageStorage | wgpu.BufferUsageCopySrc | wgpu.BufferUsageCopyDst,
	})
	if err != nil {
		return fmt.Errorf("failed to create sim buffer: %w", err)
	}

	vertexBuf, err := s.device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: "ParticleVertices",
		Size:  uint64(len(data)),
		Usage: wgpu.BufferUsageVertex | wgpu.BufferUsageCopyDst,
	})
	if err != nil {
		simBuf.Release()
		return fmt.Errorf("failed to create vertex buffer: %w", err)
	}

	s.simBuf = simBuf
	s.vertexBuf = vertexBuf
	s.size = uint64(len(data))
	s.count = len(pool)
	return nil
}

func (s *ParticleStore) Count() int { return s.count }

// SimBuffer is the compute-writable side, bound as storage.
func (s *ParticleStore) SimBuffer() *wgpu.Buffer { return s.simBuf }

// VertexBuffer is the render-readable snapshot produced by the handoff.
func (s *ParticleStore) VertexBuffer() *wgpu.Buffer { return s.vertexBuf }

// Size is the pool size in bytes.
func (s *ParticleStore) Size() uint64 { return s.size }

// EncodeHandoff records the sim → vertex copy. Must be encoded after the
// compute pass in the same command stream.
func (s *ParticleStore) EncodeHandoff(encoder *wgpu.CommandEncoder) {
	encoder.CopyBufferToBuffer(s.simBuf, 0, s.vertexBuf, 0, s.size)
}

// ReadBack pulls the whole sim buffer to the CPU through a staging
// buffer. The blocking map forces completion of all prior submissions, so
// this stalls the pipeline; diagnostic use only.
func (s *ParticleStore) ReadBack() ([]sim.Particle, error) {
	staging, err := s.device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: "ParticleStaging",
		Size:  s.size,
		Usage: wgpu.BufferUsageMapRead | wgpu.BufferUsageCopyDst,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create staging buffer: %w", err)
	}
	defer staging.Release()

	encoder, err := s.device.CreateCommandEncoder(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create command encoder: %w", err)
	}
	encoder.CopyBufferToBuffer(s.simBuf, 0, staging, 0, s.size)
	commands, err := encoder.Finish(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to finish encoder: %w", err)
	}
	s.queue.Submit(commands)
	commands.Release()

	done := make(chan error, 1)
	err = staging.MapAsync(wgpu.MapModeRead, 0, s.size, func(status wgpu.BufferMapAsyncStatus) {
		if status != wgpu.BufferMapAsyncStatusSuccess {
			done <- fmt.Errorf("failed to map staging buffer: %v", status)
		} else {
			done <- nil
		}
	})
	if err != nil {
		return nil, err
	}

	s.device.Poll(true, nil)
	if err := <-done; err != nil {
		return nil, err
	}

	mapped := staging.GetMappedRange(0, uint(s.size))
	pool := sim.FromBytes(mapped)
	staging.Unmap()

	return pool, nil
}

// Release frees both device buffers.
func (s *ParticleStore) Release() {
	if s.vertexBuf != nil {
		s.vertexBuf.Release()
		s.vertexBuf = nil
	}
	if s.simBuf != nil {
		s.simBuf.Release()
		s.simBuf = nil
	}
}
