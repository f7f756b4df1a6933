package gpu

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/go-gl/mathgl/mgl32"

	"github.com/emberline/ember/internal/logging"
)

// UniformBlock is a small name-addressed uniform buffer. Setters look the
// field up by name; an unknown name is logged and skipped, never fatal —
// the field simply stays at its previous value for the frame.
type UniformBlock struct {
	queue   *wgpu.Queue
	buf     *wgpu.Buffer
	log     logging.Logger
	label   string
	data    []byte
	offsets map[string]int
	dirty   bool
}

// NewUniformBlock allocates a uniform buffer of the given size with a
// name → byte offset layout table.
func NewUniformBlock(device *wgpu.Device, queue *wgpu.Queue, log logging.Logger, label string, size int, layout map[string]int) (*UniformBlock, error) {
	if log == nil {
		log = logging.NewNopLogger()
	}
	buf, err := device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: label,
		Size:  uint64(size),
		Usage: wgpu.BufferUsageUniform | wgpu.BufferUsageCopyDst,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create uniform buffer %s: %w", label, err)
	}
	return &UniformBlock{
		queue:   queue,
		buf:     buf,
		log:     log,
		label:   label,
		data:    make([]byte, size),
		offsets: layout,
	}, nil
}

func (u *UniformBlock) Buffer() *wgpu.Buffer { return u.buf }

func (u *UniformBlock) lookup(name string, width int) (int, bool) {
	off, ok := u.offsets[name]
	if !ok {
		u.log.Warnf("%s uniform %q not found", u.label, name)
		return 0, false
	}
	if off+width > len(u.data) {
		u.log.Warnf("%s uniform %q overflows block", u.label, name)
		return 0, false
	}
	return off, true
}

func (u *UniformBlock) SetFloat(name string, v float32) {
	off, ok := u.lookup(name, 4)
	if !ok {
		return
	}
	binary.LittleEndian.PutUint32(u.data[off:], math.Float32bits(v))
	u.dirty = true
}

func (u *UniformBlock) SetVec2(name string, v mgl32.Vec2) {
	off, ok := u.lookup(name, 8)
	if !ok {
		return
	}
	binary.LittleEndian.PutUint32(u.data[off:], math.Float32bits(v[0]))
	binary.LittleEndian.PutUint32(u.data[off+4:], math.Float32bits(v[1]))
	u.dirty = true
}

// Flush writes the staged bytes to the device. Values bound at flush time
// are the ones the next dispatch observes.
func (u *UniformBlock) Flush() {
	if !u.dirty {
		return
	}
	u.queue.WriteBuffer(u.buf, 0, u.data)
	u.dirty = false
}

func (u *UniformBlock) Release() {
	if u.buf != nil {
		u.buf.Release()
		u.buf = nil
	}
}
