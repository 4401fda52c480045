package gpu

import (
	"unsafe"

	"github.com/cogentcore/webgpu/wgpu"
)

// UniformOffsetAlignment is the minimum dynamic uniform offset alignment guaranteed by WebGPU.
const UniformOffsetAlignment = 256

// DynamicUniformBuffer packs one T per pushed value into a single uniform buffer,
// each at a 256-byte aligned offset usable as a dynamic offset.
type DynamicUniformBuffer[T any] struct {
	label    string
	values   []T
	buffer   *Buffer
	capacity uint64
	written  bool
}

func NewDynamicUniformBuffer[T any](label string) *DynamicUniformBuffer[T] {
	return &DynamicUniformBuffer[T]{label: label}
}

func (u *DynamicUniformBuffer[T]) elementSize() uint64 {
	var zero T
	return uint64(unsafe.Sizeof(zero))
}

func (u *DynamicUniformBuffer[T]) stride() uint64 {
	size := u.elementSize()
	return (size + UniformOffsetAlignment - 1) / UniformOffsetAlignment * UniformOffsetAlignment
}

// Push appends a value and returns its dynamic offset.
func (u *DynamicUniformBuffer[T]) Push(value T) uint32 {
	offset := uint64(len(u.values)) * u.stride()
	u.values = append(u.values, value)
	return uint32(offset)
}

func (u *DynamicUniformBuffer[T]) Len() int {
	return len(u.values)
}

// Clear drops pushed values; the GPU buffer is kept for reuse.
func (u *DynamicUniformBuffer[T]) Clear() {
	u.values = u.values[:0]
}

// Write uploads all pushed values, growing the GPU buffer when needed.
func (u *DynamicUniformBuffer[T]) Write(device Device, queue Queue) {
	if len(u.values) == 0 {
		return
	}
	stride := u.stride()
	needed := uint64(len(u.values)) * stride
	if u.buffer == nil || u.capacity < needed {
		if u.buffer != nil {
			device.DestroyBuffer(u.buffer)
		}
		u.buffer = device.CreateBuffer(&wgpu.BufferDescriptor{
			Label: u.label,
			Usage: wgpu.BufferUsageUniform | wgpu.BufferUsageCopyDst,
			Size:  needed,
		})
		u.capacity = needed
	}

	data := make([]byte, needed)
	for i := range u.values {
		copy(data[uint64(i)*stride:], wgpu.ToBytes(u.values[i:i+1]))
	}
	queue.WriteBuffer(u.buffer, 0, data)
	u.written = true
}

// Binding returns a range covering one T, to be bound with a dynamic offset.
// It is not available until the first Write.
func (u *DynamicUniformBuffer[T]) Binding() (*BufferBinding, bool) {
	if u.buffer == nil || !u.written {
		return nil, false
	}
	return &BufferBinding{Buffer: u.buffer, Offset: 0, Size: u.elementSize()}, true
}
