package gpu

import (
	"encoding/binary"
	"math"
	"testing"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testUniform struct {
	A float32
	B float32
}

func TestDynamicUniformBuffer_AlignedOffsets(t *testing.T) {
	u := NewDynamicUniformBuffer[testUniform]("test_uniforms")

	assert.Equal(t, uint32(0), u.Push(testUniform{A: 1}))
	assert.Equal(t, uint32(256), u.Push(testUniform{A: 2}))
	assert.Equal(t, uint32(512), u.Push(testUniform{A: 3}))
	assert.Equal(t, 3, u.Len())
}

func TestDynamicUniformBuffer_BindingAfterWrite(t *testing.T) {
	device := NewRecordingDevice()
	u := NewDynamicUniformBuffer[testUniform]("test_uniforms")

	_, ok := u.Binding()
	assert.False(t, ok, "no binding before the first write")

	u.Push(testUniform{A: 1, B: 2})
	u.Push(testUniform{A: 3, B: 4})
	u.Write(device, device)

	binding, ok := u.Binding()
	require.True(t, ok)
	assert.Equal(t, uint64(8), binding.Size)
	assert.Equal(t, uint64(0), binding.Offset)
	assert.Equal(t, uint64(512), binding.Buffer.Size)

	data := device.BufferContents(binding.Buffer)
	require.Len(t, data, 512)
	assert.Equal(t, float32(3), math.Float32frombits(binary.LittleEndian.Uint32(data[256:])))
	assert.Equal(t, float32(4), math.Float32frombits(binary.LittleEndian.Uint32(data[260:])))
}

func TestDynamicUniformBuffer_ReusesBuffer(t *testing.T) {
	device := NewRecordingDevice()
	u := NewDynamicUniformBuffer[testUniform]("test_uniforms")

	u.Push(testUniform{})
	u.Push(testUniform{})
	u.Write(device, device)
	first, _ := u.Binding()

	u.Clear()
	u.Push(testUniform{})
	u.Write(device, device)
	second, _ := u.Binding()
	assert.Equal(t, first.Buffer.ID, second.Buffer.ID)

	u.Clear()
	for range 4 {
		u.Push(testUniform{})
	}
	u.Write(device, device)
	grown, _ := u.Binding()
	assert.NotEqual(t, first.Buffer.ID, grown.Buffer.ID)
	assert.Equal(t, 1, device.LiveBuffers(), "the outgrown buffer is destroyed")
}

func TestTextureCache_ReuseAndEviction(t *testing.T) {
	device := NewRecordingDevice()
	cache := NewTextureCache()
	desc := &wgpu.TextureDescriptor{
		Label:         "depth",
		Size:          wgpu.Extent3D{Width: 64, Height: 64, DepthOrArrayLayers: 1},
		MipLevelCount: 1,
		SampleCount:   4,
		Format:        wgpu.TextureFormatDepth32Float,
		Usage:         wgpu.TextureUsageRenderAttachment,
	}

	a := cache.Get(device, desc)
	b := cache.Get(device, desc)
	assert.NotEqual(t, a.Texture.ID, b.Texture.ID, "two views in one frame get distinct textures")

	cache.Update(device)
	c := cache.Get(device, desc)
	assert.Contains(t, []ResourceID{a.Texture.ID, b.Texture.ID}, c.Texture.ID)
	assert.Equal(t, 2, cache.Len())

	for range textureCacheRetainFrames + 2 {
		cache.Update(device)
	}
	assert.Equal(t, 0, cache.Len())
	assert.Equal(t, 0, device.LiveTextures())
}
