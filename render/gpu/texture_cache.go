package gpu

import (
	"sync"

	"github.com/cogentcore/webgpu/wgpu"
)

// textureCacheRetainFrames is how many frames an unused texture survives.
const textureCacheRetainFrames = 3

type textureKey struct {
	label         string
	size          wgpu.Extent3D
	mipLevelCount uint32
	sampleCount   uint32
	dimension     wgpu.TextureDimension
	format        wgpu.TextureFormat
	usage         wgpu.TextureUsage
}

type cachedTexture struct {
	texture      *Texture
	view         *TextureView
	taken        bool
	framesUnused int
}

type CachedTexture struct {
	Texture *Texture
	View    *TextureView
}

// TextureCache hands out per-frame attachment textures, reusing any texture
// with an equal descriptor that was not handed out yet this frame.
type TextureCache struct {
	mu       sync.Mutex
	textures map[textureKey][]*cachedTexture
}

func NewTextureCache() *TextureCache {
	return &TextureCache{textures: make(map[textureKey][]*cachedTexture)}
}

func (c *TextureCache) Get(device Device, desc *wgpu.TextureDescriptor) CachedTexture {
	key := textureKey{
		label:         desc.Label,
		size:          desc.Size,
		mipLevelCount: desc.MipLevelCount,
		sampleCount:   desc.SampleCount,
		dimension:     desc.Dimension,
		format:        desc.Format,
		usage:         desc.Usage,
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	for _, t := range c.textures[key] {
		if !t.taken {
			t.taken = true
			t.framesUnused = 0
			return CachedTexture{Texture: t.texture, View: t.view}
		}
	}

	texture := device.CreateTexture(desc)
	view := device.CreateTextureView(texture, nil)
	c.textures[key] = append(c.textures[key], &cachedTexture{texture: texture, view: view, taken: true})
	return CachedTexture{Texture: texture, View: view}
}

// Update ends the frame: every texture becomes available again and textures
// unused for too long are destroyed.
func (c *TextureCache) Update(device Device) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for key, list := range c.textures {
		kept := list[:0]
		for _, t := range list {
			if t.taken {
				t.taken = false
				t.framesUnused = 0
			} else {
				t.framesUnused++
			}
			if t.framesUnused > textureCacheRetainFrames {
				device.DestroyTexture(t.texture)
				continue
			}
			kept = append(kept, t)
		}
		if len(kept) == 0 {
			delete(c.textures, key)
			continue
		}
		c.textures[key] = kept
	}
}

func (c *TextureCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	n := 0
	for _, list := range c.textures {
		n += len(list)
	}
	return n
}
