package corepipeline

import (
	"errors"
	"fmt"
	"image"
	"sync"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/google/uuid"
	"golang.org/x/image/draw"

	"github.com/gekko3d/corepipeline/render/gpu"
)

var ErrCubemapFaces = errors.New("cubemap faces must be square and non-empty")

// Handle identifies an image asset.
type Handle uuid.UUID

func (h Handle) String() string {
	return uuid.UUID(h).String()
}

// Image is CPU-side RGBA8 texel data, one layer after another.
type Image struct {
	Data   []byte
	Width  uint32
	Height uint32
	Layers uint32
	Format wgpu.TextureFormat
	Cube   bool
}

func (img *Image) byteSize() uint64 {
	return uint64(len(img.Data))
}

// NewImage converts any image to a single-layer RGBA8 sRGB image.
func NewImage(src image.Image) *Image {
	rgba := toRGBA(src, src.Bounds().Dx(), src.Bounds().Dy())
	return &Image{
		Data:   rgba.Pix,
		Width:  uint32(rgba.Rect.Dx()),
		Height: uint32(rgba.Rect.Dy()),
		Layers: 1,
		Format: wgpu.TextureFormatRGBA8UnormSrgb,
	}
}

// NewCubemapImage builds a six-layer cube image from faces ordered +X, -X, +Y, -Y, +Z, -Z.
// Faces of a different size are scaled to the size of the first face.
func NewCubemapImage(faces [6]image.Image) (*Image, error) {
	if faces[0] == nil {
		return nil, fmt.Errorf("%w: face 0 is nil", ErrCubemapFaces)
	}
	size := faces[0].Bounds().Dx()
	if size == 0 || size != faces[0].Bounds().Dy() {
		return nil, fmt.Errorf("%w: face 0 is %v", ErrCubemapFaces, faces[0].Bounds().Size())
	}

	faceBytes := size * size * 4
	data := make([]byte, 0, faceBytes*6)
	for i, face := range faces {
		if face == nil {
			return nil, fmt.Errorf("%w: face %d is nil", ErrCubemapFaces, i)
		}
		data = append(data, toRGBA(face, size, size).Pix...)
	}

	return &Image{
		Data:   data,
		Width:  uint32(size),
		Height: uint32(size),
		Layers: 6,
		Format: wgpu.TextureFormatRGBA8UnormSrgb,
		Cube:   true,
	}, nil
}

func toRGBA(src image.Image, width, height int) *image.RGBA {
	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	if src.Bounds().Dx() == width && src.Bounds().Dy() == height {
		draw.Draw(dst, dst.Bounds(), src, src.Bounds().Min, draw.Src)
	} else {
		draw.ApproxBiLinear.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Src, nil)
	}
	return dst
}

// Images is the CPU image store. Changes are picked up by the render side in Prepare.
type Images struct {
	mu      sync.Mutex
	assets  map[Handle]*Image
	changed []Handle
	removed []Handle
}

func NewImages() *Images {
	return &Images{assets: make(map[Handle]*Image)}
}

func (s *Images) Add(img *Image) Handle {
	h := Handle(uuid.New())
	s.Set(h, img)
	return h
}

// Set inserts or replaces the image behind h.
func (s *Images) Set(h Handle, img *Image) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.assets[h] = img
	s.changed = append(s.changed, h)
}

func (s *Images) Get(h Handle) (*Image, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	img, ok := s.assets[h]
	return img, ok
}

func (s *Images) Remove(h Handle) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.assets[h]; !ok {
		return
	}
	delete(s.assets, h)
	s.removed = append(s.removed, h)
}

func (s *Images) drainEvents() (changed, removed []Handle) {
	s.mu.Lock()
	defer s.mu.Unlock()
	changed, removed = s.changed, s.removed
	s.changed, s.removed = nil, nil
	return changed, removed
}

// RenderImages holds uploaded images. An image is absent until its upload happened.
type RenderImages struct {
	ready   map[Handle]*gpu.GpuImage
	pending []Handle
}

func NewRenderImages() *RenderImages {
	return &RenderImages{ready: make(map[Handle]*gpu.GpuImage)}
}

func (r *RenderImages) Get(h Handle) (*gpu.GpuImage, bool) {
	img, ok := r.ready[h]
	return img, ok
}

// prepareRenderImagesSystem uploads changed images while the per-frame byte budget
// allows. The first upload of a frame always proceeds so a large image cannot stall forever.
func prepareRenderImagesSystem(cmd *Commands, images *Images, renderImages *RenderImages, device *RenderDevice, settings *RenderSettings) {
	changed, removed := images.drainEvents()

	for _, h := range removed {
		if img, ok := renderImages.ready[h]; ok {
			device.Device.DestroyTexture(img.Texture)
			delete(renderImages.ready, h)
		}
	}
	for _, h := range changed {
		if !containsHandle(renderImages.pending, h) {
			renderImages.pending = append(renderImages.pending, h)
		}
	}

	var written uint64
	var uploads int
	remaining := renderImages.pending[:0]
	for _, h := range renderImages.pending {
		img, ok := images.Get(h)
		if !ok {
			continue
		}
		size := img.byteSize()
		if settings.AssetBytesPerFrame > 0 && uploads > 0 && written+size > settings.AssetBytesPerFrame {
			remaining = append(remaining, h)
			continue
		}

		if old, ok := renderImages.ready[h]; ok {
			device.Device.DestroyTexture(old.Texture)
		}
		renderImages.ready[h] = uploadImage(device, h, img)
		written += size
		uploads++
		cmd.Logger().Debugf("uploaded image %s (%dx%dx%d, %d bytes)", h, img.Width, img.Height, img.Layers, size)
	}
	renderImages.pending = remaining
}

func uploadImage(device *RenderDevice, h Handle, img *Image) *gpu.GpuImage {
	label := "image_" + h.String()
	texture := device.Device.CreateTexture(&wgpu.TextureDescriptor{
		Label:         label,
		Size:          wgpu.Extent3D{Width: img.Width, Height: img.Height, DepthOrArrayLayers: img.Layers},
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     wgpu.TextureDimension2D,
		Format:        img.Format,
		Usage:         wgpu.TextureUsageTextureBinding | wgpu.TextureUsageCopyDst,
	})

	bytesPerRow := img.Width * 4
	layerBytes := uint64(bytesPerRow) * uint64(img.Height)
	for layer := uint32(0); layer < img.Layers; layer++ {
		start := uint64(layer) * layerBytes
		device.Queue.WriteTexture(texture, layer, img.Data[start:start+layerBytes], bytesPerRow)
	}

	viewDesc := &wgpu.TextureViewDescriptor{
		Label:           label,
		Format:          img.Format,
		Dimension:       wgpu.TextureViewDimension2D,
		BaseMipLevel:    0,
		MipLevelCount:   1,
		BaseArrayLayer:  0,
		ArrayLayerCount: img.Layers,
		Aspect:          wgpu.TextureAspectAll,
	}
	if img.Cube {
		viewDesc.Dimension = wgpu.TextureViewDimensionCube
	} else if img.Layers > 1 {
		viewDesc.Dimension = wgpu.TextureViewDimension2DArray
	}

	sampler := device.Device.CreateSampler(&wgpu.SamplerDescriptor{
		Label:         label,
		AddressModeU:  wgpu.AddressModeClampToEdge,
		AddressModeV:  wgpu.AddressModeClampToEdge,
		AddressModeW:  wgpu.AddressModeClampToEdge,
		MagFilter:     wgpu.FilterModeLinear,
		MinFilter:     wgpu.FilterModeLinear,
		MipmapFilter:  wgpu.MipmapFilterModeLinear,
		LodMinClamp:   0,
		LodMaxClamp:   32,
		MaxAnisotropy: 1,
	})

	return &gpu.GpuImage{
		Texture:     texture,
		TextureView: device.Device.CreateTextureView(texture, viewDesc),
		Sampler:     sampler,
		Size:        [2]uint32{img.Width, img.Height},
	}
}

func containsHandle(list []Handle, h Handle) bool {
	for _, x := range list {
		if x == h {
			return true
		}
	}
	return false
}
