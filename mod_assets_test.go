package corepipeline

import (
	"image"
	"image/color"
	"testing"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gekko3d/corepipeline/render/gpu"
)

func solidFace(size int, c color.RGBA) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, size, size))
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			img.SetRGBA(x, y, c)
		}
	}
	return img
}

func solidFaces(size int) [6]image.Image {
	var faces [6]image.Image
	for i := range faces {
		faces[i] = solidFace(size, color.RGBA{R: uint8(i * 40), G: 10, B: 20, A: 255})
	}
	return faces
}

func TestNewCubemapImage(t *testing.T) {
	faces := solidFaces(4)
	faces[3] = solidFace(8, color.RGBA{R: 200, G: 100, B: 50, A: 255})

	img, err := NewCubemapImage(faces)
	require.NoError(t, err)

	assert.True(t, img.Cube)
	assert.Equal(t, uint32(6), img.Layers)
	assert.Equal(t, uint32(4), img.Width)
	assert.Equal(t, uint32(4), img.Height)
	assert.Equal(t, wgpu.TextureFormatRGBA8UnormSrgb, img.Format)
	require.Len(t, img.Data, 6*4*4*4)

	faceBytes := 4 * 4 * 4
	assert.Equal(t, []byte{80, 10, 20, 255}, img.Data[2*faceBytes:2*faceBytes+4])
	scaled := img.Data[3*faceBytes : 3*faceBytes+4]
	for i, want := range []byte{200, 100, 50, 255} {
		assert.InDelta(t, want, scaled[i], 1, "larger faces are scaled down")
	}
}

func TestNewCubemapImage_Errors(t *testing.T) {
	faces := solidFaces(4)
	faces[5] = nil
	_, err := NewCubemapImage(faces)
	assert.ErrorIs(t, err, ErrCubemapFaces)

	faces = solidFaces(4)
	faces[0] = image.NewRGBA(image.Rect(0, 0, 4, 2))
	_, err = NewCubemapImage(faces)
	assert.ErrorIs(t, err, ErrCubemapFaces)

	_, err = NewCubemapImage([6]image.Image{})
	assert.ErrorIs(t, err, ErrCubemapFaces)
}

func TestNewImage(t *testing.T) {
	src := image.NewNRGBA(image.Rect(0, 0, 3, 2))
	src.SetNRGBA(2, 1, color.NRGBA{R: 255, A: 255})

	img := NewImage(src)
	assert.Equal(t, uint32(3), img.Width)
	assert.Equal(t, uint32(2), img.Height)
	assert.Equal(t, uint32(1), img.Layers)
	assert.False(t, img.Cube)
	assert.Len(t, img.Data, 3*2*4)
}

func TestImages_Events(t *testing.T) {
	images := NewImages()
	a := images.Add(&Image{Width: 1})
	b := images.Add(&Image{Width: 2})
	images.Set(a, &Image{Width: 3})
	images.Remove(b)
	images.Remove(Handle{})

	got, ok := images.Get(a)
	require.True(t, ok)
	assert.Equal(t, uint32(3), got.Width)
	_, ok = images.Get(b)
	assert.False(t, ok)

	changed, removed := images.drainEvents()
	assert.Equal(t, []Handle{a, b, a}, changed)
	assert.Equal(t, []Handle{b}, removed)

	changed, removed = images.drainEvents()
	assert.Empty(t, changed)
	assert.Empty(t, removed)
}

func TestPrepareRenderImages_UploadsCubemap(t *testing.T) {
	app, device := newHeadlessApp(t, RenderModule{})
	cmd := app.Commands()

	cubemap, err := NewCubemapImage(solidFaces(4))
	require.NoError(t, err)
	images, _ := Resource[Images](cmd)
	h := images.Add(cubemap)

	renderImages, _ := Resource[RenderImages](cmd)
	_, ok := renderImages.Get(h)
	assert.False(t, ok, "nothing is resident before Prepare ran")

	app.Update()

	gpuImage, ok := renderImages.Get(h)
	require.True(t, ok)
	assert.Equal(t, wgpu.TextureViewDimensionCube, gpuImage.TextureView.Dimension)
	assert.NotNil(t, gpuImage.Sampler)
	assert.Equal(t, [2]uint32{4, 4}, gpuImage.Size)

	writes := device.TextureWrites()
	require.Len(t, writes, 6)
	for i, w := range writes {
		assert.Equal(t, uint32(i), w.Layer)
		assert.Equal(t, 4*4*4, w.Bytes)
		assert.Equal(t, uint32(16), w.BytesPerRow)
		assert.Equal(t, gpuImage.Texture.ID, w.Texture)
	}
}

func TestPrepareRenderImages_RespectsBudget(t *testing.T) {
	cubeBytes := uint64(6 * 4 * 4 * 4)
	app, _ := newHeadlessApp(t, RenderModule{AssetBytesPerFrame: cubeBytes})
	cmd := app.Commands()

	images, _ := Resource[Images](cmd)
	renderImages, _ := Resource[RenderImages](cmd)
	first, _ := NewCubemapImage(solidFaces(4))
	second, _ := NewCubemapImage(solidFaces(4))
	a := images.Add(first)
	b := images.Add(second)

	app.Update()
	_, okA := renderImages.Get(a)
	_, okB := renderImages.Get(b)
	assert.True(t, okA)
	assert.False(t, okB, "second image is over budget and stays pending")

	app.Update()
	_, okB = renderImages.Get(b)
	assert.True(t, okB)
}

func TestPrepareRenderImages_OversizedImageStillUploads(t *testing.T) {
	app, _ := newHeadlessApp(t, RenderModule{AssetBytesPerFrame: 1})
	cmd := app.Commands()

	images, _ := Resource[Images](cmd)
	renderImages, _ := Resource[RenderImages](cmd)
	cubemap, _ := NewCubemapImage(solidFaces(4))
	h := images.Add(cubemap)

	app.Update()
	_, ok := renderImages.Get(h)
	assert.True(t, ok)
}

func TestPrepareRenderImages_RemoveReleasesTexture(t *testing.T) {
	app, device := newHeadlessApp(t, RenderModule{})
	cmd := app.Commands()

	images, _ := Resource[Images](cmd)
	renderImages, _ := Resource[RenderImages](cmd)
	cubemap, _ := NewCubemapImage(solidFaces(4))
	h := images.Add(cubemap)

	app.Update()
	live := device.LiveTextures()

	images.Remove(h)
	app.Update()

	_, ok := renderImages.Get(h)
	assert.False(t, ok)
	assert.Equal(t, live-1, device.LiveTextures())
}

func TestPrepareRenderImages_ReplacementReuploads(t *testing.T) {
	app, device := newHeadlessApp(t, RenderModule{})
	cmd := app.Commands()

	images, _ := Resource[Images](cmd)
	renderImages, _ := Resource[RenderImages](cmd)
	cubemap, _ := NewCubemapImage(solidFaces(4))
	h := images.Add(cubemap)
	app.Update()
	before, _ := renderImages.Get(h)
	live := device.LiveTextures()

	bigger, _ := NewCubemapImage(solidFaces(8))
	images.Set(h, bigger)
	app.Update()

	after, ok := renderImages.Get(h)
	require.True(t, ok)
	assert.NotEqual(t, before.Texture.ID, after.Texture.ID)
	assert.Equal(t, [2]uint32{8, 8}, after.Size)
	assert.Equal(t, live, device.LiveTextures(), "the old texture is destroyed")
	assert.IsType(t, &gpu.GpuImage{}, after)
}
