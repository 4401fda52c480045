package shaders

import (
	_ "embed"
)

// Handle identifies a shader source independently of how it was loaded.
type Handle uint64

// SkyboxHandle is stable across runs so pipeline descriptors can name it before the source is registered.
const SkyboxHandle Handle = 55594763423201

// UpscalingHandle is the fullscreen blit of an HDR main texture into the window.
const UpscalingHandle Handle = 14589267395627146578

//go:embed skybox.wgsl
var SkyboxWGSL string

//go:embed upscaling.wgsl
var UpscalingWGSL string

// Builtin returns the embedded shader sources keyed by handle.
func Builtin() map[Handle]string {
	return map[Handle]string{
		SkyboxHandle:    SkyboxWGSL,
		UpscalingHandle: UpscalingWGSL,
	}
}
