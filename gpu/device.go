// Package gpu implements the built-in effect kernels and custom-shader
// execution behind a small device abstraction: a src/dst image in, image
// out filter shape generalized to a device-agnostic pixel buffer so the
// default path never requires a real graphics driver.
package gpu

// Image is the pixel buffer a Device operates on: tightly packed RGBA8,
// row-major, no stride padding.
type Image struct {
	Width, Height int
	Pix           []byte
}

// At returns the RGBA8 pixel at (x, y) as four floats in [0, 1].
func (img *Image) At(x, y int) [4]float64 {
	if x < 0 || y < 0 || x >= img.Width || y >= img.Height {
		return [4]float64{}
	}
	i := (y*img.Width + x) * 4
	return [4]float64{
		float64(img.Pix[i]) / 255,
		float64(img.Pix[i+1]) / 255,
		float64(img.Pix[i+2]) / 255,
		float64(img.Pix[i+3]) / 255,
	}
}

// Set writes an RGBA8 pixel at (x, y) from four floats in [0, 1].
func (img *Image) Set(x, y int, c [4]float64) {
	if x < 0 || y < 0 || x >= img.Width || y >= img.Height {
		return
	}
	i := (y*img.Width + x) * 4
	img.Pix[i] = clamp8(c[0])
	img.Pix[i+1] = clamp8(c[1])
	img.Pix[i+2] = clamp8(c[2])
	img.Pix[i+3] = clamp8(c[3])
}

func clamp8(v float64) byte {
	if v <= 0 {
		return 0
	}
	if v >= 1 {
		return 255
	}
	return byte(v*255 + 0.5)
}

// KernelKind enumerates the built-in effect kernels.
type KernelKind uint8

const (
	KernelBlur KernelKind = iota
	KernelGrayscale
	KernelInvert
	KernelBrightness
	KernelContrast
	KernelSaturation
	KernelHueRotate
	KernelVignette
)

// Params carries the scalar knobs a built-in kernel reads. Not every field
// applies to every kernel; unused fields are ignored.
type Params struct {
	Amount float64
	Radius float64
}

// ShaderHandle identifies a compiled custom shader (DSL-originated or raw
// WGSL) previously registered with a Device via CompileShader.
type ShaderHandle uint64

// Device executes built-in kernels and custom shaders against an Image. The
// default device (SoftwareDevice) does this entirely on the CPU so the core
// render path never depends on an available graphics driver; the optional
// WebGPUDevice compiles shader modules with a real driver but does not
// execute them (its RunShader always returns an error).
type Device interface {
	// RunKernel applies a built-in effect kernel to src, returning a new
	// Image of the same dimensions.
	RunKernel(kind KernelKind, src *Image, p Params) (*Image, error)
	// CompileShader compiles custom-shader source (DSL source text; see the
	// effectdsl package) and returns a handle for repeated RunShader calls.
	CompileShader(source string) (ShaderHandle, error)
	// RunShader executes a previously compiled shader over every pixel of
	// src at a given playback time, returning a new Image.
	RunShader(handle ShaderHandle, src *Image, timeSeconds float64) (*Image, error)
}
