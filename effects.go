package vidra

import (
	"bufio"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/Sansa-Organisation/vidra-sub000/gpu"
)

// Lut is a parsed 3D color lookup table (Adobe/Iridas .cube format), sampled
// with trilinear interpolation.
type Lut struct {
	Size int // N in an NxNxN cube
	Data []Color
}

// index returns the flat Data offset for grid coordinates (r, g, b), each in
// [0, Size); b is the fastest-varying axis, matching the triple order .cube
// files are written in.
func (l *Lut) index(r, g, b int) int { return r*l.Size*l.Size + g*l.Size + b }

// Sample trilinearly interpolates the cube at normalized coordinates in [0, 1]^3.
func (l *Lut) Sample(r, g, b float64) Color {
	n := float64(l.Size - 1)
	rf, gf, bf := clampUnit(r)*n, clampUnit(g)*n, clampUnit(b)*n
	r0, g0, b0 := int(rf), int(gf), int(bf)
	r1, g1, b1 := minInt(r0+1, l.Size-1), minInt(g0+1, l.Size-1), minInt(b0+1, l.Size-1)
	tr, tg, tb := rf-float64(r0), gf-float64(g0), bf-float64(b0)

	c000 := l.Data[l.index(r0, g0, b0)]
	c100 := l.Data[l.index(r1, g0, b0)]
	c010 := l.Data[l.index(r0, g1, b0)]
	c110 := l.Data[l.index(r1, g1, b0)]
	c001 := l.Data[l.index(r0, g0, b1)]
	c101 := l.Data[l.index(r1, g0, b1)]
	c011 := l.Data[l.index(r0, g1, b1)]
	c111 := l.Data[l.index(r1, g1, b1)]

	c00 := c000.Lerp(c100, tr)
	c10 := c010.Lerp(c110, tr)
	c01 := c001.Lerp(c101, tr)
	c11 := c011.Lerp(c111, tr)
	c0 := c00.Lerp(c10, tg)
	c1 := c01.Lerp(c11, tg)
	return c0.Lerp(c1, tb)
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

// ParseCubeLUT reads a `.cube` file: a `LUT_3D_SIZE N` header followed by
// N^3 whitespace-separated "r g b" float triples in [0, 1], blue-fastest
// (then green, then red). Comment lines ("#") and blank lines are skipped.
func ParseCubeLUT(path string) (*Lut, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("lut: opening %s: %w", path, err)
	}
	defer f.Close()

	var size int
	var data []Color
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if strings.HasPrefix(line, "LUT_3D_SIZE") {
			fields := strings.Fields(line)
			if len(fields) != 2 {
				return nil, fmt.Errorf("lut: %s: malformed LUT_3D_SIZE line %q", path, line)
			}
			size, err = strconv.Atoi(fields[1])
			if err != nil {
				return nil, fmt.Errorf("lut: %s: invalid LUT_3D_SIZE %q: %w", path, fields[1], err)
			}
			data = make([]Color, 0, size*size*size)
			continue
		}
		// TITLE, DOMAIN_MIN, DOMAIN_MAX and similar metadata lines begin
		// with an uppercase keyword; only the three-float data rows matter.
		fields := strings.Fields(line)
		if len(fields) != 3 {
			continue
		}
		r, err1 := strconv.ParseFloat(fields[0], 64)
		g, err2 := strconv.ParseFloat(fields[1], 64)
		b, err3 := strconv.ParseFloat(fields[2], 64)
		if err1 != nil || err2 != nil || err3 != nil {
			continue
		}
		data = append(data, Color{R: r, G: g, B: b, A: 1})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("lut: reading %s: %w", path, err)
	}
	if size == 0 {
		return nil, fmt.Errorf("lut: %s: missing LUT_3D_SIZE header", path)
	}
	if len(data) != size*size*size {
		return nil, fmt.Errorf("lut: %s: expected %d entries for size %d, got %d", path, size*size*size, size, len(data))
	}
	return &Lut{Size: size, Data: data}, nil
}

// toGPUImage and fromGPUImage wrap a FrameBuffer's pixel bytes as a
// gpu.Image without copying; both share the same tightly-packed RGBA8 layout.
func toGPUImage(fb *FrameBuffer) *gpu.Image {
	return &gpu.Image{Width: fb.Width, Height: fb.Height, Pix: fb.Pix}
}

func fromGPUImage(img *gpu.Image) *FrameBuffer {
	return &FrameBuffer{Width: img.Width, Height: img.Height, Format: FormatRGBA8, Pix: img.Pix}
}

// ApplyEffect runs one pipeline entry against src and returns the resulting
// buffer. CustomShader's source is effectdsl DSL text (see
// the effectdsl package); a SoftwareDevice can only execute shaders that
// came from that compiler, so hand-authored raw WGSL fails here with a
// RenderError wrapping the effectdsl compile error.
func ApplyEffect(src *FrameBuffer, e Effect, device gpu.Device, luts *lutCache, timeSeconds float64) (*FrameBuffer, error) {
	switch e.Kind {
	case EffectBlur:
		out, err := device.RunKernel(gpu.KernelBlur, toGPUImage(src), gpu.Params{Radius: e.Radius})
		if err != nil {
			return nil, renderErrorf("effect.blur", err)
		}
		return fromGPUImage(out), nil
	case EffectGrayscale:
		out, err := device.RunKernel(gpu.KernelGrayscale, toGPUImage(src), gpu.Params{Amount: e.Amount})
		if err != nil {
			return nil, renderErrorf("effect.grayscale", err)
		}
		return fromGPUImage(out), nil
	case EffectInvert:
		out, err := device.RunKernel(gpu.KernelInvert, toGPUImage(src), gpu.Params{Amount: e.Amount})
		if err != nil {
			return nil, renderErrorf("effect.invert", err)
		}
		return fromGPUImage(out), nil
	case EffectBrightness:
		out, err := device.RunKernel(gpu.KernelBrightness, toGPUImage(src), gpu.Params{Amount: e.Amount})
		if err != nil {
			return nil, renderErrorf("effect.brightness", err)
		}
		return fromGPUImage(out), nil
	case EffectContrast:
		out, err := device.RunKernel(gpu.KernelContrast, toGPUImage(src), gpu.Params{Amount: e.Amount})
		if err != nil {
			return nil, renderErrorf("effect.contrast", err)
		}
		return fromGPUImage(out), nil
	case EffectSaturation:
		out, err := device.RunKernel(gpu.KernelSaturation, toGPUImage(src), gpu.Params{Amount: e.Amount})
		if err != nil {
			return nil, renderErrorf("effect.saturation", err)
		}
		return fromGPUImage(out), nil
	case EffectHueRotate:
		out, err := device.RunKernel(gpu.KernelHueRotate, toGPUImage(src), gpu.Params{Amount: e.Radius / 360})
		if err != nil {
			return nil, renderErrorf("effect.hue_rotate", err)
		}
		return fromGPUImage(out), nil
	case EffectVignette:
		out, err := device.RunKernel(gpu.KernelVignette, toGPUImage(src), gpu.Params{Amount: e.Amount})
		if err != nil {
			return nil, renderErrorf("effect.vignette", err)
		}
		return fromGPUImage(out), nil
	case EffectLut:
		return applyLut(src, e, luts)
	case EffectCustomShader:
		handle, err := device.CompileShader(e.WGSLSource)
		if err != nil {
			return nil, renderErrorf("effect.custom_shader.compile", err)
		}
		out, err := device.RunShader(handle, toGPUImage(src), timeSeconds)
		if err != nil {
			return nil, renderErrorf("effect.custom_shader.run", err)
		}
		return fromGPUImage(out), nil
	case EffectRemoveBackground:
		// Background removal needs an external matting/segmentation model;
		// the core pipeline only consumes an already-materialized alpha
		// image. Left in the effect list with no upstream
		// materialization step, it is a documented no-op.
		log.Printf("vidra: effect.remove_background is a no-op in the core pipeline; materialize alpha externally first")
		return src, nil
	}
	return nil, renderErrorf("effect", fmt.Errorf("unknown effect kind %d", e.Kind))
}

func applyLut(src *FrameBuffer, e Effect, luts *lutCache) (*FrameBuffer, error) {
	lut, err := luts.getOrLoad(e.LutPath, func() (*Lut, error) { return ParseCubeLUT(e.LutPath) })
	if err != nil {
		return nil, renderErrorf("effect.lut", err)
	}
	out := NewFrameBuffer(src.Width, src.Height)
	for y := 0; y < src.Height; y++ {
		for x := 0; x < src.Width; x++ {
			c := src.At(x, y)
			graded := lut.Sample(c.R, c.G, c.B)
			graded.A = c.A
			out.Set(x, y, c.Lerp(graded, clampUnit(e.LutIntensity)))
		}
	}
	return out, nil
}
