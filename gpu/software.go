package gpu

import (
	"fmt"
	"math"
	"sync"

	"github.com/Sansa-Organisation/vidra-sub000/effectdsl"
)

// SoftwareDevice runs every built-in kernel and DSL-originated custom
// shader as a closed-form per-pixel Go function. It is the default Device:
// the core render path must stay deterministic and runnable without an
// available graphics driver, so no kernel here depends on actual GPU
// hardware. Raw hand-authored WGSL source (not produced by the effectdsl
// compiler) is rejected: CompileShader returns the effectdsl compile error.
type SoftwareDevice struct {
	mu      sync.Mutex
	nextID  ShaderHandle
	shaders map[ShaderHandle]*effectdsl.Program
}

// NewSoftwareDevice returns a ready-to-use CPU device.
func NewSoftwareDevice() *SoftwareDevice {
	return &SoftwareDevice{shaders: make(map[ShaderHandle]*effectdsl.Program)}
}

func (d *SoftwareDevice) RunKernel(kind KernelKind, src *Image, p Params) (*Image, error) {
	switch kind {
	case KernelBlur:
		return blurKernel(src, p.Radius), nil
	case KernelGrayscale:
		return mapPixels(src, func(c [4]float64) [4]float64 {
			return grayscalePixel(c, p.Amount)
		}), nil
	case KernelInvert:
		return mapPixels(src, func(c [4]float64) [4]float64 {
			return invertPixel(c, p.Amount)
		}), nil
	case KernelBrightness:
		return mapPixels(src, func(c [4]float64) [4]float64 {
			return brightnessPixel(c, p.Amount)
		}), nil
	case KernelContrast:
		return mapPixels(src, func(c [4]float64) [4]float64 {
			return contrastPixel(c, p.Amount)
		}), nil
	case KernelSaturation:
		return mapPixels(src, func(c [4]float64) [4]float64 {
			return saturationPixel(c, p.Amount)
		}), nil
	case KernelHueRotate:
		return mapPixels(src, func(c [4]float64) [4]float64 {
			return hueRotatePixel(c, p.Amount)
		}), nil
	case KernelVignette:
		return vignetteKernel(src, p.Amount), nil
	}
	return nil, fmt.Errorf("gpu: unknown kernel kind %d", kind)
}

func (d *SoftwareDevice) CompileShader(source string) (ShaderHandle, error) {
	prog, _, err := effectdsl.Compile(source)
	if err != nil {
		return 0, fmt.Errorf("gpu: compiling custom shader: %w", err)
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.nextID++
	handle := d.nextID
	d.shaders[handle] = prog
	return handle, nil
}

func (d *SoftwareDevice) RunShader(handle ShaderHandle, src *Image, timeSeconds float64) (*Image, error) {
	d.mu.Lock()
	prog, ok := d.shaders[handle]
	d.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("gpu: unknown shader handle %d", handle)
	}
	out := &Image{Width: src.Width, Height: src.Height, Pix: make([]byte, len(src.Pix))}
	sampleFn := func(uv [2]float64) [4]float64 {
		x := int(uv[0] * float64(src.Width))
		y := int(uv[1] * float64(src.Height))
		return src.At(x, y)
	}
	for y := 0; y < src.Height; y++ {
		for x := 0; x < src.Width; x++ {
			uv := [2]float64{
				(float64(x) + 0.5) / float64(src.Width),
				(float64(y) + 0.5) / float64(src.Height),
			}
			color := src.At(x, y)
			v, err := effectdsl.Eval(prog, uv, color, timeSeconds, nil, sampleFn)
			if err != nil {
				return nil, fmt.Errorf("gpu: evaluating custom shader at (%d,%d): %w", x, y, err)
			}
			out.Set(x, y, v.Comp)
		}
	}
	return out, nil
}

func mapPixels(src *Image, f func([4]float64) [4]float64) *Image {
	out := &Image{Width: src.Width, Height: src.Height, Pix: make([]byte, len(src.Pix))}
	for y := 0; y < src.Height; y++ {
		for x := 0; x < src.Width; x++ {
			out.Set(x, y, f(src.At(x, y)))
		}
	}
	return out
}

func grayscalePixel(c [4]float64, amount float64) [4]float64 {
	luma := c[0]*0.299 + c[1]*0.587 + c[2]*0.114
	return [4]float64{
		lerp(c[0], luma, amount),
		lerp(c[1], luma, amount),
		lerp(c[2], luma, amount),
		c[3],
	}
}

func invertPixel(c [4]float64, amount float64) [4]float64 {
	return [4]float64{
		lerp(c[0], 1-c[0], amount),
		lerp(c[1], 1-c[1], amount),
		lerp(c[2], 1-c[2], amount),
		c[3],
	}
}

func brightnessPixel(c [4]float64, amount float64) [4]float64 {
	return [4]float64{clampUnit(c[0] + amount), clampUnit(c[1] + amount), clampUnit(c[2] + amount), c[3]}
}

func contrastPixel(c [4]float64, amount float64) [4]float64 {
	factor := 1 + amount
	adjust := func(v float64) float64 { return clampUnit((v-0.5)*factor + 0.5) }
	return [4]float64{adjust(c[0]), adjust(c[1]), adjust(c[2]), c[3]}
}

func saturationPixel(c [4]float64, amount float64) [4]float64 {
	luma := c[0]*0.299 + c[1]*0.587 + c[2]*0.114
	return [4]float64{
		clampUnit(lerp(luma, c[0], 1+amount)),
		clampUnit(lerp(luma, c[1], 1+amount)),
		clampUnit(lerp(luma, c[2], 1+amount)),
		c[3],
	}
}

// hueRotatePixel rotates hue by amount*360 degrees via an RGB<->HSL round-trip.
func hueRotatePixel(c [4]float64, amount float64) [4]float64 {
	h, s, l := rgbToHSL(c[0], c[1], c[2])
	h = math.Mod(h+amount*360, 360)
	if h < 0 {
		h += 360
	}
	r, g, b := hslToRGB(h, s, l)
	return [4]float64{r, g, b, c[3]}
}

func rgbToHSL(r, g, b float64) (h, s, l float64) {
	max := math.Max(r, math.Max(g, b))
	min := math.Min(r, math.Min(g, b))
	l = (max + min) / 2
	if max == min {
		return 0, 0, l
	}
	d := max - min
	if l > 0.5 {
		s = d / (2 - max - min)
	} else {
		s = d / (max + min)
	}
	switch max {
	case r:
		h = math.Mod((g-b)/d, 6)
	case g:
		h = (b-r)/d + 2
	case b:
		h = (r-g)/d + 4
	}
	h *= 60
	if h < 0 {
		h += 360
	}
	return h, s, l
}

func hslToRGB(h, s, l float64) (r, g, b float64) {
	if s == 0 {
		return l, l, l
	}
	var q float64
	if l < 0.5 {
		q = l * (1 + s)
	} else {
		q = l + s - l*s
	}
	p := 2*l - q
	hk := h / 360
	r = hueToRGB(p, q, hk+1.0/3)
	g = hueToRGB(p, q, hk)
	b = hueToRGB(p, q, hk-1.0/3)
	return r, g, b
}

func hueToRGB(p, q, t float64) float64 {
	if t < 0 {
		t++
	}
	if t > 1 {
		t--
	}
	switch {
	case t < 1.0/6:
		return p + (q-p)*6*t
	case t < 1.0/2:
		return q
	case t < 2.0/3:
		return p + (q-p)*(2.0/3-t)*6
	default:
		return p
	}
}

func vignetteKernel(src *Image, amount float64) *Image {
	out := &Image{Width: src.Width, Height: src.Height, Pix: make([]byte, len(src.Pix))}
	cx, cy := float64(src.Width)/2, float64(src.Height)/2
	maxDist := math.Hypot(cx, cy)
	for y := 0; y < src.Height; y++ {
		for x := 0; x < src.Width; x++ {
			c := src.At(x, y)
			dist := math.Hypot(float64(x)-cx, float64(y)-cy) / maxDist
			falloff := 1 - amount*clampUnit(dist)
			out.Set(x, y, [4]float64{c[0] * falloff, c[1] * falloff, c[2] * falloff, c[3]})
		}
	}
	return out
}

// blurKernel applies a separable Gaussian blur; radius is clamped to a
// sane upper bound to keep the kernel size bounded. Taps past the image
// border repeat the nearest edge pixel.
func blurKernel(src *Image, radius float64) *Image {
	const maxRadius = 32.0
	if radius > maxRadius {
		radius = maxRadius
	}
	if radius <= 0 {
		return src.clone()
	}
	r := int(math.Ceil(radius))
	sigma := radius / 2
	weights := make([]float64, 2*r+1)
	sum := 0.0
	for i := -r; i <= r; i++ {
		w := math.Exp(-float64(i*i) / (2 * sigma * sigma))
		weights[i+r] = w
		sum += w
	}
	for i := range weights {
		weights[i] /= sum
	}

	horiz := &Image{Width: src.Width, Height: src.Height, Pix: make([]byte, len(src.Pix))}
	for y := 0; y < src.Height; y++ {
		for x := 0; x < src.Width; x++ {
			var acc [4]float64
			for i := -r; i <= r; i++ {
				sx := x + i
				if sx < 0 {
					sx = 0
				} else if sx >= src.Width {
					sx = src.Width - 1
				}
				c := src.At(sx, y)
				w := weights[i+r]
				acc[0] += c[0] * w
				acc[1] += c[1] * w
				acc[2] += c[2] * w
				acc[3] += c[3] * w
			}
			horiz.Set(x, y, acc)
		}
	}

	out := &Image{Width: src.Width, Height: src.Height, Pix: make([]byte, len(src.Pix))}
	for y := 0; y < src.Height; y++ {
		for x := 0; x < src.Width; x++ {
			var acc [4]float64
			for i := -r; i <= r; i++ {
				sy := y + i
				if sy < 0 {
					sy = 0
				} else if sy >= src.Height {
					sy = src.Height - 1
				}
				c := horiz.At(x, sy)
				w := weights[i+r]
				acc[0] += c[0] * w
				acc[1] += c[1] * w
				acc[2] += c[2] * w
				acc[3] += c[3] * w
			}
			out.Set(x, y, acc)
		}
	}
	return out
}

func (img *Image) clone() *Image {
	out := &Image{Width: img.Width, Height: img.Height, Pix: make([]byte, len(img.Pix))}
	copy(out.Pix, img.Pix)
	return out
}

func lerp(a, b, t float64) float64 { return a + (b-a)*t }

func clampUnit(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
