package vidra

import (
	"math"

	"github.com/tanema/gween/ease"
)

// Color is a straight-alpha RGBA color with components in [0, 1].
// Premultiplication happens only at the point a buffer is composited.
type Color struct {
	R, G, B, A float64
}

var (
	ColorBlack       = Color{0, 0, 0, 1}
	ColorWhite       = Color{1, 1, 1, 1}
	ColorTransparent = Color{0, 0, 0, 0}
	// ColorMagenta is the asset-fallback color for a missing image.
	ColorMagenta = Color{1, 0, 1, 1}
	// ColorNeutralGrey is the asset-fallback color for a missing/undecodable video.
	ColorNeutralGrey = Color{0.5, 0.5, 0.5, 1}
)

// Lerp linearly interpolates between two colors component-wise.
func (c Color) Lerp(to Color, t float64) Color {
	return Color{
		R: lerp(c.R, to.R, t),
		G: lerp(c.G, to.G, t),
		B: lerp(c.B, to.B, t),
		A: lerp(c.A, to.A, t),
	}
}

// RGBA8 returns the color as 8-bit straight-alpha RGBA, clamped to [0, 255].
func (c Color) RGBA8() (r, g, b, a uint8) {
	return clamp8(c.R), clamp8(c.G), clamp8(c.B), clamp8(c.A)
}

func clamp8(v float64) uint8 {
	if v <= 0 {
		return 0
	}
	if v >= 1 {
		return 255
	}
	return uint8(v*255 + 0.5)
}

func lerp(a, b, t float64) float64 { return a + (b-a)*t }

// clampUnit clamps v to [0, 1].
func clampUnit(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// Point2D is a 2D point or vector used for positions, anchors, and sizes.
type Point2D struct {
	X, Y float64
}

// Duration is a length of scene/animation time, stored in seconds.
// Frame-domain conversions always go through a project or scene fps, never
// a hard-coded frame rate, so the same Duration means a different frame
// count at 24 fps than at 60 fps.
type Duration float64

// Seconds constructs a Duration from a count of seconds.
func Seconds(s float64) Duration { return Duration(s) }

// Frames converts this duration to a whole number of frames at fps,
// rounding to the nearest frame (half away from zero).
func (d Duration) Frames(fps float64) int64 {
	if fps <= 0 {
		return 0
	}
	return int64(math.Round(float64(d) * fps))
}

// Easing is a deterministic closed-form function u -> u' used to reshape
// segment progress before interpolation. It is an alias of gween's
// TweenFunc.
type Easing = ease.TweenFunc

// EasingKind is the closed set of supported easing curves. Each resolves
// to a gween/ease function via EasingFunc.
type EasingKind uint8

const (
	EaseLinear EasingKind = iota
	EaseIn
	EaseOut
	EaseInOut
	EaseCubicIn
	EaseCubicOut
	EaseCubicInOut
	EaseOutBack
)

// EasingFunc resolves a closed EasingKind to its gween/ease implementation.
func EasingFunc(k EasingKind) Easing {
	switch k {
	case EaseLinear:
		return ease.Linear
	case EaseIn:
		return ease.InQuad
	case EaseOut:
		return ease.OutQuad
	case EaseInOut:
		return ease.InOutQuad
	case EaseCubicIn:
		return ease.InCubic
	case EaseCubicOut:
		return ease.OutCubic
	case EaseCubicInOut:
		return ease.InOutCubic
	case EaseOutBack:
		return ease.OutBack
	default:
		return ease.Linear
	}
}

// Apply evaluates the easing curve at progress u (expected in [0,1], but
// EaseOutBack may overshoot above 1 near u=1 and the function is not
// clamped -- callers that need u' in [0,1] must clamp explicitly).
func (k EasingKind) Apply(u float64) float64 {
	fn := EasingFunc(k)
	// gween's ease.TweenFunc has signature (position, begin, change, duration float32) float32,
	// the classic Robert Penner parameterization. We drive it with begin=0, change=1, duration=1
	// so fn(u, 0, 1, 1) evaluates the normalized curve at u.
	return float64(fn(float32(u), 0, 1, 1))
}

// PixelFormat identifies a FrameBuffer's pixel encoding. Only Rgba8 is
// produced by this engine today.
type PixelFormat uint8

const (
	FormatRGBA8 PixelFormat = iota
)

// FrameBuffer is a decoded RGBA8, straight-alpha pixel buffer: the unit of
// output this engine produces and the unit every content
// renderer and effect pass operates on internally.
type FrameBuffer struct {
	Width, Height int
	Format        PixelFormat
	Pix           []byte // len == Width*Height*4, row-major, RGBA8 straight alpha
}

// NewFrameBuffer allocates a zeroed (fully transparent) buffer of the given size.
func NewFrameBuffer(w, h int) *FrameBuffer {
	return &FrameBuffer{Width: w, Height: h, Format: FormatRGBA8, Pix: make([]byte, w*h*4)}
}

// SolidFrameBuffer allocates a buffer filled uniformly with c.
func SolidFrameBuffer(w, h int, c Color) *FrameBuffer {
	fb := NewFrameBuffer(w, h)
	fb.Fill(c)
	return fb
}

// Fill overwrites every pixel with c.
func (f *FrameBuffer) Fill(c Color) {
	r, g, b, a := c.RGBA8()
	for i := 0; i < len(f.Pix); i += 4 {
		f.Pix[i] = r
		f.Pix[i+1] = g
		f.Pix[i+2] = b
		f.Pix[i+3] = a
	}
}

// Clone returns an independent deep copy of the buffer.
func (f *FrameBuffer) Clone() *FrameBuffer {
	cp := &FrameBuffer{Width: f.Width, Height: f.Height, Format: f.Format, Pix: make([]byte, len(f.Pix))}
	copy(cp.Pix, f.Pix)
	return cp
}

// At returns the straight-alpha color at (x, y), or transparent if out of bounds.
func (f *FrameBuffer) At(x, y int) Color {
	if x < 0 || y < 0 || x >= f.Width || y >= f.Height {
		return ColorTransparent
	}
	i := (y*f.Width + x) * 4
	return Color{
		R: float64(f.Pix[i]) / 255,
		G: float64(f.Pix[i+1]) / 255,
		B: float64(f.Pix[i+2]) / 255,
		A: float64(f.Pix[i+3]) / 255,
	}
}

// Set writes a straight-alpha color at (x, y). No-op if out of bounds.
func (f *FrameBuffer) Set(x, y int, c Color) {
	if x < 0 || y < 0 || x >= f.Width || y >= f.Height {
		return
	}
	i := (y*f.Width + x) * 4
	r, g, b, a := c.RGBA8()
	f.Pix[i], f.Pix[i+1], f.Pix[i+2], f.Pix[i+3] = r, g, b, a
}

// BilinearAt samples the buffer at fractional coordinates using bilinear
// interpolation; out-of-bounds samples contribute transparent black.
func (f *FrameBuffer) BilinearAt(x, y float64) Color {
	x0 := math.Floor(x)
	y0 := math.Floor(y)
	fx := x - x0
	fy := y - y0

	c00 := f.At(int(x0), int(y0))
	c10 := f.At(int(x0)+1, int(y0))
	c01 := f.At(int(x0), int(y0)+1)
	c11 := f.At(int(x0)+1, int(y0)+1)

	top := c00.Lerp(c10, fx)
	bot := c01.Lerp(c11, fx)
	return top.Lerp(bot, fy)
}
