package vidra

import (
	"math"
	"sort"
)

// AnimatableProperty is the closed enum of properties an Animation can
// drive. The IR compiler is responsible for expanding any
// source-level shorthand (e.g. a single "color" animation) into the fully
// expanded list of primitive animations seen here, each touching exactly
// one property.
type AnimatableProperty uint8

const (
	PropPositionX AnimatableProperty = iota
	PropPositionY
	PropScaleX
	PropScaleY
	PropRotation
	PropOpacity
	PropColorR
	PropColorG
	PropColorB
	PropColorA
	PropFontSize
	PropCornerRadius
	PropStrokeWidth
	PropCropLeft
	PropCropRight
	PropCropTop
	PropCropBottom
	PropVolume
	PropBlurRadius
	PropBrightnessLevel
	PropTranslateZ
	PropRotateX
	PropRotateY
	PropPerspective
)

// Keyframe is one control point of a keyframed Animation.
type Keyframe struct {
	Time   Duration
	Value  float64
	Easing EasingKind
}

// ExprContext carries the bindings available to an expression-driven
// animation: t, p, T, mouse_x, mouse_y, audio_amp,
// and any user-set state variables.
type ExprContext struct {
	MouseX, MouseY float64
	StateVars      map[string]float64
	// AudioEnvelope, if non-nil, is an RMS amplitude envelope sampled at FPS;
	// audio_amp = AudioEnvelope[floor(effective*FPS)] clamped to [0,1].
	AudioEnvelope []float64
	FPS           float64
}

// Animation drives one AnimatableProperty over scene-local time, either via
// keyframes or a compiled expression.
type Animation struct {
	Property     AnimatableProperty
	Delay        Duration
	Keyframes    []Keyframe
	Expr         string // if non-empty, expression-driven instead of keyframed
	ExprDuration Duration

	compiled     *compiledExpr
	compileErr   error
	compileOnce  bool
}

// Evaluate returns the animation's value at scene-local time t, or (0,
// false) if the animation has not started yet (t < delay).
func (a *Animation) Evaluate(t Duration, ctx ExprContext) (float64, bool, error) {
	effective := t - a.Delay
	if effective < 0 {
		return 0, false, nil
	}

	if a.Expr != "" {
		return a.evaluateExpr(effective, ctx)
	}
	return a.evaluateKeyframes(effective), true, nil
}

func (a *Animation) evaluateExpr(effective Duration, ctx ExprContext) (float64, bool, error) {
	if !a.compileOnce {
		a.compiled, a.compileErr = compileExpr(a.Expr)
		a.compileOnce = true
	}
	if a.compileErr != nil {
		return 0, false, renderErrorf("compile expression", a.compileErr)
	}

	te := float64(effective)
	var p float64
	if a.ExprDuration > 0 {
		if te > float64(a.ExprDuration) {
			te = float64(a.ExprDuration)
		}
		p = clampUnit(te / float64(a.ExprDuration))
	}

	audioAmp := 0.0
	if ctx.AudioEnvelope != nil && ctx.FPS > 0 {
		idx := int(math.Floor(te * ctx.FPS))
		if idx >= 0 && idx < len(ctx.AudioEnvelope) {
			audioAmp = clampUnit(ctx.AudioEnvelope[idx])
		}
	}

	vars := map[string]float64{
		"t":         te,
		"p":         p,
		"T":         float64(a.ExprDuration),
		"mouse_x":   ctx.MouseX,
		"mouse_y":   ctx.MouseY,
		"audio_amp": audioAmp,
	}
	for k, v := range ctx.StateVars {
		vars[k] = v
	}

	val, err := a.compiled.Eval(vars)
	if err != nil {
		return 0, false, renderErrorf("evaluate expression", err)
	}
	return val, true, nil
}

func (a *Animation) evaluateKeyframes(effective Duration) float64 {
	if len(a.Keyframes) == 0 {
		return 0
	}
	if effective <= a.Keyframes[0].Time {
		return a.Keyframes[0].Value
	}
	last := a.Keyframes[len(a.Keyframes)-1]
	if effective >= last.Time {
		return last.Value
	}

	idx := sort.Search(len(a.Keyframes), func(i int) bool {
		return a.Keyframes[i].Time > effective
	})
	k0 := a.Keyframes[idx-1]
	k1 := a.Keyframes[idx]

	span := float64(k1.Time - k0.Time)
	var u float64
	if span > 0 {
		u = float64(effective-k0.Time) / span
	}
	uPrime := k1.Easing.Apply(u)
	return lerp(k0.Value, k1.Value, uPrime)
}

// --- Compile-time animation builders ---

// BuildSpring expands a spring specification into an explicitly sampled
// keyframe sequence using critically/under-damped second-order integration,
// stepped at 1/fps until the value settles within tolerance. There is no
// spring-physics library anywhere in the retrieved corpus, so this is a
// hand-rolled numeric integrator (see DESIGN.md).
func BuildSpring(from, to, stiffness, damping, initialVelocity, fps float64) []Keyframe {
	const (
		tolerance  = 0.001
		maxSeconds = 10.0
	)
	if fps <= 0 {
		fps = 60
	}
	dt := 1.0 / fps

	pos := from
	vel := initialVelocity
	kfs := []Keyframe{{Time: 0, Value: pos, Easing: EaseLinear}}

	steps := int(maxSeconds * fps)
	settledFor := 0
	for i := 1; i <= steps; i++ {
		accel := -stiffness*(pos-to) - damping*vel
		vel += accel * dt
		pos += vel * dt

		t := Duration(float64(i) * dt)
		kfs = append(kfs, Keyframe{Time: t, Value: pos, Easing: EaseLinear})

		if math.Abs(pos-to) < tolerance && math.Abs(vel) < tolerance {
			settledFor++
			if settledFor > int(fps/4) { // settled for a quarter second
				break
			}
		} else {
			settledFor = 0
		}
	}
	// Snap the final sample to the exact target so the animation settles cleanly.
	kfs[len(kfs)-1].Value = to
	return kfs
}

// PathCommand is one parsed SVG path command subset entry.
type PathCommand struct {
	X, Y float64
}

// ParsePath parses the `M x y` / `L x y` SVG path subset into an ordered
// list of vertices.
func ParsePath(d string) ([]PathCommand, error) {
	toks := tokenizePath(d)
	var cmds []PathCommand
	i := 0
	for i < len(toks) {
		op := toks[i]
		i++
		if op != "M" && op != "L" {
			return nil, renderErrorf("parse path", errUnsupportedPathCommand(op))
		}
		if i+1 >= len(toks) {
			return nil, renderErrorf("parse path", errTruncatedPathCommand(op))
		}
		x, errx := parseFloatTok(toks[i])
		y, erry := parseFloatTok(toks[i+1])
		if errx != nil {
			return nil, renderErrorf("parse path", errx)
		}
		if erry != nil {
			return nil, renderErrorf("parse path", erry)
		}
		cmds = append(cmds, PathCommand{X: x, Y: y})
		i += 2
	}
	return cmds, nil
}

// BuildPath expands a parsed path into two synchronized animations
// (PositionX, PositionY) whose keyframes are distributed linearly across
// duration, sharing delay.
func BuildPath(cmds []PathCommand, delay, duration Duration, easing EasingKind) (x, y *Animation) {
	n := len(cmds)
	xKfs := make([]Keyframe, n)
	yKfs := make([]Keyframe, n)
	for i, c := range cmds {
		var t Duration
		if n > 1 {
			t = Duration(float64(duration) * float64(i) / float64(n-1))
		}
		xKfs[i] = Keyframe{Time: t, Value: c.X, Easing: easing}
		yKfs[i] = Keyframe{Time: t, Value: c.Y, Easing: easing}
	}
	x = &Animation{Property: PropPositionX, Delay: delay, Keyframes: xKfs}
	y = &Animation{Property: PropPositionY, Delay: delay, Keyframes: yKfs}
	return
}

// BuildColor expands a single color animation into four parallel animations
// on the ColorR/G/B/A channels, sharing delay/duration/easing.
func BuildColor(from, to Color, delay, duration Duration, easing EasingKind) []*Animation {
	mk := func(prop AnimatableProperty, a, b float64) *Animation {
		return &Animation{
			Property: prop,
			Delay:    delay,
			Keyframes: []Keyframe{
				{Time: 0, Value: a, Easing: easing},
				{Time: duration, Value: b, Easing: easing},
			},
		}
	}
	return []*Animation{
		mk(PropColorR, from.R, to.R),
		mk(PropColorG, from.G, to.G),
		mk(PropColorB, from.B, to.B),
		mk(PropColorA, from.A, to.A),
	}
}
