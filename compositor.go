package vidra

import (
	"fmt"
	"math"
	"runtime"
	"sync"

	"github.com/Sansa-Organisation/vidra-sub000/gpu"
)

// Pipeline is the deterministic, parallel frame compositor:
// a pure function of (project, frame_index) scheduled across a bounded
// worker pool that sizes itself to the host's CPU count by default.
type Pipeline struct {
	Workers int
	Device  gpu.Device

	pool *bufferPool
	luts *lutCache
}

// NewPipeline returns a ready-to-use Pipeline. workers, if non-nil,
// overrides the default of runtime.NumCPU() concurrent frame renders.
func NewPipeline(workers *int) *Pipeline {
	w := runtime.NumCPU()
	if workers != nil && *workers > 0 {
		w = *workers
	}
	return &Pipeline{
		Workers: w,
		Device:  gpu.NewSoftwareDevice(),
		pool:    newBufferPool(),
		luts:    newLutCache(),
	}
}

// RenderResult is the output of a full batch render.
type RenderResult struct {
	Frames      []*FrameBuffer
	FrameHashes []string
	OutputHash  string
}

// Render renders every frame of proj across the worker pool, in
// frame-index order in the output slice regardless of completion order
//. Validation errors
// are fatal and returned before any frame is scheduled; a render error on
// any frame is fatal for the whole batch.
func (p *Pipeline) Render(proj *Project) (*RenderResult, error) {
	if err := proj.Validate(); err != nil {
		return nil, err
	}
	total := proj.TotalFrames()
	frames := make([]*FrameBuffer, total)
	errs := make([]error, total)
	renderer := NewRenderer(proj.Assets)

	jobs := make(chan int64)
	var wg sync.WaitGroup
	for i := 0; i < p.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range jobs {
				fb, err := p.RenderFrameIndex(proj, renderer, idx)
				frames[idx] = fb
				errs[idx] = err
			}
		}()
	}
	go func() {
		for i := int64(0); i < total; i++ {
			jobs <- i
		}
		close(jobs)
	}()
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}
	hashes := make([]string, total)
	for i, fb := range frames {
		hashes[i] = ContentHash(fb)
	}
	return &RenderResult{Frames: frames, FrameHashes: hashes, OutputHash: SequenceHash(hashes)}, nil
}

// RenderFrameIndex renders a single global frame, including any transition
// blend with the previous scene.
// Exposed directly so callers can render frames out of order or re-render
// one frame without a full batch.
func (p *Pipeline) RenderFrameIndex(proj *Project, renderer *Renderer, globalFrame int64) (*FrameBuffer, error) {
	starts, overlaps := sceneFrameStarts(proj)
	sceneIdx, local, ok := locateScene(proj, starts, globalFrame)
	if !ok {
		return nil, renderErrorf("render", fmt.Errorf("frame index %d out of bounds (total %d)", globalFrame, proj.TotalFrames()))
	}

	scene := proj.Scenes[sceneIdx]
	curBuf, err := p.renderScene(proj, renderer, scene, local)
	if err != nil {
		return nil, err
	}

	if sceneIdx > 0 && overlaps[sceneIdx] > 0 && local < overlaps[sceneIdx] {
		prevScene := proj.Scenes[sceneIdx-1]
		prevLocal := local + (starts[sceneIdx] - starts[sceneIdx-1])
		prevBuf, err := p.renderScene(proj, renderer, prevScene, prevLocal)
		if err != nil {
			return nil, err
		}
		progress := float64(local) / float64(overlaps[sceneIdx])
		return blendTransition(prevBuf, curBuf, scene.Transition, progress), nil
	}
	return curBuf, nil
}

// sceneFrameStarts computes each scene's starting global frame and its
// overlap (in frames) with the previous scene, using the same
// transition-overlap subtraction rule already used by Project.TotalFrames.
func sceneFrameStarts(proj *Project) (starts, overlaps []int64) {
	n := len(proj.Scenes)
	starts = make([]int64, n)
	overlaps = make([]int64, n)
	fps := proj.Settings.FPS
	for i, s := range proj.Scenes {
		sf := s.FrameCount(fps)
		if i == 0 {
			starts[0] = 0
			continue
		}
		prevSF := proj.Scenes[i-1].FrameCount(fps)
		var ov int64
		if s.Transition != nil {
			maxOverlap := prevSF
			if sf < maxOverlap {
				maxOverlap = sf
			}
			ov = s.Transition.Duration.Frames(fps)
			if ov > maxOverlap {
				ov = maxOverlap
			}
		}
		overlaps[i] = ov
		starts[i] = starts[i-1] + prevSF - ov
	}
	return starts, overlaps
}

func locateScene(proj *Project, starts []int64, globalFrame int64) (sceneIdx int, local int64, ok bool) {
	fps := proj.Settings.FPS
	for i, s := range proj.Scenes {
		sf := s.FrameCount(fps)
		if globalFrame >= starts[i] && globalFrame < starts[i]+sf {
			return i, globalFrame - starts[i], true
		}
	}
	return 0, 0, false
}

// renderScene renders scene at its scene-local frame into a fresh canvas.
// Animations are evaluated first, against a per-layer clone of
// content/effects/transform; content is then rendered from the mutated
// clone, laid out, masked, filtered, and composited, for every top-level
// layer in order.
func (p *Pipeline) renderScene(proj *Project, renderer *Renderer, scene *Scene, localFrame int64) (*FrameBuffer, error) {
	fps := proj.Settings.FPS
	t := Duration(float64(localFrame) / fps)
	canvas := SolidFrameBuffer(proj.Settings.Width, proj.Settings.Height, proj.Settings.Background)
	ctx := ExprContext{FPS: fps}

	states := map[string]*layerState{}
	collectLayerStates(scene.Layers, t, ctx, states)

	contentByID := map[string]*FrameBuffer{}
	if err := p.renderContents(renderer, scene.Layers, states, proj.Settings.Width, proj.Settings.Height, float64(t), contentByID); err != nil {
		return nil, err
	}
	naturalSizes := map[string]Point2D{}
	for id, fb := range contentByID {
		naturalSizes[id] = Point2D{X: float64(fb.Width), Y: float64(fb.Height)}
	}
	positions, err := ResolveLayout(float64(proj.Settings.Width), float64(proj.Settings.Height), scene.Layers, naturalSizes)
	if err != nil {
		return nil, err
	}

	for _, layer := range scene.Layers {
		buf, transform, opacity, err := p.renderLayerBuffer(layer, states, contentByID, positions, float64(t))
		if err != nil {
			return nil, err
		}
		if buf == nil {
			continue
		}
		compositeLayer(canvas, buf, transform, opacity, IsFullCanvas(layer.Content.Kind))
		p.pool.Release(buf)
	}
	return canvas, nil
}

// layerState holds one layer's per-frame animated content/transform/effects,
// computed once up front so both content rendering and compositing see the
// same mutated values.
type layerState struct {
	content        Content
	transform      Transform2D
	effects        []Effect
	hasConstraints bool
}

// collectLayerStates walks the layer tree evaluating every layer's
// animations against a clone of its content, transform, and effects,
// recursing into children.
func collectLayerStates(layers []*Layer, t Duration, ctx ExprContext, out map[string]*layerState) {
	for _, l := range layers {
		st := &layerState{
			content:        l.Content,
			transform:      l.Transform,
			effects:        cloneEffects(l.Effects),
			hasConstraints: len(l.Constraints) > 0,
		}
		applyLayerAnimations(l, t, ctx, &st.content, &st.transform, st.effects)
		out[l.ID] = st
		collectLayerStates(l.Children, t, ctx, out)
	}
}

// resolvedTransform returns id's animated transform with its layout-resolved
// position substituted in, if id declared a layout constraint. Layers with
// no constraint keep their (possibly animated) transform position, since
// ResolveLayout's box default is the layer's static declared position and
// knows nothing about animation.
func resolvedTransform(id string, states map[string]*layerState, positions map[string]Point2D) Transform2D {
	st := states[id]
	if st == nil {
		return Transform2D{}
	}
	transform := st.transform
	if st.hasConstraints {
		if pos, ok := positions[id]; ok {
			transform.Position = pos
		}
	}
	return transform
}

// renderContents populates contentByID with every layer's (and descendant
// layer's) unmasked, unfiltered content buffer, rendered from its mutated
// content clone, recursing into children.
func (p *Pipeline) renderContents(renderer *Renderer, layers []*Layer, states map[string]*layerState, canvasW, canvasH int, timeSeconds float64, out map[string]*FrameBuffer) error {
	for _, l := range layers {
		st := states[l.ID]
		fb, err := renderer.RenderContent(st.content, Point2D{X: float64(canvasW), Y: float64(canvasH)}, canvasW, canvasH, timeSeconds)
		if err != nil {
			return err
		}
		out[l.ID] = fb
		if err := p.renderContents(renderer, l.Children, states, fb.Width, fb.Height, timeSeconds, out); err != nil {
			return err
		}
	}
	return nil
}

// renderLayerBuffer applies a layer's mask and effect pipeline, composites
// its children on top, and returns the final buffer plus the transform/
// opacity to composite it with into the parent.
// Returns a nil buffer for an invisible layer.
func (p *Pipeline) renderLayerBuffer(layer *Layer, states map[string]*layerState, contentByID map[string]*FrameBuffer, positions map[string]Point2D, timeSeconds float64) (*FrameBuffer, Transform2D, float64, error) {
	if !layer.Visible {
		return nil, Transform2D{}, 0, nil
	}
	transform := resolvedTransform(layer.ID, states, positions)

	content := contentByID[layer.ID]
	if content == nil {
		return nil, transform, 0, nil
	}
	// Work on a pooled copy so content.go's cached/shared buffers (and the
	// contentByID entries other layers may still reference, e.g. a mask
	// source) are never mutated in place.
	buf := p.pool.Acquire(content.Width, content.Height)
	copy(buf.Pix, content.Pix)

	if layer.Mask != "" {
		if maskBuf, ok := contentByID[layer.Mask]; ok {
			maskTransform := resolvedTransform(layer.Mask, states, positions)
			applyMask(buf, maskBuf, transform, maskTransform)
		}
	}

	var effects []Effect
	if st := states[layer.ID]; st != nil {
		effects = st.effects
	}
	for _, e := range effects {
		filtered, err := ApplyEffect(buf, e, p.Device, p.luts, timeSeconds)
		if err != nil {
			return nil, transform, 0, err
		}
		if filtered != buf {
			p.pool.Release(buf)
			buf = filtered
		}
	}

	for _, child := range layer.Children {
		childBuf, childTransform, childOpacity, err := p.renderLayerBuffer(child, states, contentByID, positions, timeSeconds)
		if err != nil {
			return nil, transform, 0, err
		}
		if childBuf != nil {
			compositeLayer(buf, childBuf, childTransform, childOpacity, IsFullCanvas(child.Content.Kind))
			p.pool.Release(childBuf)
		}
	}

	opacity := layer.Opacity * transform.Opacity
	return buf, transform, opacity, nil
}

// applyLayerAnimations evaluates every animation on layer at t and writes
// results into content/transform/effects in place. Properties with no
// matching target field on this content/effect set are evaluated but
// otherwise silently inert.
func applyLayerAnimations(layer *Layer, t Duration, ctx ExprContext, content *Content, transform *Transform2D, effects []Effect) {
	for _, anim := range layer.Animations {
		val, ok, err := anim.Evaluate(t, ctx)
		if err != nil || !ok {
			continue
		}
		switch anim.Property {
		case PropPositionX:
			transform.Position.X = val
		case PropPositionY:
			transform.Position.Y = val
		case PropScaleX:
			transform.Scale.X = val
		case PropScaleY:
			transform.Scale.Y = val
		case PropRotation:
			transform.Rotation = val
		case PropOpacity:
			transform.Opacity = val
		case PropTranslateZ:
			transform.TranslateZ = val
		case PropRotateX:
			transform.RotateX = val
		case PropRotateY:
			transform.RotateY = val
		case PropPerspective:
			transform.Perspective = val
		case PropColorR:
			setContentColor(content, func(c *Color) { c.R = val })
		case PropColorG:
			setContentColor(content, func(c *Color) { c.G = val })
		case PropColorB:
			setContentColor(content, func(c *Color) { c.B = val })
		case PropColorA:
			setContentColor(content, func(c *Color) { c.A = val })
		case PropFontSize:
			content.FontSize = val
		case PropStrokeWidth:
			content.StrokeWidth = val
		case PropVolume:
			content.Volume = val
		case PropBlurRadius:
			mutateFirstEffect(effects, EffectBlur, func(e *Effect) { e.Radius = val })
		case PropBrightnessLevel:
			mutateFirstEffect(effects, EffectBrightness, func(e *Effect) { e.Amount = val })
		}
	}
}

// setContentColor mutates content's primary color field. Text/Solid content
// store their color directly on Content.Color. Shape content is drawn by
// content.go's renderShape from its Fill pointer alone (transparent when
// Fill is nil); renderShape never reads Content.Color, so color animations
// leave a shape's rendered fill unchanged.
func setContentColor(content *Content, mutate func(*Color)) {
	mutate(&content.Color)
}

func mutateFirstEffect(effects []Effect, kind EffectKind, mutate func(*Effect)) {
	for i := range effects {
		if effects[i].Kind == kind {
			mutate(&effects[i])
			return
		}
	}
}

func cloneEffects(effects []Effect) []Effect {
	out := make([]Effect, len(effects))
	copy(out, effects)
	return out
}

// canvasOffset returns a layer's canvas-space top-left corner given its
// resolved transform and content size: position minus the anchor point
// scaled into pixels, the same anchor rule compositeAffine projects local
// coordinates through.
func canvasOffset(transform Transform2D, w, h float64) Point2D {
	return Point2D{
		X: transform.Position.X - transform.Anchor.X*w,
		Y: transform.Position.Y - transform.Anchor.Y*h,
	}
}

// applyMask multiplies dst's alpha channel by mask's alpha. Both buffers are
// aligned in canvas space -- each one's own anchor offset, not a raw
// size-ratio rescale -- so a mask positioned or anchored differently from
// the masked layer still samples the correct underlying pixel. Canvas-space
// pixels the mask's bounds don't cover are fully masked out.
func applyMask(dst, mask *FrameBuffer, dstTransform, maskTransform Transform2D) {
	dstOffset := canvasOffset(dstTransform, float64(dst.Width), float64(dst.Height))
	maskOffset := canvasOffset(maskTransform, float64(mask.Width), float64(mask.Height))

	for y := 0; y < dst.Height; y++ {
		canvasY := dstOffset.Y + float64(y)
		my := int(canvasY - maskOffset.Y)
		for x := 0; x < dst.Width; x++ {
			canvasX := dstOffset.X + float64(x)
			mx := int(canvasX - maskOffset.X)

			var maskAlpha float64
			if mx >= 0 && mx < mask.Width && my >= 0 && my < mask.Height {
				maskAlpha = mask.At(mx, my).A
			}
			c := dst.At(x, y)
			c.A *= maskAlpha
			dst.Set(x, y, c)
		}
	}
}

// compositeLayer blends src onto dst using transform and opacity. Full-
// canvas content kinds (Solid, Shader; see IsFullCanvas) ignore
// position/anchor/rotation and blend directly over the whole canvas
//; everything else goes through the 2D
// affine or 2.5D projective path depending on transform.Is25D().
func compositeLayer(dst, src *FrameBuffer, transform Transform2D, opacity float64, fullCanvas bool) {
	if opacity <= 0 {
		return
	}
	if fullCanvas {
		compositeFullCanvas(dst, src, opacity)
		return
	}
	if transform.Is25D() {
		compositeProjective(dst, src, transform, opacity)
		return
	}
	compositeAffine(dst, src, transform, opacity)
}

func compositeFullCanvas(dst, src *FrameBuffer, opacity float64) {
	for y := 0; y < dst.Height; y++ {
		for x := 0; x < dst.Width; x++ {
			sx := x * src.Width / dst.Width
			sy := y * src.Height / dst.Height
			blendPixel(dst, x, y, src.At(sx, sy), opacity)
		}
	}
}

// blendPixel alpha-composites straight-alpha color c (scaled by opacity)
// over dst's existing pixel at (x, y) using the standard Porter-Duff
// "over" operator.
func blendPixel(dst *FrameBuffer, x, y int, c Color, opacity float64) {
	srcA := c.A * opacity
	if srcA <= 0 {
		return
	}
	d := dst.At(x, y)
	outA := srcA + d.A*(1-srcA)
	if outA <= 0 {
		dst.Set(x, y, ColorTransparent)
		return
	}
	blend := func(sc, dc float64) float64 {
		return (sc*srcA + dc*d.A*(1-srcA)) / outA
	}
	dst.Set(x, y, Color{R: blend(c.R, d.R), G: blend(c.G, d.G), B: blend(c.B, d.B), A: outA})
}

// compositeAffine composites src onto dst via position/anchor/scale/rotation
// (no perspective), sampling src with bilinear interpolation.
func compositeAffine(dst, src *FrameBuffer, transform Transform2D, opacity float64) {
	w, h := float64(src.Width), float64(src.Height)
	anchorPx := Point2D{X: transform.Anchor.X * w, Y: transform.Anchor.Y * h}
	sin, cos := math.Sincos(transform.Rotation * math.Pi / 180)
	sx, sy := nonZero(transform.Scale.X), nonZero(transform.Scale.Y)

	corners := quadCorners(src, transform, func(lx, ly float64) (float64, float64) {
		lx -= anchorPx.X
		ly -= anchorPx.Y
		lx *= sx
		ly *= sy
		rx := lx*cos - ly*sin
		ry := lx*sin + ly*cos
		return transform.Position.X + rx, transform.Position.Y + ry
	})
	minX, minY, maxX, maxY := quadBounds(corners, dst.Width, dst.Height)

	for y := minY; y < maxY; y++ {
		for x := minX; x < maxX; x++ {
			// Invert: dst -> local src space.
			dx := float64(x) + 0.5 - transform.Position.X
			dy := float64(y) + 0.5 - transform.Position.Y
			lx := (dx*cos + dy*sin) / sx
			ly := (-dx*sin + dy*cos) / sy
			lx += anchorPx.X
			ly += anchorPx.Y
			if lx < 0 || ly < 0 || lx >= w || ly >= h {
				continue
			}
			c := src.BilinearAt(lx, ly)
			blendPixel(dst, x, y, c, opacity)
		}
	}
}

func nonZero(v float64) float64 {
	if v == 0 {
		return 1e-9
	}
	return v
}

// quadCorners maps src's four corners through project (a local-space ->
// dst-space function) for bounding-box computation.
func quadCorners(src *FrameBuffer, transform Transform2D, project func(lx, ly float64) (float64, float64)) [4][2]float64 {
	w, h := float64(src.Width), float64(src.Height)
	var out [4][2]float64
	corners := [4][2]float64{{0, 0}, {w, 0}, {w, h}, {0, h}}
	for i, c := range corners {
		x, y := project(c[0], c[1])
		out[i] = [2]float64{x, y}
	}
	return out
}

func quadBounds(corners [4][2]float64, canvasW, canvasH int) (minX, minY, maxX, maxY int) {
	minXf, minYf := corners[0][0], corners[0][1]
	maxXf, maxYf := corners[0][0], corners[0][1]
	for _, c := range corners[1:] {
		minXf, maxXf = math.Min(minXf, c[0]), math.Max(maxXf, c[0])
		minYf, maxYf = math.Min(minYf, c[1]), math.Max(maxYf, c[1])
	}
	minX = clampInt(int(math.Floor(minXf)), 0, canvasW)
	minY = clampInt(int(math.Floor(minYf)), 0, canvasH)
	maxX = clampInt(int(math.Ceil(maxXf)), 0, canvasW)
	maxY = clampInt(int(math.Ceil(maxYf)), 0, canvasH)
	return
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// compositeProjective handles the full 2.5D transform (rotation, rotate_x,
// rotate_y, translate_z, perspective): the source rectangle is mapped
// through a simple perspective camera model into a screen-space quad, and
// every destination pixel inside the quad's bounding box is reverse-mapped
// back to source UV coordinates via inverse bilinear quad interpolation.
func compositeProjective(dst, src *FrameBuffer, transform Transform2D, opacity float64) {
	w, h := float64(src.Width), float64(src.Height)
	anchorPx := Point2D{X: transform.Anchor.X * w, Y: transform.Anchor.Y * h}

	project := func(lx, ly float64) (float64, float64) {
		x := (lx - anchorPx.X) * nonZero(transform.Scale.X)
		y := (ly - anchorPx.Y) * nonZero(transform.Scale.Y)
		z := 0.0

		// Rotate about Z (transform.Rotation, degrees).
		sz, cz := math.Sincos(transform.Rotation * math.Pi / 180)
		x, y = x*cz-y*sz, x*sz+y*cz

		// Rotate about X (affects y, z).
		sx, cx := math.Sincos(transform.RotateX * math.Pi / 180)
		y, z = y*cx-z*sx, y*sx+z*cx

		// Rotate about Y (affects x, z).
		sy, cy := math.Sincos(transform.RotateY * math.Pi / 180)
		x, z = x*cy+z*sy, -x*sy+z*cy

		z += transform.TranslateZ

		factor := 1.0
		if transform.Perspective > 0 {
			denom := transform.Perspective + z
			if denom > 1 {
				factor = transform.Perspective / denom
			}
		}
		return transform.Position.X + x*factor, transform.Position.Y + y*factor
	}

	corners := quadCorners(src, transform, project)
	minX, minY, maxX, maxY := quadBounds(corners, dst.Width, dst.Height)
	p00, p10, p11, p01 := corners[0], corners[1], corners[2], corners[3]

	for y := minY; y < maxY; y++ {
		for x := minX; x < maxX; x++ {
			u, v, ok := invBilinearQuad(p00, p10, p01, p11, float64(x)+0.5, float64(y)+0.5)
			if !ok || u < 0 || u > 1 || v < 0 || v > 1 {
				continue
			}
			c := src.BilinearAt(u*w, v*h)
			blendPixel(dst, x, y, c, opacity)
		}
	}
}

// invBilinearQuad solves for the (u, v) in [0,1]^2 such that the bilinear
// patch spanned by corners p00 (u=0,v=0), p10 (u=1,v=0), p01 (u=0,v=1),
// p11 (u=1,v=1) maps to the point (px, py). Standard reverse-bilinear-
// interpolation quadratic solve; ok is false if no real solution exists.
func invBilinearQuad(p00, p10, p01, p11 [2]float64, px, py float64) (u, v float64, ok bool) {
	ex, ey := p10[0]-p00[0], p10[1]-p00[1]
	fx, fy := p01[0]-p00[0], p01[1]-p00[1]
	gx, gy := p00[0]-p10[0]-p01[0]+p11[0], p00[1]-p10[1]-p01[1]+p11[1]
	hx, hy := px-p00[0], py-p00[1]

	cross := func(ax, ay, bx, by float64) float64 { return ax*by - ay*bx }

	k2 := cross(gx, gy, fx, fy)
	k1 := cross(ex, ey, fx, fy) + cross(hx, hy, gx, gy)
	k0 := cross(hx, hy, ex, ey)

	if math.Abs(k2) < 1e-9 {
		if math.Abs(k1) < 1e-9 {
			return 0, 0, false
		}
		v = -k0 / k1
	} else {
		disc := k1*k1 - 4*k2*k0
		if disc < 0 {
			return 0, 0, false
		}
		sq := math.Sqrt(disc)
		v1 := (-k1 + sq) / (2 * k2)
		v2 := (-k1 - sq) / (2 * k2)
		v = pickInRange(v1, v2)
	}

	denomX := ex + gx*v
	denomY := ey + gy*v
	if math.Abs(denomX) > math.Abs(denomY) {
		u = (hx - fx*v) / denomX
	} else {
		if math.Abs(denomY) < 1e-12 {
			return 0, 0, false
		}
		u = (hy - fy*v) / denomY
	}
	return u, v, true
}

func pickInRange(a, b float64) float64 {
	aIn := a >= -0.01 && a <= 1.01
	bIn := b >= -0.01 && b <= 1.01
	switch {
	case aIn && !bIn:
		return a
	case bIn && !aIn:
		return b
	default:
		return a
	}
}
