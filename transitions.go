package vidra

// blendTransition composites prevBuf (the outgoing scene) and curBuf (the
// incoming scene) at a given eased progress in [0,1], according to the
// incoming scene's Transition.
// Both buffers are assumed to already be full-canvas, identically-sized
// renders of their respective scenes.
func blendTransition(prevBuf, curBuf *FrameBuffer, tr *Transition, rawProgress float64) *FrameBuffer {
	if tr == nil {
		return curBuf
	}
	u := clampUnit01(rawProgress)
	u = clampUnit01(tr.Easing.Apply(u))

	switch tr.Kind {
	case TransitionWipe:
		return wipeTransition(prevBuf, curBuf, tr.Direction, u)
	case TransitionPush:
		return pushTransition(prevBuf, curBuf, tr.Direction, u)
	case TransitionSlide:
		return slideTransition(prevBuf, curBuf, tr.Direction, u)
	default:
		return crossfadeTransition(prevBuf, curBuf, u)
	}
}

func clampUnit01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// crossfadeTransition alpha-blends every pixel between prev and cur.
func crossfadeTransition(prevBuf, curBuf *FrameBuffer, u float64) *FrameBuffer {
	out := NewFrameBuffer(curBuf.Width, curBuf.Height)
	for y := 0; y < out.Height; y++ {
		for x := 0; x < out.Width; x++ {
			p := prevBuf.At(x, y)
			c := curBuf.At(x, y)
			out.Set(x, y, lerpColor(p, c, u))
		}
	}
	return out
}

func lerpColor(a, b Color, u float64) Color {
	return Color{
		R: a.R + (b.R-a.R)*u,
		G: a.G + (b.G-a.G)*u,
		B: a.B + (b.B-a.B)*u,
		A: a.A + (b.A-a.A)*u,
	}
}

// wipeTransition reveals cur over prev behind a hard edge that sweeps in
// from the Direction edge (DirLeft reveals the left edge first) as u
// advances from 0 to 1.
func wipeTransition(prevBuf, curBuf *FrameBuffer, dir Direction, u float64) *FrameBuffer {
	out := NewFrameBuffer(curBuf.Width, curBuf.Height)
	w, h := out.Width, out.Height
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			revealed := false
			switch dir {
			case DirLeft:
				revealed = float64(x) < u*float64(w)
			case DirRight:
				revealed = float64(w-1-x) < u*float64(w)
			case DirUp:
				revealed = float64(y) < u*float64(h)
			case DirDown:
				revealed = float64(h-1-y) < u*float64(h)
			}
			if revealed {
				out.Set(x, y, curBuf.At(x, y))
			} else {
				out.Set(x, y, prevBuf.At(x, y))
			}
		}
	}
	return out
}

// pushTransition slides both frames together by the same displacement, as
// if cur were pushing prev off the canvas edge in Direction: cur travels
// from fully off-screen to centered while prev travels the same distance
// from centered to fully off-screen on the opposite side.
func pushTransition(prevBuf, curBuf *FrameBuffer, dir Direction, u float64) *FrameBuffer {
	out := NewFrameBuffer(curBuf.Width, curBuf.Height)
	w, h := out.Width, out.Height
	curOffsetX, curOffsetY := directionOffset(dir, w, h, u)
	var prevOffsetX, prevOffsetY int
	switch dir {
	case DirLeft:
		prevOffsetX = curOffsetX - w
	case DirRight:
		prevOffsetX = curOffsetX + w
	case DirUp:
		prevOffsetY = curOffsetY - h
	case DirDown:
		prevOffsetY = curOffsetY + h
	}

	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if c, ok := sampleOffset(curBuf, x-curOffsetX, y-curOffsetY, w, h); ok {
				out.Set(x, y, c)
				continue
			}
			if c, ok := sampleOffset(prevBuf, x-prevOffsetX, y-prevOffsetY, w, h); ok {
				out.Set(x, y, c)
				continue
			}
			out.Set(x, y, ColorTransparent)
		}
	}
	return out
}

func sampleOffset(fb *FrameBuffer, x, y, w, h int) (Color, bool) {
	if x < 0 || x >= w || y < 0 || y >= h {
		return ColorTransparent, false
	}
	return fb.At(x, y), true
}

// slideTransition slides cur in over a stationary prev.
func slideTransition(prevBuf, curBuf *FrameBuffer, dir Direction, u float64) *FrameBuffer {
	out := NewFrameBuffer(curBuf.Width, curBuf.Height)
	w, h := out.Width, out.Height
	offsetX, offsetY := directionOffset(dir, w, h, u)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			cx, cy := x-offsetX, y-offsetY
			if cx >= 0 && cx < w && cy >= 0 && cy < h {
				out.Set(x, y, curBuf.At(cx, cy))
			} else {
				out.Set(x, y, prevBuf.At(x, y))
			}
		}
	}
	return out
}

// directionOffset returns the pixel offset of the incoming frame at
// progress u, travelling in from the named edge toward center (0,0) as
// u reaches 1.
func directionOffset(dir Direction, w, h int, u float64) (int, int) {
	remaining := 1 - u
	switch dir {
	case DirLeft:
		return int(remaining * float64(w)), 0
	case DirRight:
		return -int(remaining * float64(w)), 0
	case DirUp:
		return 0, int(remaining * float64(h))
	case DirDown:
		return 0, -int(remaining * float64(h))
	}
	return 0, 0
}
