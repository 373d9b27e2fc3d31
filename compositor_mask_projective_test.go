package vidra

import "testing"

func TestApplyMaskAlignsBuffersByCanvasOffsetNotSizeRatio(t *testing.T) {
	// dst is a 10x10 layer anchored at its top-left, placed at canvas (0,0):
	// its canvas-space footprint is exactly [0,10)x[0,10).
	dst := SolidFrameBuffer(10, 10, Color{R: 1, A: 1})
	dstTransform := Transform2D{Position: Point2D{X: 0, Y: 0}, Anchor: Point2D{}}

	// mask is a 5x5 buffer placed at canvas (5,5): its footprint is
	// [5,10)x[5,10), covering only the bottom-right quadrant of dst.
	mask := SolidFrameBuffer(5, 5, Color{A: 1})
	maskTransform := Transform2D{Position: Point2D{X: 5, Y: 5}, Anchor: Point2D{}}

	applyMask(dst, mask, dstTransform, maskTransform)

	if c := dst.At(1, 1); c.A != 0 {
		t.Fatalf("expected a canvas pixel outside the mask's footprint to be fully masked out, got %+v", c)
	}
	if c := dst.At(7, 7); c.A == 0 {
		t.Fatalf("expected a canvas pixel inside the mask's footprint to pass through, got %+v", c)
	}
	// A naive size-ratio rescale (5x5 stretched over 10x10) would instead
	// treat every dst pixel as covered, since the mask is fully opaque.
	if c := dst.At(0, 0); c.A != 0 {
		t.Fatalf("a size-ratio rescale would incorrectly pass (0,0) through; canvas alignment must mask it out, got %+v", c)
	}
}

func TestApplyMaskHandlesMatchingAnchorsAndPositions(t *testing.T) {
	dst := SolidFrameBuffer(4, 4, Color{R: 1, A: 1})
	mask := SolidFrameBuffer(4, 4, Color{A: 0.5})
	transform := Transform2D{Position: Point2D{X: 20, Y: 20}, Anchor: Point2D{X: 0.5, Y: 0.5}}

	applyMask(dst, mask, transform, transform)

	// The mask's 0.5 alpha is stored as the 8-bit value 128, so the scaled
	// dst alpha reads back as 128/255.
	c := dst.At(2, 2)
	if want := 128.0 / 255; c.A != want {
		t.Fatalf("expected dst alpha scaled by the mask's 0.5 (8-bit 128/255) alpha at an aligned pixel, want %v, got %v", want, c.A)
	}
}

func projectiveTransform(translateZ, perspective float64) Transform2D {
	return Transform2D{
		Position:    Point2D{X: 50, Y: 50},
		Anchor:      Point2D{X: 0.5, Y: 0.5},
		Scale:       Point2D{X: 1, Y: 1},
		TranslateZ:  translateZ,
		Perspective: perspective,
	}
}

// visibleWidth returns the horizontal extent of non-transparent pixels on
// row y, or 0 if the row is empty.
func visibleWidth(fb *FrameBuffer, y int) int {
	minX, maxX := -1, -1
	for x := 0; x < fb.Width; x++ {
		if fb.At(x, y).A > 0 {
			if minX == -1 {
				minX = x
			}
			maxX = x
		}
	}
	if minX == -1 {
		return 0
	}
	return maxX - minX + 1
}

func TestCompositeProjectivePositiveTranslateZRecedesAndShrinks(t *testing.T) {
	src := SolidFrameBuffer(20, 20, Color{R: 1, A: 1})

	receding := NewFrameBuffer(100, 100)
	compositeProjective(receding, src, projectiveTransform(50, 100), 1)

	approaching := NewFrameBuffer(100, 100)
	compositeProjective(approaching, src, projectiveTransform(-50, 100), 1)

	wReceding := visibleWidth(receding, 50)
	wApproaching := visibleWidth(approaching, 50)

	if wReceding == 0 || wApproaching == 0 {
		t.Fatalf("expected both projections to render something, got receding=%d approaching=%d", wReceding, wApproaching)
	}
	if wReceding >= wApproaching {
		t.Fatalf("expected positive translate_z (receding, divided by a larger perspective+z denominator in compositeProjective) to project smaller than negative translate_z (approaching), got receding=%d approaching=%d", wReceding, wApproaching)
	}
}

func TestCompositeProjectiveZeroTranslateZMatchesNoPerspectiveSize(t *testing.T) {
	src := SolidFrameBuffer(20, 20, Color{R: 1, A: 1})

	withPerspective := NewFrameBuffer(100, 100)
	compositeProjective(withPerspective, src, projectiveTransform(0, 100), 1)

	noPerspective := NewFrameBuffer(100, 100)
	compositeProjective(noPerspective, src, projectiveTransform(0, 0), 1)

	w1 := visibleWidth(withPerspective, 50)
	w2 := visibleWidth(noPerspective, 50)
	if w1 != w2 {
		t.Fatalf("expected z=0 to project at the same size regardless of perspective strength, got %d vs %d", w1, w2)
	}
}

func TestCompositeProjectiveRotateYForeshortens(t *testing.T) {
	src := SolidFrameBuffer(20, 20, Color{G: 1, A: 1})
	transform := projectiveTransform(0, 200)
	transform.RotateY = 60

	out := NewFrameBuffer(100, 100)
	compositeProjective(out, src, transform, 1)

	flat := NewFrameBuffer(100, 100)
	compositeProjective(flat, src, projectiveTransform(0, 200), 1)

	wRotated := visibleWidth(out, 50)
	wFlat := visibleWidth(flat, 50)
	if wRotated == 0 {
		t.Fatalf("expected the rotated quad to still render something")
	}
	if wRotated >= wFlat {
		t.Fatalf("expected a 60-degree rotation about Y to foreshorten the horizontal extent, got rotated=%d flat=%d", wRotated, wFlat)
	}
}
