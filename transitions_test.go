package vidra

import "testing"

func solidPair(w, h int) (*FrameBuffer, *FrameBuffer) {
	prev := SolidFrameBuffer(w, h, Color{R: 1, A: 1})
	cur := SolidFrameBuffer(w, h, Color{B: 1, A: 1})
	return prev, cur
}

func TestPushTransitionAtZeroShowsOnlyPrev(t *testing.T) {
	prev, cur := solidPair(10, 10)
	out := pushTransition(prev, cur, DirLeft, 0)
	for _, p := range [][2]int{{0, 0}, {9, 9}, {5, 5}} {
		got := out.At(p[0], p[1])
		if got.R != 1 || got.B != 0 {
			t.Fatalf("at u=0 expected prev's color everywhere, got %+v at %v", got, p)
		}
	}
}

func TestPushTransitionAtOneShowsOnlyCur(t *testing.T) {
	prev, cur := solidPair(10, 10)
	out := pushTransition(prev, cur, DirLeft, 1)
	for _, p := range [][2]int{{0, 0}, {9, 9}, {5, 5}} {
		got := out.At(p[0], p[1])
		if got.B != 1 || got.R != 0 {
			t.Fatalf("at u=1 expected cur's color everywhere, got %+v at %v", got, p)
		}
	}
}

func TestPushTransitionMidpointSplitsCanvasByDirection(t *testing.T) {
	prev, cur := solidPair(10, 10)
	out := pushTransition(prev, cur, DirLeft, 0.5)
	// DirLeft: cur enters from the right, travelling toward center; at u=0.5
	// cur occupies the trailing half of the canvas in x.
	right := out.At(9, 5)
	left := out.At(0, 5)
	if right.B != 1 {
		t.Fatalf("expected incoming cur near the leading edge, got %+v", right)
	}
	if left.R != 1 {
		t.Fatalf("expected outgoing prev near the trailing edge, got %+v", left)
	}
}

func TestSlideTransitionAtZeroShowsOnlyPrev(t *testing.T) {
	prev, cur := solidPair(8, 8)
	out := slideTransition(prev, cur, DirRight, 0)
	got := out.At(4, 4)
	if got.R != 1 || got.B != 0 {
		t.Fatalf("at u=0 expected prev unchanged, got %+v", got)
	}
}

func TestSlideTransitionAtOneShowsOnlyCur(t *testing.T) {
	prev, cur := solidPair(8, 8)
	out := slideTransition(prev, cur, DirRight, 1)
	for y := 0; y < 8; y++ {
		for x := 0; x < 8; x++ {
			got := out.At(x, y)
			if got.B != 1 || got.R != 0 {
				t.Fatalf("at u=1 expected cur to fully cover the canvas, got %+v at (%d,%d)", got, x, y)
			}
		}
	}
}

func TestSlideTransitionLeavesPrevUnderUncoveredArea(t *testing.T) {
	prev, cur := solidPair(8, 8)
	out := slideTransition(prev, cur, DirDown, 0.25)
	// DirDown: cur enters from the top, sliding down; the bottom rows are
	// still uncovered by cur this early and should show prev.
	bottom := out.At(4, 7)
	if bottom.R != 1 {
		t.Fatalf("expected prev to still show through the uncovered area, got %+v", bottom)
	}
}

func TestDirectionOffsetConvergesToZeroAtU1(t *testing.T) {
	for _, dir := range []Direction{DirLeft, DirRight, DirUp, DirDown} {
		x, y := directionOffset(dir, 100, 100, 1)
		if x != 0 || y != 0 {
			t.Fatalf("expected zero offset at u=1 for direction %v, got (%d,%d)", dir, x, y)
		}
	}
}

func TestSampleOffsetReportsOutOfBounds(t *testing.T) {
	fb := SolidFrameBuffer(4, 4, Color{R: 1, A: 1})
	if _, ok := sampleOffset(fb, -1, 0, 4, 4); ok {
		t.Fatalf("expected an out-of-bounds x to report not-ok")
	}
	if _, ok := sampleOffset(fb, 0, 4, 4, 4); ok {
		t.Fatalf("expected an out-of-bounds y to report not-ok")
	}
	if c, ok := sampleOffset(fb, 0, 0, 4, 4); !ok || c.R != 1 {
		t.Fatalf("expected an in-bounds sample to succeed, got %+v, %v", c, ok)
	}
}

func TestBlendTransitionNilReturnsCurUnchanged(t *testing.T) {
	_, cur := solidPair(4, 4)
	if out := blendTransition(nil, cur, nil, 0.5); out != cur {
		t.Fatalf("expected a nil transition to return cur as-is")
	}
}
