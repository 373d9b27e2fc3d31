package vidra

import "testing"

func twoSceneProject(t *testing.T) *Project {
	t.Helper()
	proj := NewProject(Settings{Width: 8, Height: 8, FPS: 10, Background: ColorTransparent})

	s1 := proj.AddScene("s1", Seconds(0.3))
	red := NewLayer("red", Solid(Color{R: 1, A: 1}))
	s1.AddLayer(red)

	s2 := proj.AddScene("s2", Seconds(0.3))
	s2.Transition = &Transition{Kind: TransitionCrossfade, Duration: Seconds(0.1), Easing: EaseLinear}
	blue := NewLayer("blue", Solid(Color{B: 1, A: 1}))
	s2.AddLayer(blue)

	if err := proj.Validate(); err != nil {
		t.Fatalf("unexpected validation error: %v", err)
	}
	return proj
}

func TestSceneFrameStartsAccountsForOverlap(t *testing.T) {
	proj := twoSceneProject(t)
	starts, overlaps := sceneFrameStarts(proj)
	if len(starts) != 2 || len(overlaps) != 2 {
		t.Fatalf("expected 2 scenes, got starts=%v overlaps=%v", starts, overlaps)
	}
	if starts[0] != 0 {
		t.Fatalf("scene 0 should start at frame 0, got %d", starts[0])
	}
	if overlaps[1] != 1 {
		t.Fatalf("expected a 1-frame overlap (0.1s @ 10fps), got %d", overlaps[1])
	}
	// scene 0 has 3 frames, overlap is 1, so scene 1 starts at 3-1=2.
	if starts[1] != 2 {
		t.Fatalf("expected scene 1 to start at frame 2, got %d", starts[1])
	}
}

func TestRenderProducesDeterministicOutputHash(t *testing.T) {
	proj := twoSceneProject(t)
	pipeline := NewPipeline(nil)

	result1, err := pipeline.Render(proj)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	result2, err := pipeline.Render(proj)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if result1.OutputHash != result2.OutputHash {
		t.Fatalf("expected identical renders to hash identically: %s vs %s", result1.OutputHash, result2.OutputHash)
	}
	if int64(len(result1.Frames)) != proj.TotalFrames() {
		t.Fatalf("expected %d frames, got %d", proj.TotalFrames(), len(result1.Frames))
	}
}

func TestRenderBlendsTransitionDuringOverlap(t *testing.T) {
	proj := twoSceneProject(t)
	pipeline := NewPipeline(nil)
	renderer := NewRenderer(proj.Assets)

	starts, overlaps := sceneFrameStarts(proj)
	overlapFrame := starts[1] // first global frame of the overlap window

	fb, err := pipeline.RenderFrameIndex(proj, renderer, overlapFrame)
	if err != nil {
		t.Fatalf("render frame: %v", err)
	}
	c := fb.At(0, 0)
	if c.R == 0 && c.B == 0 {
		t.Fatalf("expected a blend of red and blue during the transition, got %+v", c)
	}
	if overlaps[1] == 0 {
		t.Fatalf("expected a non-zero overlap for this fixture")
	}
}

func TestRenderRejectsOutOfBoundsFrame(t *testing.T) {
	proj := twoSceneProject(t)
	pipeline := NewPipeline(nil)
	renderer := NewRenderer(proj.Assets)
	if _, err := pipeline.RenderFrameIndex(proj, renderer, proj.TotalFrames()+100); err == nil {
		t.Fatalf("expected an error for an out-of-bounds frame index")
	}
}

func TestCompositeAffinePlacesUnrotatedContentAtPosition(t *testing.T) {
	dst := SolidFrameBuffer(10, 10, ColorTransparent)
	src := SolidFrameBuffer(4, 4, Color{R: 1, A: 1})
	transform := Transform2D{Position: Point2D{X: 3, Y: 3}, Anchor: Point2D{}, Scale: Point2D{X: 1, Y: 1}, Opacity: 1}
	compositeAffine(dst, src, transform, 1)
	if c := dst.At(4, 4); c.A == 0 {
		t.Fatalf("expected src to be visible at (4,4), got %+v", c)
	}
	if c := dst.At(9, 9); c.A != 0 {
		t.Fatalf("expected no content far from the placed quad, got %+v", c)
	}
}

func TestInvBilinearQuadRecoversCorners(t *testing.T) {
	p00 := [2]float64{0, 0}
	p10 := [2]float64{10, 0}
	p01 := [2]float64{0, 10}
	p11 := [2]float64{10, 10}

	u, v, ok := invBilinearQuad(p00, p10, p01, p11, 5, 5)
	if !ok {
		t.Fatalf("expected a solution for the center point")
	}
	if u < 0.4 || u > 0.6 || v < 0.4 || v > 0.6 {
		t.Fatalf("expected (u,v) near (0.5,0.5) for an axis-aligned square, got (%v,%v)", u, v)
	}
}

func TestBlendTransitionCrossfadeAtMidpoint(t *testing.T) {
	prev := SolidFrameBuffer(2, 2, Color{R: 1, A: 1})
	cur := SolidFrameBuffer(2, 2, Color{B: 1, A: 1})
	tr := &Transition{Kind: TransitionCrossfade, Easing: EaseLinear}
	out := blendTransition(prev, cur, tr, 0.5)
	c := out.At(0, 0)
	if c.R < 0.4 || c.R > 0.6 || c.B < 0.4 || c.B > 0.6 {
		t.Fatalf("expected roughly equal red/blue at the midpoint, got %+v", c)
	}
}

func TestWipeTransitionRevealsFromDirection(t *testing.T) {
	prev := SolidFrameBuffer(10, 1, Color{R: 1, A: 1})
	cur := SolidFrameBuffer(10, 1, Color{B: 1, A: 1})
	tr := &Transition{Kind: TransitionWipe, Direction: DirLeft, Easing: EaseLinear}
	out := blendTransition(prev, cur, tr, 0.3)
	if out.At(0, 0).B == 0 {
		t.Fatalf("expected the leading edge to already show cur")
	}
	if out.At(9, 0).R == 0 {
		t.Fatalf("expected the trailing edge to still show prev")
	}
}
