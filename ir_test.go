package vidra

import "testing"

func baseProject() *Project {
	return NewProject(Settings{Width: 16, Height: 16, FPS: 10, Background: ColorTransparent})
}

func TestValidateAcceptsWellFormedProject(t *testing.T) {
	p := baseProject()
	scene := p.AddScene("s1", Seconds(1))
	scene.AddLayer(NewLayer("bg", Solid(Color{R: 1, A: 1})))
	if err := p.Validate(); err != nil {
		t.Fatalf("expected a well-formed project to validate, got %v", err)
	}
}

func TestValidateRejectsNonPositiveFPS(t *testing.T) {
	p := NewProject(Settings{Width: 16, Height: 16, FPS: 0})
	if err := p.Validate(); err == nil {
		t.Fatalf("expected fps<=0 to fail validation")
	}
}

func TestValidateRejectsNonPositiveDimensions(t *testing.T) {
	p := NewProject(Settings{Width: 0, Height: 16, FPS: 30})
	if err := p.Validate(); err == nil {
		t.Fatalf("expected a zero dimension to fail validation")
	}
}

func TestValidateRejectsDuplicateLayerIDs(t *testing.T) {
	p := baseProject()
	scene := p.AddScene("s1", Seconds(1))
	scene.AddLayer(NewLayer("bg", Solid(Color{R: 1, A: 1})))
	scene.AddLayer(NewLayer("bg", Solid(Color{G: 1, A: 1})))
	if err := p.Validate(); err == nil {
		t.Fatalf("expected a duplicate layer id to fail validation")
	}
}

func TestValidateRejectsDanglingAssetReference(t *testing.T) {
	p := baseProject()
	scene := p.AddScene("s1", Seconds(1))
	scene.AddLayer(NewLayer("img", ImageContent(AssetId("missing"))))
	if err := p.Validate(); err == nil {
		t.Fatalf("expected a dangling asset reference to fail validation")
	}
}

func TestValidateAcceptsResolvedAssetReference(t *testing.T) {
	p := baseProject()
	p.Assets.Register(Asset{ID: "bg-image", Type: AssetImage, Path: "bg.png"})
	scene := p.AddScene("s1", Seconds(1))
	scene.AddLayer(NewLayer("img", ImageContent(AssetId("bg-image"))))
	if err := p.Validate(); err != nil {
		t.Fatalf("expected a resolved asset reference to validate, got %v", err)
	}
}

func TestValidateRejectsTransitionLongerThanEitherScene(t *testing.T) {
	p := baseProject()
	first := p.AddScene("s1", Seconds(1))
	first.AddLayer(NewLayer("bg", Solid(Color{R: 1, A: 1})))
	second := p.AddScene("s2", Seconds(2))
	second.Transition = &Transition{Kind: TransitionCrossfade, Duration: Seconds(1.5), Easing: EaseLinear}
	second.AddLayer(NewLayer("bg", Solid(Color{B: 1, A: 1})))
	if err := p.Validate(); err == nil {
		t.Fatalf("expected a transition longer than the shorter adjacent scene to fail validation")
	}
}

func TestValidateRejectsMaskCycle(t *testing.T) {
	p := baseProject()
	scene := p.AddScene("s1", Seconds(1))
	a := NewLayer("a", Solid(Color{R: 1, A: 1}))
	a.Mask = "b"
	b := NewLayer("b", Solid(Color{G: 1, A: 1}))
	b.Mask = "a"
	scene.AddLayer(a)
	scene.AddLayer(b)
	if err := p.Validate(); err == nil {
		t.Fatalf("expected a mask cycle to fail validation")
	}
}

func TestValidationErrorAggregatesEveryFailure(t *testing.T) {
	p := NewProject(Settings{Width: 0, Height: 0, FPS: 0})
	err := p.Validate()
	if err == nil {
		t.Fatalf("expected multiple invariant violations to fail validation")
	}
	ve, ok := err.(ValidationError)
	if !ok {
		t.Fatalf("expected a ValidationError, got %T", err)
	}
	if len(ve) < 2 {
		t.Fatalf("expected fps and dimension failures to both be collected, got %d", len(ve))
	}
}
