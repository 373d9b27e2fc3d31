package vidra

import "testing"

func TestResolveLayoutCentersOnBothAxes(t *testing.T) {
	l := NewLayer("box", Solid(Color{R: 1, A: 1}))
	l.Constraints = []LayoutConstraint{{Kind: ConstraintCenter, Axis: AxisBoth}}
	sizes := map[string]Point2D{"box": {X: 20, Y: 10}}

	out, err := ResolveLayout(100, 50, []*Layer{l}, sizes)
	if err != nil {
		t.Fatalf("ResolveLayout: %v", err)
	}
	want := Point2D{X: 40, Y: 20}
	if out["box"] != want {
		t.Fatalf("expected %+v, got %+v", want, out["box"])
	}
}

func TestResolveLayoutPinsToEdgesWithMargin(t *testing.T) {
	l := NewLayer("box", Solid(Color{R: 1, A: 1}))
	l.Constraints = []LayoutConstraint{
		{Kind: ConstraintPin, Edge: EdgeRight, Margin: 5},
		{Kind: ConstraintPin, Edge: EdgeBottom, Margin: 5},
	}
	sizes := map[string]Point2D{"box": {X: 10, Y: 10}}

	out, err := ResolveLayout(100, 50, []*Layer{l}, sizes)
	if err != nil {
		t.Fatalf("ResolveLayout: %v", err)
	}
	want := Point2D{X: 85, Y: 35}
	if out["box"] != want {
		t.Fatalf("expected %+v, got %+v", want, out["box"])
	}
}

func TestResolveLayoutRelativeConstraintFollowsAnchor(t *testing.T) {
	anchor := NewLayer("anchor", Solid(Color{R: 1, A: 1}))
	anchor.Constraints = []LayoutConstraint{{Kind: ConstraintPin, Edge: EdgeTop, Margin: 10}}

	below := NewLayer("below", Solid(Color{R: 1, A: 1}))
	below.Constraints = []LayoutConstraint{{Kind: ConstraintBelow, AnchorLayer: "anchor", Spacing: 4}}

	sizes := map[string]Point2D{
		"anchor": {X: 20, Y: 20},
		"below":  {X: 20, Y: 20},
	}

	out, err := ResolveLayout(100, 100, []*Layer{anchor, below}, sizes)
	if err != nil {
		t.Fatalf("ResolveLayout: %v", err)
	}
	if out["anchor"].Y != 10 {
		t.Fatalf("expected the anchor pinned at y=10, got %v", out["anchor"].Y)
	}
	if out["below"].Y != 34 {
		t.Fatalf("expected the dependent layer 4px below the anchor's bottom edge, got %v", out["below"].Y)
	}
}

func TestResolveLayoutDetectsConstraintCycle(t *testing.T) {
	a := NewLayer("a", Solid(Color{R: 1, A: 1}))
	a.Constraints = []LayoutConstraint{{Kind: ConstraintBelow, AnchorLayer: "b"}}
	b := NewLayer("b", Solid(Color{R: 1, A: 1}))
	b.Constraints = []LayoutConstraint{{Kind: ConstraintBelow, AnchorLayer: "a"}}

	sizes := map[string]Point2D{"a": {X: 10, Y: 10}, "b": {X: 10, Y: 10}}
	if _, err := ResolveLayout(100, 100, []*Layer{a, b}, sizes); err == nil {
		t.Fatalf("expected a constraint cycle to be rejected")
	}
}

func TestResolveLayoutFillShrinksToPadding(t *testing.T) {
	l := NewLayer("box", Solid(Color{R: 1, A: 1}))
	l.Constraints = []LayoutConstraint{{Kind: ConstraintFill, Axis: AxisBoth, Padding: 10}}
	sizes := map[string]Point2D{"box": {X: 0, Y: 0}}

	out, err := ResolveLayout(100, 80, []*Layer{l}, sizes)
	if err != nil {
		t.Fatalf("ResolveLayout: %v", err)
	}
	want := Point2D{X: 10, Y: 10}
	if out["box"] != want {
		t.Fatalf("expected %+v, got %+v", want, out["box"])
	}
}
