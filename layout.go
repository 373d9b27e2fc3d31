package vidra

import "fmt"

// layoutBox is the working rectangle the solver mutates per layer.
type layoutBox struct {
	X, Y, W, H float64
	resolvedX  bool
	resolvedY  bool
}

// ResolveLayout resolves every layer's constraints against the viewport,
// returning the final (x, y) origin per layer id. Layers with no
// positional constraint on an axis keep their declared transform.Position
// for that axis. References among Below/Above/LeftOf/RightOf
// constraints are resolved in topological order. Project.Validate rejects
// cycles up front; if ResolveLayout still meets one, it returns an error.
func ResolveLayout(viewportW, viewportH float64, layers []*Layer, naturalSizes map[string]Point2D) (map[string]Point2D, error) {
	boxes := map[string]*layoutBox{}
	for _, l := range layers {
		size := naturalSizes[l.ID]
		boxes[l.ID] = &layoutBox{
			X: l.Transform.Position.X,
			Y: l.Transform.Position.Y,
			W: size.X,
			H: size.Y,
		}
	}

	byID := map[string]*Layer{}
	for _, l := range layers {
		byID[l.ID] = l
	}

	resolved := map[string]bool{}
	var resolve func(id string, stack map[string]bool) error
	resolve = func(id string, stack map[string]bool) error {
		if resolved[id] {
			return nil
		}
		if stack[id] {
			return fmt.Errorf("layout: constraint cycle at layer %q", id)
		}
		stack[id] = true
		defer delete(stack, id)

		l, ok := byID[id]
		if !ok {
			return nil
		}
		box := boxes[id]

		for _, c := range l.Constraints {
			switch c.Kind {
			case ConstraintCenter:
				applyCenter(box, c.Axis, viewportW, viewportH)
			case ConstraintPin:
				applyPin(box, c.Edge, c.Margin, viewportW, viewportH)
			case ConstraintFill:
				applyFill(box, c.Axis, c.Padding, viewportW, viewportH)
			case ConstraintBelow, ConstraintAbove, ConstraintLeftOf, ConstraintRightOf:
				if err := resolve(c.AnchorLayer, stack); err != nil {
					return err
				}
				anchor, ok := boxes[c.AnchorLayer]
				if !ok {
					continue
				}
				applyRelative(box, anchor, c)
			}
		}
		resolved[id] = true
		return nil
	}

	for _, l := range layers {
		if err := resolve(l.ID, map[string]bool{}); err != nil {
			return nil, err
		}
	}

	out := map[string]Point2D{}
	for id, box := range boxes {
		out[id] = Point2D{X: box.X, Y: box.Y}
	}
	return out, nil
}

func applyCenter(box *layoutBox, axis Axis, vw, vh float64) {
	if axis == AxisX || axis == AxisBoth {
		box.X = (vw - box.W) / 2
		box.resolvedX = true
	}
	if axis == AxisY || axis == AxisBoth {
		box.Y = (vh - box.H) / 2
		box.resolvedY = true
	}
}

func applyPin(box *layoutBox, edge Edge, margin, vw, vh float64) {
	switch edge {
	case EdgeLeft:
		box.X = margin
		box.resolvedX = true
	case EdgeRight:
		box.X = vw - margin - box.W
		box.resolvedX = true
	case EdgeTop:
		box.Y = margin
		box.resolvedY = true
	case EdgeBottom:
		box.Y = vh - margin - box.H
		box.resolvedY = true
	}
}

func applyFill(box *layoutBox, axis Axis, padding, vw, vh float64) {
	if axis == AxisX || axis == AxisBoth {
		box.X = padding
		box.W = vw - 2*padding
		box.resolvedX = true
	}
	if axis == AxisY || axis == AxisBoth {
		box.Y = padding
		box.H = vh - 2*padding
		box.resolvedY = true
	}
}

func applyRelative(box, anchor *layoutBox, c LayoutConstraint) {
	switch c.Kind {
	case ConstraintBelow:
		box.Y = anchor.Y + anchor.H + c.Spacing
		box.resolvedY = true
	case ConstraintAbove:
		box.Y = anchor.Y - c.Spacing - box.H
		box.resolvedY = true
	case ConstraintRightOf:
		box.X = anchor.X + anchor.W + c.Spacing
		box.resolvedX = true
	case ConstraintLeftOf:
		box.X = anchor.X - c.Spacing - box.W
		box.resolvedX = true
	}
}
