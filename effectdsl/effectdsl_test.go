package effectdsl

import (
	"strings"
	"testing"
)

const grayscaleSource = `
effect Grayscale {
    param strength: float;

    fn apply(uv: vec2, color: vec4, time: float) -> vec4 {
        let luma = color.r * 0.299 + color.g * 0.587 + color.b * 0.114;
        let gray = vec4(luma, luma, luma, color.a);
        return mix(color, gray, strength);
    }
}
`

func TestCompileGrayscaleProducesFixedBindingLayout(t *testing.T) {
	prog, wgsl, err := Compile(grayscaleSource)
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	if prog.Name != "Grayscale" {
		t.Errorf("Name = %q, want Grayscale", prog.Name)
	}
	for _, want := range []string{"fn fs_main", "fn apply", "fn sample", "struct FxParams"} {
		if !strings.Contains(wgsl, want) {
			t.Errorf("generated WGSL missing %q:\n%s", want, wgsl)
		}
	}
}

func TestCompileWithoutParamsOmitsFxParamsStruct(t *testing.T) {
	source := `
	effect Invert {
		fn apply(uv: vec2, color: vec4, time: float) -> vec4 {
			return vec4(1.0 - color.r, 1.0 - color.g, 1.0 - color.b, color.a);
		}
	}
	`
	_, wgsl, err := Compile(source)
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	if strings.Contains(wgsl, "struct FxParams") {
		t.Errorf("did not expect FxParams struct with no params:\n%s", wgsl)
	}
	for _, want := range []string{"fn fs_main", "fn apply", "fn sample"} {
		if !strings.Contains(wgsl, want) {
			t.Errorf("generated WGSL missing %q", want)
		}
	}
}

func TestCompileRejectsNonVec4Return(t *testing.T) {
	source := `
	effect Bad {
		fn apply(uv: vec2, color: vec4, time: float) -> vec4 {
			return color.r;
		}
	}
	`
	if _, _, err := Compile(source); err == nil {
		t.Fatal("expected a type error for a scalar return")
	}
}

func TestCompileRejectsUnknownIdentifier(t *testing.T) {
	source := `
	effect Bad {
		fn apply(uv: vec2, color: vec4, time: float) -> vec4 {
			return vec4(mystery, 0.0, 0.0, 1.0);
		}
	}
	`
	if _, _, err := Compile(source); err == nil {
		t.Fatal("expected an error for an unknown identifier")
	}
}

func TestEvalGrayscaleMatchesLumaFormula(t *testing.T) {
	prog, err := Parse(grayscaleSource)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if _, err := Typecheck(prog); err != nil {
		t.Fatalf("Typecheck: %v", err)
	}
	color := [4]float64{0.8, 0.4, 0.2, 1.0}
	params := map[string]Value{"strength": scalar(1.0)}
	out, err := Eval(prog, [2]float64{0.5, 0.5}, color, 0, params, nil)
	if err != nil {
		t.Fatalf("Eval: %v", err)
	}
	wantLuma := color[0]*0.299 + color[1]*0.587 + color[2]*0.114
	if diff := out.Comp[0] - wantLuma; diff > 1e-9 || diff < -1e-9 {
		t.Errorf("R = %f, want %f", out.Comp[0], wantLuma)
	}
	if out.Comp[0] != out.Comp[1] || out.Comp[1] != out.Comp[2] {
		t.Errorf("expected R == G == B for full-strength grayscale, got %v", out.Comp)
	}
	if out.Comp[3] != color[3] {
		t.Errorf("alpha = %f, want unchanged %f", out.Comp[3], color[3])
	}
}

func TestEvalSampleCallsSampleFn(t *testing.T) {
	source := `
	effect PassThrough {
		fn apply(uv: vec2, color: vec4, time: float) -> vec4 {
			return sample(uv);
		}
	}
	`
	prog, err := Parse(source)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if _, err := Typecheck(prog); err != nil {
		t.Fatalf("Typecheck: %v", err)
	}
	called := false
	sampleFn := func(uv [2]float64) [4]float64 {
		called = true
		return [4]float64{uv[0], uv[1], 0, 1}
	}
	out, err := Eval(prog, [2]float64{0.25, 0.75}, [4]float64{0, 0, 0, 1}, 0, nil, sampleFn)
	if err != nil {
		t.Fatalf("Eval: %v", err)
	}
	if !called {
		t.Fatal("expected sample(uv) to invoke sampleFn")
	}
	if out.Comp[0] != 0.25 || out.Comp[1] != 0.75 {
		t.Errorf("sample result = %v, want uv echoed back", out.Comp)
	}
}
