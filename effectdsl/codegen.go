package effectdsl

import (
	"fmt"
	"strconv"
	"strings"
)

// Generate lowers a type-checked Program to WGSL text with a fixed
// binding layout: params uniform (group 0 binding 0),
// time (binding 1), resolution (binding 2), input texture (binding 3),
// sampler (binding 4), and an fs_main entry point that calls apply. A
// synthetic sample(uv) helper expands to textureSample(...). struct
// FxParams is emitted iff any params are declared.
func Generate(p *Program) string {
	var b strings.Builder

	hasParams := len(p.Params) > 0
	if hasParams {
		b.WriteString("struct FxParams {\n")
		for _, param := range p.Params {
			fmt.Fprintf(&b, "    %s: %s,\n", param.Name, wgslType(param.Type))
		}
		b.WriteString("}\n\n")
		b.WriteString("@group(0) @binding(0) var<uniform> params: FxParams;\n")
	}
	b.WriteString("@group(0) @binding(1) var<uniform> time: f32;\n")
	b.WriteString("@group(0) @binding(2) var<uniform> resolution: vec2<f32>;\n")
	b.WriteString("@group(0) @binding(3) var input_texture: texture_2d<f32>;\n")
	b.WriteString("@group(0) @binding(4) var input_sampler: sampler;\n\n")

	b.WriteString("fn sample(uv: vec2<f32>) -> vec4<f32> {\n")
	b.WriteString("    return textureSample(input_texture, input_sampler, uv);\n")
	b.WriteString("}\n\n")

	fmt.Fprintf(&b, "fn apply(uv: vec2<f32>, color: vec4<f32>, time: f32) -> vec4<f32> {\n")
	for _, local := range p.Locals {
		fmt.Fprintf(&b, "    let %s = %s;\n", local.Name, exprToWGSL(local.Expr))
	}
	fmt.Fprintf(&b, "    return %s;\n", exprToWGSL(p.Return))
	b.WriteString("}\n\n")

	b.WriteString("@fragment\n")
	b.WriteString("fn fs_main(@builtin(position) fragPos: vec4<f32>, @location(0) uv: vec2<f32>) -> @location(0) vec4<f32> {\n")
	b.WriteString("    let srcColor = sample(uv);\n")
	b.WriteString("    return apply(uv, srcColor, time);\n")
	b.WriteString("}\n")

	return b.String()
}

func wgslType(t Type) string {
	switch t {
	case TypeF32:
		return "f32"
	case TypeVec2:
		return "vec2<f32>"
	case TypeVec3:
		return "vec3<f32>"
	case TypeVec4:
		return "vec4<f32>"
	case TypeI32:
		return "i32"
	case TypeBool:
		return "bool"
	default:
		return "f32"
	}
}

func exprToWGSL(e Expr) string {
	switch n := e.(type) {
	case NumberExpr:
		return formatFloat(n.Value)
	case BoolExpr:
		if n.Value {
			return "true"
		}
		return "false"
	case IdentExpr:
		return n.Name
	case FieldExpr:
		return exprToWGSL(n.Base) + "." + n.Field
	case UnaryExpr:
		return "-" + exprToWGSL(n.Expr)
	case BinaryExpr:
		return "(" + exprToWGSL(n.Left) + " " + n.Op + " " + exprToWGSL(n.Right) + ")"
	case CallExpr:
		args := make([]string, len(n.Args))
		for i, a := range n.Args {
			args[i] = exprToWGSL(a)
		}
		name := n.Name
		if name == "sample" {
			// emitted sample() helper already matches; keep the call as-is.
			return "sample(" + strings.Join(args, ", ") + ")"
		}
		return name + "(" + strings.Join(args, ", ") + ")"
	}
	return "/* unknown */"
}

func formatFloat(v float64) string {
	s := strconv.FormatFloat(v, 'g', -1, 64)
	if !strings.ContainsAny(s, ".eE") {
		s += ".0"
	}
	return s
}
