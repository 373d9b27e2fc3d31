package effectdsl

import "fmt"

// applyArgs are the three bindings always in scope inside apply's body:
// uv: vec2, color: vec4, time: f32.
var applyArgs = map[string]Type{
	"uv":    TypeVec2,
	"color": TypeVec4,
	"time":  TypeF32,
}

// Typecheck verifies every expression's type is known and every identifier
// resolves against params, apply's fixed arguments, intrinsics, or earlier
// `let` locals. Returns the inferred
// return type (always TypeVec4 per the grammar, but checked rather than
// assumed).
func Typecheck(p *Program) (Type, error) {
	scope := map[string]Type{}
	for k, v := range applyArgs {
		scope[k] = v
	}
	for _, param := range p.Params {
		if _, exists := scope[param.Name]; exists {
			return 0, fmt.Errorf("effectdsl: param %q shadows a reserved name", param.Name)
		}
		scope[param.Name] = param.Type
	}
	for i := range p.Locals {
		local := &p.Locals[i]
		t, err := inferType(local.Expr, scope)
		if err != nil {
			return 0, fmt.Errorf("effectdsl: let %q: %w", local.Name, err)
		}
		local.Type = t
		scope[local.Name] = t
	}
	retType, err := inferType(p.Return, scope)
	if err != nil {
		return 0, fmt.Errorf("effectdsl: return: %w", err)
	}
	if retType != TypeVec4 {
		return 0, fmt.Errorf("effectdsl: apply must return vec4, inferred %s", retType)
	}
	return retType, nil
}

func inferType(e Expr, scope map[string]Type) (Type, error) {
	switch n := e.(type) {
	case NumberExpr:
		return TypeF32, nil
	case BoolExpr:
		return TypeBool, nil
	case IdentExpr:
		t, ok := scope[n.Name]
		if !ok {
			return 0, fmt.Errorf("unknown identifier %q", n.Name)
		}
		return t, nil
	case UnaryExpr:
		return inferType(n.Expr, scope)
	case FieldExpr:
		baseType, err := inferType(n.Base, scope)
		if err != nil {
			return 0, err
		}
		return fieldType(baseType, n.Field)
	case BinaryExpr:
		lt, err := inferType(n.Left, scope)
		if err != nil {
			return 0, err
		}
		rt, err := inferType(n.Right, scope)
		if err != nil {
			return 0, err
		}
		return binaryResultType(n.Op, lt, rt)
	case CallExpr:
		return inferCall(n, scope)
	}
	return 0, fmt.Errorf("unknown expression node %T", e)
}

func fieldType(base Type, field string) (Type, error) {
	n := base.componentCount()
	if n == 1 {
		return 0, fmt.Errorf("cannot access field %q of scalar type %s", field, base)
	}
	validChars := "xyzwrgba"[:n] + "xyzwrgba"[4:4+n]
	for _, c := range field {
		if !containsRune(validChars, c) {
			return 0, fmt.Errorf("invalid field %q for type %s", field, base)
		}
	}
	switch len(field) {
	case 1:
		return TypeF32, nil
	case 2:
		return TypeVec2, nil
	case 3:
		return TypeVec3, nil
	case 4:
		return TypeVec4, nil
	}
	return 0, fmt.Errorf("invalid swizzle %q", field)
}

func containsRune(s string, r rune) bool {
	for _, c := range s {
		if c == r {
			return true
		}
	}
	return false
}

func binaryResultType(op string, l, r Type) (Type, error) {
	if l == r {
		return l, nil
	}
	// scalar * vector and vector * scalar are allowed, result is the vector type.
	if l == TypeF32 {
		return r, nil
	}
	if r == TypeF32 {
		return l, nil
	}
	return 0, fmt.Errorf("operator %q type mismatch: %s vs %s", op, l, r)
}

func inferCall(c CallExpr, scope map[string]Type) (Type, error) {
	argTypes := make([]Type, len(c.Args))
	for i, a := range c.Args {
		t, err := inferType(a, scope)
		if err != nil {
			return 0, err
		}
		argTypes[i] = t
	}
	switch c.Name {
	case "vec2", "vec3", "vec4":
		want := map[string]int{"vec2": 2, "vec3": 3, "vec4": 4}[c.Name]
		total := 0
		for _, t := range argTypes {
			total += t.componentCount()
		}
		if total != want {
			return 0, fmt.Errorf("%s(...) expects %d total components, got %d", c.Name, want, total)
		}
		return map[string]Type{"vec2": TypeVec2, "vec3": TypeVec3, "vec4": TypeVec4}[c.Name], nil
	case "sample":
		if len(argTypes) != 1 || argTypes[0] != TypeVec2 {
			return 0, fmt.Errorf("sample(uv) expects a single vec2 argument")
		}
		return TypeVec4, nil
	case "distance":
		if len(argTypes) != 2 || argTypes[0] != argTypes[1] {
			return 0, fmt.Errorf("distance(a, b) expects two arguments of the same vector type")
		}
		return TypeF32, nil
	case "floor", "ceil", "fract", "abs", "sin", "cos", "sqrt":
		if len(argTypes) != 1 {
			return 0, fmt.Errorf("%s expects exactly one argument", c.Name)
		}
		return argTypes[0], nil
	case "clamp":
		if len(argTypes) != 3 {
			return 0, fmt.Errorf("clamp expects exactly three arguments")
		}
		return argTypes[0], nil
	case "mix":
		if len(argTypes) != 3 {
			return 0, fmt.Errorf("mix expects exactly three arguments")
		}
		return argTypes[0], nil
	case "dot":
		if len(argTypes) != 2 {
			return 0, fmt.Errorf("dot expects exactly two arguments")
		}
		return TypeF32, nil
	}
	return 0, fmt.Errorf("unknown function %q", c.Name)
}
