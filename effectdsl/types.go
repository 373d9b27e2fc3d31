// Package effectdsl implements a tiny typed effect language: a source
// string of the form
//
//	effect Name { param ...; fn apply(uv, color, time) -> vec4 { ... } }
//
// is lexed, parsed, type-checked against a closed set of types, and lowered
// to WGSL text with a fixed binding layout. The parsed [Program] is also
// directly interpretable on the CPU (see eval.go), which is how this
// module's software GPU backend (see the sibling gpu package) executes
// shaders that originated from this compiler without needing a real GPU
// device.
package effectdsl

// Type is the closed set of value types the DSL supports.
type Type uint8

const (
	TypeF32 Type = iota
	TypeVec2
	TypeVec3
	TypeVec4
	TypeI32
	TypeBool
)

func (t Type) String() string {
	switch t {
	case TypeF32:
		return "f32"
	case TypeVec2:
		return "vec2"
	case TypeVec3:
		return "vec3"
	case TypeVec4:
		return "vec4"
	case TypeI32:
		return "i32"
	case TypeBool:
		return "bool"
	default:
		return "?"
	}
}

func (t Type) componentCount() int {
	switch t {
	case TypeVec2:
		return 2
	case TypeVec3:
		return 3
	case TypeVec4:
		return 4
	default:
		return 1
	}
}

// typeFromName maps source-level type names to Type, including the "float"
// alias for f32.
func typeFromName(name string) (Type, bool) {
	switch name {
	case "f32", "float":
		return TypeF32, true
	case "vec2":
		return TypeVec2, true
	case "vec3":
		return TypeVec3, true
	case "vec4":
		return TypeVec4, true
	case "i32", "int":
		return TypeI32, true
	case "bool":
		return TypeBool, true
	default:
		return 0, false
	}
}

// ParamDecl is one `param name: Type;` declaration.
type ParamDecl struct {
	Name string
	Type Type
}

// Program is a fully parsed and type-checked effect definition.
type Program struct {
	Name   string
	Params []ParamDecl
	Locals []LocalDecl // from `let` statements in apply's body, in order
	Return Expr
}

// LocalDecl is one `let name = expr;` statement inside apply's body.
type LocalDecl struct {
	Name string
	Expr Expr
	Type Type
}
