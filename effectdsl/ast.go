package effectdsl

// Expr is the expression AST shared by codegen (ast.go -> WGSL text) and
// eval (ast.go -> CPU value), so the two never drift apart.
type Expr interface{ isExpr() }

// NumberExpr is a numeric literal.
type NumberExpr struct{ Value float64 }

func (NumberExpr) isExpr() {}

// BoolExpr is a boolean literal.
type BoolExpr struct{ Value bool }

func (BoolExpr) isExpr() {}

// IdentExpr references a parameter, the apply() arguments (uv/color/time),
// or a local `let` binding.
type IdentExpr struct{ Name string }

func (IdentExpr) isExpr() {}

// FieldExpr is single-component or swizzle field access, e.g. color.r or color.rgb.
type FieldExpr struct {
	Base  Expr
	Field string
}

func (FieldExpr) isExpr() {}

// BinaryExpr is a binary arithmetic/comparison operation.
type BinaryExpr struct {
	Op          string
	Left, Right Expr
}

func (BinaryExpr) isExpr() {}

// UnaryExpr is a unary negation.
type UnaryExpr struct{ Expr Expr }

func (UnaryExpr) isExpr() {}

// CallExpr is a call to a vector constructor (vec2/vec3/vec4) or an
// intrinsic (sample, distance, floor, ...).
type CallExpr struct {
	Name string
	Args []Expr
}

func (CallExpr) isExpr() {}
