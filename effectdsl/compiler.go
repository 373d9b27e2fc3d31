package effectdsl

import "fmt"

// Compile parses, type-checks, and lowers DSL source
// to a Program plus its generated WGSL text. The Program is retained so a
// software GPU backend can interpret the shader via Eval without a real
// device; the WGSL text is what a real WebGPU backend compiles.
func Compile(source string) (*Program, string, error) {
	prog, err := Parse(source)
	if err != nil {
		return nil, "", err
	}
	if _, err := Typecheck(prog); err != nil {
		return nil, "", err
	}
	wgsl := Generate(prog)
	if wgsl == "" {
		return nil, "", fmt.Errorf("effectdsl: codegen produced empty output for %q", prog.Name)
	}
	return prog, wgsl, nil
}
