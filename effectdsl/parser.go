package effectdsl

import "fmt"

type parser struct {
	toks []token
	pos  int
}

// Parse parses DSL source into an untyped syntax tree, ready for Typecheck.
func Parse(src string) (*Program, error) {
	toks, err := lex(src)
	if err != nil {
		return nil, err
	}
	p := &parser{toks: toks}
	return p.parseProgram()
}

func (p *parser) cur() token { return p.toks[p.pos] }

func (p *parser) expect(kind tokenKind, text string) (token, error) {
	t := p.cur()
	if t.kind != kind || (text != "" && t.text != text) {
		return token{}, fmt.Errorf("effectdsl: expected %q at offset %d, got %q", text, t.pos, t.text)
	}
	p.pos++
	return t, nil
}

func (p *parser) parseProgram() (*Program, error) {
	if _, err := p.expect(tkIdent, "effect"); err != nil {
		return nil, err
	}
	name, err := p.expect(tkIdent, "")
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(tkPunct, "{"); err != nil {
		return nil, err
	}

	prog := &Program{Name: name.text}

	for p.cur().kind == tkIdent && p.cur().text == "param" {
		decl, err := p.parseParam()
		if err != nil {
			return nil, err
		}
		prog.Params = append(prog.Params, decl)
	}

	if _, err := p.expect(tkIdent, "fn"); err != nil {
		return nil, err
	}
	if _, err := p.expect(tkIdent, "apply"); err != nil {
		return nil, err
	}
	if _, err := p.expect(tkPunct, "("); err != nil {
		return nil, err
	}
	// apply's fixed argument list (uv: vec2, color: vec4, time: f32) is
	// consumed but not retained as distinct ParamDecls -- these three
	// names are always in scope inside apply's body.
	for p.cur().kind != tkPunct || p.cur().text != ")" {
		if _, err := p.expect(tkIdent, ""); err != nil {
			return nil, err
		}
		if _, err := p.expect(tkPunct, ":"); err != nil {
			return nil, err
		}
		typeName, err := p.expect(tkIdent, "")
		if err != nil {
			return nil, err
		}
		if _, ok := typeFromName(typeName.text); !ok {
			return nil, fmt.Errorf("effectdsl: unknown type %q", typeName.text)
		}
		if p.cur().kind == tkPunct && p.cur().text == "," {
			p.pos++
		}
	}
	if _, err := p.expect(tkPunct, ")"); err != nil {
		return nil, err
	}
	if _, err := p.expect(tkPunct, "->"); err != nil {
		return nil, err
	}
	if _, err := p.expect(tkIdent, ""); err != nil { // return type name, checked later
		return nil, err
	}
	if _, err := p.expect(tkPunct, "{"); err != nil {
		return nil, err
	}

	for {
		if p.cur().kind == tkIdent && p.cur().text == "let" {
			local, err := p.parseLet()
			if err != nil {
				return nil, err
			}
			prog.Locals = append(prog.Locals, local)
			continue
		}
		break
	}

	if _, err := p.expect(tkIdent, "return"); err != nil {
		return nil, err
	}
	ret, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	prog.Return = ret
	if _, err := p.expect(tkPunct, ";"); err != nil {
		return nil, err
	}
	if _, err := p.expect(tkPunct, "}"); err != nil {
		return nil, err
	}
	if _, err := p.expect(tkPunct, "}"); err != nil {
		return nil, err
	}
	return prog, nil
}

func (p *parser) parseParam() (ParamDecl, error) {
	if _, err := p.expect(tkIdent, "param"); err != nil {
		return ParamDecl{}, err
	}
	name, err := p.expect(tkIdent, "")
	if err != nil {
		return ParamDecl{}, err
	}
	if _, err := p.expect(tkPunct, ":"); err != nil {
		return ParamDecl{}, err
	}
	typeName, err := p.expect(tkIdent, "")
	if err != nil {
		return ParamDecl{}, err
	}
	typ, ok := typeFromName(typeName.text)
	if !ok {
		return ParamDecl{}, fmt.Errorf("effectdsl: unknown type %q for param %q", typeName.text, name.text)
	}
	if _, err := p.expect(tkPunct, ";"); err != nil {
		return ParamDecl{}, err
	}
	return ParamDecl{Name: name.text, Type: typ}, nil
}

func (p *parser) parseLet() (LocalDecl, error) {
	if _, err := p.expect(tkIdent, "let"); err != nil {
		return LocalDecl{}, err
	}
	name, err := p.expect(tkIdent, "")
	if err != nil {
		return LocalDecl{}, err
	}
	if _, err := p.expect(tkPunct, "="); err != nil {
		return LocalDecl{}, err
	}
	expr, err := p.parseExpr()
	if err != nil {
		return LocalDecl{}, err
	}
	if _, err := p.expect(tkPunct, ";"); err != nil {
		return LocalDecl{}, err
	}
	return LocalDecl{Name: name.text, Expr: expr}, nil
}

// Expression grammar: expr := term (('+'|'-') term)*
//
//	term := unary (('*'|'/') unary)*
//	unary := '-' unary | postfix
//	postfix := atom ('.' ident)*
//	atom := number | ident | ident '(' args ')' | '(' expr ')'
func (p *parser) parseExpr() (Expr, error) {
	left, err := p.parseTerm()
	if err != nil {
		return nil, err
	}
	for p.cur().kind == tkPunct && (p.cur().text == "+" || p.cur().text == "-") {
		op := p.cur().text
		p.pos++
		right, err := p.parseTerm()
		if err != nil {
			return nil, err
		}
		left = BinaryExpr{Op: op, Left: left, Right: right}
	}
	return left, nil
}

func (p *parser) parseTerm() (Expr, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for p.cur().kind == tkPunct && (p.cur().text == "*" || p.cur().text == "/") {
		op := p.cur().text
		p.pos++
		right, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		left = BinaryExpr{Op: op, Left: left, Right: right}
	}
	return left, nil
}

func (p *parser) parseUnary() (Expr, error) {
	if p.cur().kind == tkPunct && p.cur().text == "-" {
		p.pos++
		inner, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return UnaryExpr{Expr: inner}, nil
	}
	return p.parsePostfix()
}

func (p *parser) parsePostfix() (Expr, error) {
	base, err := p.parseAtom()
	if err != nil {
		return nil, err
	}
	for p.cur().kind == tkPunct && p.cur().text == "." {
		p.pos++
		field, err := p.expect(tkIdent, "")
		if err != nil {
			return nil, err
		}
		base = FieldExpr{Base: base, Field: field.text}
	}
	return base, nil
}

func (p *parser) parseAtom() (Expr, error) {
	t := p.cur()
	switch {
	case t.kind == tkNumber:
		p.pos++
		v, err := parseNumber(t.text)
		if err != nil {
			return nil, fmt.Errorf("effectdsl: invalid number %q: %w", t.text, err)
		}
		return NumberExpr{Value: v}, nil
	case t.kind == tkPunct && t.text == "(":
		p.pos++
		inner, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(tkPunct, ")"); err != nil {
			return nil, err
		}
		return inner, nil
	case t.kind == tkIdent:
		p.pos++
		if t.text == "true" {
			return BoolExpr{Value: true}, nil
		}
		if t.text == "false" {
			return BoolExpr{Value: false}, nil
		}
		if p.cur().kind == tkPunct && p.cur().text == "(" {
			p.pos++
			var args []Expr
			for !(p.cur().kind == tkPunct && p.cur().text == ")") {
				arg, err := p.parseExpr()
				if err != nil {
					return nil, err
				}
				args = append(args, arg)
				if p.cur().kind == tkPunct && p.cur().text == "," {
					p.pos++
				}
			}
			p.pos++ // consume ')'
			return CallExpr{Name: t.text, Args: args}, nil
		}
		return IdentExpr{Name: t.text}, nil
	}
	return nil, fmt.Errorf("effectdsl: unexpected token %q at offset %d", t.text, t.pos)
}
