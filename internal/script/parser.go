package script

import "fmt"

// parser is a straightforward recursive-descent reader over the token
// stream produced by lexer. It has one token of lookahead.
type parser struct {
	lex    *lexer
	tok    token
	source string
}

func newParser(src, source string) (*parser, error) {
	p := &parser{lex: newLexer(src, source), source: source}
	if err := p.advance(); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *parser) advance() error {
	tok, err := p.lex.next()
	if err != nil {
		return err
	}
	p.tok = tok
	return nil
}

func (p *parser) errf(pos Pos, format string, args ...any) error {
	return fmt.Errorf("%s : line %d C %d : %s", p.source, pos.Line, pos.Col, fmt.Sprintf(format, args...))
}

func (p *parser) expect(kind tokenKind, what string) (token, error) {
	if p.tok.kind != kind {
		return token{}, p.errf(p.tok.pos, "expected %s", what)
	}
	tok := p.tok
	if err := p.advance(); err != nil {
		return token{}, err
	}
	return tok, nil
}

func (p *parser) expectIdent(text string) error {
	if p.tok.kind != tokIdent || p.tok.text != text {
		return p.errf(p.tok.pos, "expected %q", text)
	}
	return p.advance()
}

// ParseFile parses a top-level `scripts` map property into its list of
// script functions. source is used as the diagnostic label.
func ParseFile(src, source string) ([]*Func, error) {
	p, err := newParser(src, source)
	if err != nil {
		return nil, err
	}
	var fns []*Func
	for p.tok.kind != tokEOF {
		fn, err := p.parseFunc()
		if err != nil {
			return nil, err
		}
		fns = append(fns, fn)
	}
	return fns, nil
}

// ParseInline parses an inline trigger script body: zero or more #!
// inner attributes followed by commands, with no enclosing braces or
// `script name()` header. source is the diagnostic label, conventionally
// "trigger <object id>".
func ParseInline(src, source string) (*Func, error) {
	p, err := newParser(src, source)
	if err != nil {
		return nil, err
	}
	fn := &Func{Pos: p.tok.pos, Source: source}
	for p.tok.kind == tokBangHash {
		attr, err := p.parseInnerAttr()
		if err != nil {
			return nil, err
		}
		fn.Attributes = append(fn.Attributes, attr)
	}
	for p.tok.kind != tokEOF {
		cmd, err := p.parseCommand()
		if err != nil {
			return nil, err
		}
		fn.Commands = append(fn.Commands, cmd)
	}
	return fn, nil
}

func (p *parser) parseInnerAttr() (string, error) {
	if _, err := p.expect(tokBangHash, `"#!"`); err != nil {
		return "", err
	}
	if _, err := p.expect(tokLBrack, `"["`); err != nil {
		return "", err
	}
	name, err := p.expect(tokIdent, "attribute name")
	if err != nil {
		return "", err
	}
	if _, err := p.expect(tokRBrack, `"]"`); err != nil {
		return "", err
	}
	return name.text, nil
}

func (p *parser) parseOuterAttr() (string, error) {
	if _, err := p.expect(tokHash, `"#"`); err != nil {
		return "", err
	}
	if _, err := p.expect(tokLBrack, `"["`); err != nil {
		return "", err
	}
	name, err := p.expect(tokIdent, "attribute name")
	if err != nil {
		return "", err
	}
	if _, err := p.expect(tokRBrack, `"]"`); err != nil {
		return "", err
	}
	return name.text, nil
}

func (p *parser) parseFunc() (*Func, error) {
	fn := &Func{Pos: p.tok.pos}
	for p.tok.kind == tokHash {
		attr, err := p.parseOuterAttr()
		if err != nil {
			return nil, err
		}
		fn.Attributes = append(fn.Attributes, attr)
	}
	if err := p.expectIdent("script"); err != nil {
		return nil, err
	}
	name, err := p.expect(tokIdent, "script name")
	if err != nil {
		return nil, err
	}
	fn.Name = name.text
	if _, err := p.expect(tokLParen, `"("`); err != nil {
		return nil, err
	}
	if _, err := p.expect(tokRParen, `")"`); err != nil {
		return nil, err
	}
	if _, err := p.expect(tokLBrace, `"{"`); err != nil {
		return nil, err
	}
	for p.tok.kind != tokRBrace {
		cmd, err := p.parseCommand()
		if err != nil {
			return nil, err
		}
		fn.Commands = append(fn.Commands, cmd)
	}
	if _, err := p.expect(tokRBrace, `"}"`); err != nil {
		return nil, err
	}
	return fn, nil
}

func (p *parser) parseCommand() (Command, error) {
	pos := p.tok.pos
	name, err := p.expect(tokIdent, "command name")
	if err != nil {
		return Command{}, err
	}
	cmd := Command{Pos: pos, Name: name.text}
	if p.tok.kind == tokLParen {
		if err := p.advance(); err != nil {
			return Command{}, err
		}
		sawKeyword := false
		for p.tok.kind != tokRParen {
			if len(cmd.Args) > 0 {
				if _, err := p.expect(tokComma, `","`); err != nil {
					return Command{}, err
				}
			}
			arg, err := p.parseArg()
			if err != nil {
				return Command{}, err
			}
			if arg.Name == "" && sawKeyword {
				return Command{}, p.errf(arg.Value.Pos, "positional arguments must come before keyword arguments")
			}
			if arg.Name != "" {
				sawKeyword = true
			}
			cmd.Args = append(cmd.Args, arg)
		}
		if _, err := p.expect(tokRParen, `")"`); err != nil {
			return Command{}, err
		}
	}
	if _, err := p.expect(tokSemicolon, `";"`); err != nil {
		return Command{}, err
	}
	return cmd, nil
}

func (p *parser) parseArg() (Arg, error) {
	if p.tok.kind == tokIdent && p.tok.text != "color" && p.tok.text != "null" {
		// Could be `ident = value` (keyword) or a bare identifier value.
		// `color(...)` and `null` are literals and go through parseValue.
		save := *p.tok2()
		name := p.tok.text
		if err := p.advance(); err != nil {
			return Arg{}, err
		}
		if p.tok.kind == tokEquals {
			if err := p.advance(); err != nil {
				return Arg{}, err
			}
			val, err := p.parseValue()
			if err != nil {
				return Arg{}, err
			}
			return Arg{Name: name, Value: val}, nil
		}
		// Not a keyword arg; this identifier is itself the value.
		return Arg{Value: Value{Pos: save.pos, Kind: ValIdent, Str: save.text}}, nil
	}
	val, err := p.parseValue()
	if err != nil {
		return Arg{}, err
	}
	return Arg{Value: val}, nil
}

// tok2 lets parseArg snapshot the current token before advancing past it.
func (p *parser) tok2() *token {
	t := p.tok
	return &t
}

func (p *parser) parseValue() (Value, error) {
	pos := p.tok.pos
	switch p.tok.kind {
	case tokInt:
		v := p.tok.ival
		if err := p.advance(); err != nil {
			return Value{}, err
		}
		return Value{Pos: pos, Kind: ValInt, Int: v}, nil
	case tokFloat:
		v := p.tok.fval
		if err := p.advance(); err != nil {
			return Value{}, err
		}
		return Value{Pos: pos, Kind: ValFloat, Float: v}, nil
	case tokString:
		v := p.tok.text
		if err := p.advance(); err != nil {
			return Value{}, err
		}
		return Value{Pos: pos, Kind: ValString, Str: v}, nil
	case tokAt:
		if err := p.advance(); err != nil {
			return Value{}, err
		}
		name, err := p.expect(tokIdent, "special name")
		if err != nil {
			return Value{}, err
		}
		return Value{Pos: pos, Kind: ValSpecial, Str: name.text}, nil
	case tokIdent:
		switch p.tok.text {
		case "null":
			if err := p.advance(); err != nil {
				return Value{}, err
			}
			return Value{Pos: pos, Kind: ValNull}, nil
		case "color":
			return p.parseColor(pos)
		default:
			name := p.tok.text
			if err := p.advance(); err != nil {
				return Value{}, err
			}
			return Value{Pos: pos, Kind: ValIdent, Str: name}, nil
		}
	default:
		return Value{}, p.errf(pos, "expected a value")
	}
}

func (p *parser) parseColor(pos Pos) (Value, error) {
	if err := p.advance(); err != nil { // consume "color"
		return Value{}, err
	}
	if _, err := p.expect(tokLParen, `"("`); err != nil {
		return Value{}, err
	}
	var comps [4]uint8
	for i := 0; i < 4; i++ {
		if i > 0 {
			if _, err := p.expect(tokComma, `","`); err != nil {
				return Value{}, err
			}
		}
		switch p.tok.kind {
		case tokInt:
			comps[i] = clampByte(float64(p.tok.ival))
		case tokFloat:
			// A fractional component is a 0.0-1.0 scale factor,
			// truncated (not rounded) to a byte: color(1.0,0.5,0.0,1.0)
			// must read back as 0xFF7F00FF.
			comps[i] = clampByte(p.tok.fval * 255)
		default:
			return Value{}, p.errf(p.tok.pos, "expected a number in color() literal")
		}
		if err := p.advance(); err != nil {
			return Value{}, err
		}
	}
	if _, err := p.expect(tokRParen, `")"`); err != nil {
		return Value{}, err
	}
	return Value{Pos: pos, Kind: ValColor, Color: ColorLit{R: comps[0], G: comps[1], B: comps[2], A: comps[3]}}, nil
}

func clampByte(v float64) uint8 {
	if v < 0 {
		v = 0
	}
	if v > 255 {
		v = 255
	}
	return uint8(v)
}
