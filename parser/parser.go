// Package parser implements the recursive-descent, precedence-climbing
// parser that turns a token stream into an ast.Document (spec §3/§4.3).
package parser

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/yini-lang/yini/ast"
	"github.com/yini-lang/yini/lexer"
	"github.com/yini-lang/yini/token"
)

// constructorNames are the case-insensitive typed-value constructors
// recognized in expression position (spec §4.5, §9(a)).
var constructorNames = map[string]string{
	"color": "Color",
	"coord": "Coord",
	"path":  "Path",
	"list":  "List",
	"array": "Array",
	"set":   "Set",
	"dyna":  "Dyna",
}

// typeNames are the bareword schema type descriptors (spec §4.6, §9(a)).
var typeNames = map[string]string{
	"string": "string",
	"int":    "int",
	"float":  "float",
	"bool":   "bool",
	"array":  "array",
	"map":    "map",
	"set":    "set",
}

// Parser consumes a token stream from a single file and produces an
// ast.Document. It does not look across file boundaries; the loader
// merges per-file Documents (spec §4.4).
type Parser struct {
	file string
	l    *lexer.Lexer

	cur  token.Token
	peek token.Token
}

// New creates a Parser over input, attributing positions to file.
func New(file, input string) (*Parser, error) {
	p := &Parser{file: file, l: lexer.New(file, input)}
	if err := p.advance(); err != nil {
		return nil, err
	}
	if err := p.advance(); err != nil {
		return nil, err
	}
	return p, nil
}

// advance shifts cur <- peek and scans a new peek token, skipping
// NEWLINE and COMMENT tokens: neither is ever significant to the
// grammar, so the parser never has to special-case whitespace.
func (p *Parser) advance() error {
	p.cur = p.peek
	for {
		tok, err := p.l.NextToken()
		if err != nil {
			return err
		}
		if tok.Type == token.NEWLINE || tok.Type == token.COMMENT {
			continue
		}
		p.peek = tok
		return nil
	}
}

func (p *Parser) errorf(kind ErrorKind, format string, args ...interface{}) error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...), Pos: p.cur.Pos}
}

// expect checks cur is of type t, advances past it, and returns an error
// otherwise. It is the workhorse of the whole grammar below.
func (p *Parser) expect(t token.Type) (token.Token, error) {
	if p.cur.Type != t {
		return token.Token{}, p.errorf(ExpectedToken, "expected %s, got %s %q", t, p.cur.Type, p.cur.Literal)
	}
	tok := p.cur
	if err := p.advance(); err != nil {
		return token.Token{}, err
	}
	return tok, nil
}

func (p *Parser) at(t token.Type) bool { return p.cur.Type == t }

func (p *Parser) match(t token.Type) (bool, error) {
	if p.cur.Type != t {
		return false, nil
	}
	return true, p.advance()
}

// mark/reset bracket a speculative parse of a prospective schema-target
// header; see parseSchemaBlock.
type mark struct {
	lexState lexer.State
	cur      token.Token
	peek     token.Token
}

func (p *Parser) mark() mark {
	return mark{lexState: p.l.Mark(), cur: p.cur, peek: p.peek}
}

func (p *Parser) reset(m mark) {
	p.l.Reset(m.lexState)
	p.cur = m.cur
	p.peek = m.peek
}

// ParseDocument parses the whole token stream into a single-file
// Document (spec §3). It does not resolve macros, references, or
// inheritance; see package resolve.
func ParseDocument(file, input string) (*ast.Document, error) {
	p, err := New(file, input)
	if err != nil {
		return nil, err
	}
	return p.parseDocument()
}

func (p *Parser) parseDocument() (*ast.Document, error) {
	doc := &ast.Document{}
	for !p.at(token.EOF) {
		if !p.at(token.LBRACKET) {
			return nil, p.errorf(ExpectedToken, "expected section header, got %s %q", p.cur.Type, p.cur.Literal)
		}
		if p.peek.Type == token.HASH {
			if err := p.parseDirectiveSection(doc); err != nil {
				return nil, err
			}
			continue
		}
		sec, err := p.parseSection()
		if err != nil {
			return nil, err
		}
		doc.Sections = append(doc.Sections, sec)
	}
	return doc, nil
}

// directiveName reads "[#" IDENT "]" and returns the lowercased IDENT
// without consuming anything beyond the closing "]".
func (p *Parser) directiveName() (string, token.Position, error) {
	startPos := p.cur.Pos
	if _, err := p.expect(token.LBRACKET); err != nil {
		return "", startPos, err
	}
	if _, err := p.expect(token.HASH); err != nil {
		return "", startPos, err
	}
	name, err := p.expect(token.IDENT)
	if err != nil {
		return "", startPos, err
	}
	if _, err := p.expect(token.RBRACKET); err != nil {
		return "", startPos, err
	}
	return strings.ToLower(name.Literal), startPos, nil
}

func (p *Parser) parseDirectiveSection(doc *ast.Document) error {
	name, pos, err := p.directiveName()
	if err != nil {
		return err
	}
	switch name {
	case "define":
		return p.parseDefineBlock(doc)
	case "include":
		return p.parseIncludeBlock(doc)
	case "schema":
		return p.parseSchemaBlock(doc)
	default:
		return &Error{Kind: ExpectedToken, Msg: "unknown directive [#" + name + "]", Pos: pos}
	}
}

func (p *Parser) parseDefineBlock(doc *ast.Document) error {
	for !p.at(token.LBRACKET) && !p.at(token.EOF) {
		pos := p.cur.Pos
		name, err := p.expect(token.IDENT)
		if err != nil {
			return err
		}
		if _, err := p.expect(token.EQ); err != nil {
			return err
		}
		value, err := p.parseExpr()
		if err != nil {
			return err
		}
		doc.Defines = append(doc.Defines, &ast.MacroDef{Name: name.Literal, Value: value, P: pos})
	}
	return nil
}

func (p *Parser) parseIncludeBlock(doc *ast.Document) error {
	for !p.at(token.LBRACKET) && !p.at(token.EOF) {
		pos := p.cur.Pos
		if _, err := p.expect(token.PLUSEQ); err != nil {
			return err
		}
		str, err := p.expect(token.STRING)
		if err != nil {
			return err
		}
		doc.Includes = append(doc.Includes, &ast.IncludeEntry{Path: str.Literal, P: pos})
	}
	return nil
}

// parseSchemaBlock parses [#schema] ... [#end_schema]?. Its body reuses
// section-header syntax to name each target section, which makes
// termination ambiguous with a following real section of the same
// shape (spec §9(b)): before committing to a "[Target]" header as part
// of the schema, the parser speculatively parses it and the rule
// entries that should follow; if no entry looks like a rule descriptor,
// it backs out and lets the outer parseDocument loop treat the bracket
// as the start of a real section.
func (p *Parser) parseSchemaBlock(doc *ast.Document) error {
	for {
		if p.at(token.EOF) {
			return nil
		}
		if !p.at(token.LBRACKET) {
			return nil
		}
		if p.peek.Type == token.HASH {
			m := p.mark()
			name, _, err := p.directiveName()
			if err != nil {
				p.reset(m)
				return nil
			}
			if name == "end_schema" {
				return nil
			}
			// Some other directive: schema implicitly ends here.
			p.reset(m)
			return nil
		}

		m := p.mark()
		target, ok, err := p.tryParseSchemaTarget(doc)
		if err != nil {
			return err
		}
		if !ok {
			p.reset(m)
			return nil
		}
		_ = target
	}
}

// tryParseSchemaTarget speculatively parses one "[Target] key = rule (
// key = rule)*" group. It reports ok=false (with the parser state left
// dirty; the caller must reset) when the header is not followed by at
// least one syntactically valid rule descriptor, which means it is
// really the start of an ordinary section.
func (p *Parser) tryParseSchemaTarget(doc *ast.Document) (string, bool, error) {
	if _, err := p.expect(token.LBRACKET); err != nil {
		return "", false, nil
	}
	nameTok, err := p.expect(token.IDENT)
	if err != nil {
		return "", false, nil
	}
	if _, err := p.expect(token.RBRACKET); err != nil {
		return "", false, nil
	}
	target := nameTok.Literal

	if !p.at(token.IDENT) || p.peek.Type != token.EQ {
		return target, false, nil
	}
	if !p.looksLikeSchemaRuleStart() {
		return target, false, nil
	}

	for p.at(token.IDENT) && p.peek.Type == token.EQ {
		rule, err := p.parseSchemaRule(target)
		if err != nil {
			return target, false, err
		}
		doc.Schema = append(doc.Schema, rule)
		if !p.looksLikeSchemaRuleStart() {
			break
		}
	}
	return target, true, nil
}

// looksLikeSchemaRuleStart peeks past "IDENT =" to see whether what
// follows begins a rule descriptor (a bare type keyword or "{"), which
// is how schema rules are told apart from ordinary entries. The check is
// token-based only: an ordinary entry whose value is a map literal, or a
// constructor call spelled like a type keyword (Array(...), Set(...)),
// passes it too.
func (p *Parser) looksLikeSchemaRuleStart() bool {
	if !p.at(token.IDENT) || p.peek.Type != token.EQ {
		return false
	}
	m := p.mark()
	defer p.reset(m)

	if err := p.advance(); err != nil { // consume IDENT
		return false
	}
	if err := p.advance(); err != nil { // consume EQ
		return false
	}
	if p.at(token.LBRACE) {
		return true
	}
	if p.at(token.IDENT) {
		_, ok := typeNames[strings.ToLower(p.cur.Literal)]
		return ok
	}
	return false
}

func (p *Parser) parseSchemaRule(section string) (*ast.SchemaRule, error) {
	pos := p.cur.Pos
	keyTok, err := p.expect(token.IDENT)
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(token.EQ); err != nil {
		return nil, err
	}
	typ, err := p.parseTypeExpr()
	if err != nil {
		return nil, err
	}
	rule := &ast.SchemaRule{Section: section, Key: keyTok.Literal, Type: typ, P: pos}

	for {
		ok, err := p.match(token.COMMA)
		if err != nil {
			return nil, err
		}
		if !ok {
			break
		}
		switch {
		case p.at(token.EXCLAIM):
			rule.Required = true
			if err := p.advance(); err != nil {
				return nil, err
			}
		case p.at(token.TILDE):
			rule.Empty = ast.EmptySilent
			if err := p.advance(); err != nil {
				return nil, err
			}
		case p.at(token.EQ):
			if err := p.advance(); err != nil {
				return nil, err
			}
			def, err := p.parseExpr()
			if err != nil {
				return nil, err
			}
			rule.Empty = ast.EmptyDefault
			rule.Default = def
		case p.at(token.IDENT):
			word := strings.ToLower(p.cur.Literal)
			switch word {
			case "required":
				rule.Required = true
				if err := p.advance(); err != nil {
					return nil, err
				}
			case "optional":
				rule.Required = false
				if err := p.advance(); err != nil {
					return nil, err
				}
			case "e", "error":
				rule.Empty = ast.EmptyError
				if err := p.advance(); err != nil {
					return nil, err
				}
			case "min", "max":
				if err := p.advance(); err != nil {
					return nil, err
				}
				if _, err := p.expect(token.EQ); err != nil {
					return nil, err
				}
				n, err := p.parseNumberLiteralValue()
				if err != nil {
					return nil, err
				}
				if word == "min" {
					rule.Min = &n
				} else {
					rule.Max = &n
				}
			default:
				return nil, p.errorf(InvalidSchemaRule, "unknown schema rule modifier %q", p.cur.Literal)
			}
		default:
			return nil, p.errorf(InvalidSchemaRule, "unexpected token %s in schema rule", p.cur.Type)
		}
	}
	return rule, nil
}

func (p *Parser) parseNumberLiteralValue() (float64, error) {
	neg := false
	if p.at(token.MINUS) {
		neg = true
		if err := p.advance(); err != nil {
			return 0, err
		}
	}
	if !p.at(token.INT) && !p.at(token.FLOAT) {
		return 0, p.errorf(ExpectedExpression, "expected numeric literal, got %s", p.cur.Type)
	}
	lit := p.cur.Literal
	f, err := strconv.ParseFloat(lit, 64)
	if err != nil {
		return 0, p.errorf(ExpectedExpression, "invalid numeric literal %q", lit)
	}
	if err := p.advance(); err != nil {
		return 0, err
	}
	if neg {
		f = -f
	}
	return f, nil
}

func (p *Parser) parseTypeExpr() (*ast.TypeExpr, error) {
	if p.at(token.LBRACE) {
		if err := p.advance(); err != nil {
			return nil, err
		}
		keyKind, err := p.parseTypeExpr()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(token.COLON); err != nil {
			return nil, err
		}
		elem, err := p.parseTypeExpr()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(token.RBRACE); err != nil {
			return nil, err
		}
		return &ast.TypeExpr{Name: "map", KeyKind: keyKind, Elem: elem}, nil
	}

	nameTok, err := p.expect(token.IDENT)
	if err != nil {
		return nil, err
	}
	name, ok := typeNames[strings.ToLower(nameTok.Literal)]
	if !ok {
		return nil, &Error{Kind: InvalidSchemaRule, Msg: "unknown schema type " + nameTok.Literal, Pos: nameTok.Pos}
	}
	te := &ast.TypeExpr{Name: name}
	if name == "array" {
		if _, err := p.expect(token.LBRACKET); err != nil {
			return nil, err
		}
		elem, err := p.parseTypeExpr()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(token.RBRACKET); err != nil {
			return nil, err
		}
		te.Elem = elem
	}
	return te, nil
}

// ---- sections --------------------------------------------------------

func (p *Parser) parseSection() (*ast.Section, error) {
	pos := p.cur.Pos
	if _, err := p.expect(token.LBRACKET); err != nil {
		return nil, err
	}
	nameTok, err := p.expect(token.IDENT)
	if err != nil {
		return nil, err
	}
	sec := &ast.Section{Name: nameTok.Literal, P: pos}
	if _, err := p.expect(token.RBRACKET); err != nil {
		return nil, err
	}

	if ok, err := p.match(token.COLON); err != nil {
		return nil, err
	} else if ok {
		for {
			parentTok, err := p.expect(token.IDENT)
			if err != nil {
				return nil, err
			}
			sec.Parents = append(sec.Parents, parentTok.Literal)
			more, err := p.match(token.COMMA)
			if err != nil {
				return nil, err
			}
			if !more {
				break
			}
		}
	}

	quickIdx := 0
	for !p.at(token.LBRACKET) && !p.at(token.EOF) {
		kv, err := p.parseKeyValue()
		if err != nil {
			return nil, err
		}
		if kv.QuickRegister {
			kv.Key = strconv.Itoa(quickIdx)
			quickIdx++
		}
		sec.Entries = append(sec.Entries, kv)
	}
	return sec, nil
}

func (p *Parser) parseKeyValue() (*ast.KeyValue, error) {
	pos := p.cur.Pos
	if ok, err := p.match(token.PLUSEQ); err != nil {
		return nil, err
	} else if ok {
		value, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		return &ast.KeyValue{QuickRegister: true, Value: value, P: pos}, nil
	}

	nameTok, err := p.expect(token.IDENT)
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(token.EQ); err != nil {
		return nil, err
	}
	value, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	return &ast.KeyValue{Key: nameTok.Literal, Value: value, P: pos}, nil
}

// ---- expressions: additive -> multiplicative -> unary -> primary ------

func (p *Parser) parseExpr() (ast.Expr, error) { return p.parseAdditive() }

func (p *Parser) parseAdditive() (ast.Expr, error) {
	left, err := p.parseMultiplicative()
	if err != nil {
		return nil, err
	}
	for p.at(token.PLUS) || p.at(token.MINUS) {
		op := p.cur.Type
		pos := p.cur.Pos
		if err := p.advance(); err != nil {
			return nil, err
		}
		right, err := p.parseMultiplicative()
		if err != nil {
			return nil, err
		}
		left = &ast.Binary{Op: op, Left: left, Right: right, P: pos}
	}
	return left, nil
}

func (p *Parser) parseMultiplicative() (ast.Expr, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for p.at(token.STAR) || p.at(token.SLASH) || p.at(token.PERCENT) {
		op := p.cur.Type
		pos := p.cur.Pos
		if err := p.advance(); err != nil {
			return nil, err
		}
		right, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		left = &ast.Binary{Op: op, Left: left, Right: right, P: pos}
	}
	return left, nil
}

func (p *Parser) parseUnary() (ast.Expr, error) {
	if p.at(token.PLUS) || p.at(token.MINUS) {
		op := p.cur.Type
		pos := p.cur.Pos
		if err := p.advance(); err != nil {
			return nil, err
		}
		operand, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return &ast.Unary{Op: op, Operand: operand, P: pos}, nil
	}
	return p.parsePrimary()
}

func (p *Parser) parsePrimary() (ast.Expr, error) {
	pos := p.cur.Pos
	switch p.cur.Type {
	case token.INT:
		lit := p.cur.Literal
		if err := p.advance(); err != nil {
			return nil, err
		}
		n, err := strconv.ParseInt(lit, 10, 64)
		if err != nil {
			return nil, &Error{Kind: ExpectedExpression, Msg: "invalid integer literal " + lit, Pos: pos}
		}
		return &ast.IntLit{Value: n, P: pos}, nil
	case token.FLOAT:
		lit := p.cur.Literal
		if err := p.advance(); err != nil {
			return nil, err
		}
		f, err := strconv.ParseFloat(lit, 64)
		if err != nil {
			return nil, &Error{Kind: ExpectedExpression, Msg: "invalid float literal " + lit, Pos: pos}
		}
		return &ast.FloatLit{Value: f, P: pos}, nil
	case token.STRING:
		lit := p.cur.Literal
		if err := p.advance(); err != nil {
			return nil, err
		}
		return &ast.StringLit{Value: lit, P: pos}, nil
	case token.TRUE, token.FALSE:
		v := p.cur.Type == token.TRUE
		if err := p.advance(); err != nil {
			return nil, err
		}
		return &ast.BoolLit{Value: v, P: pos}, nil
	case token.NULL:
		if err := p.advance(); err != nil {
			return nil, err
		}
		return &ast.NullLit{P: pos}, nil
	case token.MACRO_REF:
		name := p.cur.Literal
		if err := p.advance(); err != nil {
			return nil, err
		}
		return &ast.MacroRef{Name: name, P: pos}, nil
	case token.CROSS_REF:
		lit := p.cur.Literal
		if err := p.advance(); err != nil {
			return nil, err
		}
		section, key := splitTwo(lit, ".")
		return &ast.CrossRef{Section: section, Key: key, P: pos}, nil
	case token.ENV_REF:
		return p.parseEnvRef(pos)
	case token.HASH:
		return p.parseHexColor(pos)
	case token.LBRACKET:
		return p.parseArrayLit(pos)
	case token.LBRACE:
		return p.parseMapLit(pos)
	case token.LPAREN:
		return p.parseGroupOrSet(pos)
	case token.IDENT:
		return p.parseCall(pos)
	default:
		return nil, p.errorf(ExpectedExpression, "expected expression, got %s %q", p.cur.Type, p.cur.Literal)
	}
}

// splitTwo splits s on the first occurrence of sep, returning ("", s)
// when sep is absent.
func splitTwo(s, sep string) (string, string) {
	i := strings.Index(s, sep)
	if i < 0 {
		return "", s
	}
	return s[:i], s[i+len(sep):]
}

func (p *Parser) parseEnvRef(pos token.Position) (ast.Expr, error) {
	raw := p.cur.Literal
	if err := p.advance(); err != nil {
		return nil, err
	}
	name, rest := splitTwo(raw, ":")
	if name == "" && rest == raw {
		name = raw
		var node ast.Expr = &ast.EnvRef{Name: name, P: pos}
		return node, nil
	}
	sub, err := New(p.file, rest)
	if err != nil {
		return nil, err
	}
	defExpr, err := sub.parseExpr()
	if err != nil {
		return nil, err
	}
	return &ast.EnvRef{Name: name, Default: defExpr, P: pos}, nil
}

func (p *Parser) parseHexColor(pos token.Position) (ast.Expr, error) {
	if _, err := p.expect(token.HASH); err != nil {
		return nil, err
	}
	if !p.at(token.IDENT) && !p.at(token.INT) {
		return nil, p.errorf(ExpectedExpression, "expected 6 hex digits after '#', got %s", p.cur.Type)
	}
	hex := p.cur.Literal
	firstPos := p.cur.Pos
	if err := p.advance(); err != nil {
		return nil, err
	}
	// A digit-leading hex run (e.g. "1a2b3c") lexes as two adjacent
	// tokens: readNumber stops at the first letter, leaving the rest
	// for readIdentifier to pick up. Re-join them here when they sit
	// back to back with no space, so digit-then-letter runs parse the
	// same as letter-leading or all-digit ones.
	if (p.at(token.IDENT) || p.at(token.INT)) && p.cur.Pos.Line == firstPos.Line &&
		p.cur.Pos.Column == firstPos.Column+len(hex) {
		hex += p.cur.Literal
		if err := p.advance(); err != nil {
			return nil, err
		}
	}
	if len(hex) != 6 && len(hex) != 8 {
		return nil, &Error{Kind: ExpectedExpression, Msg: "hex color must have 6 or 8 hex digits, got " + hex, Pos: pos}
	}
	for _, r := range hex {
		if !isHexDigit(r) {
			return nil, &Error{Kind: ExpectedExpression, Msg: "invalid hex digit in color literal " + hex, Pos: pos}
		}
	}
	return &ast.HexColor{Hex: strings.ToUpper(hex), P: pos}, nil
}

func isHexDigit(r rune) bool {
	return (r >= '0' && r <= '9') || (r >= 'a' && r <= 'f') || (r >= 'A' && r <= 'F')
}

func (p *Parser) parseArrayLit(pos token.Position) (ast.Expr, error) {
	if _, err := p.expect(token.LBRACKET); err != nil {
		return nil, err
	}
	lit := &ast.ArrayLit{P: pos}
	if p.at(token.RBRACKET) {
		return lit, p.advance()
	}
	for {
		el, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		lit.Elements = append(lit.Elements, el)
		more, err := p.match(token.COMMA)
		if err != nil {
			return nil, err
		}
		if !more {
			break
		}
		if p.at(token.RBRACKET) {
			break
		}
	}
	if _, err := p.expect(token.RBRACKET); err != nil {
		return nil, err
	}
	return lit, nil
}

func (p *Parser) parseMapLit(pos token.Position) (ast.Expr, error) {
	if _, err := p.expect(token.LBRACE); err != nil {
		return nil, err
	}
	lit := &ast.MapLit{P: pos}
	if p.at(token.RBRACE) {
		return lit, p.advance()
	}
	for {
		var key string
		switch p.cur.Type {
		case token.STRING, token.IDENT:
			key = p.cur.Literal
			if err := p.advance(); err != nil {
				return nil, err
			}
		default:
			return nil, p.errorf(ExpectedExpression, "expected map key, got %s", p.cur.Type)
		}
		if _, err := p.expect(token.COLON); err != nil {
			return nil, err
		}
		val, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		lit.Keys = append(lit.Keys, key)
		lit.Values = append(lit.Values, val)
		more, err := p.match(token.COMMA)
		if err != nil {
			return nil, err
		}
		if !more {
			break
		}
		if p.at(token.RBRACE) {
			break
		}
	}
	if _, err := p.expect(token.RBRACE); err != nil {
		return nil, err
	}
	return lit, nil
}

// parseGroupOrSet parses "(...)": empty -> empty Set, single element with
// a trailing comma -> singleton Set, several comma-separated elements ->
// Set, a single element with no trailing comma -> a plain Group (spec
// §4.5: comma presence is what forces set semantics).
func (p *Parser) parseGroupOrSet(pos token.Position) (ast.Expr, error) {
	if _, err := p.expect(token.LPAREN); err != nil {
		return nil, err
	}
	if p.at(token.RPAREN) {
		return &ast.SetLit{P: pos}, p.advance()
	}
	first, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	hadComma, err := p.match(token.COMMA)
	if err != nil {
		return nil, err
	}
	if !hadComma {
		if _, err := p.expect(token.RPAREN); err != nil {
			return nil, err
		}
		return &ast.Group{Inner: first, P: pos}, nil
	}

	set := &ast.SetLit{Elements: []ast.Expr{first}, P: pos}
	for !p.at(token.RPAREN) {
		el, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		set.Elements = append(set.Elements, el)
		more, err := p.match(token.COMMA)
		if err != nil {
			return nil, err
		}
		if !more {
			break
		}
	}
	if _, err := p.expect(token.RPAREN); err != nil {
		return nil, err
	}
	return set, nil
}

func (p *Parser) parseCall(pos token.Position) (ast.Expr, error) {
	nameTok := p.cur
	if err := p.advance(); err != nil {
		return nil, err
	}
	canonical, ok := constructorNames[strings.ToLower(nameTok.Literal)]
	if !ok {
		return nil, &Error{Kind: InvalidConstructor, Msg: "unknown constructor " + nameTok.Literal, Pos: pos}
	}
	if _, err := p.expect(token.LPAREN); err != nil {
		return nil, err
	}
	call := &ast.Call{Name: canonical, P: pos}
	if !p.at(token.RPAREN) {
		for {
			arg, err := p.parseExpr()
			if err != nil {
				return nil, err
			}
			call.Args = append(call.Args, arg)
			more, err := p.match(token.COMMA)
			if err != nil {
				return nil, err
			}
			if !more {
				break
			}
		}
	}
	if _, err := p.expect(token.RPAREN); err != nil {
		return nil, err
	}
	if err := checkArity(canonical, call); err != nil {
		return nil, err
	}
	return call, nil
}

// checkArity enforces constructor arities purely from the parsed argument
// count (spec §4.3: "Arity mismatches fail with InvalidConstructor").
// Argument-type checks (e.g. Color components must be integers) happen
// later, during evaluation, once expressions have values.
func checkArity(name string, call *ast.Call) error {
	n := len(call.Args)
	var ok bool
	switch name {
	case "Color":
		ok = n == 3 || n == 4
	case "Coord":
		ok = n == 2 || n == 3
	case "Path":
		ok = n == 1
	case "Dyna":
		ok = n == 1
	case "List", "Array", "Set":
		ok = true
	default:
		ok = true
	}
	if !ok {
		return &Error{Kind: InvalidConstructor, Msg: fmt.Sprintf("%s: wrong number of arguments (%d)", name, n), Pos: call.P}
	}
	return nil
}
