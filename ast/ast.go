// Package ast defines the Document abstract syntax tree produced by the
// parser: statements (sections, directives) and the unresolved
// expression nodes spec §3 lists as "only visible pre-resolution".
package ast

import (
	"strings"

	"github.com/yini-lang/yini/token"
)

// Node is the common interface for every AST node.
type Node interface {
	Pos() token.Position
}

// Expr is any expression node, resolved leaf literal or not.
type Expr interface {
	Node
	exprNode()
}

// Stmt is any top-level-ish statement node.
type Stmt interface {
	Node
	stmtNode()
}

// ---- literal expressions --------------------------------------------------

type IntLit struct {
	Value int64
	P     token.Position
}

func (n *IntLit) Pos() token.Position { return n.P }
func (*IntLit) exprNode()             {}

type FloatLit struct {
	Value float64
	P     token.Position
}

func (n *FloatLit) Pos() token.Position { return n.P }
func (*FloatLit) exprNode()             {}

type StringLit struct {
	Value string
	P     token.Position
}

func (n *StringLit) Pos() token.Position { return n.P }
func (*StringLit) exprNode()             {}

type BoolLit struct {
	Value bool
	P     token.Position
}

func (n *BoolLit) Pos() token.Position { return n.P }
func (*BoolLit) exprNode()             {}

type NullLit struct {
	P token.Position
}

func (n *NullLit) Pos() token.Position { return n.P }
func (*NullLit) exprNode()             {}

// ArrayLit is a "[...]" literal; elements may themselves be unresolved.
type ArrayLit struct {
	Elements []Expr
	P        token.Position
}

func (n *ArrayLit) Pos() token.Position { return n.P }
func (*ArrayLit) exprNode()             {}

// SetLit is a "(a, b, ...)" or "(a,)" literal; comma presence in the
// parser is what distinguishes it from a parenthesized Group.
type SetLit struct {
	Elements []Expr
	P        token.Position
}

func (n *SetLit) Pos() token.Position { return n.P }
func (*SetLit) exprNode()             {}

// MapLit is a "{k: v, ...}" literal.
type MapLit struct {
	Keys   []string
	Values []Expr
	P      token.Position
}

func (n *MapLit) Pos() token.Position { return n.P }
func (*MapLit) exprNode()             {}

// HexColor is an unresolved "#RRGGBB" literal (spec §3/§4.5).
type HexColor struct {
	Hex string
	P   token.Position
}

func (n *HexColor) Pos() token.Position { return n.P }
func (*HexColor) exprNode()             {}

// ---- unresolved reference/operator expressions ----------------------------

type MacroRef struct {
	Name string
	P    token.Position
}

func (n *MacroRef) Pos() token.Position { return n.P }
func (*MacroRef) exprNode()             {}

type CrossRef struct {
	Section string
	Key     string
	P       token.Position
}

func (n *CrossRef) Pos() token.Position { return n.P }
func (*CrossRef) exprNode()             {}

// EnvRef is "${NAME}" or "${NAME:default-expr}"; Default is nil when
// absent.
type EnvRef struct {
	Name    string
	Default Expr
	P       token.Position
}

func (n *EnvRef) Pos() token.Position { return n.P }
func (*EnvRef) exprNode()             {}

type Binary struct {
	Op    token.Type
	Left  Expr
	Right Expr
	P     token.Position
}

func (n *Binary) Pos() token.Position { return n.P }
func (*Binary) exprNode()             {}

type Unary struct {
	Op      token.Type
	Operand Expr
	P       token.Position
}

func (n *Unary) Pos() token.Position { return n.P }
func (*Unary) exprNode()             {}

// Call is a constructor invocation: Color/Coord/Path/List/Array/Set/Dyna,
// matched case-insensitively (spec §4.3, §9(a)).
type Call struct {
	Name string
	Args []Expr
	P    token.Position
}

func (n *Call) Pos() token.Position { return n.P }
func (*Call) exprNode()             {}

// Group is a parenthesized single expression (no trailing comma).
type Group struct {
	Inner Expr
	P     token.Position
}

func (n *Group) Pos() token.Position { return n.P }
func (*Group) exprNode()             {}

// ---- statements -------------------------------------------------------

// KeyValue is either "key = expr" or the quick-register form "+= expr",
// in which case Key is the stringified auto-index and QuickRegister is
// true (spec §3/§4.3).
type KeyValue struct {
	Key           string
	Value         Expr
	QuickRegister bool
	P             token.Position
}

func (n *KeyValue) Pos() token.Position { return n.P }
func (*KeyValue) stmtNode()             {}

// Section is a named, ordered group of entries with an optional parent
// list (spec §3).
type Section struct {
	Name    string
	Parents []string
	Entries []*KeyValue
	P       token.Position
}

func (n *Section) Pos() token.Position { return n.P }
func (*Section) stmtNode()             {}

// MacroDef is one "name = expr" pair inside [#define].
type MacroDef struct {
	Name  string
	Value Expr
	P     token.Position
}

// IncludeEntry is one "+= \"path\"" entry inside [#include].
type IncludeEntry struct {
	Path string
	P    token.Position
}

// TypeExpr is a schema type descriptor: a scalar name ("string", "int",
// "float", "bool", "map", "set") or a compound form (array[Elem],
// {KeyKind:Elem}).
type TypeExpr struct {
	Name    string // "string"|"int"|"float"|"bool"|"array"|"map"|"set"
	Elem    *TypeExpr
	KeyKind *TypeExpr // only set for the "{K:V}" map-of form
}

func (t *TypeExpr) String() string {
	switch t.Name {
	case "array":
		if t.Elem != nil {
			return "array[" + t.Elem.String() + "]"
		}
		return "array"
	case "map":
		if t.KeyKind != nil && t.Elem != nil {
			return "{" + t.KeyKind.String() + ":" + t.Elem.String() + "}"
		}
		return "map"
	default:
		return t.Name
	}
}

// EmptyBehavior is how the Schema Validator reacts to an absent key
// (spec §3/§4.6).
type EmptyBehavior int

const (
	EmptyError EmptyBehavior = iota
	EmptySilent
	EmptyDefault
)

// SchemaRule is one "section.key = type-descriptor" rule (spec §3/§4.3).
type SchemaRule struct {
	Section  string
	Key      string
	Type     *TypeExpr
	Required bool
	Empty    EmptyBehavior
	Default  Expr // set iff Empty == EmptyDefault
	Min      *float64
	Max      *float64
	P        token.Position
}

// Document is the parsed, single-file AST: the file-scope statement
// list, split into its three pseudo-section kinds plus ordinary
// sections (spec §3).
type Document struct {
	Sections []*Section
	Defines  []*MacroDef
	Includes []*IncludeEntry
	Schema   []*SchemaRule
}

// Section looks up a section by name, or nil.
func (d *Document) Section(name string) *Section {
	for _, s := range d.Sections {
		if s.Name == name {
			return s
		}
	}
	return nil
}

// IsReservedName reports whether name (case-insensitively) is one of the
// directive names #define, #include, #schema or the #end_schema
// terminator, which are exempt from the document-wide uniqueness
// invariant.
func IsReservedName(name string) bool {
	switch strings.ToLower(name) {
	case "#define", "#include", "#schema", "#end_schema":
		return true
	default:
		return false
	}
}
