// Package value implements the YINI resolved-value model (spec §3): the
// tagged sum of leaf and compound value kinds every expression reduces
// to once macro expansion, cross-reference resolution, and arithmetic
// evaluation are complete.
package value

import "fmt"

// Kind tags a Value's concrete representation.
type Kind int

const (
	KindNull Kind = iota
	KindInt
	KindFloat
	KindBool
	KindString
	KindArray
	KindSet
	KindMap
	KindColor
	KindCoord
	KindPath
	KindDynamic
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindBool:
		return "bool"
	case KindString:
		return "string"
	case KindArray:
		return "array"
	case KindSet:
		return "set"
	case KindMap:
		return "map"
	case KindColor:
		return "color"
	case KindCoord:
		return "coord"
	case KindPath:
		return "path"
	case KindDynamic:
		return "dynamic"
	default:
		return "unknown"
	}
}

// Value is the common interface satisfied by every resolved value kind.
type Value interface {
	Kind() Kind
	// Clone returns a deep copy, so macro substitution and inheritance
	// never let two sections alias the same backing array/map/set.
	Clone() Value
	// Equal reports structural equality, used for Set membership.
	Equal(Value) bool
	// String renders the canonical textual form (spec §6 formatter).
	String() string
}

// Null is the singleton null/absent value.
type Null struct{}

func (Null) Kind() Kind       { return KindNull }
func (Null) Clone() Value     { return Null{} }
func (Null) String() string   { return "null" }
func (Null) Equal(v Value) bool {
	_, ok := v.(Null)
	return ok
}

// Int is a 64-bit signed integer.
type Int int64

func (Int) Kind() Kind   { return KindInt }
func (v Int) Clone() Value { return v }
func (v Int) String() string {
	return fmt.Sprintf("%d", int64(v))
}
func (v Int) Equal(o Value) bool {
	other, ok := o.(Int)
	return ok && other == v
}

// Float is a 64-bit IEEE float.
type Float float64

func (Float) Kind() Kind     { return KindFloat }
func (v Float) Clone() Value { return v }
func (v Float) String() string {
	return formatFloat(float64(v))
}
func (v Float) Equal(o Value) bool {
	other, ok := o.(Float)
	return ok && other == v
}

// Bool is a boolean leaf.
type Bool bool

func (Bool) Kind() Kind     { return KindBool }
func (v Bool) Clone() Value { return v }
func (v Bool) String() string {
	if v {
		return "true"
	}
	return "false"
}
func (v Bool) Equal(o Value) bool {
	other, ok := o.(Bool)
	return ok && other == v
}

// String is a UTF-8 string leaf.
type String string

func (String) Kind() Kind     { return KindString }
func (v String) Clone() Value { return v }
func (v String) String() string {
	return quoteString(string(v))
}
func (v String) Equal(o Value) bool {
	other, ok := o.(String)
	return ok && other == v
}

// Array is an ordered, possibly heterogeneous sequence.
type Array struct {
	Items []Value
}

func NewArray(items ...Value) *Array { return &Array{Items: items} }

func (*Array) Kind() Kind { return KindArray }
func (a *Array) Clone() Value {
	items := make([]Value, len(a.Items))
	for i, it := range a.Items {
		items[i] = it.Clone()
	}
	return &Array{Items: items}
}
func (a *Array) Equal(o Value) bool {
	other, ok := o.(*Array)
	if !ok || len(other.Items) != len(a.Items) {
		return false
	}
	for i := range a.Items {
		if !a.Items[i].Equal(other.Items[i]) {
			return false
		}
	}
	return true
}

// Set is an ordered sequence with no duplicate members (spec §9(c): the
// ambiguous original C++ behavior is resolved here as a hard error on
// duplicates, not silent dedup).
type Set struct {
	Items []Value
}

func NewSet(items ...Value) *Set { return &Set{Items: items} }

func (*Set) Kind() Kind { return KindSet }
func (s *Set) Clone() Value {
	items := make([]Value, len(s.Items))
	for i, it := range s.Items {
		items[i] = it.Clone()
	}
	return &Set{Items: items}
}
func (s *Set) Equal(o Value) bool {
	other, ok := o.(*Set)
	if !ok || len(other.Items) != len(s.Items) {
		return false
	}
	for i := range s.Items {
		if !s.Items[i].Equal(other.Items[i]) {
			return false
		}
	}
	return true
}

// Has reports whether v is already a member of the set, by structural
// equality.
func (s *Set) Has(v Value) bool {
	for _, it := range s.Items {
		if it.Equal(v) {
			return true
		}
	}
	return false
}

// Map is an ordered string-keyed mapping; insertion order is preserved.
type Map struct {
	Keys   []string
	Values map[string]Value
}

func NewMap() *Map {
	return &Map{Values: make(map[string]Value)}
}

// Set inserts or overwrites key, preserving first-insertion order.
func (m *Map) Set(key string, v Value) {
	if _, exists := m.Values[key]; !exists {
		m.Keys = append(m.Keys, key)
	}
	m.Values[key] = v
}

// Get returns the value for key and whether it was present.
func (m *Map) Get(key string) (Value, bool) {
	v, ok := m.Values[key]
	return v, ok
}

func (*Map) Kind() Kind { return KindMap }
func (m *Map) Clone() Value {
	out := NewMap()
	for _, k := range m.Keys {
		out.Set(k, m.Values[k].Clone())
	}
	return out
}
func (m *Map) Equal(o Value) bool {
	other, ok := o.(*Map)
	if !ok || len(other.Keys) != len(m.Keys) {
		return false
	}
	for _, k := range m.Keys {
		ov, ok := other.Values[k]
		if !ok || !m.Values[k].Equal(ov) {
			return false
		}
	}
	return true
}

// Color is an RGB(A) color constructor result; Alpha is meaningful only
// when HasAlpha is true.
type Color struct {
	R, G, B, A byte
	HasAlpha   bool
}

func (Color) Kind() Kind     { return KindColor }
func (v Color) Clone() Value { return v }
func (v Color) Equal(o Value) bool {
	other, ok := o.(Color)
	return ok && other == v
}

// Coord is a 2D or 3D coordinate; Z is meaningful only when HasZ is true.
type Coord struct {
	X, Y, Z float64
	HasZ    bool
}

func (Coord) Kind() Kind     { return KindCoord }
func (v Coord) Clone() Value { return v }
func (v Coord) Equal(o Value) bool {
	other, ok := o.(Coord)
	return ok && other == v
}

// Path is an opaque string flagged for downstream path-aware tooling.
type Path struct {
	Raw    string
	IsPath bool
}

func (Path) Kind() Kind     { return KindPath }
func (v Path) Clone() Value { return v }
func (v Path) Equal(o Value) bool {
	other, ok := o.(Path)
	return ok && other == v
}
func (v Path) String() string {
	return "Path(" + quoteString(v.Raw) + ")"
}

// Dynamic wraps any non-Dynamic value as a mutable, persistable site
// (spec §3, §4.8). Nesting is rejected at construction.
type Dynamic struct {
	Inner Value
}

// NewDynamic wraps inner, returning an error if inner is itself Dynamic.
func NewDynamic(inner Value) (*Dynamic, error) {
	if _, ok := inner.(*Dynamic); ok {
		return nil, fmt.Errorf("NestedDyna: cannot wrap a Dynamic value in Dyna(...)")
	}
	return &Dynamic{Inner: inner}, nil
}

func (*Dynamic) Kind() Kind { return KindDynamic }
func (d *Dynamic) Clone() Value {
	return &Dynamic{Inner: d.Inner.Clone()}
}
func (d *Dynamic) Equal(o Value) bool {
	other, ok := o.(*Dynamic)
	return ok && d.Inner.Equal(other.Inner)
}
func (d *Dynamic) String() string {
	return d.Inner.String()
}

// Unwrap returns v's payload, stripping one layer of Dynamic if present.
func Unwrap(v Value) Value {
	if d, ok := v.(*Dynamic); ok {
		return d.Inner
	}
	return v
}
