package resolve

import (
	"strconv"
	"strings"

	"github.com/yini-lang/yini/ast"
	"github.com/yini-lang/yini/token"
	"github.com/yini-lang/yini/value"
)

// evaluator evaluates a single ast.Expr into a value.Value (spec §4.5
// "Evaluation rules"). One evaluator is created per entry/macro
// evaluation so currentSection can vary per call.
type evaluator struct {
	macros         *macroSet
	xref           *xrefResolver // nil during macro evaluation (Pass 1)
	env            EnvFunc
	currentSection string
}

func (ev *evaluator) eval(expr ast.Expr) (value.Value, error) {
	switch n := expr.(type) {
	case *ast.IntLit:
		return value.Int(n.Value), nil
	case *ast.FloatLit:
		return value.Float(n.Value), nil
	case *ast.StringLit:
		return value.String(n.Value), nil
	case *ast.BoolLit:
		return value.Bool(n.Value), nil
	case *ast.NullLit:
		return value.Null{}, nil
	case *ast.ArrayLit:
		return ev.evalArray(n)
	case *ast.SetLit:
		return ev.evalSet(n)
	case *ast.MapLit:
		return ev.evalMap(n)
	case *ast.HexColor:
		return ev.evalHexColor(n)
	case *ast.MacroRef:
		return ev.evalMacroRef(n)
	case *ast.CrossRef:
		return ev.evalCrossRef(n)
	case *ast.EnvRef:
		return ev.evalEnvRef(n)
	case *ast.Binary:
		return ev.evalBinary(n)
	case *ast.Unary:
		return ev.evalUnary(n)
	case *ast.Group:
		return ev.eval(n.Inner)
	case *ast.Call:
		return ev.evalCall(n)
	default:
		return nil, errf(InvalidOperator, expr.Pos(), "unsupported expression node %T", expr)
	}
}

func (ev *evaluator) evalArray(n *ast.ArrayLit) (value.Value, error) {
	items := make([]value.Value, 0, len(n.Elements))
	for _, el := range n.Elements {
		v, err := ev.eval(el)
		if err != nil {
			return nil, err
		}
		items = append(items, v)
	}
	return value.NewArray(items...), nil
}

func (ev *evaluator) evalSet(n *ast.SetLit) (value.Value, error) {
	s := value.NewSet()
	for _, el := range n.Elements {
		v, err := ev.eval(el)
		if err != nil {
			return nil, err
		}
		if s.Has(v) {
			return nil, errf(DuplicateSetMember, el.Pos(), "duplicate set member %s", v.String())
		}
		s.Items = append(s.Items, v)
	}
	return s, nil
}

func (ev *evaluator) evalMap(n *ast.MapLit) (value.Value, error) {
	m := value.NewMap()
	for i, k := range n.Keys {
		v, err := ev.eval(n.Values[i])
		if err != nil {
			return nil, err
		}
		m.Set(k, v)
	}
	return m, nil
}

func (ev *evaluator) evalHexColor(n *ast.HexColor) (value.Value, error) {
	if len(n.Hex) != 6 && len(n.Hex) != 8 {
		return nil, errf(InvalidHexColor, n.P, "hex color must be 6 or 8 digits, got %q", n.Hex)
	}
	b, err := parseHexBytes(n.Hex)
	if err != nil {
		return nil, errf(InvalidHexColor, n.P, "%s", err.Error())
	}
	c := value.Color{R: b[0], G: b[1], B: b[2]}
	if len(b) == 4 {
		c.A = b[3]
		c.HasAlpha = true
	}
	return c, nil
}

func parseHexBytes(hex string) ([]byte, error) {
	out := make([]byte, len(hex)/2)
	for i := range out {
		n, err := strconv.ParseUint(hex[i*2:i*2+2], 16, 8)
		if err != nil {
			return nil, err
		}
		out[i] = byte(n)
	}
	return out, nil
}

func (ev *evaluator) evalMacroRef(n *ast.MacroRef) (value.Value, error) {
	v, err := ev.macros.resolve(n.Name, n.P)
	if err != nil {
		return nil, err
	}
	return v.Clone(), nil
}

func (ev *evaluator) evalCrossRef(n *ast.CrossRef) (value.Value, error) {
	if ev.xref == nil {
		return nil, errf(UndefinedCrossRef, n.P, "cross-references are not available in this scope")
	}
	if n.Section == ev.currentSection {
		st, known := ev.xref.state[fqKey(n.Section, n.Key)]
		switch {
		case known && st == stateDone:
			return ev.xref.values[fqKey(n.Section, n.Key)].Clone(), nil
		case known && st == stateInProgress:
			return nil, errf(CircularReference, n.P, "circular reference at %s.%s", n.Section, n.Key)
		default:
			// A forward reference is still rejected, but its target is
			// evaluated first so that a same-section cycle is reported as
			// CircularReference rather than UseBeforeResolution.
			if !known {
				if _, err := ev.xref.resolveEntry(n.Section, n.Key, n.P); err != nil {
					if rerr, ok := err.(*Error); ok && rerr.Kind == CircularReference {
						return nil, err
					}
				}
			}
			return nil, errf(UseBeforeResolution, n.P, "%s.%s used before it is resolved", n.Section, n.Key)
		}
	}
	v, err := ev.xref.resolveEntry(n.Section, n.Key, n.P)
	if err != nil {
		return nil, err
	}
	return v.Clone(), nil
}

func (ev *evaluator) evalEnvRef(n *ast.EnvRef) (value.Value, error) {
	if ev.env != nil {
		if v, ok := ev.env(n.Name); ok {
			return value.String(v), nil
		}
	}
	if n.Default != nil {
		return ev.eval(n.Default)
	}
	return nil, errf(MissingEnvVar, n.P, "environment variable %q is not set", n.Name)
}

func (ev *evaluator) evalUnary(n *ast.Unary) (value.Value, error) {
	v, err := ev.eval(n.Operand)
	if err != nil {
		return nil, err
	}
	switch n.Op {
	case token.MINUS:
		switch x := v.(type) {
		case value.Int:
			return -x, nil
		case value.Float:
			return -x, nil
		}
	case token.PLUS:
		switch v.(type) {
		case value.Int, value.Float:
			return v, nil
		}
	}
	return nil, errf(InvalidOperator, n.P, "unary %s is not defined for %s", n.Op, v.Kind())
}

func (ev *evaluator) evalBinary(n *ast.Binary) (value.Value, error) {
	left, err := ev.eval(n.Left)
	if err != nil {
		return nil, err
	}
	right, err := ev.eval(n.Right)
	if err != nil {
		return nil, err
	}

	li, lIsInt := left.(value.Int)
	ri, rIsInt := right.(value.Int)
	if lIsInt && rIsInt {
		switch n.Op {
		case token.PLUS:
			return li + ri, nil
		case token.MINUS:
			return li - ri, nil
		case token.STAR:
			return li * ri, nil
		case token.SLASH:
			if ri == 0 {
				return nil, errf(DivisionByZero, n.P, "division by zero")
			}
			return li / ri, nil
		case token.PERCENT:
			if ri == 0 {
				return nil, errf(DivisionByZero, n.P, "division by zero")
			}
			return li % ri, nil
		}
	}

	lf, lok := asFloat(left)
	rf, rok := asFloat(right)
	if lok && rok {
		if n.Op == token.PERCENT {
			return nil, errf(InvalidOperator, n.P, "%% is not defined on floats")
		}
		switch n.Op {
		case token.PLUS:
			return value.Float(lf + rf), nil
		case token.MINUS:
			return value.Float(lf - rf), nil
		case token.STAR:
			return value.Float(lf * rf), nil
		case token.SLASH:
			if rf == 0 {
				return nil, errf(DivisionByZero, n.P, "division by zero")
			}
			return value.Float(lf / rf), nil
		}
	}

	return nil, errf(InvalidOperator, n.P, "%s is not defined for %s and %s", n.Op, left.Kind(), right.Kind())
}

func asFloat(v value.Value) (float64, bool) {
	switch x := v.(type) {
	case value.Int:
		return float64(x), true
	case value.Float:
		return float64(x), true
	}
	return 0, false
}

// constructorArity lists the argument-count bounds of the fixed-arity
// constructors, the same bounds parser.checkArity enforces at parse
// time; it is kept here rather than shared so the evaluator does not
// depend on package parser.
var constructorArity = map[string]struct{ min, max int }{
	"Color": {3, 4},
	"Coord": {2, 3},
	"Path":  {1, 1},
	"Dyna":  {1, 1},
}

func (ev *evaluator) evalCall(n *ast.Call) (value.Value, error) {
	switch n.Name {
	case "Color":
		return ev.evalColor(n)
	case "Coord":
		return ev.evalCoord(n)
	case "Path":
		return ev.evalPath(n)
	case "List", "Array":
		return ev.evalArrayCtor(n)
	case "Set":
		return ev.evalSetCtor(n)
	case "Dyna":
		return ev.evalDyna(n)
	default:
		return nil, errf(InvalidConstructor, n.P, "unknown constructor %s", n.Name)
	}
}

func (ev *evaluator) evalArgs(n *ast.Call) ([]value.Value, error) {
	out := make([]value.Value, len(n.Args))
	for i, a := range n.Args {
		v, err := ev.eval(a)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func (ev *evaluator) evalColor(n *ast.Call) (value.Value, error) {
	args, err := ev.evalArgs(n)
	if err != nil {
		return nil, err
	}
	bytes := make([]byte, len(args))
	for i, a := range args {
		iv, ok := a.(value.Int)
		if !ok || iv < 0 || iv > 255 {
			return nil, errf(InvalidConstructor, n.P, "Color component %d must be an integer in [0,255]", i)
		}
		bytes[i] = byte(iv)
	}
	c := value.Color{R: bytes[0], G: bytes[1], B: bytes[2]}
	if len(bytes) == 4 {
		c.A = bytes[3]
		c.HasAlpha = true
	}
	return c, nil
}

func (ev *evaluator) evalCoord(n *ast.Call) (value.Value, error) {
	args, err := ev.evalArgs(n)
	if err != nil {
		return nil, err
	}
	nums := make([]float64, len(args))
	for i, a := range args {
		f, ok := asFloat(a)
		if !ok {
			return nil, errf(InvalidConstructor, n.P, "Coord component %d must be numeric", i)
		}
		nums[i] = f
	}
	c := value.Coord{X: nums[0], Y: nums[1]}
	if len(nums) == 3 {
		c.Z = nums[2]
		c.HasZ = true
	}
	return c, nil
}

func (ev *evaluator) evalPath(n *ast.Call) (value.Value, error) {
	args, err := ev.evalArgs(n)
	if err != nil {
		return nil, err
	}
	s, ok := args[0].(value.String)
	if !ok {
		return nil, errf(InvalidConstructor, n.P, "Path argument must be a string")
	}
	return value.Path{Raw: string(s), IsPath: true}, nil
}

func (ev *evaluator) evalArrayCtor(n *ast.Call) (value.Value, error) {
	args, err := ev.evalArgs(n)
	if err != nil {
		return nil, err
	}
	return value.NewArray(args...), nil
}

func (ev *evaluator) evalSetCtor(n *ast.Call) (value.Value, error) {
	s := value.NewSet()
	for _, a := range n.Args {
		v, err := ev.eval(a)
		if err != nil {
			return nil, err
		}
		if s.Has(v) {
			return nil, errf(DuplicateSetMember, a.Pos(), "duplicate set member %s", v.String())
		}
		s.Items = append(s.Items, v)
	}
	return s, nil
}

func (ev *evaluator) evalDyna(n *ast.Call) (value.Value, error) {
	inner, err := ev.eval(n.Args[0])
	if err != nil {
		return nil, err
	}
	d, err := value.NewDynamic(inner)
	if err != nil {
		return nil, errf(NestedDyna, n.P, "%s", err.Error())
	}
	return d, nil
}

func fqKey(section, key string) string { return section + "." + strings.TrimPrefix(key, ".") }
