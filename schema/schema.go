// Package schema implements the Schema Validator (spec §4.6): it
// consumes the parsed rule set from [#schema] and the resolved
// configuration, and reports every violation in one pass rather than
// failing fast on the first one, mirroring
// original_source/src/Core/Validator.cpp's accumulate-everything shape.
package schema

import (
	"fmt"

	"github.com/yini-lang/yini/ast"
	"github.com/yini-lang/yini/resolve"
	"github.com/yini-lang/yini/value"
)

// ErrorKind enumerates validator failure kinds (spec §7).
type ErrorKind string

const (
	MissingSection ErrorKind = "MissingSection"
	MissingKey     ErrorKind = "MissingKey"
	TypeMismatch   ErrorKind = "TypeMismatch"
	OutOfRange     ErrorKind = "OutOfRange"
)

// ValidationError is one accumulated rule violation.
type ValidationError struct {
	Kind    ErrorKind
	Section string
	Key     string
	Msg     string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s.%s: %s", e.Kind, e.Section, e.Key, e.Msg)
}

// Validate checks cfg against rules, evaluating default-expression
// injection with evalDefault (a scope-agnostic evaluator supplied by the
// caller — defaults never reference macros or cross-refs in practice,
// but the hook exists for parity with the rest of the pipeline). It
// returns every violation found; a nil/empty slice means cfg satisfies
// rules.
func Validate(rules []*ast.SchemaRule, cfg *resolve.ResolvedConfig, evalDefault func(ast.Expr) (value.Value, error)) []ValidationError {
	var errs []ValidationError

	bySection := make(map[string][]*ast.SchemaRule)
	for _, r := range rules {
		bySection[r.Section] = append(bySection[r.Section], r)
	}

	for secName, secRules := range bySection {
		sec := cfg.Section(secName)
		if sec == nil {
			if anyRequiredError(secRules) {
				errs = append(errs, ValidationError{
					Kind:    MissingSection,
					Section: secName,
					Msg:     fmt.Sprintf("required section %q is missing", secName),
				})
			}
			continue
		}

		for _, r := range secRules {
			errs = append(errs, validateRule(r, sec, evalDefault)...)
		}
	}

	return errs
}

func anyRequiredError(rules []*ast.SchemaRule) bool {
	for _, r := range rules {
		if r.Required && r.Empty == ast.EmptyError {
			return true
		}
	}
	return false
}

func validateRule(r *ast.SchemaRule, sec *resolve.ResolvedSection, evalDefault func(ast.Expr) (value.Value, error)) []ValidationError {
	v, present := sec.Values[r.Key]
	if !present {
		switch {
		case r.Required && r.Empty == ast.EmptyError:
			return []ValidationError{{
				Kind:    MissingKey,
				Section: r.Section,
				Key:     r.Key,
				Msg:     fmt.Sprintf("required key %q is missing", r.Key),
			}}
		case r.Empty == ast.EmptyDefault:
			if evalDefault == nil || r.Default == nil {
				return nil
			}
			dv, err := evalDefault(r.Default)
			if err != nil {
				return []ValidationError{{
					Kind:    TypeMismatch,
					Section: r.Section,
					Key:     r.Key,
					Msg:     fmt.Sprintf("failed to evaluate default: %s", err),
				}}
			}
			sec.Values[r.Key] = dv
			return nil
		default:
			return nil
		}
	}

	var errs []ValidationError
	if !satisfies(r.Type, v) {
		errs = append(errs, ValidationError{
			Kind:    TypeMismatch,
			Section: r.Section,
			Key:     r.Key,
			Msg:     fmt.Sprintf("expected %s, got %s", r.Type.String(), v.Kind()),
		})
		return errs
	}
	if r.Min != nil || r.Max != nil {
		if n, ok := numeric(v); ok {
			if r.Min != nil && n < *r.Min {
				errs = append(errs, ValidationError{Kind: OutOfRange, Section: r.Section, Key: r.Key,
					Msg: fmt.Sprintf("%v is below minimum %v", n, *r.Min)})
			}
			if r.Max != nil && n > *r.Max {
				errs = append(errs, ValidationError{Kind: OutOfRange, Section: r.Section, Key: r.Key,
					Msg: fmt.Sprintf("%v is above maximum %v", n, *r.Max)})
			}
		}
	}
	return errs
}

func numeric(v value.Value) (float64, bool) {
	switch x := v.(type) {
	case value.Int:
		return float64(x), true
	case value.Float:
		return float64(x), true
	}
	return 0, false
}

// satisfies recurses into compound types: array[T] checks every
// element against T, {K:V} checks every map value against V (map keys
// are always strings per the value model).
func satisfies(t *ast.TypeExpr, v value.Value) bool {
	switch t.Name {
	case "string":
		return v.Kind() == value.KindString
	case "int":
		return v.Kind() == value.KindInt
	case "float":
		return v.Kind() == value.KindFloat || v.Kind() == value.KindInt
	case "bool":
		return v.Kind() == value.KindBool
	case "color":
		return v.Kind() == value.KindColor
	case "coord":
		return v.Kind() == value.KindCoord
	case "path":
		return v.Kind() == value.KindPath
	case "array":
		arr, ok := v.(*value.Array)
		if !ok {
			return false
		}
		if t.Elem == nil {
			return true
		}
		for _, item := range arr.Items {
			if !satisfies(t.Elem, item) {
				return false
			}
		}
		return true
	case "set":
		_, ok := v.(*value.Set)
		return ok
	case "map":
		m, ok := v.(*value.Map)
		if !ok {
			return false
		}
		if t.Elem == nil {
			return true
		}
		for _, k := range m.Keys {
			if !satisfies(t.Elem, m.Values[k]) {
				return false
			}
		}
		return true
	default:
		return false
	}
}
