package resolve

import (
	"github.com/yini-lang/yini/ast"
	"github.com/yini-lang/yini/token"
	"github.com/yini-lang/yini/value"
)

type entryState int

const (
	stateUnseen entryState = iota
	stateInProgress
	stateDone
	stateErrored
)

// xrefResolver performs Pass 3 (spec §4.5): lazy, memoized, whole-
// document per-entry evaluation. Sections are already inheritance-
// flattened at the expression level (Pass 2), but cross-section
// references can name a section unrelated by inheritance, so each key
// is evaluated on first use rather than strictly section-by-section.
// An entry that fails to evaluate caches its error (stateErrored) so a
// second reference to the same broken entry reports the same failure
// instead of re-running the (already memoized-as-in-progress) cycle
// detection, which would otherwise misreport every later reference to
// a once-failed entry as a fresh CircularReference.
type xrefResolver struct {
	flat    map[string]*flatSection
	macros  *macroSet
	env     EnvFunc
	state   map[string]entryState
	values  map[string]value.Value
	errs    map[string]error
	origins map[string]token.Position
}

func newXrefResolver(flatSections []*flatSection, macros *macroSet, env EnvFunc) *xrefResolver {
	flat := make(map[string]*flatSection, len(flatSections))
	for _, fs := range flatSections {
		flat[fs.Name] = fs
	}
	return &xrefResolver{
		flat:    flat,
		macros:  macros,
		env:     env,
		state:   make(map[string]entryState),
		values:  make(map[string]value.Value),
		errs:    make(map[string]error),
		origins: make(map[string]token.Position),
	}
}

// resolveEntry evaluates flat[section].Entries[key], memoizing the
// result (or, on failure, the error). refPos is the position of the
// reference that triggered this resolution, used only for the
// UndefinedCrossRef error.
func (x *xrefResolver) resolveEntry(section, key string, refPos token.Position) (value.Value, error) {
	fq := fqKey(section, key)
	switch x.state[fq] {
	case stateDone:
		return x.values[fq], nil
	case stateErrored:
		return nil, x.errs[fq]
	case stateInProgress:
		err := errf(CircularReference, refPos, "circular reference at %s.%s", section, key)
		x.state[fq] = stateErrored
		x.errs[fq] = err
		return nil, err
	}

	fs, ok := x.flat[section]
	if !ok {
		err := errf(UndefinedCrossRef, refPos, "unknown section %q", section)
		x.state[fq] = stateErrored
		x.errs[fq] = err
		return nil, err
	}
	expr, ok := fs.Entries[key]
	if !ok {
		err := errf(UndefinedCrossRef, refPos, "unknown key %q in section %q", key, section)
		x.state[fq] = stateErrored
		x.errs[fq] = err
		return nil, err
	}

	x.state[fq] = stateInProgress
	ev := &evaluator{macros: x.macros, xref: x, env: x.env, currentSection: section}
	v, err := ev.eval(expr)
	if err != nil {
		x.state[fq] = stateErrored
		x.errs[fq] = err
		return nil, err
	}
	if _, isDyna := v.(*value.Dynamic); isDyna {
		x.origins[fq] = expr.Pos()
	}
	x.state[fq] = stateDone
	x.values[fq] = v
	return v, nil
}

// Resolve runs all three passes over doc and produces a fully evaluated
// ResolvedConfig (spec §4.5/§7): macro expansion, inheritance
// flattening, then per-entry evaluation of every flattened section in
// Pass 2's parents-before-children order, which is also the resulting
// ResolvedConfig.Order (cross-references are resolved lazily on demand
// regardless of that order). Only lexer/parser/loader errors are fatal
// (spec §7) — every failure from any of the three resolve passes is
// collected and returned as a diagnostic alongside a still-usable
// ResolvedConfig, rather than aborting the load. An entry that failed
// to evaluate is recorded in Unresolved and left holding value.Null{}.
func Resolve(doc *ast.Document, env EnvFunc) (*ResolvedConfig, []error) {
	var diags []error

	macros := newMacroSet(doc, env)
	diags = append(diags, macros.resolveAll()...)

	flatSections, order, ferrs := flattenInheritance(doc)
	diags = append(diags, ferrs...)

	x := newXrefResolver(flatSections, macros, env)
	cfg := &ResolvedConfig{
		Order:      order,
		Sections:   make(map[string]*ResolvedSection, len(flatSections)),
		Macros:     make(map[string]value.Value, len(macros.defs)),
		Origins:    make(map[string]token.Position),
		Unresolved: make(map[string]bool),
	}
	for name, v := range macros.value {
		cfg.Macros[name] = v
	}

	byName := make(map[string]*flatSection, len(flatSections))
	for _, fs := range flatSections {
		byName[fs.Name] = fs
	}

	for _, name := range order {
		fs := byName[name]
		rs := newResolvedSection(name)
		for _, key := range fs.Order {
			v, err := x.resolveEntry(name, key, fs.Pos[key].Pos())
			if err != nil {
				diags = append(diags, err)
				cfg.Unresolved[fqKey(name, key)] = true
				v = value.Null{}
			}
			rs.set(key, v)
		}
		cfg.Sections[name] = rs
	}
	for fq, pos := range x.origins {
		cfg.Origins[fq] = pos
	}

	return cfg, diags
}
