package resolve

import (
	"github.com/yini-lang/yini/token"
	"github.com/yini-lang/yini/value"
)

// EnvFunc resolves an environment variable name, reporting whether it is
// set (spec §4.5 EnvRef, §9 Options.env_provider).
type EnvFunc func(name string) (string, bool)

// ResolvedSection holds the fully evaluated, inheritance-flattened
// entries of one section, in display order.
type ResolvedSection struct {
	Name   string
	Order  []string
	Values map[string]value.Value
}

func newResolvedSection(name string) *ResolvedSection {
	return &ResolvedSection{Name: name, Values: make(map[string]value.Value)}
}

func (r *ResolvedSection) get(key string) (value.Value, bool) {
	v, ok := r.Values[key]
	return v, ok
}

func (r *ResolvedSection) set(key string, v value.Value) {
	if _, exists := r.Values[key]; !exists {
		r.Order = append(r.Order, key)
	}
	r.Values[key] = v
}

// ResolvedConfig is the fully resolved document: every macro expanded,
// every section inheritance-flattened, every entry evaluated (spec
// §4.5). Origins records the source position of every entry whose value
// is a Dyna wrapper, keyed "Section.Key" (spec §4.8). Unresolved records
// "Section.Key" for every entry that failed to evaluate (spec §7):
// its Values entry holds value.Null{} as a placeholder, and the actual
// failure is reported as a Resolve diagnostic rather than aborting the
// rest of the document.
type ResolvedConfig struct {
	Order      []string
	Sections   map[string]*ResolvedSection
	Macros     map[string]value.Value
	Origins    map[string]token.Position
	Unresolved map[string]bool
}

// Section looks up a resolved section by name.
func (c *ResolvedConfig) Section(name string) *ResolvedSection {
	return c.Sections[name]
}

// Get looks up a fully resolved value by "section.key".
func (c *ResolvedConfig) Get(section, key string) (value.Value, bool) {
	sec, ok := c.Sections[section]
	if !ok {
		return nil, false
	}
	return sec.get(key)
}
