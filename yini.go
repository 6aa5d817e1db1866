// Package yini is the public façade over the YINI core pipeline:
// lex → parse → load (directives/includes) → resolve (macros,
// inheritance, cross-references) → validate → track dynamic mutations
// → write back to source. A Document owns one resolved configuration
// and is not safe for concurrent use; callers needing parallelism run
// independent Documents in independent goroutines (spec §5).
//
// The shape mirrors ha1tch/tsqlparser's package-level Parse/Tokenize
// entry points plus type re-exports, generalized from a stateless
// parse-only façade to a stateful one since this core additionally
// tracks mutable state (dynamic values) and owns a save path.
package yini

import (
	"fmt"
	"os"

	"github.com/yini-lang/yini/ast"
	"github.com/yini-lang/yini/dynamic"
	"github.com/yini-lang/yini/loader"
	"github.com/yini-lang/yini/resolve"
	"github.com/yini-lang/yini/schema"
	"github.com/yini-lang/yini/sidecar"
	"github.com/yini-lang/yini/value"
	"github.com/yini-lang/yini/writeback"
)

// Re-exported types for convenience, so callers rarely need to import
// the subpackages directly (spec §6 "Public API (Document façade)").
type (
	Value           = value.Value
	ResolvedConfig  = resolve.ResolvedConfig
	SchemaRule      = ast.SchemaRule
	ValidationError = schema.ValidationError
)

// EnvFunc resolves an environment variable by name (spec §9
// Options.env_provider).
type EnvFunc = resolve.EnvFunc

// Options configures a load (spec §9): every field has a default so a
// zero-value Options behaves sensibly.
type Options struct {
	// AllowCyclesInInclude is not consulted by Load or LoadFromText.
	// The loader always elides a circular #include by returning an
	// empty document for the repeat (spec §4.4 step 1), and no
	// diagnostic is recorded for the elision whatever this field holds.
	AllowCyclesInInclude bool

	// EnvProvider resolves ${NAME} references. Defaults to os.LookupEnv.
	EnvProvider EnvFunc

	// MaxIncludeDepth bounds "#include" recursion. Defaults to
	// loader.DefaultMaxIncludeDepth (32).
	MaxIncludeDepth int

	// SidecarPath, when set, overrides the default "<source>.ymeta"
	// sidecar location.
	SidecarPath func(sourcePath string) string
}

func (o Options) envProvider() EnvFunc {
	if o.EnvProvider != nil {
		return o.EnvProvider
	}
	return os.LookupEnv
}

func (o Options) maxIncludeDepth() int {
	if o.MaxIncludeDepth > 0 {
		return o.MaxIncludeDepth
	}
	return loader.DefaultMaxIncludeDepth
}

func (o Options) sidecarPath(sourcePath string) string {
	if o.SidecarPath != nil {
		return o.SidecarPath(sourcePath)
	}
	return sourcePath + ".ymeta"
}

// Document is one loaded, resolved YINI configuration (spec §3
// "Document"/§5). Not safe for concurrent use.
type Document struct {
	opts        Options
	sourcePath  string // "" for load_from_text with no backing file
	ast         *ast.Document
	schemaRules []*ast.SchemaRule
	includes    []string
	cfg         *resolve.ResolvedConfig
	tracker     *dynamic.Tracker
	diagnostics []error
}

// Load reads rootPath and every file it transitively "#include"s,
// resolves macros/inheritance/cross-references, and returns the
// resulting Document, or the first fatal error (spec §6 load).
func Load(rootPath string, opts Options) (*Document, error) {
	l := loader.New(func(p string) ([]byte, error) { return os.ReadFile(p) })
	l.MaxDepth = opts.maxIncludeDepth()

	doc, err := l.Load(rootPath)
	if err != nil {
		return nil, err
	}
	return newDocument(rootPath, doc, opts)
}

// LoadFromText parses text as virtualPath without touching the
// filesystem (spec §6 load_from_text). No file can be read, so a text
// with any "#include" entry fails to load with an error.
func LoadFromText(text, virtualPath string, opts Options) (*Document, error) {
	l := loader.New(func(string) ([]byte, error) {
		return nil, fmt.Errorf("load_from_text: file access is not available")
	})
	l.MaxDepth = opts.maxIncludeDepth()

	doc, err := l.LoadText(virtualPath, text)
	if err != nil {
		return nil, err
	}
	return newDocument(virtualPath, doc, opts)
}

func newDocument(sourcePath string, doc *ast.Document, opts Options) (*Document, error) {
	includes := make([]string, 0, len(doc.Includes))
	for _, inc := range doc.Includes {
		includes = append(includes, inc.Path)
	}

	// Resolver errors (macro/inheritance/cross-reference) are never
	// fatal (spec §7): only the lexer/parser/loader stage above can fail
	// Load/LoadFromText. Every resolve failure is surfaced through
	// Diagnostics() instead, with the offending entry left Unresolved.
	cfg, resolveErrs := resolve.Resolve(doc, opts.envProvider())

	d := &Document{
		opts:        opts,
		sourcePath:  sourcePath,
		ast:         doc,
		schemaRules: doc.Schema,
		includes:    includes,
		cfg:         cfg,
		tracker:     dynamic.NewTracker(),
	}
	d.diagnostics = append(d.diagnostics, resolveErrs...)
	if errs := schema.Validate(doc.Schema, cfg, d.evalDefault); len(errs) > 0 {
		for _, e := range errs {
			d.diagnostics = append(d.diagnostics, e)
		}
	}
	return d, nil
}

func (d *Document) evalDefault(expr ast.Expr) (value.Value, error) {
	// Schema defaults are plain literals/constructors/arithmetic in
	// practice (spec §4.6); resolving them through a throwaway,
	// macro-less, xref-less document keeps this path independent of
	// resolve's unexported evaluator type.
	tmp := &ast.Document{Sections: []*ast.Section{{
		Name:    "#schema-default",
		Entries: []*ast.KeyValue{{Key: "v", Value: expr}},
	}}}
	cfg, errs := resolve.Resolve(tmp, d.opts.envProvider())
	if len(errs) > 0 {
		return nil, errs[0]
	}
	v, _ := cfg.Get("#schema-default", "v")
	return v, nil
}

// Get returns the resolved value at section.key with any Dynamic
// wrapper stripped (spec §6 get).
func (d *Document) Get(section, key string) (value.Value, bool) {
	v, ok := d.cfg.Get(section, key)
	if !ok {
		return nil, false
	}
	return value.Unwrap(v), true
}

// Set stages a mutation to a dynamic value. It fails with
// *dynamic.NotDynamicError if the key exists but is not wrapped in
// Dyna(...); if the section exists but the key does not, the key is
// created as Dynamic with a zero origin ("append") per spec §4.8.
func (d *Document) Set(section, key string, newValue value.Value) error {
	sec := d.cfg.Section(section)
	if sec == nil {
		return fmt.Errorf("UnknownSection: %q has no resolved section %q", d.sourcePath, section)
	}

	existing, present := sec.Values[key]
	if _, err := d.tracker.Set(section, key, existing, present, d.originFor(section, key), newValue); err != nil {
		return err
	}
	wrapped, err := value.NewDynamic(value.Unwrap(newValue))
	if err != nil {
		return err
	}
	sec.Values[key] = wrapped
	return nil
}

func (d *Document) originFor(section, key string) dynamic.Origin {
	if pos, ok := d.cfg.Origins[fqKey(section, key)]; ok {
		return dynamic.Origin{Known: true, File: pos.File, Line: pos.Line, ColumnStart: pos.Column, ColumnEnd: pos.Column}
	}
	return dynamic.Origin{}
}

func fqKey(section, key string) string { return section + "." + key }

// Save applies every staged mutation back to the root source file,
// preserving everything else byte-for-byte (spec §4.9/§6 save).
func (d *Document) Save() error {
	if d.sourcePath == "" {
		return fmt.Errorf("WriteBackFailed: document has no backing source file")
	}
	entries := d.tracker.All()
	if len(entries) == 0 {
		return nil
	}
	return writeback.SaveChanges(d.sourcePath, entries, func(e *dynamic.DirtyEntry) string {
		return e.Current.String()
	})
}

// Schema returns the parsed schema rules, for tooling (spec §6 schema).
func (d *Document) Schema() []*ast.SchemaRule { return d.schemaRules }

// Resolved returns a read-only view of the fully resolved
// configuration (spec §6 resolved).
func (d *Document) Resolved() *resolve.ResolvedConfig { return d.cfg }

// Diagnostics returns every accumulated resolve/validate error (spec §6
// diagnostics, §7 error handling): resolver failures (circular or
// undefined macros, inheritance, or cross-references; missing env vars;
// bad arithmetic; etc.) and schema validation findings. Load/
// LoadFromText only ever fail outright for lexer, parser, or loader
// errors; everything resolve can go wrong on a per-entry basis ends up
// here instead, with the offending entry left Unresolved.
func (d *Document) Diagnostics() []error { return d.diagnostics }

// WriteSidecar serializes the Document's resolved configuration and
// dynamic state to the sidecar path (default "<source>.ymeta" unless
// Options.SidecarPath overrides it).
func (d *Document) WriteSidecar() error {
	f, err := os.Create(d.SidecarPath())
	if err != nil {
		return err
	}
	defer f.Close()
	return sidecar.Write(f, d.cfg, d.includes, d.tracker)
}

// SidecarFresh reports whether this Document's sidecar is still valid
// for its source file (spec §4.7 cache freshness).
func (d *Document) SidecarFresh() (bool, error) {
	return sidecar.IsFresh(d.SidecarPath(), d.sourcePath)
}

// SidecarPath returns the resolved sidecar path for tooling (e.g.
// cmd/yini's generate-sidecar), without duplicating Options' default
// logic at the call site.
func (d *Document) SidecarPath() string {
	return d.opts.sidecarPath(d.sourcePath)
}
