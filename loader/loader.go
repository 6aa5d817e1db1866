// Package loader resolves a root YINI file and its "#include" chain into
// a single merged ast.Document (spec §4.4). Inheritance and macro
// expansion are the resolver's job (package resolve); the loader only
// merges raw, unresolved statements.
package loader

import (
	"path/filepath"
	"strconv"

	"github.com/pkg/errors"

	"github.com/yini-lang/yini/ast"
	"github.com/yini-lang/yini/parser"
)

// DefaultMaxIncludeDepth bounds include recursion (spec §9 Options).
const DefaultMaxIncludeDepth = 32

// ReadFileFunc abstracts file access so the loader can be driven by an
// in-memory fixture in tests instead of the real filesystem.
type ReadFileFunc func(path string) ([]byte, error)

// Loader loads a root file and everything it (transitively) includes.
type Loader struct {
	ReadFile ReadFileFunc
	MaxDepth int
}

// New creates a Loader that reads files through readFile, with the
// default include-depth limit.
func New(readFile ReadFileFunc) *Loader {
	return &Loader{ReadFile: readFile, MaxDepth: DefaultMaxIncludeDepth}
}

// Load parses rootPath and recursively merges its "#include"s, returning
// one accumulated Document with "#include" entries discarded (spec
// §4.4 step 5).
func (l *Loader) Load(rootPath string) (*ast.Document, error) {
	visited := make(map[string]bool)
	return l.loadRecursive(rootPath, visited, 0)
}

// LoadText parses text as if it were file name (no includes resolved
// from disk beyond what the loader can already see), used by callers
// that already have source text in hand (spec §9 load_from_text).
func (l *Loader) LoadText(name, text string) (*ast.Document, error) {
	doc, err := parser.ParseDocument(name, text)
	if err != nil {
		return nil, errors.Wrapf(err, "parse %s", name)
	}
	visited := map[string]bool{name: true}
	acc := &ast.Document{}
	if err := l.mergeIncludes(doc, name, acc, visited, 1); err != nil {
		return nil, err
	}
	mergeInto(acc, doc)
	return acc, nil
}

func (l *Loader) loadRecursive(path string, visited map[string]bool, depth int) (*ast.Document, error) {
	canon, err := filepath.Abs(path)
	if err != nil {
		return nil, errors.Wrapf(err, "canonicalize %s", path)
	}
	if visited[canon] {
		// Circular include: spec §4.4 step 1 returns an empty document
		// rather than failing the whole load.
		return &ast.Document{}, nil
	}
	if depth > l.MaxDepth {
		return nil, errors.Errorf("include depth exceeded (max %d) loading %s", l.MaxDepth, path)
	}
	visited[canon] = true

	raw, err := l.ReadFile(canon)
	if err != nil {
		return nil, errors.Wrapf(err, "read %s", canon)
	}
	doc, err := parser.ParseDocument(canon, string(raw))
	if err != nil {
		return nil, errors.Wrapf(err, "parse %s", canon)
	}

	acc := &ast.Document{}
	if err := l.mergeIncludes(doc, canon, acc, visited, depth+1); err != nil {
		return nil, err
	}
	mergeInto(acc, doc)
	return acc, nil
}

func (l *Loader) mergeIncludes(doc *ast.Document, fromPath string, acc *ast.Document, visited map[string]bool, depth int) error {
	baseDir := filepath.Dir(fromPath)
	for _, inc := range doc.Includes {
		childPath := inc.Path
		if !filepath.IsAbs(childPath) {
			childPath = filepath.Join(baseDir, childPath)
		}
		child, err := l.loadRecursive(childPath, visited, depth)
		if err != nil {
			return errors.Wrapf(err, "include %q from %s", inc.Path, fromPath)
		}
		mergeInto(acc, child)
	}
	return nil
}

// mergeInto folds later on top of acc per spec §4.4 step 4: later
// #define wins by name, later schema rule wins by (section,key), and
// section entries override by key while quick-register entries always
// append. later.Includes is never copied, which discards "#include"
// from the merged output (step 5).
func mergeInto(acc, later *ast.Document) {
	for _, d := range later.Defines {
		if i := findDefineIndex(acc.Defines, d.Name); i >= 0 {
			acc.Defines[i] = d
		} else {
			acc.Defines = append(acc.Defines, d)
		}
	}
	for _, r := range later.Schema {
		if i := findSchemaIndex(acc.Schema, r.Section, r.Key); i >= 0 {
			acc.Schema[i] = r
		} else {
			acc.Schema = append(acc.Schema, r)
		}
	}
	for _, s := range later.Sections {
		if base := acc.Section(s.Name); base != nil {
			mergeSectionInto(base, s)
		} else {
			// Copy so later re-keying doesn't alias the source Document.
			cp := *s
			cp.Entries = append([]*ast.KeyValue(nil), s.Entries...)
			acc.Sections = append(acc.Sections, &cp)
			reindexQuickRegister(&cp)
		}
	}
}

func mergeSectionInto(base, later *ast.Section) {
	if len(later.Parents) > 0 {
		base.Parents = later.Parents
	}
	for _, kv := range later.Entries {
		if kv.QuickRegister {
			base.Entries = append(base.Entries, kv)
			continue
		}
		if i := findKeyedIndex(base.Entries, kv.Key); i >= 0 {
			base.Entries[i] = kv
		} else {
			base.Entries = append(base.Entries, kv)
		}
	}
	reindexQuickRegister(base)
}

// reindexQuickRegister renumbers quick-register entries 0..n-1 in their
// current order; their Key is a positional placeholder, not a
// merge-override identity, so collisions across merged files must never
// silently clobber each other.
func reindexQuickRegister(sec *ast.Section) {
	idx := 0
	for _, e := range sec.Entries {
		if e.QuickRegister {
			e.Key = strconv.Itoa(idx)
			idx++
		}
	}
}

func findDefineIndex(defines []*ast.MacroDef, name string) int {
	for i, d := range defines {
		if d.Name == name {
			return i
		}
	}
	return -1
}

func findSchemaIndex(rules []*ast.SchemaRule, section, key string) int {
	for i, r := range rules {
		if r.Section == section && r.Key == key {
			return i
		}
	}
	return -1
}

func findKeyedIndex(entries []*ast.KeyValue, key string) int {
	for i, e := range entries {
		if !e.QuickRegister && e.Key == key {
			return i
		}
	}
	return -1
}
