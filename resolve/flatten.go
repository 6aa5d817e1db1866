package resolve

import (
	"github.com/yini-lang/yini/ast"
)

// flatSection is a section after inheritance flattening at the
// expression level: parent entries folded in, overlaid by the section's
// own entries, but nothing evaluated yet (spec §4.5 Pass 2).
type flatSection struct {
	Name    string
	Order   []string
	Entries map[string]ast.Expr
	Pos     map[string]ast.Node // the originating entry node, for error positions
}

func newFlatSection(name string) *flatSection {
	return &flatSection{Name: name, Entries: make(map[string]ast.Expr), Pos: make(map[string]ast.Node)}
}

func (f *flatSection) set(key string, expr ast.Expr, node ast.Node) {
	if _, exists := f.Entries[key]; !exists {
		f.Order = append(f.Order, key)
	}
	f.Entries[key] = expr
	f.Pos[key] = node
}

// flattenInheritance walks the section-inheritance DAG and returns each
// section flattened by folding its ancestors' entries before its own
// (spec §4.5 Pass 2), in a parents-before-children topological order.
// A cycle or a reference to an unknown parent does not abort the whole
// document (spec §7): a parent that is unknown, or whose own flattening
// failed, contributes no entries, while the section still folds in its
// other parents and its own entries and is flagged failed. One
// ParentSectionNotFound diagnostic is collected per unknown parent and
// one CircularInheritance diagnostic per cycle, at the section where the
// walk re-enters it; a section that fails only because an ancestor
// failed adds no diagnostic of its own. Every other, unaffected section
// still resolves normally.
//
// This does not go through katalvlaran/lvlath/graph. An earlier version
// built a graph.Graph alongside secByName and called AddVertex/AddEdge/
// HasVertex on it, but every one of those calls either duplicated
// information secByName already had (membership) or was never used for
// anything the hand-rolled DFS below didn't already compute (the edges
// were added but never traversed). lvlath's own DFS can't replace the
// hand-rolled walk either: it has one shared Visited set with no
// OnVisit/OnExit distinction between "on the current stack" and
// "already finished", so it can't tell a true cycle from a revisited
// diamond-inheritance ancestor, and Graph.Neighbors iterates a Go map,
// which would lose the "later parent wins" declaration order flattening
// depends on. Carrying the import anyway to gesture at the library
// would be decorative, not grounded, so this package does not import it.
func flattenInheritance(doc *ast.Document) ([]*flatSection, []string, []error) {
	secByName := make(map[string]*ast.Section, len(doc.Sections))
	for _, s := range doc.Sections {
		secByName[s.Name] = s
	}

	const (
		sectUnseen = iota
		sectOnStack
		sectDone
	)
	state := make(map[string]int, len(doc.Sections))
	flat := make(map[string]*flatSection, len(doc.Sections))
	failed := make(map[string]bool, len(doc.Sections))
	var order []string
	var errs []error

	var visit func(name string) bool
	visit = func(name string) bool {
		switch state[name] {
		case sectDone:
			return !failed[name]
		case sectOnStack:
			errs = append(errs, errf(CircularInheritance, secByName[name].P, "circular inheritance involving %q", name))
			failed[name] = true
			return false
		}
		sec := secByName[name]
		state[name] = sectOnStack

		fs := newFlatSection(name)
		ok := true
		for _, parentName := range sec.Parents {
			if _, known := secByName[parentName]; !known {
				errs = append(errs, errf(ParentSectionNotFound, sec.P, "section %q inherits from unknown section %q", name, parentName))
				ok = false
				continue
			}
			if !visit(parentName) {
				ok = false
				continue
			}
			parentFlat := flat[parentName]
			for _, k := range parentFlat.Order {
				fs.set(k, parentFlat.Entries[k], parentFlat.Pos[k])
			}
		}
		for _, kv := range sec.Entries {
			fs.set(kv.Key, kv.Value, kv)
		}

		flat[name] = fs
		state[name] = sectDone
		failed[name] = !ok
		order = append(order, name)
		return ok
	}

	for _, s := range doc.Sections {
		visit(s.Name)
	}

	out := make([]*flatSection, 0, len(order))
	for _, name := range order {
		out = append(out, flat[name])
	}
	return out, order, errs
}

