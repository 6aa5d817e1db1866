package loader

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/yini-lang/yini/ast"
)

func fakeFS(files map[string]string) ReadFileFunc {
	return func(path string) ([]byte, error) {
		// Tests key the fixture map by base name; real paths are
		// canonicalized absolute paths by the time ReadFile sees them.
		for name, content := range files {
			abs, _ := filepath.Abs(name)
			if abs == path {
				return []byte(content), nil
			}
		}
		return nil, &fsError{path}
	}
}

type fsError struct{ path string }

func (e *fsError) Error() string { return "no such file: " + e.path }

func TestLoadSimpleFile(t *testing.T) {
	l := New(fakeFS(map[string]string{
		"root.yini": "[A]\nx = 1\n",
	}))
	doc, err := l.Load("root.yini")
	require.NoError(t, err)
	require.Len(t, doc.Sections, 1)
	require.Equal(t, "A", doc.Sections[0].Name)
}

func TestLoadMergesIncludeBeforeOwnStatements(t *testing.T) {
	l := New(fakeFS(map[string]string{
		"root.yini": `[#include]
+= "base.yini"

[A]
y = 2
`,
		"base.yini": `[A]
x = 1
y = 1
`,
	}))
	doc, err := l.Load("root.yini")
	require.NoError(t, err)
	require.Len(t, doc.Sections, 1)
	sec := doc.Sections[0]
	require.Len(t, sec.Entries, 2)
	byKey := map[string]int64{}
	for _, e := range sec.Entries {
		byKey[e.Key] = e.Value.(*ast.IntLit).Value
	}
	require.Equal(t, int64(1), byKey["x"])
	require.Equal(t, int64(2), byKey["y"]) // root's own y overrides base's
}

func TestLoadDiscardsIncludeEntries(t *testing.T) {
	l := New(fakeFS(map[string]string{
		"root.yini": `[#include]
+= "base.yini"
`,
		"base.yini": "[A]\nx = 1\n",
	}))
	doc, err := l.Load("root.yini")
	require.NoError(t, err)
	require.Empty(t, doc.Includes)
}

func TestLoadCircularIncludeReturnsEmpty(t *testing.T) {
	l := New(fakeFS(map[string]string{
		"a.yini": `[#include]
+= "b.yini"

[A]
x = 1
`,
		"b.yini": `[#include]
+= "a.yini"

[B]
y = 2
`,
	}))
	doc, err := l.Load("a.yini")
	require.NoError(t, err)
	names := make([]string, 0, len(doc.Sections))
	for _, s := range doc.Sections {
		names = append(names, s.Name)
	}
	require.Contains(t, names, "A")
	require.Contains(t, names, "B")
}

func TestLoadQuickRegisterAppendsAcrossFiles(t *testing.T) {
	l := New(fakeFS(map[string]string{
		"root.yini": `[#include]
+= "base.yini"

[List]
+= "child-a"
`,
		"base.yini": `[List]
+= "base-a"
+= "base-b"
`,
	}))
	doc, err := l.Load("root.yini")
	require.NoError(t, err)
	sec := doc.Section("List")
	require.Len(t, sec.Entries, 3)
	require.Equal(t, "0", sec.Entries[0].Key)
	require.Equal(t, "1", sec.Entries[1].Key)
	require.Equal(t, "2", sec.Entries[2].Key)
}

func TestLoadDefineLaterOverrides(t *testing.T) {
	l := New(fakeFS(map[string]string{
		"root.yini": `[#include]
+= "base.yini"

[#define]
greeting = "hi"
`,
		"base.yini": `[#define]
greeting = "hello"
`,
	}))
	doc, err := l.Load("root.yini")
	require.NoError(t, err)
	require.Len(t, doc.Defines, 1)
	require.Equal(t, "hi", doc.Defines[0].Value.(*ast.StringLit).Value)
}
