package writeback_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/yini-lang/yini/dynamic"
	"github.com/yini-lang/yini/value"
	"github.com/yini-lang/yini/writeback"
)

func render(e *dynamic.DirtyEntry) string {
	return e.Current.String()
}

func intValue(n int64) value.Value     { return value.Int(n) }
func stringValue(s string) value.Value { return value.String(s) }

func TestSaveChangesReplacesValueInPlace(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "cfg.yini")
	src := "[Settings]\nvolume = 100 // master\nname = \"x\"\n"
	require.NoError(t, os.WriteFile(path, []byte(src), 0644))

	entries := []*dynamic.DirtyEntry{
		{
			Section: "Settings",
			Key:     "volume",
			Current: intValue(75),
			Origin:  dynamic.Origin{Known: true, Line: 2, ColumnStart: 10, ColumnEnd: 13},
		},
	}

	require.NoError(t, writeback.SaveChanges(path, entries, render))

	out, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, "[Settings]\nvolume = 75 // master\nname = \"x\"\n", string(out))
}

func TestSaveChangesAppendsNewKeyUnderExistingSection(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "cfg.yini")
	src := "[Settings]\nvolume = 100\n"
	require.NoError(t, os.WriteFile(path, []byte(src), 0644))

	entries := []*dynamic.DirtyEntry{
		{
			Section: "Settings",
			Key:     "brand_new",
			Current: stringValue("hi"),
			Origin:  dynamic.Origin{Known: false},
		},
	}

	require.NoError(t, writeback.SaveChanges(path, entries, render))

	out, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Contains(t, string(out), "volume = 100\n")
	require.Contains(t, string(out), "brand_new = \"hi\"")
	require.NotContains(t, string(out), "[Settings]\n[Settings]")
}

func TestSaveChangesAppendsNewSectionWhenMissing(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "cfg.yini")
	src := "[Other]\nx = 1\n"
	require.NoError(t, os.WriteFile(path, []byte(src), 0644))

	entries := []*dynamic.DirtyEntry{
		{
			Section: "Fresh",
			Key:     "k",
			Current: intValue(1),
			Origin:  dynamic.Origin{Known: false},
		},
	}

	require.NoError(t, writeback.SaveChanges(path, entries, render))

	out, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Contains(t, string(out), "[Fresh]\nk = 1\n")
}
