// Package writeback rewrites a YINI source file in place, applying
// dynamic-value mutations while preserving every other byte (spec
// §4.9). Atomicity is grounded on aretext/aretext's file.Save, which
// uses the same github.com/google/renameio/v2 write-to-temp-then-
// rename-over pattern for the same reason: never leave a half-written
// file on a crash.
package writeback

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/google/renameio/v2"
	"github.com/pkg/errors"

	"github.com/yini-lang/yini/dynamic"
)

// WriteBackFailedError wraps the underlying I/O failure (spec §7
// Persist.WriteBackFailed).
type WriteBackFailedError struct {
	Path string
	Err  error
}

func (e *WriteBackFailedError) Error() string {
	return fmt.Sprintf("WriteBackFailed: %s: %s", e.Path, e.Err)
}
func (e *WriteBackFailedError) Unwrap() error { return e.Err }

// SaveChanges rewrites path, applying every entry's current value.
// Entries whose Origin is known get their value span replaced in
// place, preserving the key, the "=", leading/trailing whitespace, and
// any trailing line comment. Entries with an unknown origin (new
// dynamic keys created at runtime) are appended at the end of the
// file, under a canonical "[section]" header that is reused if it
// already exists (spec §4.9).
func SaveChanges(path string, entries []*dynamic.DirtyEntry, render func(d *dynamic.DirtyEntry) string) error {
	original, err := os.ReadFile(path)
	if err != nil {
		return &WriteBackFailedError{Path: path, Err: errors.Wrap(err, "read original file")}
	}
	lines := splitKeepingNoTerminator(string(original))

	byLine := make(map[int][]*dynamic.DirtyEntry)
	var appended []*dynamic.DirtyEntry
	existingSections := map[string]bool{}
	for _, ln := range lines {
		if t := strings.TrimSpace(ln); strings.HasPrefix(t, "[") {
			if end := strings.IndexByte(t, ']'); end > 0 {
				existingSections[strings.TrimSpace(t[1:end])] = true
			}
		}
	}

	for _, e := range entries {
		if e.Origin.Known {
			byLine[e.Origin.Line] = append(byLine[e.Origin.Line], e)
		} else {
			appended = append(appended, e)
		}
	}

	for lineNo, es := range byLine {
		idx := lineNo - 1
		if idx < 0 || idx >= len(lines) {
			continue
		}
		line := lines[idx]
		for _, e := range es {
			colEnd := e.Origin.ColumnEnd
			if colEnd <= e.Origin.ColumnStart {
				colEnd = valueSpanEnd(line, e.Origin.ColumnStart)
			}
			line = spliceValue(line, e.Origin.ColumnStart, colEnd, render(e))
		}
		lines[idx] = line
	}

	out := strings.Join(lines, "\n")
	if len(lines) > 0 {
		out += "\n"
	}

	bySection := make(map[string][]*dynamic.DirtyEntry)
	var sectionOrder []string
	for _, e := range appended {
		if _, seen := bySection[e.Section]; !seen {
			sectionOrder = append(sectionOrder, e.Section)
		}
		bySection[e.Section] = append(bySection[e.Section], e)
	}
	for _, sec := range sectionOrder {
		if !existingSections[sec] {
			out += "[" + sec + "]\n"
		}
		for _, e := range bySection[sec] {
			out += e.Key + " = " + render(e) + "\n"
		}
	}

	return writeAtomic(path, out)
}

// spliceValue replaces line[colStart:colEnd] (1-based columns, as
// recorded by token.Position) with replacement, leaving everything
// before and after untouched — including any trailing inline comment,
// since colEnd marks where the comment (if any) begins.
func spliceValue(line string, colStart, colEnd int, replacement string) string {
	runes := []rune(line)
	start := colStart - 1
	end := colEnd - 1
	if start < 0 || start > len(runes) {
		return line
	}
	if end < start || end > len(runes) {
		end = len(runes)
	}
	return string(runes[:start]) + replacement + string(runes[end:])
}

// valueSpanEnd finds where a value's text ends on line, starting from
// colStart (1-based), when the caller only recorded the value's start
// column and not its extent. It stops at the first "//" that begins an
// inline comment, or end of line, then trims trailing whitespace —
// used when an Origin's ColumnEnd is not past its ColumnStart, as with
// every origin the façade's Set records (resolve.ResolvedConfig.Origins
// holds a single position per entry, not a span).
func valueSpanEnd(line string, colStart int) int {
	runes := []rune(line)
	start := colStart - 1
	if start < 0 || start > len(runes) {
		return len(runes) + 1
	}
	end := len(runes)
	if idx := strings.Index(string(runes[start:]), "//"); idx >= 0 {
		end = start + idx
	}
	for end > start && (runes[end-1] == ' ' || runes[end-1] == '\t') {
		end--
	}
	return end + 1
}

func splitKeepingNoTerminator(s string) []string {
	s = strings.TrimSuffix(s, "\n")
	if s == "" {
		return nil
	}
	return strings.Split(s, "\n")
}

func writeAtomic(path, content string) error {
	pf, err := renameio.NewPendingFile(path, renameio.WithPermissions(0644), renameio.WithExistingPermissions())
	if err != nil {
		return &WriteBackFailedError{Path: path, Err: errors.Wrap(err, "renameio.NewPendingFile")}
	}
	defer pf.Cleanup()

	w := bufio.NewWriter(pf)
	if _, err := w.WriteString(content); err != nil {
		return &WriteBackFailedError{Path: path, Err: errors.Wrap(err, "write")}
	}
	if err := w.Flush(); err != nil {
		return &WriteBackFailedError{Path: path, Err: errors.Wrap(err, "flush")}
	}
	if err := pf.CloseAtomicallyReplace(); err != nil {
		return &WriteBackFailedError{Path: path, Err: errors.Wrap(err, "renameio.CloseAtomicallyReplace")}
	}
	return nil
}
