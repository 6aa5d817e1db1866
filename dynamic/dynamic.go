// Package dynamic tracks mutable Dyna(...) sites in a resolved
// configuration: where each one originates in the source, and the
// bounded history of values it has been set to (spec §4.8), grounded
// on original_source/src/Core/DynaValue.cpp — extended well past the
// original's bare get/set wrapper, which carried no origin or history
// at all, to the full origin-record + bounded-history model spec.md
// requires for write-back.
package dynamic

import (
	"fmt"

	"github.com/yini-lang/yini/token"
	"github.com/yini-lang/yini/value"
)

// MaxHistory bounds the number of prior values retained per dirty
// entry (spec §4.8/§8: "after N sets, history size ≤ 5").
const MaxHistory = 5

// Origin records where a Dyna(...) site's right-hand side sits in the
// source file, for write-back's line-splice (spec §4.8). A zero Origin
// (Known == false) means "append": the key was set dynamically but
// never existed verbatim in the source.
type Origin struct {
	Known         bool
	File          string
	Line          int
	ColumnStart   int // first column of the value expression
	ColumnEnd     int // column just past the value expression, before any trailing comment
	InlineComment string
}

// FromPosition derives an Origin whose ColumnStart and ColumnEnd are
// both p's column and whose InlineComment is empty; with ColumnEnd equal
// to ColumnStart, write-back finds the end of the value by scanning the
// source line itself.
func FromPosition(p token.Position) Origin {
	return Origin{Known: true, File: p.File, Line: p.Line, ColumnStart: p.Column, ColumnEnd: p.Column}
}

// DirtyEntry is one mutated dynamic key: its current value, origin,
// and a bounded history of values it previously held (spec §4.8).
type DirtyEntry struct {
	Section string
	Key     string
	Current value.Value
	Origin  Origin
	History []value.Value
}

// push records prev as the newest history entry, evicting the oldest
// once history exceeds MaxHistory.
func (d *DirtyEntry) push(prev value.Value) {
	d.History = append(d.History, prev)
	if len(d.History) > MaxHistory {
		d.History = d.History[len(d.History)-MaxHistory:]
	}
}

// NotDynamicError is returned by Tracker.Set when the target key
// exists but is not wrapped in Dyna(...) (spec §7 NotDynamic).
type NotDynamicError struct {
	Section, Key string
}

func (e *NotDynamicError) Error() string {
	return fmt.Sprintf("NotDynamic: %s.%s is not a dynamic value", e.Section, e.Key)
}

// Tracker holds the dirty-entry set for one resolved configuration, to
// be consulted by write-back and the sidecar's DynamicState block.
type Tracker struct {
	dirty map[string]*DirtyEntry
}

// NewTracker returns an empty tracker; origins are populated lazily by
// Set, not up front, since only keys that are actually mutated need an
// entry (spec §4.8 only discusses dirty keys, not every Dyna site).
func NewTracker() *Tracker {
	return &Tracker{dirty: make(map[string]*DirtyEntry)}
}

func fqKey(section, key string) string { return section + "." + key }

// Set records newValue as key's current value. existingKnown reports
// whether the key is present in the section, with existing its current
// value (existing may be nil when the key is entirely new, i.e. the
// "append" case); a present key whose value is not a *value.Dynamic is
// rejected with NotDynamicError. origin is stored when the key's dirty
// entry is first created ("zero origin" per spec §4.8 means
// Origin{Known: false}).
func (t *Tracker) Set(section, key string, existing value.Value, existingKnown bool, origin Origin, newValue value.Value) (*DirtyEntry, error) {
	if existingKnown {
		if _, ok := existing.(*value.Dynamic); !ok {
			return nil, &NotDynamicError{Section: section, Key: key}
		}
	}

	fq := fqKey(section, key)
	entry, ok := t.dirty[fq]
	if !ok {
		entry = &DirtyEntry{Section: section, Key: key, Origin: origin}
		if existingKnown {
			if d, ok := existing.(*value.Dynamic); ok {
				entry.Current = d.Inner
			}
		}
		t.dirty[fq] = entry
	}
	if entry.Current != nil {
		entry.push(entry.Current)
	}
	entry.Current = newValue
	return entry, nil
}

// Get returns the dirty entry for section.key, if any changes have
// been recorded for it yet.
func (t *Tracker) Get(section, key string) (*DirtyEntry, bool) {
	e, ok := t.dirty[fqKey(section, key)]
	return e, ok
}

// All returns every dirty entry, for write-back and sidecar
// serialization to iterate over.
func (t *Tracker) All() []*DirtyEntry {
	out := make([]*DirtyEntry, 0, len(t.dirty))
	for _, e := range t.dirty {
		out = append(out, e)
	}
	return out
}
