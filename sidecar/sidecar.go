// Package sidecar implements the binary ".ymeta" cache/persistence
// format (spec §4.7): a compact, self-describing encoding of a
// ResolvedConfig plus its dynamic-value history, grounded on
// original_source/src/Core/Serialization/{Serializer,Deserializer}.cpp
// for the tag-prefixed, length-prefixed, little-endian shape — adapted
// from that file's single flat map[string]map[string]YiniValue model
// to the richer block structure (Defines/Includes/Sections/
// DynamicState, each with its own structural tag) spec.md requires for
// round-tripping macros and dynamic history. Sections are stored
// already flattened, so each section's parent list is written empty.
package sidecar

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"

	"github.com/yini-lang/yini/dynamic"
	"github.com/yini-lang/yini/resolve"
	"github.com/yini-lang/yini/value"
)

var magic = [4]byte{'Y', 'M', 'E', 'T'}

const version = byte(1)

// structural tags, each a single byte (spec §4.7).
const (
	tagStartOfFile byte = iota
	tagDefines
	tagIncludes
	tagSections
	tagSectionStart
	tagDynamicState
	tagEndOfFile
)

// value tags (spec §4.7 "Value encoding").
const (
	vtagNull byte = iota
	vtagBool
	vtagInt64
	vtagFloat64
	vtagString
	vtagArray
	vtagSet
	vtagMap
	vtagColor
	vtagCoord
	vtagPath
	vtagDynamic
)

// UnresolvedValueError is returned when serialization encounters a
// value kind it cannot represent, which given the value package's
// closed Value set should not happen for a fully resolved config — it
// exists to satisfy spec §7's Persist.UnresolvedValue without a panic.
type UnresolvedValueError struct {
	Kind value.Kind
}

func (e *UnresolvedValueError) Error() string {
	return fmt.Sprintf("UnresolvedValue: cannot serialize a %s", e.Kind)
}

// Write serializes cfg (plus the documented include list and dynamic
// tracker state) to w.
func Write(w io.Writer, cfg *resolve.ResolvedConfig, includes []string, tracker *dynamic.Tracker) error {
	bw := bufio.NewWriter(w)
	if _, err := bw.Write(magic[:]); err != nil {
		return err
	}
	if err := bw.WriteByte(version); err != nil {
		return err
	}
	if err := bw.WriteByte(tagStartOfFile); err != nil {
		return err
	}

	if err := writeDefines(bw, cfg); err != nil {
		return err
	}
	if err := writeIncludes(bw, includes); err != nil {
		return err
	}
	if err := writeSections(bw, cfg); err != nil {
		return err
	}
	if err := writeDynamicState(bw, tracker); err != nil {
		return err
	}

	if err := bw.WriteByte(tagEndOfFile); err != nil {
		return err
	}
	return bw.Flush()
}

func writeDefines(w *bufio.Writer, cfg *resolve.ResolvedConfig) error {
	if err := w.WriteByte(tagDefines); err != nil {
		return err
	}
	names := make([]string, 0, len(cfg.Macros))
	for n := range cfg.Macros {
		names = append(names, n)
	}
	if err := writeUint32(w, uint32(len(names))); err != nil {
		return err
	}
	for _, n := range names {
		if err := writeString(w, n); err != nil {
			return err
		}
		if err := writeValue(w, cfg.Macros[n]); err != nil {
			return err
		}
	}
	return nil
}

func writeIncludes(w *bufio.Writer, includes []string) error {
	if err := w.WriteByte(tagIncludes); err != nil {
		return err
	}
	if err := writeUint32(w, uint32(len(includes))); err != nil {
		return err
	}
	for _, p := range includes {
		if err := writeString(w, p); err != nil {
			return err
		}
	}
	return nil
}

func writeSections(w *bufio.Writer, cfg *resolve.ResolvedConfig) error {
	if err := w.WriteByte(tagSections); err != nil {
		return err
	}
	if err := writeUint32(w, uint32(len(cfg.Order))); err != nil {
		return err
	}
	for _, name := range cfg.Order {
		sec := cfg.Sections[name]
		if err := w.WriteByte(tagSectionStart); err != nil {
			return err
		}
		if err := writeString(w, name); err != nil {
			return err
		}
		// Parent lists are not retained on ResolvedSection (inheritance
		// is already flattened by Pass 2); an empty list is written so
		// the wire format's documented shape stays stable even though
		// this encoder has nothing non-trivial to put there.
		if err := writeUint32(w, 0); err != nil {
			return err
		}
		if err := writeUint32(w, uint32(len(sec.Order))); err != nil {
			return err
		}
		for _, key := range sec.Order {
			if err := writeString(w, key); err != nil {
				return err
			}
			if err := writeValue(w, sec.Values[key]); err != nil {
				return err
			}
		}
	}
	return nil
}

func writeDynamicState(w *bufio.Writer, tracker *dynamic.Tracker) error {
	if err := w.WriteByte(tagDynamicState); err != nil {
		return err
	}
	var entries []*dynamic.DirtyEntry
	if tracker != nil {
		entries = tracker.All()
	}
	if err := writeUint32(w, uint32(len(entries))); err != nil {
		return err
	}
	for _, e := range entries {
		if err := writeString(w, e.Section); err != nil {
			return err
		}
		if err := writeString(w, e.Key); err != nil {
			return err
		}
		if err := writeValue(w, e.Current); err != nil {
			return err
		}
		if err := writeUint32(w, uint32(len(e.History))); err != nil {
			return err
		}
		for _, h := range e.History {
			if err := writeValue(w, h); err != nil {
				return err
			}
		}
	}
	return nil
}

func writeValue(w *bufio.Writer, v value.Value) error {
	if v == nil {
		return w.WriteByte(vtagNull)
	}
	switch x := v.(type) {
	case value.Null:
		return w.WriteByte(vtagNull)
	case value.Bool:
		if err := w.WriteByte(vtagBool); err != nil {
			return err
		}
		b := byte(0)
		if x {
			b = 1
		}
		return w.WriteByte(b)
	case value.Int:
		if err := w.WriteByte(vtagInt64); err != nil {
			return err
		}
		return writeUint64(w, uint64(x))
	case value.Float:
		if err := w.WriteByte(vtagFloat64); err != nil {
			return err
		}
		return writeFloat64(w, float64(x))
	case value.String:
		if err := w.WriteByte(vtagString); err != nil {
			return err
		}
		return writeString(w, string(x))
	case *value.Array:
		if err := w.WriteByte(vtagArray); err != nil {
			return err
		}
		if err := writeUint32(w, uint32(len(x.Items))); err != nil {
			return err
		}
		for _, it := range x.Items {
			if err := writeValue(w, it); err != nil {
				return err
			}
		}
		return nil
	case *value.Set:
		if err := w.WriteByte(vtagSet); err != nil {
			return err
		}
		if err := writeUint32(w, uint32(len(x.Items))); err != nil {
			return err
		}
		for _, it := range x.Items {
			if err := writeValue(w, it); err != nil {
				return err
			}
		}
		return nil
	case *value.Map:
		if err := w.WriteByte(vtagMap); err != nil {
			return err
		}
		if err := writeUint32(w, uint32(len(x.Keys))); err != nil {
			return err
		}
		for _, k := range x.Keys {
			if err := writeString(w, k); err != nil {
				return err
			}
			if err := writeValue(w, x.Values[k]); err != nil {
				return err
			}
		}
		return nil
	case value.Color:
		if err := w.WriteByte(vtagColor); err != nil {
			return err
		}
		if _, err := w.Write([]byte{x.R, x.G, x.B, x.A, boolByte(x.HasAlpha)}); err != nil {
			return err
		}
		return nil
	case value.Coord:
		if err := w.WriteByte(vtagCoord); err != nil {
			return err
		}
		if err := writeFloat64(w, x.X); err != nil {
			return err
		}
		if err := writeFloat64(w, x.Y); err != nil {
			return err
		}
		if err := writeFloat64(w, x.Z); err != nil {
			return err
		}
		return w.WriteByte(boolByte(x.HasZ))
	case value.Path:
		if err := w.WriteByte(vtagPath); err != nil {
			return err
		}
		return writeString(w, x.Raw)
	case *value.Dynamic:
		if err := w.WriteByte(vtagDynamic); err != nil {
			return err
		}
		return writeValue(w, x.Inner)
	default:
		return &UnresolvedValueError{Kind: v.Kind()}
	}
}

func boolByte(b bool) byte {
	if b {
		return 1
	}
	return 0
}

func writeUint32(w *bufio.Writer, n uint32) error {
	var buf [4]byte
	binary.LittleEndian.PutUint32(buf[:], n)
	_, err := w.Write(buf[:])
	return err
}

func writeUint64(w *bufio.Writer, n uint64) error {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], n)
	_, err := w.Write(buf[:])
	return err
}

func writeFloat64(w *bufio.Writer, f float64) error {
	return writeUint64(w, math.Float64bits(f))
}

func writeString(w *bufio.Writer, s string) error {
	if err := writeUint32(w, uint32(len(s))); err != nil {
		return err
	}
	_, err := w.WriteString(s)
	return err
}

// IsFresh reports whether the sidecar at sidecarPath is valid for
// sourcePath: its stored modification time must be ≥ the source's, and
// its version byte must match (spec §4.7 "Cache freshness").
func IsFresh(sidecarPath, sourcePath string) (bool, error) {
	sf, err := os.Open(sidecarPath)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	defer sf.Close()

	var hdr [5]byte
	if _, err := io.ReadFull(sf, hdr[:]); err != nil {
		return false, nil
	}
	if hdr[0] != magic[0] || hdr[1] != magic[1] || hdr[2] != magic[2] || hdr[3] != magic[3] {
		return false, nil
	}
	if hdr[4] != version {
		return false, nil
	}

	sidecarInfo, err := sf.Stat()
	if err != nil {
		return false, err
	}
	sourceInfo, err := os.Stat(sourcePath)
	if err != nil {
		return false, err
	}
	return !sidecarInfo.ModTime().Before(sourceInfo.ModTime()), nil
}
