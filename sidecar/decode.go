package sidecar

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"math"

	"github.com/yini-lang/yini/dynamic"
	"github.com/yini-lang/yini/resolve"
	"github.com/yini-lang/yini/value"
)

// CorruptError reports a structural mismatch while decoding (bad
// magic, wrong tag order, unknown value tag).
type CorruptError struct {
	Reason string
}

func (e *CorruptError) Error() string { return "sidecar: corrupt: " + e.Reason }

// Decoded is everything Write serialized, read back.
type Decoded struct {
	Macros   map[string]value.Value
	Includes []string
	Config   *resolve.ResolvedConfig
	Dynamic  *dynamic.Tracker
}

// Read parses a sidecar stream written by Write.
func Read(r io.Reader) (*Decoded, error) {
	br := bufio.NewReader(r)

	var hdr [5]byte
	if _, err := io.ReadFull(br, hdr[:]); err != nil {
		return nil, &CorruptError{Reason: "short header"}
	}
	if hdr[0] != magic[0] || hdr[1] != magic[1] || hdr[2] != magic[2] || hdr[3] != magic[3] {
		return nil, &CorruptError{Reason: "bad magic"}
	}
	if hdr[4] != version {
		return nil, &CorruptError{Reason: fmt.Sprintf("unsupported version %d", hdr[4])}
	}

	if err := expectTag(br, tagStartOfFile); err != nil {
		return nil, err
	}

	macros, err := readDefines(br)
	if err != nil {
		return nil, err
	}
	includes, err := readIncludes(br)
	if err != nil {
		return nil, err
	}
	cfg, err := readSections(br)
	if err != nil {
		return nil, err
	}
	cfg.Macros = macros

	tracker, err := readDynamicState(br)
	if err != nil {
		return nil, err
	}

	if err := expectTag(br, tagEndOfFile); err != nil {
		return nil, err
	}

	return &Decoded{Macros: macros, Includes: includes, Config: cfg, Dynamic: tracker}, nil
}

func expectTag(r *bufio.Reader, want byte) error {
	got, err := r.ReadByte()
	if err != nil {
		return &CorruptError{Reason: "unexpected EOF reading tag"}
	}
	if got != want {
		return &CorruptError{Reason: fmt.Sprintf("expected tag %d, got %d", want, got)}
	}
	return nil
}

func readDefines(r *bufio.Reader) (map[string]value.Value, error) {
	if err := expectTag(r, tagDefines); err != nil {
		return nil, err
	}
	n, err := readUint32(r)
	if err != nil {
		return nil, err
	}
	out := make(map[string]value.Value, n)
	for i := uint32(0); i < n; i++ {
		name, err := readString(r)
		if err != nil {
			return nil, err
		}
		v, err := readValue(r)
		if err != nil {
			return nil, err
		}
		out[name] = v
	}
	return out, nil
}

func readIncludes(r *bufio.Reader) ([]string, error) {
	if err := expectTag(r, tagIncludes); err != nil {
		return nil, err
	}
	n, err := readUint32(r)
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, n)
	for i := uint32(0); i < n; i++ {
		p, err := readString(r)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}

func readSections(r *bufio.Reader) (*resolve.ResolvedConfig, error) {
	if err := expectTag(r, tagSections); err != nil {
		return nil, err
	}
	secCount, err := readUint32(r)
	if err != nil {
		return nil, err
	}
	cfg := &resolve.ResolvedConfig{
		Sections: make(map[string]*resolve.ResolvedSection, secCount),
	}

	order := make([]string, 0, secCount)
	sections := make(map[string]*resolve.ResolvedSection, secCount)

	for i := uint32(0); i < secCount; i++ {
		if err := expectTag(r, tagSectionStart); err != nil {
			return nil, err
		}
		name, err := readString(r)
		if err != nil {
			return nil, err
		}
		parentCount, err := readUint32(r)
		if err != nil {
			return nil, err
		}
		for p := uint32(0); p < parentCount; p++ {
			if _, err := readString(r); err != nil {
				return nil, err
			}
		}
		entryCount, err := readUint32(r)
		if err != nil {
			return nil, err
		}
		sec := &resolve.ResolvedSection{Name: name, Values: make(map[string]value.Value, entryCount)}
		for e := uint32(0); e < entryCount; e++ {
			key, err := readString(r)
			if err != nil {
				return nil, err
			}
			v, err := readValue(r)
			if err != nil {
				return nil, err
			}
			sec.Order = append(sec.Order, key)
			sec.Values[key] = v
		}
		order = append(order, name)
		sections[name] = sec
	}

	cfg.Order = order
	cfg.Sections = sections
	return cfg, nil
}

func readDynamicState(r *bufio.Reader) (*dynamic.Tracker, error) {
	if err := expectTag(r, tagDynamicState); err != nil {
		return nil, err
	}
	n, err := readUint32(r)
	if err != nil {
		return nil, err
	}
	tracker := dynamic.NewTracker()
	for i := uint32(0); i < n; i++ {
		section, err := readString(r)
		if err != nil {
			return nil, err
		}
		key, err := readString(r)
		if err != nil {
			return nil, err
		}
		current, err := readValue(r)
		if err != nil {
			return nil, err
		}
		histCount, err := readUint32(r)
		if err != nil {
			return nil, err
		}
		history := make([]value.Value, 0, histCount)
		for h := uint32(0); h < histCount; h++ {
			hv, err := readValue(r)
			if err != nil {
				return nil, err
			}
			history = append(history, hv)
		}
		// Replay history oldest-first through Tracker.Set so the
		// bounded-5 eviction logic runs the same way it would have
		// live, then land on current.
		for _, h := range history {
			tracker.Set(section, key, nil, false, dynamic.Origin{}, h)
		}
		tracker.Set(section, key, nil, false, dynamic.Origin{}, current)
	}
	return tracker, nil
}

func readValue(r *bufio.Reader) (value.Value, error) {
	tag, err := r.ReadByte()
	if err != nil {
		return nil, &CorruptError{Reason: "unexpected EOF reading value tag"}
	}
	switch tag {
	case vtagNull:
		return value.Null{}, nil
	case vtagBool:
		b, err := r.ReadByte()
		if err != nil {
			return nil, err
		}
		return value.Bool(b != 0), nil
	case vtagInt64:
		n, err := readUint64(r)
		if err != nil {
			return nil, err
		}
		return value.Int(int64(n)), nil
	case vtagFloat64:
		n, err := readUint64(r)
		if err != nil {
			return nil, err
		}
		return value.Float(math.Float64frombits(n)), nil
	case vtagString:
		s, err := readString(r)
		if err != nil {
			return nil, err
		}
		return value.String(s), nil
	case vtagArray:
		n, err := readUint32(r)
		if err != nil {
			return nil, err
		}
		items := make([]value.Value, n)
		for i := range items {
			v, err := readValue(r)
			if err != nil {
				return nil, err
			}
			items[i] = v
		}
		return value.NewArray(items...), nil
	case vtagSet:
		n, err := readUint32(r)
		if err != nil {
			return nil, err
		}
		items := make([]value.Value, n)
		for i := range items {
			v, err := readValue(r)
			if err != nil {
				return nil, err
			}
			items[i] = v
		}
		return value.NewSet(items...), nil
	case vtagMap:
		n, err := readUint32(r)
		if err != nil {
			return nil, err
		}
		m := value.NewMap()
		for i := uint32(0); i < n; i++ {
			k, err := readString(r)
			if err != nil {
				return nil, err
			}
			v, err := readValue(r)
			if err != nil {
				return nil, err
			}
			m.Set(k, v)
		}
		return m, nil
	case vtagColor:
		var buf [5]byte
		if _, err := io.ReadFull(r, buf[:]); err != nil {
			return nil, err
		}
		return value.Color{R: buf[0], G: buf[1], B: buf[2], A: buf[3], HasAlpha: buf[4] != 0}, nil
	case vtagCoord:
		x, err := readFloat64(r)
		if err != nil {
			return nil, err
		}
		y, err := readFloat64(r)
		if err != nil {
			return nil, err
		}
		z, err := readFloat64(r)
		if err != nil {
			return nil, err
		}
		hasZ, err := r.ReadByte()
		if err != nil {
			return nil, err
		}
		return value.Coord{X: x, Y: y, Z: z, HasZ: hasZ != 0}, nil
	case vtagPath:
		s, err := readString(r)
		if err != nil {
			return nil, err
		}
		return value.Path{Raw: s, IsPath: true}, nil
	case vtagDynamic:
		inner, err := readValue(r)
		if err != nil {
			return nil, err
		}
		d, err := value.NewDynamic(inner)
		if err != nil {
			return nil, err
		}
		return d, nil
	default:
		return nil, &CorruptError{Reason: fmt.Sprintf("unknown value tag %d", tag)}
	}
}

func readUint32(r *bufio.Reader) (uint32, error) {
	var buf [4]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return 0, &CorruptError{Reason: "unexpected EOF reading uint32"}
	}
	return binary.LittleEndian.Uint32(buf[:]), nil
}

func readUint64(r *bufio.Reader) (uint64, error) {
	var buf [8]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return 0, &CorruptError{Reason: "unexpected EOF reading uint64"}
	}
	return binary.LittleEndian.Uint64(buf[:]), nil
}

func readFloat64(r *bufio.Reader) (float64, error) {
	n, err := readUint64(r)
	if err != nil {
		return 0, err
	}
	return math.Float64frombits(n), nil
}

func readString(r *bufio.Reader) (string, error) {
	n, err := readUint32(r)
	if err != nil {
		return "", err
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return "", &CorruptError{Reason: "unexpected EOF reading string"}
	}
	return string(buf), nil
}
