package value

import (
	"strconv"
	"strings"
)

// quoteString renders s as a YINI string literal: double-quoted with
// minimal escaping (spec §6 canonical formatter).
func quoteString(s string) string {
	var sb strings.Builder
	sb.WriteByte('"')
	for _, r := range s {
		switch r {
		case '"':
			sb.WriteString(`\"`)
		case '\\':
			sb.WriteString(`\\`)
		case '\n':
			sb.WriteString(`\n`)
		case '\t':
			sb.WriteString(`\t`)
		case '\r':
			sb.WriteString(`\r`)
		default:
			sb.WriteRune(r)
		}
	}
	sb.WriteByte('"')
	return sb.String()
}

// formatFloat renders f with a decimal point and never in scientific
// notation, per the canonical formatter (spec §6).
func formatFloat(f float64) string {
	s := strconv.FormatFloat(f, 'f', -1, 64)
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s
}

func (a *Array) String() string {
	parts := make([]string, len(a.Items))
	for i, it := range a.Items {
		parts[i] = it.String()
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

func (s *Set) String() string {
	if len(s.Items) == 0 {
		return "()"
	}
	if len(s.Items) == 1 {
		return "(" + s.Items[0].String() + ",)"
	}
	parts := make([]string, len(s.Items))
	for i, it := range s.Items {
		parts[i] = it.String()
	}
	return "(" + strings.Join(parts, ", ") + ")"
}

func (m *Map) String() string {
	parts := make([]string, 0, len(m.Keys))
	for _, k := range m.Keys {
		parts = append(parts, quoteString(k)+": "+m.Values[k].String())
	}
	return "{" + strings.Join(parts, ", ") + "}"
}

func (c Color) String() string {
	if c.HasAlpha {
		return "Color(" + itoa(c.R) + ", " + itoa(c.G) + ", " + itoa(c.B) + ", " + itoa(c.A) + ")"
	}
	return "Color(" + itoa(c.R) + ", " + itoa(c.G) + ", " + itoa(c.B) + ")"
}

func itoa(b byte) string {
	return strconv.Itoa(int(b))
}

func (c Coord) String() string {
	if c.HasZ {
		return "Coord(" + formatFloat(c.X) + ", " + formatFloat(c.Y) + ", " + formatFloat(c.Z) + ")"
	}
	return "Coord(" + formatFloat(c.X) + ", " + formatFloat(c.Y) + ")"
}
