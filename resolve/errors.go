package resolve

import (
	"fmt"

	"github.com/yini-lang/yini/token"
)

// ErrorKind enumerates the resolver/evaluator failure kinds (spec
// §4.5/§7).
type ErrorKind string

const (
	UndefinedMacro        ErrorKind = "UndefinedMacro"
	CircularMacro         ErrorKind = "CircularMacro"
	CircularInheritance   ErrorKind = "CircularInheritance"
	ParentSectionNotFound ErrorKind = "ParentSectionNotFound"
	UseBeforeResolution   ErrorKind = "UseBeforeResolution"
	CircularReference     ErrorKind = "CircularReference"
	UndefinedCrossRef     ErrorKind = "UndefinedCrossRef"
	MissingEnvVar         ErrorKind = "MissingEnvVar"
	DivisionByZero        ErrorKind = "DivisionByZero"
	InvalidOperator       ErrorKind = "InvalidOperator"
	InvalidConstructor    ErrorKind = "InvalidConstructor"
	InvalidHexColor       ErrorKind = "InvalidHexColor"
	NestedDyna            ErrorKind = "NestedDyna"
	DuplicateSetMember    ErrorKind = "DuplicateSetMember"
)

// Error is a resolution/evaluation error, optionally positioned at the
// expression that triggered it.
type Error struct {
	Kind ErrorKind
	Msg  string
	Pos  token.Position
}

func (e *Error) Error() string {
	if e.Pos.File == "" {
		return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
	}
	return fmt.Sprintf("%s: %s at %s", e.Kind, e.Msg, e.Pos)
}

func errf(kind ErrorKind, pos token.Position, format string, args ...interface{}) error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...), Pos: pos}
}
