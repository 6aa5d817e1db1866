package parser

import (
	"fmt"

	"github.com/yini-lang/yini/token"
)

// ErrorKind enumerates parser failure kinds (spec §4.3/§7). Parsing a
// file stops at the first error; there is no error recovery.
type ErrorKind string

const (
	ExpectedToken      ErrorKind = "ExpectedToken"
	ExpectedExpression ErrorKind = "ExpectedExpression"
	InvalidConstructor ErrorKind = "InvalidConstructor"
	InvalidSchemaRule  ErrorKind = "InvalidSchemaRule"
	DuplicateSection   ErrorKind = "DuplicateSection"
)

// Error is a parse error carrying its source position.
type Error struct {
	Kind ErrorKind
	Msg  string
	Pos  token.Position
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s at %s", e.Kind, e.Msg, e.Pos)
}
