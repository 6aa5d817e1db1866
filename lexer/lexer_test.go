package lexer

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/yini-lang/yini/token"
)

func scanAll(t *testing.T, input string) []token.Token {
	t.Helper()
	toks, err := Tokenize("test.yini", input)
	require.NoError(t, err)
	return toks
}

func TestBasicTokens(t *testing.T) {
	tests := []struct {
		input    string
		expected []token.Type
	}{
		{"x = 1", []token.Type{token.IDENT, token.EQ, token.INT, token.EOF}},
		{"+= -", []token.Type{token.PLUSEQ, token.MINUS, token.EOF}},
		{`"hi"`, []token.Type{token.STRING, token.EOF}},
		{"1.5", []token.Type{token.FLOAT, token.EOF}},
		{"true false null", []token.Type{token.TRUE, token.FALSE, token.NULL, token.EOF}},
		{"[Section]", []token.Type{token.LBRACKET, token.IDENT, token.RBRACKET, token.EOF}},
		{"@base", []token.Type{token.MACRO_REF, token.EOF}},
		{"@{A.val}", []token.Type{token.CROSS_REF, token.EOF}},
		{"${HOME}", []token.Type{token.ENV_REF, token.EOF}},
		{"${HOME:/tmp}", []token.Type{token.ENV_REF, token.EOF}},
		{"! ~", []token.Type{token.EXCLAIM, token.TILDE, token.EOF}},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			toks := scanAll(t, tt.input)
			require.Len(t, toks, len(tt.expected))
			for i, typ := range tt.expected {
				require.Equal(t, typ, toks[i].Type, "token %d of %q", i, tt.input)
			}
		})
	}
}

func TestStringEscapes(t *testing.T) {
	toks := scanAll(t, `"a\nb\tc\\d\"e"`)
	require.Equal(t, "a\nb\tc\\d\"e", toks[0].Literal)
}

func TestCrossRefLiteral(t *testing.T) {
	toks := scanAll(t, "@{A.val}")
	require.Equal(t, "A.val", toks[0].Literal)
}

func TestEnvRefLiteral(t *testing.T) {
	toks := scanAll(t, "${NAME:default}")
	require.Equal(t, "NAME:default", toks[0].Literal)
}

func TestComments(t *testing.T) {
	toks := scanAll(t, "// line\n/* block */")
	require.Equal(t, token.COMMENT, toks[0].Type)
	require.Equal(t, token.NEWLINE, toks[1].Type)
	require.Equal(t, token.COMMENT, toks[2].Type)
}

func TestDirectiveSectionsLexAsBracketsAndIdents(t *testing.T) {
	toks := scanAll(t, "[#define]")
	require.Equal(t, []token.Type{token.LBRACKET, token.HASH, token.IDENT, token.RBRACKET, token.EOF}, typesOf(toks))
}

func typesOf(toks []token.Token) []token.Type {
	out := make([]token.Type, len(toks))
	for i, tk := range toks {
		out[i] = tk.Type
	}
	return out
}

func TestUnterminatedString(t *testing.T) {
	_, err := Tokenize("test.yini", `"unterminated`)
	require.Error(t, err)
	var lexErr *Error
	require.ErrorAs(t, err, &lexErr)
	require.Equal(t, UnterminatedString, lexErr.Kind)
}

func TestUnterminatedBlockComment(t *testing.T) {
	_, err := Tokenize("test.yini", "/* never closed")
	require.Error(t, err)
	var lexErr *Error
	require.ErrorAs(t, err, &lexErr)
	require.Equal(t, UnterminatedBlockComment, lexErr.Kind)
}

func TestUnexpectedChar(t *testing.T) {
	_, err := Tokenize("test.yini", "?")
	require.Error(t, err)
	var lexErr *Error
	require.ErrorAs(t, err, &lexErr)
	require.Equal(t, UnexpectedChar, lexErr.Kind)
}

func TestPositionTracking(t *testing.T) {
	toks := scanAll(t, "x\ny = 1")
	// y is on line 2
	for _, tk := range toks {
		if tk.Literal == "y" {
			require.Equal(t, 2, tk.Pos.Line)
		}
	}
}
