package parser

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/yini-lang/yini/ast"
)

func mustParse(t *testing.T, src string) *ast.Document {
	t.Helper()
	doc, err := ParseDocument("test.yini", src)
	require.NoError(t, err)
	return doc
}

func TestParseSimpleSection(t *testing.T) {
	doc := mustParse(t, `
[Server]
host = "localhost"
port = 8080
`)
	require.Len(t, doc.Sections, 1)
	sec := doc.Sections[0]
	require.Equal(t, "Server", sec.Name)
	require.Len(t, sec.Entries, 2)
	require.Equal(t, "host", sec.Entries[0].Key)
	require.Equal(t, "localhost", sec.Entries[0].Value.(*ast.StringLit).Value)
	require.Equal(t, int64(8080), sec.Entries[1].Value.(*ast.IntLit).Value)
}

func TestParseSectionWithParents(t *testing.T) {
	doc := mustParse(t, `[Child] : Base1, Base2
x = 1
`)
	sec := doc.Sections[0]
	require.Equal(t, []string{"Base1", "Base2"}, sec.Parents)
}

func TestParseQuickRegister(t *testing.T) {
	doc := mustParse(t, `[List]
+= "a"
+= "b"
`)
	sec := doc.Sections[0]
	require.Equal(t, "0", sec.Entries[0].Key)
	require.True(t, sec.Entries[0].QuickRegister)
	require.Equal(t, "1", sec.Entries[1].Key)
}

func TestParseDefineAndMacroRef(t *testing.T) {
	doc := mustParse(t, `[#define]
base = "/srv"

[App]
root = @base
`)
	require.Len(t, doc.Defines, 1)
	require.Equal(t, "base", doc.Defines[0].Name)
	ref := doc.Sections[0].Entries[0].Value.(*ast.MacroRef)
	require.Equal(t, "base", ref.Name)
}

func TestParseInclude(t *testing.T) {
	doc := mustParse(t, `[#include]
+= "common.yini"
+= "local.yini"
`)
	require.Len(t, doc.Includes, 2)
	require.Equal(t, "common.yini", doc.Includes[0].Path)
}

func TestParseCrossRefAndEnvRef(t *testing.T) {
	doc := mustParse(t, `[A]
x = @{Other.key}
y = ${HOME}
z = ${PORT:8080}
`)
	sec := doc.Sections[0]
	cr := sec.Entries[0].Value.(*ast.CrossRef)
	require.Equal(t, "Other", cr.Section)
	require.Equal(t, "key", cr.Key)

	er := sec.Entries[1].Value.(*ast.EnvRef)
	require.Equal(t, "HOME", er.Name)
	require.Nil(t, er.Default)

	er2 := sec.Entries[2].Value.(*ast.EnvRef)
	require.Equal(t, "PORT", er2.Name)
	require.Equal(t, int64(8080), er2.Default.(*ast.IntLit).Value)
}

func TestParseArithmeticPrecedence(t *testing.T) {
	doc := mustParse(t, `[A]
x = 1 + 2 * 3
`)
	bin := doc.Sections[0].Entries[0].Value.(*ast.Binary)
	require.Equal(t, int64(1), bin.Left.(*ast.IntLit).Value)
	rhs := bin.Right.(*ast.Binary)
	require.Equal(t, int64(2), rhs.Left.(*ast.IntLit).Value)
	require.Equal(t, int64(3), rhs.Right.(*ast.IntLit).Value)
}

func TestParseArrayMapSet(t *testing.T) {
	doc := mustParse(t, `[A]
arr = [1, 2, 3]
empty_arr = []
m = {a: 1, b: 2}
single_set = (1,)
multi_set = (1, 2, 3)
empty_set = ()
grouped = (1 + 2)
`)
	sec := doc.Sections[0]
	arr := sec.Entries[0].Value.(*ast.ArrayLit)
	require.Len(t, arr.Elements, 3)

	emptyArr := sec.Entries[1].Value.(*ast.ArrayLit)
	require.Empty(t, emptyArr.Elements)

	m := sec.Entries[2].Value.(*ast.MapLit)
	require.Equal(t, []string{"a", "b"}, m.Keys)

	single := sec.Entries[3].Value.(*ast.SetLit)
	require.Len(t, single.Elements, 1)

	multi := sec.Entries[4].Value.(*ast.SetLit)
	require.Len(t, multi.Elements, 3)

	empty := sec.Entries[5].Value.(*ast.SetLit)
	require.Empty(t, empty.Elements)

	group := sec.Entries[6].Value.(*ast.Group)
	require.NotNil(t, group.Inner)
}

func TestParseConstructorCalls(t *testing.T) {
	doc := mustParse(t, `[A]
c = color(255, 0, 0)
p = Path("/tmp/x")
`)
	sec := doc.Sections[0]
	call := sec.Entries[0].Value.(*ast.Call)
	require.Equal(t, "Color", call.Name)
	require.Len(t, call.Args, 3)

	p := sec.Entries[1].Value.(*ast.Call)
	require.Equal(t, "Path", p.Name)
}

func TestParseHexColor(t *testing.T) {
	doc := mustParse(t, `[A]
c = #ff0000
`)
	hc := doc.Sections[0].Entries[0].Value.(*ast.HexColor)
	require.Equal(t, "FF0000", hc.Hex)
}

func TestParseHexColorDigitLeadingMixedRun(t *testing.T) {
	doc := mustParse(t, `[A]
c = #1a2b3c
`)
	hc := doc.Sections[0].Entries[0].Value.(*ast.HexColor)
	require.Equal(t, "1A2B3C", hc.Hex)
}

func TestParseHexColorAllDigitsWithAlphaSuffix(t *testing.T) {
	doc := mustParse(t, `[A]
c = #0d0d0d
`)
	hc := doc.Sections[0].Entries[0].Value.(*ast.HexColor)
	require.Equal(t, "0D0D0D", hc.Hex)
}

func TestParseSchemaBlockWithImplicitTermination(t *testing.T) {
	doc := mustParse(t, `[#schema]
[Cfg] port = int, required, =8080
[Cfg]
`)
	require.Len(t, doc.Schema, 1)
	rule := doc.Schema[0]
	require.Equal(t, "Cfg", rule.Section)
	require.Equal(t, "port", rule.Key)
	require.Equal(t, "int", rule.Type.Name)
	require.True(t, rule.Required)
	require.Equal(t, ast.EmptyDefault, rule.Empty)
	require.Equal(t, int64(8080), rule.Default.(*ast.IntLit).Value)

	require.Len(t, doc.Sections, 1)
	require.Equal(t, "Cfg", doc.Sections[0].Name)
	require.Empty(t, doc.Sections[0].Entries)
}

func TestParseSchemaBlockWithExplicitEnd(t *testing.T) {
	doc := mustParse(t, `[#schema]
[Cfg] name = string, required
[Other] count = int
[#end_schema]
[Cfg]
name = "hi"
`)
	require.Len(t, doc.Schema, 2)
	require.Equal(t, "Cfg", doc.Schema[0].Section)
	require.Equal(t, "Other", doc.Schema[1].Section)
	require.Len(t, doc.Sections, 1)
}

func TestParseSchemaArrayAndMapTypes(t *testing.T) {
	doc := mustParse(t, `[#schema]
[Cfg] tags = array[string]
[Cfg] lookup = {int:string}
[Cfg]
`)
	require.Len(t, doc.Schema, 2)
	require.Equal(t, "array", doc.Schema[0].Type.Name)
	require.Equal(t, "string", doc.Schema[0].Type.Elem.Name)
	require.Equal(t, "map", doc.Schema[1].Type.Name)
	require.Equal(t, "int", doc.Schema[1].Type.KeyKind.Name)
}

func TestParseErrorOnUnknownConstructor(t *testing.T) {
	_, err := ParseDocument("t.yini", "[A]\nx = bogus(1)\n")
	require.Error(t, err)
	var perr *Error
	require.ErrorAs(t, err, &perr)
	require.Equal(t, InvalidConstructor, perr.Kind)
}

func TestParseErrorOnConstructorArity(t *testing.T) {
	_, err := ParseDocument("t.yini", "[A]\nx = Color(1, 2)\n")
	require.Error(t, err)
	var perr *Error
	require.ErrorAs(t, err, &perr)
	require.Equal(t, InvalidConstructor, perr.Kind)
}

func TestParseErrorMissingEquals(t *testing.T) {
	_, err := ParseDocument("t.yini", "[A]\nx 5\n")
	require.Error(t, err)
}
