package ast

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTypeExprString(t *testing.T) {
	arr := &TypeExpr{Name: "array", Elem: &TypeExpr{Name: "string"}}
	require.Equal(t, "array[string]", arr.String())

	m := &TypeExpr{Name: "map", KeyKind: &TypeExpr{Name: "int"}, Elem: &TypeExpr{Name: "string"}}
	require.Equal(t, "{int:string}", m.String())

	require.Equal(t, "string", (&TypeExpr{Name: "string"}).String())
}

func TestIsReservedName(t *testing.T) {
	require.True(t, IsReservedName("#define"))
	require.True(t, IsReservedName("#include"))
	require.True(t, IsReservedName("#schema"))
	require.False(t, IsReservedName("Settings"))
}

func TestDocumentSectionLookup(t *testing.T) {
	doc := &Document{Sections: []*Section{{Name: "A"}, {Name: "B"}}}
	require.NotNil(t, doc.Section("B"))
	require.Nil(t, doc.Section("C"))
}
