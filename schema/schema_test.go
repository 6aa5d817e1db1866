package schema_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/yini-lang/yini/parser"
	"github.com/yini-lang/yini/resolve"
	"github.com/yini-lang/yini/schema"
)

func TestValidateMissingRequiredKey(t *testing.T) {
	doc, err := parser.ParseDocument("t.yini", `
[#schema]
[Cfg] port = int, required
[Cfg]
`)
	require.NoError(t, err)
	cfg, resolveErrs := resolve.Resolve(doc, nil)
	require.Empty(t, resolveErrs)

	errs := schema.Validate(doc.Schema, cfg, nil)
	require.Len(t, errs, 1)
	require.Equal(t, schema.MissingKey, errs[0].Kind)
}

func TestValidateMissingSection(t *testing.T) {
	doc, err := parser.ParseDocument("t.yini", `
[#schema]
[Cfg] port = int, required
`)
	require.NoError(t, err)
	cfg, resolveErrs := resolve.Resolve(doc, nil)
	require.Empty(t, resolveErrs)

	errs := schema.Validate(doc.Schema, cfg, nil)
	require.Len(t, errs, 1)
	require.Equal(t, schema.MissingSection, errs[0].Kind)
}

func TestValidateTypeMismatch(t *testing.T) {
	doc, err := parser.ParseDocument("t.yini", `
[#schema]
[Cfg] port = int
[Cfg]
port = "not-a-number"
`)
	require.NoError(t, err)
	cfg, resolveErrs := resolve.Resolve(doc, nil)
	require.Empty(t, resolveErrs)

	errs := schema.Validate(doc.Schema, cfg, nil)
	require.Len(t, errs, 1)
	require.Equal(t, schema.TypeMismatch, errs[0].Kind)
}

func TestValidateAccumulatesAllErrors(t *testing.T) {
	doc, err := parser.ParseDocument("t.yini", `
[#schema]
[Cfg] a = int, required
[Cfg] b = string, required
[Cfg]
`)
	require.NoError(t, err)
	cfg, resolveErrs := resolve.Resolve(doc, nil)
	require.Empty(t, resolveErrs)

	errs := schema.Validate(doc.Schema, cfg, nil)
	require.Len(t, errs, 2)
}

func TestValidateArrayElementTypeMismatch(t *testing.T) {
	doc, err := parser.ParseDocument("t.yini", `
[#schema]
[Cfg] tags = array[int]
[Cfg]
tags = [1, "two", 3]
`)
	require.NoError(t, err)
	cfg, resolveErrs := resolve.Resolve(doc, nil)
	require.Empty(t, resolveErrs)

	errs := schema.Validate(doc.Schema, cfg, nil)
	require.Len(t, errs, 1)
	require.Equal(t, schema.TypeMismatch, errs[0].Kind)
}

func TestValidatePasses(t *testing.T) {
	doc, err := parser.ParseDocument("t.yini", `
[#schema]
[Cfg] port = int, required
[Cfg]
port = 8080
`)
	require.NoError(t, err)
	cfg, resolveErrs := resolve.Resolve(doc, nil)
	require.Empty(t, resolveErrs)

	errs := schema.Validate(doc.Schema, cfg, nil)
	require.Empty(t, errs)
}
