package resolve

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/yini-lang/yini/parser"
	"github.com/yini-lang/yini/value"
)

func resolveSrc(t *testing.T, src string, env EnvFunc) *ResolvedConfig {
	t.Helper()
	doc, err := parser.ParseDocument("test.yini", src)
	require.NoError(t, err)
	cfg, diags := Resolve(doc, env)
	require.Empty(t, diags)
	return cfg
}

// resolveSrcDiag resolves src and asserts it produced at least one
// diagnostic. Per spec §7, a resolve failure never aborts the load, so
// Resolve still returns a usable ResolvedConfig alongside the
// diagnostics rather than a nil one.
func resolveSrcDiag(t *testing.T, src string, env EnvFunc) (*ResolvedConfig, []error) {
	t.Helper()
	doc, err := parser.ParseDocument("test.yini", src)
	require.NoError(t, err)
	cfg, diags := Resolve(doc, env)
	require.NotEmpty(t, diags)
	require.NotNil(t, cfg)
	return cfg, diags
}

// requireDiagKind asserts diags contains a *resolve.Error of kind and
// returns it.
func requireDiagKind(t *testing.T, diags []error, kind ErrorKind) *Error {
	t.Helper()
	for _, d := range diags {
		var rerr *Error
		if errors.As(d, &rerr) && rerr.Kind == kind {
			return rerr
		}
	}
	t.Fatalf("no diagnostic of kind %s found in %v", kind, diags)
	return nil
}

func TestResolveMacroExpansion(t *testing.T) {
	cfg := resolveSrc(t, `
[#define]
base = "/srv"
port = 8000 + 80

[App]
root = @base
listen = @port
`, nil)
	v, ok := cfg.Get("App", "root")
	require.True(t, ok)
	require.Equal(t, value.String("/srv"), v)

	v, ok = cfg.Get("App", "listen")
	require.True(t, ok)
	require.Equal(t, value.Int(8080), v)
}

func TestResolveMacroReferencingMacro(t *testing.T) {
	cfg := resolveSrc(t, `
[#define]
a = 1
b = @a + 1

[X]
v = @b
`, nil)
	v, _ := cfg.Get("X", "v")
	require.Equal(t, value.Int(2), v)
}

func TestResolveCircularMacro(t *testing.T) {
	_, diags := resolveSrcDiag(t, `
[#define]
a = @b
b = @a

[X]
v = @a
`, nil)
	requireDiagKind(t, diags, CircularMacro)
}

func TestResolveInheritanceOverride(t *testing.T) {
	cfg := resolveSrc(t, `
[Base]
host = "base-host"
port = 80

[Child] : Base
port = 8080
`, nil)
	v, _ := cfg.Get("Child", "host")
	require.Equal(t, value.String("base-host"), v)
	v, _ = cfg.Get("Child", "port")
	require.Equal(t, value.Int(8080), v)
}

func TestResolveDiamondInheritanceOrder(t *testing.T) {
	cfg := resolveSrc(t, `
[A]
x = 1

[B] : A
x = 2

[C] : A
x = 3

[D] : B, C
`, nil)
	v, _ := cfg.Get("D", "x")
	require.Equal(t, value.Int(3), v, "later parent (C) should win over earlier parent (B)")
}

func TestResolveCircularInheritance(t *testing.T) {
	_, diags := resolveSrcDiag(t, `
[A] : B
x = 1
[B] : A
y = 2
`, nil)
	requireDiagKind(t, diags, CircularInheritance)
}

func TestResolveCrossSectionReference(t *testing.T) {
	cfg := resolveSrc(t, `
[Net]
host = "localhost"

[App]
url = @{Net.host}
`, nil)
	v, _ := cfg.Get("App", "url")
	require.Equal(t, value.String("localhost"), v)
}

func TestResolveCrossSectionCycle(t *testing.T) {
	cfg, diags := resolveSrcDiag(t, `
[A]
x = @{B.y}
[B]
y = @{A.x}
`, nil)
	requireDiagKind(t, diags, CircularReference)
	require.True(t, cfg.Unresolved["A.x"] || cfg.Unresolved["B.y"])
}

func TestResolveSameSectionForwardReferenceRejected(t *testing.T) {
	cfg, diags := resolveSrcDiag(t, `
[A]
x = @{A.y}
y = 1
`, nil)
	requireDiagKind(t, diags, UseBeforeResolution)
	require.True(t, cfg.Unresolved["A.x"])
}

func TestResolveEnvRefWithDefault(t *testing.T) {
	cfg := resolveSrc(t, `
[A]
port = ${PORT:9090}
`, func(name string) (string, bool) { return "", false })
	v, _ := cfg.Get("A", "port")
	require.Equal(t, value.Int(9090), v)
}

func TestResolveEnvRefMissing(t *testing.T) {
	_, diags := resolveSrcDiag(t, `
[A]
x = ${NOPE}
`, func(name string) (string, bool) { return "", false })
	requireDiagKind(t, diags, MissingEnvVar)
}

func TestResolveArithmeticPromotion(t *testing.T) {
	cfg := resolveSrc(t, `
[A]
a = 1 + 2 * 3
b = 1 + 2.5
c = 10 / 4
d = 10.0 / 4
`, nil)
	a, _ := cfg.Get("A", "a")
	require.Equal(t, value.Int(7), a)
	b, _ := cfg.Get("A", "b")
	require.Equal(t, value.Float(3.5), b)
	c, _ := cfg.Get("A", "c")
	require.Equal(t, value.Int(2), c)
	d, _ := cfg.Get("A", "d")
	require.Equal(t, value.Float(2.5), d)
}

func TestResolveDivisionByZero(t *testing.T) {
	_, diags := resolveSrcDiag(t, `
[A]
x = 1 / 0
`, nil)
	requireDiagKind(t, diags, DivisionByZero)
}

func TestResolveColorConstructor(t *testing.T) {
	cfg := resolveSrc(t, `
[A]
c = Color(10, 20, 30)
`, nil)
	v, _ := cfg.Get("A", "c")
	require.Equal(t, value.Color{R: 10, G: 20, B: 30}, v)
}

func TestResolveColorConstructorRangeError(t *testing.T) {
	_, diags := resolveSrcDiag(t, `
[A]
c = Color(10, 20, 300)
`, nil)
	requireDiagKind(t, diags, InvalidConstructor)
}

func TestResolveHexColor(t *testing.T) {
	cfg := resolveSrc(t, `
[A]
c = #112233
`, nil)
	v, _ := cfg.Get("A", "c")
	require.Equal(t, value.Color{R: 0x11, G: 0x22, B: 0x33}, v)
}

func TestResolveDynaOriginTracking(t *testing.T) {
	cfg := resolveSrc(t, `
[A]
x = Dyna(5)
`, nil)
	require.Contains(t, cfg.Origins, "A.x")
}

func TestResolveSetDuplicateRejected(t *testing.T) {
	_, diags := resolveSrcDiag(t, `
[A]
s = (1, 2, 1)
`, nil)
	requireDiagKind(t, diags, DuplicateSetMember)
}
