package docmodel

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildTreeNestsByLineRange(t *testing.T) {
	files := map[string][]Record{
		"a.go": {
			{Type: "FunctionDef", Name: "f", StartLine: 1, EndLine: 3, CodeContent: "func f() {}"},
			{Type: "FunctionDef", Name: "g", StartLine: 5, EndLine: 8, CodeContent: "func g() { f() }"},
		},
	}

	root, err := BuildTree("/repo", files)
	require.NoError(t, err, "build should succeed for disjoint ranges")

	f := root.Find([]string{"a.go", "f"})
	g := root.Find([]string{"a.go", "g"})
	require.NotNil(t, f, "f should be nested under a.go")
	require.NotNil(t, g, "g should be nested under a.go")
	assert.Equal(t, KindFunction, f.Kind)
	assert.Equal(t, KindFunction, g.Kind)
	assert.Equal(t, "a.go/f", f.GetFullName(false))
}

func TestBuildTreeStrictNesting(t *testing.T) {
	files := map[string][]Record{
		"a.go": {
			{Type: "ClassDef", Name: "C", StartLine: 1, EndLine: 10},
			{Type: "FunctionDef", Name: "m", StartLine: 2, EndLine: 4},
		},
	}

	root, err := BuildTree("/repo", files)
	require.NoError(t, err)

	m := root.Find([]string{"a.go", "C", "m"})
	require.NotNil(t, m, "m should nest under C")
	assert.Equal(t, KindClassMethod, m.Kind)
}

func TestBuildTreeRejectsIdenticalRanges(t *testing.T) {
	files := map[string][]Record{
		"a.go": {
			{Type: "FunctionDef", Name: "f", StartLine: 1, EndLine: 3},
			{Type: "FunctionDef", Name: "g", StartLine: 1, EndLine: 3},
		},
	}

	_, err := BuildTree("/repo", files)
	assert.Error(t, err, "identical ranges cannot be resolved by containment")
}

func TestSiblingNameCollisionSuffixing(t *testing.T) {
	files := map[string][]Record{
		"a.go": {
			{Type: "FunctionDef", Name: "handler", StartLine: 1, EndLine: 3},
			{Type: "FunctionDef", Name: "handler", StartLine: 5, EndLine: 8},
		},
	}

	root, err := BuildTree("/repo", files)
	require.NoError(t, err)

	first := root.Find([]string{"a.go", "handler"})
	second := root.Find([]string{"a.go", "handler_0"})
	require.NotNil(t, first)
	require.NotNil(t, second)
	assert.Equal(t, "a.go/handler", first.GetFullName(true))
	assert.Equal(t, "a.go/handler_0", second.GetFullName(true))
}

// TestSiblingNameCollisionSuffixingIsEmissionOrderNotWidth pins the
// collision rename to parser-emission order against the record that
// was emitted second also being the wider line range: the narrower,
// first-emitted record must still claim the bare name.
func TestSiblingNameCollisionSuffixingIsEmissionOrderNotWidth(t *testing.T) {
	files := map[string][]Record{
		"a.go": {
			{Type: "FunctionDef", Name: "handler", StartLine: 1, EndLine: 3},
			{Type: "FunctionDef", Name: "handler", StartLine: 5, EndLine: 9},
		},
	}

	root, err := BuildTree("/repo", files)
	require.NoError(t, err)

	first := root.Find([]string{"a.go", "handler"})
	second := root.Find([]string{"a.go", "handler_0"})
	require.NotNil(t, first, "first-emitted (narrower) record should hold the bare name")
	require.NotNil(t, second, "second-emitted (wider) record should be suffixed")
	assert.Equal(t, 1, first.CodeStartLine, "bare name must belong to the first-emitted record regardless of range width")
	assert.Equal(t, 5, second.CodeStartLine, "suffixed name must belong to the second-emitted record regardless of range width")
}

func TestCheckAndReturnAncestor(t *testing.T) {
	files := map[string][]Record{
		"a.go": {
			{Type: "ClassDef", Name: "C", StartLine: 1, EndLine: 10},
			{Type: "FunctionDef", Name: "m", StartLine: 2, EndLine: 4},
		},
	}
	root, err := BuildTree("/repo", files)
	require.NoError(t, err)

	c := root.Find([]string{"a.go", "C"})
	m := root.Find([]string{"a.go", "C", "m"})
	assert.NotNil(t, CheckAndReturnAncestor(c, m), "C is an ancestor of m")
	assert.NotNil(t, CheckAndReturnAncestor(m, c), "ancestry check is symmetric in its arguments")
}

func TestNeedToGenerate(t *testing.T) {
	files := map[string][]Record{
		"a.go": {
			{Type: "FunctionDef", Name: "f", StartLine: 1, EndLine: 3},
		},
	}
	root, err := BuildTree("/repo", files)
	require.NoError(t, err)

	f := root.Find([]string{"a.go", "f"})
	f.Status = StatusUpToDate
	assert.False(t, NeedToGenerate(f, nil))

	f.Status = StatusCodeChanged
	assert.True(t, NeedToGenerate(f, nil))

	assert.False(t, NeedToGenerate(root.Find([]string{"a.go"}), nil), "file nodes never need generation")
}
