package render

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ternarybob/docweave/pkg/docmodel"
)

func TestWriteAllMirrorsSourceStructure(t *testing.T) {
	outDir := t.TempDir()

	tree, err := docmodel.BuildTree("/repo", map[string][]docmodel.Record{
		"pkg/a.go": {
			{Type: "FunctionDef", Name: "f", StartLine: 1, EndLine: 3, Params: []string{"ctx", "id"}},
			{Type: "FunctionDef", Name: "g", StartLine: 5, EndLine: 8},
		},
	})
	require.NoError(t, err)
	tree.Find([]string{"pkg", "a.go", "f"}).MDContent = []string{"f does a thing."}

	require.NoError(t, WriteAll(tree, outDir))

	data, err := os.ReadFile(filepath.Join(outDir, "pkg", "a.go.md"))
	require.NoError(t, err)
	text := string(data)

	assert.Contains(t, text, "## FunctionDef f(ctx, id)")
	assert.Contains(t, text, "f does a thing.")
	assert.Contains(t, text, "## FunctionDef g()")
	assert.Contains(t, text, placeholder, "an undocumented sibling gets the waiting placeholder")
	assert.Contains(t, text, "\n***\n", "siblings are divided by a *** rule")
}

func TestWriteAllOmitsFilesWithNoContent(t *testing.T) {
	outDir := t.TempDir()

	tree, err := docmodel.BuildTree("/repo", map[string][]docmodel.Record{
		"empty.go": {
			{Type: "FunctionDef", Name: "f", StartLine: 1, EndLine: 3},
		},
	})
	require.NoError(t, err)

	require.NoError(t, WriteAll(tree, outDir))
	assert.NoFileExists(t, filepath.Join(outDir, "empty.go.md"), "a file whose whole subtree has no docs is omitted")
}

func TestWriteAllNestsHeadingsByDepth(t *testing.T) {
	outDir := t.TempDir()

	tree, err := docmodel.BuildTree("/repo", map[string][]docmodel.Record{
		"a.go": {
			{Type: "ClassDef", Name: "C", StartLine: 1, EndLine: 10},
			{Type: "FunctionDef", Name: "m", StartLine: 2, EndLine: 4},
		},
	})
	require.NoError(t, err)
	tree.Find([]string{"a.go", "C", "m"}).MDContent = []string{"m is a method."}

	require.NoError(t, WriteAll(tree, outDir))

	data, err := os.ReadFile(filepath.Join(outDir, "a.go.md"))
	require.NoError(t, err)
	text := string(data)

	assert.Contains(t, text, "## ClassDef C()")
	assert.Contains(t, text, "### FunctionDef m()", "a method heading sits one level below its class")
}
