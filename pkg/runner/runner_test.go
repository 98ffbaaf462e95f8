package runner

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ternarybob/docweave/pkg/docmodel"
)

func TestRemapReflectionPrefersLatestVersionContent(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "a_latest_version.go"), []byte("package a\nfunc F() {}\n"), 0o644))

	files := map[string][]docmodel.Record{
		"a.go": {{Type: "FunctionDef", Name: "OldF", StartLine: 1, EndLine: 1}},
		"a_latest_version.go": {{Type: "FunctionDef", Name: "F", StartLine: 2, EndLine: 2}},
	}
	reflectionMap := map[string]string{"a.go": "a_latest_version.go"}

	out := remapReflection(files, reflectionMap, root)

	require.Contains(t, out, "a.go")
	assert.Equal(t, "F", out["a.go"][0].Name)
	assert.NotContains(t, out, "a_latest_version.go", "the sibling path itself must not leak into the rebuilt tree's file set")
}

func TestRemapReflectionDropsZeroByteDeletionMarker(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "b_latest_version.go"), nil, 0o644))

	files := map[string][]docmodel.Record{
		"b.go": {{Type: "FunctionDef", Name: "OldB", StartLine: 1, EndLine: 1}},
	}
	reflectionMap := map[string]string{"b.go": "b_latest_version.go"}

	out := remapReflection(files, reflectionMap, root)

	assert.NotContains(t, out, "b.go", "a zero-byte latest-version sibling means the file was deleted and must drop out of the tree")
}

func TestRemapReflectionLeavesUntouchedFilesAlone(t *testing.T) {
	root := t.TempDir()
	files := map[string][]docmodel.Record{
		"c.go": {{Type: "FunctionDef", Name: "C", StartLine: 1, EndLine: 1}},
	}

	out := remapReflection(files, map[string]string{}, root)

	require.Contains(t, out, "c.go")
	assert.Equal(t, "C", out["c.go"][0].Name)
}

func TestLoadWhitelistEmptyPathIsNotAnError(t *testing.T) {
	entries, err := loadWhitelist("")
	require.NoError(t, err)
	assert.Nil(t, entries)
}

func TestLoadWhitelistParsesEntries(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "whitelist.json")
	require.NoError(t, os.WriteFile(path, []byte(`[{"file_path":"pkg/a.go","id_text":"abc"}]`), 0o644))

	entries, err := loadWhitelist(path)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "pkg/a.go", entries[0].FilePath)
	assert.Equal(t, "abc", entries[0].IDText)
}

func TestLoadWhitelistRejectsMalformedJSON(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "whitelist.json")
	require.NoError(t, os.WriteFile(path, []byte(`not json`), 0o644))

	_, err := loadWhitelist(path)
	assert.Error(t, err)
}
