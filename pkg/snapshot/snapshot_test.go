package snapshot

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ternarybob/docweave/pkg/docmodel"
)

func TestCheckpointAndLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()

	meta, err := docmodel.NewMetaInfo("/repo", map[string][]docmodel.Record{
		"a.go": {
			{Type: "FunctionDef", Name: "f", StartLine: 1, EndLine: 3, CodeContent: "func f() {}"},
		},
	})
	require.NoError(t, err)
	meta.DocumentVersion = "deadbeef"

	f := meta.Tree.Find([]string{"a.go", "f"})
	require.NotNil(t, f)
	f.Status = docmodel.StatusUpToDate
	f.MDContent = []string{"f does a thing."}

	require.NoError(t, Checkpoint(meta, dir, false), "checkpoint should succeed")

	reloaded, err := Load(dir)
	require.NoError(t, err, "load should succeed against a just-written snapshot")

	assert.Equal(t, "deadbeef", reloaded.DocumentVersion)
	rf := reloaded.Tree.Find([]string{"a.go", "f"})
	require.NotNil(t, rf)
	assert.Equal(t, docmodel.StatusUpToDate, rf.Status)
	assert.Equal(t, []string{"f does a thing."}, rf.MDContent)
}

// TestCheckpointAndLoadRoundTripPreservesClassMethodNesting pins the
// ParentName round-trip: a Go method is only ever attached under its
// receiver via Record.ParentName (line-range containment can't find
// it, since Go methods aren't lexically nested in their receiver's
// declaration), so ParentName must survive Checkpoint/Load or a
// reload silently flattens every method to a KindFunction sibling of
// its class instead of a KindClassMethod child.
func TestCheckpointAndLoadRoundTripPreservesClassMethodNesting(t *testing.T) {
	dir := t.TempDir()

	meta, err := docmodel.NewMetaInfo("/repo", map[string][]docmodel.Record{
		"a.go": {
			{Type: "ClassDef", Name: "Server", StartLine: 1, EndLine: 1},
			{Type: "FunctionDef", Name: "Start", StartLine: 10, EndLine: 15, ParentName: "Server"},
		},
	})
	require.NoError(t, err)

	method := meta.Tree.Find([]string{"a.go", "Server", "Start"})
	require.NotNil(t, method, "method should nest under its receiver before any round-trip")
	assert.Equal(t, docmodel.KindClassMethod, method.Kind)

	require.NoError(t, Checkpoint(meta, dir, false))

	reloaded, err := Load(dir)
	require.NoError(t, err)

	rmethod := reloaded.Tree.Find([]string{"a.go", "Server", "Start"})
	require.NotNil(t, rmethod, "method must still nest under its receiver after a reload")
	assert.Equal(t, docmodel.KindClassMethod, rmethod.Kind, "ParentName must survive the round-trip so BuildTree can re-attach the method")
}

// TestCheckpointWithReferencesRoundTripsEdges pins the flash-references
// round-trip: a snapshot written with reference edges must come back
// with the same bidirectional edges and special flags, or the next
// run's change detector compares against empty referrer sets and marks
// every referenced, unchanged symbol HasNewReferencer.
func TestCheckpointWithReferencesRoundTripsEdges(t *testing.T) {
	dir := t.TempDir()

	meta, err := docmodel.NewMetaInfo("/repo", map[string][]docmodel.Record{
		"a.go": {
			{Type: "FunctionDef", Name: "f", StartLine: 1, EndLine: 3},
			{Type: "FunctionDef", Name: "g", StartLine: 5, EndLine: 8},
		},
	})
	require.NoError(t, err)

	f := meta.Tree.Find([]string{"a.go", "f"})
	g := meta.Tree.Find([]string{"a.go", "g"})
	g.ReferencesFrom = append(g.ReferencesFrom, f)
	g.SpecialReferenceFlags = append(g.SpecialReferenceFlags, true)
	f.ReferencesTo = append(f.ReferencesTo, g)

	require.NoError(t, Checkpoint(meta, dir, true))

	reloaded, err := Load(dir)
	require.NoError(t, err)

	rf := reloaded.Tree.Find([]string{"a.go", "f"})
	rg := reloaded.Tree.Find([]string{"a.go", "g"})
	require.Len(t, rg.ReferencesFrom, 1, "g's outgoing edge must survive the round-trip")
	assert.Equal(t, rf, rg.ReferencesFrom[0])
	require.Len(t, rg.SpecialReferenceFlags, 1)
	assert.True(t, rg.SpecialReferenceFlags[0], "the special flag must round-trip alongside its edge")
	require.Len(t, rf.ReferencesTo, 1, "f's incoming edge must be rebuilt from g's outgoing record")
	assert.Equal(t, rg, rf.ReferencesTo[0])
}

func TestLoadFailsLoudlyWhenMissing(t *testing.T) {
	dir := t.TempDir()
	_, err := Load(dir)
	assert.Error(t, err, "load must fail rather than silently re-initialize")
}

func TestCheckpointIsAtomic(t *testing.T) {
	dir := t.TempDir()
	meta, err := docmodel.NewMetaInfo("/repo", map[string][]docmodel.Record{})
	require.NoError(t, err)

	require.NoError(t, Checkpoint(meta, dir, false))

	dirEntries, err := os.ReadDir(dir)
	require.NoError(t, err)
	var names []string
	for _, e := range dirEntries {
		names = append(names, e.Name())
	}
	assert.Contains(t, names, fileName)
	for _, n := range names {
		assert.NotContains(t, n, ".tmp", "no leftover temp file after a successful checkpoint")
	}
}
