package plan

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ternarybob/docweave/pkg/docmodel"
	"github.com/ternarybob/docweave/pkg/resolve"
)

type fakeResolver struct {
	hits map[string][]resolve.Hit
}

func (f *fakeResolver) References(repoRoot, symbolName, filePath string, line, col int, inFileOnly bool) ([]resolve.Hit, error) {
	return f.hits[symbolName], nil
}

// TestPlanWiresReferenceDependency: g (depth-equal sibling of f)
// references f, so g's task must declare a dependency on f's task id.
// If dependencyIDs ever regresses to a no-op, every task gets zero
// dependencies and this assertion fails.
func TestPlanWiresReferenceDependency(t *testing.T) {
	tree, err := docmodel.BuildTree("/repo", map[string][]docmodel.Record{
		"a.go": {
			{Type: "FunctionDef", Name: "f", StartLine: 1, EndLine: 3},
			{Type: "FunctionDef", Name: "g", StartLine: 5, EndLine: 8},
		},
	})
	require.NoError(t, err)

	resolver := &fakeResolver{hits: map[string][]resolve.Hit{
		"f": {{FilePath: "a.go", Line: 6, Column: 3}},
	}}
	adapter := resolve.New(resolver, "/repo")
	require.NoError(t, adapter.Resolve(tree, nil, nil, nil))

	f := tree.Find([]string{"a.go", "f"})
	g := tree.Find([]string{"a.go", "g"})
	f.Status = docmodel.StatusNotGenerated
	g.Status = docmodel.StatusNotGenerated

	tm := Plan(tree, nil, nil, nil)

	fTaskID := f.TaskID
	gTaskID := g.TaskID
	require.NotEqual(t, -1, fTaskID, "f should have been scheduled")
	require.NotEqual(t, -1, gTaskID, "g should have been scheduled")

	gTask := tm.TaskByID(gTaskID)
	require.NotNil(t, gTask)
	assert.Contains(t, gTask.Dependencies, fTaskID, "g's task must depend on f's task since g references f")
}

// TestPlanBreaksMutualReferenceCycle: two functions calling each other
// at call sites (no special flags). Exactly one of the two must be
// picked with its reference still outstanding — reported as a broken
// cycle — and the second then depends on the first normally.
func TestPlanBreaksMutualReferenceCycle(t *testing.T) {
	tree, err := docmodel.BuildTree("/repo", map[string][]docmodel.Record{
		"a.go": {
			{Type: "FunctionDef", Name: "p", StartLine: 1, EndLine: 4},
			{Type: "FunctionDef", Name: "q", StartLine: 6, EndLine: 9},
		},
	})
	require.NoError(t, err)

	p := tree.Find([]string{"a.go", "p"})
	q := tree.Find([]string{"a.go", "q"})
	p.ReferencesFrom = append(p.ReferencesFrom, q)
	p.SpecialReferenceFlags = append(p.SpecialReferenceFlags, false)
	q.ReferencesTo = append(q.ReferencesTo, p)
	q.ReferencesFrom = append(q.ReferencesFrom, p)
	q.SpecialReferenceFlags = append(q.SpecialReferenceFlags, false)
	p.ReferencesTo = append(p.ReferencesTo, q)
	p.Status = docmodel.StatusNotGenerated
	q.Status = docmodel.StatusNotGenerated

	var broken []string
	tm := Plan(tree, nil, nil, func(qualifiedName string) { broken = append(broken, qualifiedName) })

	require.NotEqual(t, -1, p.TaskID)
	require.NotEqual(t, -1, q.TaskID)
	require.Len(t, broken, 1, "exactly one cycle break must be reported for a two-symbol cycle")

	first := tm.TaskByID(p.TaskID)
	second := tm.TaskByID(q.TaskID)
	require.NotNil(t, first)
	require.NotNil(t, second)
	assert.Empty(t, first.Dependencies, "the cycle-break pick carries no dependency on its unscheduled reference")
	assert.Contains(t, second.Dependencies, p.TaskID, "the second symbol depends on the first normally")
}

// TestPlanWiresContainmentDependency covers the containment half of
// the dependency rule: a class's task must depend on its own method's
// task, since the method is an eligible child of the class.
func TestPlanWiresContainmentDependency(t *testing.T) {
	tree, err := docmodel.BuildTree("/repo", map[string][]docmodel.Record{
		"a.go": {
			{Type: "ClassDef", Name: "C", StartLine: 1, EndLine: 10},
			{Type: "FunctionDef", Name: "m", StartLine: 2, EndLine: 4},
		},
	})
	require.NoError(t, err)

	c := tree.Find([]string{"a.go", "C"})
	m := tree.Find([]string{"a.go", "C", "m"})
	c.Status = docmodel.StatusNotGenerated
	m.Status = docmodel.StatusNotGenerated

	tm := Plan(tree, nil, nil, nil)

	cTask := tm.TaskByID(c.TaskID)
	require.NotNil(t, cTask)
	assert.Contains(t, cTask.Dependencies, m.TaskID, "C's task must depend on its method m's task")
}
