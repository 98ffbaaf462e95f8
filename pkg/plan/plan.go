// Package plan derives a dependency-ordered task set from the symbol
// tree: one task per symbol needing regeneration, with dependencies on
// the already-scheduled tasks of its children and referenced symbols,
// breaking reference cycles deterministically.
package plan

import (
	"sort"

	"github.com/ternarybob/docweave/pkg/docmodel"
	"github.com/ternarybob/docweave/pkg/exec"
)

// candidate pairs a symbol with its planner bookkeeping.
type candidate struct {
	item  *docmodel.DocItem
	dealt bool
}

// Plan produces a TaskManager whose tasks are one per eligible symbol,
// and logs cycle-break decisions via onCycleBreak (nil is accepted).
func Plan(root *docmodel.DocItem, ignoreList []string, whitelist map[string]bool, onCycleBreak func(qualifiedName string)) *exec.TaskManager {
	candidates := collectCandidates(root, ignoreList, whitelist)

	tm := exec.NewTaskManager()
	taskIDOf := make(map[*docmodel.DocItem]int)
	remaining := make(map[*docmodel.DocItem]*candidate)
	for _, c := range candidates {
		remaining[c.item] = c
	}

	for len(remaining) > 0 {
		next := pickNext(remaining)
		if next == nil {
			break
		}

		deps := dependencyIDs(next.item, taskIDOf)
		// A positive minimum means the pick still has unscheduled
		// call-site references: those become soft (not enforced), and
		// the break is logged regardless of how many dependencies the
		// task does carry — in a pure two-symbol cycle the first pick
		// carries none at all.
		if outstandingNonSpecialRefs(next.item, remaining) > 0 {
			if onCycleBreak != nil {
				onCycleBreak(next.item.GetFullName(true))
			}
		}

		id := tm.AddTask(deps, next.item)
		taskIDOf[next.item] = id
		next.item.HasTask = true
		next.item.TaskID = id
		delete(remaining, next.item)
	}

	return tm
}

func collectCandidates(root *docmodel.DocItem, ignoreList []string, whitelist map[string]bool) []*candidate {
	var out []*candidate
	for _, item := range root.GetPreorderTraversal() {
		if !docmodel.NeedToGenerate(item, ignoreList) {
			continue
		}
		if len(whitelist) > 0 {
			file := enclosingFileName(item)
			if !whitelist[file] {
				continue
			}
		}
		out = append(out, &candidate{item: item})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].item.Depth < out[j].item.Depth })
	return out
}

func enclosingFileName(item *docmodel.DocItem) string {
	cur := item
	for cur != nil {
		if cur.Kind == docmodel.KindFile {
			return cur.GetFullName(false)
		}
		cur = cur.Parent
	}
	return ""
}

// dependencyIDs returns the task ids of item's eligible children and
// referenced symbols that have already been scheduled as tasks. Plan
// assigns a task id to a candidate in the same step that removes it
// from the remaining set, so a taskIDOf entry is exactly "already
// scheduled".
func dependencyIDs(item *docmodel.DocItem, taskIDOf map[*docmodel.DocItem]int) []int {
	var ids []int
	for _, c := range item.OrderedChildren() {
		if id, scheduled := taskIDOf[c]; scheduled {
			ids = append(ids, id)
		}
	}
	for _, r := range item.ReferencesFrom {
		if id, scheduled := taskIDOf[r]; scheduled {
			ids = append(ids, id)
		}
	}
	return ids
}

// outstandingNonSpecialRefs counts remaining (not-yet-scheduled)
// call-site (non-special) reference dependencies of item.
func outstandingNonSpecialRefs(item *docmodel.DocItem, remaining map[*docmodel.DocItem]*candidate) int {
	count := 0
	for i, r := range item.ReferencesFrom {
		special := i < len(item.SpecialReferenceFlags) && item.SpecialReferenceFlags[i]
		if special {
			continue
		}
		if _, outstanding := remaining[r]; outstanding {
			count++
		}
	}
	return count
}

func outstandingChildrenAndRefs(item *docmodel.DocItem, remaining map[*docmodel.DocItem]*candidate) int {
	count := 0
	for _, c := range item.OrderedChildren() {
		if _, outstanding := remaining[c]; outstanding {
			count++
		}
	}
	for _, r := range item.ReferencesFrom {
		if _, outstanding := remaining[r]; outstanding {
			count++
		}
	}
	return count
}

// pickNext implements the cycle-breaking rule: choose the remaining
// candidate minimizing outstanding non-special reference dependencies;
// among ties at the minimum, prefer one with zero outstanding
// children+references overall.
func pickNext(remaining map[*docmodel.DocItem]*candidate) *candidate {
	var ordered []*candidate
	for _, c := range remaining {
		ordered = append(ordered, c)
	}
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].item.GetFullName(true) < ordered[j].item.GetFullName(true)
	})

	best := -1
	bestScore := -1
	for i, c := range ordered {
		score := outstandingNonSpecialRefs(c.item, remaining)
		if best == -1 || score < bestScore {
			best = i
			bestScore = score
		}
		if score == 0 && outstandingChildrenAndRefs(c.item, remaining) == 0 {
			return c
		}
	}
	if best == -1 {
		return nil
	}
	return ordered[best]
}
