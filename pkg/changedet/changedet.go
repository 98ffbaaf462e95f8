// Package changedet compares the previous snapshot against a freshly
// built tree, transfers prior documentation in by qualified-name
// match, and assigns the five-way status used to decide what needs
// regeneration.
package changedet

import (
	"regexp"
	"strconv"

	"github.com/ternarybob/docweave/pkg/docmodel"
)

var hunkHeader = regexp.MustCompile(`^@@ -(\d+),?\d* \+(\d+),?\d* @@`)

// ChangedLines is the parsed unified diff: line numbers and content
// for additions and removals, keyed by the post-/pre-image line
// number respectively.
type ChangedLines struct {
	Added   []LineChange
	Removed []LineChange
}

type LineChange struct {
	Line    int
	Content string
}

// ParseDiff parses a unified diff's hunk headers and +/- lines into
// per-line-number change records.
func ParseDiff(diffLines []string) ChangedLines {
	var out ChangedLines
	lineCurrent, lineChange := 0, 0

	for _, line := range diffLines {
		if m := hunkHeader.FindStringSubmatch(line); m != nil {
			lineCurrent, _ = strconv.Atoi(m[1])
			lineChange, _ = strconv.Atoi(m[2])
			continue
		}
		switch {
		case len(line) > 0 && line[0] == '+' && !hasPrefix(line, "+++"):
			out.Added = append(out.Added, LineChange{Line: lineChange, Content: line[1:]})
			lineChange++
		case len(line) > 0 && line[0] == '-' && !hasPrefix(line, "---"):
			out.Removed = append(out.Removed, LineChange{Line: lineCurrent, Content: line[1:]})
			lineCurrent++
		default:
			lineCurrent++
			lineChange++
		}
	}
	return out
}

func hasPrefix(s, prefix string) bool {
	return len(s) >= len(prefix) && s[:len(prefix)] == prefix
}

// Detect rewrites newTree's statuses in place by matching against
// oldMeta (may be nil for a first run), transfers md_content by
// qualified-name match, and returns entries for symbols present in
// oldMeta but absent from newTree.
func Detect(oldMeta *docmodel.MetaInfo, newTree *docmodel.DocItem) []docmodel.DeletedItem {
	oldByName := make(map[string]*docmodel.DocItem)
	if oldMeta != nil && oldMeta.Tree != nil {
		for _, item := range oldMeta.Tree.GetPreorderTraversal() {
			if isSymbol(item) {
				oldByName[item.GetFullName(true)] = item
			}
		}
	}

	seen := make(map[string]bool)
	for _, item := range newTree.GetPreorderTraversal() {
		if !isSymbol(item) {
			continue
		}
		qname := item.GetFullName(true)
		seen[qname] = true
		old, matched := oldByName[qname]
		item.Status = assignStatus(item, old, matched)
		if matched {
			item.MDContent = old.MDContent
		}
	}

	var deleted []docmodel.DeletedItem
	for qname, old := range oldByName {
		if !seen[qname] {
			deleted = append(deleted, docmodel.DeletedItem{QualifiedName: qname, Kind: old.Kind})
		}
	}
	return deleted
}

func isSymbol(item *docmodel.DocItem) bool {
	switch item.Kind {
	case docmodel.KindRepo, docmodel.KindDir, docmodel.KindFile:
		return false
	default:
		return true
	}
}

// assignStatus implements the five-way precedence: no match, no prior
// docs, code changed, new referencer, lost referencer, else up to
// date.
func assignStatus(item *docmodel.DocItem, old *docmodel.DocItem, matched bool) docmodel.Status {
	if !matched {
		return docmodel.StatusNotGenerated
	}
	if len(old.MDContent) == 0 {
		return docmodel.StatusNotGenerated
	}
	if item.Content.CodeContent != old.Content.CodeContent {
		return docmodel.StatusCodeChanged
	}

	oldRefs := referrerSet(old)
	newRefs := referrerSet(item)

	if isSuperset(newRefs, oldRefs) && len(newRefs) > len(oldRefs) {
		return docmodel.StatusHasNewReferencer
	}
	if isSuperset(oldRefs, newRefs) && len(newRefs) < len(oldRefs) {
		return docmodel.StatusHasNoReferencer
	}
	return docmodel.StatusUpToDate
}

func referrerSet(item *docmodel.DocItem) map[string]bool {
	set := make(map[string]bool, len(item.ReferencesTo))
	for _, r := range item.ReferencesTo {
		set[r.GetFullName(true)] = true
	}
	return set
}

func isSuperset(a, b map[string]bool) bool {
	for k := range b {
		if !a[k] {
			return false
		}
	}
	return true
}

// Structure is one named line range of a source file, with the name of
// its parent structure.
type Structure struct {
	Name       string
	ParentName string
	StartLine  int
	EndLine    int
}

// IdentifyChangesInStructure maps each changed line to the (name,
// parent) structures whose line ranges contain it.
func IdentifyChangesInStructure(changed ChangedLines, structures []Structure) (added, removed map[[2]string]bool) {
	added = make(map[[2]string]bool)
	removed = make(map[[2]string]bool)
	mark := func(lines []LineChange, set map[[2]string]bool) {
		for _, lc := range lines {
			for _, s := range structures {
				if lc.Line >= s.StartLine && lc.Line <= s.EndLine {
					set[[2]string{s.Name, s.ParentName}] = true
				}
			}
		}
	}
	mark(changed.Added, added)
	mark(changed.Removed, removed)
	return added, removed
}
