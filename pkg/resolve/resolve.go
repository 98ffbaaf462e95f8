// Package resolve walks the symbol tree, asks a cross-reference
// resolver where each symbol is used, and builds the bidirectional
// reference edges between DocItems.
package resolve

import (
	"sort"

	"github.com/ternarybob/docweave/pkg/docmodel"
)

// Hit is one resolved reference site, matching the resolver contract's
// (file, line, col) return shape.
type Hit struct {
	FilePath string
	Line     int
	Column   int
}

// Resolver is the external collaborator contract: references to a
// named symbol declared at (file, line, col).
type Resolver interface {
	References(repoRoot, symbolName, filePath string, line, col int, inFileOnly bool) ([]Hit, error)
}

// Adapter walks the symbol tree, calls a Resolver per symbol, and
// builds the bidirectional reference graph, dropping hits that cannot
// form a valid edge.
type Adapter struct {
	Resolver Resolver
	RepoRoot string
}

func New(r Resolver, repoRoot string) *Adapter {
	return &Adapter{Resolver: r, RepoRoot: repoRoot}
}

// Resolve populates reference edges on root's subtree. reflectionMap
// values and jumpFiles are excluded as referrer sources since they
// would resolve to the wrong (phantom or untracked) version.
func (a *Adapter) Resolve(root *docmodel.DocItem, reflectionMap map[string]string, jumpFiles []string, whitelist []docmodel.WhitelistEntry) error {
	excluded := make(map[string]bool)
	for _, v := range reflectionMap {
		excluded[v] = true
	}
	for _, f := range jumpFiles {
		excluded[f] = true
	}

	whitelisted := make(map[string]bool)
	for _, w := range whitelist {
		whitelisted[w.FilePath] = true
	}
	whitelistActive := len(whitelisted) > 0

	fileNodes := collectFileNodes(root, "")

	for _, fn := range fileNodes {
		// Files outside an active whitelist still walk, but their
		// symbols resolve with inFileOnly=true: cross-file search is
		// reserved for the whitelisted set.
		inFileOnly := whitelistActive && !whitelisted[fn.path]
		for _, sym := range fn.node.GetPreorderTraversal() {
			if sym == fn.node || isContainerKind(sym.Kind) {
				continue
			}
			hits, err := a.Resolver.References(a.RepoRoot, sym.Name, fn.path, sym.CodeStartLine, sym.Content.NameColumn, inFileOnly)
			if err != nil {
				// Parser/resolver error: logged by the caller, symbol
				// keeps its previous status, no edges added, run continues.
				continue
			}
			for _, hit := range hits {
				a.applyHit(root, fileNodes, sym, hit, excluded)
			}
		}
	}
	return nil
}

func (a *Adapter) applyHit(root *docmodel.DocItem, fileNodes []fileNode, referee *docmodel.DocItem, hit Hit, excluded map[string]bool) {
	if excluded[hit.FilePath] {
		return
	}

	var referrerFile *docmodel.DocItem
	for _, fn := range fileNodes {
		if fn.path == hit.FilePath {
			referrerFile = fn.node
			break
		}
	}
	if referrerFile == nil {
		return
	}

	referrer := tightestContaining(referrerFile, hit.Line)
	if referrer == nil {
		return
	}

	if referrer.Name == referee.Name {
		return
	}
	if docmodel.CheckAndReturnAncestor(referrer, referee) != nil {
		return
	}

	special := isReferenceKind(referrer.Kind) && referrer.CodeStartLine == hit.Line
	referrer.ReferencesFrom = append(referrer.ReferencesFrom, referee)
	referrer.SpecialReferenceFlags = append(referrer.SpecialReferenceFlags, special)
	referee.ReferencesTo = append(referee.ReferencesTo, referrer)
}

func isReferenceKind(k docmodel.Kind) bool {
	return k == docmodel.KindFunction || k == docmodel.KindSubFunction || k == docmodel.KindClassMethod
}

func isContainerKind(k docmodel.Kind) bool {
	return k == docmodel.KindFile || k == docmodel.KindDir || k == docmodel.KindRepo
}

// tightestContaining walks down from fileNode choosing, at each level,
// the child whose line range contains `line` and is narrowest.
func tightestContaining(fileNode *docmodel.DocItem, line int) *docmodel.DocItem {
	best := fileNode
	cur := fileNode
	for {
		var next *docmodel.DocItem
		for _, c := range cur.OrderedChildren() {
			if c.CodeStartLine <= line && line <= c.CodeEndLine {
				if next == nil || (c.CodeEndLine-c.CodeStartLine) < (next.CodeEndLine-next.CodeStartLine) {
					next = c
				}
			}
		}
		if next == nil {
			break
		}
		best = next
		cur = next
	}
	if best == fileNode {
		return fileNode
	}
	return best
}

type fileNode struct {
	path string
	node *docmodel.DocItem
}

func collectFileNodes(item *docmodel.DocItem, relPath string) []fileNode {
	var out []fileNode
	switch item.Kind {
	case docmodel.KindFile:
		path := relPath
		if path == "" {
			path = item.Name
		}
		out = append(out, fileNode{path: path, node: item})
	case docmodel.KindRepo, docmodel.KindDir:
		for _, c := range item.OrderedChildren() {
			childPath := c.Name
			if relPath != "" {
				childPath = relPath + "/" + c.Name
			}
			out = append(out, collectFileNodes(c, childPath)...)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].path < out[j].path })
	return out
}
