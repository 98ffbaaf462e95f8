package docmodel

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"
)

// Record is one entry of the parser contract's output:
// functions_and_classes(source_text) -> [(type, name, start_line,
// end_line, parent_name, params)].
type Record struct {
	Type          string // "ClassDef" | "FunctionDef" | "GlobalVar"
	Name          string
	StartLine     int
	EndLine       int
	NameColumn    int
	ParentName    string
	Params        []string
	HaveReturn    bool
	CodeContent   string
}

// BuildTree constructs the repository tree from a flat file-path ->
// symbol-records mapping. Directory and file nodes are synthesized
// from the path segments; symbol nodes are nested by strict line-range
// containment with the tightest enclosing record winning.
func BuildTree(repoRootPath string, files map[string][]Record) (*DocItem, error) {
	root := newDocItem("", KindRepo)

	paths := make([]string, 0, len(files))
	for p := range files {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	for _, path := range paths {
		fileNode := ensureFileNode(root, path)
		records := files[path]
		if err := rejectDuplicateRanges(path, records); err != nil {
			return nil, err
		}
		items := buildSymbolItems(records)
		nestSymbolItems(fileNode, items, records)
	}

	root.ParseTreePath(nil)
	root.CalculateDepth()
	return root, nil
}

func ensureFileNode(root *DocItem, path string) *DocItem {
	cleaned := filepath.ToSlash(path)
	segments := strings.Split(cleaned, "/")
	cur := root
	for i, seg := range segments {
		isLast := i == len(segments)-1
		kind := KindDir
		if isLast {
			kind = KindFile
		}
		name := deduplicatedChildName(cur, seg)
		if existing, ok := cur.Children[seg]; ok && !isLast {
			cur = existing
			continue
		}
		node := newDocItem(name, kind)
		cur.AddChild(node)
		cur = node
	}
	return cur
}

// deduplicatedChildName resolves name collisions among siblings by
// appending _0, _1, ... to later arrivals, in parser-emission (i.e.
// insertion) order.
func deduplicatedChildName(parent *DocItem, name string) string {
	if _, exists := parent.Children[name]; !exists {
		return name
	}
	for i := 0; ; i++ {
		candidate := fmt.Sprintf("%s_%d", name, i)
		if _, exists := parent.Children[candidate]; !exists {
			return candidate
		}
	}
}

func rejectDuplicateRanges(path string, records []Record) error {
	seen := make(map[[2]int]bool)
	for _, r := range records {
		key := [2]int{r.StartLine, r.EndLine}
		if seen[key] {
			return fmt.Errorf("docmodel: %s: two symbol records claim identical line range [%d,%d]; containment cannot resolve a parent", path, r.StartLine, r.EndLine)
		}
		seen[key] = true
	}
	return nil
}

func buildSymbolItems(records []Record) []*DocItem {
	items := make([]*DocItem, len(records))
	for i, r := range records {
		item := newDocItem(r.Name, KindClassMethod) // placeholder kind, rewritten below
		item.CodeStartLine = r.StartLine
		item.CodeEndLine = r.EndLine
		item.Content = Content{
			Type:          r.Type,
			Name:          r.Name,
			CodeStartLine: r.StartLine,
			CodeEndLine:   r.EndLine,
			NameColumn:    r.NameColumn,
			HaveReturn:    r.HaveReturn,
			CodeContent:   r.CodeContent,
			Params:        r.Params,
			ParentName:    r.ParentName,
		}
		items[i] = item
	}
	return items
}

// nestSymbolItems assigns each symbol item its parent, renames on
// sibling collision, then rewrites each item's Kind from its
// Content.Type and its resolved parent's Kind.
//
// Parent resolution prefers an explicit Record.ParentName match
// against a ClassDef record of that name (Go methods are declared at
// file scope with a receiver, not lexically nested inside their
// type's declaration, so containment alone can't attach them); it
// falls back to strict line-range containment (tightest enclosing
// range wins), and finally to the file node.
func nestSymbolItems(fileNode *DocItem, items []*DocItem, records []Record) {
	parent := func(i int) int {
		if records[i].ParentName != "" {
			for j := range records {
				if j != i && records[j].Type == "ClassDef" && records[j].Name == records[i].ParentName {
					return j
				}
			}
		}
		best := -1
		for j := range items {
			if i == j {
				continue
			}
			if strictlyContains(records[j], records[i]) {
				if best == -1 || rangeWidth(records[j]) < rangeWidth(records[best]) {
					best = j
				}
			}
		}
		return best
	}

	parentIdx := make([]int, len(items))
	for i := range items {
		parentIdx[i] = parent(i)
	}

	// Attach a parent symbol item before its children, but otherwise
	// preserve original emission order: among siblings with no
	// containment/ParentName relationship to each other, the
	// first-emitted record claims the bare name and later arrivals get
	// suffixed, regardless of line-range width. attach
	// walks the emission order 0..n and only recurses ahead of that
	// order when a record's own resolved parent hasn't been attached
	// yet (true structural nesting), never to reorder unrelated
	// siblings.
	attached := make([]*DocItem, len(items))
	var attach func(i int) *DocItem
	attach = func(i int) *DocItem {
		if attached[i] != nil {
			return attached[i]
		}
		var p *DocItem
		if parentIdx[i] == -1 {
			p = fileNode
		} else {
			p = attach(parentIdx[i])
		}
		name := deduplicatedChildName(p, items[i].Name)
		items[i].Name = name
		items[i].Content.Name = name
		p.AddChild(items[i])
		attached[i] = items[i]
		return items[i]
	}
	for i := range items {
		attach(i)
	}

	for i := range items {
		rewriteKind(items[i])
	}
}

func strictlyContains(outer, inner Record) bool {
	if outer.StartLine > inner.StartLine || outer.EndLine < inner.EndLine {
		return false
	}
	if outer.StartLine == inner.StartLine && outer.EndLine == inner.EndLine {
		return false
	}
	return true
}

func rangeWidth(r Record) int {
	return r.EndLine - r.StartLine
}

func rewriteKind(item *DocItem) {
	switch item.Content.Type {
	case "ClassDef":
		item.Kind = KindClass
	case "FunctionDef":
		switch item.Parent.Kind {
		case KindClass:
			item.Kind = KindClassMethod
		case KindFunction, KindSubFunction, KindClassMethod:
			item.Kind = KindSubFunction
		default:
			item.Kind = KindFunction
		}
	default:
		item.Kind = KindGlobalVar
	}
}
