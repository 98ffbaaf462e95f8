package docmodel

import "strings"

// Content is the attribute bag the parser supplies for a source-backed
// symbol. One shared shape serves every kind; the kinds differ only in
// which fields are meaningful.
type Content struct {
	Type          string // "ClassDef" or "FunctionDef"
	Name          string
	CodeStartLine int
	CodeEndLine   int
	NameColumn    int
	HaveReturn    bool
	CodeContent   string
	Params        []string

	// ParentName is the record's own declared parent (e.g. a Go
	// method's receiver type name), carried through from Record so it
	// survives a snapshot round-trip: BuildTree needs it again on
	// reload to re-attach ClassMethod nodes under their receiver,
	// since line-range containment alone can never find them (see
	// nestSymbolItems).
	ParentName string
}

// DocItem is one node of the repository tree.
type DocItem struct {
	Kind   Kind
	Status Status
	Name   string

	CodeStartLine int
	CodeEndLine   int

	MDContent []string
	Content   Content

	Children   map[string]*DocItem
	childOrder []string
	Parent     *DocItem

	Depth    int
	TreePath []*DocItem

	ReferencesFrom        []*DocItem
	ReferencesTo          []*DocItem
	SpecialReferenceFlags []bool

	HasTask bool
	TaskID  int
}

func newDocItem(name string, kind Kind) *DocItem {
	return &DocItem{
		Name:          name,
		Kind:          kind,
		Status:        StatusNotGenerated,
		CodeStartLine: -1,
		CodeEndLine:   -1,
		Children:      make(map[string]*DocItem),
		TaskID:        -1,
	}
}

// AddChild inserts c as a child of d, preserving arrival order for
// deterministic traversal and deterministic sibling-collision naming.
func (d *DocItem) AddChild(c *DocItem) {
	c.Parent = d
	d.Children[c.Name] = c
	d.childOrder = append(d.childOrder, c.Name)
}

// OrderedChildren returns children in insertion order.
func (d *DocItem) OrderedChildren() []*DocItem {
	out := make([]*DocItem, 0, len(d.childOrder))
	for _, name := range d.childOrder {
		if c, ok := d.Children[name]; ok {
			out = append(out, c)
		}
	}
	return out
}

// GetFullName renders the "/"-joined qualified name from (but
// excluding) the repository root. When strict is true, a name that
// still collides with a sibling's name (which should not happen after
// build-time _0/_1 suffixing, but is checked defensively since the
// invariant is part of the public contract) is decorated with
// "(name_duplicate_version)".
func (d *DocItem) GetFullName(strict bool) string {
	var segments []string
	cur := d
	for cur != nil && cur.Parent != nil {
		name := cur.Name
		if strict && cur.hasSiblingNameCollision() {
			name += "(name_duplicate_version)"
		}
		segments = append([]string{name}, segments...)
		cur = cur.Parent
	}
	return strings.Join(segments, "/")
}

func (d *DocItem) hasSiblingNameCollision() bool {
	if d.Parent == nil {
		return false
	}
	count := 0
	for _, sibling := range d.Parent.Children {
		if sibling.Name == d.Name {
			count++
		}
	}
	return count > 1
}

// GetFileName returns the qualified name truncated at the first file
// extension boundary and re-suffixed with that extension.
func (d *DocItem) GetFileName(ext string) string {
	full := d.GetFullName(false)
	idx := strings.Index(full, ext)
	if idx < 0 {
		return full
	}
	return full[:idx] + ext
}

// GetPreorderTraversal returns d and all descendants, parent before
// children, children in arrival order.
func (d *DocItem) GetPreorderTraversal() []*DocItem {
	out := []*DocItem{d}
	for _, c := range d.OrderedChildren() {
		out = append(out, c.GetPreorderTraversal()...)
	}
	return out
}

// CalculateDepth computes Depth for d and its whole subtree: 0 for a
// leaf, else one more than the maximum child depth.
func (d *DocItem) CalculateDepth() int {
	if len(d.Children) == 0 {
		d.Depth = 0
		return 0
	}
	max := 0
	for _, c := range d.OrderedChildren() {
		cd := c.CalculateDepth()
		if cd > max {
			max = cd
		}
	}
	d.Depth = max + 1
	return d.Depth
}

// ParseTreePath materializes TreePath for d and its whole subtree via
// DFS path accumulation from the given ancestor prefix.
func (d *DocItem) ParseTreePath(prefix []*DocItem) {
	d.TreePath = append(append([]*DocItem{}, prefix...), d)
	for _, c := range d.OrderedChildren() {
		c.ParseTreePath(d.TreePath)
	}
}

// CheckAndReturnAncestor reports whether u is an ancestor of v (or v
// is an ancestor of u), returning the ancestor if so. A reference edge
// must never run along a containment path; callers drop such hits.
func CheckAndReturnAncestor(u, v *DocItem) *DocItem {
	for _, n := range u.TreePath {
		if n == v {
			return v
		}
	}
	for _, n := range v.TreePath {
		if n == u {
			return u
		}
	}
	return nil
}

// Find resolves a qualified path of child-name segments from the root.
func (root *DocItem) Find(segments []string) *DocItem {
	cur := root
	for _, seg := range segments {
		next, ok := cur.Children[seg]
		if !ok {
			return nil
		}
		cur = next
	}
	return cur
}

// CheckHasTask recursively propagates HasTask: a node has a task if it
// does itself or any descendant does.
func (d *DocItem) CheckHasTask() bool {
	if d.HasTask {
		return true
	}
	for _, c := range d.OrderedChildren() {
		if c.CheckHasTask() {
			d.HasTask = true
			return true
		}
	}
	return false
}

// NeedToGenerate reports whether item requires (re)generation: its
// status is not UpToDate, it is not a container kind, and its
// enclosing file's qualified name does not start with any ignored
// prefix.
func NeedToGenerate(item *DocItem, ignoreList []string) bool {
	if item.Kind == KindFile || item.Kind == KindDir || item.Kind == KindRepo {
		return false
	}
	if item.Status == StatusUpToDate {
		return false
	}
	file := item.enclosingFile()
	if file == nil {
		return true
	}
	fileName := file.GetFullName(false)
	for _, prefix := range ignoreList {
		if strings.HasPrefix(fileName, prefix) {
			return false
		}
	}
	return true
}

func (d *DocItem) enclosingFile() *DocItem {
	cur := d
	for cur != nil {
		if cur.Kind == KindFile {
			return cur
		}
		cur = cur.Parent
	}
	return nil
}
