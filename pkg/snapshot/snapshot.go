// Package snapshot serializes and deserializes a docmodel.MetaInfo to
// and from the on-disk project hierarchy file. Writes go to a sibling
// temp file renamed over the destination, so a crashed run can never
// leave a half-written snapshot behind.
package snapshot

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/ternarybob/docweave/pkg/docmodel"
)

const fileName = "project_hierarchy.json"

// record is the on-disk shape of one symbol.
type record struct {
	Name          string   `json:"name"`
	Type          string   `json:"type"`
	CodeStartLine int      `json:"code_start_line"`
	CodeEndLine   int      `json:"code_end_line"`
	NameColumn    int      `json:"name_column"`
	ParentName    string   `json:"parent_name,omitempty"`
	Params        []string `json:"params"`
	HaveReturn    bool     `json:"have_return"`
	CodeContent   string   `json:"code_content"`
	MDContent     []string `json:"md_content"`
	ItemStatus    string   `json:"item_status"`

	ReferenceWho         []string `json:"reference_who,omitempty"`
	WhoReferenceMe       []string `json:"who_reference_me,omitempty"`
	SpecialReferenceType []bool   `json:"special_reference_type,omitempty"`
}

// document is the top-level on-disk shape: the run's metadata under
// "__meta__" and, under "files", a mapping from repository-relative
// file path to its ordered symbol records. The file-path mapping is
// not the top level of the file itself.
type document struct {
	Meta  metaFields           `json:"__meta__"`
	Files map[string][]record `json:"files"`
}

type metaFields struct {
	RepoRootPath              string                    `json:"repo_root_path"`
	DocumentVersion           string                    `json:"document_version"`
	Whitelist                 []docmodel.WhitelistEntry `json:"whitelist,omitempty"`
	FakeFileReflection        map[string]string         `json:"fake_file_reflection,omitempty"`
	JumpFiles                 []string                  `json:"jump_files,omitempty"`
	DeletedItemsFromOlderMeta []docmodel.DeletedItem    `json:"deleted_items_from_older_meta,omitempty"`
	InGenerationProcess       bool                      `json:"in_generation_process"`
}

// Checkpoint atomically writes meta to <targetDir>/project_hierarchy.json.
// When flashReferences is true, each record additionally carries its
// reference edges and special-reference flags.
func Checkpoint(meta *docmodel.MetaInfo, targetDir string, flashReferences bool) error {
	if err := os.MkdirAll(targetDir, 0o755); err != nil {
		return fmt.Errorf("snapshot: create target dir: %w", err)
	}

	doc := document{
		Meta: metaFields{
			RepoRootPath:              meta.RepoRootPath,
			DocumentVersion:           meta.DocumentVersion,
			Whitelist:                 meta.Whitelist,
			FakeFileReflection:        meta.FakeFileReflection,
			JumpFiles:                 meta.JumpFiles,
			DeletedItemsFromOlderMeta: meta.DeletedItemsFromOlderMeta,
			InGenerationProcess:       meta.InGenerationProcess,
		},
		Files: make(map[string][]record),
	}

	collectFiles(meta.Tree, "", doc.Files, flashReferences)

	payload, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("snapshot: marshal: %w", err)
	}

	dest := filepath.Join(targetDir, fileName)
	tmp, err := os.CreateTemp(targetDir, ".project_hierarchy-*.tmp")
	if err != nil {
		return fmt.Errorf("snapshot: create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if _, err := tmp.Write(payload); err != nil {
		tmp.Close()
		return fmt.Errorf("snapshot: write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("snapshot: close temp file: %w", err)
	}
	if err := os.Rename(tmpPath, dest); err != nil {
		return fmt.Errorf("snapshot: rename into place: %w", err)
	}
	return nil
}

func collectFiles(item *docmodel.DocItem, relPath string, out map[string][]record, flashReferences bool) {
	switch item.Kind {
	case docmodel.KindFile:
		path := relPath
		if path == "" {
			path = item.Name
		}
		out[path] = recordsForFile(item, flashReferences)
		return
	case docmodel.KindRepo, docmodel.KindDir:
		for _, c := range item.OrderedChildren() {
			childPath := c.Name
			if relPath != "" {
				childPath = relPath + "/" + c.Name
			}
			collectFiles(c, childPath, out, flashReferences)
		}
	}
}

func recordsForFile(fileNode *docmodel.DocItem, flashReferences bool) []record {
	var out []record
	var walk func(n *docmodel.DocItem)
	walk = func(n *docmodel.DocItem) {
		for _, c := range n.OrderedChildren() {
			out = append(out, toRecord(c, flashReferences))
			walk(c)
		}
	}
	walk(fileNode)
	return out
}

func toRecord(item *docmodel.DocItem, flashReferences bool) record {
	r := record{
		Name:          item.Name,
		Type:          item.Content.Type,
		CodeStartLine: item.CodeStartLine,
		CodeEndLine:   item.CodeEndLine,
		NameColumn:    item.Content.NameColumn,
		ParentName:    item.Content.ParentName,
		Params:        item.Content.Params,
		HaveReturn:    item.Content.HaveReturn,
		CodeContent:   item.Content.CodeContent,
		MDContent:     item.MDContent,
		ItemStatus:    item.Status.String(),
	}
	if flashReferences {
		for _, ref := range item.ReferencesTo {
			r.WhoReferenceMe = append(r.WhoReferenceMe, ref.GetFullName(true))
		}
		for i, ref := range item.ReferencesFrom {
			r.ReferenceWho = append(r.ReferenceWho, ref.GetFullName(true))
			special := i < len(item.SpecialReferenceFlags) && item.SpecialReferenceFlags[i]
			r.SpecialReferenceType = append(r.SpecialReferenceType, special)
		}
	}
	return r
}

// Load reads and validates the snapshot at <targetDir>/project_hierarchy.json.
// It fails loudly rather than silently re-initializing a missing or
// malformed snapshot.
func Load(targetDir string) (*docmodel.MetaInfo, error) {
	path := filepath.Join(targetDir, fileName)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("snapshot: read %s: %w", path, err)
	}

	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("snapshot: parse %s: %w", path, err)
	}

	files := make(map[string][]docmodel.Record, len(doc.Files))
	byKey := make(map[string]record)
	for path, recs := range doc.Files {
		converted := make([]docmodel.Record, len(recs))
		for i, r := range recs {
			converted[i] = docmodel.Record{
				Type:        r.Type,
				Name:        r.Name,
				StartLine:   r.CodeStartLine,
				EndLine:     r.CodeEndLine,
				NameColumn:  r.NameColumn,
				ParentName:  r.ParentName,
				Params:      r.Params,
				HaveReturn:  r.HaveReturn,
				CodeContent: r.CodeContent,
			}
			byKey[path+"::"+qualifiedKey(recs, i)] = r
		}
		files[path] = converted
	}

	tree, err := docmodel.BuildTree(doc.Meta.RepoRootPath, files)
	if err != nil {
		return nil, fmt.Errorf("snapshot: rebuild tree: %w", err)
	}

	meta := &docmodel.MetaInfo{
		RepoRootPath:              doc.Meta.RepoRootPath,
		DocumentVersion:           doc.Meta.DocumentVersion,
		Tree:                      tree,
		Whitelist:                 doc.Meta.Whitelist,
		FakeFileReflection:        doc.Meta.FakeFileReflection,
		JumpFiles:                 doc.Meta.JumpFiles,
		DeletedItemsFromOlderMeta: doc.Meta.DeletedItemsFromOlderMeta,
		InGenerationProcess:       doc.Meta.InGenerationProcess,
	}
	if meta.FakeFileReflection == nil {
		meta.FakeFileReflection = make(map[string]string)
	}

	nodes := collectRecordNodes(meta.Tree)
	for _, kn := range nodes {
		r, ok := byKey[kn.key]
		if !ok {
			continue
		}
		kn.node.Status = statusFromString(r.ItemStatus)
		kn.node.MDContent = r.MDContent
	}
	restoreReferences(nodes, byKey)
	return meta, nil
}

// qualifiedKey produces a stable per-record key within one file's
// record slice, used only to stitch status/md_content back onto the
// rebuilt tree after a reload (names may collide; order is preserved
// from the on-disk array so indices stay meaningful).
func qualifiedKey(recs []record, idx int) string {
	return fmt.Sprintf("%d:%s", idx, recs[idx].Name)
}

type keyedNode struct {
	key  string
	node *docmodel.DocItem
}

// collectRecordNodes pairs each symbol node of the rebuilt tree with
// the on-disk key toRecord wrote it under. BuildTree re-attaches
// records with the same deterministic name-dedup order used on write,
// so a preorder zip against the original per-file ordering lines the
// two up exactly; the returned slice preserves that order so callers
// that append edges stay deterministic across reloads.
func collectRecordNodes(root *docmodel.DocItem) []keyedNode {
	var out []keyedNode
	var assign func(n *docmodel.DocItem, path string)
	assign = func(n *docmodel.DocItem, path string) {
		if n.Kind == docmodel.KindFile {
			idx := 0
			var walk func(item *docmodel.DocItem)
			walk = func(item *docmodel.DocItem) {
				for _, c := range item.OrderedChildren() {
					out = append(out, keyedNode{key: path + "::" + fmt.Sprintf("%d:%s", idx, c.Name), node: c})
					idx++
					walk(c)
				}
			}
			walk(n)
			return
		}
		for _, c := range n.OrderedChildren() {
			childPath := c.Name
			if path != "" {
				childPath = path + "/" + c.Name
			}
			assign(c, childPath)
		}
	}
	assign(root, "")
	return out
}

// restoreReferences rebuilds the bidirectional edge lists from the
// reference_who arrays written when the snapshot was checkpointed with
// flashReferences. Only the outgoing side is consulted — the
// who_reference_me arrays record the same edges from the other end, so
// reading both would double-insert. Without this pass a reloaded old
// snapshot carries empty referrer sets and the change detector flags
// every referenced, unchanged symbol HasNewReferencer on every run.
func restoreReferences(nodes []keyedNode, byKey map[string]record) {
	index := make(map[string]*docmodel.DocItem, len(nodes))
	for _, kn := range nodes {
		index[kn.node.GetFullName(true)] = kn.node
	}
	for _, kn := range nodes {
		r, ok := byKey[kn.key]
		if !ok {
			continue
		}
		for i, qname := range r.ReferenceWho {
			target, found := index[qname]
			if !found || target == kn.node {
				continue
			}
			special := i < len(r.SpecialReferenceType) && r.SpecialReferenceType[i]
			kn.node.ReferencesFrom = append(kn.node.ReferencesFrom, target)
			kn.node.SpecialReferenceFlags = append(kn.node.SpecialReferenceFlags, special)
			target.ReferencesTo = append(target.ReferencesTo, kn.node)
		}
	}
}

func statusFromString(s string) docmodel.Status {
	switch s {
	case "UpToDate":
		return docmodel.StatusUpToDate
	case "NotGenerated":
		return docmodel.StatusNotGenerated
	case "CodeChanged":
		return docmodel.StatusCodeChanged
	case "HasNewReferencer":
		return docmodel.StatusHasNewReferencer
	case "HasNoReferencer":
		return docmodel.StatusHasNoReferencer
	default:
		return docmodel.StatusNotGenerated
	}
}
