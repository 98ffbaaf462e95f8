// Package render publishes a symbol tree's generated documentation as
// Markdown: one file per source file mirroring the source layout, with
// per-symbol sections at nested heading levels.
package render

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ternarybob/docweave/pkg/docmodel"
)

const placeholder = "Doc is waiting to be generated..."

// WriteAll walks root and writes one .md file per source file under
// outDir, mirroring the source directory structure. Files whose entire
// subtree has empty md_content are omitted entirely.
func WriteAll(root *docmodel.DocItem, outDir string) error {
	return walk(root, outDir, "")
}

func walk(item *docmodel.DocItem, outDir, relDir string) error {
	switch item.Kind {
	case docmodel.KindRepo, docmodel.KindDir:
		for _, c := range item.OrderedChildren() {
			childRel := c.Name
			if relDir != "" {
				childRel = filepath.Join(relDir, c.Name)
			}
			if err := walk(c, outDir, childRel); err != nil {
				return err
			}
		}
		return nil
	case docmodel.KindFile:
		if !hasContent(item) {
			return nil
		}
		var b strings.Builder
		renderChildren(&b, item, 2)

		dest := filepath.Join(outDir, relDir) + ".md"
		if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
			return err
		}
		return os.WriteFile(dest, []byte(b.String()), 0o644)
	default:
		return nil
	}
}

// hasContent reports whether item's subtree contains at least one
// non-empty md_content.
func hasContent(item *docmodel.DocItem) bool {
	if strings.TrimSpace(latest(item)) != "" {
		return true
	}
	for _, c := range item.OrderedChildren() {
		if hasContent(c) {
			return true
		}
	}
	return false
}

// latest returns item's current md_content entry — the last of its
// append-only sequence — or the empty string if none exists yet.
func latest(item *docmodel.DocItem) string {
	if len(item.MDContent) == 0 {
		return ""
	}
	return item.MDContent[len(item.MDContent)-1]
}

func renderChildren(b *strings.Builder, item *docmodel.DocItem, level int) {
	children := item.OrderedChildren()
	for i, c := range children {
		renderNode(b, c, level)
		if i != len(children)-1 {
			b.WriteString("\n***\n\n")
		}
	}
}

func renderNode(b *strings.Builder, item *docmodel.DocItem, level int) {
	params := strings.Join(item.Content.Params, ", ")
	heading := fmt.Sprintf("%s %s %s(%s)", strings.Repeat("#", level), item.Kind.ToStr(), item.Name, params)
	b.WriteString(heading)
	b.WriteString("\n\n")

	body := latest(item)
	if strings.TrimSpace(body) == "" {
		body = placeholder
	}
	b.WriteString(body)
	b.WriteString("\n\n")

	if len(item.OrderedChildren()) > 0 {
		renderChildren(b, item, level+1)
	}
}
