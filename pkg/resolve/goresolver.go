package resolve

import (
	"go/ast"
	"go/parser"
	"go/token"
	"os"
	"path/filepath"
	"strings"
)

// GoResolver implements Resolver by walking go/ast identifier uses
// across the repository's Go files.
type GoResolver struct {
	fset *token.FileSet
}

func NewGoResolver() *GoResolver {
	return &GoResolver{fset: token.NewFileSet()}
}

func (g *GoResolver) References(repoRoot, symbolName, filePath string, line, col int, inFileOnly bool) ([]Hit, error) {
	var files []string
	if inFileOnly {
		files = []string{filePath}
	} else {
		var err error
		files, err = listGoFiles(repoRoot)
		if err != nil {
			return nil, err
		}
	}

	var hits []Hit
	for _, rel := range files {
		abs := filepath.Join(repoRoot, rel)
		src, err := os.ReadFile(abs)
		if err != nil {
			continue
		}
		file, err := parser.ParseFile(g.fset, abs, src, 0)
		if err != nil {
			continue
		}
		ast.Inspect(file, func(n ast.Node) bool {
			ident, ok := n.(*ast.Ident)
			if !ok || ident.Name != symbolName {
				return true
			}
			pos := g.fset.Position(ident.Pos())
			hits = append(hits, Hit{FilePath: rel, Line: pos.Line, Column: pos.Column})
			return true
		})
	}
	return hits, nil
}

func listGoFiles(root string) ([]string, error) {
	var out []string
	err := filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			if info.Name() == ".git" || info.Name() == "vendor" {
				return filepath.SkipDir
			}
			return nil
		}
		if strings.HasSuffix(path, ".go") {
			rel, relErr := filepath.Rel(root, path)
			if relErr != nil {
				return relErr
			}
			out = append(out, filepath.ToSlash(rel))
		}
		return nil
	})
	return out, err
}
