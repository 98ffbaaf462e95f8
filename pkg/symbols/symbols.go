// Package symbols extracts documentable symbol records from Go source
// by walking go/ast: struct and interface types, functions, methods,
// and package-level values.
package symbols

import (
	"bytes"
	"go/ast"
	"go/parser"
	"go/token"
	"os"
	"path/filepath"
	"strings"

	"github.com/ternarybob/docweave/pkg/docmodel"
)

// ExtractFile parses one Go source file and returns its top-level and
// nested symbol records: struct and interface types stand in for ClassDef, methods
// and functions for FunctionDef, and package-level var/const
// declarations for GlobalVar.
func ExtractFile(path string) ([]docmodel.Record, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	fset := token.NewFileSet()
	file, err := parser.ParseFile(fset, path, src, parser.ParseComments)
	if err != nil {
		return nil, err
	}

	var records []docmodel.Record
	for _, decl := range file.Decls {
		switch d := decl.(type) {
		case *ast.GenDecl:
			records = append(records, genDeclRecords(fset, src, d)...)
		case *ast.FuncDecl:
			rec := funcDeclRecord(fset, src, d)
			if recv := receiverTypeName(d); recv != "" {
				rec.ParentName = recv
			}
			records = append(records, rec)
		}
	}
	return records, nil
}

// ExtractDir walks a directory tree for .go files (skipping .git and
// vendor) and returns a map suitable for docmodel.BuildTree.
func ExtractDir(root string) (map[string][]docmodel.Record, error) {
	out := make(map[string][]docmodel.Record)
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
		if !strings.HasSuffix(path, ".go") {
			return nil
		}
		rel, relErr := filepath.Rel(root, path)
		if relErr != nil {
			return relErr
		}
		recs, extractErr := ExtractFile(path)
		if extractErr != nil {
			return extractErr
		}
		out[filepath.ToSlash(rel)] = recs
		return nil
	})
	return out, err
}

func genDeclRecords(fset *token.FileSet, src []byte, d *ast.GenDecl) []docmodel.Record {
	var out []docmodel.Record
	switch d.Tok {
	case token.TYPE:
		for _, spec := range d.Specs {
			ts, ok := spec.(*ast.TypeSpec)
			if !ok {
				continue
			}
			if _, isStruct := ts.Type.(*ast.StructType); !isStruct {
				if _, isIface := ts.Type.(*ast.InterfaceType); !isIface {
					continue
				}
			}
			start := fset.Position(d.Pos())
			end := fset.Position(d.End())
			namePos := fset.Position(ts.Name.Pos())
			out = append(out, docmodel.Record{
				Type:        "ClassDef",
				Name:        ts.Name.Name,
				StartLine:   start.Line,
				EndLine:     end.Line,
				NameColumn:  namePos.Column,
				CodeContent: snippet(src, d.Pos(), d.End(), fset),
			})
		}
	case token.VAR, token.CONST:
		for _, spec := range d.Specs {
			vs, ok := spec.(*ast.ValueSpec)
			if !ok {
				continue
			}
			start := fset.Position(d.Pos())
			end := fset.Position(d.End())
			for _, n := range vs.Names {
				if n.Name == "_" {
					continue
				}
				namePos := fset.Position(n.Pos())
				out = append(out, docmodel.Record{
					Type:        "GlobalVar",
					Name:        n.Name,
					StartLine:   start.Line,
					EndLine:     end.Line,
					NameColumn:  namePos.Column,
					CodeContent: snippet(src, d.Pos(), d.End(), fset),
				})
			}
		}
	}
	return out
}

func funcDeclRecord(fset *token.FileSet, src []byte, d *ast.FuncDecl) docmodel.Record {
	start := fset.Position(d.Pos())
	end := fset.Position(d.End())
	namePos := fset.Position(d.Name.Pos())

	var params []string
	if d.Type.Params != nil {
		for _, f := range d.Type.Params.List {
			if len(f.Names) == 0 {
				params = append(params, exprString(f.Type))
				continue
			}
			for range f.Names {
				params = append(params, exprString(f.Type))
			}
		}
	}

	return docmodel.Record{
		Type:        "FunctionDef",
		Name:        d.Name.Name,
		StartLine:   start.Line,
		EndLine:     end.Line,
		NameColumn:  namePos.Column,
		Params:      params,
		HaveReturn:  d.Type.Results != nil && len(d.Type.Results.List) > 0,
		CodeContent: snippet(src, d.Pos(), d.End(), fset),
	}
}

func receiverTypeName(d *ast.FuncDecl) string {
	if d.Recv == nil || len(d.Recv.List) == 0 {
		return ""
	}
	expr := d.Recv.List[0].Type
	if star, ok := expr.(*ast.StarExpr); ok {
		expr = star.X
	}
	if ident, ok := expr.(*ast.Ident); ok {
		return ident.Name
	}
	return ""
}

func exprString(e ast.Expr) string {
	switch t := e.(type) {
	case *ast.Ident:
		return t.Name
	case *ast.StarExpr:
		return "*" + exprString(t.X)
	case *ast.SelectorExpr:
		return exprString(t.X) + "." + t.Sel.Name
	case *ast.ArrayType:
		return "[]" + exprString(t.Elt)
	case *ast.Ellipsis:
		return "..." + exprString(t.Elt)
	default:
		return "any"
	}
}

func snippet(src []byte, start, end token.Pos, fset *token.FileSet) string {
	s := fset.Position(start).Offset
	e := fset.Position(end).Offset
	if s < 0 || e > len(src) || s > e {
		return ""
	}
	return string(bytes.TrimRight(src[s:e], "\n"))
}
