package scanner

import (
	"go/ast"
	"go/parser"
	"go/token"
	"strings"

	"github.com/olegasics/VectorScan/internal/models"
)

type goParser struct {
	marker string
}

func (p *goParser) Language() string     { return models.LanguageGo }
func (p *goParser) Extensions() []string { return []string{".go"} }

// Parse returns one record per type declaration whose doc comment carries the
// //<marker> directive. Methods declared anywhere in the file are attached by receiver.
func (p *goParser) Parse(source string, src []byte) ([]models.MetadataRecord, error) {
	fset := token.NewFileSet()
	file, err := parser.ParseFile(fset, source, src, parser.ParseComments|parser.SkipObjectResolution)
	if err != nil {
		return nil, err
	}

	var out []models.MetadataRecord
	index := make(map[string]int)
	methods := make(map[string][]string)

	ast.Inspect(file, func(n ast.Node) bool {
		switch decl := n.(type) {
		case *ast.GenDecl:
			if decl.Tok != token.TYPE {
				return false
			}
			for _, spec := range decl.Specs {
				ts, ok := spec.(*ast.TypeSpec)
				if !ok {
					continue
				}
				doc := ts.Doc
				if doc == nil && decl.Lparen == token.NoPos {
					doc = decl.Doc
				}
				docstring, tagged := p.docstring(doc)
				if !tagged {
					continue
				}
				rec := models.MetadataRecord{
					ClassName: ts.Name.Name,
					Docstring: docstring,
					Line:      fset.Position(ts.Pos()).Line,
				}
				switch t := ts.Type.(type) {
				case *ast.StructType:
					rec.Attributes = exportedFields(t.Fields)
				case *ast.InterfaceType:
					rec.Methods = interfaceMethods(t.Methods)
				}
				index[rec.ClassName] = len(out)
				out = append(out, rec)
			}
			return false
		case *ast.FuncDecl:
			if decl.Recv != nil && len(decl.Recv.List) == 1 {
				if name := receiverName(decl.Recv.List[0].Type); name != "" {
					methods[name] = append(methods[name], decl.Name.Name)
				}
			}
			return false
		}
		return true
	})

	for name, ms := range methods {
		if i, ok := index[name]; ok {
			out[i].Methods = append(out[i].Methods, ms...)
		}
	}
	return out, nil
}

// docstring reports whether doc holds the marker directive and returns the remaining text.
func (p *goParser) docstring(doc *ast.CommentGroup) (string, bool) {
	if doc == nil {
		return "", false
	}
	tagged := false
	kept := make([]*ast.Comment, 0, len(doc.List))
	for _, c := range doc.List {
		if strings.HasPrefix(c.Text, "//") && strings.TrimSpace(c.Text[2:]) == p.marker {
			tagged = true
			continue
		}
		kept = append(kept, c)
	}
	if !tagged {
		return "", false
	}
	return strings.TrimSpace((&ast.CommentGroup{List: kept}).Text()), true
}

func exportedFields(fields *ast.FieldList) []string {
	var out []string
	if fields == nil {
		return out
	}
	for _, f := range fields.List {
		if len(f.Names) == 0 {
			if name := receiverName(f.Type); ast.IsExported(name) {
				out = append(out, name)
			}
			continue
		}
		for _, n := range f.Names {
			if n.IsExported() {
				out = append(out, n.Name)
			}
		}
	}
	return out
}

func interfaceMethods(fields *ast.FieldList) []string {
	var out []string
	if fields == nil {
		return out
	}
	for _, f := range fields.List {
		if _, ok := f.Type.(*ast.FuncType); !ok {
			continue
		}
		for _, n := range f.Names {
			out = append(out, n.Name)
		}
	}
	return out
}

// receiverName unwraps pointers, generics and package qualifiers down to the type name.
func receiverName(expr ast.Expr) string {
	for {
		switch t := expr.(type) {
		case *ast.StarExpr:
			expr = t.X
		case *ast.IndexExpr:
			expr = t.X
		case *ast.IndexListExpr:
			expr = t.X
		case *ast.ParenExpr:
			expr = t.X
		case *ast.SelectorExpr:
			return t.Sel.Name
		case *ast.Ident:
			return t.Name
		default:
			return ""
		}
	}
}
