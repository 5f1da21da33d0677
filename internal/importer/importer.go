// Package importer reads scene source produced outside the editor and maps
// the engine class calls it finds back onto scene elements.
package importer

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/python"

	"manimeditor/internal/metadata"
	"manimeditor/internal/scene"
)

var ErrParse = errors.New("source could not be parsed")

// Element is one recognised class call with its evaluated arguments.
type Element struct {
	Class      metadata.ClassDescriptor
	Properties scene.Properties
}

type Result struct {
	// The parsed source, wrapped in a scene skeleton when the input was a
	// bare fragment.
	Source   string
	Elements []Element
}

type Config struct {
	Logger *log.Logger
}

type Importer struct {
	catalog *metadata.Catalog
	logger  *log.Logger
}

func New(catalog *metadata.Catalog, cfg Config) *Importer {
	logger := cfg.Logger
	if logger == nil {
		logger = log.Default()
	}
	return &Importer{catalog: catalog, logger: logger}
}

// Import parses source and returns every call of a catalog class in source
// order. Arguments that are not plain literals are kept as raw expressions.
// Source that does not parse yields ErrParse and no elements.
func (importer *Importer) Import(ctx context.Context, source string) (Result, error) {
	if !looksLikeScene(source) {
		source = wrapFragment(source)
	}
	code := []byte(source)

	parser := sitter.NewParser()
	parser.SetLanguage(python.GetLanguage())

	tree, err := parser.ParseCtx(ctx, nil, code)
	if err != nil {
		return Result{}, fmt.Errorf("%w: %v", ErrParse, err)
	}

	root := tree.RootNode()
	if root.HasError() {
		return Result{}, fmt.Errorf("%w: %s", ErrParse, firstError(root))
	}

	result := Result{Source: source}
	importer.collect(root, code, &result.Elements)
	return result, nil
}

func (importer *Importer) collect(node *sitter.Node, code []byte, elements *[]Element) {
	if node.Type() == "call" {
		if class, ok := importer.callee(node, code); ok {
			*elements = append(*elements, Element{
				Class:      class,
				Properties: importer.arguments(class, node.ChildByFieldName("arguments"), code),
			})
			return
		}
	}

	for _, child := range namedChildren(node) {
		importer.collect(child, code, elements)
	}
}

// Resolves the called name, plain or qualified, against the catalog.
func (importer *Importer) callee(call *sitter.Node, code []byte) (metadata.ClassDescriptor, bool) {
	function := call.ChildByFieldName("function")
	if function == nil {
		return metadata.ClassDescriptor{}, false
	}

	var name string
	switch function.Type() {
	case "identifier":
		name = function.Content(code)
	case "attribute":
		attribute := function.ChildByFieldName("attribute")
		if attribute == nil {
			return metadata.ClassDescriptor{}, false
		}
		name = attribute.Content(code)
	default:
		return metadata.ClassDescriptor{}, false
	}

	return importer.catalog.Lookup(name)
}

func (importer *Importer) arguments(class metadata.ClassDescriptor, args *sitter.Node, code []byte) scene.Properties {
	props := scene.NewProperties()
	if args == nil {
		return props
	}

	position := 0
	for _, arg := range namedChildren(args) {
		switch arg.Type() {
		case "comment":
		case "keyword_argument":
			name := arg.ChildByFieldName("name")
			value := arg.ChildByFieldName("value")
			if name == nil || value == nil {
				continue
			}
			props.Set(name.Content(code), evaluate(value, code))
		case "list_splat", "dictionary_splat":
			importer.logger.Printf("import: %s: unpacked argument %q dropped", class.Name, arg.Content(code))
		default:
			if position >= len(class.Params) {
				importer.logger.Printf("import: %s: positional argument %q has no matching parameter", class.Name, arg.Content(code))
			} else {
				props.Set(class.Params[position].Name, evaluate(arg, code))
			}
			position++
		}
	}
	return props
}

func looksLikeScene(source string) bool {
	return strings.Contains(source, "class ") && strings.Contains(source, "def construct")
}

func wrapFragment(fragment string) string {
	lines := []string{
		"from manim import *",
		"",
		"class Output(Scene):",
		"    def construct(self):",
	}
	body := strings.Split(strings.Trim(fragment, "\n"), "\n")
	if len(body) == 1 && strings.TrimSpace(body[0]) == "" {
		body = []string{"pass"}
	}
	for _, line := range body {
		lines = append(lines, "        "+line)
	}
	return strings.Join(lines, "\n")
}

func firstError(node *sitter.Node) string {
	if node.Type() == "ERROR" || node.IsMissing() {
		point := node.StartPoint()
		return fmt.Sprintf("syntax error at line %d, column %d", point.Row+1, point.Column+1)
	}
	for i := 0; i < int(node.ChildCount()); i++ {
		child := node.Child(i)
		if child.HasError() || child.IsMissing() {
			return firstError(child)
		}
	}
	return "syntax error"
}

func namedChildren(n *sitter.Node) []*sitter.Node {
	count := int(n.NamedChildCount())
	result := make([]*sitter.Node, 0, count)
	for i := 0; i < count; i++ {
		result = append(result, n.NamedChild(i))
	}
	return result
}
