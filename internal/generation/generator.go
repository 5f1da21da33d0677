package generation

import (
	"fmt"
	"regexp"
	"strings"

	"manimeditor/internal"
	"manimeditor/internal/scene"
)

const (
	defaultSceneName = "Output"
	bodyIndent       = "        "
	embedStatement   = "self.interactive_embed()"
)

type Settings struct {
	SoundPath string
	// Full scene source used as the base instead of the synthesized
	// preamble. Elements are injected after its construct header.
	Template string
}

type Generator struct {
	SceneName  string
	OutputPath string
}

func NewGenerator(sceneName string, outputPath string) Generator {
	if sceneName == "" {
		sceneName = defaultSceneName
	}
	return Generator{
		SceneName:  sceneName,
		OutputPath: outputPath,
	}
}

// Render turns the tree into scene source. The output depends only on the
// tree and the settings: constructions come first in tree order, followed
// by the playback of every pure animation.
func (generator *Generator) Render(tree *scene.Tree, settings Settings) string {
	if settings.Template != "" {
		// Template elements already live in the template body.
		statements := generator.statements(tree.Elements(), settings, true)
		if code, ok := injectAfterConstruct(settings.Template, statements); ok {
			return code
		}
	}

	lines := []string{
		"from manim import *",
		"",
		fmt.Sprintf("class %s(Scene):", generator.SceneName),
		"    def construct(self):",
	}
	for _, statement := range generator.statements(tree.Elements(), settings, false) {
		lines = append(lines, bodyIndent+statement)
	}
	return strings.Join(lines, "\n")
}

// Generate renders the scene and overwrites the generator's output file.
func (generator *Generator) Generate(tree *scene.Tree, settings Settings) (string, error) {
	code := generator.Render(tree, settings)
	if generator.OutputPath == "" {
		return code, nil
	}

	if err := internal.WriteFileAtomic(generator.OutputPath, []byte(code)); err != nil {
		return code, fmt.Errorf("write scene script: %w", err)
	}
	return code, nil
}

func (generator *Generator) statements(elements []*scene.SceneElement, settings Settings, skipTemplate bool) []string {
	var constructions, playbacks []string

	if settings.SoundPath != "" {
		constructions = append(constructions, fmt.Sprintf("self.add_sound(%s)", soundLiteral(settings.SoundPath)))
	}

	for _, element := range elements {
		if skipTemplate && element.Origin == scene.OriginTemplate {
			continue
		}

		call := fmt.Sprintf("%s(%s)", element.Class.Name, arguments(&element.Properties))
		if element.Class.IsPlayable() {
			playbacks = append(playbacks, fmt.Sprintf("self.play(%s)", call))
			continue
		}
		constructions = append(constructions, fmt.Sprintf("%s = %s", scene.VariableName(element.DisplayName), call))
	}

	return append(constructions, playbacks...)
}

func arguments(props *scene.Properties) string {
	var args []string
	for _, key := range props.Keys() {
		value, _ := props.Get(key)
		if value.Omitted() {
			continue
		}
		args = append(args, key+"="+value.Python())
	}
	return strings.Join(args, ", ")
}

// Paths go out as raw strings unless they cannot be expressed as one.
func soundLiteral(path string) string {
	if strings.ContainsAny(path, "\"\n") || strings.HasSuffix(path, `\`) {
		return scene.String(path).Python()
	}
	return `r"` + path + `"`
}

// Inserts statements right after the construct header of code, indented
// like the existing body. Reports false when code has no construct method.
func injectAfterConstruct(code string, statements []string) (string, bool) {
	lines := strings.Split(code, "\n")
	method, ok := findConstruct(lines)
	if !ok {
		return "", false
	}

	out := make([]string, 0, len(lines)+len(statements))
	out = append(out, lines[:method.headerEnd+1]...)
	for _, statement := range statements {
		out = append(out, method.bodyIndent+statement)
	}
	out = append(out, lines[method.headerEnd+1:]...)
	return strings.Join(out, "\n"), true
}

var constructHeader = regexp.MustCompile(`^([ \t]*)def\s+construct\s*\(`)

type constructMethod struct {
	// First and last line of the def, which may span several lines.
	headerStart  int
	headerEnd    int
	headerIndent string
	bodyIndent   string
}

// Finds the construct method and the indentation of its body.
func findConstruct(lines []string) (constructMethod, bool) {
	for i, line := range lines {
		match := constructHeader.FindStringSubmatch(line)
		if match == nil {
			continue
		}

		end, ok := headerEnd(lines, i)
		if !ok {
			return constructMethod{}, false
		}

		method := constructMethod{
			headerStart:  i,
			headerEnd:    end,
			headerIndent: match[1],
			bodyIndent:   match[1] + "    ",
		}
		for _, next := range lines[end+1:] {
			nextTrimmed := strings.TrimLeft(next, " \t")
			if nextTrimmed == "" {
				continue
			}
			if nextIndent := next[:len(next)-len(nextTrimmed)]; len(nextIndent) > len(method.headerIndent) {
				method.bodyIndent = nextIndent
			}
			break
		}
		return method, true
	}
	return constructMethod{}, false
}

// Returns the line closing the def starting at start: parentheses balanced
// and the line ending in a colon.
func headerEnd(lines []string, start int) (int, bool) {
	depth := 0
	for i := start; i < len(lines); i++ {
		code, _, _ := strings.Cut(lines[i], "#")
		depth += strings.Count(code, "(") + strings.Count(code, "[") -
			strings.Count(code, ")") - strings.Count(code, "]")
		if depth <= 0 && strings.HasSuffix(strings.TrimSpace(code), ":") {
			return i, true
		}
	}
	return -1, false
}

var classHeader = regexp.MustCompile(`^\s*class\s+([A-Za-z_]\w*)`)

// SceneClassName returns the name of the class declaring the construct
// method in code.
func SceneClassName(code string) (string, bool) {
	lines := strings.Split(code, "\n")
	method, ok := findConstruct(lines)
	if !ok {
		return "", false
	}
	for i := method.headerStart - 1; i >= 0; i-- {
		if match := classHeader.FindStringSubmatch(lines[i]); match != nil {
			return match[1], true
		}
	}
	return "", false
}

// WithInteractiveEmbed appends an interactive embed call to the end of the
// construct body, dropping any embed call already present.
func WithInteractiveEmbed(code string) string {
	var lines []string
	for _, line := range strings.Split(code, "\n") {
		if strings.TrimSpace(line) == embedStatement {
			continue
		}
		lines = append(lines, line)
	}

	method, ok := findConstruct(lines)
	if !ok {
		return strings.Join(append(lines, bodyIndent+embedStatement), "\n")
	}

	last := method.headerEnd
	for i := method.headerEnd + 1; i < len(lines); i++ {
		trimmed := strings.TrimLeft(lines[i], " \t")
		if trimmed == "" {
			continue
		}
		if len(lines[i])-len(trimmed) <= len(method.headerIndent) {
			break
		}
		last = i
	}

	out := make([]string, 0, len(lines)+1)
	out = append(out, lines[:last+1]...)
	out = append(out, method.bodyIndent+embedStatement)
	out = append(out, lines[last+1:]...)
	return strings.Join(out, "\n")
}
