package scene

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"

	"manimeditor/internal/metadata"
)

type Origin int

const (
	// Added through the editor.
	OriginEditor Origin = iota
	// Read from an externally supplied scene source.
	OriginTemplate
)

type SceneElement struct {
	DisplayName string
	Class       metadata.ClassDescriptor
	Properties  Properties
	Origin      Origin
}

var (
	counterSuffix = regexp.MustCompile(` \(\d+\)$`)
	copySuffix    = regexp.MustCompile(`_copy\d*$`)
)

// BaseName strips every disambiguating suffix from a display name, which
// leaves the class name for names produced by the tree.
func BaseName(displayName string) string {
	name := displayName
	for {
		stripped := copySuffix.ReplaceAllString(counterSuffix.ReplaceAllString(name, ""), "")
		if stripped == name || stripped == "" {
			return name
		}
		name = stripped
	}
}

// Returns base if free, otherwise "base (2)", "base (3)", ...
func uniqueName(base string, taken func(string) bool) string {
	name := base
	for count := 2; taken(name); count++ {
		name = fmt.Sprintf("%s (%d)", base, count)
	}
	return name
}

// Returns "base_copy" if free, otherwise "base_copy2", "base_copy3", ...
func copyName(base string, taken func(string) bool) string {
	name := base + "_copy"
	for count := 2; taken(name); count++ {
		name = fmt.Sprintf("%s_copy%d", base, count)
	}
	return name
}

// VariableName turns a display name into an identifier for generated code.
func VariableName(displayName string) string {
	var b strings.Builder
	underscore := false
	for _, r := range strings.ToLower(displayName) {
		if r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
			underscore = r == '_'
			continue
		}
		if !underscore && b.Len() > 0 {
			b.WriteRune('_')
			underscore = true
		}
	}

	name := strings.TrimRight(b.String(), "_")
	if name == "" {
		return "element"
	}
	if unicode.IsDigit(rune(name[0])) {
		name = "_" + name
	}
	if pythonKeywords[name] {
		name += "_"
	}
	return name
}

var pythonKeywords = map[string]bool{
	"and": true, "as": true, "assert": true, "async": true, "await": true,
	"break": true, "class": true, "continue": true, "def": true, "del": true,
	"elif": true, "else": true, "except": true, "false": true, "finally": true,
	"for": true, "from": true, "global": true, "if": true, "import": true,
	"in": true, "is": true, "lambda": true, "none": true, "nonlocal": true,
	"not": true, "or": true, "pass": true, "raise": true, "return": true,
	"self": true, "true": true, "try": true, "while": true, "with": true,
	"yield": true,
}
