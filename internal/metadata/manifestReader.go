// The package used for operating on and describing the animation engine's
// class catalog.
package metadata

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
)

type ManifestReader struct {
	manifest Manifest
	modules  map[string]*ModuleEntry
	classes  map[string]*ClassEntry
}

// The names of the engine's colour constants, without shade suffixes.
var baseColorNames map[string]bool = map[string]bool{
	"WHITE":  true,
	"BLACK":  true,
	"GRAY":   true,
	"GREY":   true,
	"RED":    true,
	"GREEN":  true,
	"BLUE":   true,
	"YELLOW": true,
	"ORANGE": true,
	"PINK":   true,
	"PURPLE": true,
	"TEAL":   true,
	"MAROON": true,
	"GOLD":   true,
}

// Generates a new manifest reader based on the manifest file under given path
func NewReader(manifestPath string) (ManifestReader, error) {
	data, err := os.ReadFile(manifestPath)
	if err != nil {
		return ManifestReader{}, fmt.Errorf("could not read manifest: %w", err)
	}

	return ParseManifest(data)
}

// Generates a new manifest reader from raw manifest JSON
func ParseManifest(data []byte) (ManifestReader, error) {
	var manifest Manifest
	if err := json.Unmarshal(data, &manifest); err != nil {
		return ManifestReader{}, fmt.Errorf("could not decode manifest: %w", err)
	}

	if manifest.Root == "" {
		return ManifestReader{}, fmt.Errorf("manifest does not name a root package")
	}

	reader := ManifestReader{
		manifest: manifest,
		modules:  make(map[string]*ModuleEntry, len(manifest.Modules)),
		classes:  make(map[string]*ClassEntry, len(manifest.Classes)),
	}

	for i := range reader.manifest.Modules {
		module := &reader.manifest.Modules[i]
		reader.modules[module.Name] = module
	}

	for i := range reader.manifest.Classes {
		class := &reader.manifest.Classes[i]
		reader.classes[class.Id] = class
	}

	return reader, nil
}

func (reader *ManifestReader) Manifest() Manifest {
	return reader.manifest
}

// Discover collects every class reachable from the public surface of root
// and of every importable module below it. Modules that failed to import,
// attributes that failed on access and modules outside of root's namespace
// are skipped. Each class appears once, and so does each class name.
func (reader *ManifestReader) Discover(root string) []ClassEntry {
	found := make(map[string]bool)
	visited := make(map[string]bool)

	var walk func(moduleName string)
	walk = func(moduleName string) {
		if visited[moduleName] {
			return
		}
		visited[moduleName] = true

		module, ok := reader.modules[moduleName]
		if !ok || module.Error != "" {
			return
		}

		for _, attr := range module.Attributes {
			if strings.HasPrefix(attr.Name, "_") {
				continue
			}

			switch attr.Kind {
			case AttributeClass:
				if _, ok := reader.classes[attr.Ref]; ok {
					found[attr.Ref] = true
				}
			case AttributeModule:
				if inNamespace(attr.Ref, root) {
					walk(attr.Ref)
				}
			}
		}
	}

	walk(root)
	for _, module := range reader.manifest.Modules {
		if strings.HasPrefix(module.Name, root+".") {
			walk(module.Name)
		}
	}

	ids := make([]string, 0, len(found))
	for id := range found {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	names := make(map[string]bool, len(ids))
	classes := make([]ClassEntry, 0, len(ids))
	for _, id := range ids {
		class := reader.classes[id]
		if names[class.Name] {
			continue
		}
		names[class.Name] = true
		classes = append(classes, *class)
	}

	return classes
}

// Tries to get class with given id or, failing that, given name
func (reader *ManifestReader) TryGetClass(name string) (element ClassEntry, found bool) {
	if class, ok := reader.classes[name]; ok {
		return *class, true
	}

	class := findElement(reader.manifest.Classes, func(c *ClassEntry) bool { return c.Name == name })
	if class == nil {
		return ClassEntry{}, false
	}

	return *class, true
}

// Introspect lists the constructor parameters of a class in declaration
// order. Opaque constructors yield no parameters.
func (reader *ManifestReader) Introspect(class ClassEntry) []ParameterSpec {
	params := make([]ParameterSpec, 0, len(class.Signature.Params))
	if class.Signature.Opaque {
		return params
	}

	for _, param := range class.Signature.Params {
		if param.Name == "self" {
			continue
		}
		if param.Kind == ParamVarPositional || param.Kind == ParamVarKeyword {
			continue
		}

		spec := ParameterSpec{
			Name:       param.Name,
			TypeName:   param.Annotation,
			HasDefault: param.HasDefault,
		}
		if spec.TypeName == "" {
			spec.TypeName = "str"
		}

		isString := false
		if param.HasDefault {
			spec.DefaultValue, isString = defaultText(param.Default)
		}
		spec.Kind = inferKind(param.Annotation, spec.DefaultValue, param.HasDefault, isString)

		params = append(params, spec)
	}

	return params
}

// Reports whether the class derives from the engine's drawable base type.
// Classes with unresolvable ancestry are not elements.
func (reader *ManifestReader) IsElement(class ClassEntry) bool {
	base := reader.manifest.ElementBase
	if base == "" {
		return false
	}

	visited := make(map[string]bool)
	queue := []string{class.Id}
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		if id == base {
			return true
		}
		if visited[id] {
			continue
		}
		visited[id] = true

		if entry, ok := reader.classes[id]; ok {
			queue = append(queue, entry.Bases...)
		}
	}

	return false
}

// Reports whether a class with exactly this name lives anywhere in the
// engine's animation namespace. The lookup is by name, not identity.
func (reader *ManifestReader) IsEffect(className string) bool {
	namespace := reader.manifest.AnimationNamespace
	if namespace == "" {
		return false
	}

	for _, module := range reader.manifest.Modules {
		if !inNamespace(module.Name, namespace) || module.Error != "" {
			continue
		}
		for _, attr := range module.Attributes {
			if attr.Kind == AttributeClass && attr.Name == className {
				return true
			}
		}
	}

	return false
}

func inNamespace(moduleName string, root string) bool {
	return moduleName == root || strings.HasPrefix(moduleName, root+".")
}

// Renders a manifest default the way the engine's str() would show it.
// The second result reports whether the default is a string value.
func defaultText(raw json.RawMessage) (string, bool) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return "", false
	}

	var value any
	if err := json.Unmarshal(raw, &value); err != nil {
		return string(raw), false
	}

	switch v := value.(type) {
	case nil:
		return "None", false
	case bool:
		if v {
			return "True", false
		}
		return "False", false
	case string:
		return v, true
	case float64:
		return strconv.FormatFloat(v, 'g', -1, 64), false
	case map[string]any:
		if repr, ok := v["__repr__"].(string); ok {
			return repr, false
		}
	}

	return string(raw), false
}

func inferKind(annotation string, defaultValue string, hasDefault bool, isString bool) TypeKind {
	if strings.Contains(strings.ToLower(annotation), "color") || isColorLiteral(defaultValue) {
		return KindColor
	}
	if !hasDefault {
		return KindString
	}
	if strings.ContainsAny(defaultValue, "0123456789") {
		return KindNumeric
	}
	if isString {
		return KindString
	}
	return KindOther
}

func isColorLiteral(text string) bool {
	if strings.HasPrefix(text, "#") {
		hex := text[1:]
		if len(hex) != 3 && len(hex) != 6 && len(hex) != 8 {
			return false
		}
		_, err := strconv.ParseUint(hex, 16, 64)
		return err == nil
	}

	name := text
	for _, prefix := range []string{"LIGHT_", "DARK_", "PURE_"} {
		name = strings.TrimPrefix(name, prefix)
	}
	if len(name) > 2 && name[len(name)-2] == '_' && name[len(name)-1] >= 'A' && name[len(name)-1] <= 'E' {
		name = name[:len(name)-2]
	}

	return baseColorNames[name]
}

// Finds element in given slice and returns it. If element is not found then `nil` is returned.
func findElement[T any](elements []T, match func(*T) bool) *T {
	for i := range elements {
		if match(&elements[i]) {
			return &elements[i]
		}
	}

	return nil
}
