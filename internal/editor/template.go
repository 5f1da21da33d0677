package editor

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"

	"manimeditor/internal"
	"manimeditor/internal/scene"
)

// On-disk record of the imported source. The property file does not say
// where an element came from, so the template elements are listed here.
type templateState struct {
	Source   string   `json:"source"`
	Elements []string `json:"elements"`
}

// Reads the template state from path. A missing or corrupt file means no
// template.
func loadTemplate(path string, logger *log.Logger) (templateState, bool) {
	if path == "" {
		return templateState{}, false
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			logger.Printf("template: could not read %s: %v", path, err)
		}
		return templateState{}, false
	}

	var state templateState
	if err := json.Unmarshal(data, &state); err != nil {
		logger.Printf("template: ignoring corrupt %s: %v", path, err)
		return templateState{}, false
	}
	return state, state.Source != ""
}

// Marks the restored elements the template introduced.
func (state templateState) apply(tree *scene.Tree) {
	for _, name := range state.Elements {
		if element, ok := tree.Find(name); ok {
			element.Origin = scene.OriginTemplate
		}
	}
}

// Writes the current template next to the property file, or removes the
// file once there is no template.
func (s *Session) persistTemplate() error {
	if s.templatePath == "" {
		return nil
	}

	if s.settings.Template == "" {
		if err := os.Remove(s.templatePath); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("remove template: %w", err)
		}
		return nil
	}

	state := templateState{Source: s.settings.Template, Elements: []string{}}
	for _, element := range s.tree.Elements() {
		if element.Origin == scene.OriginTemplate {
			state.Elements = append(state.Elements, element.DisplayName)
		}
	}

	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal template: %w", err)
	}
	return internal.WriteFileAtomic(s.templatePath, append(data, '\n'))
}
