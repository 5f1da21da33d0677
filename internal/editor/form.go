package editor

import (
	"fmt"

	"manimeditor/internal/metadata"
	"manimeditor/internal/scene"
)

const (
	// Form slot added for every drawable.
	ColorKey = "color"
	// Form slot taking extra "k=v,k2=v2" arguments.
	KwargsKey = "kwargs"
)

type ElementView struct {
	Name       string            `json:"name"`
	Class      string            `json:"class"`
	Label      string            `json:"label"`
	Playable   bool              `json:"playable"`
	Template   bool              `json:"template"`
	Properties *scene.Properties `json:"properties"`
}

func (s *Session) view(element *scene.SceneElement) ElementView {
	props := element.Properties.Clone()
	return ElementView{
		Name:       element.DisplayName,
		Class:      element.Class.Name,
		Label:      s.catalog.Label(element.Class.Name),
		Playable:   element.Class.IsPlayable(),
		Template:   element.Origin == scene.OriginTemplate,
		Properties: &props,
	}
}

// FormField is one editable slot of the properties form.
type FormField struct {
	Key          string            `json:"key"`
	TypeName     string            `json:"type"`
	Kind         metadata.TypeKind `json:"kind"`
	DefaultValue string            `json:"default,omitempty"`
	// Current value as typed text, empty when unset.
	Input string `json:"input"`
	IsSet bool   `json:"set"`
}

// Form lists the element's constructor parameters followed by the colour
// slot of drawables and any stored keys that are not parameters.
func (s *Session) Form(displayName string) ([]FormField, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	element, err := s.find(displayName)
	if err != nil {
		return nil, err
	}

	var fields []FormField
	listed := map[string]bool{}
	add := func(field FormField) {
		if listed[field.Key] {
			return
		}
		listed[field.Key] = true
		if value, ok := element.Properties.Get(field.Key); ok {
			field.Input = scene.InputText(value)
			field.IsSet = true
		}
		fields = append(fields, field)
	}

	for _, param := range element.Class.Params {
		add(FormField{Key: param.Name, TypeName: param.TypeName, Kind: param.Kind, DefaultValue: param.DefaultValue})
	}
	if element.Class.IsElement {
		add(FormField{Key: ColorKey, TypeName: "ParsableManimColor", Kind: metadata.KindColor})
	}
	for _, key := range element.Properties.Keys() {
		add(FormField{Key: key, TypeName: "str", Kind: metadata.KindOther})
	}
	return fields, nil
}

// SetInput parses text typed for key and stores it on the element. The
// kwargs key spreads its pairs over separate properties.
func (s *Session) SetInput(displayName string, key string, text string) error {
	return s.ApplyForm(displayName, map[string]string{key: text}, []string{key})
}

// ApplyForm stores the typed inputs of a properties form in the given key
// order, then saves the property file. Empty inputs are stored as empty
// strings, which generated code leaves out.
func (s *Session) ApplyForm(displayName string, inputs map[string]string, order []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	element, err := s.find(displayName)
	if err != nil {
		return s.fail("save element", err)
	}

	for _, key := range order {
		text, ok := inputs[key]
		if !ok {
			continue
		}
		if key == KwargsKey {
			keys, values := scene.ParseKwargs(text)
			for i := range keys {
				if err := s.tree.SetProperty(element, keys[i], values[i]); err != nil {
					return s.fail("save element", err)
				}
			}
			continue
		}
		if err := s.tree.SetProperty(element, key, scene.ParseInput(text)); err != nil {
			return s.fail("save element", fmt.Errorf("%s: %w", key, err))
		}
	}
	return s.persist()
}
