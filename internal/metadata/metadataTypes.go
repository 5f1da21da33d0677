package metadata

import "encoding/json"

// Manifest is the ahead-of-time dump of an animation engine's public surface.
type Manifest struct {
	Engine             string        `json:"engine"`
	EngineVersion      string        `json:"engine_version"`
	Root               string        `json:"root"`
	ElementBase        string        `json:"element_base"`
	AnimationNamespace string        `json:"animation_namespace"`
	Modules            []ModuleEntry `json:"modules"`
	Classes            []ClassEntry  `json:"classes"`
}

type ModuleEntry struct {
	Name       string           `json:"name"`
	Error      string           `json:"error,omitempty"`
	Attributes []AttributeEntry `json:"attributes"`
}

type AttributeKind string

const (
	AttributeClass  AttributeKind = "class"
	AttributeModule AttributeKind = "module"
	AttributeValue  AttributeKind = "value"
	AttributeError  AttributeKind = "error"
)

type AttributeEntry struct {
	Name string        `json:"name"`
	Kind AttributeKind `json:"kind"`
	Ref  string        `json:"ref,omitempty"`
}

type ClassEntry struct {
	Id        string         `json:"id"`
	Name      string         `json:"name"`
	Module    string         `json:"module"`
	Bases     []string       `json:"bases,omitempty"`
	Doc       string         `json:"doc,omitempty"`
	Signature SignatureEntry `json:"signature"`
}

type SignatureEntry struct {
	Opaque bool             `json:"opaque,omitempty"`
	Params []ParameterEntry `json:"params"`
}

type ParameterKind string

const (
	ParamPositionalOnly ParameterKind = "positional_only"
	ParamPositional     ParameterKind = "positional_or_keyword"
	ParamVarPositional  ParameterKind = "var_positional"
	ParamKeywordOnly    ParameterKind = "keyword_only"
	ParamVarKeyword     ParameterKind = "var_keyword"
)

type ParameterEntry struct {
	Name       string          `json:"name"`
	Kind       ParameterKind   `json:"kind"`
	Annotation string          `json:"annotation,omitempty"`
	HasDefault bool            `json:"has_default,omitempty"`
	Default    json.RawMessage `json:"default,omitempty"`
}

// The shape of a parameter as the properties form sees it.
type TypeKind string

const (
	KindNumeric TypeKind = "numeric"
	KindString  TypeKind = "string"
	KindColor   TypeKind = "color"
	KindOther   TypeKind = "other"
)

type ParameterSpec struct {
	Name string `json:"name"`
	// Declared annotation name, "str" when the parameter is not annotated.
	TypeName     string   `json:"type"`
	Kind         TypeKind `json:"kind"`
	HasDefault   bool     `json:"has_default"`
	DefaultValue string   `json:"default"`
}

// ClassDescriptor is one discovered engine class. Descriptors are shared
// read-only between every scene element bound to them.
type ClassDescriptor struct {
	Name      string
	Id        string
	Module    string
	Doc       string
	IsElement bool
	IsEffect  bool
	Params    []ParameterSpec
}

// Reports whether the class is a pure animation: an effect that is not
// also drawable.
func (c ClassDescriptor) IsPlayable() bool {
	return c.IsEffect && !c.IsElement
}
