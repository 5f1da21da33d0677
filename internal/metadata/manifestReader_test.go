package metadata

import (
	"testing"
)

const testManifest = `{
  "engine": "manim",
  "engine_version": "0.18.1",
  "root": "manim",
  "element_base": "manim.mobject.Mobject",
  "animation_namespace": "manim.animation",
  "modules": [
    {"name": "manim", "attributes": [
      {"name": "Circle", "kind": "class", "ref": "manim.shapes.Circle"},
      {"name": "FadeIn", "kind": "class", "ref": "manim.animation.fading.FadeIn"},
      {"name": "shapes", "kind": "module", "ref": "manim.shapes"},
      {"name": "np", "kind": "module", "ref": "numpy"},
      {"name": "lib", "kind": "module", "ref": "manimlib"},
      {"name": "_Hidden", "kind": "class", "ref": "manim.shapes.Hidden"},
      {"name": "oops", "kind": "error"}
    ]},
    {"name": "manim.shapes", "attributes": [
      {"name": "Circle", "kind": "class", "ref": "manim.shapes.Circle"},
      {"name": "Highlight", "kind": "class", "ref": "manim.shapes.Highlight"}
    ]},
    {"name": "manim.animation.fading", "attributes": [
      {"name": "FadeIn", "kind": "class", "ref": "manim.animation.fading.FadeIn"},
      {"name": "Highlight", "kind": "class", "ref": "manim.animation.fading.Highlight"}
    ]},
    {"name": "manim.animation.broken", "error": "ImportError", "attributes": [
      {"name": "Ghost", "kind": "class", "ref": "manim.animation.broken.Ghost"}
    ]},
    {"name": "manimlib", "attributes": [
      {"name": "Foreign", "kind": "class", "ref": "manimlib.Foreign"}
    ]},
    {"name": "numpy", "attributes": [
      {"name": "ndarray", "kind": "class", "ref": "numpy.ndarray"}
    ]}
  ],
  "classes": [
    {"id": "manim.mobject.Mobject", "name": "Mobject", "module": "manim.mobject", "signature": {"params": []}},
    {"id": "manim.shapes.Circle", "name": "Circle", "module": "manim.shapes",
     "bases": ["manim.mobject.Mobject"],
     "signature": {"params": [
       {"name": "self", "kind": "positional_or_keyword"},
       {"name": "radius", "kind": "positional_or_keyword", "has_default": true, "default": 1},
       {"name": "color", "kind": "positional_or_keyword", "has_default": true, "default": "RED"},
       {"name": "label", "kind": "positional_or_keyword", "annotation": "str", "has_default": true, "default": "circle"},
       {"name": "args", "kind": "var_positional"},
       {"name": "kwargs", "kind": "var_keyword"}
     ]}},
    {"id": "manim.shapes.Highlight", "name": "Highlight", "module": "manim.shapes",
     "bases": ["manim.shapes.Circle"], "signature": {"opaque": true, "params": [{"name": "x", "kind": "positional_or_keyword"}]}},
    {"id": "manim.shapes.Hidden", "name": "Hidden", "module": "manim.shapes", "signature": {"params": []}},
    {"id": "manim.animation.fading.FadeIn", "name": "FadeIn", "module": "manim.animation.fading",
     "bases": ["manim.unknown.Base"], "signature": {"params": [
       {"name": "self", "kind": "positional_or_keyword"},
       {"name": "mobjects", "kind": "var_positional"},
       {"name": "shift", "kind": "keyword_only"},
       {"name": "rate_func", "kind": "keyword_only", "has_default": true, "default": {"__repr__": "<function smooth>"}}
     ]}},
    {"id": "manim.animation.fading.Highlight", "name": "Highlight", "module": "manim.animation.fading", "signature": {"params": []}},
    {"id": "manim.animation.broken.Ghost", "name": "Ghost", "module": "manim.animation.broken", "signature": {"params": []}},
    {"id": "manimlib.Foreign", "name": "Foreign", "module": "manimlib", "signature": {"params": []}},
    {"id": "numpy.ndarray", "name": "ndarray", "module": "numpy", "signature": {"params": []}}
  ]
}`

func newTestReader(t *testing.T) ManifestReader {
	t.Helper()
	reader, err := ParseManifest([]byte(testManifest))
	if err != nil {
		t.Fatalf("ParseManifest failed: %v", err)
	}
	return reader
}

func TestDiscoverSkipsForeignAndBrokenModules(t *testing.T) {
	reader := newTestReader(t)

	classes := reader.Discover("manim")

	names := map[string]int{}
	for _, class := range classes {
		names[class.Name]++
	}

	for _, want := range []string{"Circle", "FadeIn", "Highlight"} {
		if names[want] != 1 {
			t.Errorf("Expected %s exactly once, got %d", want, names[want])
		}
	}
	for _, unwanted := range []string{"Foreign", "ndarray", "Ghost", "Hidden"} {
		if names[unwanted] != 0 {
			t.Errorf("Did not expect %s in discovery result", unwanted)
		}
	}
}

func TestDiscoverNoDuplicateNames(t *testing.T) {
	reader := newTestReader(t)

	seen := map[string]bool{}
	for _, class := range reader.Discover("manim") {
		if seen[class.Name] {
			t.Errorf("Duplicate class name %s", class.Name)
		}
		seen[class.Name] = true
	}
}

func TestDiscoverBuiltinManifestHasUniqueNames(t *testing.T) {
	reader := BuiltinReader()

	classes := reader.Discover(reader.Manifest().Root)
	if len(classes) == 0 {
		t.Fatal("Expected builtin manifest to expose classes")
	}

	seen := map[string]bool{}
	for _, class := range classes {
		if seen[class.Name] {
			t.Errorf("Duplicate class name %s", class.Name)
		}
		seen[class.Name] = true
	}
	if seen["ManimColor"] != true {
		t.Error("Expected classes from manim.utils.color to be discovered")
	}
}

func TestIntrospectKeepsDeclaredOrder(t *testing.T) {
	reader := newTestReader(t)
	circle, found := reader.TryGetClass("Circle")
	if !found {
		t.Fatal("Circle not found")
	}

	params := reader.Introspect(circle)
	if len(params) != 3 {
		t.Fatalf("Expected 3 params, got %d: %+v", len(params), params)
	}

	expected := []ParameterSpec{
		{Name: "radius", TypeName: "str", Kind: KindNumeric, HasDefault: true, DefaultValue: "1"},
		{Name: "color", TypeName: "str", Kind: KindColor, HasDefault: true, DefaultValue: "RED"},
		{Name: "label", TypeName: "str", Kind: KindString, HasDefault: true, DefaultValue: "circle"},
	}
	for i, want := range expected {
		if params[i] != want {
			t.Errorf("Param %d mismatch.\nExpected: %+v\nGot:      %+v", i, want, params[i])
		}
	}
}

func TestIntrospectOpaqueSignature(t *testing.T) {
	reader := newTestReader(t)
	highlight, _ := reader.TryGetClass("manim.shapes.Highlight")

	if params := reader.Introspect(highlight); len(params) != 0 {
		t.Errorf("Expected no params for opaque constructor, got %v", params)
	}
}

func TestIntrospectKeywordOnlyAndRepr(t *testing.T) {
	reader := newTestReader(t)
	fadeIn, _ := reader.TryGetClass("FadeIn")

	params := reader.Introspect(fadeIn)
	if len(params) != 2 {
		t.Fatalf("Expected 2 params, got %+v", params)
	}
	if params[0].Name != "shift" || params[0].HasDefault || params[0].Kind != KindString {
		t.Errorf("Unexpected shift param: %+v", params[0])
	}
	if params[1].DefaultValue != "<function smooth>" || params[1].Kind != KindOther {
		t.Errorf("Unexpected rate_func param: %+v", params[1])
	}
}

func TestIsElement(t *testing.T) {
	reader := newTestReader(t)

	cases := map[string]bool{
		"manim.shapes.Circle":              true,
		"manim.shapes.Highlight":           true,
		"manim.mobject.Mobject":            true,
		"manim.animation.fading.FadeIn":    false,
		"manim.animation.fading.Highlight": false,
	}
	for id, want := range cases {
		class, _ := reader.TryGetClass(id)
		if got := reader.IsElement(class); got != want {
			t.Errorf("IsElement(%s) = %v, expected %v", id, got, want)
		}
	}
}

func TestIsEffectIsNameBased(t *testing.T) {
	reader := newTestReader(t)

	if !reader.IsEffect("FadeIn") {
		t.Error("Expected FadeIn to be an effect")
	}
	if !reader.IsEffect("Highlight") {
		t.Error("Expected Highlight to match by name")
	}
	if reader.IsEffect("Ghost") {
		t.Error("Classes of modules that failed to import must not match")
	}
	if reader.IsEffect("Circle") {
		t.Error("Circle is not an animation")
	}
}

func TestIsColorLiteral(t *testing.T) {
	cases := map[string]bool{
		"RED":        true,
		"BLUE_E":     true,
		"LIGHT_GRAY": true,
		"#FC6255":    true,
		"#FFF":       true,
		"#XYZ":       false,
		"REDDISH":    false,
		"":           false,
	}
	for text, want := range cases {
		if got := isColorLiteral(text); got != want {
			t.Errorf("isColorLiteral(%q) = %v, expected %v", text, got, want)
		}
	}
}
