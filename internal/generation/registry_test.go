package generation

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"manimeditor/internal/metadata"
)

func newTestRegistry(t *testing.T) RegistryGenerator {
	t.Helper()
	catalog := metadata.NewCatalogFromDescriptors("0.18.1", []metadata.ClassDescriptor{
		{
			Name:      "Circle",
			Id:        "manim.mobject.geometry.arc.Circle",
			Module:    "manim.mobject.geometry.arc",
			IsElement: true,
			Params: []metadata.ParameterSpec{
				{Name: "radius", TypeName: "float | None", Kind: metadata.KindNumeric, HasDefault: true, DefaultValue: "None"},
				{Name: "color", TypeName: "ParsableManimColor", Kind: metadata.KindColor, HasDefault: true, DefaultValue: "RED"},
			},
		},
		{Name: "FadeIn", Id: "manim.animation.fading.FadeIn", IsEffect: true},
	})

	generator := NewRegistryGenerator("catalogdata", t.TempDir())
	generator.RegisterCatalog(catalog)
	return generator
}

func TestRegistryFileContent(t *testing.T) {
	generator := newTestRegistry(t)

	var buf bytes.Buffer
	if err := generator.File().Render(&buf); err != nil {
		t.Fatalf("Render failed: %v", err)
	}
	source := buf.String()

	for _, want := range []string{
		"// Code generated by manimeditor registry. DO NOT EDIT.",
		"package catalogdata",
		`"manimeditor/internal/metadata"`,
		`const EngineVersion = "0.18.1"`,
		"var Classes = []metadata.ClassDescriptor{",
		`"manim.mobject.geometry.arc.Circle"`,
		"metadata.KindNumeric",
		"metadata.KindColor",
		`"FadeIn"`,
		"func Catalog() *metadata.Catalog",
		"metadata.NewCatalogFromDescriptors(EngineVersion, Classes)",
	} {
		if !strings.Contains(source, want) {
			t.Errorf("Expected generated source to contain %q:\n%s", want, source)
		}
	}
}

func TestRegistryGenerateSavesFile(t *testing.T) {
	generator := newTestRegistry(t)

	if err := generator.Generate(); err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	content, err := os.ReadFile(filepath.Join(generator.OutputPath, "registry.go"))
	if err != nil {
		t.Fatalf("Registry not saved: %v", err)
	}
	if !strings.Contains(string(content), "package catalogdata") {
		t.Errorf("Unexpected registry content:\n%s", content)
	}
}

func TestKindConstant(t *testing.T) {
	cases := map[metadata.TypeKind]string{
		metadata.KindNumeric: "KindNumeric",
		metadata.KindString:  "KindString",
		metadata.KindColor:   "KindColor",
		metadata.KindOther:   "KindOther",
		"":                   "KindOther",
	}
	for kind, want := range cases {
		if got := kindConstant(kind); got != want {
			t.Errorf("kindConstant(%q) = %s, expected %s", kind, got, want)
		}
	}
}
