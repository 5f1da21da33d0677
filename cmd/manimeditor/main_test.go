package main

import (
	"bytes"
	"encoding/json"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func newTestApp(t *testing.T) (*app, *bytes.Buffer) {
	t.Helper()
	dir := t.TempDir()
	opts := options{
		propsPath:    filepath.Join(dir, "props.json"),
		templatePath: filepath.Join(dir, "template.json"),
		scriptPath:   filepath.Join(dir, "script.py"),
		sceneName:    "Output",
		engine:       "manim",
		resolution:   "1920x1080",
	}

	application, err := newApp(opts, log.New(io.Discard, "", 0))
	if err != nil {
		t.Fatalf("newApp failed: %v", err)
	}
	out := &bytes.Buffer{}
	application.out = out
	return application, out
}

func TestCommandNamesCoverCommands(t *testing.T) {
	names := commandNames()
	if len(names) != len(commands) {
		t.Fatalf("Expected %d command names, got %d", len(commands), len(names))
	}
	for _, name := range names {
		if _, ok := commands[name]; !ok {
			t.Errorf("Command %q listed but not defined", name)
		}
	}
}

func TestEditingCommands(t *testing.T) {
	application, out := newTestApp(t)

	steps := []struct {
		name string
		args []string
	}{
		{"add", []string{"Circle"}},
		{"set", []string{"Circle", "radius", "2"}},
		{"add", []string{"FadeIn", "[Effect]"}},
		{"dup", []string{"Circle"}},
		{"rm", []string{"Circle_copy"}},
	}
	for _, step := range steps {
		if err := commands[step.name].run(application, step.args); err != nil {
			t.Fatalf("%s %v failed: %v", step.name, step.args, err)
		}
	}

	out.Reset()
	if err := runCode(application, nil); err != nil {
		t.Fatalf("code failed: %v", err)
	}
	code := out.String()
	if !strings.Contains(code, "circle = Circle(radius=2)") || !strings.Contains(code, "self.play(FadeIn())") {
		t.Errorf("Unexpected code:\n%s", code)
	}
	if strings.Contains(code, "circle_copy") {
		t.Errorf("Deleted element still generated:\n%s", code)
	}

	if _, err := os.Stat(application.opts.propsPath); err != nil {
		t.Errorf("Property file not written: %v", err)
	}
}

// Every command runs in its own process, so the imported template has to
// survive between two apps sharing the same files.
func TestImportedTemplateAcrossInvocations(t *testing.T) {
	first, _ := newTestApp(t)
	template := "from manim import *\n\nclass Demo(Scene):\n" +
		"    def construct(self):\n" +
		"        c = Circle(radius=2)\n" +
		"        self.play(Rotate(c, angle=PI))\n" +
		"        self.wait(3)\n"
	sourcePath := filepath.Join(t.TempDir(), "demo.py")
	if err := os.WriteFile(sourcePath, []byte(template), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := runImport(first, []string{sourcePath}); err != nil {
		t.Fatalf("import failed: %v", err)
	}

	second, err := newApp(first.opts, log.New(io.Discard, "", 0))
	if err != nil {
		t.Fatalf("newApp failed: %v", err)
	}
	out := &bytes.Buffer{}
	second.out = out
	if err := runCode(second, nil); err != nil {
		t.Fatalf("code failed: %v", err)
	}

	code := out.String()
	if !strings.HasPrefix(code, "from manim import *\n\nclass Demo(Scene):") || !strings.Contains(code, "self.wait(3)") {
		t.Errorf("Template lost between invocations:\n%s", code)
	}
	if strings.Contains(code, "circle = Circle") {
		t.Errorf("Template element generated twice:\n%s", code)
	}

	if err := runDetach(second, nil); err != nil {
		t.Fatalf("detach failed: %v", err)
	}
	third, err := newApp(first.opts, log.New(io.Discard, "", 0))
	if err != nil {
		t.Fatalf("newApp failed: %v", err)
	}
	out.Reset()
	third.out = out
	if err := runCode(third, nil); err != nil {
		t.Fatalf("code failed: %v", err)
	}
	if code := out.String(); !strings.HasPrefix(code, "from manim import *\n\nclass Output(Scene):") ||
		!strings.Contains(code, "circle = Circle(radius=2)") {
		t.Errorf("Expected synthesized code after detach:\n%s", code)
	}
}

func TestCommandArgumentErrors(t *testing.T) {
	application, _ := newTestApp(t)

	if err := runSet(application, []string{"Circle"}); err == nil || !strings.Contains(err.Error(), "usage") {
		t.Errorf("Expected usage error, got %v", err)
	}
	if err := runParams(application, []string{"Hexagon"}); err == nil {
		t.Error("Expected an error for an unknown class")
	}
	if err := runFetchManifest(application, nil); err == nil {
		t.Error("Expected an error without -base")
	}
}

func TestCatalogAndParams(t *testing.T) {
	application, out := newTestApp(t)

	if err := runCatalog(application, []string{"fade"}); err != nil {
		t.Fatalf("catalog failed: %v", err)
	}
	if !strings.Contains(out.String(), "FadeIn") {
		t.Errorf("Expected FadeIn match, got %q", out.String())
	}

	out.Reset()
	if err := runParams(application, []string{"Circle"}); err != nil {
		t.Fatalf("params failed: %v", err)
	}
	if !strings.Contains(out.String(), "radius") {
		t.Errorf("Expected radius parameter, got:\n%s", out.String())
	}
}

func TestSchemaCommand(t *testing.T) {
	application, _ := newTestApp(t)
	dir := t.TempDir()

	for _, kind := range []string{"manifest", "props"} {
		path := filepath.Join(dir, kind, "schema.json")
		if err := runSchema(application, []string{"-kind", kind, "-out", path}); err != nil {
			t.Fatalf("schema %s failed: %v", kind, err)
		}

		data, err := os.ReadFile(path)
		if err != nil {
			t.Fatalf("Schema not written: %v", err)
		}
		var document map[string]any
		if err := json.Unmarshal(data, &document); err != nil {
			t.Errorf("Schema %s is not valid JSON: %v", kind, err)
		}
		if _, err := os.Stat(path + ".tmp"); !os.IsNotExist(err) {
			t.Errorf("Temporary schema file left behind for %s", kind)
		}
	}

	if _, err := buildSchema("other"); err == nil {
		t.Error("Expected an error for an unknown schema kind")
	}
}

func TestRegistryCommand(t *testing.T) {
	application, _ := newTestApp(t)
	dir := t.TempDir()

	if err := runRegistry(application, []string{"-package", "classes", "-out", dir}); err != nil {
		t.Fatalf("registry failed: %v", err)
	}
	data, err := os.ReadFile(filepath.Join(dir, "registry.go"))
	if err != nil {
		t.Fatalf("Registry not written: %v", err)
	}
	if !strings.Contains(string(data), "package classes") || !strings.Contains(string(data), "\"Circle\"") {
		t.Errorf("Unexpected registry:\n%s", data)
	}
}
