package render

import (
	"context"
	"io"
	"log"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"testing"
)

func fakeEngine(t *testing.T, body string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("fake engine is a shell script")
	}

	path := filepath.Join(t.TempDir(), "fake-manim")
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"+body+"\n"), 0o755); err != nil {
		t.Fatalf("Failed to write fake engine: %v", err)
	}
	return path
}

type lineRecorder struct {
	mu    sync.Mutex
	lines []string
}

func (r *lineRecorder) sink(line string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lines = append(r.lines, line)
}

func (r *lineRecorder) all() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.lines...)
}

func newTestRunner(t *testing.T, engine string, recorder *lineRecorder) *Runner {
	t.Helper()
	return NewRunner(Config{
		Engine:  engine,
		WorkDir: t.TempDir(),
		Logger:  log.New(io.Discard, "", 0),
		Sink:    recorder.sink,
	})
}

func TestParseResolution(t *testing.T) {
	cases := map[string]Resolution{
		"1280x720":  {1280, 720},
		" 640X480 ": {640, 480},
		"":          DefaultResolution,
		"1280":      DefaultResolution,
		"axb":       DefaultResolution,
		"0x100":     DefaultResolution,
	}
	for text, want := range cases {
		if got := ParseResolution(text); got != want {
			t.Errorf("ParseResolution(%q) = %v, expected %v", text, got, want)
		}
	}
}

func TestArguments(t *testing.T) {
	preview := Arguments(Job{Mode: ModePreview, SceneName: "Output"}, "/tmp/s.py")
	if strings.Join(preview, " ") != "/tmp/s.py Output --renderer=opengl --enable_gui -p" {
		t.Errorf("Unexpected preview arguments %v", preview)
	}

	render := Arguments(Job{Mode: ModeRender, SceneName: "Output", Resolution: Resolution{1280, 720}}, "/tmp/s.py")
	if strings.Join(render, " ") != "/tmp/s.py Output -pqm --resolution 1280,720" {
		t.Errorf("Unexpected render arguments %v", render)
	}

	fallback := Arguments(Job{Mode: ModeRender, SceneName: "Output"}, "/tmp/s.py")
	if fallback[len(fallback)-1] != "1920,1080" {
		t.Errorf("Expected default resolution, got %v", fallback)
	}
}

func TestRunStreamsMergedOutput(t *testing.T) {
	engine := fakeEngine(t, `echo "args: $*"
echo "to stderr" 1>&2
cat "$1"`)
	recorder := &lineRecorder{}
	runner := newTestRunner(t, engine, recorder)

	job := Job{Mode: ModeRender, Source: "line one\nline two", SceneName: "Output", Resolution: Resolution{640, 480}}
	if err := runner.Run(context.Background(), job); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	lines := recorder.all()
	if len(lines) != 4 {
		t.Fatalf("Expected 4 lines, got %q", lines)
	}
	if !strings.HasSuffix(lines[0], " Output -pqm --resolution 640,480") {
		t.Errorf("Unexpected arguments line %q", lines[0])
	}
	if lines[1] != "to stderr" || lines[2] != "line one" || lines[3] != "line two" {
		t.Errorf("Unexpected output %q", lines)
	}

	scriptPath := strings.Fields(lines[0])[1]
	if _, err := os.Stat(scriptPath); !os.IsNotExist(err) {
		t.Errorf("Expected staged script %s to be removed", scriptPath)
	}
}

func TestRunIgnoresExitCode(t *testing.T) {
	engine := fakeEngine(t, `echo "Traceback"
exit 3`)
	recorder := &lineRecorder{}
	runner := newTestRunner(t, engine, recorder)

	if err := runner.Run(context.Background(), Job{Mode: ModePreview, SceneName: "Output"}); err != nil {
		t.Errorf("Expected engine failure to be reported through output only, got %v", err)
	}
	if lines := recorder.all(); len(lines) != 1 || lines[0] != "Traceback" {
		t.Errorf("Unexpected output %q", lines)
	}
}

func TestRunMissingEngine(t *testing.T) {
	recorder := &lineRecorder{}
	runner := newTestRunner(t, filepath.Join(t.TempDir(), "does-not-exist"), recorder)

	if err := runner.Run(context.Background(), Job{Mode: ModePreview, SceneName: "Output"}); err == nil {
		t.Error("Expected an error for a missing engine binary")
	}
}

func TestConcurrentRunsAreSerialized(t *testing.T) {
	engine := fakeEngine(t, `echo "start $(cat "$1")"
sleep 0.2
echo "end $(cat "$1")"`)
	recorder := &lineRecorder{}
	runner := newTestRunner(t, engine, recorder)

	var wg sync.WaitGroup
	errs := make(chan error, 2)
	for _, source := range []string{"a", "b"} {
		wg.Add(1)
		go func(source string) {
			defer wg.Done()
			errs <- runner.Run(context.Background(), Job{Mode: ModeRender, Source: source, SceneName: "Output"})
		}(source)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			t.Fatalf("Job failed: %v", err)
		}
	}

	lines := recorder.all()
	if len(lines) != 4 {
		t.Fatalf("Expected 4 lines, got %q", lines)
	}
	for i := 0; i < len(lines); i += 2 {
		job := strings.TrimPrefix(lines[i], "start ")
		if lines[i+1] != "end "+job {
			t.Errorf("Jobs interleaved: %q", lines)
			break
		}
	}
}
