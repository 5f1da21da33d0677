// Package render drives the animation engine's command line for live
// previews and file renders.
package render

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
)

type Mode int

const (
	// Interactive window through the OpenGL renderer.
	ModePreview Mode = iota
	// Video file at the job's resolution.
	ModeRender
)

func (m Mode) String() string {
	if m == ModePreview {
		return "preview"
	}
	return "render"
}

type Resolution struct {
	Width  int
	Height int
}

var DefaultResolution = Resolution{Width: 1920, Height: 1080}

// ParseResolution reads "WxH". Anything malformed yields the default.
func ParseResolution(text string) Resolution {
	width, height, found := strings.Cut(strings.ToLower(strings.TrimSpace(text)), "x")
	if !found {
		return DefaultResolution
	}
	w, errW := strconv.Atoi(strings.TrimSpace(width))
	h, errH := strconv.Atoi(strings.TrimSpace(height))
	if errW != nil || errH != nil || w <= 0 || h <= 0 {
		return DefaultResolution
	}
	return Resolution{Width: w, Height: h}
}

func (r Resolution) String() string {
	return fmt.Sprintf("%dx%d", r.Width, r.Height)
}

type Job struct {
	Mode       Mode
	Source     string
	SceneName  string
	Resolution Resolution
}

// LogSink receives the engine's merged output one line at a time.
type LogSink func(line string)

type Config struct {
	Engine string
	// Working directory of the engine; scripts are staged here as well.
	WorkDir string
	Logger  *log.Logger
	Sink    LogSink
}

func DefaultConfig() Config {
	return Config{Engine: "manim"}
}

// Runner executes one job at a time. Every job renders its own copy of
// the script so that a job never reads a file another one is writing.
type Runner struct {
	mu      sync.Mutex
	engine  string
	workDir string
	logger  *log.Logger
	sink    LogSink
}

func NewRunner(cfg Config) *Runner {
	logger := cfg.Logger
	if logger == nil {
		logger = log.Default()
	}
	engine := cfg.Engine
	if engine == "" {
		engine = DefaultConfig().Engine
	}
	sink := cfg.Sink
	if sink == nil {
		sink = func(line string) { logger.Print(line) }
	}
	return &Runner{
		engine:  engine,
		workDir: cfg.WorkDir,
		logger:  logger,
		sink:    sink,
	}
}

// Arguments builds the engine command line for job rendering scriptPath.
func Arguments(job Job, scriptPath string) []string {
	if job.Mode == ModePreview {
		return []string{scriptPath, job.SceneName, "--renderer=opengl", "--enable_gui", "-p"}
	}

	resolution := job.Resolution
	if resolution.Width <= 0 || resolution.Height <= 0 {
		resolution = DefaultResolution
	}
	return []string{scriptPath, job.SceneName, "-pqm", "--resolution", fmt.Sprintf("%d,%d", resolution.Width, resolution.Height)}
}

// Run blocks until the engine exits, forwarding its output to the sink.
// A job started while another is running waits for it to finish.
func (runner *Runner) Run(ctx context.Context, job Job) error {
	runner.mu.Lock()
	defer runner.mu.Unlock()

	scriptPath, err := runner.stage(job.Source)
	if err != nil {
		return err
	}
	defer os.Remove(scriptPath)

	args := Arguments(job, scriptPath)
	runner.logger.Printf("render: %s %s", runner.engine, strings.Join(args, " "))

	cmd := exec.CommandContext(ctx, runner.engine, args...)
	cmd.Dir = runner.workDir

	reader, writer := io.Pipe()
	cmd.Stdout = writer
	cmd.Stderr = writer

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start %s: %w", runner.engine, err)
	}

	done := make(chan error, 1)
	go func() {
		err := cmd.Wait()
		writer.Close()
		done <- err
	}()

	scanner := bufio.NewScanner(reader)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		runner.sink(scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		runner.logger.Printf("render: output stream: %v", err)
		_, _ = io.Copy(io.Discard, reader)
	}

	if err := <-done; err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			runner.logger.Printf("render: %s %s exited with %d", runner.engine, job.Mode, exitErr.ExitCode())
			return nil
		}
		return fmt.Errorf("%s %s: %w", runner.engine, job.Mode, err)
	}
	return nil
}

func (runner *Runner) stage(source string) (string, error) {
	file, err := os.CreateTemp(runner.workDir, "scene-*.py")
	if err != nil {
		return "", fmt.Errorf("stage script: %w", err)
	}

	_, err = file.WriteString(source)
	if closeErr := file.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		os.Remove(file.Name())
		return "", fmt.Errorf("stage script: %w", err)
	}
	return filepath.Abs(file.Name())
}
