package editor

import (
	"context"
	"fmt"

	"manimeditor/internal/generation"
	"manimeditor/internal/importer"
	"manimeditor/internal/render"
	"manimeditor/internal/scene"
)

// Code renders the scene and writes it to the script file.
func (s *Session) Code() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.code()
}

func (s *Session) code() (string, error) {
	code, err := s.generator.Generate(s.tree, s.settings)
	if err != nil {
		return code, s.fail("code", err)
	}
	return code, nil
}

// Preview opens the scene in the engine's interactive window.
func (s *Session) Preview(ctx context.Context) error {
	s.mu.Lock()
	code, err := s.code()
	job := render.Job{
		Mode:      render.ModePreview,
		Source:    generation.WithInteractiveEmbed(code),
		SceneName: s.sceneName(),
	}
	s.mu.Unlock()
	if err != nil {
		return err
	}
	return s.run(ctx, job)
}

// Render writes a video of the scene. An empty resolution keeps the
// session's current one.
func (s *Session) Render(ctx context.Context, resolution string) error {
	s.mu.Lock()
	if resolution != "" {
		s.resolution = render.ParseResolution(resolution)
	}
	code, err := s.code()
	job := render.Job{
		Mode:       render.ModeRender,
		Source:     code,
		SceneName:  s.sceneName(),
		Resolution: s.resolution,
	}
	s.mu.Unlock()
	if err != nil {
		return err
	}
	return s.run(ctx, job)
}

func (s *Session) run(ctx context.Context, job render.Job) error {
	if s.renderer == nil {
		return s.fail(job.Mode.String(), ErrNoRenderer)
	}
	if err := s.renderer.Run(ctx, job); err != nil {
		return s.fail(job.Mode.String(), err)
	}
	return nil
}

// The template's own scene class wins over the configured name.
func (s *Session) sceneName() string {
	if s.settings.Template != "" {
		if name, ok := generation.SceneClassName(s.settings.Template); ok {
			return name
		}
	}
	return s.generator.SceneName
}

// Import replaces the tree with the classes called in source, which then
// becomes the template of generated code. Unparsable source leaves the
// session unchanged.
func (s *Session) Import(ctx context.Context, source string) (int, error) {
	result, err := s.importer.Import(ctx, source)
	if err != nil {
		return 0, s.fail("import", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.adopt(result)
	s.logger.Printf("import: %d element(s) recognised", len(result.Elements))
	if _, err := s.code(); err != nil {
		return len(result.Elements), err
	}
	return len(result.Elements), s.persist()
}

func (s *Session) adopt(result importer.Result) {
	s.tree.Clear()
	for _, element := range result.Elements {
		s.tree.AddWithProperties(element.Class, element.Properties, scene.OriginTemplate)
	}
	s.settings.Template = result.Source
}

// Generate asks the assistant for a scene and imports the answer.
func (s *Session) Generate(ctx context.Context, prompt string) (int, error) {
	if s.assistant == nil {
		return 0, s.fail("assistant", ErrNoAssistant)
	}

	source, err := s.assistant.Generate(ctx, prompt)
	if err != nil {
		return 0, s.fail("assistant", fmt.Errorf("generate: %w", err))
	}
	return s.Import(ctx, source)
}

// Template returns the imported source generated code is based on.
func (s *Session) Template() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.settings.Template
}

// ClearTemplate drops the imported source. Its elements stay in the tree
// and are generated like any other element from then on.
func (s *Session) ClearTemplate() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.settings.Template = ""
	for _, element := range s.tree.Elements() {
		element.Origin = scene.OriginEditor
	}
	s.logger.Printf("template: detached")
	return s.persist()
}
