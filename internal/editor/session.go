// Package editor ties the catalog, the scene tree, code generation and the
// external services into the operations a front end drives.
package editor

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"

	"manimeditor/internal/generation"
	"manimeditor/internal/importer"
	"manimeditor/internal/metadata"
	"manimeditor/internal/render"
	"manimeditor/internal/scene"
	"manimeditor/internal/sound"
)

var (
	ErrUnknownClass   = errors.New("class not in catalog")
	ErrNoAssistant    = errors.New("no assistant configured")
	ErrNoRenderer     = errors.New("no renderer configured")
	ErrUnknownElement = scene.ErrUnknownElement
)

// Renderer runs engine jobs.
type Renderer interface {
	Run(ctx context.Context, job render.Job) error
}

// Assistant writes scene source from a prompt.
type Assistant interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

type Config struct {
	PropsPath string
	// Imported source and its elements, kept so a later session generates
	// from the same template.
	TemplatePath string
	ScriptPath   string
	SceneName    string
	SoundPath    string
	Resolution   render.Resolution
	Logger       *log.Logger
}

func DefaultConfig() Config {
	return Config{
		PropsPath:    "props.json",
		TemplatePath: "template.json",
		ScriptPath:   "script.py",
		SceneName:    "Output",
		Resolution:   render.DefaultResolution,
	}
}

// Session owns one edited scene. All methods are safe for concurrent use;
// engine jobs run outside the session lock.
type Session struct {
	mu           sync.Mutex
	catalog      *metadata.Catalog
	tree         *scene.Tree
	generator    generation.Generator
	importer     *importer.Importer
	renderer     Renderer
	assistant    Assistant
	settings     generation.Settings
	resolution   render.Resolution
	propsPath    string
	templatePath string
	logger       *log.Logger
}

// NewSession restores the tree from the property file and the template
// from the template file. Either service may be nil; the operations
// needing it then fail.
func NewSession(catalog *metadata.Catalog, renderer Renderer, assistant Assistant, cfg Config) *Session {
	logger := cfg.Logger
	if logger == nil {
		logger = log.Default()
	}
	resolution := cfg.Resolution
	if resolution.Width <= 0 || resolution.Height <= 0 {
		resolution = render.DefaultResolution
	}

	store := scene.LoadStore(cfg.PropsPath, logger)
	tree := scene.Restore(catalog, store, logger)
	settings := generation.Settings{SoundPath: cfg.SoundPath}
	if state, ok := loadTemplate(cfg.TemplatePath, logger); ok {
		state.apply(tree)
		settings.Template = state.Source
	}

	return &Session{
		catalog:      catalog,
		tree:         tree,
		generator:    generation.NewGenerator(cfg.SceneName, cfg.ScriptPath),
		importer:     importer.New(catalog, importer.Config{Logger: logger}),
		renderer:     renderer,
		assistant:    assistant,
		settings:     settings,
		resolution:   resolution,
		propsPath:    cfg.PropsPath,
		templatePath: cfg.TemplatePath,
		logger:       logger,
	}
}

func (s *Session) Catalog() *metadata.Catalog {
	return s.catalog
}

// Elements returns snapshots of the tree in order.
func (s *Session) Elements() []ElementView {
	s.mu.Lock()
	defer s.mu.Unlock()

	elements := s.tree.Elements()
	views := make([]ElementView, len(elements))
	for i, element := range elements {
		views[i] = s.view(element)
	}
	return views
}

func (s *Session) Element(displayName string) (ElementView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	element, err := s.find(displayName)
	if err != nil {
		return ElementView{}, err
	}
	return s.view(element), nil
}

// Add appends an element of the named class. Presentation labels are
// accepted in place of the class name.
func (s *Session) Add(className string) (ElementView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	class, ok := s.catalog.Lookup(metadata.StripLabel(className))
	if !ok {
		return ElementView{}, s.fail("add", fmt.Errorf("%w: %s", ErrUnknownClass, className))
	}

	element := s.tree.Add(class)
	return s.view(element), s.persist()
}

func (s *Session) Duplicate(displayName string) (ElementView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	source, err := s.find(displayName)
	if err != nil {
		return ElementView{}, s.fail("duplicate", err)
	}
	element, err := s.tree.Duplicate(source)
	if err != nil {
		return ElementView{}, s.fail("duplicate", err)
	}
	return s.view(element), s.persist()
}

func (s *Session) Delete(displayName string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	element, err := s.find(displayName)
	if err != nil {
		return s.fail("delete", err)
	}
	if err := s.tree.Delete(element); err != nil {
		return s.fail("delete", err)
	}
	return s.persist()
}

// Save writes the property and template files.
func (s *Session) Save() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.persist()
}

// Export writes every stored property mapping to path, pretty-printed.
func (s *Session) Export(path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.tree.Store().Export(path); err != nil {
		return s.fail("export", err)
	}
	s.logger.Printf("export: properties written to %s", path)
	return nil
}

// Load replaces the stored mappings with the content of path and rebuilds
// the tree from it, dropping any template. Nothing changes when the file
// cannot be used.
func (s *Session) Load(path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	store := s.tree.Store()
	if err := store.Import(path); err != nil {
		return s.fail("load", err)
	}
	s.tree = scene.Restore(s.catalog, store, s.logger)
	s.settings.Template = ""
	s.logger.Printf("load: %d element(s) from %s", s.tree.Len(), path)
	return s.persist()
}

// SetSound attaches the sound file to the scene after checking that it
// decodes. An empty path removes the sound.
func (s *Session) SetSound(path string) (sound.Info, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if path == "" {
		s.settings.SoundPath = ""
		return sound.Info{}, nil
	}

	info, err := sound.Inspect(path)
	if err != nil {
		return sound.Info{}, s.fail("sound", err)
	}
	s.settings.SoundPath = path
	s.logger.Printf("sound: %s", info)
	return info, nil
}

func (s *Session) SoundPath() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.settings.SoundPath
}

func (s *Session) find(displayName string) (*scene.SceneElement, error) {
	element, ok := s.tree.Find(displayName)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownElement, displayName)
	}
	return element, nil
}

func (s *Session) persist() error {
	if s.propsPath != "" {
		if err := s.tree.Store().Save(s.propsPath); err != nil {
			return s.fail("save", err)
		}
	}
	if err := s.persistTemplate(); err != nil {
		return s.fail("save", err)
	}
	return nil
}

// Every failed operation leaves one log line.
func (s *Session) fail(operation string, err error) error {
	s.logger.Printf("%s: %v", operation, err)
	return err
}
