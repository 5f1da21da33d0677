package metadata

import (
	"errors"
	"fmt"
	"log"
	"sort"
	"strings"

	"github.com/hashicorp/go-version"
)

const effectSuffix = " [Effect]"

var ErrUnsupportedEngine = errors.New("engine version not supported")

// Catalog is the read-only registry of engine classes, built once and
// passed explicitly to whatever needs it.
type Catalog struct {
	engineVersion string
	classes       map[string]ClassDescriptor
	names         []string
}

type CatalogConfig struct {
	Logger *log.Logger
}

// Builds the catalog from a manifest: discovery, introspection and
// classification of every class under the manifest's root package.
func NewCatalog(reader *ManifestReader, cfg CatalogConfig) *Catalog {
	logger := cfg.Logger
	if logger == nil {
		logger = log.Default()
	}

	manifest := reader.Manifest()
	if _, ok := reader.TryGetClass(manifest.ElementBase); !ok {
		logger.Printf("catalog: element base %s is not in the manifest, no class will be drawable", manifest.ElementBase)
	}
	for _, module := range manifest.Modules {
		if module.Error != "" {
			logger.Printf("catalog: skipping module %s: %s", module.Name, module.Error)
		}
	}

	entries := reader.Discover(manifest.Root)
	descriptors := make([]ClassDescriptor, 0, len(entries))
	for _, entry := range entries {
		descriptors = append(descriptors, ClassDescriptor{
			Name:      entry.Name,
			Id:        entry.Id,
			Module:    entry.Module,
			Doc:       entry.Doc,
			IsElement: reader.IsElement(entry),
			IsEffect:  reader.IsEffect(entry.Name),
			Params:    reader.Introspect(entry),
		})
	}

	return NewCatalogFromDescriptors(manifest.EngineVersion, descriptors)
}

// Builds the catalog from already classified descriptors, such as a
// generated registry. Later duplicates of a name are ignored.
func NewCatalogFromDescriptors(engineVersion string, descriptors []ClassDescriptor) *Catalog {
	catalog := &Catalog{
		engineVersion: engineVersion,
		classes:       make(map[string]ClassDescriptor, len(descriptors)),
		names:         make([]string, 0, len(descriptors)),
	}

	for _, descriptor := range descriptors {
		if _, ok := catalog.classes[descriptor.Name]; ok {
			continue
		}
		catalog.classes[descriptor.Name] = descriptor
		catalog.names = append(catalog.names, descriptor.Name)
	}

	sort.SliceStable(catalog.names, func(i, j int) bool {
		a, b := strings.ToLower(catalog.names[i]), strings.ToLower(catalog.names[j])
		if a == b {
			return catalog.names[i] < catalog.names[j]
		}
		return a < b
	})

	return catalog
}

func (catalog *Catalog) EngineVersion() string {
	return catalog.engineVersion
}

func (catalog *Catalog) Len() int {
	return len(catalog.names)
}

func (catalog *Catalog) Lookup(name string) (ClassDescriptor, bool) {
	descriptor, ok := catalog.classes[name]
	return descriptor, ok
}

// Class names ordered case-insensitively.
func (catalog *Catalog) Names() []string {
	return append([]string(nil), catalog.names...)
}

func (catalog *Catalog) Descriptors() []ClassDescriptor {
	descriptors := make([]ClassDescriptor, 0, len(catalog.names))
	for _, name := range catalog.names {
		descriptors = append(descriptors, catalog.classes[name])
	}
	return descriptors
}

func (catalog *Catalog) IsElement(name string) bool {
	return catalog.classes[name].IsElement
}

func (catalog *Catalog) IsEffect(name string) bool {
	return catalog.classes[name].IsEffect
}

// Label is the list entry shown for a class: pure animations carry an
// effect suffix, drawables sharing a name with an animation do not.
func (catalog *Catalog) Label(name string) string {
	if catalog.classes[name].IsPlayable() {
		return name + effectSuffix
	}
	return name
}

func (catalog *Catalog) Labels() []string {
	labels := make([]string, 0, len(catalog.names))
	for _, name := range catalog.names {
		labels = append(labels, catalog.Label(name))
	}
	return labels
}

// Strips the presentation suffix added by Label.
func StripLabel(label string) string {
	return strings.TrimSuffix(label, effectSuffix)
}

// Search returns the index and name of the first class whose name contains
// query, ignoring case.
func (catalog *Catalog) Search(query string) (int, string, bool) {
	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" {
		return -1, "", false
	}

	for i, name := range catalog.names {
		if strings.Contains(strings.ToLower(name), query) {
			return i, name, true
		}
	}

	return -1, "", false
}

// Checks the catalog's engine version against a constraint such as ">= 0.18".
func (catalog *Catalog) CheckEngine(constraint string) error {
	if constraint == "" {
		return nil
	}

	constraints, err := version.NewConstraint(constraint)
	if err != nil {
		return fmt.Errorf("invalid engine constraint %q: %w", constraint, err)
	}

	engineVersion, err := version.NewVersion(catalog.engineVersion)
	if err != nil {
		return fmt.Errorf("%w: unparsable version %q", ErrUnsupportedEngine, catalog.engineVersion)
	}

	if !constraints.Check(engineVersion) {
		return fmt.Errorf("%w: %s does not satisfy %s", ErrUnsupportedEngine, engineVersion, constraint)
	}

	return nil
}
