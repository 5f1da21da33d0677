package scene

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"

	"github.com/iancoleman/orderedmap"

	"manimeditor/internal"
)

// Store is the flat on-disk property mapping: display name to parameter
// name to value, kept in insertion order.
type Store struct {
	data *orderedmap.OrderedMap
}

func NewStore() *Store {
	return &Store{data: orderedmap.New()}
}

// LoadStore reads the store from path. A missing or corrupt file yields
// an empty store.
func LoadStore(path string, logger *log.Logger) *Store {
	if logger == nil {
		logger = log.Default()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			logger.Printf("props: could not read %s: %v", path, err)
		}
		return NewStore()
	}

	store, err := decodeStore(data)
	if err != nil {
		logger.Printf("props: ignoring corrupt %s: %v", path, err)
		return NewStore()
	}
	return store
}

func decodeStore(data []byte) (*Store, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || data[0] != '{' {
		return nil, fmt.Errorf("expected a JSON object")
	}

	decoded := orderedmap.New()
	if err := json.Unmarshal(data, decoded); err != nil {
		return nil, err
	}

	store := NewStore()
	for _, name := range decoded.Keys() {
		value, _ := decoded.Get(name)
		entry, ok := asOrderedMap(value)
		if !ok {
			return nil, fmt.Errorf("entry %q is not an object", name)
		}
		store.data.Set(name, entry)
	}
	return store, nil
}

func asOrderedMap(value any) (*orderedmap.OrderedMap, bool) {
	switch v := value.(type) {
	case *orderedmap.OrderedMap:
		return v, true
	case orderedmap.OrderedMap:
		normalized := orderedmap.New()
		for _, key := range v.Keys() {
			item, _ := v.Get(key)
			normalized.Set(key, item)
		}
		return normalized, true
	}
	return nil, false
}

// Save overwrites path with the whole store.
func (s *Store) Save(path string) error {
	data, err := json.Marshal(s.data)
	if err != nil {
		return fmt.Errorf("encode props: %w", err)
	}
	return internal.WriteFileAtomic(path, data)
}

// Export writes the whole store pretty-printed.
func (s *Store) Export(path string) error {
	data, err := json.MarshalIndent(s.data, "", "    ")
	if err != nil {
		return fmt.Errorf("encode props: %w", err)
	}
	return internal.WriteFileAtomic(path, append(data, '\n'))
}

// Import replaces the store's content with the mapping stored in path.
// The store is left unchanged when the file cannot be used.
func (s *Store) Import(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read props: %w", err)
	}

	imported, err := decodeStore(data)
	if err != nil {
		return fmt.Errorf("decode props: %w", err)
	}

	s.data = imported.data
	return nil
}

func (s *Store) Names() []string {
	return s.data.Keys()
}

func (s *Store) Has(name string) bool {
	_, ok := s.data.Get(name)
	return ok
}

// Register adds an empty entry for name unless one exists.
func (s *Store) Register(name string) {
	if !s.Has(name) {
		s.data.Set(name, orderedmap.New())
	}
}

func (s *Store) Remove(name string) {
	s.data.Delete(name)
}

func (s *Store) Properties(name string) (Properties, bool) {
	value, ok := s.data.Get(name)
	if !ok {
		return Properties{}, false
	}
	entry, ok := asOrderedMap(value)
	if !ok {
		return Properties{}, false
	}
	return propertiesFromJSON(entry), true
}

// Put replaces the entry for name, keeping its position.
func (s *Store) Put(name string, props *Properties) {
	s.data.Set(name, propertiesToJSON(props))
}

func (s *Store) SetProperty(name string, key string, value Value) {
	props, _ := s.Properties(name)
	props.Set(key, value)
	s.Put(name, &props)
}
