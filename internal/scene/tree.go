package scene

import (
	"errors"
	"fmt"
	"log"

	"manimeditor/internal/metadata"
)

var ErrUnknownElement = errors.New("element is not part of the tree")

// Tree is the ordered collection of scene elements. Display names are
// unique and key each element's entry in the property store.
type Tree struct {
	elements []*SceneElement
	store    *Store
}

func NewTree(store *Store) *Tree {
	if store == nil {
		store = NewStore()
	}
	return &Tree{store: store}
}

// Restore rebuilds a tree from the store's entries in stored order. The
// class of each entry is resolved from its display name; entries whose
// class is not in the catalog stay in the store but not in the tree.
func Restore(catalog *metadata.Catalog, store *Store, logger *log.Logger) *Tree {
	if logger == nil {
		logger = log.Default()
	}

	tree := NewTree(store)
	for _, name := range store.Names() {
		class, ok := catalog.Lookup(BaseName(name))
		if !ok {
			logger.Printf("props: no catalog class for %q, entry kept but not shown", name)
			continue
		}
		props, _ := store.Properties(name)
		tree.elements = append(tree.elements, &SceneElement{
			DisplayName: name,
			Class:       class,
			Properties:  props,
		})
	}
	return tree
}

func (t *Tree) Store() *Store {
	return t.store
}

func (t *Tree) Len() int {
	return len(t.elements)
}

// Elements returns the elements in tree order.
func (t *Tree) Elements() []*SceneElement {
	return append([]*SceneElement(nil), t.elements...)
}

func (t *Tree) Find(displayName string) (*SceneElement, bool) {
	for _, element := range t.elements {
		if element.DisplayName == displayName {
			return element, true
		}
	}
	return nil, false
}

func (t *Tree) taken(name string) bool {
	if _, ok := t.Find(name); ok {
		return true
	}
	return t.store.Has(name)
}

// Add appends a new element of the given class with empty properties.
func (t *Tree) Add(class metadata.ClassDescriptor) *SceneElement {
	return t.AddWithProperties(class, NewProperties(), OriginEditor)
}

// AddWithProperties appends a new element carrying props.
func (t *Tree) AddWithProperties(class metadata.ClassDescriptor, props Properties, origin Origin) *SceneElement {
	element := &SceneElement{
		DisplayName: uniqueName(class.Name, t.taken),
		Class:       class,
		Properties:  props,
		Origin:      origin,
	}
	t.elements = append(t.elements, element)

	t.store.Register(element.DisplayName)
	if props.Len() > 0 {
		t.store.Put(element.DisplayName, &element.Properties)
	}
	return element
}

// Duplicate appends a copy of source named after its base name with a
// copy suffix.
func (t *Tree) Duplicate(source *SceneElement) (*SceneElement, error) {
	if !t.contains(source) {
		return nil, fmt.Errorf("%w: %s", ErrUnknownElement, source.DisplayName)
	}

	element := &SceneElement{
		DisplayName: copyName(BaseName(source.DisplayName), t.taken),
		Class:       source.Class,
		Properties:  source.Properties.Clone(),
	}
	t.elements = append(t.elements, element)
	t.store.Put(element.DisplayName, &element.Properties)
	return element, nil
}

// Delete removes the element from the tree and from the store.
func (t *Tree) Delete(element *SceneElement) error {
	for i, e := range t.elements {
		if e == element {
			t.elements = append(t.elements[:i:i], t.elements[i+1:]...)
			t.store.Remove(element.DisplayName)
			return nil
		}
	}
	return fmt.Errorf("%w: %s", ErrUnknownElement, element.DisplayName)
}

// SetProperty mutates the element in place and mirrors the value into the
// store. Values are not validated.
func (t *Tree) SetProperty(element *SceneElement, key string, value Value) error {
	if !t.contains(element) {
		return fmt.Errorf("%w: %s", ErrUnknownElement, element.DisplayName)
	}
	element.Properties.Set(key, value)
	t.store.SetProperty(element.DisplayName, key, value)
	return nil
}

// Clear removes every element from the tree and the store.
func (t *Tree) Clear() {
	for _, element := range t.elements {
		t.store.Remove(element.DisplayName)
	}
	t.elements = nil
}

func (t *Tree) contains(element *SceneElement) bool {
	for _, e := range t.elements {
		if e == element {
			return true
		}
	}
	return false
}
