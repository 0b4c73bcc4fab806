package registry

import (
	"errors"
	"fmt"
)

// Common errors
var (
	ErrNotFound  = errors.New("not found")
	ErrNoDefault = errors.New("default database is not defined")
	ErrEmptyName = errors.New("database name is required")
)

// Registry is the in-memory set of instances plus the default pointer.
// Instances keep their insertion order for display; lookups go through a map.
type Registry struct {
	store Store

	defaultName string
	order       []string
	items       map[string]*Instance
}

// New returns an empty registry persisted through store. A nil store is
// allowed; Save then fails.
func New(store Store) *Registry {
	return &Registry{
		store: store,
		items: make(map[string]*Instance),
	}
}

// Load reads the registry from store, or returns an empty registry when the
// store has nothing yet.
func Load(store Store) (*Registry, error) {
	r := New(store)
	if !store.Exists() {
		return r, nil
	}

	doc, err := store.Read()
	if err != nil {
		return nil, fmt.Errorf("reading registry: %w", err)
	}
	r.apply(doc)
	return r, nil
}

func (r *Registry) apply(doc Document) {
	for _, d := range doc.Databases {
		if d.Name == "" {
			continue
		}
		r.put(instanceFromDocument(d))
	}
	// A default naming a missing instance is dropped rather than kept dangling.
	if _, ok := r.items[doc.Default]; ok {
		r.defaultName = doc.Default
	}
}

// Save writes the registry through its store.
func (r *Registry) Save() error {
	if r.store == nil {
		return errors.New("registry has no store")
	}
	if err := r.store.Write(r.Document()); err != nil {
		return fmt.Errorf("saving registry: %w", err)
	}
	return nil
}

// Document returns the persisted form of the registry.
func (r *Registry) Document() Document {
	doc := Document{
		Default:   r.defaultName,
		Databases: make([]InstanceDocument, 0, len(r.order)),
	}
	for _, name := range r.order {
		doc.Databases = append(doc.Databases, instanceToDocument(r.items[name]))
	}
	return doc
}

// Default returns the default instance name, or "" when none is set.
func (r *Registry) Default() string {
	return r.defaultName
}

// SetDefault marks name as the default instance.
func (r *Registry) SetDefault(name string) error {
	if _, ok := r.items[name]; !ok {
		return fmt.Errorf("database %q: %w", name, ErrNotFound)
	}
	r.defaultName = name
	return nil
}

// IsDefault reports whether name is the default instance.
func (r *Registry) IsDefault(name string) bool {
	return r.defaultName != "" && r.defaultName == name
}

// Get resolves name, falling back to the default instance when name is empty.
func (r *Registry) Get(name string) (*Instance, error) {
	if name == "" {
		if r.defaultName == "" {
			return nil, ErrNoDefault
		}
		inst, ok := r.items[r.defaultName]
		if !ok {
			return nil, fmt.Errorf("default database %q: %w", r.defaultName, ErrNotFound)
		}
		return inst, nil
	}

	inst, ok := r.items[name]
	if !ok {
		return nil, fmt.Errorf("database %q: %w", name, ErrNotFound)
	}
	return inst, nil
}

// Lookup resolves an exact name with no default fallback.
func (r *Registry) Lookup(name string) (*Instance, error) {
	if name == "" {
		return nil, ErrEmptyName
	}
	return r.Get(name)
}

// Has reports whether an instance named name exists.
func (r *Registry) Has(name string) bool {
	_, ok := r.items[name]
	return ok
}

// Upsert inserts inst, or replaces the entry with the same name in place.
// The first instance added to a registry without a default becomes the default.
func (r *Registry) Upsert(inst *Instance) {
	r.put(inst)
	if r.defaultName == "" {
		r.defaultName = inst.Name
	}
}

func (r *Registry) put(inst *Instance) {
	if _, ok := r.items[inst.Name]; !ok {
		r.order = append(r.order, inst.Name)
	}
	r.items[inst.Name] = inst
}

// Remove deletes the instance named name. Removing the default clears it.
func (r *Registry) Remove(name string) error {
	if _, ok := r.items[name]; !ok {
		return fmt.Errorf("database %q: %w", name, ErrNotFound)
	}
	delete(r.items, name)
	for i, n := range r.order {
		if n == name {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	if r.defaultName == name {
		r.defaultName = ""
	}
	return nil
}

// Instances returns all instances in insertion order.
func (r *Registry) Instances() []*Instance {
	out := make([]*Instance, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.items[name])
	}
	return out
}

// Names returns all instance names in insertion order.
func (r *Registry) Names() []string {
	return append([]string(nil), r.order...)
}

// Len returns the number of instances.
func (r *Registry) Len() int {
	return len(r.order)
}
