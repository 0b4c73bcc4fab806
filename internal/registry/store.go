package registry

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"

	"github.com/wsdb/wsmongo/internal/util"
)

// Store is the durable backing of a Registry.
type Store interface {
	// Exists reports whether a document has been written before.
	Exists() bool
	// Read returns the stored document.
	Read() (Document, error)
	// Write replaces the stored document, creating its location if needed.
	Write(doc Document) error
}

// FileStore keeps the registry as an indented JSON file.
//
// Writes go to a temp file in the same directory and are renamed into place
// while holding an advisory lock on "<path>.lock", so a crash mid-write leaves
// the previous document intact.
type FileStore struct {
	Path string
}

// NewFileStore returns a store for the JSON document at path.
func NewFileStore(path string) *FileStore {
	return &FileStore{Path: path}
}

// Exists implements Store.
func (s *FileStore) Exists() bool {
	_, err := os.Stat(s.Path)
	return err == nil
}

// Read implements Store.
func (s *FileStore) Read() (Document, error) {
	var doc Document
	data, err := os.ReadFile(s.Path)
	if err != nil {
		return doc, err
	}
	if len(data) == 0 {
		return Document{Databases: []InstanceDocument{}}, nil
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		return doc, fmt.Errorf("parsing %s: %w", s.Path, err)
	}
	if doc.Databases == nil {
		doc.Databases = []InstanceDocument{}
	}
	return doc, nil
}

// Write implements Store.
func (s *FileStore) Write(doc Document) error {
	if doc.Databases == nil {
		doc.Databases = []InstanceDocument{}
	}
	if err := os.MkdirAll(filepath.Dir(s.Path), 0755); err != nil {
		return fmt.Errorf("creating config dir: %w", err)
	}

	lock := flock.New(s.Path + ".lock")
	if err := lock.Lock(); err != nil {
		return fmt.Errorf("locking %s: %w", s.Path, err)
	}
	defer func() { _ = lock.Unlock() }()

	// Credentials live in this file, so it stays owner-only.
	return util.AtomicWriteJSON(s.Path, doc, 0600)
}

// MemoryStore is a Store kept in memory. Writes counts successful writes.
type MemoryStore struct {
	Doc     *Document
	Writes  int
	WriteFn func(Document) error
}

// Exists implements Store.
func (m *MemoryStore) Exists() bool {
	return m.Doc != nil
}

// Read implements Store.
func (m *MemoryStore) Read() (Document, error) {
	if m.Doc == nil {
		return Document{}, os.ErrNotExist
	}
	return cloneDocument(*m.Doc), nil
}

// Write implements Store.
func (m *MemoryStore) Write(doc Document) error {
	if m.WriteFn != nil {
		if err := m.WriteFn(doc); err != nil {
			return err
		}
	}
	c := cloneDocument(doc)
	m.Doc = &c
	m.Writes++
	return nil
}

func cloneDocument(doc Document) Document {
	c := Document{Default: doc.Default, Databases: make([]InstanceDocument, len(doc.Databases))}
	copy(c.Databases, doc.Databases)
	return c
}
