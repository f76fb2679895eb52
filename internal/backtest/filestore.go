package backtest

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// FileStore persists the whole document as one JSON file. Writes go
// through a temp file and rename so a crash never leaves a half-written
// history behind.
type FileStore struct {
	mu   sync.Mutex
	path string
}

// NewFileStore creates a file store at path, creating parent directories
// as needed.
func NewFileStore(path string) (*FileStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create store directory: %w", err)
	}
	return &FileStore{path: path}, nil
}

func (fs *FileStore) load() (*Document, error) {
	data, err := os.ReadFile(fs.path)
	if os.IsNotExist(err) {
		return &Document{Signals: []Trade{}}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read trade document: %w", err)
	}

	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode trade document: %w", err)
	}
	if doc.Signals == nil {
		doc.Signals = []Trade{}
	}
	return &doc, nil
}

func (fs *FileStore) save(doc *Document) error {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("encode trade document: %w", err)
	}

	tmp := fs.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write trade document: %w", err)
	}
	if err := os.Rename(tmp, fs.path); err != nil {
		return fmt.Errorf("replace trade document: %w", err)
	}
	return nil
}

// LoadAll returns the persisted trade history in insertion order
func (fs *FileStore) LoadAll(_ context.Context) ([]Trade, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	doc, err := fs.load()
	if err != nil {
		return nil, err
	}
	return doc.Signals, nil
}

// Append adds a trade to the document
func (fs *FileStore) Append(_ context.Context, t Trade) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	doc, err := fs.load()
	if err != nil {
		return err
	}
	doc.Signals = append(doc.Signals, t)
	return fs.save(doc)
}

// MarkCompleted rewrites the matching trade with its frozen exit fields
func (fs *FileStore) MarkCompleted(_ context.Context, t Trade) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	doc, err := fs.load()
	if err != nil {
		return err
	}
	for i := range doc.Signals {
		if doc.Signals[i].ID == t.ID {
			doc.Signals[i] = t
			return fs.save(doc)
		}
	}
	return fmt.Errorf("trade %s not found in document", t.ID)
}

// SavePerformance replaces the cached aggregate
func (fs *FileStore) SavePerformance(_ context.Context, p Performance) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	doc, err := fs.load()
	if err != nil {
		return err
	}
	doc.Performance = p
	return fs.save(doc)
}
