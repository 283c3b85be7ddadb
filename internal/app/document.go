package app

import (
	"path/filepath"
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/dshills/appwiki/internal/collab"
	"github.com/dshills/appwiki/internal/document"
)

// Document is an open file with its replication state.
type Document struct {
	// Path is the absolute file path (empty for scratch documents).
	Path string

	// Name is the display name (file name or "Untitled").
	Name string

	*document.Document

	modified atomic.Bool

	// adapter is non-nil while the document is mirrored to a room.
	adapter     *collab.Adapter
	unsubscribe func()
}

// NewDocument wraps doc as the document at path.
func NewDocument(path string, doc *document.Document) *Document {
	name := filepath.Base(path)
	if path == "" {
		name = "Untitled"
	}
	return &Document{Path: path, Name: name, Document: doc}
}

// IsModified returns true if the document has unsaved changes.
func (d *Document) IsModified() bool {
	return d.modified.Load()
}

// SetModified sets the modified flag.
func (d *Document) SetModified(modified bool) {
	d.modified.Store(modified)
}

// IsScratch returns true if the document has no file path.
func (d *Document) IsScratch() bool {
	return d.Path == ""
}

// Adapter returns the replication adapter, or nil when the document is
// not shared.
func (d *Document) Adapter() *collab.Adapter {
	return d.adapter
}

// key identifies the document in a DocumentManager.
func (d *Document) key() string {
	if d.Path != "" {
		return d.Path
	}
	return "::scratch::" + d.Name
}

// DocumentManager tracks open documents in open order.
type DocumentManager struct {
	mu        sync.RWMutex
	documents map[string]*Document
	order     []string
	counter   int
}

// NewDocumentManager creates an empty document manager.
func NewDocumentManager() *DocumentManager {
	return &DocumentManager{documents: make(map[string]*Document)}
}

// Add registers doc. A scratch document gets a unique name. It returns
// the already open document and false when doc's path is taken.
func (dm *DocumentManager) Add(doc *Document) (*Document, bool) {
	dm.mu.Lock()
	defer dm.mu.Unlock()

	if doc.IsScratch() {
		dm.counter++
		if dm.counter > 1 {
			doc.Name = "Untitled-" + strconv.Itoa(dm.counter)
		}
	}
	key := doc.key()
	if existing, ok := dm.documents[key]; ok {
		return existing, false
	}
	dm.documents[key] = doc
	dm.order = append(dm.order, key)
	return doc, true
}

// Get returns the document opened from path.
func (dm *DocumentManager) Get(path string) (*Document, bool) {
	dm.mu.RLock()
	defer dm.mu.RUnlock()
	doc, ok := dm.documents[path]
	return doc, ok
}

// Remove forgets doc.
func (dm *DocumentManager) Remove(doc *Document) error {
	dm.mu.Lock()
	defer dm.mu.Unlock()

	key := doc.key()
	if dm.documents[key] != doc {
		return ErrDocumentNotFound
	}
	delete(dm.documents, key)
	for i, k := range dm.order {
		if k == key {
			dm.order = append(dm.order[:i], dm.order[i+1:]...)
			break
		}
	}
	return nil
}

// All returns the open documents in open order.
func (dm *DocumentManager) All() []*Document {
	dm.mu.RLock()
	defer dm.mu.RUnlock()

	docs := make([]*Document, 0, len(dm.order))
	for _, key := range dm.order {
		docs = append(docs, dm.documents[key])
	}
	return docs
}

// Count returns the number of open documents.
func (dm *DocumentManager) Count() int {
	dm.mu.RLock()
	defer dm.mu.RUnlock()
	return len(dm.documents)
}

// DirtyDocuments returns all documents with unsaved changes.
func (dm *DocumentManager) DirtyDocuments() []*Document {
	var dirty []*Document
	for _, doc := range dm.All() {
		if doc.IsModified() {
			dirty = append(dirty, doc)
		}
	}
	return dirty
}

// HasDirty returns true if any document has unsaved changes.
func (dm *DocumentManager) HasDirty() bool {
	return len(dm.DirtyDocuments()) > 0
}
