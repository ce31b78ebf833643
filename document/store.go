package document

import "sync"

// Store is the process-lifetime document registry. Safe for concurrent use.
type Store struct {
	mu   sync.RWMutex
	docs map[string]*Document
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{docs: make(map[string]*Document)}
}

// Put registers or replaces a document record.
func (s *Store) Put(doc *Document) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.docs[doc.ID] = doc
}

// Get returns the document with the given id, or nil.
func (s *Store) Get(id string) *Document {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.docs[id]
}

// Len returns the number of stored documents.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.docs)
}

// AnnotationStore keeps annotations keyed by id with a per-document index.
type AnnotationStore struct {
	mu          sync.RWMutex
	annotations map[string]*Annotation
	byDocument  map[string][]string
}

// NewAnnotationStore returns an empty annotation store.
func NewAnnotationStore() *AnnotationStore {
	return &AnnotationStore{
		annotations: make(map[string]*Annotation),
		byDocument:  make(map[string][]string),
	}
}

// Put stores an annotation and indexes it under its document.
func (s *AnnotationStore) Put(a *Annotation) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.annotations[a.ID]; !exists {
		s.byDocument[a.DocumentID] = append(s.byDocument[a.DocumentID], a.ID)
	}
	s.annotations[a.ID] = a
}

// Get returns the annotation with the given id, or nil.
func (s *AnnotationStore) Get(id string) *Annotation {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.annotations[id]
}

// ForDocument returns the annotations of a document, optionally filtered to
// one page (page <= 0 means all pages). Order is insertion order.
func (s *AnnotationStore) ForDocument(docID string, page int) []*Annotation {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := s.byDocument[docID]
	out := make([]*Annotation, 0, len(ids))
	for _, id := range ids {
		a, ok := s.annotations[id]
		if !ok {
			continue
		}
		if page > 0 && a.PageNumber != page {
			continue
		}
		out = append(out, a)
	}
	return out
}

// Delete removes an annotation. Returns false if it did not exist.
func (s *AnnotationStore) Delete(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.annotations[id]
	if !ok {
		return false
	}
	delete(s.annotations, id)
	ids := s.byDocument[a.DocumentID]
	for i, aid := range ids {
		if aid == id {
			s.byDocument[a.DocumentID] = append(ids[:i], ids[i+1:]...)
			break
		}
	}
	return true
}
