// Package memory provides an in-process document store for unit tests and
// local development.
package memory

import (
	"context"
	"sort"
	"sync"

	"kycgate/internal/document"
	id "kycgate/pkg/domain"
	"kycgate/pkg/platform/sentinel"
)

// Store keeps document metadata in process memory.
type Store struct {
	mu   sync.RWMutex
	docs map[id.DocumentID]*document.Document
}

func New() *Store {
	return &Store{docs: make(map[id.DocumentID]*document.Document)}
}

func (s *Store) Create(_ context.Context, doc *document.Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.docs[doc.ID]; exists {
		return sentinel.ErrConflict
	}
	s.docs[doc.ID] = doc.Clone()
	return nil
}

func (s *Store) Get(_ context.Context, documentID id.DocumentID) (*document.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	doc, ok := s.docs[documentID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return doc.Clone(), nil
}

func (s *Store) Update(_ context.Context, doc *document.Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.docs[doc.ID]; !ok {
		return sentinel.ErrNotFound
	}
	s.docs[doc.ID] = doc.Clone()
	return nil
}

func (s *Store) ListByUploader(_ context.Context, userID id.UserID) ([]*document.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*document.Document
	for _, doc := range s.docs {
		if doc.UploadedBy == userID {
			out = append(out, doc.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}
