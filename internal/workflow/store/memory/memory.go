// Package memory provides an in-process workflow store. Used by unit tests
// and local development; production wires the postgres store.
package memory

import (
	"context"
	"sort"
	"sync"

	id "kycgate/pkg/domain"

	"kycgate/internal/workflow"
	"kycgate/pkg/platform/sentinel"
)

// Store keeps decision records and workflow instances in process memory.
// All methods deep-copy on the way in and out, matching the isolation the
// postgres store gets for free from serialization.
type Store struct {
	mu        sync.RWMutex
	decisions map[id.DecisionID]*workflow.DecisionRecord
	instances map[id.WorkflowInstanceID]*workflow.Instance
}

func New() *Store {
	return &Store{
		decisions: make(map[id.DecisionID]*workflow.DecisionRecord),
		instances: make(map[id.WorkflowInstanceID]*workflow.Instance),
	}
}

func (s *Store) CreateDecision(_ context.Context, record *workflow.DecisionRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.decisions[record.ID]; exists {
		return sentinel.ErrConflict
	}
	for _, d := range s.decisions {
		if d.DocumentID == record.DocumentID && !d.Status.IsTerminal() {
			return sentinel.ErrConflict
		}
	}
	s.decisions[record.ID] = record.Clone()
	return nil
}

func (s *Store) GetDecision(_ context.Context, decisionID id.DecisionID) (*workflow.DecisionRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	d, ok := s.decisions[decisionID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return d.Clone(), nil
}

func (s *Store) GetActiveDecisionByDocument(_ context.Context, documentID id.DocumentID) (*workflow.DecisionRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, d := range s.decisions {
		if d.DocumentID == documentID && !d.Status.IsTerminal() {
			return d.Clone(), nil
		}
	}
	return nil, sentinel.ErrNotFound
}

func (s *Store) UpdateDecision(_ context.Context, record *workflow.DecisionRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.decisions[record.ID]; !ok {
		return sentinel.ErrNotFound
	}
	s.decisions[record.ID] = record.Clone()
	return nil
}

func (s *Store) ListDecisionsByDocument(_ context.Context, documentID id.DocumentID) ([]*workflow.DecisionRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*workflow.DecisionRecord
	for _, d := range s.decisions {
		if d.DocumentID == documentID {
			out = append(out, d.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *Store) CreateInstance(_ context.Context, instance *workflow.Instance) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.instances[instance.ID]; exists {
		return sentinel.ErrConflict
	}
	for _, i := range s.instances {
		if i.DocumentID == instance.DocumentID && i.Status == workflow.InstanceActive {
			return sentinel.ErrConflict
		}
	}
	s.instances[instance.ID] = instance.Clone()
	return nil
}

func (s *Store) GetInstance(_ context.Context, instanceID id.WorkflowInstanceID) (*workflow.Instance, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i, ok := s.instances[instanceID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return i.Clone(), nil
}

func (s *Store) GetActiveInstanceByDocument(_ context.Context, documentID id.DocumentID) (*workflow.Instance, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, i := range s.instances {
		if i.DocumentID == documentID && i.Status == workflow.InstanceActive {
			return i.Clone(), nil
		}
	}
	return nil, sentinel.ErrNotFound
}

func (s *Store) UpdateInstance(_ context.Context, instance *workflow.Instance) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.instances[instance.ID]; !ok {
		return sentinel.ErrNotFound
	}
	s.instances[instance.ID] = instance.Clone()
	return nil
}

func (s *Store) ListActiveInstances(_ context.Context) ([]*workflow.Instance, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*workflow.Instance
	for _, i := range s.instances {
		if i.Status == workflow.InstanceActive {
			out = append(out, i.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}
