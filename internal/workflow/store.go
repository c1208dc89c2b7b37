package workflow

import (
	"context"

	id "kycgate/pkg/domain"
)

// Store persists decision records and workflow instances. Implementations
// return pkg/platform/sentinel errors for infrastructure facts (not found,
// conflict); the engine translates them into coded errors at the boundary.
//
// Uniqueness invariant: at most one non-terminal decision record and at most
// one active workflow instance may exist per document. CreateDecision and
// CreateInstance return sentinel.ErrConflict when a second would be created.
type Store interface {
	CreateDecision(ctx context.Context, record *DecisionRecord) error
	GetDecision(ctx context.Context, decisionID id.DecisionID) (*DecisionRecord, error)
	GetActiveDecisionByDocument(ctx context.Context, documentID id.DocumentID) (*DecisionRecord, error)
	UpdateDecision(ctx context.Context, record *DecisionRecord) error
	ListDecisionsByDocument(ctx context.Context, documentID id.DocumentID) ([]*DecisionRecord, error)

	CreateInstance(ctx context.Context, instance *Instance) error
	GetInstance(ctx context.Context, instanceID id.WorkflowInstanceID) (*Instance, error)
	GetActiveInstanceByDocument(ctx context.Context, documentID id.DocumentID) (*Instance, error)
	UpdateInstance(ctx context.Context, instance *Instance) error
	ListActiveInstances(ctx context.Context) ([]*Instance, error)
}
