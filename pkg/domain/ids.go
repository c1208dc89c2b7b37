package domain

import (
	"github.com/google/uuid"

	dErrors "kycgate/pkg/domain-errors"
)

// Typed identifiers for the core entities. Wrapping uuid.UUID keeps call sites
// honest about which kind of ID they are passing around.
type (
	// UserID identifies an acting user (officer, manager, auditor, ...).
	UserID uuid.UUID

	// DocumentID identifies an uploaded KYC document. Document storage is
	// external; the core only references documents by ID.
	DocumentID uuid.UUID

	// DecisionID identifies one workflow-tracked decision record.
	DecisionID uuid.UUID

	// WorkflowInstanceID identifies a running workflow instance.
	WorkflowInstanceID uuid.UUID

	// ViolationID identifies a compliance violation finding.
	ViolationID uuid.UUID
)

// NewUserID allocates a fresh user identifier.
func NewUserID() UserID { return UserID(uuid.New()) }

// NewDocumentID allocates a fresh document identifier.
func NewDocumentID() DocumentID { return DocumentID(uuid.New()) }

// NewDecisionID allocates a fresh decision record identifier.
func NewDecisionID() DecisionID { return DecisionID(uuid.New()) }

// NewWorkflowInstanceID allocates a fresh workflow instance identifier.
func NewWorkflowInstanceID() WorkflowInstanceID { return WorkflowInstanceID(uuid.New()) }

// NewViolationID allocates a fresh violation identifier.
func NewViolationID() ViolationID { return ViolationID(uuid.New()) }

func (i UserID) IsNil() bool             { return uuid.UUID(i) == uuid.Nil }
func (i DocumentID) IsNil() bool         { return uuid.UUID(i) == uuid.Nil }
func (i DecisionID) IsNil() bool         { return uuid.UUID(i) == uuid.Nil }
func (i WorkflowInstanceID) IsNil() bool { return uuid.UUID(i) == uuid.Nil }
func (i ViolationID) IsNil() bool        { return uuid.UUID(i) == uuid.Nil }

func (i UserID) String() string             { return uuid.UUID(i).String() }
func (i DocumentID) String() string         { return uuid.UUID(i).String() }
func (i DecisionID) String() string         { return uuid.UUID(i).String() }
func (i WorkflowInstanceID) String() string { return uuid.UUID(i).String() }
func (i ViolationID) String() string        { return uuid.UUID(i).String() }

// ParseUserID constructs a UserID from external input.
//
// Usage: call from handlers/adapters when parsing requests.
func ParseUserID(s string) (UserID, error) {
	u, err := parseNonNilUUID(s, "user id")
	return UserID(u), err
}

// ParseDocumentID constructs a DocumentID from external input.
func ParseDocumentID(s string) (DocumentID, error) {
	u, err := parseNonNilUUID(s, "document id")
	return DocumentID(u), err
}

// ParseDecisionID constructs a DecisionID from external input.
func ParseDecisionID(s string) (DecisionID, error) {
	u, err := parseNonNilUUID(s, "decision id")
	return DecisionID(u), err
}

// ParseWorkflowInstanceID constructs a WorkflowInstanceID from external input.
func ParseWorkflowInstanceID(s string) (WorkflowInstanceID, error) {
	u, err := parseNonNilUUID(s, "workflow instance id")
	return WorkflowInstanceID(u), err
}

// parseNonNilUUID enforces the shared invariant: IDs must be valid, non-empty,
// non-nil UUIDs.
func parseNonNilUUID(s, kind string) (uuid.UUID, error) {
	u, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "invalid "+kind)
	}
	if u == uuid.Nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, kind+" cannot be nil")
	}
	return u, nil
}
