// Package postgres implements the workflow store on PostgreSQL via pgx.
//
// Uniqueness of the active decision and active instance per document is
// enforced by partial unique indexes (see schema.sql), so concurrent creates
// cannot race past the application-level check.
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	id "kycgate/pkg/domain"

	"kycgate/internal/workflow"
	"kycgate/pkg/platform/sentinel"
)

const uniqueViolation = "23505"

// Store implements workflow.Store on a pgx connection pool.
type Store struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

func (s *Store) CreateDecision(ctx context.Context, record *workflow.DecisionRecord) error {
	query := `
		INSERT INTO decision_records (
			id, document_id, ai_verdict, ai_confidence, ai_reasoning,
			bias_score, model_version,
			officer_id, officer_action, officer_comment, officer_timestamp,
			manager_id, manager_action, manager_justification, manager_timestamp,
			status, final_verdict, created_at, updated_at
		)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19)
	`
	_, err := s.pool.Exec(ctx, query,
		record.ID.String(), record.DocumentID.String(),
		string(record.AIVerdict), record.AIConfidence, record.AIReasoning,
		record.BiasScore, record.ModelVersion,
		nullableUserID(record.OfficerID), nullableOfficerAction(record.OfficerAction),
		record.OfficerComment, record.OfficerTimestamp,
		nullableUserID(record.ManagerID), nullableManagerAction(record.ManagerAction),
		record.ManagerJustification, record.ManagerTimestamp,
		string(record.Status), nullableVerdict(record.FinalVerdict),
		record.CreatedAt, record.UpdatedAt,
	)
	if isUniqueViolation(err) {
		return sentinel.ErrConflict
	}
	if err != nil {
		return fmt.Errorf("insert decision record: %w", err)
	}
	return nil
}

func (s *Store) GetDecision(ctx context.Context, decisionID id.DecisionID) (*workflow.DecisionRecord, error) {
	row := s.pool.QueryRow(ctx, selectDecision+` WHERE id = $1`, decisionID.String())
	return scanDecision(row)
}

func (s *Store) GetActiveDecisionByDocument(ctx context.Context, documentID id.DocumentID) (*workflow.DecisionRecord, error) {
	row := s.pool.QueryRow(ctx,
		selectDecision+` WHERE document_id = $1 AND status <> 'final'`,
		documentID.String())
	return scanDecision(row)
}

func (s *Store) UpdateDecision(ctx context.Context, record *workflow.DecisionRecord) error {
	query := `
		UPDATE decision_records SET
			officer_id = $2, officer_action = $3, officer_comment = $4, officer_timestamp = $5,
			manager_id = $6, manager_action = $7, manager_justification = $8, manager_timestamp = $9,
			status = $10, final_verdict = $11, updated_at = $12
		WHERE id = $1
	`
	tag, err := s.pool.Exec(ctx, query,
		record.ID.String(),
		nullableUserID(record.OfficerID), nullableOfficerAction(record.OfficerAction),
		record.OfficerComment, record.OfficerTimestamp,
		nullableUserID(record.ManagerID), nullableManagerAction(record.ManagerAction),
		record.ManagerJustification, record.ManagerTimestamp,
		string(record.Status), nullableVerdict(record.FinalVerdict),
		record.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update decision record: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *Store) ListDecisionsByDocument(ctx context.Context, documentID id.DocumentID) ([]*workflow.DecisionRecord, error) {
	rows, err := s.pool.Query(ctx,
		selectDecision+` WHERE document_id = $1 ORDER BY created_at`,
		documentID.String())
	if err != nil {
		return nil, fmt.Errorf("list decision records: %w", err)
	}
	defer rows.Close()

	var out []*workflow.DecisionRecord
	for rows.Next() {
		record, err := scanDecision(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, record)
	}
	return out, rows.Err()
}

func (s *Store) CreateInstance(ctx context.Context, instance *workflow.Instance) error {
	trail, err := json.Marshal(trailToRows(instance.AuditTrail))
	if err != nil {
		return fmt.Errorf("marshal audit trail: %w", err)
	}
	assigned := make([]string, 0, len(instance.AssignedUsers))
	for _, u := range instance.AssignedUsers {
		assigned = append(assigned, u.String())
	}

	query := `
		INSERT INTO workflow_instances (
			id, workflow_type, document_id, current_step,
			completed_steps, pending_steps, status,
			assigned_users, audit_trail, step_assigned_at,
			created_at, updated_at
		)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
	`
	_, err = s.pool.Exec(ctx, query,
		instance.ID.String(), string(instance.WorkflowType), instance.DocumentID.String(),
		instance.CurrentStep,
		instance.CompletedSteps, instance.PendingSteps, string(instance.Status),
		assigned, trail, instance.StepAssignedAt,
		instance.CreatedAt, instance.UpdatedAt,
	)
	if isUniqueViolation(err) {
		return sentinel.ErrConflict
	}
	if err != nil {
		return fmt.Errorf("insert workflow instance: %w", err)
	}
	return nil
}

func (s *Store) GetInstance(ctx context.Context, instanceID id.WorkflowInstanceID) (*workflow.Instance, error) {
	row := s.pool.QueryRow(ctx, selectInstance+` WHERE id = $1`, instanceID.String())
	return scanInstance(row)
}

func (s *Store) GetActiveInstanceByDocument(ctx context.Context, documentID id.DocumentID) (*workflow.Instance, error) {
	row := s.pool.QueryRow(ctx,
		selectInstance+` WHERE document_id = $1 AND status = 'active'`,
		documentID.String())
	return scanInstance(row)
}

func (s *Store) UpdateInstance(ctx context.Context, instance *workflow.Instance) error {
	trail, err := json.Marshal(trailToRows(instance.AuditTrail))
	if err != nil {
		return fmt.Errorf("marshal audit trail: %w", err)
	}
	assigned := make([]string, 0, len(instance.AssignedUsers))
	for _, u := range instance.AssignedUsers {
		assigned = append(assigned, u.String())
	}

	query := `
		UPDATE workflow_instances SET
			current_step = $2, completed_steps = $3, pending_steps = $4,
			status = $5, assigned_users = $6, audit_trail = $7,
			step_assigned_at = $8, updated_at = $9
		WHERE id = $1
	`
	tag, err := s.pool.Exec(ctx, query,
		instance.ID.String(), instance.CurrentStep,
		instance.CompletedSteps, instance.PendingSteps,
		string(instance.Status), assigned, trail,
		instance.StepAssignedAt, instance.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update workflow instance: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *Store) ListActiveInstances(ctx context.Context) ([]*workflow.Instance, error) {
	rows, err := s.pool.Query(ctx,
		selectInstance+` WHERE status = 'active' ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("list active instances: %w", err)
	}
	defer rows.Close()

	var out []*workflow.Instance
	for rows.Next() {
		instance, err := scanInstance(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, instance)
	}
	return out, rows.Err()
}

// ===== Row scanning =====

const selectDecision = `
	SELECT id, document_id, ai_verdict, ai_confidence, ai_reasoning,
	       bias_score, model_version,
	       officer_id, officer_action, officer_comment, officer_timestamp,
	       manager_id, manager_action, manager_justification, manager_timestamp,
	       status, final_verdict, created_at, updated_at
	FROM decision_records`

const selectInstance = `
	SELECT id, workflow_type, document_id, current_step,
	       completed_steps, pending_steps, status,
	       assigned_users, audit_trail, step_assigned_at,
	       created_at, updated_at
	FROM workflow_instances`

func scanDecision(row pgx.Row) (*workflow.DecisionRecord, error) {
	var (
		record                       workflow.DecisionRecord
		recordID, documentID         string
		aiVerdict, status            string
		officerID, managerID         *string
		officerAction, managerAction *string
		finalVerdict                 *string
	)
	err := row.Scan(
		&recordID, &documentID, &aiVerdict, &record.AIConfidence, &record.AIReasoning,
		&record.BiasScore, &record.ModelVersion,
		&officerID, &officerAction, &record.OfficerComment, &record.OfficerTimestamp,
		&managerID, &managerAction, &record.ManagerJustification, &record.ManagerTimestamp,
		&status, &finalVerdict, &record.CreatedAt, &record.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan decision record: %w", err)
	}

	if record.ID, err = id.ParseDecisionID(recordID); err != nil {
		return nil, fmt.Errorf("stored decision id: %w", err)
	}
	if record.DocumentID, err = id.ParseDocumentID(documentID); err != nil {
		return nil, fmt.Errorf("stored document id: %w", err)
	}
	record.AIVerdict = id.Verdict(aiVerdict)
	record.Status = workflow.DecisionStatus(status)
	if officerID != nil {
		if record.OfficerID, err = id.ParseUserID(*officerID); err != nil {
			return nil, fmt.Errorf("stored officer id: %w", err)
		}
	}
	if managerID != nil {
		if record.ManagerID, err = id.ParseUserID(*managerID); err != nil {
			return nil, fmt.Errorf("stored manager id: %w", err)
		}
	}
	if officerAction != nil {
		action := id.OfficerAction(*officerAction)
		record.OfficerAction = &action
	}
	if managerAction != nil {
		action := id.ManagerAction(*managerAction)
		record.ManagerAction = &action
	}
	if finalVerdict != nil {
		v := id.Verdict(*finalVerdict)
		record.FinalVerdict = &v
	}
	return &record, nil
}

func scanInstance(row pgx.Row) (*workflow.Instance, error) {
	var (
		instance               workflow.Instance
		instanceID, documentID string
		workflowType, status   string
		assigned               []string
		trail                  []byte
	)
	err := row.Scan(
		&instanceID, &workflowType, &documentID, &instance.CurrentStep,
		&instance.CompletedSteps, &instance.PendingSteps, &status,
		&assigned, &trail, &instance.StepAssignedAt,
		&instance.CreatedAt, &instance.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan workflow instance: %w", err)
	}

	u, err := id.ParseDocumentID(documentID)
	if err != nil {
		return nil, fmt.Errorf("stored document id: %w", err)
	}
	instance.DocumentID = u

	var rows []trailRow
	if err := json.Unmarshal(trail, &rows); err != nil {
		return nil, fmt.Errorf("unmarshal audit trail: %w", err)
	}
	instance.AuditTrail, err = trailFromRows(rows)
	if err != nil {
		return nil, err
	}

	instance.WorkflowType = workflow.WorkflowType(workflowType)
	instance.Status = workflow.InstanceStatus(status)
	if instance.ID, err = id.ParseWorkflowInstanceID(instanceID); err != nil {
		return nil, fmt.Errorf("stored instance id: %w", err)
	}

	for _, a := range assigned {
		userID, err := id.ParseUserID(a)
		if err != nil {
			return nil, fmt.Errorf("stored assigned user: %w", err)
		}
		instance.AssignedUsers = append(instance.AssignedUsers, userID)
	}
	return &instance, nil
}

// trailRow is the JSONB shape of one audit trail entry.
type trailRow struct {
	Timestamp time.Time      `json:"timestamp"`
	UserID    string         `json:"user_id,omitempty"`
	Role      string         `json:"role"`
	Action    string         `json:"action"`
	Details   map[string]any `json:"details,omitempty"`
}

func trailToRows(trail []workflow.TrailEntry) []trailRow {
	rows := make([]trailRow, 0, len(trail))
	for _, e := range trail {
		row := trailRow{
			Timestamp: e.Timestamp,
			Role:      string(e.Role),
			Action:    e.Action,
			Details:   e.Details,
		}
		if !e.UserID.IsNil() {
			row.UserID = e.UserID.String()
		}
		rows = append(rows, row)
	}
	return rows
}

func trailFromRows(rows []trailRow) ([]workflow.TrailEntry, error) {
	trail := make([]workflow.TrailEntry, 0, len(rows))
	for _, row := range rows {
		entry := workflow.TrailEntry{
			Timestamp: row.Timestamp,
			Role:      id.Role(row.Role),
			Action:    row.Action,
			Details:   row.Details,
		}
		if row.UserID != "" {
			userID, err := id.ParseUserID(row.UserID)
			if err != nil {
				return nil, fmt.Errorf("stored trail user: %w", err)
			}
			entry.UserID = userID
		}
		trail = append(trail, entry)
	}
	return trail, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}

func nullableUserID(u id.UserID) *string {
	if u.IsNil() {
		return nil
	}
	s := u.String()
	return &s
}

func nullableOfficerAction(a *id.OfficerAction) *string {
	if a == nil {
		return nil
	}
	s := string(*a)
	return &s
}

func nullableManagerAction(a *id.ManagerAction) *string {
	if a == nil {
		return nil
	}
	s := string(*a)
	return &s
}

func nullableVerdict(v *id.Verdict) *string {
	if v == nil {
		return nil
	}
	s := string(*v)
	return &s
}
