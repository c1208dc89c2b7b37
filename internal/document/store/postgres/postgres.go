// Package postgres implements the document store on PostgreSQL via pgx.
package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"kycgate/internal/document"
	id "kycgate/pkg/domain"
	"kycgate/pkg/platform/sentinel"
)

const uniqueViolation = "23505"

// Store implements document.Store on a pgx connection pool.
type Store struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

const selectDocument = `
	SELECT id, document_type, status, priority, uploaded_by,
	       file_name, file_path, ocr_text, ocr_confidence,
	       created_at, updated_at
	FROM documents`

func (s *Store) Create(ctx context.Context, doc *document.Document) error {
	query := `
		INSERT INTO documents (
			id, document_type, status, priority, uploaded_by,
			file_name, file_path, ocr_text, ocr_confidence,
			created_at, updated_at
		)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
	`
	_, err := s.pool.Exec(ctx, query,
		doc.ID.String(), string(doc.Type), string(doc.Status), string(doc.Priority),
		doc.UploadedBy.String(), doc.FileName, doc.FilePath,
		doc.OCRText, doc.OCRConfidence,
		doc.CreatedAt, doc.UpdatedAt,
	)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return sentinel.ErrConflict
	}
	if err != nil {
		return fmt.Errorf("insert document: %w", err)
	}
	return nil
}

func (s *Store) Get(ctx context.Context, documentID id.DocumentID) (*document.Document, error) {
	row := s.pool.QueryRow(ctx, selectDocument+` WHERE id = $1`, documentID.String())
	return scanDocument(row)
}

func (s *Store) Update(ctx context.Context, doc *document.Document) error {
	query := `
		UPDATE documents SET
			status = $2, priority = $3, ocr_text = $4, ocr_confidence = $5,
			updated_at = $6
		WHERE id = $1
	`
	tag, err := s.pool.Exec(ctx, query,
		doc.ID.String(), string(doc.Status), string(doc.Priority),
		doc.OCRText, doc.OCRConfidence, doc.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update document: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *Store) ListByUploader(ctx context.Context, userID id.UserID) ([]*document.Document, error) {
	rows, err := s.pool.Query(ctx,
		selectDocument+` WHERE uploaded_by = $1 ORDER BY created_at`, userID.String())
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	defer rows.Close()

	var out []*document.Document
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, doc)
	}
	return out, rows.Err()
}

func scanDocument(row pgx.Row) (*document.Document, error) {
	var (
		doc                   document.Document
		docID, uploadedBy     string
		docType, status, prio string
	)
	err := row.Scan(
		&docID, &docType, &status, &prio, &uploadedBy,
		&doc.FileName, &doc.FilePath, &doc.OCRText, &doc.OCRConfidence,
		&doc.CreatedAt, &doc.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan document: %w", err)
	}

	if doc.ID, err = id.ParseDocumentID(docID); err != nil {
		return nil, fmt.Errorf("stored document id: %w", err)
	}
	if doc.UploadedBy, err = id.ParseUserID(uploadedBy); err != nil {
		return nil, fmt.Errorf("stored uploader id: %w", err)
	}
	doc.Type = id.DocumentType(docType)
	doc.Status = id.DocumentStatus(status)
	doc.Priority = document.Priority(prio)
	return &doc, nil
}
