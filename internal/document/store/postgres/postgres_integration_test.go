//go:build integration

package postgres_test

// Justification for integration tests:
// The documents table enforces the primary key and stores the OCR fields the
// processing pipeline writes back. These tests cover the full round trip
// against real PostgreSQL and the sentinel translation on conflict and miss.

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"kycgate/internal/document"
	"kycgate/internal/document/store/postgres"
	id "kycgate/pkg/domain"
	"kycgate/pkg/platform/sentinel"
	"kycgate/pkg/testutil/containers"
)

type PostgresStoreSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *postgres.Store
}

func TestPostgresStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresStoreSuite))
}

func (s *PostgresStoreSuite) SetupSuite() {
	s.postgres = containers.NewPostgresContainer(s.T())
	s.store = postgres.New(s.postgres.Pool)
}

func (s *PostgresStoreSuite) SetupTest() {
	s.Require().NoError(s.postgres.TruncateAll(context.Background()))
}

func newDocument(uploader id.UserID) *document.Document {
	now := time.Now().UTC().Truncate(time.Microsecond)
	docID := id.NewDocumentID()
	return &document.Document{
		ID:         docID,
		Type:       id.DocTypePAN,
		Status:     id.DocStatusUploaded,
		Priority:   document.PriorityNormal,
		UploadedBy: uploader,
		FileName:   "pan_card.pdf",
		FilePath:   uploader.String() + "/pan_card.pdf",
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

func (s *PostgresStoreSuite) TestRoundTrip() {
	ctx := context.Background()
	doc := newDocument(id.NewUserID())

	s.Require().NoError(s.store.Create(ctx, doc))

	got, err := s.store.Get(ctx, doc.ID)
	s.Require().NoError(err)
	s.Equal(doc.ID, got.ID)
	s.Equal(id.DocTypePAN, got.Type)
	s.Equal(id.DocStatusUploaded, got.Status)
	s.Equal(document.PriorityNormal, got.Priority)
	s.Equal(doc.UploadedBy, got.UploadedBy)
	s.Equal("pan_card.pdf", got.FileName)
	s.Empty(got.OCRText)
	s.WithinDuration(doc.CreatedAt, got.CreatedAt, time.Millisecond)
}

func (s *PostgresStoreSuite) TestDuplicateIDConflicts() {
	ctx := context.Background()
	doc := newDocument(id.NewUserID())
	s.Require().NoError(s.store.Create(ctx, doc))

	again := doc.Clone()
	again.FileName = "other.pdf"
	s.ErrorIs(s.store.Create(ctx, again), sentinel.ErrConflict)
}

func (s *PostgresStoreSuite) TestUpdatePersistsProcessingResult() {
	ctx := context.Background()
	doc := newDocument(id.NewUserID())
	s.Require().NoError(s.store.Create(ctx, doc))

	processed := doc.Clone()
	processed.Status = id.DocStatusClassified
	processed.OCRText = "Permanent Account Number Card"
	processed.OCRConfidence = 0.91
	processed.UpdatedAt = time.Now().UTC().Truncate(time.Microsecond)
	s.Require().NoError(s.store.Update(ctx, processed))

	got, err := s.store.Get(ctx, doc.ID)
	s.Require().NoError(err)
	s.Equal(id.DocStatusClassified, got.Status)
	s.Equal("Permanent Account Number Card", got.OCRText)
	s.InDelta(0.91, got.OCRConfidence, 1e-9)
}

func (s *PostgresStoreSuite) TestListByUploader() {
	ctx := context.Background()
	uploader := id.NewUserID()

	first := newDocument(uploader)
	second := newDocument(uploader)
	second.Type = id.DocTypeAadhaar
	second.CreatedAt = first.CreatedAt.Add(time.Second)
	second.UpdatedAt = second.CreatedAt
	other := newDocument(id.NewUserID())

	s.Require().NoError(s.store.Create(ctx, first))
	s.Require().NoError(s.store.Create(ctx, second))
	s.Require().NoError(s.store.Create(ctx, other))

	docs, err := s.store.ListByUploader(ctx, uploader)
	s.Require().NoError(err)
	s.Require().Len(docs, 2)
	s.Equal(first.ID, docs[0].ID)
	s.Equal(second.ID, docs[1].ID)
}

func (s *PostgresStoreSuite) TestNotFound() {
	ctx := context.Background()

	_, err := s.store.Get(ctx, id.NewDocumentID())
	s.ErrorIs(err, sentinel.ErrNotFound)

	s.ErrorIs(s.store.Update(ctx, newDocument(id.NewUserID())), sentinel.ErrNotFound)
}
