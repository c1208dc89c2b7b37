package vector_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"kycgate/internal/document"
	"kycgate/internal/platform/config"
	"kycgate/internal/vector"
	id "kycgate/pkg/domain"
)

// =============================================================================
// Vector Index Client Test Suite
// =============================================================================
// Justification for unit tests: duplicate detection depends on the
// threshold filter and the owner-scoped query this adapter builds; both are
// verifiable against a stub server, as is tolerance for foreign vector IDs
// in a shared index.

type ClientSuite struct {
	suite.Suite
}

func TestClientSuite(t *testing.T) {
	suite.Run(t, new(ClientSuite))
}

func (s *ClientSuite) newClient(handler http.HandlerFunc) *vector.Client {
	server := httptest.NewServer(handler)
	s.T().Cleanup(server.Close)

	client, err := vector.New(config.VectorIndexConfig{
		BaseURL:   server.URL,
		APIKey:    "test-key",
		Namespace: "kyc-documents",
		Timeout:   5 * time.Second,
	})
	s.Require().NoError(err)
	return client
}

func matchesPayload(matches ...map[string]any) []byte {
	out, _ := json.Marshal(map[string]any{"matches": matches})
	return out
}

func (s *ClientSuite) TestFindDuplicates() {
	owner := id.NewUserID()
	dupID := id.NewDocumentID()
	nearID := id.NewDocumentID()

	s.Run("filters by owner and threshold", func() {
		var captured map[string]any
		client := s.newClient(func(w http.ResponseWriter, r *http.Request) {
			s.Equal("/query", r.URL.Path)
			s.Equal("test-key", r.Header.Get("Api-Key"))
			s.Require().NoError(json.NewDecoder(r.Body).Decode(&captured))

			_, _ = w.Write(matchesPayload(
				map[string]any{"id": dupID.String(), "score": 0.97, "metadata": map[string]string{"document_type": "PAN"}},
				map[string]any{"id": nearID.String(), "score": 0.90, "metadata": map[string]string{"document_type": "PAN"}},
			))
		})

		neighbors, err := client.FindDuplicates(context.Background(), []float32{0.1, 0.2}, owner, 0.95)
		s.Require().NoError(err)
		s.Require().Len(neighbors, 1)
		s.Equal(dupID, neighbors[0].DocumentID)
		s.InDelta(0.97, neighbors[0].Score, 1e-9)

		s.Equal(map[string]any{"user_id": owner.String()}, captured["filter"])
		s.Equal(float64(10), captured["topK"])
		s.Equal("kyc-documents", captured["namespace"])
		s.Equal(true, captured["includeMetadata"])
	})

	s.Run("skips foreign vector IDs", func() {
		client := s.newClient(func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write(matchesPayload(
				map[string]any{"id": "not-a-uuid", "score": 0.99},
				map[string]any{"id": dupID.String(), "score": 0.98},
			))
		})

		neighbors, err := client.FindDuplicates(context.Background(), []float32{0.1}, owner, 0.95)
		s.Require().NoError(err)
		s.Require().Len(neighbors, 1)
		s.Equal(dupID, neighbors[0].DocumentID)
	})

	s.Run("empty index yields empty slice", func() {
		client := s.newClient(func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write(matchesPayload())
		})

		neighbors, err := client.FindDuplicates(context.Background(), []float32{0.1}, owner, 0.95)
		s.Require().NoError(err)
		s.Empty(neighbors)
	})
}

func (s *ClientSuite) TestFindNeighbors() {
	s.Run("filters by document type without threshold", func() {
		docID := id.NewDocumentID()
		var captured map[string]any
		client := s.newClient(func(w http.ResponseWriter, r *http.Request) {
			s.Require().NoError(json.NewDecoder(r.Body).Decode(&captured))
			_, _ = w.Write(matchesPayload(
				map[string]any{"id": docID.String(), "score": 0.42, "metadata": map[string]string{
					"document_type": "PAN", "verdict": "APPROVED",
				}},
			))
		})

		neighbors, err := client.FindNeighbors(context.Background(), []float32{0.1}, id.DocTypePAN, 5)
		s.Require().NoError(err)
		s.Require().Len(neighbors, 1)
		s.Equal(id.VerdictApproved, neighbors[0].Verdict)

		s.Equal(map[string]any{"document_type": "PAN"}, captured["filter"])
		s.Equal(float64(5), captured["topK"])
	})
}

func (s *ClientSuite) TestUpsert() {
	s.Run("stores vector with filterable metadata", func() {
		docID := id.NewDocumentID()
		owner := id.NewUserID()
		var captured map[string]any
		client := s.newClient(func(w http.ResponseWriter, r *http.Request) {
			s.Equal("/vectors/upsert", r.URL.Path)
			s.Require().NoError(json.NewDecoder(r.Body).Decode(&captured))
			_, _ = w.Write([]byte(`{}`))
		})

		err := client.Upsert(context.Background(), docID, []float32{0.1, 0.2}, document.VectorMetadata{
			DocumentType: id.DocTypePAN,
			OwnerID:      owner,
			Status:       id.DocStatusClassified,
			CreatedAt:    "2025-06-01T10:00:00Z",
		})
		s.Require().NoError(err)

		vectors := captured["vectors"].([]any)
		s.Require().Len(vectors, 1)
		record := vectors[0].(map[string]any)
		s.Equal(docID.String(), record["id"])
		meta := record["metadata"].(map[string]any)
		s.Equal("PAN", meta["document_type"])
		s.Equal(owner.String(), meta["user_id"])
	})

	s.Run("upstream failure", func() {
		client := s.newClient(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})

		err := client.Upsert(context.Background(), id.NewDocumentID(), []float32{0.1}, document.VectorMetadata{})
		s.Require().Error(err)
		s.Contains(err.Error(), "503")
	})
}

func (s *ClientSuite) TestDelete() {
	s.Run("deletes by vector id", func() {
		docID := id.NewDocumentID()
		var captured map[string]any
		client := s.newClient(func(w http.ResponseWriter, r *http.Request) {
			s.Equal("/vectors/delete", r.URL.Path)
			s.Require().NoError(json.NewDecoder(r.Body).Decode(&captured))
			_, _ = w.Write([]byte(`{}`))
		})

		s.Require().NoError(client.Delete(context.Background(), docID))
		s.Equal([]any{docID.String()}, captured["ids"])
	})
}
