package classifier_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"kycgate/internal/classifier"
	"kycgate/internal/platform/config"
)

// =============================================================================
// Classifier Client Test Suite
// =============================================================================
// Justification for unit tests: the adapter owns the wire contract with the
// classifier service. Request shape, auth header, and the no-choices and
// non-200 failure paths are all observable against a stub server.

type ClientSuite struct {
	suite.Suite
}

func TestClientSuite(t *testing.T) {
	suite.Run(t, new(ClientSuite))
}

func (s *ClientSuite) newClient(handler http.HandlerFunc) (*classifier.Client, *httptest.Server) {
	server := httptest.NewServer(handler)
	s.T().Cleanup(server.Close)

	client, err := classifier.New(config.ClassifierConfig{
		BaseURL: server.URL,
		APIKey:  "test-key",
		Model:   "doc-classifier-v2",
		Timeout: 5 * time.Second,
	})
	s.Require().NoError(err)
	return client, server
}

func (s *ClientSuite) TestNew() {
	s.Run("requires base URL", func() {
		_, err := classifier.New(config.ClassifierConfig{})
		s.Require().Error(err)
	})
}

func (s *ClientSuite) TestClassify() {
	s.Run("sends JSON-mode chat request and returns content", func() {
		var captured map[string]any
		client, _ := s.newClient(func(w http.ResponseWriter, r *http.Request) {
			s.Equal("/v1/chat/completions", r.URL.Path)
			s.Equal("Bearer test-key", r.Header.Get("Authorization"))
			s.Require().NoError(json.NewDecoder(r.Body).Decode(&captured))

			_ = json.NewEncoder(w).Encode(map[string]any{
				"choices": []map[string]any{
					{"message": map[string]any{"content": `{"verdict":"APPROVED"}`}},
				},
			})
		})

		content, err := client.Classify(context.Background(), "classify this document")
		s.Require().NoError(err)
		s.Equal(`{"verdict":"APPROVED"}`, content)

		s.Equal("doc-classifier-v2", captured["model"])
		s.Equal(map[string]any{"type": "json_object"}, captured["response_format"])
		messages := captured["messages"].([]any)
		s.Require().Len(messages, 2)
		s.Equal("system", messages[0].(map[string]any)["role"])
	})

	s.Run("empty choices", func() {
		client, _ := s.newClient(func(w http.ResponseWriter, _ *http.Request) {
			_ = json.NewEncoder(w).Encode(map[string]any{"choices": []any{}})
		})

		_, err := client.Classify(context.Background(), "prompt")
		s.Require().Error(err)
		s.Contains(err.Error(), "no choices")
	})

	s.Run("upstream failure", func() {
		client, _ := s.newClient(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
		})

		_, err := client.Classify(context.Background(), "prompt")
		s.Require().Error(err)
		s.Contains(err.Error(), "502")
	})
}

func (s *ClientSuite) TestEmbed() {
	s.Run("returns first embedding", func() {
		client, _ := s.newClient(func(w http.ResponseWriter, r *http.Request) {
			s.Equal("/v1/embeddings", r.URL.Path)
			_ = json.NewEncoder(w).Encode(map[string]any{
				"data": []map[string]any{
					{"embedding": []float32{0.1, 0.2, 0.3}},
				},
			})
		})

		embedding, err := client.Embed(context.Background(), "document text")
		s.Require().NoError(err)
		s.Equal([]float32{0.1, 0.2, 0.3}, embedding)
	})

	s.Run("empty data", func() {
		client, _ := s.newClient(func(w http.ResponseWriter, _ *http.Request) {
			_ = json.NewEncoder(w).Encode(map[string]any{"data": []any{}})
		})

		_, err := client.Embed(context.Background(), "document text")
		s.Require().Error(err)
	})
}
