package publisher

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	audit "kycgate/pkg/platform/audit"
	memorystore "kycgate/pkg/platform/audit/store/memory"
)

type failingStore struct{}

func (failingStore) Append(context.Context, audit.Entry) error {
	return errors.New("disk full")
}
func (failingStore) ListByResource(context.Context, string, string) ([]audit.Entry, error) {
	return nil, nil
}
func (failingStore) ListRecent(context.Context, int) ([]audit.Entry, error) {
	return nil, nil
}

func TestEmit(t *testing.T) {
	ctx := context.Background()

	t.Run("fills timestamp and category", func(t *testing.T) {
		store := memorystore.NewInMemoryStore()
		p := New(store)

		p.Emit(ctx, audit.Entry{Action: audit.ActionWorkflowAccessDenied})

		entries := store.All()
		assert.Len(t, entries, 1)
		assert.False(t, entries[0].Timestamp.IsZero())
		assert.Equal(t, audit.CategorySecurity, entries[0].Category)
	})

	t.Run("preserves caller timestamp", func(t *testing.T) {
		store := memorystore.NewInMemoryStore()
		p := New(store)
		ts := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

		p.Emit(ctx, audit.Entry{Action: audit.ActionOfficerReview, Timestamp: ts})

		assert.Equal(t, ts, store.All()[0].Timestamp)
	})

	t.Run("store failure never reaches the caller", func(t *testing.T) {
		p := New(failingStore{}, WithLogger(slog.Default()))

		// Must not panic or propagate; nothing to assert beyond survival.
		p.Emit(ctx, audit.Entry{Action: audit.ActionAIDecisionMade})
	})
}

func TestCategoryRouting(t *testing.T) {
	assert.Equal(t, audit.CategoryCompliance, audit.CategoryFor(audit.ActionOfficerReview))
	assert.Equal(t, audit.CategorySecurity, audit.CategoryFor(audit.ActionComplianceViolation))
	assert.Equal(t, audit.CategoryOperations, audit.CategoryFor("unknown_action"))
}
