package domain

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "kycgate/pkg/domain-errors"
)

// TestParseID_Invariants validates the parsing invariant:
// "IDs must be valid, non-empty, non-nil UUIDs"
func TestParseID_Invariants(t *testing.T) {
	t.Run("rejects empty string", func(t *testing.T) {
		_, err := ParseUserID("")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("rejects invalid format", func(t *testing.T) {
		_, err := ParseDocumentID("not-a-uuid")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("rejects nil UUID", func(t *testing.T) {
		_, err := ParseDecisionID(uuid.Nil.String())
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("accepts valid UUID", func(t *testing.T) {
		validUUID := uuid.New()
		id, err := ParseUserID(validUUID.String())
		require.NoError(t, err)
		assert.Equal(t, UserID(validUUID), id)
	})
}

func TestParseRole(t *testing.T) {
	t.Run("rejects empty role", func(t *testing.T) {
		_, err := ParseRole("")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("rejects unknown role", func(t *testing.T) {
		_, err := ParseRole("superuser")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("rejects the synthetic system role at trust boundaries", func(t *testing.T) {
		_, err := ParseRole(string(RoleSystem))
		require.Error(t, err)
	})

	t.Run("accepts every assignable role", func(t *testing.T) {
		for role := range validRoles {
			parsed, err := ParseRole(string(role))
			require.NoError(t, err)
			assert.Equal(t, role, parsed)
		}
	})
}

func TestStatusForVerdict(t *testing.T) {
	assert.Equal(t, DocStatusApproved, StatusForVerdict(VerdictApproved))
	assert.Equal(t, DocStatusRejected, StatusForVerdict(VerdictRejected))
	assert.Equal(t, DocStatusNeedsReview, StatusForVerdict(VerdictEscalate))
}

func TestParseActions(t *testing.T) {
	t.Run("officer actions", func(t *testing.T) {
		for _, s := range []string{"AGREE", "DISAGREE"} {
			_, err := ParseOfficerAction(s)
			assert.NoError(t, err)
		}
		_, err := ParseOfficerAction("APPROVE")
		assert.Error(t, err)
	})

	t.Run("manager actions", func(t *testing.T) {
		for _, s := range []string{"APPROVE", "REJECT", "ESCALATE"} {
			_, err := ParseManagerAction(s)
			assert.NoError(t, err)
		}
		_, err := ParseManagerAction("AGREE")
		assert.Error(t, err)
	})
}
