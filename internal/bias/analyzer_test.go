package bias

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/suite"

	id "kycgate/pkg/domain"
)

// =============================================================================
// Bias Analyzer Test Suite
// =============================================================================

type AnalyzerSuite struct {
	suite.Suite
}

func TestAnalyzerSuite(t *testing.T) {
	suite.Run(t, new(AnalyzerSuite))
}

func neighborsWithVerdicts(approved, rejected int) []id.Neighbor {
	var out []id.Neighbor
	for i := 0; i < approved; i++ {
		out = append(out, id.Neighbor{DocumentID: id.NewDocumentID(), Verdict: id.VerdictApproved})
	}
	for i := 0; i < rejected; i++ {
		out = append(out, id.Neighbor{DocumentID: id.NewDocumentID(), Verdict: id.VerdictRejected})
	}
	return out
}

func (s *AnalyzerSuite) TestAnalyze() {
	longNeutralText := strings.Repeat("standard kyc documentation content ", 5)

	s.Run("short text with no neighbors scores only the content factor", func() {
		analysis := Analyze("fifty characters of perfectly ordinary text here.", id.DocTypePassport, nil)

		s.InDelta(0.1, analysis.Score, 1e-9)
		s.Len(analysis.Factors, 1)
		s.Contains(analysis.Factors[0], "Short document")
		s.Equal([]string{"Request additional documentation"}, analysis.Recommendations)
	})

	s.Run("approval skew fires when approvals exceed twice the rejections", func() {
		analysis := Analyze(longNeutralText, id.DocTypePassport, neighborsWithVerdicts(5, 2))
		s.InDelta(0.3, analysis.Score, 1e-9)

		analysis = Analyze(longNeutralText, id.DocTypePassport, neighborsWithVerdicts(4, 2))
		s.Zero(analysis.Score)
	})

	s.Run("historically approved type needs at least one prior approval", func() {
		analysis := Analyze(longNeutralText, id.DocTypePAN, neighborsWithVerdicts(0, 3))
		s.Zero(analysis.Score)

		analysis = Analyze(longNeutralText, id.DocTypePAN, neighborsWithVerdicts(1, 3))
		s.InDelta(0.2, analysis.Score, 1e-9)
		s.Contains(analysis.Factors[0], "historically approved")
	})

	s.Run("urgency keywords match case-insensitively", func() {
		analysis := Analyze(longNeutralText+" please treat as URGENT", id.DocTypePassport, nil)
		s.InDelta(0.2, analysis.Score, 1e-9)
		s.Equal([]string{"Verify urgency claims"}, analysis.Recommendations)
	})

	s.Run("neighbors without verdict metadata are ignored", func() {
		neighbors := []id.Neighbor{
			{DocumentID: id.NewDocumentID()},
			{DocumentID: id.NewDocumentID()},
		}
		analysis := Analyze(longNeutralText, id.DocTypePassport, neighbors)
		s.Zero(analysis.Score)
	})

	s.Run("all factors together stay within the cap", func() {
		analysis := Analyze("urgent rush", id.DocTypePAN, neighborsWithVerdicts(7, 1))

		s.Len(analysis.Factors, 4)
		s.InDelta(0.8, analysis.Score, 1e-9)
		s.LessOrEqual(analysis.Score, 1.0)
	})

	s.Run("analysis confidence is the fixed constant", func() {
		analysis := Analyze(longNeutralText, id.DocTypePassport, nil)
		s.InDelta(0.85, analysis.Confidence, 1e-9)
	})

	s.Run("identical inputs produce identical output", func() {
		neighbors := neighborsWithVerdicts(3, 1)
		first := Analyze("urgent filing", id.DocTypePAN, neighbors)
		second := Analyze("urgent filing", id.DocTypePAN, neighbors)
		s.Equal(first, second)
	})
}
