package analysis

import (
	"context"

	"github.com/google/uuid"

	"github.com/superonehealth/api/internal/domain/labreports"
	"github.com/superonehealth/api/internal/platform/ocr"
)

var _ labreports.Analyst = (*Service)(nil)

// ReportAnalyzed records the pipeline's assessment of a completed report as a
// new snapshot. Failures are logged, not returned; the report itself already
// completed, and an out-of-range score from the pipeline must not undo that.
func (s *Service) ReportAnalyzed(ctx context.Context, rpt *labreports.LabReport, out *ocr.EventAnalysis) {
	_, err := s.Record(ctx, &HealthAnalysis{
		UserID:             rpt.UserID,
		OverallHealthScore: out.OverallHealthScore,
		HealthTrend:        out.HealthTrend,
		RiskLevel:          out.RiskLevel,
		PrimaryConcerns:    out.PrimaryConcerns,
		ImmediateActions:   out.ImmediateActions,
		Confidence:         out.Confidence,
		ReportIDs:          []uuid.UUID{rpt.ID},
	})
	if err != nil {
		s.logger.Error().
			Err(err).
			Str("report_id", rpt.ID.String()).
			Str("user_id", rpt.UserID.String()).
			Msg("recording pipeline analysis failed")
	}
}
