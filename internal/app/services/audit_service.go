package services

import (
	"context"
	"fmt"

	"github.com/yigit/courseenroll/internal/app/models"
	"github.com/yigit/courseenroll/internal/app/repositories"
	"github.com/yigit/courseenroll/internal/pkg/logger"
)

// QuotaAuditService checks that the stored seat counters of every offering
// match the enrollment rows. It reports drift and never repairs it.
type QuotaAuditService struct {
	reader repositories.QuotaAuditReader
}

// NewQuotaAuditService creates a new quota audit service
func NewQuotaAuditService(reader repositories.QuotaAuditReader) *QuotaAuditService {
	return &QuotaAuditService{reader: reader}
}

// Run performs one audit pass and logs each drifted offering
func (s *QuotaAuditService) Run(ctx context.Context) ([]models.QuotaDrift, error) {
	drifts, err := s.reader.FindQuotaDrift(ctx)
	if err != nil {
		return nil, fmt.Errorf("error auditing seat counters: %w", err)
	}

	lgr := logger.FromContext(ctx, logger.Default())
	for _, d := range drifts {
		lgr.Error().
			Int64("offering_id", d.OfferingID).
			Int("stored_inner", d.StoredInner).
			Int("counted_inner", d.CountedInner).
			Int("stored_outer", d.StoredOuter).
			Int("counted_outer", d.CountedOuter).
			Msg("Seat counters do not match enrollments")
	}
	lgr.Info().Int("drifted_offerings", len(drifts)).Msg("Quota audit finished")

	return drifts, nil
}
