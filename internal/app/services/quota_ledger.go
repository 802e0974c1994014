package services

import (
	"context"
	"fmt"

	"github.com/yigit/courseenroll/internal/app/models"
	"github.com/yigit/courseenroll/internal/app/repositories"
	"github.com/yigit/courseenroll/internal/pkg/apperrors"
	"github.com/yigit/courseenroll/internal/pkg/logger"
)

// QuotaLedger owns the enrolled_inner and enrolled_outer counters of offerings.
// Both operations must run inside the caller's transaction; the offering row
// stays locked until that transaction ends.
type QuotaLedger struct{}

// NewQuotaLedger creates a new quota ledger
func NewQuotaLedger() *QuotaLedger {
	return &QuotaLedger{}
}

// TryReserveSeat takes one seat of the given pool. It returns
// apperrors.ErrQuotaFull when the pool has no seat left.
func (l *QuotaLedger) TryReserveSeat(ctx context.Context, tx repositories.EnrollmentTx, offeringID int64, c models.Classification) error {
	offering, err := tx.LockOffering(ctx, offeringID)
	if err != nil {
		return err
	}

	if offering.Enrolled(c) >= offering.Quota(c) {
		return apperrors.ErrQuotaFull
	}

	inner, outer := offering.EnrolledInner, offering.EnrolledOuter
	if c == models.ClassificationInner {
		inner++
	} else {
		outer++
	}
	return tx.UpdateOfferingCounts(ctx, offeringID, inner, outer)
}

// ReleaseSeat gives back one seat of the given pool. A counter that is
// already zero means the counters no longer match the enrollments and
// apperrors.ErrQuotaUnderflow is returned.
func (l *QuotaLedger) ReleaseSeat(ctx context.Context, tx repositories.EnrollmentTx, offeringID int64, c models.Classification) error {
	offering, err := tx.LockOffering(ctx, offeringID)
	if err != nil {
		return err
	}

	if offering.Enrolled(c) <= 0 {
		lgr := logger.FromContext(ctx, logger.Default())
		lgr.Error().
			Int64("offering_id", offeringID).
			Str("classification", string(c)).
			Msg("Seat counter already at zero on release")
		return fmt.Errorf("offering %d %s pool: %w", offeringID, c, apperrors.ErrQuotaUnderflow)
	}

	inner, outer := offering.EnrolledInner, offering.EnrolledOuter
	if c == models.ClassificationInner {
		inner--
	} else {
		outer--
	}
	return tx.UpdateOfferingCounts(ctx, offeringID, inner, outer)
}
