package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/rs/zerolog"
	"github.com/yigit/courseenroll/internal/app/models"
	"github.com/yigit/courseenroll/internal/app/repositories"
	"github.com/yigit/courseenroll/internal/domain/schedule"
	"github.com/yigit/courseenroll/internal/domain/window"
	"github.com/yigit/courseenroll/internal/pkg/apperrors"
	"github.com/yigit/courseenroll/internal/pkg/dberrors"
	"github.com/yigit/courseenroll/internal/pkg/logger"
)

const (
	opEnroll = "enroll"
	opDrop   = "drop"
)

// EnrollResult is the outcome of a committed enrollment
type EnrollResult struct {
	Committed      bool                  `json:"committed"`
	EnrollmentID   int64                 `json:"enrollmentId"`
	Classification models.Classification `json:"enrollType"`
	EnrollTime     time.Time             `json:"enrollTime"`
}

// DropResult is the outcome of a committed drop
type DropResult struct {
	Committed      bool                  `json:"committed"`
	Classification models.Classification `json:"enrollType"`
}

// EnrollmentConfig tunes the retry loop of the enrollment service
type EnrollmentConfig struct {
	// MaxAttempts is the total number of transaction attempts, including the first.
	MaxAttempts     int
	InitialInterval time.Duration
	MaxInterval     time.Duration
	// Now is the clock used for window checks and enroll_time. Defaults to time.Now.
	Now func() time.Time
}

// EnrollmentService is the only writer of enrollments and seat counters. Every
// Enroll and Drop runs as one transaction that is re-run as a whole when the
// data layer fails transiently.
type EnrollmentService struct {
	store  repositories.EnrollmentStore
	ledger *QuotaLedger
	policy window.Policy
	now    func() time.Time
	cache  ScheduleCache
	cfg    EnrollmentConfig
}

// NewEnrollmentService creates a new enrollment service
func NewEnrollmentService(store repositories.EnrollmentStore, cache ScheduleCache, cfg EnrollmentConfig) *EnrollmentService {
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = 1
	}
	if cfg.InitialInterval <= 0 {
		cfg.InitialInterval = 20 * time.Millisecond
	}
	if cfg.MaxInterval < cfg.InitialInterval {
		cfg.MaxInterval = cfg.InitialInterval
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cache == nil {
		cache = NoopScheduleCache{}
	}

	return &EnrollmentService{
		store:  store,
		ledger: NewQuotaLedger(),
		policy: window.NewPolicy(cfg.Now),
		now:    cfg.Now,
		cache:  cache,
		cfg:    cfg,
	}
}

// Enroll registers a student in an offering
func (s *EnrollmentService) Enroll(ctx context.Context, studentID, offeringID int64) (*EnrollResult, error) {
	var (
		result   EnrollResult
		termID   int64
		attempts int
	)
	// One enroll_time per call lets a retry recognise a row committed by an
	// earlier attempt whose COMMIT reply was lost. Stored timestamps carry
	// microseconds.
	enrollTime := s.now().Truncate(time.Microsecond)
	err := s.execute(ctx, opEnroll, studentID, offeringID, func(ctx context.Context, tx repositories.EnrollmentTx) error {
		attempts++
		r, tid, err := s.enroll(ctx, tx, studentID, offeringID, enrollTime, attempts > 1)
		if err != nil {
			return err
		}
		result, termID = *r, tid
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.invalidateSchedule(ctx, studentID, termID)
	return &result, nil
}

// Drop removes a student from an offering and frees the seat in the pool the
// enrollment was originally taken from
func (s *EnrollmentService) Drop(ctx context.Context, studentID, offeringID int64) (*DropResult, error) {
	var (
		result DropResult
		termID int64
	)
	err := s.execute(ctx, opDrop, studentID, offeringID, func(ctx context.Context, tx repositories.EnrollmentTx) error {
		r, tid, err := s.drop(ctx, tx, studentID, offeringID)
		if err != nil {
			return err
		}
		result, termID = *r, tid
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.invalidateSchedule(ctx, studentID, termID)
	return &result, nil
}

func (s *EnrollmentService) enroll(ctx context.Context, tx repositories.EnrollmentTx, studentID, offeringID int64, enrollTime time.Time, retry bool) (*EnrollResult, int64, error) {
	reject := func(reason apperrors.Reason) *apperrors.EnrollmentError {
		return apperrors.NewEnrollmentError(opEnroll, reason, studentID, offeringID)
	}

	offering, err := tx.GetOffering(ctx, offeringID)
	if err != nil {
		if errors.Is(err, repositories.ErrOfferingNotFound) {
			return nil, 0, reject(apperrors.ReasonOfferingNotFound)
		}
		return nil, 0, err
	}

	term, err := tx.GetTerm(ctx, offering.TermID)
	if err != nil {
		return nil, 0, fmt.Errorf("error loading term %d: %w", offering.TermID, err)
	}
	if !s.policy.IsEnrollWindowOpen(term) {
		return nil, 0, reject(apperrors.ReasonWindowClosed).WithDetail("term %q", term.Name)
	}

	// Locking the student first serializes concurrent requests of one student,
	// so the duplicate and conflict checks below see each other's commits.
	student, err := tx.LockStudent(ctx, studentID)
	if err != nil {
		if errors.Is(err, repositories.ErrStudentNotFound) {
			return nil, 0, reject(apperrors.ReasonStudentNotFound)
		}
		return nil, 0, err
	}

	if existing, err := tx.GetEnrollment(ctx, studentID, offeringID); err == nil {
		if retry && existing.EnrollTime.Equal(enrollTime) {
			return &EnrollResult{
				Committed:      true,
				EnrollmentID:   existing.ID,
				Classification: existing.Classification,
				EnrollTime:     existing.EnrollTime,
			}, offering.TermID, nil
		}
		return nil, 0, reject(apperrors.ReasonDuplicateEnrollment)
	} else if !errors.Is(err, repositories.ErrEnrollmentNotFound) {
		return nil, 0, err
	}

	classification := models.Classify(student.DepartmentID, offering.DepartmentID)

	candidate, err := tx.ListOfferingSchedule(ctx, offeringID)
	if err != nil {
		return nil, 0, err
	}
	existing, err := tx.ListStudentTermSchedule(ctx, studentID, offering.TermID)
	if err != nil {
		return nil, 0, err
	}
	if c, found := schedule.FindConflict(models.Slots(existing), models.Slots(candidate)); found {
		return nil, 0, reject(apperrors.ReasonTimeConflict).WithDetail("%s overlaps %s", c.Candidate, c.Existing)
	}

	if err := s.ledger.TryReserveSeat(ctx, tx, offeringID, classification); err != nil {
		switch {
		case errors.Is(err, apperrors.ErrQuotaFull):
			return nil, 0, reject(apperrors.ReasonQuotaFull).WithDetail("%s pool", classification)
		case errors.Is(err, repositories.ErrOfferingNotFound):
			return nil, 0, reject(apperrors.ReasonOfferingNotFound)
		}
		return nil, 0, err
	}

	enrollment := &models.Enrollment{
		StudentID:      studentID,
		OfferingID:     offeringID,
		Classification: classification,
		EnrollTime:     enrollTime,
	}
	if err := tx.InsertEnrollment(ctx, enrollment); err != nil {
		if errors.Is(err, repositories.ErrEnrollmentExists) {
			return nil, 0, reject(apperrors.ReasonDuplicateEnrollment)
		}
		return nil, 0, err
	}

	return &EnrollResult{
		Committed:      true,
		EnrollmentID:   enrollment.ID,
		Classification: classification,
		EnrollTime:     enrollment.EnrollTime,
	}, offering.TermID, nil
}

func (s *EnrollmentService) drop(ctx context.Context, tx repositories.EnrollmentTx, studentID, offeringID int64) (*DropResult, int64, error) {
	reject := func(reason apperrors.Reason) *apperrors.EnrollmentError {
		return apperrors.NewEnrollmentError(opDrop, reason, studentID, offeringID)
	}

	// An unknown student cannot hold an enrollment.
	if _, err := tx.LockStudent(ctx, studentID); err != nil {
		if errors.Is(err, repositories.ErrStudentNotFound) {
			return nil, 0, reject(apperrors.ReasonNotEnrolled)
		}
		return nil, 0, err
	}

	enrollment, err := tx.GetEnrollment(ctx, studentID, offeringID)
	if err != nil {
		if errors.Is(err, repositories.ErrEnrollmentNotFound) {
			return nil, 0, reject(apperrors.ReasonNotEnrolled)
		}
		return nil, 0, err
	}

	offering, err := tx.GetOffering(ctx, offeringID)
	if err != nil {
		return nil, 0, fmt.Errorf("error loading offering of enrollment %d: %w", enrollment.ID, err)
	}
	term, err := tx.GetTerm(ctx, offering.TermID)
	if err != nil {
		return nil, 0, fmt.Errorf("error loading term %d: %w", offering.TermID, err)
	}
	if !s.policy.IsDropWindowOpen(term) {
		return nil, 0, reject(apperrors.ReasonWindowClosed).WithDetail("term %q", term.Name)
	}

	// The pool is the one recorded at enroll time, even if the student has
	// changed department since.
	if err := s.ledger.ReleaseSeat(ctx, tx, offeringID, enrollment.Classification); err != nil {
		return nil, 0, err
	}

	if err := tx.DeleteEnrollment(ctx, studentID, offeringID); err != nil {
		if errors.Is(err, repositories.ErrEnrollmentNotFound) {
			return nil, 0, reject(apperrors.ReasonNotEnrolled)
		}
		return nil, 0, err
	}

	return &DropResult{Committed: true, Classification: enrollment.Classification}, offering.TermID, nil
}

// execute runs body in a transaction, re-running it with exponential backoff
// while it fails transiently. Any other error ends the loop at once.
func (s *EnrollmentService) execute(ctx context.Context, op string, studentID, offeringID int64, body repositories.TxFn) error {
	lgr := logger.FromContext(ctx, logger.Default()).With().
		Str("op", op).
		Int64("student_id", studentID).
		Int64("offering_id", offeringID).
		Logger()

	attempt := 0
	operation := func() (struct{}, error) {
		attempt++
		err := s.store.InTx(ctx, body)
		if err == nil {
			return struct{}{}, nil
		}
		if dberrors.IsTransient(err) {
			lgr.Warn().Err(err).Int("attempt", attempt).Msg("Transient failure in enrollment transaction")
			return struct{}{}, err
		}
		return struct{}{}, backoff.Permanent(err)
	}

	_, err := backoff.Retry(ctx, operation,
		backoff.WithBackOff(s.newBackOff()),
		backoff.WithMaxTries(uint(s.cfg.MaxAttempts)),
	)

	// Retry returns a permanent error as-is when it happens on the last try
	var permanent *backoff.PermanentError
	if errors.As(err, &permanent) {
		err = permanent.Unwrap()
	}

	return s.finish(lgr, op, studentID, offeringID, attempt, err)
}

func (s *EnrollmentService) finish(lgr zerolog.Logger, op string, studentID, offeringID int64, attempt int, err error) error {
	if err == nil {
		lgr.Info().Int("attempt", attempt).Msg("Enrollment transaction committed")
		return nil
	}

	if dberrors.IsTransient(err) {
		lgr.Error().Err(err).Int("attempt", attempt).Msg("Enrollment transaction gave up after transient failures")
		return apperrors.NewEnrollmentError(op, apperrors.ReasonTransientFailure, studentID, offeringID).
			WithDetail("%d attempts", attempt).
			WithCause(err)
	}

	if reason, ok := apperrors.ReasonOf(err); ok {
		lgr.Info().Str("reason", string(reason)).Int("attempt", attempt).Msg("Enrollment request rejected")
		return err
	}

	lgr.Error().Err(err).Int("attempt", attempt).Msg("Enrollment transaction failed")
	return fmt.Errorf("%s failed: %w", op, err)
}

func (s *EnrollmentService) newBackOff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = s.cfg.InitialInterval
	b.MaxInterval = s.cfg.MaxInterval
	return b
}

// invalidateSchedule drops the cached timetable after a commit. The commit
// already happened, so a cache error is only logged.
func (s *EnrollmentService) invalidateSchedule(ctx context.Context, studentID, termID int64) {
	if err := s.cache.InvalidateSchedule(ctx, studentID, termID); err != nil {
		lgr := logger.FromContext(ctx, logger.Default())
		lgr.Warn().Err(err).
			Int64("student_id", studentID).
			Int64("term_id", termID).
			Msg("Failed to invalidate cached schedule")
	}
}
