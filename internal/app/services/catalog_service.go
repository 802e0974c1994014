package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/yigit/courseenroll/internal/app/models"
	"github.com/yigit/courseenroll/internal/app/repositories"
	"github.com/yigit/courseenroll/internal/pkg/apperrors"
	"github.com/yigit/courseenroll/internal/pkg/helpers"
	"github.com/yigit/courseenroll/internal/pkg/logger"
)

// ScheduleCache keeps student timetables per term between writes.
//
// Every invalidation bumps a per-timetable generation. GetSchedule reports
// the generation it saw and SetSchedule stores nothing once that generation
// has moved on, so a read that loaded rows before a commit cannot cache them
// after the commit invalidated the entry.
type ScheduleCache interface {
	GetSchedule(ctx context.Context, studentID, termID int64) (items []models.ScheduleItem, generation int64, hit bool, err error)
	SetSchedule(ctx context.Context, studentID, termID, generation int64, items []models.ScheduleItem) error
	InvalidateSchedule(ctx context.Context, studentID, termID int64) error
}

// NoopScheduleCache never stores anything
type NoopScheduleCache struct{}

func (NoopScheduleCache) GetSchedule(context.Context, int64, int64) ([]models.ScheduleItem, int64, bool, error) {
	return nil, 0, false, nil
}

func (NoopScheduleCache) SetSchedule(context.Context, int64, int64, int64, []models.ScheduleItem) error {
	return nil
}

func (NoopScheduleCache) InvalidateSchedule(context.Context, int64, int64) error {
	return nil
}

// AvailableOfferingsPage is one page of the offerings a student may enroll in
type AvailableOfferingsPage struct {
	Items      []models.AvailableOffering
	TotalItems int64
	Page       helpers.Page
}

// CatalogService serves the read side: what a student can take, what they
// have taken and who is in an offering
type CatalogService struct {
	reader repositories.CatalogReader
	cache  ScheduleCache
}

// NewCatalogService creates a new catalog service
func NewCatalogService(reader repositories.CatalogReader, cache ScheduleCache) *CatalogService {
	if cache == nil {
		cache = NoopScheduleCache{}
	}
	return &CatalogService{reader: reader, cache: cache}
}

func (s *CatalogService) getStudent(ctx context.Context, studentID int64) (*models.Student, error) {
	if studentID <= 0 {
		return nil, apperrors.NewBadRequestError("student ID must be positive")
	}
	student, err := s.reader.GetStudent(ctx, studentID)
	if err != nil {
		if errors.Is(err, repositories.ErrStudentNotFound) {
			return nil, apperrors.ErrStudentNotFound
		}
		return nil, fmt.Errorf("error retrieving student: %w", err)
	}
	return student, nil
}

// ListAvailableOfferings lists the term's offerings the student is not yet
// enrolled in and that still have a seat in the student's pool
func (s *CatalogService) ListAvailableOfferings(ctx context.Context, studentID, termID int64, page helpers.Page) (*AvailableOfferingsPage, error) {
	if termID <= 0 {
		return nil, apperrors.NewBadRequestError("term ID must be positive")
	}
	student, err := s.getStudent(ctx, studentID)
	if err != nil {
		return nil, err
	}

	page = helpers.NormalizePage(page.Number, page.Size)
	items, total, err := s.reader.ListAvailableOfferings(ctx, student, termID, page)
	if err != nil {
		return nil, fmt.Errorf("error listing available offerings: %w", err)
	}
	if items == nil {
		items = []models.AvailableOffering{}
	}

	return &AvailableOfferingsPage{Items: items, TotalItems: total, Page: page}, nil
}

// GetStudentSchedule returns the student's committed timetable for a term
func (s *CatalogService) GetStudentSchedule(ctx context.Context, studentID, termID int64) ([]models.ScheduleItem, error) {
	if termID <= 0 {
		return nil, apperrors.NewBadRequestError("term ID must be positive")
	}

	lgr := logger.FromContext(ctx, logger.Default())

	items, generation, hit, cacheErr := s.cache.GetSchedule(ctx, studentID, termID)
	if cacheErr != nil {
		lgr.Warn().Err(cacheErr).Int64("student_id", studentID).Msg("Schedule cache read failed")
	} else if hit {
		return items, nil
	}

	if _, err := s.getStudent(ctx, studentID); err != nil {
		return nil, err
	}

	items, err := s.reader.ListStudentSchedule(ctx, studentID, termID)
	if err != nil {
		return nil, fmt.Errorf("error retrieving student schedule: %w", err)
	}
	if items == nil {
		items = []models.ScheduleItem{}
	}

	// Without a generation the write could not be checked against
	// invalidations, so a failed cache read skips it.
	if cacheErr == nil {
		if err := s.cache.SetSchedule(ctx, studentID, termID, generation, items); err != nil {
			lgr.Warn().Err(err).Int64("student_id", studentID).Msg("Schedule cache write failed")
		}
	}
	return items, nil
}

// GetTeacherSchedule returns the sessions a teacher gives in a term. A teacher
// without sessions gets an empty list; an unknown term is not found.
func (s *CatalogService) GetTeacherSchedule(ctx context.Context, teacherID, termID int64) ([]models.TeachingItem, error) {
	if teacherID <= 0 {
		return nil, apperrors.NewBadRequestError("teacher ID must be positive")
	}
	if termID <= 0 {
		return nil, apperrors.NewBadRequestError("term ID must be positive")
	}

	items, err := s.reader.ListTeacherSchedule(ctx, teacherID, termID)
	if err != nil {
		if errors.Is(err, repositories.ErrTermNotFound) {
			return nil, apperrors.NewResourceNotFoundError("Term not found")
		}
		return nil, fmt.Errorf("error retrieving teacher schedule: %w", err)
	}
	if items == nil {
		items = []models.TeachingItem{}
	}
	return items, nil
}

// ListOfferingRoster lists the students enrolled in an offering
func (s *CatalogService) ListOfferingRoster(ctx context.Context, offeringID int64) ([]models.RosterEntry, error) {
	if offeringID <= 0 {
		return nil, apperrors.NewBadRequestError("offering ID must be positive")
	}

	roster, err := s.reader.ListOfferingRoster(ctx, offeringID)
	if err != nil {
		if errors.Is(err, repositories.ErrOfferingNotFound) {
			return nil, apperrors.ErrOfferingNotFound
		}
		return nil, fmt.Errorf("error retrieving roster: %w", err)
	}
	if roster == nil {
		roster = []models.RosterEntry{}
	}
	return roster, nil
}
