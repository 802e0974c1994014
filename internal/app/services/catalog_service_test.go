package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yigit/courseenroll/internal/app/models"
	"github.com/yigit/courseenroll/internal/domain/schedule"
	"github.com/yigit/courseenroll/internal/pkg/apperrors"
	"github.com/yigit/courseenroll/internal/pkg/helpers"
)

func TestListAvailableOfferings(t *testing.T) {
	store := newFixtureStore()
	enroll := newTestEnrollmentService(store, newTestClock(baseTime))
	catalog := NewCatalogService(store, nil)
	ctx := context.Background()

	page, err := catalog.ListAvailableOfferings(ctx, studentCS, termFall, helpers.NormalizePage(1, 2))
	require.NoError(t, err)
	// MA201 has no inner seats but one outer seat, so a CS student sees all four.
	assert.Equal(t, int64(4), page.TotalItems)
	require.Len(t, page.Items, 2)
	assert.Equal(t, "CS101", page.Items[0].CourseCode)
	assert.Equal(t, models.ClassificationInner, page.Items[0].Classification)
	assert.Equal(t, 2, page.Items[0].Remaining)
	assert.Equal(t, "CS102", page.Items[1].CourseCode)

	_, err = enroll.Enroll(ctx, studentCS, offeringCS101)
	require.NoError(t, err)

	page, err = catalog.ListAvailableOfferings(ctx, studentCS, termFall, helpers.NormalizePage(1, 10))
	require.NoError(t, err)
	assert.Equal(t, int64(3), page.TotalItems)
	for _, item := range page.Items {
		assert.NotEqual(t, offeringCS101, item.OfferingID)
	}

	// MA201 has no inner seats at all, so a Mathematics student never sees it.
	page, err = catalog.ListAvailableOfferings(ctx, studentMath, termFall, helpers.NormalizePage(1, 10))
	require.NoError(t, err)
	for _, item := range page.Items {
		assert.NotEqual(t, offeringMA201, item.OfferingID)
	}
}

func TestListAvailableOfferingsValidation(t *testing.T) {
	catalog := NewCatalogService(newFixtureStore(), nil)
	ctx := context.Background()

	_, err := catalog.ListAvailableOfferings(ctx, studentCS, 0, helpers.NormalizePage(1, 10))
	assert.ErrorIs(t, err, apperrors.ErrBadRequest)

	_, err = catalog.ListAvailableOfferings(ctx, 9999, termFall, helpers.NormalizePage(1, 10))
	assert.ErrorIs(t, err, apperrors.ErrStudentNotFound)
	assert.ErrorIs(t, err, apperrors.ErrResourceNotFound)
}

func TestGetStudentScheduleUsesCache(t *testing.T) {
	store := newFixtureStore()
	cache := newRecordingCache()
	enroll := NewEnrollmentService(store, cache, testEnrollmentConfig(newTestClock(baseTime)))
	catalog := NewCatalogService(store, cache)
	ctx := context.Background()

	items, err := catalog.GetStudentSchedule(ctx, studentCS, termFall)
	require.NoError(t, err)
	assert.Empty(t, items)
	assert.NotNil(t, items)

	_, err = enroll.Enroll(ctx, studentCS, offeringCS101)
	require.NoError(t, err)

	items, err = catalog.GetStudentSchedule(ctx, studentCS, termFall)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "CS101", items[0].CourseCode)

	// Served from the cache now.
	cache.items[[2]int64{studentCS, termFall}] = []models.ScheduleItem{{CourseCode: "CACHED"}}
	items, err = catalog.GetStudentSchedule(ctx, studentCS, termFall)
	require.NoError(t, err)
	assert.Equal(t, "CACHED", items[0].CourseCode)
}

func TestGetStudentScheduleDoesNotCacheRowsReadBeforeCommit(t *testing.T) {
	store := newFixtureStore()
	cache := newRecordingCache()
	enroll := NewEnrollmentService(store, cache, testEnrollmentConfig(newTestClock(baseTime)))
	ctx := context.Background()

	reader := &pausingReader{CatalogReader: store}
	reader.afterSchedule = func() {
		_, err := enroll.Enroll(ctx, studentCS, offeringCS101)
		require.NoError(t, err)
	}
	catalog := NewCatalogService(reader, cache)

	// This read loaded the empty timetable before the enrollment committed.
	items, err := catalog.GetStudentSchedule(ctx, studentCS, termFall)
	require.NoError(t, err)
	assert.Empty(t, items)
	assert.Equal(t, 1, cache.staleSets)

	items, err = catalog.GetStudentSchedule(ctx, studentCS, termFall)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "CS101", items[0].CourseCode)
}

func TestGetTeacherSchedule(t *testing.T) {
	store := newFixtureStore()
	teacherID := int64(42)
	store.AddScheduleEntry(models.ScheduleEntry{OfferingID: offeringCS102, TeacherID: &teacherID, Weekday: 3, Period: 2, StartWeek: 1, EndWeek: 16, WeekType: schedule.WeekAll})
	enroll := newTestEnrollmentService(store, newTestClock(baseTime))
	catalog := NewCatalogService(store, nil)
	ctx := context.Background()

	_, err := enroll.Enroll(ctx, studentCS, offeringCS102)
	require.NoError(t, err)

	items, err := catalog.GetTeacherSchedule(ctx, teacherID, termFall)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "CS102", items[0].CourseCode)
	assert.Equal(t, 1, items[0].Enrolled)
	assert.Equal(t, 2, items[0].Quota)

	items, err = catalog.GetTeacherSchedule(ctx, 7, termFall)
	require.NoError(t, err)
	assert.NotNil(t, items)
	assert.Empty(t, items)

	_, err = catalog.GetTeacherSchedule(ctx, teacherID, 99)
	assert.ErrorIs(t, err, apperrors.ErrResourceNotFound)
	assert.EqualError(t, err, "Term not found")

	_, err = catalog.GetTeacherSchedule(ctx, 0, termFall)
	assert.ErrorIs(t, err, apperrors.ErrBadRequest)
}

func TestListOfferingRoster(t *testing.T) {
	store := newFixtureStore()
	enroll := newTestEnrollmentService(store, newTestClock(baseTime))
	catalog := NewCatalogService(store, nil)
	ctx := context.Background()

	roster, err := catalog.ListOfferingRoster(ctx, offeringCS101)
	require.NoError(t, err)
	assert.Empty(t, roster)

	_, err = enroll.Enroll(ctx, studentMath, offeringCS101)
	require.NoError(t, err)
	_, err = enroll.Enroll(ctx, studentCS, offeringCS101)
	require.NoError(t, err)

	roster, err = catalog.ListOfferingRoster(ctx, offeringCS101)
	require.NoError(t, err)
	require.Len(t, roster, 2)
	assert.Equal(t, studentCS, roster[0].StudentID)
	assert.Equal(t, models.ClassificationInner, roster[0].Classification)
	assert.Equal(t, models.ClassificationOuter, roster[1].Classification)

	_, err = catalog.ListOfferingRoster(ctx, 9999)
	assert.ErrorIs(t, err, apperrors.ErrOfferingNotFound)
}

func TestQuotaAuditReportsDrift(t *testing.T) {
	store := newFixtureStore()
	enroll := newTestEnrollmentService(store, newTestClock(baseTime))
	audit := NewQuotaAuditService(store)
	ctx := context.Background()

	_, err := enroll.Enroll(ctx, studentCS, offeringCS101)
	require.NoError(t, err)

	drifts, err := audit.Run(ctx)
	require.NoError(t, err)
	assert.Empty(t, drifts)

	store.PutOffering(models.Offering{ID: offeringCS102, CourseID: 12, TermID: termFall, QuotaInner: 1, QuotaOuter: 1, EnrolledOuter: 1})

	drifts, err = audit.Run(ctx)
	require.NoError(t, err)
	require.Len(t, drifts, 1)
	assert.Equal(t, models.QuotaDrift{OfferingID: offeringCS102, StoredOuter: 1}, drifts[0])
}
