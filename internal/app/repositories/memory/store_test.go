package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yigit/courseenroll/internal/app/models"
	"github.com/yigit/courseenroll/internal/app/repositories"
	"github.com/yigit/courseenroll/internal/domain/schedule"
	"github.com/yigit/courseenroll/internal/pkg/helpers"
)

func newTestStore() *Store {
	s := NewStore()
	s.PutDepartment(models.Department{ID: 1, Name: "Computer Science", Code: "CS"})
	s.PutDepartment(models.Department{ID: 2, Name: "Mathematics", Code: "MATH"})
	s.PutCourse(models.Course{ID: 10, DepartmentID: 1, Code: "CS101", Name: "Programming", Credits: 4})
	s.PutCourse(models.Course{ID: 11, DepartmentID: 2, Code: "MA101", Name: "Calculus", Credits: 3})
	s.PutStudent(models.Student{ID: 100, StudentNumber: "S100", Name: "Ada", DepartmentID: 1})
	s.PutTerm(models.Term{ID: 1, Name: "Fall"})
	s.PutOffering(models.Offering{ID: 1000, CourseID: 10, TermID: 1, QuotaInner: 2, QuotaOuter: 1})
	s.PutOffering(models.Offering{ID: 1001, CourseID: 11, TermID: 1, QuotaInner: 1, QuotaOuter: 0})
	s.AddScheduleEntry(models.ScheduleEntry{OfferingID: 1000, Weekday: 1, Period: 1, StartWeek: 1, EndWeek: 16, WeekType: schedule.WeekAll})
	return s
}

func TestInTxCommitsOnSuccess(t *testing.T) {
	s := newTestStore()
	ctx := context.Background()

	err := s.InTx(ctx, func(ctx context.Context, tx repositories.EnrollmentTx) error {
		o, err := tx.LockOffering(ctx, 1000)
		require.NoError(t, err)
		assert.Equal(t, int64(1), o.DepartmentID)
		require.NoError(t, tx.UpdateOfferingCounts(ctx, 1000, 1, 0))
		return tx.InsertEnrollment(ctx, &models.Enrollment{
			StudentID: 100, OfferingID: 1000, Classification: models.ClassificationInner, EnrollTime: time.Now(),
		})
	})
	require.NoError(t, err)

	o, _ := s.Offering(1000)
	assert.Equal(t, 1, o.EnrolledInner)
	require.Len(t, s.Enrollments(1000), 1)
	assert.Equal(t, int64(1), s.Enrollments(1000)[0].ID)
}

func TestInTxRollsBackOnError(t *testing.T) {
	s := newTestStore()
	ctx := context.Background()
	boom := errors.New("boom")

	err := s.InTx(ctx, func(ctx context.Context, tx repositories.EnrollmentTx) error {
		require.NoError(t, tx.UpdateOfferingCounts(ctx, 1000, 2, 1))
		require.NoError(t, tx.InsertEnrollment(ctx, &models.Enrollment{StudentID: 100, OfferingID: 1000}))
		return boom
	})
	assert.ErrorIs(t, err, boom)

	o, _ := s.Offering(1000)
	assert.Zero(t, o.EnrolledInner)
	assert.Zero(t, o.EnrolledOuter)
	assert.Empty(t, s.Enrollments(1000))
}

func TestInsertEnrollmentRejectsDuplicatePair(t *testing.T) {
	s := newTestStore()
	ctx := context.Background()

	insert := func(ctx context.Context, tx repositories.EnrollmentTx) error {
		return tx.InsertEnrollment(ctx, &models.Enrollment{StudentID: 100, OfferingID: 1000})
	}
	require.NoError(t, s.InTx(ctx, insert))
	assert.ErrorIs(t, s.InTx(ctx, insert), repositories.ErrEnrollmentExists)
}

func TestLookupsReturnRepositoryErrors(t *testing.T) {
	s := newTestStore()
	ctx := context.Background()

	_ = s.InTx(ctx, func(ctx context.Context, tx repositories.EnrollmentTx) error {
		_, err := tx.GetOffering(ctx, 9)
		assert.ErrorIs(t, err, repositories.ErrOfferingNotFound)
		_, err = tx.LockStudent(ctx, 9)
		assert.ErrorIs(t, err, repositories.ErrStudentNotFound)
		_, err = tx.GetTerm(ctx, 9)
		assert.ErrorIs(t, err, repositories.ErrTermNotFound)
		_, err = tx.GetEnrollment(ctx, 100, 1000)
		assert.ErrorIs(t, err, repositories.ErrEnrollmentNotFound)
		assert.ErrorIs(t, tx.DeleteEnrollment(ctx, 100, 1000), repositories.ErrEnrollmentNotFound)
		return nil
	})
}

func TestInTxHonoursCancelledContext(t *testing.T) {
	s := newTestStore()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	called := false
	err := s.InTx(ctx, func(context.Context, repositories.EnrollmentTx) error {
		called = true
		return nil
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, called)
}

func TestListAvailableOfferings(t *testing.T) {
	s := newTestStore()
	ctx := context.Background()
	student, err := s.GetStudent(ctx, 100)
	require.NoError(t, err)

	// Outer quota of MA101 is zero, so only CS101 is offered.
	items, total, err := s.ListAvailableOfferings(ctx, student, 1, helpers.NormalizePage(1, 10))
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, items, 1)
	assert.Equal(t, "CS101", items[0].CourseCode)
	assert.Equal(t, models.ClassificationInner, items[0].Classification)
	assert.Equal(t, 2, items[0].Remaining)
	assert.Equal(t, "Computer Science", items[0].DepartmentName)
	assert.Len(t, items[0].Schedule, 1)

	require.NoError(t, s.InTx(ctx, func(ctx context.Context, tx repositories.EnrollmentTx) error {
		return tx.InsertEnrollment(ctx, &models.Enrollment{StudentID: 100, OfferingID: 1000, Classification: models.ClassificationInner})
	}))

	items, total, err = s.ListAvailableOfferings(ctx, student, 1, helpers.NormalizePage(1, 10))
	require.NoError(t, err)
	assert.Zero(t, total)
	assert.Empty(t, items)
}

func TestStudentScheduleAndRoster(t *testing.T) {
	s := newTestStore()
	ctx := context.Background()
	enrollTime := time.Date(2026, 9, 1, 10, 0, 0, 0, time.UTC)

	require.NoError(t, s.InTx(ctx, func(ctx context.Context, tx repositories.EnrollmentTx) error {
		return tx.InsertEnrollment(ctx, &models.Enrollment{
			StudentID: 100, OfferingID: 1000, Classification: models.ClassificationInner, EnrollTime: enrollTime,
		})
	}))

	items, err := s.ListStudentSchedule(ctx, 100, 1)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "CS101", items[0].CourseCode)
	assert.Equal(t, 1, items[0].Entry.Weekday)

	items, err = s.ListStudentSchedule(ctx, 100, 2)
	require.NoError(t, err)
	assert.Empty(t, items)

	roster, err := s.ListOfferingRoster(ctx, 1000)
	require.NoError(t, err)
	require.Len(t, roster, 1)
	assert.Equal(t, "S100", roster[0].StudentNumber)
	assert.Equal(t, enrollTime, roster[0].EnrollTime)

	_, err = s.ListOfferingRoster(ctx, 9)
	assert.ErrorIs(t, err, repositories.ErrOfferingNotFound)
}

func TestFindQuotaDrift(t *testing.T) {
	s := newTestStore()
	ctx := context.Background()

	drifts, err := s.FindQuotaDrift(ctx)
	require.NoError(t, err)
	assert.Empty(t, drifts)

	s.PutOffering(models.Offering{ID: 1001, CourseID: 11, TermID: 1, QuotaInner: 1, EnrolledInner: 1})

	drifts, err = s.FindQuotaDrift(ctx)
	require.NoError(t, err)
	require.Len(t, drifts, 1)
	assert.Equal(t, models.QuotaDrift{OfferingID: 1001, StoredInner: 1}, drifts[0])
}

func TestListTeacherSchedule(t *testing.T) {
	s := newTestStore()
	ctx := context.Background()
	teacherID := int64(7)
	s.AddScheduleEntry(models.ScheduleEntry{OfferingID: 1001, TeacherID: &teacherID, Weekday: 2, Period: 3, StartWeek: 1, EndWeek: 16, WeekType: schedule.WeekAll})
	s.AddScheduleEntry(models.ScheduleEntry{OfferingID: 1000, TeacherID: &teacherID, Weekday: 2, Period: 1, StartWeek: 1, EndWeek: 8, WeekType: schedule.WeekOdd})

	require.NoError(t, s.InTx(ctx, func(ctx context.Context, tx repositories.EnrollmentTx) error {
		return tx.UpdateOfferingCounts(ctx, 1000, 1, 1)
	}))

	items, err := s.ListTeacherSchedule(ctx, teacherID, 1)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "CS101", items[0].CourseCode)
	assert.Equal(t, 1, items[0].Entry.Period)
	assert.Equal(t, 2, items[0].Enrolled)
	assert.Equal(t, 3, items[0].Quota)
	assert.Equal(t, "MA101", items[1].CourseCode)

	items, err = s.ListTeacherSchedule(ctx, 99, 1)
	require.NoError(t, err)
	assert.Empty(t, items)

	_, err = s.ListTeacherSchedule(ctx, teacherID, 5)
	assert.ErrorIs(t, err, repositories.ErrTermNotFound)
}
