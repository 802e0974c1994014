package services

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/yigit/courseenroll/internal/app/models"
	"github.com/yigit/courseenroll/internal/app/repositories"
	"github.com/yigit/courseenroll/internal/app/repositories/memory"
	"github.com/yigit/courseenroll/internal/domain/schedule"
	"github.com/yigit/courseenroll/internal/pkg/dberrors"
)

const (
	deptCS   int64 = 1
	deptMath int64 = 2

	termFall int64 = 1

	studentCS   int64 = 100
	studentMath int64 = 101
	studentPhys int64 = 102

	offeringCS101 int64 = 1000 // Mon p1, weeks 1-16
	offeringMA101 int64 = 1001 // Mon p1, odd weeks 1-8, overlaps CS101
	offeringCS102 int64 = 1002 // Mon p2
	offeringMA201 int64 = 1003 // Tue p1, even weeks
)

var baseTime = time.Date(2026, 9, 1, 9, 0, 0, 0, time.UTC)

// testClock is a settable clock safe for concurrent reads
type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock(t time.Time) *testClock {
	return &testClock{now: t}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

func newFixtureStore() *memory.Store {
	s := memory.NewStore()

	s.PutDepartment(models.Department{ID: deptCS, Name: "Computer Science", Code: "CS"})
	s.PutDepartment(models.Department{ID: deptMath, Name: "Mathematics", Code: "MATH"})
	s.PutDepartment(models.Department{ID: 3, Name: "Physics", Code: "PHYS"})

	s.PutCourse(models.Course{ID: 10, DepartmentID: deptCS, Code: "CS101", Name: "Programming I", Credits: 4})
	s.PutCourse(models.Course{ID: 11, DepartmentID: deptMath, Code: "MA101", Name: "Calculus I", Credits: 4})
	s.PutCourse(models.Course{ID: 12, DepartmentID: deptCS, Code: "CS102", Name: "Programming II", Credits: 3})
	s.PutCourse(models.Course{ID: 13, DepartmentID: deptMath, Code: "MA201", Name: "Linear Algebra", Credits: 3})

	s.PutStudent(models.Student{ID: studentCS, StudentNumber: "2026100", Name: "Ada", DepartmentID: deptCS})
	s.PutStudent(models.Student{ID: studentMath, StudentNumber: "2026101", Name: "Emmy", DepartmentID: deptMath})
	s.PutStudent(models.Student{ID: studentPhys, StudentNumber: "2026102", Name: "Lise", DepartmentID: 3})

	s.PutTerm(models.Term{
		ID:          termFall,
		Name:        "2026 Fall",
		EnrollStart: baseTime.Add(-time.Hour),
		EnrollEnd:   baseTime.Add(time.Hour),
		DropStart:   baseTime.Add(-time.Hour),
		DropEnd:     baseTime.Add(24 * time.Hour),
	})

	s.PutOffering(models.Offering{ID: offeringCS101, CourseID: 10, ClassroomID: 1, TermID: termFall, QuotaInner: 2, QuotaOuter: 1})
	s.PutOffering(models.Offering{ID: offeringMA101, CourseID: 11, ClassroomID: 2, TermID: termFall, QuotaInner: 1, QuotaOuter: 1})
	s.PutOffering(models.Offering{ID: offeringCS102, CourseID: 12, ClassroomID: 1, TermID: termFall, QuotaInner: 1, QuotaOuter: 1})
	s.PutOffering(models.Offering{ID: offeringMA201, CourseID: 13, ClassroomID: 2, TermID: termFall, QuotaInner: 0, QuotaOuter: 1})

	s.AddScheduleEntry(models.ScheduleEntry{OfferingID: offeringCS101, Weekday: 1, Period: 1, StartWeek: 1, EndWeek: 16, WeekType: schedule.WeekAll})
	s.AddScheduleEntry(models.ScheduleEntry{OfferingID: offeringMA101, Weekday: 1, Period: 1, StartWeek: 1, EndWeek: 8, WeekType: schedule.WeekOdd})
	s.AddScheduleEntry(models.ScheduleEntry{OfferingID: offeringCS102, Weekday: 1, Period: 2, StartWeek: 1, EndWeek: 16, WeekType: schedule.WeekAll})
	s.AddScheduleEntry(models.ScheduleEntry{OfferingID: offeringMA201, Weekday: 2, Period: 1, StartWeek: 1, EndWeek: 16, WeekType: schedule.WeekEven})

	return s
}

func testEnrollmentConfig(clock *testClock) EnrollmentConfig {
	return EnrollmentConfig{
		MaxAttempts:     3,
		InitialInterval: time.Millisecond,
		MaxInterval:     2 * time.Millisecond,
		Now:             clock.Now,
	}
}

// flakyStore runs transactions on an inner store and fails the first
// `failures` of them with err after the body ran, so their writes roll back.
type flakyStore struct {
	inner    repositories.EnrollmentStore
	failures int32
	err      error
	calls    atomic.Int32
}

func newDeadlockingStore(inner repositories.EnrollmentStore, failures int32) *flakyStore {
	return &flakyStore{
		inner:    inner,
		failures: failures,
		err:      &pgconn.PgError{Code: dberrors.CodeDeadlockDetected, Message: "deadlock detected"},
	}
}

func (f *flakyStore) InTx(ctx context.Context, fn repositories.TxFn) error {
	call := f.calls.Add(1)
	return f.inner.InTx(ctx, func(ctx context.Context, tx repositories.EnrollmentTx) error {
		if err := fn(ctx, tx); err != nil {
			return err
		}
		if f.failures < 0 || call <= f.failures {
			return f.err
		}
		return nil
	})
}

// lostReplyStore fails the first transaction with a connection error. With
// commit set the transaction is applied first, as when the server committed
// but the reply never arrived.
type lostReplyStore struct {
	inner  repositories.EnrollmentStore
	commit bool
	calls  atomic.Int32
}

func (l *lostReplyStore) InTx(ctx context.Context, fn repositories.TxFn) error {
	if l.calls.Add(1) > 1 {
		return l.inner.InTx(ctx, fn)
	}
	if l.commit {
		if err := l.inner.InTx(ctx, fn); err != nil {
			return err
		}
	}
	return &pgconn.PgError{Code: "08006", Message: "connection failure during commit"}
}

// recordingCache is an in-memory ScheduleCache that remembers invalidations
type recordingCache struct {
	mu            sync.Mutex
	items         map[[2]int64][]models.ScheduleItem
	generations   map[[2]int64]int64
	invalidated   [][2]int64
	invalidateErr error
	gets          int
	staleSets     int
}

func newRecordingCache() *recordingCache {
	return &recordingCache{
		items:       make(map[[2]int64][]models.ScheduleItem),
		generations: make(map[[2]int64]int64),
	}
}

func (c *recordingCache) GetSchedule(_ context.Context, studentID, termID int64) ([]models.ScheduleItem, int64, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gets++
	key := [2]int64{studentID, termID}
	items, ok := c.items[key]
	return items, c.generations[key], ok, nil
}

func (c *recordingCache) SetSchedule(_ context.Context, studentID, termID, generation int64, items []models.ScheduleItem) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	key := [2]int64{studentID, termID}
	if c.generations[key] != generation {
		c.staleSets++
		return nil
	}
	c.items[key] = items
	return nil
}

func (c *recordingCache) InvalidateSchedule(_ context.Context, studentID, termID int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	key := [2]int64{studentID, termID}
	c.invalidated = append(c.invalidated, key)
	c.generations[key]++
	delete(c.items, key)
	return c.invalidateErr
}

// pausingReader runs afterSchedule once the inner ListStudentSchedule has
// returned, before the result reaches the caller.
type pausingReader struct {
	repositories.CatalogReader
	afterSchedule func()
}

func (r *pausingReader) ListStudentSchedule(ctx context.Context, studentID, termID int64) ([]models.ScheduleItem, error) {
	items, err := r.CatalogReader.ListStudentSchedule(ctx, studentID, termID)
	if r.afterSchedule != nil {
		hook := r.afterSchedule
		r.afterSchedule = nil
		hook()
	}
	return items, err
}

var errCacheDown = errors.New("cache unavailable")
