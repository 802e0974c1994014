package seed

import (
	"context"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	appModels "github.com/yigit/courseenroll/internal/app/models"
	"github.com/yigit/courseenroll/internal/app/repositories/memory"
	"github.com/yigit/courseenroll/internal/domain/schedule"
)

// Dataset is the demo catalog loaded into an empty store
type Dataset struct {
	Departments []appModels.Department
	Courses     []appModels.Course
	Students    []appModels.Student
	Terms       []appModels.Term
	Offerings   []appModels.Offering
	Schedule    []appModels.ScheduleEntry
}

// DefaultData builds the demo dataset. The term's enroll window opens an hour
// before now and stays open for two weeks; drops are accepted for three.
func DefaultData(now time.Time) Dataset {
	now = now.UTC().Truncate(time.Second)

	return Dataset{
		Departments: []appModels.Department{
			{ID: 1, Name: "Computer Engineering", Code: "CENG"},
			{ID: 2, Name: "Mathematics", Code: "MATH"},
			{ID: 3, Name: "Physics", Code: "PHYS"},
		},
		Courses: []appModels.Course{
			{ID: 10, DepartmentID: 1, Code: "CENG101", Name: "Introduction to Programming", Credits: 4},
			{ID: 11, DepartmentID: 1, Code: "CENG201", Name: "Data Structures", Credits: 4},
			{ID: 20, DepartmentID: 2, Code: "MATH101", Name: "Calculus I", Credits: 5},
			{ID: 21, DepartmentID: 2, Code: "MATH201", Name: "Linear Algebra", Credits: 3},
			{ID: 30, DepartmentID: 3, Code: "PHYS101", Name: "Physics I", Credits: 4},
		},
		Students: []appModels.Student{
			{ID: 1, StudentNumber: "20260001", Name: "Ada Yilmaz", DepartmentID: 1},
			{ID: 2, StudentNumber: "20260002", Name: "Deniz Kaya", DepartmentID: 2},
			{ID: 3, StudentNumber: "20260003", Name: "Ece Demir", DepartmentID: 3},
		},
		Terms: []appModels.Term{
			{
				ID:          1,
				Name:        "Fall",
				EnrollStart: now.Add(-time.Hour),
				EnrollEnd:   now.Add(14 * 24 * time.Hour),
				DropStart:   now.Add(-time.Hour),
				DropEnd:     now.Add(21 * 24 * time.Hour),
			},
		},
		Offerings: []appModels.Offering{
			{ID: 100, CourseID: 10, ClassroomID: 1, TermID: 1, QuotaInner: 30, QuotaOuter: 10},
			{ID: 101, CourseID: 11, ClassroomID: 2, TermID: 1, QuotaInner: 25, QuotaOuter: 5},
			{ID: 102, CourseID: 20, ClassroomID: 3, TermID: 1, QuotaInner: 40, QuotaOuter: 20},
			{ID: 103, CourseID: 21, ClassroomID: 3, TermID: 1, QuotaInner: 20, QuotaOuter: 0},
			{ID: 104, CourseID: 30, ClassroomID: 4, TermID: 1, QuotaInner: 30, QuotaOuter: 15},
		},
		Schedule: []appModels.ScheduleEntry{
			{ID: 1, OfferingID: 100, TeacherID: teacher(501), Weekday: 1, Period: 1, StartWeek: 1, EndWeek: 16, WeekType: schedule.WeekAll},
			{ID: 2, OfferingID: 100, TeacherID: teacher(501), Weekday: 3, Period: 1, StartWeek: 1, EndWeek: 16, WeekType: schedule.WeekAll},
			{ID: 3, OfferingID: 101, TeacherID: teacher(501), Weekday: 2, Period: 3, StartWeek: 1, EndWeek: 16, WeekType: schedule.WeekAll},
			// Shares Monday period 1 with CENG101
			{ID: 4, OfferingID: 102, TeacherID: teacher(502), Weekday: 1, Period: 1, StartWeek: 1, EndWeek: 8, WeekType: schedule.WeekOdd},
			{ID: 5, OfferingID: 103, TeacherID: teacher(502), Weekday: 4, Period: 2, StartWeek: 9, EndWeek: 16, WeekType: schedule.WeekEven},
			{ID: 6, OfferingID: 104, TeacherID: teacher(503), Weekday: 5, Period: 5, StartWeek: 1, EndWeek: 16, WeekType: schedule.WeekAll},
		},
	}
}

func teacher(id int64) *int64 {
	return &id
}

// LoadIntoMemory fills an in-memory store with the dataset
func LoadIntoMemory(store *memory.Store, data Dataset) {
	for _, d := range data.Departments {
		store.PutDepartment(d)
	}
	for _, c := range data.Courses {
		store.PutCourse(c)
	}
	for _, s := range data.Students {
		store.PutStudent(s)
	}
	for _, t := range data.Terms {
		store.PutTerm(t)
	}
	for _, o := range data.Offerings {
		store.PutOffering(o)
	}
	for _, e := range data.Schedule {
		store.AddScheduleEntry(e)
	}
}

// CreateDefaultData inserts the dataset into PostgreSQL. Rows whose ID already
// exists are left untouched, so running it on every start is safe.
func CreateDefaultData(ctx context.Context, dbPool *pgxpool.Pool, data Dataset, lgr zerolog.Logger) error {
	sb := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)

	lgr.Info().Msg("Checking/Creating default data...")

	tables := []struct {
		name    string
		builder squirrel.InsertBuilder
		rows    int
	}{
		{"departments", insertDepartments(sb, data.Departments), len(data.Departments)},
		{"courses", insertCourses(sb, data.Courses), len(data.Courses)},
		{"students", insertStudents(sb, data.Students), len(data.Students)},
		{"terms", insertTerms(sb, data.Terms), len(data.Terms)},
		{"offerings", insertOfferings(sb, data.Offerings), len(data.Offerings)},
		{"schedule_entries", insertSchedule(sb, data.Schedule), len(data.Schedule)},
	}

	tx, err := dbPool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to start seed transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, table := range tables {
		if table.rows == 0 {
			continue
		}
		sql, args, err := table.builder.Suffix("ON CONFLICT (id) DO NOTHING").ToSql()
		if err != nil {
			return fmt.Errorf("failed to build %s seed query: %w", table.name, err)
		}
		tag, err := tx.Exec(ctx, sql, args...)
		if err != nil {
			return fmt.Errorf("error seeding %s: %w", table.name, err)
		}
		lgr.Debug().Str("table", table.name).Int64("inserted", tag.RowsAffected()).Msg("Seeded table")
	}

	// Explicit IDs do not advance the serial sequence
	if _, err := tx.Exec(ctx,
		`SELECT setval(pg_get_serial_sequence('schedule_entries', 'id'), GREATEST((SELECT MAX(id) FROM schedule_entries), 1))`); err != nil {
		return fmt.Errorf("error resetting schedule entry sequence: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit seed transaction: %w", err)
	}

	lgr.Info().Msg("Default data check/creation finished.")
	return nil
}

func insertDepartments(sb squirrel.StatementBuilderType, rows []appModels.Department) squirrel.InsertBuilder {
	q := sb.Insert("departments").Columns("id", "name", "code")
	for _, d := range rows {
		q = q.Values(d.ID, d.Name, d.Code)
	}
	return q
}

func insertCourses(sb squirrel.StatementBuilderType, rows []appModels.Course) squirrel.InsertBuilder {
	q := sb.Insert("courses").Columns("id", "department_id", "code", "name", "credits")
	for _, c := range rows {
		q = q.Values(c.ID, c.DepartmentID, c.Code, c.Name, c.Credits)
	}
	return q
}

func insertStudents(sb squirrel.StatementBuilderType, rows []appModels.Student) squirrel.InsertBuilder {
	q := sb.Insert("students").Columns("id", "student_number", "name", "department_id")
	for _, s := range rows {
		q = q.Values(s.ID, s.StudentNumber, s.Name, s.DepartmentID)
	}
	return q
}

func insertTerms(sb squirrel.StatementBuilderType, rows []appModels.Term) squirrel.InsertBuilder {
	q := sb.Insert("terms").Columns("id", "name", "enroll_start", "enroll_end", "drop_start", "drop_end")
	for _, t := range rows {
		q = q.Values(t.ID, t.Name, t.EnrollStart, t.EnrollEnd, t.DropStart, t.DropEnd)
	}
	return q
}

func insertOfferings(sb squirrel.StatementBuilderType, rows []appModels.Offering) squirrel.InsertBuilder {
	q := sb.Insert("offerings").
		Columns("id", "course_id", "classroom_id", "term_id", "quota_inner", "quota_outer", "enrolled_inner", "enrolled_outer")
	for _, o := range rows {
		q = q.Values(o.ID, o.CourseID, o.ClassroomID, o.TermID, o.QuotaInner, o.QuotaOuter, o.EnrolledInner, o.EnrolledOuter)
	}
	return q
}

func insertSchedule(sb squirrel.StatementBuilderType, rows []appModels.ScheduleEntry) squirrel.InsertBuilder {
	q := sb.Insert("schedule_entries").
		Columns("id", "offering_id", "teacher_id", "weekday", "period", "start_week", "end_week", "week_type")
	for _, e := range rows {
		q = q.Values(e.ID, e.OfferingID, e.TeacherID, e.Weekday, e.Period, e.StartWeek, e.EndWeek, string(e.WeekType))
	}
	return q
}
