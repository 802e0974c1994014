package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/yigit/courseenroll/internal/app/models"
	"github.com/yigit/courseenroll/internal/db"
	"github.com/yigit/courseenroll/internal/domain/schedule"
	"github.com/yigit/courseenroll/internal/pkg/dberrors"
	"github.com/yigit/courseenroll/internal/pkg/helpers"
)

// enrollmentPairConstraint is the unique (student_id, offering_id) constraint name
const enrollmentPairConstraint = "enrollments_student_offering_key"

var offeringColumns = []string{
	"o.id", "o.course_id", "o.classroom_id", "o.term_id",
	"o.quota_inner", "o.quota_outer", "o.enrolled_inner", "o.enrolled_outer",
	"c.department_id",
}

var scheduleColumns = []string{
	"se.id", "se.offering_id", "se.teacher_id", "se.weekday", "se.period",
	"se.start_week", "se.end_week", "se.week_type",
}

// EnrollmentRepository runs enrollment transactions against PostgreSQL
type EnrollmentRepository struct {
	db *db.PostgresDB
	sb squirrel.StatementBuilderType
}

// NewEnrollmentRepository creates a new EnrollmentRepository
func NewEnrollmentRepository(database *db.PostgresDB) *EnrollmentRepository {
	return &EnrollmentRepository{
		db: database,
		sb: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// InTx implements EnrollmentStore
func (r *EnrollmentRepository) InTx(ctx context.Context, fn TxFn) error {
	return r.db.WithTransaction(ctx, func(ctx context.Context, tx pgx.Tx) error {
		return fn(ctx, &pgEnrollmentTx{tx: tx, sb: r.sb})
	})
}

// pgEnrollmentTx implements EnrollmentTx on top of a pgx transaction
type pgEnrollmentTx struct {
	tx pgx.Tx
	sb squirrel.StatementBuilderType
}

func (t *pgEnrollmentTx) selectOffering(forUpdate bool, offeringID int64) squirrel.SelectBuilder {
	q := t.sb.Select(offeringColumns...).
		From("offerings o").
		Join("courses c ON c.id = o.course_id").
		Where(squirrel.Eq{"o.id": offeringID})
	if forUpdate {
		q = q.Suffix("FOR UPDATE OF o")
	}
	return q
}

func (t *pgEnrollmentTx) queryOffering(ctx context.Context, q squirrel.SelectBuilder) (*models.Offering, error) {
	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build offering query: %w", err)
	}

	var o models.Offering
	err = t.tx.QueryRow(ctx, sql, args...).Scan(
		&o.ID, &o.CourseID, &o.ClassroomID, &o.TermID,
		&o.QuotaInner, &o.QuotaOuter, &o.EnrolledInner, &o.EnrolledOuter,
		&o.DepartmentID,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrOfferingNotFound
		}
		return nil, fmt.Errorf("error retrieving offering: %w", err)
	}
	return &o, nil
}

// GetOffering reads an offering without locking it
func (t *pgEnrollmentTx) GetOffering(ctx context.Context, offeringID int64) (*models.Offering, error) {
	return t.queryOffering(ctx, t.selectOffering(false, offeringID))
}

// LockOffering reads an offering and holds its row lock until the transaction ends
func (t *pgEnrollmentTx) LockOffering(ctx context.Context, offeringID int64) (*models.Offering, error) {
	return t.queryOffering(ctx, t.selectOffering(true, offeringID))
}

// UpdateOfferingCounts writes both seat counters of an offering
func (t *pgEnrollmentTx) UpdateOfferingCounts(ctx context.Context, offeringID int64, enrolledInner, enrolledOuter int) error {
	sql, args, err := t.sb.Update("offerings").
		Set("enrolled_inner", enrolledInner).
		Set("enrolled_outer", enrolledOuter).
		Where(squirrel.Eq{"id": offeringID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build update offering query: %w", err)
	}

	tag, err := t.tx.Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("error updating offering counters: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrOfferingNotFound
	}
	return nil
}

// GetTerm retrieves a term by ID
func (t *pgEnrollmentTx) GetTerm(ctx context.Context, termID int64) (*models.Term, error) {
	sql, args, err := t.sb.Select("id", "name", "enroll_start", "enroll_end", "drop_start", "drop_end").
		From("terms").
		Where(squirrel.Eq{"id": termID}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build get term query: %w", err)
	}

	// NULL boundaries scan to the zero time, which keeps the window closed
	var term models.Term
	var enrollStart, enrollEnd, dropStart, dropEnd *time.Time
	err = t.tx.QueryRow(ctx, sql, args...).Scan(
		&term.ID, &term.Name, &enrollStart, &enrollEnd, &dropStart, &dropEnd)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrTermNotFound
		}
		return nil, fmt.Errorf("error retrieving term: %w", err)
	}
	term.EnrollStart = helpers.TimeOrZero(enrollStart)
	term.EnrollEnd = helpers.TimeOrZero(enrollEnd)
	term.DropStart = helpers.TimeOrZero(dropStart)
	term.DropEnd = helpers.TimeOrZero(dropEnd)
	return &term, nil
}

// LockStudent reads a student and blocks other enrollment transactions of the
// same student, so their conflict checks see each other's commits
func (t *pgEnrollmentTx) LockStudent(ctx context.Context, studentID int64) (*models.Student, error) {
	return getStudent(ctx, t.tx, selectStudent(t.sb, studentID).Suffix("FOR NO KEY UPDATE"))
}

// GetEnrollment retrieves the enrollment of a student in an offering
func (t *pgEnrollmentTx) GetEnrollment(ctx context.Context, studentID, offeringID int64) (*models.Enrollment, error) {
	sql, args, err := t.sb.Select("id", "student_id", "offering_id", "classification", "enroll_time").
		From("enrollments").
		Where(squirrel.Eq{"student_id": studentID, "offering_id": offeringID}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build get enrollment query: %w", err)
	}

	var (
		e              models.Enrollment
		classification string
	)
	err = t.tx.QueryRow(ctx, sql, args...).Scan(&e.ID, &e.StudentID, &e.OfferingID, &classification, &e.EnrollTime)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrEnrollmentNotFound
		}
		return nil, fmt.Errorf("error retrieving enrollment: %w", err)
	}
	e.Classification = models.Classification(classification)
	return &e, nil
}

// ListOfferingSchedule returns the schedule entries of an offering
func (t *pgEnrollmentTx) ListOfferingSchedule(ctx context.Context, offeringID int64) ([]models.ScheduleEntry, error) {
	q := t.sb.Select(scheduleColumns...).
		From("schedule_entries se").
		Where(squirrel.Eq{"se.offering_id": offeringID}).
		OrderBy("se.weekday", "se.period")
	return queryScheduleEntries(ctx, t.tx, q)
}

// ListStudentTermSchedule returns every schedule entry of the offerings a student
// is enrolled in during a term
func (t *pgEnrollmentTx) ListStudentTermSchedule(ctx context.Context, studentID, termID int64) ([]models.ScheduleEntry, error) {
	q := t.sb.Select(scheduleColumns...).
		From("schedule_entries se").
		Join("enrollments e ON e.offering_id = se.offering_id").
		Join("offerings o ON o.id = se.offering_id").
		Where(squirrel.Eq{"e.student_id": studentID, "o.term_id": termID}).
		OrderBy("se.weekday", "se.period")
	return queryScheduleEntries(ctx, t.tx, q)
}

// InsertEnrollment creates an enrollment record
func (t *pgEnrollmentTx) InsertEnrollment(ctx context.Context, enrollment *models.Enrollment) error {
	sql, args, err := t.sb.Insert("enrollments").
		Columns("student_id", "offering_id", "classification", "enroll_time").
		Values(enrollment.StudentID, enrollment.OfferingID, string(enrollment.Classification), enrollment.EnrollTime).
		Suffix("RETURNING id").
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build insert enrollment query: %w", err)
	}

	if err := t.tx.QueryRow(ctx, sql, args...).Scan(&enrollment.ID); err != nil {
		if dberrors.IsDuplicateConstraintError(err, enrollmentPairConstraint) {
			return ErrEnrollmentExists
		}
		return fmt.Errorf("error inserting enrollment: %w", err)
	}
	return nil
}

// DeleteEnrollment removes the enrollment of a student in an offering
func (t *pgEnrollmentTx) DeleteEnrollment(ctx context.Context, studentID, offeringID int64) error {
	sql, args, err := t.sb.Delete("enrollments").
		Where(squirrel.Eq{"student_id": studentID, "offering_id": offeringID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build delete enrollment query: %w", err)
	}

	tag, err := t.tx.Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("error deleting enrollment: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrEnrollmentNotFound
	}
	return nil
}

// querier is satisfied by both pgx.Tx and *pgxpool.Pool
type querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

func selectStudent(sb squirrel.StatementBuilderType, studentID int64) squirrel.SelectBuilder {
	return sb.Select("id", "student_number", "name", "department_id").
		From("students").
		Where(squirrel.Eq{"id": studentID})
}

func getStudent(ctx context.Context, q querier, builder squirrel.SelectBuilder) (*models.Student, error) {
	sql, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build get student query: %w", err)
	}

	var s models.Student
	if err := q.QueryRow(ctx, sql, args...).Scan(&s.ID, &s.StudentNumber, &s.Name, &s.DepartmentID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrStudentNotFound
		}
		return nil, fmt.Errorf("error retrieving student: %w", err)
	}
	return &s, nil
}

func queryScheduleEntries(ctx context.Context, q querier, builder squirrel.SelectBuilder) ([]models.ScheduleEntry, error) {
	sql, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build schedule query: %w", err)
	}

	rows, err := q.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("error querying schedule entries: %w", err)
	}
	defer rows.Close()

	var entries []models.ScheduleEntry
	for rows.Next() {
		entry, err := scanScheduleEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating schedule entries: %w", err)
	}
	return entries, nil
}

// scanScheduleEntry scans the scheduleColumns, optionally followed by extra destinations
func scanScheduleEntry(row pgx.Row, extra ...any) (models.ScheduleEntry, error) {
	var (
		e        models.ScheduleEntry
		weekType string
	)
	dest := append([]any{&e.ID, &e.OfferingID, &e.TeacherID, &e.Weekday, &e.Period, &e.StartWeek, &e.EndWeek, &weekType}, extra...)
	if err := row.Scan(dest...); err != nil {
		return models.ScheduleEntry{}, fmt.Errorf("error scanning schedule entry: %w", err)
	}
	e.WeekType = schedule.WeekType(weekType)
	return e, nil
}
