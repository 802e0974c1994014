package repositories

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/yigit/courseenroll/internal/app/models"
	"github.com/yigit/courseenroll/internal/pkg/helpers"
)

// remainingSeatsExpr computes the free seats in the pool the student would draw from
const remainingSeatsExpr = `CASE WHEN c.department_id = ? THEN o.quota_inner - o.enrolled_inner ELSE o.quota_outer - o.enrolled_outer END`

// CatalogRepository serves read-only offering and enrollment views
type CatalogRepository struct {
	db *pgxpool.Pool
	sb squirrel.StatementBuilderType
}

// NewCatalogRepository creates a new CatalogRepository
func NewCatalogRepository(db *pgxpool.Pool) *CatalogRepository {
	return &CatalogRepository{
		db: db,
		sb: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// GetStudent retrieves a student by ID
func (r *CatalogRepository) GetStudent(ctx context.Context, studentID int64) (*models.Student, error) {
	return getStudent(ctx, r.db, selectStudent(r.sb, studentID))
}

// availableFilter restricts offerings to the term, to those the student has not
// taken yet and to those with a free seat in the student's pool
func (r *CatalogRepository) availableFilter(q squirrel.SelectBuilder, student *models.Student, termID int64) squirrel.SelectBuilder {
	return q.From("offerings o").
		Join("courses c ON c.id = o.course_id").
		Join("departments d ON d.id = c.department_id").
		Where(squirrel.Eq{"o.term_id": termID}).
		Where("NOT EXISTS (SELECT 1 FROM enrollments e WHERE e.offering_id = o.id AND e.student_id = ?)", student.ID).
		Where(squirrel.Expr(remainingSeatsExpr+" > 0", student.DepartmentID))
}

// ListAvailableOfferings lists the offerings a student could still enroll in
func (r *CatalogRepository) ListAvailableOfferings(ctx context.Context, student *models.Student, termID int64, page helpers.Page) ([]models.AvailableOffering, int64, error) {
	countSQL, countArgs, err := r.availableFilter(r.sb.Select("COUNT(*)"), student, termID).ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("failed to build count query: %w", err)
	}

	var total int64
	if err := r.db.QueryRow(ctx, countSQL, countArgs...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("error counting available offerings: %w", err)
	}

	sql, args, err := r.availableFilter(
		r.sb.Select("o.id", "c.code", "c.name", "c.credits", "d.name", "c.department_id",
			"o.quota_inner", "o.quota_outer", "o.enrolled_inner", "o.enrolled_outer"),
		student, termID).
		OrderBy("c.code", "o.id").
		Limit(uint64(page.Size)).
		Offset(page.Offset()).
		ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("failed to build available offerings query: %w", err)
	}

	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("error querying available offerings: %w", err)
	}
	defer rows.Close()

	var (
		result []models.AvailableOffering
		ids    []int64
	)
	for rows.Next() {
		var (
			item models.AvailableOffering
			o    models.Offering
		)
		if err := rows.Scan(&item.OfferingID, &item.CourseCode, &item.CourseName, &item.Credits, &item.DepartmentName,
			&o.DepartmentID, &o.QuotaInner, &o.QuotaOuter, &o.EnrolledInner, &o.EnrolledOuter); err != nil {
			return nil, 0, fmt.Errorf("error scanning available offering: %w", err)
		}
		item.Classification = models.Classify(student.DepartmentID, o.DepartmentID)
		item.Remaining = o.Remaining(item.Classification)
		item.Total = o.Quota(item.Classification)
		result = append(result, item)
		ids = append(ids, item.OfferingID)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("error iterating available offerings: %w", err)
	}

	if len(ids) == 0 {
		return result, total, nil
	}

	entries, err := queryScheduleEntries(ctx, r.db, r.sb.Select(scheduleColumns...).
		From("schedule_entries se").
		Where(squirrel.Eq{"se.offering_id": ids}).
		OrderBy("se.weekday", "se.period"))
	if err != nil {
		return nil, 0, err
	}
	byOffering := make(map[int64][]models.ScheduleEntry, len(ids))
	for _, e := range entries {
		byOffering[e.OfferingID] = append(byOffering[e.OfferingID], e)
	}
	for i := range result {
		result[i].Schedule = byOffering[result[i].OfferingID]
	}

	return result, total, nil
}

// ListStudentSchedule returns the committed timetable of a student for a term
func (r *CatalogRepository) ListStudentSchedule(ctx context.Context, studentID, termID int64) ([]models.ScheduleItem, error) {
	sql, args, err := r.sb.Select(append(scheduleColumns, "c.code", "c.name", "c.credits")...).
		From("schedule_entries se").
		Join("enrollments e ON e.offering_id = se.offering_id").
		Join("offerings o ON o.id = se.offering_id").
		Join("courses c ON c.id = o.course_id").
		Where(squirrel.Eq{"e.student_id": studentID, "o.term_id": termID}).
		OrderBy("se.weekday", "se.period", "c.code").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build student schedule query: %w", err)
	}

	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("error querying student schedule: %w", err)
	}
	defer rows.Close()

	var items []models.ScheduleItem
	for rows.Next() {
		var item models.ScheduleItem
		entry, err := scanScheduleEntry(rows, &item.CourseCode, &item.CourseName, &item.Credits)
		if err != nil {
			return nil, err
		}
		item.Entry = entry
		item.OfferingID = entry.OfferingID
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating student schedule: %w", err)
	}
	return items, nil
}

// ListTeacherSchedule returns the sessions a teacher gives in a term
func (r *CatalogRepository) ListTeacherSchedule(ctx context.Context, teacherID, termID int64) ([]models.TeachingItem, error) {
	sql, args, err := r.sb.Select(append(scheduleColumns, "c.code", "c.name", "c.credits",
		"o.enrolled_inner + o.enrolled_outer", "o.quota_inner + o.quota_outer")...).
		From("schedule_entries se").
		Join("offerings o ON o.id = se.offering_id").
		Join("courses c ON c.id = o.course_id").
		Where(squirrel.Eq{"se.teacher_id": teacherID, "o.term_id": termID}).
		OrderBy("se.weekday", "se.period", "c.code").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build teacher schedule query: %w", err)
	}

	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("error querying teacher schedule: %w", err)
	}
	defer rows.Close()

	var items []models.TeachingItem
	for rows.Next() {
		var item models.TeachingItem
		entry, err := scanScheduleEntry(rows, &item.CourseCode, &item.CourseName, &item.Credits, &item.Enrolled, &item.Quota)
		if err != nil {
			return nil, err
		}
		item.Entry = entry
		item.OfferingID = entry.OfferingID
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating teacher schedule: %w", err)
	}

	if len(items) == 0 {
		exists, err := r.rowExists(ctx, "terms", termID)
		if err != nil {
			return nil, err
		}
		if !exists {
			return nil, ErrTermNotFound
		}
	}
	return items, nil
}

// ListOfferingRoster lists the students enrolled in an offering
func (r *CatalogRepository) ListOfferingRoster(ctx context.Context, offeringID int64) ([]models.RosterEntry, error) {
	sql, args, err := r.sb.Select("s.id", "s.student_number", "s.name", "e.classification", "e.enroll_time").
		From("enrollments e").
		Join("students s ON s.id = e.student_id").
		Where(squirrel.Eq{"e.offering_id": offeringID}).
		OrderBy("s.student_number").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build roster query: %w", err)
	}

	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("error querying roster: %w", err)
	}
	defer rows.Close()

	var roster []models.RosterEntry
	for rows.Next() {
		var (
			entry          models.RosterEntry
			classification string
		)
		if err := rows.Scan(&entry.StudentID, &entry.StudentNumber, &entry.Name, &classification, &entry.EnrollTime); err != nil {
			return nil, fmt.Errorf("error scanning roster entry: %w", err)
		}
		entry.Classification = models.Classification(classification)
		roster = append(roster, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating roster: %w", err)
	}

	if len(roster) == 0 {
		exists, err := r.rowExists(ctx, "offerings", offeringID)
		if err != nil {
			return nil, err
		}
		if !exists {
			return nil, ErrOfferingNotFound
		}
	}
	return roster, nil
}

// rowExists reports whether table has a row with the given id
func (r *CatalogRepository) rowExists(ctx context.Context, table string, id int64) (bool, error) {
	sql, args, err := r.sb.Select("1").
		From(table).
		Where(squirrel.Eq{"id": id}).
		Prefix("SELECT EXISTS(").
		Suffix(")").
		ToSql()
	if err != nil {
		return false, fmt.Errorf("failed to build %s exists query: %w", table, err)
	}

	var exists bool
	if err := r.db.QueryRow(ctx, sql, args...).Scan(&exists); err != nil {
		return false, fmt.Errorf("error checking %s existence: %w", table, err)
	}
	return exists, nil
}

// FindQuotaDrift returns every offering whose counters differ from its enrollment rows
func (r *CatalogRepository) FindQuotaDrift(ctx context.Context) ([]models.QuotaDrift, error) {
	counted := r.sb.Select("offering_id",
		"COUNT(*) FILTER (WHERE classification = 'inner') AS inner_count",
		"COUNT(*) FILTER (WHERE classification = 'outer') AS outer_count").
		From("enrollments").
		GroupBy("offering_id")

	sql, args, err := r.sb.Select("o.id", "o.enrolled_inner", "o.enrolled_outer",
		"COALESCE(x.inner_count, 0)", "COALESCE(x.outer_count, 0)").
		From("offerings o").
		JoinClause(counted.Prefix("LEFT JOIN (").Suffix(") x ON x.offering_id = o.id")).
		Where("o.enrolled_inner <> COALESCE(x.inner_count, 0) OR o.enrolled_outer <> COALESCE(x.outer_count, 0)").
		OrderBy("o.id").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build quota drift query: %w", err)
	}

	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("error querying quota drift: %w", err)
	}
	defer rows.Close()

	var drifts []models.QuotaDrift
	for rows.Next() {
		var d models.QuotaDrift
		if err := rows.Scan(&d.OfferingID, &d.StoredInner, &d.StoredOuter, &d.CountedInner, &d.CountedOuter); err != nil {
			return nil, fmt.Errorf("error scanning quota drift: %w", err)
		}
		drifts = append(drifts, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating quota drift: %w", err)
	}
	return drifts, nil
}
