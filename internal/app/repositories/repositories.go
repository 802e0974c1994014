package repositories

import (
	"context"
	"errors"

	"github.com/yigit/courseenroll/internal/app/models"
	"github.com/yigit/courseenroll/internal/db"
	"github.com/yigit/courseenroll/internal/pkg/helpers"
)

// Repository errors
var (
	ErrOfferingNotFound   = errors.New("offering not found")
	ErrStudentNotFound    = errors.New("student not found")
	ErrTermNotFound       = errors.New("term not found")
	ErrEnrollmentNotFound = errors.New("enrollment not found")
	ErrEnrollmentExists   = errors.New("enrollment already exists")
)

// EnrollmentTx is the set of reads and writes the enrollment service performs
// inside one transaction. Implementations must hold the row locks taken by
// LockStudent and LockOffering until the transaction ends.
type EnrollmentTx interface {
	GetOffering(ctx context.Context, offeringID int64) (*models.Offering, error)
	LockOffering(ctx context.Context, offeringID int64) (*models.Offering, error)
	UpdateOfferingCounts(ctx context.Context, offeringID int64, enrolledInner, enrolledOuter int) error
	GetTerm(ctx context.Context, termID int64) (*models.Term, error)
	LockStudent(ctx context.Context, studentID int64) (*models.Student, error)
	GetEnrollment(ctx context.Context, studentID, offeringID int64) (*models.Enrollment, error)
	ListOfferingSchedule(ctx context.Context, offeringID int64) ([]models.ScheduleEntry, error)
	ListStudentTermSchedule(ctx context.Context, studentID, termID int64) ([]models.ScheduleEntry, error)
	InsertEnrollment(ctx context.Context, enrollment *models.Enrollment) error
	DeleteEnrollment(ctx context.Context, studentID, offeringID int64) error
}

// TxFn is the body of an enrollment transaction.
type TxFn func(ctx context.Context, tx EnrollmentTx) error

// EnrollmentStore runs enrollment transactions. InTx commits when fn returns
// nil and rolls back every write otherwise.
type EnrollmentStore interface {
	InTx(ctx context.Context, fn TxFn) error
}

// CatalogReader serves the read-only views over offerings and enrollments.
type CatalogReader interface {
	GetStudent(ctx context.Context, studentID int64) (*models.Student, error)
	ListAvailableOfferings(ctx context.Context, student *models.Student, termID int64, page helpers.Page) ([]models.AvailableOffering, int64, error)
	ListStudentSchedule(ctx context.Context, studentID, termID int64) ([]models.ScheduleItem, error)
	ListTeacherSchedule(ctx context.Context, teacherID, termID int64) ([]models.TeachingItem, error)
	ListOfferingRoster(ctx context.Context, offeringID int64) ([]models.RosterEntry, error)
}

// QuotaAuditReader compares stored seat counters with the enrollment rows.
type QuotaAuditReader interface {
	FindQuotaDrift(ctx context.Context) ([]models.QuotaDrift, error)
}

// Repositories holds the storage backends used by the services
type Repositories struct {
	Enrollments EnrollmentStore
	Catalog     CatalogReader
	Audit       QuotaAuditReader
}

// NewRepositories creates the PostgreSQL backed repositories
func NewRepositories(database *db.PostgresDB) *Repositories {
	catalog := NewCatalogRepository(database.Pool)
	return &Repositories{
		Enrollments: NewEnrollmentRepository(database),
		Catalog:     catalog,
		Audit:       catalog,
	}
}
