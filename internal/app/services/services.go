package services

// Services defined in this package:
// - EnrollmentService: Enroll and Drop transactions with retry on transient failures
// - QuotaLedger: Reserves and releases seats inside an enrollment transaction
// - CatalogService: Available offerings, student schedules and offering rosters
// - QuotaAuditService: Compares seat counters with enrollment rows

// Services groups the services used by the HTTP layer and background jobs
type Services struct {
	Enrollment *EnrollmentService
	Catalog    *CatalogService
	Audit      *QuotaAuditService
}
