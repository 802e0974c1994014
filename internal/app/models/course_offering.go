package models

// Offering represents one term's scheduling of a course, with its two seat pools.
// EnrolledInner and EnrolledOuter are only ever changed by the enrollment service.
type Offering struct {
	ID            int64 `json:"id" db:"id"`
	CourseID      int64 `json:"courseId" db:"course_id"`
	ClassroomID   int64 `json:"classroomId" db:"classroom_id"`
	TermID        int64 `json:"termId" db:"term_id"`
	QuotaInner    int   `json:"quotaInner" db:"quota_inner"`
	QuotaOuter    int   `json:"quotaOuter" db:"quota_outer"`
	EnrolledInner int   `json:"enrolledInner" db:"enrolled_inner"`
	EnrolledOuter int   `json:"enrolledOuter" db:"enrolled_outer"`

	// DepartmentID is the owning department, taken from the course.
	DepartmentID int64 `json:"departmentId" db:"department_id"`

	// Relations (populated when needed)
	Course   *Course         `json:"course,omitempty"`
	Schedule []ScheduleEntry `json:"schedule,omitempty"`
}

// Quota returns the seat limit of the given pool.
func (o *Offering) Quota(c Classification) int {
	if c == ClassificationInner {
		return o.QuotaInner
	}
	return o.QuotaOuter
}

// Enrolled returns the number of seats taken in the given pool.
func (o *Offering) Enrolled(c Classification) int {
	if c == ClassificationInner {
		return o.EnrolledInner
	}
	return o.EnrolledOuter
}

// Remaining returns the number of free seats in the given pool.
func (o *Offering) Remaining(c Classification) int {
	if r := o.Quota(c) - o.Enrolled(c); r > 0 {
		return r
	}
	return 0
}
