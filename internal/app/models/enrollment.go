package models

import "time"

// Enrollment links a student to an offering. Records are inserted on enroll and
// deleted on drop, never updated.
type Enrollment struct {
	ID             int64          `json:"id" db:"id"`
	StudentID      int64          `json:"studentId" db:"student_id"`
	OfferingID     int64          `json:"offeringId" db:"offering_id"`
	Classification Classification `json:"classification" db:"classification"`
	EnrollTime     time.Time      `json:"enrollTime" db:"enroll_time"`
}

// AvailableOffering is a row of the "available offerings" listing for a student.
type AvailableOffering struct {
	OfferingID     int64           `json:"offeringId"`
	CourseCode     string          `json:"courseCode"`
	CourseName     string          `json:"courseName"`
	Credits        float64         `json:"credits"`
	DepartmentName string          `json:"departmentName"`
	Classification Classification  `json:"enrollType"`
	Remaining      int             `json:"remainingSeats"`
	Total          int             `json:"totalSeats"`
	Schedule       []ScheduleEntry `json:"schedule"`
}

// ScheduleItem is one session in a student's committed timetable.
type ScheduleItem struct {
	OfferingID int64         `json:"offeringId"`
	CourseCode string        `json:"courseCode"`
	CourseName string        `json:"courseName"`
	Credits    float64       `json:"credits"`
	Entry      ScheduleEntry `json:"entry"`
}

// TeachingItem is one session a teacher gives, with the offering's seat usage
// across both pools.
type TeachingItem struct {
	ScheduleItem
	Enrolled int `json:"enrolled"`
	Quota    int `json:"quota"`
}

// RosterEntry is one enrolled student of an offering.
type RosterEntry struct {
	StudentID      int64          `json:"studentId"`
	StudentNumber  string         `json:"studentNumber"`
	Name           string         `json:"name"`
	Classification Classification `json:"enrollType"`
	EnrollTime     time.Time      `json:"enrollTime"`
}

// QuotaDrift reports an offering whose stored counters disagree with its enrollments.
type QuotaDrift struct {
	OfferingID   int64 `json:"offeringId"`
	StoredInner  int   `json:"storedInner"`
	StoredOuter  int   `json:"storedOuter"`
	CountedInner int   `json:"countedInner"`
	CountedOuter int   `json:"countedOuter"`
}
