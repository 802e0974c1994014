package dto

import (
	"time"

	"github.com/yigit/courseenroll/internal/app/models"
)

// EnrollRequest is the body of enroll and drop requests
type EnrollRequest struct {
	OfferingID int64 `json:"offeringId" binding:"required,gt=0" example:"1000"`
}

// TermQuery selects the term of read-side requests
type TermQuery struct {
	TermID int64 `form:"termId" binding:"required,gt=0" example:"1"`
	Page   int   `form:"page" binding:"omitempty,gte=1" example:"1"`
	Size   int   `form:"size" binding:"omitempty,gte=1,lte=100" example:"20"`
}

// EnrollResponse describes a committed enrollment
type EnrollResponse struct {
	StudentID    int64                 `json:"studentId" example:"100"`
	OfferingID   int64                 `json:"offeringId" example:"1000"`
	EnrollmentID int64                 `json:"enrollmentId" example:"1"`
	EnrollType   models.Classification `json:"enrollType" example:"inner"`
	EnrollTime   time.Time             `json:"enrollTime" example:"2026-09-01T09:00:00Z"`
}

// DropResponse describes a committed drop
type DropResponse struct {
	StudentID  int64                 `json:"studentId" example:"100"`
	OfferingID int64                 `json:"offeringId" example:"1000"`
	EnrollType models.Classification `json:"enrollType" example:"inner"`
}

// ScheduleResponse is a student's timetable for one term
type ScheduleResponse struct {
	StudentID int64                 `json:"studentId" example:"100"`
	TermID    int64                 `json:"termId" example:"1"`
	Items     []models.ScheduleItem `json:"items"`
}

// TeacherScheduleResponse is a teacher's timetable for one term
type TeacherScheduleResponse struct {
	TeacherID int64                 `json:"teacherId" example:"501"`
	TermID    int64                 `json:"termId" example:"1"`
	Items     []models.TeachingItem `json:"items"`
}

// RosterResponse lists the students of an offering
type RosterResponse struct {
	OfferingID int64                `json:"offeringId" example:"1000"`
	Students   []models.RosterEntry `json:"students"`
}
