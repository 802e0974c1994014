package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yigit/courseenroll/internal/app/models/dto"
	"github.com/yigit/courseenroll/internal/app/services"
	"github.com/yigit/courseenroll/internal/middleware"
)

// EnrollmentController handles enroll and drop requests
type EnrollmentController struct {
	enrollmentService *services.EnrollmentService
}

// NewEnrollmentController creates a new EnrollmentController
func NewEnrollmentController(enrollmentService *services.EnrollmentService) *EnrollmentController {
	return &EnrollmentController{
		enrollmentService: enrollmentService,
	}
}

// Enroll registers the student in an offering
// @Summary Enroll in an offering
// @Description Atomically checks the enroll window, duplicates, schedule conflicts and the student's seat quota, then enrolls
// @Tags enrollments
// @Accept json
// @Produce json
// @Param studentId path int true "Student ID"
// @Param request body dto.EnrollRequest true "Offering to enroll in"
// @Success 201 {object} dto.APIResponse{data=dto.EnrollResponse} "Enrolled"
// @Failure 400 {object} dto.APIResponse "Invalid request data"
// @Failure 403 {object} dto.APIResponse "Enrollment window closed"
// @Failure 404 {object} dto.APIResponse "Student or offering not found"
// @Failure 409 {object} dto.APIResponse "Duplicate, time conflict or quota full"
// @Failure 503 {object} dto.APIResponse "Transient failure, retry later"
// @Router /students/{studentId}/enroll [post]
func (c *EnrollmentController) Enroll(ctx *gin.Context) {
	studentID, ok := middleware.PathID(ctx, "studentId")
	if !ok {
		return
	}
	var req dto.EnrollRequest
	if !middleware.BindJSON(ctx, &req) {
		return
	}

	result, err := c.enrollmentService.Enroll(ctx.Request.Context(), studentID, req.OfferingID)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusCreated, dto.NewSuccessResponse(dto.EnrollResponse{
		StudentID:    studentID,
		OfferingID:   req.OfferingID,
		EnrollmentID: result.EnrollmentID,
		EnrollType:   result.Classification,
		EnrollTime:   result.EnrollTime,
	}, "Enrolled successfully"))
}

// Drop removes the student from an offering
// @Summary Drop an offering
// @Description Removes the enrollment and frees the seat in the pool it was taken from
// @Tags enrollments
// @Accept json
// @Produce json
// @Param studentId path int true "Student ID"
// @Param request body dto.EnrollRequest true "Offering to drop"
// @Success 200 {object} dto.APIResponse{data=dto.DropResponse} "Dropped"
// @Failure 400 {object} dto.APIResponse "Invalid request data"
// @Failure 403 {object} dto.APIResponse "Drop window closed"
// @Failure 404 {object} dto.APIResponse "Not enrolled"
// @Failure 503 {object} dto.APIResponse "Transient failure, retry later"
// @Router /students/{studentId}/drop [post]
func (c *EnrollmentController) Drop(ctx *gin.Context) {
	studentID, ok := middleware.PathID(ctx, "studentId")
	if !ok {
		return
	}
	var req dto.EnrollRequest
	if !middleware.BindJSON(ctx, &req) {
		return
	}

	result, err := c.enrollmentService.Drop(ctx.Request.Context(), studentID, req.OfferingID)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(dto.DropResponse{
		StudentID:  studentID,
		OfferingID: req.OfferingID,
		EnrollType: result.Classification,
	}, "Dropped successfully"))
}
