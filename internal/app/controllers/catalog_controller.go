package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yigit/courseenroll/internal/app/models/dto"
	"github.com/yigit/courseenroll/internal/app/services"
	"github.com/yigit/courseenroll/internal/middleware"
	"github.com/yigit/courseenroll/internal/pkg/helpers"
)

// CatalogController serves the read-only offering and schedule views
type CatalogController struct {
	catalogService *services.CatalogService
}

// NewCatalogController creates a new CatalogController
func NewCatalogController(catalogService *services.CatalogService) *CatalogController {
	return &CatalogController{
		catalogService: catalogService,
	}
}

// ListAvailableOfferings lists the offerings the student can still enroll in
// @Summary List available offerings
// @Description Offerings of the term the student is not enrolled in and that still have a seat in the student's pool
// @Tags catalog
// @Produce json
// @Param studentId path int true "Student ID"
// @Param termId query int true "Term ID"
// @Param page query int false "Page number" default(1)
// @Param size query int false "Page size" default(20)
// @Success 200 {object} dto.APIResponse{data=dto.PaginatedResponse} "Available offerings"
// @Failure 400 {object} dto.APIResponse "Invalid parameters"
// @Failure 404 {object} dto.APIResponse "Student not found"
// @Router /students/{studentId}/available-offerings [get]
func (c *CatalogController) ListAvailableOfferings(ctx *gin.Context) {
	studentID, ok := middleware.PathID(ctx, "studentId")
	if !ok {
		return
	}
	var query dto.TermQuery
	if !middleware.BindQuery(ctx, &query) {
		return
	}

	result, err := c.catalogService.ListAvailableOfferings(ctx.Request.Context(), studentID, query.TermID,
		helpers.NormalizePage(query.Page, query.Size))
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(dto.PaginatedResponse{
		Items: result.Items,
		Pagination: dto.PaginationInfo{
			CurrentPage: result.Page.Number,
			TotalPages:  result.Page.TotalPages(result.TotalItems),
			PageSize:    result.Page.Size,
			TotalItems:  result.TotalItems,
		},
	}, ""))
}

// GetStudentSchedule returns the student's timetable for a term
// @Summary Get student schedule
// @Tags catalog
// @Produce json
// @Param studentId path int true "Student ID"
// @Param termId query int true "Term ID"
// @Success 200 {object} dto.APIResponse{data=dto.ScheduleResponse} "Schedule"
// @Failure 400 {object} dto.APIResponse "Invalid parameters"
// @Failure 404 {object} dto.APIResponse "Student not found"
// @Router /students/{studentId}/schedule [get]
func (c *CatalogController) GetStudentSchedule(ctx *gin.Context) {
	studentID, ok := middleware.PathID(ctx, "studentId")
	if !ok {
		return
	}
	var query dto.TermQuery
	if !middleware.BindQuery(ctx, &query) {
		return
	}

	items, err := c.catalogService.GetStudentSchedule(ctx.Request.Context(), studentID, query.TermID)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(dto.ScheduleResponse{
		StudentID: studentID,
		TermID:    query.TermID,
		Items:     items,
	}, ""))
}

// GetTeacherSchedule returns the sessions a teacher gives in a term
// @Summary Get teacher schedule
// @Tags catalog
// @Produce json
// @Param id path int true "Teacher ID"
// @Param termId query int true "Term ID"
// @Success 200 {object} dto.APIResponse{data=dto.TeacherScheduleResponse} "Schedule"
// @Failure 400 {object} dto.APIResponse "Invalid parameters"
// @Failure 404 {object} dto.APIResponse "Term not found"
// @Router /teachers/{id}/schedule [get]
func (c *CatalogController) GetTeacherSchedule(ctx *gin.Context) {
	teacherID, ok := middleware.PathID(ctx, "id")
	if !ok {
		return
	}
	var query dto.TermQuery
	if !middleware.BindQuery(ctx, &query) {
		return
	}

	items, err := c.catalogService.GetTeacherSchedule(ctx.Request.Context(), teacherID, query.TermID)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(dto.TeacherScheduleResponse{
		TeacherID: teacherID,
		TermID:    query.TermID,
		Items:     items,
	}, ""))
}

// ListOfferingRoster lists the students enrolled in an offering
// @Summary List offering roster
// @Tags catalog
// @Produce json
// @Param id path int true "Offering ID"
// @Success 200 {object} dto.APIResponse{data=dto.RosterResponse} "Roster"
// @Failure 404 {object} dto.APIResponse "Offering not found"
// @Router /offerings/{id}/students [get]
func (c *CatalogController) ListOfferingRoster(ctx *gin.Context) {
	offeringID, ok := middleware.PathID(ctx, "id")
	if !ok {
		return
	}

	roster, err := c.catalogService.ListOfferingRoster(ctx.Request.Context(), offeringID)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(dto.RosterResponse{
		OfferingID: offeringID,
		Students:   roster,
	}, ""))
}
