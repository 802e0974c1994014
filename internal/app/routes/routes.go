package routes

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/yigit/courseenroll/internal/app/controllers"
	"github.com/yigit/courseenroll/internal/app/models/dto"
)

// SetupRouter configures all application routes
func SetupRouter(
	router *gin.Engine,
	enrollmentController *controllers.EnrollmentController,
	catalogController *controllers.CatalogController,
) {
	// API version group
	v1 := router.Group("/api/v1")

	v1.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, dto.NewSuccessResponse(gin.H{"status": "ok", "time": time.Now().UTC()}, ""))
	})

	// The student is identified by the path; authentication is handled upstream
	students := v1.Group("/students/:studentId")
	{
		students.POST("/enroll", enrollmentController.Enroll)
		students.POST("/drop", enrollmentController.Drop)
		students.GET("/available-offerings", catalogController.ListAvailableOfferings)
		students.GET("/schedule", catalogController.GetStudentSchedule)
	}

	offerings := v1.Group("/offerings")
	{
		offerings.GET("/:id/students", catalogController.ListOfferingRoster)
	}

	teachers := v1.Group("/teachers")
	{
		teachers.GET("/:id/schedule", catalogController.GetTeacherSchedule)
	}
}
