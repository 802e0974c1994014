package middleware

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yigit/courseenroll/internal/app/models/dto"
	"github.com/yigit/courseenroll/internal/pkg/apperrors"
	"github.com/yigit/courseenroll/internal/pkg/logger"
)

type reasonMapping struct {
	status  int
	code    dto.ErrorCode
	message string
}

var enrollmentReasons = map[apperrors.Reason]reasonMapping{
	apperrors.ReasonWindowClosed:        {http.StatusForbidden, dto.ErrorCodeWindowClosed, "The enrollment window of this term is closed"},
	apperrors.ReasonDuplicateEnrollment: {http.StatusConflict, dto.ErrorCodeDuplicateEnrollment, "Student is already enrolled in this offering"},
	apperrors.ReasonTimeConflict:        {http.StatusConflict, dto.ErrorCodeTimeConflict, "Offering schedule conflicts with an enrolled course"},
	apperrors.ReasonQuotaFull:           {http.StatusConflict, dto.ErrorCodeQuotaFull, "No seats left in the student's quota"},
	apperrors.ReasonNotEnrolled:         {http.StatusNotFound, dto.ErrorCodeNotEnrolled, "Student is not enrolled in this offering"},
	apperrors.ReasonTransientFailure:    {http.StatusServiceUnavailable, dto.ErrorCodeTransientFailure, "Enrollment could not be completed, please try again"},
	apperrors.ReasonOfferingNotFound:    {http.StatusNotFound, dto.ErrorCodeResourceNotFound, "Offering not found"},
	apperrors.ReasonStudentNotFound:     {http.StatusNotFound, dto.ErrorCodeResourceNotFound, "Student not found"},
}

// HandleAPIError handles common API errors and returns appropriate responses
func HandleAPIError(c *gin.Context, err error) {
	lgr := logger.FromContext(c.Request.Context(), logger.Default())

	var enrErr *apperrors.EnrollmentError
	if errors.As(err, &enrErr) {
		m, ok := enrollmentReasons[enrErr.Reason]
		if !ok {
			m = reasonMapping{http.StatusInternalServerError, dto.ErrorCodeInternalServer, "Internal server error"}
		}
		detail := dto.NewErrorDetail(m.code, m.message)
		if enrErr.Detail != "" {
			detail = detail.WithDetails(enrErr.Detail)
		}
		if m.status >= http.StatusInternalServerError {
			detail = detail.WithSeverity(dto.ErrorSeverityWarning)
		}
		c.JSON(m.status, dto.NewFailureResponse(detail))
		return
	}

	// Check for specific error types
	switch {
	case errors.Is(err, apperrors.ErrOfferingNotFound):
		c.JSON(http.StatusNotFound, dto.NewFailureResponse(
			dto.NewErrorDetail(dto.ErrorCodeResourceNotFound, "Offering not found")))
	case errors.Is(err, apperrors.ErrStudentNotFound):
		c.JSON(http.StatusNotFound, dto.NewFailureResponse(
			dto.NewErrorDetail(dto.ErrorCodeResourceNotFound, "Student not found")))
	case errors.Is(err, apperrors.ErrResourceNotFound):
		c.JSON(http.StatusNotFound, dto.NewFailureResponse(
			dto.NewErrorDetail(dto.ErrorCodeResourceNotFound, customMessage(err, "Resource not found"))))
	case errors.Is(err, apperrors.ErrBadRequest):
		c.JSON(http.StatusBadRequest, dto.NewFailureResponse(
			dto.NewErrorDetail(dto.ErrorCodeValidationFailed, customMessage(err, "Validation failed"))))
	default:
		// Handle unknown errors
		lgr.Error().Err(err).Str("path", c.FullPath()).Msg("Unhandled API error")
		c.JSON(http.StatusInternalServerError, dto.NewFailureResponse(
			dto.NewErrorDetail(dto.ErrorCodeInternalServer, "Internal server error")))
	}
}

// customMessage returns the message of an apperrors.CustomError in err's chain
func customMessage(err error, fallback string) string {
	var custom *apperrors.CustomError
	if errors.As(err, &custom) && custom.Message != "" {
		return custom.Message
	}
	return fallback
}
