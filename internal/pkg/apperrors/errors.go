package apperrors

import (
	"errors"
	"fmt"
)

// Common errors
var (
	ErrResourceNotFound = errors.New("resource not found")
	ErrBadRequest       = errors.New("bad request")

	// ErrQuotaUnderflow means a seat release found the counter already at zero.
	// It signals corrupted counters, not a user mistake.
	ErrQuotaUnderflow = errors.New("quota counter underflow")
)

// Reason classifies why an enroll or drop request did not commit.
type Reason string

const (
	ReasonWindowClosed        Reason = "WINDOW_CLOSED"
	ReasonDuplicateEnrollment Reason = "DUPLICATE_ENROLLMENT"
	ReasonTimeConflict        Reason = "TIME_CONFLICT"
	ReasonQuotaFull           Reason = "QUOTA_FULL"
	ReasonNotEnrolled         Reason = "NOT_ENROLLED"
	ReasonTransientFailure    Reason = "TRANSIENT_FAILURE"
	ReasonOfferingNotFound    Reason = "OFFERING_NOT_FOUND"
	ReasonStudentNotFound     Reason = "STUDENT_NOT_FOUND"
)

// Enrollment errors, one per Reason. Match them with errors.Is.
var (
	ErrWindowClosed        = errors.New("outside the enrollment window")
	ErrDuplicateEnrollment = errors.New("student is already enrolled in this offering")
	ErrTimeConflict        = errors.New("offering schedule conflicts with an enrolled course")
	ErrQuotaFull           = errors.New("no seats left in the student's quota")
	ErrNotEnrolled         = errors.New("student is not enrolled in this offering")
	ErrTransientFailure    = errors.New("enrollment could not be decided, try again")
	ErrOfferingNotFound    = fmt.Errorf("offering: %w", ErrResourceNotFound)
	ErrStudentNotFound     = fmt.Errorf("student: %w", ErrResourceNotFound)
)

var reasonErrors = map[Reason]error{
	ReasonWindowClosed:        ErrWindowClosed,
	ReasonDuplicateEnrollment: ErrDuplicateEnrollment,
	ReasonTimeConflict:        ErrTimeConflict,
	ReasonQuotaFull:           ErrQuotaFull,
	ReasonNotEnrolled:         ErrNotEnrolled,
	ReasonTransientFailure:    ErrTransientFailure,
	ReasonOfferingNotFound:    ErrOfferingNotFound,
	ReasonStudentNotFound:     ErrStudentNotFound,
}

// Sentinel returns the sentinel error of r.
func (r Reason) Sentinel() error {
	return reasonErrors[r]
}

// EnrollmentError is the structured failure of an enroll or drop operation.
type EnrollmentError struct {
	Op         string
	Reason     Reason
	StudentID  int64
	OfferingID int64
	Detail     string
	// Err is the underlying cause, set for transient failures.
	Err error
}

// NewEnrollmentError creates an EnrollmentError for op.
func NewEnrollmentError(op string, reason Reason, studentID, offeringID int64) *EnrollmentError {
	return &EnrollmentError{
		Op:         op,
		Reason:     reason,
		StudentID:  studentID,
		OfferingID: offeringID,
	}
}

// WithDetail attaches a human readable detail.
func (e *EnrollmentError) WithDetail(format string, args ...interface{}) *EnrollmentError {
	e.Detail = fmt.Sprintf(format, args...)
	return e
}

// WithCause records the underlying error.
func (e *EnrollmentError) WithCause(err error) *EnrollmentError {
	e.Err = err
	return e
}

// Error implements error interface
func (e *EnrollmentError) Error() string {
	msg := fmt.Sprintf("%s student=%d offering=%d: %v", e.Op, e.StudentID, e.OfferingID, e.Reason.Sentinel())
	if e.Detail != "" {
		msg += " (" + e.Detail + ")"
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Is matches the sentinel of the error's reason.
func (e *EnrollmentError) Is(target error) bool {
	sentinel := e.Reason.Sentinel()
	return sentinel != nil && errors.Is(sentinel, target)
}

// Unwrap implements errors.Unwrap interface
func (e *EnrollmentError) Unwrap() error {
	return e.Err
}

// ReasonOf extracts the Reason of an enrollment error, if err is one.
func ReasonOf(err error) (Reason, bool) {
	var enrErr *EnrollmentError
	if errors.As(err, &enrErr) {
		return enrErr.Reason, true
	}
	return "", false
}

// NewResourceNotFoundError creates a new custom error for resource not found with a message
func NewResourceNotFoundError(message string) error {
	return &CustomError{
		Err:     ErrResourceNotFound,
		Message: message,
	}
}

// NewBadRequestError creates a new custom error for bad request with a message
func NewBadRequestError(message string) error {
	return &CustomError{
		Err:     ErrBadRequest,
		Message: message,
	}
}

// CustomError represents application-specific errors with additional context
type CustomError struct {
	Err     error
	Message string
}

// Error implements error interface
func (e *CustomError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return "unknown error"
}

// Unwrap implements errors.Unwrap interface
func (e *CustomError) Unwrap() error {
	return e.Err
}
