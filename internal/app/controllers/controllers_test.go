package controllers_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yigit/courseenroll/internal/app/controllers"
	"github.com/yigit/courseenroll/internal/app/models"
	"github.com/yigit/courseenroll/internal/app/models/dto"
	"github.com/yigit/courseenroll/internal/app/repositories/memory"
	"github.com/yigit/courseenroll/internal/app/routes"
	"github.com/yigit/courseenroll/internal/app/services"
	"github.com/yigit/courseenroll/internal/domain/schedule"
	"github.com/yigit/courseenroll/internal/middleware"
)

var now = time.Date(2026, 9, 1, 9, 0, 0, 0, time.UTC)

type apiResult struct {
	Success bool             `json:"success"`
	Message string           `json:"message"`
	Data    json.RawMessage  `json:"data"`
	Error   *dto.ErrorDetail `json:"error"`
}

type testAPI struct {
	router *gin.Engine
	store  *memory.Store
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()
	gin.SetMode(gin.TestMode)

	store := memory.NewStore()
	store.PutDepartment(models.Department{ID: 1, Name: "Computer Engineering", Code: "CENG"})
	store.PutDepartment(models.Department{ID: 2, Name: "Mathematics", Code: "MATH"})
	store.PutCourse(models.Course{ID: 10, DepartmentID: 1, Code: "CENG101", Name: "Introduction to Programming", Credits: 4})
	store.PutCourse(models.Course{ID: 20, DepartmentID: 2, Code: "MATH101", Name: "Calculus I", Credits: 5})
	store.PutStudent(models.Student{ID: 1, StudentNumber: "20260001", Name: "Ada Yilmaz", DepartmentID: 1})
	store.PutStudent(models.Student{ID: 2, StudentNumber: "20260002", Name: "Deniz Kaya", DepartmentID: 2})
	store.PutTerm(models.Term{
		ID:          1,
		Name:        "Fall",
		EnrollStart: now.Add(-time.Hour),
		EnrollEnd:   now.Add(time.Hour),
		DropStart:   now.Add(-time.Hour),
		DropEnd:     now.Add(time.Hour),
	})
	store.PutTerm(models.Term{ID: 2, Name: "Spring"})
	store.PutOffering(models.Offering{ID: 100, CourseID: 10, TermID: 1, QuotaInner: 1, QuotaOuter: 1})
	store.PutOffering(models.Offering{ID: 101, CourseID: 20, TermID: 1, QuotaInner: 5, QuotaOuter: 5})
	store.PutOffering(models.Offering{ID: 200, CourseID: 10, TermID: 2, QuotaInner: 5, QuotaOuter: 5})
	store.AddScheduleEntry(models.ScheduleEntry{OfferingID: 100, Weekday: 1, Period: 1, StartWeek: 1, EndWeek: 16, WeekType: schedule.WeekAll})
	store.AddScheduleEntry(models.ScheduleEntry{OfferingID: 101, Weekday: 1, Period: 1, StartWeek: 1, EndWeek: 16, WeekType: schedule.WeekOdd})

	repos := store.Repositories()
	enrollment := services.NewEnrollmentService(repos.Enrollments, nil, services.EnrollmentConfig{
		MaxAttempts: 1,
		Now:         func() time.Time { return now },
	})
	catalog := services.NewCatalogService(repos.Catalog, nil)

	router := gin.New()
	router.Use(middleware.RequestLogger(zerolog.Nop()))
	routes.SetupRouter(router,
		controllers.NewEnrollmentController(enrollment),
		controllers.NewCatalogController(catalog),
	)
	return &testAPI{router: router, store: store}
}

func (a *testAPI) do(t *testing.T, method, path, body string) (*httptest.ResponseRecorder, apiResult) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)

	var res apiResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res), w.Body.String())
	return w, res
}

func TestEnrollEndpoint(t *testing.T) {
	api := newTestAPI(t)

	w, res := api.do(t, http.MethodPost, "/api/v1/students/1/enroll", `{"offeringId":100}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.True(t, res.Success)
	assert.NotEmpty(t, w.Header().Get(middleware.RequestIDHeader))

	var data dto.EnrollResponse
	require.NoError(t, json.Unmarshal(res.Data, &data))
	assert.Equal(t, int64(1), data.StudentID)
	assert.Equal(t, int64(100), data.OfferingID)
	assert.Equal(t, models.ClassificationInner, data.EnrollType)
	assert.True(t, now.Equal(data.EnrollTime))

	offering, _ := api.store.Offering(100)
	assert.Equal(t, 1, offering.EnrolledInner)
}

func TestEnrollEndpointErrors(t *testing.T) {
	tests := []struct {
		name   string
		setup  func(t *testing.T, api *testAPI)
		path   string
		body   string
		status int
		code   dto.ErrorCode
	}{
		{
			name:   "duplicate",
			setup:  enroll(1, 100),
			path:   "/api/v1/students/1/enroll",
			body:   `{"offeringId":100}`,
			status: http.StatusConflict,
			code:   dto.ErrorCodeDuplicateEnrollment,
		},
		{
			name:   "time conflict",
			setup:  enroll(1, 100),
			path:   "/api/v1/students/1/enroll",
			body:   `{"offeringId":101}`,
			status: http.StatusConflict,
			code:   dto.ErrorCodeTimeConflict,
		},
		{
			name:   "outer pool unaffected by inner seat",
			setup:  enroll(1, 100),
			path:   "/api/v1/students/2/enroll",
			body:   `{"offeringId":100}`,
			status: http.StatusCreated,
		},
		{
			name:   "window closed",
			path:   "/api/v1/students/1/enroll",
			body:   `{"offeringId":200}`,
			status: http.StatusForbidden,
			code:   dto.ErrorCodeWindowClosed,
		},
		{
			name:   "unknown offering",
			path:   "/api/v1/students/1/enroll",
			body:   `{"offeringId":999}`,
			status: http.StatusNotFound,
			code:   dto.ErrorCodeResourceNotFound,
		},
		{
			name:   "unknown student",
			path:   "/api/v1/students/99/enroll",
			body:   `{"offeringId":100}`,
			status: http.StatusNotFound,
			code:   dto.ErrorCodeResourceNotFound,
		},
		{
			name:   "missing offering id",
			path:   "/api/v1/students/1/enroll",
			body:   `{}`,
			status: http.StatusBadRequest,
			code:   dto.ErrorCodeValidationFailed,
		},
		{
			name:   "malformed body",
			path:   "/api/v1/students/1/enroll",
			body:   `{"offeringId":`,
			status: http.StatusBadRequest,
			code:   dto.ErrorCodeValidationFailed,
		},
		{
			name:   "invalid student id",
			path:   "/api/v1/students/abc/enroll",
			body:   `{"offeringId":100}`,
			status: http.StatusBadRequest,
			code:   dto.ErrorCodeValidationFailed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			api := newTestAPI(t)
			if tt.setup != nil {
				tt.setup(t, api)
			}

			w, res := api.do(t, http.MethodPost, tt.path, tt.body)
			require.Equal(t, tt.status, w.Code, w.Body.String())
			if tt.code == "" {
				assert.True(t, res.Success)
				return
			}
			assert.False(t, res.Success)
			require.NotNil(t, res.Error)
			assert.Equal(t, tt.code, res.Error.Code)
		})
	}
}

func TestEnrollEndpointQuotaFull(t *testing.T) {
	api := newTestAPI(t)
	enroll(2, 100)(t, api) // takes the only outer seat

	api.store.PutStudent(models.Student{ID: 3, StudentNumber: "20260003", Name: "Ece Demir", DepartmentID: 2})
	w, res := api.do(t, http.MethodPost, "/api/v1/students/3/enroll", `{"offeringId":100}`)
	require.Equal(t, http.StatusConflict, w.Code, w.Body.String())
	assert.Equal(t, dto.ErrorCodeQuotaFull, res.Error.Code)
}

func TestDropEndpoint(t *testing.T) {
	api := newTestAPI(t)

	w, res := api.do(t, http.MethodPost, "/api/v1/students/1/drop", `{"offeringId":100}`)
	require.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, dto.ErrorCodeNotEnrolled, res.Error.Code)

	enroll(1, 100)(t, api)
	w, res = api.do(t, http.MethodPost, "/api/v1/students/1/drop", `{"offeringId":100}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var data dto.DropResponse
	require.NoError(t, json.Unmarshal(res.Data, &data))
	assert.Equal(t, models.ClassificationInner, data.EnrollType)

	offering, _ := api.store.Offering(100)
	assert.Zero(t, offering.EnrolledInner)
	assert.Empty(t, api.store.Enrollments(100))
}

func TestAvailableOfferingsEndpoint(t *testing.T) {
	api := newTestAPI(t)
	enroll(1, 100)(t, api)

	w, res := api.do(t, http.MethodGet, "/api/v1/students/1/available-offerings?termId=1", "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var page struct {
		Items      []models.AvailableOffering `json:"items"`
		Pagination dto.PaginationInfo         `json:"pagination"`
	}
	require.NoError(t, json.Unmarshal(res.Data, &page))
	require.Len(t, page.Items, 1)
	assert.Equal(t, int64(101), page.Items[0].OfferingID)
	assert.Equal(t, models.ClassificationOuter, page.Items[0].Classification)
	assert.Equal(t, int64(1), page.Pagination.TotalItems)

	w, res = api.do(t, http.MethodGet, "/api/v1/students/1/available-offerings", "")
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "termId", res.Error.Field)
}

func TestScheduleAndRosterEndpoints(t *testing.T) {
	api := newTestAPI(t)
	enroll(1, 100)(t, api)
	enroll(2, 100)(t, api)

	w, res := api.do(t, http.MethodGet, "/api/v1/students/1/schedule?termId=1", "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var sched dto.ScheduleResponse
	require.NoError(t, json.Unmarshal(res.Data, &sched))
	require.Len(t, sched.Items, 1)
	assert.Equal(t, "CENG101", sched.Items[0].CourseCode)

	w, res = api.do(t, http.MethodGet, "/api/v1/offerings/100/students", "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var roster dto.RosterResponse
	require.NoError(t, json.Unmarshal(res.Data, &roster))
	require.Len(t, roster.Students, 2)

	w, res = api.do(t, http.MethodGet, "/api/v1/offerings/999/students", "")
	require.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, dto.ErrorCodeResourceNotFound, res.Error.Code)
}

func TestTeacherScheduleEndpoint(t *testing.T) {
	api := newTestAPI(t)
	teacherID := int64(501)
	api.store.AddScheduleEntry(models.ScheduleEntry{OfferingID: 101, TeacherID: &teacherID, Weekday: 4, Period: 2, StartWeek: 1, EndWeek: 16, WeekType: schedule.WeekAll})
	enroll(2, 101)(t, api)

	w, res := api.do(t, http.MethodGet, "/api/v1/teachers/501/schedule?termId=1", "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var sched dto.TeacherScheduleResponse
	require.NoError(t, json.Unmarshal(res.Data, &sched))
	assert.Equal(t, teacherID, sched.TeacherID)
	require.Len(t, sched.Items, 1)
	assert.Equal(t, "MATH101", sched.Items[0].CourseCode)
	assert.Equal(t, 4, sched.Items[0].Entry.Weekday)
	assert.Equal(t, 1, sched.Items[0].Enrolled)
	assert.Equal(t, 10, sched.Items[0].Quota)

	w, res = api.do(t, http.MethodGet, "/api/v1/teachers/501/schedule?termId=9", "")
	require.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, dto.ErrorCodeResourceNotFound, res.Error.Code)
	assert.Equal(t, "Term not found", res.Error.Message)

	w, res = api.do(t, http.MethodGet, "/api/v1/teachers/501/schedule", "")
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "termId", res.Error.Field)
}

func TestHealthEndpoint(t *testing.T) {
	api := newTestAPI(t)

	w, res := api.do(t, http.MethodGet, "/api/v1/health", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, res.Success)
}

func enroll(studentID, offeringID int64) func(t *testing.T, api *testAPI) {
	return func(t *testing.T, api *testAPI) {
		t.Helper()
		body, err := json.Marshal(dto.EnrollRequest{OfferingID: offeringID})
		require.NoError(t, err)
		path := "/api/v1/students/" + strconv.FormatInt(studentID, 10) + "/enroll"
		w, _ := api.do(t, http.MethodPost, path, string(body))
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	}
}
