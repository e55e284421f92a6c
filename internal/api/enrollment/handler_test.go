package enrollment_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"goescola/internal/api/enrollment"
	"goescola/internal/domain"
	apperror "goescola/internal/errors"
	"goescola/internal/pkg/logger"
)

type MockEnrollmentService struct {
	mock.Mock
}

func (m *MockEnrollmentService) AddEnrollment(ctx context.Context, in domain.EnrollmentInput) (domain.EnrollmentDetail, error) {
	args := m.Called(ctx, in)
	return args.Get(0).(domain.EnrollmentDetail), args.Error(1)
}

func (m *MockEnrollmentService) GetEnrollment(ctx context.Context, id string) (domain.EnrollmentDetail, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(domain.EnrollmentDetail), args.Error(1)
}

func (m *MockEnrollmentService) ListEnrollments(ctx context.Context, page domain.PageRequest) (domain.PagedResult[domain.EnrollmentDetail], error) {
	args := m.Called(ctx, page)
	return args.Get(0).(domain.PagedResult[domain.EnrollmentDetail]), args.Error(1)
}

func (m *MockEnrollmentService) ListByStudent(ctx context.Context, studentID string, page domain.PageRequest) (domain.PagedResult[domain.EnrollmentDetail], error) {
	args := m.Called(ctx, studentID, page)
	return args.Get(0).(domain.PagedResult[domain.EnrollmentDetail]), args.Error(1)
}

func (m *MockEnrollmentService) ListByClass(ctx context.Context, classID string, page domain.PageRequest) (domain.PagedResult[domain.EnrollmentDetail], error) {
	args := m.Called(ctx, classID, page)
	return args.Get(0).(domain.PagedResult[domain.EnrollmentDetail]), args.Error(1)
}

func (m *MockEnrollmentService) UpdateEnrollment(ctx context.Context, id string, in domain.EnrollmentInput) (domain.EnrollmentDetail, error) {
	args := m.Called(ctx, id, in)
	return args.Get(0).(domain.EnrollmentDetail), args.Error(1)
}

func (m *MockEnrollmentService) DeleteEnrollment(ctx context.Context, id string) (bool, error) {
	args := m.Called(ctx, id)
	return args.Bool(0), args.Error(1)
}

func newTestLogger() logger.Logger {
	return logger.NewLogger("fatal")
}

func withID(r *http.Request, id string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("id", id)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

func TestAddEnrollmentHandler_Created(t *testing.T) {
	svc := new(MockEnrollmentService)
	h := enrollment.NewHandler(svc, newTestLogger(), 100)

	svc.On("AddEnrollment", mock.Anything, mock.MatchedBy(func(in domain.EnrollmentInput) bool {
		return in.EnrollmentDate.String() == "2024-02-01"
	})).Return(domain.EnrollmentDetail{ID: "e1", EnrollmentDate: domain.NewDate(time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC))}, nil)

	rec := httptest.NewRecorder()
	h.AddEnrollmentHandler(rec, httptest.NewRequest(http.MethodPost, "/enrollments",
		strings.NewReader(`{"student_id":"a","class_id":"b","enrollment_date":"2024-02-01"}`)))

	assert.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, "/enrollments/e1", rec.Header().Get("Location"))
	assert.Contains(t, rec.Body.String(), `"enrollment_date":"2024-02-01"`)
	svc.AssertExpectations(t)
}

func TestAddEnrollmentHandler_AcceptsRFC3339Date(t *testing.T) {
	svc := new(MockEnrollmentService)
	h := enrollment.NewHandler(svc, newTestLogger(), 100)

	svc.On("AddEnrollment", mock.Anything, mock.MatchedBy(func(in domain.EnrollmentInput) bool {
		return in.EnrollmentDate.String() == "2024-02-01"
	})).Return(domain.EnrollmentDetail{ID: "e2"}, nil)

	rec := httptest.NewRecorder()
	h.AddEnrollmentHandler(rec, httptest.NewRequest(http.MethodPost, "/enrollments",
		strings.NewReader(`{"student_id":"a","class_id":"b","enrollment_date":"2024-02-01T10:30:00Z"}`)))

	assert.Equal(t, http.StatusCreated, rec.Code)
	svc.AssertExpectations(t)
}

func TestAddEnrollmentHandler_AlreadyEnrolled(t *testing.T) {
	svc := new(MockEnrollmentService)
	h := enrollment.NewHandler(svc, newTestLogger(), 100)

	svc.On("AddEnrollment", mock.Anything, mock.Anything).Return(domain.EnrollmentDetail{}, apperror.NewConflictError(domain.MsgAlreadyEnrolled))

	rec := httptest.NewRecorder()
	h.AddEnrollmentHandler(rec, httptest.NewRequest(http.MethodPost, "/enrollments",
		strings.NewReader(`{"student_id":"a","class_id":"b","enrollment_date":"2024-02-01"}`)))

	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestListByClassHandler_UsesPathAndPage(t *testing.T) {
	svc := new(MockEnrollmentService)
	h := enrollment.NewHandler(svc, newTestLogger(), 100)

	page := domain.PageRequest{Page: 1, Size: 10}
	svc.On("ListByClass", mock.Anything, "c1", page).Return(domain.NewPagedResult[domain.EnrollmentDetail](nil, 0, page), nil)

	rec := httptest.NewRecorder()
	h.ListByClassHandler(rec, withID(httptest.NewRequest(http.MethodGet, "/enrollments/class/c1", nil), "c1"))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"items":[],"total_count":0,"page_number":1,"page_size":10,"total_pages":0}`, rec.Body.String())
	svc.AssertExpectations(t)
}

func TestDeleteEnrollmentHandler_NotFound(t *testing.T) {
	svc := new(MockEnrollmentService)
	h := enrollment.NewHandler(svc, newTestLogger(), 100)

	svc.On("DeleteEnrollment", mock.Anything, "e9").Return(false, nil)

	rec := httptest.NewRecorder()
	h.DeleteEnrollmentHandler(rec, withID(httptest.NewRequest(http.MethodDelete, "/enrollments/e9", nil), "e9"))

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestUpdateEnrollmentHandler_NoContent(t *testing.T) {
	svc := new(MockEnrollmentService)
	h := enrollment.NewHandler(svc, newTestLogger(), 100)

	svc.On("UpdateEnrollment", mock.Anything, "e1", mock.Anything).Return(domain.EnrollmentDetail{ID: "e1"}, nil)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPut, "/enrollments/e1",
		strings.NewReader(`{"student_id":"a","class_id":"b","enrollment_date":"2024-02-01"}`))
	h.UpdateEnrollmentHandler(rec, withID(req, "e1"))

	assert.Equal(t, http.StatusNoContent, rec.Code)
}
