package enrollmentservice_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"goescola/internal/domain"
	apperror "goescola/internal/errors"
	"goescola/internal/pkg/logger"
	"goescola/internal/pkg/validation"
	"goescola/internal/service/enrollmentservice"
)

// --- Mocks ---

type MockEnrollmentRepository struct {
	mock.Mock
}

func (m *MockEnrollmentRepository) Save(ctx context.Context, e domain.Enrollment) error {
	args := m.Called(ctx, e)
	return args.Error(0)
}

func (m *MockEnrollmentRepository) FindByID(ctx context.Context, id string) (domain.EnrollmentDetail, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(domain.EnrollmentDetail), args.Error(1)
}

func (m *MockEnrollmentRepository) IsStudentEnrolled(ctx context.Context, studentID, classID string) (bool, error) {
	args := m.Called(ctx, studentID, classID)
	return args.Bool(0), args.Error(1)
}

func (m *MockEnrollmentRepository) Update(ctx context.Context, e domain.Enrollment) error {
	args := m.Called(ctx, e)
	return args.Error(0)
}

func (m *MockEnrollmentRepository) Delete(ctx context.Context, id string) (bool, error) {
	args := m.Called(ctx, id)
	return args.Bool(0), args.Error(1)
}

func (m *MockEnrollmentRepository) List(ctx context.Context, filter domain.EnrollmentFilter) ([]domain.EnrollmentDetail, int, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).([]domain.EnrollmentDetail), args.Int(1), args.Error(2)
}

type MockStudentFinder struct {
	mock.Mock
}

func (m *MockStudentFinder) FindByID(ctx context.Context, id string) (domain.Student, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(domain.Student), args.Error(1)
}

type MockClassFinder struct {
	mock.Mock
}

func (m *MockClassFinder) FindByID(ctx context.Context, id string) (domain.Class, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(domain.Class), args.Error(1)
}

func newTestLogger() logger.Logger {
	return logger.NewLogger("debug")
}

type fixture struct {
	repo     *MockEnrollmentRepository
	students *MockStudentFinder
	classes  *MockClassFinder
	svc      *enrollmentservice.Service
}

func newFixture() fixture {
	f := fixture{
		repo:     new(MockEnrollmentRepository),
		students: new(MockStudentFinder),
		classes:  new(MockClassFinder),
	}
	f.svc = enrollmentservice.NewService(f.repo, f.students, f.classes, validation.New(), newTestLogger(), 100)
	return f
}

var (
	ana    = domain.Student{ID: uuid.NewString(), Name: "Ana Silva", CPF: "52998224725", Email: "ana@escola.com"}
	turmaA = domain.Class{ID: uuid.NewString(), Name: "Turma A", Description: "Turma da manhã", EnrollmentCount: 3}
)

func validInput() domain.EnrollmentInput {
	return domain.EnrollmentInput{
		StudentID:      ana.ID,
		ClassID:        turmaA.ID,
		EnrollmentDate: domain.NewDate(time.Now().AddDate(0, 0, -1)),
	}
}

// --- AddEnrollment ---

func TestAddEnrollment_Success(t *testing.T) {
	f := newFixture()
	in := validInput()

	f.students.On("FindByID", mock.Anything, ana.ID).Return(ana, nil)
	f.classes.On("FindByID", mock.Anything, turmaA.ID).Return(turmaA, nil)
	f.repo.On("IsStudentEnrolled", mock.Anything, ana.ID, turmaA.ID).Return(false, nil)
	f.repo.On("Save", mock.Anything, mock.MatchedBy(func(e domain.Enrollment) bool {
		return e.StudentID == ana.ID && e.ClassID == turmaA.ID && e.ID != ""
	})).Return(nil)

	result, err := f.svc.AddEnrollment(context.Background(), in)

	require.NoError(t, err)
	assert.NotEmpty(t, result.ID)
	assert.Equal(t, "Ana Silva", result.Student.Name)
	assert.Equal(t, "Turma A", result.Class.Name)
	assert.Equal(t, 4, result.Class.EnrollmentCount)
	assert.Equal(t, in.EnrollmentDate, result.EnrollmentDate)
	f.repo.AssertExpectations(t)
}

func TestAddEnrollment_Fail_AlreadyEnrolled(t *testing.T) {
	f := newFixture()

	f.students.On("FindByID", mock.Anything, ana.ID).Return(ana, nil)
	f.classes.On("FindByID", mock.Anything, turmaA.ID).Return(turmaA, nil)
	f.repo.On("IsStudentEnrolled", mock.Anything, ana.ID, turmaA.ID).Return(true, nil)

	_, err := f.svc.AddEnrollment(context.Background(), validInput())

	require.Error(t, err)
	assert.IsType(t, &apperror.ConflictError{}, err)
	assert.Contains(t, err.Error(), "já está matriculado")
	f.repo.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
}

func TestAddEnrollment_Fail_StudentNotFound(t *testing.T) {
	f := newFixture()

	f.students.On("FindByID", mock.Anything, ana.ID).Return(domain.Student{}, apperror.NewNotFoundError("Aluno com ID x não existe."))

	_, err := f.svc.AddEnrollment(context.Background(), validInput())

	require.Error(t, err)
	assert.IsType(t, &apperror.NotFoundError{}, err)
	assert.Contains(t, err.Error(), domain.MsgEnrollmentStudentNotFound)
	f.classes.AssertNotCalled(t, "FindByID", mock.Anything, mock.Anything)
	f.repo.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
}

func TestAddEnrollment_Fail_ClassNotFound(t *testing.T) {
	f := newFixture()

	f.students.On("FindByID", mock.Anything, ana.ID).Return(ana, nil)
	f.classes.On("FindByID", mock.Anything, turmaA.ID).Return(domain.Class{}, apperror.NewNotFoundError("Turma com ID x não existe."))

	_, err := f.svc.AddEnrollment(context.Background(), validInput())

	require.Error(t, err)
	assert.IsType(t, &apperror.NotFoundError{}, err)
	assert.Contains(t, err.Error(), domain.MsgEnrollmentClassNotFound)
	f.repo.AssertNotCalled(t, "IsStudentEnrolled", mock.Anything, mock.Anything, mock.Anything)
	f.repo.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
}

func TestAddEnrollment_Fail_Validation(t *testing.T) {
	f := newFixture()

	in := validInput()
	in.StudentID = "não-é-uuid"
	in.EnrollmentDate = domain.NewDate(time.Now().AddDate(0, 0, 3))

	_, err := f.svc.AddEnrollment(context.Background(), in)

	require.Error(t, err)
	assert.IsType(t, &apperror.ValidationError{}, err)
	assert.Len(t, apperror.FieldsOf(err), 2)
	f.students.AssertNotCalled(t, "FindByID", mock.Anything, mock.Anything)
	f.repo.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
}

func TestAddEnrollment_Fail_UniqueIndexRace(t *testing.T) {
	f := newFixture()

	f.students.On("FindByID", mock.Anything, ana.ID).Return(ana, nil)
	f.classes.On("FindByID", mock.Anything, turmaA.ID).Return(turmaA, nil)
	f.repo.On("IsStudentEnrolled", mock.Anything, ana.ID, turmaA.ID).Return(false, nil)
	f.repo.On("Save", mock.Anything, mock.Anything).Return(apperror.NewConflictError(domain.MsgAlreadyEnrolled))

	_, err := f.svc.AddEnrollment(context.Background(), validInput())

	assert.IsType(t, &apperror.ConflictError{}, err)
}

// --- UpdateEnrollment ---

func TestUpdateEnrollment_Fail_NewPairAlreadyEnrolled(t *testing.T) {
	f := newFixture()
	id := uuid.NewString()
	otherClass := domain.Class{ID: uuid.NewString(), Name: "Turma B"}

	f.repo.On("FindByID", mock.Anything, id).Return(domain.EnrollmentDetail{ID: id, Student: ana, Class: turmaA}, nil)
	f.students.On("FindByID", mock.Anything, ana.ID).Return(ana, nil)
	f.classes.On("FindByID", mock.Anything, otherClass.ID).Return(otherClass, nil)
	f.repo.On("IsStudentEnrolled", mock.Anything, ana.ID, otherClass.ID).Return(true, nil)

	in := validInput()
	in.ClassID = otherClass.ID

	_, err := f.svc.UpdateEnrollment(context.Background(), id, in)

	assert.IsType(t, &apperror.ConflictError{}, err)
	f.repo.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
}

func TestUpdateEnrollment_SamePairOnlyChangesDate(t *testing.T) {
	f := newFixture()
	id := uuid.NewString()

	f.repo.On("FindByID", mock.Anything, id).Return(domain.EnrollmentDetail{ID: id, Student: ana, Class: turmaA}, nil)
	f.students.On("FindByID", mock.Anything, ana.ID).Return(ana, nil)
	f.classes.On("FindByID", mock.Anything, turmaA.ID).Return(turmaA, nil)
	f.repo.On("Update", mock.Anything, mock.MatchedBy(func(e domain.Enrollment) bool { return e.ID == id })).Return(nil)

	result, err := f.svc.UpdateEnrollment(context.Background(), id, validInput())

	require.NoError(t, err)
	assert.Equal(t, id, result.ID)
	assert.Equal(t, turmaA.EnrollmentCount, result.Class.EnrollmentCount)
	f.repo.AssertNotCalled(t, "IsStudentEnrolled", mock.Anything, mock.Anything, mock.Anything)
}

func TestUpdateEnrollment_Fail_NotFound(t *testing.T) {
	f := newFixture()
	id := uuid.NewString()

	f.repo.On("FindByID", mock.Anything, id).Return(domain.EnrollmentDetail{}, apperror.NewNotFoundError("Matrícula não existe."))

	_, err := f.svc.UpdateEnrollment(context.Background(), id, validInput())

	assert.IsType(t, &apperror.NotFoundError{}, err)
	f.students.AssertNotCalled(t, "FindByID", mock.Anything, mock.Anything)
}

func TestUpdateEnrollment_Fail_StudentGone(t *testing.T) {
	f := newFixture()
	id := uuid.NewString()

	f.repo.On("FindByID", mock.Anything, id).Return(domain.EnrollmentDetail{ID: id, Student: ana, Class: turmaA}, nil)
	f.students.On("FindByID", mock.Anything, ana.ID).Return(domain.Student{}, apperror.NewNotFoundError("x"))

	_, err := f.svc.UpdateEnrollment(context.Background(), id, validInput())

	require.Error(t, err)
	assert.Contains(t, err.Error(), domain.MsgEnrollmentStudentNotFound)
	f.repo.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
}

// --- DeleteEnrollment / GetEnrollment ---

func TestDeleteEnrollment_NonexistentReturnsFalse(t *testing.T) {
	f := newFixture()
	id := uuid.NewString()

	f.repo.On("Delete", mock.Anything, id).Return(false, nil)

	deleted, err := f.svc.DeleteEnrollment(context.Background(), id)

	assert.NoError(t, err)
	assert.False(t, deleted)
}

func TestDeleteEnrollment_Success(t *testing.T) {
	f := newFixture()
	id := uuid.NewString()

	f.repo.On("Delete", mock.Anything, id).Return(true, nil)

	deleted, err := f.svc.DeleteEnrollment(context.Background(), id)

	assert.NoError(t, err)
	assert.True(t, deleted)
}

func TestDeleteEnrollment_InvalidID(t *testing.T) {
	f := newFixture()

	_, err := f.svc.DeleteEnrollment(context.Background(), "123")

	assert.IsType(t, &apperror.ValidationError{}, err)
	f.repo.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything)
}

func TestGetEnrollment_NotFound(t *testing.T) {
	f := newFixture()
	id := uuid.NewString()

	f.repo.On("FindByID", mock.Anything, id).Return(domain.EnrollmentDetail{}, apperror.NewNotFoundError("Matrícula não existe."))

	_, err := f.svc.GetEnrollment(context.Background(), id)

	assert.IsType(t, &apperror.NotFoundError{}, err)
}

// --- Listagens ---

func TestListEnrollments_PaginationEnvelope(t *testing.T) {
	f := newFixture()

	items := []domain.EnrollmentDetail{{ID: "1"}, {ID: "2"}}
	expectedFilter := domain.EnrollmentFilter{PageRequest: domain.PageRequest{Page: 2, Size: 2}}
	f.repo.On("List", mock.Anything, expectedFilter).Return(items, 5, nil)

	result, err := f.svc.ListEnrollments(context.Background(), domain.PageRequest{Page: 2, Size: 2})

	require.NoError(t, err)
	assert.Len(t, result.Items, 2)
	assert.Equal(t, 5, result.TotalCount)
	assert.Equal(t, 2, result.PageNumber)
	assert.Equal(t, 2, result.PageSize)
	assert.Equal(t, 3, result.TotalPages)
}

func TestListEnrollments_NormalizesPage(t *testing.T) {
	f := newFixture()

	expectedFilter := domain.EnrollmentFilter{PageRequest: domain.PageRequest{Page: 1, Size: 100}}
	f.repo.On("List", mock.Anything, expectedFilter).Return([]domain.EnrollmentDetail{}, 0, nil)

	result, err := f.svc.ListEnrollments(context.Background(), domain.PageRequest{Page: -3, Size: 5000})

	require.NoError(t, err)
	assert.Empty(t, result.Items)
	assert.NotNil(t, result.Items)
	assert.Equal(t, 0, result.TotalPages)
}

func TestListByStudent_FiltersByStudent(t *testing.T) {
	f := newFixture()

	expectedFilter := domain.EnrollmentFilter{StudentID: ana.ID, PageRequest: domain.PageRequest{Page: 1, Size: 10}}
	f.repo.On("List", mock.Anything, expectedFilter).Return([]domain.EnrollmentDetail{{ID: "1"}}, 1, nil)

	result, err := f.svc.ListByStudent(context.Background(), ana.ID, domain.PageRequest{})

	require.NoError(t, err)
	assert.Equal(t, 1, result.TotalCount)
	f.repo.AssertExpectations(t)
}

func TestListByClass_InvalidID(t *testing.T) {
	f := newFixture()

	_, err := f.svc.ListByClass(context.Background(), "turma-a", domain.PageRequest{})

	assert.IsType(t, &apperror.ValidationError{}, err)
	f.repo.AssertNotCalled(t, "List", mock.Anything, mock.Anything)
}
