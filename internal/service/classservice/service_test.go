package classservice_test

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"goescola/internal/domain"
	apperror "goescola/internal/errors"
	"goescola/internal/pkg/logger"
	"goescola/internal/pkg/validation"
	"goescola/internal/service/classservice"
)

type MockClassRepository struct {
	mock.Mock
}

func (m *MockClassRepository) Save(ctx context.Context, c domain.Class) (domain.Class, error) {
	args := m.Called(ctx, c)
	return args.Get(0).(domain.Class), args.Error(1)
}

func (m *MockClassRepository) FindByID(ctx context.Context, id string) (domain.Class, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(domain.Class), args.Error(1)
}

func (m *MockClassRepository) ExistsByName(ctx context.Context, name, excludeID string) (bool, error) {
	args := m.Called(ctx, name, excludeID)
	return args.Bool(0), args.Error(1)
}

func (m *MockClassRepository) List(ctx context.Context, page domain.PageRequest) ([]domain.Class, int, error) {
	args := m.Called(ctx, page)
	return args.Get(0).([]domain.Class), args.Int(1), args.Error(2)
}

func (m *MockClassRepository) Update(ctx context.Context, c domain.Class) error {
	args := m.Called(ctx, c)
	return args.Error(0)
}

func (m *MockClassRepository) Delete(ctx context.Context, id string) (bool, error) {
	args := m.Called(ctx, id)
	return args.Bool(0), args.Error(1)
}

func newTestLogger() logger.Logger {
	return logger.NewLogger("debug")
}

func newService(repo *MockClassRepository) *classservice.Service {
	return classservice.NewService(repo, validation.New(), newTestLogger(), 100)
}

func TestCreateClass_Success(t *testing.T) {
	mockRepo := new(MockClassRepository)
	svc := newService(mockRepo)

	mockRepo.On("ExistsByName", mock.Anything, "Turma A", "").Return(false, nil)
	mockRepo.On("Save", mock.Anything, mock.MatchedBy(func(c domain.Class) bool {
		return c.Name == "Turma A" && c.ID != ""
	})).Return(domain.Class{ID: "x", Name: "Turma A", Description: "Turma do período da manhã"}, nil)

	result, err := svc.CreateClass(context.Background(), domain.ClassInput{Name: "  Turma A ", Description: "Turma do período da manhã"})

	require.NoError(t, err)
	assert.Equal(t, "Turma A", result.Name)
	assert.Equal(t, 0, result.EnrollmentCount)
	mockRepo.AssertExpectations(t)
}

func TestCreateClass_Fail_Validation(t *testing.T) {
	mockRepo := new(MockClassRepository)
	svc := newService(mockRepo)

	_, err := svc.CreateClass(context.Background(), domain.ClassInput{Name: "AB", Description: "curta"})

	require.Error(t, err)
	assert.IsType(t, &apperror.ValidationError{}, err)
	assert.Len(t, apperror.FieldsOf(err), 2)
	mockRepo.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
}

func TestCreateClass_Fail_DuplicateName(t *testing.T) {
	mockRepo := new(MockClassRepository)
	svc := newService(mockRepo)

	mockRepo.On("ExistsByName", mock.Anything, "Turma A", "").Return(true, nil)

	_, err := svc.CreateClass(context.Background(), domain.ClassInput{Name: "Turma A", Description: "Turma do período da manhã"})

	assert.IsType(t, &apperror.ConflictError{}, err)
	mockRepo.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
}

func TestCreateClass_Fail_RepositoryError(t *testing.T) {
	mockRepo := new(MockClassRepository)
	svc := newService(mockRepo)

	mockRepo.On("ExistsByName", mock.Anything, "Turma A", "").Return(false, nil)
	mockRepo.On("Save", mock.Anything, mock.Anything).Return(domain.Class{}, apperror.NewDBError("falha", errors.New("conn reset")))

	_, err := svc.CreateClass(context.Background(), domain.ClassInput{Name: "Turma A", Description: "Turma do período da manhã"})

	assert.IsType(t, &apperror.InternalError{}, err)
}

func TestUpdateClass_RenameChecksUniqueness(t *testing.T) {
	mockRepo := new(MockClassRepository)
	svc := newService(mockRepo)
	id := uuid.NewString()

	mockRepo.On("FindByID", mock.Anything, id).Return(domain.Class{ID: id, Name: "Turma A", EnrollmentCount: 2}, nil)
	mockRepo.On("ExistsByName", mock.Anything, "Turma B", id).Return(true, nil)

	_, err := svc.UpdateClass(context.Background(), id, domain.ClassInput{Name: "Turma B", Description: "Turma do período da tarde"})

	assert.IsType(t, &apperror.ConflictError{}, err)
	mockRepo.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
}

func TestUpdateClass_Success_KeepsCount(t *testing.T) {
	mockRepo := new(MockClassRepository)
	svc := newService(mockRepo)
	id := uuid.NewString()

	mockRepo.On("FindByID", mock.Anything, id).Return(domain.Class{ID: id, Name: "Turma A", EnrollmentCount: 2}, nil)
	mockRepo.On("Update", mock.Anything, mock.MatchedBy(func(c domain.Class) bool {
		return c.ID == id && c.Description == "Turma do período da tarde"
	})).Return(nil)

	result, err := svc.UpdateClass(context.Background(), id, domain.ClassInput{Name: "Turma A", Description: "Turma do período da tarde"})

	require.NoError(t, err)
	assert.Equal(t, 2, result.EnrollmentCount)
	mockRepo.AssertNotCalled(t, "ExistsByName", mock.Anything, mock.Anything, mock.Anything)
}

func TestUpdateClass_NotFound(t *testing.T) {
	mockRepo := new(MockClassRepository)
	svc := newService(mockRepo)
	id := uuid.NewString()

	mockRepo.On("FindByID", mock.Anything, id).Return(domain.Class{}, apperror.NewNotFoundError("Turma não existe."))

	_, err := svc.UpdateClass(context.Background(), id, domain.ClassInput{Name: "Turma A", Description: "Turma do período da tarde"})

	assert.IsType(t, &apperror.NotFoundError{}, err)
}

func TestListClasses(t *testing.T) {
	mockRepo := new(MockClassRepository)
	svc := newService(mockRepo)

	mockRepo.On("List", mock.Anything, domain.PageRequest{Page: 1, Size: 10}).
		Return([]domain.Class{{Name: "Turma A", EnrollmentCount: 3}}, 1, nil)

	result, err := svc.ListClasses(context.Background(), domain.PageRequest{})

	require.NoError(t, err)
	require.Len(t, result.Items, 1)
	assert.Equal(t, 3, result.Items[0].EnrollmentCount)
	assert.Equal(t, 1, result.TotalPages)
}

func TestDeleteClass(t *testing.T) {
	mockRepo := new(MockClassRepository)
	svc := newService(mockRepo)
	id := uuid.NewString()

	mockRepo.On("Delete", mock.Anything, id).Return(false, nil)

	deleted, err := svc.DeleteClass(context.Background(), id)

	assert.NoError(t, err)
	assert.False(t, deleted)

	_, err = svc.DeleteClass(context.Background(), "não-uuid")
	assert.IsType(t, &apperror.ValidationError{}, err)
}
