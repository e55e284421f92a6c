package authservice_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"goescola/internal/domain"
	apperror "goescola/internal/errors"
	"goescola/internal/pkg/logger"
	"goescola/internal/pkg/validation"
	"goescola/internal/service/authservice"
)

type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) Save(ctx context.Context, user domain.User) (domain.User, error) {
	args := m.Called(ctx, user)
	return args.Get(0).(domain.User), args.Error(1)
}

func (m *MockUserRepository) FindByEmail(ctx context.Context, email string) (domain.User, error) {
	args := m.Called(ctx, email)
	return args.Get(0).(domain.User), args.Error(1)
}

func (m *MockUserRepository) UpdatePassword(ctx context.Context, userID, passwordHash string, updatedAt time.Time) error {
	args := m.Called(ctx, userID, passwordHash, updatedAt)
	return args.Error(0)
}

type MockTokenService struct {
	mock.Mock
}

func (m *MockTokenService) GenerateToken(userID, email string, roles []string) (string, time.Time, error) {
	args := m.Called(userID, email, roles)
	return args.String(0), args.Get(1).(time.Time), args.Error(2)
}

func newTestLogger() logger.Logger {
	return logger.NewLogger("debug")
}

func hashOf(t *testing.T, pw string) string {
	t.Helper()
	h, err := bcrypt.GenerateFromPassword([]byte(pw), bcrypt.MinCost)
	require.NoError(t, err)
	return string(h)
}

func newService(users *MockUserRepository, tokens *MockTokenService) *authservice.Service {
	return authservice.NewService(users, tokens, validation.New(), newTestLogger())
}

var notFound = apperror.NewNotFoundError("Usuário não encontrado")

// --- Register ---

func TestRegisterUser_Success(t *testing.T) {
	users, tokens := new(MockUserRepository), new(MockTokenService)
	svc := newService(users, tokens)

	users.On("FindByEmail", mock.Anything, "prof@escola.com").Return(domain.User{}, notFound)
	users.On("Save", mock.Anything, mock.MatchedBy(func(u domain.User) bool {
		return u.Email == "prof@escola.com" &&
			len(u.Roles) == 1 && u.Roles[0] == domain.RoleUser &&
			bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte("Senha@123")) == nil
	})).Return(domain.User{ID: "u1", Email: "prof@escola.com", Roles: []string{domain.RoleUser}}, nil)

	user, err := svc.RegisterUser(context.Background(), domain.RegisterRequest{
		Email: "prof@escola.com", Password: "Senha@123", ConfirmPassword: "Senha@123",
	})

	require.NoError(t, err)
	assert.Equal(t, "u1", user.ID)
	users.AssertExpectations(t)
}

func TestRegisterAdmin_AssignsAdminRole(t *testing.T) {
	users, tokens := new(MockUserRepository), new(MockTokenService)
	svc := newService(users, tokens)

	users.On("FindByEmail", mock.Anything, "dir@escola.com").Return(domain.User{}, notFound)
	users.On("Save", mock.Anything, mock.MatchedBy(func(u domain.User) bool {
		return u.HasRole(domain.RoleAdmin)
	})).Return(domain.User{ID: "a1", Roles: []string{domain.RoleAdmin}}, nil)

	_, err := svc.RegisterAdmin(context.Background(), domain.RegisterRequest{
		Email: "dir@escola.com", Password: "Senha@123", ConfirmPassword: "Senha@123",
	})

	require.NoError(t, err)
	users.AssertExpectations(t)
}

func TestRegister_Fail_DuplicateEmail(t *testing.T) {
	users, tokens := new(MockUserRepository), new(MockTokenService)
	svc := newService(users, tokens)

	users.On("FindByEmail", mock.Anything, "prof@escola.com").Return(domain.User{ID: "u1"}, nil)

	_, err := svc.RegisterUser(context.Background(), domain.RegisterRequest{
		Email: "prof@escola.com", Password: "Senha@123", ConfirmPassword: "Senha@123",
	})

	assert.IsType(t, &apperror.ConflictError{}, err)
	assert.Contains(t, err.Error(), "Já existe um usuário com este email!")
	users.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
}

func TestRegister_Fail_WeakPassword(t *testing.T) {
	users, tokens := new(MockUserRepository), new(MockTokenService)
	svc := newService(users, tokens)

	_, err := svc.RegisterUser(context.Background(), domain.RegisterRequest{
		Email: "prof@escola.com", Password: "senha", ConfirmPassword: "senha",
	})

	assert.IsType(t, &apperror.ValidationError{}, err)
	users.AssertNotCalled(t, "FindByEmail", mock.Anything, mock.Anything)
}

func TestRegister_Fail_PasswordAboveBcryptLimit(t *testing.T) {
	users, tokens := new(MockUserRepository), new(MockTokenService)
	svc := newService(users, tokens)
	long := "Aa1!" + strings.Repeat("x", 76)

	_, err := svc.RegisterUser(context.Background(), domain.RegisterRequest{
		Email: "prof@escola.com", Password: long, ConfirmPassword: long,
	})

	require.Error(t, err)
	assert.IsType(t, &apperror.ValidationError{}, err)
	assert.Equal(t, "password", apperror.FieldsOf(err)[0].Field)
	users.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
}

func TestResetPasswordByAdmin_Fail_PasswordAboveBcryptLimit(t *testing.T) {
	users, tokens := new(MockUserRepository), new(MockTokenService)
	svc := newService(users, tokens)
	long := "Aa1!" + strings.Repeat("x", 76)

	err := svc.ResetPasswordByAdmin(context.Background(), domain.ResetPasswordRequest{
		Email: "prof@escola.com", NewPassword: long, ConfirmNewPassword: long,
	})

	assert.IsType(t, &apperror.ValidationError{}, err)
	users.AssertNotCalled(t, "UpdatePassword", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

// --- Login ---

func TestLogin_Success(t *testing.T) {
	users, tokens := new(MockUserRepository), new(MockTokenService)
	svc := newService(users, tokens)
	exp := time.Now().Add(3 * time.Hour)

	users.On("FindByEmail", mock.Anything, "admin@exemplo.com").Return(domain.User{
		ID: "a1", Email: "admin@exemplo.com", PasswordHash: hashOf(t, "Admin@123"), Roles: []string{domain.RoleAdmin},
	}, nil)
	tokens.On("GenerateToken", "a1", "admin@exemplo.com", []string{domain.RoleAdmin}).Return("jwt", exp, nil)

	resp, err := svc.Login(context.Background(), domain.LoginRequest{Username: "admin@exemplo.com", Password: "Admin@123"})

	require.NoError(t, err)
	assert.Equal(t, "jwt", resp.Token)
	assert.Equal(t, exp, resp.ExpiresAt)
}

func TestLogin_Fail_WrongPassword(t *testing.T) {
	users, tokens := new(MockUserRepository), new(MockTokenService)
	svc := newService(users, tokens)

	users.On("FindByEmail", mock.Anything, "admin@exemplo.com").Return(domain.User{
		ID: "a1", PasswordHash: hashOf(t, "Admin@123"),
	}, nil)

	_, err := svc.Login(context.Background(), domain.LoginRequest{Username: "admin@exemplo.com", Password: "errada"})

	assert.IsType(t, &apperror.UnauthorizedError{}, err)
	assert.Contains(t, err.Error(), "Usuário ou senha inválidos.")
	tokens.AssertNotCalled(t, "GenerateToken", mock.Anything, mock.Anything, mock.Anything)
}

func TestLogin_Fail_UnknownUser(t *testing.T) {
	users, tokens := new(MockUserRepository), new(MockTokenService)
	svc := newService(users, tokens)

	users.On("FindByEmail", mock.Anything, "ninguem@exemplo.com").Return(domain.User{}, notFound)

	_, err := svc.Login(context.Background(), domain.LoginRequest{Username: "ninguem@exemplo.com", Password: "x"})

	assert.IsType(t, &apperror.UnauthorizedError{}, err)
}

func TestLogin_Fail_DatabaseError(t *testing.T) {
	users, tokens := new(MockUserRepository), new(MockTokenService)
	svc := newService(users, tokens)

	users.On("FindByEmail", mock.Anything, "admin@exemplo.com").Return(domain.User{}, apperror.NewDBError("falha", errors.New("timeout")))

	_, err := svc.Login(context.Background(), domain.LoginRequest{Username: "admin@exemplo.com", Password: "x"})

	assert.IsType(t, &apperror.InternalError{}, err)
}

// --- Senhas ---

func TestChangePassword_Fail_WrongCurrent(t *testing.T) {
	users, tokens := new(MockUserRepository), new(MockTokenService)
	svc := newService(users, tokens)

	users.On("FindByEmail", mock.Anything, "prof@escola.com").Return(domain.User{ID: "u1", PasswordHash: hashOf(t, "Senha@123")}, nil)

	err := svc.ChangePassword(context.Background(), "prof@escola.com", domain.ChangePasswordRequest{
		CurrentPassword: "Outra@123", NewPassword: "Nova@1234", ConfirmNewPassword: "Nova@1234",
	})

	assert.IsType(t, &apperror.ValidationError{}, err)
	users.AssertNotCalled(t, "UpdatePassword", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestChangePassword_Success(t *testing.T) {
	users, tokens := new(MockUserRepository), new(MockTokenService)
	svc := newService(users, tokens)

	users.On("FindByEmail", mock.Anything, "prof@escola.com").Return(domain.User{ID: "u1", PasswordHash: hashOf(t, "Senha@123")}, nil)
	users.On("UpdatePassword", mock.Anything, "u1", mock.MatchedBy(func(h string) bool {
		return bcrypt.CompareHashAndPassword([]byte(h), []byte("Nova@1234")) == nil
	}), mock.Anything).Return(nil)

	err := svc.ChangePassword(context.Background(), "prof@escola.com", domain.ChangePasswordRequest{
		CurrentPassword: "Senha@123", NewPassword: "Nova@1234", ConfirmNewPassword: "Nova@1234",
	})

	require.NoError(t, err)
	users.AssertExpectations(t)
}

func TestResetPasswordByAdmin_UnknownUser(t *testing.T) {
	users, tokens := new(MockUserRepository), new(MockTokenService)
	svc := newService(users, tokens)

	users.On("FindByEmail", mock.Anything, "ninguem@escola.com").Return(domain.User{}, notFound)

	err := svc.ResetPasswordByAdmin(context.Background(), domain.ResetPasswordRequest{
		Email: "ninguem@escola.com", NewPassword: "Nova@1234", ConfirmNewPassword: "Nova@1234",
	})

	assert.IsType(t, &apperror.NotFoundError{}, err)
}

func TestResetPasswordByAdmin_Success(t *testing.T) {
	users, tokens := new(MockUserRepository), new(MockTokenService)
	svc := newService(users, tokens)

	users.On("FindByEmail", mock.Anything, "prof@escola.com").Return(domain.User{ID: "u1"}, nil)
	users.On("UpdatePassword", mock.Anything, "u1", mock.Anything, mock.Anything).Return(nil)

	err := svc.ResetPasswordByAdmin(context.Background(), domain.ResetPasswordRequest{
		Email: "prof@escola.com", NewPassword: "Nova@1234", ConfirmNewPassword: "Nova@1234",
	})

	require.NoError(t, err)
	users.AssertExpectations(t)
}

// --- EnsureAdmin ---

func TestEnsureAdmin_CreatesWhenMissing(t *testing.T) {
	users, tokens := new(MockUserRepository), new(MockTokenService)
	svc := newService(users, tokens)

	users.On("FindByEmail", mock.Anything, "admin@exemplo.com").Return(domain.User{}, notFound)
	users.On("Save", mock.Anything, mock.MatchedBy(func(u domain.User) bool {
		return u.HasRole(domain.RoleAdmin)
	})).Return(domain.User{ID: "a1"}, nil)

	require.NoError(t, svc.EnsureAdmin(context.Background(), "admin@exemplo.com", "Admin@123"))
	users.AssertNumberOfCalls(t, "Save", 1)
}

func TestEnsureAdmin_NoopWhenPresentOrDisabled(t *testing.T) {
	users, tokens := new(MockUserRepository), new(MockTokenService)
	svc := newService(users, tokens)

	users.On("FindByEmail", mock.Anything, "admin@exemplo.com").Return(domain.User{ID: "a1", Roles: []string{domain.RoleAdmin}}, nil)

	require.NoError(t, svc.EnsureAdmin(context.Background(), "admin@exemplo.com", "Admin@123"))
	require.NoError(t, svc.EnsureAdmin(context.Background(), "", ""))
	users.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
	users.AssertNumberOfCalls(t, "FindByEmail", 1)
}
