package authservice

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"goescola/internal/domain"
	apperror "goescola/internal/errors"
	"goescola/internal/pkg/logger"
	"goescola/internal/pkg/validation"
)

const msgInvalidCredentials = "Usuário ou senha inválidos."

// UserRepository define o contrato de persistência de credenciais.
type UserRepository interface {
	Save(ctx context.Context, user domain.User) (domain.User, error)
	FindByEmail(ctx context.Context, email string) (domain.User, error)
	UpdatePassword(ctx context.Context, userID, passwordHash string, updatedAt time.Time) error
}

// TokenService é o contrato da camada de token (internal/pkg/token).
type TokenService interface {
	GenerateToken(userID, email string, roles []string) (string, time.Time, error)
}

// Service implementa registro, login e troca de senha.
type Service struct {
	users     UserRepository
	tokens    TokenService
	validator validation.Validator
	logger    logger.Logger
	hashCost  int
}

// NewService cria o serviço de autenticação.
func NewService(users UserRepository, tokens TokenService, v validation.Validator, log logger.Logger) *Service {
	return &Service{
		users:     users,
		tokens:    tokens,
		validator: v,
		logger:    log,
		hashCost:  bcrypt.DefaultCost,
	}
}

// RegisterAdmin registra um usuário com o papel Admin.
func (s *Service) RegisterAdmin(ctx context.Context, req domain.RegisterRequest) (domain.User, error) {
	return s.register(ctx, req, domain.RoleAdmin)
}

// RegisterUser registra um usuário com o papel User.
func (s *Service) RegisterUser(ctx context.Context, req domain.RegisterRequest) (domain.User, error) {
	return s.register(ctx, req, domain.RoleUser)
}

func (s *Service) register(ctx context.Context, req domain.RegisterRequest, role string) (domain.User, error) {
	s.logger.Debug("Iniciando registro de usuário.", map[string]interface{}{"role": role})

	req.Email = strings.TrimSpace(req.Email)
	if err := s.validator.Struct(req); err != nil {
		s.logger.Warn("Falha na validação do registro.", map[string]interface{}{"error": err.Error()})
		return domain.User{}, err
	}

	_, err := s.users.FindByEmail(ctx, req.Email)
	if err == nil {
		return domain.User{}, apperror.NewConflictError("Já existe um usuário com este email!")
	}
	if !apperror.IsNotFound(err) {
		return domain.User{}, err
	}

	hash, err := s.hash(req.Password)
	if err != nil {
		return domain.User{}, err
	}

	now := time.Now().UTC()
	user, err := s.users.Save(ctx, domain.User{
		ID:           uuid.NewString(),
		Email:        req.Email,
		PasswordHash: hash,
		Roles:        []string{role},
		CreatedAt:    now,
		UpdatedAt:    now,
	})
	if err != nil {
		return domain.User{}, err
	}

	s.logger.Info("Usuário registrado com sucesso.", map[string]interface{}{"user_id": user.ID, "role": role})
	return user, nil
}

// Login autentica o usuário e emite um JWT com os papéis como claims.
// Usuário inexistente e senha errada produzem a mesma resposta.
func (s *Service) Login(ctx context.Context, req domain.LoginRequest) (domain.LoginResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return domain.LoginResponse{}, err
	}

	user, err := s.users.FindByEmail(ctx, strings.TrimSpace(req.Username))
	if err != nil {
		if apperror.IsNotFound(err) {
			s.logger.Info("Login rejeitado: usuário inexistente.", nil)
			return domain.LoginResponse{}, apperror.NewUnauthorizedError(msgInvalidCredentials)
		}
		return domain.LoginResponse{}, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		s.logger.Info("Login rejeitado: senha incorreta.", map[string]interface{}{"user_id": user.ID})
		return domain.LoginResponse{}, apperror.NewUnauthorizedError(msgInvalidCredentials)
	}

	token, expiresAt, err := s.tokens.GenerateToken(user.ID, user.Email, user.Roles)
	if err != nil {
		return domain.LoginResponse{}, apperror.NewInternalError("Falha ao gerar token de autenticação.", err)
	}

	s.logger.Info("Login efetuado.", map[string]interface{}{"user_id": user.ID})
	return domain.LoginResponse{Token: token, ExpiresAt: expiresAt}, nil
}

// ChangePassword troca a senha do próprio usuário, exigindo a senha atual.
func (s *Service) ChangePassword(ctx context.Context, email string, req domain.ChangePasswordRequest) error {
	if err := s.validator.Struct(req); err != nil {
		return err
	}

	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		return err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.CurrentPassword)); err != nil {
		return apperror.NewFieldValidationError("senha atual incorreta.",
			apperror.FieldError{Field: "current_password", Message: "A senha atual está incorreta."})
	}

	return s.setPassword(ctx, user, req.NewPassword)
}

// ResetPasswordByAdmin redefine a senha de qualquer usuário, sem a senha atual.
func (s *Service) ResetPasswordByAdmin(ctx context.Context, req domain.ResetPasswordRequest) error {
	req.Email = strings.TrimSpace(req.Email)
	if err := s.validator.Struct(req); err != nil {
		return err
	}

	user, err := s.users.FindByEmail(ctx, req.Email)
	if err != nil {
		if apperror.IsNotFound(err) {
			return apperror.NewNotFoundError("Usuário não encontrado.")
		}
		return err
	}

	return s.setPassword(ctx, user, req.NewPassword)
}

// EnsureAdmin cria o administrador inicial se ele ainda não existir.
// Email vazio desativa a criação.
func (s *Service) EnsureAdmin(ctx context.Context, email, password string) error {
	if email == "" {
		return nil
	}

	user, err := s.users.FindByEmail(ctx, email)
	if err == nil {
		if !user.HasRole(domain.RoleAdmin) {
			s.logger.Warn("Usuário do administrador inicial existe sem o papel Admin.", map[string]interface{}{"user_id": user.ID})
		}
		return nil
	}
	if !apperror.IsNotFound(err) {
		return err
	}

	_, err = s.RegisterAdmin(ctx, domain.RegisterRequest{Email: email, Password: password, ConfirmPassword: password})
	if apperror.IsConflict(err) {
		return nil
	}
	if err == nil {
		s.logger.Info("Administrador inicial criado.", map[string]interface{}{"email": email})
	}
	return err
}

func (s *Service) setPassword(ctx context.Context, user domain.User, password string) error {
	hash, err := s.hash(password)
	if err != nil {
		return err
	}
	if err := s.users.UpdatePassword(ctx, user.ID, hash, time.Now().UTC()); err != nil {
		return err
	}
	s.logger.Info("Senha atualizada.", map[string]interface{}{"user_id": user.ID})
	return nil
}

func (s *Service) hash(password string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), s.hashCost)
	if errors.Is(err, bcrypt.ErrPasswordTooLong) {
		return "", apperror.NewFieldValidationError("senha inválida.",
			apperror.FieldError{Field: "password", Message: "A senha deve ter no máximo 72 bytes."})
	}
	if err != nil {
		return "", apperror.NewInternalError("Falha ao gerar hash da senha.", err)
	}
	return string(hashed), nil
}
