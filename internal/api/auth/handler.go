package auth

import (
	"context"
	"net/http"

	"goescola/internal/api/httpx"
	"goescola/internal/domain"
	apperror "goescola/internal/errors"
	"goescola/internal/pkg/logger"
	"goescola/internal/pkg/middleware"
)

// AuthService define o contrato para as operações de registro, login e senha.
type AuthService interface {
	RegisterAdmin(ctx context.Context, req domain.RegisterRequest) (domain.User, error)
	RegisterUser(ctx context.Context, req domain.RegisterRequest) (domain.User, error)
	Login(ctx context.Context, req domain.LoginRequest) (domain.LoginResponse, error)
	ChangePassword(ctx context.Context, email string, req domain.ChangePasswordRequest) error
	ResetPasswordByAdmin(ctx context.Context, req domain.ResetPasswordRequest) error
}

// Handler agrupa os handlers de autenticação.
type Handler struct {
	Service AuthService
	Logger  logger.Logger
}

// NewHandler cria uma nova instância do Handler, injetando o Service e o Logger.
func NewHandler(svc AuthService, log logger.Logger) *Handler {
	return &Handler{Service: svc, Logger: log}
}

// LoginHandler lida com a requisição POST /auth/login.
// @Summary Autentica um usuário e retorna um JWT
// @Description Recebe usuário (email) e senha e emite um token com os papéis do usuário.
// @Tags auth
// @Accept json
// @Produce json
// @Param login body domain.LoginRequest true "Credenciais"
// @Success 200 {object} domain.LoginResponse "Token JWT emitido"
// @Failure 400 {object} domain.ErrorResponse "Payload inválido"
// @Failure 401 {object} domain.ErrorResponse "Credenciais inválidas"
// @Router /auth/login [post]
func (h *Handler) LoginHandler(w http.ResponseWriter, r *http.Request) {
	var req domain.LoginRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.WriteError(w, r, h.Logger, err)
		return
	}

	resp, err := h.Service.Login(r.Context(), req)
	httpx.HandleServiceResponse(w, r, h.Logger, resp, err, http.StatusOK)
}

// RegisterAdminHandler lida com a requisição POST /auth/register-admin.
// @Summary Registra um administrador
// @Tags auth
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param registration body domain.RegisterRequest true "Email, senha e confirmação"
// @Success 201 {object} domain.User "Usuário criado com sucesso"
// @Failure 400 {object} domain.ErrorResponse "Dados inválidos"
// @Failure 409 {object} domain.ErrorResponse "Email já cadastrado"
// @Router /auth/register-admin [post]
func (h *Handler) RegisterAdminHandler(w http.ResponseWriter, r *http.Request) {
	h.register(w, r, h.Service.RegisterAdmin)
}

// RegisterUserHandler lida com a requisição POST /auth/register-user.
// @Summary Registra um usuário comum
// @Tags auth
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param registration body domain.RegisterRequest true "Email, senha e confirmação"
// @Success 201 {object} domain.User "Usuário criado com sucesso"
// @Failure 400 {object} domain.ErrorResponse "Dados inválidos"
// @Failure 409 {object} domain.ErrorResponse "Email já cadastrado"
// @Router /auth/register-user [post]
func (h *Handler) RegisterUserHandler(w http.ResponseWriter, r *http.Request) {
	h.register(w, r, h.Service.RegisterUser)
}

func (h *Handler) register(w http.ResponseWriter, r *http.Request, fn func(context.Context, domain.RegisterRequest) (domain.User, error)) {
	var req domain.RegisterRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.WriteError(w, r, h.Logger, err)
		return
	}

	// O hash não é serializado (json:"-").
	user, err := fn(r.Context(), req)
	httpx.HandleServiceResponse(w, r, h.Logger, user, err, http.StatusCreated)
}

// ChangePasswordHandler lida com a requisição POST /auth/change-password.
// @Summary Troca a senha do usuário autenticado
// @Tags auth
// @Accept json
// @Security BearerAuth
// @Param request body domain.ChangePasswordRequest true "Senha atual, nova senha e confirmação"
// @Success 204
// @Failure 400 {object} domain.ErrorResponse "Dados inválidos ou senha atual incorreta"
// @Failure 401 {object} domain.ErrorResponse "Token ausente ou inválido"
// @Router /auth/change-password [post]
func (h *Handler) ChangePasswordHandler(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.GetUserClaimsFromContext(r.Context())
	if !ok || claims.Email == "" {
		httpx.WriteError(w, r, h.Logger, apperror.NewUnauthorizedError("Autorização necessária."))
		return
	}

	var req domain.ChangePasswordRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.WriteError(w, r, h.Logger, err)
		return
	}

	if err := h.Service.ChangePassword(r.Context(), claims.Email, req); err != nil {
		httpx.WriteError(w, r, h.Logger, err)
		return
	}
	httpx.NoContent(w)
}

// ResetPasswordHandler lida com a requisição POST /auth/reset-password-admin.
// @Summary Redefine a senha de um usuário (administrador)
// @Tags auth
// @Accept json
// @Security BearerAuth
// @Param request body domain.ResetPasswordRequest true "Email do usuário, nova senha e confirmação"
// @Success 204
// @Failure 400 {object} domain.ErrorResponse "Dados inválidos"
// @Failure 404 {object} domain.ErrorResponse "Usuário não encontrado"
// @Router /auth/reset-password-admin [post]
func (h *Handler) ResetPasswordHandler(w http.ResponseWriter, r *http.Request) {
	var req domain.ResetPasswordRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.WriteError(w, r, h.Logger, err)
		return
	}

	if err := h.Service.ResetPasswordByAdmin(r.Context(), req); err != nil {
		httpx.WriteError(w, r, h.Logger, err)
		return
	}

	if claims, ok := middleware.GetUserClaimsFromContext(r.Context()); ok {
		h.Logger.Info("Senha redefinida por administrador.", map[string]interface{}{"admin_id": claims.UserID, "email": req.Email})
	}
	httpx.NoContent(w)
}
