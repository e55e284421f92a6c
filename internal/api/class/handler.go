package class

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"goescola/internal/api/httpx"
	"goescola/internal/domain"
	apperror "goescola/internal/errors"
	"goescola/internal/pkg/logger"
)

// ClassService define o contrato que o Handler espera da camada de Serviço.
type ClassService interface {
	CreateClass(ctx context.Context, in domain.ClassInput) (domain.Class, error)
	GetClass(ctx context.Context, id string) (domain.Class, error)
	ListClasses(ctx context.Context, page domain.PageRequest) (domain.PagedResult[domain.Class], error)
	UpdateClass(ctx context.Context, id string, in domain.ClassInput) (domain.Class, error)
	DeleteClass(ctx context.Context, id string) (bool, error)
}

type Handler struct {
	Service     ClassService
	Logger      logger.Logger
	MaxPageSize int
}

func NewHandler(svc ClassService, log logger.Logger, maxPageSize int) *Handler {
	return &Handler{Service: svc, Logger: log, MaxPageSize: maxPageSize}
}

// CreateClassHandler lida com a requisição POST /classes.
// @Summary Cadastra uma turma
// @Tags classes
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param class body domain.ClassInput true "Dados da turma"
// @Success 201 {object} domain.Class
// @Failure 400 {object} domain.ErrorResponse "Dados inválidos"
// @Failure 409 {object} domain.ErrorResponse "Nome de turma já cadastrado"
// @Router /classes [post]
func (h *Handler) CreateClassHandler(w http.ResponseWriter, r *http.Request) {
	var in domain.ClassInput
	if err := httpx.DecodeJSON(r, &in); err != nil {
		httpx.WriteError(w, r, h.Logger, err)
		return
	}

	class, err := h.Service.CreateClass(r.Context(), in)
	if err != nil {
		httpx.WriteError(w, r, h.Logger, err)
		return
	}
	httpx.Created(w, r, h.Logger, "/classes/"+class.ID, class)
}

// GetClassHandler lida com a requisição GET /classes/{id}.
// @Summary Busca uma turma pelo ID
// @Tags classes
// @Produce json
// @Security BearerAuth
// @Param id path string true "ID da turma (UUID)"
// @Success 200 {object} domain.Class
// @Failure 404 {object} domain.ErrorResponse "Turma não encontrada"
// @Router /classes/{id} [get]
func (h *Handler) GetClassHandler(w http.ResponseWriter, r *http.Request) {
	class, err := h.Service.GetClass(r.Context(), chi.URLParam(r, "id"))
	httpx.HandleServiceResponse(w, r, h.Logger, class, err, http.StatusOK)
}

// ListClassesHandler lida com a requisição GET /classes.
// @Summary Lista turmas ordenadas por nome, com a contagem de alunos
// @Tags classes
// @Produce json
// @Security BearerAuth
// @Param page query int false "Página (a partir de 1)"
// @Param size query int false "Itens por página (máx. 100)"
// @Success 200 {object} domain.PagedResult[domain.Class]
// @Router /classes [get]
func (h *Handler) ListClassesHandler(w http.ResponseWriter, r *http.Request) {
	page, err := httpx.PageFromQuery(r, h.MaxPageSize)
	if err != nil {
		httpx.WriteError(w, r, h.Logger, err)
		return
	}

	result, err := h.Service.ListClasses(r.Context(), page)
	httpx.HandleServiceResponse(w, r, h.Logger, result, err, http.StatusOK)
}

// UpdateClassHandler lida com a requisição PUT /classes/{id}.
// @Summary Atualiza uma turma
// @Tags classes
// @Accept json
// @Security BearerAuth
// @Param id path string true "ID da turma (UUID)"
// @Param class body domain.ClassInput true "Novos dados da turma"
// @Success 204
// @Failure 400 {object} domain.ErrorResponse "Dados inválidos"
// @Failure 404 {object} domain.ErrorResponse "Turma não encontrada"
// @Failure 409 {object} domain.ErrorResponse "Nome de turma já cadastrado"
// @Router /classes/{id} [put]
func (h *Handler) UpdateClassHandler(w http.ResponseWriter, r *http.Request) {
	var in domain.ClassInput
	if err := httpx.DecodeJSON(r, &in); err != nil {
		httpx.WriteError(w, r, h.Logger, err)
		return
	}

	if _, err := h.Service.UpdateClass(r.Context(), chi.URLParam(r, "id"), in); err != nil {
		httpx.WriteError(w, r, h.Logger, err)
		return
	}
	httpx.NoContent(w)
}

// DeleteClassHandler lida com a requisição DELETE /classes/{id}.
// @Summary Remove uma turma e suas matrículas
// @Tags classes
// @Security BearerAuth
// @Param id path string true "ID da turma (UUID)"
// @Success 204
// @Failure 404 {object} domain.ErrorResponse "Turma não encontrada"
// @Router /classes/{id} [delete]
func (h *Handler) DeleteClassHandler(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	deleted, err := h.Service.DeleteClass(r.Context(), id)
	if err != nil {
		httpx.WriteError(w, r, h.Logger, err)
		return
	}
	if !deleted {
		httpx.WriteError(w, r, h.Logger, apperror.NewNotFoundError("Turma com ID "+id+" não encontrada"))
		return
	}
	httpx.NoContent(w)
}
