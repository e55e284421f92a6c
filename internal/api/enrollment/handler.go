package enrollment

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"goescola/internal/api/httpx"
	"goescola/internal/domain"
	apperror "goescola/internal/errors"
	"goescola/internal/pkg/logger"
)

// EnrollmentService define o contrato que o Handler espera da camada de Serviço.
type EnrollmentService interface {
	AddEnrollment(ctx context.Context, in domain.EnrollmentInput) (domain.EnrollmentDetail, error)
	GetEnrollment(ctx context.Context, id string) (domain.EnrollmentDetail, error)
	ListEnrollments(ctx context.Context, page domain.PageRequest) (domain.PagedResult[domain.EnrollmentDetail], error)
	ListByStudent(ctx context.Context, studentID string, page domain.PageRequest) (domain.PagedResult[domain.EnrollmentDetail], error)
	ListByClass(ctx context.Context, classID string, page domain.PageRequest) (domain.PagedResult[domain.EnrollmentDetail], error)
	UpdateEnrollment(ctx context.Context, id string, in domain.EnrollmentInput) (domain.EnrollmentDetail, error)
	DeleteEnrollment(ctx context.Context, id string) (bool, error)
}

// Handler agrupa os handlers de matrículas.
type Handler struct {
	Service     EnrollmentService
	Logger      logger.Logger
	MaxPageSize int
}

// NewHandler cria uma nova instância do Handler.
func NewHandler(svc EnrollmentService, log logger.Logger, maxPageSize int) *Handler {
	return &Handler{Service: svc, Logger: log, MaxPageSize: maxPageSize}
}

// AddEnrollmentHandler lida com a requisição POST /enrollments.
// @Summary Matricula um aluno em uma turma
// @Description Aluno e turma devem existir; o mesmo aluno não pode ser matriculado duas vezes na mesma turma.
// @Tags enrollments
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param enrollment body domain.EnrollmentInput true "Aluno, turma e data da matrícula"
// @Success 201 {object} domain.EnrollmentDetail
// @Failure 400 {object} domain.ErrorResponse "Dados inválidos"
// @Failure 404 {object} domain.ErrorResponse "Aluno ou turma não encontrados"
// @Failure 409 {object} domain.ErrorResponse "Aluno já matriculado na turma"
// @Router /enrollments [post]
func (h *Handler) AddEnrollmentHandler(w http.ResponseWriter, r *http.Request) {
	var in domain.EnrollmentInput
	if err := httpx.DecodeJSON(r, &in); err != nil {
		httpx.WriteError(w, r, h.Logger, err)
		return
	}

	detail, err := h.Service.AddEnrollment(r.Context(), in)
	if err != nil {
		httpx.WriteError(w, r, h.Logger, err)
		return
	}
	httpx.Created(w, r, h.Logger, "/enrollments/"+detail.ID, detail)
}

// GetEnrollmentHandler lida com a requisição GET /enrollments/{id}.
// @Summary Busca uma matrícula pelo ID
// @Tags enrollments
// @Produce json
// @Security BearerAuth
// @Param id path string true "ID da matrícula (UUID)"
// @Success 200 {object} domain.EnrollmentDetail
// @Failure 404 {object} domain.ErrorResponse "Matrícula não encontrada"
// @Router /enrollments/{id} [get]
func (h *Handler) GetEnrollmentHandler(w http.ResponseWriter, r *http.Request) {
	detail, err := h.Service.GetEnrollment(r.Context(), chi.URLParam(r, "id"))
	httpx.HandleServiceResponse(w, r, h.Logger, detail, err, http.StatusOK)
}

// ListEnrollmentsHandler lida com a requisição GET /enrollments.
// @Summary Lista matrículas ordenadas por aluno e turma
// @Tags enrollments
// @Produce json
// @Security BearerAuth
// @Param page query int false "Página (a partir de 1)"
// @Param size query int false "Itens por página (máx. 100)"
// @Success 200 {object} domain.PagedResult[domain.EnrollmentDetail]
// @Router /enrollments [get]
func (h *Handler) ListEnrollmentsHandler(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, func(ctx context.Context, page domain.PageRequest) (domain.PagedResult[domain.EnrollmentDetail], error) {
		return h.Service.ListEnrollments(ctx, page)
	})
}

// ListByStudentHandler lida com a requisição GET /enrollments/student/{id}.
// @Summary Lista as turmas em que um aluno está matriculado
// @Tags enrollments
// @Produce json
// @Security BearerAuth
// @Param id path string true "ID do aluno (UUID)"
// @Param page query int false "Página (a partir de 1)"
// @Param size query int false "Itens por página (máx. 100)"
// @Success 200 {object} domain.PagedResult[domain.EnrollmentDetail]
// @Router /enrollments/student/{id} [get]
func (h *Handler) ListByStudentHandler(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	h.list(w, r, func(ctx context.Context, page domain.PageRequest) (domain.PagedResult[domain.EnrollmentDetail], error) {
		return h.Service.ListByStudent(ctx, id, page)
	})
}

// ListByClassHandler lida com a requisição GET /enrollments/class/{id}.
// @Summary Lista os alunos matriculados em uma turma
// @Tags enrollments
// @Produce json
// @Security BearerAuth
// @Param id path string true "ID da turma (UUID)"
// @Param page query int false "Página (a partir de 1)"
// @Param size query int false "Itens por página (máx. 100)"
// @Success 200 {object} domain.PagedResult[domain.EnrollmentDetail]
// @Router /enrollments/class/{id} [get]
func (h *Handler) ListByClassHandler(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	h.list(w, r, func(ctx context.Context, page domain.PageRequest) (domain.PagedResult[domain.EnrollmentDetail], error) {
		return h.Service.ListByClass(ctx, id, page)
	})
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request, fetch func(context.Context, domain.PageRequest) (domain.PagedResult[domain.EnrollmentDetail], error)) {
	page, err := httpx.PageFromQuery(r, h.MaxPageSize)
	if err != nil {
		httpx.WriteError(w, r, h.Logger, err)
		return
	}

	result, err := fetch(r.Context(), page)
	httpx.HandleServiceResponse(w, r, h.Logger, result, err, http.StatusOK)
}

// UpdateEnrollmentHandler lida com a requisição PUT /enrollments/{id}.
// @Summary Atualiza uma matrícula
// @Tags enrollments
// @Accept json
// @Security BearerAuth
// @Param id path string true "ID da matrícula (UUID)"
// @Param enrollment body domain.EnrollmentInput true "Novos dados da matrícula"
// @Success 204
// @Failure 400 {object} domain.ErrorResponse "Dados inválidos"
// @Failure 404 {object} domain.ErrorResponse "Matrícula, aluno ou turma não encontrados"
// @Failure 409 {object} domain.ErrorResponse "Aluno já matriculado na turma"
// @Router /enrollments/{id} [put]
func (h *Handler) UpdateEnrollmentHandler(w http.ResponseWriter, r *http.Request) {
	var in domain.EnrollmentInput
	if err := httpx.DecodeJSON(r, &in); err != nil {
		httpx.WriteError(w, r, h.Logger, err)
		return
	}

	if _, err := h.Service.UpdateEnrollment(r.Context(), chi.URLParam(r, "id"), in); err != nil {
		httpx.WriteError(w, r, h.Logger, err)
		return
	}
	httpx.NoContent(w)
}

// DeleteEnrollmentHandler lida com a requisição DELETE /enrollments/{id}.
// @Summary Remove uma matrícula
// @Tags enrollments
// @Security BearerAuth
// @Param id path string true "ID da matrícula (UUID)"
// @Success 204
// @Failure 404 {object} domain.ErrorResponse "Matrícula não encontrada"
// @Router /enrollments/{id} [delete]
func (h *Handler) DeleteEnrollmentHandler(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	deleted, err := h.Service.DeleteEnrollment(r.Context(), id)
	if err != nil {
		httpx.WriteError(w, r, h.Logger, err)
		return
	}
	if !deleted {
		httpx.WriteError(w, r, h.Logger, apperror.NewNotFoundError("Matrícula com ID "+id+" não encontrada"))
		return
	}
	httpx.NoContent(w)
}
