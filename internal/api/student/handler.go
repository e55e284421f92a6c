package student

import (
	"context"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"goescola/internal/api/httpx"
	"goescola/internal/domain"
	apperror "goescola/internal/errors"
	"goescola/internal/pkg/logger"
	"goescola/internal/pkg/middleware"
)

// maxUploadSize limita o tamanho da planilha enviada para importação (10 MiB).
const maxUploadSize = 10 << 20

// StudentService define o contrato que o Handler espera da camada de Serviço.
type StudentService interface {
	CreateStudent(ctx context.Context, in domain.StudentInput) (domain.Student, error)
	GetStudent(ctx context.Context, id string) (domain.Student, error)
	ListStudents(ctx context.Context, page domain.PageRequest) (domain.PagedResult[domain.Student], error)
	SearchStudents(ctx context.Context, term string, page domain.PageRequest) (domain.PagedResult[domain.Student], error)
	UpdateStudent(ctx context.Context, id string, in domain.StudentUpdate) (domain.Student, error)
	DeleteStudent(ctx context.Context, id string) (bool, error)
	ImportStudents(ctx context.Context, r io.Reader) (domain.ImportReport, error)
}

// Handler agrupa os handlers de alunos.
type Handler struct {
	Service     StudentService
	Logger      logger.Logger
	MaxPageSize int
}

// NewHandler cria uma nova instância do Handler, injetando o Service e o Logger.
func NewHandler(svc StudentService, log logger.Logger, maxPageSize int) *Handler {
	return &Handler{Service: svc, Logger: log, MaxPageSize: maxPageSize}
}

// CreateStudentHandler lida com a requisição POST /students.
// @Summary Cadastra um aluno
// @Description Valida nome, CPF, email e data de nascimento. CPF e email devem ser únicos.
// @Tags students
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param student body domain.StudentInput true "Dados do aluno"
// @Success 201 {object} domain.Student
// @Failure 400 {object} domain.ErrorResponse "Dados inválidos"
// @Failure 409 {object} domain.ErrorResponse "CPF ou email já cadastrado"
// @Router /students [post]
func (h *Handler) CreateStudentHandler(w http.ResponseWriter, r *http.Request) {
	if claims, ok := middleware.GetUserClaimsFromContext(r.Context()); ok {
		h.Logger.Info("Cadastro de aluno solicitado.", map[string]interface{}{"user_id": claims.UserID})
	}

	var in domain.StudentInput
	if err := httpx.DecodeJSON(r, &in); err != nil {
		httpx.WriteError(w, r, h.Logger, err)
		return
	}

	student, err := h.Service.CreateStudent(r.Context(), in)
	if err != nil {
		httpx.WriteError(w, r, h.Logger, err)
		return
	}

	httpx.Created(w, r, h.Logger, "/students/"+student.ID, student)
}

// GetStudentHandler lida com a requisição GET /students/{id}.
// @Summary Busca um aluno pelo ID
// @Tags students
// @Produce json
// @Security BearerAuth
// @Param id path string true "ID do aluno (UUID)"
// @Success 200 {object} domain.Student
// @Failure 400 {object} domain.ErrorResponse "ID inválido"
// @Failure 404 {object} domain.ErrorResponse "Aluno não encontrado"
// @Router /students/{id} [get]
func (h *Handler) GetStudentHandler(w http.ResponseWriter, r *http.Request) {
	student, err := h.Service.GetStudent(r.Context(), chi.URLParam(r, "id"))
	httpx.HandleServiceResponse(w, r, h.Logger, student, err, http.StatusOK)
}

// ListStudentsHandler lida com a requisição GET /students.
// @Summary Lista alunos com paginação
// @Tags students
// @Produce json
// @Security BearerAuth
// @Param page query int false "Página (a partir de 1)"
// @Param size query int false "Itens por página (máx. 100)"
// @Success 200 {object} domain.PagedResult[domain.Student]
// @Failure 400 {object} domain.ErrorResponse "Parâmetros de paginação inválidos"
// @Router /students [get]
func (h *Handler) ListStudentsHandler(w http.ResponseWriter, r *http.Request) {
	page, err := httpx.PageFromQuery(r, h.MaxPageSize)
	if err != nil {
		httpx.WriteError(w, r, h.Logger, err)
		return
	}

	result, err := h.Service.ListStudents(r.Context(), page)
	httpx.HandleServiceResponse(w, r, h.Logger, result, err, http.StatusOK)
}

// SearchStudentsHandler lida com a requisição GET /students/search?name=.
// @Summary Pesquisa alunos por parte do nome
// @Tags students
// @Produce json
// @Security BearerAuth
// @Param name query string true "Trecho do nome"
// @Param page query int false "Página (a partir de 1)"
// @Param size query int false "Itens por página (máx. 100)"
// @Success 200 {object} domain.PagedResult[domain.Student]
// @Failure 400 {object} domain.ErrorResponse "Termo de pesquisa ausente"
// @Router /students/search [get]
func (h *Handler) SearchStudentsHandler(w http.ResponseWriter, r *http.Request) {
	page, err := httpx.PageFromQuery(r, h.MaxPageSize)
	if err != nil {
		httpx.WriteError(w, r, h.Logger, err)
		return
	}

	result, err := h.Service.SearchStudents(r.Context(), r.URL.Query().Get("name"), page)
	httpx.HandleServiceResponse(w, r, h.Logger, result, err, http.StatusOK)
}

// UpdateStudentHandler lida com a requisição PUT /students/{id}.
// @Summary Atualiza um aluno
// @Description O CPF não pode ser alterado.
// @Tags students
// @Accept json
// @Security BearerAuth
// @Param id path string true "ID do aluno (UUID)"
// @Param student body domain.StudentUpdate true "Novos dados do aluno"
// @Success 204
// @Failure 400 {object} domain.ErrorResponse "Dados inválidos"
// @Failure 404 {object} domain.ErrorResponse "Aluno não encontrado"
// @Failure 409 {object} domain.ErrorResponse "Email já cadastrado"
// @Router /students/{id} [put]
func (h *Handler) UpdateStudentHandler(w http.ResponseWriter, r *http.Request) {
	var in domain.StudentUpdate
	if err := httpx.DecodeJSON(r, &in); err != nil {
		httpx.WriteError(w, r, h.Logger, err)
		return
	}

	if _, err := h.Service.UpdateStudent(r.Context(), chi.URLParam(r, "id"), in); err != nil {
		httpx.WriteError(w, r, h.Logger, err)
		return
	}
	httpx.NoContent(w)
}

// DeleteStudentHandler lida com a requisição DELETE /students/{id}.
// @Summary Remove um aluno e suas matrículas
// @Tags students
// @Security BearerAuth
// @Param id path string true "ID do aluno (UUID)"
// @Success 204
// @Failure 404 {object} domain.ErrorResponse "Aluno não encontrado"
// @Router /students/{id} [delete]
func (h *Handler) DeleteStudentHandler(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	deleted, err := h.Service.DeleteStudent(r.Context(), id)
	if err != nil {
		httpx.WriteError(w, r, h.Logger, err)
		return
	}
	if !deleted {
		httpx.WriteError(w, r, h.Logger, apperror.NewNotFoundError("Aluno com ID "+id+" não encontrado"))
		return
	}
	httpx.NoContent(w)
}

// ImportStudentsHandler lida com a requisição POST /students/import.
// @Summary Importa alunos de uma planilha .xlsx
// @Description Colunas: Nome, CPF, Email, DataNascimento. Cada linha é validada e cadastrada individualmente.
// @Tags students
// @Accept multipart/form-data
// @Produce json
// @Security BearerAuth
// @Param file formData file true "Planilha .xlsx"
// @Success 200 {object} domain.ImportReport
// @Failure 400 {object} domain.ErrorResponse "Arquivo ausente ou inválido"
// @Router /students/import [post]
func (h *Handler) ImportStudentsHandler(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize)
	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		httpx.WriteError(w, r, h.Logger, apperror.NewFieldValidationError("arquivo inválido.",
			apperror.FieldError{Field: "file", Message: "Envie a planilha no campo 'file' (multipart/form-data)."}))
		return
	}

	file, _, err := r.FormFile("file")
	if err != nil {
		httpx.WriteError(w, r, h.Logger, apperror.NewFieldValidationError("arquivo inválido.",
			apperror.FieldError{Field: "file", Message: "O arquivo é obrigatório."}))
		return
	}
	defer file.Close()

	report, err := h.Service.ImportStudents(r.Context(), file)
	httpx.HandleServiceResponse(w, r, h.Logger, report, err, http.StatusOK)
}
