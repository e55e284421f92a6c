package studentservice

import (
	"context"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"

	"goescola/internal/domain"
	apperror "goescola/internal/errors"
	"goescola/internal/pkg/logger"
	"goescola/internal/pkg/spreadsheet"
	"goescola/internal/pkg/validation"
)

// StudentRepository define o contrato que o Serviço de Alunos espera da camada de Persistência.
type StudentRepository interface {
	Save(ctx context.Context, student domain.Student) (domain.Student, error)
	FindByID(ctx context.Context, id string) (domain.Student, error)
	ExistsByCPF(ctx context.Context, cpf string) (bool, error)
	ExistsByEmail(ctx context.Context, email, excludeID string) (bool, error)
	List(ctx context.Context, page domain.PageRequest) ([]domain.Student, int, error)
	SearchByName(ctx context.Context, term string, page domain.PageRequest) ([]domain.Student, int, error)
	Update(ctx context.Context, student domain.Student) (domain.Student, error)
	Delete(ctx context.Context, id string) (bool, error)
}

// Service implementa as regras de cadastro de alunos.
type Service struct {
	repo        StudentRepository
	validator   validation.Validator
	logger      logger.Logger
	maxPageSize int
}

// NewService cria e retorna uma nova instância do Serviço de Alunos.
func NewService(repo StudentRepository, v validation.Validator, log logger.Logger, maxPageSize int) *Service {
	return &Service{repo: repo, validator: v, logger: log, maxPageSize: maxPageSize}
}

// CreateStudent cadastra um aluno. CPF e email devem ser únicos.
func (s *Service) CreateStudent(ctx context.Context, in domain.StudentInput) (domain.Student, error) {
	s.logger.Debug("Iniciando cadastro de aluno no serviço.", map[string]interface{}{"name": in.Name})

	in.Name = strings.TrimSpace(in.Name)
	in.Email = normalizeEmail(in.Email)
	if err := s.validator.Struct(in); err != nil {
		s.logger.Warn("Falha na validação do aluno.", map[string]interface{}{"error": err.Error()})
		return domain.Student{}, err
	}

	cpf := validation.NormalizeCPF(in.CPF)

	exists, err := s.repo.ExistsByCPF(ctx, cpf)
	if err != nil {
		return domain.Student{}, err
	}
	if exists {
		return domain.Student{}, apperror.NewConflictError("Já existe um aluno cadastrado com este CPF.")
	}

	exists, err = s.repo.ExistsByEmail(ctx, in.Email, "")
	if err != nil {
		return domain.Student{}, err
	}
	if exists {
		return domain.Student{}, apperror.NewConflictError("Já existe um aluno cadastrado com este email.")
	}

	now := time.Now().UTC()
	student := domain.Student{
		ID:        uuid.NewString(),
		Name:      in.Name,
		CPF:       cpf,
		Email:     in.Email,
		BirthDate: in.BirthDate,
		CreatedAt: now,
		UpdatedAt: now,
	}

	created, err := s.repo.Save(ctx, student)
	if err != nil {
		s.logger.Warn("Falha ao persistir aluno.", map[string]interface{}{"error": err.Error()})
		return domain.Student{}, err
	}

	s.logger.Info("Aluno cadastrado com sucesso.", map[string]interface{}{"id": created.ID})
	return created, nil
}

// GetStudent busca um aluno pelo ID.
func (s *Service) GetStudent(ctx context.Context, id string) (domain.Student, error) {
	if err := validateID(id); err != nil {
		return domain.Student{}, err
	}
	return s.repo.FindByID(ctx, id)
}

// ListStudents lista os alunos em ordem alfabética.
func (s *Service) ListStudents(ctx context.Context, page domain.PageRequest) (domain.PagedResult[domain.Student], error) {
	page = page.Normalize(s.maxPageSize)

	items, total, err := s.repo.List(ctx, page)
	if err != nil {
		s.logger.Error("Falha ao listar alunos no repositório.", err)
		return domain.PagedResult[domain.Student]{}, err
	}
	return domain.NewPagedResult(items, total, page), nil
}

// SearchStudents busca alunos pelo nome (substring, sem diferenciar maiúsculas).
func (s *Service) SearchStudents(ctx context.Context, term string, page domain.PageRequest) (domain.PagedResult[domain.Student], error) {
	term = strings.TrimSpace(term)
	if term == "" {
		return domain.PagedResult[domain.Student]{}, apperror.NewFieldValidationError("termo de busca ausente.",
			apperror.FieldError{Field: "name", Message: "Informe o nome a ser pesquisado."})
	}

	page = page.Normalize(s.maxPageSize)
	items, total, err := s.repo.SearchByName(ctx, term, page)
	if err != nil {
		s.logger.Error("Falha ao buscar alunos por nome.", err)
		return domain.PagedResult[domain.Student]{}, err
	}
	return domain.NewPagedResult(items, total, page), nil
}

// UpdateStudent altera nome, email e data de nascimento. O CPF é imutável.
func (s *Service) UpdateStudent(ctx context.Context, id string, in domain.StudentUpdate) (domain.Student, error) {
	s.logger.Debug("Iniciando atualização de aluno no serviço.", map[string]interface{}{"id": id})

	if err := validateID(id); err != nil {
		return domain.Student{}, err
	}
	in.Name = strings.TrimSpace(in.Name)
	in.Email = normalizeEmail(in.Email)
	if err := s.validator.Struct(in); err != nil {
		s.logger.Warn("Falha na validação do aluno para atualização.", map[string]interface{}{"error": err.Error()})
		return domain.Student{}, err
	}

	current, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return domain.Student{}, err
	}

	if !strings.EqualFold(current.Email, in.Email) {
		exists, err := s.repo.ExistsByEmail(ctx, in.Email, id)
		if err != nil {
			return domain.Student{}, err
		}
		if exists {
			return domain.Student{}, apperror.NewConflictError("Já existe um aluno cadastrado com este email.")
		}
	}

	current.Name = in.Name
	current.Email = in.Email
	current.BirthDate = in.BirthDate
	current.UpdatedAt = time.Now().UTC()

	updated, err := s.repo.Update(ctx, current)
	if err != nil {
		s.logger.Warn("Falha ao atualizar aluno.", map[string]interface{}{"id": id, "error": err.Error()})
		return domain.Student{}, err
	}

	s.logger.Info("Aluno atualizado com sucesso.", map[string]interface{}{"id": id})
	return updated, nil
}

// DeleteStudent remove o aluno e suas matrículas. Devolve false se ele não existir.
func (s *Service) DeleteStudent(ctx context.Context, id string) (bool, error) {
	if err := validateID(id); err != nil {
		return false, err
	}

	deleted, err := s.repo.Delete(ctx, id)
	if err != nil {
		s.logger.Error("Falha ao remover aluno no repositório.", err)
		return false, err
	}

	s.logger.Info("Exclusão de aluno processada.", map[string]interface{}{"id": id, "deleted": deleted})
	return deleted, nil
}

// ImportStudents cadastra os alunos de uma planilha .xlsx, linha a linha.
// Linhas inválidas não interrompem a importação; o relatório traz o motivo de cada falha.
func (s *Service) ImportStudents(ctx context.Context, r io.Reader) (domain.ImportReport, error) {
	rows, err := spreadsheet.ReadStudents(r)
	if err != nil {
		s.logger.Warn("Planilha de alunos rejeitada.", map[string]interface{}{"error": err.Error()})
		return domain.ImportReport{}, err
	}

	report := domain.ImportReport{Total: len(rows), Rows: make([]domain.ImportRowResult, 0, len(rows))}
	for _, row := range rows {
		result := domain.ImportRowResult{Row: row.Row, Name: row.Input.Name}

		if len(row.ParseErrors) > 0 {
			result.Errors = row.ParseErrors
		} else if student, err := s.CreateStudent(ctx, row.Input); err != nil {
			result.Errors = describe(err)
		} else {
			result.Success = true
			result.ID = student.ID
		}

		if result.Success {
			report.Imported++
		} else {
			report.Failed++
		}
		report.Rows = append(report.Rows, result)
	}

	s.logger.Info("Importação de alunos concluída.", map[string]interface{}{
		"total":    report.Total,
		"imported": report.Imported,
		"failed":   report.Failed,
	})
	return report, nil
}

// describe converte um erro de cadastro em mensagens legíveis para o relatório.
func describe(err error) []string {
	if fields := apperror.FieldsOf(err); len(fields) > 0 {
		msgs := make([]string, 0, len(fields))
		for _, f := range fields {
			msgs = append(msgs, f.Field+": "+f.Message)
		}
		return msgs
	}
	_, _, msg := apperror.MapToHTTPStatus(err)
	return []string{msg}
}

// normalizeEmail guarda o email em minúsculas; a unicidade não diferencia caixa.
func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func validateID(id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return apperror.NewValidationError("O ID do aluno deve ser um UUID válido.")
	}
	return nil
}
