package classservice

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"goescola/internal/domain"
	apperror "goescola/internal/errors"
	"goescola/internal/pkg/logger"
	"goescola/internal/pkg/validation"
)

// ClassRepository define o contrato que o Serviço de Turmas espera da camada de Persistência.
type ClassRepository interface {
	Save(ctx context.Context, class domain.Class) (domain.Class, error)
	FindByID(ctx context.Context, id string) (domain.Class, error)
	ExistsByName(ctx context.Context, name, excludeID string) (bool, error)
	List(ctx context.Context, page domain.PageRequest) ([]domain.Class, int, error)
	Update(ctx context.Context, class domain.Class) error
	Delete(ctx context.Context, id string) (bool, error)
}

// Service implementa as regras de turmas.
type Service struct {
	repo        ClassRepository
	validator   validation.Validator
	logger      logger.Logger
	maxPageSize int
}

// NewService cria e retorna uma nova instância do Serviço de Turmas.
func NewService(repo ClassRepository, v validation.Validator, log logger.Logger, maxPageSize int) *Service {
	return &Service{repo: repo, validator: v, logger: log, maxPageSize: maxPageSize}
}

const msgDuplicateName = "Já existe uma turma com este nome."

// CreateClass cadastra uma turma com nome único.
func (s *Service) CreateClass(ctx context.Context, in domain.ClassInput) (domain.Class, error) {
	s.logger.Debug("Iniciando criação de turma no serviço.", map[string]interface{}{"name": in.Name})

	in = trim(in)
	if err := s.validator.Struct(in); err != nil {
		s.logger.Warn("Falha na validação da turma.", map[string]interface{}{"name": in.Name, "error": err.Error()})
		return domain.Class{}, err
	}

	exists, err := s.repo.ExistsByName(ctx, in.Name, "")
	if err != nil {
		return domain.Class{}, err
	}
	if exists {
		return domain.Class{}, apperror.NewConflictError(msgDuplicateName)
	}

	now := time.Now().UTC()
	created, err := s.repo.Save(ctx, domain.Class{
		ID:          uuid.NewString(),
		Name:        in.Name,
		Description: in.Description,
		CreatedAt:   now,
		UpdatedAt:   now,
	})
	if err != nil {
		s.logger.Warn("Falha ao persistir turma.", map[string]interface{}{"error": err.Error()})
		return domain.Class{}, err
	}

	s.logger.Info("Turma criada com sucesso.", map[string]interface{}{"id": created.ID, "name": created.Name})
	return created, nil
}

// GetClass busca uma turma pelo ID, com a contagem de matrículas.
func (s *Service) GetClass(ctx context.Context, id string) (domain.Class, error) {
	if err := validateID(id); err != nil {
		return domain.Class{}, err
	}
	return s.repo.FindByID(ctx, id)
}

// ListClasses lista as turmas em ordem alfabética.
func (s *Service) ListClasses(ctx context.Context, page domain.PageRequest) (domain.PagedResult[domain.Class], error) {
	page = page.Normalize(s.maxPageSize)

	items, total, err := s.repo.List(ctx, page)
	if err != nil {
		s.logger.Error("Falha ao listar turmas no repositório.", err)
		return domain.PagedResult[domain.Class]{}, err
	}
	return domain.NewPagedResult(items, total, page), nil
}

// UpdateClass altera nome e descrição, checando a unicidade quando o nome muda.
func (s *Service) UpdateClass(ctx context.Context, id string, in domain.ClassInput) (domain.Class, error) {
	s.logger.Debug("Iniciando atualização de turma no serviço.", map[string]interface{}{"id": id})

	if err := validateID(id); err != nil {
		return domain.Class{}, err
	}
	in = trim(in)
	if err := s.validator.Struct(in); err != nil {
		s.logger.Warn("Falha na validação da turma para atualização.", map[string]interface{}{"error": err.Error()})
		return domain.Class{}, err
	}

	current, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return domain.Class{}, err
	}

	if current.Name != in.Name {
		exists, err := s.repo.ExistsByName(ctx, in.Name, id)
		if err != nil {
			return domain.Class{}, err
		}
		if exists {
			return domain.Class{}, apperror.NewConflictError(msgDuplicateName)
		}
	}

	current.Name = in.Name
	current.Description = in.Description
	current.UpdatedAt = time.Now().UTC()

	if err := s.repo.Update(ctx, current); err != nil {
		s.logger.Warn("Falha ao atualizar turma.", map[string]interface{}{"id": id, "error": err.Error()})
		return domain.Class{}, err
	}

	s.logger.Info("Turma atualizada com sucesso.", map[string]interface{}{"id": id})
	return current, nil
}

// DeleteClass remove a turma e suas matrículas. Devolve false se ela não existir.
func (s *Service) DeleteClass(ctx context.Context, id string) (bool, error) {
	if err := validateID(id); err != nil {
		return false, err
	}

	deleted, err := s.repo.Delete(ctx, id)
	if err != nil {
		s.logger.Error("Falha ao remover turma no repositório.", err)
		return false, err
	}

	s.logger.Info("Exclusão de turma processada.", map[string]interface{}{"id": id, "deleted": deleted})
	return deleted, nil
}

func trim(in domain.ClassInput) domain.ClassInput {
	in.Name = strings.TrimSpace(in.Name)
	in.Description = strings.TrimSpace(in.Description)
	return in
}

func validateID(id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return apperror.NewValidationError("O ID da turma deve ser um UUID válido.")
	}
	return nil
}
