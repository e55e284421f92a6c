package enrollmentservice

import (
	"context"

	"github.com/google/uuid"

	"goescola/internal/domain"
	apperror "goescola/internal/errors"
	"goescola/internal/pkg/logger"
	"goescola/internal/pkg/validation"
)

// EnrollmentRepository define o contrato que o Serviço de Matrículas espera da camada de Persistência.
type EnrollmentRepository interface {
	Save(ctx context.Context, enrollment domain.Enrollment) error
	FindByID(ctx context.Context, id string) (domain.EnrollmentDetail, error)
	IsStudentEnrolled(ctx context.Context, studentID, classID string) (bool, error)
	Update(ctx context.Context, enrollment domain.Enrollment) error
	Delete(ctx context.Context, id string) (bool, error)
	List(ctx context.Context, filter domain.EnrollmentFilter) ([]domain.EnrollmentDetail, int, error)
}

// StudentFinder é o recorte do repositório de alunos usado na matrícula.
type StudentFinder interface {
	FindByID(ctx context.Context, id string) (domain.Student, error)
}

// ClassFinder é o recorte do repositório de turmas usado na matrícula.
type ClassFinder interface {
	FindByID(ctx context.Context, id string) (domain.Class, error)
}

// Service implementa as regras de matrícula.
type Service struct {
	repo        EnrollmentRepository
	students    StudentFinder
	classes     ClassFinder
	validator   validation.Validator
	logger      logger.Logger
	maxPageSize int
}

// NewService cria e retorna uma nova instância do Serviço de Matrículas.
func NewService(repo EnrollmentRepository, students StudentFinder, classes ClassFinder, v validation.Validator, log logger.Logger, maxPageSize int) *Service {
	return &Service{
		repo:        repo,
		students:    students,
		classes:     classes,
		validator:   v,
		logger:      log,
		maxPageSize: maxPageSize,
	}
}

// AddEnrollment matricula um aluno em uma turma.
// Aluno e turma devem existir e o par não pode estar matriculado.
func (s *Service) AddEnrollment(ctx context.Context, in domain.EnrollmentInput) (domain.EnrollmentDetail, error) {
	s.logger.Debug("Iniciando matrícula no serviço.", map[string]interface{}{"student_id": in.StudentID, "class_id": in.ClassID})

	if err := s.validator.Struct(in); err != nil {
		s.logger.Warn("Falha na validação da matrícula.", map[string]interface{}{"error": err.Error()})
		return domain.EnrollmentDetail{}, err
	}

	student, class, err := s.loadParticipants(ctx, in.StudentID, in.ClassID)
	if err != nil {
		return domain.EnrollmentDetail{}, err
	}

	enrolled, err := s.repo.IsStudentEnrolled(ctx, in.StudentID, in.ClassID)
	if err != nil {
		s.logger.Error("Falha ao verificar matrícula existente.", err)
		return domain.EnrollmentDetail{}, err
	}
	if enrolled {
		s.logger.Info("Matrícula duplicada rejeitada.", map[string]interface{}{"student_id": in.StudentID, "class_id": in.ClassID})
		return domain.EnrollmentDetail{}, apperror.NewConflictError(domain.MsgAlreadyEnrolled)
	}

	enrollment := domain.Enrollment{
		ID:             uuid.NewString(),
		StudentID:      in.StudentID,
		ClassID:        in.ClassID,
		EnrollmentDate: in.EnrollmentDate,
	}

	// O índice único (student_id, class_id) resolve corridas entre a checagem e o INSERT.
	if err := s.repo.Save(ctx, enrollment); err != nil {
		s.logger.Warn("Falha ao persistir matrícula.", map[string]interface{}{"error": err.Error()})
		return domain.EnrollmentDetail{}, err
	}

	class.EnrollmentCount++
	s.logger.Info("Matrícula criada com sucesso.", map[string]interface{}{"id": enrollment.ID})
	return domain.EnrollmentDetail{
		ID:             enrollment.ID,
		Student:        student,
		Class:          class,
		EnrollmentDate: enrollment.EnrollmentDate,
	}, nil
}

// UpdateEnrollment altera aluno, turma ou data de uma matrícula existente,
// repetindo as verificações de existência e de duplicidade da criação.
func (s *Service) UpdateEnrollment(ctx context.Context, id string, in domain.EnrollmentInput) (domain.EnrollmentDetail, error) {
	s.logger.Debug("Iniciando atualização de matrícula no serviço.", map[string]interface{}{"id": id})

	if err := validateID(id); err != nil {
		return domain.EnrollmentDetail{}, err
	}
	if err := s.validator.Struct(in); err != nil {
		s.logger.Warn("Falha na validação da matrícula para atualização.", map[string]interface{}{"error": err.Error()})
		return domain.EnrollmentDetail{}, err
	}

	current, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return domain.EnrollmentDetail{}, err
	}

	student, class, err := s.loadParticipants(ctx, in.StudentID, in.ClassID)
	if err != nil {
		return domain.EnrollmentDetail{}, err
	}

	if current.Student.ID != in.StudentID || current.Class.ID != in.ClassID {
		enrolled, err := s.repo.IsStudentEnrolled(ctx, in.StudentID, in.ClassID)
		if err != nil {
			s.logger.Error("Falha ao verificar matrícula existente.", err)
			return domain.EnrollmentDetail{}, err
		}
		if enrolled {
			return domain.EnrollmentDetail{}, apperror.NewConflictError(domain.MsgAlreadyEnrolled)
		}
	}

	enrollment := domain.Enrollment{
		ID:             id,
		StudentID:      in.StudentID,
		ClassID:        in.ClassID,
		EnrollmentDate: in.EnrollmentDate,
	}
	if err := s.repo.Update(ctx, enrollment); err != nil {
		s.logger.Warn("Falha ao atualizar matrícula.", map[string]interface{}{"id": id, "error": err.Error()})
		return domain.EnrollmentDetail{}, err
	}

	if current.Class.ID != in.ClassID {
		class.EnrollmentCount++
	}

	s.logger.Info("Matrícula atualizada com sucesso.", map[string]interface{}{"id": id})
	return domain.EnrollmentDetail{
		ID:             id,
		Student:        student,
		Class:          class,
		EnrollmentDate: enrollment.EnrollmentDate,
	}, nil
}

// DeleteEnrollment remove a matrícula. Devolve false, sem erro, se ela não existir.
func (s *Service) DeleteEnrollment(ctx context.Context, id string) (bool, error) {
	s.logger.Debug("Iniciando exclusão de matrícula no serviço.", map[string]interface{}{"id": id})

	if err := validateID(id); err != nil {
		return false, err
	}

	deleted, err := s.repo.Delete(ctx, id)
	if err != nil {
		s.logger.Error("Falha ao remover matrícula no repositório.", err)
		return false, err
	}

	s.logger.Info("Exclusão de matrícula processada.", map[string]interface{}{"id": id, "deleted": deleted})
	return deleted, nil
}

// GetEnrollment devolve a visão completa de uma matrícula.
func (s *Service) GetEnrollment(ctx context.Context, id string) (domain.EnrollmentDetail, error) {
	if err := validateID(id); err != nil {
		return domain.EnrollmentDetail{}, err
	}
	return s.repo.FindByID(ctx, id)
}

// ListEnrollments lista todas as matrículas, ordenadas por aluno e turma.
func (s *Service) ListEnrollments(ctx context.Context, page domain.PageRequest) (domain.PagedResult[domain.EnrollmentDetail], error) {
	return s.list(ctx, domain.EnrollmentFilter{PageRequest: page})
}

// ListByStudent lista as matrículas de um aluno, ordenadas pelo nome da turma.
func (s *Service) ListByStudent(ctx context.Context, studentID string, page domain.PageRequest) (domain.PagedResult[domain.EnrollmentDetail], error) {
	if err := validateID(studentID); err != nil {
		return domain.PagedResult[domain.EnrollmentDetail]{}, err
	}
	return s.list(ctx, domain.EnrollmentFilter{StudentID: studentID, PageRequest: page})
}

// ListByClass lista as matrículas de uma turma, ordenadas pelo nome do aluno.
func (s *Service) ListByClass(ctx context.Context, classID string, page domain.PageRequest) (domain.PagedResult[domain.EnrollmentDetail], error) {
	if err := validateID(classID); err != nil {
		return domain.PagedResult[domain.EnrollmentDetail]{}, err
	}
	return s.list(ctx, domain.EnrollmentFilter{ClassID: classID, PageRequest: page})
}

func (s *Service) list(ctx context.Context, filter domain.EnrollmentFilter) (domain.PagedResult[domain.EnrollmentDetail], error) {
	filter.PageRequest = filter.PageRequest.Normalize(s.maxPageSize)

	items, total, err := s.repo.List(ctx, filter)
	if err != nil {
		s.logger.Error("Falha ao listar matrículas no repositório.", err)
		return domain.PagedResult[domain.EnrollmentDetail]{}, err
	}

	return domain.NewPagedResult(items, total, filter.PageRequest), nil
}

// loadParticipants busca aluno e turma, traduzindo ausência nas mensagens de matrícula.
func (s *Service) loadParticipants(ctx context.Context, studentID, classID string) (domain.Student, domain.Class, error) {
	student, err := s.students.FindByID(ctx, studentID)
	if err != nil {
		if apperror.IsNotFound(err) {
			s.logger.Info("Matrícula rejeitada: aluno inexistente.", map[string]interface{}{"student_id": studentID})
			return domain.Student{}, domain.Class{}, apperror.NewNotFoundError(domain.MsgEnrollmentStudentNotFound)
		}
		return domain.Student{}, domain.Class{}, err
	}

	class, err := s.classes.FindByID(ctx, classID)
	if err != nil {
		if apperror.IsNotFound(err) {
			s.logger.Info("Matrícula rejeitada: turma inexistente.", map[string]interface{}{"class_id": classID})
			return domain.Student{}, domain.Class{}, apperror.NewNotFoundError(domain.MsgEnrollmentClassNotFound)
		}
		return domain.Student{}, domain.Class{}, err
	}

	return student, class, nil
}

func validateID(id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return apperror.NewValidationError("O ID informado deve ser um UUID válido.")
	}
	return nil
}
