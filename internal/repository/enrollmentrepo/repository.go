package enrollmentrepo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"goescola/internal/domain"
	apperror "goescola/internal/errors"
	"goescola/internal/pkg/database"
)

// Nomes das constraints definidas em sql/00001_init.sql.
const (
	constraintPair      = "enrollments_student_class_key"
	constraintStudentFK = "enrollments_student_id_fkey"
	constraintClassFK   = "enrollments_class_id_fkey"
)

// selectDetail monta a visão completa: matrícula, aluno e turma (com contagem).
const selectDetail = `
	SELECT e.id, e.enrollment_date,
	       s.id, s.name, s.cpf, s.email, s.birth_date, s.created_at, s.updated_at,
	       c.id, c.name, c.description,
	       (SELECT COUNT(*) FROM enrollments ce WHERE ce.class_id = c.id),
	       c.created_at, c.updated_at
	FROM enrollments e
	JOIN students s ON s.id = e.student_id
	JOIN classes c ON c.id = e.class_id`

// EnrollmentRepository acessa a tabela enrollments.
type EnrollmentRepository struct {
	DB        *sql.DB
	DBTimeout time.Duration
}

func NewEnrollmentRepository(db *sql.DB, dbTimeout time.Duration) *EnrollmentRepository {
	return &EnrollmentRepository{DB: db, DBTimeout: dbTimeout}
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanDetail(row rowScanner) (domain.EnrollmentDetail, error) {
	var d domain.EnrollmentDetail
	err := row.Scan(
		&d.ID, &d.EnrollmentDate,
		&d.Student.ID, &d.Student.Name, &d.Student.CPF, &d.Student.Email, &d.Student.BirthDate,
		&d.Student.CreatedAt, &d.Student.UpdatedAt,
		&d.Class.ID, &d.Class.Name, &d.Class.Description, &d.Class.EnrollmentCount,
		&d.Class.CreatedAt, &d.Class.UpdatedAt,
	)
	return d, err
}

// translateWriteError converte as violações de constraint no erro de domínio
// correspondente. O índice único do par é o árbitro final contra duplicidade.
func translateWriteError(msg string, err error) error {
	switch {
	case database.IsUniqueViolation(err, constraintPair):
		return apperror.NewConflictError(domain.MsgAlreadyEnrolled)
	case database.IsForeignKeyViolation(err, constraintStudentFK):
		return apperror.NewNotFoundError(domain.MsgEnrollmentStudentNotFound)
	case database.IsForeignKeyViolation(err, constraintClassFK):
		return apperror.NewNotFoundError(domain.MsgEnrollmentClassNotFound)
	}
	return apperror.NewDBError(msg, err)
}

// Save persiste uma nova matrícula.
func (r *EnrollmentRepository) Save(ctx context.Context, e domain.Enrollment) error {
	ctx, cancel := context.WithTimeout(ctx, r.DBTimeout)
	defer cancel()

	const query = `INSERT INTO enrollments (id, student_id, class_id, enrollment_date) VALUES ($1, $2, $3, $4)`
	if _, err := r.DB.ExecContext(ctx, query, e.ID, e.StudentID, e.ClassID, e.EnrollmentDate); err != nil {
		return translateWriteError("falha ao inserir matrícula", err)
	}
	return nil
}

// FindByID devolve a visão completa da matrícula.
func (r *EnrollmentRepository) FindByID(ctx context.Context, id string) (domain.EnrollmentDetail, error) {
	ctx, cancel := context.WithTimeout(ctx, r.DBTimeout)
	defer cancel()

	d, err := scanDetail(r.DB.QueryRowContext(ctx, selectDetail+` WHERE e.id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return domain.EnrollmentDetail{}, apperror.NewNotFoundError(fmt.Sprintf("Matrícula com ID %s não existe.", id))
	}
	if err != nil {
		return domain.EnrollmentDetail{}, apperror.NewDBError("falha ao buscar matrícula", err)
	}
	return d, nil
}

// IsStudentEnrolled consulta o índice (student_id, class_id).
func (r *EnrollmentRepository) IsStudentEnrolled(ctx context.Context, studentID, classID string) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, r.DBTimeout)
	defer cancel()

	var exists bool
	const query = `SELECT EXISTS(SELECT 1 FROM enrollments WHERE student_id = $1 AND class_id = $2)`
	if err := r.DB.QueryRowContext(ctx, query, studentID, classID).Scan(&exists); err != nil {
		return false, apperror.NewDBError("falha ao verificar matrícula", err)
	}
	return exists, nil
}

// Update altera aluno, turma e data. NotFoundError se a matrícula não existir.
func (r *EnrollmentRepository) Update(ctx context.Context, e domain.Enrollment) error {
	ctx, cancel := context.WithTimeout(ctx, r.DBTimeout)
	defer cancel()

	const query = `UPDATE enrollments SET student_id = $2, class_id = $3, enrollment_date = $4 WHERE id = $1`
	res, err := r.DB.ExecContext(ctx, query, e.ID, e.StudentID, e.ClassID, e.EnrollmentDate)
	if err != nil {
		return translateWriteError("falha ao atualizar matrícula", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return apperror.NewDBError("falha ao atualizar matrícula", err)
	}
	if n == 0 {
		return apperror.NewNotFoundError(fmt.Sprintf("Matrícula com ID %s não existe.", e.ID))
	}
	return nil
}

// Delete remove a matrícula. Devolve false se ela não existia.
func (r *EnrollmentRepository) Delete(ctx context.Context, id string) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, r.DBTimeout)
	defer cancel()

	res, err := r.DB.ExecContext(ctx, `DELETE FROM enrollments WHERE id = $1`, id)
	if err != nil {
		return false, apperror.NewDBError("falha ao remover matrícula", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, apperror.NewDBError("falha ao remover matrícula", err)
	}
	return n > 0, nil
}

// List devolve uma página de matrículas e o total que satisfaz o filtro.
// Ordenação: por aluno → nome da turma; por turma → nome do aluno;
// sem filtro → nome do aluno e depois da turma.
func (r *EnrollmentRepository) List(ctx context.Context, filter domain.EnrollmentFilter) ([]domain.EnrollmentDetail, int, error) {
	ctx, cancel := context.WithTimeout(ctx, r.DBTimeout)
	defer cancel()

	var (
		conds   []string
		args    []interface{}
		orderBy = "s.name, c.name"
	)
	if filter.StudentID != "" {
		args = append(args, filter.StudentID)
		conds = append(conds, fmt.Sprintf("e.student_id = $%d", len(args)))
		orderBy = "c.name"
	}
	if filter.ClassID != "" {
		args = append(args, filter.ClassID)
		conds = append(conds, fmt.Sprintf("e.class_id = $%d", len(args)))
		orderBy = "s.name"
	}

	where := ""
	if len(conds) > 0 {
		where = " WHERE " + strings.Join(conds, " AND ")
	}

	var total int
	if err := r.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM enrollments e`+where, args...).Scan(&total); err != nil {
		return nil, 0, apperror.NewDBError("falha ao contar matrículas", err)
	}

	limit, offset := database.Pagination(filter.Page, filter.Size)
	query := fmt.Sprintf(`%s%s ORDER BY %s, e.id LIMIT $%d OFFSET $%d`, selectDetail, where, orderBy, len(args)+1, len(args)+2)
	args = append(args, limit, offset)

	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, apperror.NewDBError("falha ao listar matrículas", err)
	}
	defer rows.Close()

	items := make([]domain.EnrollmentDetail, 0, filter.Size)
	for rows.Next() {
		d, err := scanDetail(rows)
		if err != nil {
			return nil, 0, apperror.NewDBError("falha ao ler matrícula", err)
		}
		items = append(items, d)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, apperror.NewDBError("falha ao iterar matrículas", err)
	}
	return items, total, nil
}
