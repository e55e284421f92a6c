package classrepo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"goescola/internal/domain"
	apperror "goescola/internal/errors"
	"goescola/internal/pkg/database"
)

const constraintName = "classes_name_key"

// selectClass agrega a contagem de matrículas na leitura.
const selectClass = `
	SELECT c.id, c.name, c.description, COUNT(e.id) AS enrollment_count, c.created_at, c.updated_at
	FROM classes c
	LEFT JOIN enrollments e ON e.class_id = c.id`

// ClassRepository acessa a tabela classes.
type ClassRepository struct {
	DB        *sql.DB
	DBTimeout time.Duration
}

func NewClassRepository(db *sql.DB, dbTimeout time.Duration) *ClassRepository {
	return &ClassRepository{DB: db, DBTimeout: dbTimeout}
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanClass(row rowScanner) (domain.Class, error) {
	var c domain.Class
	err := row.Scan(&c.ID, &c.Name, &c.Description, &c.EnrollmentCount, &c.CreatedAt, &c.UpdatedAt)
	return c, err
}

func translateWriteError(msg string, err error) error {
	if database.IsUniqueViolation(err, constraintName) {
		return apperror.NewConflictError("Já existe uma turma com este nome.")
	}
	return apperror.NewDBError(msg, err)
}

// Save insere uma nova turma.
func (r *ClassRepository) Save(ctx context.Context, c domain.Class) (domain.Class, error) {
	ctx, cancel := context.WithTimeout(ctx, r.DBTimeout)
	defer cancel()

	const query = `INSERT INTO classes (id, name, description, created_at, updated_at) VALUES ($1, $2, $3, $4, $5)`
	if _, err := r.DB.ExecContext(ctx, query, c.ID, c.Name, c.Description, c.CreatedAt, c.UpdatedAt); err != nil {
		return domain.Class{}, translateWriteError("falha ao inserir turma", err)
	}
	c.EnrollmentCount = 0
	return c, nil
}

// FindByID busca a turma com a contagem de matrículas.
func (r *ClassRepository) FindByID(ctx context.Context, id string) (domain.Class, error) {
	ctx, cancel := context.WithTimeout(ctx, r.DBTimeout)
	defer cancel()

	query := selectClass + ` WHERE c.id = $1 GROUP BY c.id`
	c, err := scanClass(r.DB.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Class{}, apperror.NewNotFoundError(fmt.Sprintf("Turma com ID %s não existe.", id))
	}
	if err != nil {
		return domain.Class{}, apperror.NewDBError("falha ao buscar turma", err)
	}
	return c, nil
}

// ExistsByName informa se outra turma (diferente de excludeID) usa o nome.
func (r *ClassRepository) ExistsByName(ctx context.Context, name, excludeID string) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, r.DBTimeout)
	defer cancel()

	var exists bool
	var err error
	if excludeID == "" {
		err = r.DB.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM classes WHERE name = $1)`, name).Scan(&exists)
	} else {
		err = r.DB.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM classes WHERE name = $1 AND id <> $2)`, name, excludeID).Scan(&exists)
	}
	if err != nil {
		return false, apperror.NewDBError("falha ao verificar nome de turma", err)
	}
	return exists, nil
}

// List devolve uma página de turmas ordenada por nome e o total geral.
func (r *ClassRepository) List(ctx context.Context, page domain.PageRequest) ([]domain.Class, int, error) {
	ctx, cancel := context.WithTimeout(ctx, r.DBTimeout)
	defer cancel()

	var total int
	if err := r.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM classes`).Scan(&total); err != nil {
		return nil, 0, apperror.NewDBError("falha ao contar turmas", err)
	}

	limit, offset := database.Pagination(page.Page, page.Size)
	query := selectClass + ` GROUP BY c.id ORDER BY c.name, c.id LIMIT $1 OFFSET $2`

	rows, err := r.DB.QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, 0, apperror.NewDBError("falha ao listar turmas", err)
	}
	defer rows.Close()

	classes := make([]domain.Class, 0, page.Size)
	for rows.Next() {
		c, err := scanClass(rows)
		if err != nil {
			return nil, 0, apperror.NewDBError("falha ao ler turma", err)
		}
		classes = append(classes, c)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, apperror.NewDBError("falha ao iterar turmas", err)
	}
	return classes, total, nil
}

// Update altera nome e descrição. NotFoundError se a turma não existir.
func (r *ClassRepository) Update(ctx context.Context, c domain.Class) error {
	ctx, cancel := context.WithTimeout(ctx, r.DBTimeout)
	defer cancel()

	const query = `UPDATE classes SET name = $2, description = $3, updated_at = $4 WHERE id = $1`
	res, err := r.DB.ExecContext(ctx, query, c.ID, c.Name, c.Description, c.UpdatedAt)
	if err != nil {
		return translateWriteError("falha ao atualizar turma", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return apperror.NewDBError("falha ao atualizar turma", err)
	}
	if n == 0 {
		return apperror.NewNotFoundError(fmt.Sprintf("Turma com ID %s não existe.", c.ID))
	}
	return nil
}

// Delete remove a turma e, por cascata, suas matrículas. Devolve false se não existia.
func (r *ClassRepository) Delete(ctx context.Context, id string) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, r.DBTimeout)
	defer cancel()

	res, err := r.DB.ExecContext(ctx, `DELETE FROM classes WHERE id = $1`, id)
	if err != nil {
		return false, apperror.NewDBError("falha ao remover turma", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, apperror.NewDBError("falha ao remover turma", err)
	}
	return n > 0, nil
}
