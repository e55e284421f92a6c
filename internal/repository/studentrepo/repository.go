package studentrepo

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"goescola/internal/domain"
	apperror "goescola/internal/errors"
	"goescola/internal/pkg/cache"
	"goescola/internal/pkg/database"
	"goescola/internal/pkg/logger"
)

// Nomes das constraints definidas em sql/00001_init.sql.
const (
	constraintCPF   = "students_cpf_key"
	constraintEmail = "students_email_key"
)

const studentCacheKey = "student:%s"

const studentColumns = `id, name, cpf, email, birth_date, created_at, updated_at`

// StudentRepository acessa a tabela students, com cache-aside em FindByID.
type StudentRepository struct {
	DB        *sql.DB
	Cache     cache.Client // opcional
	CacheTTL  time.Duration
	DBTimeout time.Duration
	Logger    logger.Logger
}

// NewStudentRepository cria o repositório. cacheClient pode ser nil.
func NewStudentRepository(db *sql.DB, cacheClient cache.Client, cacheTTL, dbTimeout time.Duration, log logger.Logger) *StudentRepository {
	return &StudentRepository{
		DB:        db,
		Cache:     cacheClient,
		CacheTTL:  cacheTTL,
		DBTimeout: dbTimeout,
		Logger:    log,
	}
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanStudent(row rowScanner) (domain.Student, error) {
	var s domain.Student
	err := row.Scan(&s.ID, &s.Name, &s.CPF, &s.Email, &s.BirthDate, &s.CreatedAt, &s.UpdatedAt)
	return s, err
}

// translateWriteError registra a constraint violada e converte os conflitos em ConflictError.
func (r *StudentRepository) translateWriteError(msg string, err error) error {
	if name := database.ConstraintName(err); name != "" {
		r.Logger.Warn("Escrita de aluno rejeitada por constraint.", map[string]interface{}{"constraint": name})
	}
	switch {
	case database.IsUniqueViolation(err, constraintCPF):
		return apperror.NewConflictError("Já existe um aluno cadastrado com este CPF.")
	case database.IsUniqueViolation(err, constraintEmail):
		return apperror.NewConflictError("Já existe um aluno cadastrado com este email.")
	}
	return apperror.NewDBError(msg, err)
}

// Save insere um novo aluno. Violações de CPF ou email únicos viram ConflictError.
func (r *StudentRepository) Save(ctx context.Context, s domain.Student) (domain.Student, error) {
	ctx, cancel := context.WithTimeout(ctx, r.DBTimeout)
	defer cancel()

	const query = `INSERT INTO students (id, name, cpf, email, birth_date, created_at, updated_at)
                   VALUES ($1, $2, $3, $4, $5, $6, $7)`

	_, err := r.DB.ExecContext(ctx, query, s.ID, s.Name, s.CPF, s.Email, s.BirthDate, s.CreatedAt, s.UpdatedAt)
	if err != nil {
		return domain.Student{}, r.translateWriteError("falha ao inserir aluno", err)
	}
	return s, nil
}

// FindByID busca um aluno pelo ID, consultando o cache antes do banco.
func (r *StudentRepository) FindByID(ctx context.Context, id string) (domain.Student, error) {
	ctx, cancel := context.WithTimeout(ctx, r.DBTimeout)
	defer cancel()

	key := fmt.Sprintf(studentCacheKey, id)
	if s, ok := r.fromCache(ctx, key); ok {
		return s, nil
	}

	query := `SELECT ` + studentColumns + ` FROM students WHERE id = $1`
	s, err := scanStudent(r.DB.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Student{}, apperror.NewNotFoundError(fmt.Sprintf("Aluno com ID %s não existe.", id))
	}
	if err != nil {
		return domain.Student{}, apperror.NewDBError("falha ao buscar aluno", err)
	}

	r.toCache(ctx, key, s)
	return s, nil
}

// ExistsByCPF informa se já há aluno com o CPF (somente dígitos).
func (r *StudentRepository) ExistsByCPF(ctx context.Context, cpf string) (bool, error) {
	return r.exists(ctx, `SELECT EXISTS(SELECT 1 FROM students WHERE cpf = $1)`, cpf)
}

// ExistsByEmail informa se outro aluno (diferente de excludeID) usa o email.
func (r *StudentRepository) ExistsByEmail(ctx context.Context, email, excludeID string) (bool, error) {
	if excludeID == "" {
		return r.exists(ctx, `SELECT EXISTS(SELECT 1 FROM students WHERE lower(email) = lower($1))`, email)
	}
	return r.exists(ctx, `SELECT EXISTS(SELECT 1 FROM students WHERE lower(email) = lower($1) AND id <> $2)`, email, excludeID)
}

func (r *StudentRepository) exists(ctx context.Context, query string, args ...interface{}) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, r.DBTimeout)
	defer cancel()

	var exists bool
	if err := r.DB.QueryRowContext(ctx, query, args...).Scan(&exists); err != nil {
		return false, apperror.NewDBError("falha ao verificar existência de aluno", err)
	}
	return exists, nil
}

// List devolve uma página de alunos ordenada por nome e o total geral.
func (r *StudentRepository) List(ctx context.Context, page domain.PageRequest) ([]domain.Student, int, error) {
	return r.page(ctx, "", page)
}

// SearchByName busca alunos cujo nome contém term, sem diferenciar maiúsculas.
func (r *StudentRepository) SearchByName(ctx context.Context, term string, page domain.PageRequest) ([]domain.Student, int, error) {
	return r.page(ctx, term, page)
}

func (r *StudentRepository) page(ctx context.Context, term string, page domain.PageRequest) ([]domain.Student, int, error) {
	ctx, cancel := context.WithTimeout(ctx, r.DBTimeout)
	defer cancel()

	where := ""
	args := []interface{}{}
	if term != "" {
		where = ` WHERE name ILIKE $1`
		args = append(args, "%"+escapeLike(term)+"%")
	}

	var total int
	if err := r.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM students`+where, args...).Scan(&total); err != nil {
		return nil, 0, apperror.NewDBError("falha ao contar alunos", err)
	}

	limit, offset := database.Pagination(page.Page, page.Size)
	query := fmt.Sprintf(`SELECT %s FROM students%s ORDER BY name, id LIMIT $%d OFFSET $%d`,
		studentColumns, where, len(args)+1, len(args)+2)
	args = append(args, limit, offset)

	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, apperror.NewDBError("falha ao listar alunos", err)
	}
	defer rows.Close()

	students := make([]domain.Student, 0, page.Size)
	for rows.Next() {
		s, err := scanStudent(rows)
		if err != nil {
			return nil, 0, apperror.NewDBError("falha ao ler aluno", err)
		}
		students = append(students, s)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, apperror.NewDBError("falha ao iterar alunos", err)
	}

	return students, total, nil
}

// Update altera nome, email e data de nascimento e invalida o cache.
func (r *StudentRepository) Update(ctx context.Context, s domain.Student) (domain.Student, error) {
	ctx, cancel := context.WithTimeout(ctx, r.DBTimeout)
	defer cancel()

	query := `UPDATE students SET name = $2, email = $3, birth_date = $4, updated_at = $5
              WHERE id = $1 RETURNING ` + studentColumns

	updated, err := scanStudent(r.DB.QueryRowContext(ctx, query, s.ID, s.Name, s.Email, s.BirthDate, s.UpdatedAt))
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Student{}, apperror.NewNotFoundError(fmt.Sprintf("Aluno com ID %s não existe.", s.ID))
	}
	if err != nil {
		return domain.Student{}, r.translateWriteError("falha ao atualizar aluno", err)
	}

	r.evict(ctx, s.ID)
	return updated, nil
}

// Delete remove o aluno (e, por cascata, suas matrículas). Devolve false se não existia.
func (r *StudentRepository) Delete(ctx context.Context, id string) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, r.DBTimeout)
	defer cancel()

	res, err := r.DB.ExecContext(ctx, `DELETE FROM students WHERE id = $1`, id)
	if err != nil {
		return false, apperror.NewDBError("falha ao remover aluno", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, apperror.NewDBError("falha ao remover aluno", err)
	}

	r.evict(ctx, id)
	return n > 0, nil
}

// --- cache-aside ---
// Falhas de cache nunca interrompem a requisição.

func (r *StudentRepository) fromCache(ctx context.Context, key string) (domain.Student, bool) {
	if r.Cache == nil {
		return domain.Student{}, false
	}
	data, err := r.Cache.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, cache.ErrCacheMiss) {
			r.Logger.Warn("Falha ao ler aluno do cache.", map[string]interface{}{"key": key, "error": err.Error()})
		}
		return domain.Student{}, false
	}
	var s domain.Student
	if err := json.Unmarshal([]byte(data), &s); err != nil {
		return domain.Student{}, false
	}
	return s, true
}

func (r *StudentRepository) toCache(ctx context.Context, key string, s domain.Student) {
	if r.Cache == nil {
		return
	}
	data, err := json.Marshal(s)
	if err != nil {
		return
	}
	if err := r.Cache.Set(ctx, key, data, r.CacheTTL); err != nil {
		r.Logger.Warn("Falha ao gravar aluno no cache.", map[string]interface{}{"key": key, "error": err.Error()})
	}
}

func (r *StudentRepository) evict(ctx context.Context, id string) {
	if r.Cache == nil {
		return
	}
	if err := r.Cache.Delete(ctx, fmt.Sprintf(studentCacheKey, id)); err != nil {
		r.Logger.Warn("Falha ao invalidar aluno no cache.", map[string]interface{}{"id": id, "error": err.Error()})
	}
}

// escapeLike neutraliza os curingas do ILIKE no termo digitado pelo usuário.
func escapeLike(s string) string {
	out := make([]rune, 0, len(s))
	for _, c := range s {
		if c == '%' || c == '_' || c == '\\' {
			out = append(out, '\\')
		}
		out = append(out, c)
	}
	return string(out)
}
