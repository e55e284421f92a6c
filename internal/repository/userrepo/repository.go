package userrepo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq"

	"goescola/internal/domain"
	apperror "goescola/internal/errors"
	"goescola/internal/pkg/database"
	"goescola/internal/pkg/logger"
)

const constraintEmail = "users_email_key"

// selectUser agrega os papéis do usuário em um array.
const selectUser = `
	SELECT u.id, u.email, u.password_hash,
	       COALESCE(array_agg(ur.role ORDER BY ur.role) FILTER (WHERE ur.role IS NOT NULL), '{}'),
	       u.created_at, u.updated_at
	FROM users u
	LEFT JOIN user_roles ur ON ur.user_id = u.id`

// UserRepository persiste credenciais e seus papéis (tabelas users e user_roles).
type UserRepository struct {
	DB        *sql.DB
	DBTimeout time.Duration
	logger    logger.Logger
}

// NewUserRepository cria uma nova instância do UserRepository.
func NewUserRepository(db *sql.DB, dbTimeout time.Duration, logger logger.Logger) *UserRepository {
	return &UserRepository{DB: db, DBTimeout: dbTimeout, logger: logger}
}

// Save insere o usuário e seus papéis na mesma transação.
func (r *UserRepository) Save(ctx context.Context, user domain.User) (domain.User, error) {
	r.logger.Debug("Iniciando Save de usuário no repositório.", map[string]interface{}{"email": user.Email})

	ctx, cancel := context.WithTimeout(ctx, r.DBTimeout)
	defer cancel()

	err := database.WithTx(ctx, r.DB, func(tx *sql.Tx) error {
		const userSQL = `INSERT INTO users (id, email, password_hash, created_at, updated_at) VALUES ($1, $2, $3, $4, $5)`
		if _, err := tx.ExecContext(ctx, userSQL, user.ID, strings.ToLower(user.Email), user.PasswordHash, user.CreatedAt, user.UpdatedAt); err != nil {
			return err
		}
		const roleSQL = `INSERT INTO user_roles (user_id, role) VALUES ($1, $2)`
		for _, role := range user.Roles {
			if _, err := tx.ExecContext(ctx, roleSQL, user.ID, role); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		if database.IsUniqueViolation(err, constraintEmail) {
			r.logger.Warn("Usuário rejeitado por constraint.", map[string]interface{}{"constraint": database.ConstraintName(err)})
			return domain.User{}, apperror.NewConflictError("Já existe um usuário com este email!")
		}
		r.logger.Error("Falha ao inserir usuário no DB.", err)
		return domain.User{}, apperror.NewDBError("falha ao inserir usuário", err)
	}

	user.Email = strings.ToLower(user.Email)
	r.logger.Info("Usuário salvo com sucesso no repositório.", map[string]interface{}{"user_id": user.ID, "roles": user.Roles})
	return user, nil
}

// FindByEmail busca um usuário pelo email (sem diferenciar maiúsculas).
func (r *UserRepository) FindByEmail(ctx context.Context, email string) (domain.User, error) {
	ctx, cancel := context.WithTimeout(ctx, r.DBTimeout)
	defer cancel()

	query := selectUser + ` WHERE u.email = lower($1) GROUP BY u.id`

	var user domain.User
	var roles pq.StringArray
	err := r.DB.QueryRowContext(ctx, query, email).Scan(
		&user.ID,
		&user.Email,
		&user.PasswordHash,
		&roles,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.User{}, apperror.NewNotFoundError(fmt.Sprintf("Usuário com email '%s' não encontrado", email))
	}
	if err != nil {
		r.logger.Error("Falha ao buscar usuário por email no DB.", err)
		return domain.User{}, apperror.NewDBError("falha ao buscar usuário por email", err)
	}

	user.Roles = []string(roles)
	return user, nil
}

// UpdatePassword grava o novo hash de senha.
func (r *UserRepository) UpdatePassword(ctx context.Context, userID, passwordHash string, updatedAt time.Time) error {
	ctx, cancel := context.WithTimeout(ctx, r.DBTimeout)
	defer cancel()

	res, err := r.DB.ExecContext(ctx, `UPDATE users SET password_hash = $2, updated_at = $3 WHERE id = $1`, userID, passwordHash, updatedAt)
	if err != nil {
		return apperror.NewDBError("falha ao atualizar senha", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return apperror.NewDBError("falha ao atualizar senha", err)
	}
	if n == 0 {
		return apperror.NewNotFoundError(fmt.Sprintf("Usuário com ID %s não encontrado", userID))
	}
	return nil
}
