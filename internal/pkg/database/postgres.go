package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"
)

// Códigos SQLSTATE do PostgreSQL tratados pelos repositórios.
const (
	uniqueViolation     = "23505"
	foreignKeyViolation = "23503"
)

// PoolConfig agrupa os parâmetros do pool de conexões.
type PoolConfig struct {
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
}

// DefaultPoolConfig: 25 conexões abertas, 10 ociosas, vida máxima de 5 minutos.
var DefaultPoolConfig = PoolConfig{
	MaxOpenConns:    25,
	MaxIdleConns:    10,
	ConnMaxLifetime: 5 * time.Minute,
	ConnMaxIdleTime: 2 * time.Minute,
}

// NewPostgresDB abre o pool de conexões com o PostgreSQL e verifica o acesso com um ping.
func NewPostgresDB(ctx context.Context, dataSourceName string, pool PoolConfig) (*sql.DB, error) {
	db, err := sql.Open("postgres", dataSourceName)
	if err != nil {
		return nil, fmt.Errorf("falha ao abrir a conexão com o DB: %w", err)
	}

	db.SetMaxOpenConns(pool.MaxOpenConns)
	db.SetMaxIdleConns(pool.MaxIdleConns)
	db.SetConnMaxLifetime(pool.ConnMaxLifetime)
	db.SetConnMaxIdleTime(pool.ConnMaxIdleTime)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("falha ao realizar o ping inicial no DB: %w", err)
	}

	return db, nil
}

// IsUniqueViolation informa se o erro é uma violação de índice único.
// Quando constraint não é vazio, exige também o nome da constraint.
func IsUniqueViolation(err error, constraint string) bool {
	return hasCode(err, uniqueViolation, constraint)
}

// IsForeignKeyViolation informa se o erro é uma violação de chave estrangeira.
func IsForeignKeyViolation(err error, constraint string) bool {
	return hasCode(err, foreignKeyViolation, constraint)
}

// ConstraintName devolve o nome da constraint violada, se houver.
func ConstraintName(err error) string {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Constraint
	}
	return ""
}

func hasCode(err error, code, constraint string) bool {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return false
	}
	if string(pqErr.Code) != code {
		return false
	}
	return constraint == "" || pqErr.Constraint == constraint
}

// WithTx executa fn dentro de uma transação, com rollback em caso de erro.
func WithTx(ctx context.Context, db *sql.DB, fn func(tx *sql.Tx) error) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

// Pagination converte página e tamanho (já normalizados) em LIMIT e OFFSET.
func Pagination(page, size int) (limit, offset int) {
	return size, (page - 1) * size
}
