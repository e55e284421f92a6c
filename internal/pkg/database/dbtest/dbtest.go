// Package dbtest prepara um PostgreSQL real para os testes de integração dos repositórios.
//
// Os testes só rodam com INTEGRATION_TESTS=1. A conexão vem de TEST_DATABASE_URL
// (ou DATABASE_URL). Cada pacote usa um schema próprio, recriado e migrado com goose,
// para que `go test ./...` possa rodar os pacotes em paralelo.
package dbtest

import (
	"context"
	"database/sql"
	"net/url"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/pressly/goose/v3"
	"github.com/stretchr/testify/require"

	"goescola/internal/pkg/database"
)

// Open devolve um pool ligado ao schema informado, já migrado.
// Pula o teste quando INTEGRATION_TESTS != "1".
func Open(t *testing.T, schema string) *sql.DB {
	t.Helper()
	if os.Getenv("INTEGRATION_TESTS") != "1" {
		t.Skip("defina INTEGRATION_TESTS=1 para rodar")
	}

	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		dsn = os.Getenv("DATABASE_URL")
	}
	require.NotEmpty(t, dsn, "TEST_DATABASE_URL ou DATABASE_URL deve apontar para um PostgreSQL de teste")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	admin, err := database.NewPostgresDB(ctx, dsn, database.DefaultPoolConfig)
	require.NoError(t, err)
	_, err = admin.ExecContext(ctx, `DROP SCHEMA IF EXISTS `+schema+` CASCADE`)
	require.NoError(t, err)
	_, err = admin.ExecContext(ctx, `CREATE SCHEMA `+schema)
	require.NoError(t, err)
	require.NoError(t, admin.Close())

	db, err := database.NewPostgresDB(ctx, withSearchPath(dsn, schema), database.DefaultPoolConfig)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	goose.SetLogger(goose.NopLogger())
	require.NoError(t, goose.SetDialect("postgres"))
	require.NoError(t, goose.UpContext(ctx, db, migrationsDir()))

	return db
}

// Reset esvazia todas as tabelas entre os testes.
func Reset(t *testing.T, db *sql.DB) {
	t.Helper()
	_, err := db.Exec(`TRUNCATE enrollments, user_roles, users, classes, students`)
	require.NoError(t, err)
}

// withSearchPath acrescenta search_path à DSN, em formato URL ou chave=valor.
func withSearchPath(dsn, schema string) string {
	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") {
		u, err := url.Parse(dsn)
		if err == nil {
			q := u.Query()
			q.Set("search_path", schema)
			u.RawQuery = q.Encode()
			return u.String()
		}
	}
	return dsn + " search_path=" + schema
}

func migrationsDir() string {
	_, file, _, _ := runtime.Caller(0)
	return filepath.Join(filepath.Dir(file), "..", "..", "..", "..", "sql")
}
