package main

import (
	"context"
	"flag"
	"fmt"
	"log"

	"github.com/joho/godotenv"
	"github.com/pressly/goose/v3"

	"goescola/config"
	"goescola/internal/pkg/database"
)

// Uso: migrate [-dir ./sql] [up|down|status|redo|version] [args...]
func main() {
	if err := godotenv.Load(); err != nil {
		log.Printf("⚠️ Aviso: arquivo .env não encontrado. Usando apenas variáveis de ambiente do sistema: %v", err)
	}

	cfg := config.LoadConfig()

	var migrationsDir string
	flag.StringVar(&migrationsDir, "dir", "./sql", "diretório com os arquivos de migração")
	flag.Parse()

	db, err := database.NewPostgresDB(context.Background(), cfg.DatabaseURL, database.DefaultPoolConfig)
	if err != nil {
		log.Fatalf("goose: falha ao conectar ao DB: %v\n", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Fatalf("goose: falha ao fechar o DB: %v\n", err)
		}
	}()

	if err := goose.SetDialect("postgres"); err != nil {
		log.Fatalf("goose: dialeto inválido: %v", err)
	}

	arguments := flag.Args()
	if len(arguments) == 0 {
		arguments = []string{"up"}
	}

	command := arguments[0]
	args := arguments[1:]

	if err := goose.RunContext(context.Background(), command, db, migrationsDir, args...); err != nil {
		log.Fatalf("goose %v: %v", command, err)
	}

	fmt.Printf("goose %s: sucesso\n", command)
}
