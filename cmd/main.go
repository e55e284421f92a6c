// @title GoEscola API
// @version 1.0
// @description API de gestão acadêmica: alunos, turmas e matrículas.
// @BasePath /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
package main

//go:generate swag init -d ../ -g cmd/main.go -o ../docs --parseInternal

import (
	"context"
	stdlog "log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"goescola/config"
	_ "goescola/docs"
	"goescola/internal/pkg/cache"
	"goescola/internal/pkg/database"
	"goescola/internal/pkg/logger"
	"goescola/internal/pkg/token"
	"goescola/internal/pkg/validation"

	"goescola/internal/api/auth"
	"goescola/internal/api/class"
	"goescola/internal/api/enrollment"
	"goescola/internal/api/router"
	"goescola/internal/api/student"
	"goescola/internal/repository/classrepo"
	"goescola/internal/repository/enrollmentrepo"
	"goescola/internal/repository/studentrepo"
	"goescola/internal/repository/userrepo"
	"goescola/internal/service/authservice"
	"goescola/internal/service/classservice"
	"goescola/internal/service/enrollmentservice"
	"goescola/internal/service/studentservice"
)

func main() {
	stdlog.Println("⚡ Inicializando serviço GoEscola...")
	if err := godotenv.Load(); err != nil {
		stdlog.Println("⚠️ Aviso: Arquivo .env não encontrado. Carregando configs apenas do ambiente do sistema.")
	}

	cfg := config.LoadConfig()
	log := logger.NewLogger(cfg.LogLevel)
	log.Info("Configurações carregadas.", map[string]interface{}{"env": cfg.Environment})

	// 1. Infraestrutura
	db, err := database.NewPostgresDB(context.Background(), cfg.DatabaseURL, database.DefaultPoolConfig)
	if err != nil {
		log.Fatal("Falha ao conectar ao banco de dados.", err)
	}
	defer db.Close()
	log.Info("Conexão PostgreSQL estabelecida.", nil)

	// Sem Redis a API segue funcionando, sem cache e sem rate limiting.
	var cacheClient cache.Client
	redisClient, err := cache.NewRedisClient(cfg.RedisAddr)
	if err != nil {
		log.Warn("Redis indisponível. Cache e rate limiting desativados.", map[string]interface{}{"addr": cfg.RedisAddr, "error": err.Error()})
		redisClient.Close()
	} else {
		cacheClient = redisClient
		defer redisClient.Close()
		log.Info("Conexão Redis estabelecida.", nil)
	}

	tokenSvc := token.NewService(cfg.JWTSecretKey, cfg.JWTIssuer, cfg.TokenExpiry)
	validator := validation.New()

	// 2. Injeção de dependências: Repository -> Service -> Handler
	studentRepo := studentrepo.NewStudentRepository(db, cacheClient, cfg.CacheTTL, cfg.DBTimeout, log)
	classRepo := classrepo.NewClassRepository(db, cfg.DBTimeout)
	enrollmentRepo := enrollmentrepo.NewEnrollmentRepository(db, cfg.DBTimeout)
	userRepo := userrepo.NewUserRepository(db, cfg.DBTimeout, log)

	studentSvc := studentservice.NewService(studentRepo, validator, log, cfg.MaxPageSize)
	classSvc := classservice.NewService(classRepo, validator, log, cfg.MaxPageSize)
	enrollmentSvc := enrollmentservice.NewService(enrollmentRepo, studentRepo, classRepo, validator, log, cfg.MaxPageSize)
	authSvc := authservice.NewService(userRepo, tokenSvc, validator, log)
	log.Debug("Serviços inicializados.", nil)

	seedCtx, cancelSeed := context.WithTimeout(context.Background(), 30*time.Second)
	if err := authSvc.EnsureAdmin(seedCtx, cfg.AdminEmail, cfg.AdminPassword); err != nil {
		log.Error("Falha ao criar o administrador inicial.", err)
	}
	cancelSeed()

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	r := router.NewRouter(router.Handlers{
		Auth:        auth.NewHandler(authSvc, log),
		Students:    student.NewHandler(studentSvc, log, cfg.MaxPageSize),
		Classes:     class.NewHandler(classSvc, log, cfg.MaxPageSize),
		Enrollments: enrollment.NewHandler(enrollmentSvc, log, cfg.MaxPageSize),
	}, router.Options{
		Tokens:          tokenSvc,
		Cache:           cacheClient,
		RateLimit:       cfg.RateLimitMaxRequests,
		RateLimitWindow: cfg.RateLimitPeriod,
		Registry:        registry,
	}, log)

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// 3. Execução e Graceful Shutdown
	go func() {
		log.Info("Servidor GoEscola ouvindo na porta", map[string]interface{}{"port": cfg.Port})
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Servidor falhou.", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	<-quit
	log.Info("Sinal de encerramento recebido. Desligando servidor...", nil)

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Error("Desligamento do servidor forçado.", err)
	}

	log.Info("Servidor encerrado com sucesso.", nil)
}
