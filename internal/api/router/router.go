package router

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger/v2"

	"goescola/internal/api/auth"
	"goescola/internal/api/class"
	"goescola/internal/api/enrollment"
	"goescola/internal/api/student"
	"goescola/internal/domain"
	"goescola/internal/pkg/cache"
	"goescola/internal/pkg/logger"
	"goescola/internal/pkg/metrics"
	"goescola/internal/pkg/middleware"
)

// Handlers reúne os handlers já inicializados por injeção de dependências.
type Handlers struct {
	Auth        *auth.Handler
	Students    *student.Handler
	Classes     *class.Handler
	Enrollments *enrollment.Handler
}

// Options configura os middlewares globais.
// Cache nil desativa o rate limiting; Registry nil desativa /metrics.
type Options struct {
	Tokens          middleware.TokenValidator
	Cache           cache.Client
	RateLimit       int
	RateLimitWindow time.Duration
	Registry        *prometheus.Registry
}

// NewRouter configura e retorna o roteador HTTP principal.
func NewRouter(h Handlers, opts Options, log logger.Logger) http.Handler {
	r := chi.NewRouter()

	// Log e métricas ficam por fora do Recoverer para registrar também os 500 de panic.
	r.Use(chimw.RequestID)
	r.Use(middleware.RequestLogger(log))
	if opts.Registry != nil {
		r.Use(metrics.New(opts.Registry).Middleware)
	}
	// O rate limit usa o endereço da conexão, antes de RealIP aplicar X-Forwarded-For.
	if opts.Cache != nil && opts.RateLimit > 0 {
		r.Use(middleware.RateLimiter(opts.Cache, log, opts.RateLimit, opts.RateLimitWindow))
	}
	r.Use(chimw.RealIP)
	r.Use(middleware.Recoverer(log))

	// --- Rotas públicas ---
	if opts.Registry != nil {
		r.Handle("/metrics", promhttp.HandlerFor(opts.Registry, promhttp.HandlerOpts{}))
	}
	r.Get("/ping", PingHandler)
	r.Get("/swagger/*", httpSwagger.WrapHandler)
	r.Post("/auth/login", h.Auth.LoginHandler)

	// --- Rotas autenticadas ---
	r.Group(func(r chi.Router) {
		r.Use(middleware.NewAuthMiddleware(opts.Tokens, log))

		r.Post("/auth/change-password", h.Auth.ChangePasswordHandler)

		// Leitura: Admin ou User
		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireRoles(log, domain.RoleAdmin, domain.RoleUser))

			r.Get("/students", h.Students.ListStudentsHandler)
			r.Get("/students/search", h.Students.SearchStudentsHandler)
			r.Get("/students/{id}", h.Students.GetStudentHandler)

			r.Get("/classes", h.Classes.ListClassesHandler)
			r.Get("/classes/{id}", h.Classes.GetClassHandler)

			r.Get("/enrollments", h.Enrollments.ListEnrollmentsHandler)
			r.Get("/enrollments/{id}", h.Enrollments.GetEnrollmentHandler)
			r.Get("/enrollments/student/{id}", h.Enrollments.ListByStudentHandler)
			r.Get("/enrollments/class/{id}", h.Enrollments.ListByClassHandler)
		})

		// Escrita e gestão de usuários: apenas Admin
		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireRoles(log, domain.RoleAdmin))

			r.Post("/auth/register-admin", h.Auth.RegisterAdminHandler)
			r.Post("/auth/register-user", h.Auth.RegisterUserHandler)
			r.Post("/auth/reset-password-admin", h.Auth.ResetPasswordHandler)

			r.Post("/students", h.Students.CreateStudentHandler)
			r.Post("/students/import", h.Students.ImportStudentsHandler)
			r.Put("/students/{id}", h.Students.UpdateStudentHandler)
			r.Delete("/students/{id}", h.Students.DeleteStudentHandler)

			r.Post("/classes", h.Classes.CreateClassHandler)
			r.Put("/classes/{id}", h.Classes.UpdateClassHandler)
			r.Delete("/classes/{id}", h.Classes.DeleteClassHandler)

			r.Post("/enrollments", h.Enrollments.AddEnrollmentHandler)
			r.Put("/enrollments/{id}", h.Enrollments.UpdateEnrollmentHandler)
			r.Delete("/enrollments/{id}", h.Enrollments.DeleteEnrollmentHandler)
		})
	})

	return r
}

// PingHandler é o health check da API.
func PingHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("pong"))
}
