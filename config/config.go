package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"time"
)

// Config armazena todas as configurações do aplicativo GoEscola.
type Config struct {
	// Geral
	Port        string
	Environment string
	LogLevel    string

	// Banco de Dados (PostgreSQL)
	DatabaseURL string
	DBTimeout   time.Duration

	// Cache (Redis)
	RedisAddr string
	CacheTTL  time.Duration

	// Segurança (JWT)
	JWTSecretKey string
	JWTIssuer    string
	TokenExpiry  time.Duration

	// Rate Limiting
	RateLimitMaxRequests int
	RateLimitPeriod      time.Duration

	// Paginação
	MaxPageSize int

	// Administrador inicial (opcional)
	AdminEmail    string
	AdminPassword string
}

// LoadConfig carrega as configurações a partir das variáveis de ambiente.
// Encerra o processo se uma variável obrigatória estiver ausente.
func LoadConfig() *Config {
	cfg, err := Load()
	if err != nil {
		log.Fatalf("❌ Erro de Configuração: %v", err)
	}
	return cfg
}

// Load lê o ambiente e retorna erro em vez de encerrar o processo.
func Load() (*Config, error) {
	cfg := &Config{
		// 1. Geral
		Port:        getEnv("PORT", "8080"),
		Environment: getEnv("ENV", "development"),
		LogLevel:    getEnv("LOG_LEVEL", "info"),

		// 2. Banco de Dados (PostgreSQL)
		DatabaseURL: getEnv("DATABASE_URL", ""),
		DBTimeout:   getDurationEnv("DB_TIMEOUT_SEC", 5) * time.Second,

		// 3. Cache (Redis)
		RedisAddr: getEnv("REDIS_ADDR", "localhost:6379"),
		CacheTTL:  getDurationEnv("CACHE_TTL_SEC", 300) * time.Second,

		// 4. Segurança (JWT), 3h por padrão
		JWTSecretKey: getEnv("JWT_SECRET_KEY", ""),
		JWTIssuer:    getEnv("JWT_ISSUER", "GoEscola-API"),
		TokenExpiry:  getDurationEnv("JWT_EXPIRY_MIN", 180) * time.Minute,

		// 5. Rate Limiting
		RateLimitMaxRequests: getIntEnv("RATE_LIMIT_MAX_REQUESTS", 100),
		RateLimitPeriod:      getDurationEnv("RATE_LIMIT_PERIOD_MIN", 1) * time.Minute,

		// 6. Paginação
		MaxPageSize: getIntEnv("MAX_PAGE_SIZE", 100),

		// 7. Seed do administrador
		AdminEmail:    getEnv("ADMIN_EMAIL", ""),
		AdminPassword: getEnv("ADMIN_PASSWORD", ""),
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("a variável de ambiente DATABASE_URL deve ser definida")
	}
	if cfg.JWTSecretKey == "" {
		return nil, fmt.Errorf("a variável de ambiente JWT_SECRET_KEY deve ser definida")
	}
	if cfg.MaxPageSize <= 0 {
		cfg.MaxPageSize = 100
	}

	return cfg, nil
}

// Funções Helpers (Auxiliares)

// getEnv lê a variável de ambiente ou retorna um valor padrão.
func getEnv(key string, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

// getDurationEnv lê uma variável numérica e a devolve como time.Duration (sem unidade).
func getDurationEnv(key string, defaultValue int) time.Duration {
	return time.Duration(getIntEnv(key, defaultValue))
}

// getIntEnv lê uma variável de ambiente numérica e retorna-a como int.
func getIntEnv(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.Atoi(valueStr)
	if err != nil {
		log.Printf("⚠️ Aviso: Valor de %s ('%s') não é um número inteiro válido. Usando padrão (%d).", key, valueStr, defaultValue)
		return defaultValue
	}
	return value
}
