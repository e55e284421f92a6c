package middleware

import (
	"net"
	"net/http"
	"strconv"
	"time"

	"goescola/internal/api/httpx"
	"goescola/internal/domain"
	"goescola/internal/pkg/cache"
	"goescola/internal/pkg/logger"
)

// RateLimiter aplica uma janela fixa por IP usando INCR + EXPIRE no cache.
// A chave é o endereço da conexão (RemoteAddr); registre-o antes de qualquer
// middleware que reescreva RemoteAddr a partir de cabeçalhos do cliente.
// Se o cache estiver indisponível a requisição segue (fail open).
func RateLimiter(client cache.Client, log logger.Logger, limit int, window time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip, _, err := net.SplitHostPort(r.RemoteAddr)
			if err != nil {
				ip = r.RemoteAddr
			}
			key := "rate-limit:" + ip
			ctx := r.Context()

			count, err := client.Incr(ctx, key)
			if err != nil {
				log.Warn("Rate limiter indisponível, requisição liberada.", map[string]interface{}{"error": err.Error()})
				next.ServeHTTP(w, r)
				return
			}
			if count == 1 {
				if err := client.Expire(ctx, key, window); err != nil {
					log.Warn("Falha ao definir expiração do rate limit.", map[string]interface{}{"error": err.Error()})
				}
			}
			// Um EXPIRE perdido deixaria o IP bloqueado para sempre: rearma antes de negar.
			if count > int64(limit) {
				if ttl, err := client.TTL(ctx, key); err == nil && ttl < 0 {
					if err := client.Expire(ctx, key, window); err != nil {
						log.Warn("Falha ao rearmar expiração do rate limit.", map[string]interface{}{"error": err.Error()})
					}
				}
			}

			remaining := int64(limit) - count
			if remaining < 0 {
				remaining = 0
			}
			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(limit))
			w.Header().Set("X-RateLimit-Remaining", strconv.FormatInt(remaining, 10))

			if count > int64(limit) {
				w.Header().Set("Retry-After", strconv.Itoa(int(window.Seconds())))
				_ = httpx.WriteJSON(w, http.StatusTooManyRequests, domain.ErrorResponse{
					Code:     http.StatusTooManyRequests,
					Category: "RATE_LIMITED",
					Message:  "Limite de requisições excedido. Tente novamente mais tarde.",
				})
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
