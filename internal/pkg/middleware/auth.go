package middleware

import (
	"context"
	"net/http"
	"strings"

	"goescola/internal/api/httpx"
	apperror "goescola/internal/errors"
	"goescola/internal/pkg/logger"
	"goescola/internal/pkg/token"
)

// ContextKey é o tipo das chaves de contexto deste pacote.
type ContextKey int

const (
	UserClaimsKey ContextKey = iota
)

// UserClaims representa os dados do usuário extraídos do token JWT.
type UserClaims struct {
	UserID string
	Email  string
	Roles  []string
}

// HasAnyRole informa se o usuário possui ao menos um dos papéis.
func (c UserClaims) HasAnyRole(roles ...string) bool {
	for _, want := range roles {
		for _, have := range c.Roles {
			if have == want {
				return true
			}
		}
	}
	return false
}

// TokenValidator é o contrato de validação necessário para o middleware.
type TokenValidator interface {
	ValidateToken(tokenString string) (*token.CustomClaims, error)
}

// NewAuthMiddleware valida o Bearer token e anexa as claims ao contexto.
// Token ausente, malformado, expirado ou com assinatura inválida resulta em 401.
func NewAuthMiddleware(tokenSvc TokenValidator, log logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenString := bearerToken(r.Header.Get("Authorization"))
			if tokenString == "" {
				httpx.WriteError(w, r, log, apperror.NewUnauthorizedError("Token de autorização ausente ou malformado."))
				return
			}

			claims, err := tokenSvc.ValidateToken(tokenString)
			if err != nil {
				log.Debug("Token rejeitado.", map[string]interface{}{"path": r.URL.Path, "error": err.Error()})
				httpx.WriteError(w, r, log, apperror.NewUnauthorizedError("Token inválido ou expirado."))
				return
			}

			ctx := WithUserClaims(r.Context(), UserClaims{
				UserID: claims.UserID,
				Email:  claims.Email,
				Roles:  claims.Roles,
			})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireRoles exige que o usuário autenticado tenha ao menos um dos papéis.
// Sem claims no contexto responde 401; com papel insuficiente, 403.
func RequireRoles(log logger.Logger, roles ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, ok := GetUserClaimsFromContext(r.Context())
			if !ok {
				httpx.WriteError(w, r, log, apperror.NewUnauthorizedError("Autorização necessária. Token não processado."))
				return
			}

			if !claims.HasAnyRole(roles...) {
				log.Warn("Acesso negado por papel insuficiente.", map[string]interface{}{
					"user_id": claims.UserID,
					"path":    r.URL.Path,
					"roles":   claims.Roles,
				})
				httpx.WriteError(w, r, log, apperror.NewForbiddenError("Você não tem a permissão necessária."))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// WithUserClaims anexa as claims ao contexto.
func WithUserClaims(ctx context.Context, claims UserClaims) context.Context {
	return context.WithValue(ctx, UserClaimsKey, claims)
}

// GetUserClaimsFromContext extrai as claims anexadas pelo NewAuthMiddleware.
func GetUserClaimsFromContext(ctx context.Context) (UserClaims, bool) {
	claims, ok := ctx.Value(UserClaimsKey).(UserClaims)
	return claims, ok
}

func bearerToken(header string) string {
	const prefix = "bearer "
	if len(header) <= len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return ""
	}
	return strings.TrimSpace(header[len(prefix):])
}
