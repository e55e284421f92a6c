package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenService define o contrato para manipulação de JWTs.
type TokenService interface {
	GenerateToken(userID, email string, roles []string) (string, time.Time, error)
	ValidateToken(tokenString string) (*CustomClaims, error)
}

// CustomClaims carrega a identidade e os papéis do usuário.
type CustomClaims struct {
	UserID string   `json:"user_id"`
	Email  string   `json:"email"`
	Roles  []string `json:"roles"`
	jwt.RegisteredClaims
}

// Service assina e valida tokens HS256.
type Service struct {
	secretKey []byte
	issuer    string
	expiry    time.Duration
	now       func() time.Time
}

// NewService cria o serviço de tokens.
func NewService(secretKey, issuer string, expiry time.Duration) *Service {
	return &Service{
		secretKey: []byte(secretKey),
		issuer:    issuer,
		expiry:    expiry,
		now:       time.Now,
	}
}

// GenerateToken emite um JWT assinado e devolve também o instante de expiração.
func (s *Service) GenerateToken(userID, email string, roles []string) (string, time.Time, error) {
	now := s.now()
	expiresAt := now.Add(s.expiry)

	claims := CustomClaims{
		UserID: userID,
		Email:  email,
		Roles:  roles,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			Issuer:    s.issuer,
			Subject:   userID,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	tokenString, err := token.SignedString(s.secretKey)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("falha ao assinar o token: %w", err)
	}

	return tokenString, expiresAt, nil
}

// ValidateToken valida assinatura, emissor e validade, e devolve as claims.
func (s *Service) ValidateToken(tokenString string) (*CustomClaims, error) {
	claims := &CustomClaims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("método de assinatura inesperado: %v", token.Header["alg"])
		}
		return s.secretKey, nil
	}, jwt.WithIssuer(s.issuer), jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, fmt.Errorf("token inválido: %w", err)
	}

	if !token.Valid {
		return nil, errors.New("token não é válido")
	}

	return claims, nil
}
