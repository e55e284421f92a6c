package domain

import "time"

// Papéis reconhecidos pelo controle de acesso.
const (
	RoleAdmin = "Admin"
	RoleUser  = "User"
)

// User representa uma credencial de acesso. Email é o nome de usuário.
type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Roles        []string  `json:"roles"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// HasRole informa se o usuário possui o papel informado.
func (u User) HasRole(role string) bool {
	for _, r := range u.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// RegisterRequest é o payload de registro de administrador ou usuário.
type RegisterRequest struct {
	Email           string `json:"email" validate:"required,email,max=150"`
	Password        string `json:"password" validate:"required,strongpassword"`
	ConfirmPassword string `json:"confirm_password" validate:"required,eqfield=Password"`
}

// LoginRequest é o payload de autenticação.
type LoginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// LoginResponse carrega o token emitido.
type LoginResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// ChangePasswordRequest é o payload de troca de senha do próprio usuário.
type ChangePasswordRequest struct {
	CurrentPassword    string `json:"current_password" validate:"required"`
	NewPassword        string `json:"new_password" validate:"required,strongpassword"`
	ConfirmNewPassword string `json:"confirm_new_password" validate:"required,eqfield=NewPassword"`
}

// ResetPasswordRequest é o payload de redefinição de senha por um administrador.
type ResetPasswordRequest struct {
	Email              string `json:"email" validate:"required,email"`
	NewPassword        string `json:"new_password" validate:"required,strongpassword"`
	ConfirmNewPassword string `json:"confirm_new_password" validate:"required,eqfield=NewPassword"`
}
