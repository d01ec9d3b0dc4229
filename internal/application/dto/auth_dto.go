package dto

import "time"

// RegisterRequest entrada para registro: password en texto, se hashea en el use case.
type RegisterRequest struct {
	EntidadID string `json:"entidad_id" validate:"required,uuid"`
	Username  string `json:"username" validate:"required,min=3,max=100"`
	Email     string `json:"email" validate:"omitempty,email"`
	Password  string `json:"password" validate:"required,min=8"`
	Nombre    string `json:"nombre" validate:"omitempty,max=200"`
}

// LoginRequest entrada para login: acepta username o email en el mismo campo.
type LoginRequest struct {
	Usuario  string `json:"usuario" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// RefreshRequest entrada para rotar el refresh token.
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

// LogoutRequest entrada para cerrar sesión. Todas=true revoca todas las
// sesiones del usuario, no solo la presentada.
type LogoutRequest struct {
	RefreshToken string `json:"refresh_token"`
	Todas        bool   `json:"todas"`
}

// TokenPairResponse salida de login y refresh: access token firmado, refresh
// token opaco (plaintext, entregado exactamente una vez) y proyección segura
// del usuario.
type TokenPairResponse struct {
	AccessToken      string       `json:"access_token"`
	AccessExpiresAt  time.Time    `json:"access_expires_at"`
	RefreshToken     string       `json:"refresh_token"`
	RefreshExpiresAt time.Time    `json:"refresh_expires_at"`
	User             UserResponse `json:"user"`
}
