package dto

import "time"

// UserResponse proyección segura de un usuario: sin password_hash ni
// password_algo, aptos solo para la capa de persistencia.
type UserResponse struct {
	ID        string    `json:"id"`
	EntidadID string    `json:"entidad_id"`
	Username  string    `json:"username"`
	Email     string    `json:"email,omitempty"`
	Nombre    string    `json:"nombre"`
	Roles     []string  `json:"roles"`
	Activo    bool      `json:"activo"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
