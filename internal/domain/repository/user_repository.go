package repository

import (
	"context"
	"time"

	"github.com/tu-usuario/entidades-admin/internal/domain/entity"
)

// UserRepository puerto de persistencia de usuarios.
//
// RegisterFailedLogin y RegisterSuccessfulLogin son las dos operaciones del
// tracker de intentos fallidos y deben ser atómicas en el storage (un único
// UPDATE condicional), no read-then-write en aplicación: bajo intentos
// concurrentes contra la misma cuenta un contador no atómico pierde updates y
// subcuenta fallos.
type UserRepository interface {
	Create(ctx context.Context, user *entity.User) error
	FindByID(ctx context.Context, id string) (*entity.User, error)
	// FindByUsernameOrEmail busca por username o por email indistintamente.
	// Devuelve (nil, nil) si no existe.
	FindByUsernameOrEmail(ctx context.Context, login string) (*entity.User, error)
	// RegisterFailedLogin incrementa intentos_fallidos y, si el contador
	// post-incremento alcanza maxFallos, fija bloqueado_hasta = now() +
	// minutosBloqueo, todo en una sola sentencia. Devuelve el contador
	// resultante y el fin de bloqueo vigente (nil si no hay).
	RegisterFailedLogin(ctx context.Context, id string, maxFallos, minutosBloqueo int) (int, *time.Time, error)
	// RegisterSuccessfulLogin resetea intentos_fallidos a 0 y limpia
	// bloqueado_hasta incondicionalmente.
	RegisterSuccessfulLogin(ctx context.Context, id string) error
}
