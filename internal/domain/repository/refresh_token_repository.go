package repository

import (
	"context"
	"time"

	"github.com/tu-usuario/entidades-admin/internal/domain/entity"
)

// RefreshTokenRepository puerto del gestor de refresh tokens.
//
// Rotate es la pieza crítica: localizar por hash y reemplazar en una única
// operación atómica garantiza que de N canjes concurrentes del mismo valor
// exactamente uno observa éxito; el resto ve "sin fila" y se trata como reuso.
type RefreshTokenRepository interface {
	Create(ctx context.Context, token *entity.RefreshToken) error
	// Rotate reemplaza currentHash por newHash con expiración fresca, guardando
	// currentHash como previous_hash. Si ninguna fila viva coincide devuelve
	// domain.ErrTokenReuseOrExpired.
	Rotate(ctx context.Context, currentHash, newHash string, expiresAt time.Time, ip, userAgent string) (*entity.RefreshToken, error)
	// FindUsuarioByConsumedHash identifica al dueño de un hash ya canjeado
	// (vía previous_hash). Devuelve "" si no es identificable.
	FindUsuarioByConsumedHash(ctx context.Context, hash string) (string, error)
	// RevokeByHash elimina el token indicado si pertenece al usuario.
	RevokeByHash(ctx context.Context, usuarioID, hash string) error
	// RevokeAllForUsuario elimina todos los tokens del usuario. Se usa en
	// logout-total, cambio de password y respuesta a robo detectado.
	RevokeAllForUsuario(ctx context.Context, usuarioID string) error
	// DeleteExpired borra filas expiradas; idempotente, lo invoca el barrido
	// periódico.
	DeleteExpired(ctx context.Context) (int64, error)
}
