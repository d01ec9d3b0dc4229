package repository

import (
	"context"
	"time"
)

// DenylistRegistry registro de revocación de access tokens por jti. Permite
// invalidar un token firmado individual antes de su expiración natural sin
// rotar la clave de firma de todas las sesiones.
type DenylistRegistry interface {
	// Denylist registra el jti como revocado hasta expiresAt (la expiración
	// propia del token: pasada esa hora la firma ya se rechaza sola y la
	// entrada es prunable).
	Denylist(ctx context.Context, jti, usuarioID string, expiresAt time.Time, motivo string) error
	// IsDenylisted consulta puntual indexada; corre en el hot path de cada
	// request autenticado.
	IsDenylisted(ctx context.Context, jti string) (bool, error)
}
