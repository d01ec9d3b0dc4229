package repository

import "context"

// RolRepository lectura de roles para el núcleo de autenticación. La escritura
// (crear roles, asignarlos) pertenece al módulo de administración.
type RolRepository interface {
	// NombresPorUsuario devuelve los nombres de rol asignados al usuario,
	// para incrustarlos como claim en el access token.
	NombresPorUsuario(ctx context.Context, usuarioID string) ([]string, error)
}
