package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/tu-usuario/entidades-admin/internal/domain/repository"
)

var _ repository.RolRepository = (*RolRepo)(nil)

// RolRepo lectura de roles sobre PostgreSQL. El módulo de administración es el
// dueño de las tablas; aquí solo se consultan nombres para el token.
type RolRepo struct {
	pool *pgxpool.Pool
}

// NewRolRepository construye el adaptador de lectura de roles.
func NewRolRepository(pool *pgxpool.Pool) *RolRepo {
	return &RolRepo{pool: pool}
}

// NombresPorUsuario devuelve los nombres de rol asignados al usuario.
func (r *RolRepo) NombresPorUsuario(ctx context.Context, usuarioID string) ([]string, error) {
	query := `
		SELECT r.nombre
		FROM roles r
		JOIN usuario_roles ur ON ur.rol_id = r.id
		WHERE ur.usuario_id = $1
		ORDER BY r.nombre`
	rows, err := r.pool.Query(ctx, query, usuarioID)
	if err != nil {
		return nil, fmt.Errorf("roles por usuario: %w", err)
	}
	defer rows.Close()
	var nombres []string
	for rows.Next() {
		var n string
		if err := rows.Scan(&n); err != nil {
			return nil, fmt.Errorf("scan rol: %w", err)
		}
		nombres = append(nombres, n)
	}
	return nombres, rows.Err()
}
