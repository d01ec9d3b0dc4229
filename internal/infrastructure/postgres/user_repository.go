package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/tu-usuario/entidades-admin/internal/domain"
	"github.com/tu-usuario/entidades-admin/internal/domain/entity"
	"github.com/tu-usuario/entidades-admin/internal/domain/repository"
)

var _ repository.UserRepository = (*UserRepo)(nil)

const userColumns = `id, entidad_id, username, email, password_hash, password_algo,
	nombre, activo, intentos_fallidos, bloqueado_hasta, created_at, updated_at`

// UserRepo implementación del puerto UserRepository sobre PostgreSQL.
type UserRepo struct {
	pool *pgxpool.Pool
}

// NewUserRepository construye el adaptador de persistencia para usuarios.
func NewUserRepository(pool *pgxpool.Pool) *UserRepo {
	return &UserRepo{pool: pool}
}

// Create persiste un nuevo usuario.
func (r *UserRepo) Create(ctx context.Context, user *entity.User) error {
	query := `
		INSERT INTO usuarios (id, entidad_id, username, email, password_hash, password_algo,
			nombre, activo, intentos_fallidos, bloqueado_hasta, created_at, updated_at)
		VALUES ($1, $2, $3, NULLIF($4, ''), $5, $6, $7, $8, $9, $10, $11, $12)`
	_, err := r.pool.Exec(ctx, query,
		user.ID, user.EntidadID, user.Username, user.Email, user.PasswordHash, user.PasswordAlgo,
		user.Nombre, user.Activo, user.IntentosFallidos, user.BloqueadoHasta,
		user.CreatedAt, user.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrUsernameExists
		}
		return fmt.Errorf("insert usuario: %w", err)
	}
	return nil
}

// FindByID obtiene un usuario por ID. Devuelve (nil, nil) si no existe.
func (r *UserRepo) FindByID(ctx context.Context, id string) (*entity.User, error) {
	query := `SELECT ` + userColumns + ` FROM usuarios WHERE id = $1`
	return r.scanOne(r.pool.QueryRow(ctx, query, id), "get usuario by id")
}

// FindByUsernameOrEmail busca por username o email indistintamente.
func (r *UserRepo) FindByUsernameOrEmail(ctx context.Context, login string) (*entity.User, error) {
	query := `
		SELECT ` + userColumns + `
		FROM usuarios WHERE username = $1 OR email = $1 LIMIT 1`
	return r.scanOne(r.pool.QueryRow(ctx, query, login), "get usuario by login")
}

// RegisterFailedLogin incrementa el contador de intentos fallidos y, si alcanza
// el máximo, fija el fin de bloqueo, todo en una única sentencia condicional.
// El incremento-y-bloqueo atómico evita perder updates bajo intentos
// concurrentes contra la misma cuenta.
func (r *UserRepo) RegisterFailedLogin(ctx context.Context, id string, maxFallos, minutosBloqueo int) (int, *time.Time, error) {
	query := `
		UPDATE usuarios
		SET intentos_fallidos = intentos_fallidos + 1,
		    bloqueado_hasta = CASE
		        WHEN intentos_fallidos + 1 >= $2 THEN now() + make_interval(mins => $3)
		        ELSE bloqueado_hasta
		    END,
		    updated_at = now()
		WHERE id = $1
		RETURNING intentos_fallidos, bloqueado_hasta`
	var intentos int
	var hasta *time.Time
	err := r.pool.QueryRow(ctx, query, id, maxFallos, minutosBloqueo).Scan(&intentos, &hasta)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, nil, domain.ErrUserNotFound
		}
		return 0, nil, fmt.Errorf("registrar login fallido: %w", err)
	}
	return intentos, hasta, nil
}

// RegisterSuccessfulLogin resetea el contador y limpia el bloqueo pendiente.
func (r *UserRepo) RegisterSuccessfulLogin(ctx context.Context, id string) error {
	query := `
		UPDATE usuarios
		SET intentos_fallidos = 0, bloqueado_hasta = NULL, updated_at = now()
		WHERE id = $1`
	if _, err := r.pool.Exec(ctx, query, id); err != nil {
		return fmt.Errorf("registrar login exitoso: %w", err)
	}
	return nil
}

func (r *UserRepo) scanOne(row pgx.Row, op string) (*entity.User, error) {
	var u entity.User
	var email *string
	err := row.Scan(
		&u.ID, &u.EntidadID, &u.Username, &email, &u.PasswordHash, &u.PasswordAlgo,
		&u.Nombre, &u.Activo, &u.IntentosFallidos, &u.BloqueadoHasta,
		&u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if email != nil {
		u.Email = *email
	}
	return &u, nil
}
