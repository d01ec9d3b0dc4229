// Package redisdeny implementa el registro de revocación de access tokens
// sobre Redis. Cada jti revocado se guarda con TTL igual a la vida restante
// del token: al pasar su expiración natural la entrada desaparece sola, que es
// exactamente la ventana en la que el denylist aporta algo (después, la firma
// expirada ya se rechaza sin consulta).
package redisdeny

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/tu-usuario/entidades-admin/internal/domain/repository"
	"github.com/tu-usuario/entidades-admin/pkg/config"
)

var _ repository.DenylistRegistry = (*Registry)(nil)

const keyPrefix = "deny:jti:"

// Registry registro de revocación sobre Redis.
type Registry struct {
	rdb *redis.Client
	now func() time.Time
}

// NewRegistry construye el registro sobre un cliente Redis existente.
func NewRegistry(rdb *redis.Client) *Registry {
	return &Registry{rdb: rdb, now: time.Now}
}

// NewClient crea y verifica el cliente Redis de la aplicación.
func NewClient(ctx context.Context, cfg config.RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return client, nil
}

// Denylist registra el jti como revocado hasta la expiración propia del token.
// Un token ya expirado no se registra: su firma ya no valida.
func (r *Registry) Denylist(ctx context.Context, jti, usuarioID string, expiresAt time.Time, motivo string) error {
	ttl := expiresAt.Sub(r.now())
	if ttl <= 0 {
		return nil
	}
	if err := r.rdb.Set(ctx, keyPrefix+jti, usuarioID+"|"+motivo, ttl).Err(); err != nil {
		return fmt.Errorf("denylist jti: %w", err)
	}
	return nil
}

// IsDenylisted consulta puntual O(1); corre en cada request autenticado.
func (r *Registry) IsDenylisted(ctx context.Context, jti string) (bool, error) {
	n, err := r.rdb.Exists(ctx, keyPrefix+jti).Result()
	if err != nil {
		return false, fmt.Errorf("consultar denylist: %w", err)
	}
	return n > 0, nil
}
