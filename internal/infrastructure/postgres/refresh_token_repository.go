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

var _ repository.RefreshTokenRepository = (*RefreshTokenRepo)(nil)

// RefreshTokenRepo implementación del puerto RefreshTokenRepository sobre
// PostgreSQL. La tabla refresh_tokens tiene índice único sobre token_hash.
type RefreshTokenRepo struct {
	pool *pgxpool.Pool
}

// NewRefreshTokenRepository construye el adaptador de refresh tokens.
func NewRefreshTokenRepository(pool *pgxpool.Pool) *RefreshTokenRepo {
	return &RefreshTokenRepo{pool: pool}
}

// Create inserta la fila de un token recién emitido.
func (r *RefreshTokenRepo) Create(ctx context.Context, token *entity.RefreshToken) error {
	query := `
		INSERT INTO refresh_tokens (id, usuario_id, token_hash, previous_hash, expires_at, ip, user_agent, created_at)
		VALUES ($1, $2, $3, NULLIF($4, ''), $5, NULLIF($6, ''), NULLIF($7, ''), $8)`
	_, err := r.pool.Exec(ctx, query,
		token.ID, token.UsuarioID, token.TokenHash, token.PreviousHash,
		token.ExpiresAt, token.IP, token.UserAgent, token.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert refresh token: %w", err)
	}
	return nil
}

// Rotate localiza la fila viva por hash y la reemplaza con el hash nuevo y
// expiración fresca en un único UPDATE. De N canjes concurrentes del mismo
// valor exactamente uno matchea; el resto recibe ErrTokenReuseOrExpired.
// El hash consumido queda en previous_hash para identificar al dueño si ese
// valor vuelve a presentarse.
func (r *RefreshTokenRepo) Rotate(ctx context.Context, currentHash, newHash string, expiresAt time.Time, ip, userAgent string) (*entity.RefreshToken, error) {
	query := `
		UPDATE refresh_tokens
		SET token_hash = $2,
		    previous_hash = $1,
		    expires_at = $3,
		    ip = NULLIF($4, ''),
		    user_agent = NULLIF($5, ''),
		    created_at = now()
		WHERE token_hash = $1 AND expires_at > now()
		RETURNING id, usuario_id, created_at`
	tok := entity.RefreshToken{TokenHash: newHash, PreviousHash: currentHash, ExpiresAt: expiresAt, IP: ip, UserAgent: userAgent}
	err := r.pool.QueryRow(ctx, query, currentHash, newHash, expiresAt, ip, userAgent).
		Scan(&tok.ID, &tok.UsuarioID, &tok.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrTokenReuseOrExpired
		}
		return nil, fmt.Errorf("rotar refresh token: %w", err)
	}
	return &tok, nil
}

// FindUsuarioByConsumedHash identifica al dueño de un hash ya canjeado.
func (r *RefreshTokenRepo) FindUsuarioByConsumedHash(ctx context.Context, hash string) (string, error) {
	var usuarioID string
	err := r.pool.QueryRow(ctx,
		`SELECT usuario_id FROM refresh_tokens WHERE previous_hash = $1 LIMIT 1`, hash,
	).Scan(&usuarioID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", nil
		}
		return "", fmt.Errorf("buscar dueño de hash consumido: %w", err)
	}
	return usuarioID, nil
}

// RevokeByHash elimina el token indicado si pertenece al usuario.
func (r *RefreshTokenRepo) RevokeByHash(ctx context.Context, usuarioID, hash string) error {
	_, err := r.pool.Exec(ctx,
		`DELETE FROM refresh_tokens WHERE usuario_id = $1 AND token_hash = $2`, usuarioID, hash)
	if err != nil {
		return fmt.Errorf("revocar refresh token: %w", err)
	}
	return nil
}

// RevokeAllForUsuario elimina todos los tokens del usuario.
func (r *RefreshTokenRepo) RevokeAllForUsuario(ctx context.Context, usuarioID string) error {
	_, err := r.pool.Exec(ctx,
		`DELETE FROM refresh_tokens WHERE usuario_id = $1`, usuarioID)
	if err != nil {
		return fmt.Errorf("revocar refresh tokens del usuario: %w", err)
	}
	return nil
}

// DeleteExpired borra filas expiradas. Idempotente; conmuta con cualquier
// request concurrente porque una fila expirada ya no matchea ninguna rotación.
func (r *RefreshTokenRepo) DeleteExpired(ctx context.Context) (int64, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM refresh_tokens WHERE expires_at < now()`)
	if err != nil {
		return 0, fmt.Errorf("borrar refresh tokens expirados: %w", err)
	}
	return tag.RowsAffected(), nil
}
