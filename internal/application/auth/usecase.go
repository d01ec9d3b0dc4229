package auth

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/tu-usuario/entidades-admin/internal/application/dto"
	"github.com/tu-usuario/entidades-admin/internal/domain"
	"github.com/tu-usuario/entidades-admin/internal/domain/entity"
	"github.com/tu-usuario/entidades-admin/internal/domain/repository"
	"github.com/tu-usuario/entidades-admin/pkg/jwt"
	"github.com/tu-usuario/entidades-admin/pkg/logger"
	"github.com/tu-usuario/entidades-admin/pkg/password"
)

// JWTConfig configuración para generación de access tokens.
type JWTConfig struct {
	Secret     string
	ExpMinutes int
	Issuer     string
}

// LockoutPolicy política de bloqueo por intentos fallidos y vida del refresh token.
type LockoutPolicy struct {
	MaxFallos         int
	MinutosBloqueo    int
	RefreshTTLMinutes int
}

// AuthUseCase orquesta login, refresh y logout sobre los puertos de
// persistencia. Todo estado mutable de autenticación (contadores, bloqueos,
// validez de tokens, denylist) vive en el backing store con operaciones
// atómicas: el servicio corre en varias instancias concurrentes y no puede
// apoyarse en memoria de proceso.
type AuthUseCase struct {
	users    repository.UserRepository
	roles    repository.RolRepository
	tokens   repository.RefreshTokenRepository
	denylist repository.DenylistRegistry
	jwtCfg   JWTConfig
	policy   LockoutPolicy
	log      *logger.Logger
	now      func() time.Time
}

// Option configura el use case.
type Option func(*AuthUseCase)

// WithClock reemplaza la fuente de tiempo (para tests).
func WithClock(fn func() time.Time) Option {
	return func(uc *AuthUseCase) {
		if fn != nil {
			uc.now = fn
		}
	}
}

// NewAuthUseCase construye el use case de autenticación.
func NewAuthUseCase(
	users repository.UserRepository,
	roles repository.RolRepository,
	tokens repository.RefreshTokenRepository,
	denylist repository.DenylistRegistry,
	jwtCfg JWTConfig,
	policy LockoutPolicy,
	log *logger.Logger,
	opts ...Option,
) *AuthUseCase {
	uc := &AuthUseCase{
		users:    users,
		roles:    roles,
		tokens:   tokens,
		denylist: denylist,
		jwtCfg:   jwtCfg,
		policy:   policy,
		log:      log,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(uc)
	}
	return uc
}

// Register crea un usuario: hashea el password con argon2id y persiste el par
// hash+algo. Devuelve ErrUsernameExists si el username ya está tomado.
func (uc *AuthUseCase) Register(ctx context.Context, in dto.RegisterRequest) (*dto.UserResponse, error) {
	hash, algo, err := password.Hash(in.Password)
	if err != nil {
		return nil, err
	}
	now := uc.now()
	nombre := in.Nombre
	if nombre == "" {
		nombre = in.Username
	}
	user := &entity.User{
		ID:           uuid.NewString(),
		EntidadID:    in.EntidadID,
		Username:     normalizeLogin(in.Username),
		Email:        normalizeLogin(in.Email),
		PasswordHash: hash,
		PasswordAlgo: algo,
		Nombre:       nombre,
		Activo:       true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := uc.users.Create(ctx, user); err != nil {
		return nil, err
	}
	resp := toUserResponse(user, nil)
	return &resp, nil
}

// Login verifica credenciales y política de bloqueo y emite el par de tokens.
//
// Usuario inexistente, password incorrecto y cuenta bloqueada producen el mismo
// ErrInvalidCredentials: el caller externo no puede distinguir la causa. El
// intento fallido se registra solo cuando el usuario existe, para no crear
// estado de bloqueo fantasma sobre cuentas inexistentes.
func (uc *AuthUseCase) Login(ctx context.Context, in dto.LoginRequest, ip, userAgent string) (*dto.TokenPairResponse, error) {
	user, err := uc.users.FindByUsernameOrEmail(ctx, normalizeLogin(in.Usuario))
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, domain.ErrInvalidCredentials
	}

	if user.EstaBloqueado(uc.now()) || !user.Activo {
		uc.registerFailure(ctx, user)
		return nil, domain.ErrInvalidCredentials
	}

	ok, err := password.Verify(user.PasswordHash, in.Password, user.PasswordAlgo)
	if err != nil {
		// ErrUnsupportedAlgorithm es fatal: hash de un esquema ya no soportado,
		// requiere migración manual de datos. Jamás se degrada a una
		// comparación más débil ni se confunde con credenciales inválidas.
		return nil, fmt.Errorf("verificar password de %s: %w", user.ID, err)
	}
	if !ok {
		uc.registerFailure(ctx, user)
		return nil, domain.ErrInvalidCredentials
	}

	if err := uc.users.RegisterSuccessfulLogin(ctx, user.ID); err != nil {
		return nil, err
	}
	user.IntentosFallidos = 0
	user.BloqueadoHasta = nil

	return uc.mintPair(ctx, user, ip, userAgent)
}

// Refresh canjea el refresh token presentado por un par nuevo mediante la
// rotación atómica. Si el valor ya fue consumido (o expiró, o nunca existió) se
// trata como señal de robo: se revocan todas las sesiones del dueño en cuanto
// sea identificable y el cliente recibe ErrSessionInvalidated.
func (uc *AuthUseCase) Refresh(ctx context.Context, presented, ip, userAgent string) (*dto.TokenPairResponse, error) {
	currentHash := hashRefreshSecret(presented)
	newSecret, newHash, err := newRefreshSecret()
	if err != nil {
		return nil, err
	}
	expiresAt := uc.now().Add(time.Duration(uc.policy.RefreshTTLMinutes) * time.Minute)

	rotated, err := uc.tokens.Rotate(ctx, currentHash, newHash, expiresAt, ip, userAgent)
	if err != nil {
		if errors.Is(err, domain.ErrTokenReuseOrExpired) {
			uc.respondToReuse(ctx, currentHash)
			return nil, domain.ErrSessionInvalidated
		}
		return nil, err
	}

	user, err := uc.users.FindByID(ctx, rotated.UsuarioID)
	if err != nil {
		return nil, err
	}
	if user == nil || !user.Activo {
		// La cuenta desapareció o fue desactivada con sesiones vivas: cerrar todo.
		_ = uc.tokens.RevokeAllForUsuario(ctx, rotated.UsuarioID)
		return nil, domain.ErrSessionInvalidated
	}

	roles, err := uc.roles.NombresPorUsuario(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	access, _, accessExp, err := jwt.Generate(uc.jwtCfg.Secret, user.ID, user.EntidadID, roles, uc.jwtCfg.Issuer, uc.jwtCfg.ExpMinutes)
	if err != nil {
		return nil, err
	}
	return &dto.TokenPairResponse{
		AccessToken:      access,
		AccessExpiresAt:  accessExp,
		RefreshToken:     newSecret,
		RefreshExpiresAt: expiresAt,
		User:             toUserResponse(user, roles),
	}, nil
}

// Logout denylista el jti del access token y revoca el refresh token
// presentado o, con todas=true, todos los del usuario.
func (uc *AuthUseCase) Logout(ctx context.Context, jti string, accessExpiresAt time.Time, refreshPlaintext, usuarioID string, todas bool) error {
	if jti != "" {
		if err := uc.denylist.Denylist(ctx, jti, usuarioID, accessExpiresAt, "logout"); err != nil {
			return err
		}
	}
	if todas {
		return uc.tokens.RevokeAllForUsuario(ctx, usuarioID)
	}
	if refreshPlaintext != "" {
		return uc.tokens.RevokeByHash(ctx, usuarioID, hashRefreshSecret(refreshPlaintext))
	}
	return nil
}

// registerFailure registra el intento fallido; un fallo al registrarlo no
// cambia la respuesta externa (el login ya falló), solo se deja traza.
func (uc *AuthUseCase) registerFailure(ctx context.Context, user *entity.User) {
	intentos, hasta, err := uc.users.RegisterFailedLogin(ctx, user.ID, uc.policy.MaxFallos, uc.policy.MinutosBloqueo)
	if err != nil {
		uc.log.Error().Err(err).Str("usuario_id", user.ID).Msg("registrar login fallido")
		return
	}
	ev := uc.log.Warn().Str("usuario_id", user.ID).Int("intentos", intentos)
	if hasta != nil {
		ev = ev.Time("bloqueado_hasta", *hasta)
	}
	ev.Msg("login fallido")
}

// respondToReuse revoca la sesión completa del dueño del hash replayado, si el
// linaje de una generación permite identificarlo.
func (uc *AuthUseCase) respondToReuse(ctx context.Context, consumedHash string) {
	usuarioID, err := uc.tokens.FindUsuarioByConsumedHash(ctx, consumedHash)
	if err != nil {
		uc.log.Error().Err(err).Msg("identificar dueño de token reusado")
		return
	}
	if usuarioID == "" {
		return
	}
	if err := uc.tokens.RevokeAllForUsuario(ctx, usuarioID); err != nil {
		uc.log.Error().Err(err).Str("usuario_id", usuarioID).Msg("revocar sesiones tras reuso")
		return
	}
	uc.log.Warn().Str("usuario_id", usuarioID).Msg("reuso de refresh token detectado: todas las sesiones revocadas")
}

func (uc *AuthUseCase) mintPair(ctx context.Context, user *entity.User, ip, userAgent string) (*dto.TokenPairResponse, error) {
	roles, err := uc.roles.NombresPorUsuario(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	access, _, accessExp, err := jwt.Generate(uc.jwtCfg.Secret, user.ID, user.EntidadID, roles, uc.jwtCfg.Issuer, uc.jwtCfg.ExpMinutes)
	if err != nil {
		return nil, err
	}
	secret, hash, err := newRefreshSecret()
	if err != nil {
		return nil, err
	}
	now := uc.now()
	refreshExp := now.Add(time.Duration(uc.policy.RefreshTTLMinutes) * time.Minute)
	rec := &entity.RefreshToken{
		ID:        uuid.NewString(),
		UsuarioID: user.ID,
		TokenHash: hash,
		ExpiresAt: refreshExp,
		IP:        ip,
		UserAgent: userAgent,
		CreatedAt: now,
	}
	if err := uc.tokens.Create(ctx, rec); err != nil {
		return nil, err
	}
	return &dto.TokenPairResponse{
		AccessToken:      access,
		AccessExpiresAt:  accessExp,
		RefreshToken:     secret,
		RefreshExpiresAt: refreshExp,
		User:             toUserResponse(user, roles),
	}, nil
}

// newRefreshSecret genera un secreto opaco de alta entropía (256 bits) y su
// hash SHA-256. El plaintext sale de aquí una sola vez.
func newRefreshSecret() (secret, hash string, err error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", "", fmt.Errorf("generar refresh secret: %w", err)
	}
	secret = base64.RawURLEncoding.EncodeToString(buf)
	return secret, hashRefreshSecret(secret), nil
}

// hashRefreshSecret calcula el hash de lookup de un refresh token opaco.
func hashRefreshSecret(secret string) string {
	sum := sha256.Sum256([]byte(secret))
	return hex.EncodeToString(sum[:])
}

func normalizeLogin(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func toUserResponse(u *entity.User, roles []string) dto.UserResponse {
	return dto.UserResponse{
		ID:        u.ID,
		EntidadID: u.EntidadID,
		Username:  u.Username,
		Email:     u.Email,
		Nombre:    u.Nombre,
		Roles:     roles,
		Activo:    u.Activo,
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
}
