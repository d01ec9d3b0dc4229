package auth_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tu-usuario/entidades-admin/internal/application/auth"
	"github.com/tu-usuario/entidades-admin/internal/application/dto"
	"github.com/tu-usuario/entidades-admin/internal/domain"
	"github.com/tu-usuario/entidades-admin/internal/domain/entity"
	"github.com/tu-usuario/entidades-admin/internal/domain/repository"
	pkgjwt "github.com/tu-usuario/entidades-admin/pkg/jwt"
	"github.com/tu-usuario/entidades-admin/pkg/logger"
	"github.com/tu-usuario/entidades-admin/pkg/password"
)

const (
	testSecret  = "test-secret-key-for-unit-tests"
	testEntidad = "00000000-0000-0000-0000-00000000e001"
)

// ──────────────────────────────────────────────────────────────────────────────
// Fakes in-memory de los puertos, con la misma semántica atómica que los
// adaptadores PostgreSQL/Redis (mutex en lugar de UPDATE condicional).
// ──────────────────────────────────────────────────────────────────────────────

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

type fakeUserRepo struct {
	mu    sync.Mutex
	users map[string]*entity.User
	clock *fakeClock
}

var _ repository.UserRepository = (*fakeUserRepo)(nil)

func (r *fakeUserRepo) Create(_ context.Context, u *entity.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *u
	r.users[u.ID] = &cp
	return nil
}

func (r *fakeUserRepo) FindByID(_ context.Context, id string) (*entity.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if u, ok := r.users[id]; ok {
		cp := *u
		return &cp, nil
	}
	return nil, nil
}

func (r *fakeUserRepo) FindByUsernameOrEmail(_ context.Context, login string) (*entity.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Username == login || (u.Email != "" && u.Email == login) {
			cp := *u
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *fakeUserRepo) RegisterFailedLogin(_ context.Context, id string, maxFallos, minutosBloqueo int) (int, *time.Time, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return 0, nil, domain.ErrUserNotFound
	}
	u.IntentosFallidos++
	if u.IntentosFallidos >= maxFallos {
		hasta := r.clock.Now().Add(time.Duration(minutosBloqueo) * time.Minute)
		u.BloqueadoHasta = &hasta
	}
	return u.IntentosFallidos, u.BloqueadoHasta, nil
}

func (r *fakeUserRepo) RegisterSuccessfulLogin(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if u, ok := r.users[id]; ok {
		u.IntentosFallidos = 0
		u.BloqueadoHasta = nil
	}
	return nil
}

func (r *fakeUserRepo) get(id string) *entity.User {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.users[id]
}

type fakeRolRepo struct {
	byUsuario map[string][]string
}

var _ repository.RolRepository = (*fakeRolRepo)(nil)

func (r *fakeRolRepo) NombresPorUsuario(_ context.Context, usuarioID string) ([]string, error) {
	return r.byUsuario[usuarioID], nil
}

type fakeTokenRepo struct {
	mu    sync.Mutex
	rows  map[string]*entity.RefreshToken // por ID
	clock *fakeClock
}

var _ repository.RefreshTokenRepository = (*fakeTokenRepo)(nil)

func (r *fakeTokenRepo) Create(_ context.Context, tok *entity.RefreshToken) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *tok
	r.rows[tok.ID] = &cp
	return nil
}

func (r *fakeTokenRepo) Rotate(_ context.Context, currentHash, newHash string, expiresAt time.Time, ip, userAgent string) (*entity.RefreshToken, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, row := range r.rows {
		if row.TokenHash == currentHash && row.ExpiresAt.After(r.clock.Now()) {
			row.TokenHash = newHash
			row.PreviousHash = currentHash
			row.ExpiresAt = expiresAt
			row.IP = ip
			row.UserAgent = userAgent
			cp := *row
			return &cp, nil
		}
	}
	return nil, domain.ErrTokenReuseOrExpired
}

func (r *fakeTokenRepo) FindUsuarioByConsumedHash(_ context.Context, hash string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, row := range r.rows {
		if row.PreviousHash == hash {
			return row.UsuarioID, nil
		}
	}
	return "", nil
}

func (r *fakeTokenRepo) RevokeByHash(_ context.Context, usuarioID, hash string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, row := range r.rows {
		if row.UsuarioID == usuarioID && row.TokenHash == hash {
			delete(r.rows, id)
		}
	}
	return nil
}

func (r *fakeTokenRepo) RevokeAllForUsuario(_ context.Context, usuarioID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, row := range r.rows {
		if row.UsuarioID == usuarioID {
			delete(r.rows, id)
		}
	}
	return nil
}

func (r *fakeTokenRepo) DeleteExpired(_ context.Context) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for id, row := range r.rows {
		if row.ExpiresAt.Before(r.clock.Now()) {
			delete(r.rows, id)
			n++
		}
	}
	return n, nil
}

func (r *fakeTokenRepo) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.rows)
}

type fakeDenylist struct {
	mu      sync.Mutex
	entries map[string]time.Time
	clock   *fakeClock
}

var _ repository.DenylistRegistry = (*fakeDenylist)(nil)

func (d *fakeDenylist) Denylist(_ context.Context, jti, _ string, expiresAt time.Time, _ string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !expiresAt.After(d.clock.Now()) {
		return nil
	}
	d.entries[jti] = expiresAt
	return nil
}

func (d *fakeDenylist) IsDenylisted(_ context.Context, jti string) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	exp, ok := d.entries[jti]
	return ok && exp.After(d.clock.Now()), nil
}

// ──────────────────────────────────────────────────────────────────────────────
// Fixture
// ──────────────────────────────────────────────────────────────────────────────

type fixture struct {
	clock  *fakeClock
	users  *fakeUserRepo
	roles  *fakeRolRepo
	tokens *fakeTokenRepo
	deny   *fakeDenylist
	uc     *auth.AuthUseCase
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	clock := &fakeClock{t: time.Date(2026, 1, 10, 9, 0, 0, 0, time.UTC)}
	f := &fixture{
		clock:  clock,
		users:  &fakeUserRepo{users: map[string]*entity.User{}, clock: clock},
		roles:  &fakeRolRepo{byUsuario: map[string][]string{}},
		tokens: &fakeTokenRepo{rows: map[string]*entity.RefreshToken{}, clock: clock},
		deny:   &fakeDenylist{entries: map[string]time.Time{}, clock: clock},
	}
	f.uc = auth.NewAuthUseCase(
		f.users, f.roles, f.tokens, f.deny,
		auth.JWTConfig{Secret: testSecret, ExpMinutes: 15, Issuer: "entidades-admin-test"},
		auth.LockoutPolicy{MaxFallos: 5, MinutosBloqueo: 15, RefreshTTLMinutes: 60},
		logger.Nop(),
		auth.WithClock(clock.Now),
	)
	return f
}

// addUsuario crea un usuario con password argon2id y roles asignados.
func (f *fixture) addUsuario(t *testing.T, username, plain string, roles ...string) *entity.User {
	t.Helper()
	hash, algo, err := password.Hash(plain)
	require.NoError(t, err)
	u := &entity.User{
		ID:           uuid.NewString(),
		EntidadID:    testEntidad,
		Username:     username,
		PasswordHash: hash,
		PasswordAlgo: algo,
		Nombre:       username,
		Activo:       true,
		CreatedAt:    f.clock.Now(),
		UpdatedAt:    f.clock.Now(),
	}
	require.NoError(t, f.users.Create(context.Background(), u))
	f.roles.byUsuario[u.ID] = roles
	return u
}

func login(f *fixture, usuario, pass string) (*dto.TokenPairResponse, error) {
	return f.uc.Login(context.Background(), dto.LoginRequest{Usuario: usuario, Password: pass}, "10.0.0.1", "test-agent")
}

// ──────────────────────────────────────────────────────────────────────────────
// Login
// ──────────────────────────────────────────────────────────────────────────────

func TestLogin_Exitoso(t *testing.T) {
	f := newFixture(t)
	u := f.addUsuario(t, "maria.gomez", "Secreta123!", "admin_entidad")

	out, err := login(f, "maria.gomez", "Secreta123!")
	require.NoError(t, err)
	require.NotEmpty(t, out.AccessToken)
	require.NotEmpty(t, out.RefreshToken)

	// El access token lleva subject, roles y jti fresco.
	claims, err := pkgjwt.Parse(testSecret, out.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, u.ID, claims.Subject)
	assert.Equal(t, []string{"admin_entidad"}, claims.Roles)
	assert.NotEmpty(t, claims.ID, "el access token debe llevar jti para revocación individual")

	// La proyección del usuario es segura: el DTO ni siquiera tiene campos de hash.
	assert.Equal(t, u.ID, out.User.ID)
	assert.Equal(t, []string{"admin_entidad"}, out.User.Roles)

	// Se persistió exactamente un refresh token, por hash, nunca el plaintext.
	assert.Equal(t, 1, f.tokens.count())
	for _, row := range f.tokens.rows {
		assert.NotEqual(t, out.RefreshToken, row.TokenHash)
	}
}

func TestLogin_UsuarioInexistente_MismoError(t *testing.T) {
	f := newFixture(t)
	f.addUsuario(t, "existente", "Secreta123!")

	_, err := login(f, "no-existe", "Secreta123!")
	assert.ErrorIs(t, err, domain.ErrInvalidCredentials,
		"usuario inexistente y password incorrecto deben ser indistinguibles")
}

func TestLogin_PasswordIncorrecto_IncrementaContador(t *testing.T) {
	f := newFixture(t)
	u := f.addUsuario(t, "carlos", "Secreta123!")

	_, err := login(f, "carlos", "equivocado")
	assert.ErrorIs(t, err, domain.ErrInvalidCredentials)
	assert.Equal(t, 1, f.users.get(u.ID).IntentosFallidos)
	assert.Nil(t, f.users.get(u.ID).BloqueadoHasta, "un solo fallo no bloquea")
}

func TestLogin_ExitosoReseteaContador(t *testing.T) {
	f := newFixture(t)
	u := f.addUsuario(t, "ana", "Secreta123!")

	_, _ = login(f, "ana", "mal1")
	_, _ = login(f, "ana", "mal2")
	require.Equal(t, 2, f.users.get(u.ID).IntentosFallidos)

	_, err := login(f, "ana", "Secreta123!")
	require.NoError(t, err)
	assert.Equal(t, 0, f.users.get(u.ID).IntentosFallidos)
	assert.Nil(t, f.users.get(u.ID).BloqueadoHasta)
}

// Escenario de la política: maxFallos=5, bloqueo=15min. Cinco fallos en t=0..4s;
// el intento en t=5s falla aun con el password correcto; en t+16min el password
// correcto entra y resetea el contador. El desbloqueo es perezoso: nadie limpió
// bloqueado_hasta, simplemente el siguiente intento lo observa vencido.
func TestLogin_BloqueoYDesbloqueoPerezoso(t *testing.T) {
	f := newFixture(t)
	u := f.addUsuario(t, "pedro", "Secreta123!")

	for i := 0; i < 5; i++ {
		_, err := login(f, "pedro", "equivocado")
		assert.ErrorIs(t, err, domain.ErrInvalidCredentials)
		f.clock.Advance(time.Second)
	}
	require.NotNil(t, f.users.get(u.ID).BloqueadoHasta, "el quinto fallo debe bloquear")

	// t=5s: password correcto, cuenta bloqueada → mismo error externo.
	_, err := login(f, "pedro", "Secreta123!")
	assert.ErrorIs(t, err, domain.ErrInvalidCredentials)
	assert.Equal(t, 6, f.users.get(u.ID).IntentosFallidos,
		"el intento durante el bloqueo también se registra")

	// 16 minutos después el bloqueo venció: el login correcto entra.
	f.clock.Advance(16 * time.Minute)
	out, err := login(f, "pedro", "Secreta123!")
	require.NoError(t, err)
	require.NotEmpty(t, out.AccessToken)
	assert.Equal(t, 0, f.users.get(u.ID).IntentosFallidos)
	assert.Nil(t, f.users.get(u.ID).BloqueadoHasta)
}

func TestLogin_AlgoritmoNoSoportado_EsFatal(t *testing.T) {
	f := newFixture(t)
	u := &entity.User{
		ID:           uuid.NewString(),
		EntidadID:    testEntidad,
		Username:     "legado",
		PasswordHash: "5f4dcc3b5aa765d61d8327deb882cf99",
		PasswordAlgo: "md5", // esquema retirado, deuda de migración
		Activo:       true,
	}
	require.NoError(t, f.users.Create(context.Background(), u))

	_, err := login(f, "legado", "password")
	assert.ErrorIs(t, err, password.ErrUnsupportedAlgorithm)
	assert.NotErrorIs(t, err, domain.ErrInvalidCredentials,
		"algoritmo desconocido es condición fatal, no un mismatch silencioso")
}

// ──────────────────────────────────────────────────────────────────────────────
// Refresh / rotación
// ──────────────────────────────────────────────────────────────────────────────

func TestRefresh_RotacionExactamenteUnaVez(t *testing.T) {
	f := newFixture(t)
	f.addUsuario(t, "laura", "Secreta123!", "consulta")

	out, err := login(f, "laura", "Secreta123!")
	require.NoError(t, err)
	r1 := out.RefreshToken

	// Primer canje de R1: éxito, produce R2 en la misma fila.
	out2, err := f.uc.Refresh(context.Background(), r1, "10.0.0.1", "test-agent")
	require.NoError(t, err)
	r2 := out2.RefreshToken
	require.NotEqual(t, r1, r2, "la rotación siempre produce un valor nuevo")
	assert.Equal(t, 1, f.tokens.count(), "rotar reemplaza la fila, no agrega")

	// Replay de R1 (atacante): detectado como reuso, revoca la sesión entera.
	_, err = f.uc.Refresh(context.Background(), r1, "172.16.0.9", "otro-agente")
	assert.ErrorIs(t, err, domain.ErrSessionInvalidated)
	assert.Equal(t, 0, f.tokens.count(), "todas las sesiones del dueño quedan revocadas")

	// El cliente legítimo con R2 también queda fuera: debe re-autenticarse.
	_, err = f.uc.Refresh(context.Background(), r2, "10.0.0.1", "test-agent")
	assert.ErrorIs(t, err, domain.ErrSessionInvalidated)
}

func TestRefresh_TokenDesconocido(t *testing.T) {
	f := newFixture(t)
	f.addUsuario(t, "laura", "Secreta123!")

	_, err := f.uc.Refresh(context.Background(), "token-jamas-emitido", "10.0.0.1", "x")
	assert.ErrorIs(t, err, domain.ErrSessionInvalidated)
}

func TestRefresh_Expirado(t *testing.T) {
	f := newFixture(t)
	f.addUsuario(t, "laura", "Secreta123!")

	out, err := login(f, "laura", "Secreta123!")
	require.NoError(t, err)

	// TTL del fixture: 60 minutos.
	f.clock.Advance(61 * time.Minute)
	_, err = f.uc.Refresh(context.Background(), out.RefreshToken, "10.0.0.1", "x")
	assert.ErrorIs(t, err, domain.ErrSessionInvalidated)
}

func TestRefresh_UsuarioDesactivado(t *testing.T) {
	f := newFixture(t)
	u := f.addUsuario(t, "baja", "Secreta123!")

	out, err := login(f, "baja", "Secreta123!")
	require.NoError(t, err)

	f.users.get(u.ID).Activo = false
	_, err = f.uc.Refresh(context.Background(), out.RefreshToken, "10.0.0.1", "x")
	assert.ErrorIs(t, err, domain.ErrSessionInvalidated)
	assert.Equal(t, 0, f.tokens.count(), "desactivar la cuenta cierra las sesiones vivas")
}

// ──────────────────────────────────────────────────────────────────────────────
// Logout
// ──────────────────────────────────────────────────────────────────────────────

func TestLogout_DenylistaJtiYRevocaRefresh(t *testing.T) {
	f := newFixture(t)
	u := f.addUsuario(t, "sofia", "Secreta123!")

	out, err := login(f, "sofia", "Secreta123!")
	require.NoError(t, err)

	claims, err := pkgjwt.Parse(testSecret, out.AccessToken)
	require.NoError(t, err)

	err = f.uc.Logout(context.Background(), claims.ID, f.clock.Now().Add(15*time.Minute), out.RefreshToken, u.ID, false)
	require.NoError(t, err)

	revocado, err := f.deny.IsDenylisted(context.Background(), claims.ID)
	require.NoError(t, err)
	assert.True(t, revocado, "el jti debe aparecer en el denylist inmediatamente")

	_, err = f.uc.Refresh(context.Background(), out.RefreshToken, "10.0.0.1", "x")
	assert.ErrorIs(t, err, domain.ErrSessionInvalidated)
}

func TestLogout_TodasLasSesiones(t *testing.T) {
	f := newFixture(t)
	u := f.addUsuario(t, "sofia", "Secreta123!")

	s1, err := login(f, "sofia", "Secreta123!")
	require.NoError(t, err)
	s2, err := login(f, "sofia", "Secreta123!")
	require.NoError(t, err)
	require.Equal(t, 2, f.tokens.count())

	err = f.uc.Logout(context.Background(), "", time.Time{}, "", u.ID, true)
	require.NoError(t, err)
	assert.Equal(t, 0, f.tokens.count())

	_, err = f.uc.Refresh(context.Background(), s1.RefreshToken, "10.0.0.1", "x")
	assert.ErrorIs(t, err, domain.ErrSessionInvalidated)
	_, err = f.uc.Refresh(context.Background(), s2.RefreshToken, "10.0.0.1", "x")
	assert.ErrorIs(t, err, domain.ErrSessionInvalidated)
}

// El denylist deja de reportar entradas cuya expiración ya pasó: a partir de
// ahí el token firmado se rechaza solo por expiry y la entrada es prunable.
func TestDenylist_ExpiraConElToken(t *testing.T) {
	f := newFixture(t)

	exp := f.clock.Now().Add(10 * time.Minute)
	require.NoError(t, f.deny.Denylist(context.Background(), "jti-x", "u1", exp, "logout"))

	ok, _ := f.deny.IsDenylisted(context.Background(), "jti-x")
	assert.True(t, ok)

	f.clock.Advance(11 * time.Minute)
	ok, _ = f.deny.IsDenylisted(context.Background(), "jti-x")
	assert.False(t, ok)
}
