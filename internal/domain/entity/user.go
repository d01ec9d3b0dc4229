package entity

import "time"

// User representa un usuario del sistema (pertenece a una Entidad).
//
// PasswordHash y PasswordAlgo siempre van en pareja: nunca se persiste uno sin
// el otro. El bloqueo por intentos fallidos es perezoso: BloqueadoHasta solo se
// evalúa en el siguiente intento de login, no hay timer de desbloqueo.
type User struct {
	ID               string
	EntidadID        string
	Username         string
	Email            string // opcional, puede ser vacío
	PasswordHash     string
	PasswordAlgo     string // "argon2id" (actual) o "bcrypt" (legado)
	Nombre           string
	Activo           bool
	IntentosFallidos int
	BloqueadoHasta   *time.Time // nil = sin bloqueo pendiente
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// EstaBloqueado indica si el usuario está bloqueado en el instante dado.
// Invariante: bloqueado ⟺ BloqueadoHasta definido y en el futuro.
func (u *User) EstaBloqueado(now time.Time) bool {
	return u.BloqueadoHasta != nil && u.BloqueadoHasta.After(now)
}
