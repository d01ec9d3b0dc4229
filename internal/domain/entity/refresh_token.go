package entity

import "time"

// RefreshToken es la fila persistida de un token opaco de continuación de
// sesión. Solo se guarda el hash SHA-256 del secreto; el plaintext se entrega
// al cliente exactamente una vez (en emisión o rotación) y jamás se almacena.
//
// La rotación reemplaza TokenHash en la misma fila (nunca agrega filas nuevas)
// y deja el hash consumido en PreviousHash: una generación de linaje, suficiente
// para identificar al dueño cuando alguien presenta un valor ya canjeado.
type RefreshToken struct {
	ID           string
	UsuarioID    string
	TokenHash    string
	PreviousHash string // hash consumido en la última rotación, vacío al emitir
	ExpiresAt    time.Time
	IP           string // opcional
	UserAgent    string // opcional
	CreatedAt    time.Time
}
