package domain

import "errors"

// Errores de dominio (sin dependencias externas).
//
// Los errores de credenciales/sesión se devuelven como valores tipados para que
// los callers manejen exhaustivamente cada condición documentada sin inspección
// de tipos en runtime. Ninguno se reintenta automáticamente: reintentar un login
// fallido anularía la política de bloqueo.
var (
	ErrNotFound       = errors.New("recurso no encontrado")
	ErrUserNotFound   = errors.New("usuario no encontrado")
	ErrUsernameExists = errors.New("el username ya está registrado")
	ErrInvalidInput   = errors.New("entrada inválida")
	ErrUnauthorized   = errors.New("no autorizado")
	ErrForbidden      = errors.New("acceso denegado")
	ErrConflict       = errors.New("conflicto con el estado actual")

	// ErrInvalidCredentials cubre usuario inexistente, password incorrecto y
	// cuenta bloqueada: un único resultado externo indistinguible, para impedir
	// enumeración de usuarios.
	ErrInvalidCredentials = errors.New("credenciales inválidas")

	// ErrTokenReuseOrExpired: la rotación no encontró fila viva para el hash
	// presentado (ya rotado, expirado o nunca emitido). Señal de robo; el
	// orquestador revoca la sesión completa del dueño.
	ErrTokenReuseOrExpired = errors.New("refresh token ya consumido o expirado")

	// ErrSessionInvalidated se devuelve al cliente tras una revocación por
	// reuso detectado; debe autenticarse de nuevo con login completo.
	ErrSessionInvalidated = errors.New("sesión invalidada, requiere nuevo login")
)
