package http

import (
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/tu-usuario/entidades-admin/internal/application/dto"
	"github.com/tu-usuario/entidades-admin/internal/domain/repository"
	"github.com/tu-usuario/entidades-admin/pkg/jwt"
)

// Locals keys para los claims del token en Fiber.
const (
	LocalUserID    = "user_id"
	LocalEntidadID = "entidad_id"
	LocalRoles     = "roles"
	LocalJTI       = "jti"
	LocalAccessExp = "access_exp"
)

// AuthMiddleware valida el Bearer Token JWT, rechaza jti revocados contra el
// registro de denylist y deja los claims en c.Locals.
func AuthMiddleware(jwtSecret string, denylist repository.DenylistRegistry) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authHeader := c.Get("Authorization")
		if authHeader == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Code: "MISSING_TOKEN", Message: "Authorization header requerido"})
		}
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Code: "INVALID_TOKEN", Message: "formato: Bearer <token>"})
		}
		tokenString := strings.TrimSpace(parts[1])
		if tokenString == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Code: "MISSING_TOKEN", Message: "token vacío"})
		}
		claims, err := jwt.Parse(jwtSecret, tokenString)
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Code: "INVALID_TOKEN", Message: "token inválido o expirado"})
		}
		// Consulta puntual al denylist: un token firmado y vigente puede haber
		// sido revocado individualmente (logout, compromiso detectado).
		revocado, err := denylist.IsDenylisted(c.Context(), claims.ID)
		if err != nil {
			return c.Status(fiber.StatusServiceUnavailable).JSON(dto.ErrorResponse{Code: "REGISTRY_UNAVAILABLE", Message: "registro de revocación no disponible"})
		}
		if revocado {
			return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Code: "TOKEN_REVOKED", Message: "token revocado"})
		}
		c.Locals(LocalUserID, claims.Subject)
		c.Locals(LocalEntidadID, claims.EntidadID)
		c.Locals(LocalRoles, claims.Roles)
		c.Locals(LocalJTI, claims.ID)
		if claims.ExpiresAt != nil {
			c.Locals(LocalAccessExp, claims.ExpiresAt.Time)
		}
		return c.Next()
	}
}

// RequireRol autoriza solo a usuarios con alguno de los roles indicados.
func RequireRol(permitidos ...string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		roles := GetRoles(c)
		if len(roles) == 0 {
			return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Code: "MISSING_ROLE", Message: "token sin roles"})
		}
		for _, r := range roles {
			for _, p := range permitidos {
				if r == p {
					return c.Next()
				}
			}
		}
		return c.Status(fiber.StatusForbidden).JSON(dto.ErrorResponse{Code: "FORBIDDEN", Message: "rol insuficiente"})
	}
}

// GetUserID devuelve el UserID del contexto (después del middleware de auth).
func GetUserID(c *fiber.Ctx) string {
	s, _ := c.Locals(LocalUserID).(string)
	return s
}

// GetEntidadID devuelve el EntidadID del contexto.
func GetEntidadID(c *fiber.Ctx) string {
	s, _ := c.Locals(LocalEntidadID).(string)
	return s
}

// GetRoles devuelve los roles del contexto.
func GetRoles(c *fiber.Ctx) []string {
	r, _ := c.Locals(LocalRoles).([]string)
	return r
}

// GetJTI devuelve el identificador del access token presentado.
func GetJTI(c *fiber.Ctx) string {
	s, _ := c.Locals(LocalJTI).(string)
	return s
}

// GetAccessExp devuelve la expiración del access token presentado.
func GetAccessExp(c *fiber.Ctx) time.Time {
	t, _ := c.Locals(LocalAccessExp).(time.Time)
	return t
}
