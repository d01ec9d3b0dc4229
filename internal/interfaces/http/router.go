package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/tu-usuario/entidades-admin/internal/application/auth"
	"github.com/tu-usuario/entidades-admin/internal/domain/repository"
)

// RouterDeps dependencias para el router.
type RouterDeps struct {
	AuthUC    *auth.AuthUseCase
	Denylist  repository.DenylistRegistry
	JWTSecret string
}

// Router registra las rutas de la API.
func Router(app *fiber.App, deps RouterDeps) {
	api := app.Group("/api")

	// Auth (público)
	authGroup := api.Group("/auth")
	authHandler := NewAuthHandler(deps.AuthUC)
	authGroup.Post("/register", authHandler.Register)
	authGroup.Post("/login", authHandler.Login)
	authGroup.Post("/refresh", authHandler.Refresh)

	// Logout requiere access token vigente: el jti a denylistar sale del token.
	authGroup.Post("/logout",
		AuthMiddleware(deps.JWTSecret, deps.Denylist),
		authHandler.Logout,
	)
}
