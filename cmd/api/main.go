package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/tu-usuario/entidades-admin/internal/application/auth"
	"github.com/tu-usuario/entidades-admin/internal/infrastructure/jobs"
	"github.com/tu-usuario/entidades-admin/internal/infrastructure/postgres"
	"github.com/tu-usuario/entidades-admin/internal/infrastructure/redisdeny"
	httpRouter "github.com/tu-usuario/entidades-admin/internal/interfaces/http"
	"github.com/tu-usuario/entidades-admin/pkg/config"
	"github.com/tu-usuario/entidades-admin/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("cargar configuración: " + err.Error())
	}

	log := logger.New(logger.Config{
		Env:   cfg.App.Env,
		Level: "info",
	})
	log.Info().
		Str("env", cfg.App.Env).
		Str("app", cfg.App.Name).
		Msg("iniciando aplicación")

	if cfg.JWT.Secret == "" {
		log.Fatal().Msg("JWT_SECRET es requerido")
	}

	ctx := context.Background()
	pool, err := postgres.NewPool(ctx, cfg.DB)
	if err != nil {
		log.Fatal().Err(err).Msg("conexión a PostgreSQL")
	}
	defer pool.Close()

	rdb, err := redisdeny.NewClient(ctx, cfg.Redis)
	if err != nil {
		log.Fatal().Err(err).Msg("conexión a Redis")
	}
	defer rdb.Close()

	userRepo := postgres.NewUserRepository(pool)
	rolRepo := postgres.NewRolRepository(pool)
	tokenRepo := postgres.NewRefreshTokenRepository(pool)
	denylist := redisdeny.NewRegistry(rdb)

	authUC := auth.NewAuthUseCase(
		userRepo, rolRepo, tokenRepo, denylist,
		auth.JWTConfig{
			Secret:     cfg.JWT.Secret,
			ExpMinutes: cfg.JWT.Expiration,
			Issuer:     cfg.JWT.Issuer,
		},
		auth.LockoutPolicy{
			MaxFallos:         cfg.Auth.MaxFallos,
			MinutosBloqueo:    cfg.Auth.MinutosBloqueo,
			RefreshTTLMinutes: cfg.Auth.RefreshTTLMinutes,
		},
		log,
	)

	// Barrido periódico de refresh tokens expirados (el denylist expira solo
	// por TTL de Redis).
	sweeper := jobs.NewSweeper(tokenRepo, cfg.Auth.SweepCron, log)
	if err := sweeper.Start(); err != nil {
		log.Fatal().Err(err).Msg("arrancar barrido de tokens")
	}
	defer sweeper.Stop()

	app := fiber.New(fiber.Config{
		AppName:      cfg.App.Name,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	})
	app.Use(recover.New())

	httpRouter.Router(app, httpRouter.RouterDeps{
		AuthUC:    authUC,
		Denylist:  denylist,
		JWTSecret: cfg.JWT.Secret,
	})

	go func() {
		if err := app.Listen(cfg.HTTP.Addr()); err != nil {
			log.Fatal().Err(err).Msg("servidor HTTP")
		}
	}()
	log.Info().Str("addr", cfg.HTTP.Addr()).Msg("API escuchando")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("apagando…")
	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		log.Error().Err(err).Msg("shutdown HTTP")
	}
}
