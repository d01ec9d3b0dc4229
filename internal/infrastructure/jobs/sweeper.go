// Package jobs contiene los trabajos de fondo de la aplicación. El único es el
// barrido periódico de refresh tokens expirados; las entradas del denylist
// expiran solas por TTL de Redis y no necesitan barrido.
package jobs

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/tu-usuario/entidades-admin/internal/domain/repository"
	"github.com/tu-usuario/entidades-admin/pkg/logger"
)

// Sweeper borra filas de refresh token ya expiradas. El barrido es idempotente
// y conmuta con los requests concurrentes: una fila expirada nunca matchea una
// rotación, así que borrarla antes o después no cambia ningún resultado.
type Sweeper struct {
	cron   *cron.Cron
	tokens repository.RefreshTokenRepository
	log    *logger.Logger
	spec   string
}

// NewSweeper construye el barrido con una expresión cron (con segundos).
func NewSweeper(tokens repository.RefreshTokenRepository, spec string, log *logger.Logger) *Sweeper {
	return &Sweeper{
		cron:   cron.New(cron.WithSeconds()),
		tokens: tokens,
		log:    log,
		spec:   spec,
	}
}

// Start registra y arranca el job.
func (s *Sweeper) Start() error {
	if _, err := s.cron.AddFunc(s.spec, s.sweep); err != nil {
		return err
	}
	s.cron.Start()
	return nil
}

// Stop detiene el scheduler y espera a que termine el job en curso.
func (s *Sweeper) Stop() {
	<-s.cron.Stop().Done()
}

func (s *Sweeper) sweep() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	n, err := s.tokens.DeleteExpired(ctx)
	if err != nil {
		s.log.Error().Err(err).Msg("barrido de refresh tokens expirados falló")
		return
	}
	if n > 0 {
		s.log.Info().Int64("borrados", n).Msg("refresh tokens expirados barridos")
	}
}
