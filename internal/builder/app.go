package builder

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/voxline/voiceqa-backend/internal/audiostore"
	"github.com/voxline/voiceqa-backend/internal/integration/events"
)

const shutdownTimeout = 30 * time.Second

// App is the assembled server plus the resources it owns.
type App struct {
	server *http.Server
	db     *pgxpool.Pool
	store  *audiostore.Store
	events *events.Publisher
	logger *zap.Logger
}

// Run serves until SIGINT/SIGTERM or a listener failure, then releases
// everything in reverse wiring order.
func (a *App) Run() error {
	jobsCtx, stopJobs := context.WithCancel(context.Background())
	defer stopJobs()
	go a.store.RunCleanup(jobsCtx)

	serveErr := make(chan error, 1)
	go func() {
		a.logger.Info("HTTP server listening", zap.String("addr", a.server.Addr))
		if err := a.server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	select {
	case err := <-serveErr:
		a.logger.Error("Server failed", zap.Error(err))
		a.close()
		return err
	case sig := <-sigChan:
		a.logger.Info("Shutdown signal received", zap.String("signal", sig.String()))
	}

	stopJobs()

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := a.server.Shutdown(ctx); err != nil {
		a.logger.Error("Server shutdown error", zap.Error(err))
		a.close()
		return err
	}

	a.close()
	a.logger.Info("Application stopped")
	return nil
}

// close releases the pieces that outlive the HTTP server: the event
// publisher's Kafka writers and the database pool.
func (a *App) close() {
	if a.events != nil {
		if err := a.events.Close(); err != nil {
			a.logger.Warn("Event publisher close error", zap.Error(err))
		}
	}
	if a.db != nil {
		a.db.Close()
	}
}
