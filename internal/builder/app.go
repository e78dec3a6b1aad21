package builder

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// generationDrainer is the part of the chat use case shutdown cares about:
// waiting out background page generation before connections are torn down.
type generationDrainer interface {
	WaitAllGenerations()
}

// App bundles the running pieces: the HTTP server, the database pool and the
// background generation tasks that must be drained on stop.
type App struct {
	server      *http.Server
	db          *pgxpool.Pool
	generations generationDrainer
	logger      *zap.Logger
}

// Run serves HTTP until the process is interrupted or the listener fails,
// then shuts down gracefully.
func (a *App) Run() error {
	errChan := make(chan error, 1)
	go func() {
		a.logger.Info("HTTP server listening", zap.String("addr", a.server.Addr))
		if err := a.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- err
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errChan:
		a.logger.Error("HTTP server failed", zap.Error(err))
		return err
	case sig := <-sigChan:
		a.logger.Info("Shutdown signal received", zap.String("signal", sig.String()))
	}

	return a.shutdown()
}

// shutdown stops accepting requests, waits for running generation sequences
// within the deadline, then closes the database pool. Generation tasks write
// pages and release the session lock through the pool, so the drain happens
// before the pool closes.
func (a *App) shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	a.logger.Info("Stopping HTTP server")
	if err := a.server.Shutdown(ctx); err != nil {
		a.logger.Error("HTTP server shutdown failed", zap.Error(err))
		return err
	}

	if a.generations != nil {
		a.logger.Info("Draining background generation tasks")
		drained := make(chan struct{})
		go func() {
			a.generations.WaitAllGenerations()
			close(drained)
		}()
		select {
		case <-drained:
		case <-ctx.Done():
			a.logger.Warn("Shutdown deadline reached with generation tasks still running")
		}
	}

	a.logger.Info("Closing database pool")
	if a.db != nil {
		a.db.Close()
	}

	a.logger.Info("Application stopped")
	return nil
}
