package app

import (
	"context"
	"errors"
	"net/http"
	"sync"

	"github.com/Tenac92/LEXIS-sub001/internal/config"
	"github.com/Tenac92/LEXIS-sub001/internal/gateway"
)

type App struct {
	httpServer *http.Server
	gateway    *gateway.Gateway
	runners    []runner
	cleanup    func() error

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func New(ctx context.Context, cfg *config.Config) (*App, error) {
	w, err := setupHTTP(ctx, cfg)
	if err != nil {
		return nil, err
	}

	server := &http.Server{
		Addr:    ":" + cfg.AppPort,
		Handler: w.router,
	}

	return &App{
		httpServer: server,
		gateway:    w.gateway,
		runners:    w.runners,
		cleanup:    w.cleanup,
	}, nil
}

// Run starts the background loops and serves HTTP until Shutdown.
func (a *App) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	a.cancel = cancel

	for _, run := range a.runners {
		a.wg.Add(1)
		go func(run runner) {
			defer a.wg.Done()
			run(ctx)
		}(run)
	}

	if err := a.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops accepting requests, closes every websocket with 1001, stops
// the event sources and releases Postgres and Redis.
func (a *App) Shutdown(ctx context.Context) error {
	if err := a.httpServer.Shutdown(ctx); err != nil {
		return err
	}
	if err := a.gateway.Shutdown(ctx); err != nil {
		return err
	}
	if a.cancel != nil {
		a.cancel()
	}
	a.wg.Wait()
	if a.cleanup != nil {
		return a.cleanup()
	}
	return nil
}
