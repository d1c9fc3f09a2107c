// Package app wires the Seismetry process: shared resources, the batch
// runner, the interactive session, and the HTTP service lifecycle.
package app

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	httpapi "github.com/seismetry/seismetry/internal/api/http"
	"github.com/seismetry/seismetry/internal/config"
	"github.com/seismetry/seismetry/internal/observability"
	"github.com/seismetry/seismetry/internal/server"
	"github.com/seismetry/seismetry/internal/storage"
	"github.com/seismetry/seismetry/internal/store"
)

// App manages the Seismetry service lifecycle.
type App struct {
	cfg *config.Config

	// Shared resources
	storage  storage.ObjectStorage
	catalog  *store.SQLiteCatalog
	shutdown *server.ShutdownManager
	notifier *Notifier
	stats    *observability.RunStats

	// Mode components
	runner     *Runner
	session    *Session
	httpServer *http.Server

	// Lifecycle
	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// New creates a new App with the given configuration.
func New(cfg *config.Config) (*App, error) {
	cfg.Resolve()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("failed to create directories: %w", err)
	}

	return &App{
		cfg: cfg,
	}, nil
}

// Start initializes shared resources and, in serve mode, starts the
// HTTP service. In run mode the caller drives the runner.
func (a *App) Start(ctx context.Context) error {
	a.mu.Lock()
	if a.running {
		a.mu.Unlock()
		return fmt.Errorf("app is already running")
	}
	a.running = true
	a.mu.Unlock()

	_, cancel := context.WithCancel(ctx)
	a.cancel = cancel

	if err := a.initSharedResources(); err != nil {
		a.cleanup()
		return fmt.Errorf("failed to initialize shared resources: %w", err)
	}

	if a.cfg.Mode == config.ModeServe {
		if err := a.startHTTPService(); err != nil {
			a.cleanup()
			return fmt.Errorf("failed to start http service: %w", err)
		}
	}

	log.Printf("seismetry started in %s mode", a.cfg.Mode)
	return nil
}

// initSharedResources initializes storage, the runs catalog, and the
// shutdown manager.
func (a *App) initSharedResources() error {
	var err error

	switch a.cfg.Storage.Type {
	case "local":
		a.storage, err = storage.NewLocalStorage(a.cfg.Storage.Path)
	case "s3":
		s3Cfg := storage.DefaultS3Config()
		if a.cfg.Storage.S3.Region != "" {
			s3Cfg.Region = a.cfg.Storage.S3.Region
		}
		if a.cfg.Storage.S3.Endpoint != "" {
			s3Cfg.Endpoint = a.cfg.Storage.S3.Endpoint
		}
		a.storage, err = storage.NewS3Storage(
			context.Background(),
			a.cfg.Storage.S3.Bucket,
			s3Cfg,
		)
	default:
		return fmt.Errorf("unsupported storage type: %s", a.cfg.Storage.Type)
	}
	if err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}
	log.Printf("storage initialized: type=%s", a.cfg.Storage.Type)

	a.catalog, err = store.NewCatalog(a.cfg.CatalogPath())
	if err != nil {
		return fmt.Errorf("failed to initialize runs catalog: %w", err)
	}
	log.Printf("runs catalog initialized: %s", a.cfg.CatalogPath())

	a.shutdown = server.NewShutdownManager(server.DefaultShutdownConfig())
	a.notifier = NewNotifier(16)
	a.stats = observability.NewRunStats()
	a.runner = NewRunner(a.cfg, a.storage, a.catalog, a.stats, a.notifier)

	return nil
}

// startHTTPService starts the interactive HTTP service.
func (a *App) startHTTPService() error {
	a.session = NewSession(a.cfg, a.stats, a.notifier)

	handler := httpapi.NewRouter(httpapi.RouterConfig{
		Session:        a.session,
		Notifier:       a.notifier,
		Stats:          a.stats,
		Catalog:        a.catalog,
		MaxUploadBytes: a.cfg.Server.MaxUploadBytes,
		Extra: []func(http.Handler) http.Handler{
			server.ShutdownMiddleware(a.shutdown),
		},
	})

	a.httpServer = &http.Server{
		Addr:         a.cfg.Server.Addr,
		Handler:      handler,
		ReadTimeout:  a.cfg.Server.ReadTimeout,
		WriteTimeout: a.cfg.Server.WriteTimeout,
		IdleTimeout:  a.cfg.Server.IdleTimeout,
	}

	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		log.Printf("HTTP server listening on %s", a.cfg.Server.Addr)
		if err := a.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("HTTP server error: %v", err)
		}
	}()

	return nil
}

// Runner returns the batch runner. Run-mode callers use it directly,
// either for one run or under a file watcher.
func (a *App) Runner() *Runner {
	return a.runner
}

// RunOnce executes one batch analysis run.
func (a *App) RunOnce(ctx context.Context) (*RunOutcome, error) {
	return a.runner.RunOnce(ctx)
}

// Stop gracefully stops all services and releases resources.
func (a *App) Stop(ctx context.Context) error {
	a.mu.Lock()
	if !a.running {
		a.mu.Unlock()
		return nil
	}
	a.running = false
	a.mu.Unlock()

	log.Printf("initiating graceful shutdown")

	if a.cancel != nil {
		a.cancel()
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	if a.httpServer != nil {
		if err := a.httpServer.Shutdown(shutdownCtx); err != nil {
			log.Printf("HTTP server shutdown error: %v", err)
		}
	}

	done := make(chan struct{})
	go func() {
		a.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		// All goroutines finished
	case <-shutdownCtx.Done():
		log.Printf("shutdown timeout, some goroutines may not have finished")
	}

	a.cleanup()

	log.Printf("seismetry stopped")
	return nil
}

// cleanup releases all shared resources.
func (a *App) cleanup() {
	if a.catalog != nil {
		a.catalog.Close()
	}
}

// WaitForShutdown blocks until a shutdown signal is received.
func (a *App) WaitForShutdown(ctx context.Context) error {
	return a.shutdown.ListenForSignals(ctx)
}
