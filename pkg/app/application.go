package app

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"tutorbook/pkg/auth"
	"tutorbook/pkg/config"
	"tutorbook/pkg/contracts"
	"tutorbook/pkg/metrics"
	"tutorbook/pkg/middleware"

	"github.com/julienschmidt/httprouter"
)

const (
	idempotencyKeyPrefix = "idem:"
	streamPathSuffix     = "/stream"
)

// Worker is a long-running background task. It must return once ctx is cancelled.
type Worker func(ctx context.Context) error

type namedWorker struct {
	name string
	run  Worker
}

type Application struct {
	cfg              *config.Config
	metrics          *metrics.Metrics
	authenticator    *auth.Authenticator
	server           *http.Server
	idempotencyStore middleware.IdempotencyStore
	rateLimiter      *middleware.RateLimiter
	healthHandler    http.Handler
	appHTTPHandler   http.Handler
	workers          []namedWorker
	closers          []func(ctx context.Context) error
}

func NewApplication(cfg *config.Config, m *metrics.Metrics) *Application {
	return &Application{
		cfg:           cfg,
		metrics:       m,
		authenticator: auth.NewAuthenticator(cfg.JWTSecret, cfg.TokenTTL),
	}
}

// SetApp builds the HTTP stack around appHandler. /health, /ready and /metrics bypass
// authentication and rate limiting.
func (a *Application) SetApp(appHandler contracts.Handler) {
	a.setHealthHandler()
	a.setAppHandler(appHandler)
	a.setAppServer()
}

// AddWorker registers a background task started by Run and stopped on shutdown.
func (a *Application) AddWorker(name string, w Worker) {
	a.workers = append(a.workers, namedWorker{name: name, run: w})
}

// OnShutdown registers a cleanup step run after the HTTP server and workers stop,
// in reverse registration order.
func (a *Application) OnShutdown(fn func(ctx context.Context) error) {
	a.closers = append(a.closers, fn)
}

func (a *Application) Handler() http.Handler {
	return a.server.Handler
}

func (a *Application) setHealthHandler() {
	healthRouter := httprouter.New()
	NewHealthHandler(a.cfg.Client.Mongo, a.cfg.Client.Redis, a.cfg.Log).RegisterRoutes(healthRouter)
	healthRouter.Handler(http.MethodGet, "/metrics", a.metrics.Handler())

	var h http.Handler = healthRouter
	h = middleware.RequestLogging(a.cfg.Log)(h)
	h = middleware.Recovery(a.cfg.Log)(h)
	a.healthHandler = h
	a.cfg.Log.Info("Health endpoints configured with minimal middleware (Recovery + Logging only)")
}

func (a *Application) setAppHandler(appHandler contracts.Handler) {
	appRouter := httprouter.New()
	appRouter.HandleMethodNotAllowed = true
	appHandler.RegisterRoutes(appRouter)

	if a.cfg.Client.Redis != nil {
		a.idempotencyStore = middleware.NewRedisIdempotencyStore(a.cfg.Client.Redis, a.cfg.IdempotencyTTL, idempotencyKeyPrefix, a.cfg.Log)
		a.cfg.Log.Info("Idempotency store backed by Redis")
	} else {
		a.idempotencyStore = middleware.NewInMemoryIdempotencyStore(a.cfg.IdempotencyTTL)
	}
	a.rateLimiter = middleware.NewRateLimiter(a.cfg.RateLimitRequests, a.cfg.RateLimitWindow, middleware.CallerKey, a.cfg.Log)

	var h http.Handler = appRouter
	h = middleware.Idempotency(a.idempotencyStore, middleware.IdempotencyHeader)(h)
	h = middleware.RequestTimeout(a.cfg.RequestTimeout, streamPathSuffix)(h)
	h = middleware.RateLimit(a.rateLimiter)(h)
	h = auth.Authenticate(a.authenticator, a.cfg.Log)(h)
	h = middleware.ContentTypeValidation(a.cfg.Log)(h)
	h = middleware.MaxRequestSize(int64(a.cfg.MaxRequestSize))(h)
	h = a.metrics.Middleware()(h)
	h = middleware.RequestLogging(a.cfg.Log)(h)
	h = middleware.Recovery(a.cfg.Log)(h)
	a.appHTTPHandler = h
	a.cfg.Log.Info("Application endpoints configured with full middleware stack")
}

func (a *Application) setAppServer() {
	mux := http.NewServeMux()
	mux.Handle("/health", a.healthHandler)
	mux.Handle("/ready", a.healthHandler)
	mux.Handle("/metrics", a.healthHandler)
	mux.Handle("/", a.appHTTPHandler)

	a.server = &http.Server{
		Addr:         ":" + a.cfg.Port,
		Handler:      mux,
		ReadTimeout:  a.cfg.ReadTimeout,
		WriteTimeout: a.cfg.WriteTimeout,
		IdleTimeout:  a.cfg.IdleTimeout,
	}

	a.cfg.Log.Info("HTTP server configured", "port", a.cfg.Port)
}

func (a *Application) Run() {
	workerCtx, stopWorkers := context.WithCancel(context.Background())
	defer stopWorkers()

	var wg sync.WaitGroup
	for _, w := range a.workers {
		wg.Add(1)
		go func(w namedWorker) {
			defer wg.Done()
			a.cfg.Log.Info("Starting background worker", "worker", w.name)
			if err := w.run(workerCtx); err != nil && !errors.Is(err, context.Canceled) {
				a.cfg.Log.Error("Background worker stopped with error", "worker", w.name, "error", err)
			}
		}(w)
	}

	serverErrors := make(chan error, 1)
	go func() {
		a.cfg.Log.Info("Starting HTTP server", "address", a.server.Addr)
		serverErrors <- a.server.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		a.cfg.Log.Fatal("HTTP server failed", "error", err)

	case sig := <-shutdown:
		a.cfg.Log.Info("Shutdown signal received", "signal", sig)
		stopWorkers()
		a.gracefulShutdown(&wg)
	}
}

func (a *Application) gracefulShutdown(workers *sync.WaitGroup) {
	a.cfg.Log.Info("Starting graceful shutdown...")

	ctx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
	defer cancel()

	if err := a.server.Shutdown(ctx); err != nil {
		a.cfg.Log.Error("Server shutdown failed", "error", err)
		if err := a.server.Close(); err != nil {
			a.cfg.Log.Error("Could not stop server gracefully", "error", err)
		}
	}

	a.cfg.Log.Info("Stopping background workers...")
	done := make(chan struct{})
	go func() {
		workers.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		a.cfg.Log.Warn("Background workers did not stop before shutdown timeout")
	}
	a.idempotencyStore.Stop()
	a.rateLimiter.Stop()

	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](ctx); err != nil {
			a.cfg.Log.Error("Shutdown hook failed", "error", err)
		}
	}

	a.cfg.GracefulShutdown()
	a.cfg.Log.Info("Server stopped gracefully")
}
