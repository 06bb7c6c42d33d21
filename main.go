// main.go
package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"blackmarket/internal/api"
	"blackmarket/internal/catalog"
	"blackmarket/internal/cleanup"
	"blackmarket/internal/config"
	"blackmarket/internal/host"
	"blackmarket/internal/info"
	"blackmarket/internal/journal"
	"blackmarket/internal/logger"
	"blackmarket/internal/middleware"
	"blackmarket/internal/render"
	"blackmarket/internal/session"
)

type App struct {
	addr          string
	mux           *http.ServeMux
	ws            http.Handler
	connections   sync.WaitGroup
	totalRequests int64
}

func main() {
	// Step 1: Setup configuration first
	config.LoadEnv()

	// Step 2: Setup logging
	if err := logger.SetupLogger(config.LoggerConfig()); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Close()
	logger.LogInfo("Environment loaded. Logger ready.")
	config.LogCurrentEnvironment()

	// Step 3: Server settings and the visuals table
	cfg := config.LoadServerConfig()

	visuals, err := catalog.LoadVisuals(cfg.VisualsPath)
	if err != nil {
		logger.LogFatal("Failed to load visuals: %v", err)
	}

	// Step 4: Optional intent journal
	var store *journal.Store
	var recorder host.Recorder
	var reader info.JournalReader
	if cfg.JournalPath != "" {
		store, err = journal.Open(cfg.JournalPath)
		if err != nil {
			logger.LogFatal("Failed to open intent journal: %v", err)
		}
		defer store.Close()
		recorder, reader = store, store
	}

	// Step 5: Host transport, renderer and the session loop
	client := host.NewClient(cfg.CallbackBase, cfg.CallbackTimeout, recorder)
	hub := render.NewHub(cfg.AllowedOrigin)
	loop := session.NewLoop(session.Options{
		Emitter:  client,
		Renderer: hub,
		Visuals:  visuals,
	}, 64)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go loop.Run(ctx)

	// Step 6: Start background tasks
	if store != nil {
		cleanup.StartCleanupRoutine(ctx, store, time.Duration(cfg.RetentionHours)*time.Hour)
	}

	// Step 7: Setup app
	infoHandler := info.NewHandler(info.Sources{
		Loop:    loop,
		Journal: reader,
		Delivery: func() (int64, int64) {
			s := client.Stats()
			return s.Delivered, s.Dropped
		},
		Clients: hub.Clients,
		Frames:  hub.Frames,
		Started: time.Now(),
	})
	limiter := middleware.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst)

	app := &App{
		addr: cfg.Addr(),
		mux:  routes(api.New(loop), infoHandler, limiter),
		ws:   middleware.RequestID(middleware.Logging(hub.ServeHTTP)),
	}

	// Step 8: Run server
	app.Run()

	cancel()
	<-loop.Done()
	logger.LogInfo("Waiting for in-flight intents...")
	client.Wait()
}

// routes sets up all API routes
func routes(handlers *api.Handlers, infoHandler *info.Handler, limiter *middleware.RateLimiter) *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})
	mux.HandleFunc("/info", infoHandler.InfoPageHandler)
	mux.HandleFunc("/api/info/stats", middleware.APIMiddleware(infoHandler.StatsHandler))

	ui := func(next http.HandlerFunc) http.HandlerFunc {
		return middleware.UIMiddleware(limiter, next)
	}
	handlers.Register(mux, middleware.APIMiddleware, ui)

	return mux
}

// Run starts the HTTP server

func (a *App) Run() {
	server := &http.Server{
		Addr:         a.addr,
		Handler:      a.Handler(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Channel to listen for shutdown signals
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	// Start server in a separate goroutine
	go func() {
		logger.LogInfo("Starting server on %s", a.addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.LogFatal("Server failed: %v", err)
		}
	}()

	// Wait for a shutdown signal
	<-stop
	logger.LogInfo("Shutdown signal received")

	// Create context with timeout for shutdown
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Shutdown the server gracefully
	if err := server.Shutdown(ctx); err != nil {
		logger.LogError("Server shutdown error: %v", err)
	}

	// Wait for active connections to finish
	logger.LogInfo("Waiting for active connections to finish...")
	a.connections.Wait()
	logger.LogInfo("All connections closed. Total requests handled: %d", atomic.LoadInt64(&a.totalRequests))
	logger.LogInfo("Server shut down gracefully")
}

// Handler assembles all middleware around the main mux. The websocket route
// skips the timeout and 404 wrappers since it hijacks the connection.
func (a *App) Handler() http.Handler {
	var handler http.Handler = a.mux

	handler = withCustom404(handler)
	handler = a.trackConnections(handler)
	handler = logRequests(handler)
	handler = withTimeout(handler, 15*time.Second)

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/ui/ws" && a.ws != nil {
			a.ws.ServeHTTP(w, r)
			return
		}
		handler.ServeHTTP(w, r)
	})
}

// Middleware: timeout handler
func withTimeout(h http.Handler, timeout time.Duration) http.Handler {
	return http.TimeoutHandler(h, timeout, "Request timed out")
}

// Middleware: log requests
func logRequests(h http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		h.ServeHTTP(w, r)

		logger.LogDebug("%s %s took %v", r.Method, r.URL.Path, time.Since(start))
	})
}

// Middleware: track active connections and total requests
func (a *App) trackConnections(h http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		a.connections.Add(1)
		atomic.AddInt64(&a.totalRequests, 1)
		defer a.connections.Done()

		h.ServeHTTP(w, r)
	})
}

// Middleware: JSON 404 for unknown routes
func withCustom404(h http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		crw := &captureResponseWriter{ResponseWriter: w}

		h.ServeHTTP(crw, r)

		if crw.notFound {
			logger.LogInfo("404 not found: %s", r.URL.Path)
			middleware.WriteAPIError(w, r, http.StatusNotFound, "not_found", "No such endpoint", r.URL.Path)
		}
	})
}

// captureResponseWriter swallows the mux's plain-text 404 so withCustom404 can
// replace it.
type captureResponseWriter struct {
	http.ResponseWriter
	written  bool
	notFound bool
}

func (crw *captureResponseWriter) WriteHeader(code int) {
	if crw.written {
		return
	}
	crw.written = true
	if code == http.StatusNotFound {
		crw.notFound = true
		return
	}
	crw.ResponseWriter.WriteHeader(code)
}

func (crw *captureResponseWriter) Write(b []byte) (int, error) {
	if !crw.written {
		crw.WriteHeader(http.StatusOK)
	}
	if crw.notFound {
		return len(b), nil
	}
	return crw.ResponseWriter.Write(b)
}
