// Command scancore runs the scan core's HTTP API (§6): submit/poll/cancel
// a username scan job, plus the reverse-image helper. Wiring order:
// logger, config, dependencies, router, middleware chain, huma API,
// graceful shutdown.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"

	"github.com/jmylchreest/usercheck/internal/addons"
	"github.com/jmylchreest/usercheck/internal/addons/avatarfp"
	"github.com/jmylchreest/usercheck/internal/addons/facematch"
	"github.com/jmylchreest/usercheck/internal/config"
	"github.com/jmylchreest/usercheck/internal/httpapi/handlers"
	"github.com/jmylchreest/usercheck/internal/httpclient"
	"github.com/jmylchreest/usercheck/internal/jobs"
	"github.com/jmylchreest/usercheck/internal/logging"
	"github.com/jmylchreest/usercheck/internal/models"
	"github.com/jmylchreest/usercheck/internal/provider"
	"github.com/jmylchreest/usercheck/internal/ratelimit"
	"github.com/jmylchreest/usercheck/internal/registry"
	"github.com/jmylchreest/usercheck/internal/scanner"
	"github.com/jmylchreest/usercheck/internal/version"
)

func main() {
	logger := logging.SetDefault()

	v := version.Get()
	logger.Info("starting scancore",
		"version", v.Version,
		"commit", v.Commit,
		"built", v.Date,
		"go_version", v.GoVersion,
	)

	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	httpFactory := httpclient.NewFactory(cfg.OnionSOCKSProxyURL)
	rateLimiter := ratelimit.New(cfg.GlobalConcurrency, cfg.PerHostRate, cfg.PerHostBurst)

	deps := provider.Deps{HTTPFactory: httpFactory, RateLimiter: rateLimiter}

	codeDrivers := []registry.CodeDriverFactory{
		{Name: "github", Provider: models.Provider{URL: "https://api.github.com/users/{username}"}},
		{Name: "reddit", Provider: models.Provider{URL: "https://www.reddit.com/user/{username}/about.json"}},
		{Name: "hibp", Provider: models.Provider{URL: "https://haveibeenpwned.com/api/v3/breachedaccount/{username}"}},
	}

	reg := registry.New(cfg.ProviderYAMLPaths, codeDrivers, logger)
	if err := reg.Load(); err != nil {
		logger.Error("failed to load provider registry", "error", err)
		os.Exit(1)
	}

	drivers := map[string]provider.Driver{
		"github": provider.Safe(provider.GitHubDriver{Deps: deps, Token: cfg.GitHubAPIToken}),
		"reddit": provider.Safe(provider.RedditDriver{Deps: deps}),
		"hibp":   provider.Safe(provider.HIBPDriver{Deps: deps, Token: cfg.HIBPAPIToken}),
	}
	generic := provider.Safe(provider.GenericDriver{Deps: deps})

	store := jobs.New(cfg.JobStoreCapacity, cfg.JobRetention)
	go evictLoop(store, cfg.JobRetention)

	pipeline := addons.Pipeline{
		AvatarFetcher:       avatarfp.Fetcher{HTTPFactory: httpFactory},
		AvatarHashThreshold: cfg.AvatarHashThreshold,
		FaceMatcher: &facematch.Matcher{
			Engine:   facematch.UnavailableEngine{},
			Distance: cfg.FaceMatchDistance,
		},
	}

	engine := &scanner.Engine{
		Registry:     reg,
		Drivers:      drivers,
		Generic:      generic,
		Store:        store,
		Addons:       pipeline,
		ScanDeadline: cfg.ScanDeadline,
		Logger:       logger,
	}

	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	router.Use(middleware.RequestSize(1 * 1024 * 1024))
	router.Use(httprate.LimitByIP(100, time.Minute))

	humaConfig := huma.DefaultConfig("Scancore API", v.Short())
	humaConfig.Info.Description = "Username-presence scanning core: submit a username, poll results, cancel a job."
	api := humachi.New(router, humaConfig)

	jobHandler := handlers.NewJobHandler(engine, store)

	huma.Get(api, "/api/v1/health", handlers.Health)
	huma.Post(api, "/api/v1/scans", jobHandler.Submit)
	huma.Get(api, "/api/v1/scans/{job_id}", jobHandler.Poll)
	huma.Post(api, "/api/v1/scans/{job_id}/cancel", jobHandler.Cancel)
	huma.Get(api, "/api/v1/reverse-image", handlers.ReverseImage)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGTERM, syscall.SIGINT)
		<-sigChan

		logger.Info("shutting down server")

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("server shutdown error", "error", err)
		}
	}()

	logger.Info("starting server", "port", cfg.Port)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("server error", "error", err)
		os.Exit(1)
	}

	logger.Info("server stopped")
}

// evictLoop periodically sweeps jobs past their retention window (§4.I).
func evictLoop(store *jobs.Store, retention time.Duration) {
	if retention <= 0 {
		retention = 30 * time.Minute
	}
	ticker := time.NewTicker(retention / 2)
	defer ticker.Stop()
	for now := range ticker.C {
		store.EvictExpired(now)
	}
}
