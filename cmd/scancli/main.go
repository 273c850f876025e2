// Command scancli is a thin command-line wrapper around the scan core
// (§6 "Exit codes (CLI wrapper)"). It parses no flags beyond stdlib
// `flag` for the one positional username argument and -providers,
// configuring everything else from config.Load(): submits one scan,
// polls until terminal, and prints the result.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/jmylchreest/usercheck/internal/addons"
	"github.com/jmylchreest/usercheck/internal/addons/avatarfp"
	"github.com/jmylchreest/usercheck/internal/addons/facematch"
	"github.com/jmylchreest/usercheck/internal/config"
	"github.com/jmylchreest/usercheck/internal/httpclient"
	"github.com/jmylchreest/usercheck/internal/jobs"
	"github.com/jmylchreest/usercheck/internal/logging"
	"github.com/jmylchreest/usercheck/internal/models"
	"github.com/jmylchreest/usercheck/internal/provider"
	"github.com/jmylchreest/usercheck/internal/ratelimit"
	"github.com/jmylchreest/usercheck/internal/registry"
	"github.com/jmylchreest/usercheck/internal/scanner"
)

// Exit codes (§6).
const (
	exitOK           = 0
	exitInvalidArgs  = 2
	exitScanFailed   = 3
	pollInterval     = 500 * time.Millisecond
)

func main() {
	os.Exit(run())
}

func run() int {
	logger := logging.SetDefault()

	providersFlag := flag.String("providers", "", "comma-separated list of provider names to scan (default: all)")
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "usage: %s [-providers a,b,c] <username>\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	if flag.NArg() != 1 {
		flag.Usage()
		return exitInvalidArgs
	}
	username := flag.Arg(0)

	var providerNames []string
	if *providersFlag != "" {
		for _, p := range strings.Split(*providersFlag, ",") {
			if p = strings.TrimSpace(p); p != "" {
				providerNames = append(providerNames, p)
			}
		}
	}

	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load configuration", "error", err)
		return exitInvalidArgs
	}

	engine, store, err := buildEngine(cfg, logger)
	if err != nil {
		logger.Error("failed to build scan engine", "error", err)
		return exitInvalidArgs
	}

	job, err := engine.Submit(username, providerNames)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return exitInvalidArgs
	}

	view, err := waitForTerminal(context.Background(), store, job.ID, cfg.ScanDeadline)
	if err != nil {
		logger.Error("polling job failed", "error", err)
		return exitInvalidArgs
	}

	out, err := json.MarshalIndent(view, "", "  ")
	if err != nil {
		logger.Error("failed to marshal result", "error", err)
		return exitInvalidArgs
	}
	fmt.Println(string(out))

	if view.State == models.JobFailed {
		return exitScanFailed
	}
	return exitOK
}

// waitForTerminal polls the store until the job reaches a terminal
// state (done/failed) or deadline elapses.
func waitForTerminal(ctx context.Context, store *jobs.Store, jobID string, deadline time.Duration) (models.JobView, error) {
	if deadline <= 0 {
		deadline = 180 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, deadline+10*time.Second)
	defer cancel()

	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		view, err := store.Get(jobID, -1)
		if err != nil {
			return models.JobView{}, err
		}
		if view.State == models.JobDone || view.State == models.JobFailed {
			return view, nil
		}
		select {
		case <-ctx.Done():
			return view, nil
		case <-ticker.C:
		}
	}
}

func buildEngine(cfg *config.Config, logger *slog.Logger) (*scanner.Engine, *jobs.Store, error) {
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
		return nil, nil, err
	}

	drivers := map[string]provider.Driver{
		"github": provider.Safe(provider.GitHubDriver{Deps: deps, Token: cfg.GitHubAPIToken}),
		"reddit": provider.Safe(provider.RedditDriver{Deps: deps}),
		"hibp":   provider.Safe(provider.HIBPDriver{Deps: deps, Token: cfg.HIBPAPIToken}),
	}
	generic := provider.Safe(provider.GenericDriver{Deps: deps})

	store := jobs.New(cfg.JobStoreCapacity, cfg.JobRetention)

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

	return engine, store, nil
}
