// Package scanner implements the scan engine (§4.G): fans providers
// out under the rate/concurrency controller's limits as a bounded
// worker pool consuming from a job-scoped channel, streams each Result
// into the job store as it completes, and runs the addon pipeline once
// every provider is terminal.
package scanner

import (
	"context"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/jmylchreest/usercheck/internal/jobs"
	"github.com/jmylchreest/usercheck/internal/logging"
	"github.com/jmylchreest/usercheck/internal/models"
	"github.com/jmylchreest/usercheck/internal/provider"
	"github.com/jmylchreest/usercheck/internal/registry"
)

// MaxUsernameLength is the §4.G input-sanitization bound.
const MaxUsernameLength = 64

// Addons runs the post-scan enrichment pipeline over a job's results
// (§4.H). Implemented by internal/addons; accepted as an interface here
// so the scanner doesn't import the addon packages directly, keeping
// the fan-out/job-lifecycle concern separate from enrichment.
type Addons interface {
	Run(ctx context.Context, results []models.Result) []models.Result
}

// NoopAddons runs no enrichment; used where the addon pipeline is not
// configured.
type NoopAddons struct{}

func (NoopAddons) Run(_ context.Context, results []models.Result) []models.Result { return results }

// Engine fans a username out across a provider subset and streams
// Results into the job store (§4.G).
type Engine struct {
	Registry     *registry.Registry
	Drivers      map[string]provider.Driver // code-backed drivers keyed by provider name
	Generic      provider.Driver            // fallback for data-only providers
	Store        *jobs.Store
	Addons       Addons
	ScanDeadline time.Duration // job-wide deadline, default 180s (§4.G)
	Logger       *slog.Logger
}

// SanitizeUsername trims, validates length and UTF-8 (§4.G).
func SanitizeUsername(raw string) (string, bool) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" || utf8.RuneCountInString(trimmed) > MaxUsernameLength || !utf8.ValidString(trimmed) {
		return "", false
	}
	return trimmed, true
}

// Submit creates a job and starts the scan asynchronously, returning
// immediately with the job's id (§4.I submit operation).
func (e *Engine) Submit(username string, providerNames []string) (*models.Job, error) {
	clean, ok := SanitizeUsername(username)
	if !ok {
		return nil, errInvalidUsername
	}

	providers := e.Registry.Subset(providerNames)
	job := e.Store.Submit(clean, len(providers))

	go e.run(job.ID, clean, providers)

	return job, nil
}

var errInvalidUsername = &scanError{"username must be non-empty, UTF-8, and at most 64 runes"}

type scanError struct{ msg string }

func (e *scanError) Error() string { return e.msg }

func (e *Engine) run(jobID, username string, providers []models.Provider) {
	deadline := e.ScanDeadline
	if deadline <= 0 {
		deadline = 180 * time.Second
	}
	baseCtx := logging.WithUsername(logging.WithJobID(context.Background(), jobID), username)
	ctx, cancel := context.WithTimeout(baseCtx, deadline)
	defer cancel()

	log := logging.FromContext(ctx, e.logger())

	if err := e.Store.MarkRunning(jobID); err != nil {
		log.Warn("scanner: mark running failed", "error", err)
		return
	}
	log.Info("scanner: job started", "providers", len(providers))

	results := e.fanOut(ctx, jobID, username, providers)

	if e.Addons != nil {
		results = e.Addons.Run(ctx, results)
		if err := e.Store.ReplaceResults(jobID, results); err != nil {
			log.Warn("scanner: replace results failed", "error", err)
		}
	}

	// A fired deadline only cancels outstanding providers (recorded by
	// fanOut as status=error error=cancelled, §4.G); the job itself
	// still reaches state=done unless an internal invariant was
	// violated (§7 — only "internal" errors reach the Job level).
	if err := e.Store.Finish(jobID, models.JobDone, ""); err != nil {
		log.Error("scanner: finish failed", "error", err)
		return
	}
	log.Info("scanner: job finished")
}

// fanOut submits one task per provider to a bounded worker pool sized
// to len(providers) (the rate/concurrency controller inside each
// driver enforces the real global/per-host caps; this pool just bounds
// goroutine creation per job). It returns the final Results slice for
// the addon pipeline.
func (e *Engine) fanOut(ctx context.Context, jobID, username string, providers []models.Provider) []models.Result {
	type outcome struct {
		result models.Result
	}

	log := logging.FromContext(ctx, e.logger())
	out := make(chan outcome, len(providers))

	for _, p := range providers {
		p := p
		go func() {
			select {
			case <-ctx.Done():
				out <- outcome{result: models.Result{
					Provider: p.Name,
					URL:      p.URL,
					Status:   models.StatusError,
					Error:    "cancelled",
				}}
				return
			default:
			}

			driver := e.driverFor(p)
			result := driver.Check(ctx, username, p)
			if result.Status == models.StatusError && ctx.Err() != nil {
				result.Error = "cancelled"
			}
			out <- outcome{result: result}
		}()
	}

	results := make([]models.Result, 0, len(providers))
	for i := 0; i < len(providers); i++ {
		o := <-out
		results = append(results, o.result)
		if err := e.Store.AppendResult(jobID, o.result); err != nil {
			log.Warn("scanner: append result failed", "provider", o.result.Provider, "error", err)
		}
	}

	return results
}

func (e *Engine) driverFor(p models.Provider) provider.Driver {
	if p.CodeBacked {
		if d, ok := e.Drivers[p.Name]; ok {
			return d
		}
	}
	return e.Generic
}

func (e *Engine) logger() *slog.Logger {
	if e.Logger != nil {
		return e.Logger
	}
	return slog.Default()
}
