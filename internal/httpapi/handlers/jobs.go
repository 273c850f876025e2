package handlers

import (
	"context"
	"errors"

	"github.com/danielgtaylor/huma/v2"

	"github.com/jmylchreest/usercheck/internal/jobs"
	"github.com/jmylchreest/usercheck/internal/models"
	"github.com/jmylchreest/usercheck/internal/scanner"
)

// JobHandler exposes the scan engine's submit/poll operations over HTTP
// (§6 "Submit request"/"Poll request").
type JobHandler struct {
	engine *scanner.Engine
	store  *jobs.Store
}

// NewJobHandler constructs a JobHandler.
func NewJobHandler(engine *scanner.Engine, store *jobs.Store) *JobHandler {
	return &JobHandler{engine: engine, store: store}
}

// SubmitInput is the §6 submit request body.
type SubmitInput struct {
	Body struct {
		Username  string   `json:"username"`
		Providers []string `json:"providers"`
	}
}

// SubmitOutput is the §6 submit response body.
type SubmitOutput struct {
	Body struct {
		JobID string `json:"job_id"`
	}
}

// Submit creates a scan job and returns its id immediately (§4.I
// submit, §6 "Submit request"). 400 when username is empty or >64
// chars (enforced by scanner.SanitizeUsername).
func (h *JobHandler) Submit(ctx context.Context, in *SubmitInput) (*SubmitOutput, error) {
	job, err := h.engine.Submit(in.Body.Username, in.Body.Providers)
	if err != nil {
		return nil, huma.Error400BadRequest(err.Error())
	}
	out := &SubmitOutput{}
	out.Body.JobID = job.ID
	return out, nil
}

// PollInput is the §6 poll request: path job_id, optional query limit.
type PollInput struct {
	JobID string `path:"job_id"`
	Limit int    `query:"limit" default:"-1"`
}

// PollOutput is the §4.I Job projection (§6 "Poll request").
type PollOutput struct {
	Body struct {
		JobID          string          `json:"job_id"`
		Username       string          `json:"username"`
		State          models.JobState `json:"state"`
		Error          string          `json:"error,omitempty"`
		ProvidersCount int             `json:"providers_count"`
		ResultsCount   int             `json:"results_count"`
		FoundCount     int             `json:"found_count"`
		FailedCount    int             `json:"failed_count"`
		Results        []models.Result `json:"results"`
	}
}

// Poll returns the current projection of a job (§4.I get, §6 "Poll
// request"). 404 when the job is unknown or has been evicted.
func (h *JobHandler) Poll(ctx context.Context, in *PollInput) (*PollOutput, error) {
	view, err := h.store.Get(in.JobID, in.Limit)
	if err != nil {
		if errors.Is(err, jobs.ErrNotFound) {
			return nil, huma.Error404NotFound("job not found")
		}
		return nil, huma.Error500InternalServerError("job lookup failed: " + err.Error())
	}

	out := &PollOutput{}
	out.Body.JobID = view.JobID
	out.Body.Username = view.Username
	out.Body.State = view.State
	out.Body.Error = view.Error
	out.Body.ProvidersCount = view.ProvidersCount
	out.Body.ResultsCount = view.ResultsCount
	out.Body.FoundCount = view.FoundCount
	out.Body.FailedCount = view.FailedCount
	out.Body.Results = view.Results
	return out, nil
}

// CancelInput is the cancel request path.
type CancelInput struct {
	JobID string `path:"job_id"`
}

// CancelOutput confirms cancellation.
type CancelOutput struct {
	Body struct {
		Status string `json:"status"`
	}
}

// Cancel marks a running job failed with error "cancelled" (§4.I).
func (h *JobHandler) Cancel(ctx context.Context, in *CancelInput) (*CancelOutput, error) {
	if err := h.store.Cancel(in.JobID); err != nil {
		if errors.Is(err, jobs.ErrNotFound) {
			return nil, huma.Error404NotFound("job not found")
		}
		return nil, huma.Error500InternalServerError("cancel failed: " + err.Error())
	}
	out := &CancelOutput{}
	out.Body.Status = "cancelled"
	return out, nil
}
