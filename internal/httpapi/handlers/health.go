// Package handlers contains the HTTP handlers for the scan core's thin
// submit/poll API (§6), in huma's request/response-struct idiom.
package handlers

import (
	"context"

	"github.com/jmylchreest/usercheck/internal/version"
)

// HealthOutput is the health check response body.
type HealthOutput struct {
	Body struct {
		Status  string `json:"status"`
		Version string `json:"version"`
	}
}

// Health reports liveness and build version.
func Health(_ context.Context, _ *struct{}) (*HealthOutput, error) {
	out := &HealthOutput{}
	out.Body.Status = "ok"
	out.Body.Version = version.Get().Version
	return out, nil
}
