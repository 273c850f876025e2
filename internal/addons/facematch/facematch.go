// Package facematch implements the optional face_match addon (§4.H).
// No pure-Go face-embedding library exists anywhere in the retrieval
// pack or without cgo bindings (dlib/OpenCV) — per §9 this is wired as
// a capability interface whose absence is a documented non-failure,
// never a scan-level error.
package facematch

import (
	"context"
	"math"

	"github.com/jmylchreest/usercheck/internal/models"
)

// Engine detects and embeds faces in an image, and compares embeddings
// against reference descriptors. A real implementation (dlib/OpenCV
// cgo bindings, or a remote inference service) can satisfy this
// interface without the addon pipeline changing.
type Engine interface {
	// Descriptor returns the embedding of the largest detected face in
	// image, or ok=false with a reason ("no_face", "unsupported_format")
	// when none is found.
	Descriptor(ctx context.Context, image []byte) (vector []float64, ok bool, reason string)
	// Available reports whether the engine is usable right now.
	Available() bool
}

// UnavailableEngine is the always-present fallback: it never detects a
// face and reports itself unavailable, so the addon attaches
// face_match_error: "engine_unavailable" instead of failing the job
// (§4.H, §9).
type UnavailableEngine struct{}

func (UnavailableEngine) Descriptor(_ context.Context, _ []byte) ([]float64, bool, string) {
	return nil, false, "engine_unavailable"
}

func (UnavailableEngine) Available() bool { return false }

// Matcher runs the face_match addon over a job's results against a set
// of reference descriptors derived from user-supplied images (§3, §4.H).
type Matcher struct {
	Engine        Engine
	Distance      float64 // threshold D, default 0.6
	ReferenceVecs [][]float64
}

// Match computes the outcome for one avatar image. If the engine is
// unavailable, it returns FaceMatchError="engine_unavailable" rather
// than propagating a failure.
func (m Matcher) Match(ctx context.Context, avatarImage []byte) (*models.FaceMatch, string) {
	if !m.Engine.Available() {
		return nil, "engine_unavailable"
	}

	vec, ok, reason := m.Engine.Descriptor(ctx, avatarImage)
	if !ok {
		return &models.FaceMatch{Match: false, Reason: reason}, ""
	}

	minDist, found := minDistance(vec, m.ReferenceVecs)
	if !found {
		return &models.FaceMatch{Match: false, Reason: "no_face"}, ""
	}

	return &models.FaceMatch{
		Match:    minDist <= m.Distance,
		Distance: minDist,
	}, ""
}

func minDistance(v []float64, refs [][]float64) (float64, bool) {
	if len(refs) == 0 {
		return 0, false
	}
	best := euclidean(v, refs[0])
	for _, r := range refs[1:] {
		if d := euclidean(v, r); d < best {
			best = d
		}
	}
	return best, true
}

func euclidean(a, b []float64) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	sum := 0.0
	for i := 0; i < n; i++ {
		d := a[i] - b[i]
		sum += d * d
	}
	return math.Sqrt(sum)
}
