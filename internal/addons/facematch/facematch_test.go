package facematch

import (
	"context"
	"testing"
)

type stubEngine struct {
	available bool
	vec       []float64
	ok        bool
	reason    string
}

func (s stubEngine) Descriptor(_ context.Context, _ []byte) ([]float64, bool, string) {
	return s.vec, s.ok, s.reason
}

func (s stubEngine) Available() bool { return s.available }

func TestUnavailableEngine(t *testing.T) {
	e := UnavailableEngine{}
	if e.Available() {
		t.Fatal("expected UnavailableEngine to report unavailable")
	}
	_, ok, reason := e.Descriptor(context.Background(), nil)
	if ok || reason != "engine_unavailable" {
		t.Fatalf("got ok=%v reason=%q", ok, reason)
	}
}

func TestMatcher_Match_EngineUnavailable(t *testing.T) {
	m := Matcher{Engine: UnavailableEngine{}, Distance: 0.6}
	match, reason := m.Match(context.Background(), []byte("img"))
	if match != nil {
		t.Fatal("expected nil match")
	}
	if reason != "engine_unavailable" {
		t.Fatalf("got reason %q", reason)
	}
}

func TestMatcher_Match_NoFaceDetected(t *testing.T) {
	m := Matcher{
		Engine:   stubEngine{available: true, ok: false, reason: "no_face"},
		Distance: 0.6,
	}
	match, reason := m.Match(context.Background(), []byte("img"))
	if reason != "" {
		t.Fatalf("expected no propagated error, got %q", reason)
	}
	if match == nil || match.Match || match.Reason != "no_face" {
		t.Fatalf("got %+v", match)
	}
}

func TestMatcher_Match_WithinThreshold(t *testing.T) {
	m := Matcher{
		Engine:        stubEngine{available: true, ok: true, vec: []float64{0, 0, 0}},
		Distance:      0.6,
		ReferenceVecs: [][]float64{{0.1, 0, 0}},
	}
	match, reason := m.Match(context.Background(), []byte("img"))
	if reason != "" {
		t.Fatalf("unexpected error reason %q", reason)
	}
	if match == nil || !match.Match {
		t.Fatalf("expected a match, got %+v", match)
	}
}

func TestMatcher_Match_BeyondThreshold(t *testing.T) {
	m := Matcher{
		Engine:        stubEngine{available: true, ok: true, vec: []float64{10, 10, 10}},
		Distance:      0.6,
		ReferenceVecs: [][]float64{{0, 0, 0}},
	}
	match, reason := m.Match(context.Background(), []byte("img"))
	if reason != "" {
		t.Fatalf("unexpected error reason %q", reason)
	}
	if match == nil || match.Match {
		t.Fatalf("expected no match, got %+v", match)
	}
}

func TestMatcher_Match_NoReferenceVecs(t *testing.T) {
	m := Matcher{
		Engine:   stubEngine{available: true, ok: true, vec: []float64{0, 0, 0}},
		Distance: 0.6,
	}
	match, reason := m.Match(context.Background(), []byte("img"))
	if reason != "" {
		t.Fatalf("unexpected error reason %q", reason)
	}
	if match == nil || match.Match || match.Reason != "no_face" {
		t.Fatalf("got %+v", match)
	}
}
