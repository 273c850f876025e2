// Package addons orchestrates the post-scan enrichment pipeline (§4.H):
// bio_links → avatar_fingerprint → avatar_clusters → face_match, each
// stage reading from and writing to the job's Result records.
package addons

import (
	"context"

	"github.com/jmylchreest/usercheck/internal/addons/avatarfp"
	"github.com/jmylchreest/usercheck/internal/addons/biolinks"
	"github.com/jmylchreest/usercheck/internal/addons/clusters"
	"github.com/jmylchreest/usercheck/internal/addons/facematch"
	"github.com/jmylchreest/usercheck/internal/models"
)

// Pipeline wires the four addon stages together (§4.H). Run skips
// face_match when FaceMatcher is nil; a non-nil FaceMatcher runs even
// when its ReferenceVecs is empty.
type Pipeline struct {
	AvatarFetcher       avatarfp.Fetcher
	AvatarHashThreshold int
	FaceMatcher         *facematch.Matcher
}

// Run executes the addon pipeline in its fixed order and returns the
// enriched Results (§4.H).
func (p Pipeline) Run(ctx context.Context, results []models.Result) []models.Result {
	runBioLinks(results)
	fingerprints := p.runAvatarFingerprint(ctx, results)
	p.runAvatarClusters(results, fingerprints)
	if p.FaceMatcher != nil {
		p.runFaceMatch(ctx, results)
	}
	return results
}

func runBioLinks(results []models.Result) {
	for i := range results {
		bio := results[i].Profile.Bio
		if bio == "" {
			continue
		}
		results[i].Profile.BioDomains = biolinks.Extract(bio)
	}
}

func (p Pipeline) runAvatarFingerprint(ctx context.Context, results []models.Result) []clusters.Item {
	items := make([]clusters.Item, 0, len(results))
	for i := range results {
		avatarURL := results[i].Profile.AvatarURL
		if avatarURL == "" {
			items = append(items, clusters.Item{Provider: results[i].Provider})
			continue
		}

		fp, err := p.AvatarFetcher.Fetch(ctx, avatarURL)
		if err != nil {
			results[i].Profile.AvatarFetchErr = err.Error()
			items = append(items, clusters.Item{Provider: results[i].Provider})
			continue
		}

		results[i].Profile.AvatarSHA256 = fp.SHA256
		results[i].Profile.AvatarDHash = fp.DHash
		items = append(items, clusters.Item{
			Provider: results[i].Provider,
			SHA256:   fp.SHA256,
			DHash:    fp.DHash,
			HasHash:  true,
		})
	}
	return items
}

func (p Pipeline) runAvatarClusters(results []models.Result, items []clusters.Item) {
	threshold := p.AvatarHashThreshold
	if threshold <= 0 {
		threshold = 10
	}
	assignment, _ := clusters.Assign(items, threshold)

	for i := range results {
		if id, ok := assignment[results[i].Provider]; ok {
			v := id
			results[i].Profile.AvatarClusterID = &v
		}
	}
}

func (p Pipeline) runFaceMatch(ctx context.Context, results []models.Result) {
	for i := range results {
		if results[i].Profile.AvatarURL == "" {
			continue
		}

		imageBytes, err := p.AvatarFetcher.FetchBytes(ctx, results[i].Profile.AvatarURL)
		if err != nil {
			results[i].Profile.FaceMatchError = "download_failed"
			continue
		}

		match, errReason := p.FaceMatcher.Match(ctx, imageBytes)
		if errReason != "" {
			results[i].Profile.FaceMatchError = errReason
			continue
		}
		results[i].Profile.FaceMatch = match
	}
}
