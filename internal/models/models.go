// Package models defines the domain types shared across the scanning core:
// provider descriptors, probe results, and scan jobs.
package models

import (
	"regexp"
	"time"
)

// Status is the terminal classification of one provider probe (§4.D).
type Status string

const (
	StatusFound    Status = "found"
	StatusNotFound Status = "not_found"
	StatusUnknown  Status = "unknown"
	StatusBlocked  Status = "blocked"
	StatusError    Status = "error"
)

// Valid reports whether s is one of the fixed set of statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusFound, StatusNotFound, StatusUnknown, StatusBlocked, StatusError:
		return true
	default:
		return false
	}
}

// UAProfile is a named bundle of User-Agent and accept-* headers (§3).
type UAProfile struct {
	Name           string
	UserAgent      string
	Accept         string
	AcceptLanguage string
}

// DefaultUAProfileName is used when a provider descriptor omits ua_profile.
const DefaultUAProfileName = "desktop_chrome"

// BuiltinUAProfiles are the recognized named UA bundles (§3).
var BuiltinUAProfiles = map[string]UAProfile{
	"desktop_chrome": {
		Name:           "desktop_chrome",
		UserAgent:      "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36",
		Accept:         "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8",
		AcceptLanguage: "en-US,en;q=0.9",
	},
	"desktop_firefox": {
		Name:           "desktop_firefox",
		UserAgent:      "Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:126.0) Gecko/20100101 Firefox/126.0",
		Accept:         "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8",
		AcceptLanguage: "en-US,en;q=0.5",
	},
	"mobile_safari": {
		Name:           "mobile_safari",
		UserAgent:      "Mozilla/5.0 (iPhone; CPU iPhone OS 17_5 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.5 Mobile/15E148 Safari/604.1",
		Accept:         "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8",
		AcceptLanguage: "en-US,en;q=0.9",
	},
}

// ResolveUAProfile resolves a profile name against the builtin bundle,
// defaulting to DefaultUAProfileName for unknown or empty names.
func ResolveUAProfile(name string) UAProfile {
	if name == "" {
		name = DefaultUAProfileName
	}
	if p, ok := BuiltinUAProfiles[name]; ok {
		return p
	}
	return BuiltinUAProfiles[DefaultUAProfileName]
}

// StatusRule maps a set of HTTP status codes to a terminal Status,
// consulted by the classifier after the provider's patterns and
// heuristics.
type StatusRule struct {
	Codes  []int
	Status Status
}

// Provider is the descriptor for one probed site (§3, §4.C, §6 YAML schema).
// It is data-only unless CodeBacked is set, in which case the registry has
// resolved a same-named code driver over this descriptor (§4.C).
type Provider struct {
	Name            string
	URL             string // contains a single {username} placeholder
	Method          string
	TimeoutSeconds  int
	UAProfile       string
	Headers         map[string]string
	SuccessPatterns []string
	ErrorPatterns   []string
	BlockedPatterns []string
	Regex           bool
	JSONEndpoint    string
	StatusRules     []StatusRule
	PresenceHint    string

	CodeBacked bool

	// compiled* hold the Regex-compiled form of the pattern slices above,
	// populated by Compile at registry-load time (§9: "compile patterns
	// at registry-load time; reject invalid patterns there"). Unused
	// when Regex is false, in which case patterns are matched as
	// case-insensitive substrings directly.
	compiledSuccess []*regexp.Regexp
	compiledError   []*regexp.Regexp
	compiledBlocked []*regexp.Regexp
}

// EffectiveTimeout returns the provider's configured timeout or the
// component-A default of 10s (§4.A).
func (p Provider) EffectiveTimeout() time.Duration {
	if p.TimeoutSeconds <= 0 {
		return 10 * time.Second
	}
	return time.Duration(p.TimeoutSeconds) * time.Second
}

// EffectiveMethod returns the HTTP method, defaulting to GET (§6).
func (p Provider) EffectiveMethod() string {
	if p.Method == "" {
		return "GET"
	}
	return p.Method
}

// Compile precompiles the provider's regex patterns when Regex is set,
// returning a config-kind error on the first invalid pattern (§7: bad
// pattern is a load-time config error, not a scan-time failure).
func (p *Provider) Compile() error {
	if !p.Regex {
		return nil
	}
	var err error
	if p.compiledSuccess, err = compileAll(p.SuccessPatterns); err != nil {
		return err
	}
	if p.compiledError, err = compileAll(p.ErrorPatterns); err != nil {
		return err
	}
	if p.compiledBlocked, err = compileAll(p.BlockedPatterns); err != nil {
		return err
	}
	return nil
}

// CompiledSuccess, CompiledError, CompiledBlocked expose the patterns
// compiled by Compile, for use by the classifier.
func (p Provider) CompiledSuccess() []*regexp.Regexp { return p.compiledSuccess }
func (p Provider) CompiledError() []*regexp.Regexp   { return p.compiledError }
func (p Provider) CompiledBlocked() []*regexp.Regexp { return p.compiledBlocked }

func compileAll(patterns []string) ([]*regexp.Regexp, error) {
	out := make([]*regexp.Regexp, 0, len(patterns))
	for _, p := range patterns {
		re, err := regexp.Compile("(?i)" + p)
		if err != nil {
			return nil, err
		}
		out = append(out, re)
	}
	return out, nil
}

// Profile is the structured bag of fields extracted from a provider
// response (§3), enriched in place by the addon pipeline (§4.H).
type Profile struct {
	DisplayName string `json:"display_name,omitempty"`
	AvatarURL   string `json:"avatar_url,omitempty"`
	Bio         string `json:"bio,omitempty"`
	Followers   *int   `json:"followers,omitempty"`
	Following   *int   `json:"following,omitempty"`
	Subscribers *int   `json:"subscribers,omitempty"`
	CreatedAt   string `json:"created_at,omitempty"`

	// Addon-added fields (§3, §4.H).
	BioDomains      []string   `json:"bio_domains,omitempty"`
	AvatarSHA256    string     `json:"avatar_sha256,omitempty"`
	AvatarDHash     uint64     `json:"avatar_dhash,omitempty"`
	AvatarFetchErr  string     `json:"avatar_fetch_error,omitempty"`
	AvatarClusterID *int       `json:"avatar_cluster_id,omitempty"`
	FaceMatch       *FaceMatch `json:"face_match,omitempty"`
	FaceMatchError  string     `json:"face_match_error,omitempty"`
}

// FaceMatch is the per-result outcome of the face_match addon (§4.H).
type FaceMatch struct {
	Match    bool    `json:"match"`
	Distance float64 `json:"distance"`
	// Reason is "no_face" or an engine-supplied reason such as
	// "unsupported_format". A failed avatar download is reported in
	// Profile.FaceMatchError as "download_failed" instead; "onion_host"
	// is never set.
	Reason string `json:"reason,omitempty"`
}

// Result is the terminal record of one (username, provider) probe (§3).
type Result struct {
	Provider   string  `json:"provider"`
	Status     Status  `json:"status"`
	URL        string  `json:"url"`
	HTTPStatus int     `json:"http_status,omitempty"`
	ElapsedMs  int64   `json:"elapsed_ms"`
	Error      string  `json:"error,omitempty"`
	Profile    Profile `json:"profile"`
}

// JobState is the lifecycle state of a Job (§4.I).
type JobState string

const (
	JobPending JobState = "pending"
	JobRunning JobState = "running"
	JobDone    JobState = "done"
	JobFailed  JobState = "failed"
)

// Job is the aggregate of one scan request (§3). Only the scan engine and
// job manager mutate a Job; callers observe it through JobView snapshots.
type Job struct {
	ID             string    `json:"id"`
	Username       string    `json:"username"`
	ProvidersCount int       `json:"providers_count"`
	Results        []Result  `json:"results"`
	State          JobState  `json:"state"`
	Error          string    `json:"error,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// FoundCount returns the number of results with status=found.
func (j *Job) FoundCount() int {
	n := 0
	for _, r := range j.Results {
		if r.Status == StatusFound {
			n++
		}
	}
	return n
}

// FailedCount returns the number of results with status=error or status=blocked.
func (j *Job) FailedCount() int {
	n := 0
	for _, r := range j.Results {
		if r.Status == StatusError || r.Status == StatusBlocked {
			n++
		}
	}
	return n
}

// JobView is the read projection returned by the job manager's get
// operation (§4.I, §6 poll request).
type JobView struct {
	JobID          string   `json:"job_id"`
	Username       string   `json:"username"`
	State          JobState `json:"state"`
	Error          string   `json:"error,omitempty"`
	ProvidersCount int      `json:"providers_count"`
	ResultsCount   int      `json:"results_count"`
	FoundCount     int      `json:"found_count"`
	FailedCount    int      `json:"failed_count"`
	Results        []Result `json:"results"`
}

// Cluster groups Results whose avatar fingerprints match (§3, §4.H).
type Cluster struct {
	ID        int
	Providers []string
}

// FaceDescriptor is a reference embedding derived from a user-supplied
// image, used by the face_match addon (§3, §4.H).
type FaceDescriptor struct {
	Source string // identifies which reference image this came from
	Vector []float64
}
