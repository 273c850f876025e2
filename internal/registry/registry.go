// Package registry loads provider descriptors from YAML and merges them
// with code-backed drivers (§4.C). It exposes a stable, atomically
// replaced snapshot so concurrent scans never observe a torn reload.
package registry

import (
	"fmt"
	"log/slog"
	"os"
	"sync"
	"sync/atomic"

	"github.com/jmylchreest/usercheck/internal/models"
	"gopkg.in/yaml.v3"
)

// yamlProvider is the on-disk shape of one YAML provider document entry
// (§6 external interface: provider descriptor YAML).
type yamlProvider struct {
	URL             string              `yaml:"url"`
	Method          string              `yaml:"method"`
	Timeout         int                 `yaml:"timeout"`
	UAProfile       string              `yaml:"ua_profile"`
	Headers         map[string]string   `yaml:"headers"`
	SuccessPatterns []string            `yaml:"success_patterns"`
	ErrorPatterns   []string            `yaml:"error_patterns"`
	BlockedPatterns []string            `yaml:"blocked_patterns"`
	Regex           bool                `yaml:"regex"`
	JSONEndpoint    string              `yaml:"json_endpoint"`
	PresenceHint    string              `yaml:"presence_hint"`
}

// CodeDriverFactory constructs a Provider descriptor for a code-backed
// driver registered under name; the registry marks it CodeBacked so the
// scan engine knows to dispatch through the provider package's code
// driver table instead of the generic data driver (§4.C, §4.F).
type CodeDriverFactory struct {
	Name     string
	Provider models.Provider
}

// Registry holds an atomically-replaceable snapshot of provider
// descriptors (§4.C, §5 "readers keep the snapshot they started with").
type Registry struct {
	snapshot atomic.Pointer[snapshot]

	mu          sync.Mutex // serializes concurrent Reload calls only
	yamlPaths   []string
	codeDrivers []CodeDriverFactory
	logger      *slog.Logger
}

type snapshot struct {
	byName  map[string]models.Provider
	ordered []string
}

// New constructs a Registry from one or more YAML document paths and a
// fixed list of code-driver factories (registration order is preserved
// as the code-drivers-first ordering rule in §4.C).
func New(yamlPaths []string, codeDrivers []CodeDriverFactory, logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		yamlPaths:   yamlPaths,
		codeDrivers: codeDrivers,
		logger:      logger,
	}
}

// Load performs the initial load; it is equivalent to Reload but fails
// fast on first construction rather than leaving a stale snapshot.
func (r *Registry) Load() error {
	return r.Reload()
}

// Reload re-reads all YAML inputs and re-merges with the fixed code
// driver list, replacing the snapshot atomically (§4.C, §5). Invalid
// regex patterns are a config error and exclude only the offending
// provider (§7 "config" error kind), logged, not fatal to the whole load.
func (r *Registry) Reload() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	byName := make(map[string]models.Provider)
	var order []string

	for _, path := range r.yamlPaths {
		docProviders, err := loadYAMLFile(path)
		if err != nil {
			return fmt.Errorf("registry: loading %s: %w", path, err)
		}
		for _, name := range docProviders.order {
			p := docProviders.byName[name]
			p.Name = name
			if err := p.Compile(); err != nil {
				r.logger.Warn("registry: excluding provider with invalid pattern",
					"provider", name, "error", err)
				continue
			}
			if _, exists := byName[name]; !exists {
				order = append(order, name)
			}
			byName[name] = p
		}
	}

	// Code drivers are merged first in registration order (§4.C), then
	// override any YAML descriptor of the same name.
	codeOrder := make([]string, 0, len(r.codeDrivers))
	for _, cd := range r.codeDrivers {
		p := cd.Provider
		p.Name = cd.Name
		p.CodeBacked = true
		if _, existedAsYAML := byName[cd.Name]; existedAsYAML {
			r.logger.Info("registry: code driver overrides YAML provider", "provider", cd.Name)
		}
		byName[cd.Name] = p
		codeOrder = append(codeOrder, cd.Name)
	}

	finalOrder := make([]string, 0, len(codeOrder)+len(order))
	finalOrder = append(finalOrder, codeOrder...)
	for _, name := range order {
		if !contains(codeOrder, name) {
			finalOrder = append(finalOrder, name)
		}
	}

	r.snapshot.Store(&snapshot{byName: byName, ordered: finalOrder})
	return nil
}

// Get returns the provider descriptor for name and whether it exists.
func (r *Registry) Get(name string) (models.Provider, bool) {
	snap := r.snapshot.Load()
	if snap == nil {
		return models.Provider{}, false
	}
	p, ok := snap.byName[name]
	return p, ok
}

// List returns the stable ordered list of all providers in the current
// snapshot (code drivers first by registration order, then YAML
// providers by file+document order, per §4.C).
func (r *Registry) List() []models.Provider {
	snap := r.snapshot.Load()
	if snap == nil {
		return nil
	}
	out := make([]models.Provider, 0, len(snap.ordered))
	for _, name := range snap.ordered {
		out = append(out, snap.byName[name])
	}
	return out
}

// Subset returns the providers named in names, in registry order,
// silently dropping unknown names (§4.G). An empty or nil names list
// means "all providers".
func (r *Registry) Subset(names []string) []models.Provider {
	all := r.List()
	if len(names) == 0 {
		return all
	}
	want := make(map[string]bool, len(names))
	for _, n := range names {
		want[n] = true
	}
	out := make([]models.Provider, 0, len(names))
	for _, p := range all {
		if want[p.Name] {
			out = append(out, p)
		}
	}
	return out
}

type yamlDoc struct {
	byName map[string]models.Provider
	order  []string
}

func loadYAMLFile(path string) (yamlDoc, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return yamlDoc{}, err
	}

	var raw map[string]yamlProvider
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return yamlDoc{}, fmt.Errorf("parsing yaml: %w", err)
	}

	// The map parse loses key order, so read the top-level keys from the
	// node tree to keep document order.
	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return yamlDoc{}, fmt.Errorf("parsing yaml: %w", err)
	}
	names := make([]string, 0, len(raw))
	if len(root.Content) > 0 && root.Content[0].Kind == yaml.MappingNode {
		m := root.Content[0]
		for i := 0; i+1 < len(m.Content); i += 2 {
			names = append(names, m.Content[i].Value)
		}
	}

	byName := make(map[string]models.Provider, len(raw))
	for _, name := range names {
		yp := raw[name]
		if yp.URL == "" {
			return yamlDoc{}, fmt.Errorf("provider %q: url is required", name)
		}
		byName[name] = models.Provider{
			Name:            name,
			URL:             yp.URL,
			Method:          yp.Method,
			TimeoutSeconds:  yp.Timeout,
			UAProfile:       yp.UAProfile,
			Headers:         yp.Headers,
			SuccessPatterns: yp.SuccessPatterns,
			ErrorPatterns:   yp.ErrorPatterns,
			BlockedPatterns: yp.BlockedPatterns,
			Regex:           yp.Regex,
			JSONEndpoint:    yp.JSONEndpoint,
			PresenceHint:    yp.PresenceHint,
		}
	}

	return yamlDoc{byName: byName, order: names}, nil
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
