// Package registry is the ordered recognizer catalog. Catalog order is the
// precedence used to break ties between equally scored duplicates.
package registry

import (
	"context"
	"fmt"
	"os"
	"sort"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/redactyl/piiscan/internal/errs"
	"github.com/redactyl/piiscan/internal/nlp"
	"github.com/redactyl/piiscan/internal/recognizers"
)

// Registry holds recognizers in insertion order and tracks which of them
// have been loaded. It is safe for concurrent use.
type Registry struct {
	mu   sync.RWMutex
	list []recognizers.Recognizer

	loadMu sync.Mutex
	loaded map[string]bool
	group  singleflight.Group
}

// New returns an empty registry.
func New() *Registry {
	return &Registry{loaded: map[string]bool{}}
}

// NewDefault returns a registry with the predefined catalog for languages.
func NewDefault(languages ...string) *Registry {
	r := New()
	_ = r.LoadPredefined(languages...)
	return r
}

// Add appends recognizers. Names must be unique.
func (r *Registry) Add(rs ...recognizers.Recognizer) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, rec := range rs {
		if rec == nil || rec.Name() == "" {
			return errs.Invalid("recognizer", "missing name")
		}
		for _, have := range r.list {
			if have.Name() == rec.Name() {
				return errs.Invalid("recognizer", "duplicate name %q", rec.Name())
			}
		}
		r.list = append(r.list, rec)
	}
	return nil
}

// Remove deletes the named recognizer and forgets its load state.
func (r *Registry) Remove(name string) bool {
	r.mu.Lock()
	removed := false
	for i, rec := range r.list {
		if rec.Name() == name {
			r.list = append(r.list[:i:i], r.list[i+1:]...)
			removed = true
			break
		}
	}
	r.mu.Unlock()
	if removed {
		r.loadMu.Lock()
		delete(r.loaded, name)
		r.loadMu.Unlock()
	}
	return removed
}

// Get returns the named recognizer.
func (r *Registry) Get(name string) (recognizers.Recognizer, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, rec := range r.list {
		if rec.Name() == name {
			return rec, true
		}
	}
	return nil, false
}

// All returns a snapshot of the catalog in order.
func (r *Registry) All() []recognizers.Recognizer {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]recognizers.Recognizer(nil), r.list...)
}

// LoadPredefined adds the built-in recognizers.
func (r *Registry) LoadPredefined(languages ...string) error {
	return r.Add(recognizers.Predefined(languages...)...)
}

// LoadYAML adds custom recognizers described in YAML.
func (r *Registry) LoadYAML(data []byte) error {
	defs, err := recognizers.ParseDefinitions(data)
	if err != nil {
		return err
	}
	return r.LoadDefinitions(defs)
}

// LoadYAMLFile reads path and calls LoadYAML.
func (r *Registry) LoadYAMLFile(path string) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read recognizers %s: %w", path, err)
	}
	return r.LoadYAML(b)
}

// LoadDefinitions builds and adds defs.
func (r *Registry) LoadDefinitions(defs []recognizers.Definition) error {
	rs, err := recognizers.BuildAll(defs)
	if err != nil {
		return err
	}
	return r.Add(rs...)
}

// Recognizers returns, in catalog order, the recognizers that support
// language and, unless all is set, serve at least one of entities.
func (r *Registry) Recognizers(language string, entities []string, all bool) []recognizers.Recognizer {
	lang := nlp.NormalizeLanguage(language)
	var out []recognizers.Recognizer
	for _, rec := range r.All() {
		if !recognizers.Supports(rec, lang) {
			continue
		}
		if !all && !recognizers.Serves(rec, entities) {
			continue
		}
		out = append(out, rec)
	}
	return out
}

// SupportedEntities is the sorted union of entity types declared by the
// recognizers that support language.
func (r *Registry) SupportedEntities(language string) []string {
	seen := map[string]bool{}
	var out []string
	for _, rec := range r.Recognizers(language, nil, true) {
		for _, e := range rec.SupportedEntities() {
			if !seen[e] {
				seen[e] = true
				out = append(out, e)
			}
		}
	}
	sort.Strings(out)
	return out
}

// Languages is the sorted union of languages declared by the catalog.
func (r *Registry) Languages() []string {
	seen := map[string]bool{}
	var out []string
	for _, rec := range r.All() {
		for _, l := range rec.SupportedLanguages() {
			if !seen[l] {
				seen[l] = true
				out = append(out, l)
			}
		}
	}
	sort.Strings(out)
	return out
}

// IsLoaded reports whether the named recognizer finished Load successfully.
func (r *Registry) IsLoaded(name string) bool {
	r.loadMu.Lock()
	defer r.loadMu.Unlock()
	return r.loaded[name]
}

// EnsureLoaded runs rec.Load at most once per name, however many callers
// race on it. A failed load is not cached. The load is shared by every
// waiting caller, so it runs detached from the first caller's cancellation.
func (r *Registry) EnsureLoaded(ctx context.Context, rec recognizers.Recognizer) error {
	name := rec.Name()
	if r.IsLoaded(name) {
		return nil
	}
	_, err, _ := r.group.Do(name, func() (any, error) {
		if r.IsLoaded(name) {
			return nil, nil
		}
		if err := rec.Load(context.WithoutCancel(ctx)); err != nil {
			return nil, &errs.RecognizerError{Recognizer: name, Op: "load", Err: err}
		}
		r.loadMu.Lock()
		r.loaded[name] = true
		r.loadMu.Unlock()
		return nil, nil
	})
	return err
}
