// Package sources implements the source adapters that fetch candidate competition posts
// from social profiles, HTML listing sites and feeds.
package sources

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sort"
	"time"

	"github.com/jonathan/competition-radar/internal/fetch"
	"github.com/jonathan/competition-radar/internal/retry"
	"github.com/jonathan/competition-radar/internal/types"
)

// Source kinds
const (
	KindHTML   = "html"
	KindSocial = "social"
	KindFeed   = "feed"
)

// Adapter fetches candidates from one upstream.
type Adapter interface {
	ID() string
	Origin() types.Origin
	Fetch(ctx context.Context) (*Result, error)
}

// Result is a successful fetch. Warnings carry degraded, non-fatal failures
// (e.g. a rate-limited account) that the collector reports as source errors.
type Result struct {
	Items    []types.CandidateItem
	Warnings []error
}

// Spec configures one adapter.
type Spec struct {
	ID                string
	Kind              string
	Origin            types.Origin
	BaseURL           string
	ListingURL        string
	Preset            string
	Accounts          []string
	Token             string
	ItemCap           int
	Timeout           time.Duration
	RequestsPerSecond float64
	DetailConcurrency int
	RenderWithBrowser bool
	Retry             *retry.Policy
}

// Deps are shared collaborators handed to every adapter.
type Deps struct {
	Client   *http.Client
	Renderer fetch.Renderer
	Logger   *slog.Logger
}

// Factory builds an adapter from its spec.
type Factory func(spec Spec, deps Deps) (Adapter, error)

// Registry keeps a mapping from source kinds to their factories.
type Registry struct {
	factories map[string]Factory
}

// NewRegistry builds a registry with the built-in kinds registered.
func NewRegistry() *Registry {
	r := &Registry{factories: map[string]Factory{}}
	r.Register(KindHTML, func(spec Spec, deps Deps) (Adapter, error) { return NewHTMLAdapter(spec, deps) })
	r.Register(KindSocial, func(spec Spec, deps Deps) (Adapter, error) { return NewSocialAdapter(spec, deps) })
	r.Register(KindFeed, func(spec Spec, deps Deps) (Adapter, error) { return NewFeedAdapter(spec, deps) })
	return r
}

// Register adds or replaces a factory.
func (r *Registry) Register(kind string, f Factory) {
	if r.factories == nil {
		r.factories = map[string]Factory{}
	}
	r.factories[kind] = f
}

// Kinds lists registered kinds.
func (r *Registry) Kinds() []string {
	kinds := make([]string, 0, len(r.factories))
	for k := range r.factories {
		kinds = append(kinds, k)
	}
	sort.Strings(kinds)
	return kinds
}

// Build resolves the spec's kind and constructs the adapter. HTML sources are wrapped
// so they are retried until they yield at least one candidate.
func (r *Registry) Build(spec Spec, deps Deps) (Adapter, error) {
	f, ok := r.factories[spec.Kind]
	if !ok {
		return nil, fmt.Errorf("source %s: kind %q is not registered", spec.ID, spec.Kind)
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	adapter, err := f(spec, deps)
	if err != nil {
		return nil, fmt.Errorf("source %s: %w", spec.ID, err)
	}
	if spec.Kind == KindHTML {
		policy := retry.HTMLSourcePolicy()
		if spec.Retry != nil {
			policy = *spec.Retry
		}
		adapter = NewUntilNonEmpty(adapter, policy, deps.Logger)
	}
	return adapter, nil
}

// BuildAll builds every spec, stopping at the first configuration error.
func (r *Registry) BuildAll(specs []Spec, deps Deps) ([]Adapter, error) {
	adapters := make([]Adapter, 0, len(specs))
	for _, spec := range specs {
		a, err := r.Build(spec, deps)
		if err != nil {
			return nil, err
		}
		adapters = append(adapters, a)
	}
	return adapters, nil
}

func capItems(items []types.CandidateItem, limit int) []types.CandidateItem {
	if limit > 0 && len(items) > limit {
		return items[:limit]
	}
	return items
}
