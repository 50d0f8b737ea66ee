// Package specialized resolves the detail record attached to a billed
// clinical service line. Which record type that is (an ECG, a Holter
// installation, ...) is configuration, not code: each service type stores a
// dotted model path, and providers register themselves under those paths at
// startup. Resolution is fail-open — a broken config entry logs and yields
// nil so an unrelated dashboard keeps working.
package specialized

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/rs/zerolog"
)

// StageKind classifies a stage model by the suffix of its registered name,
// mirroring the Installation -> Reception -> Reading triads that repeat
// across the diagnostic domains.
type StageKind string

const (
	StageReception StageKind = "reception"
	StageReading   StageKind = "reading"
	StageReport    StageKind = "report"
	StageUnknown   StageKind = ""
)

// KindForStageName classifies a stage model name by its suffix.
func KindForStageName(name string) StageKind {
	switch {
	case strings.HasSuffix(name, "Reception"):
		return StageReception
	case strings.HasSuffix(name, "Reading"):
		return StageReading
	case strings.HasSuffix(name, "Report"):
		return StageReport
	default:
		return StageUnknown
	}
}

// RecordRef identifies a found specialized base record.
type RecordRef struct {
	ID uuid.UUID
}

// StageDescriptor declares one downstream stage of a multi-stage specialized
// record: its model name (classified by suffix) and an existence probe
// against the base record it points back to.
type StageDescriptor struct {
	Name   string
	Exists func(ctx context.Context, baseID uuid.UUID) (bool, error)
}

// Kind returns the stage's classification.
func (d StageDescriptor) Kind() StageKind {
	return KindForStageName(d.Name)
}

// Provider locates the specialized base record for a generic parent and
// declares its downstream stages. One provider is registered per dotted
// model path; a provider with no stages is a single-stage record whose base
// row is itself the final report.
type Provider interface {
	Find(ctx context.Context, parentType string, parentID uuid.UUID) (*RecordRef, error)
	Stages() []StageDescriptor
}

// Registry maps dotted model paths to providers. Resolution results are held
// in an expiring LRU so hot paths skip the registration map; entries age out
// so a re-registered provider (tests, plugins) is picked up within the TTL.
type Registry struct {
	mu        sync.RWMutex
	providers map[string]Provider
	cache     *expirable.LRU[string, Provider]
	logger    zerolog.Logger
}

// NewRegistry creates a Registry whose resolution cache expires after ttl.
func NewRegistry(ttl time.Duration, logger zerolog.Logger) *Registry {
	return &Registry{
		providers: make(map[string]Provider),
		cache:     expirable.NewLRU[string, Provider](128, nil, ttl),
		logger:    logger,
	}
}

// Register binds a provider to a dotted model path
// (e.g. "cardiology.HolterInstallation"). Later registrations replace
// earlier ones.
func (r *Registry) Register(path string, p Provider) {
	r.mu.Lock()
	r.providers[path] = p
	r.mu.Unlock()
	r.cache.Remove(path)
}

// Resolve returns the provider registered under path, or nil when the path
// is unknown or empty. Unknown paths are logged, never raised: a stale
// config row must not break the callers that merely consult the flags.
func (r *Registry) Resolve(path string) Provider {
	if path == "" {
		return nil
	}
	if p, ok := r.cache.Get(path); ok {
		return p
	}

	r.mu.RLock()
	p, ok := r.providers[path]
	r.mu.RUnlock()
	if !ok {
		r.logger.Warn().Str("path", path).Msg("unresolvable specialized model path")
		return nil
	}

	r.cache.Add(path, p)
	return p
}

// Paths returns the registered dotted paths, for diagnostics.
func (r *Registry) Paths() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	paths := make([]string, 0, len(r.providers))
	for p := range r.providers {
		paths = append(paths, p)
	}
	return paths
}
