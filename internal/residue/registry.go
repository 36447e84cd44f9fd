// Package residue catalogues what evolutions leave behind: reflections per
// task and residue patterns (near misses, unused fragments, failed
// approaches) that are fed back into later prompts.
package residue

import (
	"context"
	"fmt"
	"hash/fnv"
	"sort"
	"strconv"
	"sync"

	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru/v2"
	chromem "github.com/philippgille/chromem-go"
	"github.com/rs/zerolog"

	"github.com/mrz1836/evo/internal/clock"
	"github.com/mrz1836/evo/internal/constants"
	"github.com/mrz1836/evo/internal/domain"
)

const collectionName = "residue"

// Registry stores residue patterns and answers relevance queries through a
// chromem vector collection. Recent query results are cached until the next
// Register. It only appends and is safe for concurrent use.
type Registry struct {
	collection *chromem.Collection
	cache      *lru.Cache[uint64, cachedQuery]
	logger     zerolog.Logger
	clock      clock.Clock

	mu         sync.RWMutex
	patterns   map[string]domain.ResiduePattern
	order      []string
	generation uint64
}

// cachedQuery is a Relevant result tagged with the registry generation it
// was computed in. Entries from an older generation are never served.
type cachedQuery struct {
	generation uint64
	patterns   []domain.ResiduePattern
}

// Option configures a Registry.
type Option func(*Registry)

// WithLogger sets the logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(r *Registry) { r.logger = logger.With().Str("component", "residue").Logger() }
}

// WithClock sets the clock used to stamp patterns.
func WithClock(c clock.Clock) Option {
	return func(r *Registry) { r.clock = c }
}

// NewRegistry returns an empty registry caching up to cacheSize queries.
func NewRegistry(cacheSize int, opts ...Option) (*Registry, error) {
	if cacheSize <= 0 {
		cacheSize = constants.DefaultResidueCacheSize
	}
	embedder, err := NewHashEmbedder(DefaultDimensions, cacheSize*4)
	if err != nil {
		return nil, fmt.Errorf("create embedder: %w", err)
	}
	collection, err := chromem.NewDB().GetOrCreateCollection(collectionName, nil, embedder.Embed)
	if err != nil {
		return nil, fmt.Errorf("create collection: %w", err)
	}
	cache, err := lru.New[uint64, cachedQuery](cacheSize)
	if err != nil {
		return nil, fmt.Errorf("create cache: %w", err)
	}

	r := &Registry{
		collection: collection,
		cache:      cache,
		logger:     zerolog.Nop(),
		clock:      clock.RealClock{},
		patterns:   make(map[string]domain.ResiduePattern),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// Register adds p, assigning an id and timestamp when missing.
func (r *Registry) Register(ctx context.Context, p domain.ResiduePattern) (domain.ResiduePattern, error) {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = r.clock.Now()
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.patterns[p.ID]; exists {
		return r.patterns[p.ID], nil
	}

	err := r.collection.AddDocument(ctx, chromem.Document{
		ID:      p.ID,
		Content: p.PatternText,
		Metadata: map[string]string{
			"type":   string(p.Type),
			"domain": p.Domain,
		},
	})
	if err != nil {
		return p, fmt.Errorf("add residue %s: %w", p.ID, err)
	}
	r.patterns[p.ID] = p
	r.order = append(r.order, p.ID)
	r.generation++
	r.cache.Purge()

	r.logger.Debug().
		Str("residue_id", p.ID).
		Str("type", string(p.Type)).
		Str("task_id", p.TaskID).
		Msg("registered residue")
	return p, nil
}

// Seed registers patterns under domainName, skipping ones already present.
func (r *Registry) Seed(ctx context.Context, domainName string, patterns []domain.ResiduePattern) error {
	for _, p := range patterns {
		if p.Domain == "" {
			p.Domain = domainName
		}
		if _, err := r.Register(ctx, p); err != nil {
			return err
		}
	}
	return nil
}

// Relevant returns up to limit patterns closest to the artifact and goal.
// Patterns from another domain are skipped; patterns without a domain match
// every query. Lookup failures are logged and yield no patterns.
func (r *Registry) Relevant(ctx context.Context, artifact, goal, domainName string, limit int) []domain.ResiduePattern {
	if limit <= 0 {
		return nil
	}
	key := queryKey(artifact, goal, domainName, limit)

	r.mu.RLock()
	count := len(r.patterns)
	generation := r.generation
	r.mu.RUnlock()

	if cached, ok := r.cache.Get(key); ok && cached.generation == generation {
		return append([]domain.ResiduePattern(nil), cached.patterns...)
	}
	if count == 0 {
		return nil
	}

	results, err := r.collection.Query(ctx, goal+"\n"+artifact, count, nil, nil)
	if err != nil {
		r.logger.Warn().Err(err).Msg("residue query failed")
		return nil
	}

	type scored struct {
		pattern domain.ResiduePattern
		score   float32
	}
	var matches []scored
	r.mu.RLock()
	for _, res := range results {
		p, ok := r.patterns[res.ID]
		if !ok || !domainMatches(p.Domain, domainName) {
			continue
		}
		matches = append(matches, scored{pattern: p, score: res.Similarity * float32(0.5+0.5*p.PotentialValue)})
	}
	r.mu.RUnlock()

	sort.SliceStable(matches, func(i, j int) bool { return matches[i].score > matches[j].score })
	if len(matches) > limit {
		matches = matches[:limit]
	}
	out := make([]domain.ResiduePattern, len(matches))
	for i, m := range matches {
		out[i] = m.pattern
	}

	r.cache.Add(key, cachedQuery{generation: generation, patterns: out})
	return append([]domain.ResiduePattern(nil), out...)
}

// All returns every pattern in registration order.
func (r *Registry) All() []domain.ResiduePattern {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]domain.ResiduePattern, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.patterns[id])
	}
	return out
}

// Count returns the number of registered patterns.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.patterns)
}

func domainMatches(patternDomain, query string) bool {
	return patternDomain == "" || query == "" || patternDomain == query
}

func queryKey(artifact, goal, domainName string, limit int) uint64 {
	h := fnv.New64a()
	for _, part := range []string{artifact, goal, domainName, strconv.Itoa(limit)} {
		_, _ = h.Write([]byte(part))
		_, _ = h.Write([]byte{0})
	}
	return h.Sum64()
}
