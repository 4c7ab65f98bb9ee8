package query

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/chmielvu/Forge-Text/internal/util"
	"github.com/chmielvu/Forge-Text/pkg/ai"
	"github.com/chmielvu/Forge-Text/pkg/analytics"
	"github.com/chmielvu/Forge-Text/pkg/common"
	"github.com/chmielvu/Forge-Text/pkg/decay"
	"github.com/chmielvu/Forge-Text/pkg/graph"
	"github.com/chmielvu/Forge-Text/pkg/logger"
	"github.com/chmielvu/Forge-Text/pkg/resolve"
	"github.com/chmielvu/Forge-Text/pkg/store"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
)

// Indexer owns the retrieval index of one graph. The index moves between
// stale and fresh: it goes stale after enough turns or mutations and is
// rebuilt lazily by the next BuildIndex or Retrieve call.
type Indexer struct {
	g          *graph.Store
	resolver   *resolve.Resolver
	cache      store.IndexCache
	summarizer ai.Summarizer
	decay      *decay.Scheduler
	params     Params
	now        func() time.Time

	mu            sync.Mutex
	index         *Index
	lastIndexTurn int
	mutSince      int

	builds  singleflight.Group
	pending sync.WaitGroup
}

type Option func(*Indexer)

func WithParams(p Params) Option {
	return func(ix *Indexer) {
		ix.params = p
	}
}

// WithDecay runs the scheduler's decay pass before a rebuild when the
// current turn is a decay turn.
func WithDecay(s *decay.Scheduler) Option {
	return func(ix *Indexer) {
		ix.decay = s
	}
}

func WithClock(now func() time.Time) Option {
	return func(ix *Indexer) {
		ix.now = now
	}
}

// NewIndexer creates an indexer. cache and summarizer may be nil: without a
// cache nothing is persisted, without a summarizer every community gets
// ai.FallbackSummary.
func NewIndexer(g *graph.Store, r *resolve.Resolver, cache store.IndexCache, summarizer ai.Summarizer, opts ...Option) *Indexer {
	ix := &Indexer{
		g:          g,
		resolver:   r,
		cache:      cache,
		summarizer: summarizer,
		params:     DefaultParams(),
		now:        time.Now,
	}
	for _, o := range opts {
		if o != nil {
			o(ix)
		}
	}
	if ix.resolver == nil {
		ix.resolver = resolve.New()
	}
	return ix
}

func (ix *Indexer) Params() Params {
	return ix.params
}

// Current returns the last built or loaded index without triggering a
// build. It is nil before the first build.
func (ix *Indexer) Current() *Index {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	return ix.index
}

// State reports whether the next BuildIndex would rebuild.
func (ix *Indexer) State() State {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	if ix.index == nil || ix.needsRebuildLocked(false) || ix.index.expired(ix.params.TTL, ix.now()) {
		return StateStale
	}
	return StateFresh
}

func (ix *Indexer) needsRebuildLocked(force bool) bool {
	if force {
		return true
	}
	turn := ix.g.Global().TurnCount
	if turn-ix.lastIndexTurn >= ix.params.RebuildTurns {
		return true
	}
	size := ix.g.Order() + ix.g.Size()
	return size > 0 && float64(ix.mutSince)/float64(size) > ix.params.RebuildThreshold
}

func (idx *Index) expired(ttl time.Duration, now time.Time) bool {
	return ttl > 0 && now.Sub(idx.Timestamp) > ttl
}

// Reset forgets the build history after the graph was replaced by a save
// taken at turn. The next BuildIndex rebuilds from the new content and the
// turn-based trigger counts from turn.
func (ix *Indexer) Reset(turn int) {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	ix.index = nil
	ix.lastIndexTurn = turn
	ix.mutSince = ix.g.Order() + ix.g.Size()
}

// Invalidate records mutationDelta applied mutations without building.
func (ix *Indexer) Invalidate(mutationDelta int) {
	ix.mu.Lock()
	ix.mutSince += mutationDelta
	ix.mu.Unlock()
}

// BuildIndex returns a fresh index. It first counts mutationDelta toward the
// rebuild threshold; when no rebuild is required the in-memory or persisted
// index is returned as is. Concurrent rebuilds are coalesced.
func (ix *Indexer) BuildIndex(ctx context.Context, force bool, mutationDelta int) *Index {
	ix.mu.Lock()
	ix.mutSince += mutationDelta
	needs := ix.needsRebuildLocked(force)
	current := ix.index
	ix.mu.Unlock()

	if !needs {
		if current != nil && !current.expired(ix.params.TTL, ix.now()) {
			return current
		}
		if cached := ix.loadFromCache(ctx); cached != nil {
			ix.mu.Lock()
			ix.index = cached
			ix.mu.Unlock()
			return cached
		}
	}

	v, _, _ := ix.builds.Do("build", func() (any, error) {
		return ix.rebuild(ctx), nil
	})
	return v.(*Index)
}

// Trigger counts mutationDelta and starts a rebuild in the background. It
// never blocks on the build; Wait blocks until all triggered builds finish.
func (ix *Indexer) Trigger(mutationDelta int) {
	ix.Invalidate(mutationDelta)
	ix.pending.Add(1)
	go func() {
		defer ix.pending.Done()
		defer func() {
			if r := recover(); r != nil {
				logger.Error("[Index] Background rebuild panicked", "err", r)
			}
		}()
		ix.BuildIndex(context.Background(), false, 0)
	}()
}

// Wait blocks until every build started by Trigger has finished.
func (ix *Indexer) Wait() {
	ix.pending.Wait()
}

func (ix *Indexer) loadFromCache(ctx context.Context) *Index {
	if ix.cache == nil {
		return nil
	}
	entry, err := ix.cache.Get(ctx, store.LatestKey)
	if err != nil {
		if !errors.Is(err, store.ErrCacheMiss) {
			logger.Warn("[Index] Cache load failed, rebuilding", "err", err)
		}
		return nil
	}
	if entry.Version != IndexVersion {
		logger.Debug("[Index] Cached index has another schema version", "version", entry.Version, "want", IndexVersion)
		return nil
	}
	if entry.Expired(ix.params.TTL, ix.now()) {
		logger.Debug("[Index] Cached index expired", "age", ix.now().Sub(entry.Timestamp))
		return nil
	}

	var idx Index
	if err := json.Unmarshal(entry.Payload, &idx); err != nil {
		logger.Warn("[Index] Cached index unreadable, rebuilding", "err", err)
		return nil
	}
	logger.Debug("[Index] Loaded cached index")
	return &idx
}

func (ix *Indexer) saveToCache(ctx context.Context, idx *Index) {
	if ix.cache == nil {
		return
	}
	payload, err := json.Marshal(idx)
	if err != nil {
		logger.Warn("[Index] Encoding index for cache failed", "err", err)
		return
	}
	err = ix.cache.Put(ctx, store.CacheEntry{
		Key:       store.LatestKey,
		Version:   idx.Version,
		Timestamp: idx.Timestamp,
		Payload:   payload,
	})
	if err != nil {
		logger.Warn("[Index] Cache save failed", "err", err)
	}
}

func (ix *Indexer) rebuild(ctx context.Context) *Index {
	start := ix.now()
	turn := ix.g.Global().TurnCount

	ix.mu.Lock()
	consumed := ix.mutSince
	ix.mu.Unlock()

	if ix.decay != nil {
		ix.decay.RunIfDue(ix.g, turn)
	}

	snap := ix.g.Get()
	entities := extractEntities(snap)
	relations := sampleRelations(snap, ix.params.RetrievalMinWeight, ix.params.RelationSampleRatio)
	communities := ix.detectCommunities()

	ix.summarize(ctx, communities, entities, relations)

	idx := &Index{
		Entities:    entities,
		Relations:   relations,
		Communities: communities,
		MutCount:    consumed,
		Timestamp:   ix.now(),
		Version:     IndexVersion,
	}

	ix.mu.Lock()
	ix.index = idx
	ix.lastIndexTurn = turn
	ix.mutSince = max(0, ix.mutSince-consumed)
	ix.mu.Unlock()

	ix.saveToCache(ctx, idx)

	args := []any{
		"entities", len(entities),
		"relations", len(relations),
		"communities", len(communities),
		"turn", turn,
		"duration", ix.now().Sub(start),
	}
	if m, ok := ix.summarizer.(interface{ Metrics() ai.ModelMetrics }); ok {
		usage := m.Metrics()
		args = append(args, "model_requests", usage.Requests, "model_tokens", usage.TotalTokens)
	}
	logger.Info("[Index] Rebuild finished", args...)
	return idx
}

func extractEntities(snap common.Snapshot) map[string]Entity {
	out := make(map[string]Entity, len(snap.Nodes))
	for id, n := range snap.Nodes {
		var dominance, paranoia float64
		if n.Attributes.AgentState != nil {
			dominance = n.Attributes.AgentState.Dominance
		}
		if n.Attributes.Emotional != nil {
			paranoia = n.Attributes.Emotional.Paranoia
		}
		out[id] = Entity{
			Label:    n.Label,
			Features: []float64{common.Value(n.Attributes.PageRank), dominance, paranoia},
		}
	}
	return out
}

// sampleRelations keeps edges with weight >= minWeight, heaviest first, and
// retains the leading ratio of them.
func sampleRelations(snap common.Snapshot, minWeight, ratio float64) []Relation {
	var all []Relation
	for _, e := range snap.Edges {
		if e.Weight < minWeight {
			continue
		}
		all = append(all, Relation{Source: e.Source, Target: e.Target, Type: e.Type, Weight: e.Weight})
	}
	slices.SortStableFunc(all, func(a, b Relation) int {
		switch {
		case a.Weight > b.Weight:
			return -1
		case a.Weight < b.Weight:
			return 1
		}
		return 0
	})
	keep := int(math.Floor(float64(len(all)) * ratio))
	return all[:keep]
}

func (ix *Indexer) detectCommunities() []Community {
	assigned := analytics.AssignCommunities(ix.g)
	groups := analytics.Groups(assigned)

	out := make([]Community, 0, len(groups))
	for _, id := range analytics.Largest(groups, 0) {
		out = append(out, Community{ID: id, Nodes: groups[id]})
	}
	return out
}

// summarize fills Summary for the largest communities concurrently. A
// failed summary falls back to ai.FallbackSummary; it never fails the build.
func (ix *Indexer) summarize(ctx context.Context, communities []Community, entities map[string]Entity, relations []Relation) {
	limit := min(ix.params.CommunityCap, len(communities))
	if limit <= 0 {
		return
	}

	eg, ectx := errgroup.WithContext(ctx)
	eg.SetLimit(limit)
	for i := range limit {
		eg.Go(func() error {
			prompt := communityPrompt(communities[i], entities, relations, ix.params.CommunityRelations)
			communities[i].Summary = ix.summarizeOne(ectx, communities[i].ID, prompt)
			return nil
		})
	}
	_ = eg.Wait()
}

func (ix *Indexer) summarizeOne(ctx context.Context, id int, prompt string) (summary string) {
	if ix.summarizer == nil {
		return ai.FallbackSummary
	}
	defer func() {
		if r := recover(); r != nil {
			logger.Warn("[Index] Community summary panicked", "community", id, "err", r)
			summary = ai.FallbackSummary
		}
	}()

	out, err := util.RetryWithContext(ctx, ix.params.SummaryRetries, func(ctx context.Context) (string, error) {
		s, err := ix.summarizer.Summarize(ctx, prompt)
		if err != nil {
			return "", err
		}
		if strings.TrimSpace(s) == "" {
			return "", fmt.Errorf("empty summary")
		}
		return s, nil
	})
	if err != nil {
		logger.Warn("[Index] Community summary failed, using fallback", "community", id, "err", err)
		return ai.FallbackSummary
	}
	return strings.TrimSpace(out)
}

func communityPrompt(c Community, entities map[string]Entity, relations []Relation, maxRelations int) string {
	members := make(map[string]struct{}, len(c.Nodes))
	labels := make([]string, 0, len(c.Nodes))
	for _, id := range c.Nodes {
		members[id] = struct{}{}
		label := id
		if e, ok := entities[id]; ok && e.Label != "" {
			label = e.Label
		}
		labels = append(labels, label)
	}

	var rels []string
	for _, r := range relations {
		if len(rels) >= maxRelations {
			break
		}
		_, okS := members[r.Source]
		_, okT := members[r.Target]
		if okS && okT {
			rels = append(rels, fmt.Sprintf("%s:%.1f", r.Type, r.Weight))
		}
	}
	return ai.CommunityPromptFor(labels, rels)
}
