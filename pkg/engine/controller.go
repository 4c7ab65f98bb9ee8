// Package engine is the single entry point into the narrative graph. The
// Controller owns one graph, routes mutation batches through decay,
// normalisation and application, and keeps the retrieval index, analytics
// and layout in step in the background.
package engine

import (
	"context"
	"fmt"
	"math/rand/v2"
	"slices"
	"sync"
	"time"

	"github.com/chmielvu/Forge-Text/pkg/ai"
	"github.com/chmielvu/Forge-Text/pkg/analytics"
	"github.com/chmielvu/Forge-Text/pkg/common"
	"github.com/chmielvu/Forge-Text/pkg/decay"
	"github.com/chmielvu/Forge-Text/pkg/graph"
	"github.com/chmielvu/Forge-Text/pkg/layout"
	"github.com/chmielvu/Forge-Text/pkg/logger"
	"github.com/chmielvu/Forge-Text/pkg/mutation"
	"github.com/chmielvu/Forge-Text/pkg/query"
	"github.com/chmielvu/Forge-Text/pkg/resolve"
	"github.com/chmielvu/Forge-Text/pkg/store"
)

// Controller coordinates every engine over one graph.
//
// Mutating operations are serialised; retrieval-index rebuilds and layout
// passes run in the background and never block a batch.
//
// A Controller should be created using NewController and released with Close.
type Controller struct {
	g         *graph.Store
	resolver  *resolve.Resolver
	mutations *mutation.Engine
	decay     *decay.Scheduler
	indexer   *query.Indexer
	layout    *layout.Engine

	subject            string
	pruneThreshold     float64
	pruneProbability   float64
	layoutIterations   int
	betweennessCeiling int

	mu      sync.Mutex
	rngMu   sync.Mutex
	rng     *rand.Rand
	pending sync.WaitGroup
}

// NewControllerParams configures a Controller. Zero values select the
// defaults of the respective engine.
//
// Snapshot seeds the graph; an empty snapshot bootstraps the canonical cast.
// Cache and Summarizer may be nil. LayoutExecutor nil runs every layout
// inline.
type NewControllerParams struct {
	Snapshot       common.Snapshot
	Cache          store.IndexCache
	Summarizer     ai.Summarizer
	LayoutExecutor layout.Executor
	Resolver       *resolve.Resolver

	Query  query.Params
	Decay  decay.Config
	Layout layout.Settings

	Subject                   string
	PruneThreshold            float64
	PruneProbability          float64
	BootstrapLayoutIterations int
	BetweennessCeiling        int

	// Rand drives the probabilistic prune/layout pass and agent
	// simulations.
	Rand  *rand.Rand
	Clock func() time.Time
}

// NewController builds the graph and its engines. When the graph had to be
// bootstrapped an initial layout is started in the background.
func NewController(params NewControllerParams) *Controller {
	bootstrapped := len(params.Snapshot.Nodes) == 0

	if params.Query == (query.Params{}) {
		params.Query = query.DefaultParams()
	}
	if params.Decay.Interval == 0 && params.Decay.Rate == 0 {
		params.Decay = decay.DefaultConfig()
	}
	if params.Layout == (layout.Settings{}) {
		params.Layout = layout.DefaultSettings()
	}
	if params.Subject == "" {
		params.Subject = mutation.DefaultSubject
	}
	if params.PruneThreshold <= 0 {
		params.PruneThreshold = analytics.DefaultPruneThreshold
	}
	if params.BetweennessCeiling == 0 {
		params.BetweennessCeiling = analytics.DefaultBetweennessCeiling
	}
	if params.Resolver == nil {
		params.Resolver = resolve.New()
	}
	if params.Rand == nil {
		params.Rand = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}

	g := graph.New(params.Snapshot)
	scheduler := decay.NewScheduler(params.Decay)

	opts := []query.Option{query.WithParams(params.Query), query.WithDecay(scheduler)}
	if params.Clock != nil {
		opts = append(opts, query.WithClock(params.Clock))
	}

	c := &Controller{
		g:                  g,
		resolver:           params.Resolver,
		mutations:          mutation.NewEngine(g, mutation.WithSubject(params.Subject), mutation.WithResolver(params.Resolver)),
		decay:              scheduler,
		indexer:            query.NewIndexer(g, params.Resolver, params.Cache, params.Summarizer, opts...),
		layout:             layout.New(params.LayoutExecutor, params.Layout),
		subject:            params.Subject,
		pruneThreshold:     params.PruneThreshold,
		pruneProbability:   params.PruneProbability,
		layoutIterations:   params.Layout.Iterations,
		betweennessCeiling: params.BetweennessCeiling,
		rng:                params.Rand,
	}

	logger.Info("[Controller] Graph ready", "nodes", g.Order(), "edges", g.Size(), "bootstrapped", bootstrapped)
	if bootstrapped && params.BootstrapLayoutIterations > 0 {
		c.runLayoutAsync(params.BootstrapLayoutIterations)
	}
	return c
}

// Graph exposes the underlying store for read access.
func (c *Controller) Graph() *graph.Store {
	return c.g
}

func (c *Controller) Indexer() *query.Indexer {
	return c.indexer
}

func (c *Controller) Subject() string {
	return c.subject
}

// ApplyMutations runs one batch: a due decay pass, reference normalisation,
// ordered application, a background index rebuild and, with the configured
// probability, a prune and layout pass. It never fails; skipped records are
// listed in the report.
func (c *Controller) ApplyMutations(ctx context.Context, muts []mutation.Mutation) mutation.Report {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.applyLocked(ctx, muts)
}

func (c *Controller) applyLocked(ctx context.Context, muts []mutation.Mutation) (report mutation.Report) {
	turn := c.g.Global().TurnCount

	if results, ran := c.decay.RunIfDue(c.g, turn); ran {
		logger.Debug("[Controller] Decay pass", "turn", turn, "nodes", len(results))
	}

	func() {
		defer func() {
			if r := recover(); r != nil {
				logger.Error("[Controller] Mutation batch panicked", "turn", turn, "err", r)
			}
		}()
		report = c.mutations.Apply(muts, turn)
	}()

	c.indexer.Trigger(len(muts))

	if c.roll() < c.pruneProbability {
		c.Prune(0)
		c.runLayoutAsync(c.layoutIterations)
	}
	return report
}

// ApplyBatch decodes raw generator output and applies it. Only an
// unreadable batch is an error; bad records inside it are skipped.
func (c *Controller) ApplyBatch(ctx context.Context, raw string) (mutation.Report, error) {
	muts, err := mutation.Decode(raw)
	if err != nil {
		return mutation.Report{}, fmt.Errorf("decode mutation batch: %w", err)
	}
	return c.ApplyMutations(ctx, muts), nil
}

func (c *Controller) roll() float64 {
	c.rngMu.Lock()
	defer c.rngMu.Unlock()
	return c.rng.Float64()
}

// ResolveEntityID maps free text to a node id.
func (c *Controller) ResolveEntityID(text string) (string, bool) {
	id, err := c.resolver.Resolve(c.g, text)
	return id, err == nil
}

// Retrieve runs a retrieval query, rebuilding the index first when it is
// stale.
func (c *Controller) Retrieve(ctx context.Context, q string, opts query.RetrieveOptions) (res query.Result) {
	defer func() {
		if r := recover(); r != nil {
			logger.Warn("[Controller] Retrieval failed", "query", q, "err", r)
			res = query.Result{Query: q}
		}
	}()
	return c.indexer.Retrieve(ctx, q, opts)
}

// AugmentedPrompt returns the retrieval context block for q, or "" when
// retrieval failed.
func (c *Controller) AugmentedPrompt(ctx context.Context, q string, opts query.RetrieveOptions) (prompt string) {
	defer func() {
		if r := recover(); r != nil {
			logger.Warn("[Controller] Prompt augmentation failed", "query", q, "err", r)
			prompt = ""
		}
	}()
	res := c.indexer.Retrieve(ctx, q, opts)
	return c.indexer.AugmentPrompt(res)
}

// DominancePath resolves both ends and returns the path of strongest
// relations between them, or false when either end is unknown or no path
// exists.
func (c *Controller) DominancePath(source, target string) ([]string, bool) {
	from := c.resolver.ResolveOr(c.g, source)
	to := c.resolver.ResolveOr(c.g, target)
	return analytics.DominancePath(c.g.Get(), from, to)
}

// Communities assigns a community id to every node and writes it back as
// the community attribute.
func (c *Controller) Communities() map[string]int {
	return analytics.AssignCommunities(c.g)
}

// UpdateMetrics recomputes pagerank and, below the configured node ceiling,
// betweenness.
func (c *Controller) UpdateMetrics() bool {
	return analytics.UpdateCentrality(c.g, c.betweennessCeiling)
}

// Prune removes weak edges; threshold <= 0 uses the configured one. It
// returns the number of removed edges.
func (c *Controller) Prune(threshold float64) int {
	if threshold <= 0 {
		threshold = c.pruneThreshold
	}
	removed := analytics.Prune(c.g, threshold)
	if removed > 0 {
		c.indexer.Invalidate(removed)
	}
	return removed
}

// RunLayout lays the graph out synchronously; iterations <= 0 uses the
// configured count.
func (c *Controller) RunLayout(ctx context.Context, iterations int) error {
	if iterations <= 0 {
		iterations = c.layoutIterations
	}
	return c.layout.Run(ctx, c.g, iterations)
}

func (c *Controller) runLayoutAsync(iterations int) {
	c.pending.Add(1)
	go func() {
		defer c.pending.Done()
		defer func() {
			if r := recover(); r != nil {
				logger.Error("[Controller] Background layout panicked", "err", r)
			}
		}()
		_ = c.layout.Run(context.Background(), c.g, iterations)
	}()
}

// Snapshot returns the full graph state for saving. Layout coordinates are
// stripped.
func (c *Controller) Snapshot() common.Snapshot {
	return c.g.Snapshot().Compact()
}

// Restore replaces the graph with snap. Decay and index scheduling restart
// from the restored turn and the index is rebuilt on next use.
func (c *Controller) Restore(snap common.Snapshot) {
	c.mu.Lock()
	defer c.mu.Unlock()

	// A background rebuild finishing after the import would record the old turn.
	c.indexer.Wait()

	skipped := c.g.Import(snap)
	if skipped > 0 {
		logger.Warn("[Controller] Dropped dangling edges on restore", "skipped", skipped)
	}
	turn := c.g.Global().TurnCount
	c.decay.Reset(turn)
	c.indexer.Reset(turn)
}

// UpdateLedger applies per-field deltas to the ledger of id (the subject
// when empty). Each field stays within [0,100].
func (c *Controller) UpdateLedger(id string, deltas map[string]float64) mutation.Report {
	if id == "" {
		id = c.subject
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	report := c.mutations.Apply([]mutation.Mutation{
		mutation.UpdateLedger{TargetID: id, Deltas: deltas},
	}, c.g.Global().TurnCount)
	c.indexer.Invalidate(report.Applied)
	return report
}

// TurnInput is one turn handed over by the narrative generator.
type TurnInput struct {
	Query     string
	Mutations []mutation.Mutation
	Retrieve  query.RetrieveOptions
}

type TurnResult struct {
	Turn    int             `json:"turn"`
	Report  mutation.Report `json:"report"`
	Tension float64         `json:"tension"`
	Prompt  string          `json:"prompt"`
}

// ProcessTurn applies the turn's batch, advances the turn counter,
// moves the narrative phase to the act of the new turn, recomputes tension
// and returns the augmented prompt for the query.
func (c *Controller) ProcessTurn(ctx context.Context, in TurnInput) TurnResult {
	c.mu.Lock()
	report := c.applyLocked(ctx, in.Mutations)
	turn := c.g.AdvanceTurn()
	c.g.SetPhase(common.PhaseForTurn(turn))
	tension := c.updateTensionLocked()
	c.mu.Unlock()

	res := TurnResult{Turn: turn, Report: report, Tension: tension}
	if in.Query != "" {
		res.Prompt = c.AugmentedPrompt(ctx, in.Query, in.Retrieve)
	}
	logger.Info("[Controller] Turn processed", "turn", turn, "applied", report.Applied, "skipped", len(report.Skipped), "tension", tension)
	return res
}

// tensionSample is how many of the heaviest hostile edges make up the
// tension level.
const tensionSample = 5

func (c *Controller) updateTensionLocked() float64 {
	var weights []float64
	for _, e := range c.g.Edges() {
		if e.Type == common.EdgeGrudge || e.Type == common.EdgeTraumaBond {
			weights = append(weights, e.Weight)
		}
	}
	tension := 0.0
	if len(weights) > 0 {
		slices.SortFunc(weights, func(a, b float64) int {
			switch {
			case a > b:
				return -1
			case a < b:
				return 1
			}
			return 0
		})
		top := weights[:min(tensionSample, len(weights))]
		sum := 0.0
		for _, w := range top {
			sum += w
		}
		tension = sum / float64(len(top))
	}
	c.g.SetTension(tension)
	return c.g.Global().TensionLevel
}

// IndexState reports whether the next retrieval rebuilds the index.
func (c *Controller) IndexState() query.State {
	return c.indexer.State()
}

// Close waits for background rebuilds and layouts and releases the layout
// executor.
func (c *Controller) Close() error {
	c.pending.Wait()
	c.indexer.Wait()
	return c.layout.Close()
}
