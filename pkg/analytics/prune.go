package analytics

import (
	"github.com/chmielvu/Forge-Text/pkg/common"
	"github.com/chmielvu/Forge-Text/pkg/graph"
	"github.com/chmielvu/Forge-Text/pkg/logger"
)

const (
	// DefaultPruneThreshold is the base weight below which edges are cut.
	// PRUNE_THRESHOLD defaults to the same value.
	DefaultPruneThreshold = 0.05

	importanceScale   = 5.0
	maxProtectiveness = 0.8
)

// EffectiveThreshold lowers base for edges whose endpoints are central:
// base * (1 - min(0.8, 5*(importance))).
func EffectiveThreshold(base, importance float64) float64 {
	return base * (1 - min(maxProtectiveness, importanceScale*importance))
}

// PruneCandidates returns the keys of the edges that fall below their
// effective threshold given per-node importance scores.
func PruneCandidates(snap common.Snapshot, threshold float64, importance map[string]float64) []string {
	var keys []string
	for _, e := range snap.Edges {
		if e.Weight < EffectiveThreshold(threshold, importance[e.Source]+importance[e.Target]) {
			keys = append(keys, e.Key)
		}
	}
	return keys
}

// Prune removes weak edges from the store, protecting edges around
// high-PageRank nodes. If PageRank fails, pruning runs unprotected. It
// returns the number of removed edges.
func Prune(g *graph.Store, threshold float64) int {
	snap := g.Get()
	if len(snap.Nodes) == 0 {
		return 0
	}

	var scores map[string]float64
	if err := safely("pagerank", func() error {
		scores = PageRank(snap, DefaultPageRankOptions())
		return nil
	}); err != nil {
		logFailure("Prune scoring", err)
	}

	removed := 0
	for _, key := range PruneCandidates(snap, threshold, scores) {
		if g.RemoveEdge(key) {
			removed++
		}
	}
	if removed > 0 {
		logger.Info("[Analytics] Pruned weak edges", "removed", removed, "threshold", threshold)
	}
	return removed
}
