// Package decay erodes persistent grudges toward a non-zero floor.
package decay

import (
	"maps"
	"slices"
	"sync"

	"github.com/chmielvu/Forge-Text/pkg/common"
	"github.com/chmielvu/Forge-Text/pkg/graph"
	"github.com/chmielvu/Forge-Text/pkg/logger"
)

// fadedBelow marks a decayed intensity as "nearly forgotten" in results.
const fadedBelow = 0.15

type Config struct {
	Rate      float64
	MinWeight float64
	Types     []common.EdgeType
	// Interval is the number of turns between decay passes.
	Interval int
}

func DefaultConfig() Config {
	return Config{
		Rate:      0.05,
		MinWeight: 0.05,
		Types:     []common.EdgeType{common.EdgeGrudge, common.EdgeTraumaBond, common.EdgeObsession},
		Interval:  5,
	}
}

// Due reports whether turn is a decay turn.
func (c Config) Due(turn int) bool {
	return c.Interval > 0 && turn > 0 && turn%c.Interval == 0
}

// Result lists what one decay application changed on a node.
type Result struct {
	NodeID  string             `json:"node_id"`
	Decayed map[string]float64 `json:"decayed"`
	// Faded holds targets whose intensity dropped close to the floor.
	Faded []string `json:"faded,omitempty"`
}

// Apply decays every grudge on nodeID that is above the floor:
// next = max(min, intensity*(1-rate)). Outgoing edges toward a decayed
// target whose type is in cfg.Types get weight next/100 and a faded_at
// stamp. A missing node is a no-op.
func Apply(g *graph.Store, nodeID string, cfg Config, turn int) Result {
	res := Result{NodeID: nodeID, Decayed: map[string]float64{}}

	err := g.UpdateNode(nodeID, func(n *common.Node) error {
		for target, intensity := range n.Attributes.Grudges {
			if intensity <= cfg.MinWeight {
				continue
			}
			next := max(cfg.MinWeight, intensity*(1-cfg.Rate))
			n.Attributes.Grudges[target] = next
			res.Decayed[target] = next
			if next < fadedBelow {
				res.Faded = append(res.Faded, target)
			}
		}
		return nil
	})
	if err != nil {
		return res
	}

	for _, target := range slices.Sorted(maps.Keys(res.Decayed)) {
		weight := res.Decayed[target] / 100
		for _, e := range g.EdgesBetween(nodeID, target) {
			if !slices.Contains(cfg.Types, e.Type) {
				continue
			}
			_ = g.UpdateEdge(e.Key, func(edge *common.Edge) {
				edge.Weight = weight
				if edge.Meta == nil {
					edge.Meta = map[string]any{}
				}
				edge.Meta["faded_at"] = turn
			})
		}
	}
	slices.Sort(res.Faded)
	return res
}

// ApplyAll decays each node in ids and returns the results that changed
// something.
func ApplyAll(g *graph.Store, ids []string, cfg Config, turn int) []Result {
	var out []Result
	for _, id := range ids {
		if res := Apply(g, id, cfg, turn); len(res.Decayed) > 0 {
			out = append(out, res)
		}
	}
	return out
}

// AgentIDs returns the ids of all agent-class nodes.
func AgentIDs(g *graph.Store) []string {
	var ids []string
	for _, n := range g.Nodes() {
		if n.Type.IsAgent() {
			ids = append(ids, n.ID)
		}
	}
	return ids
}

// Scheduler runs at most one decay pass per aligned turn, no matter how
// many callers ask for it.
type Scheduler struct {
	mu   sync.Mutex
	cfg  Config
	last int
}

func NewScheduler(cfg Config) *Scheduler {
	return &Scheduler{cfg: cfg, last: -1}
}

func (s *Scheduler) Config() Config {
	return s.cfg
}

// Reset rewinds the scheduler to a graph restored at turn, so the decay
// turns from turn onwards run again.
func (s *Scheduler) Reset(turn int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.last = turn - 1
}

// RunIfDue decays every agent when turn is a decay turn that has not been
// processed yet. It reports whether a pass ran.
func (s *Scheduler) RunIfDue(g *graph.Store, turn int) ([]Result, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.cfg.Due(turn) || turn <= s.last {
		return nil, false
	}
	s.last = turn

	results := ApplyAll(g, AgentIDs(g), s.cfg, turn)
	faded := 0
	for _, r := range results {
		faded += len(r.Faded)
	}
	logger.Info("[Decay] Decay pass finished", "turn", turn, "nodes", len(results), "faded", faded)
	return results, true
}
