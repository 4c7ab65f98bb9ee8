package analytics

import (
	"math"

	"github.com/chmielvu/Forge-Text/pkg/common"
	"github.com/chmielvu/Forge-Text/pkg/graph"
	"github.com/chmielvu/Forge-Text/pkg/logger"
)

// DefaultBetweennessCeiling is the node count from which betweenness is
// skipped; Brandes is O(V·E).
const DefaultBetweennessCeiling = 500

type PageRankOptions struct {
	Damping       float64
	MaxIterations int
	Tolerance     float64
}

func DefaultPageRankOptions() PageRankOptions {
	return PageRankOptions{Damping: 0.85, MaxIterations: 100, Tolerance: 1e-6}
}

// PageRank computes weighted PageRank. A node's rank flows along its
// outgoing edges in proportion to their weight; nodes without outgoing
// weight spread their rank evenly across the graph. Scores sum to 1.
func PageRank(snap common.Snapshot, opts PageRankOptions) map[string]float64 {
	v := newView(snap)
	n := v.order()
	if n == 0 {
		return map[string]float64{}
	}

	outWeight := make([]float64, n)
	for i, arcs := range v.out {
		for _, a := range arcs {
			outWeight[i] += a.weight
		}
	}

	rank := make([]float64, n)
	next := make([]float64, n)
	for i := range rank {
		rank[i] = 1 / float64(n)
	}

	for range opts.MaxIterations {
		dangling := 0.0
		for i := range n {
			if outWeight[i] == 0 {
				dangling += rank[i]
			}
		}
		base := (1-opts.Damping)/float64(n) + opts.Damping*dangling/float64(n)
		for i := range next {
			next[i] = base
		}
		for i, arcs := range v.out {
			if outWeight[i] == 0 {
				continue
			}
			for _, a := range arcs {
				next[a.to] += opts.Damping * rank[i] * a.weight / outWeight[i]
			}
		}

		delta := 0.0
		for i := range rank {
			delta += math.Abs(next[i] - rank[i])
		}
		rank, next = next, rank
		if delta < opts.Tolerance {
			break
		}
	}
	return v.byID(rank)
}

// Betweenness computes directed, unweighted betweenness centrality with
// Brandes' algorithm, normalised by (n-1)(n-2).
func Betweenness(snap common.Snapshot) map[string]float64 {
	v := newView(snap)
	n := v.order()
	scores := make([]float64, n)

	sigma := make([]float64, n)
	dist := make([]int, n)
	delta := make([]float64, n)
	pred := make([][]int, n)

	for s := range n {
		for i := range n {
			sigma[i], dist[i], delta[i] = 0, -1, 0
			pred[i] = pred[i][:0]
		}
		sigma[s], dist[s] = 1, 0

		stack := make([]int, 0, n)
		queue := []int{s}
		for len(queue) > 0 {
			u := queue[0]
			queue = queue[1:]
			stack = append(stack, u)
			for _, a := range v.out[u] {
				w := a.to
				if dist[w] < 0 {
					dist[w] = dist[u] + 1
					queue = append(queue, w)
				}
				if dist[w] == dist[u]+1 {
					sigma[w] += sigma[u]
					pred[w] = append(pred[w], u)
				}
			}
		}

		for len(stack) > 0 {
			w := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			for _, u := range pred[w] {
				delta[u] += sigma[u] / sigma[w] * (1 + delta[w])
			}
			if w != s {
				scores[w] += delta[w]
			}
		}
	}

	if n > 2 {
		norm := 1 / float64((n-1)*(n-2))
		for i := range scores {
			scores[i] *= norm
		}
	}
	return v.byID(scores)
}

// UpdateCentrality writes pagerank, and below ceiling nodes also
// betweenness, back onto every node. Failures are logged and the affected
// attribute is left untouched; the return value reports success.
func UpdateCentrality(g *graph.Store, ceiling int) bool {
	snap := g.Get()
	if len(snap.Nodes) == 0 {
		return true
	}

	var pr map[string]float64
	if err := safely("pagerank", func() error {
		pr = PageRank(snap, DefaultPageRankOptions())
		return nil
	}); err != nil {
		logFailure("Centrality", err)
		return false
	}

	var bc map[string]float64
	if ceiling <= 0 || len(snap.Nodes) < ceiling {
		if err := safely("betweenness", func() error {
			bc = Betweenness(snap)
			return nil
		}); err != nil {
			logFailure("Betweenness", err)
		}
	}

	for id, score := range pr {
		_ = g.UpdateNode(id, func(n *common.Node) error {
			n.Attributes.PageRank = common.Float(score)
			if b, ok := bc[id]; ok {
				n.Attributes.Betweenness = common.Float(b)
			}
			return nil
		})
	}
	logger.Debug("[Analytics] Centrality updated", "nodes", len(pr), "betweenness", bc != nil)
	return true
}
