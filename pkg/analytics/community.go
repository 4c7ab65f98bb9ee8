package analytics

import (
	"maps"
	"slices"

	"github.com/chmielvu/Forge-Text/pkg/common"
	"github.com/chmielvu/Forge-Text/pkg/graph"
	"github.com/chmielvu/Forge-Text/pkg/logger"
)

const (
	louvainMaxLevels = 10
	louvainMaxPasses = 20
	louvainEpsilon   = 1e-12
)

// Communities clusters the graph with the Louvain method, treating edges
// as undirected and weighted. Community ids are dense, start at 0 and are
// numbered in lexical order of each community's first member.
func Communities(snap common.Snapshot) map[string]int {
	v := newView(snap)
	n := v.order()
	if n == 0 {
		return map[string]int{}
	}

	adj := make([]map[int]float64, n)
	for i := range adj {
		adj[i] = map[int]float64{}
	}
	for u, arcs := range v.out {
		for _, a := range arcs {
			if a.to == u || a.weight <= 0 {
				continue
			}
			adj[u][a.to] += a.weight
			adj[a.to][u] += a.weight
		}
	}

	membership := louvain(adj)
	out := make(map[string]int, n)
	for i, c := range membership {
		out[v.ids[i]] = c
	}
	return out
}

// louvain returns a dense community id per node of the symmetric weighted
// adjacency adj.
func louvain(adj []map[int]float64) []int {
	n := len(adj)
	membership := make([]int, n)
	for i := range membership {
		membership[i] = i
	}

	for range louvainMaxLevels {
		comm, moved := localMoves(adj)
		if !moved {
			break
		}
		comm = renumber(comm)
		for i := range membership {
			membership[i] = comm[membership[i]]
		}
		adj = aggregate(adj, comm)
		if len(adj) == 1 {
			break
		}
	}
	return renumber(membership)
}

// localMoves greedily moves nodes between neighbouring communities while
// modularity improves.
func localMoves(adj []map[int]float64) ([]int, bool) {
	n := len(adj)
	comm := make([]int, n)
	degree := make([]float64, n)
	total := make([]float64, n)
	m2 := 0.0
	for i, row := range adj {
		comm[i] = i
		for _, w := range row {
			degree[i] += w
		}
		total[i] = degree[i]
		m2 += degree[i]
	}
	if m2 == 0 {
		return comm, false
	}

	movedAny := false
	for range louvainMaxPasses {
		moved := false
		for i := range n {
			links := map[int]float64{}
			for j, w := range adj[i] {
				if j != i {
					links[comm[j]] += w
				}
			}

			current := comm[i]
			total[current] -= degree[i]

			best := current
			bestGain := links[current] - total[current]*degree[i]/m2
			for _, c := range slices.Sorted(maps.Keys(links)) {
				gain := links[c] - total[c]*degree[i]/m2
				if gain > bestGain+louvainEpsilon {
					best, bestGain = c, gain
				}
			}

			total[best] += degree[i]
			if best != current {
				comm[i] = best
				moved = true
				movedAny = true
			}
		}
		if !moved {
			break
		}
	}
	return comm, movedAny
}

// renumber maps arbitrary community labels onto 0..k-1 in order of first
// appearance.
func renumber(comm []int) []int {
	ids := map[int]int{}
	out := make([]int, len(comm))
	for i, c := range comm {
		id, ok := ids[c]
		if !ok {
			id = len(ids)
			ids[c] = id
		}
		out[i] = id
	}
	return out
}

// aggregate collapses every community into a single node. Internal weight
// becomes a self loop so degrees are preserved.
func aggregate(adj []map[int]float64, comm []int) []map[int]float64 {
	k := 0
	for _, c := range comm {
		k = max(k, c+1)
	}
	out := make([]map[int]float64, k)
	for i := range out {
		out[i] = map[int]float64{}
	}
	for i, row := range adj {
		for j, w := range row {
			out[comm[i]][comm[j]] += w
		}
	}
	return out
}

// Modularity scores a partition of the undirected weighted graph.
func Modularity(snap common.Snapshot, communities map[string]int) float64 {
	v := newView(snap)
	degree := make([]float64, v.order())
	m2 := 0.0
	internal := map[int]float64{}
	totals := map[int]float64{}

	for u, arcs := range v.out {
		for _, a := range arcs {
			if a.to == u || a.weight <= 0 {
				continue
			}
			degree[u] += a.weight
			degree[a.to] += a.weight
			m2 += 2 * a.weight
			if communities[v.ids[u]] == communities[v.ids[a.to]] {
				internal[communities[v.ids[u]]] += 2 * a.weight
			}
		}
	}
	if m2 == 0 {
		return 0
	}
	for i, d := range degree {
		totals[communities[v.ids[i]]] += d
	}

	q := 0.0
	for c, tot := range totals {
		q += internal[c]/m2 - (tot/m2)*(tot/m2)
	}
	return q
}

// AssignCommunities runs Communities on the store and writes the community
// id onto every node. Failures are logged and yield an empty map.
func AssignCommunities(g *graph.Store) map[string]int {
	snap := g.Get()
	var out map[string]int
	if err := safely("louvain", func() error {
		out = Communities(snap)
		return nil
	}); err != nil {
		logFailure("Community detection", err)
		return map[string]int{}
	}
	logger.Debug("[Analytics] Communities assigned", "communities", len(Groups(out)), "modularity", Modularity(snap, out))

	for id, c := range out {
		_ = g.UpdateNode(id, func(n *common.Node) error {
			n.Attributes.Community = &c
			return nil
		})
	}
	return out
}

// Groups buckets node ids by community id, members in lexical order.
func Groups(communities map[string]int) map[int][]string {
	groups := map[int][]string{}
	for id, c := range communities {
		groups[c] = append(groups[c], id)
	}
	for _, members := range groups {
		slices.Sort(members)
	}
	return groups
}

// Largest returns up to limit community ids ordered by size, largest
// first; ties go to the lower id.
func Largest(groups map[int][]string, limit int) []int {
	ids := sortedCommunityIDs(groups)
	slices.SortStableFunc(ids, func(a, b int) int {
		return len(groups[b]) - len(groups[a])
	})
	if limit > 0 && len(ids) > limit {
		ids = ids[:limit]
	}
	return ids
}
