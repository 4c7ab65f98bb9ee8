package query

import (
	"hash/fnv"
	"math"

	"github.com/chmielvu/Forge-Text/pkg/common"

	"github.com/viterin/vek/vek32"
)

// Embeddings builds a small structural vector per node: each node puts
// weight 1 into its own hash bucket and each incident edge adds its weight
// into the bucket of the neighbour. Nodes that share neighbourhoods end up
// pointing the same way.
func Embeddings(snap common.Snapshot, dim int) map[string][]float32 {
	if dim <= 0 {
		dim = DefaultParams().EmbeddingDim
	}
	out := make(map[string][]float32, len(snap.Nodes))
	for id := range snap.Nodes {
		v := make([]float32, dim)
		v[bucket(id, dim)] += 1
		out[id] = v
	}
	for _, e := range snap.Edges {
		src, okS := out[e.Source]
		dst, okT := out[e.Target]
		if !okS || !okT || e.Source == e.Target {
			continue
		}
		w := float32(e.Weight)
		src[bucket(e.Target, dim)] += w
		dst[bucket(e.Source, dim)] += w
	}
	return out
}

func bucket(id string, dim int) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(id))
	return int(h.Sum32() % uint32(dim))
}

// Cosine returns the cosine similarity of a and b, or 0 when either is
// empty, zero or the lengths differ.
func Cosine(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	sim := float64(vek32.CosineSimilarity(a, b))
	if math.IsNaN(sim) || math.IsInf(sim, 0) {
		return 0
	}
	return sim
}
