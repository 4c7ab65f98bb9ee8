package analytics

import (
	"testing"

	"github.com/chmielvu/Forge-Text/pkg/common"
	"github.com/chmielvu/Forge-Text/pkg/graph"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func snapshotOf(edges ...common.Edge) common.Snapshot {
	snap := common.Snapshot{Nodes: map[string]common.Node{}}
	for _, e := range edges {
		snap.Nodes[e.Source] = common.Node{ID: e.Source}
		snap.Nodes[e.Target] = common.Node{ID: e.Target}
		if e.Key == "" {
			e.Key = common.EdgeKey(e.Source, e.Target, e.Type)
		}
		snap.Edges = append(snap.Edges, e)
	}
	return snap
}

func edge(src, tgt string, w float64) common.Edge {
	return common.Edge{Source: src, Target: tgt, Weight: w}
}

func TestPageRankSumsToOneAndFavoursHub(t *testing.T) {
	snap := snapshotOf(
		edge("a", "hub", 1), edge("b", "hub", 1), edge("c", "hub", 1), edge("hub", "a", 0.2),
	)

	pr := PageRank(snap, DefaultPageRankOptions())

	sum := 0.0
	for _, v := range pr {
		sum += v
	}
	assert.InDelta(t, 1.0, sum, 1e-6)
	for _, id := range []string{"a", "b", "c"} {
		assert.Greater(t, pr["hub"], pr[id])
	}
}

func TestBetweennessOfChain(t *testing.T) {
	bc := Betweenness(snapshotOf(edge("a", "b", 1), edge("b", "c", 1)))

	assert.InDelta(t, 0.5, bc["b"], 1e-9)
	assert.Zero(t, bc["a"])
	assert.Zero(t, bc["c"])
}

func TestCommunitiesSplitsTwoTriangles(t *testing.T) {
	snap := snapshotOf(
		edge("a1", "a2", 1), edge("a2", "a3", 1), edge("a3", "a1", 1),
		edge("b1", "b2", 1), edge("b2", "b3", 1), edge("b3", "b1", 1),
		edge("a1", "b1", 0.1),
	)

	c := Communities(snap)

	require.Len(t, c, 6)
	assert.Equal(t, c["a1"], c["a2"])
	assert.Equal(t, c["a1"], c["a3"])
	assert.Equal(t, c["b1"], c["b2"])
	assert.Equal(t, c["b1"], c["b3"])
	assert.NotEqual(t, c["a1"], c["b1"])
	assert.Equal(t, 0, c["a1"], "ids are numbered from the lexically first member")

	assert.Greater(t, Modularity(snap, c), 0.3)
}

func TestCommunitiesWithoutEdges(t *testing.T) {
	snap := common.Snapshot{Nodes: map[string]common.Node{"x": {ID: "x"}, "y": {ID: "y"}}}
	c := Communities(snap)
	assert.Equal(t, map[string]int{"x": 0, "y": 1}, c)
}

func TestGroupsAndLargest(t *testing.T) {
	groups := Groups(map[string]int{"a": 0, "b": 1, "c": 1, "d": 2, "e": 2, "f": 2})
	assert.Equal(t, []string{"b", "c"}, groups[1])
	assert.Equal(t, []int{2, 1}, Largest(groups, 2))
	assert.Equal(t, []int{2, 1, 0}, Largest(groups, 0))
}

func TestDominancePathPrefersStrongRelations(t *testing.T) {
	snap := snapshotOf(
		edge("a", "b", 0.9), edge("b", "d", 0.9),
		edge("a", "c", 0.2), edge("c", "d", 1.0),
		edge("a", "d", 0.1),
	)

	path, ok := DominancePath(snap, "a", "d")
	require.True(t, ok)
	assert.Equal(t, []string{"a", "b", "d"}, path)

	_, ok = DominancePath(snap, "d", "a")
	assert.False(t, ok, "edges are directed")

	_, ok = DominancePath(snap, "a", "missing")
	assert.False(t, ok)

	path, ok = DominancePath(snap, "c", "c")
	require.True(t, ok)
	assert.Equal(t, []string{"c"}, path)
}

func TestDominancePathOnCast(t *testing.T) {
	g := graph.New(common.Snapshot{})

	path, ok := DominancePath(g.Get(), "Subject_Darius", "Subject_84")
	require.True(t, ok)
	assert.Equal(t, []string{"Subject_Darius", "Subject_Theo", "Subject_84"}, path)
}

func TestEffectiveThreshold(t *testing.T) {
	assert.InDelta(t, 0.1, EffectiveThreshold(0.1, 0), 1e-12)
	assert.InDelta(t, 0.05, EffectiveThreshold(0.1, 0.1), 1e-12)
	assert.InDelta(t, 0.02, EffectiveThreshold(0.1, 5), 1e-12)
}

func TestPruneCandidatesProtectImportantNodes(t *testing.T) {
	snap := snapshotOf(edge("hub", "x", 0.05), edge("y", "z", 0.05), edge("y", "x", 0.5))

	keys := PruneCandidates(snap, 0.1, map[string]float64{"hub": 0.2})

	assert.Equal(t, []string{"y_z_RELATIONSHIP"}, keys)
}

func TestPruneRemovesWeakEdgesOnly(t *testing.T) {
	g := graph.New(common.Snapshot{})
	key, ok := g.AddEdge(common.Edge{Source: "ASPIRANT_NYX", Target: "ASPIRANT_LUX", Weight: 0.001})
	require.True(t, ok)
	size := g.Size()

	removed := Prune(g, DefaultPruneThreshold)

	assert.Equal(t, 1, removed)
	assert.Equal(t, size-1, g.Size())
	_, ok = g.Edge(key)
	assert.False(t, ok)
}

func TestUpdateCentralityWritesAttributes(t *testing.T) {
	g := graph.New(common.Snapshot{})

	require.True(t, UpdateCentrality(g, DefaultBetweennessCeiling))
	for _, n := range g.Nodes() {
		require.NotNil(t, n.Attributes.PageRank, n.ID)
		assert.NotNil(t, n.Attributes.Betweenness, n.ID)
	}

	h := graph.New(common.Snapshot{})
	require.True(t, UpdateCentrality(h, 5))
	n, _ := h.Node("Subject_84")
	assert.NotNil(t, n.Attributes.PageRank)
	assert.Nil(t, n.Attributes.Betweenness, "betweenness is skipped above the ceiling")
}

func TestAssignCommunitiesWritesAttribute(t *testing.T) {
	g := graph.New(common.Snapshot{})

	c := AssignCommunities(g)
	require.Len(t, c, g.Order())

	n, _ := g.Node("Subject_84")
	require.NotNil(t, n.Attributes.Community)
	assert.Equal(t, c["Subject_84"], *n.Attributes.Community)
}
