package decay

import (
	"testing"

	"github.com/chmielvu/Forge-Text/pkg/common"
	"github.com/chmielvu/Forge-Text/pkg/graph"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApplyDecaysGrudgeAndSyncsEdge(t *testing.T) {
	g := graph.New(common.Snapshot{})

	res := Apply(g, "FACULTY_PETRA", DefaultConfig(), 5)

	require.Contains(t, res.Decayed, "Subject_Nico")
	assert.InDelta(t, 85.5, res.Decayed["Subject_Nico"], 1e-9)

	petra, _ := g.Node("FACULTY_PETRA")
	assert.InDelta(t, 85.5, petra.Attributes.Grudges["Subject_Nico"], 1e-9)

	edge, ok := g.Edge(common.EdgeKey("FACULTY_PETRA", "Subject_Nico", common.EdgeGrudge))
	require.True(t, ok)
	assert.InDelta(t, 0.855, edge.Weight, 1e-9)
	assert.Equal(t, 5, edge.Meta["faded_at"])
}

func TestDecayFloorConverges(t *testing.T) {
	g := graph.New(common.Snapshot{})
	cfg := DefaultConfig()

	prev := 100.0
	for turn := 1; turn <= 400; turn++ {
		Apply(g, "PREFECT_DISSIDENT", cfg, turn)
		n, _ := g.Node("PREFECT_DISSIDENT")
		v := n.Attributes.Grudges["FACULTY_SELENE"]

		assert.GreaterOrEqual(t, v, cfg.MinWeight)
		if prev > cfg.MinWeight {
			assert.Less(t, v, prev)
		}
		prev = v
	}
	assert.Equal(t, cfg.MinWeight, prev)

	edge, _ := g.Edge(common.EdgeKey("PREFECT_DISSIDENT", "FACULTY_SELENE", common.EdgeGrudge))
	assert.Greater(t, edge.Weight, 0.0)
}

func TestApplyLeavesOtherEdgeTypesAlone(t *testing.T) {
	g := graph.New(common.Snapshot{})
	_, ok := g.AddEdge(common.Edge{Source: "FACULTY_PETRA", Target: "Subject_Nico", Type: common.EdgeKnowledge, Weight: 0.4})
	require.True(t, ok)

	Apply(g, "FACULTY_PETRA", DefaultConfig(), 5)

	edge, _ := g.Edge(common.EdgeKey("FACULTY_PETRA", "Subject_Nico", common.EdgeKnowledge))
	assert.Equal(t, 0.4, edge.Weight)
}

func TestApplyOnMissingNodeIsNoop(t *testing.T) {
	g := graph.New(common.Snapshot{})
	res := Apply(g, "nobody", DefaultConfig(), 5)
	assert.Empty(t, res.Decayed)
}

func TestFadedTargetsAreReported(t *testing.T) {
	g := graph.New(common.Snapshot{Nodes: map[string]common.Node{
		"a": {ID: "a", Type: common.NodePrefect, Attributes: common.Attributes{Grudges: map[string]float64{"b": 0.12, "c": 50}}},
		"b": {ID: "b"},
		"c": {ID: "c"},
	}})

	res := Apply(g, "a", DefaultConfig(), 5)
	assert.Equal(t, []string{"b"}, res.Faded)
}

func TestSchedulerRunsOncePerAlignedTurn(t *testing.T) {
	g := graph.New(common.Snapshot{})
	s := NewScheduler(DefaultConfig())

	_, ran := s.RunIfDue(g, 4)
	assert.False(t, ran)

	results, ran := s.RunIfDue(g, 5)
	require.True(t, ran)
	assert.NotEmpty(t, results)

	_, ran = s.RunIfDue(g, 5)
	assert.False(t, ran, "second caller on the same turn must not decay twice")

	ivy, _ := g.Node("ASPIRANT_IVY")
	assert.InDelta(t, 76.0, ivy.Attributes.Grudges["Subject_Theo"], 1e-9)
}

func TestAgentIDsSkipsLocations(t *testing.T) {
	g := graph.New(common.Snapshot{})
	ids := AgentIDs(g)
	assert.NotContains(t, ids, "loc_infirmary")
	assert.Contains(t, ids, "Subject_84")
	assert.Len(t, ids, 19)
}
