package mutation

import (
	"strings"
	"testing"

	"github.com/chmielvu/Forge-Text/pkg/common"
	"github.com/chmielvu/Forge-Text/pkg/graph"
	"github.com/chmielvu/Forge-Text/pkg/resolve"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newCastEngine(t *testing.T) (*graph.Store, *Engine) {
	t.Helper()
	g := graph.New(common.Snapshot{})
	return g, NewEngine(g)
}

func ptr(v float64) *float64 { return &v }

func TestAddNodeAndEdgeAreIdempotent(t *testing.T) {
	g, e := newCastEngine(t)
	batch := []Mutation{
		AddNode{Node: common.Node{ID: "loc_chapel", Type: common.NodeLocation, Label: "Chapel"}},
		AddEdge{Source: "FACULTY_CONFESSOR", Target: "loc_chapel", Type: common.EdgeSpatial, Weight: ptr(0.7)},
	}

	first := e.Apply(batch, 1)
	order, size := g.Order(), g.Size()
	second := e.Apply(batch, 1)

	assert.Equal(t, 2, first.Applied)
	assert.Equal(t, 2, second.Applied)
	assert.Equal(t, order, g.Order())
	assert.Equal(t, size, g.Size())
	assert.Equal(t, 21, order)
	assert.Equal(t, 17, size)

	edge, ok := g.Edge("FACULTY_CONFESSOR_loc_chapel_SPATIAL")
	require.True(t, ok)
	assert.InDelta(t, 0.7, edge.Weight, 1e-9)
}

func TestAddEdgeDefaultsWeightAndDropsDangling(t *testing.T) {
	g, e := newCastEngine(t)

	report := e.Apply([]Mutation{
		AddEdge{Source: "Subject_84", Target: "Subject_Theo"},
		AddEdge{Source: "Subject_84", Target: "nobody"},
	}, 1)

	assert.Equal(t, 1, report.Applied)
	require.Len(t, report.Skipped, 1)
	assert.Equal(t, 1, report.Skipped[0].Index)

	edge, ok := g.Edge("Subject_84_Subject_Theo_RELATIONSHIP")
	require.True(t, ok)
	assert.Equal(t, DefaultEdgeWeight, edge.Weight)
}

func TestGrudgeAccumulatesAndSyncsEdge(t *testing.T) {
	g, e := newCastEngine(t)
	_, ok := g.AddEdge(common.Edge{Source: "Subject_Darius", Target: "FACULTY_PETRA", Type: common.EdgeGrudge, Weight: 0.1})
	require.True(t, ok)

	for range 3 {
		e.Apply([]Mutation{UpdateGrudge{Source: "Subject_Darius", Target: "FACULTY_PETRA", Delta: 30}}, 1)
	}

	n, _ := g.Node("Subject_Darius")
	assert.Equal(t, 90.0, n.Attributes.Grudges["FACULTY_PETRA"])

	edge, _ := g.Edge("Subject_Darius_FACULTY_PETRA_GRUDGE")
	assert.InDelta(t, 0.9, edge.Weight, 1e-9)
}

func TestWeightAndGrudgeClampInvariant(t *testing.T) {
	g, e := newCastEngine(t)

	e.Apply([]Mutation{
		UpdateGrudge{Source: "FACULTY_PETRA", Target: "Subject_Nico", Delta: 500},
		UpdateGrudge{Source: "ASPIRANT_IVY", Target: "Subject_Theo", Delta: -500},
		AddEdge{Source: "Subject_84", Target: "Subject_Silas", Weight: ptr(7)},
		UpdateEdge{Key: "Subject_Nico_Subject_84_RELATIONSHIP", Weight: ptr(-3)},
		UpdateRelationship{Source: "PREFECT_LOYALIST", Target: "FACULTY_SELENE", Delta: 5},
	}, 2)

	for _, edge := range g.Edges() {
		assert.GreaterOrEqual(t, edge.Weight, 0.0, edge.Key)
		assert.LessOrEqual(t, edge.Weight, 1.0, edge.Key)
	}
	for _, n := range g.Nodes() {
		for target, v := range n.Attributes.Grudges {
			assert.GreaterOrEqual(t, v, 0.0, "%s -> %s", n.ID, target)
			assert.LessOrEqual(t, v, 100.0, "%s -> %s", n.ID, target)
		}
	}

	petra, _ := g.Node("FACULTY_PETRA")
	assert.Equal(t, 100.0, petra.Attributes.Grudges["Subject_Nico"])
	loyalist, _ := g.Node("PREFECT_LOYALIST")
	assert.Equal(t, 1.0, loyalist.Attributes.Relationships["FACULTY_SELENE"])
}

func TestUpdateRelationshipNeedsRelationshipMap(t *testing.T) {
	g, e := newCastEngine(t)

	report := e.Apply([]Mutation{
		UpdateRelationship{Source: "Subject_Theo", Target: "Subject_84", Delta: 0.2, Category: "TRUST"},
		UpdateRelationship{Source: "PREFECT_OBSESSIVE", Target: "Subject_84", Delta: 0.2, Category: "TRUST"},
	}, 3)

	assert.Equal(t, 1, report.Applied)
	require.Len(t, report.Skipped, 1)
	assert.Equal(t, OpUpdateRelationship, report.Skipped[0].Operation)

	theo, _ := g.Node("Subject_Theo")
	assert.Nil(t, theo.Attributes.Relationships)
	obsessive, _ := g.Node("PREFECT_OBSESSIVE")
	assert.InDelta(t, 0.8, obsessive.Attributes.Relationships["Subject_84"], 1e-9)
}

func TestUpdateRelationshipSyncsRelationshipEdge(t *testing.T) {
	g, e := newCastEngine(t)

	e.Apply([]Mutation{UpdateRelationship{Source: "PREFECT_NURSE", Target: "ASPIRANT_VESPER", Delta: -0.4, Category: "FAVOR"}}, 3)

	nurse, _ := g.Node("PREFECT_NURSE")
	assert.InDelta(t, -0.6, nurse.Attributes.Relationships["ASPIRANT_VESPER"], 1e-9)

	edge, _ := g.Edge("PREFECT_NURSE_ASPIRANT_VESPER_RELATIONSHIP")
	assert.InDelta(t, 0.2, edge.Weight, 1e-9)
	assert.Equal(t, "FAVOR", edge.Meta["category"])
}

func TestUpdateNodeMergesAttributes(t *testing.T) {
	g, e := newCastEngine(t)

	report := e.Apply([]Mutation{UpdateNode{
		ID:    "Subject_Silas",
		Label: "Silas the Quiet",
		Attributes: map[string]any{
			"currentEmotionalState": map[string]any{"fear": 0.9},
			"last_action":           "hid in the archive",
		},
	}}, 4)
	require.Equal(t, 1, report.Applied)

	n, _ := g.Node("Subject_Silas")
	assert.Equal(t, "Silas the Quiet", n.Label)
	assert.Equal(t, "hid in the archive", n.Attributes.Extra["last_action"])
	require.NotNil(t, n.Attributes.Emotional)
	assert.Equal(t, 0.9, n.Attributes.Emotional.Fear)
	assert.NotEmpty(t, n.Attributes.Traits, "unrelated attributes survive the merge")
}

func TestRemoveNodeCascadesThroughEngine(t *testing.T) {
	g, e := newCastEngine(t)

	report := e.Apply([]Mutation{RemoveNode{ID: "Subject_Theo"}}, 1)
	require.Equal(t, 1, report.Applied)

	for _, edge := range g.Edges() {
		assert.NotEqual(t, "Subject_Theo", edge.Source)
		assert.NotEqual(t, "Subject_Theo", edge.Target)
	}
}

func TestAddMemoryTargetsFirstKnownEntity(t *testing.T) {
	g, e := newCastEngine(t)

	e.Apply([]Mutation{AddMemory{Memory: common.Memory{
		Description: "Saw the ledger burn",
		Involved:    []string{"ghost", "Subject_Nico", "Subject_84"},
	}}}, 6)

	nico, _ := g.Node("Subject_Nico")
	require.Len(t, nico.Attributes.Memories, 1)
	mem := nico.Attributes.Memories[0]
	assert.Equal(t, 6, mem.Turn)
	assert.True(t, strings.HasPrefix(mem.ID, "mem_"))

	subject, _ := g.Node("Subject_84")
	assert.Empty(t, subject.Attributes.Memories)
}

func TestAddMemoryFallsBackToStandaloneNode(t *testing.T) {
	g, e := newCastEngine(t)
	before := g.Order()

	e.Apply([]Mutation{AddMemory{Memory: common.Memory{
		ID:          "mem_storm",
		Description: "A storm tore the roof off the east dormitory wing",
		Involved:    []string{"unknown_person"},
	}}}, 2)

	assert.Equal(t, before+1, g.Order())
	n, ok := g.Node("mem_storm")
	require.True(t, ok)
	assert.Equal(t, common.NodeMemory, n.Type)
	assert.Equal(t, "A storm tore the roof off the ...", n.Label)
	require.Len(t, n.Attributes.Memories, 1)
}

func TestAddMemoryAppendsToExistingMemoryNode(t *testing.T) {
	g, e := newCastEngine(t)
	storm := common.Memory{ID: "mem_storm", Description: "A storm tore the roof off", Involved: []string{"unknown_person"}}
	e.Apply([]Mutation{AddMemory{Memory: storm}}, 2)
	before := g.Order()

	report := e.Apply([]Mutation{
		AddMemory{Memory: common.Memory{ID: "mem_storm", Description: "The roof was never repaired", Involved: []string{"ghost"}}},
		AddMemory{Memory: storm},
	}, 3)

	assert.Equal(t, before, g.Order())
	n, ok := g.Node("mem_storm")
	require.True(t, ok)
	require.Len(t, n.Attributes.Memories, 2)
	assert.Equal(t, "The roof was never repaired", n.Attributes.Memories[1].Description)
	assert.Equal(t, 3, n.Attributes.Memories[1].Turn)
	assert.Equal(t, 1, report.Applied)
	require.Len(t, report.Skipped, 1)
	assert.Equal(t, 1, report.Skipped[0].Index)
}

func TestBatchResolvesAgainstNodesCreatedEarlier(t *testing.T) {
	g := graph.New(common.Snapshot{})
	e := NewEngine(g, WithResolver(resolve.New()))

	report := e.Apply([]Mutation{
		AddNode{Node: common.Node{ID: "Theo's Diary", Type: common.NodeConcept, Label: "Theo's Diary"}},
		AddEdge{Source: "Subject_84", Target: "Theo's Diary", Type: common.EdgeKnowledge},
		AddSecret{Description: "Hid the diary", DiscoveredBy: "Petra"},
	}, 4)
	assert.Equal(t, 3, report.Applied)

	_, ok := g.Edge("Subject_84_Theo's Diary_KNOWLEDGE")
	assert.True(t, ok)
	_, ok = g.Edge("Subject_84_Subject_Theo_KNOWLEDGE")
	assert.False(t, ok)

	subject, _ := g.Node("Subject_84")
	require.Len(t, subject.Attributes.Secrets, 1)
	assert.Equal(t, "FACULTY_PETRA", subject.Attributes.Secrets[0].DiscoveredBy)
}

func TestTraumaMemoryRaisesLedger(t *testing.T) {
	g, e := newCastEngine(t)
	before, _ := g.Node("Subject_84")

	e.Apply([]Mutation{AddMemory{Memory: common.Memory{
		Description: "The calibration",
		TraumaDelta: 15,
		Traumatic:   true,
	}}}, 2)

	after, _ := g.Node("Subject_84")
	require.Len(t, after.Attributes.Memories, 1)
	assert.True(t, after.Attributes.Memories[0].Traumatic)
	assert.Equal(t, before.Attributes.Ledger.TraumaLevel+15, after.Attributes.Ledger.TraumaLevel)
}

func TestSecretInjuryAndLedgerDefaultToSubject(t *testing.T) {
	g, e := newCastEngine(t)

	report := e.Apply([]Mutation{
		AddSecret{Description: "Keeps a hidden key", DiscoveredBy: "PREFECT_NURSE"},
		AddInjury{Injury: "bruised ribs"},
		AddInjury{Injury: "bruised ribs"},
		UpdateLedger{Deltas: map[string]float64{"hope_level": -500, "compliance_score": 5, "bogus": 1}},
	}, 7)
	assert.Equal(t, 4, report.Applied)

	n, _ := g.Node("Subject_84")
	require.Len(t, n.Attributes.Secrets, 1)
	assert.Equal(t, 7, n.Attributes.Secrets[0].Turn)
	assert.True(t, strings.HasPrefix(n.Attributes.Secrets[0].Name, "secret_"))
	assert.Equal(t, []string{"bruised ribs"}, n.Attributes.Injuries)
	assert.Equal(t, 0.0, n.Attributes.Ledger.HopeLevel)
}

func TestFormAllianceLinksEveryPair(t *testing.T) {
	g, e := newCastEngine(t)
	before := g.Size()

	report := e.Apply([]Mutation{FormAlliance{
		Name:    "night_watch",
		Members: []string{"Subject_Nico", "Subject_Darius", "Subject_Silas", "ghost"},
	}}, 5)
	require.Equal(t, 1, report.Applied)

	assert.Equal(t, before+6, g.Size())
	edge, ok := g.Edge("Subject_Silas_Subject_Nico_ALLIANCE")
	require.True(t, ok)
	assert.Equal(t, AllianceWeight, edge.Weight)
	assert.Equal(t, "night_watch", edge.Meta["alliance"])
}

func TestMalformedRecordDoesNotAbortBatch(t *testing.T) {
	g, e := newCastEngine(t)

	report := e.Apply([]Mutation{
		Unrecognized{Op: "summon_demon", Reason: "unknown operation"},
		AddNode{Node: common.Node{}},
		AddInjury{TargetID: "Subject_Nico", Injury: "split lip"},
	}, 1)

	assert.Equal(t, 1, report.Applied)
	require.Len(t, report.Skipped, 2)
	assert.Equal(t, "summon_demon", report.Skipped[0].Operation)
	assert.Contains(t, report.Skipped[0].Reason, ErrUnknownOperation.Error())

	nico, _ := g.Node("Subject_Nico")
	assert.Equal(t, []string{"split lip"}, nico.Attributes.Injuries)
}

func TestUpdateEdgeByCompositeKey(t *testing.T) {
	g, e := newCastEngine(t)

	report := e.Apply([]Mutation{
		UpdateEdge{Source: "Subject_Darius", Target: "Subject_Theo", Weight: ptr(0.2), Meta: map[string]any{"strained": true}},
		UpdateEdge{Source: "Subject_Darius", Target: "Subject_Theo", Type: common.EdgeGrudge, Weight: ptr(0.2)},
	}, 1)

	assert.Equal(t, 1, report.Applied)
	edge, _ := g.Edge("Subject_Darius_Subject_Theo_RELATIONSHIP")
	assert.InDelta(t, 0.2, edge.Weight, 1e-9)
	assert.Equal(t, true, edge.Meta["strained"])
	assert.Equal(t, 9.0, edge.Meta["tension"])
}
