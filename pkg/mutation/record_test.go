package mutation

import (
	"testing"

	"github.com/chmielvu/Forge-Text/pkg/common"
	"github.com/chmielvu/Forge-Text/pkg/graph"
	"github.com/chmielvu/Forge-Text/pkg/resolve"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeAcceptsArrayAndEnvelope(t *testing.T) {
	array := `[{"operation":"remove_node","id":"x"}]`
	envelope := `{"mutations":[{"operation":"remove_node","id":"x"}]}`

	for _, input := range []string{array, envelope} {
		muts, err := Decode(input)
		require.NoError(t, err, input)
		require.Len(t, muts, 1)
		assert.Equal(t, RemoveNode{ID: "x"}, muts[0])
	}
}

func TestDecodeRepairsGeneratorOutput(t *testing.T) {
	muts, err := Decode(`[{operation: 'update_grudge', source: 'petra', target: 'nico', delta: 10},]`)
	require.NoError(t, err)
	require.Len(t, muts, 1)
	assert.Equal(t, UpdateGrudge{Source: "petra", Target: "nico", Delta: 10}, muts[0])
}

func TestDecodeKeepsBadRecordsAsUnrecognized(t *testing.T) {
	muts, err := Decode(`[
		{"operation":"levitate","id":"a"},
		{"operation":"add_node","id":5},
		{"operation":"add_injury","params":{"target_id":"Subject_Nico","injury_name":"burn"}}
	]`)
	require.NoError(t, err)
	require.Len(t, muts, 3)

	assert.Equal(t, Unrecognized{Op: "levitate", Reason: "unknown operation"}, muts[0])

	bad, ok := muts[1].(Unrecognized)
	require.True(t, ok)
	assert.Equal(t, "add_node", bad.Op)

	assert.Equal(t, AddInjury{TargetID: "Subject_Nico", Injury: "burn"}, muts[2])
}

func TestDecodeRejectsUnreadableBatch(t *testing.T) {
	_, err := Decode(`42`)
	assert.Error(t, err)
}

func TestRecordVariants(t *testing.T) {
	muts, err := Decode(`[
		{"operation":"add_node","node":{"id":"loc_archive","type":"LOCATION","label":"Archive","attributes":{"dusty":true}}},
		{"operation":"update_node","id":"Subject_84","updates":{"label":"Eighty-Four","attributes":{"ledger":{"hope_level":40}},"last_action":"wept"}},
		{"operation":"add_edge","edge":{"source":"a","target":"b","type":"KNOWLEDGE","weight":0.4}},
		{"operation":"add_trauma_memory","memory":{"description":"The cold room"},"involved":["Subject_84"],"trauma_delta":12},
		{"operation":"add_secret","subject_id":"Subject_Nico","secret_id":"key","description":"has a key","turn_discovered":3},
		{"operation":"form_alliance","members":["a","b"],"name":"pact"},
		{"operation":"update_ledger","target_id":"Subject_84","deltas":{"hope_level":-5}}
	]`)
	require.NoError(t, err)
	require.Len(t, muts, 7)

	add := muts[0].(AddNode)
	assert.Equal(t, "loc_archive", add.Node.ID)
	assert.Equal(t, common.NodeLocation, add.Node.Type)
	assert.Equal(t, true, add.Node.Attributes.Extra["dusty"])

	upd := muts[1].(UpdateNode)
	assert.Equal(t, "Eighty-Four", upd.Label)
	assert.Equal(t, "wept", upd.Attributes["last_action"])
	assert.Equal(t, map[string]any{"hope_level": 40.0}, upd.Attributes["ledger"])

	edge := muts[2].(AddEdge)
	assert.Equal(t, common.EdgeKnowledge, edge.Type)
	require.NotNil(t, edge.Weight)
	assert.Equal(t, 0.4, *edge.Weight)

	mem := muts[3].(AddMemory)
	assert.Equal(t, OpAddTraumaMemory, mem.Operation())
	assert.Equal(t, []string{"Subject_84"}, mem.Memory.Involved)
	assert.Equal(t, 12.0, mem.Memory.TraumaDelta)

	assert.Equal(t, AddSecret{SubjectID: "Subject_Nico", SecretID: "key", Description: "has a key", Turn: 3}, muts[4])
	assert.Equal(t, FormAlliance{Members: []string{"a", "b"}, Name: "pact"}, muts[5])
	assert.Equal(t, UpdateLedger{TargetID: "Subject_84", Deltas: map[string]float64{"hope_level": -5}}, muts[6])
}

func TestNormalizeResolvesReferences(t *testing.T) {
	g := graph.New(common.Snapshot{})
	r := resolve.New()

	in := []Mutation{
		UpdateGrudge{Source: "Petra", Target: "nico", Delta: 5},
		AddEdge{Source: "the nurse", Target: "infirmary"},
		AddMemory{Memory: common.Memory{Description: "x", Involved: []string{"Darius", "qqqq"}, Witnesses: []string{"selene"}}},
		FormAlliance{Members: []string{"kaelen", "rhea"}},
		AddNode{Node: common.Node{ID: "Theo's Diary"}},
		AddNode{Node: common.Node{ID: "theo"}},
		AddInjury{Injury: "cut"},
		AddSecret{SubjectID: "nico", Description: "has a key", DiscoveredBy: "Petra"},
	}
	out := make([]Mutation, len(in))
	for i, m := range in {
		out[i] = Normalize(g, r, m)
	}

	assert.Equal(t, UpdateGrudge{Source: "FACULTY_PETRA", Target: "Subject_Nico", Delta: 5}, out[0])
	assert.Equal(t, AddEdge{Source: "PREFECT_NURSE", Target: "loc_infirmary"}, out[1])

	mem := out[2].(AddMemory)
	assert.Equal(t, []string{"Subject_Darius", "qqqq"}, mem.Memory.Involved)
	assert.Equal(t, []string{"FACULTY_SELENE"}, mem.Memory.Witnesses)

	assert.Equal(t, FormAlliance{Members: []string{"PREFECT_OBSESSIVE", "PREFECT_DISSIDENT"}}, out[3])
	assert.Equal(t, "Theo's Diary", out[4].(AddNode).Node.ID)
	assert.Equal(t, "Subject_Theo", out[5].(AddNode).Node.ID)
	assert.Equal(t, AddInjury{Injury: "cut"}, out[6])
	assert.Equal(t, AddSecret{SubjectID: "Subject_Nico", Description: "has a key", DiscoveredBy: "FACULTY_PETRA"}, out[7])
}

func TestSchemaDescribesOperation(t *testing.T) {
	assert.NotNil(t, Schema())
	assert.NotNil(t, BatchSchema())
}
