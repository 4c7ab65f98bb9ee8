package engine

import (
	"context"
	"math/rand/v2"
	"testing"

	"github.com/chmielvu/Forge-Text/pkg/common"
	"github.com/chmielvu/Forge-Text/pkg/mutation"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSimulationMutations(t *testing.T) {
	muts := SimulationMutations([]Simulation{
		{
			AgentID:          "PREFECT_OBSESSIVE",
			PublicAction:     "Trips Elara on the stairs",
			HiddenMotivation: "Jealousy",
			Emotional:        &common.EmotionalState{Paranoia: 0.8},
			SabotageTarget:   "PREFECT_LOYALIST",
			AllianceTarget:   "ASPIRANT_VESPER",
			SecretsUncovered: []string{"Elara forges inspection reports"},
		},
		{PublicAction: "ignored without an agent"},
	}, 7)

	ops := make([]string, len(muts))
	for i, m := range muts {
		ops[i] = m.Operation()
	}
	assert.Equal(t, []string{
		mutation.OpUpdateNode,
		mutation.OpAddMemory,
		mutation.OpUpdateGrudge,
		mutation.OpUpdateRelationship,
		mutation.OpAddSecret,
	}, ops)

	mem := muts[1].(mutation.AddMemory).Memory
	assert.Equal(t, "Action: Trips Elara on the stairs | Motivation: Jealousy", mem.Description)
	assert.Equal(t, []string{"PREFECT_OBSESSIVE", "PREFECT_LOYALIST"}, mem.Involved)
	assert.Equal(t, 7, mem.Turn)

	assert.Equal(t, SabotageGrudge, muts[2].(mutation.UpdateGrudge).Delta)
	assert.Equal(t, "TRUST", muts[3].(mutation.UpdateRelationship).Category)
	assert.Equal(t, "PREFECT_OBSESSIVE", muts[4].(mutation.AddSecret).DiscoveredBy)
}

func TestApplySimulationsEscalatesGrudge(t *testing.T) {
	c := newController(t, nil)

	report := c.ApplySimulations(context.Background(), []Simulation{{
		AgentID:        "Kaelen",
		PublicAction:   "Spills ink on Elara's ledger",
		SabotageTarget: "Elara",
	}})
	assert.Empty(t, report.Skipped)

	kaelen, _ := c.Graph().Node("PREFECT_OBSESSIVE")
	assert.Equal(t, 95.0, kaelen.Attributes.Grudges["PREFECT_LOYALIST"])
	assert.Equal(t, "Spills ink on Elara's ledger", kaelen.Attributes.Extra["last_public_action"])
	require.NotEmpty(t, kaelen.Attributes.Memories)
}

func TestSimulateAgentsIsDeterministic(t *testing.T) {
	c := newController(t, nil)

	a := c.SimulateAgents(rand.New(rand.NewPCG(7, 7)))
	b := c.SimulateAgents(rand.New(rand.NewPCG(7, 7)))
	assert.Equal(t, a, b)

	require.NotEmpty(t, a)
	for _, s := range a {
		n, ok := c.Graph().Node(s.AgentID)
		require.True(t, ok)
		assert.Equal(t, common.NodePrefect, n.Type)
		assert.NotEqual(t, s.AgentID, s.SabotageTarget)
		if s.Emotional != nil {
			assert.GreaterOrEqual(t, s.Emotional.Paranoia, 0.0)
			assert.LessOrEqual(t, s.Emotional.Paranoia, 1.0)
		}
	}
}

func TestApplyAgentSimulations(t *testing.T) {
	c := newController(t, nil)

	report := c.ApplyAgentSimulations(context.Background(), rand.New(rand.NewPCG(3, 4)))
	assert.Positive(t, report.Applied)

	for _, e := range c.Graph().Edges() {
		assert.GreaterOrEqual(t, e.Weight, 0.0)
		assert.LessOrEqual(t, e.Weight, 1.0)
	}
}

func TestStrongest(t *testing.T) {
	assert.Equal(t, "b", strongest(map[string]float64{"a": 1, "b": 3, "c": 3}))
	assert.Empty(t, strongest(nil))
}
