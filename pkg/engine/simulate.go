package engine

import (
	"context"
	"fmt"
	"maps"
	"math/rand/v2"
	"slices"

	"github.com/chmielvu/Forge-Text/internal/util"
	"github.com/chmielvu/Forge-Text/pkg/common"
	"github.com/chmielvu/Forge-Text/pkg/mutation"
)

const (
	// SabotageGrudge is the grudge a sabotage attempt adds toward its target.
	SabotageGrudge = 25.0
	// AllianceShift is the relationship gain of an alliance signal.
	AllianceShift = 0.2

	sabotageChance = 0.5
	allianceChance = 0.5
	secretChance   = 0.2
	paranoiaJitter = 0.1
)

// Simulation is what one agent did off screen during a turn.
type Simulation struct {
	AgentID          string                 `json:"agent_id" validate:"required"`
	PublicAction     string                 `json:"public_action"`
	HiddenMotivation string                 `json:"hidden_motivation,omitempty"`
	Emotional        *common.EmotionalState `json:"emotional_state,omitempty"`
	SabotageTarget   string                 `json:"sabotage_target,omitempty"`
	AllianceTarget   string                 `json:"alliance_target,omitempty"`
	SecretsUncovered []string               `json:"secrets_uncovered,omitempty"`
}

// SimulationMutations turns simulations into a mutation batch: the agent's
// emotional state and last action, a memory of the action, a grudge toward
// the sabotage target, a trust shift toward the ally and one secret record
// per uncovered secret.
func SimulationMutations(sims []Simulation, turn int) []mutation.Mutation {
	var muts []mutation.Mutation
	for _, s := range sims {
		if s.AgentID == "" {
			continue
		}

		attrs := map[string]any{"last_public_action": s.PublicAction}
		if s.Emotional != nil {
			attrs["currentEmotionalState"] = map[string]any{
				"paranoia": s.Emotional.Paranoia,
				"fear":     s.Emotional.Fear,
				"anger":    s.Emotional.Anger,
				"arousal":  s.Emotional.Arousal,
			}
		}
		muts = append(muts, mutation.UpdateNode{ID: s.AgentID, Attributes: attrs})

		other := s.SabotageTarget
		if other == "" {
			other = s.AllianceTarget
		}
		involved := []string{s.AgentID}
		if other != "" {
			involved = append(involved, other)
		}
		muts = append(muts, mutation.AddMemory{Memory: common.Memory{
			ID:          util.NewID("mem"),
			Description: fmt.Sprintf("Action: %s | Motivation: %s", s.PublicAction, s.HiddenMotivation),
			Involved:    involved,
			Turn:        turn,
		}})

		if s.SabotageTarget != "" {
			muts = append(muts, mutation.UpdateGrudge{Source: s.AgentID, Target: s.SabotageTarget, Delta: SabotageGrudge})
		}
		if s.AllianceTarget != "" {
			muts = append(muts, mutation.UpdateRelationship{Source: s.AgentID, Target: s.AllianceTarget, Delta: AllianceShift, Category: "TRUST"})
		}
		for _, secret := range s.SecretsUncovered {
			muts = append(muts, mutation.AddSecret{
				SecretID:     util.NewID("secret"),
				Description:  secret,
				DiscoveredBy: s.AgentID,
				Turn:         turn,
			})
		}
	}
	return muts
}

// ApplySimulations applies generator-provided simulations like any other
// batch.
func (c *Controller) ApplySimulations(ctx context.Context, sims []Simulation) mutation.Report {
	if len(sims) == 0 {
		return mutation.Report{}
	}
	return c.ApplyMutations(ctx, SimulationMutations(sims, c.g.Global().TurnCount))
}

// ApplyAgentSimulations lets every prefect act on its own for one turn and
// applies the result. rng nil uses the controller's source.
func (c *Controller) ApplyAgentSimulations(ctx context.Context, rng *rand.Rand) mutation.Report {
	if rng == nil {
		c.rngMu.Lock()
		rng = rand.New(rand.NewPCG(c.rng.Uint64(), c.rng.Uint64()))
		c.rngMu.Unlock()
	}
	return c.ApplySimulations(ctx, c.SimulateAgents(rng))
}

var publicActions = []string{
	"Lingers near the infirmary door",
	"Reports a rule breach to the faculty",
	"Volunteers for the evening inspection",
	"Whispers with another prefect in the corridor",
}

// SimulateAgents invents one simulation per prefect. Each prefect sabotages
// its fiercest grudge target (or a random rival) and signals an alliance to
// the agent it trusts most, each with fixed odds. Output is deterministic
// for a given rng state.
func (c *Controller) SimulateAgents(rng *rand.Rand) []Simulation {
	snap := c.g.Get()

	var agents []string
	for _, id := range snap.SortedNodeIDs() {
		if snap.Nodes[id].Type.IsAgent() {
			agents = append(agents, id)
		}
	}

	var sims []Simulation
	for _, id := range agents {
		n := snap.Nodes[id]
		if n.Type != common.NodePrefect {
			continue
		}
		sim := Simulation{
			AgentID:          id,
			PublicAction:     publicActions[rng.IntN(len(publicActions))],
			HiddenMotivation: "Secure standing before the next inspection",
		}

		if n.Attributes.Emotional != nil {
			e := *n.Attributes.Emotional
			e.Paranoia = common.Clamp(e.Paranoia+(rng.Float64()*2-1)*paranoiaJitter, 0, 1)
			sim.Emotional = &e
		}

		if rng.Float64() < sabotageChance {
			sim.SabotageTarget = strongest(n.Attributes.Grudges)
			if sim.SabotageTarget == "" {
				sim.SabotageTarget = randomOther(rng, agents, id)
			}
			sim.HiddenMotivation = "Break a rival before they rise"
		}
		if rng.Float64() < allianceChance {
			sim.AllianceTarget = strongest(n.Attributes.Relationships)
		}
		if rng.Float64() < secretChance {
			sim.SecretsUncovered = []string{fmt.Sprintf("%s was seen where no one should be", labelOr(snap, sim.SabotageTarget, c.subject))}
		}
		sims = append(sims, sim)
	}
	return sims
}

// strongest returns the key with the highest value, ties broken by key.
func strongest(m map[string]float64) string {
	best := ""
	for _, k := range slices.Sorted(maps.Keys(m)) {
		if best == "" || m[k] > m[best] {
			best = k
		}
	}
	return best
}

func randomOther(rng *rand.Rand, ids []string, self string) string {
	others := slices.DeleteFunc(slices.Clone(ids), func(id string) bool { return id == self })
	if len(others) == 0 {
		return ""
	}
	return others[rng.IntN(len(others))]
}

func labelOr(snap common.Snapshot, id, fallback string) string {
	if id == "" {
		id = fallback
	}
	if n, ok := snap.Nodes[id]; ok && n.Label != "" {
		return n.Label
	}
	return id
}
