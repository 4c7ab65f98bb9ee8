package engine

import (
	"github.com/chmielvu/Forge-Text/pkg/common"
)

// spotlightMinWeight is the weight an edge from the subject needs to pull
// its neighbour on stage. Grudges and injuries always qualify.
const spotlightMinWeight = 0.3

// Spotlight is the slice of the graph currently on stage.
type Spotlight struct {
	Global common.GlobalState     `json:"global_state"`
	Nodes  map[string]common.Node `json:"spotlight_nodes"`
	Edges  []common.Edge          `json:"spotlight_edges"`
}

// Spotlight collects the subject, the location and the active agents, the
// subject's strong neighbours, and every edge between two active agents.
// Unknown ids are ignored.
func (c *Controller) Spotlight(subject, location string, active []string) Spotlight {
	if subject == "" {
		subject = c.subject
	}
	subject = c.resolver.ResolveOr(c.g, subject)
	if location != "" {
		location = c.resolver.ResolveOr(c.g, location)
	}
	resolved := make([]string, 0, len(active))
	for _, id := range active {
		resolved = append(resolved, c.resolver.ResolveOr(c.g, id))
	}

	snap := c.g.Get()
	out := Spotlight{Global: snap.Global, Nodes: map[string]common.Node{}}
	include := func(id string) {
		if n, ok := snap.Nodes[id]; ok {
			out.Nodes[id] = n
		}
	}

	include(subject)
	include(location)
	for _, id := range resolved {
		include(id)
	}

	for _, e := range snap.Edges {
		var neighbor string
		switch subject {
		case e.Source:
			neighbor = e.Target
		case e.Target:
			neighbor = e.Source
		default:
			continue
		}
		if e.Weight > spotlightMinWeight || e.Type == common.EdgeGrudge || e.Type == common.EdgeInjuryLink {
			include(neighbor)
			out.Edges = append(out.Edges, e)
		}
	}

	activeSet := make(map[string]struct{}, len(resolved))
	for _, id := range resolved {
		activeSet[id] = struct{}{}
	}
	for _, e := range snap.Edges {
		if e.Source == e.Target {
			continue
		}
		_, okS := activeSet[e.Source]
		_, okT := activeSet[e.Target]
		if okS && okT && e.Source != subject && e.Target != subject {
			out.Edges = append(out.Edges, e)
		}
	}
	return out
}
