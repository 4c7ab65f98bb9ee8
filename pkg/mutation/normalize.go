package mutation

import (
	"github.com/chmielvu/Forge-Text/pkg/resolve"
)

// Normalize rewrites every entity reference in m to a canonical node id.
// Unresolved references are kept verbatim and fail soft when applied.
//
// Ids of nodes being created go through exact and alias lookup only, so a
// new "Theo's Diary" is not folded into Subject_Theo by the fuzzy scan.
// Engine.Apply calls it right before each record, so later records of a
// batch resolve against nodes the earlier ones created.
func Normalize(g resolve.NodeSource, r *resolve.Resolver, m Mutation) Mutation {
	id := func(s string) string { return r.ResolveOr(g, s) }
	ids := func(in []string) []string {
		if in == nil {
			return nil
		}
		out := make([]string, len(in))
		for i, s := range in {
			out[i] = id(s)
		}
		return out
	}

	switch m := m.(type) {
	case AddNode:
		m.Node.ID = r.Canonical(g, m.Node.ID)
		return m
	case UpdateNode:
		m.ID = id(m.ID)
		return m
	case RemoveNode:
		m.ID = id(m.ID)
		return m
	case AddEdge:
		m.Source, m.Target = id(m.Source), id(m.Target)
		return m
	case UpdateEdge:
		if m.Key == "" {
			m.Source, m.Target = id(m.Source), id(m.Target)
		}
		return m
	case AddMemory:
		m.Memory.Involved = ids(m.Memory.Involved)
		m.Memory.Witnesses = ids(m.Memory.Witnesses)
		return m
	case UpdateGrudge:
		m.Source, m.Target = id(m.Source), id(m.Target)
		return m
	case UpdateRelationship:
		m.Source, m.Target = id(m.Source), id(m.Target)
		return m
	case AddSecret:
		if m.SubjectID != "" {
			m.SubjectID = id(m.SubjectID)
		}
		if m.DiscoveredBy != "" {
			m.DiscoveredBy = id(m.DiscoveredBy)
		}
		return m
	case AddInjury:
		if m.TargetID != "" {
			m.TargetID = id(m.TargetID)
		}
		return m
	case FormAlliance:
		m.Members = ids(m.Members)
		return m
	case UpdateLedger:
		if m.TargetID != "" {
			m.TargetID = id(m.TargetID)
		}
		return m
	default:
		return m
	}
}
