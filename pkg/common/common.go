package common

import (
	"fmt"
	"sort"
)

// NodeType tags what a node represents in the narrative world.
// The set is open: generators may introduce their own types.
type NodeType string

const (
	NodeEntity   NodeType = "ENTITY"
	NodeLocation NodeType = "LOCATION"
	NodeEvent    NodeType = "EVENT"
	NodeConcept  NodeType = "CONCEPT"
	NodeFaculty  NodeType = "FACULTY"
	NodePrefect  NodeType = "PREFECT"
	NodeSubject  NodeType = "SUBJECT"
	NodeInjury   NodeType = "INJURY"
	NodeSecret   NodeType = "SECRET"
	NodeMemory   NodeType = "MEMORY"
)

// IsAgent reports whether nodes of this type act on their own and carry
// persistent relationship state (grudges, bonds).
func (t NodeType) IsAgent() bool {
	switch t {
	case NodeFaculty, NodePrefect, NodeSubject:
		return true
	}
	return false
}

// EdgeType tags the kind of relation an edge describes.
type EdgeType string

const (
	EdgeRelationship EdgeType = "RELATIONSHIP"
	EdgeTraumaBond   EdgeType = "TRAUMA_BOND"
	EdgeGrudge       EdgeType = "GRUDGE"
	EdgeObsession    EdgeType = "OBSESSION"
	EdgeSpatial      EdgeType = "SPATIAL"
	EdgeKnowledge    EdgeType = "KNOWLEDGE"
	EdgeAlliance     EdgeType = "ALLIANCE"
	EdgeInjuryLink   EdgeType = "INJURY_LINK"
)

// Phase is the narrative act the story is currently in.
type Phase string

const (
	PhaseAct1 Phase = "ACT_1"
	PhaseAct2 Phase = "ACT_2"
	PhaseAct3 Phase = "ACT_3"
)

// ActLength is the number of turns in one tension cycle, and so in one act.
const ActLength = 12

// PhaseForTurn returns the act a story is in at turn. The third act has no
// end.
func PhaseForTurn(turn int) Phase {
	switch {
	case turn < ActLength:
		return PhaseAct1
	case turn < 2*ActLength:
		return PhaseAct2
	default:
		return PhaseAct3
	}
}

// Node represents an actor, location, memory, secret or abstract concept.
//
// The ID is chosen by whoever creates the node and never changes afterwards.
type Node struct {
	ID         string     `json:"id"`
	Type       NodeType   `json:"type"`
	Label      string     `json:"label"`
	Attributes Attributes `json:"attributes"`
}

// Clone returns a deep copy of the node.
func (n Node) Clone() Node {
	n.Attributes = n.Attributes.Clone()
	return n
}

// Edge is a directed, typed and weighted relation between two nodes.
// Weight is always kept in [0,1].
type Edge struct {
	Key    string         `json:"key"`
	Source string         `json:"source"`
	Target string         `json:"target"`
	Type   EdgeType       `json:"type"`
	Label  string         `json:"label,omitempty"`
	Weight float64        `json:"weight"`
	Meta   map[string]any `json:"meta,omitempty"`
}

// Clone returns a deep copy of the edge.
func (e Edge) Clone() Edge {
	e.Meta = cloneMap(e.Meta)
	return e
}

// EdgeKey builds the deterministic key used when an edge is created
// without an explicit one, so repeated descriptions of the same relation
// merge instead of duplicating.
func EdgeKey(source, target string, typ EdgeType) string {
	if typ == "" {
		typ = EdgeRelationship
	}
	return fmt.Sprintf("%s_%s_%s", source, target, typ)
}

// GlobalState holds the story-wide counters every engine reads to gate
// its periodic behaviour.
type GlobalState struct {
	TurnCount      int     `json:"turn_count" yaml:"turn_count"`
	TensionLevel   float64 `json:"tension_level" yaml:"tension_level"`
	NarrativePhase Phase   `json:"narrative_phase" yaml:"narrative_phase"`
}

// Snapshot is the full, serialisable state of a graph.
type Snapshot struct {
	Nodes  map[string]Node `json:"nodes"`
	Edges  []Edge          `json:"edges"`
	Global GlobalState     `json:"global_state"`
}

// Clone returns a deep copy of the snapshot.
func (s Snapshot) Clone() Snapshot {
	out := Snapshot{
		Nodes:  make(map[string]Node, len(s.Nodes)),
		Edges:  make([]Edge, len(s.Edges)),
		Global: s.Global,
	}
	for id, n := range s.Nodes {
		out.Nodes[id] = n.Clone()
	}
	for i, e := range s.Edges {
		out.Edges[i] = e.Clone()
	}
	return out
}

// Compact returns a copy with layout coordinates and velocities stripped,
// which is the form written to save files.
func (s Snapshot) Compact() Snapshot {
	out := s.Clone()
	for id, n := range out.Nodes {
		n.Attributes.X = nil
		n.Attributes.Y = nil
		n.Attributes.VX = nil
		n.Attributes.VY = nil
		out.Nodes[id] = n
	}
	return out
}

// SortedNodeIDs returns the node ids of the snapshot in lexical order.
func (s Snapshot) SortedNodeIDs() []string {
	ids := make([]string, 0, len(s.Nodes))
	for id := range s.Nodes {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Clamp restricts v to [lo, hi].
func Clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
