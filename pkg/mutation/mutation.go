// Package mutation turns generator output into typed graph changes and
// applies them to a graph.Store.
//
// Every operation is its own variant of the Mutation interface. Records the
// decoder cannot map onto a variant become Unrecognized and are skipped at
// apply time instead of failing the batch.
package mutation

import (
	"errors"

	"github.com/chmielvu/Forge-Text/pkg/common"
)

var (
	ErrUnknownOperation = errors.New("unknown mutation operation")
	// ErrDangling marks a mutation whose referenced node or edge is missing.
	// It is a soft skip, not a failure.
	ErrDangling = errors.New("referenced node or edge does not exist")
	ErrInvalid  = errors.New("invalid mutation payload")
)

// Operation names as they appear on the wire.
const (
	OpAddNode            = "add_node"
	OpUpdateNode         = "update_node"
	OpRemoveNode         = "remove_node"
	OpAddEdge            = "add_edge"
	OpUpdateEdge         = "update_edge"
	OpAddMemory          = "add_memory"
	OpAddTraumaMemory    = "add_trauma_memory"
	OpUpdateGrudge       = "update_grudge"
	OpUpdateRelationship = "update_relationship"
	OpAddSecret          = "add_secret"
	OpAddInjury          = "add_injury"
	OpFormAlliance       = "form_alliance"
	OpUpdateLedger       = "update_ledger"
)

// Mutation is one typed change to the graph.
type Mutation interface {
	Operation() string
	isMutation()
}

type AddNode struct {
	Node common.Node
}

// UpdateNode merges Attributes into the node. Empty Label and Type leave
// the current values untouched.
type UpdateNode struct {
	ID         string
	Label      string
	Type       common.NodeType
	Attributes map[string]any
}

type RemoveNode struct {
	ID string
}

// AddEdge creates the edge or updates the one sharing its key. A nil
// Weight defaults to DefaultEdgeWeight.
type AddEdge struct {
	Key    string
	Source string
	Target string
	Type   common.EdgeType
	Label  string
	Weight *float64
	Meta   map[string]any
}

// UpdateEdge targets an edge by Key, or by the composite of Source, Target
// and Type when Key is empty.
type UpdateEdge struct {
	Key    string
	Source string
	Target string
	Type   common.EdgeType
	Label  string
	Weight *float64
	Meta   map[string]any
}

// AddMemory covers both add_memory and add_trauma_memory; the latter sets
// Memory.Traumatic.
type AddMemory struct {
	Memory common.Memory
}

type UpdateGrudge struct {
	Source string
	Target string
	Delta  float64
}

type UpdateRelationship struct {
	Source   string
	Target   string
	Delta    float64
	Category string
}

type AddSecret struct {
	SubjectID    string
	SecretID     string
	Description  string
	DiscoveredBy string
	Turn         int
}

type AddInjury struct {
	TargetID string
	Injury   string
}

type FormAlliance struct {
	Members []string
	Name    string
}

// UpdateLedger adds per-field deltas to a node's ledger.
type UpdateLedger struct {
	TargetID string
	Deltas   map[string]float64
}

// Unrecognized carries a record whose operation is unknown or whose
// payload could not be decoded.
type Unrecognized struct {
	Op     string
	Reason string
}

func (AddNode) Operation() string            { return OpAddNode }
func (UpdateNode) Operation() string         { return OpUpdateNode }
func (RemoveNode) Operation() string         { return OpRemoveNode }
func (AddEdge) Operation() string            { return OpAddEdge }
func (UpdateEdge) Operation() string         { return OpUpdateEdge }
func (UpdateGrudge) Operation() string       { return OpUpdateGrudge }
func (UpdateRelationship) Operation() string { return OpUpdateRelationship }
func (AddSecret) Operation() string          { return OpAddSecret }
func (AddInjury) Operation() string          { return OpAddInjury }
func (FormAlliance) Operation() string       { return OpFormAlliance }
func (UpdateLedger) Operation() string       { return OpUpdateLedger }
func (u Unrecognized) Operation() string     { return u.Op }

func (m AddMemory) Operation() string {
	if m.Memory.Traumatic {
		return OpAddTraumaMemory
	}
	return OpAddMemory
}

func (AddNode) isMutation()            {}
func (UpdateNode) isMutation()         {}
func (RemoveNode) isMutation()         {}
func (AddEdge) isMutation()            {}
func (UpdateEdge) isMutation()         {}
func (AddMemory) isMutation()          {}
func (UpdateGrudge) isMutation()       {}
func (UpdateRelationship) isMutation() {}
func (AddSecret) isMutation()          {}
func (AddInjury) isMutation()          {}
func (FormAlliance) isMutation()       {}
func (UpdateLedger) isMutation()       {}
func (Unrecognized) isMutation()       {}
