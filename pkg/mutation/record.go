package mutation

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/chmielvu/Forge-Text/pkg/ai"
	"github.com/chmielvu/Forge-Text/pkg/common"
)

// Record is the flat wire form of a mutation as produced by the narrative
// generator. Only the fields relevant to Operation are read; several
// operations accept more than one spelling of the same field.
type Record struct {
	Operation string `json:"operation" jsonschema:"required,enum=add_node,enum=update_node,enum=remove_node,enum=add_edge,enum=update_edge,enum=add_memory,enum=add_trauma_memory,enum=update_grudge,enum=update_relationship,enum=add_secret,enum=add_injury,enum=form_alliance,enum=update_ledger"`

	ID         string         `json:"id,omitempty"`
	Key        string         `json:"key,omitempty"`
	Source     string         `json:"source,omitempty"`
	Target     string         `json:"target,omitempty"`
	Type       string         `json:"type,omitempty"`
	Label      string         `json:"label,omitempty"`
	Weight     *float64       `json:"weight,omitempty"`
	Meta       map[string]any `json:"meta,omitempty"`
	Attributes map[string]any `json:"attributes,omitempty"`
	Updates    map[string]any `json:"updates,omitempty" jsonschema_description:"update_node: label, type, attributes or bare attribute keys"`

	Node   *RecordNode    `json:"node,omitempty"`
	Edge   *RecordEdge    `json:"edge,omitempty"`
	Memory *common.Memory `json:"memory,omitempty"`

	Description     string   `json:"description,omitempty"`
	EmotionalImpact float64  `json:"emotional_impact,omitempty"`
	TraumaDelta     float64  `json:"trauma_delta,omitempty"`
	Involved        []string `json:"involved_entities,omitempty"`
	InvolvedShort   []string `json:"involved,omitempty"`
	Witnesses       []string `json:"witness_ids,omitempty"`

	Delta    *float64 `json:"delta,omitempty"`
	Category string   `json:"category,omitempty"`

	SubjectID      string `json:"subject_id,omitempty"`
	SecretID       string `json:"secret_id,omitempty"`
	DiscoveredBy   string `json:"discovered_by,omitempty"`
	Turn           int    `json:"turn,omitempty"`
	TurnDiscovered int    `json:"turn_discovered,omitempty"`

	TargetID   string         `json:"target_id,omitempty"`
	Injury     string         `json:"injury,omitempty"`
	InjuryName string         `json:"injury_name,omitempty"`
	Params     map[string]any `json:"params,omitempty"`

	Members []string           `json:"members,omitempty"`
	Name    string             `json:"name,omitempty"`
	Deltas  map[string]float64 `json:"deltas,omitempty"`
}

type RecordNode struct {
	ID         string         `json:"id"`
	Type       string         `json:"type,omitempty"`
	Label      string         `json:"label,omitempty"`
	Attributes map[string]any `json:"attributes,omitempty"`
}

type RecordEdge struct {
	Key    string         `json:"key,omitempty"`
	Source string         `json:"source"`
	Target string         `json:"target"`
	Type   string         `json:"type,omitempty"`
	Label  string         `json:"label,omitempty"`
	Weight *float64       `json:"weight,omitempty"`
	Meta   map[string]any `json:"meta,omitempty"`
}

type batchEnvelope struct {
	Mutations []json.RawMessage `json:"mutations"`
}

// Decode parses a mutation batch. The input may be a JSON array, an object
// with a "mutations" array, a double-encoded string of either, or slightly
// malformed JSON that can be repaired. Individual records that fail to
// decode become Unrecognized; only an unreadable batch returns an error.
func Decode(input string) ([]Mutation, error) {
	var raws []json.RawMessage
	if err := ai.UnmarshalFlexible(input, &raws); err != nil {
		var env batchEnvelope
		if envErr := ai.UnmarshalFlexible(input, &env); envErr != nil || env.Mutations == nil {
			return nil, fmt.Errorf("decode mutation batch: %w", err)
		}
		raws = env.Mutations
	}
	return DecodeRecords(raws), nil
}

// DecodeRecords converts raw records one by one.
func DecodeRecords(raws []json.RawMessage) []Mutation {
	out := make([]Mutation, 0, len(raws))
	for _, raw := range raws {
		var rec Record
		if err := json.Unmarshal(raw, &rec); err != nil {
			out = append(out, Unrecognized{Op: peekOperation(raw), Reason: err.Error()})
			continue
		}
		out = append(out, rec.Mutation())
	}
	return out
}

func peekOperation(raw json.RawMessage) string {
	var head struct {
		Operation string `json:"operation"`
	}
	_ = json.Unmarshal(raw, &head)
	return head.Operation
}

// Mutation maps the record onto its typed variant.
func (r Record) Mutation() Mutation {
	op := strings.ToLower(strings.TrimSpace(r.Operation))
	switch op {
	case OpAddNode:
		return r.addNode()
	case OpUpdateNode:
		return r.updateNode()
	case OpRemoveNode:
		if r.ID == "" {
			return Unrecognized{Op: op, Reason: "missing id"}
		}
		return RemoveNode{ID: r.ID}
	case OpAddEdge:
		return r.addEdge()
	case OpUpdateEdge:
		return r.updateEdge()
	case OpAddMemory, OpAddTraumaMemory:
		return r.addMemory(op == OpAddTraumaMemory)
	case OpUpdateGrudge:
		if r.Source == "" || r.Target == "" {
			return Unrecognized{Op: op, Reason: "missing source or target"}
		}
		return UpdateGrudge{Source: r.Source, Target: r.Target, Delta: deref(r.Delta)}
	case OpUpdateRelationship:
		if r.Source == "" || r.Target == "" {
			return Unrecognized{Op: op, Reason: "missing source or target"}
		}
		return UpdateRelationship{Source: r.Source, Target: r.Target, Delta: deref(r.Delta), Category: r.Category}
	case OpAddSecret:
		return AddSecret{
			SubjectID:    r.SubjectID,
			SecretID:     firstNonEmpty(r.SecretID, r.Name),
			Description:  r.Description,
			DiscoveredBy: r.DiscoveredBy,
			Turn:         firstNonZero(r.TurnDiscovered, r.Turn),
		}
	case OpAddInjury:
		return r.addInjury()
	case OpFormAlliance:
		if len(r.Members) < 2 {
			return Unrecognized{Op: op, Reason: "an alliance needs at least two members"}
		}
		return FormAlliance{Members: r.Members, Name: r.Name}
	case OpUpdateLedger:
		return r.updateLedger()
	case "":
		return Unrecognized{Reason: "missing operation"}
	default:
		return Unrecognized{Op: op, Reason: "unknown operation"}
	}
}

func (r Record) addNode() Mutation {
	n := RecordNode{ID: r.ID, Type: r.Type, Label: r.Label, Attributes: r.Attributes}
	if r.Node != nil {
		n.ID = firstNonEmpty(r.Node.ID, r.ID)
		n.Type = firstNonEmpty(r.Node.Type, r.Type)
		n.Label = firstNonEmpty(r.Node.Label, r.Label)
		if r.Node.Attributes != nil {
			n.Attributes = r.Node.Attributes
		}
	}
	if n.ID == "" {
		return Unrecognized{Op: OpAddNode, Reason: "missing node id"}
	}
	attrs, err := common.AttributesFromMap(n.Attributes)
	if err != nil {
		return Unrecognized{Op: OpAddNode, Reason: fmt.Sprintf("attributes: %v", err)}
	}
	return AddNode{Node: common.Node{
		ID:         n.ID,
		Type:       common.NodeType(n.Type),
		Label:      n.Label,
		Attributes: attrs,
	}}
}

func (r Record) updateNode() Mutation {
	m := UpdateNode{ID: r.ID, Label: r.Label, Type: common.NodeType(r.Type)}
	if m.ID == "" && r.Node != nil {
		m.ID = r.Node.ID
	}
	if m.ID == "" {
		return Unrecognized{Op: OpUpdateNode, Reason: "missing id"}
	}

	patch := map[string]any{}
	common.DeepMerge(patch, r.Attributes)
	if r.Node != nil {
		common.DeepMerge(patch, r.Node.Attributes)
		m.Label = firstNonEmpty(m.Label, r.Node.Label)
	}
	for k, v := range r.Updates {
		switch k {
		case "label":
			if s, ok := v.(string); ok {
				m.Label = s
			}
		case "type":
			if s, ok := v.(string); ok {
				m.Type = common.NodeType(s)
			}
		case "attributes":
			if nested, ok := v.(map[string]any); ok {
				common.DeepMerge(patch, nested)
			}
		default:
			common.DeepMerge(patch, map[string]any{k: v})
		}
	}
	if len(patch) > 0 {
		m.Attributes = patch
	}
	return m
}

func (r Record) edgeFields() RecordEdge {
	e := RecordEdge{Key: r.Key, Source: r.Source, Target: r.Target, Type: r.Type, Label: r.Label, Weight: r.Weight, Meta: r.Meta}
	if r.Edge != nil {
		e.Key = firstNonEmpty(r.Edge.Key, e.Key)
		e.Source = firstNonEmpty(r.Edge.Source, e.Source)
		e.Target = firstNonEmpty(r.Edge.Target, e.Target)
		e.Type = firstNonEmpty(r.Edge.Type, e.Type)
		e.Label = firstNonEmpty(r.Edge.Label, e.Label)
		if r.Edge.Weight != nil {
			e.Weight = r.Edge.Weight
		}
		if r.Edge.Meta != nil {
			e.Meta = r.Edge.Meta
		}
	}
	return e
}

func (r Record) addEdge() Mutation {
	e := r.edgeFields()
	if e.Source == "" || e.Target == "" {
		return Unrecognized{Op: OpAddEdge, Reason: "missing source or target"}
	}
	return AddEdge{
		Key:    e.Key,
		Source: e.Source,
		Target: e.Target,
		Type:   common.EdgeType(e.Type),
		Label:  e.Label,
		Weight: e.Weight,
		Meta:   e.Meta,
	}
}

func (r Record) updateEdge() Mutation {
	e := r.edgeFields()
	if e.Key == "" && (e.Source == "" || e.Target == "") {
		return Unrecognized{Op: OpUpdateEdge, Reason: "needs a key or source and target"}
	}
	return UpdateEdge{
		Key:    e.Key,
		Source: e.Source,
		Target: e.Target,
		Type:   common.EdgeType(e.Type),
		Label:  e.Label,
		Weight: e.Weight,
		Meta:   e.Meta,
	}
}

func (r Record) addMemory(traumatic bool) Mutation {
	var mem common.Memory
	if r.Memory != nil {
		mem = *r.Memory
	}
	mem.ID = firstNonEmpty(mem.ID, r.ID)
	mem.Description = firstNonEmpty(mem.Description, r.Description)
	if mem.EmotionalImpact == 0 {
		mem.EmotionalImpact = r.EmotionalImpact
	}
	if mem.TraumaDelta == 0 {
		mem.TraumaDelta = r.TraumaDelta
	}
	if len(mem.Involved) == 0 {
		mem.Involved = append(append([]string{}, r.Involved...), r.InvolvedShort...)
		if len(mem.Involved) == 0 {
			mem.Involved = nil
		}
	}
	if len(mem.Witnesses) == 0 {
		mem.Witnesses = r.Witnesses
	}
	if mem.Turn == 0 {
		mem.Turn = r.Turn
	}
	mem.Traumatic = mem.Traumatic || traumatic

	if mem.Description == "" {
		return Unrecognized{Op: r.Operation, Reason: "memory without description"}
	}
	return AddMemory{Memory: mem}
}

func (r Record) addInjury() Mutation {
	m := AddInjury{
		TargetID: firstNonEmpty(paramString(r.Params, "target_id"), r.TargetID),
		Injury:   firstNonEmpty(r.Injury, r.InjuryName, paramString(r.Params, "injury_name")),
	}
	if m.Injury == "" {
		return Unrecognized{Op: OpAddInjury, Reason: "missing injury"}
	}
	return m
}

func (r Record) updateLedger() Mutation {
	m := UpdateLedger{TargetID: firstNonEmpty(r.TargetID, r.ID), Deltas: map[string]float64{}}
	for k, v := range r.Deltas {
		m.Deltas[k] = v
	}
	for k, v := range r.Updates {
		if f, ok := v.(float64); ok {
			m.Deltas[k] = f
		}
	}
	if len(m.Deltas) == 0 {
		return Unrecognized{Op: OpUpdateLedger, Reason: "no ledger deltas"}
	}
	return m
}

func paramString(params map[string]any, key string) string {
	s, _ := params[key].(string)
	return s
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func firstNonZero(values ...int) int {
	for _, v := range values {
		if v != 0 {
			return v
		}
	}
	return 0
}

func deref(p *float64) float64 {
	if p == nil {
		return 0
	}
	return *p
}
