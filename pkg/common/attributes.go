package common

import (
	"encoding/json"
	"maps"
	"reflect"
	"slices"
	"strings"
)

// Memory is a structured recollection attached to an entity.
type Memory struct {
	ID              string   `json:"id"`
	Description     string   `json:"description"`
	EmotionalImpact float64  `json:"emotional_impact,omitempty"`
	TraumaDelta     float64  `json:"trauma_delta,omitempty"`
	Involved        []string `json:"involved_entities,omitempty"`
	Witnesses       []string `json:"witnesses,omitempty"`
	Traumatic       bool     `json:"traumatic,omitempty"`
	Turn            int      `json:"turn"`
}

// Secret is a piece of hidden knowledge about an entity.
type Secret struct {
	Name         string `json:"name"`
	Description  string `json:"description"`
	DiscoveredBy string `json:"discovered_by,omitempty"`
	Turn         int    `json:"turn"`
}

// Ledger is the numeric psychological ledger carried by the subject.
// Every field lives on a 0-100 scale.
type Ledger struct {
	PhysicalIntegrity       float64 `json:"physical_integrity"`
	TraumaLevel             float64 `json:"trauma_level"`
	HopeLevel               float64 `json:"hope_level"`
	ComplianceScore         float64 `json:"compliance_score"`
	FearOfAuthority         float64 `json:"fear_of_authority"`
	DesireForValidation     float64 `json:"desire_for_validation"`
	CapacityForManipulation float64 `json:"capacity_for_manipulation"`
}

// Apply adds delta to the named field and clamps it to [0,100].
// It reports false for unknown field names.
func (l *Ledger) Apply(field string, delta float64) bool {
	var target *float64
	switch field {
	case "physical_integrity":
		target = &l.PhysicalIntegrity
	case "trauma_level":
		target = &l.TraumaLevel
	case "hope_level":
		target = &l.HopeLevel
	case "compliance_score":
		target = &l.ComplianceScore
	case "fear_of_authority":
		target = &l.FearOfAuthority
	case "desire_for_validation":
		target = &l.DesireForValidation
	case "capacity_for_manipulation":
		target = &l.CapacityForManipulation
	default:
		return false
	}
	*target = Clamp(*target+delta, 0, 100)
	return true
}

// AgentState describes how an agent positions itself in the power structure.
type AgentState struct {
	Archetype string  `json:"archetype,omitempty"`
	Dominance float64 `json:"dominance"`
	Ambition  float64 `json:"ambition,omitempty"`
}

// EmotionalState is the agent's current emotional vector, each axis in [0,1].
type EmotionalState struct {
	Paranoia float64 `json:"paranoia"`
	Fear     float64 `json:"fear,omitempty"`
	Anger    float64 `json:"anger,omitempty"`
	Arousal  float64 `json:"arousal,omitempty"`
}

// Attributes is the attribute bag of a node. Well-known keys read by the
// engines are typed fields; everything else lands in Extra and survives
// a JSON round trip untouched.
type Attributes struct {
	Description string             `json:"description,omitempty"`
	Traits      []string           `json:"traits,omitempty"`
	Ocean       map[string]float64 `json:"ocean,omitempty"`

	Ledger     *Ledger         `json:"ledger,omitempty"`
	AgentState *AgentState     `json:"agent_state,omitempty"`
	Emotional  *EmotionalState `json:"currentEmotionalState,omitempty"`

	Grudges       map[string]float64 `json:"grudges,omitempty"`
	Relationships map[string]float64 `json:"relationships,omitempty"`
	Memories      []Memory           `json:"memories,omitempty"`
	Secrets       []Secret           `json:"secrets,omitempty"`
	Injuries      []string           `json:"injuries,omitempty"`

	PageRank    *float64 `json:"pagerank,omitempty"`
	Betweenness *float64 `json:"betweenness,omitempty"`
	Community   *int     `json:"community,omitempty"`

	X  *float64 `json:"x,omitempty"`
	Y  *float64 `json:"y,omitempty"`
	VX *float64 `json:"vx,omitempty"`
	VY *float64 `json:"vy,omitempty"`

	Extra map[string]any `json:"-"`
}

type attributesAlias Attributes

var knownAttributeKeys = jsonFieldNames(reflect.TypeFor[attributesAlias]())

func jsonFieldNames(t reflect.Type) map[string]struct{} {
	names := make(map[string]struct{}, t.NumField())
	for i := range t.NumField() {
		tag := t.Field(i).Tag.Get("json")
		if tag == "" || tag == "-" {
			continue
		}
		name, _, _ := strings.Cut(tag, ",")
		names[name] = struct{}{}
	}
	return names
}

// IsKnownAttribute reports whether key maps onto a typed attribute field.
func IsKnownAttribute(key string) bool {
	_, ok := knownAttributeKeys[key]
	return ok
}

func (a Attributes) MarshalJSON() ([]byte, error) {
	known, err := json.Marshal(attributesAlias(a))
	if err != nil {
		return nil, err
	}
	if len(a.Extra) == 0 {
		return known, nil
	}

	merged := make(map[string]json.RawMessage, len(a.Extra)+8)
	if err := json.Unmarshal(known, &merged); err != nil {
		return nil, err
	}
	for k, v := range a.Extra {
		if IsKnownAttribute(k) {
			continue
		}
		raw, err := json.Marshal(v)
		if err != nil {
			return nil, err
		}
		merged[k] = raw
	}
	return json.Marshal(merged)
}

func (a *Attributes) UnmarshalJSON(data []byte) error {
	var alias attributesAlias
	if err := json.Unmarshal(data, &alias); err != nil {
		return err
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	for k, v := range raw {
		if IsKnownAttribute(k) {
			continue
		}
		var value any
		if err := json.Unmarshal(v, &value); err != nil {
			return err
		}
		if alias.Extra == nil {
			alias.Extra = make(map[string]any)
		}
		alias.Extra[k] = value
	}

	*a = Attributes(alias)
	return nil
}

// ToMap renders the attributes as a generic JSON object.
func (a Attributes) ToMap() (map[string]any, error) {
	data, err := json.Marshal(a)
	if err != nil {
		return nil, err
	}
	out := make(map[string]any)
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// AttributesFromMap decodes a generic JSON object into typed attributes.
func AttributesFromMap(m map[string]any) (Attributes, error) {
	var out Attributes
	if len(m) == 0 {
		return out, nil
	}
	data, err := json.Marshal(m)
	if err != nil {
		return out, err
	}
	err = json.Unmarshal(data, &out)
	return out, err
}

// Merge deep-merges patch into the attributes. Nested objects are merged
// key by key, every other value (lists included) is replaced.
func (a *Attributes) Merge(patch map[string]any) error {
	if len(patch) == 0 {
		return nil
	}
	current, err := a.ToMap()
	if err != nil {
		return err
	}
	DeepMerge(current, patch)
	merged, err := AttributesFromMap(current)
	if err != nil {
		return err
	}
	*a = merged
	return nil
}

// DeepMerge merges src into dst in place.
func DeepMerge(dst, src map[string]any) {
	for k, v := range src {
		srcMap, srcIsMap := v.(map[string]any)
		dstMap, dstIsMap := dst[k].(map[string]any)
		if srcIsMap && dstIsMap {
			DeepMerge(dstMap, srcMap)
			continue
		}
		dst[k] = cloneValue(v)
	}
}

// Clone returns a deep copy of the attributes.
func (a Attributes) Clone() Attributes {
	out := a
	out.Traits = slices.Clone(a.Traits)
	out.Ocean = maps.Clone(a.Ocean)
	if a.Ledger != nil {
		l := *a.Ledger
		out.Ledger = &l
	}
	if a.AgentState != nil {
		s := *a.AgentState
		out.AgentState = &s
	}
	if a.Emotional != nil {
		e := *a.Emotional
		out.Emotional = &e
	}
	out.Grudges = maps.Clone(a.Grudges)
	out.Relationships = maps.Clone(a.Relationships)
	if a.Memories != nil {
		out.Memories = make([]Memory, len(a.Memories))
		for i, m := range a.Memories {
			m.Involved = slices.Clone(m.Involved)
			m.Witnesses = slices.Clone(m.Witnesses)
			out.Memories[i] = m
		}
	}
	out.Secrets = slices.Clone(a.Secrets)
	out.Injuries = slices.Clone(a.Injuries)
	out.PageRank = cloneFloat(a.PageRank)
	out.Betweenness = cloneFloat(a.Betweenness)
	if a.Community != nil {
		c := *a.Community
		out.Community = &c
	}
	out.X = cloneFloat(a.X)
	out.Y = cloneFloat(a.Y)
	out.VX = cloneFloat(a.VX)
	out.VY = cloneFloat(a.VY)
	out.Extra = cloneMap(a.Extra)
	return out
}

// Float returns a pointer to v.
func Float(v float64) *float64 {
	return &v
}

// Value dereferences p, returning 0 for nil.
func Value(p *float64) float64 {
	if p == nil {
		return 0
	}
	return *p
}

func cloneFloat(p *float64) *float64 {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func cloneMap(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		return cloneMap(t)
	case []any:
		out := make([]any, len(t))
		for i, item := range t {
			out[i] = cloneValue(item)
		}
		return out
	default:
		return v
	}
}
