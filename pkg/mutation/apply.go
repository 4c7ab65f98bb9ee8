package mutation

import (
	"errors"
	"fmt"
	"slices"

	"github.com/chmielvu/Forge-Text/internal/util"
	"github.com/chmielvu/Forge-Text/pkg/common"
	"github.com/chmielvu/Forge-Text/pkg/graph"
	"github.com/chmielvu/Forge-Text/pkg/logger"
	"github.com/chmielvu/Forge-Text/pkg/resolve"
)

const (
	// DefaultSubject receives memories, secrets, injuries and ledger
	// changes that do not name a target.
	DefaultSubject    = "Subject_84"
	DefaultEdgeWeight = 0.5
	AllianceWeight    = 0.6

	memoryLabelLength = 30
	traumaLabelLength = 15
)

// ErrNotApplicable marks a mutation whose target exists but lacks the state
// the operation works on, e.g. a relationship shift on a node without a
// relationship map. Like ErrDangling it is a soft skip.
var ErrNotApplicable = errors.New("mutation does not apply to target")

// Skip describes one record that was not applied.
type Skip struct {
	Index     int    `json:"index"`
	Operation string `json:"operation"`
	Reason    string `json:"reason"`
}

// Report summarises a batch application.
type Report struct {
	Applied int    `json:"applied"`
	Skipped []Skip `json:"skipped,omitempty"`
}

// Engine applies mutations to a single graph.Store.
type Engine struct {
	store    *graph.Store
	subject  string
	resolver *resolve.Resolver
}

type Option func(*Engine)

// WithSubject changes the node that untargeted mutations fall back to.
func WithSubject(id string) Option {
	return func(e *Engine) {
		e.subject = id
	}
}

// WithResolver makes Apply rewrite entity references through r before each
// record runs. Without it references must already be node ids.
func WithResolver(r *resolve.Resolver) Option {
	return func(e *Engine) {
		e.resolver = r
	}
}

func NewEngine(store *graph.Store, opts ...Option) *Engine {
	e := &Engine{store: store, subject: DefaultSubject}
	for _, o := range opts {
		o(e)
	}
	return e
}

// Apply runs muts in order against the store. A failing record is logged
// and recorded in the report; the rest of the batch still runs.
func (e *Engine) Apply(muts []Mutation, turn int) Report {
	var report Report
	for i, m := range muts {
		if e.resolver != nil {
			m = Normalize(e.store, e.resolver, m)
		}
		err := e.applyOne(m, turn)
		if err == nil {
			report.Applied++
			continue
		}

		report.Skipped = append(report.Skipped, Skip{Index: i, Operation: m.Operation(), Reason: err.Error()})
		if errors.Is(err, ErrDangling) || errors.Is(err, ErrNotApplicable) {
			logger.Debug("[Mutation] Dropped record", "index", i, "operation", m.Operation(), "reason", err)
		} else {
			logger.Warn("[Mutation] Skipped record", "index", i, "operation", m.Operation(), "err", err)
		}
	}
	return report
}

func (e *Engine) applyOne(m Mutation, turn int) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic applying %s: %v", m.Operation(), r)
		}
	}()

	switch m := m.(type) {
	case AddNode:
		return e.addNode(m)
	case UpdateNode:
		return e.updateNode(m)
	case RemoveNode:
		if !e.store.RemoveNode(m.ID) {
			return fmt.Errorf("%w: node %q", ErrDangling, m.ID)
		}
		return nil
	case AddEdge:
		return e.addEdge(m)
	case UpdateEdge:
		return e.updateEdge(m)
	case AddMemory:
		return e.addMemory(m, turn)
	case UpdateGrudge:
		return e.updateGrudge(m)
	case UpdateRelationship:
		return e.updateRelationship(m)
	case AddSecret:
		return e.addSecret(m, turn)
	case AddInjury:
		return e.addInjury(m)
	case FormAlliance:
		return e.formAlliance(m, turn)
	case UpdateLedger:
		return e.updateLedger(m)
	case Unrecognized:
		if m.Reason == "" || m.Reason == "unknown operation" {
			return fmt.Errorf("%w: %q", ErrUnknownOperation, m.Op)
		}
		return fmt.Errorf("%w: %s", ErrInvalid, m.Reason)
	default:
		return fmt.Errorf("%w: %T", ErrUnknownOperation, m)
	}
}

func (e *Engine) addNode(m AddNode) error {
	if m.Node.ID == "" {
		return fmt.Errorf("%w: node without id", ErrInvalid)
	}
	e.store.AddNode(m.Node)
	return nil
}

func (e *Engine) updateNode(m UpdateNode) error {
	return e.update(m.ID, func(n *common.Node) error {
		if m.Label != "" {
			n.Label = m.Label
		}
		if m.Type != "" {
			n.Type = m.Type
		}
		return n.Attributes.Merge(m.Attributes)
	})
}

func (e *Engine) addEdge(m AddEdge) error {
	weight := DefaultEdgeWeight
	if m.Weight != nil {
		weight = *m.Weight
	}
	_, ok := e.store.AddEdge(common.Edge{
		Key:    m.Key,
		Source: m.Source,
		Target: m.Target,
		Type:   m.Type,
		Label:  m.Label,
		Weight: weight,
		Meta:   m.Meta,
	})
	if !ok {
		return fmt.Errorf("%w: edge %s -> %s", ErrDangling, m.Source, m.Target)
	}
	return nil
}

func (e *Engine) updateEdge(m UpdateEdge) error {
	key := m.Key
	if key == "" {
		key = common.EdgeKey(m.Source, m.Target, m.Type)
	}
	err := e.store.UpdateEdge(key, func(edge *common.Edge) {
		if m.Weight != nil {
			edge.Weight = *m.Weight
		}
		if m.Label != "" {
			edge.Label = m.Label
		}
		if len(m.Meta) > 0 {
			if edge.Meta == nil {
				edge.Meta = map[string]any{}
			}
			common.DeepMerge(edge.Meta, m.Meta)
		}
	})
	if errors.Is(err, graph.ErrEdgeNotFound) {
		return fmt.Errorf("%w: edge %q", ErrDangling, key)
	}
	return err
}

// addMemory attaches the memory to the first involved entity that exists.
// With no involved entities at all it goes to the subject; when every
// reference is unknown it becomes a standalone MEMORY node.
func (e *Engine) addMemory(m AddMemory, turn int) error {
	mem := m.Memory
	if mem.ID == "" {
		prefix := "mem"
		if mem.Traumatic {
			prefix = "trauma"
		}
		mem.ID = util.NewID(prefix)
	}
	if mem.Turn == 0 {
		mem.Turn = turn
	}

	target := ""
	if len(mem.Involved) == 0 {
		if e.store.HasNode(e.subject) {
			target = e.subject
		}
	} else {
		for _, id := range mem.Involved {
			if e.store.HasNode(id) {
				target = id
				break
			}
		}
	}

	if target == "" && e.store.HasNode(mem.ID) {
		logger.Warn("[Mutation] Memory node already exists, appending", "id", mem.ID)
		target = mem.ID
	}

	if target == "" {
		label := util.Truncate(mem.Description, memoryLabelLength, "...")
		if mem.Traumatic {
			label = "Trauma: " + util.Truncate(mem.Description, traumaLabelLength, "")
		}
		e.store.AddNode(common.Node{
			ID:    mem.ID,
			Type:  common.NodeMemory,
			Label: label,
			Attributes: common.Attributes{
				Description: mem.Description,
				Memories:    []common.Memory{mem},
			},
		})
		return nil
	}

	return e.update(target, func(n *common.Node) error {
		if slices.ContainsFunc(n.Attributes.Memories, func(m common.Memory) bool { return m.ID == mem.ID }) {
			return fmt.Errorf("%w: memory %q already recorded on %q", ErrNotApplicable, mem.ID, n.ID)
		}
		n.Attributes.Memories = append(n.Attributes.Memories, mem)
		if mem.Traumatic && mem.TraumaDelta != 0 && n.Attributes.Ledger != nil {
			n.Attributes.Ledger.Apply("trauma_level", mem.TraumaDelta)
		}
		return nil
	})
}

func (e *Engine) updateGrudge(m UpdateGrudge) error {
	var value float64
	err := e.update(m.Source, func(n *common.Node) error {
		if n.Attributes.Grudges == nil {
			n.Attributes.Grudges = map[string]float64{}
		}
		value = common.Clamp(n.Attributes.Grudges[m.Target]+m.Delta, 0, 100)
		n.Attributes.Grudges[m.Target] = value
		return nil
	})
	if err != nil {
		return err
	}
	e.syncEdges(m.Source, m.Target, common.EdgeGrudge, value/100, nil)
	return nil
}

func (e *Engine) updateRelationship(m UpdateRelationship) error {
	var value float64
	err := e.update(m.Source, func(n *common.Node) error {
		if n.Attributes.Relationships == nil {
			return fmt.Errorf("%w: %s carries no relationship map", ErrNotApplicable, n.ID)
		}
		value = common.Clamp(n.Attributes.Relationships[m.Target]+m.Delta, -1, 1)
		n.Attributes.Relationships[m.Target] = value
		return nil
	})
	if err != nil {
		return err
	}
	var meta map[string]any
	if m.Category != "" {
		meta = map[string]any{"category": m.Category}
	}
	e.syncEdges(m.Source, m.Target, common.EdgeRelationship, (value+1)/2, meta)
	return nil
}

// syncEdges overwrites the weight of every edge of type typ from source to
// target.
func (e *Engine) syncEdges(source, target string, typ common.EdgeType, weight float64, meta map[string]any) {
	for _, edge := range e.store.EdgesBetween(source, target) {
		if edge.Type != typ {
			continue
		}
		_ = e.store.UpdateEdge(edge.Key, func(ed *common.Edge) {
			ed.Weight = weight
			if len(meta) > 0 {
				if ed.Meta == nil {
					ed.Meta = map[string]any{}
				}
				common.DeepMerge(ed.Meta, meta)
			}
		})
	}
}

func (e *Engine) addSecret(m AddSecret, turn int) error {
	subject := m.SubjectID
	if subject == "" {
		subject = e.subject
	}
	secret := common.Secret{
		Name:         m.SecretID,
		Description:  m.Description,
		DiscoveredBy: m.DiscoveredBy,
		Turn:         m.Turn,
	}
	if secret.Name == "" {
		secret.Name = util.NewID("secret")
	}
	if secret.Turn == 0 {
		secret.Turn = turn
	}
	return e.update(subject, func(n *common.Node) error {
		n.Attributes.Secrets = append(n.Attributes.Secrets, secret)
		return nil
	})
}

func (e *Engine) addInjury(m AddInjury) error {
	target := m.TargetID
	if target == "" {
		target = e.subject
	}
	if m.Injury == "" {
		return fmt.Errorf("%w: missing injury", ErrInvalid)
	}
	return e.update(target, func(n *common.Node) error {
		if !slices.Contains(n.Attributes.Injuries, m.Injury) {
			n.Attributes.Injuries = append(n.Attributes.Injuries, m.Injury)
		}
		return nil
	})
}

// formAlliance links every ordered pair of existing members with an
// ALLIANCE edge.
func (e *Engine) formAlliance(m FormAlliance, turn int) error {
	var members []string
	for _, id := range m.Members {
		if e.store.HasNode(id) && !slices.Contains(members, id) {
			members = append(members, id)
		}
	}
	if len(members) < 2 {
		return fmt.Errorf("%w: fewer than two known alliance members", ErrDangling)
	}

	name := m.Name
	if name == "" {
		name = util.NewID("alliance")
	}
	for _, a := range members {
		for _, b := range members {
			if a == b {
				continue
			}
			e.store.AddEdge(common.Edge{
				Source: a,
				Target: b,
				Type:   common.EdgeAlliance,
				Label:  "allied_with",
				Weight: AllianceWeight,
				Meta:   map[string]any{"alliance": name, "turn": turn},
			})
		}
	}
	return nil
}

func (e *Engine) updateLedger(m UpdateLedger) error {
	target := m.TargetID
	if target == "" {
		target = e.subject
	}
	return e.update(target, func(n *common.Node) error {
		if n.Attributes.Ledger == nil {
			return fmt.Errorf("%w: %s carries no ledger", ErrNotApplicable, n.ID)
		}
		var unknown []string
		for field, delta := range m.Deltas {
			if !n.Attributes.Ledger.Apply(field, delta) {
				unknown = append(unknown, field)
			}
		}
		if len(unknown) > 0 {
			slices.Sort(unknown)
			logger.Debug("[Mutation] Ignored unknown ledger fields", "node", n.ID, "fields", unknown)
		}
		return nil
	})
}

// update wraps graph.Store.UpdateNode and maps a missing node to ErrDangling.
func (e *Engine) update(id string, fn func(n *common.Node) error) error {
	err := e.store.UpdateNode(id, fn)
	if errors.Is(err, graph.ErrNodeNotFound) {
		return fmt.Errorf("%w: node %q", ErrDangling, id)
	}
	return err
}
