package graph

import (
	"errors"
	"maps"
	"slices"
	"sync"

	"github.com/chmielvu/Forge-Text/pkg/common"
	"github.com/chmielvu/Forge-Text/pkg/logger"
)

var (
	ErrNodeNotFound = errors.New("node not found")
	ErrEdgeNotFound = errors.New("edge not found")
)

// Store owns the canonical directed multigraph and the global story state.
//
// Writes happen from a single owner. The lock exists so that background
// readers (index builds, layout passes) always observe a consistent graph.
type Store struct {
	mu sync.RWMutex

	nodes     map[string]*common.Node
	nodeOrder []string

	edges     map[string]*common.Edge
	edgeOrder []string
	out       map[string]map[string]struct{}
	in        map[string]map[string]struct{}

	global common.GlobalState
}

// New creates a store from snap. When snap carries no nodes the store
// bootstraps the canonical cast so callers never observe an empty world.
func New(snap common.Snapshot) *Store {
	s := &Store{}
	s.reset()

	if len(snap.Nodes) == 0 {
		cast, err := CanonicalCast()
		if err != nil {
			logger.Error("[Graph] Failed to load canonical cast", "err", err)
		} else {
			snap = cast
		}
	}
	s.Import(snap)
	return s
}

func (s *Store) reset() {
	s.nodes = make(map[string]*common.Node)
	s.nodeOrder = nil
	s.edges = make(map[string]*common.Edge)
	s.edgeOrder = nil
	s.out = make(map[string]map[string]struct{})
	s.in = make(map[string]map[string]struct{})
	s.global = common.GlobalState{NarrativePhase: common.PhaseAct1}
}

// Get returns an immutable snapshot of the whole graph. Edges keep their
// insertion order.
func (s *Store) Get() common.Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := common.Snapshot{
		Nodes:  make(map[string]common.Node, len(s.nodes)),
		Edges:  make([]common.Edge, 0, len(s.edges)),
		Global: s.global,
	}
	for id, n := range s.nodes {
		snap.Nodes[id] = n.Clone()
	}
	for _, key := range s.edgeOrder {
		snap.Edges = append(snap.Edges, s.edges[key].Clone())
	}
	return snap
}

// Snapshot is an alias of Get used for save/load round trips.
func (s *Store) Snapshot() common.Snapshot {
	return s.Get()
}

// Restore replaces the graph with snap.
func (s *Store) Restore(snap common.Snapshot) {
	s.Import(snap)
}

// Import replaces all content with snap. Edges whose endpoints are missing
// are skipped; the number of skipped edges is returned.
func (s *Store) Import(snap common.Snapshot) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.reset()
	if snap.Global.NarrativePhase != "" || snap.Global.TurnCount != 0 || snap.Global.TensionLevel != 0 {
		s.global = snap.Global
	}

	for _, id := range sortedKeys(snap.Nodes) {
		n := snap.Nodes[id].Clone()
		if n.ID == "" {
			n.ID = id
		}
		s.addNodeLocked(n)
	}

	skipped := 0
	for _, e := range snap.Edges {
		if _, ok := s.upsertEdgeLocked(e.Clone()); !ok {
			skipped++
		}
	}
	if skipped > 0 {
		logger.Debug("[Graph] Skipped dangling edges on import", "count", skipped)
	}
	return skipped
}

// HasNode reports whether a node with id exists.
func (s *Store) HasNode(id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.nodes[id]
	return ok
}

// Node returns a copy of the node with id.
func (s *Store) Node(id string) (common.Node, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n, ok := s.nodes[id]
	if !ok {
		return common.Node{}, false
	}
	return n.Clone(), true
}

// Nodes returns copies of all nodes in insertion order.
func (s *Store) Nodes() []common.Node {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]common.Node, 0, len(s.nodeOrder))
	for _, id := range s.nodeOrder {
		out = append(out, s.nodes[id].Clone())
	}
	return out
}

// Edges returns copies of all edges in insertion order.
func (s *Store) Edges() []common.Edge {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]common.Edge, 0, len(s.edgeOrder))
	for _, key := range s.edgeOrder {
		out = append(out, s.edges[key].Clone())
	}
	return out
}

// Edge returns a copy of the edge with key.
func (s *Store) Edge(key string) (common.Edge, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.edges[key]
	if !ok {
		return common.Edge{}, false
	}
	return e.Clone(), true
}

// Order is the number of nodes.
func (s *Store) Order() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.nodes)
}

// Size is the number of edges.
func (s *Store) Size() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.edges)
}

// OutEdges returns the edges leaving id.
func (s *Store) OutEdges(id string) []common.Edge {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.collectLocked(s.out[id])
}

// InEdges returns the edges entering id.
func (s *Store) InEdges(id string) []common.Edge {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.collectLocked(s.in[id])
}

// EdgesBetween returns every edge from source to target.
func (s *Store) EdgesBetween(source, target string) []common.Edge {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []common.Edge
	for _, e := range s.collectLocked(s.out[source]) {
		if e.Target == target {
			out = append(out, e)
		}
	}
	return out
}

func (s *Store) collectLocked(keys map[string]struct{}) []common.Edge {
	out := make([]common.Edge, 0, len(keys))
	for _, key := range s.edgeOrder {
		if _, ok := keys[key]; ok {
			out = append(out, s.edges[key].Clone())
		}
	}
	return out
}

// AddNode inserts n. Creation is idempotent: an existing id is left as is
// and false is returned.
func (s *Store) AddNode(n common.Node) bool {
	if n.ID == "" {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.nodes[n.ID]; ok {
		return false
	}
	s.addNodeLocked(n.Clone())
	return true
}

func (s *Store) addNodeLocked(n common.Node) {
	if n.Type == "" {
		n.Type = common.NodeEntity
	}
	if n.Label == "" {
		n.Label = n.ID
	}
	s.nodes[n.ID] = &n
	s.nodeOrder = append(s.nodeOrder, n.ID)
}

// UpdateNode runs fn against the stored node. The id is restored after fn
// returns so a node can never be renamed.
func (s *Store) UpdateNode(id string, fn func(n *common.Node) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	n, ok := s.nodes[id]
	if !ok {
		return ErrNodeNotFound
	}
	draft := n.Clone()
	if err := fn(&draft); err != nil {
		return err
	}
	draft.ID = id
	s.nodes[id] = &draft
	return nil
}

// RemoveNode deletes the node and every edge incident to it.
func (s *Store) RemoveNode(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.nodes[id]; !ok {
		return false
	}
	for key := range s.out[id] {
		s.removeEdgeLocked(key)
	}
	for key := range s.in[id] {
		s.removeEdgeLocked(key)
	}
	delete(s.nodes, id)
	delete(s.out, id)
	delete(s.in, id)
	s.nodeOrder = slices.DeleteFunc(s.nodeOrder, func(v string) bool { return v == id })
	return true
}

// AddEdge inserts e, or updates the edge with the same key in place.
// Edges referencing a missing node are dropped and reported with ok=false.
func (s *Store) AddEdge(e common.Edge) (key string, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.upsertEdgeLocked(e.Clone())
}

func (s *Store) upsertEdgeLocked(e common.Edge) (string, bool) {
	if _, ok := s.nodes[e.Source]; !ok {
		return "", false
	}
	if _, ok := s.nodes[e.Target]; !ok {
		return "", false
	}
	if e.Type == "" {
		e.Type = common.EdgeRelationship
	}
	if e.Key == "" {
		e.Key = common.EdgeKey(e.Source, e.Target, e.Type)
	}
	e.Weight = common.Clamp(e.Weight, 0, 1)

	if existing, ok := s.edges[e.Key]; ok {
		if existing.Source != e.Source || existing.Target != e.Target {
			s.unlinkLocked(existing)
			s.linkLocked(&e)
		}
		if e.Meta == nil {
			e.Meta = existing.Meta
		} else if existing.Meta != nil {
			merged := maps.Clone(existing.Meta)
			maps.Copy(merged, e.Meta)
			e.Meta = merged
		}
		if e.Label == "" {
			e.Label = existing.Label
		}
		s.edges[e.Key] = &e
		return e.Key, true
	}

	s.edges[e.Key] = &e
	s.edgeOrder = append(s.edgeOrder, e.Key)
	s.linkLocked(&e)
	return e.Key, true
}

// UpdateEdge runs fn against the stored edge and clamps its weight.
// Endpoints and key cannot be changed through fn.
func (s *Store) UpdateEdge(key string, fn func(e *common.Edge)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.edges[key]
	if !ok {
		return ErrEdgeNotFound
	}
	draft := e.Clone()
	fn(&draft)
	draft.Key, draft.Source, draft.Target = e.Key, e.Source, e.Target
	draft.Weight = common.Clamp(draft.Weight, 0, 1)
	s.edges[key] = &draft
	return nil
}

// RemoveEdge deletes a single edge.
func (s *Store) RemoveEdge(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.removeEdgeLocked(key)
}

func (s *Store) removeEdgeLocked(key string) bool {
	e, ok := s.edges[key]
	if !ok {
		return false
	}
	s.unlinkLocked(e)
	delete(s.edges, key)
	s.edgeOrder = slices.DeleteFunc(s.edgeOrder, func(v string) bool { return v == key })
	return true
}

func (s *Store) linkLocked(e *common.Edge) {
	if s.out[e.Source] == nil {
		s.out[e.Source] = make(map[string]struct{})
	}
	if s.in[e.Target] == nil {
		s.in[e.Target] = make(map[string]struct{})
	}
	s.out[e.Source][e.Key] = struct{}{}
	s.in[e.Target][e.Key] = struct{}{}
}

func (s *Store) unlinkLocked(e *common.Edge) {
	delete(s.out[e.Source], e.Key)
	delete(s.in[e.Target], e.Key)
}

// Global returns the global story state.
func (s *Store) Global() common.GlobalState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.global
}

// AdvanceTurn increments the turn counter and returns the new value.
func (s *Store) AdvanceTurn() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.global.TurnCount++
	return s.global.TurnCount
}

// SetTurn moves the turn counter forward to turn. The counter never
// moves backwards.
func (s *Store) SetTurn(turn int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if turn > s.global.TurnCount {
		s.global.TurnCount = turn
	}
}

// SetTension sets the tension level, clamped to [0,1].
func (s *Store) SetTension(v float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.global.TensionLevel = common.Clamp(v, 0, 1)
}

// SetPhase sets the narrative phase.
func (s *Store) SetPhase(p common.Phase) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.global.NarrativePhase = p
}

func sortedKeys[V any](m map[string]V) []string {
	return slices.Sorted(maps.Keys(m))
}
