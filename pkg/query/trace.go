package query

import (
	"slices"
	"sync"
)

type TraceEventKind string

const (
	TraceEventSeed     TraceEventKind = "seed"
	TraceEventLexical  TraceEventKind = "lexical_match"
	TraceEventExpanded TraceEventKind = "expanded"
	TraceEventFiltered TraceEventKind = "global_filtered"
	TraceEventEvidence TraceEventKind = "evidence"
)

// TraceEvent is an extensible event envelope for retrieval tracing.
type TraceEvent struct {
	Kind TraceEventKind

	NodeIDs  []string
	EdgeKeys []string
	Hop      int
}

// Tracer is a sink for retrieval tracing events.
type Tracer interface {
	Record(event TraceEvent)
}

func record(t Tracer, event TraceEvent) {
	if t == nil {
		return
	}
	t.Record(event)
}

// QueryTrace collects what a retrieval considered and kept. It is safe for
// concurrent use.
type QueryTrace struct {
	mu sync.Mutex

	seed     string
	lexical  []string
	hops     map[int][]string
	filtered []string
	evidence []string
}

type QueryTraceSnapshot struct {
	Seed     string           `json:"seed,omitempty"`
	Lexical  []string         `json:"lexical,omitempty"`
	Hops     map[int][]string `json:"hops,omitempty"`
	Filtered []string         `json:"filtered,omitempty"`
	Evidence []string         `json:"evidence,omitempty"`
}

func NewQueryTrace() *QueryTrace {
	return &QueryTrace{hops: make(map[int][]string)}
}

func (t *QueryTrace) Record(event TraceEvent) {
	if t == nil {
		return
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	switch event.Kind {
	case TraceEventSeed:
		if len(event.NodeIDs) > 0 {
			t.seed = event.NodeIDs[0]
		}
	case TraceEventLexical:
		t.lexical = append(t.lexical, event.NodeIDs...)
	case TraceEventExpanded:
		t.hops[event.Hop] = append(t.hops[event.Hop], event.NodeIDs...)
	case TraceEventFiltered:
		t.filtered = append(t.filtered, event.NodeIDs...)
	case TraceEventEvidence:
		t.evidence = append(t.evidence, event.EdgeKeys...)
	default:
		return
	}
}

func (t *QueryTrace) Snapshot() QueryTraceSnapshot {
	if t == nil {
		return QueryTraceSnapshot{}
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	s := QueryTraceSnapshot{
		Seed:     t.seed,
		Lexical:  slices.Clone(t.lexical),
		Hops:     make(map[int][]string, len(t.hops)),
		Filtered: slices.Clone(t.filtered),
		Evidence: slices.Clone(t.evidence),
	}
	for hop, ids := range t.hops {
		s.Hops[hop] = slices.Clone(ids)
	}
	return s
}
