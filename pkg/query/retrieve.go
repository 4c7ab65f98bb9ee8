package query

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"strings"
	"unicode/utf8"

	"github.com/chmielvu/Forge-Text/pkg/common"
	"github.com/chmielvu/Forge-Text/pkg/logger"
)

type Mode string

const (
	ModeLocal  Mode = "local"
	ModeGlobal Mode = "global"
)

// DefaultHops is the expansion depth used when RetrieveOptions.Hops is zero.
const DefaultHops = 2

type RetrieveOptions struct {
	Mode Mode
	// Hops is the breadth-first expansion depth; zero means DefaultHops and
	// a negative value disables expansion.
	Hops   int
	Tracer Tracer
}

// Result is a retrieved subgraph. NodeIDs keeps retrieval order; Evidence
// holds one "A →[TYPE:w]→ B" line per evidence edge.
type Result struct {
	Query    string                 `json:"query"`
	Seed     string                 `json:"seed,omitempty"`
	NodeIDs  []string               `json:"node_ids"`
	Nodes    map[string]common.Node `json:"nodes"`
	Edges    []common.Edge          `json:"edges"`
	Summary  string                 `json:"summary"`
	Evidence []string               `json:"evidence"`
}

// Retrieve returns the subgraph relevant to query. The index is brought up
// to date first. Seeds are the resolved entity plus nodes whose label or
// attributes mention a query token; seeds are expanded hop by hop across
// edges heavy enough to survive decay.
func (ix *Indexer) Retrieve(ctx context.Context, query string, opts RetrieveOptions) Result {
	ix.BuildIndex(ctx, false, 0)

	p := ix.params
	hops := opts.Hops
	if hops == 0 {
		hops = DefaultHops
	}

	snap := ix.g.Get()
	adj := adjacency(snap)

	var relevant []string
	seen := map[string]struct{}{}
	add := func(id string) bool {
		if _, ok := seen[id]; ok {
			return false
		}
		seen[id] = struct{}{}
		relevant = append(relevant, id)
		return true
	}

	seed, err := ix.resolver.Resolve(ix.g, query)
	if err == nil && snap.Nodes[seed].ID != "" {
		add(seed)
		record(opts.Tracer, TraceEvent{Kind: TraceEventSeed, NodeIDs: []string{seed}})
	} else {
		seed = ""
	}

	matched := lexicalMatches(snap, queryTerms(query), p.LexicalMatchCap, seen)
	for _, id := range matched {
		add(id)
	}
	record(opts.Tracer, TraceEvent{Kind: TraceEventLexical, NodeIDs: matched})

	for hop := range max(hops, 0) {
		frontier := relevant[max(0, len(relevant)-p.FrontierCap):]
		var next []string
		for _, id := range frontier {
			for _, e := range adj[id] {
				if e.Weight < p.RetrievalMinWeight {
					continue
				}
				neighbor := e.Target
				if neighbor == id {
					neighbor = e.Source
				}
				if !slices.Contains(next, neighbor) {
					next = append(next, neighbor)
				}
			}
		}
		var added []string
		for _, id := range next {
			if add(id) {
				added = append(added, id)
			}
		}
		record(opts.Tracer, TraceEvent{Kind: TraceEventExpanded, Hop: hop + 1, NodeIDs: added})
	}

	if p.SubgraphCap > 0 && len(relevant) > p.SubgraphCap {
		relevant = relevant[:p.SubgraphCap]
	}

	if opts.Mode == ModeGlobal && len(relevant) > p.GlobalMinNodes {
		relevant = ix.globalFilter(snap, seed, relevant)
		record(opts.Tracer, TraceEvent{Kind: TraceEventFiltered, NodeIDs: relevant})
	}

	evidence := evidenceEdges(snap, relevant, p.EvidenceMinWeight, p.EvidenceCap)
	keys := make([]string, len(evidence))
	for i, e := range evidence {
		keys[i] = e.Key
	}
	record(opts.Tracer, TraceEvent{Kind: TraceEventEvidence, EdgeKeys: keys})

	res := Result{
		Query:    query,
		Seed:     seed,
		NodeIDs:  relevant,
		Nodes:    make(map[string]common.Node, len(relevant)),
		Edges:    evidence,
		Evidence: make([]string, len(evidence)),
	}
	for _, id := range relevant {
		res.Nodes[id] = snap.Nodes[id]
	}
	for i, e := range evidence {
		res.Evidence[i] = fmt.Sprintf("%s →[%s:%.1f]→ %s",
			labelOf(snap, e.Source), e.Type, e.Weight, labelOf(snap, e.Target))
	}
	res.Summary = fmt.Sprintf("Retrieved %d nodes, %d edges for '%s'", len(relevant), len(evidence), query)

	logger.Debug("[Index] Retrieval finished", "query", query, "nodes", len(relevant), "evidence", len(evidence), "mode", opts.Mode)
	return res
}

// queryTerms lowercases query and keeps whitespace-separated tokens longer
// than three characters.
func queryTerms(query string) []string {
	var terms []string
	for _, t := range strings.Fields(strings.ToLower(query)) {
		if utf8.RuneCountInString(t) > 3 {
			terms = append(terms, t)
		}
	}
	return terms
}

// lexicalMatches scans nodes in id order for labels or serialised
// attributes containing a query term, stopping after limit hits. Nodes in
// skip are not reported.
func lexicalMatches(snap common.Snapshot, terms []string, limit int, skip map[string]struct{}) []string {
	if len(terms) == 0 {
		return nil
	}
	var out []string
	for _, id := range snap.SortedNodeIDs() {
		if limit > 0 && len(out) >= limit {
			break
		}
		if _, ok := skip[id]; ok {
			continue
		}
		n := snap.Nodes[id]
		label := strings.ToLower(n.Label)
		attrs := ""
		if data, err := json.Marshal(n.Attributes); err == nil {
			attrs = strings.ToLower(string(data))
		}
		for _, term := range terms {
			if strings.Contains(label, term) || strings.Contains(attrs, term) {
				out = append(out, id)
				break
			}
		}
	}
	return out
}

func adjacency(snap common.Snapshot) map[string][]common.Edge {
	adj := make(map[string][]common.Edge, len(snap.Nodes))
	for _, e := range snap.Edges {
		adj[e.Source] = append(adj[e.Source], e)
		if e.Target != e.Source {
			adj[e.Target] = append(adj[e.Target], e)
		}
	}
	return adj
}

// evidenceEdges returns edges whose endpoints are both in ids and whose
// weight exceeds minWeight, heaviest first, at most limit of them.
func evidenceEdges(snap common.Snapshot, ids []string, minWeight float64, limit int) []common.Edge {
	in := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		in[id] = struct{}{}
	}
	var out []common.Edge
	for _, e := range snap.Edges {
		if e.Source == e.Target || e.Weight <= minWeight {
			continue
		}
		_, okS := in[e.Source]
		_, okT := in[e.Target]
		if okS && okT {
			out = append(out, e)
		}
	}
	slices.SortStableFunc(out, func(a, b common.Edge) int {
		switch {
		case a.Weight > b.Weight:
			return -1
		case a.Weight < b.Weight:
			return 1
		}
		return 0
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

// globalFilter keeps the nodes whose structural embedding is close to the
// seed's (the first node when nothing resolved).
func (ix *Indexer) globalFilter(snap common.Snapshot, seed string, ids []string) []string {
	if len(ids) == 0 {
		return ids
	}
	if seed == "" {
		seed = ids[0]
	}
	emb := Embeddings(snap, ix.params.EmbeddingDim)
	anchor := emb[seed]

	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if Cosine(anchor, emb[id]) > ix.params.GlobalSimilarity {
			out = append(out, id)
		}
	}
	return out
}

func labelOf(snap common.Snapshot, id string) string {
	if n, ok := snap.Nodes[id]; ok && n.Label != "" {
		return n.Label
	}
	return id
}
