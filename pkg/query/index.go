// Package query maintains the retrieval index over the narrative graph and
// answers free-text retrieval queries against it.
package query

import (
	"time"

	"github.com/chmielvu/Forge-Text/pkg/common"
)

// IndexVersion is the schema version written with every persisted index.
// Cached indices carrying any other version are ignored.
const IndexVersion = 1

// Params are the tunable thresholds of index building and retrieval.
type Params struct {
	// RetrievalMinWeight hides edges below it from sampling and expansion.
	RetrievalMinWeight float64
	// EvidenceMinWeight is the exclusive floor for evidence edges.
	EvidenceMinWeight   float64
	EvidenceCap         int
	RelationSampleRatio float64
	SubgraphCap         int
	FrontierCap         int
	LexicalMatchCap     int
	// GlobalSimilarity is the exclusive cosine floor in global mode.
	GlobalSimilarity float64
	// GlobalMinNodes is the result size above which global filtering applies.
	GlobalMinNodes int
	EmbeddingDim   int

	// RebuildThreshold is the mutations-per-element ratio forcing a rebuild.
	RebuildThreshold float64
	RebuildTurns     int
	TTL              time.Duration

	CommunityCap int
	// CommunityRelations caps the relations quoted in a summary prompt.
	CommunityRelations int
	SummaryRetries     int
}

func DefaultParams() Params {
	return Params{
		RetrievalMinWeight:  0.1,
		EvidenceMinWeight:   0.3,
		EvidenceCap:         8,
		RelationSampleRatio: 0.7,
		SubgraphCap:         20,
		FrontierCap:         10,
		LexicalMatchCap:     10,
		GlobalSimilarity:    0.6,
		GlobalMinNodes:      5,
		EmbeddingDim:        16,
		RebuildThreshold:    0.1,
		RebuildTurns:        3,
		TTL:                 time.Hour,
		CommunityCap:        5,
		CommunityRelations:  10,
		SummaryRetries:      2,
	}
}

// Entity is the compact per-node record of the index. Features are
// pagerank, dominance and paranoia in that order.
type Entity struct {
	Label    string    `json:"label"`
	Features []float64 `json:"features"`
}

type Relation struct {
	Source string          `json:"source"`
	Target string          `json:"target"`
	Type   common.EdgeType `json:"type"`
	Weight float64         `json:"weight"`
}

// Community is one detected cluster. Only the largest communities carry a
// generated summary.
type Community struct {
	ID      int      `json:"id"`
	Nodes   []string `json:"nodes"`
	Summary string   `json:"summary,omitempty"`
}

// Index is the derived, disposable summary of the graph. Communities are
// ordered largest first.
type Index struct {
	Entities    map[string]Entity `json:"entities"`
	Relations   []Relation        `json:"relations"`
	Communities []Community       `json:"communities"`
	MutCount    int               `json:"mut_count"`
	Timestamp   time.Time         `json:"timestamp"`
	Version     int               `json:"version"`
}

// TopSummary returns the summary of the largest community, or "" when
// there is none.
func (idx *Index) TopSummary() string {
	if idx == nil || len(idx.Communities) == 0 {
		return ""
	}
	return idx.Communities[0].Summary
}

// State is the freshness of the index.
type State string

const (
	StateStale State = "stale"
	StateFresh State = "fresh"
)
