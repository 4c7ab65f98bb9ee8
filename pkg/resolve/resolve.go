// Package resolve maps free-text references ("the nurse", "Selene") onto
// canonical node ids.
package resolve

import (
	"errors"
	"strings"

	"github.com/chmielvu/Forge-Text/pkg/common"

	"github.com/agnivade/levenshtein"
)

var ErrNotFound = errors.New("entity not resolved")

// DefaultThreshold is the score a fuzzy match has to exceed.
const DefaultThreshold = 0.6

// maxTokenDistance is the per-token edit distance still counted as a match.
const maxTokenDistance = 2

// DefaultAliases maps lowercase nicknames and titles to canonical ids.
var DefaultAliases = map[string]string{
	"selene":     "FACULTY_SELENE",
	"provost":    "FACULTY_SELENE",
	"magistra":   "FACULTY_SELENE",
	"petra":      "FACULTY_PETRA",
	"inquisitor": "FACULTY_PETRA",
	"lysandra":   "FACULTY_LOGICIAN",
	"logician":   "FACULTY_LOGICIAN",
	"calista":    "FACULTY_CONFESSOR",
	"confessor":  "FACULTY_CONFESSOR",
	"astra":      "FACULTY_ASTRA",
	"mara":       "FACULTY_PHYSICUS",
	"physicus":   "FACULTY_PHYSICUS",
	"elara":      "PREFECT_LOYALIST",
	"kaelen":     "PREFECT_OBSESSIVE",
	"rhea":       "PREFECT_DISSIDENT",
	"anya":       "PREFECT_NURSE",
	"nico":       "Subject_Nico",
	"darius":     "Subject_Darius",
	"silas":      "Subject_Silas",
	"theo":       "Subject_Theo",
	"subject":    "Subject_84",
	"player":     "Subject_84",
	"me":         "Subject_84",
	"infirmary":  "loc_infirmary",
	"clinic":     "loc_infirmary",
}

// NodeSource is the read side of the graph the resolver scans.
type NodeSource interface {
	HasNode(id string) bool
	Nodes() []common.Node
}

// Resolver resolves text to node ids. It is safe for concurrent use.
type Resolver struct {
	aliases   map[string]string
	threshold float64
}

type Option func(*Resolver)

// WithAliases replaces the alias table. Keys are matched lowercased.
func WithAliases(aliases map[string]string) Option {
	return func(r *Resolver) {
		r.aliases = make(map[string]string, len(aliases))
		for k, v := range aliases {
			r.aliases[strings.ToLower(strings.TrimSpace(k))] = v
		}
	}
}

// WithThreshold sets the minimum fuzzy score (exclusive).
func WithThreshold(threshold float64) Option {
	return func(r *Resolver) {
		r.threshold = threshold
	}
}

func New(opts ...Option) *Resolver {
	r := &Resolver{threshold: DefaultThreshold}
	WithAliases(DefaultAliases)(r)
	for _, o := range opts {
		o(r)
	}
	return r
}

// Resolve returns the canonical id for text. Precedence is: exact id,
// alias table, then the best fuzzy match above the threshold.
func (r *Resolver) Resolve(g NodeSource, text string) (string, error) {
	if text == "" {
		return "", ErrNotFound
	}
	if g.HasNode(text) {
		return text, nil
	}

	lower := strings.ToLower(strings.TrimSpace(text))
	if lower == "" {
		return "", ErrNotFound
	}
	if id, ok := r.aliases[lower]; ok {
		return id, nil
	}

	bestID, bestScore := "", 0.0
	for _, n := range g.Nodes() {
		if score := r.Score(lower, n); score > bestScore {
			bestID, bestScore = n.ID, score
		}
	}
	if bestScore > r.threshold {
		return bestID, nil
	}
	return "", ErrNotFound
}

// Canonical resolves text through exact id and alias lookups only. It is
// used for ids that name new nodes, where a fuzzy hit would wrongly fold a
// new entity into an existing one.
func (r *Resolver) Canonical(g NodeSource, text string) string {
	if text == "" || g.HasNode(text) {
		return text
	}
	if id, ok := r.aliases[strings.ToLower(strings.TrimSpace(text))]; ok {
		return id
	}
	return text
}

// ResolveOr resolves text and falls back to text itself when nothing
// matches, so unresolved references fail soft downstream.
func (r *Resolver) ResolveOr(g NodeSource, text string) string {
	id, err := r.Resolve(g, text)
	if err != nil {
		return text
	}
	return id
}

// Score rates how well the lowercased query matches node n, in [0,1].
func (r *Resolver) Score(query string, n common.Node) float64 {
	best := Similarity(query, n.ID)
	best = max(best, Similarity(query, n.Label))
	if n.Type != "" && strings.Contains(query, strings.ToLower(string(n.Type))) {
		best = max(best, 0.7)
	}
	if as := n.Attributes.AgentState; as != nil && as.Archetype != "" {
		best = max(best, Similarity(query, as.Archetype))
	}
	return best
}

// Similarity scores candidate against query: 1.0 for an exact match,
// 0.8 when candidate contains query, otherwise a token overlap score in
// [0.5, 0.9] where a token matches on containment or small edit distance.
func Similarity(query, candidate string) float64 {
	q := strings.ToLower(strings.TrimSpace(query))
	c := strings.ToLower(strings.TrimSpace(candidate))
	if q == "" || c == "" {
		return 0
	}
	if q == c {
		return 1.0
	}
	if strings.Contains(c, q) {
		return 0.8
	}

	qTokens := strings.Fields(q)
	cTokens := strings.Fields(c)
	matched := 0
	for _, qt := range qTokens {
		for _, ct := range cTokens {
			if strings.Contains(ct, qt) || levenshtein.ComputeDistance(qt, ct) <= maxTokenDistance {
				matched++
				break
			}
		}
	}
	if matched == 0 {
		return 0
	}
	return 0.5 + 0.4*float64(matched)/float64(len(qTokens))
}
