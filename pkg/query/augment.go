package query

import (
	"fmt"
	"strings"
)

const defaultContextSummary = "Standard protocol."

// AugmentPrompt renders a retrieval result and the largest community's
// cached summary as a context block for the narrative generator. It reads
// the current index and never triggers a build.
func (ix *Indexer) AugmentPrompt(r Result) string {
	labels := make([]string, 0, len(r.NodeIDs))
	for _, id := range r.NodeIDs {
		label := r.Nodes[id].Label
		if label == "" {
			label = id
		}
		labels = append(labels, label)
	}

	relations := strings.Join(r.Evidence, "; ")
	if relations == "" {
		relations = "None"
	}

	summary := ix.Current().TopSummary()
	if summary == "" {
		summary = defaultContextSummary
	}

	var b strings.Builder
	fmt.Fprintf(&b, "GraphRAG MEMORY: %q\n", r.Query)
	fmt.Fprintf(&b, "Relevant Entities: %s\n", strings.Join(labels, ", "))
	fmt.Fprintf(&b, "Key Relations: %s\n", relations)
	fmt.Fprintf(&b, "Context Summary: %s\n", summary)
	b.WriteString("Use these faded scars and hidden connections to deepen the psychological pressure.")
	return b.String()
}
